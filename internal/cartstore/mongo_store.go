package cartstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BryanViews002/style-yard-emporium-sub000/domain"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// abandoned carts are dropped by a TTL index
const cartTTL = 30 * 24 * time.Hour

type cartItemDocument struct {
	ProductID     string    `bson:"product_id"`
	Name          string    `bson:"name"`
	UnitPrice     string    `bson:"unit_price"`
	Quantity      int       `bson:"quantity"`
	SelectedSize  string    `bson:"selected_size,omitempty"`
	SelectedColor string    `bson:"selected_color,omitempty"`
	ImageURL      string    `bson:"image_url,omitempty"`
	AddedAt       time.Time `bson:"added_at"`
}

type cartDocument struct {
	SessionID string             `bson:"session_id"`
	UserID    string             `bson:"user_id,omitempty"`
	Items     []cartItemDocument `bson:"items"`
	Version   int64              `bson:"version"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

type MongoStore struct {
	collection *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{collection: db.Collection("carts")}
}

func (m *MongoStore) GetCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	var doc cartDocument
	err := m.collection.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return fromDocument(&doc)
}

func (m *MongoStore) SaveCart(ctx context.Context, cart *domain.Cart) error {
	now := time.Now().UTC()
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}
	doc := toDocument(cart)
	doc.UpdatedAt = now
	doc.Version = cart.Version + 1

	if cart.Version == 0 {
		_, err := m.collection.InsertOne(ctx, doc)
		if mongo.IsDuplicateKeyError(err) {
			return ErrVersionConflict
		}
		if err != nil {
			return fmt.Errorf("failed to insert cart: %w", err)
		}
	} else {
		filter := bson.M{"session_id": cart.SessionID, "version": cart.Version}
		res, err := m.collection.ReplaceOne(ctx, filter, doc)
		if err != nil {
			return fmt.Errorf("failed to save cart: %w", err)
		}
		if res.MatchedCount == 0 {
			return ErrVersionConflict
		}
	}

	cart.Version = doc.Version
	cart.UpdatedAt = now
	return nil
}

func (m *MongoStore) DeleteCart(ctx context.Context, sessionID string) error {
	_, err := m.collection.DeleteOne(ctx, bson.M{"session_id": sessionID})
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}

func (m *MongoStore) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "session_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(cartTTL.Seconds())),
		},
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func toDocument(cart *domain.Cart) *cartDocument {
	doc := &cartDocument{
		SessionID: cart.SessionID,
		UserID:    cart.UserID,
		Items:     make([]cartItemDocument, 0, len(cart.Items)),
		Version:   cart.Version,
		CreatedAt: cart.CreatedAt,
		UpdatedAt: cart.UpdatedAt,
	}
	for _, it := range cart.Items {
		doc.Items = append(doc.Items, cartItemDocument{
			ProductID:     it.ProductID,
			Name:          it.Name,
			UnitPrice:     it.UnitPrice.String(),
			Quantity:      it.Quantity,
			SelectedSize:  it.SelectedSize,
			SelectedColor: it.SelectedColor,
			ImageURL:      it.ImageURL,
			AddedAt:       it.AddedAt,
		})
	}
	return doc
}

func fromDocument(doc *cartDocument) (*domain.Cart, error) {
	cart := &domain.Cart{
		SessionID: doc.SessionID,
		UserID:    doc.UserID,
		Version:   doc.Version,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
	for _, it := range doc.Items {
		price, err := decimal.NewFromString(it.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("cart %s: bad price for %s: %w", doc.SessionID, it.ProductID, err)
		}
		cart.Items = append(cart.Items, domain.CartItem{
			ProductID:     it.ProductID,
			Name:          it.Name,
			UnitPrice:     price,
			Quantity:      it.Quantity,
			SelectedSize:  it.SelectedSize,
			SelectedColor: it.SelectedColor,
			ImageURL:      it.ImageURL,
			AddedAt:       it.AddedAt,
		})
	}
	return cart, nil
}
