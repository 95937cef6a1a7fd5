package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/BryanViews002/style-yard-emporium-sub000/domain"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

const EventOrderConfirmed = "order.confirmed"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type OrderConfirmed struct {
	OrderID     string             `json:"order_id"`
	OrderNumber string             `json:"order_number"`
	Email       string             `json:"email"`
	Total       decimal.Decimal    `json:"total"`
	Currency    string             `json:"currency"`
	Items       []domain.OrderItem `json:"items"`
	PaidAt      time.Time          `json:"paid_at"`
}

// KafkaNotifier publishes order confirmations for the mailer to pick up.
type KafkaNotifier struct {
	writer  messageWriter
	timeout time.Duration
}

func NewKafkaNotifier(topic string, brokers ...string) *KafkaNotifier {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return &KafkaNotifier{writer: w, timeout: 5 * time.Second}
}

func (n *KafkaNotifier) OrderConfirmed(ctx context.Context, order *domain.Order) error {
	paidAt := time.Now()
	if order.PaidAt != nil {
		paidAt = *order.PaidAt
	}
	payload, err := json.Marshal(OrderConfirmed{
		OrderID:     order.ID.String(),
		OrderNumber: order.OrderNumber,
		Email:       order.Email,
		Total:       order.Total,
		Currency:    order.Currency,
		Items:       order.Items,
		PaidAt:      paidAt,
	})
	if err != nil {
		return fmt.Errorf("marshal order confirmed event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(order.ID.String()),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventOrderConfirmed)},
		},
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish order confirmed: %w", err)
	}
	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
