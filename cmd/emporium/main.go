package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BryanViews002/style-yard-emporium-sub000/internal/auth"
	"github.com/BryanViews002/style-yard-emporium-sub000/internal/cache"
	"github.com/BryanViews002/style-yard-emporium-sub000/internal/cartstore"
	"github.com/BryanViews002/style-yard-emporium-sub000/internal/config"
	"github.com/BryanViews002/style-yard-emporium-sub000/internal/coupon"
	h "github.com/BryanViews002/style-yard-emporium-sub000/internal/http"
	"github.com/BryanViews002/style-yard-emporium-sub000/internal/inventory"
	"github.com/BryanViews002/style-yard-emporium-sub000/internal/notify"
	"github.com/BryanViews002/style-yard-emporium-sub000/internal/payment"
	"github.com/BryanViews002/style-yard-emporium-sub000/internal/repository"
	"github.com/BryanViews002/style-yard-emporium-sub000/internal/service"
	"github.com/BryanViews002/style-yard-emporium-sub000/internal/shipping"
	"github.com/BryanViews002/style-yard-emporium-sub000/internal/sweeper"
	"github.com/BryanViews002/style-yard-emporium-sub000/pkg/logger"
	"github.com/BryanViews002/style-yard-emporium-sub000/pkg/retry"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	slog.SetDefault(logger.New("style-yard-emporium", cfg.LogLevel))

	ctx := context.Background()

	// PostgreSQL: catalog, stock ledger, coupons, orders
	cred := &repository.Credentials{
		Host:              cfg.DBHost,
		Port:              cfg.DBPort,
		User:              cfg.DBUser,
		Password:          cfg.DBPassword,
		DBName:            cfg.DBName,
		MigrationsDirPath: cfg.MigrationsPath,
	}
	repo, err := repository.NewRepository(cred)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer repo.Close()
	if err := repo.RunMigrations(cred); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Printf("Connected to PostgreSQL at %s:%d", cfg.DBHost, cfg.DBPort)

	// MongoDB: carts
	mongoDB, err := cartstore.Connect(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer mongoDB.Client().Disconnect(context.Background())
	carts := cartstore.NewMongoStore(mongoDB)
	if err := carts.CreateIndexes(ctx); err != nil {
		log.Fatalf("Failed to create cart indexes: %v", err)
	}
	log.Printf("Connected to MongoDB at %s", cfg.MongoURI)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("Redis connection failed: %v", err)
	}
	log.Printf("Redis ping succeeded")

	gateway, err := payment.NewStripeGateway(cfg.StripeSecretKey)
	if err != nil {
		log.Fatalf("Failed to configure payment gateway: %v", err)
	}

	notifier := notify.NewKafkaNotifier(cfg.OrderConfirmedTopic, cfg.KafkaBrokers...)
	defer notifier.Close()

	rates := shipping.DefaultRates(cfg.DomesticCountry, cfg.FreeShippingThreshold)
	if cfg.ShippingRatesFile != "" {
		if rates, err = shipping.LoadRates(cfg.ShippingRatesFile); err != nil {
			log.Fatalf("Failed to load shipping rates: %v", err)
		}
	}

	stock := inventory.NewValidator(repo)
	coupons := coupon.NewValidator(repo)
	cartService := service.NewCartService(carts, cache.NewRedisCache(redisClient), repo)

	settler, err := service.NewSettler(stock, coupons, notifier, cartService, otel.Meter("style-yard-emporium/checkout"))
	if err != nil {
		log.Fatalf("Failed to create settler: %v", err)
	}

	checkoutService := service.NewCheckoutService(repo, cartService, stock, coupons,
		shipping.NewCalculator(rates), gateway, settler, service.CheckoutConfig{
			Currency:        cfg.Currency,
			DomesticCountry: cfg.DomesticCountry,
			Retry:           retry.DefaultPolicy(),
		})

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go sweeper.New(repo, gateway, cfg.OrderTTL, cfg.SweepInterval).Run(sweepCtx)

	srv := &http.Server{
		Addr: ":" + cfg.HTTPPort,
		Handler: h.NewRouter(h.RouterConfig{
			Carts:         cartService,
			Checkout:      checkoutService,
			Verifier:      auth.NewVerifier(cfg.JWTSecret),
			WebhookSecret: cfg.StripeWebhookSecret,
			Timeout:       cfg.RequestTimeout,
			Ready:         repo.Ping,
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("HTTP API listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// gRPC: health and reflection for orchestration probes
	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.GRPCPort))
	if err != nil {
		log.Fatalf("Failed to listen: %v", err)
	}
	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	go func() {
		log.Printf("gRPC health listening on :%s", cfg.GRPCPort)
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatalf("Failed to serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	healthServer.Shutdown()
	stopSweeper()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced to shutdown: %v", err)
	}
	grpcServer.GracefulStop()

	log.Println("server exited")
}
