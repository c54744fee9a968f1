package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/YelzhanWeb/campuseats/internal/adapter/auth"
	"github.com/YelzhanWeb/campuseats/internal/adapter/cache"
	"github.com/YelzhanWeb/campuseats/internal/adapter/events"
	"github.com/YelzhanWeb/campuseats/internal/adapter/filestore"
	"github.com/YelzhanWeb/campuseats/internal/adapter/kafka"
	"github.com/YelzhanWeb/campuseats/internal/adapter/logger"
	"github.com/YelzhanWeb/campuseats/internal/adapter/postgres"
	"github.com/YelzhanWeb/campuseats/internal/adapter/rabbitmq"
	"github.com/YelzhanWeb/campuseats/internal/app/cart"
	"github.com/YelzhanWeb/campuseats/internal/app/delivery"
	"github.com/YelzhanWeb/campuseats/internal/app/escalation"
	"github.com/YelzhanWeb/campuseats/internal/app/kitchen"
	"github.com/YelzhanWeb/campuseats/internal/app/order"
	"github.com/YelzhanWeb/campuseats/internal/app/retry"
	"github.com/YelzhanWeb/campuseats/internal/app/tracking"
	"github.com/YelzhanWeb/campuseats/internal/config"
	"github.com/YelzhanWeb/campuseats/internal/domain"
	"github.com/YelzhanWeb/campuseats/internal/interfaces"

	httpAdapter "github.com/YelzhanWeb/campuseats/internal/adapter/http"
)

type flags struct {
	mode       string
	configPath string
	port       int
	prefetch   int
	restaurant string
	role       string
	subject    string
}

func main() {
	var f flags
	flag.StringVar(&f.mode, "mode", "", "Service mode: order-service, notification-subscriber, vendor-watch, rider-watch, pending-sweeper, migrate, issue-token")
	flag.StringVar(&f.configPath, "config", "config.yaml", "Path to config file")
	flag.IntVar(&f.port, "port", 3000, "HTTP port")
	flag.IntVar(&f.prefetch, "prefetch", 10, "RabbitMQ prefetch count")
	flag.StringVar(&f.restaurant, "restaurant", "", "Restaurant id (vendor-watch, issue-token)")
	flag.StringVar(&f.role, "role", "", "Actor role for issue-token: customer, vendor, rider")
	flag.StringVar(&f.subject, "sub", "", "Actor id for issue-token")
	flag.Parse()

	if f.mode == "" {
		log.Fatal("--mode flag is required")
	}

	cfg, err := config.Load(f.configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	lgr := logger.New(f.mode, cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch f.mode {
	case "order-service":
		err = runOrderService(ctx, cfg, lgr, f.port)
	case "notification-subscriber":
		err = runNotificationSubscriber(ctx, cfg, lgr, f.prefetch)
	case "vendor-watch":
		if f.restaurant == "" {
			log.Fatal("--restaurant is required for vendor-watch mode")
		}
		err = runVendorWatch(ctx, cfg, lgr, f.restaurant, f.prefetch)
	case "rider-watch":
		err = runRiderWatch(ctx, cfg, lgr, f.prefetch)
	case "pending-sweeper":
		err = runPendingSweeper(ctx, cfg, lgr)
	case "migrate":
		err = postgres.Migrate(cfg.Database.URL())
		if err == nil {
			lgr.Info("migrations_applied", "Database schema is up to date", "startup", nil)
		}
	case "issue-token":
		err = runIssueToken(cfg, f)
	default:
		log.Fatalf("Invalid mode: %s", f.mode)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		lgr.Error("service_failed", "Service stopped with error", "runtime", nil, err)
		os.Exit(1)
	}
}

func retryPolicy(cfg *config.Config) retry.Policy {
	return retry.Policy{Attempts: cfg.Store.RetryAttempts, Backoff: cfg.Store.RetryBackoff}
}

// openStore connects the configured order store and the rider registry that
// goes with it.
func openStore(ctx context.Context, cfg *config.Config, lgr logger.Logger) (interfaces.OrderStore, interfaces.RiderRepository, func(), error) {
	if cfg.Store.Driver == "file" {
		store, err := filestore.Open(cfg.Store.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		lgr.Info("store_opened", "Using file order store", "startup", map[string]interface{}{"path": cfg.Store.Path})
		return store, filestore.NewRiderRegistry(), func() {}, nil
	}

	db, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	lgr.Info("db_connected", "Connected to PostgreSQL database", "startup", map[string]interface{}{
		"host": cfg.Database.Host,
		"db":   cfg.Database.Database,
	})
	return postgres.NewOrderRepository(db), postgres.NewRiderRepository(db), db.Close, nil
}

// openEvents returns the broker publisher and consumer. Both are nil when
// events are disabled.
func openEvents(cfg *config.Config, lgr logger.Logger, prefetch int) (interfaces.MessagePublisher, interfaces.MessageConsumer, func(), error) {
	switch cfg.Events.Transport {
	case "rabbitmq":
		mqConn, err := rabbitmq.Connect(cfg.RabbitMQ, "campuseats")
		if err != nil {
			return nil, nil, nil, err
		}
		lgr.Info("rabbitmq_connected", "Connected to RabbitMQ", "startup", map[string]interface{}{"host": cfg.RabbitMQ.Host})
		return rabbitmq.NewPublisher(mqConn), rabbitmq.NewConsumer(mqConn, prefetch, lgr), func() { mqConn.Close() }, nil

	case "kafka":
		pub := kafka.NewPublisher(cfg.Kafka)
		lgr.Info("kafka_configured", "Using Kafka for events", "startup", map[string]interface{}{"brokers": cfg.Kafka.Brokers})
		return pub, kafka.NewConsumer(cfg.Kafka, lgr), func() { pub.Close() }, nil
	}

	lgr.Info("events_disabled", "Broker disabled, watchers rely on polling", "startup", nil)
	return nil, nil, func() {}, nil
}

func runOrderService(ctx context.Context, cfg *config.Config, lgr logger.Logger, port int) error {
	if cfg.Auth.Secret == "" {
		return errors.New("auth.secret (JWT_SECRET) is required for order-service")
	}

	store, riders, closeStore, err := openStore(ctx, cfg, lgr)
	if err != nil {
		return err
	}
	defer closeStore()

	publisher, _, closeEvents, err := openEvents(cfg, lgr, 1)
	if err != nil {
		return err
	}
	defer closeEvents()

	var (
		carts interfaces.CartRepository
		idem  interfaces.IdempotencyStore
	)
	if cfg.Redis.Addr != "" {
		rdb, err := cache.Connect(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
		carts, idem = redisStores(rdb, cfg)
		lgr.Info("redis_connected", "Connected to Redis", "startup", map[string]interface{}{"addr": cfg.Redis.Addr})
	}

	policy := retryPolicy(cfg)
	directory := cfg.Directory()

	orderService := order.NewService(store, carts, idem, publisher, lgr, directory, policy)
	kitchenService := kitchen.NewService(store, publisher, lgr, policy)
	deliveryService := delivery.NewService(store, riders, publisher, lgr, directory, policy, cfg.Riders.HeartbeatTimeout)
	trackingService := tracking.NewService(store, riders, lgr, cfg.Riders.HeartbeatTimeout)

	handlers := httpAdapter.Handlers{
		Orders:   httpAdapter.NewOrderHandler(orderService, trackingService, lgr),
		Kitchen:  httpAdapter.NewKitchenHandler(kitchenService, lgr),
		Delivery: httpAdapter.NewDeliveryHandler(deliveryService, lgr),
	}
	if carts != nil {
		handlers.Cart = httpAdapter.NewCartHandler(cart.NewService(carts, lgr), lgr)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      httpAdapter.NewRouter(handlers, auth.NewIssuer(cfg.Auth.Secret, cfg.Auth.TokenTTL), lgr),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	lgr.Info("service_started", fmt.Sprintf("Order Service started on port %d", port), "startup", map[string]interface{}{
		"port":        port,
		"store":       cfg.Store.Driver,
		"transport":   cfg.Events.Transport,
		"restaurants": len(directory),
	})

	go func() {
		<-ctx.Done()
		lgr.Info("shutdown_initiated", "Shutting down Order Service", "shutdown", nil)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			lgr.Error("shutdown_error", "Error during shutdown", "shutdown", nil, err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func redisStores(rdb *redis.Client, cfg *config.Config) (interfaces.CartRepository, interfaces.IdempotencyStore) {
	return cache.NewCartRepository(rdb, cfg.Checkout.CartTTL), cache.NewIdempotencyStore(rdb, cfg.Checkout.IdempotencyTTL)
}

func runNotificationSubscriber(ctx context.Context, cfg *config.Config, lgr logger.Logger, prefetch int) error {
	_, consumer, closeEvents, err := openEvents(cfg, lgr, prefetch)
	if err != nil {
		return err
	}
	defer closeEvents()
	if consumer == nil {
		return errors.New("notification-subscriber needs events.transport rabbitmq or kafka")
	}

	handler := events.NewNotificationHandler(lgr, os.Stdout)
	lgr.Info("service_started", "Notification Subscriber started", "startup", nil)

	err = consumer.ConsumeNotifications(ctx, handler.HandleNotification)
	lgr.Info("shutdown_initiated", "Shutting down Notification Subscriber", "shutdown", nil)
	return err
}

func runPendingSweeper(ctx context.Context, cfg *config.Config, lgr logger.Logger) error {
	store, _, closeStore, err := openStore(ctx, cfg, lgr)
	if err != nil {
		return err
	}
	defer closeStore()

	publisher, _, closeEvents, err := openEvents(cfg, lgr, 1)
	if err != nil {
		return err
	}
	defer closeEvents()
	if publisher == nil {
		return errors.New("pending-sweeper needs events.transport rabbitmq or kafka")
	}

	sweeper := escalation.NewSweeper(store, publisher, lgr, cfg.Sweeper.Interval, cfg.Sweeper.PendingAfter)
	lgr.Info("service_started", "Pending sweeper started", "startup", map[string]interface{}{
		"interval":      cfg.Sweeper.Interval.String(),
		"pending_after": cfg.Sweeper.PendingAfter.String(),
	})
	return sweeper.Run(ctx)
}

func runIssueToken(cfg *config.Config, f flags) error {
	if cfg.Auth.Secret == "" {
		return errors.New("auth.secret (JWT_SECRET) is required to issue tokens")
	}
	role, ok := domain.ParseRole(f.role)
	if !ok {
		return fmt.Errorf("unknown role %q", f.role)
	}

	token, err := auth.NewIssuer(cfg.Auth.Secret, cfg.Auth.TokenTTL).Issue(domain.Actor{
		Role:         role,
		ID:           f.subject,
		RestaurantID: f.restaurant,
	})
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
