package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/YelzhanWeb/campuseats/internal/domain"
)

type Config struct {
	Database    DatabaseConfig     `yaml:"database"`
	RabbitMQ    RabbitMQConfig     `yaml:"rabbitmq"`
	Kafka       KafkaConfig        `yaml:"kafka"`
	Redis       RedisConfig        `yaml:"redis"`
	Store       StoreConfig        `yaml:"store"`
	Events      EventsConfig       `yaml:"events"`
	Auth        AuthConfig         `yaml:"auth"`
	Sync        SyncConfig         `yaml:"sync"`
	Sweeper     SweeperConfig      `yaml:"sweeper"`
	Riders      RidersConfig       `yaml:"riders"`
	Checkout    CheckoutConfig     `yaml:"checkout"`
	Log         LogConfig          `yaml:"log"`
	Restaurants []RestaurantConfig `yaml:"restaurants"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int32  `yaml:"max_conns"`
}

// DSN is the key/value form used by pgxpool.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// URL is the postgres:// form used by migrate.
func (c DatabaseConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     c.Database,
		RawQuery: "sslmode=" + c.SSLMode,
	}
	return u.String()
}

type RabbitMQConfig struct {
	Host      string        `yaml:"host"`
	Port      int           `yaml:"port"`
	User      string        `yaml:"user"`
	Password  string        `yaml:"password"`
	Heartbeat time.Duration `yaml:"heartbeat"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	OrdersTopic        string   `yaml:"orders_topic"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	GroupID            string   `yaml:"group_id"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type StoreConfig struct {
	Driver        string        `yaml:"driver"` // postgres | file
	Path          string        `yaml:"path"`
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryBackoff  time.Duration `yaml:"retry_backoff"`
}

type EventsConfig struct {
	Transport string `yaml:"transport"` // rabbitmq | kafka | none
}

type AuthConfig struct {
	Secret   string        `yaml:"secret"`
	TokenTTL time.Duration `yaml:"token_ttl"`
}

type SyncConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
}

type SweeperConfig struct {
	Interval     time.Duration `yaml:"interval"`
	PendingAfter time.Duration `yaml:"pending_after"`
}

type RidersConfig struct {
	HeartbeatTimeout time.Duration `yaml:"heartbeat_timeout"`
}

type CheckoutConfig struct {
	IdempotencyTTL time.Duration `yaml:"idempotency_ttl"`
	CartTTL        time.Duration `yaml:"cart_ttl"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type RestaurantConfig struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Address     string `yaml:"address"`
	Distance    string `yaml:"distance"`
	DeliveryFee int64  `yaml:"delivery_fee"`
}

// Default returns the values used when config.yaml leaves a field out.
func Default() Config {
	return Config{
		Database: DatabaseConfig{Host: "localhost", Port: 5432, User: "campuseats", Database: "campuseats", SSLMode: "disable"},
		RabbitMQ: RabbitMQConfig{Host: "localhost", Port: 5672, User: "guest", Password: "guest", Heartbeat: 10 * time.Second},
		Kafka: KafkaConfig{
			Brokers:            []string{"localhost:9092"},
			OrdersTopic:        "campuseats.orders",
			NotificationsTopic: "campuseats.notifications",
			GroupID:            "campuseats",
		},
		Redis:    RedisConfig{Addr: "localhost:6379"},
		Store:    StoreConfig{Driver: "postgres", Path: "campus-eats-orders.json", RetryAttempts: 3, RetryBackoff: 200 * time.Millisecond},
		Events:   EventsConfig{Transport: "rabbitmq"},
		Auth:     AuthConfig{TokenTTL: 24 * time.Hour},
		Sync:     SyncConfig{PollInterval: 3 * time.Second},
		Sweeper:  SweeperConfig{Interval: 30 * time.Second, PendingAfter: 10 * time.Minute},
		Riders:   RidersConfig{HeartbeatTimeout: 60 * time.Second},
		Checkout: CheckoutConfig{IdempotencyTTL: 24 * time.Hour, CartTTL: 7 * 24 * time.Hour},
		Log:      LogConfig{Level: "info"},
	}
}

// Load reads the YAML file at path on top of Default, then applies .env and
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse yaml: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Database.Host, "DB_HOST")
	setInt(&cfg.Database.Port, "DB_PORT")
	setString(&cfg.Database.User, "DB_USER")
	setString(&cfg.Database.Password, "DB_PASSWORD")
	setString(&cfg.Database.Database, "DB_NAME")
	setString(&cfg.RabbitMQ.Host, "RABBITMQ_HOST")
	setString(&cfg.RabbitMQ.User, "RABBITMQ_USER")
	setString(&cfg.RabbitMQ.Password, "RABBITMQ_PASSWORD")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setString(&cfg.Store.Driver, "STORE_DRIVER")
	setString(&cfg.Store.Path, "STORE_PATH")
	setString(&cfg.Events.Transport, "EVENTS_TRANSPORT")
	setString(&cfg.Auth.Secret, "JWT_SECRET")
	setString(&cfg.Log.Level, "LOG_LEVEL")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "postgres", "file":
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	switch c.Events.Transport {
	case "rabbitmq", "kafka", "none":
	default:
		return fmt.Errorf("unknown events transport %q", c.Events.Transport)
	}
	if c.Store.RetryAttempts < 1 {
		return errors.New("store.retry_attempts must be at least 1")
	}
	if c.Sync.PollInterval <= 0 {
		return errors.New("sync.poll_interval must be positive")
	}
	seen := make(map[string]bool, len(c.Restaurants))
	for _, r := range c.Restaurants {
		if r.ID == "" {
			return errors.New("restaurant id is required")
		}
		if seen[r.ID] {
			return fmt.Errorf("duplicate restaurant id %q", r.ID)
		}
		if r.DeliveryFee < 0 {
			return fmt.Errorf("restaurant %q: delivery fee must not be negative", r.ID)
		}
		seen[r.ID] = true
	}
	return nil
}

// Directory builds the restaurant lookup used at checkout and by riders.
func (c *Config) Directory() domain.Directory {
	dir := make(domain.Directory, len(c.Restaurants))
	for _, r := range c.Restaurants {
		dir[r.ID] = domain.Restaurant{
			ID:          r.ID,
			Name:        r.Name,
			Address:     r.Address,
			Distance:    r.Distance,
			DeliveryFee: decimal.NewFromInt(r.DeliveryFee),
		}
	}
	return dir
}
