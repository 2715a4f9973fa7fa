package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the service configuration
type Config struct {
	Port string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Paystack  PaystackConfig
	Vault     VaultConfig
	Telegram  TelegramConfig
	Purchase  PurchaseConfig
	RateLimit RateLimitConfig

	SupportContacts []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

type JWTConfig struct {
	SecretKey string
}

// PaystackConfig holds payment provider settings. SecretKey is both the API
// bearer key and the webhook signing secret.
type PaystackConfig struct {
	SecretKey   string
	BaseURL     string
	CallbackURL string
	Timeout     time.Duration
}

type VaultConfig struct {
	MasterKey string
	Salt      string
}

type TelegramConfig struct {
	BotToken string
	ChatID   string
	APIURL   string
	Timeout  time.Duration
}

func (c TelegramConfig) Enabled() bool {
	return c.BotToken != "" && c.ChatID != ""
}

// PurchaseConfig controls the retry policy of the purchase workflow.
type PurchaseConfig struct {
	CompensationAttempts int
	CompensationBackoff  time.Duration
	DeliveryAttempts     int
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

var bindings = map[string]string{
	"server.port": "PORT",

	"database.driver":      "DATABASE_DRIVER",
	"database.host":        "DATABASE_HOST",
	"database.port":        "DATABASE_PORT",
	"database.user":        "DATABASE_USER",
	"database.password":    "DATABASE_PASSWORD",
	"database.name":        "DATABASE_NAME",
	"database.ssl_mode":    "DATABASE_SSL_MODE",
	"database.sqlite_path": "DATABASE_SQLITE_PATH",

	"redis.host":     "REDIS_HOST",
	"redis.port":     "REDIS_PORT",
	"redis.password": "REDIS_PASSWORD",
	"redis.db":       "REDIS_DB",

	"jwt.secret_key": "JWT_SECRET_KEY",

	"paystack.secret_key":   "PAYSTACK_SECRET_KEY",
	"paystack.base_url":     "PAYSTACK_BASE_URL",
	"paystack.callback_url": "PAYSTACK_CALLBACK_URL",
	"paystack.timeout":      "PAYSTACK_TIMEOUT",

	"vault.master_key": "VAULT_MASTER_KEY",
	"vault.salt":       "VAULT_SALT",

	"telegram.bot_token": "TELEGRAM_BOT_TOKEN",
	"telegram.chat_id":   "TELEGRAM_CHAT_ID",
	"telegram.api_url":   "TELEGRAM_API_URL",
	"telegram.timeout":   "TELEGRAM_TIMEOUT",

	"purchase.compensation_attempts": "PURCHASE_COMPENSATION_ATTEMPTS",
	"purchase.compensation_backoff":  "PURCHASE_COMPENSATION_BACKOFF",
	"purchase.delivery_attempts":     "PURCHASE_DELIVERY_ATTEMPTS",

	"ratelimit.requests": "RATE_LIMIT_REQUESTS",
	"ratelimit.window":   "RATE_LIMIT_WINDOW",

	"support.contacts": "SUPPORT_CONTACTS",
}

func setDefaults() {
	viper.SetDefault("server.port", "8080")

	viper.SetDefault("database.driver", "postgres")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", "5432")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "password")
	viper.SetDefault("database.name", "ucmarket")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.sqlite_path", "file:ucmarket.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", time.Minute*5)

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", "6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("paystack.base_url", "https://api.paystack.co")
	viper.SetDefault("paystack.timeout", 10*time.Second)

	viper.SetDefault("vault.salt", "ucmarket-credentials")

	viper.SetDefault("telegram.api_url", "https://api.telegram.org")
	viper.SetDefault("telegram.timeout", 5*time.Second)

	viper.SetDefault("purchase.compensation_attempts", 3)
	viper.SetDefault("purchase.compensation_backoff", 200*time.Millisecond)
	viper.SetDefault("purchase.delivery_attempts", 3)

	viper.SetDefault("ratelimit.requests", 10)
	viper.SetDefault("ratelimit.window", time.Minute)

	viper.SetDefault("support.contacts", "@Ultrabase1,@Ultrabase2")
}

// Load reads .env (when present) and the environment into a Config.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("[CONFIG] Config file not found, using environment and defaults: %v", err)
	}

	return FromViper(), nil
}

// FromViper builds a Config from the current viper state.
func FromViper() *Config {
	setDefaults()

	return &Config{
		Port: viper.GetString("server.port"),
		Database: DatabaseConfig{
			Driver:          strings.ToLower(viper.GetString("database.driver")),
			Host:            viper.GetString("database.host"),
			Port:            viper.GetString("database.port"),
			User:            viper.GetString("database.user"),
			Password:        viper.GetString("database.password"),
			Name:            viper.GetString("database.name"),
			SSLMode:         viper.GetString("database.ssl_mode"),
			SQLitePath:      viper.GetString("database.sqlite_path"),
			MaxOpenConns:    viper.GetInt("database.max_open_conns"),
			MaxIdleConns:    viper.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: viper.GetDuration("database.conn_max_lifetime"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("redis.host"),
			Port:     viper.GetString("redis.port"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			SecretKey: viper.GetString("jwt.secret_key"),
		},
		Paystack: PaystackConfig{
			SecretKey:   viper.GetString("paystack.secret_key"),
			BaseURL:     strings.TrimRight(viper.GetString("paystack.base_url"), "/"),
			CallbackURL: viper.GetString("paystack.callback_url"),
			Timeout:     viper.GetDuration("paystack.timeout"),
		},
		Vault: VaultConfig{
			MasterKey: viper.GetString("vault.master_key"),
			Salt:      viper.GetString("vault.salt"),
		},
		Telegram: TelegramConfig{
			BotToken: viper.GetString("telegram.bot_token"),
			ChatID:   viper.GetString("telegram.chat_id"),
			APIURL:   strings.TrimRight(viper.GetString("telegram.api_url"), "/"),
			Timeout:  viper.GetDuration("telegram.timeout"),
		},
		Purchase: PurchaseConfig{
			CompensationAttempts: viper.GetInt("purchase.compensation_attempts"),
			CompensationBackoff:  viper.GetDuration("purchase.compensation_backoff"),
			DeliveryAttempts:     viper.GetInt("purchase.delivery_attempts"),
		},
		RateLimit: RateLimitConfig{
			Requests: viper.GetInt("ratelimit.requests"),
			Window:   viper.GetDuration("ratelimit.window"),
		},
		SupportContacts: splitList(viper.GetString("support.contacts")),
	}
}

// Validate reports missing secrets and out-of-range values. It is called
// once at startup.
func (c *Config) Validate() error {
	var errs []error

	if c.JWT.SecretKey == "" {
		errs = append(errs, errors.New("JWT_SECRET_KEY is required"))
	}
	if c.Paystack.SecretKey == "" {
		errs = append(errs, errors.New("PAYSTACK_SECRET_KEY is required"))
	}
	if c.Vault.MasterKey == "" {
		errs = append(errs, errors.New("VAULT_MASTER_KEY is required"))
	}
	if c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
		errs = append(errs, fmt.Errorf("unsupported database driver %q", c.Database.Driver))
	}
	if c.Paystack.Timeout <= 0 {
		errs = append(errs, errors.New("paystack timeout must be positive"))
	}
	if c.Purchase.CompensationAttempts < 1 {
		errs = append(errs, errors.New("purchase compensation attempts must be at least 1"))
	}
	if c.Purchase.DeliveryAttempts < 1 {
		errs = append(errs, errors.New("purchase delivery attempts must be at least 1"))
	}

	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
