package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Storage    StorageConfig    `yaml:"storage"`
	JWT        JWTConfig        `yaml:"jwt"`
	OAuth      OAuthConfig      `yaml:"oauth"`
	Billing    BillingConfig    `yaml:"billing"`
	Quota      QuotaConfig      `yaml:"quota"`
	Search     SearchConfig     `yaml:"search"`
	Trash      TrashConfig      `yaml:"trash"`
	Pagination PaginationConfig `yaml:"pagination"`
}

type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

type DatabaseConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	Database     string `yaml:"database"`
	Charset      string `yaml:"charset"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type StorageConfig struct {
	Bucket           string `yaml:"bucket"`
	Region           string `yaml:"region"`
	Endpoint         string `yaml:"endpoint"`
	AccessKeyID      string `yaml:"access_key_id"`
	SecretAccessKey  string `yaml:"secret_access_key"`
	MaxUploadSize    int64  `yaml:"max_upload_size"`
	SignedURLMinutes int    `yaml:"signed_url_minutes"`
}

type JWTConfig struct {
	Secret      string `yaml:"secret"`
	ExpireHours int    `yaml:"expire_hours"`
}

type OAuthConfig struct {
	GoogleClientID     string `yaml:"google_client_id"`
	GoogleClientSecret string `yaml:"google_client_secret"`
	GoogleRedirectURL  string `yaml:"google_redirect_url"`
}

type PlanConfig struct {
	ID             string `yaml:"id" json:"id"`
	Name           string `yaml:"name" json:"name"`
	StorageLimit   int64  `yaml:"storage_limit" json:"storage_limit"`
	FileCountLimit int64  `yaml:"file_count_limit" json:"file_count_limit"`
	PriceID        string `yaml:"price_id" json:"price_id"`
}

type BillingConfig struct {
	StripeSecretKey     string       `yaml:"stripe_secret_key"`
	StripeWebhookSecret string       `yaml:"stripe_webhook_secret"`
	CheckoutSuccessURL  string       `yaml:"checkout_success_url"`
	CheckoutCancelURL   string       `yaml:"checkout_cancel_url"`
	Plans               []PlanConfig `yaml:"plans"`
}

type QuotaConfig struct {
	DefaultStorageLimit   int64 `yaml:"default_storage_limit"`
	DefaultFileCountLimit int64 `yaml:"default_file_count_limit"`
}

type SearchConfig struct {
	FulltextEnabled bool `yaml:"fulltext_enabled"`
}

type TrashConfig struct {
	RetentionDays int `yaml:"retention_days"`
}

type PaginationConfig struct {
	DefaultPageSize int    `yaml:"default_page_size"`
	MaxPageSize     int    `yaml:"max_page_size"`
	DefaultSortBy   string `yaml:"default_sort_by"`
	DefaultOrder    string `yaml:"default_order"`
}

var AppConfig *Config

func LoadConfig(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	AppConfig = &cfg
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.Database.Host, "DB_HOST")
	overrideString(&cfg.Database.Username, "DB_USERNAME")
	overrideString(&cfg.Database.Password, "DB_PASSWORD")
	overrideString(&cfg.Database.Database, "DB_DATABASE")
	overrideString(&cfg.Redis.Host, "REDIS_HOST")
	overrideString(&cfg.Redis.Password, "REDIS_PASSWORD")
	overrideString(&cfg.Storage.Bucket, "S3_BUCKET")
	overrideString(&cfg.Storage.Region, "S3_REGION")
	overrideString(&cfg.Storage.Endpoint, "S3_ENDPOINT")
	overrideString(&cfg.Storage.AccessKeyID, "S3_ACCESS_KEY_ID")
	overrideString(&cfg.Storage.SecretAccessKey, "S3_SECRET_ACCESS_KEY")
	overrideString(&cfg.JWT.Secret, "JWT_SECRET")
	overrideString(&cfg.OAuth.GoogleClientID, "GOOGLE_CLIENT_ID")
	overrideString(&cfg.OAuth.GoogleClientSecret, "GOOGLE_CLIENT_SECRET")
	overrideString(&cfg.OAuth.GoogleRedirectURL, "GOOGLE_REDIRECT_URL")
	overrideString(&cfg.Billing.StripeSecretKey, "STRIPE_SECRET_KEY")
	overrideString(&cfg.Billing.StripeWebhookSecret, "STRIPE_WEBHOOK_SECRET")

	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Charset == "" {
		cfg.Database.Charset = "utf8mb4"
	}
	if cfg.Storage.MaxUploadSize == 0 {
		cfg.Storage.MaxUploadSize = 100 << 20
	}
	if cfg.Storage.SignedURLMinutes == 0 {
		cfg.Storage.SignedURLMinutes = 60
	}
	if cfg.JWT.ExpireHours == 0 {
		cfg.JWT.ExpireHours = 24
	}
	if cfg.Quota.DefaultStorageLimit == 0 {
		cfg.Quota.DefaultStorageLimit = 5 << 30
	}
	if cfg.Quota.DefaultFileCountLimit == 0 {
		cfg.Quota.DefaultFileCountLimit = 10000
	}
	if cfg.Trash.RetentionDays == 0 {
		cfg.Trash.RetentionDays = 30
	}
	if cfg.Pagination.DefaultPageSize == 0 {
		cfg.Pagination.DefaultPageSize = 20
	}
	if cfg.Pagination.MaxPageSize == 0 {
		cfg.Pagination.MaxPageSize = 100
	}
	if cfg.Pagination.DefaultSortBy == "" {
		cfg.Pagination.DefaultSortBy = "created_at"
	}
	if cfg.Pagination.DefaultOrder == "" {
		cfg.Pagination.DefaultOrder = "desc"
	}
	if len(cfg.Billing.Plans) == 0 {
		cfg.Billing.Plans = DefaultPlans()
	}
}

// DefaultPlans is the built-in plan catalog used when no plans are configured.
func DefaultPlans() []PlanConfig {
	return []PlanConfig{
		{ID: "free", Name: "Free", StorageLimit: 5 << 30, FileCountLimit: 10000},
		{ID: "pro", Name: "Pro", StorageLimit: 100 << 30, FileCountLimit: 100000, PriceID: "price_pro_monthly"},
		{ID: "business", Name: "Business", StorageLimit: 1 << 40, FileCountLimit: 1000000, PriceID: "price_business_monthly"},
	}
}

func (c *Config) PlanByID(id string) (PlanConfig, bool) {
	for _, p := range c.Billing.Plans {
		if p.ID == id {
			return p, true
		}
	}
	return PlanConfig{}, false
}

func (c *Config) PlanByPriceID(priceID string) (PlanConfig, bool) {
	if priceID == "" {
		return PlanConfig{}, false
	}
	for _, p := range c.Billing.Plans {
		if p.PriceID == priceID {
			return p, true
		}
	}
	return PlanConfig{}, false
}
