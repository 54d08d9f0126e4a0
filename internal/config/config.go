// Package config loads the service configuration from the environment
// (optionally seeded from a .env file).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full service configuration.
type Config struct {
	AppPort        string
	AppEnv         string
	RequestTimeout time.Duration

	StoreDriver   string
	DatabaseDSN   string
	MongoURI      string
	MongoDatabase string

	ImageStore    string
	UploadDir     string
	PublicBaseURL string
	S3            S3

	SMTP         SMTP
	ResetURLBase string

	CORSOrigins     string
	JWTSecret       string
	AuthRequired    bool
	UniqueCarNumber bool

	RabbitMQURL    string
	RedisAddr      string
	ResetRateLimit int

	Log Log
}

type S3 struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Folder    string
	PublicURL string // CDN or bucket website base for image URLs
}

type SMTP struct {
	Host     string
	Port     int
	User     string
	Password string
}

type Log struct {
	Level string
	JSON  bool
	File  string
}

// Development reports whether the service runs in development mode.
func (c *Config) Development() bool { return c.AppEnv == "development" }

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":9000")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("STORE_DRIVER", "mongo")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "valuedrive")
	v.SetDefault("IMAGE_STORE", "disk")
	v.SetDefault("UPLOAD_DIR", "./uploads")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:9000")
	v.SetDefault("S3_REGION", "ap-south-1")
	v.SetDefault("S3_FOLDER", "car_dealer")
	v.SetDefault("SMTP_HOST", "smtp.gmail.com")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("RESET_URL_BASE", "http://localhost:3000/reset-password")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:3001")
	v.SetDefault("JWT_SECRET", "change-me")
	v.SetDefault("AUTH_REQUIRED", false)
	v.SetDefault("UNIQUE_CAR_NUMBER", false)
	v.SetDefault("RESET_RATE_LIMIT", 5)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_JSON", false)
}

// Load reads the configuration. envFiles are loaded into the process
// environment first when they exist; variables already set win.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		AppPort:         v.GetString("APP_PORT"),
		AppEnv:          v.GetString("APP_ENV"),
		RequestTimeout:  v.GetDuration("REQUEST_TIMEOUT"),
		StoreDriver:     strings.ToLower(v.GetString("STORE_DRIVER")),
		DatabaseDSN:     v.GetString("DATABASE_DSN"),
		MongoURI:        v.GetString("MONGO_URI"),
		MongoDatabase:   v.GetString("MONGO_DATABASE"),
		ImageStore:      strings.ToLower(v.GetString("IMAGE_STORE")),
		UploadDir:       v.GetString("UPLOAD_DIR"),
		PublicBaseURL:   strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/"),
		ResetURLBase:    v.GetString("RESET_URL_BASE"),
		CORSOrigins:     v.GetString("CORS_ORIGINS"),
		JWTSecret:       v.GetString("JWT_SECRET"),
		AuthRequired:    v.GetBool("AUTH_REQUIRED"),
		UniqueCarNumber: v.GetBool("UNIQUE_CAR_NUMBER"),
		RabbitMQURL:     v.GetString("RABBITMQ_URL"),
		RedisAddr:       v.GetString("REDIS_ADDR"),
		ResetRateLimit:  v.GetInt("RESET_RATE_LIMIT"),
		S3: S3{
			Bucket:    v.GetString("S3_BUCKET"),
			Region:    v.GetString("S3_REGION"),
			Endpoint:  v.GetString("S3_ENDPOINT"),
			AccessKey: v.GetString("S3_ACCESS_KEY"),
			SecretKey: v.GetString("S3_SECRET_KEY"),
			Folder:    v.GetString("S3_FOLDER"),
			PublicURL: strings.TrimRight(v.GetString("S3_PUBLIC_URL"), "/"),
		},
		SMTP: SMTP{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetInt("SMTP_PORT"),
			User:     v.GetString("EMAIL_USER"),
			Password: v.GetString("EMAIL_PASS"),
		},
		Log: Log{
			Level: v.GetString("LOG_LEVEL"),
			JSON:  v.GetBool("LOG_JSON"),
			File:  v.GetString("LOG_FILE"),
		},
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case "memory", "sqlite", "postgres", "mysql", "mongo":
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.ImageStore {
	case "disk":
	case "s3":
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when IMAGE_STORE=s3")
		}
	default:
		return fmt.Errorf("unsupported IMAGE_STORE %q", c.ImageStore)
	}
	if (c.StoreDriver == "postgres" || c.StoreDriver == "mysql") && c.DatabaseDSN == "" {
		return fmt.Errorf("DATABASE_DSN is required for STORE_DRIVER=%s", c.StoreDriver)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	return nil
}

// AllowedOrigins splits CORS_ORIGINS on commas.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
