package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig
	Log         LogConfig
	Store       StoreConfig
	Storage     StorageConfig
	CORS        CORSConfig
	Leaderboard LeaderboardConfig
}

type ServerConfig struct {
	Port         string
	Mode         string // debug, release
	GatewayToken string // empty disables the gateway check
}

type LogConfig struct {
	Level string
	File  string // empty logs to stdout only
}

type StoreConfig struct {
	Driver         string // memory, dynamodb, postgres
	DatabaseURL    string
	AWSRegion      string
	DynamoEndpoint string
	TablePrefix    string
}

type StorageConfig struct {
	AccountID       string
	Endpoint        string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	CDNBaseURL      string
	PresignTTL      time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LeaderboardConfig struct {
	SyncInterval time.Duration // 0 disables the reconciler
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading environment variables directly")
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "5200")
	v.SetDefault("SERVER_MODE", "release")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORE_DRIVER", "memory")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("PRESIGN_TTL", "15m")
	v.SetDefault("LEADERBOARD_SYNC_INTERVAL", "15m")

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("PORT"),
			Mode:         v.GetString("SERVER_MODE"),
			GatewayToken: v.GetString("GATEWAY_TOKEN"),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
			File:  v.GetString("LOG_FILE"),
		},
		Store: StoreConfig{
			Driver:         strings.ToLower(v.GetString("STORE_DRIVER")),
			DatabaseURL:    v.GetString("DATABASE_URL"),
			AWSRegion:      v.GetString("AWS_REGION"),
			DynamoEndpoint: v.GetString("DYNAMODB_ENDPOINT"),
			TablePrefix:    v.GetString("TABLE_PREFIX"),
		},
		Storage: StorageConfig{
			AccountID:       v.GetString("R2_ACCOUNT_ID"),
			Endpoint:        v.GetString("S3_ENDPOINT"),
			AccessKeyID:     v.GetString("R2_ACCESS_KEY_ID"),
			AccessKeySecret: v.GetString("R2_ACCESS_KEY_SECRET"),
			Bucket:          v.GetString("R2_BUCKET_NAME"),
			CDNBaseURL:      v.GetString("CDN_BASE_URL"),
			PresignTTL:      v.GetDuration("PRESIGN_TTL"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitOrigins(v.GetString("ALLOWED_ORIGINS")),
		},
		Leaderboard: LeaderboardConfig{
			SyncInterval: v.GetDuration("LEADERBOARD_SYNC_INTERVAL"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case "memory", "dynamodb":
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return errMissing("DATABASE_URL")
		}
	default:
		return &InvalidError{Key: "STORE_DRIVER", Value: c.Store.Driver}
	}
	return nil
}

func splitOrigins(raw string) []string {
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// InvalidError reports a missing or unsupported configuration value.
type InvalidError struct {
	Key   string
	Value string
}

func (e *InvalidError) Error() string {
	if e.Value == "" {
		return "config: " + e.Key + " must be set"
	}
	return "config: unsupported " + e.Key + " " + `"` + e.Value + `"`
}

func errMissing(key string) error { return &InvalidError{Key: key} }
