package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Env                string `mapstructure:"env"`
	LocalStackEndpoint string `mapstructure:"localstack_endpoint"`
	Account            AccountConfig
	Poll               PollConfig
	Store              StoreConfig
	Redis              RedisConfig
	KMS                KMSConfig
}

// AccountConfig identifies the account whose offers are watched.
type AccountConfig struct {
	SteamID        uint64 `mapstructure:"steam_id"`
	APIKey         string `mapstructure:"api_key"`
	IdentitySecret string `mapstructure:"identity_secret"`
	// IdentitySecretKMS is a base64 KMS ciphertext of the identity secret.
	// Used when IdentitySecret is empty.
	IdentitySecretKMS string   `mapstructure:"identity_secret_kms"`
	SessionID         string   `mapstructure:"session_id"`
	Cookies           []string `mapstructure:"cookies"`
	Language          string   `mapstructure:"language"`
}

// PollConfig controls the poll loop.
type PollConfig struct {
	Schedule              string `mapstructure:"schedule"`
	FullUpdateIntervalSec int    `mapstructure:"full_update_interval_sec"`
	CancelOffersAfterSec  int    `mapstructure:"cancel_offers_after_sec"`
}

func (p PollConfig) FullUpdateInterval() time.Duration {
	return time.Duration(p.FullUpdateIntervalSec) * time.Second
}

func (p PollConfig) CancelOffersAfter() time.Duration {
	return time.Duration(p.CancelOffersAfterSec) * time.Second
}

// StoreConfig selects where the poll cursor is kept.
type StoreConfig struct {
	Driver string `mapstructure:"driver"` // file, redis or sqlite
	Path   string `mapstructure:"path"`
	Key    string `mapstructure:"key"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KMSConfig struct {
	AWSRegion string `mapstructure:"aws_region"`
	// KeyID pins decryption to one key when set.
	KeyID string `mapstructure:"key_id"`
}

var (
	ErrMissingSteamID = errors.New("config: account.steam_id is required")
	ErrMissingAPIKey  = errors.New("config: account.api_key is required")
	ErrUnknownDriver  = errors.New("config: store.driver must be file, redis or sqlite")
)

// Load reads configuration from environment variables prefixed with
// OFFERWATCH_. A .env file in the working directory is loaded first when
// present; variables already set take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("OFFERWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("env", "development")
	v.SetDefault("account.language", "english")

	// Poll defaults
	v.SetDefault("poll.schedule", "@every 30s")
	v.SetDefault("poll.full_update_interval_sec", 120)
	v.SetDefault("poll.cancel_offers_after_sec", 0)

	// Store defaults
	v.SetDefault("store.driver", "file")
	v.SetDefault("store.path", "./data/poll.json")
	v.SetDefault("store.key", "offerwatch:poll")

	// Redis defaults
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kms.aws_region", "us-east-1")
	v.SetDefault("kms.key_id", "")

	cfg := &Config{}

	cfg.Env = v.GetString("env")
	cfg.LocalStackEndpoint = v.GetString("localstack_endpoint")

	cfg.Account = AccountConfig{
		SteamID:           v.GetUint64("account.steam_id"),
		APIKey:            v.GetString("account.api_key"),
		IdentitySecret:    v.GetString("account.identity_secret"),
		IdentitySecretKMS: v.GetString("account.identity_secret_kms"),
		SessionID:         v.GetString("account.session_id"),
		Cookies:           splitCookies(v.GetString("account.cookies")),
		Language:          v.GetString("account.language"),
	}

	cfg.Poll = PollConfig{
		Schedule:              v.GetString("poll.schedule"),
		FullUpdateIntervalSec: v.GetInt("poll.full_update_interval_sec"),
		CancelOffersAfterSec:  v.GetInt("poll.cancel_offers_after_sec"),
	}

	cfg.Store = StoreConfig{
		Driver: strings.ToLower(v.GetString("store.driver")),
		Path:   v.GetString("store.path"),
		Key:    v.GetString("store.key"),
	}

	cfg.Redis = RedisConfig{
		Addr:     v.GetString("redis.addr"),
		Password: v.GetString("redis.password"),
		DB:       v.GetInt("redis.db"),
	}

	cfg.KMS = KMSConfig{
		AWSRegion: v.GetString("kms.aws_region"),
		KeyID:     v.GetString("kms.key_id"),
	}

	return cfg, nil
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	if c.Account.SteamID == 0 {
		return ErrMissingSteamID
	}
	if c.Account.APIKey == "" {
		return ErrMissingAPIKey
	}
	switch c.Store.Driver {
	case "file", "redis", "sqlite":
	default:
		return ErrUnknownDriver
	}
	return nil
}

// splitCookies reads a Cookie-header style "a=1; b=2" list.
func splitCookies(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
