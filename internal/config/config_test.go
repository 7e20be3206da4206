package config

import (
	"errors"
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Env != "development" {
		t.Errorf("expected env=development, got %s", cfg.Env)
	}

	if cfg.Poll.Schedule != "@every 30s" {
		t.Errorf("unexpected schedule: %s", cfg.Poll.Schedule)
	}

	if cfg.Poll.FullUpdateInterval() != 2*time.Minute {
		t.Errorf("expected full update interval 2m, got %v", cfg.Poll.FullUpdateInterval())
	}

	if cfg.Store.Driver != "file" || cfg.Store.Path != "./data/poll.json" {
		t.Errorf("unexpected store config: %+v", cfg.Store)
	}

	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("expected redis addr localhost:6379, got %s", cfg.Redis.Addr)
	}

	if cfg.Account.Language != "english" {
		t.Errorf("expected language english, got %s", cfg.Account.Language)
	}
}

func TestLoadFromEnv(t *testing.T) {
	os.Setenv("OFFERWATCH_ENV", "production")
	os.Setenv("OFFERWATCH_ACCOUNT_STEAM_ID", "76561197960287930")
	os.Setenv("OFFERWATCH_ACCOUNT_COOKIES", "steamLoginSecure=abc; browserid=42 ;")
	os.Setenv("OFFERWATCH_STORE_DRIVER", "SQLite")
	defer os.Unsetenv("OFFERWATCH_ENV")
	defer os.Unsetenv("OFFERWATCH_ACCOUNT_STEAM_ID")
	defer os.Unsetenv("OFFERWATCH_ACCOUNT_COOKIES")
	defer os.Unsetenv("OFFERWATCH_STORE_DRIVER")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Env != "production" {
		t.Errorf("expected env=production, got %s", cfg.Env)
	}

	if cfg.Account.SteamID != 76561197960287930 {
		t.Errorf("unexpected steam id: %d", cfg.Account.SteamID)
	}

	if len(cfg.Account.Cookies) != 2 || cfg.Account.Cookies[1] != "browserid=42" {
		t.Errorf("unexpected cookies: %q", cfg.Account.Cookies)
	}

	if cfg.Store.Driver != "sqlite" {
		t.Errorf("expected driver sqlite, got %s", cfg.Store.Driver)
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{Store: StoreConfig{Driver: "file"}}
	if err := cfg.Validate(); !errors.Is(err, ErrMissingSteamID) {
		t.Errorf("expected ErrMissingSteamID, got %v", err)
	}

	cfg.Account.SteamID = 1
	if err := cfg.Validate(); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}

	cfg.Account.APIKey = "key"
	cfg.Store.Driver = "postgres"
	if err := cfg.Validate(); !errors.Is(err, ErrUnknownDriver) {
		t.Errorf("expected ErrUnknownDriver, got %v", err)
	}

	cfg.Store.Driver = "redis"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
