package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/caesar-terminal/offerwatch/internal/config"
	"github.com/caesar-terminal/offerwatch/internal/kms"
	"github.com/caesar-terminal/offerwatch/internal/manager"
	"github.com/caesar-terminal/offerwatch/internal/mobileconf"
	"github.com/caesar-terminal/offerwatch/internal/poll"
	"github.com/caesar-terminal/offerwatch/internal/store"
	"github.com/caesar-terminal/offerwatch/internal/webapi"
)

// app bundles the collaborators shared by every command.
type app struct {
	cfg     *config.Config
	api     *webapi.Client
	confs   *mobileconf.Client // nil without an identity secret
	manager *manager.Manager
	closeFn func()
}

func (a *app) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	api, err := webapi.New(cfg.Account.APIKey, cfg.Account.SteamID)
	if err != nil {
		return nil, err
	}
	if cfg.Account.SessionID != "" {
		if err := api.SetSession(cfg.Account.SessionID, cfg.Account.Cookies); err != nil {
			return nil, err
		}
	}

	confs, err := newConfirmations(ctx, cfg, api)
	if err != nil {
		return nil, err
	}

	st, closeFn, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, api: api, confs: confs, closeFn: closeFn}
	var mc manager.Confirmations
	if confs != nil {
		mc = confs
	}
	a.manager = manager.New(api, mc, st, manager.Options{
		FullUpdateInterval: cfg.Poll.FullUpdateInterval(),
		CancelOffersAfter:  cfg.Poll.CancelOffersAfter(),
		Language:           cfg.Account.Language,
	})
	return a, nil
}

// newConfirmations returns nil when no identity secret is configured.
func newConfirmations(ctx context.Context, cfg *config.Config, api *webapi.Client) (*mobileconf.Client, error) {
	var secret []byte
	var err error
	switch {
	case cfg.Account.IdentitySecret != "":
		secret, err = mobileconf.DecodeIdentitySecret(cfg.Account.IdentitySecret)
	case cfg.Account.IdentitySecretKMS != "":
		var kc *kms.Client
		kc, err = kms.New(ctx, kms.Options{
			Region:   cfg.KMS.AWSRegion,
			Endpoint: cfg.LocalStackEndpoint,
			KeyID:    cfg.KMS.KeyID,
		})
		if err == nil {
			secret, err = kms.IdentitySecret(ctx, kc, cfg.Account.SteamID, cfg.Account.IdentitySecretKMS)
		}
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := api.EnableMobileClient(cfg.Account.Language); err != nil {
		return nil, err
	}
	c := mobileconf.NewClient(api, cfg.Account.SteamID)
	c.SetIdentitySecret(secret)

	if off, err := api.ServerTimeOffset(ctx); err != nil {
		slog.Warn("server time query failed, using local clock", "error", err)
	} else {
		c.SetTimeOffset(off)
	}
	return c, nil
}

func openStore(ctx context.Context, cfg *config.Config) (poll.Store, func(), error) {
	switch cfg.Store.Driver {
	case "redis":
		rc, err := store.DialRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
		return store.NewRedisStore(rc, cfg.Store.Key), func() { rc.Close() }, nil
	case "sqlite":
		s, err := store.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	default:
		return store.NewFileStore(cfg.Store.Path), nil, nil
	}
}

func requireConfirmations(a *app) (*mobileconf.Client, error) {
	if a.confs == nil {
		return nil, mobileconf.ErrNoIdentitySecret
	}
	return a.confs, nil
}
