package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"tableflip.dev/journey/pkg/auth"
	"tableflip.dev/journey/pkg/backend"
	"tableflip.dev/journey/pkg/config"
	"tableflip.dev/journey/pkg/journey"
	"tableflip.dev/journey/pkg/router"
	"tableflip.dev/journey/pkg/store"
)

// App is a running journey client backed by the local document store.
type App struct {
	*Service

	Config    *config.Config
	Documents *store.Documents
	Auth      *auth.Provider
}

// Options tune Open.
type Options struct {
	// View is mounted first. Defaults to the moments view.
	View    router.View
	Confirm backend.Confirmer
	Logger  *zap.Logger
}

// Open creates the process-wide store and auth handles from cfg and starts
// the journey. Close must be called when done.
func Open(ctx context.Context, cfg *config.Config, o Options) (*App, error) {
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}

	docs, err := store.Open(cfg.StorePath(), log.Named("store"))
	if err != nil {
		return nil, fmt.Errorf("app: open store: %w", err)
	}

	var kv backend.KV
	if cfg.Ephemeral {
		kv = store.NewMemoryKV()
	} else if kv, err = store.OpenPrefs(cfg.PrefsPath()); err != nil {
		return nil, fmt.Errorf("app: open prefs: %w", err)
	}

	provider := auth.New(kv, cfg.TokenSecret)
	j := journey.New(journey.Deps{
		Auth:                provider,
		Store:               docs,
		KV:                  kv,
		Confirm:             o.Confirm,
		Paths:               backend.Paths{AppID: cfg.AppID},
		Token:               cfg.Token,
		FallbackToAnonymous: cfg.FallbackToAnonymous,
		Logger:              log,
	})
	if o.View != "" {
		if err := j.Select(o.View); err != nil {
			return nil, err
		}
	}
	if err := j.Start(ctx); err != nil {
		return nil, err
	}
	return &App{
		Service:   &Service{Journey: j},
		Config:    cfg,
		Documents: docs,
		Auth:      provider,
	}, nil
}

// Close stops every subscription.
func (a *App) Close() {
	a.Journey.Close()
}
