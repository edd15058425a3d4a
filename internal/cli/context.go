package cli

import (
	"context"
	"fmt"

	"github.com/existflow/blogdesk/internal/api"
	"github.com/existflow/blogdesk/internal/auth"
	"github.com/existflow/blogdesk/internal/config"
	"github.com/existflow/blogdesk/internal/content"
	"github.com/existflow/blogdesk/internal/db"
	"github.com/existflow/blogdesk/internal/guard"
	"github.com/existflow/blogdesk/internal/logger"
	"github.com/existflow/blogdesk/internal/notify"
	"github.com/existflow/blogdesk/internal/session"
	"github.com/existflow/blogdesk/internal/watchdog"
)

// appContext is everything a command needs, wired from the loaded config
type appContext struct {
	cfg      *config.Config
	db       *db.DB
	store    *session.Store
	api      *api.Client
	auth     *auth.Client
	posts    *content.Repository
	guard    *guard.Guard
	watchdog *watchdog.Watchdog
}

// openApp opens local storage, restores the session and builds the clients.
// Notices from auth and the watchdog go to n.
func openApp(ctx context.Context, cfg *config.Config, n notify.Notifier) (*appContext, error) {
	if n == nil {
		n = notify.Nop{}
	}

	path := cfg.StorePath
	if path == "" {
		def, err := db.DefaultDBPath()
		if err != nil {
			return nil, err
		}
		path = def
	}
	database, err := db.Open(path)
	if err != nil {
		logger.Error("Failed to open local storage", logger.F("path", path), logger.Err(err))
		return nil, fmt.Errorf("failed to open local storage: %w", err)
	}

	var storeOpts []session.Option
	if cfg.StoreKey != "" {
		storeOpts = append(storeOpts, session.WithPassphrase(cfg.StoreKey))
	}
	store, err := session.Open(ctx, database, storeOpts...)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to restore session: %w", err)
	}

	apiClient, err := api.New(cfg.APIURL,
		api.WithTimeout(cfg.RequestTimeout),
		api.WithSessionCookie(cfg.SessionCookie),
		api.WithTokenSource(auth.TokenSource(store)),
	)
	if err != nil {
		_ = database.Close()
		return nil, err
	}

	authClient := auth.New(apiClient, store, auth.WithTTL(cfg.TokenTTL), auth.WithNotifier(n))
	app := &appContext{
		cfg:      cfg,
		db:       database,
		store:    store,
		api:      apiClient,
		auth:     authClient,
		posts:    content.NewRepository(apiClient),
		guard:    guard.New(store),
		watchdog: watchdog.New(store, authClient, watchdog.WithInterval(cfg.WatchdogInterval), watchdog.WithNotifier(n)),
	}

	sess := authClient.Resume(ctx)
	logger.Debug("Session resumed", logger.F("anonymous", sess.IsAnonymous()))
	return app, nil
}

// Close stops background timers and closes local storage
func (a *appContext) Close() {
	a.watchdog.Stop()
	a.auth.Close()
	if err := a.db.Close(); err != nil {
		logger.Warn("Failed to close local storage", logger.Err(err))
	}
}

// requireSession fails with a login hint when the stored session is not valid
func (a *appContext) requireSession() error {
	if d := a.guard.Check(guard.LoginPath + "/dashboard"); !d.Allowed {
		return fmt.Errorf("not logged in, run 'blogdesk login' first")
	}
	return nil
}
