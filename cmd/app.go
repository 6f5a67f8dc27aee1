package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/iksnae/council-session/internal"
	"github.com/iksnae/council-session/internal/config"
)

// app wires configuration, local state and the service client for one
// command invocation
type app struct {
	cfg    *config.Config
	client *internal.Client
	paths  internal.StatePaths
	prefs  *internal.SQLitePreferences
	ctrl   *internal.Controller
	cache  *internal.CacheManager
}

func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	paths, err := internal.DetectStatePaths(cfg.State.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve state directory: %w", err)
	}
	if err := paths.Ensure(); err != nil {
		return nil, err
	}

	prefs, err := internal.OpenPreferences(paths.PrefsDBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open preferences: %w", err)
	}

	client := internal.NewClient(cfg.Server.URL, internal.WithUserAgent("council/"+version))
	ctrl := internal.NewController(client, prefs, internal.ControllerOptions{
		LoadTimeout:    cfg.Session.LoadTimeout,
		MinLoadDisplay: minLoadDisplay(cfg),
		RevealDelay:    cfg.Chat.RevealDelay,
	})

	internal.LogDebug("Using server %s, state in %s", client.BaseURL(), paths.BasePath)
	return &app{
		cfg:    cfg,
		client: client,
		paths:  paths,
		prefs:  prefs,
		ctrl:   ctrl,
		cache:  internal.NewCacheManager(paths.CacheDir),
	}, nil
}

// minLoadDisplay maps a configured zero to "disabled" for the controller,
// which otherwise treats zero as "use the default"
func minLoadDisplay(cfg *config.Config) time.Duration {
	if cfg.Session.MinLoadDisplay == 0 {
		return -1
	}
	return cfg.Session.MinLoadDisplay
}

func (a *app) Close() {
	a.ctrl.Close()
	if err := a.prefs.Close(); err != nil {
		internal.LogWarn("Failed to close preferences: %v", err)
	}
}

// getSession loads a session document from the service, bounded by the
// load timeout
func (a *app) getSession(ctx context.Context, id string) (*internal.Session, error) {
	return internal.RaceDeadline(ctx, "get-session", a.cfg.Session.LoadTimeout, func(ctx context.Context) (*internal.Session, error) {
		return a.client.GetSession(ctx, id)
	})
}

// fetchSession is getSession plus a refresh of the offline copy
func (a *app) fetchSession(ctx context.Context, id string) (*internal.Session, error) {
	s, err := a.getSession(ctx, id)
	if err != nil {
		return nil, err
	}
	a.cacheSession(s)
	return s, nil
}

// loadSession reads from the offline cache when offline is set
func (a *app) loadSession(ctx context.Context, id string, offline bool) (*internal.Session, error) {
	if !offline {
		return a.fetchSession(ctx, id)
	}
	s, err := a.cache.LoadSession(id)
	if err != nil {
		return nil, fmt.Errorf("session %s is not in the offline cache: %w", id, err)
	}
	return s, nil
}

func (a *app) cacheSession(s *internal.Session) {
	changed, err := a.cache.SaveSessionAndUpdateIndex(s, a.client.BaseURL())
	if err != nil {
		internal.LogWarn("Failed to cache session %s: %v", s.ID, err)
		return
	}
	if changed {
		internal.LogDebug("Cached session %s", s.ID)
	}
}

// uncache drops a deleted session from the offline cache
func (a *app) uncache(id string) {
	if err := a.cache.RemoveSession(id); err != nil {
		internal.LogDebug("Failed to remove cached session %s: %v", id, err)
	}
}

func (a *app) clearCache() {
	if err := a.cache.ClearCache(); err != nil {
		internal.LogWarn("Failed to clear cache: %v", err)
		return
	}
	internal.LogInfo("Cache cleared (%s)", a.cache.GetCacheDir())
}
