// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/pkg/browser"
	"golang.org/x/time/rate"

	"github.com/valleymod/valleymod/internal/catalog"
	"github.com/valleymod/valleymod/internal/config"
	"github.com/valleymod/valleymod/internal/game"
	"github.com/valleymod/valleymod/internal/installer"
	"github.com/valleymod/valleymod/internal/issue"
	"github.com/valleymod/valleymod/internal/logging"
	"github.com/valleymod/valleymod/internal/reconcile"
	"github.com/valleymod/valleymod/internal/resolve"
	"github.com/valleymod/valleymod/internal/store"
)

type (
	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Loaded, error)
	}

	// App is the composition root for the CLI. Command handlers open a
	// session per invocation and delegate to the internal packages.
	App struct {
		Config  ConfigProvider
		OpenURL func(url string) error
		stdout  io.Writer
		stderr  io.Writer

		configPath string
		verbose    bool
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config  ConfigProvider
		OpenURL func(url string) error
		Stdout  io.Writer
		Stderr  io.Writer
	}

	// session holds the services wired from one loaded configuration.
	session struct {
		cfg        *config.Loaded
		logger     *logging.Logger
		store      *store.FileStore
		catalog    *catalog.Client
		versions   *game.VersionSource
		resolver   *resolve.Resolver
		reconciler *reconcile.Reconciler

		game      *game.Installation
		installer *installer.Installer
	}
)

// NewApp creates an App, filling unset dependencies with defaults.
func NewApp(deps Dependencies) *App {
	a := &App{
		Config:  deps.Config,
		OpenURL: deps.OpenURL,
		stdout:  deps.Stdout,
		stderr:  deps.Stderr,
	}
	if a.Config == nil {
		a.Config = config.NewProvider()
	}
	if a.OpenURL == nil {
		a.OpenURL = browser.OpenURL
	}
	if a.stdout == nil {
		a.stdout = os.Stdout
	}
	if a.stderr == nil {
		a.stderr = os.Stderr
	}
	return a
}

func (a *App) loadConfig(ctx context.Context) (*config.Loaded, error) {
	return a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: a.configPath})
}

// open loads configuration and wires the services every command shares.
// The caller must close the session.
func (a *App) open(ctx context.Context) (*session, error) {
	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return nil, err
	}

	logCfg := cfg.Log
	if a.verbose {
		logCfg.Level = config.LogLevelDebug
	}
	logger, err := logging.New(logCfg, a.stderr)
	if err != nil {
		return nil, err
	}

	statePath, err := cfg.StatePath()
	if err != nil {
		_ = logger.Close()
		return nil, err
	}

	client := catalog.NewClient(
		catalog.WithBaseURL(cfg.Catalog.BaseURL),
		catalog.WithUserAgent(fmt.Sprintf("%s/%s", cfg.Catalog.UserAgent, Version)),
		catalog.WithHTTPClient(&http.Client{Timeout: cfg.Catalog.Timeout}),
		catalog.WithLimiter(newLimiter(cfg.Catalog.RequestsPerMinute)),
		catalog.WithLogger(logger.WithPrefix("catalog")),
	)

	logPath := cfg.Game.LogPath
	if logPath == "" {
		logPath = game.DefaultLogPath(runtime.GOOS, os.Getenv)
	}
	versions := game.NewVersionSource(cfg.Game.Version, logPath)

	st := store.New(statePath, store.WithLogger(logger.WithPrefix("store")))
	resolver := resolve.NewResolver(client, versions,
		resolve.WithSearchURL(cfg.Catalog.SearchURL),
		resolve.WithLogger(logger.WithPrefix("resolve")),
	)

	return &session{
		cfg:        cfg,
		logger:     logger,
		store:      st,
		catalog:    client,
		versions:   versions,
		resolver:   resolver,
		reconciler: reconcile.New(resolver, st, reconcile.WithLogger(logger.WithPrefix("reconcile"))),
	}, nil
}

// newLimiter spreads requestsPerMinute evenly; zero disables limiting.
func newLimiter(requestsPerMinute int) *rate.Limiter {
	if requestsPerMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
}

func (s *session) Close() error {
	return s.logger.Close()
}

// installation discovers the game folder once per session.
func (s *session) installation(ctx context.Context) (game.Installation, error) {
	if s.game != nil {
		return *s.game, nil
	}
	inst, err := game.Discover(ctx, game.DiscoverOptions{
		Path:    s.cfg.Game.Path,
		ModsDir: s.cfg.Game.ModsDir,
		Logger:  s.logger.WithPrefix("game"),
	})
	if err != nil {
		if errors.Is(err, game.ErrGameNotFound) {
			return game.Installation{}, issue.NewErrorContext().
				WithOperation("locate the game").
				WithResource(s.cfg.Game.Path).
				WithSuggestion("Set game.path in the config file or VALLEYMOD_GAME_PATH").
				WithSuggestion("Run 'valleymod discover --verbose' to list the folders that were checked").
				WithIssue(issue.GameNotFoundId).
				Wrap(err).
				BuildError()
		}
		return game.Installation{}, err
	}
	if err := os.MkdirAll(inst.ModsPath, 0o755); err != nil {
		return game.Installation{}, fmt.Errorf("creating mods folder: %w", err)
	}
	s.game = &inst
	return inst, nil
}

// modInstaller returns an installer for the discovered game.
func (s *session) modInstaller(ctx context.Context) (*installer.Installer, error) {
	if s.installer != nil {
		return s.installer, nil
	}
	inst, err := s.installation(ctx)
	if err != nil {
		return nil, err
	}
	s.installer = installer.New(s.store, inst.Path, inst.ModsPath, installer.WithLogger(s.logger.WithPrefix("install")))
	return s.installer, nil
}
