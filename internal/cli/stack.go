package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/vista/internal/config"
	"github.com/aretw0/vista/pkg/adapters/memory"
	redisadapter "github.com/aretw0/vista/pkg/adapters/redis"
	"github.com/aretw0/vista/pkg/adapters/sqlite"
	"github.com/aretw0/vista/pkg/domain"
	"github.com/aretw0/vista/pkg/observability"
	"github.com/aretw0/vista/pkg/ports"
	"github.com/aretw0/vista/pkg/session"
)

// Stack is everything `vista serve` and `vista mcp` share: the session
// manager, its storage backends and the metrics registry.
type Stack struct {
	Config   config.Config
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Metrics  *observability.Metrics
	Sessions *session.Manager
	Journal  ports.Journal

	// Notifier is set when Redis is configured. Other processes follow the
	// completions it publishes with FollowEvents.
	Notifier *redisadapter.Notifier

	closers []func() error
}

// NewStack wires the backends selected by cfg. The caller must Close it.
func NewStack(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Stack, error) {
	s := &Stack{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
	}
	s.Registry.MustRegister(collectors.NewGoCollector())

	metrics, err := observability.NewMetrics(s.Registry)
	if err != nil {
		return nil, err
	}
	s.Metrics = metrics

	mgrOpts := []session.Option{
		session.WithLogger(logger),
		session.WithLockTTL(cfg.LockTTL.Std()),
	}

	var client *backend.Client
	if cfg.Redis.Addr != "" {
		client, err = ConnectRedis(ctx, cfg.Redis.Addr)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, client.Close)
		logger.Info("Redis connected", "addr", cfg.Redis.Addr)
		s.Notifier = redisadapter.NewNotifier(client, cfg.Redis.Prefix)
		mgrOpts = append(mgrOpts,
			session.WithLocker(redisadapter.NewLocker(client, cfg.Redis.Prefix)),
			session.WithNotifier(s.Notifier),
		)
	}

	switch {
	case cfg.SQLite.Path != "":
		j, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, j.Close)
		s.Journal = j
		logger.Info("Journal opened", "backend", "sqlite", "path", cfg.SQLite.Path)
	case client != nil:
		s.Journal = redisadapter.NewJournal(client, redisadapter.WithPrefix(cfg.Redis.Prefix))
		logger.Info("Journal opened", "backend", "redis")
	default:
		s.Journal = memory.NewJournal()
	}
	mgrOpts = append(mgrOpts, session.WithJournal(s.Journal))

	factoryOpts := FactoryOptions{
		Platform: cfg.Platform,
		Logger:   logger,
		Hooks:    domain.ChainHooks(metrics.Hooks(), debugHooks(logger)),
		Page:     cfg.Browser.Page,
	}
	if cfg.Platform == config.PlatformRod {
		browser, err := connectBrowser(cfg.Browser)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, browser.Close)
		factoryOpts.Browser = browser
	}

	s.Sessions = session.NewManager(NewSessionFactory(factoryOpts), mgrOpts...)
	return s, nil
}

func connectBrowser(cfg config.BrowserConfig) (*rod.Browser, error) {
	u := cfg.ControlURL
	if u == "" {
		var err error
		u, err = launcher.New().Headless(true).Launch()
		if err != nil {
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
	}
	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	return browser, nil
}

// Close shuts every session down and releases the backends in reverse order.
func (s *Stack) Close() error {
	var errs []error
	if s.Sessions != nil {
		errs = append(errs, s.Sessions.Shutdown(context.Background()))
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	s.closers = nil
	return errors.Join(errs...)
}
