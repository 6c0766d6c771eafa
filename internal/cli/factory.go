package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/aretw0/vista"
	"github.com/aretw0/vista/internal/config"
	"github.com/aretw0/vista/internal/logging"
	"github.com/aretw0/vista/pkg/adapters/html"
	"github.com/aretw0/vista/pkg/adapters/memory"
	rodadapter "github.com/aretw0/vista/pkg/adapters/rod"
	"github.com/aretw0/vista/pkg/domain"
	"github.com/aretw0/vista/pkg/ports"
	"github.com/aretw0/vista/pkg/session"
)

// FactoryOptions selects how each session's document and platform are built.
type FactoryOptions struct {
	// Platform is one of the config.Platform* modes.
	Platform string
	Hooks    domain.LifecycleHooks
	Logger   *slog.Logger
	// Browser and Page are required in rod mode.
	Browser *rod.Browser
	Page    string
}

// NewSessionFactory returns a session.Factory with standard CLI conventions:
// memory and none sessions render into an x/net/html document, rod sessions
// get their own browser tab.
func NewSessionFactory(opts FactoryOptions) session.Factory {
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	return func(ctx context.Context, id string) (*session.Session, error) {
		switch opts.Platform {
		case config.PlatformMemory, "":
			return newSession(id, html.NewDocument(), memory.NewPlatform(), nil, opts)
		case config.PlatformNone:
			return newSession(id, html.NewDocument(), nil, nil, opts)
		case config.PlatformRod:
			return newRodSession(id, opts)
		}
		return nil, fmt.Errorf("unknown platform %q", opts.Platform)
	}
}

func newRodSession(id string, opts FactoryOptions) (*session.Session, error) {
	if opts.Browser == nil {
		return nil, fmt.Errorf("rod platform requires a browser")
	}
	page, err := opts.Browser.Page(proto.TargetCreateTarget{URL: opts.Page})
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("failed to load %s: %w", opts.Page, err)
	}
	doc, err := rodadapter.Open(page)
	if err != nil {
		_ = page.Close()
		return nil, err
	}
	platform := rodadapter.NewPlatform(context.Background(), page)
	return newSession(id, doc, platform, page.Close, opts)
}

func newSession(id string, doc ports.Document, platform ports.Platform, release func() error, opts FactoryOptions) (*session.Session, error) {
	tOpts := []vista.Option{
		vista.WithSessionID(id),
		vista.WithLogger(opts.Logger),
		vista.WithLifecycleHooks(opts.Hooks),
	}
	if platform != nil {
		tOpts = append(tOpts, vista.WithPlatform(platform))
	}
	t, err := vista.NewFromDocument(doc, tOpts...)
	if err != nil {
		if release != nil {
			_ = release()
		}
		return nil, fmt.Errorf("error initializing transitioner: %w", err)
	}
	return &session.Session{
		ID:        id,
		Document:  doc,
		T:         t,
		CreatedAt: time.Now(),
		Release:   release,
	}, nil
}
