package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/vista"
	"github.com/aretw0/vista/internal/config"
	"github.com/aretw0/vista/internal/logging"
	"github.com/aretw0/vista/pkg/adapters/html"
	"github.com/aretw0/vista/pkg/adapters/memory"
	"github.com/aretw0/vista/pkg/runner"
)

// ReplayOptions contains all the configuration for the replay command.
type ReplayOptions struct {
	ScriptPath      string
	JSON            bool
	Quiet           bool
	ShowTree        bool
	ContinueOnError bool
	// Platform is memory or none. Browser replays go through `vista serve`.
	Platform string
	Out      io.Writer
	Logger   *slog.Logger
	// Renderer formats the markdown summary, e.g. with glamour on a terminal.
	Renderer runner.ContentRenderer
}

func (o *ReplayOptions) defaults() {
	if o.Out == nil {
		o.Out = os.Stdout
	}
	if o.Logger == nil {
		o.Logger = logging.NewNop()
	}
	if o.Platform == "" {
		o.Platform = config.PlatformMemory
	}
}

// Replay runs the script at opts.ScriptPath once against a fresh document.
func Replay(ctx context.Context, opts ReplayOptions) (runner.Report, error) {
	opts.defaults()

	script, t, doc, err := prepareReplay(opts)
	if err != nil {
		return runner.Report{}, err
	}
	defer t.Close()

	var handler runner.Handler
	if opts.JSON {
		handler = runner.NewJSONHandler(opts.Out)
	} else {
		var textOpts []runner.TextHandlerOption
		if opts.Renderer != nil {
			textOpts = append(textOpts, runner.WithTextHandlerRenderer(opts.Renderer))
		}
		if opts.Quiet {
			textOpts = append(textOpts, runner.WithQuiet())
		}
		handler = runner.NewTextHandler(opts.Out, textOpts...)
	}

	r := runner.New(
		runner.WithHandler(handler),
		runner.WithLogger(opts.Logger),
		runner.WithContinueOnError(opts.ContinueOnError),
	)
	rep, runErr := r.Run(ctx, t, doc, script)

	if opts.ShowTree && !opts.JSON {
		fmt.Fprintf(opts.Out, "\n%s\n", doc.BodyHTML())
	}
	return rep, runErr
}

func prepareReplay(opts ReplayOptions) (runner.Script, *vista.Transitioner, *html.Document, error) {
	script, err := runner.LoadScript(opts.ScriptPath)
	if err != nil {
		return runner.Script{}, nil, nil, err
	}

	doc := html.NewDocument()
	tOpts := []vista.Option{
		vista.WithSessionID("replay"),
		vista.WithLogger(opts.Logger),
		vista.WithLifecycleHooks(debugHooks(opts.Logger)),
	}
	switch opts.Platform {
	case config.PlatformMemory:
		tOpts = append(tOpts, vista.WithPlatform(memory.NewPlatform()))
	case config.PlatformNone:
	default:
		return runner.Script{}, nil, nil, fmt.Errorf("replay does not support platform %q", opts.Platform)
	}

	t, err := vista.NewFromDocument(doc, tOpts...)
	if err != nil {
		return runner.Script{}, nil, nil, fmt.Errorf("error initializing transitioner: %w", err)
	}
	return script, t, doc, nil
}
