package cli

import (
	"context"

	"github.com/aretw0/vista/internal/presentation/graph"
	"github.com/aretw0/vista/pkg/runner"
)

// Graph replays the script silently and renders the resulting tree as a
// Mermaid flowchart with the transition state overlaid. With shadow set the
// renderer's view (the shadow lists) is drawn instead of the real tree,
// which differs while mutations are pending.
func Graph(ctx context.Context, opts ReplayOptions, shadow bool) (string, error) {
	opts.defaults()

	script, t, doc, err := prepareReplay(opts)
	if err != nil {
		return "", err
	}
	defer t.Close()

	r := runner.New(
		runner.WithLogger(opts.Logger),
		runner.WithContinueOnError(opts.ContinueOnError),
	)
	if _, err := r.Run(ctx, t, doc, script); err != nil {
		return "", err
	}

	root := t.Root()
	if !shadow {
		root = doc.Root()
	}
	return graph.GenerateMermaid(root, &graph.Overlay{
		Phase:   t.Phase(),
		Request: t.Request(),
		Pending: t.Pending(),
	}), nil
}
