package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/vista/pkg/domain"
)

// TextHandler prints progress as plain lines and the summary as a markdown
// report, optionally rendered by a ContentRenderer.
type TextHandler struct {
	Writer   io.Writer
	Renderer ContentRenderer
	Quiet    bool
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer configures the content renderer.
func WithTextHandlerRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// WithQuiet prints only the summary.
func WithQuiet() TextHandlerOption {
	return func(h *TextHandler) {
		h.Quiet = true
	}
}

// NewTextHandler creates a handler writing to w, or stdout when w is nil.
func NewTextHandler(w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{Writer: w}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *TextHandler) Step(ctx context.Context, res StepResult) error {
	if h.Quiet {
		return nil
	}
	line := fmt.Sprintf("%3d %-16s", res.Index, res.Op)
	if res.Target != "" {
		line += " " + res.Target
	}
	if res.Detail != "" {
		line += " " + res.Detail
	}
	line += fmt.Sprintf(" [%s", res.Phase)
	if res.Pending > 0 {
		line += fmt.Sprintf(" pending=%d", res.Pending)
	}
	line += "]"
	if res.Err != nil {
		line += " error: " + res.Err.Error()
	}
	_, err := fmt.Fprintln(h.Writer, line)
	return err
}

func (h *TextHandler) Completion(ctx context.Context, ev domain.CompletionEvent) error {
	if h.Quiet {
		return nil
	}
	_, err := fmt.Fprintf(h.Writer, "    ✓ complete applied=%d%s\n", ev.Applied, completionSuffix(ev))
	return err
}

func (h *TextHandler) Summary(ctx context.Context, rep Report) error {
	out := MarkdownReport(rep)
	if h.Renderer != nil {
		if rendered, err := h.Renderer(out); err == nil {
			out = rendered
		}
	}
	_, err := fmt.Fprintln(h.Writer, strings.TrimSpace(out))
	return err
}

// MarkdownReport renders rep as a markdown document.
func MarkdownReport(rep Report) string {
	var b strings.Builder
	title := rep.Script
	if title == "" {
		title = "script"
	}
	fmt.Fprintf(&b, "## Replay: %s\n\n", title)
	fmt.Fprintf(&b, "| steps | failed | completions | degraded | phase | pass |\n")
	fmt.Fprintf(&b, "|---|---|---|---|---|---|\n")
	fmt.Fprintf(&b, "| %d | %d | %d | %d | %s | %d |\n", rep.Steps, rep.Failed, len(rep.Completions), rep.Degraded(), rep.Phase, rep.Pass)

	if len(rep.Completions) > 0 {
		b.WriteString("\n### Completions\n\n")
		for i, ev := range rep.Completions {
			names := "default"
			if len(ev.Names) > 0 {
				names = "`" + strings.Join(ev.Names, "`, `") + "`"
			}
			fmt.Fprintf(&b, "%d. %s: %d applied%s\n", i+1, names, ev.Applied, completionSuffix(ev))
		}
	}
	if rep.Pending > 0 {
		fmt.Fprintf(&b, "\n> %d mutations still pending\n", rep.Pending)
	}
	return b.String()
}

func completionSuffix(ev domain.CompletionEvent) string {
	s := ""
	if ev.Degraded {
		s += " (degraded)"
	}
	if ev.Error != "" {
		s += " error: " + ev.Error
	}
	return s
}
