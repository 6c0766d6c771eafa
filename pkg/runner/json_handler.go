package runner

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/aretw0/vista/pkg/domain"
)

// JSONHandler emits progress as JSON-Lines.
type JSONHandler struct {
	Writer  io.Writer
	Encoder *json.Encoder
}

// Message is one line written by JSONHandler.
type Message struct {
	Type       string                  `json:"type"`
	Step       *StepResult             `json:"step,omitempty"`
	Completion *domain.CompletionEvent `json:"completion,omitempty"`
	Report     *Report                 `json:"report,omitempty"`
}

// NewJSONHandler creates a handler for JSON output.
func NewJSONHandler(w io.Writer) *JSONHandler {
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Writer:  w,
		Encoder: json.NewEncoder(w),
	}
}

func (h *JSONHandler) Step(ctx context.Context, res StepResult) error {
	return h.Encoder.Encode(Message{Type: "step", Step: &res})
}

func (h *JSONHandler) Completion(ctx context.Context, ev domain.CompletionEvent) error {
	return h.Encoder.Encode(Message{Type: "complete", Completion: &ev})
}

func (h *JSONHandler) Summary(ctx context.Context, rep Report) error {
	return h.Encoder.Encode(Message{Type: "summary", Report: &rep})
}
