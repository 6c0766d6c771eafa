package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/vista"
	"github.com/aretw0/vista/pkg/adapters/memory"
	"github.com/aretw0/vista/pkg/domain"
	"github.com/aretw0/vista/pkg/session"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	factory := func(ctx context.Context, id string) (*session.Session, error) {
		doc := memory.NewDocument()
		tr, err := vista.NewFromDocument(doc,
			vista.WithPlatform(memory.NewPlatform()),
			vista.WithSessionID(id),
		)
		if err != nil {
			return nil, err
		}
		return &session.Session{ID: id, Document: doc, T: tr}, nil
	}
	mgr := session.NewManager(factory)
	t.Cleanup(func() { _ = mgr.Shutdown(context.Background()) })
	return NewServer(mgr)
}

type toolResult struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StructuredContent json.RawMessage `json:"structuredContent"`
	IsError           bool            `json:"isError"`
}

var nextID int

func rpc(t *testing.T, s *Server, method string, params any) json.RawMessage {
	t.Helper()
	nextID++
	msg, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      nextID,
		"method":  method,
		"params":  params,
	})
	require.NoError(t, err)

	out := s.MCPServer().HandleMessage(context.Background(), msg)
	require.NotNil(t, out)
	raw, err := json.Marshal(out)
	require.NoError(t, err)

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(raw, &envelope))
	require.Nil(t, envelope.Error, "rpc %s failed", method)
	return envelope.Result
}

func call(t *testing.T, s *Server, tool string, args map[string]any) toolResult {
	t.Helper()
	raw := rpc(t, s, "tools/call", map[string]any{"name": tool, "arguments": args})
	var res toolResult
	require.NoError(t, json.Unmarshal(raw, &res))
	return res
}

func structured[T any](t *testing.T, res toolResult) T {
	t.Helper()
	require.False(t, res.IsError, "tool error: %v", res.Content)
	var v T
	require.NoError(t, json.Unmarshal(res.StructuredContent, &v))
	return v
}

func TestToolsList(t *testing.T) {
	s := newTestServer(t)
	raw := rpc(t, s, "tools/list", map[string]any{})

	var list struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(raw, &list))

	var names []string
	for _, tool := range list.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"open_session", "set_transition", "apply_pass", "tick", "snapshot"}, names)
}

func TestDeferredPassOverMCP(t *testing.T) {
	s := newTestServer(t)

	open := structured[SessionResponse](t, call(t, s, "open_session", map[string]any{"id": "s1"}))
	assert.Equal(t, "s1", open.ID)
	assert.Equal(t, domain.PhaseIdle, open.Phase)

	armed := structured[SessionResponse](t, call(t, s, "set_transition", map[string]any{
		"session_id": "s1",
		"payload":    `[{"id":"card","name":"card"}]`,
	}))
	assert.Equal(t, domain.PhaseArmed, armed.Phase)
	assert.Equal(t, `[{"id":"card","name":"card"}]`, armed.Request)

	pass := structured[PassResponse](t, call(t, s, "apply_pass", map[string]any{
		"session_id": "s1",
		"steps": `[
			{"op":"create","as":"card","element":{"tag":"div","id":"card","text":"hi"}},
			{"op":"append","node":"$card"}
		]`,
	}))
	assert.Empty(t, pass.Error)
	assert.Equal(t, domain.PhaseInFlight, pass.Report.Phase)
	assert.Equal(t, 1, pass.Report.Pending)

	snap := call(t, s, "snapshot", map[string]any{"session_id": "s1"})
	require.False(t, snap.IsError)
	require.Len(t, snap.Content, 1)
	assert.NotContains(t, snap.Content[0].Text, `id="card"`)

	tick := structured[TickResponse](t, call(t, s, "tick", map[string]any{"session_id": "s1", "settle": true}))
	assert.Equal(t, domain.PhaseIdle, tick.Phase)
	require.Len(t, tick.Completions, 1)
	assert.False(t, tick.Completions[0].Degraded)

	raw := rpc(t, s, "resources/read", map[string]any{"uri": "vista://sessions/s1/tree"})
	var read struct {
		Contents []struct {
			URI  string `json:"uri"`
			Text string `json:"text"`
		} `json:"contents"`
	}
	require.NoError(t, json.Unmarshal(raw, &read))
	require.Len(t, read.Contents, 1)
	assert.Contains(t, read.Contents[0].Text, `<div id="card">hi</div>`)
}

func TestToolErrors(t *testing.T) {
	s := newTestServer(t)
	call(t, s, "open_session", map[string]any{"id": "s1"})

	tests := []struct {
		tool string
		args map[string]any
	}{
		{"set_transition", map[string]any{"session_id": "s1", "payload": `[{"id":"x"}]`}},
		{"set_transition", map[string]any{"session_id": "missing"}},
		{"apply_pass", map[string]any{"session_id": "s1", "steps": `[{"op":"explode"}]`}},
		{"tick", map[string]any{"session_id": "missing"}},
		{"snapshot", map[string]any{}},
	}
	for i, tt := range tests {
		t.Run(fmt.Sprintf("%d_%s", i, tt.tool), func(t *testing.T) {
			res := call(t, s, tt.tool, tt.args)
			assert.True(t, res.IsError)
		})
	}
}

func TestOpenGeneratesID(t *testing.T) {
	s := newTestServer(t)
	open := structured[SessionResponse](t, call(t, s, "open_session", map[string]any{}))
	assert.NotEmpty(t, open.ID)

	raw := rpc(t, s, "resources/read", map[string]any{"uri": "vista://sessions"})
	assert.Contains(t, string(raw), open.ID)
}
