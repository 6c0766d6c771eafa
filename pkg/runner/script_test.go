package runner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScript_YAML(t *testing.T) {
	src := `
name: demo
steps:
  - op: create
    as: card
    element:
      tag: div
      id: card
      attrs: {role: region}
      children:
        - {tag: h2, text: Title}
  - op: transition
    payload: '[{}]'
  - op: append
    node: $card
  - op: set_property
    target: "#card"
    key: hidden
    value: true
  - op: tick
    count: 2
`
	s, err := ParseScript([]byte(src), "yaml")
	require.NoError(t, err)

	assert.Equal(t, "demo", s.Name)
	require.Len(t, s.Steps, 5)
	assert.Equal(t, OpCreate, s.Steps[0].Op)
	require.NotNil(t, s.Steps[0].Element)
	assert.Equal(t, "region", s.Steps[0].Element.Attrs["role"])
	assert.Equal(t, "Title", s.Steps[0].Element.Children[0].Text)
	require.NotNil(t, s.Steps[1].Payload)
	assert.Equal(t, "[{}]", *s.Steps[1].Payload)
	assert.Equal(t, true, s.Steps[3].Value)
	assert.Equal(t, 2, s.Steps[4].Count)
}

func TestParseScript_JSONList(t *testing.T) {
	src := `[{"op":"transition","entries":[{"id":"hero","name":"hero"}]},{"op":"begin_pass"}]`
	s, err := ParseScript([]byte(src), "json")
	require.NoError(t, err)

	require.Len(t, s.Steps, 2)
	require.Len(t, s.Steps[0].Entries, 1)
	assert.Equal(t, "hero", s.Steps[0].Entries[0].ID)
	assert.Nil(t, s.Steps[0].Payload)
	assert.Equal(t, OpBeginPass, s.Steps[1].Op)
}

func TestParseScript_Invalid(t *testing.T) {
	cases := map[string]string{
		"unknown op":      `[{"op":"explode"}]`,
		"missing op":      `[{"target":"root"}]`,
		"unknown field":   `[{"op":"tick","bogus":1}]`,
		"create no as":    `[{"op":"create","element":{"tag":"p"}}]`,
		"replace no ref":  `[{"op":"replace","node":"$a"}]`,
		"attribute nokey": `[{"op":"set_attribute","target":"root"}]`,
		"not json":        `{`,
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseScript([]byte(src), "json")
			assert.Error(t, err)
		})
	}
}

func TestParseScript_UnsupportedFormat(t *testing.T) {
	_, err := ParseScript([]byte(`[]`), "toml")
	assert.Error(t, err)
}

func TestParseScript_TooLarge(t *testing.T) {
	t.Setenv(EnvMaxScriptSize, "8")
	_, err := ParseScript([]byte(`[{"op":"tick"}]`), "json")
	assert.ErrorIs(t, err, ErrScriptTooLarge)
}

func TestLoadScript_NameFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reorder.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"steps":[{"op":"tick"}]}`), 0o644))

	s, err := LoadScript(path)
	require.NoError(t, err)
	assert.Equal(t, "reorder", s.Name)
	assert.Len(t, s.Steps, 1)
}

func TestSanitizeValue(t *testing.T) {
	clean, err := SanitizeValue("a\x1b[31mb\tc\n")
	require.NoError(t, err)
	assert.Equal(t, "a[31mb\tc\n", clean)

	_, err = SanitizeValue(string([]byte{0xff, 0xfe}))
	assert.ErrorIs(t, err, ErrInvalidUTF8)
}
