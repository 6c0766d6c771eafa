// Package binding encodes and decodes the declarative transition attribute.
//
// The attribute holds a JSON array of entries. Each entry is either an empty
// object, which arms a default transition, or an object with both "id" and
// "name", which also gives the element with that id its own transition name:
//
//	data-vista-transition='[{"id":"hero","name":"hero-image"},{}]'
//
// An absent attribute, an empty string and "null" mean no transition.
package binding

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gorilla/css/scanner"
	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/vista/pkg/domain"
)

// Attribute is the attribute name the binding reads the request from.
const Attribute = "data-vista-transition"

// ErrMalformed is returned for payloads that are not a valid request.
var ErrMalformed = errors.New("malformed transition request")

// Decode parses an attribute payload. A nil payload means the attribute is absent.
func Decode(payload *string) (domain.Request, error) {
	if payload == nil {
		return domain.Request{}, nil
	}
	raw := strings.TrimSpace(*payload)
	if raw == "" || raw == "null" {
		return domain.Request{}, nil
	}

	var items []any
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return domain.Request{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	entries := make([]domain.Entry, 0, len(items))
	for i, item := range items {
		fields, ok := item.(map[string]any)
		if !ok {
			return domain.Request{}, fmt.Errorf("%w: entry %d is not an object", ErrMalformed, i)
		}
		var e domain.Entry
		if err := mapstructure.Decode(fields, &e); err != nil {
			return domain.Request{}, fmt.Errorf("%w: entry %d: %v", ErrMalformed, i, err)
		}
		if err := Validate(e); err != nil {
			return domain.Request{}, fmt.Errorf("%w: entry %d: %v", ErrMalformed, i, err)
		}
		entries = append(entries, e)
	}
	return domain.NewRequest(entries...), nil
}

// Encode renders req as an attribute payload. An empty request encodes to "null".
func Encode(req domain.Request) string {
	if req.IsEmpty() {
		return "null"
	}
	data, err := json.Marshal(req.Entries)
	if err != nil {
		return "null"
	}
	return string(data)
}

// Validate checks that e is either a default entry or a complete named entry.
func Validate(e domain.Entry) error {
	if e.IsDefault() {
		return nil
	}
	if e.ID == "" {
		return fmt.Errorf("name %q has no id", e.Name)
	}
	if e.Name == "" {
		return fmt.Errorf("id %q has no name", e.ID)
	}
	if !ValidName(e.Name) {
		return fmt.Errorf("%q is not a valid transition name", e.Name)
	}
	return nil
}

// ValidName reports whether name is a single CSS identifier usable as a
// transition name. "none" and "auto" are reserved.
func ValidName(name string) bool {
	switch strings.ToLower(name) {
	case "", "none", "auto":
		return false
	}
	s := scanner.New(name)
	tok := s.Next()
	if tok.Type != scanner.TokenIdent || tok.Value != name {
		return false
	}
	return s.Next().Type == scanner.TokenEOF
}
