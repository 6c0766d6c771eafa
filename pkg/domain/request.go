package domain

import "strings"

// Entry names one element that the platform transition should track on its
// own. The zero Entry is the Default (unnamed) transition.
type Entry struct {
	ID   string `json:"id,omitempty" yaml:"id,omitempty" mapstructure:"id"`
	Name string `json:"name,omitempty" yaml:"name,omitempty" mapstructure:"name"`
}

// IsDefault reports whether the entry only arms the transition.
func (e Entry) IsDefault() bool {
	return e.ID == "" && e.Name == ""
}

// Request is the transition request produced by the declarative binding.
// An empty Request means "no transition".
type Request struct {
	Entries []Entry `json:"entries"`
}

// NewRequest builds a request from entries, preserving their order.
func NewRequest(entries ...Entry) Request {
	return Request{Entries: append([]Entry(nil), entries...)}
}

// IsEmpty reports whether the request asks for no transition at all.
func (r Request) IsEmpty() bool {
	return len(r.Entries) == 0
}

// Named returns the entries that carry an id/name pair, in order.
func (r Request) Named() []Entry {
	var named []Entry
	for _, e := range r.Entries {
		if !e.IsDefault() {
			named = append(named, e)
		}
	}
	return named
}

// Names returns the transition names of the named entries.
func (r Request) Names() []string {
	named := r.Named()
	names := make([]string, 0, len(named))
	for _, e := range named {
		names = append(names, e.Name)
	}
	return names
}

func (r Request) String() string {
	if r.IsEmpty() {
		return "none"
	}
	parts := make([]string, 0, len(r.Entries))
	for _, e := range r.Entries {
		if e.IsDefault() {
			parts = append(parts, "default")
			continue
		}
		parts = append(parts, e.ID+"="+e.Name)
	}
	return strings.Join(parts, ",")
}
