package dsl

// Spec is the declarative form of an Element, as found in YAML or JSON scripts.
type Spec struct {
	Tag      string            `json:"tag,omitempty" yaml:"tag,omitempty" mapstructure:"tag"`
	ID       string            `json:"id,omitempty" yaml:"id,omitempty" mapstructure:"id"`
	Class    string            `json:"class,omitempty" yaml:"class,omitempty" mapstructure:"class"`
	Text     string            `json:"text,omitempty" yaml:"text,omitempty" mapstructure:"text"`
	Attrs    map[string]string `json:"attrs,omitempty" yaml:"attrs,omitempty" mapstructure:"attrs"`
	Style    map[string]string `json:"style,omitempty" yaml:"style,omitempty" mapstructure:"style"`
	Children []Spec            `json:"children,omitempty" yaml:"children,omitempty" mapstructure:"children"`
}

// FromSpec converts s into an Element. A spec without tag is a text node.
// Map entries are applied in sorted key order.
func FromSpec(s Spec) *Element {
	if s.Tag == "" {
		return Txt(s.Text)
	}
	e := El(s.Tag)
	if s.ID != "" {
		e.ID(s.ID)
	}
	if s.Class != "" {
		e.Class(s.Class)
	}
	for _, k := range sortedKeys(s.Attrs) {
		e.Attr(k, s.Attrs[k])
	}
	for _, k := range sortedKeys(s.Style) {
		e.Style(k, s.Style[k])
	}
	if s.Text != "" {
		e.Text(s.Text)
	}
	for _, c := range s.Children {
		e.Child(FromSpec(c))
	}
	return e
}
