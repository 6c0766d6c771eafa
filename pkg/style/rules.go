// Package style renders and installs the transition-name rules of a transition.
package style

import (
	"fmt"
	"strings"

	"github.com/aretw0/vista/pkg/domain"
)

// Property is the CSS property that names an element for the platform transition.
const Property = "view-transition-name"

// Rules renders one id-selector rule per named entry, in order.
// Default entries produce nothing.
func Rules(entries []domain.Entry) string {
	var b strings.Builder
	for _, e := range entries {
		if e.IsDefault() || e.ID == "" || e.Name == "" {
			continue
		}
		fmt.Fprintf(&b, "#%s{%s:%s;}", EscapeIdent(e.ID), Property, EscapeIdent(e.Name))
	}
	return b.String()
}

// EscapeIdent serializes s as a CSS identifier, following the CSSOM
// "serialize an identifier" algorithm.
func EscapeIdent(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		switch {
		case r == 0:
			b.WriteRune('\uFFFD')
		case (r >= 0x1 && r <= 0x1f) || r == 0x7f,
			i == 0 && r >= '0' && r <= '9',
			i == 1 && r >= '0' && r <= '9' && runes[0] == '-':
			fmt.Fprintf(&b, "\\%x ", r)
		case i == 0 && r == '-' && len(runes) == 1:
			b.WriteString("\\-")
		case r >= 0x80, r == '-', r == '_',
			r >= '0' && r <= '9',
			r >= 'A' && r <= 'Z',
			r >= 'a' && r <= 'z':
			b.WriteRune(r)
		default:
			b.WriteRune('\\')
			b.WriteRune(r)
		}
	}
	return b.String()
}
