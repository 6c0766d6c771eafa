package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/vista/pkg/domain"
	"github.com/aretw0/vista/pkg/ports"
	"github.com/aretw0/vista/pkg/shadow"
)

const maxTextLabel = 24

// Overlay contains transition state to visualize on the graph.
type Overlay struct {
	Phase   domain.Phase
	Request domain.Request
	Pending int
}

// GenerateMermaid produces a Mermaid flowchart of the tree under root.
// It applies semantic styling:
// - Root: ((Circle))
// - Text: (["Stadium"])
// - Element: [Rectangle]
// With an overlay, elements whose id is named by the request get the
// "named" class and a phase badge is linked to the root.
func GenerateMermaid(root ports.Node, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	if root == nil {
		return sb.String()
	}

	names := map[string]string{}
	if overlay != nil {
		for _, e := range overlay.Request.Named() {
			names[e.ID] = e.Name
		}
	}

	var named []string
	next := 0
	var walk func(n ports.Node, parent string)
	walk = func(n ports.Node, parent string) {
		id := fmt.Sprintf("n%d", next)
		next++

		label := escape(shadow.Describe(n))
		opener, closer := "[", "]"
		switch {
		case parent == "":
			opener, closer = "((", "))"
		case n.Tag() == "#text":
			opener, closer = "([", "])"
			label = escape(textLabel(n))
		}
		if elemID, ok := n.Attribute("id"); ok {
			if name, ok := names[elemID]; ok {
				label = fmt.Sprintf("%s <br/> %s", label, escape(name))
				named = append(named, id)
			}
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", id, opener, label, closer))
		if parent != "" {
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", parent, id))
		}
		for _, c := range n.Children() {
			walk(c, id)
		}
	}
	walk(root, "")

	if overlay != nil {
		badge := string(overlay.Phase)
		if overlay.Pending > 0 {
			badge = fmt.Sprintf("%s, %d pending", badge, overlay.Pending)
		}
		sb.WriteString(fmt.Sprintf("    phase{{\"%s\"}} -.- n0\n", escape(badge)))

		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast regardless of theme
		sb.WriteString("    classDef named fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString(fmt.Sprintf("    classDef phase %s;\n", phaseStyle(overlay.Phase)))
		for _, id := range named {
			sb.WriteString(fmt.Sprintf("    class %s named;\n", id))
		}
		sb.WriteString("    class phase phase;\n")
	}

	return sb.String()
}

func phaseStyle(p domain.Phase) string {
	switch p {
	case domain.PhaseArmed:
		return "fill:#fff9c4,stroke:#fbc02d,color:#000"
	case domain.PhaseInFlight:
		return "fill:#ffeb3b,stroke:#f57f17,stroke-width:4px,color:#000"
	default:
		return "fill:#eeeeee,stroke:#9e9e9e,color:#000"
	}
}

func textLabel(n ports.Node) string {
	v, _ := n.Property("textContent")
	s, _ := v.(string)
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > maxTextLabel {
		s = string(r[:maxTextLabel]) + "..."
	}
	return s
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
