package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{` __   __ _       _        `, "#2dd4bf"},
	{` \ \ / /(_) ___ | |_  __ _ `, "#22d3ee"},
	{`  \ V / | |/ __|| __|/ _' |`, "#38bdf8"},
	{`   \_/  |_|\___/ \__|\__,_|`, "#60a5fa"},
}

// PrintBanner writes the vista banner and version to w, colored for the
// terminal profile of w.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)

	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	if v := strings.TrimSpace(version); v != "" {
		fmt.Fprintln(w, out.String("   view transitions "+v).Faint())
	}
	fmt.Fprintln(w)
}
