package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the pairgate banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{"                  _                  _", "#34d399"},
		{"  _ __   __ _(_)_ __ __ _  __ _| |_ ___", "#2dd4bf"},
		{" | '_ \\ / _` | | '__/ _` |/ _` | __/ _ \\", "#22d3ee"},
		{" | |_) | (_| | | | | (_| | (_| | ||  __/", "#38bdf8"},
		{" | .__/ \\__,_|_|_|  \\__, |\\__,_|\\__\\___|", "#60a5fa"},
		{" |_|                |___/", "#818cf8"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, termenv.String("  "+version).Faint())
	fmt.Fprintln(w)
}
