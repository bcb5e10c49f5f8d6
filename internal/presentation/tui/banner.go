package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the fsmconv ASCII art banner to w.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	lines := []struct{ text, color string }{
		{"   __                                      ", "#818cf8"},
		{"  / _|___ _ __ ___   ___ ___  _ __ __   __ ", "#a78bfa"},
		{" | |_/ __| '_ ` _ \\ / __/ _ \\| '_ \\\\ \\ / / ", "#c084fc"},
		{" |  _\\__ \\ | | | | | (_| (_) | | | |\\ V /  ", "#e879f9"},
		{" |_| |___/_| |_| |_|\\___\\___/|_| |_| \\_/   ", "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w)
}
