package theme

import (
	"fmt"
	"io"
)

const (
	cyan    = "\033[36m"
	magenta = "\033[35m"
	reset   = "\033[0m"
)

// Banner returns the CLI banner. color adds ANSI escapes.
func Banner(color bool) string {
	c, m, r := cyan, magenta, reset
	if !color {
		c, m, r = "", "", ""
	}
	return "" +
		c + "  ┌─────────────────────────┐\n" + r +
		c + "  │ " + m + "s i e v e" + c + "               │\n" + r +
		c + "  └───────────╲   ╱────────┘\n" + r +
		c + "               ╲ ╱\n" + r +
		"   keeps what you'd approve\n"
}

// PrintBanner writes the banner to w.
func PrintBanner(w io.Writer, color bool) {
	fmt.Fprint(w, Banner(color))
}
