package cmd

import (
	"io"
	"os"

	"golang.org/x/term"
)

// isTerminal reports whether w writes to a TTY.
var isTerminal = func(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}
