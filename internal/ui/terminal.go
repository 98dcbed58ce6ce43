package ui

import (
	"io"
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// TerminalInfo reports the width of w and whether colored output should be
// written to it. Writers that are not terminals get (0, false); NO_COLOR and
// CLICOLOR_FORCE are honoured.
func TerminalInfo(w io.Writer) (width int, color bool) {
	color = termenv.NewOutput(w).EnvColorProfile() != termenv.Ascii

	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0, color
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		width = 80
	}
	return width, color
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func getTTY() (*os.File, error) {
	return os.OpenFile("/dev/tty", os.O_RDWR, 0)
}
