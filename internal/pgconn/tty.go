package pgconn

import (
	"os"

	"golang.org/x/term"
)

// readPasswordFromTTY reads one line from the controlling terminal with
// echo disabled, the standard masked-password convention. ok is false
// when stdin isn't a terminal (piped input, non-interactive CI), in
// which case the caller falls back to a plain line read.
func readPasswordFromTTY() (string, bool) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", false
	}
	b, err := term.ReadPassword(fd)
	if err != nil {
		return "", false
	}
	return string(b), true
}
