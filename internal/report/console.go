package report

import (
	"io"

	"github.com/fatih/color"
)

// Setup configures terminal output once at startup and returns the writer
// the report should go to. Colors stay off when disabled or when stdout is
// not a terminal.
func Setup(noColor bool) io.Writer {
	if noColor {
		color.NoColor = true
	}
	return color.Output
}
