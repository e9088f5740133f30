package main

import (
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// wrapAuto asks for the width of the terminal attached to the output.
const wrapAuto = -1

// resolveWrapWidth turns a configured width into the column count to wrap at.
// Zero disables wrapping. wrapAuto uses the terminal width when w is a TTY.
func resolveWrapWidth(width int, w io.Writer) int {
	if width != wrapAuto {
		if width < 0 {
			return 0
		}
		return width
	}
	file, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(file.Fd())) {
		return 0
	}
	cols, _, err := term.GetSize(int(file.Fd()))
	if err != nil || cols <= 0 {
		return 0
	}
	return cols
}

// wrapText breaks text into lines no wider than width display columns.
// Existing line breaks are kept, runs of spaces at a break are dropped, and
// words wider than the line are split between runes.
func wrapText(text string, width int) string {
	if width <= 0 {
		return text
	}
	var out strings.Builder
	out.Grow(len(text) + len(text)/width)
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			out.WriteByte('\n')
		}
		wrapLine(&out, line, width)
	}
	return out.String()
}

func wrapLine(out *strings.Builder, line string, width int) {
	col := 0
	for _, word := range strings.Fields(line) {
		wordWidth := runewidth.StringWidth(word)
		if col > 0 {
			if col+1+wordWidth <= width {
				out.WriteByte(' ')
				col++
			} else {
				out.WriteByte('\n')
				col = 0
			}
		}
		if wordWidth <= width-col {
			out.WriteString(word)
			col += wordWidth
			continue
		}
		for _, r := range word {
			rw := runewidth.RuneWidth(r)
			if col > 0 && col+rw > width {
				out.WriteByte('\n')
				col = 0
			}
			out.WriteRune(r)
			col += rw
		}
	}
}
