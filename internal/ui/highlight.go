package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
)

// Highlighter handles syntax highlighting for diff display
type Highlighter struct {
	lexer chroma.Lexer
	style *chroma.Style
}

// NewHighlighter creates a highlighter for the given file path.
// Returns nil if the language is not recognized.
func NewHighlighter(filePath string) *Highlighter {
	lexer := lexers.Match(filePath)
	if lexer == nil {
		return nil
	}

	// monokai has good contrast on the dark diff backgrounds
	style := styles.Get("monokai")
	if style == nil {
		style = styles.Fallback
	}

	return &Highlighter{
		lexer: chroma.Coalesce(lexer),
		style: style,
	}
}

// HighlightLine applies syntax highlighting to one line. A nil bg leaves the
// terminal background alone; otherwise bg is an RGB true color background
// applied to every token.
func (h *Highlighter) HighlightLine(line string, bg *[3]int) string {
	if h == nil {
		if bg == nil {
			return line
		}
		return fmt.Sprintf("\x1b[%sm%s\x1b[0m", bgCode(*bg), line)
	}

	iterator, err := h.lexer.Tokenise(nil, line)
	if err != nil {
		return line
	}

	var buf strings.Builder
	formatter := &lineFormatter{style: h.style, bg: bg}
	if err := formatter.Format(&buf, iterator); err != nil {
		return line
	}
	return buf.String()
}

// lineFormatter is a Chroma formatter that writes true color ANSI codes for a
// single line, with an optional fixed background.
type lineFormatter struct {
	style *chroma.Style
	bg    *[3]int
}

func (f *lineFormatter) Format(w io.Writer, iterator chroma.Iterator) error {
	for token := iterator(); token != chroma.EOF; token = iterator() {
		// Lexers may emit a trailing newline token
		value := strings.TrimRight(token.Value, "\n")
		if value == "" {
			continue
		}

		entry := f.style.Get(token.Type)

		var codes []string
		if f.bg != nil {
			codes = append(codes, bgCode(*f.bg))
		}
		if entry.Colour.IsSet() {
			codes = append(codes, fmt.Sprintf("38;2;%d;%d;%d", entry.Colour.Red(), entry.Colour.Green(), entry.Colour.Blue()))
		}
		if entry.Bold == chroma.Yes {
			codes = append(codes, "1")
		}
		if entry.Italic == chroma.Yes {
			codes = append(codes, "3")
		}
		if entry.Underline == chroma.Yes {
			codes = append(codes, "4")
		}

		if len(codes) == 0 {
			fmt.Fprint(w, value)
			continue
		}
		fmt.Fprintf(w, "\x1b[%sm%s\x1b[0m", strings.Join(codes, ";"), value)
	}
	return nil
}

func bgCode(bg [3]int) string {
	return fmt.Sprintf("48;2;%d;%d;%d", bg[0], bg[1], bg[2])
}

const tabWidth = 8

func advanceColumn(col int, r rune) int {
	switch r {
	case '\t':
		return col + (tabWidth - (col % tabWidth))
	case '\n':
		return 0
	}

	width := runewidth.RuneWidth(r)
	if width < 0 {
		width = 0
	}
	return col + width
}

// ANSILen returns the display width of a string, ignoring ANSI codes and
// expanding tabs.
func ANSILen(s string) int {
	col := 0
	for _, r := range ansi.Strip(s) {
		col = advanceColumn(col, r)
	}
	return col
}

// StripANSI removes all ANSI escape codes from a string
func StripANSI(s string) string {
	return ansi.Strip(s)
}
