package ui

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	diff "github.com/shogoki/gotextdiff"
)

// DiffOptions controls unified diff rendering.
type DiffOptions struct {
	Color bool // ANSI colors, line numbers and syntax highlighting
	Width int  // pad colored lines to this width so backgrounds fill the row
}

// DiffStat counts changed lines in a unified diff.
type DiffStat struct {
	Added   int
	Removed int
}

func (s DiffStat) String() string {
	return fmt.Sprintf("+%d -%d", s.Added, s.Removed)
}

var hunkRe = regexp.MustCompile(`^@@ -(\d+)(?:,\d+)? \+(\d+)(?:,\d+)? @@`)

// UnifiedDiff returns the plain unified diff between old and new content.
func UnifiedDiff(filePath, oldContent, newContent string) string {
	if oldContent == newContent {
		return ""
	}
	return string(diff.Diff("a/"+filePath, []byte(oldContent), "b/"+filePath, []byte(newContent)))
}

// Stat counts added and removed lines in a unified diff.
func Stat(unified string) DiffStat {
	var st DiffStat
	for _, line := range strings.Split(unified, "\n") {
		switch {
		case strings.HasPrefix(line, "+++ "), strings.HasPrefix(line, "--- "):
		case strings.HasPrefix(line, "+"):
			st.Added++
		case strings.HasPrefix(line, "-"):
			st.Removed++
		}
	}
	return st
}

// WriteUnifiedDiff writes the diff between old and new content to w and
// reports whether there was anything to write.
func WriteUnifiedDiff(w io.Writer, filePath, oldContent, newContent string, opts DiffOptions) (bool, error) {
	unified := UnifiedDiff(filePath, oldContent, newContent)
	if unified == "" {
		return false, nil
	}
	if !opts.Color {
		_, err := io.WriteString(w, unified)
		return true, err
	}

	bw := bufio.NewWriter(w)
	st := NewStylesWithTheme(w, currentTheme)
	fmt.Fprintf(bw, "%s %s %s\n", st.Bold.Render("Edit:"), st.Highlighted.Render(filePath), st.Muted.Render(Stat(unified).String()))

	highlighter := NewHighlighter(filePath)
	theme := currentTheme

	maxLine := strings.Count(oldContent, "\n") + 1
	if n := strings.Count(newContent, "\n") + 1; n > maxLine {
		maxLine = n
	}
	numWidth := len(strconv.Itoa(maxLine))
	if numWidth < 3 {
		numWidth = 3
	}

	var oldLine, newLine, hunks int
	for _, line := range strings.Split(unified, "\n") {
		if line == "" || strings.HasPrefix(line, "diff ") ||
			strings.HasPrefix(line, "--- ") || strings.HasPrefix(line, "+++ ") {
			continue
		}

		content := line[1:]
		switch line[0] {
		case '@':
			if m := hunkRe.FindStringSubmatch(line); m != nil {
				oldLine, _ = strconv.Atoi(m[1])
				newLine, _ = strconv.Atoi(m[2])
			}
			// "..." between hunks, not before the first
			if hunks > 0 {
				fmt.Fprintf(bw, "\x1b[38;2;100;100;100m%s\x1b[0m\n", strings.Repeat(" ", numWidth)+"  ...")
			}
			hunks++

		case '-':
			bg := theme.DiffRemoveBg
			fmt.Fprintf(bw, "\x1b[38;2;160;80;80m%*d- \x1b[0m%s\n", numWidth, oldLine, pad(highlighter.HighlightLine(content, &bg), bg, opts.Width-numWidth-2))
			oldLine++

		case '+':
			bg := theme.DiffAddBg
			fmt.Fprintf(bw, "\x1b[38;2;80;160;80m%*d+ \x1b[0m%s\n", numWidth, newLine, pad(highlighter.HighlightLine(content, &bg), bg, opts.Width-numWidth-2))
			newLine++

		case ' ':
			fmt.Fprintf(bw, "\x1b[38;2;100;100;100m%*d  \x1b[0m%s\n", numWidth, newLine, highlighter.HighlightLine(content, nil))
			oldLine++
			newLine++

		default:
			// "\ No newline at end of file" and anything unexpected
			fmt.Fprintln(bw, st.Muted.Render(line))
		}
	}
	return true, bw.Flush()
}

// pad extends a highlighted line with background-colored spaces up to width.
func pad(s string, bg [3]int, width int) string {
	gap := width - ANSILen(s)
	if gap <= 0 {
		return s
	}
	return s + fmt.Sprintf("\x1b[%sm%s\x1b[0m", bgCode(bg), strings.Repeat(" ", gap))
}
