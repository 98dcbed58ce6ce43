package edit

import "strings"

// MatchLevel records which matching tier located a search block.
type MatchLevel int

const (
	MatchExact       MatchLevel = iota // Byte-for-byte substring
	MatchLineTrimmed                   // Every line equal after trimming whitespace
	MatchBlockAnchor                   // First and last lines equal after trimming
)

func (l MatchLevel) String() string {
	switch l {
	case MatchExact:
		return "exact"
	case MatchLineTrimmed:
		return "line-trimmed"
	case MatchBlockAnchor:
		return "block-anchor"
	default:
		return "unknown"
	}
}

func (l MatchLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// Match is a half-open byte range [Start, End) in the original document.
type Match struct {
	Start int
	End   int
	Level MatchLevel
}

// blockAnchorMinLines is the smallest search block the anchor tier will try.
const blockAnchorMinLines = 3

// FindMatch locates search in original, trying the exact, line-trimmed and
// block-anchor tiers in that order. The first tier to succeed wins.
//
// The exact tier searches from the byte offset from. The line tiers scan
// whole lines starting with the line that contains from, so a line match
// can start before from; callers treat such a match as out of order.
func FindMatch(original, search string, from int) (Match, bool) {
	if from < 0 {
		from = 0
	}
	if from > len(original) {
		return Match{}, false
	}

	if idx := strings.Index(original[from:], search); idx >= 0 {
		start := from + idx
		return Match{Start: start, End: start + len(search), Level: MatchExact}, true
	}

	originalLines := strings.Split(original, "\n")
	searchLines := splitSearchLines(search)
	if len(searchLines) == 0 {
		return Match{}, false
	}
	startLine := lineContaining(originalLines, from)

	if start, end, ok := lineTrimmedMatch(original, originalLines, searchLines, startLine); ok {
		return Match{Start: start, End: end, Level: MatchLineTrimmed}, true
	}

	if len(searchLines) >= blockAnchorMinLines {
		if start, end, ok := blockAnchorMatch(original, originalLines, searchLines, startLine); ok {
			return Match{Start: start, End: end, Level: MatchBlockAnchor}, true
		}
	}

	return Match{}, false
}

// ApplyMatch replaces the matched span of content with replace.
func ApplyMatch(content string, m Match, replace string) string {
	return content[:m.Start] + replace + content[m.End:]
}

// splitSearchLines splits search into lines, dropping the single empty line
// produced by a terminating newline.
func splitSearchLines(search string) []string {
	lines := strings.Split(search, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// lineContaining returns the index of the line that contains offset.
func lineContaining(lines []string, offset int) int {
	pos := 0
	for i, line := range lines {
		next := pos + len(line) + 1
		if offset < next {
			return i
		}
		pos = next
	}
	return len(lines)
}

func lineTrimmedMatch(original string, originalLines, searchLines []string, startLine int) (int, int, bool) {
	for i := startLine; i <= len(originalLines)-len(searchLines); i++ {
		matched := true
		for j, want := range searchLines {
			if strings.TrimSpace(originalLines[i+j]) != strings.TrimSpace(want) {
				matched = false
				break
			}
		}
		if matched {
			start, end := lineSpan(original, originalLines, i, len(searchLines))
			return start, end, true
		}
	}
	return 0, 0, false
}

// blockAnchorMatch compares only the first and last lines of a window the
// size of the search block; interior lines are not checked.
func blockAnchorMatch(original string, originalLines, searchLines []string, startLine int) (int, int, bool) {
	first := strings.TrimSpace(searchLines[0])
	last := strings.TrimSpace(searchLines[len(searchLines)-1])
	size := len(searchLines)

	for i := startLine; i <= len(originalLines)-size; i++ {
		if strings.TrimSpace(originalLines[i]) != first {
			continue
		}
		if strings.TrimSpace(originalLines[i+size-1]) != last {
			continue
		}
		start, end := lineSpan(original, originalLines, i, size)
		return start, end, true
	}
	return 0, 0, false
}

// lineSpan converts a run of count lines starting at line first into a byte
// range that includes each line's newline. The end is clamped when the final
// line of the document has no newline.
func lineSpan(original string, lines []string, first, count int) (int, int) {
	start := 0
	for k := 0; k < first; k++ {
		start += len(lines[k]) + 1
	}
	end := start
	for k := 0; k < count; k++ {
		end += len(lines[first+k]) + 1
	}
	if end > len(original) {
		end = len(original)
	}
	return start, end
}
