package edit

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
)

// RetryContext contains context for building a retry prompt after a failed reconstruction.
type RetryContext struct {
	FilePath      string // Path to the file that failed
	FailedSearch  string // The search content that didn't match, if any
	FileContent   string // Original content of the file
	Reason        string // Why reconstruction failed
	PartialOutput string // Diff text received before failure
	AttemptNumber int    // Which retry attempt this is (0 = first try)
}

// NewRetryContext builds a RetryContext from a reconstruction error.
func NewRetryContext(path, content, partialOutput string, err error) RetryContext {
	ctx := RetryContext{
		FilePath:      path,
		FileContent:   content,
		PartialOutput: partialOutput,
	}
	if err != nil {
		ctx.Reason = err.Error()
	}

	var matchErr *MatchError
	var orderErr *OrderError
	switch {
	case errors.As(err, &matchErr):
		ctx.FailedSearch = matchErr.Search
		ctx.Reason = fmt.Sprintf("%v (cursor at offset %d)", ErrMatchNotFound, matchErr.Cursor)
	case errors.As(err, &orderErr):
		ctx.FailedSearch = orderErr.Search
		ctx.Reason = fmt.Sprintf("%v: it matches at offset %d but earlier blocks already consumed the file up to %d",
			ErrOutOfOrderMatch, orderErr.Start, orderErr.Cursor)
	}
	return ctx
}

// BuildRetryPrompt creates a markdown prompt asking the generator to retry
// after a failed reconstruction.
func BuildRetryPrompt(ctx RetryContext) string {
	var sb strings.Builder

	sb.WriteString("Edit failed. Please retry with corrected content.\n\n")

	if ctx.FilePath != "" {
		sb.WriteString(fmt.Sprintf("**File:** %s\n\n", ctx.FilePath))
	}
	sb.WriteString(fmt.Sprintf("**Error:** %s\n\n", firstLine(ctx.Reason)))

	if ctx.FailedSearch != "" {
		sb.WriteString("**Your search block:**\n```\n")
		sb.WriteString(ctx.FailedSearch)
		if !strings.HasSuffix(ctx.FailedSearch, "\n") {
			sb.WriteString("\n")
		}
		sb.WriteString("```\n\n")
	}

	if ctx.FileContent != "" {
		nearby := findNearbyContent(ctx.FileContent, ctx.FailedSearch, 15)
		if nearby != "" {
			sb.WriteString("**Relevant file content:**\n```\n")
			sb.WriteString(nearby)
			if !strings.HasSuffix(nearby, "\n") {
				sb.WriteString("\n")
			}
			sb.WriteString("```\n\n")
		}
	}

	sb.WriteString("Blocks must appear in the order they occur in the file, each wrapped as:\n")
	sb.WriteString("```\n" + SearchMarker + "\n...\n" + SeparatorMarker + "\n...\n" + ReplaceMarker + "\n```\n")
	sb.WriteString("Copy the search text character-for-character, including whitespace and indentation.\n")

	return sb.String()
}

// findNearbyContent finds the portion of the file most relevant to the failed search.
func findNearbyContent(content, search string, contextLines int) string {
	lines := strings.Split(content, "\n")

	closest := FindClosestLines(content, search, 1)
	if len(closest) == 0 {
		return extractLinesWithNumbers(lines, 0, contextLines*2)
	}

	idx := closest[0].LineNum - 1
	return extractLinesWithNumbers(lines, idx-contextLines, idx+contextLines)
}

// extractLinesWithNumbers extracts lines with line numbers (0-indexed input).
func extractLinesWithNumbers(lines []string, start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start >= end {
		return ""
	}

	var sb strings.Builder
	for i := start; i < end; i++ {
		sb.WriteString(fmt.Sprintf("%4d: %s\n", i+1, lines[i]))
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// ClosestLine represents a line from the file that closely matches the search.
type ClosestLine struct {
	LineNum int
	Content string
	Score   int
}

// exactLineScore ranks a substring hit above any fuzzy score.
const exactLineScore = 1 << 20

// FindClosestLines finds the lines in content most similar to the first
// non-blank line of search, best first.
func FindClosestLines(content, search string, maxResults int) []ClosestLine {
	needle := firstNonBlankLine(search)
	if needle == "" || maxResults <= 0 {
		return nil
	}

	lines := strings.Split(content, "\n")
	trimmed := make([]string, len(lines))
	for i, line := range lines {
		trimmed[i] = strings.TrimSpace(line)
	}

	var candidates []ClosestLine
	seen := make(map[int]bool)
	for i, line := range trimmed {
		if line == "" {
			continue
		}
		if strings.Contains(line, needle) || strings.Contains(needle, line) {
			candidates = append(candidates, ClosestLine{LineNum: i + 1, Content: lines[i], Score: exactLineScore})
			seen[i] = true
		}
	}

	for _, m := range fuzzy.Find(needle, trimmed) {
		if seen[m.Index] {
			continue
		}
		candidates = append(candidates, ClosestLine{LineNum: m.Index + 1, Content: lines[m.Index], Score: m.Score})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > maxResults {
		candidates = candidates[:maxResults]
	}
	return candidates
}

func firstNonBlankLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			return t
		}
	}
	return ""
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
