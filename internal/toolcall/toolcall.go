// Package toolcall turns editor tool calls (str_replace, insert, create) into
// SEARCH/REPLACE diffs and applies them with the reconstruction engine.
package toolcall

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samsaffron/diffstream/internal/edit"
)

// Command names an editor tool command.
type Command string

const (
	CommandView       Command = "view"
	CommandCreate     Command = "create"
	CommandRewrite    Command = "rewrite"
	CommandStrReplace Command = "str_replace"
	CommandInsert     Command = "insert"
)

var (
	ErrUnknownCommand  = errors.New("unknown command")
	ErrInvalidCall     = errors.New("invalid tool call")
	ErrLineOutOfRange  = errors.New("insert line out of range")
	ErrReadOnlyCommand = errors.New("command does not modify the file")
	ErrNotUnique       = errors.New("old_str is not unique")
	ErrUnrepresentable = errors.New("text contains a SEARCH/REPLACE marker line")
)

// Call is a decoded editor tool call.
type Call struct {
	Command    Command
	Path       string
	OldStr     string
	NewStr     string
	InsertLine int // 1-based line to insert after; 0 inserts at the top
	FileText   string
}

// Validate checks that the fields the command needs are present.
func (c Call) Validate() error {
	switch c.Command {
	case CommandStrReplace:
		if c.OldStr == "" {
			return fmt.Errorf("%w: str_replace requires old_str", ErrInvalidCall)
		}
	case CommandInsert:
		if c.InsertLine < 0 {
			return fmt.Errorf("%w: %d", ErrLineOutOfRange, c.InsertLine)
		}
	case CommandCreate, CommandRewrite, CommandView:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, c.Command)
	}
	return nil
}

// StrReplace builds one SEARCH/REPLACE block that replaces old with new.
// A single trailing newline on either side is absorbed by the block format.
func StrReplace(old, new string) string {
	var sb strings.Builder
	sb.WriteString(edit.SearchMarker + "\n")
	writeBody(&sb, old)
	sb.WriteString(edit.SeparatorMarker + "\n")
	writeBody(&sb, new)
	sb.WriteString(edit.ReplaceMarker + "\n")
	return sb.String()
}

func writeBody(sb *strings.Builder, s string) {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return
	}
	sb.WriteString(s)
	sb.WriteByte('\n')
}

// Insert builds one SEARCH/REPLACE block that inserts text after the given
// 1-based line of original, or at the top when line is 0.
//
// The block anchors on the target line and widens upward until the engine
// would locate the anchor at the intended position, so a duplicated line
// earlier in the file cannot capture the insertion.
func Insert(original string, line int, text string) (string, error) {
	var inserted []string
	if text = strings.TrimSuffix(text, "\n"); text != "" {
		inserted = strings.Split(text, "\n")
	}

	if original == "" {
		if line != 0 {
			return "", fmt.Errorf("%w: line %d of empty file", ErrLineOutOfRange, line)
		}
		return buildBlock(nil, inserted), nil
	}

	lines := strings.Split(strings.TrimSuffix(original, "\n"), "\n")
	if line < 0 || line > len(lines) {
		return "", fmt.Errorf("%w: line %d, file has %d lines", ErrLineOutOfRange, line, len(lines))
	}

	if line == 0 {
		anchor := lines[:1]
		if err := checkRepresentable(anchor...); err != nil {
			return "", err
		}
		return buildBlock(anchor, append(append([]string(nil), inserted...), anchor...)), nil
	}

	for start := line - 1; start >= 0; start-- {
		anchor := lines[start:line]
		m, ok := edit.FindMatch(original, strings.Join(anchor, "\n")+"\n", 0)
		if !ok || m.Start != lineOffset(lines, start) {
			continue
		}
		if err := checkRepresentable(anchor...); err != nil {
			return "", err
		}
		return buildBlock(anchor, append(append([]string(nil), anchor...), inserted...)), nil
	}
	// Unreachable: the full prefix always matches at offset 0.
	return "", fmt.Errorf("%w: no anchor for line %d", ErrInvalidCall, line)
}

// buildBlock writes a block from explicit lines; blank lines are kept.
func buildBlock(search, replace []string) string {
	var sb strings.Builder
	sb.WriteString(edit.SearchMarker + "\n")
	for _, l := range search {
		sb.WriteString(l + "\n")
	}
	sb.WriteString(edit.SeparatorMarker + "\n")
	for _, l := range replace {
		sb.WriteString(l + "\n")
	}
	sb.WriteString(edit.ReplaceMarker + "\n")
	return sb.String()
}

func lineOffset(lines []string, idx int) int {
	off := 0
	for i := 0; i < idx; i++ {
		off += len(lines[i]) + 1
	}
	return off
}

// Diff converts a modifying call into SEARCH/REPLACE text against original.
func Diff(call Call, original string) (string, error) {
	if err := call.Validate(); err != nil {
		return "", err
	}

	var diff string
	switch call.Command {
	case CommandStrReplace:
		if n := strings.Count(original, call.OldStr); n > 1 {
			return "", fmt.Errorf("%w: %d occurrences", ErrNotUnique, n)
		}
		diff = StrReplace(call.OldStr, call.NewStr)
	case CommandInsert:
		var err error
		if diff, err = Insert(original, call.InsertLine, call.NewStr); err != nil {
			return "", err
		}
	case CommandView:
		return "", ErrReadOnlyCommand
	default:
		return "", fmt.Errorf("%w: %s replaces the whole file", ErrInvalidCall, call.Command)
	}

	if err := checkRepresentable(call.OldStr, call.NewStr); err != nil {
		return "", err
	}
	return diff, nil
}

// Apply executes call against original and returns the new content.
// create and rewrite return file_text as is; view is rejected.
func Apply(call Call, original string) (string, error) {
	if err := call.Validate(); err != nil {
		return "", err
	}
	switch call.Command {
	case CommandCreate, CommandRewrite:
		return call.FileText, nil
	case CommandView:
		return "", ErrReadOnlyCommand
	}

	diff, err := Diff(call, original)
	if err != nil {
		return "", err
	}
	return edit.Reconstruct(diff, original, true)
}

// checkRepresentable rejects text that the block parser would read as a marker.
func checkRepresentable(texts ...string) error {
	for _, text := range texts {
		for _, line := range strings.Split(text, "\n") {
			if edit.IsMarkerLine(line) {
				return fmt.Errorf("%w: %q", ErrUnrepresentable, strings.TrimSpace(line))
			}
		}
	}
	return nil
}
