package edit

import (
	"regexp"
	"strings"
)

// State is the reconstructor's position within a SEARCH/REPLACE block.
type State int

const (
	StateIdle      State = iota // Between blocks
	StateSearching              // Accumulating search content
	StateReplacing              // Emitting replacement content
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSearching:
		return "searching"
	case StateReplacing:
		return "replacing"
	default:
		return "unknown"
	}
}

// transitions lists the only legal state changes.
var transitions = map[State]State{
	StateIdle:      StateSearching,
	StateSearching: StateReplacing,
	StateReplacing: StateIdle,
}

func canTransition(from, to State) bool {
	next, ok := transitions[from]
	return ok && next == to
}

// Marker identifies one of the three block delimiters.
type Marker int

const (
	MarkerNone Marker = iota
	MarkerSearch
	MarkerSeparator
	MarkerReplace
)

// Canonical marker lines.
const (
	SearchMarker    = "<<<<<<< SEARCH"
	SeparatorMarker = "======="
	ReplaceMarker   = ">>>>>>> REPLACE"
)

func (m Marker) String() string {
	switch m {
	case MarkerSearch:
		return "search"
	case MarkerSeparator:
		return "separator"
	case MarkerReplace:
		return "replace"
	default:
		return "none"
	}
}

// Canonical returns the exact marker line for m.
func (m Marker) Canonical() string {
	switch m {
	case MarkerSearch:
		return SearchMarker
	case MarkerSeparator:
		return SeparatorMarker
	case MarkerReplace:
		return ReplaceMarker
	default:
		return ""
	}
}

// Loosened marker shapes used only while recovering.
var (
	looseSearchRe    = regexp.MustCompile(`^<{3,} SEARCH$`)
	looseSeparatorRe = regexp.MustCompile(`^={3,}$`)
	looseReplaceRe   = regexp.MustCompile(`^>{3,} REPLACE$`)
)

// classifyMarker reports which canonical marker line is, if any.
// Surrounding whitespace (including a trailing \r) is ignored.
func classifyMarker(line string) Marker {
	switch strings.TrimSpace(line) {
	case SearchMarker:
		return MarkerSearch
	case SeparatorMarker:
		return MarkerSeparator
	case ReplaceMarker:
		return MarkerReplace
	}
	return MarkerNone
}

// IsMarkerLine reports whether line would be read as a block marker.
func IsMarkerLine(line string) bool {
	return classifyMarker(line) != MarkerNone
}

// looseMatches reports whether line has the loosened shape of m.
func looseMatches(m Marker, line string) bool {
	trimmed := strings.TrimSpace(line)
	switch m {
	case MarkerSearch:
		return looseSearchRe.MatchString(trimmed)
	case MarkerSeparator:
		return looseSeparatorRe.MatchString(trimmed)
	case MarkerReplace:
		return looseReplaceRe.MatchString(trimmed)
	}
	return false
}

// hasMarkerLead reports whether s starts with a character that begins a marker.
func hasMarkerLead(s string) bool {
	s = strings.TrimLeft(s, " \t")
	if s == "" {
		return false
	}
	switch s[0] {
	case '<', '=', '>':
		return true
	}
	return false
}
