package edit

import (
	"fmt"
	"strings"
)

// Marker recovery. Each repair is one backward scan for the nearest loosely
// shaped marker followed by one forward replay of the buffered lines, with
// the marker rewritten to its canonical form. Replayed lines are never
// buffered again, and a replay cannot start another recovery.

// holdsReplaceEnd reports whether the replacement being streamed is being
// held back behind a loose REPLACE marker.
func (r *Reconstructor) holdsReplaceEnd() bool {
	return r.state == StateReplacing && len(r.pending) > 0 && looseMatches(MarkerReplace, r.pending[0])
}

// closeHeldBlock treats the held loose REPLACE marker as the end of the
// current block. Lines held after it become idle pending lines.
func (r *Reconstructor) closeHeldBlock() error {
	rest := append([]string(nil), r.pending[1:]...)
	r.pending = nil
	if err := r.closeBlock(); err != nil {
		return err
	}
	for _, line := range rest {
		r.appendPending(line)
	}
	return nil
}

// settlePending disposes of the idle buffer before a new block starts or the
// stream ends. If the buffer ends in a loose REPLACE marker it holds a whole
// block whose markers were all malformed; that block is recovered and closed.
// A loose REPLACE with no loose separator and SEARCH before it is a stray
// line, and like any other text between blocks it is discarded.
func (r *Reconstructor) settlePending() error {
	lines := trimTrailingBlank(r.pending)
	if len(lines) == 0 || !looseMatches(MarkerReplace, lines[len(lines)-1]) {
		r.pending = nil
		return nil
	}
	body := lines[:len(lines)-1]
	sep := lastLooseIndex(body, MarkerSeparator, len(body))
	if sep < 0 || lastLooseIndex(body, MarkerSearch, sep) < 0 {
		r.log.Debug("discarding stray REPLACE marker", "lines", len(r.pending))
		r.pending = nil
		return nil
	}
	if err := r.recoverIdleBlock(body, MarkerReplace); err != nil {
		return err
	}
	return r.closeBlock()
}

// recoverSearchStart handles ======= while idle: the SEARCH marker must be
// somewhere in the pending lines.
func (r *Reconstructor) recoverSearchStart() error {
	lines := r.pending
	start := lastLooseIndex(lines, MarkerSearch, len(lines))
	if start < 0 {
		return &MalformedBlockError{Expected: MarkerSearch, Got: MarkerSeparator, State: StateIdle}
	}

	replay := make([]string, 0, len(lines)-start)
	replay = append(replay, SearchMarker)
	replay = append(replay, lines[start+1:]...)
	r.noteRecovery(MarkerSeparator)
	return r.replay(replay)
}

// recoverIdleBlock handles a block end while idle: both the separator and,
// before it, the SEARCH marker must be found in lines. On success the
// reconstructor is left replacing, ready for the block to be closed.
func (r *Reconstructor) recoverIdleBlock(lines []string, got Marker) error {
	sep := lastLooseIndex(lines, MarkerSeparator, len(lines))
	if sep < 0 {
		return &MalformedBlockError{Expected: MarkerSeparator, Got: got, State: StateIdle}
	}
	start := lastLooseIndex(lines, MarkerSearch, sep)
	if start < 0 {
		return &MalformedBlockError{Expected: MarkerSearch, Got: got, State: StateIdle}
	}

	replay := make([]string, 0, len(lines)-start)
	replay = append(replay, SearchMarker)
	replay = append(replay, lines[start+1:sep]...)
	replay = append(replay, SeparatorMarker)
	replay = append(replay, lines[sep+1:]...)
	r.noteRecovery(got)
	return r.replay(replay)
}

// recoverMissingSeparator handles >>>>>>> REPLACE while searching: the
// separator was malformed and ended up inside the search content.
func (r *Reconstructor) recoverMissingSeparator() error {
	sep := lastLooseIndex(r.searchLines, MarkerSeparator, len(r.searchLines))
	if sep < 0 {
		return &MalformedBlockError{Expected: MarkerSeparator, Got: MarkerReplace, State: StateSearching}
	}

	replay := make([]string, 0, len(r.searchLines)-sep)
	replay = append(replay, SeparatorMarker)
	replay = append(replay, r.searchLines[sep+1:]...)
	r.searchLines = r.searchLines[:sep]
	r.noteRecovery(MarkerReplace)
	return r.replay(replay)
}

// recoverUnclosedSearch handles <<<<<<< SEARCH while searching: the previous
// block's separator and REPLACE marker were both malformed. The block is
// split at them and closed; text after the loose REPLACE is dropped.
func (r *Reconstructor) recoverUnclosedSearch() error {
	end := lastLooseIndex(r.searchLines, MarkerReplace, len(r.searchLines))
	if end < 0 {
		return &MalformedBlockError{Expected: MarkerReplace, Got: MarkerSearch, State: StateSearching}
	}
	sep := lastLooseIndex(r.searchLines, MarkerSeparator, end)
	if sep < 0 {
		return &MalformedBlockError{Expected: MarkerSeparator, Got: MarkerSearch, State: StateSearching}
	}

	replay := make([]string, 0, end-sep+1)
	replay = append(replay, SeparatorMarker)
	replay = append(replay, r.searchLines[sep+1:end]...)
	replay = append(replay, ReplaceMarker)
	r.searchLines = r.searchLines[:sep]
	r.noteRecovery(MarkerSearch)
	return r.replay(replay)
}

// replay feeds reconstructed lines back through the line processor.
func (r *Reconstructor) replay(lines []string) error {
	if r.recovering {
		return fmt.Errorf("%w: nested marker recovery", ErrMalformedBlock)
	}
	r.recovering = true
	r.replaying = true
	defer func() {
		r.recovering = false
		r.replaying = false
	}()

	r.pending = nil
	for _, line := range lines {
		if err := r.processLine(line); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reconstructor) noteRecovery(got Marker) {
	r.log.Debug("recovered malformed SEARCH/REPLACE marker", "marker", got, "state", r.state)
	if r.callbacks.OnRecover != nil {
		r.callbacks.OnRecover(got, r.state)
	}
}

// lastLooseIndex scans lines[:limit] backward for the nearest line loosely
// shaped like m. It returns -1 if there is none.
func lastLooseIndex(lines []string, m Marker, limit int) int {
	if limit > len(lines) {
		limit = len(lines)
	}
	for i := limit - 1; i >= 0; i-- {
		if looseMatches(m, lines[i]) {
			return i
		}
	}
	return -1
}

func trimTrailingBlank(lines []string) []string {
	end := len(lines)
	for end > 0 && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return lines[:end]
}
