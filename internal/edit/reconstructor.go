package edit

import (
	"errors"
	"log/slog"
	"strings"
)

// DefaultMaxPendingLines caps the lines buffered for marker recovery.
const DefaultMaxPendingLines = 256

// ErrFinished is returned when input is fed after Finish.
var ErrFinished = errors.New("reconstructor already finished")

// Block is one resolved SEARCH/REPLACE pair and the span it replaced.
type Block struct {
	Search  string     `json:"search"`
	Replace string     `json:"replace"`
	Start   int        `json:"start"`
	End     int        `json:"end"`
	Level   MatchLevel `json:"level"`
}

// ReconstructorCallbacks contains optional hooks invoked while streaming.
type ReconstructorCallbacks struct {
	// OnMatch is called when a search block has been located (at =======).
	// Replace is empty at this point.
	OnMatch func(b Block)

	// OnBlockComplete is called when >>>>>>> REPLACE closes a block.
	OnBlockComplete func(b Block)

	// OnRecover is called when a marker seen in the wrong state was repaired.
	OnRecover func(got Marker, state State)
}

// ReconstructorConfig configures a Reconstructor.
type ReconstructorConfig struct {
	// MaxPendingLines bounds the recovery buffer. Zero means DefaultMaxPendingLines.
	MaxPendingLines int

	// Logger receives debug output. Nil discards it.
	Logger *slog.Logger

	Callbacks ReconstructorCallbacks
}

// Reconstructor rebuilds a document by streaming SEARCH/REPLACE blocks
// over the original content. It is not safe for concurrent use.
type Reconstructor struct {
	original   string
	callbacks  ReconstructorCallbacks
	log        *slog.Logger
	maxPending int

	state  State
	cursor int
	result strings.Builder

	// partial holds an incomplete trailing line until the next chunk.
	partial strings.Builder

	// pending holds unclassified lines while idle, and lines held back from
	// the result while replacing (starting at a loose REPLACE marker).
	pending []string

	searchLines []string
	replace     strings.Builder
	match       Match
	blocks      []Block

	replaying  bool
	recovering bool
	finished   bool
	halted     bool
	haltErr    error
}

// NewReconstructor creates a reconstructor over original.
func NewReconstructor(original string, cfg ReconstructorConfig) *Reconstructor {
	maxPending := cfg.MaxPendingLines
	if maxPending <= 0 {
		maxPending = DefaultMaxPendingLines
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Reconstructor{
		original:   original,
		callbacks:  cfg.Callbacks,
		log:        logger,
		maxPending: maxPending,
		state:      StateIdle,
	}
}

// Feed processes the next chunk of the diff stream. Chunks may split lines
// anywhere; an unterminated trailing line is carried into the next call.
func (r *Reconstructor) Feed(chunk string) error {
	if err := r.checkUsable(); err != nil {
		return err
	}

	for {
		i := strings.IndexByte(chunk, '\n')
		if i < 0 {
			break
		}
		line := chunk[:i]
		chunk = chunk[i+1:]
		if r.partial.Len() > 0 {
			r.partial.WriteString(line)
			line = r.takePartial()
		}
		if err := r.processLine(line); err != nil {
			return r.halt(err)
		}
	}
	r.partial.WriteString(chunk)
	return nil
}

// takePartial returns the carried line and clears it.
func (r *Reconstructor) takePartial() string {
	line := r.partial.String()
	r.partial.Reset()
	return line
}

// Process feeds chunk and, when isFinal is set, finishes the stream. The
// reconstructed content is only returned for the final chunk.
func (r *Reconstructor) Process(chunk string, isFinal bool) (string, error) {
	if err := r.Feed(chunk); err != nil {
		return "", err
	}
	if !isFinal {
		return "", nil
	}
	return r.Finish()
}

// Finish signals that all input has been received and returns the
// reconstructed content.
func (r *Reconstructor) Finish() (string, error) {
	if r.halted {
		return "", r.haltErr
	}
	if r.finished {
		return r.result.String(), nil
	}

	if r.partial.Len() > 0 {
		line := r.takePartial()
		if err := r.processLine(line); err != nil {
			return "", r.halt(err)
		}
	}

	if err := r.finalize(); err != nil {
		return "", r.halt(err)
	}
	r.finished = true
	return r.result.String(), nil
}

// ProcessLine feeds one complete line (without its newline).
func (r *Reconstructor) ProcessLine(line string) error {
	if err := r.checkUsable(); err != nil {
		return err
	}
	if err := r.processLine(line); err != nil {
		return r.halt(err)
	}
	return nil
}

// State returns the current state.
func (r *Reconstructor) State() State {
	return r.state
}

// Cursor returns the offset in the original up to which output is final.
func (r *Reconstructor) Cursor() int {
	return r.cursor
}

// Result returns the output accumulated so far.
func (r *Reconstructor) Result() string {
	return r.result.String()
}

// Preview returns the accumulated output plus the unterminated line currently
// being streamed into a replacement, unless that line could still turn out to
// be a marker.
func (r *Reconstructor) Preview() string {
	partial := r.partial.String()
	if r.finished || r.state != StateReplacing || partial == "" ||
		len(r.pending) > 0 || hasMarkerLead(partial) {
		return r.result.String()
	}
	return r.result.String() + partial
}

// Blocks returns the blocks resolved so far, in document order.
func (r *Reconstructor) Blocks() []Block {
	out := make([]Block, len(r.blocks))
	copy(out, r.blocks)
	return out
}

// PartialSearch returns the search content accumulated so far (for error reporting).
func (r *Reconstructor) PartialSearch() string {
	return joinLines(r.searchLines)
}

// PartialReplace returns the replace content accumulated so far.
func (r *Reconstructor) PartialReplace() string {
	return r.replace.String()
}

// IsHalted returns true if reconstruction stopped on an error.
func (r *Reconstructor) IsHalted() bool {
	return r.halted
}

// HaltError returns the error that halted reconstruction.
func (r *Reconstructor) HaltError() error {
	return r.haltErr
}

func (r *Reconstructor) checkUsable() error {
	if r.halted {
		return r.haltErr
	}
	if r.finished {
		return ErrFinished
	}
	return nil
}

func (r *Reconstructor) halt(err error) error {
	r.halted = true
	r.haltErr = err
	r.log.Debug("reconstruction halted", "state", r.state, "cursor", r.cursor, "error", err)
	return err
}

// processLine classifies one line and dispatches on the current state.
func (r *Reconstructor) processLine(line string) error {
	switch classifyMarker(line) {
	case MarkerSearch:
		return r.onSearch()
	case MarkerSeparator:
		return r.onSeparator()
	case MarkerReplace:
		return r.onReplace()
	}

	switch r.state {
	case StateIdle:
		if !r.replaying {
			r.appendPending(line)
		}
	case StateSearching:
		r.searchLines = append(r.searchLines, line)
	case StateReplacing:
		r.writeReplaceLine(line)
	}
	return nil
}

func (r *Reconstructor) onSearch() error {
	switch r.state {
	case StateReplacing:
		if !r.holdsReplaceEnd() {
			return &MalformedBlockError{Expected: MarkerReplace, Got: MarkerSearch, State: r.state}
		}
		r.noteRecovery(MarkerSearch)
		if err := r.closeHeldBlock(); err != nil {
			return err
		}
	case StateSearching:
		if err := r.recoverUnclosedSearch(); err != nil {
			return err
		}
	}

	if err := r.settlePending(); err != nil {
		return err
	}
	if err := r.transition(StateSearching); err != nil {
		return err
	}
	r.searchLines = r.searchLines[:0]
	r.replace.Reset()
	return nil
}

func (r *Reconstructor) onSeparator() error {
	if r.state == StateReplacing {
		if !r.holdsReplaceEnd() {
			return &MalformedBlockError{Expected: MarkerReplace, Got: MarkerSeparator, State: r.state}
		}
		r.noteRecovery(MarkerSeparator)
		if err := r.closeHeldBlock(); err != nil {
			return err
		}
	}
	if r.state == StateIdle {
		if err := r.recoverSearchStart(); err != nil {
			return err
		}
	}
	return r.beginReplace()
}

func (r *Reconstructor) onReplace() error {
	switch r.state {
	case StateSearching:
		if err := r.recoverMissingSeparator(); err != nil {
			return err
		}
	case StateIdle:
		if err := r.recoverIdleBlock(r.pending, MarkerReplace); err != nil {
			return err
		}
	}
	return r.closeBlock()
}

// beginReplace resolves the accumulated search content against the original
// and emits the untouched text between the cursor and the match.
func (r *Reconstructor) beginReplace() error {
	if err := r.transition(StateReplacing); err != nil {
		return err
	}

	search := joinLines(r.searchLines)
	m, err := r.resolve(search)
	if err != nil {
		return err
	}

	r.match = m
	r.result.WriteString(r.original[r.cursor:m.Start])
	r.replace.Reset()

	r.log.Debug("search block matched", "level", m.Level, "start", m.Start, "end", m.End)
	if r.callbacks.OnMatch != nil {
		r.callbacks.OnMatch(Block{Search: search, Start: m.Start, End: m.End, Level: m.Level})
	}
	return nil
}

func (r *Reconstructor) resolve(search string) (Match, error) {
	var m Match
	if search == "" {
		// Empty search: insertion into an empty document, otherwise a
		// whole-document replacement.
		m = Match{Start: 0, End: len(r.original), Level: MatchExact}
	} else {
		var ok bool
		m, ok = FindMatch(r.original, search, r.cursor)
		if !ok {
			if earlier, found := FindMatch(r.original, search, 0); found && earlier.Start < r.cursor {
				return Match{}, &OrderError{Search: search, Start: earlier.Start, Cursor: r.cursor}
			}
			return Match{}, &MatchError{Search: search, Cursor: r.cursor}
		}
	}
	if m.Start < r.cursor {
		return Match{}, &OrderError{Search: search, Start: m.Start, Cursor: r.cursor}
	}
	return m, nil
}

// closeBlock ends the current block and advances the cursor past its match.
func (r *Reconstructor) closeBlock() error {
	if len(r.pending) > 0 {
		r.flushHeld()
	}
	if err := r.transition(StateIdle); err != nil {
		return err
	}

	b := Block{
		Search:  joinLines(r.searchLines),
		Replace: r.replace.String(),
		Start:   r.match.Start,
		End:     r.match.End,
		Level:   r.match.Level,
	}
	r.blocks = append(r.blocks, b)
	r.cursor = r.match.End

	r.searchLines = r.searchLines[:0]
	r.replace.Reset()
	r.match = Match{}

	if r.callbacks.OnBlockComplete != nil {
		r.callbacks.OnBlockComplete(b)
	}
	return nil
}

// writeReplaceLine streams a replacement line into the result. A line shaped
// like a malformed REPLACE marker starts a hold: it and everything after it
// stay out of the result until the hold is resolved one way or the other.
func (r *Reconstructor) writeReplaceLine(line string) {
	if len(r.pending) == 0 {
		if looseMatches(MarkerReplace, line) {
			r.pending = append(r.pending, line)
			return
		}
		r.emitReplace(line)
		return
	}

	r.pending = append(r.pending, line)
	if len(r.pending) > r.maxPending {
		r.flushHeld()
	}
}

func (r *Reconstructor) emitReplace(line string) {
	r.replace.WriteString(line)
	r.replace.WriteByte('\n')
	r.result.WriteString(line)
	r.result.WriteByte('\n')
}

func (r *Reconstructor) flushHeld() {
	held := r.pending
	r.pending = nil
	for _, line := range held {
		r.emitReplace(line)
	}
}

// appendPending buffers an idle line, dropping the oldest past the cap.
func (r *Reconstructor) appendPending(line string) {
	if len(r.pending) >= r.maxPending {
		copy(r.pending, r.pending[1:])
		r.pending = r.pending[:len(r.pending)-1]
	}
	r.pending = append(r.pending, line)
}

func (r *Reconstructor) transition(to State) error {
	if !canTransition(r.state, to) {
		return &TransitionError{From: r.state, To: to}
	}
	r.log.Debug("state transition", "from", r.state, "to", to)
	r.state = to
	return nil
}

func (r *Reconstructor) finalize() error {
	if r.state == StateReplacing && r.holdsReplaceEnd() {
		r.noteRecovery(MarkerReplace)
		if err := r.closeHeldBlock(); err != nil {
			return err
		}
	}
	if r.state != StateIdle {
		return &IncompleteStreamError{State: r.state}
	}
	if err := r.settlePending(); err != nil {
		return err
	}
	r.result.WriteString(r.original[r.cursor:])
	return nil
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
