package edit

import (
	"errors"
	"strings"
	"testing"
)

// block renders one canonical SEARCH/REPLACE block.
func block(search, replace string) string {
	var sb strings.Builder
	sb.WriteString(SearchMarker + "\n")
	if search != "" {
		sb.WriteString(search + "\n")
	}
	sb.WriteString(SeparatorMarker + "\n")
	if replace != "" {
		sb.WriteString(replace + "\n")
	}
	sb.WriteString(ReplaceMarker + "\n")
	return sb.String()
}

func TestReconstruct(t *testing.T) {
	tests := []struct {
		name     string
		original string
		diff     string
		want     string
	}{
		{
			name:     "empty search on empty original inserts",
			original: "",
			diff:     block("", "new content"),
			want:     "new content\n",
		},
		{
			name:     "empty search replaces whole document",
			original: "old content",
			diff:     block("", "new content"),
			want:     "new content\n",
		},
		{
			name:     "exact match",
			original: "line1\nline2\nline3",
			diff:     block("line2", "replaced"),
			want:     "line1\nreplaced\nline3",
		},
		{
			name:     "line trimmed match",
			original: "line1\n line2 \nline3",
			diff:     block("line2", "replaced"),
			want:     "line1\nreplaced\nline3",
		},
		{
			name:     "block anchor exact content",
			original: "line1\nstart\nmiddle\nend\nline5",
			diff:     block("start\nmiddle\nend", "replaced"),
			want:     "line1\nreplaced\nline5",
		},
		{
			name:     "block anchor drifted interior",
			original: "line1\nstart\nsomething else\nend\nline5",
			diff:     block("start\nmiddle\nend", "replaced"),
			want:     "line1\nreplaced\nline5",
		},
		{
			name:     "deletion keeps surrounding newlines",
			original: "line1\nline2\nline3\nline4",
			diff:     block("line4", ""),
			want:     "line1\nline2\nline3\n",
		},
		{
			name:     "multiple blocks in order",
			original: "a\nb\nc\nd\ne\n",
			diff:     block("b", "B") + "\n" + block("d", "D"),
			want:     "a\nB\nc\nD\ne\n",
		},
		{
			name:     "prose around blocks is ignored",
			original: "a\nb\nc\n",
			diff:     "Here is the change:\n\n" + block("b", "B") + "\nDone.\n",
			want:     "a\nB\nc\n",
		},
		{
			name:     "crlf markers",
			original: "a\nb\nc\n",
			diff:     "<<<<<<< SEARCH\r\nb\n=======\r\nB\n>>>>>>> REPLACE\r\n",
			want:     "a\nB\nc\n",
		},
		{
			name:     "no blocks leaves original",
			original: "unchanged\n",
			diff:     "",
			want:     "unchanged\n",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Reconstruct(tc.diff, tc.original, true)
			if err != nil {
				t.Fatalf("Reconstruct returned error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("unexpected content:\nwant: %q\ngot:  %q", tc.want, got)
			}
		})
	}
}

func TestReconstructMatchesManualSplice(t *testing.T) {
	original := "package main\n\nfunc a() {}\n\nfunc b() {}\n\nfunc c() {}\n"
	edits := []struct{ search, replace string }{
		{"func a() {}", "func a() { return }"},
		{"func b() {}", ""},
		{"func c() {}", "func c() {}\n\nfunc d() {}"},
	}

	var diff strings.Builder
	want := original
	offset := 0
	for _, e := range edits {
		diff.WriteString(block(e.search, e.replace))
		diff.WriteString("\n")

		search := e.search + "\n"
		replace := ""
		if e.replace != "" {
			replace = e.replace + "\n"
		}
		idx := strings.Index(want[offset:], search) + offset
		want = want[:idx] + replace + want[idx+len(search):]
		offset = idx + len(replace)
	}

	got, err := Reconstruct(diff.String(), original, true)
	if err != nil {
		t.Fatalf("Reconstruct returned error: %v", err)
	}
	if got != want {
		t.Fatalf("unexpected content:\nwant: %q\ngot:  %q", want, got)
	}
}

func TestReconstructOutOfOrder(t *testing.T) {
	original := "line1\nline2\nline3"
	diff := block("line3", "X") + block("line1", "Y")

	_, err := Reconstruct(diff, original, true)
	if !errors.Is(err, ErrOutOfOrderMatch) {
		t.Fatalf("expected ErrOutOfOrderMatch, got %v", err)
	}
	var orderErr *OrderError
	if !errors.As(err, &orderErr) {
		t.Fatalf("expected *OrderError, got %T", err)
	}
	if orderErr.Start != 0 || orderErr.Cursor != len(original) {
		t.Errorf("got start=%d cursor=%d, want start=0 cursor=%d", orderErr.Start, orderErr.Cursor, len(original))
	}
}

func TestReconstructEmptySearchAfterBlockIsOutOfOrder(t *testing.T) {
	diff := block("b", "B") + block("", "everything")
	_, err := Reconstruct(diff, "a\nb\nc\n", true)
	if !errors.Is(err, ErrOutOfOrderMatch) {
		t.Fatalf("expected ErrOutOfOrderMatch, got %v", err)
	}
}

func TestReconstructNoMatch(t *testing.T) {
	_, err := Reconstruct(block("non-existent", "x"), "line1\nline2\n", true)
	if !errors.Is(err, ErrMatchNotFound) {
		t.Fatalf("expected ErrMatchNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "non-existent") {
		t.Errorf("error %q does not mention the search text", err)
	}
	var matchErr *MatchError
	if !errors.As(err, &matchErr) || matchErr.Search != "non-existent\n" {
		t.Errorf("unexpected match error: %#v", err)
	}
}

func TestReconstructIncompleteStream(t *testing.T) {
	tests := []struct {
		name      string
		diff      string
		wantState State
	}{
		{"stops in search", SearchMarker + "\nline1\n", StateSearching},
		{"stops in replace", SearchMarker + "\nline1\n" + SeparatorMarker + "\nnew\n", StateReplacing},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Reconstruct(tc.diff, "line1\nline2\n", true)
			var incomplete *IncompleteStreamError
			if !errors.As(err, &incomplete) {
				t.Fatalf("expected *IncompleteStreamError, got %v", err)
			}
			if incomplete.State != tc.wantState {
				t.Errorf("state=%s, want %s", incomplete.State, tc.wantState)
			}
			if !errors.Is(err, ErrIncompleteStream) {
				t.Errorf("expected errors.Is ErrIncompleteStream")
			}
		})
	}
}

func TestReconstructNotFinal(t *testing.T) {
	original := "line1\nline2\nline3"
	diff := SearchMarker + "\nline2\n" + SeparatorMarker + "\nrepl"

	got, err := Reconstruct(diff, original, false)
	if err != nil {
		t.Fatalf("Reconstruct returned error: %v", err)
	}
	if want := "line1\nrepl"; got != want {
		t.Fatalf("preview=%q, want %q", got, want)
	}

	// A truncated marker at the end is not shown.
	got, err = Reconstruct(diff+"aced\n>>>>", original, false)
	if err != nil {
		t.Fatalf("Reconstruct returned error: %v", err)
	}
	if want := "line1\nreplaced\n"; got != want {
		t.Fatalf("preview=%q, want %q", got, want)
	}

	// A complete marker without its newline is acted on.
	got, err = Reconstruct(diff+"aced\n"+ReplaceMarker, original, false)
	if err != nil {
		t.Fatalf("Reconstruct returned error: %v", err)
	}
	if want := "line1\nreplaced\n"; got != want {
		t.Fatalf("preview=%q, want %q", got, want)
	}
}

func TestIncrementalEquivalence(t *testing.T) {
	original := "alpha\nbeta\ngamma\ndelta\n"
	diff := block("beta", "BETA\nBETA2") + "\n" + block("delta", "DELTA")

	want, err := Reconstruct(diff, original, true)
	if err != nil {
		t.Fatalf("Reconstruct returned error: %v", err)
	}

	for split := 0; split <= len(diff); split++ {
		r := NewReconstructor(original, ReconstructorConfig{})
		if out, err := r.Process(diff[:split], false); err != nil || out != "" {
			t.Fatalf("split %d: first chunk returned (%q, %v)", split, out, err)
		}
		got, err := r.Process(diff[split:], true)
		if err != nil {
			t.Fatalf("split %d: %v", split, err)
		}
		if got != want {
			t.Fatalf("split %d: unexpected content:\nwant: %q\ngot:  %q", split, want, got)
		}
	}

	r := NewReconstructor(original, ReconstructorConfig{})
	for i := 0; i < len(diff); i++ {
		if err := r.Feed(diff[i : i+1]); err != nil {
			t.Fatalf("byte %d: %v", i, err)
		}
	}
	got, err := r.Finish()
	if err != nil {
		t.Fatalf("Finish returned error: %v", err)
	}
	if got != want {
		t.Fatalf("byte-at-a-time: unexpected content:\nwant: %q\ngot:  %q", want, got)
	}
}

func TestPreviewStreaming(t *testing.T) {
	r := NewReconstructor("a\nb\nc\n", ReconstructorConfig{})

	steps := []struct {
		chunk       string
		wantState   State
		wantResult  string
		wantPreview string
	}{
		{SearchMarker + "\nb\n", StateSearching, "", ""},
		{SeparatorMarker + "\nnew li", StateReplacing, "a\n", "a\nnew li"},
		{"ne\n>>>", StateReplacing, "a\nnew line\n", "a\nnew line\n"},
		{">>>> REPLACE\n", StateIdle, "a\nnew line\n", "a\nnew line\n"},
	}
	for i, step := range steps {
		if err := r.Feed(step.chunk); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if r.State() != step.wantState {
			t.Errorf("step %d: state=%s, want %s", i, r.State(), step.wantState)
		}
		if got := r.Result(); got != step.wantResult {
			t.Errorf("step %d: result=%q, want %q", i, got, step.wantResult)
		}
		if got := r.Preview(); got != step.wantPreview {
			t.Errorf("step %d: preview=%q, want %q", i, got, step.wantPreview)
		}
	}

	if r.Cursor() != 4 {
		t.Errorf("cursor=%d, want 4", r.Cursor())
	}
	got, err := r.Finish()
	if err != nil {
		t.Fatalf("Finish returned error: %v", err)
	}
	if want := "a\nnew line\nc\n"; got != want {
		t.Fatalf("result=%q, want %q", got, want)
	}
}

func TestFeedByteAtATimeLongLine(t *testing.T) {
	long := strings.Repeat("x", 64*1024)
	diff := block("b", long)

	r := NewReconstructor("a\nb\nc\n", ReconstructorConfig{})
	for i := 0; i < len(diff); i++ {
		if err := r.Feed(diff[i : i+1]); err != nil {
			t.Fatalf("byte %d: %v", i, err)
		}
	}
	got, err := r.Finish()
	if err != nil {
		t.Fatalf("Finish returned error: %v", err)
	}
	if want := "a\n" + long + "\nc\n"; got != want {
		t.Fatalf("result has length %d, want %d", len(got), len(want))
	}

	// Extending a carried line must not copy it on every call.
	r = NewReconstructor("a\n", ReconstructorConfig{})
	if err := r.Feed(long); err != nil {
		t.Fatal(err)
	}
	allocs := testing.AllocsPerRun(1000, func() {
		if err := r.Feed("x"); err != nil {
			t.Fatal(err)
		}
	})
	if allocs >= 1 {
		t.Errorf("Feed allocated %.2f times per byte of a carried line", allocs)
	}
}

func TestReconstructorCallbacksAndBlocks(t *testing.T) {
	var matched, completed []Block
	r := NewReconstructor("one\n  two  \nthree\n", ReconstructorConfig{
		Callbacks: ReconstructorCallbacks{
			OnMatch:         func(b Block) { matched = append(matched, b) },
			OnBlockComplete: func(b Block) { completed = append(completed, b) },
		},
	})

	if _, err := r.Process(block("one", "1")+block("two", "2"), true); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	if len(matched) != 2 || len(completed) != 2 {
		t.Fatalf("got %d matches and %d completions, want 2 each", len(matched), len(completed))
	}
	if matched[1].Level != MatchLineTrimmed {
		t.Errorf("second block level=%s, want line-trimmed", matched[1].Level)
	}
	if matched[0].Replace != "" {
		t.Errorf("OnMatch replace=%q, want empty", matched[0].Replace)
	}

	blocks := r.Blocks()
	want := []Block{
		{Search: "one\n", Replace: "1\n", Start: 0, End: 4, Level: MatchExact},
		{Search: "two\n", Replace: "2\n", Start: 4, End: 12, Level: MatchLineTrimmed},
	}
	for i := range want {
		if blocks[i] != want[i] {
			t.Errorf("block[%d] = %+v, want %+v", i, blocks[i], want[i])
		}
		if completed[i] != want[i] {
			t.Errorf("completed[%d] = %+v, want %+v", i, completed[i], want[i])
		}
	}
}

func TestReconstructorHaltsOnError(t *testing.T) {
	r := NewReconstructor("abc\n", ReconstructorConfig{})

	err := r.Feed(block("missing", "x"))
	if !errors.Is(err, ErrMatchNotFound) {
		t.Fatalf("expected ErrMatchNotFound, got %v", err)
	}
	if !r.IsHalted() || r.HaltError() != err {
		t.Fatalf("expected reconstructor to be halted with %v", err)
	}
	if again := r.Feed(block("abc", "x")); again != err {
		t.Errorf("Feed after halt returned %v, want %v", again, err)
	}
	if _, again := r.Finish(); again != err {
		t.Errorf("Finish after halt returned %v, want %v", again, err)
	}
}

func TestReconstructorFinishedRejectsInput(t *testing.T) {
	r := NewReconstructor("abc\n", ReconstructorConfig{})
	first, err := r.Finish()
	if err != nil {
		t.Fatalf("Finish returned error: %v", err)
	}
	second, err := r.Finish()
	if err != nil || second != first {
		t.Fatalf("second Finish returned (%q, %v), want (%q, nil)", second, err, first)
	}
	if err := r.Feed("more"); !errors.Is(err, ErrFinished) {
		t.Fatalf("expected ErrFinished, got %v", err)
	}
	if err := r.ProcessLine("more"); !errors.Is(err, ErrFinished) {
		t.Fatalf("expected ErrFinished, got %v", err)
	}
}

func TestPartialAccessors(t *testing.T) {
	r := NewReconstructor("a\nb\n", ReconstructorConfig{})
	if err := r.Feed(SearchMarker + "\na\n"); err != nil {
		t.Fatalf("Feed returned error: %v", err)
	}
	if got := r.PartialSearch(); got != "a\n" {
		t.Errorf("PartialSearch=%q, want %q", got, "a\n")
	}
	if err := r.Feed(SeparatorMarker + "\nA\n"); err != nil {
		t.Fatalf("Feed returned error: %v", err)
	}
	if got := r.PartialReplace(); got != "A\n" {
		t.Errorf("PartialReplace=%q, want %q", got, "A\n")
	}
}

func TestTransitionTable(t *testing.T) {
	states := []State{StateIdle, StateSearching, StateReplacing}
	allowed := map[[2]State]bool{
		{StateIdle, StateSearching}:      true,
		{StateSearching, StateReplacing}: true,
		{StateReplacing, StateIdle}:      true,
	}

	for _, from := range states {
		for _, to := range states {
			r := NewReconstructor("", ReconstructorConfig{})
			r.state = from
			err := r.transition(to)
			if allowed[[2]State{from, to}] {
				if err != nil {
					t.Errorf("%s -> %s: unexpected error %v", from, to, err)
				}
				if r.state != to {
					t.Errorf("%s -> %s: state=%s", from, to, r.state)
				}
				continue
			}
			var transErr *TransitionError
			if !errors.As(err, &transErr) || !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("%s -> %s: expected *TransitionError, got %v", from, to, err)
			}
			if r.state != from {
				t.Errorf("%s -> %s: state changed to %s", from, to, r.state)
			}
		}
	}
}

func TestPendingLinesAreCapped(t *testing.T) {
	r := NewReconstructor("", ReconstructorConfig{MaxPendingLines: 3})
	for i := 0; i < 10; i++ {
		if err := r.ProcessLine(string(rune('a' + i))); err != nil {
			t.Fatalf("ProcessLine returned error: %v", err)
		}
	}
	if len(r.pending) != 3 {
		t.Fatalf("pending has %d lines, want 3", len(r.pending))
	}
	if got := strings.Join(r.pending, ""); got != "hij" {
		t.Errorf("pending=%q, want the newest lines %q", got, "hij")
	}
}

func TestStateAndMarkerStrings(t *testing.T) {
	if StateIdle.String() != "idle" || StateSearching.String() != "searching" ||
		StateReplacing.String() != "replacing" || State(9).String() != "unknown" {
		t.Error("unexpected State.String output")
	}
	if MarkerSearch.Canonical() != SearchMarker || MarkerSeparator.Canonical() != SeparatorMarker ||
		MarkerReplace.Canonical() != ReplaceMarker || MarkerNone.Canonical() != "" {
		t.Error("unexpected Marker.Canonical output")
	}
}
