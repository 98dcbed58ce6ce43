package edit

import "testing"

func TestFindMatch(t *testing.T) {
	tests := []struct {
		name      string
		original  string
		search    string
		from      int
		wantOK    bool
		wantStart int
		wantEnd   int
		wantLevel MatchLevel
	}{
		{
			name:      "exact",
			original:  "alpha\nbeta\ngamma\n",
			search:    "beta\n",
			wantOK:    true,
			wantStart: 6, wantEnd: 11, wantLevel: MatchExact,
		},
		{
			name:      "exact respects from",
			original:  "a\nb\na\n",
			search:    "a\n",
			from:      1,
			wantOK:    true,
			wantStart: 4, wantEnd: 6, wantLevel: MatchExact,
		},
		{
			name:      "line trimmed",
			original:  "line1\n line2 \nline3",
			search:    "line2\n",
			wantOK:    true,
			wantStart: 6, wantEnd: 14, wantLevel: MatchLineTrimmed,
		},
		{
			name:      "line trimmed clamps at end of document",
			original:  "line1\n  line4",
			search:    "line4\n",
			wantOK:    true,
			wantStart: 6, wantEnd: 13, wantLevel: MatchLineTrimmed,
		},
		{
			name:      "line trimmed moves past non-matching line containing from",
			original:  "x foo\nfoo\n",
			search:    " foo\n",
			from:      2,
			wantOK:    true,
			wantStart: 6, wantEnd: 10, wantLevel: MatchLineTrimmed,
		},
		{
			name:      "line trimmed scans line containing from",
			original:  " foo\nbar\n",
			search:    "foo \n",
			from:      2,
			wantOK:    true,
			wantStart: 0, wantEnd: 5, wantLevel: MatchLineTrimmed,
		},
		{
			name:      "block anchor ignores interior",
			original:  "func a() {\n\tx := 1\n\treturn x\n}\n",
			search:    "func a() {\n\ty := 2\n\treturn x\n}\n",
			wantOK:    true,
			wantStart: 0, wantEnd: 31, wantLevel: MatchBlockAnchor,
		},
		{
			name:     "block anchor needs three lines",
			original: "start\nmid\nend",
			search:   "start\nend\n",
			wantOK:   false,
		},
		{
			name:     "no match",
			original: "line1\nline2",
			search:   "non-existent\n",
			wantOK:   false,
		},
		{
			name:     "from past end",
			original: "abc",
			search:   "a",
			from:     10,
			wantOK:   false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, ok := FindMatch(tc.original, tc.search, tc.from)
			if ok != tc.wantOK {
				t.Fatalf("ok=%v, want %v (match %+v)", ok, tc.wantOK, m)
			}
			if !ok {
				return
			}
			if m.Start != tc.wantStart || m.End != tc.wantEnd || m.Level != tc.wantLevel {
				t.Errorf("got [%d,%d) %s, want [%d,%d) %s",
					m.Start, m.End, m.Level, tc.wantStart, tc.wantEnd, tc.wantLevel)
			}
		})
	}
}

func TestFindMatchPrecedence(t *testing.T) {
	// The trimmed form appears first, the exact form later: exact wins.
	original := "  target  \nother\ntarget\n"
	m, ok := FindMatch(original, "target\n", 0)
	if !ok {
		t.Fatal("expected a match")
	}
	if m.Level != MatchExact || m.Start != 17 {
		t.Fatalf("got start=%d level=%s, want start=17 level=exact", m.Start, m.Level)
	}

	// No exact form: the trimmed tier beats the anchor tier.
	// The anchors alone would accept the first brace pair.
	original = "{\nBODY\n}\n{\n  body  \n}\n"
	m, ok = FindMatch(original, "{\nbody\n}\n", 0)
	if !ok {
		t.Fatal("expected a line-trimmed match")
	}
	if m.Level != MatchLineTrimmed || m.Start != 9 {
		t.Fatalf("got start=%d level=%s, want start=9 level=line-trimmed", m.Start, m.Level)
	}

	// Only the anchor tier accepts a drifted interior.
	m, ok = FindMatch(original, "{\nbody changed\n}\n", 0)
	if !ok {
		t.Fatal("expected a block-anchor match")
	}
	if m.Level != MatchBlockAnchor || m.Start != 0 {
		t.Fatalf("got start=%d level=%s, want start=0 level=block-anchor", m.Start, m.Level)
	}
}

func TestApplyMatch(t *testing.T) {
	content := "alpha\nbeta\ngamma\n"
	m, ok := FindMatch(content, "beta\n", 0)
	if !ok {
		t.Fatal("expected a match")
	}
	got := ApplyMatch(content, m, "BETA\n")
	want := "alpha\nBETA\ngamma\n"
	if got != want {
		t.Fatalf("unexpected content:\nwant: %q\ngot:  %q", want, got)
	}
}

func TestMatchLevelString(t *testing.T) {
	for level, want := range map[MatchLevel]string{
		MatchExact:       "exact",
		MatchLineTrimmed: "line-trimmed",
		MatchBlockAnchor: "block-anchor",
		MatchLevel(42):   "unknown",
	} {
		if got := level.String(); got != want {
			t.Errorf("MatchLevel(%d).String() = %q, want %q", int(level), got, want)
		}
	}
}
