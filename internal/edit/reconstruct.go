package edit

// Reconstruct applies a complete diff to original in a single call.
//
// When isFinal is false the diff is treated as a prefix of a longer stream:
// the result is the preview built so far, an open block is not an error, and
// the untouched tail of the original is not appended.
func Reconstruct(diff, original string, isFinal bool) (string, error) {
	r := NewReconstructor(original, ReconstructorConfig{})
	if err := r.Feed(diff); err != nil {
		return "", err
	}
	if isFinal {
		return r.Finish()
	}

	// A complete marker on the last line is safe to act on even without its
	// newline; anything else that might be a truncated marker stays deferred.
	if classifyMarker(r.partial.String()) != MarkerNone {
		line := r.takePartial()
		if err := r.ProcessLine(line); err != nil {
			return "", err
		}
	}
	return r.Preview(), nil
}
