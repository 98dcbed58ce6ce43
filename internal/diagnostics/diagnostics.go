package diagnostics

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/samsaffron/diffstream/internal/edit"
)

// ReconstructFailure contains diagnostic data for a diff that could not be applied.
type ReconstructFailure struct {
	Timestamp time.Time `json:"timestamp"`
	FilePath  string    `json:"file_path"`
	Kind      string    `json:"kind"`
	Reason    string    `json:"reason"`
	State     string    `json:"state"`
	Cursor    int       `json:"cursor"`

	// Full context
	Diff          string       `json:"diff"`                    // diff text received before failure
	FailedSearch  string       `json:"failed_search,omitempty"` // for match and ordering failures
	AppliedBlocks []edit.Block `json:"applied_blocks,omitempty"`
	Recoveries    []string     `json:"recoveries,omitempty"` // markers repaired before failure
	FileContent   string       `json:"file_content"`         // original file state
}

// NewReconstructFailure fills a failure record from the reconstructor state
// at the point err halted it.
func NewReconstructFailure(path, original, diff string, r *edit.Reconstructor, err error) *ReconstructFailure {
	retry := edit.NewRetryContext(path, original, diff, err)
	f := &ReconstructFailure{
		Timestamp:    time.Now(),
		FilePath:     path,
		Kind:         Kind(err),
		Reason:       retry.Reason,
		Diff:         diff,
		FailedSearch: retry.FailedSearch,
		FileContent:  original,
	}
	if r != nil {
		f.State = r.State().String()
		f.Cursor = r.Cursor()
		f.AppliedBlocks = r.Blocks()
		if f.FailedSearch == "" {
			f.FailedSearch = r.PartialSearch()
		}
	}
	return f
}

// Kind names the failure class of a reconstruction error.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, edit.ErrMatchNotFound):
		return "match_not_found"
	case errors.Is(err, edit.ErrOutOfOrderMatch):
		return "out_of_order"
	case errors.Is(err, edit.ErrMalformedBlock):
		return "malformed_block"
	case errors.Is(err, edit.ErrIncompleteStream):
		return "incomplete_stream"
	case errors.Is(err, edit.ErrInvalidTransition):
		return "invalid_transition"
	default:
		return "other"
	}
}

// WriteReconstructFailure writes diagnostic data for a failed reconstruction.
// Creates both a JSON file and a human-readable markdown file, and returns
// the path of the markdown file.
func WriteReconstructFailure(dir string, f *ReconstructFailure) (string, error) {
	// Ensure directory exists
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create diagnostics directory: %w", err)
	}

	ts := f.Timestamp.Format("2006-01-02T15-04-05.000")
	baseName := fmt.Sprintf("reconstruct-%s", ts)

	jsonPath := filepath.Join(dir, baseName+".json")
	if err := writeJSON(jsonPath, f); err != nil {
		return "", err
	}

	mdPath := filepath.Join(dir, baseName+".md")
	if err := os.WriteFile(mdPath, []byte(Markdown(f)), 0600); err != nil {
		return "", fmt.Errorf("failed to write diagnostics markdown: %w", err)
	}
	return mdPath, nil
}

func writeJSON(path string, f *ReconstructFailure) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal diagnostics: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write diagnostics JSON: %w", err)
	}
	return nil
}

// Markdown renders f as a human-readable report.
func Markdown(f *ReconstructFailure) string {
	var b strings.Builder

	b.WriteString("# Reconstruction Failure\n\n")
	b.WriteString(fmt.Sprintf("**Timestamp:** %s\n", f.Timestamp.Format(time.RFC3339)))
	b.WriteString(fmt.Sprintf("**File:** %s\n", f.FilePath))
	b.WriteString(fmt.Sprintf("**Kind:** %s\n", f.Kind))
	b.WriteString(fmt.Sprintf("**State:** %s (cursor %d)\n", f.State, f.Cursor))
	b.WriteString(fmt.Sprintf("**Reason:** %s\n", firstLine(f.Reason)))
	b.WriteString("\n---\n\n")

	if f.FailedSearch != "" {
		b.WriteString("## Failed Search Block\n\n")
		writeFence(&b, "", f.FailedSearch)
		b.WriteString("---\n\n")
	}

	if len(f.AppliedBlocks) > 0 {
		b.WriteString("## Applied Blocks\n\n")
		for i, blk := range f.AppliedBlocks {
			b.WriteString(fmt.Sprintf("%d. bytes %d-%d, %s match\n", i+1, blk.Start, blk.End, blk.Level))
		}
		b.WriteString("\n---\n\n")
	}

	if len(f.Recoveries) > 0 {
		b.WriteString("## Recovered Markers\n\n")
		for _, r := range f.Recoveries {
			b.WriteString("- " + r + "\n")
		}
		b.WriteString("\n---\n\n")
	}

	b.WriteString("## Diff (partial)\n\n")
	writeFence(&b, "text", f.Diff)
	b.WriteString("---\n\n")

	b.WriteString("## File Content\n\n")
	writeFence(&b, fenceLanguage(f.FilePath), f.FileContent)

	return b.String()
}

func writeFence(b *strings.Builder, lang, body string) {
	b.WriteString("```" + lang + "\n")
	b.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("```\n\n")
}

// fenceLanguage picks a code fence language hint from the file name.
func fenceLanguage(path string) string {
	lexer := lexers.Match(filepath.Base(path))
	if lexer == nil {
		return ""
	}
	if aliases := lexer.Config().Aliases; len(aliases) > 0 {
		return aliases[0]
	}
	return strings.ToLower(lexer.Config().Name)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
