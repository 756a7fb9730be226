package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/skillmint/regsync/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalName(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{"plain", "AI Bootcamp", "AI Bootcamp"},
		{"surrounding whitespace", "  AI Bootcamp  ", "AI Bootcamp"},
		{"collapses internal runs", "AI   Bootcamp\t2026", "AI Bootcamp 2026"},
		{"strips hostile characters", `Intro: "Go" [Live] / Q&A?`, "Intro Go Live Q&A"},
		{"caps length", "x" + repeat("y", 200), "x" + repeat("y", 79)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CanonicalName(tt.in))
		})
	}
}

func repeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "ai-bootcamp", Slug("AI Bootcamp"))
	assert.Equal(t, "intro-to-go-live", Slug("  Intro to Go (Live)!  "))
	assert.Equal(t, "", Slug("***"))
}

func TestNormalizeKeyFoldsCase(t *testing.T) {
	assert.Equal(t, NormalizeKey("AI Bootcamp"), NormalizeKey("  ai   bootcamp "))
}

func TestLookupCandidatesOrderAndDedup(t *testing.T) {
	candidates := LookupCandidates("  AI   Bootcamp ")
	require.Equal(t, []string{"AI Bootcamp", "AI   Bootcamp", "ai-bootcamp"}, candidates,
		"canonical form first, then raw trimmed, then legacy slug")

	// A name already canonical collapses to two candidates.
	candidates = LookupCandidates("AI Bootcamp")
	require.Equal(t, []string{"AI Bootcamp", "ai-bootcamp"}, candidates)
}

func TestRowFromRange(t *testing.T) {
	tests := []struct {
		rng      string
		expected int64
		wantErr  bool
	}{
		{"Registrations!A5:G5", 5, false},
		{"'My Tab'!A12:G12", 12, false},
		{"Registrations!A2", 2, false},
		{"A7:G7", 7, false},
		{"Registrations!A:G", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.rng, func(t *testing.T) {
			row, err := RowFromRange(tt.rng)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrBadRange)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, row)
		})
	}
}

func TestLastColumn(t *testing.T) {
	assert.Equal(t, "G", lastColumn(7))
	assert.Equal(t, "A", lastColumn(1))
	assert.Equal(t, "Z", lastColumn(99))
}

func TestEscapeQuery(t *testing.T) {
	assert.Equal(t, `John\'s Webinar`, escapeQuery("John's Webinar"))
}

type fakeProvider struct {
	files     map[string]string // mime + "|" + name -> file id
	renames   []string          // id + "->" + name
	created   []string
	headers   []string
	metaCalls int
	renameErr error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{files: make(map[string]string)}
}

func (f *fakeProvider) searchByName(_ context.Context, name, mime, _ string) (string, error) {
	return f.files[mime+"|"+name], nil
}

func (f *fakeProvider) rename(_ context.Context, fileID, name string) error {
	f.renames = append(f.renames, fileID+"->"+name)
	if f.renameErr != nil {
		return f.renameErr
	}
	for key, id := range f.files {
		if id != fileID {
			continue
		}
		mime, _, _ := strings.Cut(key, "|")
		delete(f.files, key)
		f.files[mime+"|"+name] = id
	}
	return nil
}

func (f *fakeProvider) createSpreadsheet(_ context.Context, name, _ string) (string, error) {
	id := fmt.Sprintf("sheet-%d", len(f.created)+1)
	f.files[spreadsheetMime+"|"+name] = id
	f.created = append(f.created, name)
	return id, nil
}

func (f *fakeProvider) createDocument(_ context.Context, name, _ string) (string, error) {
	id := "doc-" + name
	f.files[documentMime+"|"+name] = id
	f.created = append(f.created, name)
	return id, nil
}

func (f *fakeProvider) WriteHeader(_ context.Context, m *Mapping, _ []string) error {
	f.headers = append(f.headers, m.SpreadsheetID)
	return nil
}

func (f *fakeProvider) WriteMetadata(_ context.Context, _ *Mapping, _ [][]interface{}) error {
	f.metaCalls++
	return nil
}

func TestResolveRenamesStaleSinkToCanonical(t *testing.T) {
	provider := newFakeProvider()
	provider.files[spreadsheetMime+"|ai-bootcamp"] = "sheet-legacy"

	r := NewResolver(provider, "folder-1", logger.NewLogger())

	mapping, err := r.Resolve(context.Background(), "AI Bootcamp", nil)
	require.NoError(t, err)
	assert.Equal(t, "sheet-legacy", mapping.SpreadsheetID)
	assert.Equal(t, "AI Bootcamp", mapping.DisplayName)
	require.Equal(t, []string{"sheet-legacy->AI Bootcamp"}, provider.renames,
		"sink found under the legacy slug is renamed exactly once")

	// A fresh resolver (cold cache) now finds the sink under the canonical
	// name directly: same container, no further renames.
	r2 := NewResolver(provider, "folder-1", logger.NewLogger())
	mapping2, err := r2.Resolve(context.Background(), "AI Bootcamp", nil)
	require.NoError(t, err)
	assert.Equal(t, "sheet-legacy", mapping2.SpreadsheetID)
	assert.Len(t, provider.renames, 1)
}

func TestResolveRenameFailureIsBestEffort(t *testing.T) {
	provider := newFakeProvider()
	provider.files[spreadsheetMime+"|ai-bootcamp"] = "sheet-legacy"
	provider.renameErr = errors.New("insufficient permissions")

	r := NewResolver(provider, "folder-1", logger.NewLogger())

	mapping, err := r.Resolve(context.Background(), "AI Bootcamp", nil)
	require.NoError(t, err)
	assert.Equal(t, "sheet-legacy", mapping.SpreadsheetID)
}

func TestResolveCreatesSinkPairOnMiss(t *testing.T) {
	provider := newFakeProvider()
	r := NewResolver(provider, "folder-1", logger.NewLogger())

	metaRows := [][]interface{}{{"Event", "AI Bootcamp"}}
	mapping, err := r.Resolve(context.Background(), "AI Bootcamp", metaRows)
	require.NoError(t, err)

	assert.Equal(t, "sheet-1", mapping.SpreadsheetID)
	assert.Equal(t, "doc-AI Bootcamp Log", mapping.DocumentID)
	assert.Equal(t, []string{"sheet-1"}, provider.headers)
	assert.Equal(t, 1, provider.metaCalls)
	assert.Empty(t, provider.renames)

	// Second resolution is served from cache.
	again, err := r.Resolve(context.Background(), "  ai   bootcamp ", nil)
	require.NoError(t, err)
	assert.Same(t, mapping, again)
	assert.Equal(t, []string{"AI Bootcamp", "AI Bootcamp Log"}, provider.created)
}
