package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// PostgresStore itself needs a live database (vector extension, LISTEN/NOTIFY,
// FOR UPDATE SKIP LOCKED transactions); these tests cover the package's
// pure helpers, the part that is safe to exercise without one. See
// DESIGN.md for the documented coverage gap on PostgresStore's query methods.

func TestResolveURLFile_TrimsWhitespace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "url")
	require.NoError(t, os.WriteFile(path, []byte("  postgres://example/db  \n"), 0o600))

	url, err := resolveURLFile(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://example/db", url)
}

func TestResolveURLFile_EmptyFileIsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "url")
	require.NoError(t, os.WriteFile(path, []byte("   \n"), 0o600))

	_, err := resolveURLFile(path)
	require.Error(t, err)
}

func TestResolveURLFile_MissingFileIsError(t *testing.T) {
	_, err := resolveURLFile("/nonexistent/path/url")
	require.Error(t, err)
}

func TestTitle_TruncatesLongContent(t *testing.T) {
	content := make([]byte, 200)
	for i := range content {
		content[i] = 'x'
	}
	got := title(string(content))
	assert.Len(t, got, 80)
}

func TestTitle_LeavesShortContentUnchanged(t *testing.T) {
	assert.Equal(t, "short", title("short"))
}

func TestSortListItems_OrdersByEventTimeThenID(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	items := []ListItem{
		{ID: "c", EventTime: base},
		{ID: "a", EventTime: base.Add(time.Hour)},
		{ID: "b", EventTime: base},
	}

	sortListItems(items)

	require.Len(t, items, 3)
	assert.Equal(t, "b", items[0].ID)
	assert.Equal(t, "c", items[1].ID)
	assert.Equal(t, "a", items[2].ID)
}

func TestIsUniqueViolation_DetectsDuplicateKeyMessage(t *testing.T) {
	assert.True(t, isUniqueViolation(assertError("duplicate key value violates unique constraint")))
	assert.False(t, isUniqueViolation(assertError("connection refused")))
}

func assertError(msg string) error {
	return &stringError{msg}
}

type stringError struct{ msg string }

func (e *stringError) Error() string { return e.msg }
