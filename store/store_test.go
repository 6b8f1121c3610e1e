package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pevans/issuewatch/issue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper: create a record with a consistent month name
func createTestRecord(volume, number, month, year int, isnumber string) issue.Record {
	name, _ := issue.MonthName(month)
	return issue.Record{
		Volume:         volume,
		Issue:          number,
		Month:          name,
		NumericalMonth: month,
		Year:           year,
		ISNumber:       isnumber,
	}
}

// Test helper: a file backend inside a fresh temporary directory
func createTestBackend(t *testing.T) *FileBackend {
	t.Helper()
	return NewFileBackend(filepath.Join(t.TempDir(), "data", "previous_issues.json"))
}

// TestLoad_MissingFile verifies a missing file is the empty first-run state
func TestLoad_MissingFile(t *testing.T) {
	s, err := Load(createTestBackend(t))
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())

	_, ok := s.Latest()
	assert.False(t, ok, "empty store should have no latest record")
}

// TestLoad_EmptyFile verifies whitespace-only content is treated as empty
func TestLoad_EmptyFile(t *testing.T) {
	backend := createTestBackend(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(backend.Path()), 0o755))
	require.NoError(t, os.WriteFile(backend.Path(), []byte("  \n"), 0o644))

	s, err := Load(backend)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
}

// TestLoad_MalformedJSON verifies corruption is reported, not hidden
func TestLoad_MalformedJSON(t *testing.T) {
	backend := createTestBackend(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(backend.Path()), 0o755))
	require.NoError(t, os.WriteFile(backend.Path(), []byte(`[{"volume": 33,`), 0o644))

	s, err := Load(backend)
	assert.Nil(t, s)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDataCorruption))

	var corruption *CorruptionError
	require.True(t, errors.As(err, &corruption))
	assert.Equal(t, backend.Path(), corruption.Source)
}

// TestLoad_TrailingData verifies that data after the issue list is
// corruption
func TestLoad_TrailingData(t *testing.T) {
	record := `{"volume": 33, "issue": 1, "month": "January", "numerical_month": 1, "year": 2025, "isnumber": "X"}`
	tests := []struct {
		name    string
		content string
	}{
		{"garbage", "[" + record + "] garbage{{{"},
		{"second array", "[" + record + "][]"},
		{"second object", "[" + record + "]\n{}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := createTestBackend(t)
			require.NoError(t, os.MkdirAll(filepath.Dir(backend.Path()), 0o755))
			require.NoError(t, os.WriteFile(backend.Path(), []byte(tt.content), 0o644))

			s, err := Load(backend)
			assert.Nil(t, s)
			assert.ErrorIs(t, err, ErrDataCorruption)
		})
	}
}

// TestLoad_NullDocument verifies that a document other than an array is
// corruption rather than an empty store
func TestLoad_NullDocument(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"null", "null"},
		{"padded null", "\n null \n"},
		{"object", `{"volume": 33}`},
		{"number", "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := createTestBackend(t)
			require.NoError(t, os.MkdirAll(filepath.Dir(backend.Path()), 0o755))
			require.NoError(t, os.WriteFile(backend.Path(), []byte(tt.content), 0o644))

			s, err := Load(backend)
			assert.Nil(t, s)
			require.ErrorIs(t, err, ErrDataCorruption)

			var corruption *CorruptionError
			require.True(t, errors.As(err, &corruption))
			assert.Equal(t, backend.Path(), corruption.Source)
		})
	}
}

// TestLoad_WrongFieldType verifies type mismatches are corruption
func TestLoad_WrongFieldType(t *testing.T) {
	backend := createTestBackend(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(backend.Path()), 0o755))
	content := `[{"volume": "33", "issue": 1, "month": "January", "numerical_month": 1, "year": 2025, "isnumber": "1"}]`
	require.NoError(t, os.WriteFile(backend.Path(), []byte(content), 0o644))

	_, err := Load(backend)
	assert.ErrorIs(t, err, ErrDataCorruption)
}

// TestLoad_InvalidRecord verifies validation failures are corruption
func TestLoad_InvalidRecord(t *testing.T) {
	backend := createTestBackend(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(backend.Path()), 0o755))
	content := `[{"volume": 33, "issue": 1, "month": "January", "numerical_month": 0, "year": 2025, "isnumber": "1"}]`
	require.NoError(t, os.WriteFile(backend.Path(), []byte(content), 0o644))

	_, err := Load(backend)
	assert.ErrorIs(t, err, ErrDataCorruption)
	assert.Contains(t, err.Error(), "numerical_month")
}

// TestLoad_DuplicateIdentity verifies duplicate issues are corruption
func TestLoad_DuplicateIdentity(t *testing.T) {
	backend := createTestBackend(t)
	require.NoError(t, backend.Save([]issue.Record{
		createTestRecord(33, 1, 1, 2025, "10001"),
		createTestRecord(33, 1, 1, 2025, "10002"),
	}))

	_, err := Load(backend)
	assert.ErrorIs(t, err, ErrDataCorruption)
	assert.Contains(t, err.Error(), "duplicate")
}

// TestMerge_Results verifies inserted, updated and unchanged outcomes
func TestMerge_Results(t *testing.T) {
	s := New()
	original := createTestRecord(33, 5, 5, 2025, "10977652")

	assert.Equal(t, Inserted, s.Merge(original))
	assert.Equal(t, Unchanged, s.Merge(original))

	corrected := original
	corrected.ISNumber = "99999999"
	assert.Equal(t, Updated, s.Merge(corrected))
	assert.Equal(t, 1, s.Len(), "update must not add a record")

	stored, ok := s.Get(original.Key())
	require.True(t, ok)
	assert.Equal(t, "99999999", stored.ISNumber)
}

// TestMerge_Idempotent verifies merging the same set twice changes nothing
func TestMerge_Idempotent(t *testing.T) {
	batch := []issue.Record{
		createTestRecord(33, 3, 3, 2025, "10003"),
		createTestRecord(33, 1, 1, 2025, "10001"),
		createTestRecord(33, 2, 2, 2025, "10002"),
	}

	once := New()
	for _, r := range batch {
		once.Merge(r)
	}

	twice := New()
	for i := 0; i < 2; i++ {
		for _, r := range batch {
			twice.Merge(r)
		}
	}

	assert.Equal(t, once.Records(), twice.Records())

	for _, r := range batch {
		assert.Equal(t, Unchanged, twice.Merge(r))
	}
}

// TestMerge_OrderIndependent verifies final state ignores merge order
func TestMerge_OrderIndependent(t *testing.T) {
	a := createTestRecord(33, 1, 1, 2025, "10001")
	b := createTestRecord(33, 2, 2, 2025, "10002")
	c := createTestRecord(32, 12, 12, 2024, "9999")

	forward := New()
	for _, r := range []issue.Record{a, b, c} {
		forward.Merge(r)
	}

	backward := New()
	for _, r := range []issue.Record{c, b, a} {
		backward.Merge(r)
	}

	assert.Equal(t, forward.Records(), backward.Records())
}

// TestLatest verifies the chronologically greatest record is returned
func TestLatest(t *testing.T) {
	s := New()
	s.Merge(createTestRecord(34, 1, 1, 2026, "10003"))
	s.Merge(createTestRecord(32, 12, 12, 2024, "10001"))
	s.Merge(createTestRecord(33, 1, 1, 2025, "10002"))

	latest, ok := s.Latest()
	require.True(t, ok)
	assert.Equal(t, 2026, latest.Year)
	assert.Equal(t, 34, latest.Volume)
}

// TestSave_SortedAndUnique verifies the saved file is ordered and unique
func TestSave_SortedAndUnique(t *testing.T) {
	backend := createTestBackend(t)
	s := New()
	for _, r := range []issue.Record{
		createTestRecord(33, 6, 6, 2025, "10006"),
		createTestRecord(33, 1, 1, 2025, "10001"),
		createTestRecord(33, 3, 3, 2025, "10003"),
		createTestRecord(33, 1, 1, 2025, "10001"),
		createTestRecord(32, 12, 12, 2024, "9999"),
	} {
		s.Merge(r)
	}
	require.NoError(t, s.Save(backend))

	saved, err := backend.Load()
	require.NoError(t, err)
	require.Len(t, saved, 4)

	seen := map[issue.Key]bool{}
	for i, r := range saved {
		assert.False(t, seen[r.Key()], "duplicate identity %v", r.Key())
		seen[r.Key()] = true
		if i > 0 {
			assert.LessOrEqual(t, issue.Compare(saved[i-1], r), 0, "records out of order at %d", i)
		}
	}
}

// TestSave_RoundTrip verifies save(load(x)) reproduces x byte for byte
func TestSave_RoundTrip(t *testing.T) {
	backend := createTestBackend(t)
	require.NoError(t, backend.Save([]issue.Record{
		createTestRecord(32, 12, 12, 2024, "9999"),
		createTestRecord(33, 1, 1, 2025, "10001"),
		createTestRecord(33, 2, 2, 2025, "10002"),
	}))
	before, err := os.ReadFile(backend.Path())
	require.NoError(t, err)

	s, err := Load(backend)
	require.NoError(t, err)
	require.NoError(t, s.Save(backend))

	after, err := os.ReadFile(backend.Path())
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

// TestSave_FieldNames verifies the persisted JSON field names
func TestSave_FieldNames(t *testing.T) {
	backend := createTestBackend(t)
	s := New()
	s.Merge(createTestRecord(33, 6, 6, 2025, "11010805"))
	require.NoError(t, s.Save(backend))

	data, err := os.ReadFile(backend.Path())
	require.NoError(t, err)
	for _, field := range []string{`"volume": 33`, `"issue": 6`, `"month": "June"`, `"numerical_month": 6`, `"year": 2025`, `"isnumber": "11010805"`} {
		assert.Contains(t, string(data), field)
	}
}

// TestSave_EmptyStore verifies an empty store writes an empty array
func TestSave_EmptyStore(t *testing.T) {
	backend := createTestBackend(t)
	require.NoError(t, New().Save(backend))

	data, err := os.ReadFile(backend.Path())
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

// TestSave_NoTemporaryFilesLeft verifies the atomic write cleans up
func TestSave_NoTemporaryFilesLeft(t *testing.T) {
	backend := createTestBackend(t)
	s := New()
	s.Merge(createTestRecord(33, 1, 1, 2025, "10001"))
	require.NoError(t, s.Save(backend))
	require.NoError(t, s.Save(backend))

	entries, err := os.ReadDir(filepath.Dir(backend.Path()))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "previous_issues.json", entries[0].Name())
}

// TestSave_FailureKeepsPreviousFile verifies a failed save leaves the old
// snapshot intact
func TestSave_FailureKeepsPreviousFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}

	backend := createTestBackend(t)
	require.NoError(t, backend.Save([]issue.Record{createTestRecord(33, 1, 1, 2025, "10001")}))
	before, err := os.ReadFile(backend.Path())
	require.NoError(t, err)

	dir := filepath.Dir(backend.Path())
	require.NoError(t, os.Chmod(dir, 0o555))
	t.Cleanup(func() { os.Chmod(dir, 0o755) })

	s := New()
	s.Merge(createTestRecord(33, 2, 2, 2025, "10002"))
	assert.Error(t, s.Save(backend))

	after, err := os.ReadFile(backend.Path())
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

// TestCheckWritable verifies the early permission check
func TestCheckWritable(t *testing.T) {
	backend := createTestBackend(t)
	require.NoError(t, backend.CheckWritable())

	_, err := os.Stat(backend.Path())
	assert.True(t, os.IsNotExist(err), "the check must not create the issues file")

	require.NoError(t, backend.Save(nil))
	assert.NoError(t, backend.CheckWritable())
}

// TestMergeResult_String verifies result names used in logs
func TestMergeResult_String(t *testing.T) {
	assert.Equal(t, "inserted", Inserted.String())
	assert.Equal(t, "updated", Updated.String())
	assert.Equal(t, "unchanged", Unchanged.String())
}
