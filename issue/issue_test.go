package issue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper: build a record with a consistent month name
func newRecord(volume, number, month, year int, isnumber string) Record {
	name, _ := MonthName(month)
	return Record{
		Volume:         volume,
		Issue:          number,
		Month:          name,
		NumericalMonth: month,
		Year:           year,
		ISNumber:       isnumber,
	}
}

// TestSameIssue_IgnoresISNumber verifies identity is volume/issue/year only
func TestSameIssue_IgnoresISNumber(t *testing.T) {
	a := newRecord(33, 5, 5, 2025, "10977652")
	b := newRecord(33, 5, 5, 2025, "99999999")

	assert.True(t, a.SameIssue(b))
	assert.Equal(t, a.Key(), b.Key())
}

// TestSameIssue_IgnoresMonth verifies month corrections keep identity
func TestSameIssue_IgnoresMonth(t *testing.T) {
	a := newRecord(33, 5, 5, 2025, "1")
	b := newRecord(33, 5, 6, 2025, "1")

	assert.True(t, a.SameIssue(b))
}

// TestSameIssue_DifferentFields verifies each identity field matters
func TestSameIssue_DifferentFields(t *testing.T) {
	base := newRecord(33, 5, 5, 2025, "1")

	assert.False(t, base.SameIssue(newRecord(34, 5, 5, 2025, "1")), "volume")
	assert.False(t, base.SameIssue(newRecord(33, 6, 5, 2025, "1")), "issue")
	assert.False(t, base.SameIssue(newRecord(33, 5, 5, 2026, "1")), "year")
}

// TestCompare_Ordering verifies year, volume, month, issue precedence
func TestCompare_Ordering(t *testing.T) {
	tests := []struct {
		name string
		a, b Record
		want int
	}{
		{"year first", newRecord(40, 12, 12, 2024, ""), newRecord(1, 1, 1, 2025, ""), -1},
		{"then volume", newRecord(32, 12, 12, 2024, ""), newRecord(33, 1, 1, 2024, ""), -1},
		{"then month", newRecord(33, 9, 3, 2025, ""), newRecord(33, 1, 4, 2025, ""), -1},
		{"then issue", newRecord(33, 1, 3, 2025, ""), newRecord(33, 2, 3, 2025, ""), -1},
		{"equal", newRecord(33, 1, 3, 2025, "a"), newRecord(33, 1, 3, 2025, "b"), 0},
		{"greater", newRecord(33, 2, 3, 2025, ""), newRecord(33, 1, 3, 2025, ""), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compare(tt.a, tt.b))
		})
	}
}

// TestSort_Ascending verifies Sort produces chronological order
func TestSort_Ascending(t *testing.T) {
	records := []Record{
		newRecord(33, 6, 6, 2025, "10006"),
		newRecord(33, 1, 1, 2025, "10001"),
		newRecord(32, 12, 12, 2024, "9999"),
		newRecord(33, 3, 3, 2025, "10003"),
	}

	Sort(records)

	require.Len(t, records, 4)
	assert.Equal(t, 2024, records[0].Year)
	assert.Equal(t, 1, records[1].Issue)
	assert.Equal(t, 3, records[2].Issue)
	assert.Equal(t, 6, records[3].Issue)
}

// TestValidate verifies record consistency checks
func TestValidate(t *testing.T) {
	valid := newRecord(33, 5, 5, 2025, "1")
	assert.NoError(t, valid.Validate())

	mismatched := valid
	mismatched.NumericalMonth = 6
	assert.ErrorContains(t, mismatched.Validate(), "does not match")

	unknown := valid
	unknown.Month = "Smarch"
	assert.ErrorContains(t, unknown.Validate(), "unknown month")

	zeroVolume := valid
	zeroVolume.Volume = 0
	assert.ErrorContains(t, zeroVolume.Validate(), "volume")

	badMonth := valid
	badMonth.NumericalMonth = 13
	assert.ErrorContains(t, badMonth.Validate(), "numerical_month")
}

// TestParseMonth covers full names, case folding and abbreviations
func TestParseMonth(t *testing.T) {
	tests := []struct {
		input   string
		name    string
		ordinal int
		ok      bool
	}{
		{"January", "January", 1, true},
		{"march", "March", 3, true},
		{"DECEMBER", "December", 12, true},
		{"Dec.", "December", 12, true},
		{"Sept", "September", 9, true},
		{" May ", "May", 5, true},
		{"Ju", "", 0, false},
		{"", "", 0, false},
		{"Smarch", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			name, ordinal, ok := ParseMonth(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.ordinal, ordinal)
		})
	}
}

// TestMonthName verifies ordinal bounds
func TestMonthName(t *testing.T) {
	name, ok := MonthName(8)
	assert.True(t, ok)
	assert.Equal(t, "August", name)

	_, ok = MonthName(0)
	assert.False(t, ok)
	_, ok = MonthName(13)
	assert.False(t, ok)
}
