package issue

import (
	"cmp"
	"fmt"
	"slices"
)

// Record represents a single published issue of the periodical.
type Record struct {
	Volume         int    `json:"volume"`
	Issue          int    `json:"issue"`
	Month          string `json:"month"`
	NumericalMonth int    `json:"numerical_month"`
	Year           int    `json:"year"`
	ISNumber       string `json:"isnumber"`
}

// Key identifies an issue independently of its month and isnumber, which may
// be corrected on later runs.
type Key struct {
	Volume int
	Issue  int
	Year   int
}

// Key returns the identity of the record.
func (r Record) Key() Key {
	return Key{Volume: r.Volume, Issue: r.Issue, Year: r.Year}
}

// SameIssue reports whether both records describe the same issue.
func (r Record) SameIssue(other Record) bool {
	return r.Key() == other.Key()
}

func (r Record) String() string {
	return fmt.Sprintf("Volume %d, Issue %d (%s %d, isnumber %s)",
		r.Volume, r.Issue, r.Month, r.Year, r.ISNumber)
}

// Compare orders records chronologically by year, volume, month and issue
// number. It returns -1, 0 or +1 like cmp.Compare.
func Compare(a, b Record) int {
	if c := cmp.Compare(a.Year, b.Year); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Volume, b.Volume); c != 0 {
		return c
	}
	if c := cmp.Compare(a.NumericalMonth, b.NumericalMonth); c != 0 {
		return c
	}
	return cmp.Compare(a.Issue, b.Issue)
}

// Sort sorts records in ascending chronological order. Records that compare
// equal keep their relative order.
func Sort(records []Record) {
	slices.SortStableFunc(records, Compare)
}

// Validate checks that the record is internally consistent: positive volume
// and issue numbers, a known month whose ordinal matches numerical_month, and
// a year.
func (r Record) Validate() error {
	if r.Volume <= 0 {
		return fmt.Errorf("volume must be positive, got %d", r.Volume)
	}
	if r.Issue <= 0 {
		return fmt.Errorf("issue must be positive, got %d", r.Issue)
	}
	if r.Year <= 0 {
		return fmt.Errorf("year must be positive, got %d", r.Year)
	}
	if r.NumericalMonth < 1 || r.NumericalMonth > 12 {
		return fmt.Errorf("numerical_month must be between 1 and 12, got %d", r.NumericalMonth)
	}
	ordinal, ok := MonthOrdinal(r.Month)
	if !ok {
		return fmt.Errorf("unknown month %q", r.Month)
	}
	if ordinal != r.NumericalMonth {
		return fmt.Errorf("month %q does not match numerical_month %d", r.Month, r.NumericalMonth)
	}
	return nil
}
