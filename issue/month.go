package issue

import "strings"

// months holds the full month names, indexed by ordinal minus one.
var months = [12]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// minAbbreviation is the shortest prefix accepted as a month abbreviation.
const minAbbreviation = 3

// ParseMonth resolves a month name to its canonical full name and ordinal.
// Matching is case-insensitive and accepts abbreviations of at least three
// letters with an optional trailing period ("Dec.", "sept").
func ParseMonth(name string) (string, int, bool) {
	token := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(name), "."))
	if len(token) < minAbbreviation {
		return "", 0, false
	}

	for i, month := range months {
		if strings.HasPrefix(strings.ToLower(month), token) {
			return month, i + 1, true
		}
	}

	return "", 0, false
}

// MonthOrdinal returns the ordinal (1-12) of a month name.
func MonthOrdinal(name string) (int, bool) {
	_, ordinal, ok := ParseMonth(name)
	return ordinal, ok
}

// MonthName returns the full name for an ordinal between 1 and 12.
func MonthName(ordinal int) (string, bool) {
	if ordinal < 1 || ordinal > 12 {
		return "", false
	}
	return months[ordinal-1], true
}
