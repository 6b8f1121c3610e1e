package extract

import (
	"errors"
	"fmt"

	"github.com/pevans/issuewatch/scraper"
)

// Errors matched with errors.Is to decide how much work to skip.
var (
	// ErrStructuralMismatch means a listing page no longer has the shape the
	// extractor expects. The whole year is abandoned.
	ErrStructuralMismatch = errors.New("page structure mismatch")
	// ErrFieldExtraction means one detail page lacks a single field. Only
	// that issue is skipped.
	ErrFieldExtraction = errors.New("field extraction failed")
)

// Fields named by FieldExtractionError.
const (
	FieldDetails    = "details"
	FieldIssue      = "issue"
	FieldVolume     = "volume"
	FieldMonth      = "month"
	FieldYear       = "year"
	FieldExternalID = "isnumber"
	FieldPage       = "page"
)

// StructuralMismatchError names the markup role that could not be found.
type StructuralMismatchError struct {
	Role     scraper.Role
	Selector string
	URL      string
	Err      error
}

func (e *StructuralMismatchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("structural mismatch at %s (%s): %v", e.URL, e.Role, e.Err)
	}
	return fmt.Sprintf("structural mismatch at %s: %s not found (selector %q)", e.URL, e.Role, e.Selector)
}

func (e *StructuralMismatchError) Unwrap() error {
	return e.Err
}

func (e *StructuralMismatchError) Is(target error) bool {
	return target == ErrStructuralMismatch
}

// FieldExtractionError names the field of a detail page that was missing or
// unparseable.
type FieldExtractionError struct {
	Field string
	URL   string
	Err   error
}

func (e *FieldExtractionError) Error() string {
	return fmt.Sprintf("failed to extract %s from %s: %v", e.Field, e.URL, e.Err)
}

func (e *FieldExtractionError) Unwrap() error {
	return e.Err
}

func (e *FieldExtractionError) Is(target error) bool {
	return target == ErrFieldExtraction
}
