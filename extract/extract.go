// Package extract turns listing and detail pages of the periodical's site into
// typed values. Every function works on a browser.Document and never drives
// the browser itself.
package extract

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/pevans/issuewatch/browser"
	"github.com/pevans/issuewatch/issue"
	"github.com/pevans/issuewatch/scraper"
	"github.com/rs/zerolog"
)

var (
	volumeRe    = regexp.MustCompile(`(?i)Volume\s+(\d+)`)
	issueRe     = regexp.MustCompile(`(?i)Issue\s+(\d+)`)
	monthYearRe = regexp.MustCompile(`•\s*([A-Za-z]+)\.?(?:\s*-\s*(\d{4}))?`)
	tocYearRe   = regexp.MustCompile(`(?i)Year:\s*(\d{4})`)
	tocVolumeRe = regexp.MustCompile(`(?i)Volume:\s*(\d+)`)
	tocIssueRe  = regexp.MustCompile(`(?i)Issue:\s*(\d+)`)
)

// IssueLink is one navigable issue row of a listing page.
type IssueLink struct {
	// Issue is the number printed on the link, or zero when absent.
	Issue      int
	ExternalID string
	// Href is absolute, resolved against the listing page URL.
	Href string
}

// Extractor applies a SiteConfig's selectors to loaded pages.
type Extractor struct {
	site   *scraper.SiteConfig
	logger zerolog.Logger
}

// New returns an extractor for site. Skipped listing rows are logged to
// logger.
func New(site *scraper.SiteConfig, logger zerolog.Logger) *Extractor {
	return &Extractor{site: site, logger: logger}
}

// AvailableYears returns the numeric entries of the listing page's year
// selector, deduplicated and ascending. Labels that are not years are
// ignored.
func (e *Extractor) AvailableYears(doc browser.Document) ([]int, error) {
	tabs := doc.QueryAll(e.site.Selector(scraper.RoleYearTab))
	if len(tabs) == 0 {
		return nil, e.mismatch(doc, scraper.RoleYearTab)
	}

	var years []int
	for _, tab := range tabs {
		year, err := strconv.Atoi(tab.Text())
		if err != nil || year <= 0 {
			continue
		}
		if !slices.Contains(years, year) {
			years = append(years, year)
		}
	}

	slices.Sort(years)
	return years, nil
}

// YearTab returns the year selector entry labelled with year.
func (e *Extractor) YearTab(doc browser.Document, year int) (browser.Node, bool) {
	label := strconv.Itoa(year)
	for _, tab := range doc.QueryAll(e.site.Selector(scraper.RoleYearTab)) {
		if tab.Text() == label {
			return tab, true
		}
	}
	return nil, false
}

// ActiveYear returns the currently selected year, if the page marks one.
func (e *Extractor) ActiveYear(doc browser.Document) (int, bool) {
	tab, ok := doc.QuerySingle(e.site.Selector(scraper.RoleActiveYearTab))
	if !ok {
		return 0, false
	}
	year, err := strconv.Atoi(tab.Text())
	if err != nil {
		return 0, false
	}
	return year, true
}

// PeriodIdentifier returns the volume number shown on a listing page.
func (e *Extractor) PeriodIdentifier(doc browser.Document) (int, error) {
	container, ok := doc.QuerySingle(e.site.Selector(scraper.RoleIssueContainer))
	if !ok {
		return 0, e.mismatch(doc, scraper.RoleIssueContainer)
	}

	label, ok := container.QuerySingle(e.site.Selector(scraper.RoleVolumeLabel))
	if !ok {
		return 0, e.mismatch(doc, scraper.RoleVolumeLabel)
	}

	match := volumeRe.FindStringSubmatch(label.Text())
	if match == nil {
		return 0, &StructuralMismatchError{
			Role: scraper.RoleVolumeLabel,
			URL:  doc.URL(),
			Err:  fmt.Errorf("no volume number in %q", label.Text()),
		}
	}

	volume, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, &StructuralMismatchError{Role: scraper.RoleVolumeLabel, URL: doc.URL(), Err: err}
	}
	return volume, nil
}

// IssueLinks returns every issue row of a listing page in page order. A
// listing without rows is valid and yields no links. Rows without an issue
// number or external id are logged and skipped.
func (e *Extractor) IssueLinks(doc browser.Document) ([]IssueLink, error) {
	container, ok := doc.QuerySingle(e.site.Selector(scraper.RoleIssueContainer))
	if !ok {
		return nil, e.mismatch(doc, scraper.RoleIssueContainer)
	}

	base, err := url.Parse(doc.URL())
	if err != nil {
		return nil, &StructuralMismatchError{Role: scraper.RoleIssueContainer, URL: doc.URL(), Err: err}
	}

	links := []IssueLink{}
	for i, row := range container.QueryAll(e.site.Selector(scraper.RoleIssueRow)) {
		anchor, ok := row.QuerySingle(e.site.Selector(scraper.RoleIssueLink))
		if !ok {
			e.logger.Warn().Int("row", i).Str("text", row.Text()).Msg("Issue row has no link")
			continue
		}

		text := anchor.Text()
		href, _ := anchor.Attr("href")

		match := issueRe.FindStringSubmatch(text)
		if match == nil {
			e.logger.Warn().Int("row", i).Str("text", text).Msg("Issue link has no issue number")
			continue
		}
		number, err := strconv.Atoi(match[1])
		if err != nil {
			e.logger.Warn().Int("row", i).Str("text", text).Err(err).Msg("Issue link has invalid issue number")
			continue
		}

		ref, err := url.Parse(href)
		if err != nil {
			e.logger.Warn().Int("row", i).Str("href", href).Err(err).Msg("Issue link has invalid href")
			continue
		}
		resolved := base.ResolveReference(ref)

		externalID := resolved.Query().Get(e.site.ExternalIDParam)
		if externalID == "" {
			e.logger.Warn().Int("row", i).Str("href", href).Msg("Issue link has no external id")
			continue
		}

		links = append(links, IssueLink{
			Issue:      number,
			ExternalID: externalID,
			Href:       resolved.String(),
		})
	}

	return links, nil
}

// IssueRecord builds a record from a detail page. volume comes from the
// listing page. year is the planned year and is used only when the page does
// not print one. Pages that redirected to a table of contents are read from
// their description instead.
func (e *Extractor) IssueRecord(doc browser.Document, volume, year int) (issue.Record, error) {
	externalID, err := e.externalID(doc)
	if err != nil {
		return issue.Record{}, err
	}

	details, ok := doc.QuerySingle(e.site.Selector(scraper.RoleIssueDetails))
	if !ok {
		if e.isTOC(doc) {
			return e.tocRecord(doc, volume, year, externalID)
		}
		return issue.Record{}, e.fieldError(doc, FieldDetails,
			fmt.Errorf("selector %q not found", e.site.Selector(scraper.RoleIssueDetails)))
	}
	text := details.Text()

	issueMatch := issueRe.FindStringSubmatch(text)
	if issueMatch == nil {
		return issue.Record{}, e.fieldError(doc, FieldIssue, fmt.Errorf("no issue number in %q", text))
	}
	number, err := strconv.Atoi(issueMatch[1])
	if err != nil {
		return issue.Record{}, e.fieldError(doc, FieldIssue, err)
	}

	monthMatch := monthYearRe.FindStringSubmatch(text)
	if monthMatch == nil {
		return issue.Record{}, e.fieldError(doc, FieldMonth, fmt.Errorf("no month in %q", text))
	}
	month, ordinal, ok := issue.ParseMonth(monthMatch[1])
	if !ok {
		return issue.Record{}, e.fieldError(doc, FieldMonth, fmt.Errorf("unknown month %q", monthMatch[1]))
	}

	if monthMatch[2] != "" {
		if year, err = strconv.Atoi(monthMatch[2]); err != nil {
			return issue.Record{}, e.fieldError(doc, FieldYear, err)
		}
	}
	if year <= 0 {
		return issue.Record{}, e.fieldError(doc, FieldYear, fmt.Errorf("no year in %q", text))
	}

	return issue.Record{
		Volume:         volume,
		Issue:          number,
		Month:          month,
		NumericalMonth: ordinal,
		Year:           year,
		ISNumber:       externalID,
	}, nil
}

// tocRecord reads "Year: Y | Volume: V | Issue: N" from a table of contents
// page. The periodical is monthly, so issue N is taken to be month N.
func (e *Extractor) tocRecord(doc browser.Document, volume, year int, externalID string) (issue.Record, error) {
	desc, ok := doc.QuerySingle(e.site.Selector(scraper.RoleTOCDescription))
	if !ok {
		return issue.Record{}, e.fieldError(doc, FieldDetails,
			fmt.Errorf("selector %q not found", e.site.Selector(scraper.RoleTOCDescription)))
	}

	text := desc.Text()
	if text == "" {
		text, _ = desc.Attr("content")
	}

	issueMatch := tocIssueRe.FindStringSubmatch(text)
	if issueMatch == nil {
		return issue.Record{}, e.fieldError(doc, FieldIssue, fmt.Errorf("no issue number in %q", text))
	}
	number, err := strconv.Atoi(issueMatch[1])
	if err != nil {
		return issue.Record{}, e.fieldError(doc, FieldIssue, err)
	}

	if m := tocVolumeRe.FindStringSubmatch(text); m != nil {
		if volume, err = strconv.Atoi(m[1]); err != nil {
			return issue.Record{}, e.fieldError(doc, FieldVolume, err)
		}
	}
	if m := tocYearRe.FindStringSubmatch(text); m != nil {
		if year, err = strconv.Atoi(m[1]); err != nil {
			return issue.Record{}, e.fieldError(doc, FieldYear, err)
		}
	}
	if year <= 0 {
		return issue.Record{}, e.fieldError(doc, FieldYear, fmt.Errorf("no year in %q", text))
	}

	month, ok := issue.MonthName(number)
	if !ok {
		return issue.Record{}, e.fieldError(doc, FieldMonth,
			fmt.Errorf("cannot infer month for issue %d", number))
	}

	return issue.Record{
		Volume:         volume,
		Issue:          number,
		Month:          month,
		NumericalMonth: number,
		Year:           year,
		ISNumber:       externalID,
	}, nil
}

func (e *Extractor) externalID(doc browser.Document) (string, error) {
	u, err := url.Parse(doc.URL())
	if err != nil {
		return "", e.fieldError(doc, FieldExternalID, err)
	}

	id := u.Query().Get(e.site.ExternalIDParam)
	if id == "" {
		return "", e.fieldError(doc, FieldExternalID,
			fmt.Errorf("no %s parameter in URL", e.site.ExternalIDParam))
	}

	return id, nil
}

func (e *Extractor) isTOC(doc browser.Document) bool {
	return e.site.TOCPathMarker != "" && strings.Contains(doc.URL(), e.site.TOCPathMarker)
}

func (e *Extractor) mismatch(doc browser.Document, role scraper.Role) error {
	return &StructuralMismatchError{
		Role:     role,
		Selector: e.site.Selector(role),
		URL:      doc.URL(),
	}
}

func (e *Extractor) fieldError(doc browser.Document, field string, err error) error {
	return &FieldExtractionError{Field: field, URL: doc.URL(), Err: err}
}

// IsStructuralMismatch reports whether err means the page shape changed.
func IsStructuralMismatch(err error) bool {
	return errors.Is(err, ErrStructuralMismatch)
}

// IsFieldExtraction reports whether err means a single field was missing.
func IsFieldExtraction(err error) bool {
	return errors.Is(err, ErrFieldExtraction)
}
