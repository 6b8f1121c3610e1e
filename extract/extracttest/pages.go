// Package extracttest renders HTML pages shaped like the periodical's site for
// tests of the extractor and the discovery service.
package extracttest

import (
	"fmt"
	"strings"

	"github.com/pevans/issuewatch/issue"
)

// BaseURL is the host used by every rendered page.
const BaseURL = "https://journal.test"

// ListingURL is the listing page address used by test site configs.
const ListingURL = BaseURL + "/xpl/issues?punumber=92"

// YearURL returns the listing address reached by selecting year.
func YearURL(year int) string {
	return fmt.Sprintf("%s/xpl/issues?punumber=92&year=%d", BaseURL, year)
}

// DetailURL returns the detail page address for an external id.
func DetailURL(isnumber string) string {
	return fmt.Sprintf("%s/xpl/issue-detail?isnumber=%s", BaseURL, isnumber)
}

// TOCURL returns the table of contents address for an external id.
func TOCURL(isnumber string) string {
	return fmt.Sprintf("%s/xpl/tocresult.jsp?isnumber=%s&punumber=92", BaseURL, isnumber)
}

// Listing describes a listing page.
type Listing struct {
	Years      []int
	ActiveYear int
	// LinkYears renders year tabs with hrefs. Without it tabs must be
	// clicked.
	LinkYears bool
	Volume    int
	// OmitContainer drops the issue section entirely.
	OmitContainer bool
	Issues        []issue.Record
	// ExtraRows are inserted verbatim into the issue section.
	ExtraRows []string
}

// ListingPage renders a listing page.
func ListingPage(l Listing) string {
	var b strings.Builder
	b.WriteString("<html><body>\n")

	if len(l.Years) > 0 {
		b.WriteString(`<div class="issue-details-past-tabs year"><ul>` + "\n")
		for _, year := range l.Years {
			class := ""
			if year == l.ActiveYear {
				class = ` class="active"`
			}
			if l.LinkYears {
				fmt.Fprintf(&b, `<li%s><a href="%s">%d</a></li>`+"\n", class, YearURL(year), year)
			} else {
				fmt.Fprintf(&b, `<li%s><a>%d</a></li>`+"\n", class, year)
			}
		}
		b.WriteString(`<li><a>All Issues</a></li>` + "\n")
		b.WriteString("</ul></div>\n")
	}

	if !l.OmitContainer {
		b.WriteString(`<section class="issue-container">` + "\n")
		if l.Volume > 0 {
			fmt.Fprintf(&b, `<div class="volume"><strong>Volume %d</strong></div>`+"\n", l.Volume)
		}
		for _, r := range l.Issues {
			fmt.Fprintf(&b,
				`<div class="issue-details"><a href="/xpl/issue-detail?isnumber=%s">Issue %d</a></div>`+"\n",
				r.ISNumber, r.Issue)
		}
		for _, row := range l.ExtraRows {
			b.WriteString(row + "\n")
		}
		b.WriteString("</section>\n")
	}

	b.WriteString("</body></html>\n")
	return b.String()
}

// DetailPage renders the detail page of r.
func DetailPage(r issue.Record) string {
	return DetailPageText(fmt.Sprintf("Issue %d &bull; %s - %d", r.Issue, r.Month, r.Year))
}

// DetailPageText renders a detail page whose details element holds text.
func DetailPageText(text string) string {
	return fmt.Sprintf(`<html><body>
<div class="u-m-1 u-mt-1 u-mr-1 text-base-md"><p><b>%s</b></p></div>
</body></html>
`, text)
}

// TOCPage renders a table of contents page with a description line.
func TOCPage(year, volume, number int) string {
	return fmt.Sprintf(`<html><body>
<div class="description"><div>Year: %d | Volume: %d | Issue: %d</div></div>
</body></html>
`, year, volume, number)
}

// Record builds a record with a consistent month name.
func Record(volume, number, month, year int, isnumber string) issue.Record {
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
