// Package browser defines the narrow capability the scraper needs from a web
// browser, and provides two implementations: a go-rod adapter driving headless
// Chrome and an in-memory fixture driver for tests.
//
// Both implementations expose page content through goquery, so selectors
// behave identically against live pages and fixtures.
package browser

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ErrUnavailable is returned when the browser cannot be acquired at all.
var ErrUnavailable = errors.New("browser unavailable")

// ErrNoPage is returned when a document is queried before any navigation.
var ErrNoPage = errors.New("no page loaded")

// Node is an element of a loaded page.
type Node interface {
	// Text returns the element's text with whitespace collapsed.
	Text() string
	Attr(name string) (string, bool)
	QuerySingle(selector string) (Node, bool)
	QueryAll(selector string) []Node
}

// Document is a loaded, queryable page.
type Document interface {
	// URL returns the address the page was loaded from after redirects.
	URL() string
	QuerySingle(selector string) (Node, bool)
	QueryAll(selector string) []Node
}

// Driver is a browser session that can load pages and expose them as a
// Document.
type Driver interface {
	Document
	Navigate(ctx context.Context, url string) error
	// WaitUntilSettled blocks until dynamic content has rendered or the
	// timeout elapses, then refreshes the Document view.
	WaitUntilSettled(ctx context.Context, timeout time.Duration) error
	// Click activates the first element matching selector whose text equals
	// text. It is used for controls that have no navigable href.
	Click(ctx context.Context, selector, text string) error
}

// Session is a Driver owned for the duration of one run. Close releases the
// underlying browser.
type Session interface {
	Driver
	Close() error
}

// NewDocument wraps a parsed goquery document loaded from url.
func NewDocument(url string, doc *goquery.Document) Document {
	return &document{url: url, doc: doc}
}

// ParseDocument parses html into a Document loaded from url.
func ParseDocument(url, html string) (Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	return NewDocument(url, doc), nil
}

type document struct {
	url string
	doc *goquery.Document
}

func (d *document) URL() string {
	return d.url
}

func (d *document) QuerySingle(selector string) (Node, bool) {
	return querySingle(d.doc.Selection, selector)
}

func (d *document) QueryAll(selector string) []Node {
	return queryAll(d.doc.Selection, selector)
}

// selection adapts a single goquery element to Node.
type selection struct {
	sel *goquery.Selection
}

func (s selection) Text() string {
	// Normalize whitespace: replace runs of spaces/newlines with one space
	return strings.Join(strings.Fields(s.sel.Text()), " ")
}

func (s selection) Attr(name string) (string, bool) {
	return s.sel.Attr(name)
}

func (s selection) QuerySingle(selector string) (Node, bool) {
	return querySingle(s.sel, selector)
}

func (s selection) QueryAll(selector string) []Node {
	return queryAll(s.sel, selector)
}

func querySingle(root *goquery.Selection, selector string) (Node, bool) {
	found := root.Find(selector).First()
	if found.Length() == 0 {
		return nil, false
	}
	return selection{sel: found}, true
}

func queryAll(root *goquery.Selection, selector string) []Node {
	var nodes []Node
	root.Find(selector).Each(func(_ int, s *goquery.Selection) {
		nodes = append(nodes, selection{sel: s})
	})
	return nodes
}
