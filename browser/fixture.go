package browser

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrPageNotFound is returned by the fixture driver for unknown URLs.
var ErrPageNotFound = errors.New("page not found")

// maxRedirects bounds redirect chains in the fixture driver.
const maxRedirects = 10

// Fixture is an in-memory Driver serving canned HTML pages. It is used to
// exercise the scraper deterministically without network access.
type Fixture struct {
	pages     map[string]string
	redirects map[string]string
	clicks    map[clickKey]string
	failures  map[string]error
	current   Document
	visited   []string
	closed    bool
}

type clickKey struct {
	selector string
	text     string
}

// NewFixture returns an empty fixture driver.
func NewFixture() *Fixture {
	return &Fixture{
		pages:     make(map[string]string),
		redirects: make(map[string]string),
		clicks:    make(map[clickKey]string),
		failures:  make(map[string]error),
	}
}

// AddPage registers html to be served for url.
func (f *Fixture) AddPage(url, html string) *Fixture {
	f.pages[url] = html
	return f
}

// AddRedirect makes navigation to from land on to.
func (f *Fixture) AddRedirect(from, to string) *Fixture {
	f.redirects[from] = to
	return f
}

// AddClick makes a click on the element matching selector and text load url.
func (f *Fixture) AddClick(selector, text, url string) *Fixture {
	f.clicks[clickKey{selector: selector, text: text}] = url
	return f
}

// FailNavigation makes navigation to url fail with err, simulating a
// timeout or network error.
func (f *Fixture) FailNavigation(url string, err error) *Fixture {
	f.failures[url] = err
	return f
}

// Visited returns the URLs requested so far, in order.
func (f *Fixture) Visited() []string {
	out := make([]string, len(f.visited))
	copy(out, f.visited)
	return out
}

// Close implements Session.
func (f *Fixture) Close() error {
	f.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (f *Fixture) Closed() bool {
	return f.closed
}

// Navigate implements Driver.
func (f *Fixture) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.visited = append(f.visited, url)

	if err, ok := f.failures[url]; ok {
		return err
	}

	target := url
	for i := 0; i < maxRedirects; i++ {
		next, ok := f.redirects[target]
		if !ok {
			break
		}
		target = next
	}

	html, ok := f.pages[target]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPageNotFound, target)
	}

	doc, err := ParseDocument(target, html)
	if err != nil {
		return fmt.Errorf("failed to parse fixture %s: %w", target, err)
	}
	f.current = doc

	return nil
}

// WaitUntilSettled implements Driver. Fixture pages are static, so it only
// checks that a page is loaded.
func (f *Fixture) WaitUntilSettled(ctx context.Context, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.current == nil {
		return ErrNoPage
	}
	return nil
}

// Click implements Driver.
func (f *Fixture) Click(ctx context.Context, selector, text string) error {
	url, ok := f.clicks[clickKey{selector: selector, text: text}]
	if !ok {
		return fmt.Errorf("no clickable element %q with text %q", selector, text)
	}
	return f.Navigate(ctx, url)
}

// URL implements Document.
func (f *Fixture) URL() string {
	if f.current == nil {
		return ""
	}
	return f.current.URL()
}

// QuerySingle implements Document.
func (f *Fixture) QuerySingle(selector string) (Node, bool) {
	if f.current == nil {
		return nil, false
	}
	return f.current.QuerySingle(selector)
}

// QueryAll implements Document.
func (f *Fixture) QueryAll(selector string) []Node {
	if f.current == nil {
		return nil
	}
	return f.current.QueryAll(selector)
}
