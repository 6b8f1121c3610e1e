package discovery

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pevans/issuewatch/browser"
	"github.com/pevans/issuewatch/extract"
	"github.com/pevans/issuewatch/issue"
	"github.com/pevans/issuewatch/scraper"
	"github.com/pevans/issuewatch/store"
	"github.com/rs/zerolog"
)

// ErrYearNotListed is returned when a planned year is not offered by the
// listing page's year selector. The year is skipped.
var ErrYearNotListed = errors.New("year not offered by listing page")

// State is the phase of a discovery run.
type State int

const (
	StateIdle State = iota
	StatePlanningComplete
	StatePerYear
	StatePerLink
	StateReconciling
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlanningComplete:
		return "planning_complete"
	case StatePerYear:
		return "per_year"
	case StatePerLink:
		return "per_link"
	case StateReconciling:
		return "reconciling"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Launcher acquires the browser session used for one run.
type Launcher func(ctx context.Context) (browser.Session, error)

// Config holds configuration for the discovery service.
type Config struct {
	Site *scraper.SiteConfig
	// Month ordinal from which the following year is planned too
	MidyearThreshold int
	// Now decides the current calendar year
	Now func() time.Time
}

// DefaultConfig returns the configuration for the default site.
func DefaultConfig() *Config {
	return &Config{
		Site:             scraper.DefaultSiteConfig(),
		MidyearThreshold: DefaultMidyearThreshold,
		Now:              time.Now,
	}
}

// YearSkip records a planned year that was abandoned.
type YearSkip struct {
	Year int
	Err  error
}

// LinkSkip records an issue link that was abandoned.
type LinkSkip struct {
	Year int
	Href string
	Err  error
}

// Result summarizes a completed run.
type Result struct {
	RunID uuid.UUID
	Plan  Plan
	// Inserted holds the newly discovered issues in ascending order.
	Inserted     []issue.Record
	Updated      []issue.Record
	Unchanged    []issue.Record
	SkippedYears []YearSkip
	SkippedLinks []LinkSkip
}

// HasNewIssues reports whether the run discovered anything.
func (r *Result) HasNewIssues() bool {
	return len(r.Inserted) > 0
}

// Service discovers new issues of one periodical and reconciles them into a
// record backend.
type Service struct {
	launch    Launcher
	backend   store.Backend
	config    *Config
	extractor *extract.Extractor
	logger    zerolog.Logger
	state     State
}

// NewService creates a discovery service. A nil config selects
// DefaultConfig.
func NewService(launch Launcher, backend store.Backend, config *Config, logger zerolog.Logger) *Service {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Site == nil {
		config.Site = scraper.DefaultSiteConfig()
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &Service{
		launch:    launch,
		backend:   backend,
		config:    config,
		extractor: extract.New(config.Site, logger),
		logger:    logger,
		state:     StateIdle,
	}
}

// State returns the phase the most recent run reached.
func (s *Service) State() State {
	return s.state
}

// Run performs one discovery pass: it loads the known records, plans the
// years to visit, extracts every reachable issue, and saves the merged
// records. The backend is written only after every planned year has been
// visited; any error returned before that leaves it untouched.
//
// Broken years and links are skipped and reported in the Result. Corrupt
// records, an unavailable browser, a failed save or a cancelled context
// fail the run.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	result := &Result{RunID: uuid.New()}
	logger := s.logger.With().Str("run_id", result.RunID.String()).Logger()
	s.state = StateIdle

	records, err := store.Load(s.backend)
	if err != nil {
		return s.fail(logger, fmt.Errorf("failed to load records from %s: %w", s.backend.Describe(), err))
	}
	logger.Info().
		Str("backend", s.backend.Describe()).
		Int("records", records.Len()).
		Msg("Loaded known issues")

	session, err := s.launch(ctx)
	if err != nil {
		if !errors.Is(err, browser.ErrUnavailable) {
			err = fmt.Errorf("%w: %w", browser.ErrUnavailable, err)
		}
		return s.fail(logger, err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close browser")
		}
	}()

	r := &run{
		service: s,
		session: session,
		site:    s.config.Site,
		logger:  logger,
		result:  result,
	}

	plan, err := r.plan(ctx, records)
	if err != nil {
		return s.fail(logger, fmt.Errorf("failed to plan discovery: %w", err))
	}
	result.Plan = plan
	s.state = StatePlanningComplete
	logger.Info().Stringer("plan", plan).Msg("Planned years")

	var extracted []issue.Record
	for _, year := range plan.Years() {
		if err := ctx.Err(); err != nil {
			return s.fail(logger, err)
		}

		found, err := r.visitYear(ctx, year)
		if err != nil {
			if ctx.Err() != nil {
				return s.fail(logger, ctx.Err())
			}

			result.SkippedYears = append(result.SkippedYears, YearSkip{Year: year, Err: err})
			event := logger.Warn()
			if errors.Is(err, ErrYearNotListed) {
				event = logger.Info()
			}
			event.Err(err).Int("year", year).Msg("Skipping year")
			continue
		}

		extracted = append(extracted, found...)
	}

	if err := ctx.Err(); err != nil {
		return s.fail(logger, err)
	}

	s.state = StateReconciling
	var insertedKeys []issue.Key
	inserted := make(map[issue.Key]bool)
	for _, record := range extracted {
		outcome := records.Merge(record)
		logger.Debug().Stringer("issue", record).Msg("Merged issue")

		// A later link for an identity inserted by this run is still new.
		if inserted[record.Key()] {
			continue
		}

		switch outcome {
		case store.Inserted:
			inserted[record.Key()] = true
			insertedKeys = append(insertedKeys, record.Key())
		case store.Updated:
			result.Updated = append(result.Updated, record)
		case store.Unchanged:
			result.Unchanged = append(result.Unchanged, record)
		}
	}

	// Report what is persisted, not the first candidate seen.
	for _, key := range insertedKeys {
		if record, ok := records.Get(key); ok {
			result.Inserted = append(result.Inserted, record)
		}
	}
	issue.Sort(result.Inserted)

	if err := records.Save(s.backend); err != nil {
		return s.fail(logger, err)
	}

	s.state = StateDone
	logger.Info().
		Int("inserted", len(result.Inserted)).
		Int("updated", len(result.Updated)).
		Int("unchanged", len(result.Unchanged)).
		Int("skipped_years", len(result.SkippedYears)).
		Int("skipped_links", len(result.SkippedLinks)).
		Int("records", records.Len()).
		Msg("Discovery complete")

	return result, nil
}

func (s *Service) fail(logger zerolog.Logger, err error) (*Result, error) {
	s.state = StateFailed
	logger.Error().Err(err).Msg("Discovery failed")
	return nil, err
}

// run holds the per-run collaborators.
type run struct {
	service *Service
	session browser.Session
	site    *scraper.SiteConfig
	logger  zerolog.Logger
	result  *Result
}

func (r *run) plan(ctx context.Context, records *store.Store) (Plan, error) {
	cfg := r.service.config
	currentYear := cfg.Now().Year()

	if latest, ok := records.Latest(); ok {
		return NewPlan(&latest, currentYear, nil, cfg.MidyearThreshold), nil
	}

	// First run -- the year selector bounds the backfill
	if err := r.load(ctx, r.site.ListingURL); err != nil {
		return Plan{}, &extract.StructuralMismatchError{
			Role: scraper.RoleYearTab,
			URL:  r.site.ListingURL,
			Err:  err,
		}
	}
	available, err := r.service.extractor.AvailableYears(r.session)
	if err != nil {
		return Plan{}, err
	}

	return NewPlan(nil, currentYear, available, cfg.MidyearThreshold), nil
}

// visitYear extracts every issue listed for year.
func (r *run) visitYear(ctx context.Context, year int) ([]issue.Record, error) {
	r.service.state = StatePerYear
	logger := r.logger.With().Int("year", year).Logger()

	if err := r.selectYear(ctx, year); err != nil {
		return nil, err
	}

	extractor := r.service.extractor
	volume, err := extractor.PeriodIdentifier(r.session)
	if err != nil {
		return nil, err
	}
	links, err := extractor.IssueLinks(r.session)
	if err != nil {
		return nil, err
	}
	logger.Info().Int("volume", volume).Int("links", len(links)).Msg("Found issue links")

	var records []issue.Record
	for _, link := range links {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := r.visitLink(ctx, link, volume, year)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.result.SkippedLinks = append(r.result.SkippedLinks, LinkSkip{Year: year, Href: link.Href, Err: err})
			logger.Warn().Err(err).Str("link", link.Href).Msg("Skipping issue")
			continue
		}

		logger.Debug().Stringer("issue", record).Msg("Extracted issue")
		records = append(records, record)
	}

	return records, nil
}

// selectYear loads the listing page and switches it to year, following the
// tab's href when it has one and clicking it otherwise.
func (r *run) selectYear(ctx context.Context, year int) error {
	if err := r.load(ctx, r.site.ListingURL); err != nil {
		return r.listingError(err)
	}

	extractor := r.service.extractor
	if active, ok := extractor.ActiveYear(r.session); ok && active == year {
		return nil
	}

	tab, ok := extractor.YearTab(r.session, year)
	if !ok {
		if _, err := extractor.AvailableYears(r.session); err != nil {
			return err
		}
		return fmt.Errorf("%w: %d", ErrYearNotListed, year)
	}

	if href, ok := navigableHref(tab); ok {
		target, err := resolve(r.session.URL(), href)
		if err != nil {
			return r.listingError(err)
		}
		if err := r.load(ctx, target); err != nil {
			return r.listingError(err)
		}
	} else {
		clickCtx, cancel := context.WithTimeout(ctx, r.site.Timeouts.Navigation)
		err := r.session.Click(clickCtx, r.site.Selector(scraper.RoleYearTab), strconv.Itoa(year))
		cancel()
		if err != nil {
			return r.listingError(err)
		}
		if err := r.session.WaitUntilSettled(ctx, r.site.Timeouts.Settle); err != nil {
			return r.listingError(err)
		}
	}

	if active, ok := extractor.ActiveYear(r.session); ok && active != year {
		return &extract.StructuralMismatchError{
			Role: scraper.RoleActiveYearTab,
			URL:  r.session.URL(),
			Err:  fmt.Errorf("selected %d but page shows %d", year, active),
		}
	}

	return nil
}

// visitLink extracts the record behind one issue link.
func (r *run) visitLink(ctx context.Context, link extract.IssueLink, volume, year int) (issue.Record, error) {
	r.service.state = StatePerLink

	if err := r.load(ctx, link.Href); err != nil {
		return issue.Record{}, &extract.FieldExtractionError{Field: extract.FieldPage, URL: link.Href, Err: err}
	}

	record, err := r.service.extractor.IssueRecord(r.session, volume, year)
	if err != nil {
		return issue.Record{}, err
	}

	if link.Issue != 0 && record.Issue != link.Issue {
		return issue.Record{}, &extract.FieldExtractionError{
			Field: extract.FieldIssue,
			URL:   r.session.URL(),
			Err:   fmt.Errorf("listing links issue %d but page shows issue %d", link.Issue, record.Issue),
		}
	}

	if err := record.Validate(); err != nil {
		return issue.Record{}, &extract.FieldExtractionError{Field: extract.FieldDetails, URL: r.session.URL(), Err: err}
	}

	return record, nil
}

// load navigates to target and waits for it to settle, each step bounded by
// its configured timeout.
func (r *run) load(ctx context.Context, target string) error {
	navCtx, cancel := context.WithTimeout(ctx, r.site.Timeouts.Navigation)
	defer cancel()

	if err := r.session.Navigate(navCtx, target); err != nil {
		return fmt.Errorf("failed to load %s: %w", target, err)
	}
	if err := r.session.WaitUntilSettled(ctx, r.site.Timeouts.Settle); err != nil {
		return fmt.Errorf("page %s did not settle: %w", target, err)
	}
	return nil
}

func (r *run) listingError(err error) error {
	return &extract.StructuralMismatchError{
		Role: scraper.RoleYearTab,
		URL:  r.site.ListingURL,
		Err:  err,
	}
}

// navigableHref returns the tab's href unless it is a script or fragment
// placeholder.
func navigableHref(tab browser.Node) (string, bool) {
	href, ok := tab.Attr("href")
	href = strings.TrimSpace(href)
	if !ok || href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	if strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return "", false
	}
	return href, true
}

func resolve(base, href string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(ref).String(), nil
}
