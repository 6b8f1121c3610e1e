package scraper

import (
	"fmt"
	"time"
)

// Role names a part of the site's markup that the extractor depends on.
type Role string

const (
	// RoleYearTab matches every entry of the listing page's year selector.
	RoleYearTab Role = "year_tab"
	// RoleActiveYearTab matches the currently selected year entry.
	RoleActiveYearTab Role = "active_year_tab"
	// RoleIssueContainer matches the listing section holding the volume
	// label and issue rows.
	RoleIssueContainer Role = "issue_container"
	// RoleVolumeLabel matches the volume label inside the container.
	RoleVolumeLabel Role = "volume_label"
	// RoleIssueRow matches one issue row inside the container.
	RoleIssueRow Role = "issue_row"
	// RoleIssueLink matches the navigable link inside an issue row.
	RoleIssueLink Role = "issue_link"
	// RoleIssueDetails matches the "Issue N • Month - YYYY" text on a detail
	// page.
	RoleIssueDetails Role = "issue_details"
	// RoleTOCDescription matches the "Year: Y | Volume: V | Issue: N" text
	// on a table of contents page.
	RoleTOCDescription Role = "toc_description"
)

// Roles lists every role a SiteConfig must define a selector for.
var Roles = []Role{
	RoleYearTab,
	RoleActiveYearTab,
	RoleIssueContainer,
	RoleVolumeLabel,
	RoleIssueRow,
	RoleIssueLink,
	RoleIssueDetails,
	RoleTOCDescription,
}

// SiteConfig defines where the periodical lives and how its pages are laid
// out.
type SiteConfig struct {
	// ListingURL is the issues page offering the year selector.
	ListingURL string `yaml:"listing_url"`
	// Selectors maps each role to a CSS selector. Container-relative roles
	// (volume label, issue row, issue link) are evaluated inside their
	// parent element.
	Selectors map[Role]string `yaml:"selectors"`
	// ExternalIDParam is the URL query parameter carrying the issue's
	// opaque identifier.
	ExternalIDParam string `yaml:"external_id_param"`
	// TOCPathMarker identifies a table of contents URL.
	TOCPathMarker string   `yaml:"toc_path_marker"`
	Timeouts      Timeouts `yaml:"timeouts"`
}

// Timeouts bounds every blocking browser call.
type Timeouts struct {
	Navigation time.Duration `yaml:"navigation"`
	Settle     time.Duration `yaml:"settle"`
}

// DefaultSiteConfig returns the configuration for IEEE Transactions on Very
// Large Scale Integration (VLSI) Systems on IEEE Xplore.
func DefaultSiteConfig() *SiteConfig {
	return &SiteConfig{
		ListingURL: "https://ieeexplore.ieee.org/xpl/issues?punumber=92&isnumber=10937162",
		Selectors: map[Role]string{
			RoleYearTab:        "div[class*='issue-details-past-tabs'][class*='year'] a",
			RoleActiveYearTab:  "div[class*='issue-details-past-tabs'][class*='year'] li[class*='active'] a",
			RoleIssueContainer: "section[class*='issue-container']",
			RoleVolumeLabel:    "div:has(strong:contains('Volume'))",
			RoleIssueRow:       "div[class*='issue-details']",
			RoleIssueLink:      "a[href*='isnumber=']",
			RoleIssueDetails:   "div.u-m-1.u-mt-1.u-mr-1.text-base-md p b",
			RoleTOCDescription: "div.description div",
		},
		ExternalIDParam: "isnumber",
		TOCPathMarker:   "tocresult.jsp",
		Timeouts: Timeouts{
			Navigation: 30 * time.Second,
			Settle:     5 * time.Second,
		},
	}
}

// Selector returns the selector for role.
func (c *SiteConfig) Selector(role Role) string {
	return c.Selectors[role]
}

// Merge overlays the non-zero fields of override onto a copy of c.
// Selectors are merged per role.
func (c *SiteConfig) Merge(override *SiteConfig) *SiteConfig {
	merged := *c
	merged.Selectors = make(map[Role]string, len(c.Selectors))
	for role, selector := range c.Selectors {
		merged.Selectors[role] = selector
	}

	if override == nil {
		return &merged
	}

	if override.ListingURL != "" {
		merged.ListingURL = override.ListingURL
	}
	for role, selector := range override.Selectors {
		if selector != "" {
			merged.Selectors[role] = selector
		}
	}
	if override.ExternalIDParam != "" {
		merged.ExternalIDParam = override.ExternalIDParam
	}
	if override.TOCPathMarker != "" {
		merged.TOCPathMarker = override.TOCPathMarker
	}
	if override.Timeouts.Navigation > 0 {
		merged.Timeouts.Navigation = override.Timeouts.Navigation
	}
	if override.Timeouts.Settle > 0 {
		merged.Timeouts.Settle = override.Timeouts.Settle
	}

	return &merged
}

// Validate checks that every role has a selector and the timeouts are set.
func (c *SiteConfig) Validate() error {
	if c.ListingURL == "" {
		return fmt.Errorf("listing_url is required")
	}
	for _, role := range Roles {
		if c.Selectors[role] == "" {
			return fmt.Errorf("selector for %s is required", role)
		}
	}
	if c.ExternalIDParam == "" {
		return fmt.Errorf("external_id_param is required")
	}
	if c.Timeouts.Navigation <= 0 || c.Timeouts.Settle <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	return nil
}
