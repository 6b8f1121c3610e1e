package discovery

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/pevans/issuewatch/issue"
)

// DefaultMidyearThreshold is the month ordinal from which the following
// calendar year is included in the plan.
const DefaultMidyearThreshold = 6

// Plan is the ascending set of calendar years a run visits. A Plan is never
// modified after NewPlan returns it.
type Plan struct {
	years []int
}

// NewPlan computes the years to visit.
//
// With no latest record the plan is every year in available, which the
// caller reads from the listing page's year selector. Otherwise the plan
// holds latest.Year, plus currentYear when latest was published at or after
// threshold and currentYear is later. A non-positive threshold selects
// DefaultMidyearThreshold.
func NewPlan(latest *issue.Record, currentYear int, available []int, threshold int) Plan {
	if threshold <= 0 {
		threshold = DefaultMidyearThreshold
	}

	if latest == nil {
		years := make([]int, 0, len(available))
		for _, year := range available {
			if year > 0 && !slices.Contains(years, year) {
				years = append(years, year)
			}
		}
		slices.Sort(years)
		return Plan{years: years}
	}

	years := []int{latest.Year}
	if latest.NumericalMonth >= threshold && currentYear > latest.Year {
		years = append(years, currentYear)
	}
	return Plan{years: years}
}

// Years returns a copy of the planned years in ascending order.
func (p Plan) Years() []int {
	return slices.Clone(p.years)
}

// Len returns the number of planned years.
func (p Plan) Len() int {
	return len(p.years)
}

// Contains reports whether year is planned.
func (p Plan) Contains(year int) bool {
	return slices.Contains(p.years, year)
}

func (p Plan) String() string {
	parts := make([]string, len(p.years))
	for i, year := range p.years {
		parts[i] = strconv.Itoa(year)
	}
	return fmt.Sprintf("{%s}", strings.Join(parts, ", "))
}
