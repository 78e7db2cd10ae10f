// Package recurrence expands abstract scheduling rules into concrete
// time occurrences.  Expansion is timezone-aware: wall-clock dates and
// times are composed in the configured local zone first and converted
// to UTC afterwards, never the other way around.
package recurrence

import (
	"errors"
	"time"
)

// Kind identifies how a rule generates candidate days.
type Kind int

const (
	// KindUnspecified indicates the rule kind is not set.
	KindUnspecified Kind = iota
	// KindDaily generates one candidate per calendar day in the range.
	KindDaily
	// KindWeekly generates candidates only on the selected weekdays.
	KindWeekly
	// KindSpecificDates generates candidates from an explicit date list.
	KindSpecificDates
)

// Rule describes the temporal shape of a bookable schedule.  Dates and
// times are kept as strings in the administrator-entered form; individual
// malformed entries are skipped during expansion rather than failing the
// whole rule.
//
// Fields:
//
//	Kind        – Daily, Weekly or SpecificDates.
//	Times       – wall-clock entries in "HH:MM" form (local zone).
//	Weekdays    – selected weekdays, Weekly rules only.
//	Dates       – explicit dates for SpecificDates rules, "2006-01-02" or
//	              "2006-01-02 15:04" when the entry carries its own time.
//	RangeStart  – first calendar day of the rule, "2006-01-02".
//	RangeEnd    – last calendar day of the rule (inclusive), "2006-01-02".
//	DurationMin – occurrence length in minutes, must be positive.
type Rule struct {
	Kind        Kind           `json:"kind"`
	Times       []string       `json:"times,omitempty"`
	Weekdays    []time.Weekday `json:"weekdays,omitempty"`
	Dates       []string       `json:"dates,omitempty"`
	RangeStart  string         `json:"range_start,omitempty"`
	RangeEnd    string         `json:"range_end,omitempty"`
	DurationMin int            `json:"duration_min"`
}

// Exception excludes time from expansion.  Either Date names a whole local
// calendar day, or Start/End bound a closed local datetime range in
// "2006-01-02 15:04" form.  Exceptions live only alongside their rule set
// and are consumed during expansion.
type Exception struct {
	Date  string `json:"date,omitempty"`
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// Occurrence is one concrete bookable window produced by expansion.  It is
// a value with no identity beyond its UTC bounds.
type Occurrence struct {
	Start time.Time
	End   time.Time
}

// Window bounds a UTC query range.  Zero values leave that side open.
type Window struct {
	Start time.Time
	End   time.Time
}

// Options carries per-call expansion context.
type Options struct {
	// Window restricts the result to occurrences intersecting the range.
	Window Window
	// Now anchors lead-time filtering; zero disables the filter.
	Now time.Time
	// LeadTime drops occurrences starting before Now+LeadTime.
	LeadTime time.Duration
}

// ErrInvalidDuration indicates the rule duration is zero or negative.
var ErrInvalidDuration = errors.New("recurrence: duration must be positive")

// ErrInvalidRange indicates the rule date range is missing or inverted.
var ErrInvalidRange = errors.New("recurrence: invalid date range")

// ErrInvalidKind indicates the rule kind is not supported.
var ErrInvalidKind = errors.New("recurrence: invalid rule kind")

const (
	dateLayout     = "2006-01-02"
	datetimeLayout = "2006-01-02 15:04"
	timeLayout     = "15:04"
)
