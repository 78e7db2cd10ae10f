package recurrence

import (
	"sort"
	"time"
)

// Expander turns rules and exceptions into ordered UTC occurrences.  It
// holds no state between calls; every expansion is recomputed from its
// inputs so results stay restartable.
type Expander struct {
	location *time.Location
}

// NewExpander constructs an Expander bound to the given local timezone.
// If loc is nil, UTC is used.
func NewExpander(loc *time.Location) *Expander {
	if loc == nil {
		loc = time.UTC
	}
	return &Expander{location: loc}
}

// Location returns the local zone the expander composes wall-clock
// times in.
func (e *Expander) Location() *time.Location {
	return e.location
}

// Expand produces the finite, ascending occurrence sequence for the rule.
// Rule-level invariants (positive duration, ordered date range, known kind)
// fail the whole call; malformed individual date or time entries are
// skipped so a single bad entry cannot blank out the rule.
func (e *Expander) Expand(rule Rule, exceptions []Exception, opts Options) ([]Occurrence, error) {
	if rule.DurationMin <= 0 {
		return nil, ErrInvalidDuration
	}
	duration := time.Duration(rule.DurationMin) * time.Minute

	var candidates []Occurrence
	switch rule.Kind {
	case KindSpecificDates:
		candidates = e.expandSpecificDates(rule, duration)
	case KindDaily, KindWeekly:
		var err error
		candidates, err = e.expandCalendar(rule, duration, opts.Window)
		if err != nil {
			return nil, err
		}
	default:
		return nil, ErrInvalidKind
	}

	ranges := e.exceptionRanges(exceptions)
	cutoff := time.Time{}
	if !opts.Now.IsZero() {
		cutoff = opts.Now.Add(opts.LeadTime)
	}

	out := make([]Occurrence, 0, len(candidates))
	for _, occ := range candidates {
		if !intersectsWindow(occ, opts.Window) {
			continue
		}
		if hitsException(occ, ranges) {
			continue
		}
		if !cutoff.IsZero() && occ.Start.Before(cutoff) {
			continue
		}
		out = append(out, occ)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return dedupe(out), nil
}

// expandSpecificDates yields one candidate per listed date/time combination.
// Entries carrying their own time ("2006-01-02 15:04") stand alone; bare
// dates are combined with every entry of the rule's time list.
func (e *Expander) expandSpecificDates(rule Rule, duration time.Duration) []Occurrence {
	var out []Occurrence
	for _, entry := range rule.Dates {
		if t, err := time.ParseInLocation(datetimeLayout, entry, e.location); err == nil {
			start := t.UTC()
			out = append(out, Occurrence{Start: start, End: start.Add(duration)})
			continue
		}
		day, err := time.ParseInLocation(dateLayout, entry, e.location)
		if err != nil {
			continue // malformed entry, skip
		}
		out = append(out, e.combineDay(day, rule.Times, duration)...)
	}
	return out
}

// expandCalendar walks every calendar day of the rule range, keeping only
// selected weekdays for weekly rules.  When the caller window is bounded,
// the scan is clamped to it, widened by one day at the tail so local days
// that map to a later UTC day are not lost.
func (e *Expander) expandCalendar(rule Rule, duration time.Duration, window Window) ([]Occurrence, error) {
	first, err := time.ParseInLocation(dateLayout, rule.RangeStart, e.location)
	if err != nil {
		return nil, ErrInvalidRange
	}
	last, err := time.ParseInLocation(dateLayout, rule.RangeEnd, e.location)
	if err != nil {
		return nil, ErrInvalidRange
	}
	if last.Before(first) {
		return nil, ErrInvalidRange
	}

	if !window.Start.IsZero() {
		ws := window.Start.In(e.location)
		wsDay := time.Date(ws.Year(), ws.Month(), ws.Day(), 0, 0, 0, 0, e.location)
		if wsDay.After(first) {
			first = wsDay
		}
	}
	if !window.End.IsZero() {
		we := window.End.In(e.location)
		// One extra day of slack keeps occurrences whose local day lands
		// on a later UTC day inside the scan.
		weDay := time.Date(we.Year(), we.Month(), we.Day(), 0, 0, 0, 0, e.location).AddDate(0, 0, 1)
		if weDay.Before(last) {
			last = weDay
		}
	}

	weekdaySet := make(map[time.Weekday]struct{}, len(rule.Weekdays))
	for _, d := range rule.Weekdays {
		weekdaySet[d] = struct{}{}
	}

	var out []Occurrence
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		if rule.Kind == KindWeekly {
			if _, ok := weekdaySet[day.Weekday()]; !ok {
				continue
			}
		}
		out = append(out, e.combineDay(day, rule.Times, duration)...)
	}
	return out, nil
}

// combineDay composes each wall-clock entry with the local day and converts
// the result to UTC.  Malformed time entries are skipped.
func (e *Expander) combineDay(day time.Time, times []string, duration time.Duration) []Occurrence {
	out := make([]Occurrence, 0, len(times))
	for _, entry := range times {
		tod, err := time.Parse(timeLayout, entry)
		if err != nil {
			continue // malformed entry, skip
		}
		local := time.Date(day.Year(), day.Month(), day.Day(), tod.Hour(), tod.Minute(), 0, 0, e.location)
		start := local.UTC()
		out = append(out, Occurrence{Start: start, End: start.Add(duration)})
	}
	return out
}

type exceptionRange struct {
	start time.Time
	end   time.Time
}

// exceptionRanges resolves exceptions into UTC ranges.  Whole-day entries
// cover the local day half-open; malformed entries are dropped.
func (e *Expander) exceptionRanges(exceptions []Exception) []exceptionRange {
	out := make([]exceptionRange, 0, len(exceptions))
	for _, ex := range exceptions {
		if ex.Date != "" {
			day, err := time.ParseInLocation(dateLayout, ex.Date, e.location)
			if err != nil {
				continue
			}
			out = append(out, exceptionRange{start: day.UTC(), end: day.AddDate(0, 0, 1).UTC()})
			continue
		}
		start, err := time.ParseInLocation(datetimeLayout, ex.Start, e.location)
		if err != nil {
			continue
		}
		end, err := time.ParseInLocation(datetimeLayout, ex.End, e.location)
		if err != nil || !end.After(start) {
			continue
		}
		out = append(out, exceptionRange{start: start.UTC(), end: end.UTC()})
	}
	return out
}

// hitsException reports whether the occurrence intersects any exception:
// its start or end falls inside a range, or a range falls fully inside it.
func hitsException(occ Occurrence, ranges []exceptionRange) bool {
	for _, r := range ranges {
		startInside := !occ.Start.Before(r.start) && occ.Start.Before(r.end)
		endInside := occ.End.After(r.start) && !occ.End.After(r.end)
		contains := !r.start.Before(occ.Start) && !r.end.After(occ.End)
		if startInside || endInside || contains {
			return true
		}
	}
	return false
}

// intersectsWindow keeps occurrences that overlap the window at all; only
// fully-outside occurrences are dropped.
func intersectsWindow(occ Occurrence, w Window) bool {
	if !w.Start.IsZero() && !occ.End.After(w.Start) {
		return false
	}
	if !w.End.IsZero() && !occ.Start.Before(w.End) {
		return false
	}
	return true
}

// dedupe removes exact duplicate windows from a sorted slice.  Duplicate
// specific-date entries would otherwise materialize twice.
func dedupe(occs []Occurrence) []Occurrence {
	if len(occs) < 2 {
		return occs
	}
	out := occs[:1]
	for _, occ := range occs[1:] {
		prev := out[len(out)-1]
		if occ.Start.Equal(prev.Start) && occ.End.Equal(prev.End) {
			continue
		}
		out = append(out, occ)
	}
	return out
}
