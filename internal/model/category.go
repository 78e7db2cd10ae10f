package model

// CategoryKey identifies a ticket/participant type (e.g. "adult", "child")
// within an experience.  Keys are opaque strings validated against the
// experience's configured category set rather than a free-form dictionary.
type CategoryKey string

// CategoryQuantities maps ticket types to requested or booked seat counts.
// It is serialized as a JSON object in the reservations table.
type CategoryQuantities map[CategoryKey]int

// Total sums all per-category quantities.  A reservation without a
// category breakdown counts as a single seat.
func (q CategoryQuantities) Total() int {
	if len(q) == 0 {
		return 1
	}
	total := 0
	for _, n := range q {
		total += n
	}
	return total
}
