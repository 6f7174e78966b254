package listing

import "time"

// Kind discriminates the two upstream notice shapes.
type Kind string

const (
	// KindOpenBid is a regular bid notice accepting submissions.
	KindOpenBid Kind = "bid"
	// KindPreSpec is a pre-specification notice soliciting comments on a
	// draft spec before the bid formally opens.
	KindPreSpec Kind = "prespec"
)

// AttachmentRef is one (filename, url) attachment pair. Slice order is the
// order the upstream returned and is the last-resort tie-break during
// candidate selection, so it must be preserved end to end.
type AttachmentRef struct {
	Filename string
	URL      string
}

// CanonicalListing is the unified projection of the two upstream shapes.
type CanonicalListing struct {
	Kind         Kind
	Title        string
	ID           string
	Organization string

	// Budget is the disclosed amount in KRW. Nil means undisclosed: the
	// upstream published no amount, a zero, or an unparseable string.
	Budget *int64

	// Closing is the parsed deadline. Zero when ClosingRaw did not parse;
	// ClosingRaw keeps the upstream string for display either way.
	Closing    time.Time
	ClosingRaw string

	// DetailURL links the notice detail page when the upstream provides one.
	DetailURL string

	Attachments []AttachmentRef

	// IsOpen is derived at normalization time and never persisted:
	// Closing.After(now), so the boundary instant counts as closed.
	IsOpen bool
}

// HasBudget reports whether the listing discloses a budget amount.
func (c CanonicalListing) HasBudget() bool {
	return c.Budget != nil
}
