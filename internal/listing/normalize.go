package listing

import (
	"strconv"
	"strings"
	"time"
)

// Deadline layouts the upstream has been observed to emit. The compact form
// is the documented one; the dashed form shows up on some list endpoints.
const (
	deadlineCompact = "200601021504"
	deadlineDashed  = "2006-01-02 15:04"
)

// Normalizer derives CanonicalListing values from raw upstream records.
// The zero value reads time.Now in the process-local zone.
type Normalizer struct {
	// Now supplies the evaluation instant. Nil means time.Now. One call
	// per Normalize* invocation; every listing in a batch is judged
	// against the same instant.
	Now func() time.Time

	// Location interprets upstream deadline strings, which carry no zone
	// marker and are published in the issuing authority's local time.
	// Nil means time.Local.
	Location *time.Location
}

// NormalizeOptions selects the filtering policy for a batch call.
type NormalizeOptions struct {
	// OpenOnly drops listings whose deadline has passed. Off by default so
	// callers choose between "only open" and "full list" explicitly.
	OpenOnly bool
}

// NormalizeBid maps one open-bid record to the canonical shape.
func (n *Normalizer) NormalizeBid(b Bid) CanonicalListing {
	return n.normalizeBid(b, n.instant())
}

// NormalizePreSpec maps one pre-specification record to the canonical shape.
func (n *Normalizer) NormalizePreSpec(p PreSpec) CanonicalListing {
	return n.normalizePreSpec(p, n.instant())
}

// NormalizeAll maps both raw batches into one canonical slice, bids first,
// input order preserved inside each batch. The clock is read once for the
// whole batch.
func (n *Normalizer) NormalizeAll(bids []Bid, prespecs []PreSpec, opts NormalizeOptions) []CanonicalListing {
	now := n.instant()
	out := make([]CanonicalListing, 0, len(bids)+len(prespecs))
	for _, b := range bids {
		c := n.normalizeBid(b, now)
		if opts.OpenOnly && !c.IsOpen {
			continue
		}
		out = append(out, c)
	}
	for _, p := range prespecs {
		c := n.normalizePreSpec(p, now)
		if opts.OpenOnly && !c.IsOpen {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (n *Normalizer) normalizeBid(b Bid, now time.Time) CanonicalListing {
	closing, parsed := n.parseDeadline(b.Closing)
	return CanonicalListing{
		Kind:         KindOpenBid,
		Title:        b.Title,
		ID:           b.NoticeNo,
		Organization: b.Organization,
		Budget:       bidBudget(b.BudgetAmount, b.PresumedPrice),
		Closing:      closing,
		ClosingRaw:   strings.TrimSpace(b.Closing),
		DetailURL:    b.DetailURL,
		Attachments:  cloneRefs(b.Attachments),
		IsOpen:       isOpen(closing, parsed, now),
	}
}

func (n *Normalizer) normalizePreSpec(p PreSpec, now time.Time) CanonicalListing {
	closing, parsed := n.parseDeadline(p.Closing)
	return CanonicalListing{
		Kind:         KindPreSpec,
		Title:        p.Title,
		ID:           p.RegistrationNo,
		Organization: p.Organization,
		Budget:       parseAmount(p.AssignedBudget),
		Closing:      closing,
		ClosingRaw:   strings.TrimSpace(p.Closing),
		Attachments:  cloneRefs(p.Attachments),
		IsOpen:       isOpen(closing, parsed, now),
	}
}

// isOpen implements the deadline rule: strictly after the evaluation
// instant, so the boundary instant counts as closed. An unparseable
// deadline keeps the listing open — a format drift upstream must not
// silently hide live notices.
func isOpen(closing time.Time, parsed bool, now time.Time) bool {
	if !parsed {
		return true
	}
	return closing.After(now)
}

func (n *Normalizer) parseDeadline(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	loc := n.Location
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range []string{deadlineCompact, deadlineDashed} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (n *Normalizer) instant() time.Time {
	if n.Now != nil {
		return n.Now()
	}
	return time.Now()
}

// bidBudget applies the open-bid budget rule: the primary estimate wins,
// and the presumptive price is consulted only when the primary is absent
// or zero. A present but unparseable primary yields undisclosed without
// falling back.
func bidBudget(primary, secondary string) *int64 {
	p := strings.TrimSpace(primary)
	if p == "" || isZeroAmount(p) {
		return parseAmount(secondary)
	}
	return parseAmount(p)
}

// parseAmount reads a KRW amount string. Comma separators are tolerated;
// empty, zero, negative, or unparseable amounts mean undisclosed.
func parseAmount(s string) *int64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return nil
	}
	return &v
}

func isZeroAmount(s string) bool {
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return false
	}
	for _, r := range s {
		if r != '0' {
			return false
		}
	}
	return true
}

func cloneRefs(refs []AttachmentRef) []AttachmentRef {
	if len(refs) == 0 {
		return nil
	}
	out := make([]AttachmentRef, len(refs))
	copy(out, refs)
	return out
}
