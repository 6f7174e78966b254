package attach

import (
	"context"
	"errors"
	"sort"

	"github.com/Datajang/narajangteo-mcp-server/internal/listing"
)

// ErrNoCandidate reports that the attachment set holds nothing extractable:
// the list is empty, every entry is Unknown, or every container probe came
// up empty.
var ErrNoCandidate = errors.New("no candidate attachment")

// Fetcher supplies attachment bytes when a container must be probed. The
// Selector performs no other I/O.
type Fetcher func(ctx context.Context, url string) ([]byte, error)

// Selection identifies the single attachment chosen for extraction.
type Selection struct {
	// Ref is the outer attachment the selection came from.
	Ref listing.AttachmentRef
	// InnerName is set when Ref is a container and an inner entry won.
	InnerName string
	// Format tags the selected file itself (the inner entry when expanded).
	Format FormatTag
	// Data holds the inner entry's bytes when the selection required
	// expansion. Nil otherwise: the caller fetches Ref.URL itself.
	Data []byte
}

// Selector picks at most one attachment from a listing's attachment set.
//
// Candidates are ordered keyword-match first, then by format priority, then
// by upstream order, and resolved in that fixed order: a plain document wins
// immediately, a container is fetched and expanded one level with the same
// policy applied inside, and a container that fails to fetch, open, or yield
// an eligible entry is skipped in favor of the next candidate. Probes always
// resolve in candidate order, so repeated calls over the same refs and bytes
// return the identical selection.
type Selector struct {
	Fetch Fetcher
}

// Select applies the selection policy to one listing's attachments.
func (s *Selector) Select(ctx context.Context, refs []listing.AttachmentRef) (*Selection, error) {
	type candidate struct {
		ref   listing.AttachmentRef
		tag   FormatTag
		kw    int
		tier  int
		index int
	}
	cands := make([]candidate, 0, len(refs))
	for i, ref := range refs {
		tag := Classify(ref.Filename)
		tier, ok := priorityTier(tag)
		if !ok {
			continue
		}
		kw := 1
		if MatchesKeyword(ref.Filename) {
			kw = 0
		}
		cands = append(cands, candidate{ref: ref, tag: tag, kw: kw, tier: tier, index: i})
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].kw != cands[j].kw {
			return cands[i].kw < cands[j].kw
		}
		if cands[i].tier != cands[j].tier {
			return cands[i].tier < cands[j].tier
		}
		return cands[i].index < cands[j].index
	})

	for _, c := range cands {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if c.tag != Container {
			return &Selection{Ref: c.ref, Format: c.tag}, nil
		}
		if s.Fetch == nil {
			continue
		}
		data, err := s.Fetch(ctx, c.ref.URL)
		if err != nil {
			continue
		}
		entries, err := Expand(data)
		if err != nil {
			continue
		}
		e := SelectEntry(entries)
		if e == nil {
			continue
		}
		inner, err := e.Open()
		if err != nil {
			continue
		}
		return &Selection{Ref: c.ref, InnerName: e.Name, Format: e.Format, Data: inner}, nil
	}
	return nil, ErrNoCandidate
}
