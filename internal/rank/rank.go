// Package rank orders procurement listings by how well their titles and
// organizations match a department profile. Scoring is pure and
// deterministic: the same inputs produce the same ranking, with no
// randomness and no clock reads.
package rank

import (
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/Datajang/narajangteo-mcp-server/internal/listing"
)

// Candidate pairs a listing with its relevance score and short ordered
// notes on how the score came about.
type Candidate struct {
	Listing listing.CanonicalListing

	// Index is the listing's position in the Rank input, so callers can
	// point back at the source row after reordering.
	Index int

	Score     int
	Rationale []string
}

// Mode selects how much of the ranking to return.
type Mode struct {
	n int
}

// All returns every candidate, ranked.
func All() Mode { return Mode{} }

// TopN truncates the ranking after sorting. Non-positive n means All.
func TopN(n int) Mode {
	if n < 0 {
		n = 0
	}
	return Mode{n: n}
}

// Overlap scoring: first matched keyword is worth the most, each further
// match adds less, flattening to +2 per keyword against a base ceiling.
var overlapSteps = []int{40, 25, 15, 7, 5}

const (
	baseCeiling = 92
	budgetBonus = 8
	maxScore    = 100
)

// Rank scores every listing against the profile and sorts best-first.
// Ties break on disclosed budget, then on upstream order.
func Rank(items []listing.CanonicalListing, profile string, mode Mode) []Candidate {
	profileTokens := tokenize(profile)
	out := make([]Candidate, 0, len(items))
	for i, it := range items {
		matched := matchedTokens(profileTokens, tokenize(it.Title+" "+it.Organization))
		score := baseScore(len(matched))
		if score > 0 && it.HasBudget() {
			score += budgetBonus
		}
		if score > maxScore {
			score = maxScore
		}
		out = append(out, Candidate{Listing: it, Index: i, Score: score, Rationale: rationale(matched, it)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		bi, bj := out[i].Listing.HasBudget(), out[j].Listing.HasBudget()
		if bi != bj {
			return bi
		}
		return false
	})
	if mode.n > 0 && mode.n < len(out) {
		out = out[:mode.n]
	}
	return out
}

func baseScore(overlap int) int {
	score := 0
	for i := 0; i < overlap; i++ {
		if i < len(overlapSteps) {
			score += overlapSteps[i]
		} else {
			score += 2
		}
	}
	if score > baseCeiling {
		score = baseCeiling
	}
	return score
}

// matchedTokens returns the profile tokens that match at least one listing
// token, in profile order. Each profile token counts once.
func matchedTokens(profile, listingTokens []string) []string {
	var out []string
	for _, p := range profile {
		for _, t := range listingTokens {
			if tokensMatch(p, t) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// tokensMatch accepts exact equality for any script. Hangul tokens also
// match by containment, so a profile keyword finds itself inside the
// unspaced compounds procurement titles are full of. Containment for latin
// tokens would false-positive constantly ("ai" in "maintain").
func tokensMatch(a, b string) bool {
	if a == b {
		return true
	}
	shorter, longer := a, b
	if utf8.RuneCountInString(shorter) > utf8.RuneCountInString(longer) {
		shorter, longer = longer, shorter
	}
	if utf8.RuneCountInString(shorter) < 2 {
		return false
	}
	if !isHangul(shorter) || !isHangul(longer) {
		return false
	}
	return strings.Contains(longer, shorter)
}

func isHangul(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.Is(unicode.Hangul, r) {
			return false
		}
	}
	return true
}

var foldMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

var stopwords = map[string]bool{
	"관련": true, "기타": true, "부서": true,
	"the": true, "and": true, "for": true, "with": true, "from": true,
}

// tokenize folds diacritics, lowercases, splits on anything that is not a
// letter or digit, and drops single-rune tokens, stopwords and duplicates.
// Output order follows the input text, which keeps rationales stable.
func tokenize(s string) []string {
	folded, _, err := transform.String(foldMarks, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	fields := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool, len(fields))
	var out []string
	for _, f := range fields {
		if utf8.RuneCountInString(f) < 2 || stopwords[f] || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

func rationale(matched []string, l listing.CanonicalListing) []string {
	parts := make([]string, 0, 3)
	if len(matched) > 0 {
		parts = append(parts, "matched keywords: "+strings.Join(matched, ", "))
	} else {
		parts = append(parts, "no keyword overlap")
	}
	if l.HasBudget() {
		parts = append(parts, "budget disclosed: "+groupDigits(*l.Budget)+" KRW")
	} else {
		parts = append(parts, "budget undisclosed")
	}
	if l.ClosingRaw != "" {
		parts = append(parts, "closes "+l.ClosingRaw)
	}
	return parts
}

func groupDigits(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
