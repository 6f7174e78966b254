// Package extract turns selected attachment bytes into plain text. A
// dispatch table routes each format to its extractor; the two legacy
// word-processor formats run a primary high-level parse with an automatic
// fallback to a low-level stream scrape when the primary fails or produces
// too little text.
package extract

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/rs/zerolog/log"

	"github.com/Datajang/narajangteo-mcp-server/internal/attach"
)

// Tier names which extractor produced a result.
type Tier string

const (
	TierPrimary  Tier = "primary"
	TierFallback Tier = "fallback"
)

// FailureKind classifies why a pipeline step produced no text.
type FailureKind string

const (
	// FailureSourceUnavailable covers fetch/network failures, including
	// cancelled or timed-out downloads.
	FailureSourceUnavailable FailureKind = "source_unavailable"
	// FailureUpstreamAPI is a listing-source rejection (error result code).
	FailureUpstreamAPI FailureKind = "upstream_api_error"
	FailureCorruptContainer  FailureKind = "corrupt_container"
	FailureUnsupportedFormat FailureKind = "unsupported_format"
	// FailureImageOnlyOrEmpty marks documents that opened fine but carry
	// no extractable text, e.g. scanned PDFs.
	FailureImageOnlyOrEmpty FailureKind = "image_only_or_empty"
	// FailureExtraction means every applicable tier was exhausted.
	FailureExtraction  FailureKind = "extraction_failed"
	FailureNoCandidate FailureKind = "no_candidate_found"
)

// Result is the outcome of one extraction call. Failed results keep enough
// context (filename, format, tier, detail) to act on without re-running.
type Result struct {
	Text           string
	SourceFilename string
	Format         attach.FormatTag
	ExtractorUsed  Tier
	Success        bool
	FailureKind    FailureKind
	Detail         string
}

// Failure builds a failed Result.
func Failure(filename string, tag attach.FormatTag, tier Tier, kind FailureKind, err error) Result {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	return Result{
		SourceFilename: filename,
		Format:         tag,
		ExtractorUsed:  tier,
		FailureKind:    kind,
		Detail:         detail,
	}
}

// DefaultMinTextChars is the minimum non-whitespace character count an
// extractor must clear before its output counts as success.
const DefaultMinTextChars = 20

// Dispatcher routes bytes to format extractors. The zero value is usable.
type Dispatcher struct {
	// MinTextChars overrides DefaultMinTextChars when positive.
	MinTextChars int
}

// Extract classifies the filename (with a magic-byte fallback) and
// dispatches. The terminal states are a successful Result or a failed one;
// there are no retries beyond the formats' two tiers and no partial text.
func (d *Dispatcher) Extract(data []byte, filename string) Result {
	return d.ExtractTagged(data, filename, attach.ClassifyBytes(filename, data))
}

// ExtractTagged dispatches bytes the caller already classified.
func (d *Dispatcher) ExtractTagged(data []byte, filename string, tag attach.FormatTag) Result {
	switch tag {
	case attach.CompoundLegacyDoc:
		return d.tiered(data, filename, tag, hwpBody, hwpPreview)
	case attach.OfficeXmlDoc:
		return d.tiered(data, filename, tag, hwpxSections, hwpxPreview)
	case attach.PDF:
		return d.single(data, filename, tag, pdfText)
	case attach.WordDoc:
		return d.single(data, filename, tag, docxText)
	case attach.Spreadsheet:
		return d.single(data, filename, tag, xlsxText)
	case attach.Container:
		return d.container(data, filename)
	default:
		return Failure(filename, tag, "", FailureUnsupportedFormat,
			fmt.Errorf("no extractor for %q", filename))
	}
}

type extractFunc func([]byte) (string, error)

// tiered drives the primary→fallback chain. The fallback runs on any
// primary failure except encryption — DRM is not repaired, and the fallback
// would read the same protected streams.
func (d *Dispatcher) tiered(data []byte, filename string, tag attach.FormatTag, primary, fallback extractFunc) Result {
	text, perr := primary(data)
	if perr == nil {
		if out, ok := d.accept(text); ok {
			return Result{Text: out, SourceFilename: filename, Format: tag, ExtractorUsed: TierPrimary, Success: true}
		}
		perr = fmt.Errorf("primary output below %d non-whitespace chars", d.threshold())
	}
	if errors.Is(perr, ErrEncrypted) {
		return Failure(filename, tag, TierPrimary, FailureExtraction, perr)
	}
	log.Debug().Err(perr).Str("filename", filename).Str("format", tag.String()).
		Msg("primary extractor failed, trying fallback")

	text, ferr := fallback(data)
	if ferr == nil {
		if out, ok := d.accept(text); ok {
			return Result{Text: out, SourceFilename: filename, Format: tag, ExtractorUsed: TierFallback, Success: true}
		}
		ferr = fmt.Errorf("fallback output below %d non-whitespace chars", d.threshold())
	}
	return Failure(filename, tag, TierFallback, FailureExtraction,
		fmt.Errorf("primary: %v; fallback: %v", perr, ferr))
}

// single runs a one-tier extractor. Output below the minimum threshold is
// never a silent success: it reports an image-only or empty document.
func (d *Dispatcher) single(data []byte, filename string, tag attach.FormatTag, fn extractFunc) Result {
	text, err := fn(data)
	if err != nil {
		return Failure(filename, tag, TierPrimary, FailureExtraction, err)
	}
	out, ok := d.accept(text)
	if !ok {
		return Failure(filename, tag, TierPrimary, FailureImageOnlyOrEmpty,
			fmt.Errorf("document yielded fewer than %d non-whitespace chars", d.threshold()))
	}
	return Result{Text: out, SourceFilename: filename, Format: tag, ExtractorUsed: TierPrimary, Success: true}
}

// container expands a ZIP one level, picks the best inner document with the
// same keyword-then-format policy the selector uses, and extracts it.
func (d *Dispatcher) container(data []byte, filename string) Result {
	entries, err := attach.Expand(data)
	if err != nil {
		return Failure(filename, attach.Container, "", FailureCorruptContainer, err)
	}
	e := attach.SelectEntry(entries)
	if e == nil {
		return Failure(filename, attach.Container, "", FailureNoCandidate,
			fmt.Errorf("no suitable document in archive (%s)", entryNames(entries)))
	}
	inner, err := e.Open()
	if err != nil {
		return Failure(filename, attach.Container, "", FailureCorruptContainer, err)
	}
	res := d.ExtractTagged(inner, e.Name, e.Format)
	if res.Success {
		res.Text = "[Extracted from ZIP: " + e.Name + "]\n\n" + res.Text
	}
	return res
}

func entryNames(entries []attach.Entry) string {
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
		if len(names) == 10 {
			break
		}
	}
	return strings.Join(names, ", ")
}

func (d *Dispatcher) threshold() int {
	if d.MinTextChars > 0 {
		return d.MinTextChars
	}
	return DefaultMinTextChars
}

// accept normalizes extractor output and enforces the minimum-content rule.
func (d *Dispatcher) accept(text string) (string, bool) {
	out := normalizeWhitespace(text)
	if countNonWhitespace(out) < d.threshold() {
		return "", false
	}
	return out, true
}

func countNonWhitespace(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

// normalizeWhitespace trims lines, collapses internal runs, and keeps at
// most one consecutive blank line.
func normalizeWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if len(out) > 0 && out[len(out)-1] == "" {
				continue
			}
			out = append(out, "")
			continue
		}
		out = append(out, collapseSpaces(trimmed))
	}
	for len(out) > 0 && out[0] == "" {
		out = out[1:]
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}

func collapseSpaces(s string) string {
	var b strings.Builder
	lastSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\r' {
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return b.String()
}
