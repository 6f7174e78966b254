// Package app wires the listing source, attachment pipeline and ranking
// into the tool operations the MCP server exposes.
package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Datajang/narajangteo-mcp-server/internal/attach"
	"github.com/Datajang/narajangteo-mcp-server/internal/extract"
	"github.com/Datajang/narajangteo-mcp-server/internal/fetch"
	"github.com/Datajang/narajangteo-mcp-server/internal/g2b"
	"github.com/Datajang/narajangteo-mcp-server/internal/listing"
	"github.com/Datajang/narajangteo-mcp-server/internal/rank"
)

const (
	searchRows    = 20
	recommendRows = 30

	// maxAnalysisRunes caps the document text embedded in one analysis
	// response so a single attachment cannot blow the message budget.
	maxAnalysisRunes = 15000
)

// fileGetter is the slice of the attachment fetcher the app consumes.
type fileGetter interface {
	Fetch(ctx context.Context, rawURL string) (*fetch.File, error)
}

// App owns the collaborators behind the MCP tools. Operations render their
// outcome as text: upstream failures degrade the affected section and are
// logged, they never abort the whole response.
type App struct {
	cfg        Config
	source     g2b.Source
	files      fileGetter
	dispatcher *extract.Dispatcher

	// missingKey is set when the live API is selected without a key.
	// Tools report it per call so the server still starts and lists them.
	missingKey bool

	now func() time.Time
	loc *time.Location
}

// New builds an App from cfg. The listings file, when set, replaces the
// live API so the server can run against canned data.
func New(cfg Config) (*App, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	a := &App{
		cfg:        cfg,
		dispatcher: &extract.Dispatcher{},
		now:        time.Now,
		loc:        time.Local,
	}
	if cfg.ListingsFile != "" {
		a.source = &g2b.FileSource{Path: cfg.ListingsFile}
	} else {
		a.source = &g2b.Client{
			BaseURL:    cfg.BaseURL,
			ServiceKey: cfg.APIKey,
			UserAgent:  cfg.UserAgent,
			WindowDays: cfg.WindowDays,
		}
		a.missingKey = cfg.APIKey == ""
	}
	a.files = &fetch.Client{
		UserAgent:         cfg.UserAgent,
		MaxAttempts:       cfg.FetchAttempts,
		PerRequestTimeout: 30 * time.Second,
		MaxBytes:          cfg.MaxFetchBytes,
	}
	return a, nil
}

// SearchByKeyword runs both listing searches for one keyword and renders
// the combined report: open bid notices first, then open preliminary
// specifications.
func (a *App) SearchByKeyword(ctx context.Context, keyword string) string {
	if a.missingKey {
		return msgMissingKey
	}
	now := a.clock()
	openBids, bidTotal, openSpecs, specTotal := a.collect(ctx, keyword, searchRows, now)
	return renderSearch(keyword, a.windowDays(), now, openBids, bidTotal, openSpecs, specTotal)
}

// RecommendForProfile searches both endpoints, ranks every open listing
// against the department profile and renders the ranked report. topN
// truncates the ranking; zero or negative means all.
func (a *App) RecommendForProfile(ctx context.Context, keyword, profile string, topN int) string {
	if a.missingKey {
		return msgMissingKey
	}
	now := a.clock()
	openBids, bidTotal, openSpecs, specTotal := a.collect(ctx, keyword, recommendRows, now)

	combined := make([]listing.CanonicalListing, 0, len(openBids)+len(openSpecs))
	combined = append(combined, openBids...)
	combined = append(combined, openSpecs...)
	cands := rank.Rank(combined, profile, rank.TopN(topN))

	return renderRecommend(keyword, profile, cands, len(openBids), bidTotal, len(openSpecs), specTotal)
}

// AnalyzeAttachment downloads one attachment, extracts its text and wraps
// it in the strategic-analysis prompt. Any failure renders as an error
// message that keeps the manual download link usable.
func (a *App) AnalyzeAttachment(ctx context.Context, fileURL, filename, profile string) string {
	f, err := a.files.Fetch(ctx, fileURL)
	if err != nil {
		log.Warn().Err(err).Str("url", fileURL).
			Str("kind", string(extract.FailureSourceUnavailable)).
			Msg("attachment analysis failed")
		return renderAnalysisFailure(err.Error(), fileURL)
	}
	name := strings.TrimSpace(filename)
	if name == "" {
		name = f.Filename
	}
	if name == "" {
		log.Warn().Str("url", fileURL).
			Str("kind", string(extract.FailureUnsupportedFormat)).
			Msg("attachment analysis failed")
		return renderAnalysisFailure("cannot determine a filename for the attachment", fileURL)
	}
	res := a.dispatcher.Extract(f.Data, name)
	if !res.Success {
		reason := res.Detail
		if reason == "" {
			reason = string(res.FailureKind)
		}
		log.Warn().Str("url", fileURL).Str("filename", name).
			Str("kind", string(res.FailureKind)).
			Msg("attachment analysis failed")
		return renderAnalysisFailure(reason, fileURL)
	}
	return renderAnalysis(name, fileURL, profile, truncateText(res.Text, maxAnalysisRunes))
}

// SelectAndExtract picks the best attachment of one listing and extracts
// its text. Failures come back inside the Result; the error return is
// reserved for a dead context.
func (a *App) SelectAndExtract(ctx context.Context, l listing.CanonicalListing) (extract.Result, error) {
	selector := &attach.Selector{Fetch: a.fetchBytes}
	sel, err := selector.Select(ctx, l.Attachments)
	if err != nil {
		if errors.Is(err, attach.ErrNoCandidate) {
			return extract.Failure("", attach.Unknown, "", extract.FailureNoCandidate, err), nil
		}
		return extract.Result{}, err
	}
	data := sel.Data
	name := sel.InnerName
	if name == "" {
		name = sel.Ref.Filename
	}
	if data == nil {
		f, err := a.files.Fetch(ctx, sel.Ref.URL)
		if err != nil {
			return extract.Failure(name, sel.Format, "", extract.FailureSourceUnavailable, err), nil
		}
		data = f.Data
	}
	return a.dispatcher.ExtractTagged(data, name, sel.Format), nil
}

// collect queries both endpoints and normalizes against one clock read.
// A failing endpoint degrades to an empty section; the other side still
// reports.
func (a *App) collect(ctx context.Context, keyword string, rows int, now time.Time) (openBids []listing.CanonicalListing, bidTotal int, openSpecs []listing.CanonicalListing, specTotal int) {
	norm := &listing.Normalizer{Now: func() time.Time { return now }, Location: a.loc}
	open := listing.NormalizeOptions{OpenOnly: true}

	bids, total, err := a.source.SearchBids(ctx, keyword, rows)
	if err != nil {
		logEndpointError(err, "bids", keyword)
	} else {
		openBids = norm.NormalizeAll(bids, nil, open)
		bidTotal = total
	}

	specs, total, err := a.source.SearchPreSpecs(ctx, keyword, rows)
	if err != nil {
		logEndpointError(err, "prespecs", keyword)
	} else {
		openSpecs = norm.NormalizeAll(nil, specs, open)
		specTotal = total
	}
	return openBids, bidTotal, openSpecs, specTotal
}

func (a *App) fetchBytes(ctx context.Context, rawURL string) ([]byte, error) {
	f, err := a.files.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return f.Data, nil
}

func (a *App) clock() time.Time {
	if a.now != nil {
		return a.now()
	}
	return time.Now()
}

func (a *App) windowDays() int {
	if a.cfg.WindowDays > 0 {
		return a.cfg.WindowDays
	}
	return g2b.DefaultWindowDays
}

// logEndpointError records a degraded section. An upstream "no data" code
// is a result, not a failure, and stays quiet.
func logEndpointError(err error, endpoint, keyword string) {
	var apiErr *g2b.APIError
	if errors.As(err, &apiErr) && apiErr.IsNoData() {
		return
	}
	log.Warn().Err(err).Str("endpoint", endpoint).Str("keyword", keyword).
		Msg("listing search failed; section degraded")
}
