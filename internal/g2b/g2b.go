// Package g2b talks to the public procurement listing API: keyword search
// over open bid notices and pre-specification registrations. Responses use
// the service's JSON envelope, whose items field changes shape with the
// result count.
package g2b

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Datajang/narajangteo-mcp-server/internal/listing"
)

// Source is a provider of raw listings. Client implements it against the
// live API; FileSource serves canned data for offline runs.
type Source interface {
	SearchBids(ctx context.Context, keyword string, limit int) ([]listing.Bid, int, error)
	SearchPreSpecs(ctx context.Context, keyword string, limit int) ([]listing.PreSpec, int, error)
}

const (
	// DefaultBaseURL is the service-division listing endpoint group.
	DefaultBaseURL = "http://apis.data.go.kr/1230000/ad/BidPublicInfoService"

	// DefaultWindowDays is how far back searches look.
	DefaultWindowDays = 7

	// DefaultRows bounds one page of results.
	DefaultRows = 20

	opBidSearch     = "getBidPblancListInfoServcPPSSrch"
	opPreSpecSearch = "getBfSpecRgstSttusListInfoServcPPSSrch"
)

// Client implements Source over HTTP.
type Client struct {
	BaseURL    string // DefaultBaseURL when empty
	ServiceKey string // decoded issued key, required
	HTTPClient *http.Client
	UserAgent  string
	WindowDays int              // DefaultWindowDays when zero
	Now        func() time.Time // test hook; time.Now when nil
}

// APIError is an upstream rejection: the envelope arrived but its header
// carried a non-success result code.
type APIError struct {
	Code string
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("listing api error %s: %s", e.Code, e.Msg)
}

// IsNoData reports the "no matching data" result, which callers usually
// treat as an empty result set rather than a failure.
func (e *APIError) IsNoData() bool { return e.Code == "03" }

// IsAccessDenied reports key rejections: unregistered, expired or
// forbidden service keys.
func (e *APIError) IsAccessDenied() bool { return e.Code == "20" || e.Code == "30" }

// SearchBids queries open bid notices whose title contains the keyword,
// within the lookback window.
func (c *Client) SearchBids(ctx context.Context, keyword string, limit int) ([]listing.Bid, int, error) {
	raw, total, err := c.call(ctx, opBidSearch, "bidNtceNm", keyword, limit)
	if err != nil {
		return nil, 0, err
	}
	items, err := decodeItems[listing.Bid](raw)
	if err != nil {
		return nil, 0, fmt.Errorf("decode bid items: %w", err)
	}
	return items, total, nil
}

// SearchPreSpecs queries pre-specification registrations, the stage before
// a bid notice is published.
func (c *Client) SearchPreSpecs(ctx context.Context, keyword string, limit int) ([]listing.PreSpec, int, error) {
	raw, total, err := c.call(ctx, opPreSpecSearch, "bfSpecNm", keyword, limit)
	if err != nil {
		return nil, 0, err
	}
	items, err := decodeItems[listing.PreSpec](raw)
	if err != nil {
		return nil, 0, fmt.Errorf("decode prespec items: %w", err)
	}
	return items, total, nil
}

func (c *Client) call(ctx context.Context, operation, nameParam, keyword string, limit int) (json.RawMessage, int, error) {
	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, 0, fmt.Errorf("listing base url: %w", err)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + operation

	if limit <= 0 {
		limit = DefaultRows
	}
	days := c.WindowDays
	if days <= 0 {
		days = DefaultWindowDays
	}
	now := time.Now()
	if c.Now != nil {
		now = c.Now()
	}

	q := u.Query()
	q.Set("serviceKey", c.ServiceKey)
	q.Set("pageNo", "1")
	q.Set("numOfRows", strconv.Itoa(limit))
	q.Set("inqryDiv", "1")
	q.Set("type", "json")
	q.Set("inqryBgnDt", now.AddDate(0, 0, -days).Format("20060102")+"0000")
	q.Set("inqryEndDt", now.Format("20060102")+"2359")
	q.Set(nameParam, keyword)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, 0, err
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	hc := c.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("listing request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, 0, fmt.Errorf("listing status: %d", resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, 0, fmt.Errorf("listing response: %w", err)
	}
	if code := env.Response.Header.ResultCode; code != "00" {
		return nil, 0, &APIError{Code: code, Msg: env.Response.Header.ResultMsg}
	}
	return env.Response.Body.Items, parseCount(env.Response.Body.TotalCount), nil
}

type envelope struct {
	Response struct {
		Header struct {
			ResultCode string `json:"resultCode"`
			ResultMsg  string `json:"resultMsg"`
		} `json:"header"`
		Body struct {
			Items      json.RawMessage `json:"items"`
			TotalCount json.RawMessage `json:"totalCount"`
		} `json:"body"`
	} `json:"response"`
}

// decodeItems tolerates every items shape the service emits: a bare array,
// an object wrapping "item" (itself an array or a single object), an empty
// string, or nothing at all.
func decodeItems[T any](raw json.RawMessage) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	switch trimmed[0] {
	case '[':
		var out []T
		if err := json.Unmarshal(trimmed, &out); err != nil {
			return nil, err
		}
		return out, nil
	case '{':
		var wrap struct {
			Item json.RawMessage `json:"item"`
		}
		if err := json.Unmarshal(trimmed, &wrap); err != nil {
			return nil, err
		}
		inner := bytes.TrimSpace(wrap.Item)
		if len(inner) == 0 || bytes.Equal(inner, []byte("null")) {
			return nil, nil
		}
		if inner[0] == '[' {
			var out []T
			if err := json.Unmarshal(inner, &out); err != nil {
				return nil, err
			}
			return out, nil
		}
		var one T
		if err := json.Unmarshal(inner, &one); err != nil {
			return nil, err
		}
		return []T{one}, nil
	default:
		// Bare string or number stands in for "no items".
		return nil, nil
	}
}

func parseCount(raw json.RawMessage) int {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0
	}
	var n int
	if err := json.Unmarshal(trimmed, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return n
		}
	}
	return 0
}
