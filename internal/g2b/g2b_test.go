package g2b

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func fixedNow() time.Time {
	return time.Date(2025, 8, 22, 15, 4, 5, 0, time.UTC)
}

func TestClientSearchBidsBuildsQueryAndDecodes(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{}
		for k, v := range r.URL.Query() {
			gotQuery[k] = v[0]
		}
		if !strings.HasSuffix(r.URL.Path, "/getBidPblancListInfoServcPPSSrch") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"response": {
				"header": {"resultCode": "00", "resultMsg": "NORMAL SERVICE"},
				"body": {
					"totalCount": 2,
					"items": [
						{
							"bidNtceNm": "AI 플랫폼 구축 사업",
							"bidNtceNo": "20250822001",
							"dminsttNm": "조달청",
							"bdgtAmt": "150000000",
							"presmptPrce": "140000000",
							"bidClseDt": "2025-09-01 10:00",
							"bidNtceDtlUrl": "https://example.com/bid/1",
							"ntceSpecDocUrl1": "https://example.com/files/1",
							"ntceSpecFileNm1": "제안요청서.hwp"
						},
						{
							"bidNtceNm": "도로 보수공사",
							"bidNtceNo": "20250822002",
							"dminsttNm": "서울특별시",
							"bdgtAmt": 80000000,
							"bidClseDt": "2025-08-28 17:00"
						}
					]
				}
			}
		}`)
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, ServiceKey: "test-key", HTTPClient: srv.Client(), Now: fixedNow}
	bids, total, err := c.SearchBids(context.Background(), "플랫폼", 20)
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if total != 2 || len(bids) != 2 {
		t.Fatalf("expected 2 bids / total 2, got %d / %d", len(bids), total)
	}
	if bids[0].Title != "AI 플랫폼 구축 사업" || bids[0].NoticeNo != "20250822001" {
		t.Fatalf("first bid decoded wrong: %+v", bids[0])
	}
	if len(bids[0].Attachments) != 1 || bids[0].Attachments[0].Filename != "제안요청서.hwp" {
		t.Fatalf("attachments decoded wrong: %+v", bids[0].Attachments)
	}
	if bids[1].BudgetAmount != "80000000" {
		t.Fatalf("numeric budget not folded to string: %q", bids[1].BudgetAmount)
	}

	want := map[string]string{
		"serviceKey": "test-key",
		"pageNo":     "1",
		"numOfRows":  "20",
		"inqryDiv":   "1",
		"type":       "json",
		"inqryBgnDt": "202508150000",
		"inqryEndDt": "202508222359",
		"bidNtceNm":  "플랫폼",
	}
	for k, v := range want {
		if gotQuery[k] != v {
			t.Errorf("query %s = %q, want %q", k, gotQuery[k], v)
		}
	}
}

func TestClientSearchPreSpecsUsesSpecNameParam(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/getBfSpecRgstSttusListInfoServcPPSSrch") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("bfSpecNm") != "클라우드" {
			t.Errorf("bfSpecNm = %q", q.Get("bfSpecNm"))
		}
		if q.Has("bidNtceNm") {
			t.Errorf("bid name param leaked into prespec query")
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"response": {
				"header": {"resultCode": "00", "resultMsg": "NORMAL SERVICE"},
				"body": {
					"totalCount": "1",
					"items": {
						"item": {
							"bfSpecNm": "클라우드 전환 사전규격",
							"bfSpecRgstNo": "R2025082201",
							"ordInsttNm": "행정안전부",
							"asignBdgtAmt": "90000000",
							"opnEndDt": "2025-08-29 18:00"
						}
					}
				}
			}
		}`)
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, ServiceKey: "test-key", HTTPClient: srv.Client(), Now: fixedNow}
	specs, total, err := c.SearchPreSpecs(context.Background(), "클라우드", 30)
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if total != 1 || len(specs) != 1 {
		t.Fatalf("expected 1 prespec / total 1, got %d / %d", len(specs), total)
	}
	if specs[0].RegistrationNo != "R2025082201" {
		t.Fatalf("prespec decoded wrong: %+v", specs[0])
	}
}

func TestClientErrorCodes(t *testing.T) {
	cases := []struct {
		name         string
		code, msg    string
		noData       bool
		accessDenied bool
	}{
		{"no data", "03", "NODATA_ERROR", true, false},
		{"access denied", "20", "SERVICE_ACCESS_DENIED_ERROR", false, true},
		{"unregistered key", "30", "SERVICE_KEY_IS_NOT_REGISTERED_ERROR", false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprintf(w, `{"response": {"header": {"resultCode": %q, "resultMsg": %q}, "body": {"items": "", "totalCount": 0}}}`, tc.code, tc.msg)
			}))
			defer srv.Close()

			c := &Client{BaseURL: srv.URL, ServiceKey: "k", HTTPClient: srv.Client(), Now: fixedNow}
			_, _, err := c.SearchBids(context.Background(), "x", 5)
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.Code != tc.code || apiErr.Msg != tc.msg {
				t.Fatalf("unexpected error fields: %+v", apiErr)
			}
			if apiErr.IsNoData() != tc.noData || apiErr.IsAccessDenied() != tc.accessDenied {
				t.Fatalf("classification wrong for code %s", tc.code)
			}
		})
	}
}

func TestClientHTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broken", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, ServiceKey: "k", HTTPClient: srv.Client(), Now: fixedNow}
	_, _, err := c.SearchBids(context.Background(), "x", 5)
	if err == nil || !strings.Contains(err.Error(), "status") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestDecodeItemsShapes(t *testing.T) {
	type tiny struct {
		Name string `json:"name"`
	}
	cases := []struct {
		name string
		raw  string
		want int
	}{
		{"array", `[{"name":"a"},{"name":"b"}]`, 2},
		{"wrapped array", `{"item":[{"name":"a"}]}`, 1},
		{"wrapped single", `{"item":{"name":"a"}}`, 1},
		{"empty string", `""`, 0},
		{"null", `null`, 0},
		{"absent", ``, 0},
		{"wrapped null", `{"item":null}`, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := decodeItems[tiny](json.RawMessage(tc.raw))
			if err != nil {
				t.Fatalf("decode error: %v", err)
			}
			if len(got) != tc.want {
				t.Fatalf("expected %d items, got %d", tc.want, len(got))
			}
		})
	}
}

func TestParseCount(t *testing.T) {
	cases := []struct {
		raw  string
		want int
	}{
		{`42`, 42},
		{`"17"`, 17},
		{`" 3 "`, 3},
		{`"many"`, 0},
		{``, 0},
		{`null`, 0},
	}
	for _, tc := range cases {
		if got := parseCount(json.RawMessage(tc.raw)); got != tc.want {
			t.Errorf("parseCount(%q) = %d, want %d", tc.raw, got, tc.want)
		}
	}
}

func TestFileSourceFiltersAndLimits(t *testing.T) {
	doc := `{
		"bids": [
			{"bidNtceNm": "AI 플랫폼 구축", "bidNtceNo": "1"},
			{"bidNtceNm": "도로 보수공사", "bidNtceNo": "2"},
			{"bidNtceNm": "데이터 플랫폼 고도화", "bidNtceNo": "3"}
		],
		"prespecs": [
			{"bfSpecNm": "클라우드 전환", "bfSpecRgstNo": "R1"}
		]
	}`
	path := filepath.Join(t.TempDir(), "listings.json")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	src := &FileSource{Path: path}
	bids, total, err := src.SearchBids(context.Background(), "플랫폼", 10)
	if err != nil {
		t.Fatalf("file search error: %v", err)
	}
	if total != 2 || len(bids) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(bids))
	}
	if bids[0].NoticeNo != "1" || bids[1].NoticeNo != "3" {
		t.Fatalf("keyword filter picked wrong bids: %+v", bids)
	}

	one, _, err := src.SearchBids(context.Background(), "", 1)
	if err != nil {
		t.Fatalf("limit search error: %v", err)
	}
	if len(one) != 1 {
		t.Fatalf("limit not applied: %d", len(one))
	}

	specs, _, err := src.SearchPreSpecs(context.Background(), "클라우드", 10)
	if err != nil {
		t.Fatalf("prespec search error: %v", err)
	}
	if len(specs) != 1 || specs[0].RegistrationNo != "R1" {
		t.Fatalf("prespec filter wrong: %+v", specs)
	}

	if _, _, err := (&FileSource{}).SearchBids(context.Background(), "x", 1); err == nil {
		t.Fatal("expected error for empty path")
	}
}
