// Command g2bstub is a local stand-in for the public procurement listing
// API, for demos and manual testing without a service key. It serves the
// two search operations with canned notices whose deadlines stay in the
// future, plus downloadable attachments (a DOCX and a PDF) so the full
// analysis pipeline can run against it:
//
//	ADDR=:8090 g2bstub &
//	NARA_API_KEY=stub NARA_BASE_URL=http://localhost:8090/1230000/ad/BidPublicInfoService naramcp
package main

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

const basePath = "/1230000/ad/BidPublicInfoService"

func main() {
	addr := os.Getenv("ADDR")
	if strings.TrimSpace(addr) == "" {
		addr = ":8090"
	}
	host := addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	self := "http://" + host

	docx, err := buildDOCX(
		"제안요청서",
		"사업명: 인공지능 기반 민원 분류 시스템 구축",
		"사업 개요: 자연어 처리 모델을 도입하여 접수된 민원 문서를 부서별로 자동 분류하고, 처리 이력을 대시보드로 제공한다.",
		"총 사업예산: 1,500,000,000원 (부가세 포함)",
		"주요 과업: 학습 데이터 정제, 분류 모델 개발, 기존 민원 시스템 연계, 운영자 교육",
		"제안서 평가: 기술 80점, 가격 20점",
	)
	if err != nil {
		log.Fatal(err)
	}
	pdf, err := buildPDF()
	if err != nil {
		log.Fatal(err)
	}

	now := time.Now()
	bidClose1 := now.AddDate(0, 0, 7).Format("200601021504")
	bidClose2 := now.AddDate(0, 0, 10).Format("200601021504")
	bidClosed := now.AddDate(0, 0, -2).Format("200601021504")
	// The pre-spec operation reports deadlines in the dashed layout.
	specClose1 := now.AddDate(0, 0, 5).Format("2006-01-02 15:04")
	specClose2 := now.AddDate(0, 0, 12).Format("2006-01-02 15:04")

	bids := []map[string]any{
		{
			"bidNtceNm":       "인공지능 학습용 데이터 구축 사업",
			"bidNtceNo":       "20260822001",
			"dminsttNm":       "과학기술정보통신부",
			"bdgtAmt":         "1500000000",
			"presmptPrce":     "1485000000",
			"bidClseDt":       bidClose1,
			"bidNtceDtlUrl":   self + "/notice/20260822001",
			"ntceSpecDocUrl1": self + "/files/rfp.docx",
			"ntceSpecFileNm1": "제안요청서.docx",
			"ntceSpecDocUrl2": self + "/files/rfp.pdf",
			"ntceSpecFileNm2": "과업내용서.pdf",
		},
		{
			"bidNtceNm":       "스마트 행정 플랫폼 고도화",
			"bidNtceNo":       "20260822002",
			"dminsttNm":       "행정안전부",
			"bdgtAmt":         "",
			"presmptPrce":     "320000000",
			"bidClseDt":       bidClose2,
			"bidNtceDtlUrl":   self + "/notice/20260822002",
			"ntceSpecDocUrl1": self + "/files/rfp.docx",
			"ntceSpecFileNm1": "제안요청서.docx",
		},
		{
			"bidNtceNm":     "노후 전산장비 교체 사업",
			"bidNtceNo":     "20260815003",
			"dminsttNm":     "조달청",
			"bdgtAmt":       "80000000",
			"presmptPrce":   "",
			"bidClseDt":     bidClosed,
			"bidNtceDtlUrl": self + "/notice/20260815003",
		},
	}
	specs := []map[string]any{
		{
			"bfSpecNm":        "차세대 통합 데이터 분석 체계 구축 사전규격",
			"bfSpecRgstNo":    "R26082201",
			"ordInsttNm":      "국방부",
			"asignBdgtAmt":    "2400000000",
			"opnEndDt":        specClose1,
			"ntceSpecDocUrl1": self + "/files/rfp.docx",
			"ntceSpecFileNm1": "사전규격서.docx",
		},
		{
			"bfSpecNm":     "클라우드 전환 컨설팅 사전규격",
			"bfSpecRgstNo": "R26082202",
			"ordInsttNm":   "조달청",
			"asignBdgtAmt": "0",
			"opnEndDt":     specClose2,
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc(basePath+"/getBidPblancListInfoServcPPSSrch", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if strings.TrimSpace(q.Get("serviceKey")) == "" {
			writeEnvelope(w, "30", "SERVICE_KEY_IS_NOT_REGISTERED_ERROR", nil, 0)
			return
		}
		matched := filterByTitle(bids, "bidNtceNm", q.Get("bidNtceNm"))
		if len(matched) == 0 {
			writeEnvelope(w, "03", "NODATA_ERROR", "", 0)
			return
		}
		total := len(matched)
		// The bid operation returns items as a bare array.
		writeEnvelope(w, "00", "NORMAL SERVICE.", clip(matched, rows(q)), total)
	})
	mux.HandleFunc(basePath+"/getBfSpecRgstSttusListInfoServcPPSSrch", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if strings.TrimSpace(q.Get("serviceKey")) == "" {
			writeEnvelope(w, "30", "SERVICE_KEY_IS_NOT_REGISTERED_ERROR", nil, 0)
			return
		}
		matched := filterByTitle(specs, "bfSpecNm", q.Get("bfSpecNm"))
		if len(matched) == 0 {
			writeEnvelope(w, "03", "NODATA_ERROR", "", 0)
			return
		}
		total := len(matched)
		matched = clip(matched, rows(q))
		// The pre-spec operation wraps items in an object, and collapses a
		// single result to a bare object instead of a one-element array.
		var items any
		if len(matched) == 1 {
			items = map[string]any{"item": matched[0]}
		} else {
			items = map[string]any{"item": matched}
		}
		writeEnvelope(w, "00", "NORMAL SERVICE.", items, total)
	})
	mux.HandleFunc("/files/rfp.docx", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
		w.Header().Set("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape("제안요청서.docx"))
		_, _ = w.Write(docx)
	})
	mux.HandleFunc("/files/rfp.pdf", func(w http.ResponseWriter, r *http.Request) {
		// No Content-Disposition: the downloader falls back to the URL
		// basename here, like some real file servers behind the API.
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write(pdf)
	})

	log.Printf("g2bstub listening on %s (point NARA_BASE_URL at %s%s)", addr, self, basePath)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal(err)
	}
}

func rows(q url.Values) int {
	n, err := strconv.Atoi(q.Get("numOfRows"))
	if err != nil || n <= 0 {
		return 10
	}
	return n
}

func filterByTitle(items []map[string]any, key, keyword string) []map[string]any {
	keyword = strings.TrimSpace(keyword)
	var out []map[string]any
	for _, it := range items {
		title, _ := it[key].(string)
		if keyword == "" || strings.Contains(title, keyword) {
			out = append(out, it)
		}
	}
	return out
}

func clip(items []map[string]any, n int) []map[string]any {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func writeEnvelope(w http.ResponseWriter, code, msg string, items any, total int) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"response": map[string]any{
			"header": map[string]any{"resultCode": code, "resultMsg": msg},
			"body": map[string]any{
				"items":      items,
				"pageNo":     1,
				"totalCount": total,
			},
		},
	})
}

// buildDOCX assembles a minimal but valid word-processing package, one
// paragraph per argument.
func buildDOCX(paragraphs ...string) ([]byte, error) {
	var body strings.Builder
	for _, p := range paragraphs {
		fmt.Fprintf(&body, "<w:p><w:r><w:t>%s</w:t></w:r></w:p>", xmlEscape(p))
	}
	document := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
		`<w:body>` + body.String() + `</w:body></w:document>`
	contentTypes := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
		`<Default Extension="xml" ContentType="application/xml"/>` +
		`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
		`</Types>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, part := range []struct{ name, data string }{
		{"[Content_Types].xml", contentTypes},
		{"word/document.xml", document},
	} {
		f, err := zw.Create(part.name)
		if err != nil {
			return nil, err
		}
		if _, err := f.Write([]byte(part.data)); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func xmlEscape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}

// buildPDF renders the task description attachment. The core fonts only
// cover Latin-1, so this document stays in English.
func buildPDF() ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, "Statement of Work", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	for _, p := range []string{
		"Project: AI-based civil complaint classification system.",
		"Budget: KRW 1,500,000,000 including VAT.",
		"Scope: training data curation, classification model development, integration with the existing complaint system, operator training and handover.",
		"Evaluation: technical proposal 80 points, price 20 points.",
	} {
		pdf.MultiCell(0, 5, p, "", "L", false)
		pdf.Ln(2)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
