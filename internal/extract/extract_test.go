package extract

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/Datajang/narajangteo-mcp-server/internal/attach"
)

type zipEntry struct {
	name string
	data []byte
}

func buildZip(t *testing.T, entries []zipEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, e := range entries {
		f, err := w.Create(e.name)
		if err != nil {
			t.Fatalf("create %q: %v", e.name, err)
		}
		if _, err := f.Write(e.data); err != nil {
			t.Fatalf("write %q: %v", e.name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

// rfpHWP is a legacy-format fixture with enough body text to clear the
// default content threshold.
func rfpHWP(t *testing.T) []byte {
	t.Helper()
	var sec []byte
	sec = append(sec, paraRecord(textUnits("제안요청서 제1장 사업 개요"))...)
	sec = append(sec, paraRecord(textUnits("본 사업은 차세대 플랫폼 구축을 목표로 한다"))...)
	return buildHWP(t, 0, [][]byte{sec}, nil)
}

func TestExtractRoutesEveryFormat(t *testing.T) {
	hwpx := buildZip(t, []zipEntry{
		{name: "mimetype", data: []byte("application/hwp+zip")},
		{name: "Contents/section0.xml", data: sectionXML("전자문서 표준 양식 본문입니다. 추가 내용 포함.")},
	})
	docx := buildDOCX(t, docxHeader+`<w:body><w:p><w:r><w:t>과업지시서 주요 내용: 시스템 고도화 및 유지관리 방안</w:t></w:r></w:p></w:body></w:document>`)
	xlsx := buildZip(t, []zipEntry{
		{name: "xl/workbook.xml", data: []byte(xlsxWorkbookTwoSheets)},
		{name: "xl/worksheets/sheet1.xml", data: sheetXML(`<row><c t="inlineStr"><is><t>사업비 총괄표 배정예산 150000000</t></is></c></row>`)},
	})
	pdf := buildPDF(t, []string{"Procurement Request for Proposal 2025"})

	var d Dispatcher
	cases := []struct {
		filename string
		data     []byte
		want     attach.FormatTag
		contains string
	}{
		{"제안요청서.hwp", rfpHWP(t), attach.CompoundLegacyDoc, "사업 개요"},
		{"과업지시서.hwpx", hwpx, attach.OfficeXmlDoc, "표준 양식"},
		{"과업내용.docx", docx, attach.WordDoc, "유지관리 방안"},
		{"예산내역.xlsx", xlsx, attach.Spreadsheet, "[Sheet: 예산내역]"},
		{"공고문.pdf", pdf, attach.PDF, "[Page 1]"},
	}
	for _, tc := range cases {
		res := d.Extract(tc.data, tc.filename)
		if !res.Success {
			t.Fatalf("%s: failed: %s (%s)", tc.filename, res.FailureKind, res.Detail)
		}
		if res.Format != tc.want {
			t.Fatalf("%s: format = %v, want %v", tc.filename, res.Format, tc.want)
		}
		if res.ExtractorUsed != TierPrimary {
			t.Fatalf("%s: tier = %q, want primary", tc.filename, res.ExtractorUsed)
		}
		if !strings.Contains(res.Text, tc.contains) {
			t.Fatalf("%s: output missing %q:\n%s", tc.filename, tc.contains, res.Text)
		}
		if res.SourceFilename != tc.filename {
			t.Fatalf("%s: source = %q", tc.filename, res.SourceFilename)
		}
	}
}

func TestExtractMagicFallbackForUnknownExtension(t *testing.T) {
	var d Dispatcher
	res := d.Extract(rfpHWP(t), "첨부파일.fil")
	if !res.Success {
		t.Fatalf("failed: %s (%s)", res.FailureKind, res.Detail)
	}
	if res.Format != attach.CompoundLegacyDoc {
		t.Fatalf("format = %v, want CompoundLegacyDoc", res.Format)
	}
}

func TestExtractUnsupportedFormat(t *testing.T) {
	var d Dispatcher
	res := d.Extract([]byte("plain text body"), "안내문.txt")
	if res.Success {
		t.Fatal("txt should not extract")
	}
	if res.FailureKind != FailureUnsupportedFormat {
		t.Fatalf("kind = %q, want %q", res.FailureKind, FailureUnsupportedFormat)
	}
}

func TestExtractFallsBackWhenPrimaryHasNoText(t *testing.T) {
	// Body sections exist but carry no paragraph text; the preview stream
	// must be reported as the fallback tier, never as a silent primary.
	preview := unitsBytes(textUnits("이 문서는 미리보기 전용입니다. 본문 추출 불가 문서."))
	blob := buildHWP(t, 0, [][]byte{record(66, []byte{0, 0, 0, 0})}, preview)

	var d Dispatcher
	res := d.Extract(blob, "제안요청서.hwp")
	if !res.Success {
		t.Fatalf("failed: %s (%s)", res.FailureKind, res.Detail)
	}
	if res.ExtractorUsed != TierFallback {
		t.Fatalf("tier = %q, want fallback", res.ExtractorUsed)
	}
	if !strings.Contains(res.Text, "미리보기 전용") {
		t.Fatalf("unexpected text: %q", res.Text)
	}
}

func TestExtractShortPrimaryTriggersFallback(t *testing.T) {
	// Primary succeeds but under the threshold; the fuller preview wins.
	short := paraRecord(textUnits("짧은 본문"))
	preview := unitsBytes(textUnits("미리보기에는 충분한 분량의 본문 텍스트가 들어 있습니다."))
	blob := buildHWP(t, 0, [][]byte{short}, preview)

	var d Dispatcher
	res := d.Extract(blob, "과업지시서.hwp")
	if !res.Success {
		t.Fatalf("failed: %s (%s)", res.FailureKind, res.Detail)
	}
	if res.ExtractorUsed != TierFallback {
		t.Fatalf("tier = %q, want fallback", res.ExtractorUsed)
	}
}

func TestExtractEncryptedNeverFallsBack(t *testing.T) {
	preview := unitsBytes(textUnits("미리보기는 멀쩡하지만 본문은 잠겨 있는 문서입니다."))
	blob := buildHWP(t, hwpFlagPassword, [][]byte{paraRecord(textUnits("잠긴 본문"))}, preview)

	var d Dispatcher
	res := d.Extract(blob, "보안문서.hwp")
	if res.Success {
		t.Fatal("encrypted document must not extract")
	}
	if res.FailureKind != FailureExtraction {
		t.Fatalf("kind = %q, want %q", res.FailureKind, FailureExtraction)
	}
	if res.ExtractorUsed != TierPrimary {
		t.Fatalf("tier = %q, want primary (no fallback attempt)", res.ExtractorUsed)
	}
	if res.Detail != ErrEncrypted.Error() {
		t.Fatalf("detail = %q", res.Detail)
	}
}

func TestExtractBelowThresholdIsImageOnly(t *testing.T) {
	docx := buildDOCX(t, docxHeader+`<w:body><w:p><w:r><w:t>짧음</w:t></w:r></w:p></w:body></w:document>`)

	var d Dispatcher
	res := d.Extract(docx, "표지.docx")
	if res.Success {
		t.Fatal("two characters should not pass the threshold")
	}
	if res.FailureKind != FailureImageOnlyOrEmpty {
		t.Fatalf("kind = %q, want %q", res.FailureKind, FailureImageOnlyOrEmpty)
	}
}

func TestExtractScannedPdfIsImageOnly(t *testing.T) {
	var d Dispatcher
	res := d.Extract(buildPDF(t, nil), "스캔본.pdf")
	if res.Success {
		t.Fatal("textless pdf should not extract")
	}
	if res.FailureKind != FailureImageOnlyOrEmpty {
		t.Fatalf("kind = %q, want %q", res.FailureKind, FailureImageOnlyOrEmpty)
	}
}

func TestExtractMinTextCharsOverride(t *testing.T) {
	docx := buildDOCX(t, docxHeader+`<w:body><w:p><w:r><w:t>짧은 본문입니다</w:t></w:r></w:p></w:body></w:document>`)

	strict := Dispatcher{MinTextChars: 50}
	if res := strict.Extract(docx, "요약.docx"); res.Success {
		t.Fatal("want failure under the stricter threshold")
	}
	lax := Dispatcher{MinTextChars: 5}
	if res := lax.Extract(docx, "요약.docx"); !res.Success {
		t.Fatalf("want success under the laxer threshold: %s (%s)", res.FailureKind, res.Detail)
	}
}

func TestExtractContainerPicksRequestDocument(t *testing.T) {
	xlsx := buildZip(t, []zipEntry{
		{name: "xl/workbook.xml", data: []byte(xlsxWorkbookTwoSheets)},
		{name: "xl/worksheets/sheet1.xml", data: sheetXML(`<row><c t="inlineStr"><is><t>예산 150000000</t></is></c></row>`)},
	})
	archive := buildZip(t, []zipEntry{
		{name: "예산내역.xlsx", data: xlsx},
		{name: "제안요청서_v2.hwp", data: rfpHWP(t)},
	})

	var d Dispatcher
	res := d.Extract(archive, "첨부문서.zip")
	if !res.Success {
		t.Fatalf("failed: %s (%s)", res.FailureKind, res.Detail)
	}
	if res.SourceFilename != "제안요청서_v2.hwp" {
		t.Fatalf("picked %q, want the request document", res.SourceFilename)
	}
	if res.Format != attach.CompoundLegacyDoc {
		t.Fatalf("format = %v", res.Format)
	}
	if !strings.HasPrefix(res.Text, "[Extracted from ZIP: 제안요청서_v2.hwp]\n\n") {
		t.Fatalf("missing archive note:\n%s", res.Text)
	}
}

func TestExtractContainerCorrupt(t *testing.T) {
	var d Dispatcher
	res := d.Extract([]byte("PK\x03\x04 but truncated"), "첨부.zip")
	if res.Success {
		t.Fatal("corrupt archive must not extract")
	}
	if res.FailureKind != FailureCorruptContainer {
		t.Fatalf("kind = %q, want %q", res.FailureKind, FailureCorruptContainer)
	}
}

func TestExtractContainerWithoutCandidates(t *testing.T) {
	archive := buildZip(t, []zipEntry{
		{name: "스캔이미지.egg", data: []byte("proprietary archive")},
		{name: "사진.jpg", data: []byte{0xFF, 0xD8, 0xFF}},
	})

	var d Dispatcher
	res := d.Extract(archive, "자료모음.zip")
	if res.Success {
		t.Fatal("archive without documents must not extract")
	}
	if res.FailureKind != FailureNoCandidate {
		t.Fatalf("kind = %q, want %q", res.FailureKind, FailureNoCandidate)
	}
	if !strings.Contains(res.Detail, "스캔이미지.egg") {
		t.Fatalf("detail should list entries: %q", res.Detail)
	}
}

func TestNormalizeWhitespace(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"  a   b\tc  ", "a b c"},
		{"\n\n첫 줄\n\n\n\n둘째 줄\n\n", "첫 줄\n\n둘째 줄"},
		{"줄\r끝", "줄 끝"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := normalizeWhitespace(tc.in); got != tc.want {
			t.Fatalf("normalizeWhitespace(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCountNonWhitespace(t *testing.T) {
	if got := countNonWhitespace("가 나\t다\n라"); got != 4 {
		t.Fatalf("countNonWhitespace = %d, want 4", got)
	}
}
