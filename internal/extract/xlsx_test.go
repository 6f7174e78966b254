package extract

import (
	"fmt"
	"strings"
	"testing"
)

const xlsxWorkbookTwoSheets = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
	`<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">` +
	`<sheets><sheet name="예산내역" sheetId="1"/><sheet name="추진일정" sheetId="2"/></sheets></workbook>`

const xlsxSharedTwo = `<?xml version="1.0"?>` +
	`<sst xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" count="2" uniqueCount="2">` +
	`<si><t>항목</t></si><si><t>금액</t></si></sst>`

func sheetXML(rows ...string) []byte {
	return []byte(`<?xml version="1.0"?><worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><sheetData>` +
		strings.Join(rows, "") + `</sheetData></worksheet>`)
}

func TestXlsxSharedAndInlineStrings(t *testing.T) {
	sheet1 := sheetXML(
		`<row r="1"><c r="A1" t="s"><v>0</v></c><c r="B1" t="s"><v>1</v></c></row>`,
		`<row r="2"><c r="A2" t="inlineStr"><is><t>구축비</t></is></c><c r="B2"><v>150000000</v></c></row>`,
		`<row r="3"/>`,
	)
	sheet2 := sheetXML(`<row r="1"><c r="A1" t="inlineStr"><is><t>착수 2025-09</t></is></c></row>`)
	blob := buildZip(t, []zipEntry{
		{name: "xl/workbook.xml", data: []byte(xlsxWorkbookTwoSheets)},
		{name: "xl/sharedStrings.xml", data: []byte(xlsxSharedTwo)},
		{name: "xl/worksheets/sheet1.xml", data: sheet1},
		{name: "xl/worksheets/sheet2.xml", data: sheet2},
	})

	got, err := xlsxText(blob)
	if err != nil {
		t.Fatalf("xlsxText: %v", err)
	}
	want := "[Sheet: 예산내역]\n항목 | 금액\n구축비 | 150000000\n\n[Sheet: 추진일정]\n착수 2025-09"
	if got != want {
		t.Fatalf("xlsxText = %q, want %q", got, want)
	}
}

func TestXlsxSheetPartsSortNumerically(t *testing.T) {
	entries := []zipEntry{
		{name: "xl/worksheets/sheet10.xml", data: sheetXML(`<row><c t="inlineStr"><is><t>tenth</t></is></c></row>`)},
		{name: "xl/worksheets/sheet2.xml", data: sheetXML(`<row><c t="inlineStr"><is><t>second</t></is></c></row>`)},
		{name: "xl/worksheets/sheet1.xml", data: sheetXML(`<row><c t="inlineStr"><is><t>first</t></is></c></row>`)},
	}
	got, err := xlsxText(buildZip(t, entries))
	if err != nil {
		t.Fatalf("xlsxText: %v", err)
	}
	iFirst := strings.Index(got, "first")
	iSecond := strings.Index(got, "second")
	iTenth := strings.Index(got, "tenth")
	if iFirst < 0 || iSecond < 0 || iTenth < 0 || !(iFirst < iSecond && iSecond < iTenth) {
		t.Fatalf("sheets out of order: %q", got)
	}
	// No workbook part: synthetic names fill in.
	if !strings.Contains(got, "[Sheet: Sheet1]") {
		t.Fatalf("missing synthetic sheet name: %q", got)
	}
}

func TestXlsxRowCapStopsLongSheets(t *testing.T) {
	var rows []string
	for i := 1; i <= xlsxMaxRowsPerSheet+100; i++ {
		rows = append(rows, fmt.Sprintf(`<row r="%d"><c t="inlineStr"><is><t>r%d</t></is></c></row>`, i, i))
	}
	blob := buildZip(t, []zipEntry{{name: "xl/worksheets/sheet1.xml", data: sheetXML(rows...)}})
	got, err := xlsxText(blob)
	if err != nil {
		t.Fatalf("xlsxText: %v", err)
	}
	lines := strings.Split(got, "\n")
	if len(lines) != xlsxMaxRowsPerSheet+1 { // header plus capped rows
		t.Fatalf("got %d lines, want %d", len(lines), xlsxMaxRowsPerSheet+1)
	}
	if lines[len(lines)-1] != fmt.Sprintf("r%d", xlsxMaxRowsPerSheet) {
		t.Fatalf("last row = %q", lines[len(lines)-1])
	}
}

func TestXlsxKeepsStoredValueNotFormula(t *testing.T) {
	sheet := sheetXML(`<row><c r="A1"><f>SUM(B1:B9)</f><v>300</v></c></row>`)
	got, err := xlsxText(buildZip(t, []zipEntry{{name: "xl/worksheets/sheet1.xml", data: sheet}}))
	if err != nil {
		t.Fatalf("xlsxText: %v", err)
	}
	if strings.Contains(got, "SUM") || !strings.Contains(got, "300") {
		t.Fatalf("formula leaked into output: %q", got)
	}
}

func TestXlsxBrokenSharedReferencesSkipped(t *testing.T) {
	sheet := sheetXML(`<row><c t="s"><v>99</v></c><c t="inlineStr"><is><t>살아남은 셀</t></is></c></row>`)
	got, err := xlsxText(buildZip(t, []zipEntry{{name: "xl/worksheets/sheet1.xml", data: sheet}}))
	if err != nil {
		t.Fatalf("xlsxText: %v", err)
	}
	if !strings.HasSuffix(got, "살아남은 셀") {
		t.Fatalf("xlsxText = %q", got)
	}
}

func TestXlsxStructuralErrors(t *testing.T) {
	if _, err := xlsxText([]byte("not a zip")); err == nil {
		t.Fatal("want error for non-zip bytes")
	}
	blob := buildZip(t, []zipEntry{{name: "xl/workbook.xml", data: []byte(xlsxWorkbookTwoSheets)}})
	if _, err := xlsxText(blob); err == nil {
		t.Fatal("want error when no worksheet parts exist")
	}
}
