package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"
)

// xlsxMaxRowsPerSheet bounds per-sheet output; procurement budget sheets
// fit comfortably, and anything longer is filler rows.
const xlsxMaxRowsPerSheet = 500

// xlsxText renders every worksheet as "[Sheet: name]" followed by rows of
// " | "-joined non-empty cells.
func xlsxText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open xlsx package: %w", err)
	}
	sheets := xlsxSheetParts(zr)
	if len(sheets) == 0 {
		return "", errors.New("no worksheets")
	}
	names := xlsxSheetNames(zr)
	shared := xlsxSharedStrings(zr)

	var parts []string
	for i, part := range sheets {
		name := fmt.Sprintf("Sheet%d", i+1)
		if i < len(names) && names[i] != "" {
			name = names[i]
		}
		rows, err := xlsxSheetRows(zr, part, shared)
		if err != nil || len(rows) == 0 {
			continue
		}
		parts = append(parts, "[Sheet: "+name+"]\n"+strings.Join(rows, "\n"))
	}
	return strings.Join(parts, "\n\n"), nil
}

// xlsxSheetParts lists xl/worksheets/sheetN.xml parts in numeric order,
// which matches the workbook's sheet order in every writer that matters.
func xlsxSheetParts(zr *zip.Reader) []string {
	type numbered struct {
		n    int
		name string
	}
	var found []numbered
	for _, f := range zr.File {
		rest, ok := strings.CutPrefix(f.Name, "xl/worksheets/sheet")
		if !ok {
			continue
		}
		rest, ok = strings.CutSuffix(rest, ".xml")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(rest)
		if err != nil {
			continue
		}
		found = append(found, numbered{n: n, name: f.Name})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].n < found[j].n })
	out := make([]string, len(found))
	for i, f := range found {
		out[i] = f.name
	}
	return out
}

// xlsxSheetNames reads display names from the workbook part, in order.
func xlsxSheetNames(zr *zip.Reader) []string {
	raw, err := readZipFile(zr, "xl/workbook.xml")
	if err != nil {
		return nil
	}
	dec := xml.NewDecoder(bytes.NewReader(raw))
	dec.CharsetReader = charset.NewReaderLabel
	var names []string
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "sheet" {
			continue
		}
		for _, a := range se.Attr {
			if a.Name.Local == "name" {
				names = append(names, a.Value)
				break
			}
		}
	}
	return names
}

// xlsxSharedStrings loads the shared-string table; a missing part just
// means the workbook stores no strings that way.
func xlsxSharedStrings(zr *zip.Reader) []string {
	raw, err := readZipFile(zr, "xl/sharedStrings.xml")
	if err != nil {
		return nil
	}
	dec := xml.NewDecoder(bytes.NewReader(raw))
	dec.CharsetReader = charset.NewReaderLabel
	var (
		strs []string
		cur  strings.Builder
		inSI bool
		inT  bool
	)
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "si":
				inSI = true
				cur.Reset()
			case "t":
				inT = inSI
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "si":
				inSI = false
				strs = append(strs, cur.String())
			case "t":
				inT = false
			}
		case xml.CharData:
			if inT {
				cur.Write(t)
			}
		}
	}
	return strs
}

// xlsxSheetRows walks one worksheet part. Shared-string cells resolve
// through the table, inline strings read their own text, everything else
// keeps the raw stored value. Formula text is never captured.
func xlsxSheetRows(zr *zip.Reader, part string, shared []string) ([]string, error) {
	raw, err := readZipFile(zr, part)
	if err != nil {
		return nil, err
	}
	dec := xml.NewDecoder(bytes.NewReader(raw))
	dec.CharsetReader = charset.NewReaderLabel

	var (
		rows     []string
		cells    []string
		cellType string
		buf      strings.Builder
		inV      bool
		inIS     bool
		inT      bool
	)
	for len(rows) < xlsxMaxRowsPerSheet {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "row":
				cells = nil
			case "c":
				cellType = ""
				buf.Reset()
				for _, a := range t.Attr {
					if a.Name.Local == "t" {
						cellType = a.Value
					}
				}
			case "v":
				inV = true
			case "is":
				inIS = true
			case "t":
				inT = inIS
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "v":
				inV = false
			case "is":
				inIS = false
			case "t":
				inT = false
			case "c":
				if val := resolveCell(cellType, buf.String(), shared); strings.TrimSpace(val) != "" {
					cells = append(cells, val)
				}
			case "row":
				if len(cells) > 0 {
					rows = append(rows, strings.Join(cells, " | "))
				}
			}
		case xml.CharData:
			if inV || inT {
				buf.Write(t)
			}
		}
	}
	return rows, nil
}

func resolveCell(cellType, stored string, shared []string) string {
	switch cellType {
	case "s":
		idx, err := strconv.Atoi(strings.TrimSpace(stored))
		if err != nil || idx < 0 || idx >= len(shared) {
			return ""
		}
		return shared[idx]
	case "inlineStr":
		return stored
	default:
		return stored
	}
}
