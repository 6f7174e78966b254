package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// docxText extracts the main document part: one line per paragraph, table
// rows flattened to "cell | cell | cell".
func docxText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx package: %w", err)
	}
	raw, err := readZipFile(zr, "word/document.xml")
	if err != nil {
		return "", fmt.Errorf("read docx body: %w", err)
	}

	dec := xml.NewDecoder(bytes.NewReader(raw))
	dec.CharsetReader = charset.NewReaderLabel

	var (
		lines     []string
		para      strings.Builder
		inText    bool
		cellDepth int
		cellLines []string
		rowCells  []string
	)
	flushPara := func() {
		text := strings.TrimSpace(para.String())
		para.Reset()
		if text == "" {
			return
		}
		if cellDepth > 0 {
			cellLines = append(cellLines, text)
		} else {
			lines = append(lines, text)
		}
	}
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				para.WriteByte('\t')
			case "br", "cr":
				para.WriteByte('\n')
			case "tr":
				rowCells = nil
			case "tc":
				cellDepth++
				cellLines = nil
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				flushPara()
			case "tc":
				if cellDepth > 0 {
					cellDepth--
				}
				if cell := strings.Join(cellLines, " "); strings.TrimSpace(cell) != "" {
					rowCells = append(rowCells, cell)
				}
				cellLines = nil
			case "tr":
				if len(rowCells) > 0 {
					lines = append(lines, strings.Join(rowCells, " | "))
					rowCells = nil
				}
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		}
	}
	flushPara()
	return strings.Join(lines, "\n"), nil
}
