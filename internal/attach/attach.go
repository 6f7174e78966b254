// Package attach classifies bid attachments and picks the single best one
// to extract: keyword-matching filenames first, then document format
// priority, then upstream order.
package attach

import (
	"bytes"
	"path"
	"strings"
)

// FormatTag identifies an attachment's document format. The set is closed;
// anything unrecognized is Unknown, which is a normal value, not an error.
type FormatTag int

const (
	Unknown FormatTag = iota
	// CompoundLegacyDoc is the legacy HWP word-processor format, an OLE
	// compound binary file.
	CompoundLegacyDoc
	// OfficeXmlDoc is HWPX, the XML-in-ZIP successor of HWP.
	OfficeXmlDoc
	PDF
	// WordDoc is DOCX.
	WordDoc
	// Spreadsheet is XLSX, plus the legacy .xls alias the upstream still
	// hands out.
	Spreadsheet
	// Container is a ZIP archive wrapping the real document.
	Container
)

func (t FormatTag) String() string {
	switch t {
	case CompoundLegacyDoc:
		return "hwp"
	case OfficeXmlDoc:
		return "hwpx"
	case PDF:
		return "pdf"
	case WordDoc:
		return "docx"
	case Spreadsheet:
		return "xlsx"
	case Container:
		return "zip"
	}
	return "unknown"
}

// Keyword markers that identify the document the caller actually wants:
// 제안요청서 is the RFP, 과업지시서 the statement of work.
var keywordMarkers = []string{"제안요청서", "과업지시서"}

// Classify maps a filename to its FormatTag by extension, case-insensitive.
// Missing or unrecognized extensions yield Unknown.
func Classify(filename string) FormatTag {
	name := strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/")
	switch strings.ToLower(path.Ext(name)) {
	case ".hwp":
		return CompoundLegacyDoc
	case ".hwpx":
		return OfficeXmlDoc
	case ".pdf":
		return PDF
	case ".docx":
		return WordDoc
	case ".xlsx", ".xls":
		return Spreadsheet
	case ".zip":
		return Container
	}
	return Unknown
}

// Container signatures, consulted only when the extension says nothing.
var (
	magicCFB = []byte{0xd0, 0xcf, 0x11, 0xe0, 0xa1, 0xb1, 0x1a, 0xe1}
	magicZIP = []byte{'P', 'K', 0x03, 0x04}
)

// ClassifyBytes classifies by extension first and falls back to the two
// container magic signatures when the extension yields Unknown.
func ClassifyBytes(filename string, head []byte) FormatTag {
	if tag := Classify(filename); tag != Unknown {
		return tag
	}
	if bytes.HasPrefix(head, magicCFB) {
		return CompoundLegacyDoc
	}
	if bytes.HasPrefix(head, magicZIP) {
		return Container
	}
	return Unknown
}

// MatchesKeyword reports whether the filename's base name carries an RFP or
// SOW marker.
func MatchesKeyword(filename string) bool {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	for _, kw := range keywordMarkers {
		if strings.Contains(base, kw) {
			return true
		}
	}
	return false
}

// priorityTier orders formats by extraction preference; lower is better.
// Unknown never qualifies.
func priorityTier(t FormatTag) (int, bool) {
	switch t {
	case CompoundLegacyDoc, OfficeXmlDoc:
		return 0, true
	case WordDoc, PDF:
		return 1, true
	case Spreadsheet:
		return 2, true
	case Container:
		return 3, true
	}
	return 0, false
}
