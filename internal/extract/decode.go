package extract

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// decodeText interprets bytes of unknown provenance: UTF-8 when valid, then
// whatever the byte-pattern sniffer is certain about, then EUC-KR, the
// legacy codepage of the tools these documents usually come from.
func decodeText(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	if enc, _, certain := charset.DetermineEncoding(b, ""); certain && enc != nil {
		if out, _, err := transform.Bytes(enc.NewDecoder(), b); err == nil && utf8.Valid(out) {
			return string(out)
		}
	}
	if out, _, err := transform.Bytes(korean.EUCKR.NewDecoder(), b); err == nil && utf8.Valid(out) {
		return string(out)
	}
	return string(b)
}

// decodeUTF16LE decodes a UTF-16 little-endian stream and strips NUL
// padding and byte-order marks.
func decodeUTF16LE(b []byte) string {
	dec := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	out, _, err := transform.Bytes(dec, b)
	if err != nil {
		return ""
	}
	s := strings.ReplaceAll(string(out), "\x00", "")
	return strings.ReplaceAll(s, "\uFEFF", "")
}
