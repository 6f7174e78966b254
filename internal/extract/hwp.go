package extract

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf16"
)

// ErrEncrypted marks password-protected or distribution-locked documents.
// No fallback tier runs after it: the protected streams stay protected.
var ErrEncrypted = errors.New("document is password protected")

// HWP v5 layout inside the compound file: a FileHeader stream with format
// flags, one record stream per section under BodyText, and a PrvText
// preview. Sections are raw-deflate compressed when the header says so.
const (
	hwpTagParaText = 67

	hwpFlagCompressed  = 1 << 0
	hwpFlagPassword    = 1 << 1
	hwpFlagDistributed = 1 << 2

	maxHwpSections  = 256
	maxSectionBytes = 64 << 20
)

var hwpHeaderSignature = []byte("HWP Document File")

// hwpBody is the primary tier: walk every BodyText section's record stream
// and decode the paragraph-text records.
func hwpBody(data []byte) (string, error) {
	f, flags, err := openHWP(data)
	if err != nil {
		return "", err
	}
	compressed := flags&hwpFlagCompressed != 0

	var parts []string
	for i := 0; i < maxHwpSections; i++ {
		entry, ok := f.lookup(fmt.Sprintf("BodyText/Section%d", i))
		if !ok {
			break
		}
		raw, err := f.readStreamEntry(entry)
		if err != nil {
			continue
		}
		if compressed {
			if raw, err = inflate(raw); err != nil {
				continue
			}
		}
		if text := sectionText(raw); strings.TrimSpace(text) != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return "", errors.New("no paragraph text records")
	}
	return strings.Join(parts, "\n\n"), nil
}

// hwpPreview is the fallback tier: the uncompressed UTF-16 preview stream.
func hwpPreview(data []byte) (string, error) {
	f, _, err := openHWP(data)
	if err != nil {
		return "", err
	}
	raw, err := f.streamByPath("PrvText")
	if err != nil {
		return "", fmt.Errorf("no preview stream: %w", err)
	}
	text := strings.TrimSpace(decodeUTF16LE(raw))
	if text == "" {
		return "", errors.New("empty preview stream")
	}
	return text, nil
}

// openHWP parses the compound file, verifies the HWP signature, and rejects
// protected documents before any stream is read.
func openHWP(data []byte) (*cfbFile, uint32, error) {
	f, err := parseCFB(data)
	if err != nil {
		return nil, 0, err
	}
	hdr, err := f.streamByPath("FileHeader")
	if err != nil {
		return nil, 0, fmt.Errorf("missing FileHeader stream: %w", err)
	}
	if !bytes.HasPrefix(hdr, hwpHeaderSignature) {
		return nil, 0, errors.New("compound file is not an hwp document")
	}
	if len(hdr) < 40 {
		return nil, 0, errors.New("short FileHeader stream")
	}
	flags := binary.LittleEndian.Uint32(hdr[36:40])
	if flags&(hwpFlagPassword|hwpFlagDistributed) != 0 {
		return nil, 0, ErrEncrypted
	}
	return f, flags, nil
}

// inflate decompresses a section stream. Sections are raw deflate; some
// writers wrap them in a zlib envelope instead, so that runs second.
func inflate(b []byte) ([]byte, error) {
	fr := flate.NewReader(bytes.NewReader(b))
	out, err := io.ReadAll(io.LimitReader(fr, maxSectionBytes))
	fr.Close()
	if err == nil {
		return out, nil
	}
	zr, zerr := zlib.NewReader(bytes.NewReader(b))
	if zerr != nil {
		return nil, err
	}
	defer zr.Close()
	out, zerr = io.ReadAll(io.LimitReader(zr, maxSectionBytes))
	if zerr != nil {
		return nil, err
	}
	return out, nil
}

// sectionText walks a section's record stream and joins the decoded
// paragraph-text payloads. Record header: tag in the low 10 bits, level in
// the next 10, size in the top 12; size 0xFFF means a 4-byte extension
// follows.
func sectionText(raw []byte) string {
	var paras []string
	pos := 0
	for pos+4 <= len(raw) {
		hdr := binary.LittleEndian.Uint32(raw[pos : pos+4])
		pos += 4
		tag := hdr & 0x3FF
		size := int(hdr >> 20)
		if size == 0xFFF {
			if pos+4 > len(raw) {
				break
			}
			size = int(binary.LittleEndian.Uint32(raw[pos : pos+4]))
			pos += 4
		}
		if size < 0 || pos+size > len(raw) {
			break
		}
		if tag == hwpTagParaText {
			if text := paraText(raw[pos : pos+size]); text != "" {
				paras = append(paras, text)
			}
		}
		pos += size
	}
	return strings.Join(paras, "\n")
}

// paraText decodes one paragraph-text payload: UTF-16 code units with
// embedded control characters. Inline and extended controls occupy eight
// code units; the rest are single units.
func paraText(b []byte) string {
	units := make([]uint16, 0, len(b)/2)
	n := len(b) / 2
	for i := 0; i < n; {
		u := binary.LittleEndian.Uint16(b[2*i:])
		switch {
		case u >= 32:
			units = append(units, u)
			i++
		case u == 9:
			units = append(units, '\t')
			i += 8
		case u == 10 || u == 13:
			units = append(units, '\n')
			i++
		case u == 24:
			units = append(units, '-')
			i++
		case u == 30 || u == 31:
			units = append(units, ' ')
			i++
		case u == 0 || (u >= 25 && u <= 29):
			i++
		default:
			i += 8
		}
	}
	return strings.TrimSpace(string(utf16.Decode(units)))
}
