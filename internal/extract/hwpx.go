package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/net/html/charset"
)

const maxPartBytes = 64 << 20

// hwpxSections is the primary tier for the OWPML package: every
// Contents/section*.xml part in lexicographic order, character data only.
func hwpxSections(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open hwpx package: %w", err)
	}
	var names []string
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "Contents/section") && strings.HasSuffix(f.Name, ".xml") {
			names = append(names, f.Name)
		}
	}
	if len(names) == 0 {
		return "", errors.New("no section parts")
	}
	sort.Strings(names)

	var parts []string
	for _, name := range names {
		raw, err := readZipFile(zr, name)
		if err != nil {
			continue
		}
		text, err := xmlCharData(raw)
		if err != nil {
			continue
		}
		if strings.TrimSpace(text) != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return "", errors.New("no text in section parts")
	}
	return strings.Join(parts, "\n"), nil
}

// hwpxPreview is the fallback tier: the plain-text preview part.
func hwpxPreview(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open hwpx package: %w", err)
	}
	raw, err := readZipFile(zr, "Preview/PrvText.txt")
	if err != nil {
		return "", fmt.Errorf("no preview part: %w", err)
	}
	text := strings.TrimSpace(decodeText(raw))
	if text == "" {
		return "", errors.New("empty preview part")
	}
	return text, nil
}

// xmlCharData concatenates all character data in a document, one trimmed
// chunk per line.
func xmlCharData(raw []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(raw))
	dec.CharsetReader = charset.NewReaderLabel
	var b strings.Builder
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		cd, ok := tok.(xml.CharData)
		if !ok {
			continue
		}
		s := strings.TrimSpace(string(cd))
		if s == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(s)
	}
	return b.String(), nil
}

func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		out, err := io.ReadAll(io.LimitReader(rc, maxPartBytes))
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, fmt.Errorf("part %q not in package", name)
}
