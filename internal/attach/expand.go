package attach

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
)

// ErrCorruptContainer reports an archive that cannot be opened or
// enumerated.
var ErrCorruptContainer = errors.New("corrupt container")

// maxEntryBytes bounds the decompressed size of a single archive entry.
const maxEntryBytes = 64 << 20

// Entry is one extractable inner file of an expanded container. Open reads
// and decompresses the entry on demand so probing names stays cheap.
type Entry struct {
	Name   string
	Format FormatTag
	Open   func() ([]byte, error)
}

// Expand lists a ZIP archive's extractable entries, one level deep.
// Directory entries, __MACOSX metadata, and hidden files are skipped.
// Nested archives come back tagged Unknown: expansion never recurses, which
// bounds both selection depth and decompression cost.
func Expand(data []byte) ([]Entry, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptContainer, err)
	}
	entries := make([]Entry, 0, len(zr.File))
	for _, f := range zr.File {
		name := strings.ReplaceAll(f.Name, "\\", "/")
		if strings.HasSuffix(name, "/") || f.FileInfo().IsDir() {
			continue
		}
		if strings.HasPrefix(name, "__MACOSX") {
			continue
		}
		if strings.HasPrefix(path.Base(name), ".") {
			continue
		}
		tag := Classify(name)
		if tag == Container {
			tag = Unknown
		}
		file := f
		entries = append(entries, Entry{
			Name:   name,
			Format: tag,
			Open:   func() ([]byte, error) { return readEntry(file) },
		})
	}
	return entries, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	if f.UncompressedSize64 > maxEntryBytes {
		return nil, fmt.Errorf("archive entry %q exceeds %d bytes", f.Name, int64(maxEntryBytes))
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open archive entry %q: %w", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, maxEntryBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read archive entry %q: %w", f.Name, err)
	}
	if len(data) > maxEntryBytes {
		return nil, fmt.Errorf("archive entry %q exceeds %d bytes", f.Name, int64(maxEntryBytes))
	}
	return data, nil
}

// SelectEntry picks the best extractable entry of an expanded container:
// keyword matches first, then format priority, then archive order. Nil when
// nothing qualifies.
func SelectEntry(entries []Entry) *Entry {
	type scored struct {
		entry Entry
		kw    int
		tier  int
		index int
	}
	cands := make([]scored, 0, len(entries))
	for i, e := range entries {
		tier, ok := priorityTier(e.Format)
		if !ok {
			continue
		}
		kw := 1
		if MatchesKeyword(e.Name) {
			kw = 0
		}
		cands = append(cands, scored{entry: e, kw: kw, tier: tier, index: i})
	}
	if len(cands) == 0 {
		return nil
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].kw != cands[j].kw {
			return cands[i].kw < cands[j].kw
		}
		if cands[i].tier != cands[j].tier {
			return cands[i].tier < cands[j].tier
		}
		return cands[i].index < cands[j].index
	})
	best := cands[0].entry
	return &best
}
