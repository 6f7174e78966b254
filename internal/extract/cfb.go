package extract

// Minimal reader for the OLE compound file binary format, the container of
// legacy HWP documents. Understands both sector sizes, the DIFAT/FAT, the
// mini FAT, and the red-black directory tree — enough to resolve and read
// named streams. Write support is out of scope.

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

const (
	cfbHeaderSize = 512
	dirEntrySize  = 128

	secFree       = 0xFFFFFFFF
	secEndOfChain = 0xFFFFFFFE
	secFAT        = 0xFFFFFFFD
	secDIFAT      = 0xFFFFFFFC

	dirNoStream = 0xFFFFFFFF

	typeStorage = 1
	typeStream  = 2
	typeRoot    = 5

	miniSectorSize = 64
)

var cfbSignature = []byte{0xd0, 0xcf, 0x11, 0xe0, 0xa1, 0xb1, 0x1a, 0xe1}

type cfbDirEntry struct {
	name  string
	typ   byte
	left  uint32
	right uint32
	child uint32
	start uint32
	size  uint64
}

type cfbFile struct {
	data       []byte
	sectorSize int
	fat        []uint32
	miniFAT    []uint32
	dir        []cfbDirEntry
	miniStream []byte
	miniCutoff uint32
}

func parseCFB(data []byte) (*cfbFile, error) {
	if len(data) < cfbHeaderSize || !bytes.HasPrefix(data, cfbSignature) {
		return nil, errors.New("not a compound file")
	}
	sectorShift := binary.LittleEndian.Uint16(data[30:32])
	if sectorShift != 9 && sectorShift != 12 {
		return nil, fmt.Errorf("unsupported sector shift %d", sectorShift)
	}
	f := &cfbFile{
		data:       data,
		sectorSize: 1 << sectorShift,
		miniCutoff: binary.LittleEndian.Uint32(data[56:60]),
	}

	firstDirSector := binary.LittleEndian.Uint32(data[48:52])
	firstMiniFAT := binary.LittleEndian.Uint32(data[60:64])
	numMiniFAT := binary.LittleEndian.Uint32(data[64:68])
	firstDIFAT := binary.LittleEndian.Uint32(data[68:72])

	// FAT sector locations: up to 109 in the header, the rest chained
	// through DIFAT sectors.
	var fatSectors []uint32
	for i := 0; i < 109; i++ {
		loc := binary.LittleEndian.Uint32(data[76+4*i : 80+4*i])
		if loc == secFree || loc == secEndOfChain {
			continue
		}
		fatSectors = append(fatSectors, loc)
	}
	perDIFAT := f.sectorSize/4 - 1
	for cur, steps := firstDIFAT, 0; cur != secEndOfChain && cur != secFree; steps++ {
		if steps > len(data)/f.sectorSize+1 {
			return nil, errors.New("DIFAT chain does not terminate")
		}
		sec, err := f.sector(cur)
		if err != nil {
			return nil, err
		}
		for i := 0; i < perDIFAT; i++ {
			loc := binary.LittleEndian.Uint32(sec[4*i : 4*i+4])
			if loc != secFree && loc != secEndOfChain {
				fatSectors = append(fatSectors, loc)
			}
		}
		cur = binary.LittleEndian.Uint32(sec[4*perDIFAT:])
	}
	for _, s := range fatSectors {
		sec, err := f.sector(s)
		if err != nil {
			return nil, fmt.Errorf("FAT sector %d: %w", s, err)
		}
		for off := 0; off+4 <= len(sec); off += 4 {
			f.fat = append(f.fat, binary.LittleEndian.Uint32(sec[off:off+4]))
		}
	}

	dirRaw, err := f.readChain(firstDirSector, 0)
	if err != nil {
		return nil, fmt.Errorf("directory chain: %w", err)
	}
	for off := 0; off+dirEntrySize <= len(dirRaw); off += dirEntrySize {
		f.dir = append(f.dir, parseDirEntry(dirRaw[off:off+dirEntrySize]))
	}
	if len(f.dir) == 0 || f.dir[0].typ != typeRoot {
		return nil, errors.New("missing root directory entry")
	}

	if numMiniFAT > 0 && firstMiniFAT != secEndOfChain && firstMiniFAT != secFree {
		raw, err := f.readChain(firstMiniFAT, 0)
		if err != nil {
			return nil, fmt.Errorf("mini FAT chain: %w", err)
		}
		for off := 0; off+4 <= len(raw); off += 4 {
			f.miniFAT = append(f.miniFAT, binary.LittleEndian.Uint32(raw[off:off+4]))
		}
	}
	if root := f.dir[0]; root.start != secEndOfChain && root.size > 0 {
		ms, err := f.readChain(root.start, root.size)
		if err != nil {
			return nil, fmt.Errorf("mini stream chain: %w", err)
		}
		f.miniStream = ms
	}
	return f, nil
}

func parseDirEntry(e []byte) cfbDirEntry {
	nameLen := int(binary.LittleEndian.Uint16(e[64:66]))
	name := ""
	if nameLen >= 2 && nameLen <= 64 {
		name = decodeUTF16LE(e[:nameLen-2])
	}
	size := uint64(binary.LittleEndian.Uint32(e[120:124]))
	return cfbDirEntry{
		name:  name,
		typ:   e[66],
		left:  binary.LittleEndian.Uint32(e[68:72]),
		right: binary.LittleEndian.Uint32(e[72:76]),
		child: binary.LittleEndian.Uint32(e[76:80]),
		start: binary.LittleEndian.Uint32(e[116:120]),
		size:  size,
	}
}

// sector returns the n-th regular sector. The 512-byte header occupies the
// space before sector 0, padded to a full sector in the 4096-byte layout.
func (f *cfbFile) sector(n uint32) ([]byte, error) {
	off := (int64(n) + 1) * int64(f.sectorSize)
	end := off + int64(f.sectorSize)
	if off < int64(cfbHeaderSize) || end > int64(len(f.data)) {
		return nil, fmt.Errorf("sector %d out of range", n)
	}
	return f.data[off:end], nil
}

// readChain follows a FAT chain from start and returns the concatenated
// sectors, truncated to size when size is non-zero.
func (f *cfbFile) readChain(start uint32, size uint64) ([]byte, error) {
	var out []byte
	steps := 0
	for cur := start; cur != secEndOfChain; {
		if cur == secFree || cur == secFAT || cur == secDIFAT {
			return nil, fmt.Errorf("chain hits non-data sector %#x", cur)
		}
		if steps++; steps > len(f.fat)+1 {
			return nil, errors.New("FAT chain does not terminate")
		}
		sec, err := f.sector(cur)
		if err != nil {
			return nil, err
		}
		out = append(out, sec...)
		if int(cur) >= len(f.fat) {
			return nil, fmt.Errorf("sector %d beyond FAT", cur)
		}
		cur = f.fat[cur]
	}
	if size > 0 {
		if size > uint64(len(out)) {
			return nil, fmt.Errorf("chain short: want %d bytes, have %d", size, len(out))
		}
		out = out[:size]
	}
	return out, nil
}

// readMiniChain follows a mini FAT chain inside the root mini stream.
func (f *cfbFile) readMiniChain(start uint32, size uint64) ([]byte, error) {
	var out []byte
	steps := 0
	for cur := start; cur != secEndOfChain; {
		if cur == secFree {
			return nil, errors.New("mini chain hits free sector")
		}
		if steps++; steps > len(f.miniFAT)+1 {
			return nil, errors.New("mini FAT chain does not terminate")
		}
		off := int(cur) * miniSectorSize
		if off+miniSectorSize > len(f.miniStream) {
			return nil, fmt.Errorf("mini sector %d out of range", cur)
		}
		out = append(out, f.miniStream[off:off+miniSectorSize]...)
		if int(cur) >= len(f.miniFAT) {
			return nil, fmt.Errorf("mini sector %d beyond mini FAT", cur)
		}
		cur = f.miniFAT[cur]
	}
	if size > uint64(len(out)) {
		return nil, fmt.Errorf("mini chain short: want %d bytes, have %d", size, len(out))
	}
	return out[:size], nil
}

// childrenOf walks the sibling tree under a directory node in-order,
// guarding against cycles in corrupt files.
func (f *cfbFile) childrenOf(id uint32) []int {
	var out []int
	seen := make(map[uint32]bool)
	var walk func(uint32)
	walk = func(cur uint32) {
		if cur == dirNoStream || int(cur) >= len(f.dir) || seen[cur] {
			return
		}
		seen[cur] = true
		e := f.dir[cur]
		walk(e.left)
		out = append(out, int(cur))
		walk(e.right)
	}
	walk(id)
	return out
}

// lookup resolves a slash-separated path from the root storage.
func (f *cfbFile) lookup(path string) (*cfbDirEntry, bool) {
	if len(f.dir) == 0 {
		return nil, false
	}
	cur := f.dir[0].child
	parts := strings.Split(path, "/")
	for pi, part := range parts {
		found := -1
		for _, idx := range f.childrenOf(cur) {
			if strings.EqualFold(f.dir[idx].name, part) {
				found = idx
				break
			}
		}
		if found < 0 {
			return nil, false
		}
		e := &f.dir[found]
		if pi == len(parts)-1 {
			return e, true
		}
		if e.typ != typeStorage {
			return nil, false
		}
		cur = e.child
	}
	return nil, false
}

func (f *cfbFile) exists(path string) bool {
	_, ok := f.lookup(path)
	return ok
}

// streamByPath reads a named stream, choosing the mini stream for payloads
// under the cutoff as the directory entry dictates.
func (f *cfbFile) streamByPath(path string) ([]byte, error) {
	e, ok := f.lookup(path)
	if !ok {
		return nil, fmt.Errorf("stream %q not found", path)
	}
	if e.typ != typeStream {
		return nil, fmt.Errorf("%q is not a stream", path)
	}
	return f.readStreamEntry(e)
}

func (f *cfbFile) readStreamEntry(e *cfbDirEntry) ([]byte, error) {
	if e.size == 0 {
		return nil, nil
	}
	if e.size < uint64(f.miniCutoff) {
		return f.readMiniChain(e.start, e.size)
	}
	return f.readChain(e.start, e.size)
}
