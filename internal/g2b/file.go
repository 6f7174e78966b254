package g2b

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Datajang/narajangteo-mcp-server/internal/listing"
)

// FileSource is an offline Source backed by a local JSON document:
//
//	{"bids": [...], "prespecs": [...]}
//
// where the entries use the upstream item field names. It filters by
// substring match on the title, which is close enough to the live
// keyword search for demos and tests without network access or a key.
type FileSource struct {
	Path string
}

type fileDoc struct {
	Bids     []listing.Bid     `json:"bids"`
	PreSpecs []listing.PreSpec `json:"prespecs"`
}

func (f *FileSource) SearchBids(_ context.Context, keyword string, limit int) ([]listing.Bid, int, error) {
	doc, err := f.load()
	if err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = DefaultRows
	}
	var out []listing.Bid
	for _, b := range doc.Bids {
		if keyword != "" && !strings.Contains(b.Title, keyword) {
			continue
		}
		out = append(out, b)
		if len(out) >= limit {
			break
		}
	}
	return out, len(out), nil
}

func (f *FileSource) SearchPreSpecs(_ context.Context, keyword string, limit int) ([]listing.PreSpec, int, error) {
	doc, err := f.load()
	if err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = DefaultRows
	}
	var out []listing.PreSpec
	for _, p := range doc.PreSpecs {
		if keyword != "" && !strings.Contains(p.Title, keyword) {
			continue
		}
		out = append(out, p)
		if len(out) >= limit {
			break
		}
	}
	return out, len(out), nil
}

func (f *FileSource) load() (*fileDoc, error) {
	if strings.TrimSpace(f.Path) == "" {
		return nil, errors.New("file source: path is empty")
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("file source: %w", err)
	}
	var doc fileDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("file source %s: %w", f.Path, err)
	}
	return &doc, nil
}
