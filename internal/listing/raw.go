package listing

import (
	"encoding/json"
	"net/url"
	"path"
	"strconv"
	"strings"
)

// maxAttachmentSlots is how many numbered ntceSpecDocUrlN/ntceSpecFileNmN
// column pairs the upstream schema carries per notice.
const maxAttachmentSlots = 10

// Bid is the raw open-bid notice record as the upstream returns it.
// Decoded once, never mutated afterwards.
type Bid struct {
	Title         string
	NoticeNo      string
	Organization  string
	BudgetAmount  string
	PresumedPrice string
	Closing       string
	DetailURL     string
	Attachments   []AttachmentRef
}

// PreSpec is the raw pre-specification notice record.
type PreSpec struct {
	Title          string
	RegistrationNo string
	Organization   string
	AssignedBudget string
	Closing        string
	Attachments    []AttachmentRef
}

// UnmarshalJSON decodes the upstream item object. The upstream emits the
// same field as a string on one endpoint and a number on another, so every
// field goes through jsonString rather than a typed destination.
func (b *Bid) UnmarshalJSON(data []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	b.Title = jsonString(m["bidNtceNm"])
	b.NoticeNo = jsonString(m["bidNtceNo"])
	b.Organization = jsonString(m["dminsttNm"])
	b.BudgetAmount = jsonString(m["bdgtAmt"])
	b.PresumedPrice = jsonString(m["presmptPrce"])
	b.Closing = jsonString(m["bidClseDt"])
	b.DetailURL = jsonString(m["bidNtceDtlUrl"])
	b.Attachments = attachmentPairs(m)
	return nil
}

func (p *PreSpec) UnmarshalJSON(data []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	p.Title = jsonString(m["bfSpecNm"])
	p.RegistrationNo = jsonString(m["bfSpecRgstNo"])
	p.Organization = jsonString(m["ordInsttNm"])
	p.AssignedBudget = jsonString(m["asignBdgtAmt"])
	p.Closing = jsonString(m["opnEndDt"])
	p.Attachments = attachmentPairs(m)
	return nil
}

// attachmentPairs assembles the numbered document URL/name columns into an
// ordered attachment list. A slot without a URL is dropped; a slot without
// a name falls back to the URL path basename and is dropped when that is
// empty too, so every ref carries both sides.
func attachmentPairs(m map[string]json.RawMessage) []AttachmentRef {
	var out []AttachmentRef
	for i := 1; i <= maxAttachmentSlots; i++ {
		n := strconv.Itoa(i)
		docURL := strings.TrimSpace(jsonString(m["ntceSpecDocUrl"+n]))
		if docURL == "" {
			continue
		}
		name := strings.TrimSpace(jsonString(m["ntceSpecFileNm"+n]))
		if name == "" {
			name = urlBasename(docURL)
		}
		if name == "" {
			continue
		}
		out = append(out, AttachmentRef{Filename: name, URL: docURL})
	}
	return out
}

func urlBasename(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" {
		return ""
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" {
		return ""
	}
	return base
}

// jsonString reads a raw JSON value as a string, tolerating numbers and
// null. Anything else decodes to the empty string.
func jsonString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
