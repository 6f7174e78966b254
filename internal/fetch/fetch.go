// Package fetch downloads attachment bytes. Listing attachments live on
// plain file servers that intermittently 5xx, so the client retries
// transient failures with a short backoff and recovers the served filename
// from Content-Disposition for classification downstream.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrUnavailable marks a download that produced no bytes: network failure,
// non-success status, oversized body, or a cancelled context. Every error
// returned by Fetch wraps it.
var ErrUnavailable = errors.New("attachment unavailable")

// DefaultMaxBytes caps an attachment body when Client.MaxBytes is zero.
const DefaultMaxBytes = 128 << 20

// File is a downloaded attachment.
type File struct {
	Data []byte
	// Filename as recovered from Content-Disposition or the final URL
	// path. May be empty; callers with a better name keep their own.
	Filename string
}

// Client downloads with bounded retry on transient errors. Redirects follow
// the http.Client default (capped at ten hops).
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	// MaxAttempts includes the initial attempt. Minimum 1.
	MaxAttempts int
	// PerRequestTimeout bounds each attempt when positive.
	PerRequestTimeout time.Duration
	// MaxBytes caps the response body. DefaultMaxBytes when zero.
	MaxBytes int64
}

// Fetch downloads the attachment at rawURL. Transient failures (network
// errors, 429, 5xx) are retried with a short backoff until MaxAttempts is
// spent; cancellation of ctx stops the retry loop immediately.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*File, error) {
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			log.Debug().Err(lastErr).Int("attempt", i+1).Str("url", rawURL).Msg("retrying attachment fetch")
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
			case <-time.After(time.Duration(i) * 200 * time.Millisecond):
			}
		}
		f, retryable, err := c.tryOnce(ctx, rawURL)
		if err == nil {
			return f, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

// tryOnce issues one GET. The bool reports whether the failure is worth
// retrying.
func (c *Client) tryOnce(ctx context.Context, rawURL string) (*File, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("new request: %w", err)
	}
	if req.URL == nil || !isHTTPScheme(req.URL) {
		return nil, false, fmt.Errorf("unsupported URL scheme: %q", rawURL)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	parent := ctx
	if c.PerRequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.PerRequestTimeout)
		defer cancel()
		req = req.WithContext(ctx)
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		// A per-attempt timeout is transient; a cancelled caller is not.
		return nil, parent.Err() == nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("status %d", resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, false, fmt.Errorf("status %d", resp.StatusCode)
	}

	maxBytes := c.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, parent.Err() == nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, false, fmt.Errorf("attachment exceeds %d bytes", maxBytes)
	}

	name := filenameFromHeader(resp.Header.Get("Content-Disposition"))
	if name == "" {
		// resp.Request holds the final URL after redirects.
		name = filenameFromURL(resp.Request.URL)
	}
	return &File{Data: data, Filename: name}, false, nil
}

// filenameFromHeader recovers the served filename from a Content-Disposition
// value. mime.ParseMediaType decodes the RFC 5987 filename* form into the
// plain key; the file servers also emit malformed headers (both forms at
// once, stray semicolons), which fall through to a manual scan.
func filenameFromHeader(cd string) string {
	if cd == "" {
		return ""
	}
	if _, params, err := mime.ParseMediaType(cd); err == nil {
		if name := cleanFilename(params["filename"]); name != "" {
			return name
		}
	}
	lower := strings.ToLower(cd)
	if i := strings.Index(lower, "filename*="); i >= 0 {
		v := strings.TrimSpace(cd[i+len("filename*="):])
		v = strings.Trim(strings.SplitN(v, ";", 2)[0], `"`)
		// charset''percent-encoded per RFC 5987.
		if j := strings.Index(v, "''"); j >= 0 {
			v = v[j+2:]
		}
		if dec, err := url.PathUnescape(v); err == nil {
			v = dec
		}
		if name := cleanFilename(v); name != "" {
			return name
		}
	}
	if i := strings.Index(lower, "filename="); i >= 0 {
		v := strings.TrimSpace(cd[i+len("filename="):])
		v = strings.Trim(strings.SplitN(v, ";", 2)[0], `"`)
		return cleanFilename(v)
	}
	return ""
}

// cleanFilename strips directory components so a hostile header cannot
// smuggle a path.
func cleanFilename(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSpace(name)
}

func filenameFromURL(u *url.URL) string {
	if u == nil || u.Path == "" {
		return ""
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" {
		return ""
	}
	return base
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}
