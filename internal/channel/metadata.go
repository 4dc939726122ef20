package channel

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	// PlaceholderTitle is used when the landing page carries no usable title.
	PlaceholderTitle = "Channel"

	// DefaultMinPageBytes is the size below which a landing page counts as empty or blocked.
	DefaultMinPageBytes = 100

	defaultMetadataTimeout = 30 * time.Second
	maxPageBytes           = 2 << 20
	pageUserAgent          = "Mozilla/5.0 (compatible; tgcreative/1.0)"
)

var titlePrefixRe = regexp.MustCompile(`(?i)^Telegram:\s*View\s*@?`)

// Metadata is the public title and description of a channel.
type Metadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// MetadataFetcher reads channel landing pages.
type MetadataFetcher struct {
	baseURL  string
	minBytes int
	client   *http.Client
}

// NewMetadataFetcher creates a fetcher for landing pages under baseURL
// (PublicBaseURL when empty). A nil client gets a 30s timeout client.
func NewMetadataFetcher(baseURL string, minBytes int, client *http.Client) *MetadataFetcher {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = PublicBaseURL
	}
	if minBytes <= 0 {
		minBytes = DefaultMinPageBytes
	}
	if client == nil {
		client = &http.Client{Timeout: defaultMetadataTimeout}
	}
	return &MetadataFetcher{baseURL: baseURL, minBytes: minBytes, client: client}
}

// Fetch downloads the landing page of h and extracts its metadata.
// Failures are *UpstreamError values; there are no retries.
func (f *MetadataFetcher) Fetch(ctx context.Context, h Handle) (Metadata, error) {
	url := f.baseURL + "/" + h.String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Metadata{}, &UpstreamError{Handle: h, Reason: ReasonTransport, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "text/html")
	req.Header.Set("User-Agent", pageUserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return Metadata{}, &UpstreamError{Handle: h, Reason: ReasonTransport, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return Metadata{}, &UpstreamError{Handle: h, Reason: ReasonStatus, Status: resp.StatusCode}
	}

	page, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return Metadata{}, &UpstreamError{Handle: h, Reason: ReasonTransport, Err: fmt.Errorf("read body: %w", err)}
	}
	if len(page) < f.minBytes {
		return Metadata{}, &UpstreamError{Handle: h, Reason: ReasonEmptyPage, Status: resp.StatusCode}
	}

	return parseLandingPage(page), nil
}

// parseLandingPage prefers og:title/og:description, falls back to <title>
// with the "Telegram: View @" prefix removed, then to PlaceholderTitle.
func parseLandingPage(page []byte) Metadata {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return Metadata{Title: PlaceholderTitle}
	}

	meta := Metadata{
		Title:       openGraph(doc, "title"),
		Description: openGraph(doc, "description"),
	}
	if meta.Title == "" {
		raw := strings.TrimSpace(doc.Find("title").First().Text())
		meta.Title = strings.TrimSpace(titlePrefixRe.ReplaceAllString(raw, ""))
	}
	if meta.Title == "" {
		meta.Title = PlaceholderTitle
	}
	return meta
}

func openGraph(doc *goquery.Document, name string) string {
	var value string
	doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		prop, _ := s.Attr("property")
		if !strings.EqualFold(strings.TrimSpace(prop), "og:"+name) {
			return true
		}
		value = strings.TrimSpace(s.AttrOr("content", ""))
		return false
	})
	return value
}
