// Package webpage retrieves remote pages and extracts the metadata the
// enrichment pipeline needs: title, description, and a bounded slab of plain
// text. Extraction is best-effort — malformed markup yields weaker results,
// never an error.
package webpage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/mwhite/marginalia/internal/domain"
)

// maxContentLen bounds the plain-text content handed to the summarizer.
const maxContentLen = 2000

// maxBodyBytes bounds how much of the response body is read, so a huge page
// cannot exhaust memory. 1 MiB of HTML is far more than maxContentLen needs.
const maxBodyBytes = 1 << 20

// userAgent is a realistic desktop-browser UA. Some sites serve stripped or
// blocked responses to unknown agents.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Page is the extracted shape of a fetched webpage.
type Page struct {
	// Title is the trimmed <title> text, or "Untitled" when the page has none.
	Title string
	// Description is the first of meta[name=description] /
	// meta[property=og:description], or "" when neither is present.
	Description string
	// Content is the page text with script/style removed, whitespace
	// collapsed, trimmed, and capped at maxContentLen bytes.
	Content string
}

// FetchError is returned when the outbound GET fails. Status is the HTTP
// status code for non-2xx responses; Err is the transport cause otherwise.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fetcher retrieves raw HTML over HTTP and extracts Page metadata.
type Fetcher struct {
	client *http.Client
}

// NewFetcher constructs a Fetcher. Pass nil to use http.DefaultClient.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{client: client}
}

// Fetch issues a GET for url and extracts the page metadata.
// The request carries a browser user agent and disables response caching —
// page content may change between fetches.
func (f *Fetcher) Fetch(ctx context.Context, url string) (Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Page{}, &FetchError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := f.client.Do(req)
	if err != nil {
		return Page{}, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Page{}, &FetchError{URL: url, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Page{}, &FetchError{URL: url, Err: err}
	}

	return Extract(body), nil
}

// Extract pulls title, description, and plain text out of raw HTML.
// goquery tolerates broken markup, so extraction degrades instead of failing:
// the worst case is an empty description and whatever text survived.
func Extract(html []byte) Page {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(html)))
	if err != nil {
		// Parse failure on arbitrary input is effectively unreachable with
		// net/html, but the contract is "never error" — fall back to nothing.
		return Page{Title: domain.UntitledFallback}
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = domain.UntitledFallback
	}

	description, ok := doc.Find(`meta[name="description"]`).First().Attr("content")
	if !ok || strings.TrimSpace(description) == "" {
		description, _ = doc.Find(`meta[property="og:description"]`).First().Attr("content")
	}
	description = strings.TrimSpace(description)

	doc.Find("script, style").Remove()
	content := strings.Join(strings.Fields(doc.Text()), " ")
	if len(content) > maxContentLen {
		content = content[:maxContentLen]
	}

	return Page{Title: title, Description: description, Content: content}
}
