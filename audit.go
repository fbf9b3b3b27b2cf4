package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/time/rate"
)

// hostProvidedTags are emitted by the host page itself and must never be
// duplicated by the generated head.
var hostProvidedTags = []string{
	"og:site_name",
	"og:type",
	"og:title",
	"og:url",
	"og:description",
	"og:image",
	"twitter:title",
	"twitter:description",
	"twitter:image",
}

// multiValuedTags may legitimately repeat
var multiValuedTags = map[string]bool{
	"og:locale:alternate": true,
	"article:tag":         true,
}

// HostHead is the metadata found in a live page's markup
type HostHead struct {
	URL          string
	Title        string
	Tags         []metaTag
	JSONLDBlocks int
}

// AuditReport compares a live page against the head we would add to it
type AuditReport struct {
	URL          string   `json:"url"`
	Duplicates   []string `json:"duplicates"`
	MissingHost  []string `json:"missing_host_tags"`
	JSONLDBlocks int      `json:"existing_jsonld_blocks"`
	Emitted      int      `json:"emitted_tags"`
}

// PageAuditor fetches host pages with per-domain rate limiting
type PageAuditor struct {
	client      *http.Client
	domainMutex sync.Mutex
	limiters    map[string]*rate.Limiter
	semaphore   chan struct{}
	urlMutexes  sync.Map // URL -> *sync.Mutex for preventing concurrent fetches of same URL
	minInterval time.Duration
}

// NewPageAuditor creates an auditor allowing up to concurrency fetches at once
func NewPageAuditor(concurrency int) *PageAuditor {
	if concurrency <= 0 {
		concurrency = 5
	}
	return &PageAuditor{
		client: &http.Client{
			Timeout: 10 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Limit redirects to 10
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		limiters:    make(map[string]*rate.Limiter),
		semaphore:   make(chan struct{}, concurrency),
		minInterval: time.Second,
	}
}

// FetchHead downloads a page and extracts its metadata tags
func (a *PageAuditor) FetchHead(ctx context.Context, targetURL string) (*HostHead, error) {
	// Get or create a mutex for this URL to prevent concurrent fetches
	urlMutexInterface, _ := a.urlMutexes.LoadOrStore(targetURL, &sync.Mutex{})
	urlMutex := urlMutexInterface.(*sync.Mutex)

	urlMutex.Lock()
	defer urlMutex.Unlock()

	select {
	case a.semaphore <- struct{}{}:
		defer func() { <-a.semaphore }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	parsedURL, err := url.Parse(targetURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if err := a.domainLimiter(parsedURL.Host).Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait for %s: %w", parsedURL.Host, err)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "forum-microdata/1.0 (head audit)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	slog.Debug("Fetching page for audit", "url", targetURL)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "text/html") {
		return nil, fmt.Errorf("not an HTML page: %s", contentType)
	}

	// Limit response body size to 1MB
	head, err := parseHostHead(io.LimitReader(resp.Body, 1024*1024))
	if err != nil {
		return nil, err
	}
	head.URL = targetURL

	slog.Debug("Extracted page metadata", "url", targetURL, "tags", len(head.Tags), "jsonld", head.JSONLDBlocks)
	return head, nil
}

// domainLimiter returns the limiter spacing out requests to one host
func (a *PageAuditor) domainLimiter(domain string) *rate.Limiter {
	a.domainMutex.Lock()
	defer a.domainMutex.Unlock()

	limiter, ok := a.limiters[domain]
	if !ok {
		limit := rate.Inf
		if a.minInterval > 0 {
			limit = rate.Every(a.minInterval)
		}
		limiter = rate.NewLimiter(limit, 1)
		a.limiters[domain] = limiter
	}
	return limiter
}

func parseHostHead(r io.Reader) (*HostHead, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	head := &HostHead{}
	extractHeadTags(doc, head)
	return head, nil
}

// extractHeadTags recursively collects og:, article:, profile: and twitter:
// meta tags, the document title and the number of ld+json scripts.
func extractHeadTags(n *html.Node, head *HostHead) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "meta":
			var tag metaTag
			for _, attr := range n.Attr {
				switch attr.Key {
				case "property", "name":
					if tag.Key == "" {
						tag.Attr, tag.Key = attr.Key, strings.TrimSpace(attr.Val)
					}
				case "content":
					tag.Content = attr.Val
				}
			}
			if isSocialTag(tag.Key) {
				head.Tags = append(head.Tags, tag)
			}
		case "title":
			if head.Title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				head.Title = strings.TrimSpace(n.FirstChild.Data)
			}
		case "script":
			for _, attr := range n.Attr {
				if attr.Key == "type" && strings.EqualFold(attr.Val, "application/ld+json") {
					head.JSONLDBlocks++
				}
			}
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractHeadTags(c, head)
	}
}

func isSocialTag(key string) bool {
	for _, prefix := range []string{"og:", "article:", "profile:", "twitter:", "llms-"} {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

// auditHead reports single-valued tags present in both the host page and
// the generated head, and host-provided tags the page is missing.
func auditHead(host *HostHead, generated string) (*AuditReport, error) {
	emitted, err := parseHostHead(strings.NewReader(generated))
	if err != nil {
		return nil, err
	}

	hostKeys := make(map[string]bool, len(host.Tags))
	for _, tag := range host.Tags {
		hostKeys[tag.Key] = true
	}

	report := &AuditReport{
		URL:          host.URL,
		JSONLDBlocks: host.JSONLDBlocks,
		Emitted:      len(emitted.Tags),
	}
	for _, tag := range emitted.Tags {
		if hostKeys[tag.Key] && !multiValuedTags[tag.Key] && !slices.Contains(report.Duplicates, tag.Key) {
			report.Duplicates = append(report.Duplicates, tag.Key)
		}
	}
	for _, key := range hostProvidedTags {
		if !hostKeys[key] {
			report.MissingHost = append(report.MissingHost, key)
		}
	}
	return report, nil
}

// AuditPages audits every URL concurrently against the same generated head.
// Reports come back in input order; failed fetches leave a nil entry.
func (a *PageAuditor) AuditPages(ctx context.Context, urls []string, generated string) []*AuditReport {
	reports := make([]*AuditReport, len(urls))
	var wg sync.WaitGroup
	for i, target := range urls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			host, err := a.FetchHead(ctx, target)
			if err != nil {
				slog.Warn("Failed to fetch page for audit", "error", err, "url", target)
				return
			}
			report, err := auditHead(host, generated)
			if err != nil {
				slog.Warn("Failed to audit page", "error", err, "url", target)
				return
			}
			reports[i] = report
		}()
	}
	wg.Wait()
	return reports
}
