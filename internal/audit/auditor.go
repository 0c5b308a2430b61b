// Package audit inventories a public website for the quick scan.
package audit

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/go-shiori/go-readability"

	"github.com/cloo-solutions/tenderflow/internal/domain"
)

const (
	DefaultTimeout  = 45 * time.Second
	DefaultMaxPages = 5
	excerptMaxChars = 600
	userAgent       = "tenderflow-audit/1.0"
)

// Auditor produces a website inventory for a URL.
type Auditor interface {
	Audit(ctx context.Context, rawURL string) (*domain.AuditInventory, error)
}

// Fetcher returns the rendered HTML of a page.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// BrowserFetcher renders pages in headless Chrome.
type BrowserFetcher struct {
	Timeout time.Duration
}

func (f BrowserFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.UserAgent(userAgent),
	)
	actx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	bctx, cancelBrowser := chromedp.NewContext(actx)
	defer cancelBrowser()

	var html string
	err := chromedp.Run(bctx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", pageURL, err)
	}
	return html, nil
}

// SiteAuditor renders the homepage plus a few internal pages and classifies what it sees.
type SiteAuditor struct {
	fetcher  Fetcher
	maxPages int
}

func New(fetcher Fetcher, maxPages int) *SiteAuditor {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return &SiteAuditor{fetcher: fetcher, maxPages: maxPages}
}

// NewBrowserAuditor returns a SiteAuditor backed by headless Chrome.
func NewBrowserAuditor(timeout time.Duration, maxPages int) *SiteAuditor {
	return New(BrowserFetcher{Timeout: timeout}, maxPages)
}

func (a *SiteAuditor) Audit(ctx context.Context, rawURL string) (*domain.AuditInventory, error) {
	base, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}

	home, err := a.fetcher.Fetch(ctx, base.String())
	if err != nil {
		return nil, err
	}

	sig := Inspect(home, base)
	pages := []string{home}
	for _, link := range sig.SampleLinks(a.maxPages - 1) {
		if ctx.Err() != nil {
			break
		}
		html, err := a.fetcher.Fetch(ctx, link)
		if err != nil {
			log.Printf("audit: skip %s: %v", link, err)
			continue
		}
		sig.Merge(Inspect(html, base))
		pages = append(pages, html)
	}

	inv := sig.Inventory(base.String(), len(pages))
	if article, err := readability.FromReader(strings.NewReader(home), base); err == nil {
		inv.Title = strings.TrimSpace(article.Title)
		inv.Excerpt = excerpt(article.Excerpt, article.TextContent)
	} else {
		log.Printf("audit: readability %s: %v", base, err)
	}
	if inv.Title == "" {
		inv.Title = sig.Title
	}
	return inv, nil
}

// NormalizeURL adds a scheme when missing and rejects anything that is not http(s).
func NormalizeURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("website url is empty")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse website url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("website url %q has no host", raw)
	}
	u.Fragment = ""
	return u, nil
}

func excerpt(preferred, text string) string {
	s := strings.TrimSpace(preferred)
	if s == "" {
		s = strings.Join(strings.Fields(text), " ")
	}
	r := []rune(s)
	if len(r) > excerptMaxChars {
		return string(r[:excerptMaxChars])
	}
	return s
}
