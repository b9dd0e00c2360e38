// Package scraper fetches a target site and infers what it is about.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/bryanwahyu/geoscan/internal/domain/scans"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	DefaultTimeout   = 30 * time.Second

	maxRedirects  = 5
	maxBodyBytes  = 5 << 20
	maxHeadings   = 20
	maxMetaKeys   = 20
	maxBodyText   = 5000
	maxServices   = 10
	strippedNodes = "script, style, nav, footer, header, iframe, noscript"
)

var spaces = regexp.MustCompile(`\s+`)

// Page is the parsed content of one HTML document.
type Page struct {
	Title        string
	Description  string
	Headings     []string
	MetaKeywords []string
	BodyText     string
}

// Scraper implements scans.Scraper over plain HTTP.
type Scraper struct {
	client    *http.Client
	userAgent string
}

// New builds a scraper. Zero values fall back to the defaults.
func New(timeout time.Duration, userAgent string) *Scraper {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Scraper{
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) > maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		userAgent: userAgent,
	}
}

// Scrape implementasi scans.Scraper
func (s *Scraper) Scrape(ctx context.Context, target string) (*scans.SiteData, error) {
	u, err := url.Parse(target)
	if err != nil || u.Hostname() == "" {
		return nil, fmt.Errorf("invalid url %q", target)
	}
	doc, err := s.fetch(ctx, target)
	if err != nil {
		return nil, err
	}
	page := Parse(doc)
	domain := strings.ToLower(u.Hostname())
	ex := Extract(page, domain)

	return &scans.SiteData{
		URL:         target,
		Domain:      domain,
		Title:       page.Title,
		Description: page.Description,
		Industry:    ex.Industry,
		Headings:    page.Headings,
		Keywords:    ex.Keywords,
		Services:    ex.Services,
	}, nil
}

func (s *Scraper) fetch(ctx context.Context, target string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &StatusError{Code: resp.StatusCode}
	}
	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

// StatusError is a fetch that ended with an HTTP error status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d %s", e.Code, http.StatusText(e.Code))
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

// Parse pulls title, description, headings, meta keywords and visible
// body text out of doc. Non-content nodes are removed first.
func Parse(doc *goquery.Document) Page {
	doc.Find(strippedNodes).Remove()

	var p Page
	p.Title = strings.TrimSpace(doc.Find("title").First().Text())

	p.Description = metaContent(doc, `meta[name="description"]`)
	if p.Description == "" {
		p.Description = metaContent(doc, `meta[property="og:description"]`)
	}

	doc.Find("h1, h2, h3").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := strings.TrimSpace(sel.Text())
		if n := utf8.RuneCountInString(text); n > 2 && n < 200 {
			p.Headings = append(p.Headings, text)
		}
		return len(p.Headings) < maxHeadings
	})

	for _, k := range strings.Split(metaContent(doc, `meta[name="keywords"]`), ",") {
		if k = strings.TrimSpace(k); k != "" && len(p.MetaKeywords) < maxMetaKeys {
			p.MetaKeywords = append(p.MetaKeywords, k)
		}
	}

	body := strings.TrimSpace(spaces.ReplaceAllString(doc.Find("body").Text(), " "))
	p.BodyText = truncateRunes(body, maxBodyText)
	return p
}

func metaContent(doc *goquery.Document, selector string) string {
	v, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(v)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
