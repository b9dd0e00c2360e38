package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"
)

const page = `<html>
<head>
<title> Acme CRM </title>
<meta name="description" content="Sales pipeline software for small teams">
<meta property="og:description" content="ignored">
<meta name="keywords" content="CRM, Sales Pipeline , ">
<script>var tracking = 1;</script>
</head>
<body>
<header>Home Menu</header>
<nav>Pricing</nav>
<h1>Acme CRM Platform</h1>
<h2>Pipeline analytics</h2>
<h3>ok</h3>
<p>Our   CRM helps
   teams close deals.</p>
<footer>Copyright</footer>
</body>
</html>`

func TestScrape(t *testing.T) {
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	site, err := New(5*time.Second, "").Scrape(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if ua != DefaultUserAgent {
		t.Errorf("user agent = %q", ua)
	}
	if site.Title != "Acme CRM" || site.Description != "Sales pipeline software for small teams" {
		t.Errorf("title/description = %q / %q", site.Title, site.Description)
	}
	if site.Domain != "127.0.0.1" || site.URL != srv.URL {
		t.Errorf("domain/url = %q / %q", site.Domain, site.URL)
	}
	if !slices.Equal(site.Headings, []string{"Acme CRM Platform", "Pipeline analytics"}) {
		t.Errorf("headings = %v", site.Headings)
	}
	if len(site.Keywords) < 3 || site.Keywords[0] != "crm" || site.Keywords[1] != "sales pipeline" {
		t.Errorf("keywords = %v", site.Keywords)
	}
	if !slices.Contains(site.Keywords, "pipeline analytics") {
		t.Errorf("heading phrase missing: %v", site.Keywords)
	}
	if site.Industry != "SaaS" {
		t.Errorf("industry = %q", site.Industry)
	}
}

func TestParseStripsChrome(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	doc, err := New(0, "").fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	p := Parse(doc)
	for _, gone := range []string{"Copyright", "tracking", "Pricing", "Menu"} {
		if strings.Contains(p.BodyText, gone) {
			t.Errorf("body text still contains %q: %q", gone, p.BodyText)
		}
	}
	if !strings.Contains(p.BodyText, "Our CRM helps teams close deals.") {
		t.Errorf("whitespace not collapsed: %q", p.BodyText)
	}
	if !slices.Equal(p.MetaKeywords, []string{"CRM", "Sales Pipeline"}) {
		t.Errorf("meta keywords = %v", p.MetaKeywords)
	}
}

func TestScrapeErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New(0, "").Scrape(context.Background(), srv.URL)
	if !IsStatus(err, http.StatusNotFound) {
		t.Fatalf("want 404 status error, got %v", err)
	}
}

func TestScrapeRedirectLimit(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+r.URL.Path+"x", http.StatusFound)
	}))
	defer srv.Close()

	if _, err := New(0, "").Scrape(context.Background(), srv.URL+"/"); err == nil {
		t.Fatal("endless redirects must fail")
	}
}

func TestInferIndustry(t *testing.T) {
	tests := []struct {
		text, want string
	}{
		{"", GeneralBusiness},
		{"nothing to see", GeneralBusiness},
		{"seo and marketing campaign", "Digital Marketing"},
		{"software marketing", "Digital Marketing"},
		{"clinic for every patient, health first", "Healthcare"},
		{"find a real estate agent", "Real Estate"},
	}
	for _, tt := range tests {
		t.Run(tt.want+"/"+tt.text, func(t *testing.T) {
			if got := InferIndustry(tt.text); got != tt.want {
				t.Errorf("InferIndustry(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestExtractDropsDomainAndStopWords(t *testing.T) {
	p := Page{
		Title:    "Acme",
		BodyText: "acme acme widgets widgets widgets the the the privacy privacy",
	}
	ex := Extract(p, "acme.com")
	if !slices.Equal(ex.Keywords, []string{"widgets"}) {
		t.Fatalf("keywords = %v", ex.Keywords)
	}
	if ex.Industry != GeneralBusiness || len(ex.Services) != 0 {
		t.Fatalf("extraction = %+v", ex)
	}
}
