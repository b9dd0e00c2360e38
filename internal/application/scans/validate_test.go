package scans

import (
	"errors"
	"testing"

	domain "github.com/bryanwahyu/geoscan/internal/domain/scans"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in, url, host string
		wantErr       bool
	}{
		{"example.com", "https://example.com", "example.com", false},
		{"  https://Example.com/// ", "https://Example.com", "example.com", false},
		{"http://shop.example.co.uk/path/", "http://shop.example.co.uk/path", "shop.example.co.uk", false},
		{"", "", "", true},
		{"ftp://example.com", "", "", true},
		{"http://localhost:8080", "", "", true},
		{"http://127.0.0.1", "", "", true},
		{"http://10.1.2.3", "", "", true},
		{"http://192.168.0.10", "", "", true},
		{"http://[::1]/", "", "", true},
		{"notahost", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			u, host, err := NormalizeURL(tt.in)
			if tt.wantErr {
				var ve *domain.ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("want ValidationError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if u != tt.url || host != tt.host {
				t.Fatalf("got (%q, %q), want (%q, %q)", u, host, tt.url, tt.host)
			}
		})
	}
}

func TestResolveRegions(t *testing.T) {
	table := domain.DefaultRegions()

	got, err := ResolveRegions(table, []string{"DE", "bogus", "us", "us"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Code != "us" || got[1].Code != "de" {
		t.Fatalf("got %+v", got)
	}

	def, err := ResolveRegions(table, nil)
	if err != nil || len(def) != len(domain.DefaultScanRegions) {
		t.Fatalf("defaults = %+v, %v", def, err)
	}

	var ve *domain.ValidationError
	if _, err := ResolveRegions(table, []string{"xx", "yy"}); !errors.As(err, &ve) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	eleven := make([]string, 11)
	for i := range eleven {
		eleven[i] = "us"
	}
	if got, err := ResolveRegions(table, eleven); err != nil || len(got) != 1 {
		t.Fatalf("duplicates collapse before the bound: %+v, %v", got, err)
	}
}

func TestResolveRegionsBoundAfterFiltering(t *testing.T) {
	table := domain.DefaultRegions()
	codes := []string{"global", "us", "uk", "de", "fr", "au", "ca", "in", "jp", "mars", "xx"}

	got, err := ResolveRegions(table, codes)
	if err != nil {
		t.Fatalf("11 codes with 2 unknown should pass: %v", err)
	}
	if len(got) != 9 {
		t.Fatalf("got %d regions", len(got))
	}

	wide := append(domain.DefaultRegions(), domain.Region{Code: "mx", Label: "Mexico", Suffix: "in Mexico"})
	all := make([]string, 0, len(wide))
	for _, r := range wide {
		all = append(all, r.Code)
	}
	var ve *domain.ValidationError
	if _, err := ResolveRegions(wide, all); !errors.As(err, &ve) {
		t.Fatalf("want ValidationError for 11 valid regions, got %v", err)
	}
}
