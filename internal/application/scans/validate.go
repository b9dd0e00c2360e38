package scans

import (
	"net"
	"net/url"
	"strings"

	domain "github.com/bryanwahyu/geoscan/internal/domain/scans"
)

// NormalizeURL trims input, defaults the scheme to https and strips
// trailing slashes. It returns the normalized URL and its host.
func NormalizeURL(raw string) (string, string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", "", &domain.ValidationError{Field: "url", Message: "URL cannot be empty"}
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	s = strings.TrimRight(s, "/")

	u, err := url.Parse(s)
	if err != nil {
		return "", "", &domain.ValidationError{Field: "url", Message: "invalid URL format"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", "", &domain.ValidationError{Field: "url", Message: "invalid URL scheme " + u.Scheme + " (allowed: http, https)"}
	}
	host := strings.ToLower(u.Hostname())
	if host == "" || (!strings.Contains(host, ".") && net.ParseIP(host) == nil) {
		return "", "", &domain.ValidationError{Field: "url", Message: "URL must contain a valid hostname"}
	}
	if err := checkPublicHost(host); err != nil {
		return "", "", err
	}
	return s, host, nil
}

// checkPublicHost rejects loopback and private targets (SSRF protection).
func checkPublicHost(host string) error {
	if host == "localhost" || strings.HasSuffix(host, ".localhost") || strings.HasSuffix(host, ".local") || strings.HasSuffix(host, ".internal") {
		return &domain.ValidationError{Field: "url", Message: "localhost/internal hosts are not allowed"}
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return nil
	}
	if ip.IsLoopback() || ip.IsUnspecified() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return &domain.ValidationError{Field: "url", Message: "localhost/internal IPs are not allowed"}
	}
	if ip.IsPrivate() {
		return &domain.ValidationError{Field: "url", Message: "private IP ranges are not allowed"}
	}
	return nil
}

// ResolveRegions filters codes against the table. Unknown codes and
// duplicates are dropped before the region count is checked. Empty input selects the
// default regions.
func ResolveRegions(table domain.RegionTable, codes []string) ([]domain.Region, error) {
	if len(codes) == 0 {
		codes = domain.DefaultScanRegions
	}
	clean := make([]string, 0, len(codes))
	for _, c := range codes {
		clean = append(clean, strings.ToLower(strings.TrimSpace(c)))
	}
	// the 1..10 bound applies to what survives filtering
	regions := table.Select(clean)
	if len(regions) == 0 {
		return nil, &domain.ValidationError{Field: "regions", Message: "no valid regions selected"}
	}
	if len(regions) > domain.MaxRegions {
		return nil, &domain.ValidationError{Field: "regions", Message: "at most 10 regions may be selected"}
	}
	return regions, nil
}
