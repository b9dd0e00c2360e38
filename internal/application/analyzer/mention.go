// Package analyzer classifies answers, scores providers and mines
// visibility gaps out of a scan's responses.
package analyzer

import (
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/publicsuffix"

	"github.com/bryanwahyu/geoscan/internal/domain/scans"
)

// DefaultRecommendationPhrases are endorsement cues looked for near a match.
var DefaultRecommendationPhrases = []string{
	"recommend",
	"suggest",
	"top choice",
	"best option",
	"highly rated",
	"worth considering",
	"great choice",
	"good option",
	"popular choice",
	"well-known",
	"leading",
	"notable",
}

const (
	phraseWindow   = 200
	excerptRadius  = 100
	minBrandLength = 4
)

// Mention is the classification of one answer.
type Mention struct {
	Mentioned   bool              `json:"mentioned"`
	Type        scans.MentionType `json:"mentionType"`
	Confidence  float64           `json:"confidence"`
	Excerpt     *string           `json:"excerpt"`
	CitationURL *string           `json:"citationUrl"`
}

// MentionDetector holds no state besides its phrase list.
type MentionDetector struct {
	Phrases []string
}

func NewMentionDetector() *MentionDetector {
	return &MentionDetector{Phrases: DefaultRecommendationPhrases}
}

// Detect decides whether and how the target is referenced. First match wins:
// citation host, URL/domain substring, whole-word brand name, nothing.
// Windows and excerpts are counted in characters.
func (d *MentionDetector) Detect(text, targetURL, targetDomain string, citations []string) Mention {
	f := foldText(text)
	domain := strings.TrimPrefix(fold(targetDomain), "www.")
	brand := BrandName(domain)

	if c, ok := matchCitation(citations, domain); ok {
		excerpt := f.excerptOf(domain)
		if excerpt == nil && brand != "" {
			excerpt = f.excerptOf(brand)
		}
		return Mention{
			Mentioned:   true,
			Type:        scans.MentionDirectCitation,
			Confidence:  1.0,
			Excerpt:     excerpt,
			CitationURL: &c,
		}
	}

	if (targetURL != "" && strings.Contains(f.lower, fold(targetURL))) ||
		(domain != "" && strings.Contains(f.lower, domain)) {
		kind := scans.MentionDirectCitation
		at, _ := f.index(domain)
		if d.nearPhrase(f, at) {
			kind = scans.MentionRecommendation
		}
		return Mention{
			Mentioned:  true,
			Type:       kind,
			Confidence: 1.0,
			Excerpt:    f.excerptOf(domain),
		}
	}

	if utf8.RuneCountInString(brand) >= minBrandLength {
		if from, to := f.word(brand); from >= 0 {
			kind := scans.MentionBrand
			if d.nearPhrase(f, from) {
				kind = scans.MentionRecommendation
			}
			return Mention{
				Mentioned:  true,
				Type:       kind,
				Confidence: 0.8,
				Excerpt:    f.excerpt(from, to),
			}
		}
	}

	return Mention{Mentioned: false, Type: scans.MentionNone, Confidence: 1.0}
}

// BrandName strips the public suffix from the registrable domain:
// "shop.acme.co.uk" -> "acme". Hosts without a known suffix fall back to
// their first label.
func BrandName(domain string) string {
	domain = strings.TrimPrefix(strings.ToLower(domain), "www.")
	if domain == "" {
		return ""
	}
	etld1, err := publicsuffix.EffectiveTLDPlusOne(domain)
	if err == nil {
		suffix, _ := publicsuffix.PublicSuffix(etld1)
		if b := strings.TrimSuffix(etld1, "."+suffix); b != "" && b != etld1 {
			return b
		}
	}
	label, _, _ := strings.Cut(domain, ".")
	return label
}

// HostMatches reports whether host is domain or one of its subdomains.
func HostMatches(host, domain string) bool {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	return host == domain || strings.HasSuffix(host, "."+domain)
}

func matchCitation(citations []string, domain string) (string, bool) {
	if domain == "" {
		return "", false
	}
	for _, c := range citations {
		u, err := url.Parse(c)
		if err != nil || u.Hostname() == "" {
			if strings.Contains(strings.ToLower(c), domain) {
				return c, true
			}
			continue
		}
		if HostMatches(u.Hostname(), domain) {
			return c, true
		}
	}
	return "", false
}

// folded keeps an answer next to its lower-cased form. Folding is done
// rune by rune so index i in runes and lr is the same character.
type folded struct {
	runes []rune
	lr    []rune
	lower string
}

func fold(s string) string { return strings.Map(unicode.ToLower, s) }

func foldText(text string) folded {
	runes := []rune(text)
	lr := make([]rune, len(runes))
	for i, r := range runes {
		lr[i] = unicode.ToLower(r)
	}
	return folded{runes: runes, lr: lr, lower: string(lr)}
}

// index returns the rune span of the first occurrence of term, or -1.
func (f folded) index(term string) (int, int) {
	if term == "" {
		return -1, -1
	}
	i := strings.Index(f.lower, term)
	if i < 0 {
		return -1, -1
	}
	from := utf8.RuneCountInString(f.lower[:i])
	return from, from + utf8.RuneCountInString(term)
}

// word is index restricted to whole-word occurrences.
func (f folded) word(term string) (int, int) {
	off := 0
	for off < len(f.lower) {
		i := strings.Index(f.lower[off:], term)
		if i < 0 {
			break
		}
		i += off
		from := utf8.RuneCountInString(f.lower[:i])
		to := from + utf8.RuneCountInString(term)
		if (from == 0 || !isWordRune(f.lr[from-1])) && (to == len(f.lr) || !isWordRune(f.lr[to])) {
			return from, to
		}
		_, size := utf8.DecodeRuneInString(f.lower[i:])
		off = i + size
	}
	return -1, -1
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func (d *MentionDetector) nearPhrase(f folded, at int) bool {
	if at < 0 {
		return false
	}
	start := max(0, at-phraseWindow)
	end := min(len(f.lr), at+phraseWindow)
	window := string(f.lr[start:end])
	for _, p := range d.Phrases {
		if strings.Contains(window, p) {
			return true
		}
	}
	return false
}

func (f folded) excerptOf(term string) *string {
	from, to := f.index(fold(term))
	if from < 0 {
		return nil
	}
	return f.excerpt(from, to)
}

// excerpt cuts the original text excerptRadius characters either side.
func (f folded) excerpt(from, to int) *string {
	start := max(0, from-excerptRadius)
	end := min(len(f.runes), to+excerptRadius)
	out := strings.TrimSpace(string(f.runes[start:end]))
	if start > 0 {
		out = "..." + out
	}
	if end < len(f.runes) {
		out += "..."
	}
	return &out
}

func runeStart(s string, i int) int {
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}
