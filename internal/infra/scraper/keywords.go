package scraper

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	GeneralBusiness = "General Business"

	maxKeywords     = 20
	maxFrequentWord = 15
	bodySample      = 2000
)

var (
	wordPattern = regexp.MustCompile(`\b[a-z]{3,20}\b`)
	nonLetters  = regexp.MustCompile(`[^a-z]`)
)

var stopWords = toSet(
	"the", "be", "to", "of", "and", "a", "in", "that", "have", "i",
	"it", "for", "not", "on", "with", "he", "as", "you", "do", "at",
	"this", "but", "his", "by", "from", "they", "we", "say", "her",
	"she", "or", "an", "will", "my", "one", "all", "would", "there",
	"their", "what", "so", "up", "out", "if", "about", "who", "get",
	"which", "go", "me", "when", "make", "can", "like", "time", "no",
	"just", "him", "know", "take", "people", "into", "year", "your",
	"good", "some", "could", "them", "see", "other", "than", "then",
	"now", "look", "only", "come", "its", "over", "think", "also",
	"back", "after", "use", "two", "how", "our", "work", "first",
	"well", "way", "even", "new", "want", "because", "any", "these",
	"give", "day", "most", "us", "are", "is", "was", "has", "more",
	"been", "were", "being", "had", "did", "does", "very", "may",
	"should", "must", "much", "own", "too", "here", "where", "why",
	"let", "keep", "still", "might", "while", "each", "every",
	"both", "such", "those", "since", "same", "through",
	"home", "contact", "menu", "page", "click", "read",
	"learn", "view", "privacy", "policy", "terms",
	"cookie", "cookies", "accept", "close", "search", "sign",
	"login", "register", "subscribe", "share", "follow",
)

type industry struct {
	name  string
	terms []*regexp.Regexp
}

// industries in scoring order; the first best score wins ties.
var industries = []industry{
	newIndustry("Digital Marketing", "marketing", "seo", "sem", "ppc", "advertising", "campaign"),
	newIndustry("Software Development", "software", "development", "programming", "code", "developer", "app"),
	newIndustry("E-commerce", "shop", "store", "ecommerce", "product", "buy", "cart", "checkout"),
	newIndustry("Healthcare", "health", "medical", "doctor", "patient", "clinic", "hospital"),
	newIndustry("Finance", "finance", "banking", "investment", "insurance", "loan", "credit"),
	newIndustry("Education", "education", "learning", "course", "training", "school", "university"),
	newIndustry("Real Estate", "real estate", "property", "house", "apartment", "rent", "mortgage"),
	newIndustry("Technology", "technology", "tech", "digital", "cloud", "data", "ai", "automation"),
	newIndustry("Consulting", "consulting", "consultant", "advisory", "strategy", "management"),
	newIndustry("Design", "design", "creative", "branding", "graphic", "ui", "ux"),
	newIndustry("SaaS", "saas", "platform", "tool", "subscription", "dashboard", "analytics"),
	newIndustry("Agency", "agency", "services", "solutions", "partner", "client"),
}

func newIndustry(name string, terms ...string) industry {
	in := industry{name: name}
	for _, t := range terms {
		in.terms = append(in.terms, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(t)+`\b`))
	}
	return in
}

func toSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// Extraction is what Extract infers from a page.
type Extraction struct {
	Industry string
	Keywords []string
	Services []string
}

// Extract ranks keywords by source: meta keywords, then two-word phrases
// from title, description and headings, then the most frequent words.
func Extract(p Page, domain string) Extraction {
	parts := append([]string{p.Title, p.Description}, p.Headings...)
	parts = append(parts, truncateRunes(p.BodyText, bodySample))
	all := strings.ToLower(strings.Join(parts, " "))

	var ordered []string
	for _, k := range p.MetaKeywords {
		ordered = append(ordered, strings.ToLower(k))
	}
	ordered = append(ordered, phrases(p)...)
	ordered = append(ordered, frequentWords(all, strings.ToLower(domain))...)

	seen := map[string]bool{}
	keywords := []string{}
	for _, k := range ordered {
		if seen[k] || len(keywords) == maxKeywords {
			continue
		}
		seen[k] = true
		keywords = append(keywords, k)
	}

	services := []string{}
	for _, h := range p.Headings {
		if n := utf8.RuneCountInString(h); n > 5 && n < 100 && len(services) < maxServices {
			services = append(services, h)
		}
	}

	return Extraction{Industry: InferIndustry(all), Keywords: keywords, Services: services}
}

func phrases(p Page) []string {
	src := append([]string{p.Title, p.Description}, p.Headings...)
	words := strings.Fields(strings.ToLower(strings.Join(src, ". ")))
	var out []string
	for i := 0; i+1 < len(words); i++ {
		w1 := nonLetters.ReplaceAllString(words[i], "")
		w2 := nonLetters.ReplaceAllString(words[i+1], "")
		if len(w1) > 2 && len(w2) > 2 && !stopWords[w1] && !stopWords[w2] {
			out = append(out, w1+" "+w2)
		}
	}
	return out
}

func frequentWords(text, domain string) []string {
	counts := map[string]int{}
	var order []string
	for _, w := range wordPattern.FindAllString(text, -1) {
		if stopWords[w] || strings.Contains(domain, w) {
			continue
		}
		if counts[w] == 0 {
			order = append(order, w)
		}
		counts[w]++
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if len(order) > maxFrequentWord {
		order = order[:maxFrequentWord]
	}
	return order
}

// InferIndustry returns the industry whose terms occur most often in
// text, or GeneralBusiness when none occur.
func InferIndustry(text string) string {
	best, bestScore := GeneralBusiness, 0
	for _, in := range industries {
		score := 0
		for _, re := range in.terms {
			score += len(re.FindAllStringIndex(text, -1))
		}
		if score > bestScore {
			best, bestScore = in.name, score
		}
	}
	return best
}
