package scans

// Region is a geographic scope used to vary prompt phrasing.
type Region struct {
	Code   string `json:"code" yaml:"code"`
	Label  string `json:"label" yaml:"label"`
	Suffix string `json:"suffix" yaml:"suffix"`
}

// RegionTable is an ordered, injectable list of selectable regions.
type RegionTable []Region

// DefaultRegions returns the ten built-in regions.
func DefaultRegions() RegionTable {
	return RegionTable{
		{Code: "global", Label: "Worldwide", Suffix: ""},
		{Code: "us", Label: "United States", Suffix: "in the United States"},
		{Code: "uk", Label: "United Kingdom", Suffix: "in the UK"},
		{Code: "de", Label: "Germany", Suffix: "in Germany"},
		{Code: "fr", Label: "France", Suffix: "in France"},
		{Code: "au", Label: "Australia", Suffix: "in Australia"},
		{Code: "ca", Label: "Canada", Suffix: "in Canada"},
		{Code: "in", Label: "India", Suffix: "in India"},
		{Code: "jp", Label: "Japan", Suffix: "in Japan"},
		{Code: "br", Label: "Brazil", Suffix: "in Brazil"},
	}
}

// DefaultScanRegions is used when a scan is created without regions.
var DefaultScanRegions = []string{"global", "us", "uk", "de", "fr"}

// MaxRegions bounds how many regions one scan may select.
const MaxRegions = 10

func (t RegionTable) Lookup(code string) (Region, bool) {
	for _, r := range t {
		if r.Code == code {
			return r, true
		}
	}
	return Region{}, false
}

// Select resolves codes into regions keeping table order, dropping
// unknown codes and duplicates.
func (t RegionTable) Select(codes []string) []Region {
	want := make(map[string]bool, len(codes))
	for _, c := range codes {
		want[c] = true
	}
	var out []Region
	for _, r := range t {
		if want[r.Code] {
			out = append(out, r)
		}
	}
	return out
}
