package catalog

import "strings"

// Filter narrows an already-fetched page: substring match on name and
// description, exact match on roast level and origin. Empty fields match
// everything.
type Filter struct {
	Search     string
	RoastLevel RoastLevel
	Origin     string
}

func (f Filter) Match(l Listing) bool {
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		name := strings.ToLower(l.Name)
		description := strings.ToLower(l.Description)
		if !strings.Contains(name, needle) && !strings.Contains(description, needle) {
			return false
		}
	}
	if f.RoastLevel != "" && l.RoastLevel != f.RoastLevel {
		return false
	}
	if f.Origin != "" && l.Origin != f.Origin {
		return false
	}
	return true
}

func (f Filter) Apply(listings []Listing) []Listing {
	out := make([]Listing, 0, len(listings))
	for _, l := range listings {
		if f.Match(l) {
			out = append(out, l)
		}
	}
	return out
}
