package feed

import "strings"

// Filterer applies per-feed keyword and content-type gates. Both gates
// must pass for an item to proceed to dedup and storage.
type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

func (f *Filterer) Passes(item Item, keywordFilters []string, contentFilters map[string]bool) bool {
	return f.passesKeywords(item, keywordFilters) && f.passesContentTypes(contentFilters)
}

// passesKeywords matches any filter keyword, case-insensitive, as a
// substring of title + content + description. An empty list passes
// everything.
func (f *Filterer) passesKeywords(item Item, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}

	haystack := strings.ToLower(item.Title + " " + item.Content + " " + item.Description)
	for _, keyword := range keywords {
		if keyword == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}

// passesContentTypes passes when the map is empty or at least one
// configured flag is true. The flags do not yet inspect the item for
// media types; per-type checks are an extension point.
func (f *Filterer) passesContentTypes(contentFilters map[string]bool) bool {
	if len(contentFilters) == 0 {
		return true
	}

	for _, enabled := range contentFilters {
		if enabled {
			return true
		}
	}
	return false
}
