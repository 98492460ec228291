package source

import "strings"

// youtubeCategories maps YouTube Data API category ids to the category
// labels used across the rest of the pipeline.
var youtubeCategories = map[string]string{
	"1":  "entertainment", // Film & Animation
	"2":  "auto",
	"10": "music",
	"15": "animals",
	"17": "sports",
	"19": "travel",
	"20": "gaming",
	"22": "lifestyle", // People & Blogs
	"23": "entertainment",
	"24": "entertainment",
	"25": "news",
	"26": "lifestyle", // Howto & Style
	"27": "education",
	"28": "tech",
}

// MapYouTubeCategory converts a YouTube category id to a pipeline category.
// Unknown ids map to "general".
func MapYouTubeCategory(id string) string {
	if c, ok := youtubeCategories[id]; ok {
		return c
	}
	return "general"
}

// Filter drops observations whose keywords match an exclusion list. The
// pipeline publishes unattended, so operators blocklist topics they never
// want a video made about.
type Filter struct {
	exclude []string
}

// NewFilter creates a filter from the configured exclusion keywords.
func NewFilter(excludeKeywords []string) *Filter {
	exclude := make([]string, 0, len(excludeKeywords))
	for _, kw := range excludeKeywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			exclude = append(exclude, kw)
		}
	}
	return &Filter{exclude: exclude}
}

// Allowed returns false if the keyword matches any excluded term.
func (f *Filter) Allowed(keyword string) bool {
	if f == nil || len(f.exclude) == 0 {
		return true
	}
	lower := strings.ToLower(keyword)
	for _, ex := range f.exclude {
		if strings.Contains(lower, ex) {
			return false
		}
	}
	return true
}

// Apply returns only the observations whose keywords pass the filter.
func (f *Filter) Apply(observations []Observation) []Observation {
	if f == nil || len(f.exclude) == 0 {
		return observations
	}
	var kept []Observation
	for _, o := range observations {
		if f.Allowed(o.RawKeyword) {
			kept = append(kept, o)
		}
	}
	return kept
}
