package ai

import "strings"

// OtherCategory is returned when a model answer matches no known category.
const OtherCategory = "Other"

// Categories defines the fixed set an article can be classified into.
var Categories = []string{
	"Politics",
	"Finance",
	"Health",
	"Science",
	"Technology",
	"Sports",
	"Crypto Currency",
	"Entertainment",
	OtherCategory,
}

// NormalizeCategory maps a free-text model answer onto Categories.
// Matching ignores case, surrounding punctuation and a trailing period.
// Answers that match nothing become OtherCategory.
func NormalizeCategory(answer string) string {
	answer = strings.Trim(strings.TrimSpace(answer), ".\"'` *")
	for _, c := range Categories {
		if strings.EqualFold(answer, c) {
			return c
		}
	}
	// Models sometimes answer with a sentence that names the category.
	lower := strings.ToLower(answer)
	for _, c := range Categories {
		if c == OtherCategory {
			continue
		}
		if strings.Contains(lower, strings.ToLower(c)) {
			return c
		}
	}
	return OtherCategory
}
