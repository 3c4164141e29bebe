package keyword

// followUpMarkers are attribute and question words that mark a query as a
// continuation of the active research subject.
var followUpMarkers = []string{
	"camera", "battery", "price", "cost", "color", "colors", "colour", "display", "screen", "storage",
	"performance", "charging", "weight", "size", "warranty", "durability", "software", "specs",
	"what", "how", "why", "which", "does it", "is it", "can it", "should i", "worth",
}

// brands are product-brand tokens used to detect a topic change.
var brands = []string{
	"apple", "iphone", "ipad", "macbook", "samsung", "galaxy", "google", "pixel", "oneplus", "xiaomi",
	"redmi", "oppo", "vivo", "realme", "motorola", "nokia", "sony", "huawei",
	"asus", "dell", "hp", "lenovo", "acer", "msi", "microsoft", "surface", "nvidia", "amd", "intel",
}

// newResearchPhrases explicitly ask for a fresh research pass.
var newResearchPhrases = []string{"review of", "analysis of", "compare with"}

// IsNewResearch decides whether query starts a new research pass instead of
// following up on subject. The checks run in a fixed order:
// follow-up marker, then a brand absent from subject, then an explicit
// new-research phrase. Anything else is treated as a follow-up.
func IsNewResearch(query, subject string) bool {
	if containsAny(query, followUpMarkers) {
		return false
	}
	if mentionsOtherBrand(query, subject) {
		return true
	}
	if containsAny(query, newResearchPhrases) {
		return true
	}
	return false
}

func mentionsOtherBrand(query, subject string) bool {
	subjectTokens := make(map[string]bool)
	for _, t := range Tokens(subject) {
		subjectTokens[t] = true
	}

	for _, t := range Tokens(query) {
		if subjectTokens[t] {
			continue
		}
		for _, b := range brands {
			if t == b {
				return true
			}
		}
	}
	return false
}
