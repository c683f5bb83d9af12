// Package metadata derives categorical tags for knowledge-base sections via
// keyword matching over the section title and body.
package metadata

import "strings"

// FAQDocument forces topic = "faq" on every section it produces.
const FAQDocument = "faq.md"

// EventsDocument marks all of its sections as seasonal.
const EventsDocument = "events.md"

// rule binds a tag value to the keywords that select it.
type rule struct {
	value    string
	keywords []string
}

// Rule tables are ordered slices, not maps: within a category the first rule
// with any keyword hit wins, and that tie-break order is part of the contract.
var (
	programRules = []rule{
		{"pods", []string{"pod", "learning pod"}},
		{"online", []string{"eaton online", "online class", "virtual class", "zoom"}},
		{"microschool", []string{"microschool"}},
		{"hub", []string{"eaton hub", "drop-in"}},
		{"coaching", []string{"coaching", "one-on-one", "tutoring"}},
		{"consulting", []string{"consulting", "homeschool setup"}},
	}

	topicRules = []rule{
		{"pricing", []string{"price", "pricing", "cost", "tuition", "fee", "$", "discount"}},
		{"schedule", []string{"schedule", "time", "day", "hour", "am", "pm", "monday", "tuesday", "wednesday", "thursday", "friday"}},
		{"curriculum", []string{"curriculum", "subject", "math", "science", "language arts", "social studies"}},
		{"enrollment", []string{"enroll", "registration", "register", "sign up", "apply"}},
		{"requirements", []string{"requirement", "age", "grade", "need", "document", "technology"}},
		{"faq", []string{"?"}},
		{"events", []string{"event", "open house", "showcase", "camp", "info session"}},
	}

	locationRules = []rule{
		{"doral", []string{"doral"}},
		{"kendall", []string{"kendall"}},
		{"weston", []string{"weston"}},
		{"online", []string{"online", "virtual", "nationwide", "zoom"}},
	}

	seasonalMarkers = []string{"[template]", "update", "season"}
)

// Tag returns the tags for one section. Matching is case-insensitive
// substring search against the title and content; categories are independent
// of each other and a section may match none of them.
func Tag(content, title, documentKey string) map[string]string {
	titleLower := strings.ToLower(title)
	contentLower := strings.ToLower(content)

	tags := make(map[string]string)

	if v, ok := firstMatch(programRules, titleLower, contentLower); ok {
		tags["program"] = v
	}
	if v, ok := firstMatch(topicRules, titleLower, contentLower); ok {
		tags["topic"] = v
	}
	if v, ok := firstMatch(locationRules, titleLower, contentLower); ok {
		tags["location"] = v
	}

	if seasonal(contentLower, documentKey) {
		tags["seasonal"] = "true"
	}

	// Everything in the FAQ document is FAQ, whatever its keywords say.
	if documentKey == FAQDocument {
		tags["topic"] = "faq"
	}

	return tags
}

func firstMatch(rules []rule, titleLower, contentLower string) (string, bool) {
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(titleLower, kw) || strings.Contains(contentLower, kw) {
				return r.value, true
			}
		}
	}
	return "", false
}

func seasonal(contentLower, documentKey string) bool {
	if documentKey == EventsDocument {
		return true
	}
	for _, m := range seasonalMarkers {
		if strings.Contains(contentLower, m) {
			return true
		}
	}
	return false
}
