// Package chunker splits knowledge-base documents into retrievable sections
// along markdown heading boundaries.
package chunker

import "strings"

// splitWordThreshold is the body size (in whitespace-delimited words) above
// which a level-4 heading starts a new section instead of staying body text.
const splitWordThreshold = 300

// titleSeparator joins the heading hierarchy into a section title.
const titleSeparator = " - "

// Section is one retrievable unit produced from a document: a hierarchical
// title and the trimmed body text accumulated under it.
type Section struct {
	Title   string
	Content string
}

// Chunk splits documentText into an ordered sequence of titled sections.
//
// Level-2 and level-3 headings always start a new section. A level-4 heading
// starts one only when the section body already exceeds splitWordThreshold
// words; otherwise the heading line is kept as ordinary body text, which
// bounds section size without fragmenting short subsections. Level-1 headings
// are dropped. Text before the first level-2/3 heading has no title and is
// discarded, so a document with no such headings yields no sections.
func Chunk(documentText, documentKey string) []Section {
	key := strings.TrimSuffix(documentKey, ".md")

	var (
		sections []Section
		body     []string
		title    string
		h2       string
	)

	flush := func() {
		text := strings.TrimSpace(strings.Join(body, "\n"))
		if text != "" && title != "" {
			sections = append(sections, Section{Title: title, Content: text})
		}
		body = nil
	}

	for _, line := range strings.Split(documentText, "\n") {
		switch {
		// Longest prefix first: "#### " must not match the "## " case.
		case strings.HasPrefix(line, "#### "):
			current := strings.TrimSpace(strings.Join(body, "\n"))
			if len(strings.Fields(current)) > splitWordThreshold {
				flush()
				h4 := strings.TrimSpace(strings.TrimPrefix(line, "#### "))
				if h2 != "" {
					title = key + titleSeparator + h2 + titleSeparator + h4
				} else {
					title = key + titleSeparator + h4
				}
				continue
			}
			body = append(body, line)

		case strings.HasPrefix(line, "### "):
			flush()
			h3 := strings.TrimSpace(strings.TrimPrefix(line, "### "))
			if h2 != "" {
				title = key + titleSeparator + h2 + titleSeparator + h3
			} else {
				title = key + titleSeparator + h3
			}

		case strings.HasPrefix(line, "## "):
			flush()
			h2 = strings.TrimSpace(strings.TrimPrefix(line, "## "))
			title = key + titleSeparator + h2

		case strings.HasPrefix(line, "# "):
			// Document title. Not a section boundary and not body text.

		default:
			body = append(body, line)
		}
	}

	flush()
	return sections
}
