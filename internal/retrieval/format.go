package retrieval

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/54b3r/orangebot-go/internal/rag"
)

// NoContext is the context text used when nothing was retrieved.
const NoContext = "No relevant information found in the knowledge base."

var (
	nanWord   = regexp.MustCompile(`\bnan\b`)
	gluedUnit = regexp.MustCompile(`(\d)(MB|EGP)`)
)

// FormatContext renders docs as the model's context block.
func FormatContext(docs []rag.Document) string {
	if len(docs) == 0 {
		return NoContext
	}
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		source := d.Source
		if source == "" {
			source = "Unknown"
		}
		section := d.Section()
		if section == "" {
			section = "General"
		}
		parts = append(parts, fmt.Sprintf("Source: %s | Section: %s\n%s\n", source, section, CleanContent(d.Content)))
	}
	return strings.Join(parts, "\n")
}

// CleanContent replaces standalone "nan" with "N/A" and separates numbers
// from a trailing MB or EGP unit.
func CleanContent(s string) string {
	s = nanWord.ReplaceAllString(s, "N/A")
	return gluedUnit.ReplaceAllString(s, "$1 $2")
}

// Sources returns the distinct non-empty sources of the first n documents in
// order of appearance.
func Sources(docs []rag.Document, n int) []string {
	var out []string
	for i, d := range docs {
		if i == n {
			break
		}
		if d.Source == "" || slices.Contains(out, d.Source) {
			continue
		}
		out = append(out, d.Source)
	}
	return out
}
