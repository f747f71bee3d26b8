package feed

import (
	"regexp"
	"sort"
	"strings"
)

var tagPattern = regexp.MustCompile(`#(\w+)`)

// ExtractHashtags derives the lowercase tag set for a post. Tags declared as
// structured facets are authoritative and always included; as a supplement,
// tags are also pattern-matched out of the raw text and merged in. The dual
// extraction guards against inconsistently-faceted source data, at the cost
// of admitting plain text that merely contains a #word. Duplicates are
// collapsed case-insensitively; the result is sorted for determinism.
func ExtractHashtags(text string, facets []Facet) []string {
	seen := make(map[string]struct{})

	for _, f := range facets {
		if f.Kind == FacetTag && f.Payload != "" {
			seen[strings.ToLower(f.Payload)] = struct{}{}
		}
	}

	for _, match := range tagPattern.FindAllStringSubmatch(text, -1) {
		seen[strings.ToLower(match[1])] = struct{}{}
	}

	if len(seen) == 0 {
		return nil
	}
	tags := make([]string, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
