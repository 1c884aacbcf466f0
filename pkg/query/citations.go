package query

import (
	"regexp"
	"strings"
)

var citationIDPattern = regexp.MustCompile(`\[\[([^][]+)\]\]`)

// ExtractCitationIDs returns the unique node ids cited inline as [[id]] in an
// answer, in order of first appearance.
func ExtractCitationIDs(text string) []string {
	matches := citationIDPattern.FindAllStringSubmatch(text, -1)
	ids := make([]string, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))
	for _, match := range matches {
		if len(match) < 2 {
			continue
		}
		id := strings.TrimSpace(match[1])
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
