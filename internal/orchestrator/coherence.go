package orchestrator

import (
	"fmt"
	"regexp"
	"strings"
)

// codeBlockRe matches fenced code blocks (``` ... ```).
var codeBlockRe = regexp.MustCompile("(?s)```.*?```")

// articleRe matches article citations such as "Art. 91.2", "artículo 18" or
// "arts. 123".
var articleRe = regexp.MustCompile(`(?i)\bart(?:[íi]culos?|s?\.)?\s*(\d+(?:\.\d+)*)`)

// CheckCoherence reports article citations in drafts that the consensus
// metadata does not list. Nothing is reported when the metadata has no
// legislation. Content inside fenced code blocks is ignored.
func CheckCoherence(drafts []Draft, meta FineMetadata) []CoherenceIssue {
	if len(meta.Legislation) == 0 {
		return nil
	}
	known := make(map[string]bool)
	for _, l := range meta.Legislation {
		for _, m := range articleRe.FindAllStringSubmatch(l, -1) {
			known[m[1]] = true
			known[topLevel(m[1])] = true
		}
	}
	if len(known) == 0 {
		return nil
	}

	var issues []CoherenceIssue
	for _, d := range drafts {
		cleaned := codeBlockRe.ReplaceAllString(d.Content, "")
		seen := make(map[string]bool)
		for _, m := range articleRe.FindAllStringSubmatch(cleaned, -1) {
			num := m[1]
			if known[num] || known[topLevel(num)] || seen[num] {
				continue
			}
			seen[num] = true
			issues = append(issues, CoherenceIssue{
				AgentID:   d.AgentID,
				Reference: strings.TrimSpace(m[0]),
				Description: fmt.Sprintf("draft from %s cites %q, which is not among the extracted legislation (%s)",
					d.AgentID, strings.TrimSpace(m[0]), strings.Join(meta.Legislation, "; ")),
			})
		}
	}
	return issues
}

// topLevel returns the article number without its sub-sections.
func topLevel(num string) string {
	if i := strings.IndexByte(num, '.'); i >= 0 {
		return num[:i]
	}
	return num
}
