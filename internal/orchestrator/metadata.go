package orchestrator

import (
	"context"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/kaptinlin/jsonschema"

	"github.com/dusk-indust/appealdraft/internal/agent"
	"github.com/dusk-indust/appealdraft/internal/jsonscan"
	"github.com/dusk-indust/appealdraft/internal/prompts"
	"github.com/dusk-indust/appealdraft/internal/provider"
)

// FineMetadata is the structured data pulled out of a fine.
type FineMetadata struct {
	Legislation     []string `json:"legislation"`
	Organism        string   `json:"organism"`
	OrganismAddress string   `json:"organismAddress"`
	FineType        string   `json:"fineType"`
	FineAmount      string   `json:"fineAmount"`
	Deadline        string   `json:"deadline"`
	RawSummary      string   `json:"rawSummary"`
}

// EmptyMetadata returns the well-formed record with no data.
func EmptyMetadata() FineMetadata {
	return FineMetadata{Legislation: []string{}}
}

// IsEmpty reports whether no field carries data.
func (m FineMetadata) IsEmpty() bool {
	return len(m.Legislation) == 0 && m.Organism == "" && m.OrganismAddress == "" &&
		m.FineType == "" && m.FineAmount == "" && m.Deadline == "" && m.RawSummary == ""
}

const metadataSchemaJSON = `{
  "type": "object",
  "properties": {
    "legislation":     {"type": ["array", "null"], "items": {"type": ["string", "null"]}},
    "organism":        {"type": ["string", "null"]},
    "organismAddress": {"type": ["string", "null"]},
    "fineType":        {"type": ["string", "null"]},
    "fineAmount":      {"type": ["string", "number", "null"]},
    "deadline":        {"type": ["string", "null"]},
    "rawSummary":      {"type": ["string", "null"]}
  }
}`

var metadataSchema = mustCompileSchema(metadataSchemaJSON)

func mustCompileSchema(src string) *jsonschema.Schema {
	s, err := jsonschema.NewCompiler().Compile([]byte(src))
	if err != nil {
		panic("orchestrator: metadata schema: " + err.Error())
	}
	return s
}

// ParseMetadataCandidate cleans one raw agent reply into a candidate. Replies
// without a conforming JSON object yield ok=false.
func ParseMetadataCandidate(raw string) (FineMetadata, bool) {
	obj, ok := jsonscan.TryParseObject[map[string]any](raw)
	if !ok {
		return FineMetadata{}, false
	}
	if !metadataSchema.Validate(obj).IsValid() {
		return FineMetadata{}, false
	}

	m := EmptyMetadata()
	if items, ok := obj["legislation"].([]any); ok {
		for _, it := range items {
			if s, ok := it.(string); ok && strings.TrimSpace(s) != "" {
				m.Legislation = append(m.Legislation, strings.TrimSpace(s))
			}
		}
	}
	m.Organism = stringField(obj, "organism")
	m.OrganismAddress = stringField(obj, "organismAddress")
	m.FineType = stringField(obj, "fineType")
	m.FineAmount = stringField(obj, "fineAmount")
	m.Deadline = stringField(obj, "deadline")
	m.RawSummary = stringField(obj, "rawSummary")
	return m, true
}

func stringField(obj map[string]any, key string) string {
	switch v := obj[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		b, _ := json.Marshal(v)
		return string(b)
	default:
		return ""
	}
}

// MergeMetadata combines candidates field by field:
//   - legislation: case-insensitive union, most-cited first, ties by first
//     appearance, first casing kept
//   - organism: majority by exact match, ties by first appearance
//   - other fields: longest non-empty value, ties by first appearance
//
// Zero candidates give EmptyMetadata.
func MergeMetadata(candidates []FineMetadata) FineMetadata {
	out := EmptyMetadata()
	if len(candidates) == 0 {
		return out
	}

	out.Legislation = mergeLegislation(candidates)
	out.Organism = majority(candidates, func(m FineMetadata) string { return m.Organism })
	out.OrganismAddress = longest(candidates, func(m FineMetadata) string { return m.OrganismAddress })
	out.FineType = longest(candidates, func(m FineMetadata) string { return m.FineType })
	out.FineAmount = longest(candidates, func(m FineMetadata) string { return m.FineAmount })
	out.Deadline = longest(candidates, func(m FineMetadata) string { return m.Deadline })
	out.RawSummary = longest(candidates, func(m FineMetadata) string { return m.RawSummary })
	return out
}

func mergeLegislation(candidates []FineMetadata) []string {
	type entry struct {
		display string
		agents  int
	}
	var order []string
	entries := make(map[string]*entry)

	for _, c := range candidates {
		seen := make(map[string]bool)
		for _, item := range c.Legislation {
			item = strings.TrimSpace(item)
			key := strings.ToLower(item)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			e, ok := entries[key]
			if !ok {
				e = &entry{display: item}
				entries[key] = e
				order = append(order, key)
			}
			e.agents++
		}
	}

	// Stable insertion sort keeps first-seen order among equal counts.
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && entries[order[j]].agents > entries[order[j-1]].agents; j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}

	out := make([]string, 0, len(order))
	for _, key := range order {
		out = append(out, entries[key].display)
	}
	return out
}

func majority(candidates []FineMetadata, field func(FineMetadata) string) string {
	counts := make(map[string]int)
	var order []string
	for _, c := range candidates {
		v := field(c)
		if v == "" {
			continue
		}
		if counts[v] == 0 {
			order = append(order, v)
		}
		counts[v]++
	}
	best := ""
	for _, v := range order {
		if counts[v] > counts[best] {
			best = v
		}
	}
	return best
}

func longest(candidates []FineMetadata, field func(FineMetadata) string) string {
	best := ""
	for _, c := range candidates {
		if v := field(c); utf8.RuneCountInString(v) > utf8.RuneCountInString(best) {
			best = v
		}
	}
	return best
}

// MetadataExtractor runs the extraction prompt across agents and merges the
// replies.
type MetadataExtractor struct {
	fanout *FanOut
}

// NewMetadataExtractor creates an extractor over fanout.
func NewMetadataExtractor(fanout *FanOut) *MetadataExtractor {
	return &MetadataExtractor{fanout: fanout}
}

// Extract asks every runnable agent for metadata. It never fails: agents
// that error or reply without a usable object contribute no candidate.
func (e *MetadataExtractor) Extract(ctx context.Context, requestID string, sel agent.Selection, fine prompts.Fine, image []byte, imageMIME string) (FineMetadata, []AgentResult) {
	system, err := prompts.ExtractionSystem()
	if err != nil {
		return EmptyMetadata(), failAll(sel, err)
	}
	user, err := prompts.ExtractionUser(fine)
	if err != nil {
		return EmptyMetadata(), failAll(sel, err)
	}

	calls := make([]Call, 0, len(sel.Runnable))
	for _, b := range sel.Runnable {
		calls = append(calls, Call{
			Agent: b,
			Request: provider.Request{
				SystemPrompt: system,
				UserPrompt:   user,
				Image:        image,
				ImageMIME:    imageMIME,
				RequireImage: len(image) > 0,
			},
		})
	}

	results := e.fanout.Run(ctx, requestID, PhaseMetadata, calls, sel.Skipped)

	var candidates []FineMetadata
	for _, r := range results {
		if r.Status != StatusDone {
			continue
		}
		if m, ok := ParseMetadataCandidate(r.Content); ok {
			candidates = append(candidates, m)
		}
	}
	return MergeMetadata(candidates), results
}

// failAll reports err for every runnable agent without calling it.
func failAll(sel agent.Selection, err error) []AgentResult {
	out := make([]AgentResult, 0, len(sel.Runnable)+len(sel.Skipped))
	for _, b := range sel.Runnable {
		out = append(out, AgentResult{AgentID: b.Identity.ID, Label: b.Identity.Label, Status: StatusError, Error: err.Error()})
	}
	for _, s := range sel.Skipped {
		out = append(out, AgentResult{AgentID: s.Identity.ID, Label: s.Identity.Label, Status: StatusSkipped, Error: s.Reason})
	}
	return out
}
