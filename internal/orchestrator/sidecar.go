package orchestrator

import (
	"net/url"
	"strings"
	"unicode"

	"github.com/dusk-indust/appealdraft/internal/jsonscan"
)

// Confidence levels a draft may attach to its submission URL.
const (
	ConfidenceHigh   = "alta"
	ConfidenceMedium = "media"
	ConfidenceLow    = "baja"
)

// SubmissionURLProposal is an agent's suggestion of where to file the appeal.
type SubmissionURLProposal struct {
	URL        string `json:"url"`
	Name       string `json:"name"`
	Confidence string `json:"confidence"`
}

const (
	sidecarOpen  = "|||URL_SEDE:"
	sidecarClose = "|||"
)

type sidecarPayload struct {
	URL        string `json:"url"`
	Name       string `json:"nombre"`
	Confidence string `json:"confianza"`
}

// StripSubmissionSidecar removes every |||URL_SEDE:{...}||| token from
// content, including an unterminated trailing one, and trims trailing
// whitespace. The first well-formed payload becomes the proposal.
func StripSubmissionSidecar(content string) (string, *SubmissionURLProposal) {
	var proposal *SubmissionURLProposal
	for {
		start := strings.Index(content, sidecarOpen)
		if start < 0 {
			break
		}
		bodyStart := start + len(sidecarOpen)
		end := strings.Index(content[bodyStart:], sidecarClose)

		var payload, rest string
		if end < 0 {
			payload = content[bodyStart:]
		} else {
			payload = content[bodyStart : bodyStart+end]
			rest = content[bodyStart+end+len(sidecarClose):]
		}
		if proposal == nil {
			proposal = parseSidecar(payload)
		}
		content = content[:start] + rest
	}
	return strings.TrimRightFunc(content, unicode.IsSpace), proposal
}

func parseSidecar(payload string) *SubmissionURLProposal {
	p, ok := jsonscan.TryParseObject[sidecarPayload](payload)
	if !ok {
		return nil
	}
	raw := strings.TrimSpace(p.URL)
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil
	}
	return &SubmissionURLProposal{
		URL:        raw,
		Name:       strings.TrimSpace(p.Name),
		Confidence: strings.ToLower(strings.TrimSpace(p.Confidence)),
	}
}

func confidenceRank(c string) int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	default:
		return 0
	}
}

// BestProposal picks the highest-confidence proposal among done results.
// Ties go to the earlier result.
func BestProposal(results []AgentResult) *SubmissionURLProposal {
	var best *SubmissionURLProposal
	for _, r := range results {
		p := r.SubmissionURL
		if r.Status != StatusDone || p == nil {
			continue
		}
		if best == nil || confidenceRank(p.Confidence) > confidenceRank(best.Confidence) {
			best = p
		}
	}
	if best == nil {
		return nil
	}
	cp := *best
	return &cp
}
