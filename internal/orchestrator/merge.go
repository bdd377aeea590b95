package orchestrator

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MergeStrategy defines how drafts are combined into one document.
type MergeStrategy string

const (
	// MergeHeuristic splices unique paragraphs into the longest draft.
	MergeHeuristic MergeStrategy = "heuristic"

	// MergeMaster asks a designated agent to fuse the drafts.
	MergeMaster MergeStrategy = "master"

	// MergeSingle returns the only qualifying draft verbatim.
	MergeSingle MergeStrategy = "single"

	// MergeNone means no draft qualified.
	MergeNone MergeStrategy = "none"
)

// Valid reports whether s can be configured.
func (s MergeStrategy) Valid() bool {
	return s == MergeHeuristic || s == MergeMaster
}

// Merge tuning.
const (
	// NoiseThreshold is the length in characters a draft or paragraph must
	// exceed to count as content.
	NoiseThreshold = 100

	// DuplicatePrefixWords is how many leading words are compared.
	DuplicatePrefixWords = 10

	// DuplicateOverlapThreshold is the shared-word count a pair must exceed
	// to be treated as duplicates.
	DuplicateOverlapThreshold = 6
)

// NoDraftMessage is the document content when no draft qualifies.
const NoDraftMessage = "No se ha podido generar el recurso: ningún agente ha devuelto un borrador válido. " +
	"Revise la configuración de los agentes y vuelva a intentarlo."

// Draft is one merge input.
type Draft struct {
	AgentID    string
	AgentLabel string
	Content    string
}

// MergedDocument is the final appeal text and how it was produced.
type MergedDocument struct {
	Content       string        `json:"content"`
	Strategy      MergeStrategy `json:"strategy"`
	MasterAgentID string        `json:"masterAgentId,omitempty"`
	Sources       []string      `json:"sources"`
	Valid         bool          `json:"valid"`
}

// CoherenceIssue is an inconsistency found after merging.
type CoherenceIssue struct {
	AgentID     string // draft the issue was found in
	Reference   string // offending citation
	Description string
}

// isSubstantial reports whether s exceeds the noise threshold.
func isSubstantial(s string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(s)) > NoiseThreshold
}

// qualifying keeps drafts above the noise threshold, in input order.
func qualifying(drafts []Draft) []Draft {
	var out []Draft
	for _, d := range drafts {
		if isSubstantial(d.Content) {
			out = append(out, d)
		}
	}
	return out
}

// ParagraphsLikelyDuplicate compares the first DuplicatePrefixWords words of
// a and b, lower-cased and stripped of punctuation. They are duplicates when
// more than DuplicateOverlapThreshold of a's prefix words also appear in b's
// prefix.
func ParagraphsLikelyDuplicate(a, b string) bool {
	pa, pb := prefixWords(a), prefixWords(b)
	if len(pa) == 0 || len(pb) == 0 {
		return false
	}
	inB := make(map[string]bool, len(pb))
	for _, w := range pb {
		inB[w] = true
	}
	overlap := 0
	for _, w := range pa {
		if inB[w] {
			overlap++
		}
	}
	return overlap > DuplicateOverlapThreshold
}

func prefixWords(s string) []string {
	var words []string
	for _, f := range strings.Fields(strings.ToLower(s)) {
		w := strings.TrimFunc(f, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsNumber(r) })
		if w == "" {
			continue
		}
		words = append(words, w)
		if len(words) == DuplicatePrefixWords {
			break
		}
	}
	return words
}
