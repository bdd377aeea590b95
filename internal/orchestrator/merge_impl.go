package orchestrator

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/dusk-indust/appealdraft/internal/agent"
)

var (
	paragraphSplitRe = regexp.MustCompile(`\n[ \t]*\n`)

	// petitionRe marks the start of the closing petition section.
	petitionRe = regexp.MustCompile(`(?im)^[ \t#*_>\d.\-]*(?:SOLICITA|SUPLICA|SOLICITO|SUPLICO|PETICI[OÓ]N|petition|prayer)\b`)

	// closingRe marks the sign-off.
	closingRe = regexp.MustCompile(`(?im)^[ \t*_]*(?:Atentamente|Fdo\.|Firmado|Sincerely|En\s+\p{Lu}[\p{L} ]{0,40},\s+a\s+[\d\[])`)
)

const mergeSeparator = "---"

// Merger combines drafts using the configured strategy.
type Merger struct {
	strategy MergeStrategy
	master   *MasterMerger
	logger   *zap.Logger
}

// NewMerger creates a Merger. master may be nil, in which case the master
// strategy degrades to the heuristic merge.
func NewMerger(strategy MergeStrategy, master *MasterMerger, logger *zap.Logger) *Merger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !strategy.Valid() {
		strategy = MergeHeuristic
	}
	return &Merger{strategy: strategy, master: master, logger: logger}
}

// Strategy returns the configured strategy.
func (m *Merger) Strategy() MergeStrategy { return m.strategy }

// Merge always returns a document. masters is the ordered list of agents the
// master strategy may call.
func (m *Merger) Merge(ctx context.Context, requestID string, drafts []Draft, masters []agent.Bound) MergedDocument {
	if m.strategy == MergeMaster && m.master != nil {
		return m.master.Merge(ctx, requestID, drafts, masters)
	}
	return HeuristicMerge(drafts)
}

// HeuristicMerge combines drafts without a model call. The longest
// qualifying draft is the base. Paragraphs from the other drafts that are
// substantial and not likely duplicates of a base or already accepted
// paragraph are spliced in before the petition section.
func HeuristicMerge(drafts []Draft) MergedDocument {
	q := qualifying(drafts)
	switch len(q) {
	case 0:
		return MergedDocument{Content: NoDraftMessage, Strategy: MergeNone, Sources: []string{}}
	case 1:
		return MergedDocument{Content: q[0].Content, Strategy: MergeSingle, Sources: []string{q[0].AgentID}, Valid: true}
	}

	baseIdx := 0
	for i, d := range q {
		if utf8.RuneCountInString(d.Content) > utf8.RuneCountInString(q[baseIdx].Content) {
			baseIdx = i
		}
	}
	base := q[baseIdx]
	known := splitParagraphs(base.Content)
	sources := []string{base.AgentID}

	var unique []string
	for i, d := range q {
		if i == baseIdx {
			continue
		}
		contributed := false
		for _, p := range splitParagraphs(d.Content) {
			if !isSubstantial(p) || likelyKnown(p, known) {
				continue
			}
			unique = append(unique, p)
			known = append(known, p)
			contributed = true
		}
		if contributed {
			sources = append(sources, d.AgentID)
		}
	}

	content := base.Content
	if len(unique) > 0 {
		content = spliceParagraphs(base.Content, unique)
	}
	return MergedDocument{Content: content, Strategy: MergeHeuristic, Sources: sources, Valid: true}
}

func splitParagraphs(s string) []string {
	var out []string
	for _, p := range paragraphSplitRe.Split(strings.ReplaceAll(s, "\r\n", "\n"), -1) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func likelyKnown(p string, known []string) bool {
	for _, k := range known {
		if ParagraphsLikelyDuplicate(p, k) {
			return true
		}
	}
	return false
}

// spliceParagraphs inserts paragraphs before the petition section, else
// before the closing behind a separator, else at the end behind a separator.
func spliceParagraphs(base string, paragraphs []string) string {
	block := strings.Join(paragraphs, "\n\n")

	if loc := petitionRe.FindStringIndex(base); loc != nil {
		head := strings.TrimRight(base[:loc[0]], " \t\n")
		if head == "" {
			return block + "\n\n" + base[loc[0]:]
		}
		return head + "\n\n" + block + "\n\n" + base[loc[0]:]
	}

	sep := "\n\n" + mergeSeparator + "\n\n"
	if loc := closingRe.FindStringIndex(base); loc != nil && loc[0] > 0 {
		head := strings.TrimRight(base[:loc[0]], " \t\n")
		return head + sep + block + "\n\n" + base[loc[0]:]
	}
	return strings.TrimRight(base, " \t\n") + sep + block
}
