package knowledge

import (
	"sort"
	"strings"
	"unicode/utf8"

	"solvencia-backend/internal/models"
)

const (
	DefaultBudget        = 30000
	DefaultMinContentLen = 5
	DefaultMinSectionLen = 200

	nameWeight       = 3
	sectionSeparator = "\n\n---\n\n"
	truncationMarker = "…"
)

type ScoredDocument struct {
	Document models.Document `json:"document"`
	Score    int             `json:"score"`
}

type Selection struct {
	Documents []ScoredDocument `json:"documents"`
	Context   string           `json:"context"`
	Truncated bool             `json:"truncated"`
	Matched   bool             `json:"matched"`
}

// Selector picks the documents injected into the system instruction and keeps
// the assembled context within Budget runes.
type Selector struct {
	Budget        int
	MinContentLen int
	MinSectionLen int
}

func NewSelector(budget int) *Selector {
	if budget <= 0 {
		budget = DefaultBudget
	}
	return &Selector{
		Budget:        budget,
		MinContentLen: DefaultMinContentLen,
		MinSectionLen: DefaultMinSectionLen,
	}
}

// Score counts how often the query terms appear in the document. Hits in the
// document name weigh more than hits in the body.
func Score(terms []string, doc models.Document) int {
	if len(terms) == 0 {
		return 0
	}

	body := frequencies(Tokenize(doc.Content))
	name := frequencies(Tokenize(doc.Name))

	score := 0
	for _, term := range terms {
		score += body[term]
		score += name[term] * nameWeight
	}
	return score
}

func frequencies(tokens []string) map[string]int {
	freq := make(map[string]int, len(tokens))
	for _, t := range tokens {
		freq[t]++
	}
	return freq
}

// Rank scores the eligible documents and orders them by score, keeping corpus
// order between equal scores.
func (s *Selector) Rank(query string, docs []models.Document) []ScoredDocument {
	terms := Terms(query)

	ranked := make([]ScoredDocument, 0, len(docs))
	for _, d := range docs {
		if utf8.RuneCountInString(d.Content) <= s.MinContentLen {
			continue
		}
		ranked = append(ranked, ScoredDocument{Document: d, Score: Score(terms, d)})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// Select ranks docs against query and assembles the context block. When no
// document matches, the whole eligible corpus is used in corpus order.
func (s *Selector) Select(query string, docs []models.Document) Selection {
	ranked := s.Rank(query, docs)

	var candidates []ScoredDocument
	for _, sd := range ranked {
		if sd.Score > 0 {
			candidates = append(candidates, sd)
		}
	}

	sel := Selection{Matched: len(candidates) > 0}
	if !sel.Matched {
		// Rank is stable, so with all-zero scores this is corpus order.
		candidates = ranked
	}

	var b strings.Builder
	remaining := s.Budget

	for _, sd := range candidates {
		section := formatSection(sd.Document)
		sep := ""
		if b.Len() > 0 {
			sep = sectionSeparator
		}

		need := utf8.RuneCountInString(sep) + utf8.RuneCountInString(section)
		if need <= remaining {
			b.WriteString(sep)
			b.WriteString(section)
			remaining -= need
			sel.Documents = append(sel.Documents, sd)
			continue
		}

		sel.Truncated = true
		avail := remaining - utf8.RuneCountInString(sep) - utf8.RuneCountInString(truncationMarker)
		if avail < s.MinSectionLen {
			break
		}

		b.WriteString(sep)
		b.WriteString(truncateRunes(section, avail))
		b.WriteString(truncationMarker)
		sel.Documents = append(sel.Documents, sd)
		break
	}

	sel.Context = b.String()
	return sel
}

func formatSection(d models.Document) string {
	return "CONTENIDO DEL " + d.Name + ":\n" + d.Content
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
