package knowledge

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const minTokenLen = 3

// Stopwords are stored already folded (no accents).
var stopwords = toSet(
	// es
	"que", "los", "las", "del", "por", "para", "con", "una", "uno", "unos", "unas",
	"como", "mas", "pero", "sus", "les", "esta", "este", "esto", "estos", "estas",
	"ese", "esa", "eso", "esos", "esas", "son", "ser", "hay", "muy", "sin", "sobre",
	"entre", "cuando", "donde", "quien", "cual", "cuales", "tambien", "hasta",
	"desde", "todo", "todos", "toda", "todas", "otro", "otra", "otros", "otras",
	"puede", "pueden", "tiene", "tienen", "hace", "hacer", "hazme", "dame", "explica",
	"explicame", "segun", "porque", "tema", "temas", "sea", "han", "fue", "era",
	// en
	"the", "and", "for", "with", "that", "this", "from", "what", "which", "are",
	"was", "were", "has", "have", "how", "why", "about", "into", "your", "you",
)

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// fold lower-cases s and strips combining marks so "Balance", "balancé" and
// "BALANCE" compare equal. A fresh transformer is built per call since
// transform chains carry state.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}

// Tokenize splits text into folded keyword tokens, dropping short tokens and
// stopwords.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(fold(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if utf8.RuneCountInString(f) < minTokenLen {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// Terms returns the unique tokens of a query in first-seen order.
func Terms(query string) []string {
	seen := make(map[string]struct{})
	var terms []string
	for _, tok := range Tokenize(query) {
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		terms = append(terms, tok)
	}
	return terms
}
