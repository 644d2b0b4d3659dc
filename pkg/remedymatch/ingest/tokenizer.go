package ingest

import (
	"strings"

	"github.com/cognicore/remedymatch/pkg/remedymatch/stoplist"
)

// minTokenLen is the shortest token kept after splitting.
const minTokenLen = 2

// Tokenizer handles text tokenization and normalization.
// A Tokenizer is read-only after construction and safe for concurrent use.
type Tokenizer struct {
	stopwords map[string]struct{}
}

// NewTokenizer creates a new tokenizer with the given stopword list
func NewTokenizer(stopwords []string) *Tokenizer {
	stops := make(map[string]struct{}, len(stopwords))
	for _, w := range stopwords {
		stops[strings.ToLower(w)] = struct{}{}
	}
	return &Tokenizer{stopwords: stops}
}

// NewTokenizerFromStoplist snapshots the manager's current stopwords.
// Later changes to m do not affect the returned tokenizer.
func NewTokenizerFromStoplist(m *stoplist.Manager) *Tokenizer {
	if m == nil {
		return NewTokenizer(nil)
	}
	return NewTokenizer(m.All())
}

// DefaultTokenizer returns a tokenizer using stoplist.Default().
func DefaultTokenizer() *Tokenizer {
	return NewTokenizerFromStoplist(stoplist.Default())
}

// Tokenize splits text into normalized tokens, removing stopwords.
//
// Text is lowercased and every run of characters outside [a-z0-9] acts as a
// single separator, so "Anti-inflammatory" yields "anti" and "inflammatory".
// Tokens shorter than two bytes are dropped. Order and duplicates are kept.
func (t *Tokenizer) Tokenize(text string) []string {
	tokens := []string{}
	if text == "" {
		return tokens
	}

	lower := strings.ToLower(text)
	start := -1
	for i := 0; i < len(lower); i++ {
		if isTokenByte(lower[i]) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			if word := t.processToken(lower[start:i]); word != "" {
				tokens = append(tokens, word)
			}
			start = -1
		}
	}

	// Don't forget the last token
	if start >= 0 {
		if word := t.processToken(lower[start:]); word != "" {
			tokens = append(tokens, word)
		}
	}

	return tokens
}

// TokenSet tokenizes every phrase and returns the union of their tokens.
func (t *Tokenizer) TokenSet(phrases ...string) TokenSet {
	set := make(TokenSet)
	for _, p := range phrases {
		for _, tok := range t.Tokenize(p) {
			set[tok] = struct{}{}
		}
	}
	return set
}

// IsStopword reports whether word is filtered by this tokenizer.
func (t *Tokenizer) IsStopword(word string) bool {
	_, ok := t.stopwords[word]
	return ok
}

// processToken applies the length and stopword filters.
func (t *Tokenizer) processToken(word string) string {
	if len(word) < minTokenLen {
		return ""
	}
	if t.IsStopword(word) {
		return ""
	}
	return word
}

// isTokenByte matches [a-z0-9]. Multi-byte UTF-8 sequences never match,
// so non-ASCII letters behave as separators.
func isTokenByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}
