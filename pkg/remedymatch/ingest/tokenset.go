package ingest

import "sort"

// TokenSet is a set of normalized tokens.
type TokenSet map[string]struct{}

// NewTokenSet builds a set from already-normalized tokens.
func NewTokenSet(tokens ...string) TokenSet {
	s := make(TokenSet, len(tokens))
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		s[tok] = struct{}{}
	}
	return s
}

// Len returns the number of tokens in the set.
func (s TokenSet) Len() int { return len(s) }

// Has reports whether tok is in the set.
func (s TokenSet) Has(tok string) bool {
	_, ok := s[tok]
	return ok
}

// Union returns a new set holding every token of s and the others.
// None of the inputs are modified.
func (s TokenSet) Union(others ...TokenSet) TokenSet {
	size := len(s)
	for _, o := range others {
		size += len(o)
	}
	out := make(TokenSet, size)
	for tok := range s {
		out[tok] = struct{}{}
	}
	for _, o := range others {
		for tok := range o {
			out[tok] = struct{}{}
		}
	}
	return out
}

// Intersect returns the tokens present in both sets, sorted.
func (s TokenSet) Intersect(o TokenSet) []string {
	small, large := s, o
	if len(large) < len(small) {
		small, large = large, small
	}
	var shared []string
	for tok := range small {
		if _, ok := large[tok]; ok {
			shared = append(shared, tok)
		}
	}
	sort.Strings(shared)
	return shared
}

// Sorted returns the tokens in lexical order.
func (s TokenSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for tok := range s {
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}

// Equal reports whether both sets hold exactly the same tokens.
func (s TokenSet) Equal(o TokenSet) bool {
	if len(s) != len(o) {
		return false
	}
	for tok := range s {
		if _, ok := o[tok]; !ok {
			return false
		}
	}
	return true
}
