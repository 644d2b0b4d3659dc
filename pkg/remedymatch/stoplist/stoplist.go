package stoplist

import (
	"sort"
	"strings"
)

// Reason explains why a token is a stopword
type Reason string

const (
	ReasonEnglish     Reason = "english"     // generic English function words
	ReasonDosage      Reason = "dosage"      // dosage and unit tokens
	ReasonFrequency   Reason = "frequency"   // dosing-frequency words
	ReasonFormulation Reason = "formulation" // tablet, capsule, release...
	ReasonChemical    Reason = "chemical"    // salt and acid suffixes
	ReasonCustom      Reason = "custom"      // added from configuration
)

var defaultTerms = map[Reason][]string{
	ReasonEnglish: {
		"a", "an", "and", "the", "of", "for", "to", "in", "on", "with",
		"by", "or", "as", "at", "from", "is", "are", "be", "it", "its",
		"this", "that",
	},
	ReasonDosage:      {"mg", "mcg", "g", "kg", "ml", "iu"},
	ReasonFrequency:   {"daily", "day", "once", "twice", "times"},
	ReasonFormulation: {"tablet", "tablets", "capsule", "capsules", "extended", "release"},
	ReasonChemical:    {"hydrochloride", "sodium", "acid"},
}

// Manager holds the stopword set used by the tokenizer.
// It is not safe for concurrent mutation; build it fully before sharing.
type Manager struct {
	stops map[string]Reason
}

// NewManager creates a new stoplist manager with custom stopwords
func NewManager(initialStops []string) *Manager {
	m := &Manager{stops: make(map[string]Reason, len(initialStops))}
	for _, s := range initialStops {
		m.Add(s, ReasonCustom)
	}
	return m
}

// Default returns a fresh manager seeded with the built-in drug-label stopwords.
func Default() *Manager {
	m := &Manager{stops: make(map[string]Reason, 64)}
	for reason, terms := range defaultTerms {
		for _, t := range terms {
			m.Add(t, reason)
		}
	}
	return m
}

// IsStop checks if a token is a stopword
func (m *Manager) IsStop(token string) bool {
	_, ok := m.stops[token]
	return ok
}

// Reason reports why token is a stopword.
func (m *Manager) Reason(token string) (Reason, bool) {
	r, ok := m.stops[token]
	return r, ok
}

// Add adds a token to the stoplist with a reason.
// Tokens are lowercased; empty tokens are ignored.
func (m *Manager) Add(token string, reason Reason) {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		return
	}
	m.stops[token] = reason
}

// Remove removes a token from the stoplist
func (m *Manager) Remove(token string) {
	delete(m.stops, strings.ToLower(token))
}

// All returns all stopwords in sorted order
func (m *Manager) All() []string {
	result := make([]string, 0, len(m.stops))
	for s := range m.stops {
		result = append(result, s)
	}
	sort.Strings(result)
	return result
}

// Terms returns the stopwords registered under reason, sorted.
func (m *Manager) Terms(reason Reason) []string {
	var result []string
	for s, r := range m.stops {
		if r == reason {
			result = append(result, s)
		}
	}
	sort.Strings(result)
	return result
}

// Len returns the number of stopwords.
func (m *Manager) Len() int {
	return len(m.stops)
}
