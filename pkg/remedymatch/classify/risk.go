package classify

import "strings"

// DefaultRiskKeywords lists drug classes for which suggesting a direct
// herbal alternative is unsafe.
func DefaultRiskKeywords() []string {
	return []string{
		"anticoagulant",
		"antiplatelet",
		"blood thinner",
		"chemotherapy",
		"antiretroviral",
		"immunosuppress",
		"transplant",
	}
}

// RiskPolicy forces Supportive for drugs whose name or category contains a
// high-risk keyword. It is immutable and safe for concurrent use.
type RiskPolicy struct {
	keywords []string
}

// NewRiskPolicy builds a policy from keywords. Keywords are lowercased and
// blanks are dropped. A nil or empty list yields a policy that never fires.
func NewRiskPolicy(keywords []string) *RiskPolicy {
	kw := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			kw = append(kw, k)
		}
	}
	return &RiskPolicy{keywords: kw}
}

// DefaultRiskPolicy uses DefaultRiskKeywords.
func DefaultRiskPolicy() *RiskPolicy {
	return NewRiskPolicy(DefaultRiskKeywords())
}

// Keywords returns a copy of the policy keywords.
func (p *RiskPolicy) Keywords() []string {
	out := make([]string, len(p.keywords))
	copy(out, p.keywords)
	return out
}

// Match returns the first keyword found as a substring of
// lower(name + " " + category).
func (p *RiskPolicy) Match(name, category string) (string, bool) {
	if p == nil {
		return "", false
	}
	haystack := strings.ToLower(name + " " + category)
	for _, k := range p.keywords {
		if strings.Contains(haystack, k) {
			return k, true
		}
	}
	return "", false
}

// Apply returns Supportive when the drug is high-risk, otherwise label.
func (p *RiskPolicy) Apply(name, category string, label ReplacementType) ReplacementType {
	if _, risky := p.Match(name, category); risky {
		return Supportive
	}
	return label
}
