package ingest

// Pipeline turns the text fields of a drug or remedy into token sets:
// fields → tokenization per phrase → one set per field
type Pipeline struct {
	tokenizer *Tokenizer
}

// NewPipeline creates a profile pipeline around tokenizer.
// A nil tokenizer falls back to DefaultTokenizer().
func NewPipeline(tokenizer *Tokenizer) *Pipeline {
	if tokenizer == nil {
		tokenizer = DefaultTokenizer()
	}
	return &Pipeline{tokenizer: tokenizer}
}

// Tokenizer returns the tokenizer used by the pipeline.
func (p *Pipeline) Tokenizer() *Tokenizer {
	return p.tokenizer
}

// Fields are the textual attributes compared during matching.
type Fields struct {
	Name        string
	Category    string
	Ingredients []string
	Benefits    []string
}

// Profile holds the token sets built from one entity's Fields.
type Profile struct {
	Name        TokenSet
	Category    TokenSet
	Ingredients TokenSet
	Benefits    TokenSet
}

// Profile builds the four per-field token sets.
func (p *Pipeline) Profile(f Fields) Profile {
	return Profile{
		Name:        p.tokenizer.TokenSet(f.Name),
		Category:    p.tokenizer.TokenSet(f.Category),
		Ingredients: p.tokenizer.TokenSet(f.Ingredients...),
		Benefits:    p.tokenizer.TokenSet(f.Benefits...),
	}
}

// BenefitsPlus is benefits ∪ name.
func (pr Profile) BenefitsPlus() TokenSet {
	return pr.Benefits.Union(pr.Name)
}

// CategoryPlus is benefits ∪ name ∪ category. Only candidates use it.
func (pr Profile) CategoryPlus() TokenSet {
	return pr.Benefits.Union(pr.Name, pr.Category)
}
