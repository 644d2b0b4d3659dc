package ingest

import (
	"strings"
	"testing"

	"github.com/cognicore/remedymatch/pkg/remedymatch/stoplist"
)

func TestTokenizerBasic(t *testing.T) {
	tokenizer := NewTokenizer([]string{"the", "a", "and", "of"})

	tokens := tokenizer.Tokenize("The relief of joint pain and swelling")

	want := []string{"relief", "joint", "pain", "swelling"}
	if !equalTokens(tokens, want) {
		t.Errorf("Tokenize = %v, want %v", tokens, want)
	}
}

func TestTokenizerSplitsOnNonAlphanumeric(t *testing.T) {
	tokenizer := NewTokenizer(nil)

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"hyphen", "Anti-inflammatory", []string{"anti", "inflammatory"}},
		{"parentheses", "Pain Reliever (NSAID)", []string{"pain", "reliever", "nsaid"}},
		{"slash and comma", "omega-3/fish oil, EPA", []string{"omega", "fish", "oil", "epa"}},
		{"punctuation run", "hello!!! ...world???", []string{"hello", "world"}},
		{"digits kept", "vitamin b12 400", []string{"vitamin", "b12", "400"}},
		{"tabs and newlines", "ginger\t\nroot", []string{"ginger", "root"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tokenizer.Tokenize(tt.text)
			if !equalTokens(got, tt.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestTokenizerCaseNormalization(t *testing.T) {
	tokenizer := NewTokenizer(nil)

	for _, tok := range tokenizer.Tokenize("ST JOHN'S WORT Valerian") {
		if tok != strings.ToLower(tok) {
			t.Errorf("Token %s should be lowercased", tok)
		}
	}
}

func TestTokenizerEmptyInput(t *testing.T) {
	tokenizer := DefaultTokenizer()

	tokens := tokenizer.Tokenize("")
	if tokens == nil {
		t.Error("Empty input should produce an empty, non-nil slice")
	}
	if len(tokens) != 0 {
		t.Error("Empty input should produce empty output")
	}
}

func TestTokenizerWhitespaceAndPunctuationOnly(t *testing.T) {
	tokenizer := NewTokenizer(nil)

	for _, text := range []string{"   \t\n\r   ", "--- ... !!!", "()"} {
		if tokens := tokenizer.Tokenize(text); len(tokens) != 0 {
			t.Errorf("Tokenize(%q) = %v, want no tokens", text, tokens)
		}
	}
}

func TestTokenizerSingleCharacterFiltering(t *testing.T) {
	tokenizer := NewTokenizer(nil)

	tokens := tokenizer.Tokenize("vitamin c e k zinc")

	want := []string{"vitamin", "zinc"}
	if !equalTokens(tokens, want) {
		t.Errorf("Tokenize = %v, want %v", tokens, want)
	}
}

func TestTokenizerNonASCIILettersSeparate(t *testing.T) {
	tokenizer := NewTokenizer(nil)

	// é is outside [a-z0-9] and splits the word.
	tokens := tokenizer.Tokenize("café tisane")

	want := []string{"caf", "tisane"}
	if !equalTokens(tokens, want) {
		t.Errorf("Tokenize = %v, want %v", tokens, want)
	}
}

func TestTokenizerKeepsDuplicates(t *testing.T) {
	tokenizer := NewTokenizer(nil)

	tokens := tokenizer.Tokenize("pain relief, pain")

	want := []string{"pain", "relief", "pain"}
	if !equalTokens(tokens, want) {
		t.Errorf("Tokenize = %v, want %v", tokens, want)
	}
}

func TestDefaultTokenizerDropsDrugLabelNoise(t *testing.T) {
	tokenizer := DefaultTokenizer()

	text := "Metformin Hydrochloride 500 mg Extended-Release Tablets, twice daily"
	tokens := tokenizer.Tokenize(text)

	want := []string{"metformin", "500"}
	if !equalTokens(tokens, want) {
		t.Errorf("Tokenize(%q) = %v, want %v", text, tokens, want)
	}
}

func TestTokenizerStopwordCaseInsensitive(t *testing.T) {
	tokenizer := NewTokenizer([]string{"THE", "MG"})

	tokens := tokenizer.Tokenize("The 200 mg dose")

	want := []string{"200", "dose"}
	if !equalTokens(tokens, want) {
		t.Errorf("Tokenize = %v, want %v", tokens, want)
	}
}

func TestTokenizerFromStoplistSnapshot(t *testing.T) {
	mgr := stoplist.NewManager([]string{"herbal"})
	tokenizer := NewTokenizerFromStoplist(mgr)

	mgr.Remove("herbal")

	if !tokenizer.IsStopword("herbal") {
		t.Error("tokenizer should keep the stopwords it was built with")
	}
	if tokens := tokenizer.Tokenize("herbal tea"); !equalTokens(tokens, []string{"tea"}) {
		t.Errorf("Tokenize = %v, want [tea]", tokens)
	}
}

func TestTokenizerNilStoplist(t *testing.T) {
	tokenizer := NewTokenizerFromStoplist(nil)

	if tokens := tokenizer.Tokenize("the tea"); !equalTokens(tokens, []string{"the", "tea"}) {
		t.Errorf("Tokenize = %v, want [the tea]", tokens)
	}
}

func TestTokenizerNoStemming(t *testing.T) {
	tokenizer := DefaultTokenizer()

	a := tokenizer.TokenSet("Inflammation reduction")
	b := tokenizer.TokenSet("Anti-inflammatory")

	if shared := a.Intersect(b); len(shared) != 0 {
		t.Errorf("inflammation and anti-inflammatory should share no token, got %v", shared)
	}
}

func TestTokenSetUnionOfPhrases(t *testing.T) {
	tokenizer := DefaultTokenizer()

	set := tokenizer.TokenSet("Pain relief", "Inflammation reduction", "pain")

	want := []string{"inflammation", "pain", "reduction", "relief"}
	if got := set.Sorted(); !equalTokens(got, want) {
		t.Errorf("TokenSet = %v, want %v", got, want)
	}
}

func TestTokenSetDeterministic(t *testing.T) {
	tokenizer := DefaultTokenizer()
	phrases := []string{"Curcumin", "Piperine (black pepper extract)", "Ginger root"}

	first := tokenizer.TokenSet(phrases...)
	for i := 0; i < 20; i++ {
		if again := tokenizer.TokenSet(phrases...); !again.Equal(first) {
			t.Fatalf("run %d produced %v, want %v", i, again.Sorted(), first.Sorted())
		}
	}
}

func TestTokenSetNoPhrases(t *testing.T) {
	tokenizer := DefaultTokenizer()

	if set := tokenizer.TokenSet(); set.Len() != 0 {
		t.Errorf("TokenSet() should be empty, got %v", set.Sorted())
	}
	if set := tokenizer.TokenSet("", "  "); set.Len() != 0 {
		t.Errorf("TokenSet of blanks should be empty, got %v", set.Sorted())
	}
}

func TestTokenizerVeryLongWord(t *testing.T) {
	tokenizer := NewTokenizer(nil)

	longWord := strings.Repeat("ashwagandha", 20)
	tokens := tokenizer.Tokenize("normal " + longWord + " text")

	if len(tokens) != 3 {
		t.Errorf("Expected 3 tokens, got %d", len(tokens))
	}
}

// Helper function for comparing token lists
func equalTokens(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
