package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/remedymatch/pkg/remedymatch/internalerr"
	"github.com/cognicore/remedymatch/pkg/remedymatch/store"
)

// StringList is a list field that also accepts a single delimited string.
//
//	ingredients: [Curcumin, Piperine]
//	ingredients: "Curcumin, Piperine"
//
// Both decode to the same trimmed list.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *StringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*l = StringList(store.SplitList(value.Value))
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := value.Decode(&items); err != nil {
			return err
		}
		*l = StringList(store.NormalizeList(items))
		return nil
	default:
		return fmt.Errorf("line %d: expected a list or a delimited string", value.Line)
	}
}

// Strings returns the list as a plain, never nil, slice.
func (l StringList) Strings() []string {
	out := make([]string, len(l))
	copy(out, l)
	return out
}

// Seed is the drug and remedy catalog read from YAML.
type Seed struct {
	Drugs    []DrugEntry   `yaml:"drugs"`
	Remedies []RemedyEntry `yaml:"remedies"`
}

// DrugEntry is one drug in a seed file.
type DrugEntry struct {
	ID          string     `yaml:"id"`
	Name        string     `yaml:"name"`
	Category    string     `yaml:"category"`
	Ingredients StringList `yaml:"ingredients"`
	Benefits    StringList `yaml:"benefits"`
}

// RemedyEntry is one remedy in a seed file.
type RemedyEntry struct {
	ID          string     `yaml:"id"`
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	ImageURL    string     `yaml:"image_url"`
	Category    string     `yaml:"category"`
	Ingredients StringList `yaml:"ingredients"`
	Benefits    StringList `yaml:"benefits"`
	Evidence    string     `yaml:"evidence"` // strong, moderate, limited, none
}

// Drug converts the entry to a store.Drug.
func (e DrugEntry) Drug() store.Drug {
	return store.Drug{
		ID:          e.ID,
		Name:        e.Name,
		Category:    e.Category,
		Ingredients: e.Ingredients.Strings(),
		Benefits:    e.Benefits.Strings(),
	}
}

// Remedy converts the entry to a store.Remedy.
func (e RemedyEntry) Remedy() store.Remedy {
	return store.Remedy{
		ID:          e.ID,
		Name:        e.Name,
		Description: e.Description,
		ImageURL:    e.ImageURL,
		Category:    e.Category,
		Ingredients: e.Ingredients.Strings(),
		Benefits:    e.Benefits.Strings(),
		Evidence:    store.ParseEvidenceLevel(e.Evidence),
	}
}

// LoadCatalog loads a seed catalog from a YAML file
func LoadCatalog(path string) (*Seed, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	if err := seed.Validate(); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return &seed, nil
}

// Validate requires every entry to have a unique ID and a name.
func (s *Seed) Validate() error {
	drugIDs := make(map[string]struct{}, len(s.Drugs))
	for i, d := range s.Drugs {
		if d.ID == "" || d.Name == "" {
			return fmt.Errorf("drugs[%d]: id and name are required: %w", i, internalerr.ErrInvalidConfig)
		}
		if _, dup := drugIDs[d.ID]; dup {
			return fmt.Errorf("drugs[%d]: duplicate id %q: %w", i, d.ID, internalerr.ErrInvalidConfig)
		}
		drugIDs[d.ID] = struct{}{}
	}

	remedyIDs := make(map[string]struct{}, len(s.Remedies))
	for i, r := range s.Remedies {
		if r.ID == "" || r.Name == "" {
			return fmt.Errorf("remedies[%d]: id and name are required: %w", i, internalerr.ErrInvalidConfig)
		}
		if _, dup := remedyIDs[r.ID]; dup {
			return fmt.Errorf("remedies[%d]: duplicate id %q: %w", i, r.ID, internalerr.ErrInvalidConfig)
		}
		remedyIDs[r.ID] = struct{}{}
	}
	return nil
}

// DrugRecords converts every drug entry, in file order.
func (s *Seed) DrugRecords() []store.Drug {
	out := make([]store.Drug, len(s.Drugs))
	for i, d := range s.Drugs {
		out[i] = d.Drug()
	}
	return out
}

// RemedyRecords converts every remedy entry, in file order.
func (s *Seed) RemedyRecords() []store.Remedy {
	out := make([]store.Remedy, len(s.Remedies))
	for i, r := range s.Remedies {
		out[i] = r.Remedy()
	}
	return out
}
