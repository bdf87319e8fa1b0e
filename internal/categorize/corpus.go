package categorize

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

//go:embed categories.yaml
var defaultCorpus []byte

// Category is one ticket category with its keywords and training examples.
type Category struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Examples []string `yaml:"examples"`
}

// Corpus is the category definition shared by all categorizers.
type Corpus struct {
	Fallback   string     `yaml:"fallback"`
	Categories []Category `yaml:"categories"`
}

// LoadCorpus parses a YAML corpus.
func LoadCorpus(data []byte) (*Corpus, error) {
	var c Corpus
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("failed to parse category corpus: %w", err)
	}
	if len(c.Categories) == 0 {
		return nil, fmt.Errorf("category corpus declares no categories")
	}

	seen := make(map[string]bool, len(c.Categories))
	for _, cat := range c.Categories {
		if cat.Name == "" {
			return nil, fmt.Errorf("category without a name")
		}
		if seen[cat.Name] {
			return nil, fmt.Errorf("category %q declared twice", cat.Name)
		}
		seen[cat.Name] = true
		if len(cat.Keywords) == 0 && len(cat.Examples) == 0 {
			return nil, fmt.Errorf("category %q has neither keywords nor examples", cat.Name)
		}
	}
	if c.Fallback == "" {
		c.Fallback = "general"
	}
	return &c, nil
}

// LoadCorpusFile reads and parses a corpus from disk.
func LoadCorpusFile(path string) (*Corpus, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied config path
	if err != nil {
		return nil, fmt.Errorf("failed to read category corpus: %w", err)
	}
	return LoadCorpus(data)
}

var (
	defaultCorpusOnce sync.Once
	defaultCorpusVal  *Corpus
)

// DefaultCorpus returns the built-in corpus.
func DefaultCorpus() *Corpus {
	defaultCorpusOnce.Do(func() {
		c, err := LoadCorpus(defaultCorpus)
		if err != nil {
			panic(fmt.Sprintf("embedded category corpus is invalid: %v", err))
		}
		defaultCorpusVal = c
	})
	return defaultCorpusVal
}

// Names lists the category names in corpus order.
func (c *Corpus) Names() []string {
	names := make([]string, len(c.Categories))
	for i, cat := range c.Categories {
		names[i] = cat.Name
	}
	return names
}

// tokenize case-folds text and splits it into letter/digit runs. Casers are
// stateful, so each call gets its own.
func tokenize(text string) []string {
	return strings.FieldsFunc(cases.Fold().String(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
