package categorize

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCorpus(t *testing.T) {
	c := DefaultCorpus()
	assert.Equal(t, "general", c.Fallback)
	assert.Equal(t, []string{"billing", "technical", "account", "shipping", "feature_request", "general"}, c.Names())
}

func TestLoadCorpus_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown field", "categories:\n  - name: a\n    keywords: [x]\n    weight: 2\n", "failed to parse"},
		{"empty", "fallback: general\n", "no categories"},
		{"duplicate", "categories:\n  - name: a\n    keywords: [x]\n  - name: a\n    keywords: [y]\n", "declared twice"},
		{"unnamed", "categories:\n  - keywords: [x]\n", "without a name"},
		{"no data", "categories:\n  - name: a\n", "neither keywords nor examples"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCorpus([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadCorpus_DefaultFallback(t *testing.T) {
	c, err := LoadCorpus([]byte("categories:\n  - name: a\n    keywords: [x]\n"))
	require.NoError(t, err)
	assert.Equal(t, "general", c.Fallback)
}

func TestLoadCorpusFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fallback: other\ncategories:\n  - name: a\n    keywords: [x]\n"), 0o600))

	c, err := LoadCorpusFile(path)
	require.NoError(t, err)
	assert.Equal(t, "other", c.Fallback)

	_, err = LoadCorpusFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	c, err := New("", nil)
	require.NoError(t, err)
	assert.Equal(t, MethodBayes, c.Method())

	c, err = New(" RULES ", nil)
	require.NoError(t, err)
	assert.Equal(t, MethodRules, c.Method())

	_, err = New("llm", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown categorizer")
}

func TestRules_Categorize(t *testing.T) {
	r := NewRules(DefaultCorpus())

	tests := []struct {
		name       string
		text       string
		category   string
		confidence float64
		matched    []string
	}{
		{
			name:       "billing keywords",
			text:       "I was charged twice and need a refund for the invoice",
			category:   "billing",
			confidence: 1,
			matched:    []string{"invoice", "refund", "charged"},
		},
		{
			name:       "phrase across punctuation",
			text:       "My Credit-Card was declined",
			category:   "billing",
			confidence: 1,
			matched:    []string{"credit card"},
		},
		{
			name:       "tie goes to first declared",
			text:       "password error",
			category:   "technical",
			confidence: 0.5,
			matched:    []string{"error"},
		},
		{
			name:     "whole words only",
			text:     "There were errors",
			category: "general",
		},
		{
			name:     "nothing matches",
			text:     "zzz qqq",
			category: "general",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Categorize(tt.text)
			assert.Equal(t, tt.category, got.Category)
			assert.Equal(t, tt.confidence, got.Confidence)
			assert.Equal(t, tt.matched, got.Matched)
			assert.Equal(t, MethodRules, got.Method)
		})
	}
}

func TestBayes_Categorize(t *testing.T) {
	b := NewBayes(DefaultCorpus())

	got := b.Categorize("My package has not arrived and the tracking shows nothing")
	assert.Equal(t, "shipping", got.Category)
	assert.Greater(t, got.Confidence, 0.5)
	assert.LessOrEqual(t, got.Confidence, 1.0)

	got = b.Categorize("Refund my invoice please")
	assert.Equal(t, "billing", got.Category)

	got = b.Categorize("xyzzy plugh")
	assert.Equal(t, Result{Category: "general", Method: MethodBayes}, got)

	assert.Equal(t, b.Categorize("The app crashes on login"), b.Categorize("The app crashes on login"))
}

func TestResult_Tag(t *testing.T) {
	assert.Equal(t, "category_billing", Result{Category: "billing"}.Tag())
}

func TestTicketText(t *testing.T) {
	assert.Equal(t, "Subject\nBody", TicketText(map[string]interface{}{"subject": "Subject", "description": "Body"}))
	assert.Equal(t, "Body", TicketText(map[string]interface{}{"subject": nil, "description": "Body"}))
	assert.Empty(t, TicketText(map[string]interface{}{}))
}

func TestCategorizers_ResultsAreKnownAndBounded(t *testing.T) {
	corpus := DefaultCorpus()
	known := make(map[string]bool)
	for _, n := range corpus.Names() {
		known[n] = true
	}

	var words []string
	for _, cat := range corpus.Categories {
		words = append(words, cat.Keywords...)
		words = append(words, "noise")
	}

	categorizers := []Categorizer{NewRules(corpus), NewBayes(corpus)}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	check := func(text string) bool {
		for _, c := range categorizers {
			r := c.Categorize(text)
			if !known[r.Category] || r.Confidence < 0 || r.Confidence > 1 {
				return false
			}
			if !reflect.DeepEqual(r, c.Categorize(text)) {
				return false
			}
		}
		return true
	}

	properties.Property("arbitrary text", prop.ForAll(check, gen.AnyString()))
	properties.Property("keyword soup", prop.ForAll(
		func(idx []int) bool {
			parts := make([]string, len(idx))
			for i, n := range idx {
				parts[i] = words[n]
			}
			return check(strings.Join(parts, " "))
		},
		gen.SliceOf(gen.IntRange(0, len(words)-1)),
	))

	properties.TestingRun(t)
}
