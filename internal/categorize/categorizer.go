package categorize

import (
	"fmt"
	"math"
	"strings"
)

// Categorizer methods.
const (
	MethodRules = "rules"
	MethodBayes = "bayes"
)

// TagPrefix starts every tag a categorization adds to a ticket.
const TagPrefix = "category_"

// Result is the category chosen for one text.
type Result struct {
	Category   string   `json:"category"`
	Confidence float64  `json:"confidence"`
	Method     string   `json:"method"`
	Matched    []string `json:"matched_keywords,omitempty"`
}

// Tag returns the ticket tag for the category.
func (r Result) Tag() string {
	return TagPrefix + r.Category
}

// Categorizer assigns a category to ticket text. Implementations are
// deterministic and safe for concurrent use.
type Categorizer interface {
	Categorize(text string) Result
	Method() string
}

// New builds the categorizer for method from corpus. A nil corpus means the
// built-in one.
func New(method string, corpus *Corpus) (Categorizer, error) {
	if corpus == nil {
		corpus = DefaultCorpus()
	}
	switch strings.ToLower(strings.TrimSpace(method)) {
	case MethodRules:
		return NewRules(corpus), nil
	case MethodBayes, "":
		return NewBayes(corpus), nil
	default:
		return nil, fmt.Errorf("unknown categorizer %q: must be %s or %s", method, MethodRules, MethodBayes)
	}
}

// TicketText joins the fields of a ticket record used for categorization.
func TicketText(ticket map[string]interface{}) string {
	var parts []string
	for _, field := range []string{"subject", "description"} {
		if s, ok := ticket[field].(string); ok && s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
