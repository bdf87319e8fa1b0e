package categorize

import (
	"strings"
)

type rule struct {
	category string
	phrases  []string // normalized, space padded
	keywords []string // as written in the corpus
}

// Rules picks the category with the most keyword hits. Ties go to the
// category declared first.
type Rules struct {
	rules    []rule
	fallback string
}

// NewRules builds a keyword categorizer.
func NewRules(corpus *Corpus) *Rules {
	r := &Rules{fallback: corpus.Fallback}
	for _, cat := range corpus.Categories {
		rl := rule{category: cat.Name}
		for _, kw := range cat.Keywords {
			tokens := tokenize(kw)
			if len(tokens) == 0 {
				continue
			}
			rl.phrases = append(rl.phrases, " "+strings.Join(tokens, " ")+" ")
			rl.keywords = append(rl.keywords, kw)
		}
		r.rules = append(r.rules, rl)
	}
	return r
}

func (r *Rules) Method() string { return MethodRules }

func (r *Rules) Categorize(text string) Result {
	normalized := " " + strings.Join(tokenize(text), " ") + " "

	best, bestHits, total := -1, 0, 0
	var matched []string
	for i, rl := range r.rules {
		hits := 0
		var found []string
		for j, phrase := range rl.phrases {
			if n := strings.Count(normalized, phrase); n > 0 {
				hits += n
				found = append(found, rl.keywords[j])
			}
		}
		total += hits
		if hits > bestHits {
			best, bestHits, matched = i, hits, found
		}
	}

	if best < 0 {
		return Result{Category: r.fallback, Method: MethodRules}
	}
	return Result{
		Category:   r.rules[best].category,
		Confidence: round2(float64(bestHits) / float64(total)),
		Method:     MethodRules,
		Matched:    matched,
	}
}
