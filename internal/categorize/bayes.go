package categorize

import (
	"math"
)

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "to": true,
	"of": true, "in": true, "on": true, "for": true, "is": true, "it": true,
	"my": true, "i": true, "me": true, "we": true, "our": true, "you": true,
	"your": true, "this": true, "that": true, "with": true, "be": true,
	"are": true, "was": true, "at": true, "from": true, "please": true,
	"can": true, "do": true, "not": true,
}

// Bayes is a multinomial naive Bayes classifier with Laplace smoothing,
// trained once from the corpus examples and keywords.
type Bayes struct {
	categories []string
	logPrior   []float64
	counts     []map[string]float64
	totals     []float64
	vocab      map[string]bool
	fallback   string
}

// NewBayes trains a classifier on corpus.
func NewBayes(corpus *Corpus) *Bayes {
	b := &Bayes{
		vocab:    make(map[string]bool),
		fallback: corpus.Fallback,
	}

	docs := make([]float64, len(corpus.Categories))
	totalDocs := 0.0
	for i, cat := range corpus.Categories {
		b.categories = append(b.categories, cat.Name)
		counts := make(map[string]float64)
		total := 0.0
		for _, text := range append(append([]string{}, cat.Examples...), cat.Keywords...) {
			docs[i]++
			for _, tok := range features(text) {
				counts[tok]++
				total++
				b.vocab[tok] = true
			}
		}
		b.counts = append(b.counts, counts)
		b.totals = append(b.totals, total)
		totalDocs += docs[i]
	}

	b.logPrior = make([]float64, len(docs))
	for i, d := range docs {
		b.logPrior[i] = math.Log(d / totalDocs)
	}
	return b
}

func (b *Bayes) Method() string { return MethodBayes }

func (b *Bayes) Categorize(text string) Result {
	var known []string
	for _, tok := range features(text) {
		if b.vocab[tok] {
			known = append(known, tok)
		}
	}
	if len(known) == 0 {
		return Result{Category: b.fallback, Method: MethodBayes}
	}

	v := float64(len(b.vocab))
	scores := make([]float64, len(b.categories))
	best := 0
	for i := range b.categories {
		s := b.logPrior[i]
		for _, tok := range known {
			s += math.Log((b.counts[i][tok] + 1) / (b.totals[i] + v))
		}
		scores[i] = s
		if s > scores[best] {
			best = i
		}
	}

	// posterior of the winner: 1 / sum(exp(s_j - s_best))
	sum := 0.0
	for _, s := range scores {
		sum += math.Exp(s - scores[best])
	}
	return Result{
		Category:   b.categories[best],
		Confidence: round2(1 / sum),
		Method:     MethodBayes,
	}
}

func features(text string) []string {
	tokens := tokenize(text)
	out := tokens[:0]
	for _, t := range tokens {
		if len(t) < 2 || stopWords[t] {
			continue
		}
		out = append(out, t)
	}
	return out
}
