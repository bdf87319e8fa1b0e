// Package categorize assigns ticket categories from subject and description
// text.
//
// Two implementations share one YAML corpus (embedded categories.yaml, or a
// file given with --category-corpus): Rules counts keyword hits, Bayes is a
// multinomial naive Bayes model trained on the corpus examples at startup.
// Both are deterministic; text that matches nothing falls back to the
// corpus fallback category with zero confidence.
package categorize
