package output

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/gowebpki/jcs"
)

// Bucket names used in breakdowns.
const (
	UnknownBucket = "unknown"
	OtherBucket   = "(other)"
)

// Bucket is one value of a breakdown and the number of records holding it.
type Bucket struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Breakdown partitions the summarized records by one field. Bucket counts
// always add up to the summary count.
type Breakdown struct {
	Field   string   `json:"field"`
	Buckets []Bucket `json:"buckets"`
}

// Ranked is one entry of the summary top list.
type Ranked struct {
	ID    string  `json:"id"`
	Label string  `json:"label,omitempty"`
	Score float64 `json:"score"`
}

// Summary holds aggregate statistics over a collection.
type Summary struct {
	Count       int         `json:"count"`
	Breakdown   []Breakdown `json:"breakdown"`
	Top         []Ranked    `json:"top,omitempty"`
	Fingerprint string      `json:"fingerprint,omitempty"`
}

// BreakdownBy returns the partition for field as a map, or nil if the field
// was not grouped.
func (s *Summary) BreakdownBy(field string) map[string]int {
	for _, b := range s.Breakdown {
		if b.Field != field {
			continue
		}
		out := make(map[string]int, len(b.Buckets))
		for _, bucket := range b.Buckets {
			out[bucket.Value] += bucket.Count
		}
		return out
	}
	return nil
}

// RankFunc scores a record. Records for which ok is false are left out of
// the top list.
type RankFunc func(rec Record) (score float64, ok bool)

// SummarySpec configures Summarize.
type SummarySpec struct {
	// GroupBy lists the fields to break down, in output order.
	GroupBy []string

	// IDField identifies records in the top list and breaks score ties.
	IDField string

	// LabelField, if set, is copied into each top entry.
	LabelField string

	// Rank scores records for the top list. Nil disables the top list.
	Rank RankFunc

	// TopN is the raw requested size of the top list, resolved against TopNLimit.
	TopN interface{}

	// TopNLimit bounds TopN.
	TopNLimit LimitSpec

	// MaxBuckets folds breakdown tails into OtherBucket. Zero means DefaultMaxBuckets.
	MaxBuckets int
}

// SummarySpecFor builds a spec from an entity projection.
func SummarySpecFor(p EntityProjection) SummarySpec {
	return SummarySpec{
		GroupBy:    p.GroupBy,
		IDField:    p.ID,
		LabelField: p.Label,
		Rank:       RankBy(p.Rank),
		TopNLimit:  LimitSpec{Default: DefaultTopN, Max: AbsoluteMaxLimit},
	}
}

// RankBy returns a RankFunc for rule, or nil when rule is nil.
func RankBy(rule *RankRule) RankFunc {
	if rule == nil || rule.Field == "" {
		return nil
	}
	return func(rec Record) (float64, bool) {
		v, present := rec[rule.Field]
		if !present || v == nil {
			return 0, false
		}
		if rule.Weights != nil {
			w, ok := rule.Weights[strings.ToLower(bucketValue(v))]
			return w, ok
		}
		return asFloat(v)
	}
}

// Summarize computes counts, breakdowns and a ranked top list over records.
// The result is identical for identical input.
func Summarize(records []Record, spec SummarySpec) (*Summary, error) {
	topN, err := ResolveLimit(spec.TopN, spec.TopNLimit)
	if err != nil {
		return nil, err
	}
	maxBuckets := spec.MaxBuckets
	if maxBuckets <= 0 {
		maxBuckets = DefaultMaxBuckets
	}

	summary := &Summary{
		Count:     len(records),
		Breakdown: make([]Breakdown, 0, len(spec.GroupBy)),
	}

	for _, field := range spec.GroupBy {
		counts := make(map[string]int)
		for _, rec := range records {
			counts[bucketValue(rec[field])]++
		}
		summary.Breakdown = append(summary.Breakdown, Breakdown{
			Field:   field,
			Buckets: foldBuckets(sortBuckets(counts), maxBuckets),
		})
	}

	if spec.Rank != nil {
		summary.Top = rankTop(records, spec, topN)
	}

	fp, err := fingerprint(summary)
	if err != nil {
		return nil, err
	}
	summary.Fingerprint = fp
	return summary, nil
}

func sortBuckets(counts map[string]int) []Bucket {
	buckets := make([]Bucket, 0, len(counts))
	for v, c := range counts {
		buckets = append(buckets, Bucket{Value: v, Count: c})
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Count != buckets[j].Count {
			return buckets[i].Count > buckets[j].Count
		}
		return buckets[i].Value < buckets[j].Value
	})
	return buckets
}

// foldBuckets keeps the first limit-1 buckets and merges the rest into
// OtherBucket, so the partition still covers every record.
func foldBuckets(buckets []Bucket, limit int) []Bucket {
	if len(buckets) <= limit {
		return buckets
	}
	keep := max(limit-1, 0)
	folded := Bucket{Value: OtherBucket}
	for _, b := range buckets[keep:] {
		folded.Count += b.Count
	}
	out := make([]Bucket, 0, keep+1)
	out = append(out, buckets[:keep]...)
	return append(out, folded)
}

func rankTop(records []Record, spec SummarySpec, topN int) []Ranked {
	ranked := make([]Ranked, 0, len(records))
	for _, rec := range records {
		score, ok := spec.Rank(rec)
		if !ok {
			continue
		}
		entry := Ranked{ID: bucketValue(rec[spec.IDField]), Score: score}
		if spec.LabelField != "" && spec.LabelField != spec.IDField {
			if label, present := rec[spec.LabelField]; present && label != nil {
				entry.Label = bucketValue(label)
			}
		}
		ranked = append(ranked, entry)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return idLess(ranked[i].ID, ranked[j].ID)
	})

	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked
}

// idLess orders numeric identifiers numerically and everything else lexically.
func idLess(a, b string) bool {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	switch {
	case errA == nil && errB == nil && fa != fb:
		return fa < fb
	case errA == nil && errB != nil:
		return true
	case errA != nil && errB == nil:
		return false
	default:
		return a < b
	}
}

// bucketValue renders a field value as a breakdown key. Missing, null and
// empty values map to UnknownBucket.
func bucketValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return UnknownBucket
	case string:
		if val == "" {
			return UnknownBucket
		}
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case json.Number:
		return val.String()
	case []interface{}:
		if len(val) == 0 {
			return UnknownBucket
		}
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = bucketValue(item)
		}
		return strings.Join(parts, ",")
	case []string:
		if len(val) == 0 {
			return UnknownBucket
		}
		return strings.Join(val, ",")
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// fingerprint hashes the canonical (RFC 8785) JSON form of the statistics.
func fingerprint(s *Summary) (string, error) {
	stats := *s
	stats.Fingerprint = ""
	data, err := json.Marshal(stats)
	if err != nil {
		return "", fmt.Errorf("failed to encode summary: %w", err)
	}
	canonical, err := jcs.Transform(data)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize summary: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
