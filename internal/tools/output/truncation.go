package output

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// RecordSeparator separates serialized records in text passed to Bound.
const RecordSeparator = '\n'

const noticeFormat = "showing first %d of %d results; refine query or request compact mode"

// Notice returns the truncation notice for kept of total records.
func Notice(kept, total int) string {
	return fmt.Sprintf(noticeFormat, kept, total)
}

// BoundResult is the outcome of Bound.
type BoundResult struct {
	// Text is the bounded output, including the notice when truncated.
	Text string

	// Truncated is true iff Text is shorter than the input.
	Truncated bool

	// Kept is the number of whole records retained.
	Kept int

	// Degraded is set when no separator was found and the text was hard-cut.
	Degraded bool

	// Notice is the notice appended to Text, empty when nothing was cut.
	Notice string
}

type boundConfig struct {
	window int
}

// BoundOption configures Bound.
type BoundOption func(*boundConfig)

// WithScanWindow sets how many bytes Bound scans backward for a separator.
func WithScanWindow(n int) BoundOption {
	return func(c *boundConfig) {
		if n > 0 {
			c.window = n
		}
	}
}

// Bound shortens newline-separated records so that the result, notice
// included, fits in maxLength bytes. total is the size of the original
// collection reported in the notice; it is raised to the number of records
// in text if smaller. A maxLength of zero or less disables bounding.
//
// The cut lands on a record separator found within the scan window. When the
// first scan finds none, the text is hard-cut on a rune boundary and the
// result is marked Degraded.
func Bound(text string, maxLength, total int, opts ...BoundOption) BoundResult {
	cfg := boundConfig{window: DefaultScanWindow}
	for _, opt := range opts {
		opt(&cfg)
	}

	records := countRecords(text)
	if maxLength <= 0 || len(text) <= maxLength {
		return BoundResult{Text: text, Kept: records}
	}
	total = max(total, records)

	cut := maxLength
	for first := true; ; first = false {
		lo := max(0, cut-cfg.window)
		idx := strings.LastIndexByte(text[lo:cut+1], RecordSeparator)
		if idx < 0 {
			if first || lo > 0 {
				return hardCut(text, maxLength, total)
			}
			// Every record has been dropped; only the notice remains.
			return noticeOnly(maxLength, total, false)
		}

		boundary := lo + idx
		prefix := text[:boundary]
		kept := 0
		if boundary > 0 {
			kept = strings.Count(prefix, string(RecordSeparator)) + 1
		}

		notice := Notice(kept, total)
		out := joinNotice(prefix, notice)
		if len(out) <= maxLength {
			return BoundResult{Text: out, Truncated: true, Kept: kept, Notice: notice}
		}
		if boundary == 0 {
			return noticeOnly(maxLength, total, false)
		}
		cut = boundary - 1
	}
}

// hardCut keeps as many bytes as fit next to the widest possible notice.
// Only records terminated by a separator count as kept.
func hardCut(text string, maxLength, total int) BoundResult {
	room := maxLength - len(Notice(total, total)) - 1
	if room <= 0 {
		return noticeOnly(maxLength, total, true)
	}

	prefix := text[:runeBoundary(text, room)]
	kept := strings.Count(prefix, string(RecordSeparator))
	notice := Notice(kept, total)
	return BoundResult{
		Text:      joinNotice(prefix, notice),
		Truncated: true,
		Kept:      kept,
		Degraded:  true,
		Notice:    notice,
	}
}

// noticeOnly returns the bare notice, itself hard-cut if it cannot fit.
func noticeOnly(maxLength, total int, degraded bool) BoundResult {
	notice := Notice(0, total)
	if len(notice) > maxLength {
		notice = notice[:runeBoundary(notice, maxLength)]
		degraded = true
	}
	return BoundResult{Text: notice, Truncated: true, Degraded: degraded, Notice: notice}
}

func joinNotice(prefix, notice string) string {
	if prefix == "" {
		return notice
	}
	return prefix + string(RecordSeparator) + notice
}

// runeBoundary returns the largest n <= limit such that s[:n] does not split
// a UTF-8 sequence.
func runeBoundary(s string, limit int) int {
	if limit >= len(s) {
		return len(s)
	}
	n := limit
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return n
}

func countRecords(text string) int {
	if text == "" {
		return 0
	}
	return strings.Count(text, string(RecordSeparator)) + 1
}
