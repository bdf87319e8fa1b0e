package zendesk

import (
	"context"
	"net/url"
	"strconv"
)

// Collection is the result of a paginated call.
type Collection struct {
	// Records in the order Zendesk returned them, at most the cap.
	Records []Record

	// Count is the total Zendesk reported, or -1 when it did not report one.
	Count int

	// Capped is set when more records existed than were gathered.
	Capped bool
}

// ListOptions bounds a collection call.
type ListOptions struct {
	// MaxRecords overrides the client's cap when positive and smaller.
	MaxRecords int
}

func (c *httpClient) maxRecords(opts ListOptions) int {
	if opts.MaxRecords > 0 && opts.MaxRecords < c.config.MaxRecords {
		return opts.MaxRecords
	}
	return c.config.MaxRecords
}

// collect follows next_page links (offset pagination) or links.next (cursor
// pagination) until the cap is reached or the collection ends. Links to
// another host are not followed.
func (c *httpClient) collect(ctx context.Context, req request, key string, limit int) (*Collection, error) {
	query := url.Values{}
	for k, v := range req.query {
		query[k] = v
	}
	if query.Get("per_page") == "" && query.Get("page[size]") == "" {
		query.Set("per_page", strconv.Itoa(min(PageSize, max(limit, 1))))
	}
	target := c.resolve(req.path, query)

	result := &Collection{Count: -1}
	for {
		var body map[string]interface{}
		if err := c.doURL(ctx, req, target, &body); err != nil {
			return nil, err
		}

		items := records(body[key])
		result.Records = append(result.Records, items...)
		if result.Count < 0 {
			if n, ok := body["count"].(float64); ok {
				result.Count = int(n)
			}
		}

		next := nextLink(body)
		if len(result.Records) >= limit {
			if len(result.Records) > limit || next != "" {
				result.Capped = true
			}
			result.Records = result.Records[:limit]
			break
		}
		if next == "" || len(items) == 0 {
			break
		}
		if !c.sameOrigin(next) {
			c.logger.Warn("Not following pagination link to another host", "endpoint", req.endpoint)
			result.Capped = true
			break
		}
		target = next
	}

	if result.Count >= 0 && result.Count > len(result.Records) {
		result.Capped = true
	}
	return result, nil
}

func nextLink(body map[string]interface{}) string {
	if next, ok := body["next_page"].(string); ok && next != "" {
		return next
	}
	meta, _ := body["meta"].(map[string]interface{})
	links, _ := body["links"].(map[string]interface{})
	if hasMore, _ := meta["has_more"].(bool); hasMore {
		if next, ok := links["next"].(string); ok {
			return next
		}
	}
	return ""
}

func records(v interface{}) []Record {
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]Record, 0, len(list))
	for _, item := range list {
		if rec, ok := item.(map[string]interface{}); ok {
			out = append(out, rec)
		}
	}
	return out
}

func object(body map[string]interface{}, key string) Record {
	rec, _ := body[key].(map[string]interface{})
	return rec
}

// joinIDs formats ids for show_many and update_many.
func joinIDs(ids []int64) string {
	buf := make([]byte, 0, len(ids)*8)
	for i, id := range ids {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendInt(buf, id, 10)
	}
	return string(buf)
}

// Int64 reads a numeric field from a record. JSON numbers decode as float64.
func Int64(rec Record, field string) (int64, bool) {
	switch v := rec[field].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	default:
		return 0, false
	}
}

// String reads a string field from a record.
func String(rec Record, field string) string {
	s, _ := rec[field].(string)
	return s
}
