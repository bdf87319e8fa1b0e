package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/giantswarm/mcp-zendesk/internal/instrumentation"
)

// statusRecorder remembers the first status written through it.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// Flush keeps SSE and streamable HTTP responses streaming.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// statusCode is the recorded status; handlers that write nothing answer 200.
func (r *statusRecorder) statusCode() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

// otherLabel replaces paths and methods outside the known sets so that
// scanners cannot grow the label space.
const otherLabel = "other"

var knownMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodPost:    true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
}

// HTTPMetrics records the count and duration of requests by method, route
// and status. routes are the paths the server serves; any other path is
// labelled "other". A nil or disabled provider makes it a pass-through.
func HTTPMetrics(provider *instrumentation.Provider, routes []string) func(http.Handler) http.Handler {
	known := make(map[string]bool, len(routes))
	for _, route := range routes {
		known[trimSlash(route)] = true
	}

	return func(next http.Handler) http.Handler {
		if !provider.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}

			next.ServeHTTP(rec, r)

			provider.Metrics().RecordHTTPRequest(r.Context(),
				label(r.Method, knownMethods),
				label(trimSlash(r.URL.Path), known),
				rec.statusCode(),
				time.Since(start))
		})
	}
}

func label(value string, known map[string]bool) string {
	if known[value] {
		return value
	}
	return otherLabel
}

func trimSlash(path string) string {
	if len(path) > 1 {
		return strings.TrimSuffix(path, "/")
	}
	return path
}
