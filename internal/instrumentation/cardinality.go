package instrumentation

import "strings"

// Cardinality management helpers for metrics.
// These functions reduce high-cardinality label values to prevent metrics explosion.
//
// Never label a metric with a ticket id, a user id, a search query or a raw
// request path. Use endpoint classes and the helpers below instead.

// StatusClass values for upstream responses.
const (
	StatusClass2xx     = "2xx"
	StatusClass3xx     = "3xx"
	StatusClass4xx     = "4xx"
	StatusClass429     = "429"
	StatusClass5xx     = "5xx"
	StatusClassNetwork = "network_error"
)

// ClassifyStatusCode maps an HTTP status code to a low-cardinality class.
// 429 keeps its own class so throttling stays visible; zero means the
// request never got a response.
//
//	ClassifyStatusCode(200) // "2xx"
//	ClassifyStatusCode(404) // "4xx"
//	ClassifyStatusCode(429) // "429"
//	ClassifyStatusCode(0)   // "network_error"
func ClassifyStatusCode(code int) string {
	switch {
	case code == 429:
		return StatusClass429
	case code >= 200 && code < 300:
		return StatusClass2xx
	case code >= 300 && code < 400:
		return StatusClass3xx
	case code >= 400 && code < 500:
		return StatusClass4xx
	case code >= 500 && code < 600:
		return StatusClass5xx
	default:
		return StatusClassNetwork
	}
}

// ExtractUserDomain extracts the domain part from an email address.
// This reduces cardinality by using the domain instead of the full email.
//
// Example:
//
//	ExtractUserDomain("jane@example.com")  // "example.com"
//	ExtractUserDomain("invalid")           // "unknown"
//	ExtractUserDomain("")                  // "unknown"
func ExtractUserDomain(email string) string {
	if email == "" {
		return "unknown"
	}

	parts := strings.Split(email, "@")
	if len(parts) == 2 && parts[1] != "" {
		return parts[1]
	}

	return "unknown"
}
