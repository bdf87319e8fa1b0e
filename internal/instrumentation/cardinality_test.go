package instrumentation

import "testing"

func TestClassifyStatusCode(t *testing.T) {
	tests := []struct {
		code     int
		expected string
	}{
		{200, StatusClass2xx},
		{201, StatusClass2xx},
		{304, StatusClass3xx},
		{401, StatusClass4xx},
		{404, StatusClass4xx},
		{429, StatusClass429},
		{500, StatusClass5xx},
		{503, StatusClass5xx},
		{0, StatusClassNetwork},
		{-1, StatusClassNetwork},
		{999, StatusClassNetwork},
	}

	for _, tt := range tests {
		if got := ClassifyStatusCode(tt.code); got != tt.expected {
			t.Errorf("ClassifyStatusCode(%d) = %q, want %q", tt.code, got, tt.expected)
		}
	}
}

func TestExtractUserDomain(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		expected string
	}{
		{name: "empty", email: "", expected: "unknown"},
		{name: "valid", email: "jane@example.com", expected: "example.com"},
		{name: "subdomain", email: "agent@support.example.org", expected: "support.example.org"},
		{name: "no at sign", email: "invalid", expected: "unknown"},
		{name: "trailing at", email: "user@", expected: "unknown"},
		{name: "multiple at", email: "a@b@c", expected: "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractUserDomain(tt.email); got != tt.expected {
				t.Errorf("ExtractUserDomain(%q) = %q, want %q", tt.email, got, tt.expected)
			}
		})
	}
}
