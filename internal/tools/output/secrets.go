package output

import (
	"strings"
)

// RedactedValue is the placeholder used for masked secret data.
const RedactedValue = "***REDACTED***"

// sensitiveKeyFragments mark keys whose values never leave the server.
// Zendesk returns some of these on webhooks, targets and user identities.
var sensitiveKeyFragments = []string{
	"password",
	"token",
	"secret",
	"api_key",
	"apikey",
	"authorization",
	"credential",
}

// IsSensitiveKey reports whether a field name looks like it holds a credential.
func IsSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	for _, frag := range sensitiveKeyFragments {
		if strings.Contains(k, frag) {
			return true
		}
	}
	return false
}

// RedactSecrets returns a copy of rec with values under sensitive keys
// replaced by RedactedValue, at any depth. The original is left untouched.
func RedactSecrets(rec Record) Record {
	if rec == nil {
		return nil
	}
	if !containsSensitive(rec) {
		return rec
	}
	return redactMap(rec)
}

// RedactSecretsInList applies RedactSecrets to each record.
func RedactSecretsInList(records []Record) []Record {
	if len(records) == 0 {
		return records
	}
	result := make([]Record, len(records))
	for i, r := range records {
		result[i] = RedactSecrets(r)
	}
	return result
}

func redactMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		if IsSensitiveKey(k) && v != nil {
			out[k] = RedactedValue
			continue
		}
		out[k] = redactValue(v)
	}
	return out
}

func redactValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return redactMap(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = redactValue(item)
		}
		return out
	default:
		return deepCopyValue(v)
	}
}

func containsSensitive(v interface{}) bool {
	switch val := v.(type) {
	case map[string]interface{}:
		for k, inner := range val {
			if IsSensitiveKey(k) && inner != nil {
				return true
			}
			if containsSensitive(inner) {
				return true
			}
		}
	case []interface{}:
		for _, item := range val {
			if containsSensitive(item) {
				return true
			}
		}
	}
	return false
}
