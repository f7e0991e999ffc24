package observability

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/goccy/go-json"
)

const redacted = "[REDACTED]"

// Redactor masks sensitive data before it reaches the logs. Function
// arguments and dispatch errors routinely carry user data, so everything
// logged about a dispatch goes through it.
type Redactor struct {
	rules []redactRule
	keys  []string
}

type redactRule struct {
	name        string
	re          *regexp.Regexp
	replacement string
}

var defaultRules = []struct{ name, pattern, replacement string }{
	{"openai_key", `sk-[a-zA-Z0-9\-_]{20,}`, "[REDACTED_API_KEY]"},
	{"bearer_token", `Bearer\s+[a-zA-Z0-9\-_\.]+`, "Bearer " + redacted},
	{"auth_header", `Authorization:\s*[^\s]+`, "Authorization: " + redacted},
	{"vault_token", `\bhv[sbr]\.[a-zA-Z0-9_\-]{20,}`, "[REDACTED_VAULT_TOKEN]"},
	{"dsn", `(?i)(postgres(ql)?|redis)://[^\s"]+`, "[REDACTED_DSN]"},
	{"email", `[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`, "[REDACTED_EMAIL]"},
	{"phone", `\+?[0-9]{1,3}[-.\s]?\(?[0-9]{3}\)?[-.\s]?[0-9]{3}[-.\s]?[0-9]{4}`, "[REDACTED_PHONE]"},
	{"credit_card", `\b[0-9]{4}[-\s]?[0-9]{4}[-\s]?[0-9]{4}[-\s]?[0-9]{4}\b`, "[REDACTED_CARD]"},
}

// defaultKeys are JSON keys whose values are dropped wholesale. The health
// entries cover what users log about themselves through function calls.
var defaultKeys = []string{
	"key", "token", "secret", "password", "auth", "credential",
	"email", "phone", "notes", "description", "feedback",
	"weight", "medical", "medication", "allerg", "birth",
}

// NewRedactor creates a redactor with the default rules and keys.
func NewRedactor() *Redactor {
	r := &Redactor{keys: append([]string(nil), defaultKeys...)}
	for _, d := range defaultRules {
		r.AddPattern(d.pattern, d.replacement, d.name)
	}
	return r
}

// AddPattern adds a custom redaction pattern. Invalid patterns are skipped.
func (r *Redactor) AddPattern(pattern, replacement, name string) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return
	}
	r.rules = append(r.rules, redactRule{name: name, re: re, replacement: replacement})
}

// AddSensitiveKeys extends the key fragments that RedactJSON drops.
// Matching is case-insensitive on substrings.
func (r *Redactor) AddSensitiveKeys(keys ...string) {
	for _, k := range keys {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			r.keys = append(r.keys, k)
		}
	}
}

// Redact applies all redaction patterns to the input string.
func (r *Redactor) Redact(input string) string {
	for _, rule := range r.rules {
		input = rule.re.ReplaceAllString(input, rule.replacement)
	}
	return input
}

// RedactJSON redacts a JSON document field by field. Values under sensitive
// keys are replaced wholesale; other strings go through Redact.
// Input that is not a JSON object falls back to string redaction.
func (r *Redactor) RedactJSON(raw []byte) string {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil || m == nil {
		return r.Redact(string(raw))
	}
	out, err := json.Marshal(r.RedactMap(m))
	if err != nil {
		return r.Redact(string(raw))
	}
	return string(out)
}

// RedactMap redacts sensitive values in a map.
func (r *Redactor) RedactMap(m map[string]any) map[string]any {
	result := make(map[string]any, len(m))
	for k, v := range m {
		if r.sensitive(k) {
			result[k] = redacted
			continue
		}
		result[k] = r.redactValue(v)
	}
	return result
}

func (r *Redactor) sensitive(key string) bool {
	key = strings.ToLower(key)
	for _, k := range r.keys {
		if strings.Contains(key, k) {
			return true
		}
	}
	return false
}

func (r *Redactor) redactValue(value any) any {
	switch v := value.(type) {
	case string:
		return r.Redact(v)
	case map[string]any:
		return r.RedactMap(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = r.redactValue(item)
		}
		return out
	default:
		return value
	}
}

func (r *Redactor) redactAttr(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		return slog.String(a.Key, r.Redact(a.Value.String()))
	case slog.KindAny:
		switch v := a.Value.Any().(type) {
		case json.RawMessage:
			return slog.String(a.Key, r.RedactJSON(v))
		case error:
			return slog.String(a.Key, r.Redact(v.Error()))
		}
	}
	return a
}

var sensitiveHeaders = map[string]bool{
	"authorization":       true,
	"x-api-key":           true,
	"api-key":             true,
	"cookie":              true,
	"set-cookie":          true,
	"x-vault-token":       true,
	"proxy-authorization": true,
}

// RedactHeaders redacts sensitive HTTP headers.
func (r *Redactor) RedactHeaders(headers map[string][]string) map[string][]string {
	result := make(map[string][]string, len(headers))
	for k, v := range headers {
		if sensitiveHeaders[strings.ToLower(k)] {
			result[k] = []string{redacted}
			continue
		}
		result[k] = v
	}
	return result
}
