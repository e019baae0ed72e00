package forms

import (
	"net/mail"
	"strings"
)

// nameComponents are joined in display order when a name field arrives
// as a structured map instead of a plain string.
var nameComponents = []string{"prefix", "first_name", "middle_name", "last_name", "suffix"}

// NormalizeFields flattens platform field structures into plain values
// suitable for scoring and prompt building. Structured name fields
// collapse to a single space-joined string, wrapper maps are unwrapped
// to their value/text/label entry, and everything else passes through.
func NormalizeFields(raw map[string]any) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]any, len(raw))
	for name, value := range raw {
		out[name] = flattenValue(value)
	}
	return out
}

func flattenValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		if name, ok := joinNameComponents(v); ok {
			return name
		}
		for _, key := range []string{"value", "text", "label"} {
			if inner, ok := v[key]; ok {
				return flattenValue(inner)
			}
		}
		return v
	case []any:
		out := make([]any, 0, len(v))
		for _, item := range v {
			out = append(out, flattenValue(item))
		}
		return out
	default:
		return value
	}
}

func joinNameComponents(value map[string]any) (string, bool) {
	matched := false
	parts := make([]string, 0, len(nameComponents))
	for _, key := range nameComponents {
		raw, ok := value[key]
		if !ok {
			continue
		}
		matched = true
		if s, ok := raw.(string); ok && strings.TrimSpace(s) != "" {
			parts = append(parts, strings.TrimSpace(s))
		}
	}
	if !matched {
		return "", false
	}
	return strings.Join(parts, " "), true
}

// FindEmail locates the submitter's email address. Fields named email
// win; otherwise every string value is scanned for the first parseable
// address.
func FindEmail(fields map[string]any) string {
	for name, value := range fields {
		if strings.Contains(strings.ToLower(name), "email") {
			if email := asEmail(value); email != "" {
				return email
			}
		}
	}
	for _, value := range fields {
		if email := asEmail(value); email != "" {
			return email
		}
	}
	return ""
}

func asEmail(value any) string {
	s, ok := value.(string)
	if !ok {
		return ""
	}
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "@") {
		return ""
	}
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return ""
	}
	return addr.Address
}

// ContactName extracts first and last name from normalized fields.
// Explicit first_name/last_name fields win over a combined names value.
func ContactName(fields map[string]any) (first, last string) {
	first = stringField(fields, "first_name")
	last = stringField(fields, "last_name")
	if first != "" || last != "" {
		return first, last
	}

	for _, key := range []string{"names", "name", "full_name"} {
		full := stringField(fields, key)
		if full == "" {
			continue
		}
		parts := strings.Fields(full)
		if len(parts) == 0 {
			continue
		}
		first = parts[0]
		if len(parts) > 1 {
			last = parts[len(parts)-1]
		}
		return first, last
	}
	return "", ""
}

func stringField(fields map[string]any, name string) string {
	if v, ok := fields[name].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}
