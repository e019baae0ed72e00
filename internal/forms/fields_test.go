package forms

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeFieldsNameComponents(t *testing.T) {
	raw := map[string]any{
		"names": map[string]any{
			"first_name": "Ada",
			"last_name":  "Lovelace",
			"prefix":     "",
		},
		"color": "blue",
	}

	got := NormalizeFields(raw)

	assert.Equal(t, "Ada Lovelace", got["names"])
	assert.Equal(t, "blue", got["color"])
}

func TestNormalizeFieldsUnwrapsValueMaps(t *testing.T) {
	raw := map[string]any{
		"concern": map[string]any{"value": "acne", "label": "Acne"},
		"tone":    map[string]any{"label": "Warm"},
		"multi":   []any{map[string]any{"value": "a"}, "b"},
	}

	got := NormalizeFields(raw)

	assert.Equal(t, "acne", got["concern"])
	assert.Equal(t, "Warm", got["tone"])
	assert.Equal(t, []any{"a", "b"}, got["multi"])
}

func TestFindEmailPrefersEmailField(t *testing.T) {
	fields := map[string]any{
		"contact_email": "user@example.com",
		"notes":         "other@example.org",
	}
	assert.Equal(t, "user@example.com", FindEmail(fields))
}

func TestFindEmailScansValues(t *testing.T) {
	fields := map[string]any{
		"color": "blue",
		"notes": "reach me at someone@example.org",
	}
	// Free text with extra words is not a parseable address on its own.
	assert.Equal(t, "", FindEmail(fields))

	fields["contact"] = "someone@example.org"
	assert.Equal(t, "someone@example.org", FindEmail(fields))
}

func TestContactName(t *testing.T) {
	first, last := ContactName(map[string]any{"first_name": "Ada", "last_name": "Lovelace"})
	assert.Equal(t, "Ada", first)
	assert.Equal(t, "Lovelace", last)

	first, last = ContactName(map[string]any{"names": "Ada King Lovelace"})
	assert.Equal(t, "Ada", first)
	assert.Equal(t, "Lovelace", last)

	first, last = ContactName(map[string]any{})
	assert.Empty(t, first)
	assert.Empty(t, last)
}
