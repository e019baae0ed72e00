package render

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nicscott/assessment-reports/internal/report"
)

func TestResolveReplacesTokens(t *testing.T) {
	blocks := []report.ContentBlock{
		{Token: "opening", ExampleText: "example opening"},
		{Token: "next_steps", ExampleText: "example steps"},
	}
	generated := map[string]string{
		"opening":    "Welcome back, Ada.",
		"next_steps": "Book a consultation.",
	}
	resolver := NewResolver(blocks, generated)

	got := resolver.Resolve("<p>{ai.opening}</p><p>{ai.next_steps}</p>")
	assert.Equal(t, "<p>Welcome back, Ada.</p><p>Book a consultation.</p>", got)
}

func TestResolveFallsBackToExampleText(t *testing.T) {
	blocks := []report.ContentBlock{{Token: "opening", ExampleText: "example opening"}}
	resolver := NewResolver(blocks, nil)

	assert.Equal(t, "example opening", resolver.Resolve("{ai.opening}"))
}

func TestResolveIsLiteral(t *testing.T) {
	blocks := []report.ContentBlock{
		{Token: "a", ExampleText: "ex a"},
		{Token: "b", ExampleText: "ex b"},
	}
	// Generated content that itself looks like a placeholder must not
	// be expanded again.
	generated := map[string]string{"a": "{ai.b}", "b": "real b"}
	resolver := NewResolver(blocks, generated)

	assert.Equal(t, "{ai.b}", resolver.Resolve("{ai.a}"))
}

func TestResolveLeavesUnknownTokens(t *testing.T) {
	resolver := NewResolver([]report.ContentBlock{{Token: "opening"}}, map[string]string{"opening": "x"})
	assert.Equal(t, "x and {ai.unknown}", resolver.Resolve("{ai.opening} and {ai.unknown}"))
}
