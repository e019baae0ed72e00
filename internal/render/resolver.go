package render

import (
	"strings"

	"github.com/nicscott/assessment-reports/internal/report"
)

// TokenPrefix marks AI placeholders in authored content, e.g. {ai.opening}.
const TokenPrefix = "ai."

// NewResolver builds a token resolver for a report's content blocks.
// Each {ai.TOKEN} placeholder maps to the generated text for that
// block, or the block's example text when generation produced nothing.
func NewResolver(blocks []report.ContentBlock, generated map[string]string) *Resolver {
	pairs := make([]string, 0, len(blocks)*2)
	for _, block := range blocks {
		if block.Token == "" {
			continue
		}
		text := generated[block.Token]
		if text == "" {
			text = block.ExampleText
		}
		pairs = append(pairs, "{"+TokenPrefix+block.Token+"}", text)
	}
	return &Resolver{replacer: strings.NewReplacer(pairs...)}
}

// Resolver substitutes AI placeholders in authored content.
type Resolver struct {
	replacer *strings.Replacer
}

// Resolve replaces every known placeholder in a single pass. The
// substitution is literal: placeholder-like text inside generated
// content is never expanded again.
func (r *Resolver) Resolve(content string) string {
	if content == "" {
		return ""
	}
	return r.replacer.Replace(content)
}
