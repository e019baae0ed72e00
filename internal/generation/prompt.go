package generation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nicscott/assessment-reports/internal/report"
)

// PromptSettings carries the operator-tunable generation style.
type PromptSettings struct {
	Tone                   string
	Voice                  string
	AdditionalInstructions string
}

// BuildPrompt assembles the personalization prompt for one content
// block. Only the block's context fields are included; fields the
// operator did not opt in are never sent to the provider.
func BuildPrompt(block report.ContentBlock, fields map[string]any, totalScore int, hasScore bool, settings PromptSettings) string {
	var b strings.Builder

	b.WriteString("You are writing personalized content for an assessment report. Adapt the example content based on the user's specific responses while maintaining tone and structure.\n\n")
	b.WriteString("EXAMPLE CONTENT:\n")
	b.WriteString(block.ExampleText)
	b.WriteString("\n\n")
	b.WriteString("PERSONALIZATION INSTRUCTIONS:\n")
	b.WriteString(block.Instructions)
	b.WriteString("\n\n")
	b.WriteString("USER'S RESPONSES:\n")

	for _, fieldName := range block.ContextFields {
		value, ok := fields[fieldName]
		if !ok || value == nil {
			continue
		}
		formatted := formatFieldValue(value)
		if formatted == "" {
			continue
		}
		b.WriteString("- ")
		b.WriteString(fieldName)
		b.WriteString(": ")
		b.WriteString(formatted)
		b.WriteString("\n")
	}

	if block.IncludeScore && hasScore {
		b.WriteString("- Overall Assessment Score: ")
		b.WriteString(strconv.Itoa(totalScore))
		b.WriteString("\n")
	}

	if block.AdditionalContext != "" {
		b.WriteString("\nADDITIONAL CONTEXT:\n")
		b.WriteString(block.AdditionalContext)
		b.WriteString("\n\n")
	}

	b.WriteString("\nTONE: ")
	b.WriteString(settings.Tone)
	b.WriteString("\nVOICE: ")
	b.WriteString(settings.Voice)
	b.WriteString("\n\n")

	if settings.AdditionalInstructions != "" {
		b.WriteString(settings.AdditionalInstructions)
		b.WriteString("\n\n")
	}

	b.WriteString("Generate the personalized content now. Output only the final content, no preamble or explanation.")
	return b.String()
}

func formatFieldValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if s := formatFieldValue(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case []string:
		return strings.Join(v, ", ")
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
