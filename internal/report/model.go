package report

import (
	"regexp"
	"strings"
)

// Report is a published content entity bound to one source form. Its
// sections are scored against submissions; its content blocks are the
// AI personalization slots.
type Report struct {
	ID             int64          `json:"id"`
	Title          string         `json:"title"`
	SourceFormID   int64          `json:"source_form_id"`
	OpeningContent string         `json:"opening_content"`
	ClosingContent string         `json:"closing_content"`
	Blocks         []ContentBlock `json:"ai_blocks,omitempty"`
	Published      bool           `json:"published"`
}

// Section is a child content entity scored via weighted choice mappings.
type Section struct {
	ID           int64          `json:"id"`
	ReportID     int64          `json:"report_id"`
	Title        string         `json:"title"`
	Content      string         `json:"content"`
	FieldWeights FieldWeightMap `json:"field_weights,omitempty"`
	Published    bool           `json:"published"`
	Position     int            `json:"position"`
}

// FieldWeightMap maps form field name -> choice value -> weight.
type FieldWeightMap map[string]map[string]int

// ContentBlock is an admin-defined AI personalization slot.
type ContentBlock struct {
	Token             string   `json:"token"`
	ExampleText       string   `json:"example"`
	Instructions      string   `json:"instructions,omitempty"`
	ContextFields     []string `json:"context_fields,omitempty"`
	IncludeScore      bool     `json:"include_score,omitempty"`
	AdditionalContext string   `json:"additional_context,omitempty"`
}

const (
	minWeight = 1
	maxWeight = 10
)

var tokenPattern = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// SanitizeToken reduces a block token to [A-Za-z0-9_]+.
func SanitizeToken(token string) string {
	return tokenPattern.ReplaceAllString(strings.TrimSpace(token), "")
}

// ClampWeight bounds a configured weight to the 1..10 range. Applied at
// configuration-save time; the scorer trusts stored weights.
func ClampWeight(weight int) int {
	if weight < minWeight {
		return minWeight
	}
	if weight > maxWeight {
		return maxWeight
	}
	return weight
}

// NormalizeWeights sanitizes a field weight map in place for storage:
// empty field or choice keys are dropped and weights clamped.
func NormalizeWeights(weights FieldWeightMap) FieldWeightMap {
	if len(weights) == 0 {
		return nil
	}
	out := make(FieldWeightMap, len(weights))
	for field, choices := range weights {
		field = strings.TrimSpace(field)
		if field == "" || len(choices) == 0 {
			continue
		}
		cleaned := make(map[string]int, len(choices))
		for choice, weight := range choices {
			choice = strings.TrimSpace(choice)
			if choice == "" {
				continue
			}
			cleaned[choice] = ClampWeight(weight)
		}
		if len(cleaned) > 0 {
			out[field] = cleaned
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// NormalizeBlocks sanitizes content blocks for storage: tokens reduced to
// the allowed alphabet, blocks without a usable token dropped, duplicate
// tokens keep the first definition.
func NormalizeBlocks(blocks []ContentBlock) []ContentBlock {
	if len(blocks) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(blocks))
	out := make([]ContentBlock, 0, len(blocks))
	for _, block := range blocks {
		token := SanitizeToken(block.Token)
		if token == "" {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		block.Token = token
		out = append(out, block)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
