package scoring

import (
	"sort"
	"strconv"

	"github.com/nicscott/assessment-reports/internal/report"
)

// TopSectionCount bounds the persisted ranking.
const TopSectionCount = 3

// SectionScore is one ranked entry of a scored submission. The JSON
// shape matches the persisted top_report_sections metadata.
type SectionScore struct {
	SectionID int64 `json:"section_id"`
	Score     int   `json:"score"`
	ParentID  int64 `json:"parent_id"`
}

// ScoreSubmission computes weighted match scores between a submission's
// field values and each candidate section's field weight map, then
// returns the top sections sorted descending by score. Ties keep the
// sections' original relative order: re-running on identical input must
// produce identical ranked output.
func ScoreSubmission(fields map[string]any, sections []report.Section) []SectionScore {
	if len(fields) == 0 || len(sections) == 0 {
		return nil
	}

	scores := make([]SectionScore, 0, len(sections))
	for _, section := range sections {
		score := scoreSection(fields, section.FieldWeights)
		if score <= 0 {
			continue
		}
		scores = append(scores, SectionScore{
			SectionID: section.ID,
			Score:     score,
			ParentID:  section.ReportID,
		})
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})

	if len(scores) > TopSectionCount {
		scores = scores[:TopSectionCount]
	}
	return scores
}

func scoreSection(fields map[string]any, weights report.FieldWeightMap) int {
	score := 0
	for fieldName, choices := range weights {
		submitted, ok := fields[fieldName]
		if !ok || submitted == nil {
			continue
		}
		for _, value := range normalizeValues(submitted) {
			if weight, matched := choices[value]; matched {
				score += weight
			}
		}
	}
	return score
}

// normalizeValues flattens a submitted field value to a list of strings.
// Scalars become a singleton; slices contribute their scalar elements;
// nil and nested non-scalar entries are dropped.
func normalizeValues(value any) []string {
	switch v := value.(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []string:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if item != "" {
				out = append(out, item)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s := scalarString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		if s := scalarString(value); s != "" {
			return []string{s}
		}
		return nil
	}
}

func scalarString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}
