package enrich

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/hazyhaar/linkwatch/activity"
)

// objectRe finds the outermost {...} span, which covers answers wrapped in
// prose or code fences.
var objectRe = regexp.MustCompile(`(?s)\{.*\}`)

// extractObject decodes raw as a JSON object, first strictly, then from the
// first brace-delimited span. ok is false when neither works.
func extractObject(raw string) (map[string]any, bool) {
	s := strings.TrimSpace(raw)
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err == nil && obj != nil {
		return obj, true
	}
	m := objectRe.FindString(s)
	if m == "" {
		return nil, false
	}
	obj = nil
	if err := json.Unmarshal([]byte(m), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

// Parse turns a model answer into an Analysis. Missing keys take the value
// of fallback; an answer that holds no JSON object becomes a raw-text
// analysis.
func Parse(raw string, fallback Analysis, model string) Analysis {
	obj, ok := extractObject(raw)
	if !ok {
		return Analysis{
			Summary:    activity.Truncate(strings.TrimSpace(raw), RawSummaryLen),
			Themes:     ThemesNeutral,
			Suggestion: SuggestionNeutral,
			Outcome:    OutcomeRawText,
			Model:      model,
		}
	}
	return Analysis{
		Summary:    field(obj, "summary", fallback.Summary),
		Themes:     field(obj, "themes", fallback.Themes),
		Suggestion: field(obj, "suggested_post", fallback.Suggestion),
		Outcome:    OutcomeService,
		Model:      model,
	}
}

func field(obj map[string]any, key, def string) string {
	v, ok := obj[key]
	if !ok || v == nil {
		return def
	}
	return render(v)
}

// render converts any decoded JSON value into display text.
func render(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case []any:
		parts := make([]string, 0, len(x))
		for _, e := range x {
			if e == nil {
				continue
			}
			parts = append(parts, render(e))
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	default:
		return fmt.Sprint(x)
	}
}
