package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nmurali/billfiler/constants"
)

// ExtractJSONObject trims markdown code fences and any prose around the first
// JSON object in a model response. Models wrap answers in ```json blocks often
// enough that this cannot be left to chance.
func ExtractJSONObject(text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	if start == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	end := strings.LastIndex(text, "}")
	if end == -1 || end < start {
		return nil, fmt.Errorf("unterminated JSON object in response")
	}
	return []byte(text[start : end+1]), nil
}

// SanitizeFields repairs near-miss responses before schema validation:
// numeric amounts become strings, empty or null fields become the UNKNOWN
// sentinel, unknown keys are dropped. Returns the cleaned JSON.
func SanitizeFields(raw []byte) ([]byte, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	out := make(map[string]any, 3)
	for _, k := range []string{"vendor", "date", "amount"} {
		switch t := m[k].(type) {
		case string:
			s := strings.TrimSpace(t)
			if s == "" {
				s = constants.Unknown
			}
			out[k] = s
		case float64:
			if t == float64(int64(t)) {
				out[k] = fmt.Sprintf("%d", int64(t))
			} else {
				out[k] = fmt.Sprintf("%.2f", t)
			}
		default: // nil or unexpected type
			out[k] = constants.Unknown
		}
	}

	b, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("sanitize: encode: %w", err)
	}
	return b, nil
}
