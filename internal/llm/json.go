package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

var objectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// ExtractJSONObject parses a JSON object from an LLM response. If the text
// does not parse as-is, the first '{' through the last '}' is tried instead,
// which recovers objects wrapped in prose or markdown fences. Returns nil if
// no object can be recovered.
func ExtractJSONObject(text string) map[string]any {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(text), &result); err == nil {
		return result
	}

	span := objectPattern.FindString(text)
	if span == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(span), &result); err != nil {
		return nil
	}
	return result
}
