package genai

import (
	"encoding/json"
	"strings"
)

// ExtractJSON pulls a JSON object out of model output. Models often wrap
// JSON in markdown fences or lead-in prose; this strips fences, then tries
// the outermost brace-delimited slice, and finally falls back to wrapping
// the raw text so callers always get a valid object.
func ExtractJSON(text string) json.RawMessage {
	trimmed := strings.TrimSpace(text)

	if fenced, ok := stripFences(trimmed); ok {
		trimmed = fenced
	}

	if obj, ok := outerObject(trimmed); ok {
		if json.Valid([]byte(obj)) {
			return json.RawMessage(obj)
		}
	}

	wrapped, _ := json.Marshal(map[string]string{"text": text})
	return json.RawMessage(wrapped)
}

func stripFences(s string) (string, bool) {
	if !strings.HasPrefix(s, "```") {
		return s, false
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s), true
}

func outerObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}
