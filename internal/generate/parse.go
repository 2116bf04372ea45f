package generate

import (
	"encoding/json"
	"errors"
	"strings"

	"blogsmith/internal/core"
)

var errNoObject = errors.New("no JSON object found in response")

// ParseResult extracts the JSON object from raw model output. Code fences and any
// prose around the outermost braces are discarded first.
func ParseResult(raw string) (*core.GenerationResult, error) {
	text := ExtractJSON(raw)
	if !strings.HasPrefix(text, "{") {
		return nil, &core.MalformedResponseError{Raw: raw, Err: errNoObject}
	}

	var result core.GenerationResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, &core.MalformedResponseError{Raw: raw, Err: err}
	}
	return &result, nil
}

// ExtractJSON strips Markdown code fences and slices from the first '{' to the last '}'.
func ExtractJSON(raw string) string {
	text := strings.ReplaceAll(raw, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)

	first := strings.Index(text, "{")
	last := strings.LastIndex(text, "}")
	if first != -1 && last > first {
		text = text[first : last+1]
	}
	return text
}
