package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// fencedBlockRE matches a ```json ... ``` (or bare ```) fenced block.
var fencedBlockRE = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")

// StripCodeFence returns the body of the first fenced code block in s, or s
// trimmed when there is none.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if m := fencedBlockRE.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// DecodeJSONObject decodes the JSON object in raw model output into out.
// It tries the text as-is, then the fenced block, then the first
// brace-balanced object.
func DecodeJSONObject(raw string, out any) error {
	text := strings.TrimSpace(raw)
	if text == "" {
		return fmt.Errorf("empty JSON")
	}
	if err := json.Unmarshal([]byte(text), out); err == nil {
		return nil
	}
	if fenced := StripCodeFence(text); fenced != text {
		if err := json.Unmarshal([]byte(fenced), out); err == nil {
			return nil
		}
		text = fenced
	}
	obj := ExtractJSONObject(text)
	if strings.TrimSpace(obj) == "" {
		return fmt.Errorf("no JSON object found")
	}
	if err := json.Unmarshal([]byte(obj), out); err != nil {
		return fmt.Errorf("decoding JSON object: %w", err)
	}
	return nil
}

// ExtractJSONObject returns the first brace-balanced {...} span of s,
// honouring string literals and escapes. Empty when none is complete.
func ExtractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inString {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch ch {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
