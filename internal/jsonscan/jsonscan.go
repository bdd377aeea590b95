// Package jsonscan recovers JSON objects from free-form model output.
package jsonscan

import (
	"encoding/json"
	"regexp"
	"strings"
)

// fenceRe matches markdown code-fence markers, with or without a language tag.
var fenceRe = regexp.MustCompile("(?m)^\\s*```[A-Za-z0-9_-]*\\s*$|```[A-Za-z0-9_-]*")

// StripFences removes markdown code-fence markers and trims the result.
func StripFences(s string) string {
	return strings.TrimSpace(fenceRe.ReplaceAllString(s, ""))
}

// FirstObject returns the first balanced {...} span in s. Braces inside JSON
// string literals are ignored.
func FirstObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	for start >= 0 {
		if end, ok := matchBrace(s, start); ok {
			return s[start : end+1], true
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

// matchBrace returns the index of the brace closing the one at open.
func matchBrace(s string, open int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := open; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// TryParseObject strips fences, locates the first balanced object and decodes
// it into T. Any failure reports ok=false.
func TryParseObject[T any](raw string) (T, bool) {
	var zero T
	obj, ok := FirstObject(StripFences(raw))
	if !ok {
		return zero, false
	}
	var out T
	if err := json.Unmarshal([]byte(obj), &out); err != nil {
		return zero, false
	}
	return out, true
}
