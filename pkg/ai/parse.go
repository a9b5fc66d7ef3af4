package ai

import (
	"encoding/json"
	"strings"
)

// StripJSONFence removes a surrounding markdown code fence from model
// output. Models frequently wrap JSON in ```json blocks even when told
// not to.
func StripJSONFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx != -1 {
		// drop the language tag on the fence line
		s = s[idx+1:]
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

// ParseJSONArray decodes a JSON array out of model output. When the raw
// text fails to decode it salvages the region between the first '[' and
// the last ']' before giving up.
func ParseJSONArray[T any](raw string) ([]T, error) {
	s := StripJSONFence(raw)

	var out []T
	if err := json.Unmarshal([]byte(s), &out); err == nil {
		return out, nil
	}

	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start == -1 || end == -1 || end <= start {
		return nil, &MalformedResponseError{Raw: raw}
	}
	if err := json.Unmarshal([]byte(s[start:end+1]), &out); err != nil {
		return nil, &MalformedResponseError{Raw: raw, cause: err}
	}
	return out, nil
}

// ParseJSONObject decodes a JSON object out of model output, salvaging
// the region between the first '{' and the last '}' when needed.
func ParseJSONObject[T any](raw string, out *T) error {
	s := StripJSONFence(raw)

	if err := json.Unmarshal([]byte(s), out); err == nil {
		return nil
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end <= start {
		return &MalformedResponseError{Raw: raw}
	}
	if err := json.Unmarshal([]byte(s[start:end+1]), out); err != nil {
		return &MalformedResponseError{Raw: raw, cause: err}
	}
	return nil
}

type MalformedResponseError struct {
	Raw   string
	cause error
}

func (e *MalformedResponseError) Error() string {
	if e.cause != nil {
		return "malformed model response: " + e.cause.Error()
	}
	return "malformed model response"
}

func (e *MalformedResponseError) Unwrap() error {
	return e.cause
}
