package ai

import (
	"encoding/json"
	"strings"

	"tennisweb/internal/errors"
)

// Decision is the structured verdict a match completion must produce
type Decision struct {
	UserID int64  `json:"user_id"`
	Reason string `json:"reason"`
}

// ExtractDecision locates the first JSON object inside raw model output and
// decodes it into a Decision. Models wrap their answer in prose or code
// fences often enough that a plain unmarshal of the whole reply is useless.
// Any failure, no object, bad JSON, missing or wrongly-typed fields,
// preserves the raw output in the returned error.
func ExtractDecision(raw string) (*Decision, error) {
	obj, ok := firstJSONObject(raw)
	if !ok {
		return nil, errors.ParseFailed(raw)
	}

	var aux struct {
		UserID *json.Number `json:"user_id"`
		Reason *string      `json:"reason"`
	}
	dec := json.NewDecoder(strings.NewReader(obj))
	dec.UseNumber()
	if err := dec.Decode(&aux); err != nil {
		return nil, errors.ParseFailed(raw)
	}
	if aux.UserID == nil || aux.Reason == nil {
		return nil, errors.ParseFailed(raw)
	}
	userID, err := aux.UserID.Int64()
	if err != nil {
		return nil, errors.ParseFailed(raw)
	}
	return &Decision{UserID: userID, Reason: *aux.Reason}, nil
}

// firstJSONObject scans for the first balanced {...} span, tracking string
// literals so braces inside values do not end the object early.
func firstJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
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
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
