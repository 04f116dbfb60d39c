package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Parsed is what ParseResponse extracts from raw model output.
type Parsed struct {
	Transcript  string
	Notes       []string
	RawFallback string
}

// ParseResponse decodes the model's raw text into a transcript and an ordered
// notes list. The model is instructed to answer with JSON but that is a
// best-effort contract, so parsing is layered: strip a code fence, try the
// whole text as JSON, try the first-{ to last-} substring, and finally fall
// back to passing the raw text through as the transcript. Never fails.
func ParseResponse(raw string) Parsed {
	cleaned := stripCodeFence(raw)

	if p, ok := parseStructured(cleaned); ok {
		return p
	}

	// the JSON object may be embedded in surrounding prose
	if i, j := strings.IndexByte(cleaned, '{'), strings.LastIndexByte(cleaned, '}'); i >= 0 && j > i {
		if p, ok := parseStructured(cleaned[i : j+1]); ok {
			return p
		}
	}

	return Parsed{
		Transcript:  cleaned,
		Notes:       []string{},
		RawFallback: cleaned,
	}
}

func parseStructured(s string) (Parsed, bool) {
	var decoded struct {
		Transcript string          `json:"transcript"`
		Notes      json.RawMessage `json:"notes"`
	}
	if err := json.Unmarshal([]byte(s), &decoded); err != nil {
		return Parsed{}, false
	}
	return Parsed{
		Transcript: strings.TrimSpace(decoded.Transcript),
		Notes:      normalizeNotes(decoded.Notes),
	}, true
}

// normalizeNotes accepts either an array of entries or a single multi-line
// string with bullet markers, and returns trimmed non-empty strings in order.
func normalizeNotes(raw json.RawMessage) []string {
	notes := []string{}
	if len(raw) == 0 {
		return notes
	}

	var entries []any
	if err := json.Unmarshal(raw, &entries); err == nil {
		for _, entry := range entries {
			var s string
			switch v := entry.(type) {
			case string:
				s = v
			default:
				s = fmt.Sprint(v)
			}
			s = strings.TrimSpace(s)
			if s != "" {
				notes = append(notes, s)
			}
		}
		return notes
	}

	var block string
	if err := json.Unmarshal(raw, &block); err == nil {
		for _, line := range strings.Split(block, "\n") {
			line = strings.TrimSpace(line)
			line = strings.TrimSpace(strings.TrimLeft(line, "-•"))
			if line != "" {
				notes = append(notes, line)
			}
		}
	}
	return notes
}

// stripCodeFence removes a leading ``` or ```json line and a trailing ```
// if present.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
