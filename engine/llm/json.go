package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fencedJSONBlock = regexp.MustCompile(`(?is)` + "```" + `(?:json)?\s*(.*?)` + "```")

// parseJSON extracts and decodes a JSON object from an LLM completion. The
// completion is tolerated to arrive wrapped in a fenced code block (the
// common case), as bare JSON, or as a JSON object embedded in surrounding
// text (the first object starting at the first '{' is decoded); any other
// shape — including a parse failure — yields an empty map rather than an
// error, since a malformed LLM response should degrade to "nothing
// extracted", not halt the pipeline.
func parseJSON(text string) map[string]any {
	candidate := text
	if m := fencedJSONBlock.FindStringSubmatch(text); m != nil {
		candidate = m[1]
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(candidate), &out); err == nil {
		return out
	}
	if i := strings.Index(candidate, "{"); i >= 0 {
		var obj map[string]any
		if err := json.NewDecoder(strings.NewReader(candidate[i:])).Decode(&obj); err == nil {
			return obj
		}
	}
	return map[string]any{}
}
