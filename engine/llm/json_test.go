package llm

import "testing"

func TestParseJSON_Plain(t *testing.T) {
	obj := parseJSON(`{"entities": []}`)
	if _, ok := obj["entities"]; !ok {
		t.Fatalf("expected entities key, got %v", obj)
	}
}

func TestParseJSON_FencedBlock(t *testing.T) {
	text := "Sure, here it is:\n```json\n{\"entities\": [{\"name\": \"Luna\", \"type\": \"pet\"}]}\n```"
	obj := parseJSON(text)
	entities, ok := obj["entities"].([]any)
	if !ok || len(entities) != 1 {
		t.Fatalf("expected one entity, got %v", obj)
	}
}

func TestParseJSON_Malformed(t *testing.T) {
	obj := parseJSON("not json at all")
	if len(obj) != 0 {
		t.Fatalf("expected empty map for malformed input, got %v", obj)
	}
}

func TestParseJSON_EmptyString(t *testing.T) {
	obj := parseJSON("")
	if len(obj) != 0 {
		t.Fatalf("expected empty map for empty input, got %v", obj)
	}
}
