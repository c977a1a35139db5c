package document

import (
	"encoding/json"
	"testing"
)

func TestMetadata_RoundTrip(t *testing.T) {
	m := Metadata{UserID: "u1", GroupID: "g1", Username: "alice", SummaryID: "s1"}
	b, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var out Metadata
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out != m {
		t.Fatalf("round trip mismatch: got %+v, want %+v", out, m)
	}
}

func TestMetadata_OmitsEmptyOptionalFields(t *testing.T) {
	m := Metadata{UserID: "u1"}
	b, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	for _, field := range []string{"group_id", "username", "summary_id"} {
		if contains(s, field) {
			t.Errorf("expected %q to be omitted from %s", field, s)
		}
	}
}

func contains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}
