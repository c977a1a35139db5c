package llm

import (
	"context"
	"testing"

	"github.com/AstrBotDevs/atri/engine/domain"
)

type fakeProvider struct {
	reply string
	err   error
}

func (f *fakeProvider) Chat(_ context.Context, _, _ string) (string, error) {
	return f.reply, f.err
}

func TestAdapter_ExtractEntities(t *testing.T) {
	p := &fakeProvider{reply: `{"entities": [{"name": "USER_ID", "type": "person"}, {"name": "Luna", "type": "pet"}]}`}
	a := NewAdapter(p)

	entities, err := a.ExtractEntities(context.Background(), "the user adopted a cat named Luna")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entities) != 2 || entities[1].Name != "Luna" {
		t.Fatalf("unexpected entities: %+v", entities)
	}
}

func TestAdapter_ExtractEntities_EmptyResult(t *testing.T) {
	p := &fakeProvider{reply: `{"entities": []}`}
	a := NewAdapter(p)

	entities, err := a.ExtractEntities(context.Background(), "just small talk")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entities) != 0 {
		t.Fatalf("expected no entities, got %+v", entities)
	}
}

func TestAdapter_BuildRelations(t *testing.T) {
	p := &fakeProvider{reply: `{"relations": [{"source": "USER_ID", "target": "Luna", "relation_type": "owns", "fact": "USER_ID owns a cat named Luna"}]}`}
	a := NewAdapter(p)

	relations, err := a.BuildRelations(context.Background(), []domain.Entity{{Name: "USER_ID"}, {Name: "Luna"}}, "summary")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(relations) != 1 || !relations[0].HasFact {
		t.Fatalf("unexpected relations: %+v", relations)
	}
}

func TestAdapter_CheckConflict(t *testing.T) {
	p := &fakeProvider{reply: `{"0": {"reason": "same fact", "result": 2, "existing_fact_idx": 0}}`}
	a := NewAdapter(p)

	checks, err := a.CheckConflict(context.Background(), "USER_ID owns a cat named Luna", []string{"USER_ID owns a cat named Luna"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c, ok := checks[0]
	if !ok || c.Result != 2 {
		t.Fatalf("unexpected checks: %+v", checks)
	}
}

func TestAdapter_RewriteSummary(t *testing.T) {
	p := &fakeProvider{reply: "User now has two cats: Luna and Mochi."}
	a := NewAdapter(p)

	out, err := a.RewriteSummary(context.Background(), "User has one cat named Luna.", "USER_ID owns one cat", "USER_ID owns two cats")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out == "" {
		t.Fatal("expected non-empty rewritten summary")
	}
}

func TestAdapter_Summarize(t *testing.T) {
	p := &fakeProvider{reply: "User discussed adopting a cat named Luna."}
	a := NewAdapter(p)

	out, err := a.Summarize(context.Background(), "user: I adopted a cat\nassistant: nice, what's their name?\nuser: Luna")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out == "" {
		t.Fatal("expected non-empty summary")
	}
}
