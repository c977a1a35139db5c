package summarizer

import (
	"context"
	"strings"
	"testing"
)

type fakeAdapter struct {
	gotDialogue string
	reply       string
}

func (f *fakeAdapter) Summarize(_ context.Context, dialogue string) (string, error) {
	f.gotDialogue = dialogue
	return f.reply, nil
}

func TestSummarize_AssemblesTurns(t *testing.T) {
	fa := &fakeAdapter{reply: "condensed summary"}
	s := New(fa)

	out, err := s.Summarize(context.Background(), []Turn{
		{Role: "user", Content: "I adopted a cat"},
		{Role: "assistant", Content: "What's their name?"},
		{Role: "user", Content: "Luna"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "condensed summary" {
		t.Fatalf("unexpected summary: %s", out)
	}
	if !strings.Contains(fa.gotDialogue, "user: I adopted a cat") {
		t.Fatalf("expected assembled dialogue to contain turn text, got %q", fa.gotDialogue)
	}
}

func TestSummarize_Empty(t *testing.T) {
	fa := &fakeAdapter{reply: ""}
	s := New(fa)

	if _, err := s.Summarize(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fa.gotDialogue != "" {
		t.Fatalf("expected empty dialogue, got %q", fa.gotDialogue)
	}
}
