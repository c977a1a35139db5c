// Package summarizer implements the Summarizer (C7): condensing a run of
// dialogue turns into the single summary text the coordinator ingests.
package summarizer

import (
	"context"
	"fmt"
	"strings"
)

// Turn is one line of dialogue to summarize.
type Turn struct {
	Role    string
	Content string
}

// Summarizer wraps a single LLM call over an assembled transcript.
type Summarizer struct {
	adapter adapter
}

type adapter interface {
	Summarize(ctx context.Context, dialogue string) (string, error)
}

// New creates a Summarizer over any adapter exposing Summarize (normally
// *llm.Adapter).
func New(adapter adapter) *Summarizer {
	return &Summarizer{adapter: adapter}
}

// Summarize assembles turns into a flat transcript and asks the adapter to
// condense it.
func (s *Summarizer) Summarize(ctx context.Context, turns []Turn) (string, error) {
	dialogue := assembleContext(turns)
	out, err := s.adapter.Summarize(ctx, dialogue)
	if err != nil {
		return "", fmt.Errorf("summarizer: %w", err)
	}
	return out, nil
}

func assembleContext(turns []Turn) string {
	lines := make([]string, len(turns))
	for i, t := range turns {
		lines[i] = fmt.Sprintf("%s: %s", t.Role, t.Content)
	}
	return strings.Join(lines, "\n")
}
