// Package llm implements the LLM Adapter (C5): entity/relation extraction,
// conflict/duplicate detection, summary rewriting, and dialogue
// summarization, all backed by a single chat completion seam.
package llm

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/AstrBotDevs/atri/engine/domain"
	"github.com/AstrBotDevs/atri/pkg/fn"
	"github.com/AstrBotDevs/atri/pkg/resilience"
)

// Provider is the minimal chat-completion seam every LLM operation in this
// package is built from.
type Provider interface {
	Chat(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// AnthropicAdapter implements Provider over the Anthropic Messages API. A
// circuit breaker guards the upstream call so a failing API degrades into
// fast ErrCircuitOpen rejections instead of piling up blocked requests, and
// a token-bucket limiter keeps the coordinator's per-user-key concurrency
// from bursting past Anthropic's rate limits.
type AnthropicAdapter struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	breaker   *resilience.Breaker
	limiter   *resilience.Limiter
	retry     fn.RetryOpts
}

// NewAnthropicAdapter creates an AnthropicAdapter for the given model.
func NewAnthropicAdapter(apiKey, model string, maxTokens int64) *AnthropicAdapter {
	return &AnthropicAdapter{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		maxTokens: maxTokens,
		breaker:   resilience.NewBreaker(resilience.DefaultBreakerOpts),
		limiter:   resilience.NewLimiter(resilience.LimiterOpts{Rate: 5, Burst: 10}),
		retry:     fn.RetryOpts{MaxAttempts: 5},
	}
}

// Chat sends a single-turn request with an optional system prompt and
// returns the concatenated text content of the reply. The call waits for a
// rate-limit token, is attempted up to five times with no wait between
// attempts, and is tripped through a
// circuit breaker so a sustained Anthropic outage fails fast rather than
// queuing up retries forever.
func (a *AnthropicAdapter) Chat(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("llm: rate limit wait: %w", err)
	}
	result := resilience.CallResult(a.breaker, ctx, func(ctx context.Context) fn.Result[string] {
		return fn.Retry(ctx, a.retry, func(ctx context.Context) fn.Result[string] {
			reply, err := a.chatOnce(ctx, systemPrompt, userPrompt)
			if err != nil {
				return fn.Err[string](err)
			}
			return fn.Ok(reply)
		})
	})
	return result.Unwrap()
}

func (a *AnthropicAdapter) chatOnce(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: a.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}

	message, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("llm: chat: %w", err)
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

// Adapter wraps a Provider with the memory engine's domain-level
// operations (entity extraction, relation building, conflict checking,
// summary rewriting, summarization).
type Adapter struct {
	provider Provider
}

// NewAdapter wraps any Provider (AnthropicAdapter or a test double) with
// the domain operations.
func NewAdapter(provider Provider) *Adapter {
	return &Adapter{provider: provider}
}

// ExtractEntities identifies entities worth tracking in a dialogue
// summary.
func (a *Adapter) ExtractEntities(ctx context.Context, text string) ([]domain.Entity, error) {
	reply, err := a.provider.Chat(ctx, extractEntitiesPrompt, text)
	if err != nil {
		return nil, fmt.Errorf("llm: extract entities: %w", err)
	}
	obj := parseJSON(reply)
	raw, _ := obj["entities"].([]any)

	entities := make([]domain.Entity, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name, _ := m["name"].(string)
		typ, _ := m["type"].(string)
		if name == "" {
			continue
		}
		entities = append(entities, domain.Entity{Name: name, Type: typ})
	}
	return entities, nil
}

// BuildRelations identifies relations between the given entities, grounded
// in the dialogue summary.
func (a *Adapter) BuildRelations(ctx context.Context, entities []domain.Entity, text string) ([]domain.Relation, error) {
	var entLines strings.Builder
	for _, e := range entities {
		fmt.Fprintf(&entLines, "- %s (%s)\n", e.Name, e.Type)
	}

	prompt := fmt.Sprintf(buildRelationsPrompt, entLines.String(), text)
	reply, err := a.provider.Chat(ctx, "", prompt)
	if err != nil {
		return nil, fmt.Errorf("llm: build relations: %w", err)
	}
	obj := parseJSON(reply)
	raw, _ := obj["relations"].([]any)

	relations := make([]domain.Relation, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		source, _ := m["source"].(string)
		target, _ := m["target"].(string)
		relType, _ := m["relation_type"].(string)
		fact, _ := m["fact"].(string)
		if source == "" || target == "" {
			continue
		}
		relations = append(relations, domain.Relation{
			Source:       source,
			Target:       target,
			RelationType: relType,
			Fact:         fact,
			HasFact:      fact != "",
		})
	}
	return relations, nil
}

// CheckConflict classifies a candidate fact against the closest existing
// facts, keyed by their position in existingFacts.
func (a *Adapter) CheckConflict(ctx context.Context, candidateFact string, existingFacts []string) (map[int]domain.ConflictCheck, error) {
	var factLines strings.Builder
	for i, f := range existingFacts {
		fmt.Fprintf(&factLines, "%d: %s\n", i, f)
	}

	prompt := fmt.Sprintf(relCheckPrompt, candidateFact, factLines.String())
	reply, err := a.provider.Chat(ctx, "", prompt)
	if err != nil {
		return nil, fmt.Errorf("llm: check conflict: %w", err)
	}
	obj := parseJSON(reply)

	out := make(map[int]domain.ConflictCheck, len(obj))
	for key, val := range obj {
		idx, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		m, ok := val.(map[string]any)
		if !ok {
			continue
		}
		reason, _ := m["reason"].(string)
		resultF, _ := m["result"].(float64)
		existingIdxF, _ := m["existing_fact_idx"].(float64)
		out[idx] = domain.ConflictCheck{
			Reason:          reason,
			Result:          domain.ConflictResult(int(resultF)),
			ExistingFactIdx: int(existingIdxF),
		}
	}
	return out, nil
}

// RewriteSummary rewrites an old summary so it reflects a new fact that
// superseded a conflicting one.
func (a *Adapter) RewriteSummary(ctx context.Context, oldSummary, conflictingFact, newFact string) (string, error) {
	prompt := fmt.Sprintf(resummarizePrompt, oldSummary, conflictingFact, newFact)
	reply, err := a.provider.Chat(ctx, "", prompt)
	if err != nil {
		return "", fmt.Errorf("llm: rewrite summary: %w", err)
	}
	return strings.TrimSpace(reply), nil
}

// Summarize condenses a dialogue into a single long-term-memory-worthy
// summary.
func (a *Adapter) Summarize(ctx context.Context, dialogue string) (string, error) {
	prompt := fmt.Sprintf(summarizePrompt, dialogue)
	reply, err := a.provider.Chat(ctx, "", prompt)
	if err != nil {
		return "", fmt.Errorf("llm: summarize: %w", err)
	}
	return strings.TrimSpace(reply), nil
}
