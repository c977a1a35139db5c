// Package coordinator implements the Memory Coordinator (C6): the ingest
// and retrieve pipelines that tie the LLM adapter, the graph store, and the
// two vector databases (facts, summaries) into one consistent memory.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/AstrBotDevs/atri/engine/document"
	"github.com/AstrBotDevs/atri/engine/domain"
	"github.com/AstrBotDevs/atri/engine/graph"
	"github.com/AstrBotDevs/atri/engine/llm"
	"github.com/AstrBotDevs/atri/engine/summarizer"
	"github.com/AstrBotDevs/atri/engine/vectordb"
	"github.com/AstrBotDevs/atri/pkg/metrics"
	"github.com/AstrBotDevs/atri/pkg/queue"
)

// factSearchK and summarySearchK are the candidate pool sizes the retrieve
// pipeline draws from before personalized PageRank re-ranks them.
const (
	factSearchK     = 5
	summarySearchK  = 3
	ingestConflictK = 3
	passageSeedBias = 0.05
	defaultTopN     = 5
	ingestBacklog   = 32
)

// Coordinator wires the LLM adapter, graph store, and vector DBs into the
// ingest/retrieve operations the API layer calls.
type Coordinator struct {
	llm        *llm.Adapter
	summarizer *summarizer.Summarizer
	graphStore *graph.GraphStore
	facts      *vectordb.DB
	summaries  *vectordb.DB
	ingestQ    *queue.PerKeyQueue
	log        *slog.Logger

	mIngested     *metrics.Counter
	mIngestErrors *metrics.Counter
	mConflicts    *metrics.Counter
	mDuplicates   *metrics.Counter
	mSearches     *metrics.Counter
}

// New creates a Coordinator. reg may be nil, in which case metrics are
// recorded into a private, unexposed registry.
func New(llmAdapter *llm.Adapter, summ *summarizer.Summarizer, gs *graph.GraphStore, facts, summaries *vectordb.DB, reg *metrics.Registry, log *slog.Logger) *Coordinator {
	if reg == nil {
		reg = metrics.New()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{
		llm:        llmAdapter,
		summarizer: summ,
		graphStore: gs,
		facts:      facts,
		summaries:  summaries,
		ingestQ:    queue.New(ingestBacklog),
		log:        log,

		mIngested:     reg.Counter("atri_memories_ingested_total", "Total dialogue summaries ingested"),
		mIngestErrors: reg.Counter("atri_ingest_errors_total", "Total ingest pipeline failures"),
		mConflicts:    reg.Counter("atri_fact_conflicts_total", "Total facts that superseded an existing fact"),
		mDuplicates:   reg.Counter("atri_fact_duplicates_total", "Total facts dropped as duplicates"),
		mSearches:     reg.Counter("atri_searches_total", "Total memory searches served"),
	}
}

// Ingest validates and runs req through the ingest pipeline, serialized per
// user_id via the per-key queue so that concurrent ingests for the same
// user never race on the same phase nodes.
func (c *Coordinator) Ingest(ctx context.Context, req domain.IngestRequest) error {
	if err := domain.ValidateIngestRequest(req); err != nil {
		return err
	}

	var pipelineErr error
	err := c.ingestQ.Submit(ctx, req.UserID, func(ctx context.Context) {
		pipelineErr = c.runIngest(ctx, req)
	})
	if err != nil {
		return fmt.Errorf("coordinator: ingest: %w", err)
	}
	if pipelineErr != nil {
		c.mIngestErrors.Inc()
		return pipelineErr
	}
	c.mIngested.Inc()
	return nil
}

func (c *Coordinator) runIngest(ctx context.Context, req domain.IngestRequest) error {
	summaryText, err := c.summarizer.Summarize(ctx, []summarizer.Turn{{Role: "dialogue", Content: req.Text}})
	if err != nil {
		return fmt.Errorf("coordinator: summarize: %w", err)
	}
	if summaryText == domain.SentinelNone || summaryText == domain.SentinelHold {
		c.log.Info("summarizer returned sentinel, skipping ingest", "user_id", req.UserID, "sentinel", summaryText)
		return nil
	}

	entities, err := c.llm.ExtractEntities(ctx, summaryText)
	if err != nil {
		return fmt.Errorf("coordinator: extract entities: %w", err)
	}
	if len(entities) == 0 {
		c.log.Info("no entities extracted, skipping ingest", "user_id", req.UserID)
		return nil
	}

	relations, err := c.llm.BuildRelations(ctx, entities, summaryText)
	if err != nil {
		return fmt.Errorf("coordinator: build relations: %w", err)
	}
	if len(relations) == 0 {
		return nil
	}

	surviving, err := c.resolveConflicts(ctx, req, relations)
	if err != nil {
		return err
	}
	if len(surviving) == 0 {
		return nil
	}

	// Recompute the active entity set as the union of names referenced by
	// surviving relations — an entity the extractor found but that no
	// surviving relation mentions doesn't earn a phase node this round.
	activeNames := make(map[string]bool, len(surviving)*2)
	for _, rel := range surviving {
		activeNames[resolveUserToken(rel.Source, req.UserID)] = true
		activeNames[resolveUserToken(rel.Target, req.UserID)] = true
	}
	activeEntities := make([]domain.Entity, 0, len(entities))
	for _, e := range entities {
		if activeNames[resolveUserToken(e.Name, req.UserID)] {
			activeEntities = append(activeEntities, e)
		}
	}

	now := time.Now()
	passageID := uuid.NewString()
	if err := c.graphStore.AddPassageNode(ctx, domain.PassageNode{ID: passageID, Timestamp: now, UserID: req.UserID}); err != nil {
		return fmt.Errorf("coordinator: add passage node: %w", err)
	}
	if err := c.summaries.Insert(ctx, passageID, summaryText, document.Metadata{UserID: req.UserID, GroupID: req.GroupID, Username: req.Username}); err != nil {
		return fmt.Errorf("coordinator: insert summary: %w", err)
	}

	phaseIDs := make(map[string]string, len(activeEntities))
	for _, e := range activeEntities {
		name := resolveUserToken(e.Name, req.UserID)
		phaseID, err := c.resolveOrCreatePhaseNode(ctx, name, e.Type)
		if err != nil {
			return fmt.Errorf("coordinator: resolve phase node %q: %w", name, err)
		}
		phaseIDs[name] = phaseID

		if err := c.graphStore.AddPassageEdge(ctx, domain.PassageEdge{
			Source: phaseID, Target: passageID, Timestamp: now,
			RelationType: domain.PassagePhaseRelation, UserID: req.UserID, SummaryID: passageID,
		}); err != nil {
			return fmt.Errorf("coordinator: add passage edge: %w", err)
		}
	}

	for _, rel := range surviving {
		if !rel.HasFact {
			continue
		}
		if err := c.insertFact(ctx, req, rel, phaseIDs, passageID, now); err != nil {
			return err
		}
	}
	return nil
}

// resolveConflicts runs the conflict/duplicate check against existing facts
// for every fact-bearing relation and returns the relations that survive.
// A duplicate is dropped outright — it never reaches insertFact. A conflict
// rewrites the summary that owns the superseded fact and removes the stale
// fact and its phase edge, but the incoming relation still survives to be
// persisted as a new fact.
func (c *Coordinator) resolveConflicts(ctx context.Context, req domain.IngestRequest, relations []domain.Relation) ([]domain.Relation, error) {
	surviving := make([]domain.Relation, 0, len(relations))
	for _, rel := range relations {
		if !rel.HasFact {
			surviving = append(surviving, rel)
			continue
		}

		candidates, err := c.facts.Retrieve(ctx, rel.Fact, ingestConflictK, map[string]string{"user_id": req.UserID})
		if err != nil {
			return nil, fmt.Errorf("coordinator: search facts: %w", err)
		}
		if len(candidates) == 0 {
			surviving = append(surviving, rel)
			continue
		}

		existingTexts := make([]string, len(candidates))
		for i, hit := range candidates {
			existingTexts[i] = hit.Doc.Text
		}
		checks, err := c.llm.CheckConflict(ctx, rel.Fact, existingTexts)
		if err != nil {
			return nil, fmt.Errorf("coordinator: check conflict: %w", err)
		}

		dropped := false
		for _, check := range checks {
			if check.ExistingFactIdx < 0 || check.ExistingFactIdx >= len(candidates) {
				continue
			}
			existing := candidates[check.ExistingFactIdx].Doc

			switch check.Result {
			case domain.ConflictDuplicate:
				c.mDuplicates.Inc()
				dropped = true
			case domain.ConflictConflict:
				if err := c.resolveConflict(ctx, existing, rel.Fact); err != nil {
					return nil, err
				}
				c.mConflicts.Inc()
			}
			if dropped {
				break
			}
		}
		if dropped {
			continue
		}
		surviving = append(surviving, rel)
	}
	return surviving, nil
}

// resolveOrCreatePhaseNode finds an existing phase node by name or mints a
// new one — phase nodes are unique by name within the store.
func (c *Coordinator) resolveOrCreatePhaseNode(ctx context.Context, name, typ string) (string, error) {
	existing, ok, err := c.graphStore.FindPhaseNodeByName(ctx, name)
	if err != nil {
		return "", err
	}
	if ok {
		return existing.ID, nil
	}
	id := uuid.NewString()
	if err := c.graphStore.AddPhaseNode(ctx, domain.PhaseNode{ID: id, Name: name, Type: typ}); err != nil {
		return "", err
	}
	return id, nil
}

// insertFact persists a relation that survived conflict resolution: a fact
// record in the facts partition and the phase edge joining its endpoints.
func (c *Coordinator) insertFact(ctx context.Context, req domain.IngestRequest, rel domain.Relation, phaseIDs map[string]string, passageID string, now time.Time) error {
	sourceID, ok := phaseIDs[resolveUserToken(rel.Source, req.UserID)]
	if !ok {
		return nil // entity extraction and relation building disagreed; skip rather than fail the whole ingest
	}
	targetID, ok := phaseIDs[resolveUserToken(rel.Target, req.UserID)]
	if !ok {
		return nil
	}

	factID := uuid.NewString()
	if err := c.facts.Insert(ctx, factID, rel.Fact, document.Metadata{UserID: req.UserID, SummaryID: passageID}); err != nil {
		return fmt.Errorf("coordinator: insert fact: %w", err)
	}
	if err := c.graphStore.AddPhaseEdge(ctx, domain.PhaseEdge{
		Source: sourceID, Target: targetID, Timestamp: now,
		RelationType: rel.RelationType, UserID: req.UserID, FactID: factID,
	}); err != nil {
		return fmt.Errorf("coordinator: add phase edge: %w", err)
	}
	return nil
}

// resolveConflict rewrites the summary the superseded fact came from and
// removes the stale fact and its phase edge.
func (c *Coordinator) resolveConflict(ctx context.Context, existing document.Row, newFact string) error {
	if existing.Metadata.SummaryID != "" {
		oldSummary, err := c.summaries.Get(ctx, existing.Metadata.SummaryID)
		if err == nil {
			rewritten, err := c.llm.RewriteSummary(ctx, oldSummary.Text, existing.Text, newFact)
			if err == nil && rewritten != "" {
				if err := c.summaries.UpdateText(ctx, existing.Metadata.SummaryID, rewritten); err != nil {
					c.log.Warn("rewrite summary update failed", "summary_id", existing.Metadata.SummaryID, "err", err)
				}
			}
		}
	}

	if err := c.graphStore.DeletePhaseEdgeByFactID(ctx, existing.DocID); err != nil {
		return fmt.Errorf("coordinator: delete stale phase edge: %w", err)
	}
	if err := c.facts.Delete(ctx, existing.DocID); err != nil {
		c.log.Warn("delete stale fact failed", "fact_id", existing.DocID, "err", err)
	}
	return nil
}

func resolveUserToken(name, userID string) string {
	if name == domain.USERIDToken {
		return userID
	}
	return name
}
