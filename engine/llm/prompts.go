package llm

const extractEntitiesPrompt = `You extract named entities from a dialogue summary so they can be tracked
as nodes in a memory graph. Entities are people, places, objects, or
concepts worth remembering across conversations. If the summary refers to
the user themself (I, me, my), use the literal token USER_ID as the
entity name instead of a pronoun.

Respond with ONLY a JSON object of this shape, no prose, no code fences:
{"entities": [{"name": "...", "type": "..."}]}

If there are no entities worth tracking, respond with {"entities": []}.

Summary:
%s`

const buildRelationsPrompt = `You extract relations between the entities below, grounded in the dialogue
summary. Each relation connects two entity names exactly as given and
carries the underlying fact sentence it was inferred from.

Entities:
%s

Summary:
%s

Respond with ONLY a JSON object of this shape, no prose, no code fences:
{"relations": [{"source": "...", "target": "...", "relation_type": "...", "fact": "..."}]}

If no relation holds between any pair, respond with {"relations": []}.`

const relCheckPrompt = `A new candidate fact is being added to a memory store. Compare it against
the existing facts below and classify the relationship for each.

result codes:
  0 = unrelated — the candidate fact doesn't bear on any existing fact
  1 = conflict — the candidate fact contradicts an existing fact (the
      existing fact should be superseded)
  2 = duplicate — the candidate fact restates an existing fact (the
      candidate should be dropped)

Candidate fact:
%s

Existing facts:
%s

Respond with ONLY a JSON object keyed by the existing fact's index (as a
string), no prose, no code fences:
{"0": {"reason": "...", "result": 0, "existing_fact_idx": 0}}`

const resummarizePrompt = `The following summary is now out of date because one of its facts has
been superseded by a newer one. Rewrite the summary so it reflects the new
fact and no longer states the old one. Keep everything else unchanged.

Old summary:
%s

Conflicting fact:
%s

New fact:
%s

Respond with ONLY the updated summary text, no prose, no code fences.`

const summarizePrompt = `Summarize the following conversation turns into a single short paragraph
capturing what's worth remembering long-term: stable facts, preferences,
and relationships. Omit small talk and anything already obvious from
context. Respond with ONLY the summary text, no prose, no code fences.

Conversation:
%s`
