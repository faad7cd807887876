package extractor

import (
	"elarocks/internal/model"
	"elarocks/internal/parser"
	"elarocks/internal/schema"

	"github.com/rs/zerolog/log"
)

// MessageAccessor returns the free-text message of a document, if any.
type MessageAccessor func(doc model.RawDocument) (string, bool)

// AgentAccessor returns the agent name and id of a document. Either may be nil.
type AgentAccessor func(doc model.RawDocument) (name, id *string)

// SourceMessage reads _source.message.
func SourceMessage(doc model.RawDocument) (string, bool) {
	return doc.Lookup("message")
}

// SourceAgent reads _source.agent.name and _source.agent.id.
func SourceAgent(doc model.RawDocument) (name, id *string) {
	if v, ok := doc.Lookup("agent", "name"); ok {
		name = &v
	}
	if v, ok := doc.Lookup("agent", "id"); ok {
		id = &v
	}
	return name, id
}

// Pipeline turns search hits into records for one schema at a time.
// It holds no per-run state and may be shared between runs.
type Pipeline struct {
	message MessageAccessor
	agent   AgentAccessor
}

type Option func(*Pipeline)

func WithMessageAccessor(fn MessageAccessor) Option {
	return func(p *Pipeline) { p.message = fn }
}

func WithAgentAccessor(fn AgentAccessor) Option {
	return func(p *Pipeline) { p.agent = fn }
}

func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{
		message: SourceMessage,
		agent:   SourceAgent,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Extract builds one record per document that carries a message, in input
// order. Documents without a message are skipped.
func (p *Pipeline) Extract(docs []model.RawDocument, s *schema.Schema) model.Batch {
	batch := make(model.Batch, 0, len(docs))
	skipped := 0
	for _, doc := range docs {
		message, ok := p.message(doc)
		if !ok {
			skipped++
			log.Trace().Str("doc_id", doc.ID).Str("index", doc.Index).Msg("Document has no message, skipping")
			continue
		}
		name, id := p.agent(doc)
		batch = append(batch, Build(s, name, id, parser.Decompose(message)))
	}
	log.Debug().
		Str("kind", string(s.Kind())).
		Int("documents", len(docs)).
		Int("records", len(batch)).
		Int("skipped", skipped).
		Msg("Extracted records")
	return batch
}
