package elasticsearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"elarocks/config"
	"elarocks/internal/model"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/typedapi/core/search"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"github.com/rs/zerolog/log"
)

var (
	// ErrBackendUnavailable means the search request never got a response.
	ErrBackendUnavailable = errors.New("search backend unavailable")
	// ErrBackendError means the backend answered with an error status.
	ErrBackendError = errors.New("search backend error")
)

const (
	maxErrorBody   = 4 << 10
	eventCodeField = "event.code"
	timestampField = "@timestamp"
)

// Query selects the hits of one Sysmon event code strictly before Before.
type Query struct {
	EventCode string
	Before    time.Time
	Size      int
}

// DocumentSource returns the hits for a query in backend order.
type DocumentSource interface {
	Fetch(ctx context.Context, q Query) ([]model.RawDocument, error)
}

type elasticsearchDocumentSource struct {
	esTypedClient *elasticsearch.TypedClient
	index         string
}

// NewDocumentSource connects to the configured cluster. When ConnectTimeout is
// positive the connection is verified (with backoff) before returning.
func NewDocumentSource(cfg *config.Config) (DocumentSource, error) {
	client, err := NewTypedClient(cfg.Elasticsearch)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create Typed Elasticsearch Client")
		return nil, err
	}
	if cfg.Elasticsearch.ConnectTimeout > 0 {
		if err := VerifyConnection(context.Background(), client, cfg.Elasticsearch.ConnectTimeout); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
	}
	return NewDocumentSourceFromClient(client, cfg.Elasticsearch.Index), nil
}

func NewDocumentSourceFromClient(client *elasticsearch.TypedClient, index string) DocumentSource {
	return &elasticsearchDocumentSource{
		esTypedClient: client,
		index:         index,
	}
}

// BuildSearchRequest matches event.code and bounds @timestamp from above.
func BuildSearchRequest(q Query) *search.Request {
	before := q.Before.UTC().Format(time.RFC3339Nano)
	size := q.Size
	return &search.Request{
		Query: &types.Query{
			Bool: &types.BoolQuery{
				Must: []types.Query{
					{
						Match: map[string]types.MatchQuery{
							eventCodeField: {Query: q.EventCode},
						},
					},
					{
						Range: map[string]types.RangeQuery{
							timestampField: types.DateRangeQuery{
								Lt: &before,
							},
						},
					},
				},
			},
		},
		Size: &size,
	}
}

func (s *elasticsearchDocumentSource) Fetch(ctx context.Context, q Query) ([]model.RawDocument, error) {
	httpRes, err := s.esTypedClient.Search().
		Index(s.index).
		Request(BuildSearchRequest(q)).
		Perform(ctx)
	if err != nil {
		log.Error().Err(err).Str("event_code", q.EventCode).Msg("Error executing Elasticsearch search via TypedClient")
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer httpRes.Body.Close()

	if httpRes.StatusCode >= http.StatusMultipleChoices {
		err := decodeErrorBody(httpRes)
		log.Error().Err(err).Int("status", httpRes.StatusCode).Str("event_code", q.EventCode).Msg("Elasticsearch search returned an error")
		return nil, fmt.Errorf("%w: status %d: %v", ErrBackendError, httpRes.StatusCode, err)
	}

	res := search.NewResponse()
	if err := json.NewDecoder(httpRes.Body).Decode(res); err != nil {
		log.Error().Err(err).Str("event_code", q.EventCode).Msg("Failed to decode Elasticsearch search response")
		return nil, fmt.Errorf("%w: decoding search response: %v", ErrBackendError, err)
	}

	docs := make([]model.RawDocument, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		doc, ok := toRawDocument(hit)
		if !ok {
			continue
		}
		docs = append(docs, doc)
	}

	log.Debug().
		Str("event_code", q.EventCode).
		Int("returned_hits", len(res.Hits.Hits)).
		Int("documents", len(docs)).
		Msg("Elasticsearch search successful")
	if len(res.Hits.Hits) >= q.Size && q.Size > 0 {
		log.Warn().Str("event_code", q.EventCode).Int("size", q.Size).Msg("Result set reached the page size; later hits are not fetched")
	}
	return docs, nil
}

// decodeErrorBody describes a non-2xx response. Bodies that are not an
// Elasticsearch error document, such as proxy pages, are quoted verbatim.
func decodeErrorBody(res *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("reading error body: %w", err)
	}
	esErr := types.NewElasticsearchError()
	if json.Unmarshal(body, esErr) == nil && esErr.ErrorCause.Type != "" {
		esErr.Status = res.StatusCode
		return esErr
	}
	return fmt.Errorf("%s", strings.TrimSpace(string(body)))
}

func toRawDocument(hit types.Hit) (model.RawDocument, bool) {
	doc := model.RawDocument{Index: hit.Index_}
	if hit.Id_ != nil {
		doc.ID = *hit.Id_
	}
	if hit.Source_ == nil {
		log.Debug().Str("doc_id", doc.ID).Msg("Hit has no _source, skipping")
		return doc, false
	}
	if err := json.Unmarshal(hit.Source_, &doc.Source); err != nil {
		log.Warn().Err(err).Str("doc_id", doc.ID).Msg("Error unmarshalling Elasticsearch hit source")
		return doc, false
	}
	return doc, true
}
