package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
)

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// ElasticStore keeps chunks in an Elasticsearch dense_vector index served through an alias.
// Replace builds a fresh physical index and moves the alias in one _aliases call.
type ElasticStore struct {
	es     *elasticsearch.Client
	alias  string
	size   atomic.Int64
	logger Logger
}

func NewElasticStore(es *elasticsearch.Client, alias string, log Logger) *ElasticStore {
	return &ElasticStore{
		es:     es,
		alias:  alias,
		logger: log.With(map[string]interface{}{"component": "elastic-store", "alias": alias}),
	}
}

func (s *ElasticStore) Backend() string { return "elasticsearch" }

func (s *ElasticStore) Size() int { return int(s.size.Load()) }

type esChunk struct {
	ID      string    `json:"id"`
	Source  string    `json:"source"`
	Ordinal int       `json:"ordinal"`
	Text    string    `json:"text"`
	Vector  []float32 `json:"vector"`
}

// Load reports whether the alias already points at a populated index.
func (s *ElasticStore) Load(ctx context.Context) (bool, error) {
	res, err := s.es.Indices.ExistsAlias([]string{s.alias}, s.es.Indices.ExistsAlias.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("checking alias %s: %w", s.alias, err)
	}
	res.Body.Close()
	if res.StatusCode == 404 {
		return false, nil
	}
	if res.IsError() {
		return false, fmt.Errorf("checking alias %s: %s", s.alias, res.Status())
	}

	count, err := s.count(ctx)
	if err != nil {
		return false, err
	}
	if count == 0 {
		return false, nil
	}

	s.size.Store(count)
	return true, nil
}

func (s *ElasticStore) count(ctx context.Context) (int64, error) {
	res, err := s.es.Count(s.es.Count.WithIndex(s.alias), s.es.Count.WithContext(ctx))
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w", s.alias, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, fmt.Errorf("counting %s: %s", s.alias, res.String())
	}

	var body struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decoding count response: %w", err)
	}
	return body.Count, nil
}

func (s *ElasticStore) Replace(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return fmt.Errorf("refusing to publish an empty index to %s", s.alias)
	}
	dims := len(records[0].Vector)
	for _, r := range records {
		if len(r.Vector) != dims {
			return fmt.Errorf("%w: record %s has %d dims, want %d", ErrDimensionMismatch, r.ID, len(r.Vector), dims)
		}
	}

	index := fmt.Sprintf("%s-%s-%s", s.alias, time.Now().UTC().Format("20060102150405"), uuid.NewString()[:8])

	if err := s.createIndex(ctx, index, dims); err != nil {
		return err
	}
	if err := s.bulkLoad(ctx, index, records); err != nil {
		s.deleteIndices(ctx, []string{index})
		return err
	}

	previous, err := s.aliasedIndices(ctx)
	if err != nil {
		s.deleteIndices(ctx, []string{index})
		return err
	}
	if err := s.swapAlias(ctx, index, previous); err != nil {
		s.deleteIndices(ctx, []string{index})
		return err
	}

	s.size.Store(int64(len(records)))
	s.logger.Info("alias swapped", map[string]interface{}{
		"index":    index,
		"previous": previous,
		"chunks":   len(records),
	})

	if len(previous) > 0 {
		s.deleteIndices(ctx, previous)
	}
	return nil
}

func (s *ElasticStore) createIndex(ctx context.Context, index string, dims int) error {
	mapping := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"id":      map[string]interface{}{"type": "keyword"},
				"source":  map[string]interface{}{"type": "keyword"},
				"ordinal": map[string]interface{}{"type": "integer"},
				"text":    map[string]interface{}{"type": "text"},
				"vector": map[string]interface{}{
					"type":       "dense_vector",
					"dims":       dims,
					"index":      true,
					"similarity": "cosine",
				},
			},
		},
	}
	body, err := json.Marshal(mapping)
	if err != nil {
		return err
	}

	res, err := s.es.Indices.Create(index,
		s.es.Indices.Create.WithBody(bytes.NewReader(body)),
		s.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("creating index %s: %w", index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("creating index %s: %s", index, res.String())
	}
	return nil
}

func (s *ElasticStore) bulkLoad(ctx context.Context, index string, records []Record) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range records {
		meta := map[string]interface{}{"index": map[string]interface{}{"_index": index, "_id": r.ID}}
		if err := enc.Encode(meta); err != nil {
			return err
		}
		if err := enc.Encode(esChunk{ID: r.ID, Source: r.Source, Ordinal: r.Ordinal, Text: r.Text, Vector: r.Vector}); err != nil {
			return err
		}
	}

	res, err := s.es.Bulk(&buf,
		s.es.Bulk.WithContext(ctx),
		s.es.Bulk.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("bulk indexing into %s: %w", index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("bulk indexing into %s: %s", index, res.String())
	}

	var body struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return fmt.Errorf("decoding bulk response: %w", err)
	}
	if body.Errors {
		return fmt.Errorf("bulk indexing into %s reported item failures", index)
	}
	return nil
}

func (s *ElasticStore) aliasedIndices(ctx context.Context) ([]string, error) {
	res, err := s.es.Indices.GetAlias(
		s.es.Indices.GetAlias.WithName(s.alias),
		s.es.Indices.GetAlias.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("reading alias %s: %w", s.alias, err)
	}
	defer res.Body.Close()
	if res.StatusCode == 404 {
		return nil, nil
	}
	if res.IsError() {
		return nil, fmt.Errorf("reading alias %s: %s", s.alias, res.String())
	}

	var body map[string]json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding alias response: %w", err)
	}
	indices := make([]string, 0, len(body))
	for name := range body {
		indices = append(indices, name)
	}
	return indices, nil
}

func (s *ElasticStore) swapAlias(ctx context.Context, index string, previous []string) error {
	actions := make([]map[string]interface{}, 0, len(previous)+1)
	for _, old := range previous {
		actions = append(actions, map[string]interface{}{
			"remove": map[string]interface{}{"index": old, "alias": s.alias},
		})
	}
	actions = append(actions, map[string]interface{}{
		"add": map[string]interface{}{"index": index, "alias": s.alias},
	})

	body, err := json.Marshal(map[string]interface{}{"actions": actions})
	if err != nil {
		return err
	}

	res, err := s.es.Indices.UpdateAliases(bytes.NewReader(body), s.es.Indices.UpdateAliases.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("moving alias %s: %w", s.alias, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("moving alias %s: %s", s.alias, res.String())
	}
	return nil
}

func (s *ElasticStore) deleteIndices(ctx context.Context, indices []string) {
	res, err := s.es.Indices.Delete(indices, s.es.Indices.Delete.WithContext(ctx))
	if err != nil {
		s.logger.Warn("failed to delete index", map[string]interface{}{"indices": indices, "error": err.Error()})
		return
	}
	defer res.Body.Close()
	if res.IsError() {
		s.logger.Warn("failed to delete index", map[string]interface{}{"indices": indices, "status": res.Status()})
	}
}

// Search runs an approximate kNN query. Elasticsearch reports cosine as (1+cos)/2;
// scores are mapped back so both backends rank on the same scale.
func (s *ElasticStore) Search(ctx context.Context, vector []float32, k int) ([]Match, error) {
	if k <= 0 {
		return nil, nil
	}
	if s.size.Load() == 0 {
		return nil, ErrIndexNotLoaded
	}

	candidates := k * 10
	if candidates < 50 {
		candidates = 50
	}
	query := map[string]interface{}{
		"size": k,
		"knn": map[string]interface{}{
			"field":          "vector",
			"query_vector":   vector,
			"k":              k,
			"num_candidates": candidates,
		},
		"_source": []string{"id", "source", "ordinal", "text"},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	res, err := s.es.Search(
		s.es.Search.WithIndex(s.alias),
		s.es.Search.WithBody(bytes.NewReader(body)),
		s.es.Search.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrSearchFailed, responseText(res))
	}

	var r struct {
		Hits struct {
			Hits []struct {
				Score  float64 `json:"_score"`
				Source esChunk `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrSearchFailed, err)
	}

	matches := make([]Match, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		matches = append(matches, Match{
			Record: Record{
				ID:      hit.Source.ID,
				Source:  hit.Source.Source,
				Ordinal: hit.Source.Ordinal,
				Text:    hit.Source.Text,
			},
			Score: 2*hit.Score - 1,
		})
	}
	return matches, nil
}

func responseText(res *esapi.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(res.Body, 512))
	return strings.TrimSpace(res.Status() + " " + string(raw))
}
