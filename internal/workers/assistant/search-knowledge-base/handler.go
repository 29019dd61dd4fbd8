package searchknowledgebase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"golang.org/x/sync/errgroup"

	apperrors "bank-assistant/internal/common/errors"
	"bank-assistant/internal/common/metrics"
	"bank-assistant/internal/corpus"
	"bank-assistant/internal/genai"
	"bank-assistant/internal/models"
	"bank-assistant/internal/vectorstore"
)

const (
	TaskType = "search-knowledge-base"

	defaultTopK             = 3
	defaultEmbedConcurrency = 4
)

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// Notifier receives knowledge-base lifecycle events.
type Notifier interface {
	Notify(ctx context.Context, event models.IndexEvent) error
}

// Handler owns the retrieval index. Searches run concurrently; rebuilds are
// serialised and publish a complete new index through the store.
type Handler struct {
	config    *Config
	embedder  genai.Embedder
	store     vectorstore.Store
	splitter  *corpus.Splitter
	notifier  Notifier
	rebuildMu sync.Mutex
	ready     atomic.Bool
	reporter  *apperrors.JobReporter
	logger    Logger
}

func NewHandler(config *Config, embedder genai.Embedder, store vectorstore.Store, log Logger) (*Handler, error) {
	splitter, err := corpus.NewSplitter(config.ChunkSize, config.ChunkOverlap)
	if err != nil {
		return nil, apperrors.NewConfigurationError(err.Error())
	}
	if config.TopK <= 0 {
		config.TopK = defaultTopK
	}
	if config.EmbedConcurrency <= 0 {
		config.EmbedConcurrency = defaultEmbedConcurrency
	}

	logger := log.With(map[string]interface{}{
		"taskType": TaskType,
		"backend":  store.Backend(),
	})

	return &Handler{
		config:   config,
		embedder: embedder,
		store:    store,
		splitter: splitter,
		reporter: apperrors.NewJobReporter(logger),
		logger:   logger,
	}, nil
}

// SetNotifier registers n for rebuild events; nil disables notifications.
func (h *Handler) SetNotifier(n Notifier) {
	h.notifier = n
}

// Ready reports whether an index is available for search.
func (h *Handler) Ready() bool {
	return h.ready.Load()
}

// Size is the number of chunks in the live index.
func (h *Handler) Size() int {
	return h.store.Size()
}

// Initialize loads the persisted index, or builds one from the corpus when none
// exists or the persisted one cannot be read.
func (h *Handler) Initialize(ctx context.Context) error {
	loaded, err := h.store.Load(ctx)
	if err != nil {
		h.logger.Warn("persisted index unreadable, rebuilding", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if loaded {
		h.ready.Store(true)
		metrics.IndexChunks.Set(float64(h.store.Size()))
		h.logger.Info("index loaded", map[string]interface{}{
			"chunks": h.store.Size(),
		})
		return nil
	}

	return h.Rebuild(ctx)
}

// Rebuild regenerates the whole index from the corpus. The previous index keeps
// serving until the new one is complete.
func (h *Handler) Rebuild(ctx context.Context) error {
	h.rebuildMu.Lock()
	defer h.rebuildMu.Unlock()

	start := time.Now()
	documents, chunks, err := h.build(ctx)

	event := models.IndexEvent{
		Type:       models.EventIndexRebuilt,
		Backend:    h.store.Backend(),
		Documents:  documents,
		Chunks:     chunks,
		OccurredAt: time.Now().UTC(),
	}

	if err != nil {
		metrics.IndexRebuilds.WithLabelValues("failure").Inc()
		h.logger.Error("index build failed", map[string]interface{}{
			"error": err.Error(),
		})
		event.Type = models.EventIndexRebuildFailed
		event.Error = err.Error()
		h.notify(ctx, event)
		return err
	}

	h.ready.Store(true)
	metrics.IndexRebuilds.WithLabelValues("success").Inc()
	metrics.IndexChunks.Set(float64(chunks))
	h.logger.Info("index built", map[string]interface{}{
		"documents":  documents,
		"chunks":     chunks,
		"durationMs": time.Since(start).Milliseconds(),
	})
	h.notify(ctx, event)
	return nil
}

func (h *Handler) build(ctx context.Context) (int, int, error) {
	docs, err := corpus.LoadDocuments(h.config.CorpusPath)
	if err != nil {
		return 0, 0, apperrors.NewIndexBuildError(err)
	}

	chunks := h.splitter.SplitDocuments(docs)
	if len(chunks) == 0 {
		return len(docs), 0, apperrors.NewEmptyCorpusError(h.config.CorpusPath)
	}

	records := make([]vectorstore.Record, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.config.EmbedConcurrency)

	for i, chunk := range chunks {
		g.Go(func() error {
			vec, err := h.embedder.Embed(gctx, chunk.Text)
			if err != nil {
				return fmt.Errorf("embed %s#%d: %w", chunk.Source, chunk.Ordinal, err)
			}
			records[i] = vectorstore.Record{
				ID:      vectorstore.RecordID(chunk.Source, chunk.Ordinal),
				Source:  chunk.Source,
				Ordinal: chunk.Ordinal,
				Text:    chunk.Text,
				Vector:  vec,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return len(docs), len(chunks), apperrors.NewEmbeddingFailedError(err)
	}

	if err := h.store.Replace(ctx, records); err != nil {
		return len(docs), len(chunks), apperrors.NewIndexBuildError(err)
	}

	return len(docs), len(chunks), nil
}

func (h *Handler) notify(ctx context.Context, event models.IndexEvent) {
	if h.notifier == nil {
		return
	}
	if err := h.notifier.Notify(ctx, event); err != nil {
		h.logger.Warn("failed to publish index event", map[string]interface{}{
			"event": event.Type,
			"error": err.Error(),
		})
	}
}

// Search embeds the query and returns the k nearest chunks; k <= 0 uses the configured default.
// Failures are reported in the result.
func (h *Handler) Search(ctx context.Context, query string, k int) Result {
	if k <= 0 {
		k = h.config.TopK
	}

	vec, err := h.embedder.Embed(ctx, query)
	if err != nil {
		return h.searchError(err)
	}

	matches, err := h.store.Search(ctx, vec, k)
	if err != nil {
		return h.searchError(err)
	}

	if len(matches) == 0 {
		return Result{
			Success:   false,
			ErrorCode: string(apperrors.CodeNoResults),
			Message:   "No se encontró información relevante en la base de conocimientos.",
		}
	}

	passages := make([]models.RetrievedPassage, len(matches))
	texts := make([]string, len(matches))
	for i, m := range matches {
		passages[i] = models.RetrievedPassage{
			Text:             m.Text,
			SourceIdentifier: m.Source,
			Score:            m.Score,
		}
		texts[i] = m.Text
	}

	return Result{
		Success:  true,
		Context:  strings.Join(texts, "\n\n"),
		Sources:  models.DistinctSources(passages),
		Passages: passages,
	}
}

func (h *Handler) searchError(err error) Result {
	h.logger.Error("knowledge base search failed", map[string]interface{}{
		"error": err.Error(),
	})
	return Result{
		Success:   false,
		ErrorCode: string(apperrors.CodeSearchError),
		Message:   fmt.Sprintf("Error al buscar en la base de conocimientos: %v", err),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.reporter.Fail(context.Background(), client, job, apperrors.NewInvalidRequestError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.reporter.Fail(context.Background(), client, job, err)
		return
	}

	h.reporter.Complete(context.Background(), client, job, output)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, apperrors.NewInvalidRequestError("query is required")
	}
	if !h.Ready() {
		return nil, apperrors.NewIndexNotReadyError()
	}
	return &Output{Result: h.Search(ctx, input.Query, input.K)}, nil
}
