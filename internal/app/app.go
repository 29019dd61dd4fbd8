// internal/app/app.go
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"

	"bank-assistant/internal/common/aws"
	"bank-assistant/internal/common/camunda"
	"bank-assistant/internal/common/config"
	"bank-assistant/internal/common/database"
	"bank-assistant/internal/common/logger"
	"bank-assistant/internal/common/observability"
	"bank-assistant/internal/corpus"
	"bank-assistant/internal/genai"
	"bank-assistant/internal/vectorstore"
	classifyintent "bank-assistant/internal/workers/assistant/classify-intent"
	generateanswer "bank-assistant/internal/workers/assistant/generate-answer"
	lookupbalance "bank-assistant/internal/workers/assistant/lookup-balance"
	processquery "bank-assistant/internal/workers/assistant/process-query"
	searchknowledgebase "bank-assistant/internal/workers/assistant/search-knowledge-base"
	"bank-assistant/pkg/registry"
)

// Options replaces parts of the configured stack. Nil fields are built from config.
type Options struct {
	ClassifierGenerator genai.Generator
	AnswerGenerator     genai.Generator
	Embedder            genai.Embedder
	Accounts            lookupbalance.AccountSource
	Store               vectorstore.Store
	Notifier            searchknowledgebase.Notifier
	TracerProvider      trace.TracerProvider

	// ConnectAttempts bounds retries for postgres and elasticsearch; 0 means 10.
	ConnectAttempts int
}

// App holds the assembled assistant: the four tools behind one orchestrator.
type App struct {
	Config        *config.Config
	Logger        logger.Logger
	Observability *observability.Observability

	Classifier   *classifyintent.Handler
	Balances     *lookupbalance.Handler
	Retriever    *searchknowledgebase.Handler
	Answerer     *generateanswer.Handler
	Orchestrator *processquery.Handler

	closers []func() error
}

// New wires every component from cfg and loads (or builds) the retrieval index.
// Any construction failure is returned and is fatal for the caller.
func New(ctx context.Context, cfg *config.Config, log logger.Logger, opts Options) (*App, error) {
	a := &App{Config: cfg, Logger: log}
	if opts.ConnectAttempts <= 0 {
		opts.ConnectAttempts = 10
	}

	if err := a.init(ctx, opts); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context, opts Options) error {
	cfg := a.Config

	a.Observability = observability.New(cfg.Tracing.ServiceName)
	a.closers = append(a.closers, func() error { a.Observability.Shutdown(); return nil })
	if opts.TracerProvider != nil {
		a.Observability.UseTracerProvider(opts.TracerProvider)
	} else if cfg.Tracing.Enabled {
		if err := a.Observability.EnableTracing(cfg.Tracing.JaegerEndpoint); err != nil {
			a.Logger.Warn("tracing disabled", map[string]interface{}{"error": err.Error()})
		}
	}

	classifierGen := opts.ClassifierGenerator
	if classifierGen == nil {
		gen, err := genai.NewGenerator(cfg.LLM, 0)
		if err != nil {
			return fmt.Errorf("classifier backend: %w", err)
		}
		classifierGen = gen
	}

	answerGen := opts.AnswerGenerator
	if answerGen == nil {
		gen, err := genai.NewGenerator(cfg.LLM, cfg.LLM.MaxRetries)
		if err != nil {
			return fmt.Errorf("generation backend: %w", err)
		}
		answerGen = gen
	}

	embedder, err := a.embedder(ctx, opts)
	if err != nil {
		return err
	}

	accounts, err := a.accountSource(ctx, opts)
	if err != nil {
		return err
	}

	store, err := a.store(ctx, opts)
	if err != nil {
		return err
	}

	a.Classifier = classifyintent.NewHandler(
		classifyintent.LoadConfig(cfg.LLM),
		classifierGen,
		&classifyIntentLoggerAdapter{a.Logger},
	)

	a.Balances, err = lookupbalance.NewHandler(ctx,
		lookupbalance.LoadConfig(cfg.Assistant),
		accounts,
		&lookupBalanceLoggerAdapter{a.Logger},
	)
	if err != nil {
		return err
	}

	a.Retriever, err = searchknowledgebase.NewHandler(
		searchknowledgebase.LoadConfig(cfg.Assistant),
		embedder,
		store,
		&searchKnowledgeBaseLoggerAdapter{a.Logger},
	)
	if err != nil {
		return err
	}
	if notifier := a.notifier(ctx, opts); notifier != nil {
		a.Retriever.SetNotifier(notifier)
	}
	if err := a.Retriever.Initialize(ctx); err != nil {
		return err
	}

	a.Answerer = generateanswer.NewHandler(
		generateanswer.LoadConfig(cfg.LLM),
		answerGen,
		a.tokenBudget(),
		&generateAnswerLoggerAdapter{a.Logger},
	)

	a.Orchestrator = processquery.NewHandler(
		processquery.LoadConfig(cfg),
		processquery.Dependencies{
			Classifier: a.Classifier,
			Balances:   a.Balances,
			Retriever:  a.Retriever,
			Answerer:   a.Answerer,
			Telemetry:  a.Observability,
		},
		&processQueryLoggerAdapter{a.Logger},
	)

	a.Logger.Info("assistant initialized", map[string]interface{}{
		"accountSource": accounts.Name(),
		"indexBackend":  store.Backend(),
		"chunks":        a.Retriever.Size(),
	})
	return nil
}

func (a *App) embedder(ctx context.Context, opts Options) (genai.Embedder, error) {
	cfg := a.Config
	base := opts.Embedder
	if base == nil {
		emb, err := genai.NewEmbedder(cfg.Embedding, cfg.LLM.MaxRetries)
		if err != nil {
			return nil, fmt.Errorf("embedding backend: %w", err)
		}
		base = emb
	}

	var rdb *redis.Client
	if cfg.Database.Redis.Address != "" {
		rc, err := database.NewRedis(cfg.Database.Redis)
		if err == nil {
			err = rc.Ping(ctx)
		}
		if err != nil {
			a.Logger.Warn("redis unavailable, embedding cache is in-process only", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			rdb = rc.GetClient()
			a.closers = append(a.closers, rc.Close)
		}
	}

	return genai.NewCachedEmbedder(base, cfg.Embedding.Model, cfg.Embedding.CacheSize,
		config.GetDuration(cfg.Embedding.CacheTTL), rdb, &genaiLoggerAdapter{a.Logger}), nil
}

func (a *App) accountSource(ctx context.Context, opts Options) (lookupbalance.AccountSource, error) {
	if opts.Accounts != nil {
		return opts.Accounts, nil
	}

	cfg := a.Config
	switch cfg.Assistant.AccountSource {
	case config.AccountSourcePostgres:
		var pg *database.PostgresClient
		err := retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, opts.ConnectAttempts, 2*time.Second, a.Logger, "PostgreSQL connection")
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pg.Close)
		return lookupbalance.NewPostgresSource(pg.DB, cfg.Assistant.AccountTable)
	default:
		return lookupbalance.NewCSVSource(cfg.Assistant.DataCSVPath), nil
	}
}

func (a *App) store(ctx context.Context, opts Options) (vectorstore.Store, error) {
	if opts.Store != nil {
		return opts.Store, nil
	}

	cfg := a.Config
	switch cfg.Assistant.IndexBackend {
	case config.IndexBackendElasticsearch:
		var es *database.ElasticsearchClient
		err := retryWithBackoff(func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return es.Ping(ctx)
		}, opts.ConnectAttempts, 2*time.Second, a.Logger, "Elasticsearch connection")
		if err != nil {
			return nil, err
		}
		return vectorstore.NewElasticStore(es.Client, cfg.Database.Elasticsearch.Index, &vectorstoreLoggerAdapter{a.Logger}), nil
	default:
		return vectorstore.NewMemoryStore(vectorstore.NewSQLiteSnapshot(cfg.Assistant.VectorstorePath)), nil
	}
}

func (a *App) notifier(ctx context.Context, opts Options) searchknowledgebase.Notifier {
	if opts.Notifier != nil {
		return opts.Notifier
	}

	sns := a.Config.Integrations.AWS.SNS
	if !sns.Enabled {
		return nil
	}
	client, err := aws.NewSNSClient(ctx, a.Config.Integrations.AWS.Region, sns.TopicARN)
	if err != nil {
		a.Logger.Warn("sns notifications disabled", map[string]interface{}{"error": err.Error()})
		return nil
	}
	return client
}

func (a *App) tokenBudget() *genai.TokenBudget {
	llm := a.Config.LLM
	if llm.TokenizerEncoding == "" {
		return nil
	}
	budget, err := genai.NewTokenBudget(llm.TokenizerEncoding, llm.ContextTokenBudget)
	if err != nil {
		a.Logger.Warn("context truncation disabled", map[string]interface{}{"error": err.Error()})
		return nil
	}
	return budget
}

// WatchCorpus rebuilds the index whenever the knowledge base directory changes.
func (a *App) WatchCorpus(ctx context.Context) (*corpus.Watcher, error) {
	w, err := corpus.NewWatcher(
		a.Config.Assistant.KnowledgeBasePath,
		config.GetDuration(a.Config.Assistant.WatchDebounce),
		func(ctx context.Context) {
			if err := a.Orchestrator.RebuildKnowledgeBase(ctx); err != nil {
				a.Logger.Error("corpus change rebuild failed", map[string]interface{}{"error": err.Error()})
			}
		},
		&corpusLoggerAdapter{a.Logger},
	)
	if err != nil {
		return nil, err
	}
	if err := w.Start(ctx); err != nil {
		_ = w.Close()
		return nil, err
	}
	return w, nil
}

// RegisterWorkers opens a job worker for every activity in reg that has a handler.
func (a *App) RegisterWorkers(workers *camunda.Workers, reg *registry.ActivityRegistry) {
	handlers := a.JobHandlers()
	for _, activity := range reg.Activities {
		handler, ok := handlers[activity.TaskType]
		if !ok {
			a.Logger.Warn("no handler for registered activity", map[string]interface{}{
				"taskType": activity.TaskType,
			})
			continue
		}
		workers.Register(activity.TaskType, config.GetWorkerConfig(a.Config, activity.TaskType), handler)
	}
}

// JobHandlers maps each component task type to its job handler.
func (a *App) JobHandlers() map[string]worker.JobHandler {
	return map[string]worker.JobHandler{
		classifyintent.TaskType:      a.Classifier.Handle,
		lookupbalance.TaskType:       a.Balances.Handle,
		searchknowledgebase.TaskType: a.Retriever.Handle,
		generateanswer.TaskType:      a.Answerer.Handle,
		processquery.TaskType:        a.Orchestrator.Handle,
	}
}

// Close releases connections in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn("close failed", map[string]interface{}{"error": err.Error()})
		}
	}
	a.closers = nil
}

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}
