package processquery

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	apperrors "bank-assistant/internal/common/errors"
	"bank-assistant/internal/common/metrics"
	"bank-assistant/internal/models"
	generateanswer "bank-assistant/internal/workers/assistant/generate-answer"
	lookupbalance "bank-assistant/internal/workers/assistant/lookup-balance"
	searchknowledgebase "bank-assistant/internal/workers/assistant/search-knowledge-base"
)

const (
	TaskType = "process-query"
)

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type Classifier interface {
	Classify(ctx context.Context, query string) models.ClassificationResult
}

type BalanceLookup interface {
	SearchByText(query string) lookupbalance.Result
}

type Retriever interface {
	Search(ctx context.Context, query string, k int) searchknowledgebase.Result
	Rebuild(ctx context.Context) error
	Ready() bool
}

type Answerer interface {
	Answer(ctx context.Context, question string) generateanswer.Result
	AnswerWithContext(ctx context.Context, question, grounding string) generateanswer.Result
}

// Telemetry is satisfied by observability.Observability.
type Telemetry interface {
	StartSpan(ctx context.Context, name string) (context.Context, trace.Span)
	RecordQueryProcessed(ctx context.Context, intent, outcome string)
	RecordQueryDuration(ctx context.Context, duration time.Duration, intent string)
}

// Dependencies are the tools the orchestrator dispatches to.
type Dependencies struct {
	Classifier Classifier
	Balances   BalanceLookup
	Retriever  Retriever
	Answerer   Answerer
	Telemetry  Telemetry
}

// Handler routes each query through classify, dispatch and respond. Process never
// returns an error: every failure becomes a ResponseEnvelope.
type Handler struct {
	config     *Config
	classifier Classifier
	balances   BalanceLookup
	retriever  Retriever
	answerer   Answerer
	telemetry  Telemetry
	reporter   *apperrors.JobReporter
	logger     Logger
}

func NewHandler(config *Config, deps Dependencies, log Logger) *Handler {
	logger := log.With(map[string]interface{}{
		"taskType": TaskType,
	})

	telemetry := deps.Telemetry
	if telemetry == nil {
		telemetry = noopTelemetry{tracer: noop.NewTracerProvider().Tracer(TaskType)}
	}

	return &Handler{
		config:     config,
		classifier: deps.Classifier,
		balances:   deps.Balances,
		retriever:  deps.Retriever,
		answerer:   deps.Answerer,
		telemetry:  telemetry,
		reporter:   apperrors.NewJobReporter(logger),
		logger:     logger,
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
	if input.RequestID != "" {
		ctx = WithRequestID(ctx, input.RequestID)
	}
	return &Output{Response: h.Process(ctx, input.Query)}, nil
}

// Ready reports whether the retrieval index is loaded.
func (h *Handler) Ready() bool {
	return h.retriever.Ready()
}

// RebuildKnowledgeBase regenerates the retrieval index from the corpus.
func (h *Handler) RebuildKnowledgeBase(ctx context.Context) error {
	return h.retriever.Rebuild(ctx)
}

// Process answers one query.
func (h *Handler) Process(ctx context.Context, query string) (env *models.ResponseEnvelope) {
	requestID := RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
		ctx = WithRequestID(ctx, requestID)
	}
	logger := h.logger.With(map[string]interface{}{"requestId": requestID})
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("query processing panicked", map[string]interface{}{
				"panic": fmt.Sprint(r),
			})
			env = models.NewFailureEnvelope(nil, MsgSystemError, string(apperrors.CodeSystemError), fmt.Sprint(r))
		}
		h.record(ctx, logger, env, time.Since(start))
	}()

	if strings.TrimSpace(query) == "" {
		return models.NewFailureEnvelope(nil, MsgEmptyQuery, string(apperrors.CodeEmptyQuery), "")
	}

	classification := h.classify(ctx, query)
	logger.Info("query classified", map[string]interface{}{
		"intent":             classification.Intent,
		"classifierSuccess":  classification.Success,
		"classifierFallback": classification.Error != "",
	})

	dctx, span := h.telemetry.StartSpan(ctx, "dispatch."+classification.Intent.String())
	defer span.End()

	switch classification.Intent {
	case models.IntentBalance:
		return h.processBalance(dctx, query)
	case models.IntentKnowledgeBase:
		return h.processKnowledgeBase(dctx, query)
	default:
		return h.processGeneral(dctx, query)
	}
}

func (h *Handler) classify(ctx context.Context, query string) models.ClassificationResult {
	ctx, span := h.telemetry.StartSpan(ctx, "classify")
	defer span.End()
	defer observeStage("classify", time.Now())

	result := h.classifier.Classify(ctx, query)
	span.SetAttributes(
		attribute.String("intent", result.Intent.String()),
		attribute.Bool("success", result.Success),
	)
	return result
}

func (h *Handler) processBalance(ctx context.Context, query string) *models.ResponseEnvelope {
	ctx, span := h.telemetry.StartSpan(ctx, "lookup")
	defer span.End()
	defer observeStage("lookup", time.Now())

	res := h.balances.SearchByText(query)
	if !res.Success {
		message := MsgBalanceGeneric
		if res.ErrorCode == string(apperrors.CodeNotFound) {
			message = res.Message
		}
		span.SetStatus(codes.Error, res.ErrorCode)
		return models.NewFailureEnvelope(models.IntentBalance.Ptr(), message, res.ErrorCode, res.Message)
	}

	env := models.NewSuccessEnvelope(models.IntentBalance, res.Message)
	env.Data = res.Data
	return env
}

func (h *Handler) processKnowledgeBase(ctx context.Context, query string) *models.ResponseEnvelope {
	search := h.retrieve(ctx, query)
	if !search.Success {
		return models.NewFailureEnvelope(models.IntentKnowledgeBase.Ptr(), MsgKBNoInformation, search.ErrorCode, search.Message)
	}

	answer := h.generate(ctx, func(ctx context.Context) generateanswer.Result {
		return h.answerer.AnswerWithContext(ctx, query, search.Context)
	})
	if !answer.Success {
		return models.NewFailureEnvelope(models.IntentKnowledgeBase.Ptr(), MsgKBGeneration, answer.ErrorCode, answer.Message)
	}

	env := models.NewSuccessEnvelope(models.IntentKnowledgeBase, answer.Answer)
	env.Sources = search.Sources
	if env.Sources == nil {
		env.Sources = []string{}
	}
	return env
}

func (h *Handler) processGeneral(ctx context.Context, query string) *models.ResponseEnvelope {
	answer := h.generate(ctx, func(ctx context.Context) generateanswer.Result {
		return h.answerer.Answer(ctx, query)
	})
	if !answer.Success {
		return models.NewFailureEnvelope(models.IntentGeneral.Ptr(), MsgGeneralFailure, answer.ErrorCode, answer.Message)
	}
	return models.NewSuccessEnvelope(models.IntentGeneral, answer.Answer)
}

func (h *Handler) retrieve(ctx context.Context, query string) searchknowledgebase.Result {
	ctx, span := h.telemetry.StartSpan(ctx, "retrieve")
	defer span.End()
	defer observeStage("retrieve", time.Now())

	res := h.retriever.Search(ctx, query, h.config.TopK)
	if !res.Success {
		span.SetStatus(codes.Error, res.ErrorCode)
	}
	span.SetAttributes(attribute.Int("passages", len(res.Passages)))
	return res
}

func (h *Handler) generate(ctx context.Context, call func(context.Context) generateanswer.Result) generateanswer.Result {
	ctx, span := h.telemetry.StartSpan(ctx, "generate")
	defer span.End()
	defer observeStage("generate", time.Now())

	res := call(ctx)
	if !res.Success {
		span.SetStatus(codes.Error, res.ErrorCode)
	}
	return res
}

func (h *Handler) record(ctx context.Context, logger Logger, env *models.ResponseEnvelope, elapsed time.Duration) {
	intent := env.Intent().String()
	if intent == "" {
		intent = "none"
	}
	outcome := "success"
	if !env.Success {
		outcome = env.ErrorCode()
	}

	metrics.QueriesTotal.WithLabelValues(intent, outcome).Inc()
	h.telemetry.RecordQueryProcessed(ctx, intent, outcome)
	h.telemetry.RecordQueryDuration(ctx, elapsed, intent)

	fields := map[string]interface{}{
		"intent":     intent,
		"outcome":    outcome,
		"durationMs": elapsed.Milliseconds(),
	}
	if env.Success {
		logger.Info("query processed", fields)
		return
	}
	if env.Details != "" {
		fields["details"] = env.Details
	}
	logger.Warn("query degraded", fields)
}

func observeStage(stage string, start time.Time) {
	metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

type noopTelemetry struct {
	tracer trace.Tracer
}

func (n noopTelemetry) StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return n.tracer.Start(ctx, name)
}

func (noopTelemetry) RecordQueryProcessed(ctx context.Context, intent, outcome string) {}

func (noopTelemetry) RecordQueryDuration(ctx context.Context, duration time.Duration, intent string) {}
