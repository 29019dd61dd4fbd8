// internal/workers/assistant/process-query/handler_test.go
package processquery

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"bank-assistant/internal/models"
	generateanswer "bank-assistant/internal/workers/assistant/generate-answer"
	lookupbalance "bank-assistant/internal/workers/assistant/lookup-balance"
	searchknowledgebase "bank-assistant/internal/workers/assistant/search-knowledge-base"
)

// ==========================
// Test Logger Implementation
// ==========================

type TestLogger struct {
	t      *testing.T
	fields map[string]interface{}
}

func NewTestLogger(t *testing.T) *TestLogger {
	return &TestLogger{t: t, fields: make(map[string]interface{})}
}

func (l *TestLogger) Info(msg string, fields map[string]interface{}) {
	l.t.Logf("INFO: %s %v %v", msg, l.fields, fields)
}

func (l *TestLogger) Warn(msg string, fields map[string]interface{}) {
	l.t.Logf("WARN: %s %v %v", msg, l.fields, fields)
}

func (l *TestLogger) Error(msg string, fields map[string]interface{}) {
	l.t.Logf("ERROR: %s %v %v", msg, l.fields, fields)
}

func (l *TestLogger) With(fields map[string]interface{}) Logger {
	newLogger := &TestLogger{t: l.t, fields: make(map[string]interface{})}
	for k, v := range l.fields {
		newLogger.fields[k] = v
	}
	for k, v := range fields {
		newLogger.fields[k] = v
	}
	return newLogger
}

// ==========================
// Fakes
// ==========================

type fakeClassifier struct {
	mu     sync.Mutex
	result models.ClassificationResult
	calls  int
}

func (f *fakeClassifier) Classify(ctx context.Context, query string) models.ClassificationResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.result
}

type fakeBalances struct {
	result lookupbalance.Result
	panics bool
	calls  int
}

func (f *fakeBalances) SearchByText(query string) lookupbalance.Result {
	f.calls++
	if f.panics {
		panic("nil account table")
	}
	return f.result
}

type fakeRetriever struct {
	result   searchknowledgebase.Result
	calls    int
	rebuilds int
}

func (f *fakeRetriever) Search(ctx context.Context, query string, k int) searchknowledgebase.Result {
	f.calls++
	return f.result
}

func (f *fakeRetriever) Rebuild(ctx context.Context) error {
	f.rebuilds++
	return nil
}

func (f *fakeRetriever) Ready() bool { return true }

type fakeAnswerer struct {
	general     generateanswer.Result
	withContext generateanswer.Result
	lastContext string
	calls       int
}

func (f *fakeAnswerer) Answer(ctx context.Context, question string) generateanswer.Result {
	f.calls++
	return f.general
}

func (f *fakeAnswerer) AnswerWithContext(ctx context.Context, question, grounding string) generateanswer.Result {
	f.calls++
	f.lastContext = grounding
	return f.withContext
}

type recordingTelemetry struct {
	tracer   trace.Tracer
	mu       sync.Mutex
	outcomes []string
}

func (r *recordingTelemetry) StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return r.tracer.Start(ctx, name)
}

func (r *recordingTelemetry) RecordQueryProcessed(ctx context.Context, intent, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, intent+"/"+outcome)
}

func (r *recordingTelemetry) RecordQueryDuration(ctx context.Context, duration time.Duration, intent string) {}

type fixture struct {
	classifier *fakeClassifier
	balances   *fakeBalances
	retriever  *fakeRetriever
	answerer   *fakeAnswerer
	handler    *Handler
}

func newFixture(t *testing.T, intent models.Intent) *fixture {
	f := &fixture{
		classifier: &fakeClassifier{result: models.ClassificationResult{Success: true, Intent: intent, RawModelOutput: intent.String()}},
		balances: &fakeBalances{result: lookupbalance.Result{
			Success: true,
			Message: "El saldo de la cuenta de Juan Pérez (Cédula: V-12345678) es de $1250.50",
			Data:    map[string]interface{}{"identifier": "V-12345678", "holder_name": "Juan Pérez", "balance": 1250.5},
		}},
		retriever: &fakeRetriever{result: searchknowledgebase.Result{
			Success: true,
			Context: "Para abrir una cuenta necesitas tu cédula.",
			Sources: []string{"knowledge_base/cuentas.txt"},
		}},
		answerer: &fakeAnswerer{
			general:     generateanswer.Result{Success: true, Answer: "La inflación es el aumento de precios.", Source: generateanswer.SourceLLM},
			withContext: generateanswer.Result{Success: true, Answer: "Necesitas tu cédula.", Source: generateanswer.SourceLLMWithContext},
		},
	}
	f.handler = NewHandler(&Config{TopK: 3, Timeout: 5 * time.Second}, Dependencies{
		Classifier: f.classifier,
		Balances:   f.balances,
		Retriever:  f.retriever,
		Answerer:   f.answerer,
	}, NewTestLogger(t))
	return f
}

// ==========================
// Input validation
// ==========================

func TestProcess_EmptyQuery(t *testing.T) {
	for _, query := range []string{"", "   ", "\n\t"} {
		f := newFixture(t, models.IntentGeneral)

		env := f.handler.Process(context.Background(), query)

		assert.False(t, env.Success)
		assert.Nil(t, env.QueryType)
		assert.Equal(t, MsgEmptyQuery, env.Message)
		assert.Equal(t, "empty_query", env.ErrorCode())
		assert.Equal(t, 0, f.classifier.calls)
		assert.Equal(t, 0, f.balances.calls+f.retriever.calls+f.answerer.calls)
	}
}

// ==========================
// Balance branch
// ==========================

func TestProcess_Balance(t *testing.T) {
	f := newFixture(t, models.IntentBalance)

	env := f.handler.Process(context.Background(), "¿Cuál es el saldo de V-12345678?")

	require.True(t, env.Success)
	assert.Equal(t, models.IntentBalance, env.Intent())
	assert.Equal(t, "V-12345678", env.Data["identifier"])
	assert.Contains(t, env.Message, "Juan Pérez")
	assert.Nil(t, env.Sources)
	assert.Equal(t, 0, f.answerer.calls)
}

func TestProcess_BalanceFailures(t *testing.T) {
	tests := []struct {
		name        string
		result      lookupbalance.Result
		wantMessage string
		wantCode    string
	}{
		{
			name: "not found surfaces tool message",
			result: lookupbalance.Result{ErrorCode: "not_found",
				Message: "No se encontró ninguna cuenta asociada a la cédula V-00000000. Por favor, verifica el número de cédula e intenta nuevamente."},
			wantMessage: "No se encontró ninguna cuenta asociada a la cédula V-00000000. Por favor, verifica el número de cédula e intenta nuevamente.",
			wantCode:    "not_found",
		},
		{
			name:        "no identifier uses generic message",
			result:      lookupbalance.Result{ErrorCode: "no_identifier_found", Message: "No se pudo identificar un número de cédula"},
			wantMessage: MsgBalanceGeneric,
			wantCode:    "no_identifier_found",
		},
		{
			name:        "unknown error uses generic message",
			result:      lookupbalance.Result{ErrorCode: "weird"},
			wantMessage: MsgBalanceGeneric,
			wantCode:    "weird",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, models.IntentBalance)
			f.balances.result = tt.result

			env := f.handler.Process(context.Background(), "saldo")

			assert.False(t, env.Success)
			assert.Equal(t, models.IntentBalance, env.Intent())
			assert.Equal(t, tt.wantMessage, env.Message)
			assert.Equal(t, tt.wantCode, env.ErrorCode())
			assert.Nil(t, env.Data)
		})
	}
}

// ==========================
// Knowledge base branch
// ==========================

func TestProcess_KnowledgeBase(t *testing.T) {
	f := newFixture(t, models.IntentKnowledgeBase)

	env := f.handler.Process(context.Background(), "¿Cómo abro una cuenta?")

	require.True(t, env.Success)
	assert.Equal(t, models.IntentKnowledgeBase, env.Intent())
	assert.Equal(t, "Necesitas tu cédula.", env.Message)
	assert.Equal(t, []string{"knowledge_base/cuentas.txt"}, env.Sources)
	assert.Equal(t, "Para abrir una cuenta necesitas tu cédula.", f.answerer.lastContext)
}

func TestProcess_KnowledgeBaseFailures(t *testing.T) {
	t.Run("search failure", func(t *testing.T) {
		f := newFixture(t, models.IntentKnowledgeBase)
		f.retriever.result = searchknowledgebase.Result{ErrorCode: "search_error", Message: "Error al buscar en la base de conocimientos: dial tcp"}

		env := f.handler.Process(context.Background(), "¿Cómo abro una cuenta?")

		assert.False(t, env.Success)
		assert.Equal(t, MsgKBNoInformation, env.Message)
		assert.Equal(t, "search_error", env.ErrorCode())
		assert.Contains(t, env.Details, "dial tcp")
		assert.Equal(t, 0, f.answerer.calls)
	})

	t.Run("no results", func(t *testing.T) {
		f := newFixture(t, models.IntentKnowledgeBase)
		f.retriever.result = searchknowledgebase.Result{ErrorCode: "no_results"}

		env := f.handler.Process(context.Background(), "¿Cómo abro una cuenta?")
		assert.Equal(t, MsgKBNoInformation, env.Message)
		assert.Equal(t, "no_results", env.ErrorCode())
	})

	t.Run("generation failure", func(t *testing.T) {
		f := newFixture(t, models.IntentKnowledgeBase)
		f.answerer.withContext = generateanswer.Result{ErrorCode: "llm_error", Message: "Error al generar respuesta con contexto: 500"}

		env := f.handler.Process(context.Background(), "¿Cómo abro una cuenta?")

		assert.False(t, env.Success)
		assert.Equal(t, models.IntentKnowledgeBase, env.Intent())
		assert.Equal(t, MsgKBGeneration, env.Message)
		assert.Equal(t, "llm_error", env.ErrorCode())
		assert.Nil(t, env.Sources)
	})
}

// ==========================
// General branch
// ==========================

func TestProcess_General(t *testing.T) {
	f := newFixture(t, models.IntentGeneral)

	env := f.handler.Process(context.Background(), "¿Qué es la inflación?")

	require.True(t, env.Success)
	assert.Equal(t, models.IntentGeneral, env.Intent())
	assert.Equal(t, "La inflación es el aumento de precios.", env.Message)
	assert.Equal(t, 0, f.retriever.calls+f.balances.calls)
}

func TestProcess_GeneralFailure(t *testing.T) {
	f := newFixture(t, models.IntentGeneral)
	f.answerer.general = generateanswer.Result{ErrorCode: "llm_error", Message: "Error al generar respuesta: 401 invalid api key"}

	env := f.handler.Process(context.Background(), "Hola")

	assert.False(t, env.Success)
	assert.Equal(t, MsgGeneralFailure, env.Message)
	assert.Equal(t, "llm_error", env.ErrorCode())
	assert.NotContains(t, env.Message, "api key")
}

func TestProcess_ClassifierFallbackRoutesToGeneral(t *testing.T) {
	f := newFixture(t, models.IntentGeneral)
	f.classifier.result = models.ClassificationResult{Success: false, Intent: models.IntentGeneral, Error: "timeout"}

	env := f.handler.Process(context.Background(), "¿Cuál es el saldo de V-12345678?")

	assert.True(t, env.Success)
	assert.Equal(t, models.IntentGeneral, env.Intent())
	assert.Equal(t, 0, f.balances.calls)
}

// ==========================
// Failure containment
// ==========================

func TestProcess_PanicBecomesSystemError(t *testing.T) {
	f := newFixture(t, models.IntentBalance)
	f.balances.panics = true

	var env *models.ResponseEnvelope
	require.NotPanics(t, func() {
		env = f.handler.Process(context.Background(), "saldo de V-12345678")
	})

	require.NotNil(t, env)
	assert.False(t, env.Success)
	assert.Nil(t, env.QueryType)
	assert.Equal(t, MsgSystemError, env.Message)
	assert.Equal(t, "system_error", env.ErrorCode())
	assert.Equal(t, "nil account table", env.Details)

	raw, err := json.Marshal(env)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "nil account table")
}

// ==========================
// Telemetry
// ==========================

func TestProcess_RecordsStageSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	telemetry := &recordingTelemetry{tracer: tp.Tracer("test")}

	f := newFixture(t, models.IntentKnowledgeBase)
	h := NewHandler(&Config{TopK: 3}, Dependencies{
		Classifier: f.classifier,
		Balances:   f.balances,
		Retriever:  f.retriever,
		Answerer:   f.answerer,
		Telemetry:  telemetry,
	}, NewTestLogger(t))

	env := h.Process(context.Background(), "¿Cómo abro una cuenta?")
	require.True(t, env.Success)

	var names []string
	for _, s := range recorder.Ended() {
		names = append(names, s.Name())
	}
	assert.ElementsMatch(t, []string{"classify", "dispatch.knowledge_base", "retrieve", "generate"}, names)
	assert.Equal(t, []string{"knowledge_base/success"}, telemetry.outcomes)

	h.Process(context.Background(), " ")
	assert.Equal(t, "none/empty_query", telemetry.outcomes[1])
}

// ==========================
// Execute and rebuild
// ==========================

func TestHandler_Execute(t *testing.T) {
	f := newFixture(t, models.IntentGeneral)

	out, err := f.handler.Execute(context.Background(), &Input{Query: "¿Qué es la inflación?", RequestID: "req-1"})
	require.NoError(t, err)
	assert.True(t, out.Response.Success)

	out, err = f.handler.Execute(context.Background(), &Input{Query: ""})
	require.NoError(t, err)
	assert.Equal(t, "empty_query", out.Response.ErrorCode())
}

func TestHandler_RebuildKnowledgeBase(t *testing.T) {
	f := newFixture(t, models.IntentGeneral)
	require.NoError(t, f.handler.RebuildKnowledgeBase(context.Background()))
	assert.Equal(t, 1, f.retriever.rebuilds)
	assert.True(t, f.handler.Ready())
}

func TestRequestIDContext(t *testing.T) {
	ctx := WithRequestID(context.Background(), "abc")
	assert.Equal(t, "abc", RequestIDFromContext(ctx))
	assert.Empty(t, RequestIDFromContext(context.Background()))
}
