package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "bank-assistant/internal/common/errors"
	"bank-assistant/internal/models"
)

type TestLogger struct {
	t *testing.T
}

func (l *TestLogger) Info(msg string, fields map[string]interface{}) {
	l.t.Logf("INFO: %s %v", msg, fields)
}

func (l *TestLogger) Warn(msg string, fields map[string]interface{}) {
	l.t.Logf("WARN: %s %v", msg, fields)
}

func (l *TestLogger) Error(msg string, fields map[string]interface{}) {
	l.t.Logf("ERROR: %s %v", msg, fields)
}

func (l *TestLogger) With(fields map[string]interface{}) Logger { return l }

type fakeProcessor struct {
	envelope   *models.ResponseEnvelope
	rebuildErr error
	queries    []string
}

func (f *fakeProcessor) Process(ctx context.Context, query string) *models.ResponseEnvelope {
	f.queries = append(f.queries, query)
	return f.envelope
}

func (f *fakeProcessor) RebuildKnowledgeBase(ctx context.Context) error {
	return f.rebuildErr
}

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	switch c := result.Content[0].(type) {
	case mcp.TextContent:
		return c.Text
	case *mcp.TextContent:
		return c.Text
	}
	t.Fatalf("unexpected content type %T", result.Content[0])
	return ""
}

// ==========================
// process_query
// ==========================

func TestProcessQuery(t *testing.T) {
	env := models.NewSuccessEnvelope(models.IntentBalance, "El saldo de la cuenta de Juan Pérez (Cédula: V-12345678) es de $1250.50")
	processor := &fakeProcessor{envelope: env}
	handler := HandleProcessQuery(processor, &TestLogger{t: t})

	result, err := handler(context.Background(), callRequest(ToolProcessQuery, map[string]interface{}{
		"query": "¿Cuál es el saldo de V-12345678?",
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &decoded))
	assert.Equal(t, true, decoded["success"])
	assert.Equal(t, "balance", decoded["query_type"])
	assert.Equal(t, []string{"¿Cuál es el saldo de V-12345678?"}, processor.queries)
}

func TestProcessQuery_DegradedEnvelopeIsNotToolError(t *testing.T) {
	env := models.NewFailureEnvelope(models.IntentGeneral.Ptr(), "Lo sentimos", "llm_error", "status 500")
	handler := HandleProcessQuery(&fakeProcessor{envelope: env}, &TestLogger{t: t})

	result, err := handler(context.Background(), callRequest(ToolProcessQuery, map[string]interface{}{"query": "hola"}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Contains(t, resultText(t, result), `"error":"llm_error"`)
	assert.NotContains(t, resultText(t, result), "status 500")
}

func TestProcessQuery_MissingArgument(t *testing.T) {
	processor := &fakeProcessor{}
	handler := HandleProcessQuery(processor, &TestLogger{t: t})

	result, err := handler(context.Background(), callRequest(ToolProcessQuery, map[string]interface{}{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Empty(t, processor.queries)
}

// ==========================
// rebuild_knowledge_base
// ==========================

func TestRebuild(t *testing.T) {
	handler := HandleRebuild(&fakeProcessor{}, &TestLogger{t: t})
	result, err := handler(context.Background(), callRequest(ToolRebuild, nil))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.JSONEq(t, `{"success":true}`, resultText(t, result))

	handler = HandleRebuild(&fakeProcessor{rebuildErr: apperrors.NewEmptyCorpusError("kb")}, &TestLogger{t: t})
	result, err = handler(context.Background(), callRequest(ToolRebuild, nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "EMPTY_CORPUS")
}

// ==========================
// finance tools
// ==========================

func TestCompoundInterestTool(t *testing.T) {
	handler := HandleCompoundInterest()

	result, err := handler(context.Background(), callRequest(ToolCompoundInterest, map[string]interface{}{
		"principal": 1000.0, "rate": 0.05, "periods": 5.0,
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.JSONEq(t, `{"future_value":"1276.28"}`, resultText(t, result))

	result, err = handler(context.Background(), callRequest(ToolCompoundInterest, map[string]interface{}{
		"principal": 1000.0, "rate": -1.0, "periods": 5.0,
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "INVALID_RATE")

	result, err = handler(context.Background(), callRequest(ToolCompoundInterest, map[string]interface{}{
		"principal": 1000.0, "rate": 0.05,
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestAnnuityPaymentTool(t *testing.T) {
	handler := HandleAnnuityPayment()

	result, err := handler(context.Background(), callRequest(ToolAnnuityPayment, map[string]interface{}{
		"principal": 10000.0, "rate": 0.05, "periods": 12.0,
	}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"payment":"1128.25"}`, resultText(t, result))

	result, err = handler(context.Background(), callRequest(ToolAnnuityPayment, map[string]interface{}{
		"principal": 10000.0, "rate": 0.05, "periods": 0.0,
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestNew_RegistersTools(t *testing.T) {
	s := New(&fakeProcessor{}, "test", &TestLogger{t: t})

	raw := s.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	encoded, err := json.Marshal(raw)
	require.NoError(t, err)

	for _, name := range []string{ToolProcessQuery, ToolRebuild, ToolCompoundInterest, ToolAnnuityPayment} {
		assert.Contains(t, string(encoded), `"name":"`+name+`"`)
	}
}
