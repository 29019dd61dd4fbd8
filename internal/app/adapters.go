// internal/app/adapters.go
package app

import (
	"bank-assistant/internal/api"
	"bank-assistant/internal/common/logger"
	"bank-assistant/internal/corpus"
	"bank-assistant/internal/genai"
	"bank-assistant/internal/mcpserver"
	"bank-assistant/internal/vectorstore"
	classifyintent "bank-assistant/internal/workers/assistant/classify-intent"
	generateanswer "bank-assistant/internal/workers/assistant/generate-answer"
	lookupbalance "bank-assistant/internal/workers/assistant/lookup-balance"
	processquery "bank-assistant/internal/workers/assistant/process-query"
	searchknowledgebase "bank-assistant/internal/workers/assistant/search-knowledge-base"
)

// Logger adapters for packages that declare their own Logger interfaces
type classifyIntentLoggerAdapter struct {
	logger.Logger
}

func (a *classifyIntentLoggerAdapter) With(fields map[string]interface{}) classifyintent.Logger {
	return &classifyIntentLoggerAdapter{a.Logger.With(fields)}
}

type lookupBalanceLoggerAdapter struct {
	logger.Logger
}

func (a *lookupBalanceLoggerAdapter) With(fields map[string]interface{}) lookupbalance.Logger {
	return &lookupBalanceLoggerAdapter{a.Logger.With(fields)}
}

type searchKnowledgeBaseLoggerAdapter struct {
	logger.Logger
}

func (a *searchKnowledgeBaseLoggerAdapter) With(fields map[string]interface{}) searchknowledgebase.Logger {
	return &searchKnowledgeBaseLoggerAdapter{a.Logger.With(fields)}
}

type generateAnswerLoggerAdapter struct {
	logger.Logger
}

func (a *generateAnswerLoggerAdapter) With(fields map[string]interface{}) generateanswer.Logger {
	return &generateAnswerLoggerAdapter{a.Logger.With(fields)}
}

type processQueryLoggerAdapter struct {
	logger.Logger
}

func (a *processQueryLoggerAdapter) With(fields map[string]interface{}) processquery.Logger {
	return &processQueryLoggerAdapter{a.Logger.With(fields)}
}

type genaiLoggerAdapter struct {
	logger.Logger
}

func (a *genaiLoggerAdapter) With(fields map[string]interface{}) genai.Logger {
	return &genaiLoggerAdapter{a.Logger.With(fields)}
}

type vectorstoreLoggerAdapter struct {
	logger.Logger
}

func (a *vectorstoreLoggerAdapter) With(fields map[string]interface{}) vectorstore.Logger {
	return &vectorstoreLoggerAdapter{a.Logger.With(fields)}
}

type corpusLoggerAdapter struct {
	logger.Logger
}

func (a *corpusLoggerAdapter) With(fields map[string]interface{}) corpus.Logger {
	return &corpusLoggerAdapter{a.Logger.With(fields)}
}

type apiLoggerAdapter struct {
	logger.Logger
}

func (a *apiLoggerAdapter) With(fields map[string]interface{}) api.Logger {
	return &apiLoggerAdapter{a.Logger.With(fields)}
}

type mcpLoggerAdapter struct {
	logger.Logger
}

func (a *mcpLoggerAdapter) With(fields map[string]interface{}) mcpserver.Logger {
	return &mcpLoggerAdapter{a.Logger.With(fields)}
}

// APILogger adapts l for the HTTP surface.
func APILogger(l logger.Logger) api.Logger {
	return &apiLoggerAdapter{l}
}

// MCPLogger adapts l for the MCP surface.
func MCPLogger(l logger.Logger) mcpserver.Logger {
	return &mcpLoggerAdapter{l}
}
