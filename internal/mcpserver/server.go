// internal/mcpserver/server.go
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/shopspring/decimal"

	apperrors "bank-assistant/internal/common/errors"
	"bank-assistant/internal/finance"
	"bank-assistant/internal/models"
)

const (
	ServerName = "bank-assistant"

	ToolProcessQuery     = "process_query"
	ToolRebuild          = "rebuild_knowledge_base"
	ToolCompoundInterest = "compound_interest"
	ToolAnnuityPayment   = "annuity_payment"
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// Processor is satisfied by the process-query handler.
type Processor interface {
	Process(ctx context.Context, query string) *models.ResponseEnvelope
	RebuildKnowledgeBase(ctx context.Context) error
}

// New registers the assistant tools on a fresh MCP server.
func New(processor Processor, version string, log Logger) *server.MCPServer {
	logger := log.With(map[string]interface{}{"component": "mcp"})

	s := server.NewMCPServer(
		ServerName,
		version,
		server.WithToolCapabilities(false),
		server.WithInstructions("Retail banking assistant for BANCO HENRY: account balances by cédula, bank product questions and general finance concepts."),
	)

	s.AddTool(
		mcp.NewToolWithRawSchema(ToolProcessQuery, "Answer a customer query: balance lookups by cédula, bank product questions or general finance questions", processQuerySchema()),
		HandleProcessQuery(processor, logger),
	)
	s.AddTool(
		mcp.NewToolWithRawSchema(ToolRebuild, "Rebuild the knowledge base index from the document corpus", rebuildSchema()),
		HandleRebuild(processor, logger),
	)
	s.AddTool(
		mcp.NewToolWithRawSchema(ToolCompoundInterest, "Future value of a principal under compound interest", compoundInterestSchema()),
		HandleCompoundInterest(),
	)
	s.AddTool(
		mcp.NewToolWithRawSchema(ToolAnnuityPayment, "Periodic payment that amortizes a loan", annuityPaymentSchema()),
		HandleAnnuityPayment(),
	)

	return s
}

// ServeStdio blocks serving s over stdin/stdout.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func HandleProcessQuery(processor Processor, log Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		env := processor.Process(ctx, query)
		if !env.Success {
			log.Warn("process_query degraded", map[string]interface{}{
				"error":   env.ErrorCode(),
				"details": env.Details,
			})
		}
		return jsonResult(env)
	}
}

func HandleRebuild(processor Processor, log Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if err := processor.RebuildKnowledgeBase(ctx); err != nil {
			stdErr := apperrors.Normalize(err)
			log.Error("rebuild_knowledge_base failed", map[string]interface{}{
				"code":    string(stdErr.Code),
				"details": stdErr.Details,
			})
			return mcp.NewToolResultError(fmt.Sprintf("%s: %s", stdErr.Code, stdErr.Message)), nil
		}
		return jsonResult(map[string]bool{"success": true})
	}
}

func HandleCompoundInterest() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		principal, rate, periods, err := loanArguments(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		value, err := finance.CompoundInterest(principal, rate, periods)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]string{"future_value": value.Round(2).StringFixed(2)})
	}
}

func HandleAnnuityPayment() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		principal, rate, periods, err := loanArguments(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		payment, err := finance.AnnuityPayment(principal, rate, periods)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]string{"payment": payment.Round(2).StringFixed(2)})
	}
}

func loanArguments(request mcp.CallToolRequest) (principal, rate, periods decimal.Decimal, err error) {
	p, err := request.RequireFloat("principal")
	if err != nil {
		return
	}
	r, err := request.RequireFloat("rate")
	if err != nil {
		return
	}
	n, err := request.RequireFloat("periods")
	if err != nil {
		return
	}
	return decimal.NewFromFloat(p), decimal.NewFromFloat(r), decimal.NewFromFloat(n), nil
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal tool result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}
