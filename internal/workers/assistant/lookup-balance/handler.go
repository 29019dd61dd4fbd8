package lookupbalance

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "bank-assistant/internal/common/errors"
	"bank-assistant/internal/models"
)

const (
	TaskType = "lookup-balance"
)

// identifierPattern matches a national ID: V, E, J or G, an optional dash and 7 or 8 digits.
var identifierPattern = regexp.MustCompile(`(?i)[VEJG]-?\d{7,8}`)

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// Handler answers balance questions from an account table loaded once at construction.
type Handler struct {
	config   *Config
	accounts []models.AccountRecord
	byID     map[string]int
	reporter *apperrors.JobReporter
	logger   Logger
}

// NewHandler loads every account from source. A source that cannot be read is fatal.
func NewHandler(ctx context.Context, config *Config, source AccountSource, log Logger) (*Handler, error) {
	logger := log.With(map[string]interface{}{
		"taskType": TaskType,
	})

	accounts, err := source.LoadAccounts(ctx)
	if err != nil {
		return nil, apperrors.NewDataSourceLoadError(source.Name(), err)
	}

	byID := make(map[string]int, len(accounts))
	for i, acc := range accounts {
		if _, dup := byID[acc.Identifier]; dup {
			logger.Warn("duplicate account identifier, keeping first row", map[string]interface{}{
				"identifier": acc.Identifier,
			})
			continue
		}
		byID[acc.Identifier] = i
	}

	logger.Info("accounts loaded", map[string]interface{}{
		"source":   source.Name(),
		"accounts": len(accounts),
	})

	return &Handler{
		config:   config,
		accounts: accounts,
		byID:     byID,
		reporter: apperrors.NewJobReporter(logger),
		logger:   logger,
	}, nil
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

	output, err := h.Execute(context.Background(), &input)
	if err != nil {
		h.reporter.Fail(context.Background(), client, job, err)
		return
	}

	h.reporter.Complete(context.Background(), client, job, output)
}

// Execute prefers an explicit identifier and otherwise extracts one from the query text.
// Lookup misses are reported in the result, not as job failures.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	switch {
	case strings.TrimSpace(input.Identifier) != "":
		return &Output{Result: h.Lookup(input.Identifier)}, nil
	case strings.TrimSpace(input.Query) != "":
		return &Output{Result: h.SearchByText(input.Query)}, nil
	default:
		return nil, apperrors.NewInvalidRequestError("query or identifier is required")
	}
}

// Lookup finds an exact, whitespace-trimmed identifier match. Duplicates resolve to the first row.
func (h *Handler) Lookup(identifier string) Result {
	identifier = strings.TrimSpace(identifier)

	i, ok := h.byID[identifier]
	if !ok {
		h.logger.Info("account not found", map[string]interface{}{"identifier": identifier})
		return Result{
			Success:   false,
			ErrorCode: string(apperrors.CodeNotFound),
			Message: fmt.Sprintf("No se encontró ninguna cuenta asociada a la cédula %s. "+
				"Por favor, verifica el número de cédula e intenta nuevamente.", identifier),
		}
	}

	acc := h.accounts[i]
	return Result{
		Success: true,
		Message: fmt.Sprintf("El saldo de la cuenta de %s (Cédula: %s) es de $%s",
			acc.HolderName, acc.Identifier, acc.Balance.StringFixed(2)),
		Data: acc.ToData(),
	}
}

// SearchByText uses only the first identifier found in the text.
func (h *Handler) SearchByText(query string) Result {
	identifier, ok := ExtractIdentifier(query)
	if !ok {
		return Result{
			Success:   false,
			ErrorCode: string(apperrors.CodeNoIdentifierFound),
			Message:   "No se pudo identificar un número de cédula en la consulta. Por favor, proporciona la cédula en formato V-XXXXXXXX.",
		}
	}
	return h.Lookup(identifier)
}

// AllBalances returns a copy of every account in source order.
func (h *Handler) AllBalances() []models.AccountRecord {
	out := make([]models.AccountRecord, len(h.accounts))
	copy(out, h.accounts)
	return out
}

// ExtractIdentifier returns the first identifier in text, upper-cased and with a dash after the letter.
func ExtractIdentifier(text string) (string, bool) {
	match := identifierPattern.FindString(text)
	if match == "" {
		return "", false
	}
	match = strings.ToUpper(match)
	if !strings.Contains(match, "-") {
		match = match[:1] + "-" + match[1:]
	}
	return match, true
}
