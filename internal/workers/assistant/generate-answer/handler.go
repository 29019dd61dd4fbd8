package generateanswer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "bank-assistant/internal/common/errors"
	"bank-assistant/internal/genai"
)

const (
	TaskType = "generate-answer"
)

// RefusalMessage is the reply the guard prompt asks for on out-of-scope questions.
const RefusalMessage = "Lo siento, soy un asistente especializado en servicios bancarios y financieros del BANCO HENRY. " +
	"Solo puedo ayudarte con consultas relacionadas con servicios bancarios, finanzas personales y conceptos económicos. " +
	"¿Hay algo sobre estos temas en lo que pueda ayudarte?"

const guardPrompt = `Eres un asistente virtual del BANCO HENRY, especializado en temas bancarios y financieros.

IMPORTANTE: Solo puedes responder preguntas relacionadas con:
- Servicios bancarios (cuentas, tarjetas, transferencias, préstamos)
- Conceptos financieros (inflación, tasas de interés, ahorro, inversión)
- Economía y finanzas personales

Si la pregunta NO está relacionada con estos temas (por ejemplo: videojuegos, deportes, entretenimiento, tecnología general, etc.), debes responder amablemente:
"%s"

Pregunta: %s

Respuesta:`

const contextPrompt = `Eres un asistente del BANCO HENRY. Usa la siguiente información para responder la pregunta del cliente.

Información disponible:
%s

Pregunta del cliente: %s

Proporciona una respuesta clara, precisa y profesional basada en la información proporcionada.

Respuesta:`

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// Handler wraps the generation backend with the banking guard prompt.
// The guard is an instruction to the model, not a filter on its output.
type Handler struct {
	config    *Config
	generator genai.Generator
	budget    *genai.TokenBudget
	reporter  *apperrors.JobReporter
	logger    Logger
}

// NewHandler builds the tool; budget may be nil to pass context through untruncated.
func NewHandler(config *Config, generator genai.Generator, budget *genai.TokenBudget, log Logger) *Handler {
	logger := log.With(map[string]interface{}{
		"taskType": TaskType,
	})
	return &Handler{
		config:    config,
		generator: generator,
		budget:    budget,
		reporter:  apperrors.NewJobReporter(logger),
		logger:    logger,
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

// Execute fails the job on backend errors so the broker can retry it.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.Question) == "" {
		return nil, apperrors.NewInvalidRequestError("question is required")
	}

	var res Result
	if strings.TrimSpace(input.Context) != "" {
		res = h.AnswerWithContext(ctx, input.Question, input.Context)
	} else {
		res = h.Answer(ctx, input.Question)
	}
	if !res.Success {
		if errors.Is(res.cause, genai.ErrGenAITimeout) || errors.Is(res.cause, context.DeadlineExceeded) {
			return nil, apperrors.NewGenerationTimeoutError()
		}
		return nil, apperrors.NewGenerationFailedError(fmt.Errorf("%s", res.Message))
	}
	return &Output{Result: res}, nil
}

// Answer replies to an open question within the banking domain.
func (h *Handler) Answer(ctx context.Context, question string) Result {
	text, err := h.generate(ctx, BuildGuardPrompt(question))
	if err != nil {
		return h.failure("Error al generar respuesta", err)
	}
	return Result{Success: true, Answer: text, Source: SourceLLM}
}

// AnswerWithContext replies using retrieved passages as grounding material.
func (h *Handler) AnswerWithContext(ctx context.Context, question, grounding string) Result {
	if h.budget != nil {
		before := h.budget.Count(grounding)
		grounding = h.budget.Truncate(grounding)
		if after := h.budget.Count(grounding); after < before {
			h.logger.Info("context truncated to token budget", map[string]interface{}{
				"tokensBefore": before,
				"tokensAfter":  after,
			})
		}
	}

	text, err := h.generate(ctx, BuildContextPrompt(question, grounding))
	if err != nil {
		return h.failure("Error al generar respuesta con contexto", err)
	}
	return Result{Success: true, Answer: text, Source: SourceLLMWithContext}
}

func (h *Handler) generate(ctx context.Context, prompt string) (string, error) {
	text, err := h.generator.Generate(ctx, prompt, genai.GenerateOptions{
		Temperature: h.config.Temperature,
		MaxTokens:   h.config.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: empty completion", genai.ErrGenAIRequestFailed)
	}
	return text, nil
}

func (h *Handler) failure(prefix string, err error) Result {
	h.logger.Error("generation failed", map[string]interface{}{
		"error": err.Error(),
	})
	return Result{
		Success:   false,
		ErrorCode: string(apperrors.CodeLLMError),
		Message:   fmt.Sprintf("%s: %v", prefix, err),
		cause:     err,
	}
}

func BuildGuardPrompt(question string) string {
	return fmt.Sprintf(guardPrompt, RefusalMessage, question)
}

func BuildContextPrompt(question, grounding string) string {
	return fmt.Sprintf(contextPrompt, grounding, question)
}
