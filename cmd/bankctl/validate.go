// cmd/bankctl/validate.go
package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	apperrors "bank-assistant/internal/common/errors"
	"bank-assistant/internal/models"
)

// validationQueries covers three balance, four knowledge base and three general queries.
var validationQueries = []string{
	"¿Cuál es el saldo de V-12345678?",
	"Consultar balance de la cédula V-87654321",
	"¿Cuánto dinero tiene la cuenta V-18273645?",
	"¿Cómo puedo abrir una cuenta en BANCO HENRY?",
	"¿Qué necesito para solicitar una tarjeta de crédito?",
	"¿Cuál es el costo de una transferencia internacional?",
	"Información sobre transferencias entre cuentas del mismo banco",
	"¿Qué es la inflación y cómo afecta mis ahorros?",
	"Explícame la diferencia entre interés simple y compuesto",
	"¿Qué significa tasa de interés?",
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run the sample validation queries",
	Long: `Runs ten sample queries through the assistant and prints a compact summary.
Exits 1 when any query ends in a system error and 2 when the assistant cannot start.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

type queryProcessor interface {
	Process(ctx context.Context, query string) *models.ResponseEnvelope
}

func runValidate(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Iniciando validación")

	assistant, closeFn, err := openAssistant(cmd)
	if err != nil {
		fmt.Fprintln(out, "ERROR al inicializar el asistente:", err)
		return &exitError{code: 2, msg: err.Error()}
	}
	defer closeFn()

	failures := runValidation(cmd.Context(), assistant.Orchestrator, out, validationQueries)
	if failures > 0 {
		return &exitError{code: 1, msg: fmt.Sprintf("validation finished with %d errors", failures)}
	}
	return nil
}

// runValidation prints one block per query and returns how many ended in a system error.
func runValidation(ctx context.Context, p queryProcessor, out io.Writer, queries []string) int {
	type row struct {
		query, intent, message string
	}

	rows := make([]row, 0, len(queries))
	failures := 0
	for _, q := range queries {
		env := p.Process(ctx, q)
		intent := env.Intent().String()
		if env.ErrorCode() == string(apperrors.CodeSystemError) {
			intent = "error"
			failures++
		}
		rows = append(rows, row{query: q, intent: intent, message: env.Message})
	}

	fmt.Fprintln(out, "\n=== Resultados de Validación ===")
	for i, r := range rows {
		fmt.Fprintf(out, "%d. Pregunta: %s\n", i+1, r.query)
		fmt.Fprintf(out, "   Tipo: %s\n", r.intent)
		fmt.Fprintf(out, "   Respuesta: %s\n\n", preview(r.message, 300))
	}

	if failures > 0 {
		fmt.Fprintf(out, "Validación completada con %d errores\n", failures)
	} else {
		fmt.Fprintln(out, "Validación completada: todos los casos procesados correctamente")
	}
	return failures
}

func preview(s string, limit int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) > limit {
		return string(runes[:limit])
	}
	return s
}
