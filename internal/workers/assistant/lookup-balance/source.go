// internal/workers/assistant/lookup-balance/source.go
package lookupbalance

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"bank-assistant/internal/models"
)

// Column names of the balance spreadsheet.
const (
	ColumnIdentifier = "ID_Cedula"
	ColumnHolderName = "Nombre"
	ColumnBalance    = "Balance"
)

// AccountSource loads the full account table once.
type AccountSource interface {
	LoadAccounts(ctx context.Context) ([]models.AccountRecord, error)
	Name() string
}

// CSVSource reads accounts from a comma-separated file with a header row.
type CSVSource struct {
	path string
}

func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

func (s *CSVSource) Name() string { return s.path }

func (s *CSVSource) LoadAccounts(ctx context.Context) ([]models.AccountRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return parseAccounts(f)
}

func parseAccounts(r io.Reader) ([]models.AccountRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		columns[name] = i
	}
	for _, required := range []string{ColumnIdentifier, ColumnHolderName, ColumnBalance} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	var accounts []models.AccountRecord
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		balance, err := decimal.NewFromString(strings.TrimSpace(row[columns[ColumnBalance]]))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid balance %q", line, row[columns[ColumnBalance]])
		}

		accounts = append(accounts, models.AccountRecord{
			Identifier: strings.TrimSpace(row[columns[ColumnIdentifier]]),
			HolderName: strings.TrimSpace(row[columns[ColumnHolderName]]),
			Balance:    balance,
		})
	}

	return accounts, nil
}

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// PostgresSource reads accounts from a table with identifier, holder_name and balance columns.
type PostgresSource struct {
	db    *sql.DB
	table string
}

func NewPostgresSource(db *sql.DB, table string) (*PostgresSource, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid account table name %q", table)
	}
	return &PostgresSource{db: db, table: table}, nil
}

func (s *PostgresSource) Name() string { return "postgres:" + s.table }

func (s *PostgresSource) LoadAccounts(ctx context.Context) ([]models.AccountRecord, error) {
	query := fmt.Sprintf(`SELECT identifier, holder_name, balance FROM %s ORDER BY id`, s.table)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []models.AccountRecord
	for rows.Next() {
		var (
			rec     models.AccountRecord
			balance string
		)
		if err := rows.Scan(&rec.Identifier, &rec.HolderName, &balance); err != nil {
			return nil, err
		}
		rec.Balance, err = decimal.NewFromString(balance)
		if err != nil {
			return nil, fmt.Errorf("invalid balance %q for %s", balance, rec.Identifier)
		}
		rec.Identifier = strings.TrimSpace(rec.Identifier)
		accounts = append(accounts, rec)
	}
	return accounts, rows.Err()
}
