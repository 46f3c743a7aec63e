package dialect

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	"github.com/lib/pq"
)

// PostgresDialect serves both lib/pq ("postgres") and pgx ("pgx").
type PostgresDialect struct{}

func (d *PostgresDialect) Name() string { return "postgres" }

func (d *PostgresDialect) CreateTableQueries() []string {
	return storeTables("IF NOT EXISTS ", "VARCHAR(%d)", "TEXT")
}

func (d *PostgresDialect) IsAlreadyExists(err error) bool {
	const duplicateTable = "42P07"
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == duplicateTable
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == duplicateTable
	}
	return false
}

func (d *PostgresDialect) InsertQuery(table string, cols []string) string {
	// Generate placeholders ($1, $2, ...)
	return defaultInsert(d, table, cols)
}

func (d *PostgresDialect) TruncateQuery(table string) string {
	return fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)
}

func (d *PostgresDialect) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index+1)
}
