package dialect

import (
	"fmt"

	_ "modernc.org/sqlite" // SQLite Driver (pure Go)
)

type SqliteDialect struct{}

func (d *SqliteDialect) Name() string { return "sqlite" }

func (d *SqliteDialect) CreateTableQueries() []string {
	return storeTables("IF NOT EXISTS ", "VARCHAR(%d)", "TEXT")
}

func (d *SqliteDialect) IsAlreadyExists(err error) bool {
	return containsAny(err, "already exists")
}

func (d *SqliteDialect) InsertQuery(table string, cols []string) string {
	return defaultInsert(d, table, cols)
}

// TruncateQuery uses DELETE; SQLite has no TRUNCATE.
func (d *SqliteDialect) TruncateQuery(table string) string {
	return fmt.Sprintf("DELETE FROM %s", table)
}

func (d *SqliteDialect) Placeholder(index int) string {
	return "?"
}
