package dialect

import (
	"fmt"

	_ "github.com/sijms/go-ora/v2" // Oracle Driver
)

type OracleDialect struct{}

func (d *OracleDialect) Name() string { return "oracle" }

// CreateTableQueries returns plain CREATE statements; Oracle before 23c has
// no IF NOT EXISTS, so callers ignore ORA-00955 via IsAlreadyExists.
func (d *OracleDialect) CreateTableQueries() []string {
	return storeTables("", "VARCHAR2(%d)", "CLOB")
}

func (d *OracleDialect) IsAlreadyExists(err error) bool {
	return containsAny(err, "ORA-00955")
}

func (d *OracleDialect) InsertQuery(table string, cols []string) string {
	return defaultInsert(d, table, cols)
}

func (d *OracleDialect) TruncateQuery(table string) string {
	return fmt.Sprintf("TRUNCATE TABLE %s", table)
}

func (d *OracleDialect) Placeholder(index int) string {
	// Oracle uses :1, :2, etc. (1-based index)
	return fmt.Sprintf(":%d", index+1)
}
