package dialect

import (
	"fmt"
	"strings"

	_ "github.com/denisenkom/go-mssqldb" // SQL Server Driver
)

type MSSQLDialect struct{}

// Helper: MSSQL Driver (go-mssqldb) often prefers @p1, @p2 named parameters over ?
// especially when prepared statements are involved or simple Exec.

func (d *MSSQLDialect) Name() string { return "sqlserver" }

// CreateTableQueries guards each CREATE with OBJECT_ID since T-SQL has no
// CREATE TABLE IF NOT EXISTS.
func (d *MSSQLDialect) CreateTableQueries() []string {
	qs := storeTables("", "NVARCHAR(%d)", "NVARCHAR(MAX)")
	names := []string{EntitiesTable, UniqueKeysTable}
	for i := range qs {
		qs[i] = fmt.Sprintf("IF OBJECT_ID('%s', 'U') IS NULL %s", names[i], qs[i])
	}
	return qs
}

func (d *MSSQLDialect) IsAlreadyExists(err error) bool {
	return containsAny(err, "There is already an object named")
}

func (d *MSSQLDialect) InsertQuery(table string, cols []string) string {
	vals := GeneratePlaceholders(len(cols), d.Placeholder)
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), vals)
}

// TruncateQuery uses DELETE: TRUNCATE needs ALTER permission on SQL Server.
func (d *MSSQLDialect) TruncateQuery(table string) string {
	return fmt.Sprintf("DELETE FROM %s", table)
}

func (d *MSSQLDialect) Placeholder(index int) string {
	return fmt.Sprintf("@p%d", index+1)
}
