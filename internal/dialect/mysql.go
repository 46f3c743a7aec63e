package dialect

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

type MysqlDialect struct{}

func (d *MysqlDialect) Name() string { return "mysql" }

func (d *MysqlDialect) CreateTableQueries() []string {
	qs := storeTables("IF NOT EXISTS ", "VARCHAR(%d)", "LONGTEXT")
	for i := range qs {
		qs[i] += " DEFAULT CHARSET=utf8mb4"
	}
	return qs
}

func (d *MysqlDialect) IsAlreadyExists(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1050 // ER_TABLE_EXISTS_ERROR
	}
	return false
}

func (d *MysqlDialect) InsertQuery(table string, cols []string) string {
	return defaultInsert(d, table, cols)
}

func (d *MysqlDialect) TruncateQuery(table string) string {
	return fmt.Sprintf("TRUNCATE TABLE %s", table)
}

func (d *MysqlDialect) Placeholder(index int) string {
	return "?"
}
