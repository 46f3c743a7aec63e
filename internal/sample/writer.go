package sample

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

var escaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`, "\r", `\r`, "\x00", `\0`)

// table buffers rows and writes them as multi-row INSERT statements of at
// most BatchSize tuples, the way mysqldump does with extended inserts.
type table struct {
	g     *generator
	name  string
	cols  []string
	rows  []string
	total int
}

// table writes DROP and CREATE statements for a prefixed table. Each
// column is "name definition"; the first column is the primary key.
func (g *generator) table(suffix string, columns ...string) *table {
	name := g.opts.Prefix + suffix
	t := &table{g: g, name: name}
	defs := make([]string, 0, len(columns)+1)
	for _, c := range columns {
		col, def, _ := strings.Cut(c, " ")
		t.cols = append(t.cols, col)
		defs = append(defs, fmt.Sprintf("  `%s` %s", col, def))
	}
	defs = append(defs, fmt.Sprintf("  PRIMARY KEY (`%s`)", t.cols[0]))
	fmt.Fprintf(g.w, "\nDROP TABLE IF EXISTS `%s`;\nCREATE TABLE `%s` (\n%s\n) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;\n",
		name, name, strings.Join(defs, ",\n"))
	return t
}

func (t *table) add(values ...any) error {
	if len(values) != len(t.cols) {
		return fmt.Errorf("%s: %d values for %d columns", t.name, len(values), len(t.cols))
	}
	lits := make([]string, len(values))
	for i, v := range values {
		lits[i] = literal(v)
	}
	t.rows = append(t.rows, "("+strings.Join(lits, ",")+")")
	t.total++
	if t.g.onProgress != nil {
		t.g.onProgress()
	}
	if len(t.rows) >= t.g.opts.BatchSize {
		return t.flush()
	}
	return nil
}

func (t *table) flush() error {
	if len(t.rows) == 0 {
		return nil
	}
	cols := "`" + strings.Join(t.cols, "`,`") + "`"
	_, err := io.WriteString(t.g.w, fmt.Sprintf("INSERT INTO `%s` (%s) VALUES %s;\n", t.name, cols, strings.Join(t.rows, ",\n")))
	t.rows = t.rows[:0]
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", t.name, err)
	}
	return nil
}

func (t *table) close() error {
	if err := t.flush(); err != nil {
		return err
	}
	t.g.results = append(t.g.results, TableResult{Table: t.name, Rows: t.total})
	return nil
}

// literal renders v as a MySQL literal.
func literal(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case time.Time:
		return "'" + x.Format(dateLayout) + "'"
	case string:
		return "'" + escaper.Replace(x) + "'"
	default:
		return "'" + escaper.Replace(fmt.Sprint(x)) + "'"
	}
}
