// Package record turns parsed INSERT statements into rows keyed by column
// name and offers typed views over the rows of known tables.
package record

import (
	"strconv"

	"wp-pump/internal/dump"
	"wp-pump/internal/schema"
)

// Record is one materialized row. It is never modified after Materialize.
type Record struct {
	Table   schema.TableRole
	Ordinal int // position of the row among all rows of its table, from 0
	Offset  int64

	columns []string
	values  map[string]dump.Value
}

// Materialize maps every tuple of st onto its column names. startOrdinal is
// the number of rows of the same table already materialized.
func Materialize(st *dump.Statement, table schema.TableRole, startOrdinal int) []*Record {
	out := make([]*Record, 0, len(st.Rows))
	for i, row := range st.Rows {
		r := &Record{
			Table:   table,
			Ordinal: startOrdinal + i,
			Offset:  st.Offset,
			columns: st.Columns,
			values:  make(map[string]dump.Value, len(st.Columns)),
		}
		for j, col := range st.Columns {
			if j < len(row) {
				r.values[col] = row[j]
			}
		}
		out = append(out, r)
	}
	return out
}

// New builds a record from explicit values, mainly for tests.
func New(table schema.TableRole, ordinal int, cols []string, vals []dump.Value) *Record {
	r := &Record{Table: table, Ordinal: ordinal, columns: cols, values: make(map[string]dump.Value, len(cols))}
	for i, c := range cols {
		if i < len(vals) {
			r.values[c] = vals[i]
		}
	}
	return r
}

// Columns returns the column names in dump order.
func (r *Record) Columns() []string { return r.columns }

// Get returns the typed value of a column.
func (r *Record) Get(col string) (dump.Value, bool) {
	v, ok := r.values[col]
	return v, ok
}

// Has reports whether the row carries col.
func (r *Record) Has(col string) bool {
	_, ok := r.values[col]
	return ok
}

// Str returns the column as text; missing and NULL give "".
func (r *Record) Str(col string) string {
	return r.values[col].String()
}

// Int returns the column as an integer; missing, NULL or non-numeric give 0.
func (r *Record) Int(col string) int64 {
	i, _ := r.values[col].Int64()
	return i
}

// Payload returns the row as a JSON-friendly map.
func (r *Record) Payload() map[string]any {
	out := make(map[string]any, len(r.values))
	for k, v := range r.values {
		out[k] = v.Interface()
	}
	return out
}

// Ref identifies the row in warnings: table#id when the row has an id
// column, table@ordinal otherwise.
func (r *Record) Ref() string {
	for _, col := range []string{"ID", "id", "comment_ID", "term_id", "term_taxonomy_id", "meta_id", "umeta_id", "option_id"} {
		if v, ok := r.values[col]; ok && !v.IsNull() {
			return r.Table.RawName + "#" + v.String()
		}
	}
	return r.Table.RawName + "@" + strconv.Itoa(r.Ordinal)
}
