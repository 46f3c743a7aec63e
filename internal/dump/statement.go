package dump

// StatementKind tells which statement headers the lexer recognised.
type StatementKind int

const (
	Insert StatementKind = iota
	CreateTable
)

func (k StatementKind) String() string {
	if k == CreateTable {
		return "CREATE TABLE"
	}
	return "INSERT"
}

// Statement is one recognised statement of the dump.
// For CreateTable only Table and Columns are set. For Insert in headers-only
// mode Rows is nil.
type Statement struct {
	Kind    StatementKind
	Table   string
	Columns []string
	Rows    [][]Value
	Offset  int64 // byte offset of the first byte of the statement
}
