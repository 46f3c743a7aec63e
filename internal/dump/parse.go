package dump

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// constraintWords start table-level definitions inside CREATE TABLE that are
// not columns.
var constraintWords = map[string]bool{
	"PRIMARY": true, "KEY": true, "UNIQUE": true, "INDEX": true,
	"CONSTRAINT": true, "FULLTEXT": true, "SPATIAL": true,
	"FOREIGN": true, "CHECK": true,
}

var insertModifiers = map[string]bool{
	"LOW_PRIORITY": true, "DELAYED": true, "HIGH_PRIORITY": true, "IGNORE": true,
}

type cursor struct {
	b     []byte
	pos   int
	base  int64
	table string
}

func (c *cursor) fail(reason string) error {
	return &MalformedStatementError{
		Offset:  c.base + int64(c.pos),
		Excerpt: excerpt(c.b, c.pos),
		Reason:  reason,
		Table:   c.table,
	}
}

func (c *cursor) eof() bool { return c.pos >= len(c.b) }

func (c *cursor) peek() byte {
	if c.pos >= len(c.b) {
		return 0
	}
	return c.b[c.pos]
}

func (c *cursor) skipSpace() {
	for c.pos < len(c.b) && isSpace(c.b[c.pos]) {
		c.pos++
	}
}

func isWordByte(b byte) bool {
	return b == '_' || b == '$' || b >= 0x80 ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func (c *cursor) word() string {
	start := c.pos
	for c.pos < len(c.b) && isWordByte(c.b[c.pos]) {
		c.pos++
	}
	return string(c.b[start:c.pos])
}

// keyword consumes kw (case-insensitive) if it is the next word.
func (c *cursor) keyword(kw string) bool {
	save := c.pos
	c.skipSpace()
	if strings.EqualFold(c.word(), kw) {
		return true
	}
	c.pos = save
	return false
}

// identifier reads a possibly qualified name and returns its last part.
func (c *cursor) identifier() (string, error) {
	var parts []string
	for {
		var part string
		switch q := c.peek(); q {
		case '`', '"':
			c.pos++
			var sb strings.Builder
			for {
				if c.eof() {
					return "", c.fail("unterminated quoted identifier")
				}
				ch := c.b[c.pos]
				c.pos++
				if ch == q {
					if c.peek() == q {
						sb.WriteByte(q)
						c.pos++
						continue
					}
					break
				}
				sb.WriteByte(ch)
			}
			part = sb.String()
		default:
			part = c.word()
			if part == "" {
				if len(parts) == 0 {
					return "", c.fail("expected identifier")
				}
				return parts[len(parts)-1], nil
			}
		}
		parts = append(parts, part)
		if c.peek() != '.' {
			return part, nil
		}
		c.pos++
	}
}

func (l *Lexer) parse(raw []byte, start int64) (*Statement, error) {
	c := &cursor{b: raw, base: start}
	c.skipSpace()
	switch strings.ToUpper(c.word()) {
	case "INSERT":
		return l.parseInsert(c)
	case "CREATE":
		return l.parseCreate(c)
	}
	return nil, nil
}

func (l *Lexer) parseInsert(c *cursor) (*Statement, error) {
	for {
		save := c.pos
		c.skipSpace()
		w := strings.ToUpper(c.word())
		if insertModifiers[w] {
			continue
		}
		if w != "INTO" {
			c.pos = save
		}
		break
	}
	c.skipSpace()
	table, err := c.identifier()
	if err != nil {
		return nil, err
	}
	c.table = table

	c.skipSpace()
	var cols []string
	if c.peek() == '(' {
		if cols, err = c.columnList(); err != nil {
			return nil, err
		}
	}
	c.skipSpace()
	switch strings.ToUpper(c.word()) {
	case "VALUES", "VALUE":
	default:
		// INSERT ... SELECT / SET forms carry no literal rows.
		return nil, nil
	}
	if cols == nil {
		if known, ok := l.columns[table]; ok {
			cols = append([]string(nil), known...)
		}
	}

	st := &Statement{Kind: Insert, Table: table, Columns: cols, Offset: c.base}
	if l.headersOnly {
		return st, nil
	}

	rows, starts, err := c.tuples(len(cols))
	if err != nil {
		return nil, err
	}
	if len(st.Columns) == 0 && len(rows) > 0 {
		st.Columns = positionalColumns(len(rows[0]))
	}
	for i, row := range rows {
		if len(row) != len(st.Columns) {
			return nil, &MalformedStatementError{
				Offset:  c.base + int64(starts[i]),
				Excerpt: excerpt(c.b, starts[i]),
				Reason:  fmt.Sprintf("row %d has %d values, expected %d", i+1, len(row), len(st.Columns)),
				Table:   table,
			}
		}
	}
	st.Rows = rows
	return st, nil
}

func positionalColumns(n int) []string {
	cols := make([]string, n)
	for i := range cols {
		cols[i] = strconv.Itoa(i)
	}
	return cols
}

func (c *cursor) columnList() ([]string, error) {
	c.pos++ // '('
	var cols []string
	for {
		c.skipSpace()
		if c.peek() == ')' {
			c.pos++
			return cols, nil
		}
		name, err := c.identifier()
		if err != nil {
			return nil, err
		}
		cols = append(cols, name)
		c.skipSpace()
		switch c.peek() {
		case ',':
			c.pos++
		case ')':
			c.pos++
			return cols, nil
		default:
			return nil, c.fail("expected ',' or ')' in column list")
		}
	}
}

// tuples decodes "(...), (...), ..." and returns each row with the offset of
// its opening parenthesis.
func (c *cursor) tuples(width int) ([][]Value, []int, error) {
	var rows [][]Value
	var starts []int
	for {
		c.skipSpace()
		if c.peek() != '(' {
			return nil, nil, c.fail("expected '(' to open a value tuple")
		}
		starts = append(starts, c.pos)
		c.pos++
		row := make([]Value, 0, width)
	values:
		for {
			c.skipSpace()
			if c.eof() {
				return nil, nil, c.fail("unterminated value tuple")
			}
			if c.peek() == ')' && len(row) == 0 {
				c.pos++
				break
			}
			v, err := c.value()
			if err != nil {
				return nil, nil, err
			}
			row = append(row, v)
			c.skipSpace()
			switch c.peek() {
			case ',':
				c.pos++
			case ')':
				c.pos++
				break values
			default:
				return nil, nil, c.fail("expected ',' or ')' after value")
			}
		}
		rows = append(rows, row)
		c.skipSpace()
		if c.peek() != ',' {
			return rows, starts, nil
		}
		c.pos++
	}
}

func (c *cursor) value() (Value, error) {
	ch := c.peek()
	switch {
	case ch == '\'' || ch == '"':
		return c.quoted()
	case ch == '_':
		// Charset introducer: _binary '...', _utf8mb4'...'
		save := c.pos
		c.word()
		c.skipSpace()
		if q := c.peek(); q == '\'' || q == '"' {
			return c.quoted()
		}
		c.pos = save
	case (ch == 'x' || ch == 'X' || ch == 'b' || ch == 'B') && c.pos+1 < len(c.b) && c.b[c.pos+1] == '\'':
		start := c.pos
		end := strings.IndexByte(string(c.b[c.pos+2:]), '\'')
		if end < 0 {
			return Value{}, c.fail("unterminated hex literal")
		}
		c.pos += 2 + end + 1
		return StringValue(string(c.b[start:c.pos])), nil
	}

	start := c.pos
	for c.pos < len(c.b) {
		b := c.b[c.pos]
		if b == ',' || b == ')' || isSpace(b) {
			break
		}
		c.pos++
	}
	if c.pos == start {
		return Value{}, c.fail("empty value")
	}
	return classifyBare(string(c.b[start:c.pos])), nil
}

// quoted decodes a string literal. Backslash escapes and doubled quotes are
// both honoured.
func (c *cursor) quoted() (Value, error) {
	q := c.b[c.pos]
	c.pos++
	out := make([]byte, 0, 32)
	for c.pos < len(c.b) {
		ch := c.b[c.pos]
		switch {
		case ch == '\\':
			if c.pos+1 >= len(c.b) {
				return Value{}, c.fail("unterminated string literal")
			}
			out = append(out, unescape(c.b[c.pos+1]))
			c.pos += 2
		case ch == q:
			if c.pos+1 < len(c.b) && c.b[c.pos+1] == q {
				out = append(out, q)
				c.pos += 2
				continue
			}
			c.pos++
			return StringValue(decodeText(out)), nil
		default:
			out = append(out, ch)
			c.pos++
		}
	}
	return Value{}, c.fail("unterminated string literal")
}

func unescape(b byte) byte {
	switch b {
	case 'n':
		return '\n'
	case 'r':
		return '\r'
	case 't':
		return '\t'
	case '0':
		return 0
	case 'b':
		return '\b'
	case 'Z':
		return 0x1a
	default:
		return b
	}
}

// decodeText returns b as UTF-8. Bytes that are not valid UTF-8 are read as
// Windows-1252, which is what old latin1 tables actually contain.
func decodeText(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	var sb strings.Builder
	sb.Grow(len(b) + 8)
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size == 1 {
			sb.WriteRune(charmap.Windows1252.DecodeByte(b[0]))
		} else {
			sb.WriteRune(r)
		}
		b = b[size:]
	}
	return sb.String()
}

func (l *Lexer) parseCreate(c *cursor) (*Statement, error) {
	c.keyword("TEMPORARY")
	if !c.keyword("TABLE") {
		return nil, nil
	}
	if c.keyword("IF") {
		c.keyword("NOT")
		c.keyword("EXISTS")
	}
	c.skipSpace()
	table, err := c.identifier()
	if err != nil {
		return nil, err
	}
	c.table = table
	c.skipSpace()
	if c.peek() != '(' {
		// CREATE TABLE ... LIKE / AS SELECT
		return &Statement{Kind: CreateTable, Table: table, Offset: c.base}, nil
	}

	defs, err := c.definitions()
	if err != nil {
		return nil, err
	}
	var cols []string
	for _, def := range defs {
		dc := &cursor{b: []byte(def)}
		dc.skipSpace()
		if q := dc.peek(); q == '`' || q == '"' {
			name, err := dc.identifier()
			if err == nil {
				cols = append(cols, name)
			}
			continue
		}
		w := dc.word()
		if w == "" || constraintWords[strings.ToUpper(w)] {
			continue
		}
		cols = append(cols, w)
	}
	l.columns[table] = cols
	return &Statement{Kind: CreateTable, Table: table, Columns: cols, Offset: c.base}, nil
}

// definitions splits the parenthesised CREATE TABLE body at top-level commas.
func (c *cursor) definitions() ([]string, error) {
	c.pos++ // '('
	depth := 0
	start := c.pos
	var defs []string
	var quote byte
	for c.pos < len(c.b) {
		ch := c.b[c.pos]
		if quote != 0 {
			if ch == '\\' && quote != '`' {
				c.pos += 2
				continue
			}
			if ch == quote {
				quote = 0
			}
			c.pos++
			continue
		}
		switch ch {
		case '\'', '"', '`':
			quote = ch
		case '(':
			depth++
		case ')':
			if depth == 0 {
				defs = append(defs, string(c.b[start:c.pos]))
				c.pos++
				return defs, nil
			}
			depth--
		case ',':
			if depth == 0 {
				defs = append(defs, string(c.b[start:c.pos]))
				start = c.pos + 1
			}
		}
		c.pos++
	}
	return nil, c.fail("unterminated table definition")
}
