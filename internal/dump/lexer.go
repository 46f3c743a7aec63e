// Package dump reads SQL dump files statement by statement without executing
// them. Only INSERT ... VALUES and CREATE TABLE headers are decoded; every
// other statement is skipped after its boundary has been found.
package dump

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

// Lexer streams statements out of a dump. It keeps at most one statement in
// memory and cannot rewind: a second pass needs a fresh Lexer over a fresh
// reader.
type Lexer struct {
	r           *bufio.Reader
	offset      int64
	headersOnly bool
	columns     map[string][]string
	buf         []byte
	done        bool
	pending     int // pushed-back byte, -1 when empty
}

// Option configures a Lexer.
type Option func(*Lexer)

// HeadersOnly skips tuple decoding. Statement boundaries are still found
// with full string awareness, so the position never drifts.
func HeadersOnly() Option {
	return func(l *Lexer) { l.headersOnly = true }
}

func NewLexer(r io.Reader, opts ...Option) *Lexer {
	l := &Lexer{
		r:       bufio.NewReaderSize(r, 64*1024),
		columns: make(map[string][]string),
		pending: -1,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Offset returns the number of bytes consumed so far.
func (l *Lexer) Offset() int64 { return l.offset }

// Next returns the next INSERT or CREATE TABLE statement, or io.EOF.
// After a *MalformedStatementError the lexer sits after the broken statement,
// so a caller may record the error and keep reading.
func (l *Lexer) Next() (*Statement, error) {
	for {
		raw, start, err := l.readStatement()
		if err != nil {
			return nil, err
		}
		st, err := l.parse(raw, start)
		if err != nil {
			return nil, err
		}
		if st != nil {
			return st, nil
		}
	}
}

func (l *Lexer) readByte() (byte, error) {
	if l.pending >= 0 {
		b := byte(l.pending)
		l.pending = -1
		l.offset++
		return b, nil
	}
	b, err := l.r.ReadByte()
	if err == nil {
		l.offset++
	}
	return b, err
}

func (l *Lexer) peekByte() (byte, bool) {
	if l.pending >= 0 {
		return byte(l.pending), true
	}
	p, err := l.r.Peek(1)
	if err != nil {
		return 0, false
	}
	return p[0], true
}

// unreadByte pushes b back. bufio's own UnreadByte is unusable here because
// Peek invalidates it.
func (l *Lexer) unreadByte(b byte) {
	l.pending = int(b)
	l.offset--
}

// readStatement skips blanks and comments, then collects bytes up to the
// next ';' that is outside any quoted literal.
func (l *Lexer) readStatement() ([]byte, int64, error) {
	if l.done {
		return nil, 0, io.EOF
	}
	for {
		b, err := l.readByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				l.done = true
			}
			return nil, 0, err
		}
		switch {
		case isSpace(b) || b == ';':
			continue
		case b == '#':
			if err := l.skipLine(); err != nil {
				return nil, 0, err
			}
			continue
		case b == '-':
			if p, ok := l.peekByte(); ok && p == '-' {
				if err := l.skipLine(); err != nil {
					return nil, 0, err
				}
				continue
			}
		case b == '/':
			if p, ok := l.peekByte(); ok && p == '*' {
				start := l.offset - 1
				l.readByte()
				if err := l.skipBlockComment(start); err != nil {
					return nil, 0, err
				}
				continue
			}
		}
		l.unreadByte(b)
		return l.scanBody(l.offset)
	}
}

func (l *Lexer) scanBody(start int64) ([]byte, int64, error) {
	buf := l.buf[:0]
	var quote byte
	for {
		b, err := l.readByte()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return nil, start, err
			}
			l.done = true
			if quote != 0 {
				return nil, start, &MalformedStatementError{
					Offset:  start,
					Excerpt: excerpt(buf, 0),
					Reason:  "unterminated quoted literal",
				}
			}
			if len(bytes.TrimSpace(buf)) == 0 {
				return nil, start, io.EOF
			}
			l.buf = buf
			return buf, start, nil
		}

		if quote != 0 {
			buf = append(buf, b)
			switch {
			case b == '\\' && quote != '`':
				nb, err := l.readByte()
				if err != nil {
					l.done = true
					return nil, start, &MalformedStatementError{
						Offset:  start,
						Excerpt: excerpt(buf, 0),
						Reason:  "unterminated quoted literal",
					}
				}
				buf = append(buf, nb)
			case b == quote:
				if p, ok := l.peekByte(); ok && p == quote {
					nb, _ := l.readByte()
					buf = append(buf, nb)
				} else {
					quote = 0
				}
			}
			continue
		}

		switch b {
		case '\'', '"', '`':
			quote = b
		case ';':
			l.buf = buf
			return buf, start, nil
		case '-':
			if p, ok := l.peekByte(); ok && p == '-' {
				if err := l.skipLine(); err != nil {
					return nil, start, err
				}
				buf = append(buf, ' ')
				continue
			}
		}
		buf = append(buf, b)
	}
}

func (l *Lexer) skipLine() error {
	for {
		b, err := l.readByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if b == '\n' {
			return nil
		}
	}
}

func (l *Lexer) skipBlockComment(start int64) error {
	var prev byte
	for {
		b, err := l.readByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				l.done = true
				return &MalformedStatementError{Offset: start, Reason: "unterminated comment"}
			}
			return err
		}
		if prev == '*' && b == '/' {
			return nil
		}
		prev = b
	}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == '\v'
}
