package dump

import (
	"errors"
	"fmt"
)

// ErrMalformedStatement matches every *MalformedStatementError via errors.Is.
var ErrMalformedStatement = errors.New("malformed statement")

// MalformedStatementError reports a lexing failure: an unterminated literal,
// a broken tuple or a column/value arity mismatch.
type MalformedStatementError struct {
	Offset  int64
	Excerpt string
	Reason  string
	Table   string
}

func (e *MalformedStatementError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("malformed statement for %s at byte %d: %s (near %q)", e.Table, e.Offset, e.Reason, e.Excerpt)
	}
	return fmt.Sprintf("malformed statement at byte %d: %s (near %q)", e.Offset, e.Reason, e.Excerpt)
}

func (e *MalformedStatementError) Is(target error) bool {
	return target == ErrMalformedStatement
}

const excerptLen = 40

func excerpt(b []byte, pos int) string {
	if pos < 0 {
		pos = 0
	}
	if pos > len(b) {
		pos = len(b)
	}
	end := pos + excerptLen
	if end > len(b) {
		end = len(b)
	}
	return string(b[pos:end])
}
