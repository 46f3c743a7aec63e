package dump

import (
	"strconv"
	"strings"
)

// Kind is the scalar type of a parsed value.
type Kind uint8

const (
	Null Kind = iota
	String
	Int
	Float
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Int:
		return "int"
	case Float:
		return "float"
	default:
		return "null"
	}
}

// Value is one typed scalar from a VALUES tuple.
// Raw holds the decoded string, or the literal text for numbers.
type Value struct {
	Kind Kind
	Raw  string
	I    int64
	F    float64
}

func NullValue() Value { return Value{Kind: Null} }

func StringValue(s string) Value { return Value{Kind: String, Raw: s} }

func IntValue(i int64) Value {
	return Value{Kind: Int, Raw: strconv.FormatInt(i, 10), I: i}
}

func FloatValue(f float64, raw string) Value {
	if raw == "" {
		raw = strconv.FormatFloat(f, 'f', -1, 64)
	}
	return Value{Kind: Float, Raw: raw, F: f}
}

func (v Value) IsNull() bool { return v.Kind == Null }

// String returns the textual form; NULL is the empty string.
func (v Value) String() string {
	if v.Kind == Null {
		return ""
	}
	return v.Raw
}

// Int64 returns the value as an integer when it has an integral reading.
// Numeric strings are accepted since legacy dumps quote many integer columns.
func (v Value) Int64() (int64, bool) {
	switch v.Kind {
	case Int:
		return v.I, true
	case Float:
		if v.F == float64(int64(v.F)) {
			return int64(v.F), true
		}
		return 0, false
	case String:
		i, err := strconv.ParseInt(strings.TrimSpace(v.Raw), 10, 64)
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

// Interface returns nil, string, int64 or float64, suitable for JSON payloads.
func (v Value) Interface() any {
	switch v.Kind {
	case String:
		return v.Raw
	case Int:
		return v.I
	case Float:
		return v.F
	default:
		return nil
	}
}

// classifyBare types an unquoted token: NULL, TRUE/FALSE, integer, decimal,
// or a verbatim string for anything else.
func classifyBare(tok string) Value {
	switch strings.ToUpper(tok) {
	case "NULL":
		return NullValue()
	case "TRUE":
		return IntValue(1)
	case "FALSE":
		return IntValue(0)
	}
	if isInteger(tok) {
		if i, err := strconv.ParseInt(tok, 10, 64); err == nil {
			return Value{Kind: Int, Raw: tok, I: i}
		}
		return StringValue(tok)
	}
	if isDecimal(tok) {
		if f, err := strconv.ParseFloat(tok, 64); err == nil {
			return FloatValue(f, tok)
		}
	}
	return StringValue(tok)
}

func isInteger(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '-' || s[0] == '+' {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func isDecimal(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '-' || s[0] == '+' {
		s = s[1:]
	}
	digits, dot, exp := 0, false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			digits++
		case c == '.' && !dot && !exp:
			dot = true
		case (c == 'e' || c == 'E') && !exp && digits > 0:
			exp = true
			if i+1 < len(s) && (s[i+1] == '-' || s[i+1] == '+') {
				i++
			}
			if i+1 >= len(s) {
				return false
			}
		default:
			return false
		}
	}
	return digits > 0 && (dot || exp)
}
