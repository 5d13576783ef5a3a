package datalog

import (
	"fmt"
	"strconv"
	"strings"
)

// DataType tags the kind of a term or a column in a relation schema
type DataType byte

const (
	TypeString DataType = iota
	TypeInt
	TypeSpan
	TypeFreeVar
	TypeVar
)

// String returns the schema name of a type
func (t DataType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeInt:
		return "int"
	case TypeSpan:
		return "span"
	case TypeFreeVar:
		return "free_var"
	case TypeVar:
		return "var"
	default:
		return fmt.Sprintf("DataType(%d)", byte(t))
	}
}

// IsConstant reports whether terms of this type carry a value
func (t DataType) IsConstant() bool {
	return t == TypeString || t == TypeInt || t == TypeSpan
}

// ParseDataType parses a schema type name
func ParseDataType(s string) (DataType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string", "str":
		return TypeString, nil
	case "int", "integer":
		return TypeInt, nil
	case "span":
		return TypeSpan, nil
	case "free_var":
		return TypeFreeVar, nil
	case "var":
		return TypeVar, nil
	}
	return 0, Errorf(TypeError, "", "unknown data type %q", s)
}

// Term is one argument of a relation: a constant, a free variable
// (a result/join column) or a bound variable (resolved before evaluation).
type Term struct {
	Type  DataType
	Value Value // string/int64/Span for constants, the variable name otherwise
}

// Term constructors
func Var(name string) Term      { return Term{Type: TypeFreeVar, Value: name} }
func BoundVar(name string) Term { return Term{Type: TypeVar, Value: name} }
func Str(s string) Term         { return Term{Type: TypeString, Value: s} }
func Int(i int64) Term          { return Term{Type: TypeInt, Value: i} }
func SpanTerm(start, end int64) Term {
	return Term{Type: TypeSpan, Value: Span{Start: start, End: end}}
}

// Const wraps a stored value as a constant term
func Const(v Value) (Term, error) {
	t, err := TypeOf(v)
	if err != nil {
		return Term{}, err
	}
	return Term{Type: t, Value: v}, nil
}

// IsVar reports whether the term is a free variable
func (t Term) IsVar() bool { return t.Type == TypeFreeVar }

// VarName returns the variable name for free and bound variables
func (t Term) VarName() string {
	if t.Type == TypeFreeVar || t.Type == TypeVar {
		name, _ := t.Value.(string)
		return name
	}
	return ""
}

// Equal compares type and value
func (t Term) Equal(other Term) bool {
	return t.Type == other.Type && ValuesEqual(t.Value, other.Value)
}

// String renders constants the way they are written in programs:
// strings quoted, spans as [s,e), bound variables with a $ prefix.
func (t Term) String() string {
	switch t.Type {
	case TypeString:
		return strconv.Quote(t.Value.(string))
	case TypeFreeVar:
		return t.VarName()
	case TypeVar:
		return "$" + t.VarName()
	default:
		return FormatValue(t.Value)
	}
}
