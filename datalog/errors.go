package datalog

import (
	"errors"
	"fmt"
)

// ErrorKind classifies engine failures
type ErrorKind int

const (
	// SchemaError: conflicting declarations, arity mismatches, unknown IE functions
	SchemaError ErrorKind = iota + 1
	// SafetyError: a rule whose head or IE inputs are not bound by its body
	SafetyError
	// TypeError: values that do not match a declared or expected schema
	TypeError
	// ExecutionError: IE function failures and exhausted iteration limits
	ExecutionError
	// StructuralError: malformed operator inputs such as a join of zero relations
	StructuralError
	// UndeclaredError: references to relations that do not exist
	UndeclaredError
)

func (k ErrorKind) String() string {
	switch k {
	case SchemaError:
		return "schema error"
	case SafetyError:
		return "safety error"
	case TypeError:
		return "type error"
	case ExecutionError:
		return "execution error"
	case StructuralError:
		return "structural error"
	case UndeclaredError:
		return "undeclared relation"
	default:
		return "error"
	}
}

// Error is the error type returned by every engine operation
type Error struct {
	Kind     ErrorKind
	Message  string
	Relation string // relation or IE function involved, if any
	Err      error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Relation != "" {
		msg += " in " + e.Relation
	}
	msg += ": " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf builds an *Error of the given kind
func Errorf(kind ErrorKind, relation, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Relation: relation, Message: fmt.Sprintf(format, args...)}
}

// WrapError builds an *Error of the given kind around a cause
func WrapError(kind ErrorKind, relation string, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Relation: relation, Message: fmt.Sprintf(format, args...), Err: err}
}

// IsKind reports whether any error in err's chain is an *Error of kind
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	for err != nil {
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}
