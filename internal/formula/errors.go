package formula

import (
	"errors"
	"fmt"

	"solar-quote/internal/apperr"
)

// Kind classifies a formula failure.
type Kind string

const (
	KindSyntax            Kind = "SYNTAX"
	KindIllegalCharacter  Kind = "ILLEGAL_CHARACTER"
	KindTooComplex        Kind = "TOO_COMPLEX"
	KindUndefinedVariable Kind = "UNDEFINED_VARIABLE"
	KindUnknownFunction   Kind = "UNKNOWN_FUNCTION"
	KindArity             Kind = "ARITY"
	KindDivisionByZero    Kind = "DIVISION_BY_ZERO"
	KindNonFinite         Kind = "NON_FINITE"
)

// Error is returned for every parse or evaluation failure.
// Pos is the 0-based byte offset into Formula, or -1 when not applicable.
type Error struct {
	Kind    Kind
	Formula string
	Pos     int
	Name    string // identifier or function involved, if any
	Msg     string
}

func (e *Error) Error() string {
	var where string
	if e.Pos >= 0 {
		where = fmt.Sprintf(" at offset %d", e.Pos)
	}
	if e.Name != "" {
		return fmt.Sprintf("formula %q: %s%s: %s (%s)", e.Formula, e.Kind, where, e.Msg, e.Name)
	}
	return fmt.Sprintf("formula %q: %s%s: %s", e.Formula, e.Kind, where, e.Msg)
}

func (e *Error) Unwrap() error { return apperr.ErrFormula }

func isKind(err error, k Kind) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == k
}

// IsUndefinedVariable reports whether err is an undefined-identifier failure.
func IsUndefinedVariable(err error) bool { return isKind(err, KindUndefinedVariable) }

// IsDivisionByZero reports whether err is a division-by-zero failure.
func IsDivisionByZero(err error) bool { return isKind(err, KindDivisionByZero) }
