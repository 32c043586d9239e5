package engine

import (
	"errors"
	"fmt"
)

// QueryError is the structured failure surfaced by Query and QueryCount.
type QueryError struct {
	Code    ErrorCode
	Message string

	// Table and Column identify the subject where applicable.
	Table  string
	Column string
}

// ErrorCode categorises query failures.
type ErrorCode string

const (
	// ErrCodeNoSuchTable indicates the FROM table is not registered.
	ErrCodeNoSuchTable ErrorCode = "NO_SUCH_TABLE"

	// ErrCodeNoSuchColumn indicates a referenced column is neither declared
	// nor synthetic.
	ErrCodeNoSuchColumn ErrorCode = "NO_SUCH_COLUMN"

	// ErrCodeBadQuery indicates the SQL failed to parse or validate.
	ErrCodeBadQuery ErrorCode = "BAD_QUERY"

	// ErrCodeBadParams indicates a placeholder without a bound parameter.
	ErrCodeBadParams ErrorCode = "BAD_PARAMETERS"
)

// Error implements the error interface.
func (e *QueryError) Error() string {
	switch {
	case e.Table != "" && e.Column != "":
		return fmt.Sprintf("%s: %s (table=%s, column=%s)", e.Code, e.Message, e.Table, e.Column)
	case e.Table != "":
		return fmt.Sprintf("%s: %s (table=%s)", e.Code, e.Message, e.Table)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// IsNoSuchTable reports whether err is a missing-table failure.
// Uses errors.As to handle wrapped errors.
func IsNoSuchTable(err error) bool {
	var qe *QueryError
	return errors.As(err, &qe) && qe.Code == ErrCodeNoSuchTable
}

// IsNoSuchColumn reports whether err is a missing-column failure.
func IsNoSuchColumn(err error) bool {
	var qe *QueryError
	return errors.As(err, &qe) && qe.Code == ErrCodeNoSuchColumn
}

func noSuchTable(name string) *QueryError {
	return &QueryError{Code: ErrCodeNoSuchTable, Message: "table is not registered", Table: name}
}

func noSuchColumn(table, column string) *QueryError {
	return &QueryError{Code: ErrCodeNoSuchColumn, Message: "column is not declared", Table: table, Column: column}
}
