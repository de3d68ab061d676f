package quarry

import (
	"errors"
	"fmt"
)

// Sentinel errors for common storage operations.
//
// A missing entity is never an error: Get and GetForUpdate return a
// nil entity instead. The sentinels below cover genuine failures.
var (
	// Transaction errors
	ErrTransactionFailed  = errors.New("transaction failed")
	ErrInvalidTransaction = errors.New("invalid transaction")

	// Query errors
	ErrQueryFailed  = errors.New("query failed")
	ErrInvalidQuery = errors.New("invalid query")

	// Store lifecycle errors
	ErrStoreClosed = errors.New("store is closed")

	// Connection errors
	ErrConnectionFailed = errors.New("connection failed")
)

// FieldTypeError reports a filter operator applied to a field whose
// stored value is of a different kind than the operator expects.
type FieldTypeError struct {
	Field string
	Want  string
	Got   any
}

func (e *FieldTypeError) Error() string {
	return fmt.Sprintf("field %s is not of kind %s: %v", e.Field, e.Want, e.Got)
}

// NewFieldTypeError creates a new field type error.
func NewFieldTypeError(field, want string, got any) *FieldTypeError {
	return &FieldTypeError{Field: field, Want: want, Got: got}
}

// UnknownFieldError reports a filter referencing a field the record
// does not declare.
type UnknownFieldError struct {
	Field string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown field %s", e.Field)
}

// NewUnknownFieldError creates a new unknown field error.
func NewUnknownFieldError(field string) *UnknownFieldError {
	return &UnknownFieldError{Field: field}
}

// QueryError represents query execution errors.
type QueryError struct {
	Operation string
	Table     string
	Query     string
	Args      []any
	Err       error
}

func (e *QueryError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("query error during %s on table %s: %v",
			e.Operation, e.Table, e.Err)
	}
	return fmt.Sprintf("query error during %s: %v", e.Operation, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// NewQueryError creates a new query error.
func NewQueryError(err error, operation, table, query string, args []any) *QueryError {
	return &QueryError{
		Operation: operation,
		Table:     table,
		Query:     query,
		Args:      args,
		Err:       err,
	}
}

// TransactionError represents transaction-related errors.
type TransactionError struct {
	Operation string
	Err       error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction error during %s: %v", e.Operation, e.Err)
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}

// NewTransactionError creates a new transaction error.
func NewTransactionError(err error, operation string) *TransactionError {
	return &TransactionError{Operation: operation, Err: err}
}

// ConnectionError represents connection-related errors.
type ConnectionError struct {
	Operation string
	Driver    string
	Host      string
	Err       error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error during %s with %s driver at %s: %v",
		e.Operation, e.Driver, e.Host, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Wrapper functions for adding context to errors

// WrapQueryError wraps an error as a query error.
func WrapQueryError(err error, operation, table, query string, args []any) error {
	if err == nil {
		return nil
	}
	return NewQueryError(err, operation, table, query, args)
}

// WrapTransactionError wraps an error as a transaction error.
func WrapTransactionError(err error, operation string) error {
	if err == nil {
		return nil
	}
	return NewTransactionError(err, operation)
}

// WrapConnectionError wraps an error as a connection error.
func WrapConnectionError(err error, operation, driver, host string) error {
	if err == nil {
		return nil
	}
	return &ConnectionError{Operation: operation, Driver: driver, Host: host, Err: err}
}

// Error checking functions

// IsFieldTypeError checks if an error is a field type error.
func IsFieldTypeError(err error) bool {
	var typeErr *FieldTypeError
	return errors.As(err, &typeErr)
}

// IsUnknownFieldError checks if an error is an unknown field error.
func IsUnknownFieldError(err error) bool {
	var fieldErr *UnknownFieldError
	return errors.As(err, &fieldErr)
}

// IsQueryError checks if an error is a query error.
func IsQueryError(err error) bool {
	var queryErr *QueryError
	return errors.As(err, &queryErr)
}

// IsTransactionError checks if an error is a transaction error.
func IsTransactionError(err error) bool {
	var txErr *TransactionError
	return errors.As(err, &txErr)
}

// IsConnectionError checks if an error is a connection error.
func IsConnectionError(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr)
}
