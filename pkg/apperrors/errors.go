package apperrors

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnsupportedEngine = errors.New("unsupported database engine")
	ErrExecution         = errors.New("query execution failed")
	ErrUnauthenticated   = errors.New("not authenticated")
)
