package storage

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a storage backend failure. Remote codes are all
// recoverable via local fallback; ErrCodeLocalWrite is the local backend's
// only failure cause.
type ErrorCode string

const (
	ErrCodeAuth           ErrorCode = "auth_error"
	ErrCodeBucketNotFound ErrorCode = "bucket_not_found"
	ErrCodeTimeout        ErrorCode = "timeout"
	ErrCodeNetwork        ErrorCode = "network_error"
	ErrCodeRateLimited    ErrorCode = "rate_limited"
	ErrCodeLocalWrite     ErrorCode = "local_write_error"
)

// StorageError is a backend failure normalized to an ErrorCode. The
// underlying cause is preserved for logging but callers should branch on
// Code only.
type StorageError struct {
	Code   ErrorCode
	Detail string
	Err    error
}

func (e *StorageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("storage: %s: %s: %v", e.Code, e.Detail, e.Err)
	}
	return fmt.Sprintf("storage: %s: %s", e.Code, e.Detail)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError wraps err with a normalized code and human-readable detail.
func NewStorageError(code ErrorCode, detail string, err error) *StorageError {
	return &StorageError{Code: code, Detail: detail, Err: err}
}

// CodeOf returns the normalized code of err. Errors that did not come out of
// a storage backend are reported as network errors.
func CodeOf(err error) ErrorCode {
	var se *StorageError
	if errors.As(err, &se) {
		return se.Code
	}
	return ErrCodeNetwork
}
