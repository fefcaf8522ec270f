// errors.go: structured errors for the retry executor
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package retry

import (
	"github.com/agilira/go-errors"
)

// Error codes for the retry executor
const (
	ErrCodeRetriesExhausted errors.ErrorCode = "LAZYCACHE_RETRIES_EXHAUSTED"
	ErrCodeInvalidPolicy    errors.ErrorCode = "LAZYCACHE_INVALID_RETRY_POLICY"
)

const (
	msgRetriesExhausted = "operation failed on every permitted attempt"
	msgInvalidPolicy    = "invalid retry policy"
)

// NewErrRetriesExhausted wraps the last observed failure after all attempts failed.
func NewErrRetriesExhausted(attempts int, last error) error {
	return errors.Wrap(last, ErrCodeRetriesExhausted, msgRetriesExhausted).
		WithContext("attempts", attempts).
		AsRetryable()
}

// NewErrInvalidPolicy creates an error for a policy that cannot be executed.
func NewErrInvalidPolicy(field string, value interface{}, reason string) error {
	return errors.NewWithContext(ErrCodeInvalidPolicy, msgInvalidPolicy, map[string]interface{}{
		"field":  field,
		"value":  value,
		"reason": reason,
	})
}

// IsRetriesExhausted reports whether err (or any error it wraps) is a
// RetriesExhausted failure.
func IsRetriesExhausted(err error) bool {
	return errors.HasCode(err, ErrCodeRetriesExhausted)
}

// IsInvalidPolicy reports whether err is a policy validation failure.
func IsInvalidPolicy(err error) bool {
	return errors.HasCode(err, ErrCodeInvalidPolicy)
}
