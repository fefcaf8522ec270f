// errors.go: structured error handling for lazycache operations
//
// This file provides structured error types using the go-errors library,
// enabling rich error context, categorization, and standardized error codes
// for all cache operations.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0
package lazycache

import (
	goerrors "errors"
	"fmt"

	"github.com/agilira/go-errors"

	"github.com/agilira/lazycache/retry"
)

// Error codes for lazycache operations
const (
	// Configuration errors
	ErrCodeInvalidConfig      errors.ErrorCode = "LAZYCACHE_INVALID_CONFIG"
	ErrCodeInvalidPolicy      errors.ErrorCode = "LAZYCACHE_INVALID_POLICY"
	ErrCodeInvalidRetryPolicy                  = retry.ErrCodeInvalidPolicy

	// Operation errors
	ErrCodeKeyNotFound errors.ErrorCode = "LAZYCACHE_KEY_NOT_FOUND"
	ErrCodeEmptyKey    errors.ErrorCode = "LAZYCACHE_EMPTY_KEY"
	ErrCodeCacheClosed errors.ErrorCode = "LAZYCACHE_CACHE_CLOSED"

	// Producer errors
	ErrCodeProducerFailed   errors.ErrorCode = "LAZYCACHE_PRODUCER_FAILED"
	ErrCodeProducerTimeout  errors.ErrorCode = "LAZYCACHE_PRODUCER_TIMEOUT"
	ErrCodeCancelled        errors.ErrorCode = "LAZYCACHE_CANCELLED"
	ErrCodeInvalidProducer  errors.ErrorCode = "LAZYCACHE_INVALID_PRODUCER"
	ErrCodeRetriesExhausted                  = retry.ErrCodeRetriesExhausted

	// Internal errors
	ErrCodeInternalError  errors.ErrorCode = "LAZYCACHE_INTERNAL_ERROR"
	ErrCodePanicRecovered errors.ErrorCode = "LAZYCACHE_PANIC_RECOVERED"
)

// Common error messages
const (
	msgInvalidConfig   = "invalid cache configuration"
	msgInvalidPolicy   = "invalid expiration policy"
	msgKeyNotFound     = "key not found in cache"
	msgEmptyKey        = "key cannot be empty"
	msgCacheClosed     = "cache is closed"
	msgProducerFailed  = "producer function failed"
	msgProducerTimeout = "producer function timed out"
	msgCancelled       = "caller stopped waiting for the value"
	msgInvalidProducer = "producer function cannot be nil"
	msgInternalError   = "internal cache error"
	msgPanicRecovered  = "panic recovered in cache operation"
)

// =============================================================================
// CONFIGURATION ERRORS
// =============================================================================

// NewErrInvalidConfig creates an error for a configuration value that cannot be applied
func NewErrInvalidConfig(field string, value interface{}) error {
	return errors.NewWithContext(ErrCodeInvalidConfig, msgInvalidConfig, map[string]interface{}{
		"field":          field,
		"provided_value": value,
	})
}

// NewErrInvalidPolicy creates an error for an unusable expiration policy
func NewErrInvalidPolicy(policy string, reason string) error {
	return errors.NewWithContext(ErrCodeInvalidPolicy, msgInvalidPolicy, map[string]interface{}{
		"policy": policy,
		"reason": reason,
	})
}

// =============================================================================
// OPERATION ERRORS
// =============================================================================

// NewErrKeyNotFound creates an error when key is not found
func NewErrKeyNotFound(key string) error {
	return errors.NewWithField(ErrCodeKeyNotFound, msgKeyNotFound, "key", key)
}

// NewErrEmptyKey creates an error when key is empty
func NewErrEmptyKey(operation string) error {
	return errors.NewWithField(ErrCodeEmptyKey, msgEmptyKey, "operation", operation)
}

// NewErrCacheClosed creates an error for operations on a closed cache
func NewErrCacheClosed(operation string) error {
	return errors.NewWithField(ErrCodeCacheClosed, msgCacheClosed, "operation", operation)
}

// =============================================================================
// PRODUCER ERRORS
// =============================================================================

// NewErrProducerFailed wraps a failed producer attempt
func NewErrProducerFailed(key string, cause error) error {
	return errors.Wrap(cause, ErrCodeProducerFailed, msgProducerFailed).
		WithContext("key", key).
		AsRetryable()
}

// NewErrProducerTimeout creates an error when a round exceeds PopulateTimeout
func NewErrProducerTimeout(key string, timeout interface{}, cause error) error {
	if cause != nil {
		return errors.Wrap(cause, ErrCodeProducerTimeout, msgProducerTimeout).
			WithContext("key", key).
			WithContext("timeout", timeout).
			AsRetryable()
	}
	return errors.NewWithContext(ErrCodeProducerTimeout, msgProducerTimeout, map[string]interface{}{
		"key":     key,
		"timeout": timeout,
	}).AsRetryable()
}

// NewErrCancelled creates an error for a caller whose context ended while
// waiting. cause is the context error and stays reachable through errors.Is.
func NewErrCancelled(key string, cause error) error {
	return errors.Wrap(cause, ErrCodeCancelled, msgCancelled).
		WithContext("key", key)
}

// NewErrInvalidProducer creates an error when producer function is nil
func NewErrInvalidProducer(key string) error {
	return errors.NewWithField(ErrCodeInvalidProducer, msgInvalidProducer, "key", key)
}

// =============================================================================
// INTERNAL ERRORS
// =============================================================================

// NewErrInternal creates a generic internal error
func NewErrInternal(operation string, cause error) error {
	if cause != nil {
		return errors.Wrap(cause, ErrCodeInternalError, msgInternalError).
			WithContext("operation", operation).
			WithSeverity("warning")
	}
	return errors.NewWithField(ErrCodeInternalError, msgInternalError, "operation", operation).
		WithSeverity("warning")
}

// NewErrPanicRecovered creates an error when a panic is recovered
func NewErrPanicRecovered(operation string, panicValue interface{}) error {
	return errors.NewWithContext(ErrCodePanicRecovered, msgPanicRecovered, map[string]interface{}{
		"operation":   operation,
		"panic_value": fmt.Sprintf("%v", panicValue),
	}).WithSeverity("critical")
}

// =============================================================================
// ERROR CHECKING HELPERS
// =============================================================================

// hasCode walks the whole wrap chain looking for code.
func hasCode(err error, code errors.ErrorCode) bool {
	for err != nil {
		var coder errors.ErrorCoder
		if goerrors.As(err, &coder) && coder.ErrorCode() == code {
			return true
		}
		err = goerrors.Unwrap(err)
	}
	return false
}

// IsNotFound checks if error is a key not found error
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeKeyNotFound)
}

// IsEmptyKey checks if error is an empty key error
func IsEmptyKey(err error) bool {
	return hasCode(err, ErrCodeEmptyKey)
}

// IsProducerError checks if error carries a producer failure
func IsProducerError(err error) bool {
	return hasCode(err, ErrCodeProducerFailed)
}

// IsRetriesExhausted checks if every permitted attempt failed
func IsRetriesExhausted(err error) bool {
	return hasCode(err, ErrCodeRetriesExhausted)
}

// IsCancelled checks if the caller stopped waiting because its context ended
func IsCancelled(err error) bool {
	return hasCode(err, ErrCodeCancelled)
}

// IsTimeout checks if the population round exceeded PopulateTimeout
func IsTimeout(err error) bool {
	return hasCode(err, ErrCodeProducerTimeout)
}

// IsPanicRecovered checks if a producer panicked
func IsPanicRecovered(err error) bool {
	return hasCode(err, ErrCodePanicRecovered)
}

// IsConfigError checks if error is a configuration or policy error
func IsConfigError(err error) bool {
	return hasCode(err, ErrCodeInvalidConfig) ||
		hasCode(err, ErrCodeInvalidPolicy) ||
		hasCode(err, ErrCodeInvalidRetryPolicy)
}

// IsRetryable checks if the error can be retried
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var retryable errors.Retryable
	if goerrors.As(err, &retryable) {
		return retryable.IsRetryable()
	}
	return false
}

// GetErrorCode extracts the outermost error code from an error
func GetErrorCode(err error) errors.ErrorCode {
	if err == nil {
		return ""
	}
	var coder errors.ErrorCoder
	if goerrors.As(err, &coder) {
		return coder.ErrorCode()
	}
	return ""
}

// GetErrorContext extracts context from the outermost structured error
func GetErrorContext(err error) map[string]interface{} {
	if err == nil {
		return nil
	}
	var cacheErr *errors.Error
	if goerrors.As(err, &cacheErr) {
		return cacheErr.Context
	}
	return nil
}
