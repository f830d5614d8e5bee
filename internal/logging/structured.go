package logging

import (
	"context"
	"fmt"
	"time"
)

// ErrorCategory classifies structured errors by subsystem
type ErrorCategory string

const (
	ErrorCategoryValidation ErrorCategory = "validation"
	ErrorCategoryFileSystem ErrorCategory = "filesystem"
	ErrorCategoryNetwork    ErrorCategory = "network"
	ErrorCategoryBuild      ErrorCategory = "build"
	ErrorCategoryConfig     ErrorCategory = "config"
	ErrorCategorySecurity   ErrorCategory = "security"
	ErrorCategorySystem     ErrorCategory = "system"
)

// StructuredError carries category, operation and context for rich error logging
type StructuredError struct {
	Category  ErrorCategory
	Operation string
	Message   string
	Severity  string
	Component string
	Retryable bool
	Context   map[string]interface{}
	Cause     error
	Timestamp time.Time
}

// NewStructuredError creates a structured error with default severity "error"
func NewStructuredError(category ErrorCategory, operation, message string) *StructuredError {
	return &StructuredError{
		Category:  category,
		Operation: operation,
		Message:   message,
		Severity:  "error",
		Context:   make(map[string]interface{}),
		Timestamp: time.Now(),
	}
}

// Error implements the error interface
func (e *StructuredError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Operation, e.Message)
}

// Unwrap returns the underlying cause
func (e *StructuredError) Unwrap() error {
	return e.Cause
}

// WithCause attaches the underlying error
func (e *StructuredError) WithCause(err error) *StructuredError {
	e.Cause = err
	return e
}

// WithComponent records the component the error originated in
func (e *StructuredError) WithComponent(component string) *StructuredError {
	e.Component = component
	return e
}

// WithContext adds a key/value pair to the error context
func (e *StructuredError) WithContext(key string, value interface{}) *StructuredError {
	e.Context[key] = value
	return e
}

// WithRetryable marks whether the failed operation can be retried
func (e *StructuredError) WithRetryable(retryable bool) *StructuredError {
	e.Retryable = retryable
	return e
}

// WithSeverity overrides the default severity
func (e *StructuredError) WithSeverity(severity string) *StructuredError {
	e.Severity = severity
	return e
}

// LogStructuredError logs a structured error with all its context attached
func LogStructuredError(logger Logger, ctx context.Context, structErr *StructuredError) {
	fields := []interface{}{
		"error_category", string(structErr.Category),
		"operation", structErr.Operation,
		"severity", structErr.Severity,
		"retryable", structErr.Retryable,
	}
	if structErr.Component != "" {
		fields = append(fields, "component", structErr.Component)
	}
	for k, v := range structErr.Context {
		fields = append(fields, k, v)
	}

	logger.Error(ctx, structErr.Cause, structErr.Message, fields...)
}

// ResilientLogger retries log delivery when the underlying logger panics,
// so logging failures never take down the operation being logged
type ResilientLogger struct {
	logger     Logger
	maxRetries int
	retryDelay time.Duration
}

// NewResilientLogger wraps a logger with panic recovery and retry
func NewResilientLogger(logger Logger, maxRetries int, retryDelay time.Duration) *ResilientLogger {
	return &ResilientLogger{
		logger:     logger,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}
}

// ErrorWithRetry logs an error, retrying if the underlying logger panics
func (r *ResilientLogger) ErrorWithRetry(ctx context.Context, err error, msg string, fields ...interface{}) {
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if r.tryLog(ctx, err, msg, fields...) {
			return
		}
		if attempt < r.maxRetries {
			time.Sleep(r.retryDelay)
		}
	}
}

func (r *ResilientLogger) tryLog(ctx context.Context, err error, msg string, fields ...interface{}) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	r.logger.Error(ctx, err, msg, fields...)
	return true
}
