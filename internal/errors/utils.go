package errors

import (
	"errors"
	"fmt"
)

// Wrap wraps an error with additional context, creating a FeatmarkError if the input is not already one
func Wrap(err error, errType ErrorType, code, message string) *FeatmarkError {
	if err == nil {
		return nil
	}

	// If it's already a FeatmarkError, preserve its properties but update the message
	var fe *FeatmarkError
	if errors.As(err, &fe) {
		return &FeatmarkError{
			Type:        errType,
			Code:        code,
			Message:     message,
			Cause:       fe,
			Context:     fe.Context,
			Section:     fe.Section,
			FilePath:    fe.FilePath,
			Line:        fe.Line,
			Column:      fe.Column,
			Recoverable: fe.Recoverable,
		}
	}

	return &FeatmarkError{
		Type:        errType,
		Code:        code,
		Message:     message,
		Cause:       err,
		Recoverable: errType == ErrorTypeValidation || errType == ErrorTypeBuild,
	}
}

// WrapWithContext wraps an error with context information
func WrapWithContext(err error, errType ErrorType, code, message string, context map[string]interface{}) *FeatmarkError {
	featErr := Wrap(err, errType, code, message)
	if featErr != nil {
		featErr.Context = context
	}
	return featErr
}

// WrapBuild wraps an error as a build error with section context
func WrapBuild(err error, code, message, section string) *FeatmarkError {
	featErr := Wrap(err, ErrorTypeBuild, code, message)
	if featErr != nil {
		featErr.Section = section
	}
	return featErr
}

// WrapValidation wraps an error as a validation error
func WrapValidation(err error, code, message string) *FeatmarkError {
	return Wrap(err, ErrorTypeValidation, code, message)
}

// WrapSecurity wraps an error as a security error (non-recoverable)
func WrapSecurity(err error, code, message string) *FeatmarkError {
	featErr := Wrap(err, ErrorTypeSecurity, code, message)
	if featErr != nil {
		featErr.Recoverable = false
	}
	return featErr
}

// WrapIO wraps an error as an I/O error
func WrapIO(err error, code, message string) *FeatmarkError {
	featErr := Wrap(err, ErrorTypeIO, code, message)
	if featErr != nil {
		featErr.Recoverable = false
	}
	return featErr
}

// WrapConfig wraps an error as a configuration error
func WrapConfig(err error, code, message string) *FeatmarkError {
	featErr := Wrap(err, ErrorTypeConfig, code, message)
	if featErr != nil {
		featErr.Recoverable = false
	}
	return featErr
}

// WrapInternal wraps an error as an internal error
func WrapInternal(err error, code, message string) *FeatmarkError {
	featErr := Wrap(err, ErrorTypeInternal, code, message)
	if featErr != nil {
		featErr.Recoverable = false
	}
	return featErr
}

// EnhanceError adds debugging context to an existing error
func EnhanceError(err error, section, filePath string, line, column int) error {
	if err == nil {
		return nil
	}

	var fe *FeatmarkError
	if errors.As(err, &fe) {
		return fe.WithSection(section).WithLocation(filePath, line, column)
	}

	// Create a new FeatmarkError for non-FeatmarkError types
	return &FeatmarkError{
		Type:        ErrorTypeInternal,
		Code:        ErrCodeInternalError,
		Message:     err.Error(),
		Cause:       err,
		Section:     section,
		FilePath:    filePath,
		Line:        line,
		Column:      column,
		Recoverable: false,
	}
}

// FormatError formats an error for user display
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	var fe *FeatmarkError
	if errors.As(err, &fe) {
		return fe.Error()
	}

	return err.Error()
}

// FormatErrorWithSuggestions formats an error with suggestions for ValidationError types
func FormatErrorWithSuggestions(err error) string {
	if err == nil {
		return ""
	}

	var ve ValidationError
	if errors.As(err, &ve) {
		result := ve.Error()
		suggestions := ve.Suggestions()
		if len(suggestions) > 0 {
			result += "\n\nSuggestions:"
			for _, suggestion := range suggestions {
				result += fmt.Sprintf("\n  • %s", suggestion)
			}
		}
		return result
	}

	return FormatError(err)
}

// GetErrorContext extracts context information from a FeatmarkError
func GetErrorContext(err error) map[string]interface{} {
	var fe *FeatmarkError
	if errors.As(err, &fe) {
		context := make(map[string]interface{})
		if fe.Context != nil {
			for k, v := range fe.Context {
				context[k] = v
			}
		}
		if fe.Section != "" {
			context["section"] = fe.Section
		}
		if fe.FilePath != "" {
			context["file"] = fe.FilePath
			if fe.Line > 0 {
				context["line"] = fe.Line
				if fe.Column > 0 {
					context["column"] = fe.Column
				}
			}
		}
		context["type"] = string(fe.Type)
		context["code"] = fe.Code
		context["recoverable"] = fe.Recoverable
		return context
	}

	return map[string]interface{}{
		"message": err.Error(),
		"type":    "unknown",
	}
}

// IsTemporaryError checks if an error is temporary and should be retried
func IsTemporaryError(err error) bool {
	var fe *FeatmarkError
	if errors.As(err, &fe) {
		// Build and validation errors are typically temporary
		return fe.Type == ErrorTypeBuild || fe.Type == ErrorTypeValidation || fe.Type == ErrorTypeNetwork
	}
	return false
}

// IsFatalError checks if an error is fatal and should stop execution
func IsFatalError(err error) bool {
	var fe *FeatmarkError
	if errors.As(err, &fe) {
		return fe.Type == ErrorTypeSecurity || fe.Type == ErrorTypeInternal
	}
	return false
}

// ExtractCause extracts the root cause from a wrapped error
func ExtractCause(err error) error {
	for err != nil {
		var fe *FeatmarkError
		if errors.As(err, &fe) {
			if fe.Cause == nil {
				return fe
			}
			err = fe.Cause
		} else {
			return err
		}
	}
	return nil
}

// CollectErrors helper for common error collection patterns
func CollectErrors(errs ...error) []error {
	var collected []error
	for _, err := range errs {
		if err != nil {
			collected = append(collected, err)
		}
	}
	return collected
}

// FirstError returns the first non-nil error from a list
func FirstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// CombineErrors combines multiple errors into a single error with context
func CombineErrors(errs ...error) error {
	nonNilErrs := CollectErrors(errs...)
	if len(nonNilErrs) == 0 {
		return nil
	}
	if len(nonNilErrs) == 1 {
		return nonNilErrs[0]
	}

	var messages []string
	for _, err := range nonNilErrs {
		messages = append(messages, err.Error())
	}

	return &FeatmarkError{
		Type:    ErrorTypeInternal,
		Code:    "ERR_MULTIPLE_ERRORS",
		Message: fmt.Sprintf("multiple errors occurred: %d errors", len(nonNilErrs)),
		Context: map[string]interface{}{
			"error_count": len(nonNilErrs),
			"errors":      messages,
		},
		Recoverable: false,
	}
}
