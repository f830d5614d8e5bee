package errors

import (
	"fmt"
)

// ErrorPatterns defines standardized error creation patterns for consistent usage across the codebase.
// This file provides convenience functions and guidelines for creating properly structured errors.

// Pattern Guidelines:
// 1. Always use FeatmarkError for structured errors with context
// 2. Use appropriate error types (Validation, Security, IO, Network, Build, Config, Internal)
// 3. Include meaningful error codes for programmatic handling
// 4. Add section and file context when available
// 5. Wrap existing errors to preserve the error chain
// 6. Use consistent error messages and formatting

// Service Layer Error Patterns

// ServiceError creates a standardized service error with service context
func ServiceError(service, operation, message string, cause error) *FeatmarkError {
	code := fmt.Sprintf("ERR_%s_%s", service, operation)
	msg := fmt.Sprintf("%s service %s failed: %s", service, operation, message)
	featErr := WrapInternal(cause, code, msg)
	if featErr == nil {
		featErr = NewInternalError(code, msg, nil)
	}
	return featErr.WithContext("service", service)
}

// InitError creates initialization-related errors
func InitError(operation, message string, cause error) *FeatmarkError {
	return ServiceError("INIT", operation, message, cause)
}

// LintServiceError creates lint service errors
func LintServiceError(operation, message string, cause error) *FeatmarkError {
	return ServiceError("LINT", operation, message, cause)
}

// ServeServiceError creates serve service errors
func ServeServiceError(operation, message string, cause error) *FeatmarkError {
	return ServiceError("SERVE", operation, message, cause)
}

// ExportServiceError creates export service errors
func ExportServiceError(operation, message string, cause error) *FeatmarkError {
	return ServiceError("EXPORT", operation, message, cause)
}

// Repository/Data Layer Error Patterns

// DataError creates data layer errors with consistent formatting
func DataError(operation, resource, message string, cause error) *FeatmarkError {
	code := fmt.Sprintf("ERR_DATA_%s", operation)
	msg := fmt.Sprintf("data %s failed for %s: %s", operation, resource, message)
	featErr := WrapIO(cause, code, msg)
	if featErr == nil {
		featErr = NewIOError(code, msg, nil)
	}
	return featErr
}

// FileOperationError creates file operation errors
func FileOperationError(operation, filePath, message string, cause error) *FeatmarkError {
	return DataError(operation, fmt.Sprintf("file:%s", filePath), message, cause).
		WithContext("file_path", filePath)
}

// ConfigurationError creates configuration-related errors
func ConfigurationError(setting, message string, value interface{}) *FeatmarkError {
	return NewConfigError(
		"ERR_CONFIG_INVALID",
		fmt.Sprintf("invalid configuration for %s: %s", setting, message),
	).WithContext("setting", setting).WithContext("value", value)
}

// Network and Communication Error Patterns

// NetworkError creates network-related errors
func NetworkError(operation, endpoint, message string, cause error) *FeatmarkError {
	code := fmt.Sprintf("ERR_NETWORK_%s", operation)
	return &FeatmarkError{
		Type:        ErrorTypeNetwork,
		Code:        code,
		Message:     fmt.Sprintf("network %s failed for %s: %s", operation, endpoint, message),
		Cause:       cause,
		Context:     map[string]interface{}{"endpoint": endpoint},
		Recoverable: true, // Network errors are often temporary
	}
}

// WebSocketError creates WebSocket-related errors
func WebSocketError(operation, clientID, message string, cause error) *FeatmarkError {
	return NetworkError("WEBSOCKET_"+operation, clientID, message, cause).
		WithContext("client_id", clientID)
}

// ServerError creates server operation errors
func ServerError(operation, message string, cause error) *FeatmarkError {
	return NetworkError("SERVER_"+operation, "localhost", message, cause)
}

// Section and Pipeline Error Patterns

// SectionError creates section-related errors with full context
func SectionError(operation, anchor, filePath, message string, cause error) *FeatmarkError {
	code := fmt.Sprintf("ERR_SECTION_%s", operation)
	return &FeatmarkError{
		Type:        ErrorTypeBuild,
		Code:        code,
		Message:     fmt.Sprintf("section %s %s failed: %s", anchor, operation, message),
		Cause:       cause,
		Section:     anchor,
		FilePath:    filePath,
		Context:     map[string]interface{}{"section": anchor, "operation": operation},
		Recoverable: true,
	}
}

// ScannerError creates scanner-related errors
func ScannerError(operation, path, message string, cause error) *FeatmarkError {
	return SectionError("SCAN_"+operation, "scanner", path, message, cause)
}

// RegistryError creates registry operation errors
func RegistryError(operation, anchor, message string, cause error) *FeatmarkError {
	return SectionError("REGISTRY_"+operation, anchor, "", message, cause)
}

// CLI and User Interface Error Patterns

// CLIError creates CLI command errors with user-friendly messages
func CLIError(command, message string, cause error) *FeatmarkError {
	code := fmt.Sprintf("ERR_CLI_%s", command)
	return &FeatmarkError{
		Type:        ErrorTypeValidation,
		Code:        code,
		Message:     fmt.Sprintf("command '%s' failed: %s", command, message),
		Cause:       cause,
		Recoverable: true,
	}
}

// FlagError creates CLI flag validation errors
func FlagError(flagName, message string, value interface{}) *FeatmarkError {
	return NewFieldValidationError(
		flagName,
		value,
		message,
		fmt.Sprintf("Check 'featmark %s --help' for valid options", flagName),
	).ToFeatmarkError()
}

// ArgumentError creates CLI argument validation errors
func ArgumentError(argName, message string, value interface{}) *FeatmarkError {
	return NewFieldValidationError(
		argName,
		value,
		message,
		"Use 'featmark --help' to see command usage",
	).ToFeatmarkError()
}

// Security and Validation Error Patterns

// SecurityViolation creates security violation errors (non-recoverable)
func SecurityViolation(operation, detail string, context map[string]interface{}) *FeatmarkError {
	code := fmt.Sprintf("ERR_SECURITY_%s", operation)
	return &FeatmarkError{
		Type:        ErrorTypeSecurity,
		Code:        code,
		Message:     fmt.Sprintf("security violation in %s: %s", operation, detail),
		Context:     context,
		Recoverable: false,
	}
}

// ValidationFailure creates validation errors with suggestions
func ValidationFailure(field, message string, value interface{}, suggestions ...string) *FeatmarkError {
	fieldErr := NewFieldValidationError(field, value, message, suggestions...)
	return fieldErr.ToFeatmarkError()
}

// PathValidationError creates path validation errors with security context
func PathValidationError(path, reason string) *FeatmarkError {
	if reason == "traversal" {
		return ErrPathTraversal(path)
	}
	return ErrInvalidPath(path).WithContext("reason", reason)
}

// Utility Functions for Error Enhancement

// WithLocationInfo adds file location information to any error
func WithLocationInfo(err error, filePath string, line, column int) error {
	return EnhanceError(err, "", filePath, line, column)
}

// WithSectionInfo adds section context to any error
func WithSectionInfo(err error, anchor string) error {
	return EnhanceError(err, anchor, "", 0, 0)
}

// WithOperationContext adds operation context to any error
func WithOperationContext(err error, operation string, context map[string]interface{}) error {
	if err == nil {
		return nil
	}

	if fe, ok := err.(*FeatmarkError); ok {
		if fe.Context == nil {
			fe.Context = make(map[string]interface{})
		}
		fe.Context["operation"] = operation
		for k, v := range context {
			fe.Context[k] = v
		}
		return fe
	}

	// Wrap non-FeatmarkError with context
	return WrapWithContext(err, ErrorTypeInternal, ErrCodeInternalError, err.Error(), map[string]interface{}{
		"operation": operation,
	})
}

// Error Chain Utilities

// GetRootCause returns the deepest underlying error in the chain
func GetRootCause(err error) error {
	return ExtractCause(err)
}

// GetErrorChain returns all errors in the chain from outermost to innermost
func GetErrorChain(err error) []error {
	var chain []error
	for err != nil {
		chain = append(chain, err)
		if fe, ok := err.(*FeatmarkError); ok {
			err = fe.Cause
		} else if wrapper, ok := err.(interface{ Unwrap() error }); ok {
			err = wrapper.Unwrap()
		} else {
			break
		}
	}
	return chain
}

// HasErrorCode checks if any error in the chain has the specified code
func HasErrorCode(err error, code string) bool {
	chain := GetErrorChain(err)
	for _, e := range chain {
		if fe, ok := e.(*FeatmarkError); ok && fe.Code == code {
			return true
		}
	}
	return false
}

// HasErrorType checks if any error in the chain has the specified type
func HasErrorType(err error, errType ErrorType) bool {
	chain := GetErrorChain(err)
	for _, e := range chain {
		if fe, ok := e.(*FeatmarkError); ok && fe.Type == errType {
			return true
		}
	}
	return false
}

// Pattern Examples and Best Practices

// Example: Service Layer Error
// func (s *ExportService) ExportGuide(opts ExportOptions) error {
//     if err := s.validateOutputDirectory(opts.OutputDir); err != nil {
//         return ExportServiceError("VALIDATE_DIR", "output directory validation failed", err)
//     }
//     return nil
// }

// Example: CLI Command Error
// func runInit(cmd *cobra.Command, args []string) error {
//     if len(args) > 1 {
//         return ArgumentError("project_name", "too many arguments provided", args)
//     }
//     return nil
// }

// Example: Section Error with Location
// func (r *DocumentRenderer) renderSection(anchor string) error {
//     if renderErr := r.render(anchor); renderErr != nil {
//         return SectionError("RENDER", anchor, "FEATURES.md", "snippet highlight failed", renderErr).
//             WithLocation("FEATURES.md", 42, 0)
//     }
//     return nil
// }
