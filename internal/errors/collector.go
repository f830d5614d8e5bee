package errors

import (
	"fmt"
	"sync"
	"time"
)

// DocError represents a single finding against a guide document
type DocError struct {
	Section    string        `json:"section,omitempty"` // anchor of the section the finding belongs to, if any
	File       string        `json:"file"`
	Line       int           `json:"line"`
	Column     int           `json:"column"`
	Rule       string        `json:"rule,omitempty"`
	Message    string        `json:"message"`
	Severity   ErrorSeverity `json:"severity"`
	Suggestion string        `json:"suggestion,omitempty"`
	Context    []string      `json:"context,omitempty"` // document lines around the finding, filled by AttachContext
	Timestamp  time.Time     `json:"timestamp"`
}

// ErrorSeverity represents the severity of an error
type ErrorSeverity int

const (
	ErrorSeverityInfo ErrorSeverity = iota
	ErrorSeverityWarning
	ErrorSeverityError
	ErrorSeverityFatal
)

// String returns the string representation of the severity
func (s ErrorSeverity) String() string {
	switch s {
	case ErrorSeverityInfo:
		return "info"
	case ErrorSeverityWarning:
		return "warning"
	case ErrorSeverityError:
		return "error"
	case ErrorSeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// SeverityFromString maps a severity label onto ErrorSeverity.
// Unrecognized labels are treated as errors rather than dropped.
func SeverityFromString(s string) ErrorSeverity {
	switch s {
	case "info":
		return ErrorSeverityInfo
	case "warning":
		return ErrorSeverityWarning
	case "error":
		return ErrorSeverityError
	case "fatal":
		return ErrorSeverityFatal
	default:
		return ErrorSeverityError
	}
}

// Error implements the error interface
func (de *DocError) Error() string {
	if de.Rule != "" {
		return fmt.Sprintf("%s:%d:%d: %s: %s [%s]", de.File, de.Line, de.Column, de.Severity, de.Message, de.Rule)
	}
	return fmt.Sprintf("%s:%d:%d: %s: %s", de.File, de.Line, de.Column, de.Severity, de.Message)
}

// ErrorCollector collects and manages document findings and general errors
type ErrorCollector struct {
	docErrors []DocError
	errors    []error
	mutex     sync.RWMutex
}

// NewErrorCollector creates a new error collector
func NewErrorCollector() *ErrorCollector {
	return &ErrorCollector{
		docErrors: make([]DocError, 0),
		errors:    make([]error, 0),
	}
}

// Add adds a document finding to the collector
func (ec *ErrorCollector) Add(err DocError) {
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	err.Timestamp = time.Now()
	ec.docErrors = append(ec.docErrors, err)
}

// AddError adds a general error to the collector
func (ec *ErrorCollector) AddError(err error) {
	if err == nil {
		return
	}
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	ec.errors = append(ec.errors, err)
}

// GetErrors returns all collected document findings
func (ec *ErrorCollector) GetErrors() []DocError {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	// Return a copy to avoid race conditions
	result := make([]DocError, len(ec.docErrors))
	copy(result, ec.docErrors)
	return result
}

// GetAllErrors returns all collected errors (document findings and general)
func (ec *ErrorCollector) GetAllErrors() []error {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()

	allErrors := make([]error, 0, len(ec.docErrors)+len(ec.errors))

	for _, docErr := range ec.docErrors {
		allErrors = append(allErrors, &docErr)
	}

	allErrors = append(allErrors, ec.errors...)

	return allErrors
}

// HasErrors returns true if there are any errors
func (ec *ErrorCollector) HasErrors() bool {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	return len(ec.docErrors) > 0 || len(ec.errors) > 0
}

// Clear clears all errors
func (ec *ErrorCollector) Clear() {
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	ec.docErrors = ec.docErrors[:0]
	ec.errors = ec.errors[:0]
}

// ReplaceFile swaps out all findings for one file in a single step. A
// recheck of a document calls this with the fresh findings, or with nil
// once the document comes back clean.
func (ec *ErrorCollector) ReplaceFile(file string, errs []DocError) {
	ec.mutex.Lock()
	defer ec.mutex.Unlock()

	kept := ec.docErrors[:0]
	for _, err := range ec.docErrors {
		if err.File != file {
			kept = append(kept, err)
		}
	}
	ec.docErrors = kept

	now := time.Now()
	for _, err := range errs {
		if err.Timestamp.IsZero() {
			err.Timestamp = now
		}
		ec.docErrors = append(ec.docErrors, err)
	}
}

// GetErrorsByFile returns findings for a specific file
func (ec *ErrorCollector) GetErrorsByFile(file string) []DocError {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	var fileErrors []DocError
	for _, err := range ec.docErrors {
		if err.File == file {
			fileErrors = append(fileErrors, err)
		}
	}
	return fileErrors
}

// GetErrorsByRule returns findings raised by a specific lint rule
func (ec *ErrorCollector) GetErrorsByRule(rule string) []DocError {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	var ruleErrors []DocError
	for _, err := range ec.docErrors {
		if err.Rule == rule {
			ruleErrors = append(ruleErrors, err)
		}
	}
	return ruleErrors
}

// GetErrorsBySection returns findings attached to a specific section anchor
func (ec *ErrorCollector) GetErrorsBySection(section string) []DocError {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	var sectionErrors []DocError
	for _, err := range ec.docErrors {
		if err.Section == section {
			sectionErrors = append(sectionErrors, err)
		}
	}
	return sectionErrors
}

// ErrorOverlay generates HTML for the live-reload error overlay
func (ec *ErrorCollector) ErrorOverlay() string {
	if !ec.HasErrors() {
		return ""
	}

	html := `
<div id="featmark-error-overlay" style="
	position: fixed;
	top: 0;
	left: 0;
	width: 100%;
	height: 100%;
	background: rgba(0, 0, 0, 0.8);
	color: white;
	font-family: 'Monaco', 'Menlo', monospace;
	font-size: 14px;
	z-index: 9999;
	padding: 20px;
	box-sizing: border-box;
	overflow: auto;
">
	<div style="max-width: 1000px; margin: 0 auto;">
		<div style="display: flex; justify-content: space-between; align-items: center; margin-bottom: 20px;">
			<h2 style="margin: 0; color: #ff6b6b;">Guide Problems</h2>
			<button onclick="document.getElementById('featmark-error-overlay').style.display='none'"
					style="background: none; border: 1px solid #ccc; color: white; padding: 5px 10px; cursor: pointer;">
				Close
			</button>
		</div>
		<div>`

	ec.mutex.RLock()
	for _, err := range ec.docErrors {
		severityColor := "#ff6b6b"
		switch err.Severity {
		case ErrorSeverityWarning:
			severityColor = "#feca57"
		case ErrorSeverityInfo:
			severityColor = "#48dbfb"
		}

		label := err.Severity.String()
		if err.Rule != "" {
			label = fmt.Sprintf("%s (%s)", label, err.Rule)
		}

		html += fmt.Sprintf(`
			<div style="
				background: #2d3748;
				padding: 15px;
				margin-bottom: 15px;
				border-radius: 4px;
				border-left: 4px solid %s;
			">
				<div style="display: flex; justify-content: space-between; align-items: center; margin-bottom: 10px;">
					<span style="color: %s; font-weight: bold;">%s</span>
					<span style="color: #a0aec0; font-size: 12px;">%s</span>
				</div>
				<div style="color: #e2e8f0; margin-bottom: 5px;">
					<strong>%s</strong>
				</div>
				<div style="color: #a0aec0; font-size: 12px;">
					%s:%d:%d
				</div>
			</div>
		`, severityColor, severityColor, label, err.Timestamp.Format("15:04:05"), err.Message, err.File, err.Line, err.Column)
	}

	ec.mutex.RUnlock()

	html += `
		</div>
	</div>
</div>`

	return html
}
