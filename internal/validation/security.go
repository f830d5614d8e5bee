// Package validation provides security validation for the inputs featmark
// accepts from configuration, CLI arguments, and HTTP clients: guide paths,
// section anchors, websocket origins, and URLs handed to the browser opener.
package validation

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// maxAnchorLength bounds anchors embedded in routes and HTML element ids.
const maxAnchorLength = 200

// MarkdownExtensions lists the file extensions treated as guide documents.
var MarkdownExtensions = []string{".md", ".markdown"}

// ValidateAnchor validates a section anchor before it is used in a route,
// a registry lookup, or an HTML id. Anchors come from GitHub-style heading
// slugs: they start with a lowercase letter or digit and continue with
// lowercase letters, digits, hyphens, and underscores.
func ValidateAnchor(anchor string) error {
	if anchor == "" {
		return fmt.Errorf("anchor cannot be empty")
	}

	if len(anchor) > maxAnchorLength {
		return fmt.Errorf("anchor exceeds %d characters", maxAnchorLength)
	}

	for i, r := range anchor {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
			if i == 0 {
				return fmt.Errorf("anchor cannot start with %q", string(r))
			}
		default:
			return fmt.Errorf("anchor contains invalid character %q", string(r))
		}
	}

	return nil
}

// ValidatePath validates a file path to prevent path traversal attacks
func ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	// Clean the path to resolve any . or .. components
	cleanPath := filepath.Clean(path)

	// Check for path traversal attempts
	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path traversal detected: %s", path)
	}

	// Prevent access to sensitive system directories
	restrictedPaths := []string{
		"/etc/passwd",
		"/etc/shadow",
		"/proc/",
		"/sys/",
		"/dev/",
		"/root/",
		"/boot/",
	}

	cleanPathLower := strings.ToLower(cleanPath)
	for _, restricted := range restrictedPaths {
		if strings.HasPrefix(cleanPathLower, restricted) {
			return fmt.Errorf("access to restricted path denied: %s", path)
		}
	}

	// Paths flow into HTML attributes and websocket payloads, so shell and
	// markup metacharacters are rejected outright
	dangerousChars := []string{";", "&", "|", "$", "`", "<", ">"}
	for _, char := range dangerousChars {
		if strings.Contains(path, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}

	return nil
}

// ValidateOrigin validates WebSocket origin for CSRF protection
func ValidateOrigin(origin string, allowedOrigins []string) error {
	if origin == "" {
		return fmt.Errorf("origin header is required")
	}

	// Parse the origin URL
	originURL, err := url.Parse(origin)
	if err != nil {
		return fmt.Errorf("invalid origin format: %w", err)
	}

	// Only allow http/https schemes
	if originURL.Scheme != "http" && originURL.Scheme != "https" {
		return fmt.Errorf("invalid origin scheme '%s': only http and https are allowed", originURL.Scheme)
	}

	// Check against allowed origins list
	for _, allowed := range allowedOrigins {
		if origin == allowed || originURL.Host == allowed {
			return nil
		}
	}

	return fmt.Errorf("origin '%s' is not in allowed origins list", origin)
}

// ValidateUserAgent validates user agent strings against a blocklist
func ValidateUserAgent(userAgent string, blockedAgents []string) error {
	if userAgent == "" {
		// Empty user agent is allowed
		return nil
	}

	userAgentLower := strings.ToLower(userAgent)
	for _, blocked := range blockedAgents {
		if strings.Contains(userAgentLower, strings.ToLower(blocked)) {
			return fmt.Errorf("user agent '%s' is blocked", userAgent)
		}
	}

	return nil
}

// ValidateFileExtension validates file extensions against an allowlist
func ValidateFileExtension(filename string, allowedExtensions []string) error {
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return fmt.Errorf("file must have an extension")
	}

	for _, allowed := range allowedExtensions {
		if ext == strings.ToLower(allowed) {
			return nil
		}
	}

	return fmt.Errorf("file extension '%s' is not allowed", ext)
}

// IsMarkdownFile reports whether the path names a guide document.
func IsMarkdownFile(path string) bool {
	return ValidateFileExtension(filepath.Base(path), MarkdownExtensions) == nil
}

// SanitizeInput removes or escapes potentially dangerous characters from user input
func SanitizeInput(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters except common whitespace
	var sanitized strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' || r == '\r' {
			sanitized.WriteRune(r)
		}
	}

	return sanitized.String()
}
