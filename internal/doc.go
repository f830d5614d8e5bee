// Package internal contains the core implementation packages for featmark.
//
// This package follows Go's internal package convention, making these
// packages unavailable for import by external modules while providing
// all the core functionality for the featmark CLI tool.
//
// # Package Organization
//
// The internal packages are organized by functional domain:
//
//   - config: Configuration management with validation and security
//   - errors: Fault collection, suggestions, and the browser problems page
//   - export: Static HTML export with link auditing
//   - lint: Guide rule engine and report generation
//   - logging: Structured logging with levels and field context
//   - pipeline: Check pipeline with worker pools, caching, and metrics
//   - registry: Section registry and ordered document views
//   - render: Terminal and browser rendering of guide sections
//   - scanner: Guide document parsing and section extraction
//   - server: Preview HTTP server, WebSocket support, and middleware
//   - types: Shared section and document types
//   - validation: Origin and path validation helpers
//   - version: Build version information
//   - watcher: File system monitoring with debouncing
//
// # Design Principles
//
// All internal packages follow these design principles:
//
//   - Security by default with input validation and sanitization
//   - Concurrent safety with proper mutex usage and race protection
//   - Performance optimization with caching and efficient algorithms
//   - Testability with comprehensive unit and integration test coverage
//   - Observability with structured logging and metrics collection
//
// # Inter-Package Communication
//
// Packages communicate through well-defined interfaces:
//
//   - Registry acts as the central store for scanned guide sections
//   - Check pipeline consumes file changes and produces lint reports
//   - Server coordinates between all components and handles user requests
//   - Watcher monitors guide files and triggers rechecks
//   - Scanner parses documents and populates the registry
//
// # Security Considerations
//
// Security is implemented at multiple layers:
//
//   - Config package validates all configuration inputs
//   - Server package implements origin validation for WebSocket upgrades
//   - Scanner and watcher packages validate file paths and prevent
//     traversal attacks
//   - All packages sanitize user inputs and log security events
//
// # Performance Optimizations
//
// Key performance optimizations include:
//
//   - Content-hash caching in the check pipeline to skip unchanged guides
//   - Concurrent worker pools for parallel document checks
//   - Debounced file watching to prevent excessive rechecks
//   - Efficient WebSocket broadcasting for live reload updates
//
// # Testing Strategy
//
// Each package includes comprehensive test coverage:
//
//   - Unit tests for individual functions and methods
//   - Integration tests for cross-package interactions
//   - Property-based tests for parser and rule invariants
//   - Race condition tests with Go's race detector
//
// For detailed documentation, see the individual package documentation.
package internal
