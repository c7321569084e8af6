// Package domain defines the core business entities for issuesync.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - RawIssue: an issue exactly as the source returned it
//   - Document: the canonical, index-ready representation of an issue
//   - Watermark: persisted pagination progress for one repository
//   - Repository: a configured repository to synchronise
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
