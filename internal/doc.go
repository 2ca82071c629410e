// Package internal contains the core implementation packages for the
// FlashFlow development orchestrator.
//
// This package follows Go's internal package convention, making these
// packages unavailable for import by external modules while providing
// all the core functionality for the flashflow CLI tool.
//
// # Package Organization
//
// The internal packages are organized by functional domain:
//
//   - builder: Build command invocation with timeout kill and coalescing
//   - config: Configuration management with validation and env overrides
//   - engine: Rendering-engine subprocess supervision
//   - flow: Flow file parsing, caching, and route resolution
//   - history: Build history persistence in SQLite
//   - hub: Reload broadcast hub with non-blocking fan-out
//   - logging: Structured leveled logging
//   - project: Project manifest loading and directory layout
//   - renderer: Direct HTML rendering of flow documents
//   - server: HTTP front with dashboard, APIs, and WebSocket reload
//   - version: Build-time version information
//   - watcher: File system monitoring with debouncing and filtering
//
// # Inter-Package Communication
//
// Packages communicate through well-defined seams:
//
//   - Watcher batches file changes and hands them to the build coalescer
//   - Builder runs the external build command and reports a Result
//   - History records build results; the server reads them back
//   - Hub fans a reload signal out to every connected browser
//   - Flow resolves request paths to documents; renderer turns them into pages
//   - Server coordinates between all components and handles user requests
//
// # Failure Policy
//
// Only a failed startup is fatal. A broken flow file renders as a
// diagnostic page, a failed build is recorded and reported, a dead
// rendering engine leaves the direct renderer serving pages, and a slow
// reload subscriber is pruned rather than waited on.
package internal
