// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - IssueSource: Lists issue pages, fetches timelines, probes single issues
//   - Normaliser: Transforms a raw issue into a canonical document
//   - DocumentIndex: Bulk upsert, stale query and partial update on the index
//   - WatermarkStore: Sync progress persistence
//
// # Optional Interfaces
//
//   - SchedulerStore: Task state for the serve loop. Without it the
//     scheduler keeps state in memory only.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
