// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// A sync run pages through each repository with a Paginator, attaches
// timeline facts with the Enricher, normalises every issue and hands the
// page to the BulkWriter, which commits it to the index before the
// watermark is saved. The Reconciler runs separately and corrects open
// documents whose issue moved away.
package services
