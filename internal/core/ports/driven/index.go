package driven

import (
	"context"

	"github.com/custodia-labs/issuesync/internal/core/domain"
)

// DocumentIndex is the searchable sink documents are committed to.
// Each namespace is a separate collection; private repositories are
// written to NamespacePrivate.
type DocumentIndex interface {
	// Upsert writes docs in one bulk request, replacing documents with the
	// same ID. The result has one entry per input document, in input order.
	// A returned error means the request as a whole failed and nothing can
	// be assumed about what was stored.
	Upsert(ctx context.Context, ns domain.Namespace, docs []domain.Document) ([]domain.ItemResult, error)

	// FindStale returns documents matching q, projected to DocumentRef.
	FindStale(ctx context.Context, ns domain.Namespace, q domain.StaleQuery) ([]domain.DocumentRef, error)

	// MarkTransferred partially updates one document to the transferred
	// state, leaving every other field untouched. Returns domain.ErrNotFound
	// if the document does not exist.
	MarkTransferred(ctx context.Context, ns domain.Namespace, id string) error
}
