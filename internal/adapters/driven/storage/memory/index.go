package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/issuesync/internal/core/domain"
	"github.com/custodia-labs/issuesync/internal/core/ports/driven"
)

// Ensure DocumentIndex implements the interface.
var _ driven.DocumentIndex = (*DocumentIndex)(nil)

// DocumentIndex is an in-memory implementation of driven.DocumentIndex.
// It backs dry runs and tests.
type DocumentIndex struct {
	mu   sync.RWMutex
	docs map[domain.Namespace]map[string]domain.Document

	// Reject, when set, is consulted per document on Upsert. A non-empty
	// return rejects that document with the returned message.
	Reject func(doc domain.Document) string

	// UpsertCalls counts Upsert invocations.
	UpsertCalls int
}

// NewDocumentIndex creates a new in-memory document index.
func NewDocumentIndex() *DocumentIndex {
	return &DocumentIndex{
		docs: make(map[domain.Namespace]map[string]domain.Document),
	}
}

// Upsert stores docs, replacing documents with the same ID.
func (x *DocumentIndex) Upsert(_ context.Context, ns domain.Namespace, docs []domain.Document) ([]domain.ItemResult, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.UpsertCalls++

	coll := x.collection(ns)
	results := make([]domain.ItemResult, 0, len(docs))
	for _, doc := range docs {
		if x.Reject != nil {
			if msg := x.Reject(doc); msg != "" {
				results = append(results, domain.ItemResult{ID: doc.ID, Error: msg})
				continue
			}
		}
		coll[doc.ID] = doc
		results = append(results, domain.ItemResult{ID: doc.ID, OK: true})
	}
	return results, nil
}

// FindStale returns documents in q.State last updated before
// q.UpdatedBefore, oldest first, at most q.Limit of them.
func (x *DocumentIndex) FindStale(_ context.Context, ns domain.Namespace, q domain.StaleQuery) ([]domain.DocumentRef, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	var refs []domain.DocumentRef
	for _, doc := range x.docs[ns] {
		if doc.State != q.State || doc.UpdatedAt == nil {
			continue
		}
		if !doc.UpdatedAt.Instant.Before(q.UpdatedBefore) {
			continue
		}
		refs = append(refs, domain.DocumentRef{
			ID:        doc.ID,
			Owner:     doc.Owner,
			Repo:      doc.Repo,
			Number:    doc.Number,
			State:     doc.State,
			UpdatedAt: doc.UpdatedAt.Instant,
		})
	}

	sort.Slice(refs, func(i, j int) bool {
		if !refs[i].UpdatedAt.Equal(refs[j].UpdatedAt) {
			return refs[i].UpdatedAt.Before(refs[j].UpdatedAt)
		}
		return refs[i].ID < refs[j].ID
	})
	if q.Limit > 0 && len(refs) > q.Limit {
		refs = refs[:q.Limit]
	}
	return refs, nil
}

// MarkTransferred sets the transferred state and marker on one document.
func (x *DocumentIndex) MarkTransferred(_ context.Context, ns domain.Namespace, id string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	doc, ok := x.docs[ns][id]
	if !ok {
		return domain.ErrNotFound
	}
	doc.State = domain.StateTransferred
	doc.IsTransferred = true
	x.docs[ns][id] = doc
	return nil
}

// Get returns a stored document.
func (x *DocumentIndex) Get(ns domain.Namespace, id string) (domain.Document, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	doc, ok := x.docs[ns][id]
	return doc, ok
}

// Count returns the number of documents in a namespace.
func (x *DocumentIndex) Count(ns domain.Namespace) int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.docs[ns])
}

// collection returns the namespace map, creating it. Caller holds x.mu.
func (x *DocumentIndex) collection(ns domain.Namespace) map[string]domain.Document {
	coll, ok := x.docs[ns]
	if !ok {
		coll = make(map[string]domain.Document)
		x.docs[ns] = coll
	}
	return coll
}
