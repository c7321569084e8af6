package driven

import (
	"time"

	"github.com/custodia-labs/issuesync/internal/core/domain"
)

// Normaliser transforms a raw issue and its auxiliary data into a
// canonical document. Implementations must be pure; the fetch instant is
// passed in rather than read from the clock.
type Normaliser interface {
	Normalise(raw *domain.RawIssue, aux domain.Enrichment, fetchedAt time.Time) domain.Document
}

// NormaliserFunc adapts a plain function to the Normaliser interface.
type NormaliserFunc func(raw *domain.RawIssue, aux domain.Enrichment, fetchedAt time.Time) domain.Document

// Normalise calls f.
func (f NormaliserFunc) Normalise(raw *domain.RawIssue, aux domain.Enrichment, fetchedAt time.Time) domain.Document {
	return f(raw, aux, fetchedAt)
}
