// Package github normalises GitHub issues into canonical index documents.
//
// Normalisation is a pure function of the raw issue, its enrichment and
// the fetch instant. Two normalisations of the same input differ only in
// FetchedAt.
package github
