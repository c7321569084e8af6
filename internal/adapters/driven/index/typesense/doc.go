// Package typesense implements the document index on a Typesense cluster.
//
// Each namespace maps to its own collection: public repositories go to the
// configured collection, private ones to "<collection>_private". Collections
// are created from a fixed schema on first use. Documents are flattened so
// every time facet and reaction counter is a top-level, filterable field.
package typesense
