// Package normalisers holds the driven.Normaliser implementations that
// turn raw source issues into index documents, one subpackage per source.
package normalisers
