package domain

import (
	"fmt"
	"strings"
)

// Namespace separates public and private repositories in the index.
type Namespace string

const (
	NamespacePublic  Namespace = "public"
	NamespacePrivate Namespace = "private"
)

// Namespaces lists every namespace, public first.
func Namespaces() []Namespace {
	return []Namespace{NamespacePublic, NamespacePrivate}
}

// Repository is a configured repository to synchronise.
type Repository struct {
	Owner   string
	Name    string
	Private bool

	// Unresolved marks a repository whose visibility is not configured.
	// It is looked up from the source when the repository is synchronised.
	Unresolved bool
}

// FullName returns owner/name.
func (r Repository) FullName() string {
	return r.Owner + "/" + r.Name
}

func (r Repository) String() string {
	return r.FullName()
}

// Namespace returns the index namespace the repository's documents live in.
func (r Repository) Namespace() Namespace {
	if r.Private {
		return NamespacePrivate
	}
	return NamespacePublic
}

// ParseRepository parses an "owner/name" string.
func ParseRepository(s string) (Repository, error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return Repository{}, fmt.Errorf("%w: repository %q must be owner/name", ErrInvalidInput, s)
	}
	return Repository{Owner: owner, Name: name}, nil
}
