package typesense

import (
	"github.com/typesense/typesense-go/v4/typesense/api"
	"github.com/typesense/typesense-go/v4/typesense/api/pointer"

	"github.com/custodia-labs/issuesync/internal/core/domain"
)

// privateSuffix is appended to the collection name for private repositories.
const privateSuffix = "_private"

// CollectionName returns the collection a namespace is stored in.
func CollectionName(base string, ns domain.Namespace) string {
	if ns == domain.NamespacePrivate {
		return base + privateSuffix
	}
	return base
}

// timeFacetFields returns the flattened fields of one time facet.
func timeFacetFields(prefix string) []api.Field {
	return []api.Field{
		{Name: prefix, Type: "int64", Optional: pointer.True(), Sort: pointer.True()},
		{Name: prefix + "_weekday", Type: "string", Optional: pointer.True(), Facet: pointer.True()},
		{Name: prefix + "_weekday_num", Type: "int32", Optional: pointer.True(), Facet: pointer.True()},
		{Name: prefix + "_hour", Type: "int32", Optional: pointer.True(), Facet: pointer.True()},
	}
}

// Schema returns the collection schema documents are written with.
func Schema(name string) *api.CollectionSchema {
	fields := []api.Field{
		{Name: "number", Type: "int32"},
		{Name: "fetched_at", Type: "int64", Sort: pointer.True()},
		{Name: "owner", Type: "string", Facet: pointer.True()},
		{Name: "repo", Type: "string", Facet: pointer.True()},
		{Name: "repository", Type: "string", Facet: pointer.True()},
		{Name: "state", Type: "string", Facet: pointer.True()},
		{Name: "title", Type: "string"},
		{Name: "body", Type: "string", Optional: pointer.True()},
		{Name: "author", Type: "string", Optional: pointer.True(), Facet: pointer.True()},
		{Name: "author_association", Type: "string", Optional: pointer.True(), Facet: pointer.True()},
		{Name: "labels", Type: "string[]", Facet: pointer.True()},
		{Name: "assignees", Type: "string[]", Optional: pointer.True(), Facet: pointer.True()},
		{Name: "is_pull_request", Type: "bool", Facet: pointer.True()},
		{Name: "is_transferred", Type: "bool", Facet: pointer.True()},
		{Name: "moved_from", Type: "string", Optional: pointer.True(), Facet: pointer.True()},
		{Name: "moved_to", Type: "string", Optional: pointer.True(), Facet: pointer.True()},
		{Name: "time_to_fix", Type: "int64", Optional: pointer.True(), Sort: pointer.True()},
		{Name: "html_url", Type: "string", Optional: pointer.True(), Index: pointer.False()},
	}
	for _, prefix := range []string{"created_at", "updated_at", "closed_at", "transferred_at"} {
		fields = append(fields, timeFacetFields(prefix)...)
	}
	for _, r := range reactionFields {
		fields = append(fields, api.Field{Name: r, Type: "int32", Optional: pointer.True(), Sort: pointer.True()})
	}

	return &api.CollectionSchema{
		Name:   name,
		Fields: fields,
	}
}
