// Package connectors holds the issue sources. Each subpackage implements
// driven.IssueSource and driven.RepositoryDirectory for one forge.
package connectors
