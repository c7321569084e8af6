package github

import (
	"strconv"
	"time"

	"github.com/custodia-labs/issuesync/internal/core/domain"
	"github.com/custodia-labs/issuesync/internal/core/ports/driven"
)

// Ensure IssueNormaliser implements the interface.
var _ driven.Normaliser = (*IssueNormaliser)(nil)

// IssueNormaliser maps GitHub issues onto canonical documents.
type IssueNormaliser struct{}

// NewIssue creates a new GitHub issue normaliser.
func NewIssue() *IssueNormaliser {
	return &IssueNormaliser{}
}

// Normalise implements driven.Normaliser.
func (n *IssueNormaliser) Normalise(raw *domain.RawIssue, aux domain.Enrichment, fetchedAt time.Time) domain.Document {
	return Normalise(raw, aux, fetchedAt)
}

// Normalise converts a raw issue and its enrichment into a document.
// A nil raw issue yields the zero document.
func Normalise(raw *domain.RawIssue, aux domain.Enrichment, fetchedAt time.Time) domain.Document {
	if raw == nil {
		return domain.Document{}
	}

	doc := domain.Document{
		ID:                strconv.FormatInt(raw.ID, 10),
		Number:            raw.Number,
		FetchedAt:         fetchedAt.UTC(),
		Owner:             raw.Owner,
		Repo:              raw.Repo,
		State:             domain.ParseState(raw.State),
		Title:             raw.Title,
		Body:              raw.Body,
		AuthorAssociation: raw.AuthorAssociation,
		Labels:            labelNames(raw.Labels),
		Assignees:         assigneeLogins(raw.Assignees),
		CreatedAt:         domain.NewTimeFacets(raw.CreatedAt),
		UpdatedAt:         domain.NewTimeFacets(raw.UpdatedAt),
		ClosedAt:          domain.NewTimeFacets(raw.ClosedAt),
		Reactions:         reactions(raw.Reactions),
		IsPullRequest:     raw.PullRequestURL != "",
		TimeToFix:         timeToFix(raw.CreatedAt, raw.ClosedAt),
		HTMLURL:           raw.HTMLURL,
	}

	if raw.User != nil {
		doc.Author = raw.User.Login
	}

	if rel := aux.Relocation; rel != nil {
		doc.IsTransferred = true
		doc.MovedFrom = stringPtr(rel.From)
		doc.MovedTo = stringPtr(rel.To)
		at := rel.At
		doc.TransferredAt = domain.NewTimeFacets(&at)
	}

	return doc
}

// labelNames flattens labels to names. Absent and empty both give [].
func labelNames(labels []domain.RawLabel) []string {
	names := make([]string, 0, len(labels))
	for _, l := range labels {
		names = append(names, l.Name)
	}
	return names
}

// assigneeLogins flattens assignees to logins, keeping nil distinct from empty.
func assigneeLogins(assignees []domain.RawUser) []string {
	if assignees == nil {
		return nil
	}
	logins := make([]string, 0, len(assignees))
	for _, a := range assignees {
		logins = append(logins, a.Login)
	}
	return logins
}

func reactions(r *domain.RawReactions) *domain.Reactions {
	if r == nil {
		return nil
	}
	return &domain.Reactions{
		Total:    r.TotalCount,
		UpVote:   r.PlusOne,
		DownVote: r.MinusOne,
		Laugh:    r.Laugh,
		Hooray:   r.Hooray,
		Confused: r.Confused,
		Heart:    r.Heart,
	}
}

// timeToFix is closed - created, nil unless both are known.
func timeToFix(created, closed *time.Time) *time.Duration {
	if created == nil || closed == nil {
		return nil
	}
	d := closed.Sub(*created)
	return &d
}

func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
