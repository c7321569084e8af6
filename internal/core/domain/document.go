package domain

import (
	"fmt"
	"time"
)

// State is the lifecycle state of a canonical document.
type State string

const (
	StateOpen        State = "open"
	StateClosed      State = "closed"
	StateTransferred State = "transferred"
)

// ParseState maps a source state string onto a document state.
// Unknown values are treated as closed so they never enter the
// reconciliation sweep.
func ParseState(s string) State {
	switch s {
	case "open":
		return StateOpen
	case "transferred":
		return StateTransferred
	default:
		return StateClosed
	}
}

// Document is the canonical, index-ready representation of one issue.
// It is the unit the bulk writer commits and the reconciler corrects.
type Document struct {
	// ID equals the source issue ID.
	ID string

	// Number is the repository-scoped issue number.
	Number int

	// FetchedAt is when the raw issue was normalised. It is the only field
	// that differs between two normalisations of the same input.
	FetchedAt time.Time

	Owner string
	Repo  string

	State State

	Title string
	Body  string

	// Author is the login of the issue author, AuthorAssociation their role
	// in the repository (OWNER, MEMBER, CONTRIBUTOR, NONE...).
	Author            string
	AuthorAssociation string

	// Labels is never nil once normalised.
	Labels []string

	// Assignees is nil when the source carried no assignee block and empty
	// when it carried an empty one.
	Assignees []string

	CreatedAt *TimeFacets
	UpdatedAt *TimeFacets
	ClosedAt  *TimeFacets

	// Reactions is nil when the source carried no reactions block.
	Reactions *Reactions

	// IsPullRequest marks records that are pull requests surfaced through
	// the issues endpoint.
	IsPullRequest bool

	// Relocation facts, only populated when a transfer was detected.
	IsTransferred bool
	MovedFrom     *string
	MovedTo       *string
	TransferredAt *TimeFacets

	// TimeToFix is ClosedAt - CreatedAt, nil unless both are present.
	TimeToFix *time.Duration

	HTMLURL string
}

// Repository returns the owner/repo full name of the document.
func (d *Document) Repository() string {
	return fmt.Sprintf("%s/%s", d.Owner, d.Repo)
}

// TimeFacets decomposes an instant into the fields the index filters and
// aggregates on.
type TimeFacets struct {
	Instant time.Time

	// Weekday is the three letter English abbreviation ("Sun".."Sat").
	Weekday string

	// WeekdayNum follows the Sunday=0 convention.
	WeekdayNum int

	// Hour is the hour of day, 0-23.
	Hour int
}

// NewTimeFacets decomposes t in UTC. A nil input yields a nil result.
func NewTimeFacets(t *time.Time) *TimeFacets {
	if t == nil || t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &TimeFacets{
		Instant:    u,
		Weekday:    u.Weekday().String()[:3],
		WeekdayNum: int(u.Weekday()),
		Hour:       u.Hour(),
	}
}

// Reactions holds the seven fixed reaction counters of a document.
type Reactions struct {
	Total    int
	UpVote   int
	DownVote int
	Laugh    int
	Hooray   int
	Confused int
	Heart    int
}

// DocumentRef is the projection of a stored document the reconciler needs.
type DocumentRef struct {
	ID        string
	Owner     string
	Repo      string
	Number    int
	State     State
	UpdatedAt time.Time
}

// StaleQuery selects documents for a reconciliation sweep.
type StaleQuery struct {
	State         State
	UpdatedBefore time.Time
	Limit         int
}

// ItemResult is the per-document outcome of a bulk write.
type ItemResult struct {
	ID    string
	OK    bool
	Error string
}
