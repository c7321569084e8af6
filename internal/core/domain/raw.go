package domain

import "time"

// RawIssue is an issue exactly as the source returned it.
// It is immutable once fetched and never persisted.
type RawIssue struct {
	ID     int64
	Number int
	Title  string
	Body   string

	// Owner and Repo identify the repository the issue was listed from.
	Owner string
	Repo  string

	// State is the source state string ("open", "closed").
	State string

	User              *RawUser
	AuthorAssociation string

	Labels []RawLabel

	// Assignees is nil when the payload had no assignees field.
	Assignees []RawUser

	CreatedAt *time.Time
	UpdatedAt *time.Time
	ClosedAt  *time.Time

	// Reactions is nil when the payload had no reactions block.
	Reactions *RawReactions

	// PullRequestURL is set when the issue is a pull request.
	PullRequestURL string

	HTMLURL string
}

// IsOpen reports whether the issue is in the active state.
func (r *RawIssue) IsOpen() bool {
	return r.State == string(StateOpen)
}

// RawUser is a source user reference.
type RawUser struct {
	ID    int64
	Login string
}

// RawLabel is a source label reference.
type RawLabel struct {
	Name  string
	Color string
}

// RawReactions mirrors the source reactions block.
type RawReactions struct {
	TotalCount int
	PlusOne    int
	MinusOne   int
	Laugh      int
	Hooray     int
	Confused   int
	Heart      int
	Rocket     int
	Eyes       int
}

// TimelineEvent is one entry of an issue's event timeline.
type TimelineEvent struct {
	Event     string
	CreatedAt time.Time

	// PreviousRepository is the owner/repo full name the issue came from.
	// Only set on transferred events.
	PreviousRepository string
}

// EventTransferred is the timeline event type emitted when an issue moves
// between repositories.
const EventTransferred = "transferred"

// RelocationEvent describes a detected transfer of an issue.
type RelocationEvent struct {
	From string
	To   string
	At   time.Time
}

// Enrichment is the auxiliary data attached to a raw issue before
// normalisation. The zero value means no auxiliary data.
type Enrichment struct {
	Relocation *RelocationEvent
}

// Page is one page of a repository's issue listing.
type Page struct {
	// Number is the 1-based page number.
	Number int

	Issues []RawIssue

	Meta PageMeta
}

// PageMeta carries the response metadata of a page fetch.
type PageMeta struct {
	// NextCursor is empty on the last page.
	NextCursor string

	// Lookahead is the cursor of the following page, set when the page
	// is full but the source announced no next page. Issues created after
	// the fetch land there without changing this page's fingerprint.
	Lookahead string

	// ETag is the page content fingerprint returned by the source.
	ETag string

	// NotModified is set when a conditional fetch confirmed the page is
	// unchanged. Issues is empty in that case.
	NotModified bool

	Rate RateBudget
}

// RateBudget is the source's declared request quota.
type RateBudget struct {
	Limit     int
	Remaining int
	Reset     time.Time
}

// ProbeResult is the outcome of a direct existence probe for one issue.
type ProbeResult struct {
	StatusCode int

	// Location is the redirect target when the source answered with one.
	Location string
}
