package domain

import (
	"fmt"
	"time"
)

// SyncMode selects how pagination progress is recorded. A deployment uses
// exactly one mode; the two are never mixed within a run.
type SyncMode string

const (
	// SyncModeSince keeps one "last successful run" timestamp per
	// repository and asks the source only for issues changed since then.
	SyncModeSince SyncMode = "since"

	// SyncModeETag keeps a content fingerprint and next cursor per page
	// and re-fetches pages conditionally.
	SyncModeETag SyncMode = "etag"
)

// Valid reports whether m is a known mode.
func (m SyncMode) Valid() bool {
	return m == SyncModeSince || m == SyncModeETag
}

// WatermarkKey identifies a watermark. Page is 0 for the repository-level
// key used by SyncModeSince and 1-based for SyncModeETag.
type WatermarkKey struct {
	Owner string
	Repo  string
	Page  int
}

// RepoKey returns the repository-level key.
func RepoKey(owner, repo string) WatermarkKey {
	return WatermarkKey{Owner: owner, Repo: repo}
}

// PageKey returns the per-page key.
func PageKey(owner, repo string, page int) WatermarkKey {
	return WatermarkKey{Owner: owner, Repo: repo, Page: page}
}

func (k WatermarkKey) String() string {
	if k.Page == 0 {
		return fmt.Sprintf("%s/%s", k.Owner, k.Repo)
	}
	return fmt.Sprintf("%s/%s#%d", k.Owner, k.Repo, k.Page)
}

// Watermark is the persisted synchronisation progress for one key.
// It is written only after the documents it covers were committed.
type Watermark struct {
	Key WatermarkKey

	// LastRun is the start of the last fully committed run (SyncModeSince).
	LastRun time.Time

	// ETag and NextCursor describe one page (SyncModeETag).
	ETag       string
	NextCursor string

	// Lookahead is the page's PageMeta.Lookahead, followed when the page
	// is confirmed unchanged and has no NextCursor.
	Lookahead string

	// UpdatedAt is when the watermark was last written.
	UpdatedAt time.Time
}

// Merge returns the watermark to persist when next replaces prev.
// LastRun never moves backwards.
func (w Watermark) Merge(next Watermark) Watermark {
	out := next
	if w.LastRun.After(next.LastRun) {
		out.LastRun = w.LastRun
	}
	return out
}
