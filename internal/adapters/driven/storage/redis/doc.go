// Package redis stores watermarks in Redis so several issuesync processes
// can share sync progress.
//
// Each repository is one hash, issuesync:wm:<owner>/<repo>. Field "0" holds
// the repository-level watermark and fields "1".."n" the per-page ones.
package redis
