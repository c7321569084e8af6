package github

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/issuesync/internal/core/domain"
	"github.com/custodia-labs/issuesync/internal/core/ports/driven"
)

// sleepRecorder replaces real sleeping in tests.
type sleepRecorder struct {
	waits []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return nil
}

// newTestClient starts a fake GitHub and returns a client pointed at it.
func newTestClient(t *testing.T, handler http.Handler) (*Client, *sleepRecorder, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.Client(), Config{
		BaseURL:           srv.URL,
		RequestsPerSecond: 1000,
		Retry: ExponentialBackoff{
			Initial:     time.Millisecond,
			Max:         time.Millisecond,
			MaxAttempts: 3,
		},
	})
	require.NoError(t, err)

	rec := &sleepRecorder{}
	client.sleep = rec.sleep
	return client, rec, srv
}

const issuesPage = `[
  {
    "id": 1001, "number": 1, "title": "First", "body": "body", "state": "open",
    "user": {"id": 7, "login": "octo"}, "author_association": "OWNER",
    "labels": [{"name": "bug", "color": "f00"}], "assignees": [],
    "created_at": "2022-01-01T10:00:00Z", "updated_at": "2022-01-02T10:00:00Z",
    "reactions": {"total_count": 5, "+1": 3, "-1": 0, "laugh": 2},
    "html_url": "https://github.com/o/r/issues/1"
  },
  {
    "id": 1002, "number": 2, "title": "A pull", "state": "closed",
    "created_at": "2022-01-03T10:00:00Z", "closed_at": "2022-01-04T10:00:00Z",
    "pull_request": {"url": "https://api.github.com/repos/o/r/pulls/2"}
  }
]`

func TestClient_ListIssuePage(t *testing.T) {
	t.Run("fetches and converts one page", func(t *testing.T) {
		var gotQuery map[string]string
		mux := http.NewServeMux()
		mux.HandleFunc("/repos/o/r/issues", func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			gotQuery = map[string]string{
				"state":     q.Get("state"),
				"sort":      q.Get("sort"),
				"direction": q.Get("direction"),
				"per_page":  q.Get("per_page"),
				"since":     q.Get("since"),
			}
			w.Header().Set("ETag", `"page-1"`)
			w.Header().Set("Link", fmt.Sprintf(`<http://%s/repos/o/r/issues?page=2>; rel="next"`, r.Host))
			fmt.Fprint(w, issuesPage)
		})
		client, _, _ := newTestClient(t, mux)

		since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		page, err := client.ListIssuePage(context.Background(), driven.ListRequest{
			Owner: "o", Repo: "r", Since: &since,
		})
		require.NoError(t, err)

		assert.Equal(t, map[string]string{
			"state":     "all",
			"sort":      "created",
			"direction": "asc",
			"per_page":  "100",
			"since":     "2024-01-01T00:00:00Z",
		}, gotQuery)

		assert.Equal(t, 1, page.Number)
		assert.Equal(t, `"page-1"`, page.Meta.ETag)
		assert.Equal(t, PageCursor(2), page.Meta.NextCursor)
		assert.False(t, page.Meta.NotModified)
		require.Len(t, page.Issues, 2)

		first := page.Issues[0]
		assert.Equal(t, int64(1001), first.ID)
		assert.Equal(t, "open", first.State)
		assert.Equal(t, "octo", first.User.Login)
		assert.Equal(t, "o", first.Owner)
		assert.Equal(t, "r", first.Repo)
		assert.Equal(t, []domain.RawLabel{{Name: "bug", Color: "f00"}}, first.Labels)
		assert.NotNil(t, first.Assignees)
		assert.Empty(t, first.Assignees)
		require.NotNil(t, first.Reactions)
		assert.Equal(t, 5, first.Reactions.TotalCount)
		assert.Equal(t, 3, first.Reactions.PlusOne)
		assert.Nil(t, first.ClosedAt)
		assert.Empty(t, first.PullRequestURL)

		second := page.Issues[1]
		assert.Nil(t, second.Assignees)
		assert.Nil(t, second.Reactions)
		assert.Nil(t, second.User)
		assert.NotEmpty(t, second.PullRequestURL)
		require.NotNil(t, second.ClosedAt)
	})

	t.Run("last page has no next cursor", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/repos/o/r/issues", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "3", r.URL.Query().Get("page"))
			fmt.Fprint(w, `[]`)
		})
		client, _, _ := newTestClient(t, mux)

		page, err := client.ListIssuePage(context.Background(), driven.ListRequest{
			Owner: "o", Repo: "r", Cursor: PageCursor(3),
		})
		require.NoError(t, err)
		assert.Equal(t, 3, page.Number)
		assert.Empty(t, page.Meta.NextCursor)
		assert.Empty(t, page.Meta.Lookahead)
		assert.Empty(t, page.Issues)
	})

	t.Run("full last page carries a lookahead", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/repos/o/r/issues", func(w http.ResponseWriter, _ *http.Request) {
			items := make([]string, PageSize)
			for i := range items {
				items[i] = fmt.Sprintf(`{"id":%d,"number":%d,"state":"open"}`, 500+i, 200+i)
			}
			fmt.Fprintf(w, "[%s]", strings.Join(items, ","))
		})
		client, _, _ := newTestClient(t, mux)

		page, err := client.ListIssuePage(context.Background(), driven.ListRequest{
			Owner: "o", Repo: "r", Cursor: PageCursor(3),
		})
		require.NoError(t, err)
		require.Len(t, page.Issues, PageSize)
		assert.Empty(t, page.Meta.NextCursor)
		assert.Equal(t, PageCursor(4), page.Meta.Lookahead)
	})

	t.Run("not modified is an empty page", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/repos/o/r/issues", func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("If-None-Match") == `"abc"` {
				w.WriteHeader(http.StatusNotModified)
				return
			}
			fmt.Fprint(w, issuesPage)
		})
		client, rec, _ := newTestClient(t, mux)

		page, err := client.ListIssuePage(context.Background(), driven.ListRequest{
			Owner: "o", Repo: "r", ETag: `"abc"`,
		})
		require.NoError(t, err)
		assert.True(t, page.Meta.NotModified)
		assert.Equal(t, `"abc"`, page.Meta.ETag)
		assert.Empty(t, page.Issues)
		assert.Empty(t, rec.waits)
	})

	t.Run("rejects an invalid cursor", func(t *testing.T) {
		client, _, _ := newTestClient(t, http.NewServeMux())

		_, err := client.ListIssuePage(context.Background(), driven.ListRequest{Owner: "o", Repo: "r", Cursor: "%%%"})
		assert.ErrorIs(t, err, ErrInvalidCursor)
	})
}

func TestClient_Retries(t *testing.T) {
	t.Run("retries transient failures", func(t *testing.T) {
		var calls atomic.Int32
		mux := http.NewServeMux()
		mux.HandleFunc("/repos/o/r/issues", func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			fmt.Fprint(w, `[]`)
		})
		client, rec, _ := newTestClient(t, mux)

		_, err := client.ListIssuePage(context.Background(), driven.ListRequest{Owner: "o", Repo: "r"})
		require.NoError(t, err)
		assert.Equal(t, int32(3), calls.Load())
		assert.Len(t, rec.waits, 2)
	})

	t.Run("gives up after the ceiling", func(t *testing.T) {
		var calls atomic.Int32
		mux := http.NewServeMux()
		mux.HandleFunc("/repos/o/r/issues", func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		})
		client, _, _ := newTestClient(t, mux)

		_, err := client.ListIssuePage(context.Background(), driven.ListRequest{Owner: "o", Repo: "r"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrRetriesExhausted)
		assert.True(t, IsServerError(err))
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("waits out a primary rate limit", func(t *testing.T) {
		var calls atomic.Int32
		mux := http.NewServeMux()
		mux.HandleFunc("/repos/o/r/issues", func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) == 1 {
				w.Header().Set(HeaderRateLimit, "5000")
				w.Header().Set(HeaderRateRemaining, "0")
				w.Header().Set(HeaderRateReset, fmt.Sprint(time.Now().Add(-time.Second).Unix()))
				w.WriteHeader(http.StatusForbidden)
				fmt.Fprint(w, `{"message":"API rate limit exceeded"}`)
				return
			}
			fmt.Fprint(w, `[]`)
		})
		client, rec, _ := newTestClient(t, mux)

		_, err := client.ListIssuePage(context.Background(), driven.ListRequest{Owner: "o", Repo: "r"})
		require.NoError(t, err)
		assert.Equal(t, int32(2), calls.Load())
		assert.Equal(t, []time.Duration{0}, rec.waits)
	})

	t.Run("does not retry auth failures", func(t *testing.T) {
		var calls atomic.Int32
		mux := http.NewServeMux()
		mux.HandleFunc("/repos/o/r/issues", func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"message":"Bad credentials"}`)
		})
		client, _, _ := newTestClient(t, mux)

		_, err := client.ListIssuePage(context.Background(), driven.ListRequest{Owner: "o", Repo: "r"})
		assert.ErrorIs(t, err, domain.ErrAuthInvalid)
		assert.True(t, IsUnauthorized(err))
		assert.NotErrorIs(t, err, ErrRetriesExhausted)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("reports malformed payloads", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/repos/o/r/issues", func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{not json`)
		})
		client, _, _ := newTestClient(t, mux)

		_, err := client.ListIssuePage(context.Background(), driven.ListRequest{Owner: "o", Repo: "r"})
		assert.ErrorIs(t, err, domain.ErrMalformedResponse)
	})

	t.Run("stops when the context is cancelled", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/repos/o/r/issues", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
		client, _, _ := newTestClient(t, mux)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := client.ListIssuePage(ctx, driven.ListRequest{Owner: "o", Repo: "r"})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestClient_ListTimeline(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/o/r/issues/5/timeline", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "1":
			w.Header().Set("Link", fmt.Sprintf(`<http://%s/repos/o/r/issues/5/timeline?page=2>; rel="next"`, r.Host))
			fmt.Fprint(w, `[{"event":"labeled","created_at":"2023-01-01T00:00:00Z"}]`)
		case "2":
			fmt.Fprint(w, `[{"event":"transferred","created_at":"2023-02-01T08:30:00Z",
				"previous_repository":{"full_name":"oldOwner/oldRepo"}}]`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	client, _, _ := newTestClient(t, mux)

	events, err := client.ListTimeline(context.Background(), "o", "r", 5)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "labeled", events[0].Event)
	assert.Empty(t, events[0].PreviousRepository)
	assert.Equal(t, domain.EventTransferred, events[1].Event)
	assert.Equal(t, "oldOwner/oldRepo", events[1].PreviousRepository)
	assert.Equal(t, time.Date(2023, 2, 1, 8, 30, 0, 0, time.UTC), events[1].CreatedAt)
}

func TestClient_ProbeIssue(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/o/r/issues/1", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"id":1,"number":1,"state":"open"}`)
	})
	mux.HandleFunc("/repos/o/r/issues/2", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Not Found"}`)
	})
	mux.HandleFunc("/repos/o/r/issues/3", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/repositories/99/issues/3", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/repos/o/r/issues/4", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message":"Resource not accessible"}`)
	})
	client, _, _ := newTestClient(t, mux)
	ctx := context.Background()

	t.Run("existing issue", func(t *testing.T) {
		res, err := client.ProbeIssue(ctx, "o", "r", 1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, res.StatusCode)
	})

	t.Run("missing issue is a result", func(t *testing.T) {
		res, err := client.ProbeIssue(ctx, "o", "r", 2)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, res.StatusCode)
	})

	t.Run("redirect is reported, not followed", func(t *testing.T) {
		res, err := client.ProbeIssue(ctx, "o", "r", 3)
		require.NoError(t, err)
		assert.Equal(t, http.StatusMovedPermanently, res.StatusCode)
		assert.Equal(t, "/repositories/99/issues/3", res.Location)
	})

	t.Run("other failures are errors", func(t *testing.T) {
		_, err := client.ProbeIssue(ctx, "o", "r", 4)
		assert.True(t, IsForbidden(err))
	})
}

func TestNewClient_InvalidBaseURL(t *testing.T) {
	_, err := NewClient(nil, Config{BaseURL: "not a url"})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}
