package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrInvalidConfig", ErrInvalidConfig},
		{"ErrAuthRequired", ErrAuthRequired},
		{"ErrAuthInvalid", ErrAuthInvalid},
		{"ErrRateLimited", ErrRateLimited},
		{"ErrMalformedResponse", ErrMalformedResponse},
		{"ErrIndexUnavailable", ErrIndexUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestRepoError(t *testing.T) {
	t.Run("includes page identity", func(t *testing.T) {
		err := &RepoError{Owner: "octo", Repo: "hello", Page: 3, Err: ErrRateLimited}
		assert.Equal(t, "octo/hello page 3: rate limited", err.Error())
		assert.True(t, errors.Is(err, ErrRateLimited))
	})

	t.Run("omits page before first page", func(t *testing.T) {
		err := &RepoError{Owner: "octo", Repo: "hello", Err: ErrAuthInvalid}
		assert.Equal(t, "octo/hello: authentication invalid", err.Error())
	})

	t.Run("is found through wrapping", func(t *testing.T) {
		var wrapped error = &RepoError{Owner: "o", Repo: "r", Err: ErrNotFound}
		joined := errors.Join(errors.New("other"), wrapped)

		var repoErr *RepoError
		assert.True(t, errors.As(joined, &repoErr))
		assert.Equal(t, "o", repoErr.Owner)
	})
}

func TestRunReport(t *testing.T) {
	ok := RepoResult{Repo: Repository{Owner: "a", Name: "ok"}, Documents: 3}
	failed := RepoResult{
		Repo: Repository{Owner: "a", Name: "bad"},
		Err:  &RepoError{Owner: "a", Repo: "bad", Page: 2, Err: ErrRateLimited},
	}

	t.Run("no failures yields nil error", func(t *testing.T) {
		report := &RunReport{Results: []RepoResult{ok}}
		assert.NoError(t, report.Err())
		assert.Empty(t, report.Failed())
		assert.Equal(t, 3, report.Documents())
	})

	t.Run("failures are joined", func(t *testing.T) {
		report := &RunReport{Results: []RepoResult{ok, failed}}
		err := report.Err()
		assert.Error(t, err)
		assert.True(t, errors.Is(err, ErrRateLimited))
		assert.Len(t, report.Failed(), 1)
		assert.Contains(t, err.Error(), "a/bad page 2")
	})
}

func TestReconcileReport_Add(t *testing.T) {
	r := ReconcileReport{Candidates: 1, Transferred: 1}
	r.Add(ReconcileReport{Candidates: 2, Unchanged: 1, Failed: 1})
	assert.Equal(t, ReconcileReport{Candidates: 3, Transferred: 1, Unchanged: 1, Failed: 1}, r)
}
