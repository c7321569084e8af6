package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/issuesync/internal/adapters/driven/config/file"
	"github.com/custodia-labs/issuesync/internal/adapters/driven/index/typesense"
	"github.com/custodia-labs/issuesync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/issuesync/internal/adapters/driven/storage/redis"
	"github.com/custodia-labs/issuesync/internal/adapters/driving/cli"
	"github.com/custodia-labs/issuesync/internal/core/domain"
)

func TestNewStores(t *testing.T) {
	ctx := context.Background()

	t.Run("sqlite", func(t *testing.T) {
		cfg := file.Default()
		cfg.Store.Driver = file.DriverSQLite
		cfg.Store.Path = t.TempDir()

		wm, sched, closeFn, err := newStores(ctx, cfg)
		require.NoError(t, err)
		t.Cleanup(func() { _ = closeFn() })
		assert.NotNil(t, wm)
		assert.NotNil(t, sched)
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := file.Default()
		cfg.Store.Driver = file.DriverRedis
		cfg.Store.RedisURL = "redis://" + mr.Addr()

		wm, sched, closeFn, err := newStores(ctx, cfg)
		require.NoError(t, err)
		t.Cleanup(func() { _ = closeFn() })
		assert.IsType(t, &redis.WatermarkStore{}, wm)
		assert.IsType(t, &memory.SchedulerStore{}, sched)

		require.NoError(t, wm.Save(ctx, domain.Watermark{Key: domain.RepoKey("acme", "widgets")}))
		got, err := wm.Get(ctx, domain.RepoKey("acme", "widgets"))
		require.NoError(t, err)
		assert.Equal(t, domain.RepoKey("acme", "widgets"), got.Key)
	})

	t.Run("bad redis url", func(t *testing.T) {
		cfg := file.Default()
		cfg.Store.Driver = file.DriverRedis
		cfg.Store.RedisURL = "://nope"

		_, _, _, err := newStores(ctx, cfg)
		assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	})

	t.Run("memory", func(t *testing.T) {
		cfg := file.Default()
		cfg.Store.Driver = file.DriverMemory

		wm, sched, closeFn, err := newStores(ctx, cfg)
		require.NoError(t, err)
		assert.NoError(t, closeFn())
		assert.IsType(t, &memory.WatermarkStore{}, wm)
		assert.IsType(t, &memory.SchedulerStore{}, sched)
	})

	t.Run("unknown driver", func(t *testing.T) {
		cfg := file.Default()
		cfg.Store.Driver = "etcd"

		_, _, _, err := newStores(ctx, cfg)
		assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	})
}

func TestNewIndex(t *testing.T) {
	t.Run("typesense", func(t *testing.T) {
		cfg := file.Default()
		cfg.Secrets.TypesenseAPIKey = "xyz"

		idx, err := newIndex(cfg)
		require.NoError(t, err)
		assert.IsType(t, &typesense.Index{}, idx)
	})

	t.Run("memory", func(t *testing.T) {
		cfg := file.Default()
		cfg.Index.Driver = file.DriverMemory

		idx, err := newIndex(cfg)
		require.NoError(t, err)
		assert.IsType(t, &memory.DocumentIndex{}, idx)
	})

	t.Run("unknown driver", func(t *testing.T) {
		cfg := file.Default()
		cfg.Index.Driver = "elastic"

		_, err := newIndex(cfg)
		assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	})
}

func TestNewSource(t *testing.T) {
	t.Run("token", func(t *testing.T) {
		cfg := file.Default()
		cfg.Secrets.GitHubToken = "ghp_test"

		src, installation, err := newSource(context.Background(), cfg)
		require.NoError(t, err)
		assert.NotNil(t, src)
		assert.False(t, installation)
	})

	t.Run("missing credentials", func(t *testing.T) {
		_, _, err := newSource(context.Background(), file.Default())
		assert.ErrorIs(t, err, domain.ErrAuthRequired)
	})
}

func TestBootstrap(t *testing.T) {
	t.Setenv(file.EnvGitHubToken, "ghp_test")
	t.Setenv(file.EnvAppID, "")
	t.Setenv(file.EnvAppPrivateKey, "")
	t.Setenv(file.EnvAppInstallationID, "")

	cfg := file.Default()
	cfg.Store.Driver = file.DriverMemory
	cfg.Index.Driver = file.DriverMemory
	private := true
	cfg.Repositories = []file.RepositoryConfig{{Owner: "acme", Name: "widgets", Private: &private}}

	path := t.TempDir() + "/config.toml"
	require.NoError(t, file.Write(path, cfg))

	svc, err := bootstrap(context.Background(), cli.Options{ConfigPath: path}, false, "issuesync")
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	assert.NotNil(t, svc.Sync)
	assert.NotNil(t, svc.Reconciler)
	assert.NotNil(t, svc.Watermarks)
	assert.NotNil(t, svc.Repos)
	assert.NotNil(t, svc.Scheduler)
	assert.Equal(t, []domain.Repository{{Owner: "acme", Name: "widgets", Private: true}}, svc.Configured)
}

func TestBootstrap_UnknownVisibility(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/good", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"name": "good", "owner": {"login": "acme"}, "private": true}`))
	})
	mux.HandleFunc("GET /repos/acme/good/issues", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message": "Not Found"}`, http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	t.Setenv(file.EnvGitHubToken, "ghp_test")
	t.Setenv(file.EnvAppID, "")
	t.Setenv(file.EnvAppPrivateKey, "")
	t.Setenv(file.EnvAppInstallationID, "")

	cfg := file.Default()
	cfg.Store.Driver = file.DriverMemory
	cfg.Index.Driver = file.DriverMemory
	cfg.GitHub.BaseURL = srv.URL
	cfg.RequestsPerSecond = 1000
	cfg.Repositories = []file.RepositoryConfig{
		{Owner: "acme", Name: "good"},
		{Owner: "acme", Name: "gone"},
	}
	path := t.TempDir() + "/config.toml"
	require.NoError(t, file.Write(path, cfg))

	ctx := context.Background()
	svc, err := bootstrap(ctx, cli.Options{ConfigPath: path}, false, "issuesync")
	require.NoError(t, err, "visibility is not looked up at startup")
	t.Cleanup(func() { _ = svc.Close() })

	report, err := svc.Sync.SyncAll(ctx)
	require.Error(t, err)
	require.Len(t, report.Results, 2)

	good := report.Results[0]
	require.NoError(t, good.Err)
	assert.Equal(t, domain.Repository{Owner: "acme", Name: "good", Private: true}, good.Repo)
	assert.Equal(t, 1, good.Pages)

	gone := report.Results[1]
	var repoErr *domain.RepoError
	require.True(t, errors.As(gone.Err, &repoErr))
	assert.Equal(t, "gone", repoErr.Repo)
	assert.Contains(t, repoErr.Error(), "404")
	assert.Zero(t, gone.Pages)
}
