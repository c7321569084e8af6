package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/issuesync/internal/core/domain"
)

func TestEnricher_Enrich(t *testing.T) {
	moved := time.Date(2023, 5, 3, 8, 0, 0, 0, time.UTC)

	t.Run("attaches the transfer of open issues", func(t *testing.T) {
		src := newFakeSource()
		src.timelines[1] = []domain.TimelineEvent{
			{Event: "labeled", CreatedAt: moved.Add(-time.Hour)},
			{Event: domain.EventTransferred, CreatedAt: moved, PreviousRepository: "oldOwner/oldRepo"},
		}
		issues := []domain.RawIssue{rawIssue(10, 1, "open"), rawIssue(20, 2, "open")}

		aux := NewEnricher(src, 2).Enrich(context.Background(), testRepo, issues)

		require.Len(t, aux, 2)
		require.NotNil(t, aux[0].Relocation)
		assert.Equal(t, "oldOwner/oldRepo", aux[0].Relocation.From)
		assert.Equal(t, "acme/widgets", aux[0].Relocation.To)
		assert.Equal(t, moved, aux[0].Relocation.At)
		assert.Nil(t, aux[1].Relocation)
	})

	t.Run("closed issues are not looked up", func(t *testing.T) {
		src := newFakeSource()
		issues := []domain.RawIssue{rawIssue(10, 1, "closed"), rawIssue(20, 2, "open")}

		aux := NewEnricher(src, 2).Enrich(context.Background(), testRepo, issues)

		assert.Equal(t, []int{2}, src.timelineCalls)
		assert.Equal(t, domain.Enrichment{}, aux[0])
	})

	t.Run("lookup failure yields no auxiliary data", func(t *testing.T) {
		src := newFakeSource()
		src.timelineErr[1] = errBoom
		src.timelines[2] = []domain.TimelineEvent{
			{Event: domain.EventTransferred, CreatedAt: moved, PreviousRepository: "a/b"},
		}
		issues := []domain.RawIssue{rawIssue(10, 1, "open"), rawIssue(20, 2, "open")}

		aux := NewEnricher(src, 1).Enrich(context.Background(), testRepo, issues)

		assert.Nil(t, aux[0].Relocation)
		require.NotNil(t, aux[1].Relocation)
		assert.Equal(t, "a/b", aux[1].Relocation.From)
	})

	t.Run("bounded concurrency", func(t *testing.T) {
		src := newFakeSource()
		src.timelineDelay = 5 * time.Millisecond
		var issues []domain.RawIssue
		for i := 1; i <= 12; i++ {
			issues = append(issues, rawIssue(int64(i), i, "open"))
		}

		aux := NewEnricher(src, 3).Enrich(context.Background(), testRepo, issues)

		assert.Len(t, aux, 12)
		assert.Len(t, src.timelineCalls, 12)
		assert.LessOrEqual(t, src.maxInflight.Load(), int32(3))
	})

	t.Run("empty page", func(t *testing.T) {
		aux := NewEnricher(newFakeSource(), 0).Enrich(context.Background(), testRepo, nil)
		assert.Empty(t, aux)
	})
}

func TestLatestRelocation(t *testing.T) {
	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		events []domain.TimelineEvent
		want   *domain.RelocationEvent
	}{
		{
			name: "no events",
			want: nil,
		},
		{
			name:   "no transfer",
			events: []domain.TimelineEvent{{Event: "closed", CreatedAt: base}},
			want:   nil,
		},
		{
			name: "latest transfer wins",
			events: []domain.TimelineEvent{
				{Event: domain.EventTransferred, CreatedAt: base.Add(48 * time.Hour), PreviousRepository: "b/second"},
				{Event: domain.EventTransferred, CreatedAt: base, PreviousRepository: "a/first"},
			},
			want: &domain.RelocationEvent{From: "b/second", To: "acme/widgets", At: base.Add(48 * time.Hour)},
		},
		{
			name: "missing previous repository",
			events: []domain.TimelineEvent{
				{Event: domain.EventTransferred, CreatedAt: base},
			},
			want: &domain.RelocationEvent{To: "acme/widgets", At: base},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, latestRelocation(tt.events, testRepo))
		})
	}
}
