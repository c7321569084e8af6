package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/issuesync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/issuesync/internal/core/domain"
	"github.com/custodia-labs/issuesync/internal/core/ports/driven"
)

// --- Fakes shared by the pipeline tests ---

var errBoom = errors.New("boom")

// fakeSource implements driven.IssueSource from scripted pages.
type fakeSource struct {
	mu sync.Mutex

	// pages is keyed by "owner/repo|cursor".
	pages    map[string]domain.Page
	listErr  map[string]error
	requests []driven.ListRequest

	timelines     map[int][]domain.TimelineEvent
	timelineErr   map[int]error
	timelineCalls []int
	timelineDelay time.Duration
	inflight      atomic.Int32
	maxInflight   atomic.Int32

	probes     map[int]domain.ProbeResult
	probeErr   map[int]error
	probeCalls []int
}

var _ driven.IssueSource = (*fakeSource)(nil)

func newFakeSource() *fakeSource {
	return &fakeSource{
		pages:       make(map[string]domain.Page),
		listErr:     make(map[string]error),
		timelines:   make(map[int][]domain.TimelineEvent),
		timelineErr: make(map[int]error),
		probes:      make(map[int]domain.ProbeResult),
		probeErr:    make(map[int]error),
	}
}

func pageKey(repo domain.Repository, cursor string) string {
	return repo.FullName() + "|" + cursor
}

// addPage scripts the page served at cursor.
func (f *fakeSource) addPage(repo domain.Repository, cursor, next, etag string, issues ...domain.RawIssue) {
	f.pages[pageKey(repo, cursor)] = domain.Page{
		Issues: issues,
		Meta: domain.PageMeta{
			NextCursor: next,
			ETag:       etag,
			Rate:       domain.RateBudget{Limit: 5000, Remaining: 4000},
		},
	}
}

func (f *fakeSource) ListIssues(_ context.Context, req driven.ListRequest) (*domain.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)

	repo := domain.Repository{Owner: req.Owner, Name: req.Repo}
	key := pageKey(repo, req.Cursor)
	if err := f.listErr[key]; err != nil {
		return nil, err
	}
	page, ok := f.pages[key]
	if !ok {
		return nil, fmt.Errorf("no page scripted for %s", key)
	}
	if req.ETag != "" && req.ETag == page.Meta.ETag {
		return &domain.Page{Meta: domain.PageMeta{NotModified: true, Rate: page.Meta.Rate}}, nil
	}
	return &page, nil
}

func (f *fakeSource) Timeline(_ context.Context, _, _ string, number int) ([]domain.TimelineEvent, error) {
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		peak := f.maxInflight.Load()
		if n <= peak || f.maxInflight.CompareAndSwap(peak, n) {
			break
		}
	}
	if f.timelineDelay > 0 {
		time.Sleep(f.timelineDelay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.timelineCalls = append(f.timelineCalls, number)
	if err := f.timelineErr[number]; err != nil {
		return nil, err
	}
	return f.timelines[number], nil
}

func (f *fakeSource) Probe(_ context.Context, _, _ string, number int) (domain.ProbeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probeCalls = append(f.probeCalls, number)
	if err := f.probeErr[number]; err != nil {
		return domain.ProbeResult{}, err
	}
	if res, ok := f.probes[number]; ok {
		return res, nil
	}
	return domain.ProbeResult{StatusCode: http.StatusOK}, nil
}

func (f *fakeSource) listRequests() []driven.ListRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]driven.ListRequest(nil), f.requests...)
}

// failingStore wraps a memory watermark store with injectable errors.
type failingStore struct {
	*memory.WatermarkStore
	getErr  error
	saveErr error
}

func (s *failingStore) Get(ctx context.Context, key domain.WatermarkKey) (*domain.Watermark, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.WatermarkStore.Get(ctx, key)
}

func (s *failingStore) Save(ctx context.Context, wm domain.Watermark) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.WatermarkStore.Save(ctx, wm)
}

// failingIndex is a document index whose every request fails.
type failingIndex struct {
	calls atomic.Int32
}

func (x *failingIndex) Upsert(context.Context, domain.Namespace, []domain.Document) ([]domain.ItemResult, error) {
	x.calls.Add(1)
	return nil, fmt.Errorf("%w: connection refused", domain.ErrIndexUnavailable)
}

func (x *failingIndex) FindStale(context.Context, domain.Namespace, domain.StaleQuery) ([]domain.DocumentRef, error) {
	x.calls.Add(1)
	return nil, fmt.Errorf("%w: connection refused", domain.ErrIndexUnavailable)
}

func (x *failingIndex) MarkTransferred(context.Context, domain.Namespace, string) error {
	x.calls.Add(1)
	return fmt.Errorf("%w: connection refused", domain.ErrIndexUnavailable)
}

var (
	testRepo = domain.Repository{Owner: "acme", Name: "widgets"}
	testNow  = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func rawIssue(id int64, number int, state string) domain.RawIssue {
	created := time.Date(2022, 1, 1, 10, 0, 0, 0, time.UTC)
	updated := created.Add(time.Duration(number) * time.Hour)
	return domain.RawIssue{
		ID:        id,
		Number:    number,
		Owner:     testRepo.Owner,
		Repo:      testRepo.Name,
		Title:     fmt.Sprintf("issue %d", number),
		State:     state,
		User:      &domain.RawUser{ID: 1, Login: "octocat"},
		CreatedAt: &created,
		UpdatedAt: &updated,
	}
}

func testDocument(id string, number int) domain.Document {
	updated := testNow.Add(-time.Hour)
	return domain.Document{
		ID:        id,
		Number:    number,
		Owner:     testRepo.Owner,
		Repo:      testRepo.Name,
		State:     domain.StateOpen,
		Labels:    []string{},
		UpdatedAt: domain.NewTimeFacets(&updated),
	}
}
