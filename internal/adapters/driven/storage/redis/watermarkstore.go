package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/issuesync/internal/core/domain"
	"github.com/custodia-labs/issuesync/internal/core/ports/driven"
)

const (
	// DefaultPrefix prefixes every key written by the store.
	DefaultPrefix = "issuesync:wm:"

	// maxTxRetries bounds optimistic-lock retries of one Save.
	maxTxRetries = 10
)

// Ensure WatermarkStore implements the interface.
var _ driven.WatermarkStore = (*WatermarkStore)(nil)

// WatermarkStore is a Redis implementation of driven.WatermarkStore.
type WatermarkStore struct {
	client redis.UniversalClient
	prefix string
}

// NewWatermarkStore creates a store on client. An empty prefix uses
// DefaultPrefix.
func NewWatermarkStore(client redis.UniversalClient, prefix string) *WatermarkStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &WatermarkStore{client: client, prefix: prefix}
}

// record is the stored form of a watermark.
type record struct {
	LastRun    *time.Time `json:"last_run,omitempty"`
	ETag       string     `json:"etag,omitempty"`
	NextCursor string     `json:"next_cursor,omitempty"`
	Lookahead  string     `json:"lookahead,omitempty"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (s *WatermarkStore) key(owner, repo string) string {
	return s.prefix + owner + "/" + repo
}

// Save stores wm, merging it with the stored value under WATCH so
// concurrent writers never move LastRun backwards.
func (s *WatermarkStore) Save(ctx context.Context, wm domain.Watermark) error {
	if wm.UpdatedAt.IsZero() {
		wm.UpdatedAt = time.Now()
	}
	key := s.key(wm.Key.Owner, wm.Key.Repo)
	field := strconv.Itoa(wm.Key.Page)

	txf := func(tx *redis.Tx) error {
		next := wm
		raw, err := tx.HGet(ctx, key, field).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			prev, err := decode(wm.Key, raw)
			if err != nil {
				return err
			}
			next = prev.Merge(wm)
		}

		data, err := encode(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, field, data)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return fmt.Errorf("saving watermark %s: %w", wm.Key, err)
	}
	return fmt.Errorf("saving watermark %s: %w", wm.Key, redis.TxFailedErr)
}

// Get retrieves the watermark for key.
func (s *WatermarkStore) Get(ctx context.Context, key domain.WatermarkKey) (*domain.Watermark, error) {
	raw, err := s.client.HGet(ctx, s.key(key.Owner, key.Repo), strconv.Itoa(key.Page)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting watermark %s: %w", key, err)
	}

	wm, err := decode(key, raw)
	if err != nil {
		return nil, err
	}
	return &wm, nil
}

// List returns every watermark of a repository ordered by page.
func (s *WatermarkStore) List(ctx context.Context, owner, repo string) ([]domain.Watermark, error) {
	fields, err := s.client.HGetAll(ctx, s.key(owner, repo)).Result()
	if err != nil {
		return nil, fmt.Errorf("listing watermarks of %s/%s: %w", owner, repo, err)
	}

	out := make([]domain.Watermark, 0, len(fields))
	for field, raw := range fields {
		page, err := strconv.Atoi(field)
		if err != nil {
			continue
		}
		wm, err := decode(domain.PageKey(owner, repo, page), []byte(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, wm)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.Page < out[j].Key.Page })
	return out, nil
}

func encode(wm domain.Watermark) ([]byte, error) {
	rec := record{
		ETag:       wm.ETag,
		NextCursor: wm.NextCursor,
		Lookahead:  wm.Lookahead,
		UpdatedAt:  wm.UpdatedAt.UTC(),
	}
	if !wm.LastRun.IsZero() {
		t := wm.LastRun.UTC()
		rec.LastRun = &t
	}
	return json.Marshal(rec)
}

func decode(key domain.WatermarkKey, raw []byte) (domain.Watermark, error) {
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.Watermark{}, fmt.Errorf("decoding watermark %s: %w", key, err)
	}
	wm := domain.Watermark{
		Key:        key,
		ETag:       rec.ETag,
		NextCursor: rec.NextCursor,
		Lookahead:  rec.Lookahead,
		UpdatedAt:  rec.UpdatedAt,
	}
	if rec.LastRun != nil {
		wm.LastRun = *rec.LastRun
	}
	return wm, nil
}
