package typesense

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/typesense/typesense-go/v4/typesense"
	"github.com/typesense/typesense-go/v4/typesense/api"
	"github.com/typesense/typesense-go/v4/typesense/api/pointer"

	"github.com/custodia-labs/issuesync/internal/core/domain"
	"github.com/custodia-labs/issuesync/internal/core/ports/driven"
)

const (
	// DefaultCollection is the base collection name.
	DefaultCollection = "issues"

	// DefaultTimeout is the connection timeout of the Typesense client.
	DefaultTimeout = 30 * time.Second

	// maxPerPage is the largest page Typesense serves from a search.
	maxPerPage = 250

	// importBatchSize is the server-side batch size of an import.
	importBatchSize = 100
)

// Config configures the index.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// Ensure Index implements the interface.
var _ driven.DocumentIndex = (*Index)(nil)

// Index is a driven.DocumentIndex backed by Typesense. It is safe for
// concurrent use and meant to be shared by every repository task.
type Index struct {
	client     *typesense.Client
	collection string

	mu      sync.Mutex
	ensured map[string]bool
}

// New creates a Typesense index.
func New(cfg Config) (*Index, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: typesense url is empty", domain.ErrInvalidConfig)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: typesense api key is empty", domain.ErrInvalidConfig)
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	client := typesense.NewClient(
		typesense.WithServer(cfg.URL),
		typesense.WithAPIKey(cfg.APIKey),
		typesense.WithConnectionTimeout(cfg.Timeout),
	)

	return &Index{
		client:     client,
		collection: cfg.Collection,
		ensured:    make(map[string]bool),
	}, nil
}

// EnsureCollection creates the namespace's collection if it does not
// exist yet.
func (x *Index) EnsureCollection(ctx context.Context, ns domain.Namespace) (string, error) {
	name := CollectionName(x.collection, ns)

	x.mu.Lock()
	defer x.mu.Unlock()
	if x.ensured[name] {
		return name, nil
	}

	_, err := x.client.Collection(name).Retrieve(ctx)
	switch {
	case err == nil:
	case httpStatus(err) == http.StatusNotFound:
		if _, err := x.client.Collections().Create(ctx, Schema(name)); err != nil && httpStatus(err) != http.StatusConflict {
			return "", unavailable("create collection "+name, err)
		}
		slog.InfoContext(ctx, "typesense collection created", "collection", name)
	default:
		return "", unavailable("retrieve collection "+name, err)
	}

	x.ensured[name] = true
	return name, nil
}

// Upsert imports docs with the upsert action in one request.
func (x *Index) Upsert(ctx context.Context, ns domain.Namespace, docs []domain.Document) ([]domain.ItemResult, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	name, err := x.EnsureCollection(ctx, ns)
	if err != nil {
		return nil, err
	}

	records := make([]interface{}, 0, len(docs))
	for _, doc := range docs {
		records = append(records, Record(doc))
	}

	resp, err := x.client.Collection(name).Documents().Import(ctx, records, &api.ImportDocumentsParams{
		Action:    pointer.Any(api.Upsert),
		BatchSize: pointer.Int(importBatchSize),
	})
	if err != nil {
		return nil, unavailable("import into "+name, err)
	}
	if len(resp) != len(docs) {
		return nil, fmt.Errorf("%w: import returned %d results for %d documents",
			domain.ErrMalformedResponse, len(resp), len(docs))
	}

	results := make([]domain.ItemResult, len(docs))
	for i, r := range resp {
		results[i] = domain.ItemResult{ID: docs[i].ID}
		if r == nil {
			results[i].Error = "missing import result"
			continue
		}
		results[i].OK = r.Success
		results[i].Error = r.Error
	}
	return results, nil
}

// FindStale searches for documents matching q, oldest update first.
func (x *Index) FindStale(ctx context.Context, ns domain.Namespace, q domain.StaleQuery) ([]domain.DocumentRef, error) {
	name, err := x.EnsureCollection(ctx, ns)
	if err != nil {
		return nil, err
	}

	limit := q.Limit
	if limit <= 0 {
		limit = maxPerPage
	}

	var refs []domain.DocumentRef
	for page := 1; len(refs) < limit; page++ {
		perPage := min(limit-len(refs), maxPerPage)
		res, err := x.client.Collection(name).Documents().Search(ctx, &api.SearchCollectionParams{
			Q:             pointer.String("*"),
			FilterBy:      pointer.String(staleFilter(q)),
			SortBy:        pointer.String("updated_at:asc"),
			IncludeFields: pointer.String(refFields),
			Page:          pointer.Int(page),
			PerPage:       pointer.Int(perPage),
		})
		if err != nil {
			return nil, unavailable("search "+name, err)
		}
		if res.Hits == nil || len(*res.Hits) == 0 {
			break
		}

		for _, hit := range *res.Hits {
			if hit.Document == nil {
				continue
			}
			ref, err := parseRef(*hit.Document)
			if err != nil {
				return nil, err
			}
			refs = append(refs, ref)
		}

		if len(*res.Hits) < perPage {
			break
		}
	}
	return refs, nil
}

// MarkTransferred applies the transferred patch to one document. The
// update action leaves every other field untouched and fails for unknown
// ids.
func (x *Index) MarkTransferred(ctx context.Context, ns domain.Namespace, id string) error {
	name, err := x.EnsureCollection(ctx, ns)
	if err != nil {
		return err
	}

	resp, err := x.client.Collection(name).Documents().Import(ctx, []interface{}{transferredPatch(id)}, &api.ImportDocumentsParams{
		Action: pointer.Any(api.Update),
	})
	if err != nil {
		return unavailable("update "+name+"/"+id, err)
	}
	if len(resp) != 1 || resp[0] == nil {
		return fmt.Errorf("%w: update returned %d results", domain.ErrMalformedResponse, len(resp))
	}
	if !resp[0].Success {
		if strings.Contains(strings.ToLower(resp[0].Error), "not found") ||
			strings.Contains(strings.ToLower(resp[0].Error), "could not find") {
			return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		return fmt.Errorf("update document %s: %s", id, resp[0].Error)
	}
	return nil
}

// httpStatus returns the status of a Typesense HTTP error, 0 otherwise.
func httpStatus(err error) int {
	var httpErr *typesense.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status
	}
	return 0
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrIndexUnavailable, err)
}
