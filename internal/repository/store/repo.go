package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/venuedex/internal/db"
	"github.com/kailas-cloud/venuedex/internal/domain"
	"github.com/kailas-cloud/venuedex/internal/domain/geo"
	domstore "github.com/kailas-cloud/venuedex/internal/domain/store"
)

// store is the consumer interface for stores (ISP).
//
//nolint:interfacebloat // store repo needs documents, slug claims, search and index management
type store interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	JSONMGet(ctx context.Context, keys []string, path string) ([][]byte, error)
	SetNX(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
	Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
	Aggregate(ctx context.Context, q *db.AggregateQuery) ([]db.AggregateRow, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

const defaultScanBatch = 500

var errEmptyDocument = errors.New("empty document")

// Repo implements the store repository consumed by usecase/store and usecase/query.
type Repo struct {
	store     store
	scanBatch int
}

// New creates a store repository.
func New(s store) *Repo {
	return &Repo{store: s, scanBatch: defaultScanBatch}
}

// WithScanBatch sets the page size used when walking the whole index.
func (r *Repo) WithScanBatch(n int) *Repo {
	if n > 0 {
		r.scanBatch = n
	}
	return r
}

// EnsureIndex creates the store index unless it already exists.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	def, err := buildIndex()
	if err != nil {
		return fmt.Errorf("build store index: %w", err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return domain.Storage("create store index", err)
	}
	return nil
}

// HealthCheck reports whether the store index is queryable.
func (r *Repo) HealthCheck(ctx context.Context) error {
	ok, err := r.store.IndexExists(ctx, indexName())
	if err != nil {
		return domain.Storage("probe store index", err)
	}
	if !ok {
		return fmt.Errorf("index %s: %w", indexName(), domain.ErrNotFound)
	}
	return nil
}

// Create claims the slug then writes the document.
// On write failure, releases the claim via DEL.
func (r *Repo) Create(ctx context.Context, s domstore.Store) error {
	data, err := json.Marshal(toDoc(s))
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}

	if err := r.claimSlug(ctx, s.Slug(), s.ID()); err != nil {
		return err
	}

	// Release the slug claim if the document write fails.
	if err := r.store.JSONSet(ctx, storeKey(s.ID()), "$", data); err != nil {
		cleanupErr := r.store.Del(ctx, slugKey(s.Slug()))
		return errors.Join(domain.Storage("json.set store "+s.ID(), err), cleanupErr)
	}
	return nil
}

// Update rewrites the document. When the slug differs from prevSlug the new
// slug is claimed first and the old claim is released after the write.
func (r *Repo) Update(ctx context.Context, s domstore.Store, prevSlug string) error {
	data, err := json.Marshal(toDoc(s))
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}

	reslugged := s.Slug() != prevSlug
	if reslugged {
		if err := r.claimSlug(ctx, s.Slug(), s.ID()); err != nil {
			return err
		}
	}

	if err := r.store.JSONSet(ctx, storeKey(s.ID()), "$", data); err != nil {
		var cleanupErr error
		if reslugged {
			cleanupErr = r.store.Del(ctx, slugKey(s.Slug()))
		}
		return errors.Join(domain.Storage("json.set store "+s.ID(), err), cleanupErr)
	}

	if reslugged && prevSlug != "" {
		if err := r.store.Del(ctx, slugKey(prevSlug)); err != nil {
			return domain.Storage("release slug "+prevSlug, err)
		}
	}
	return nil
}

// Get returns a store by ID.
func (r *Repo) Get(ctx context.Context, id string) (domstore.Store, error) {
	raw, err := r.store.JSONGet(ctx, storeKey(id), "$")
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domstore.Store{}, domain.ErrNotFound
		}
		return domstore.Store{}, domain.Storage("json.get store "+id, err)
	}
	s, err := decodeStore(raw)
	if errors.Is(err, errEmptyDocument) {
		return domstore.Store{}, domain.ErrNotFound
	}
	return s, err
}

// GetBySlug returns the store holding slug.
func (r *Repo) GetBySlug(ctx context.Context, slug string) (domstore.Store, error) {
	res, err := r.store.Search(ctx, &db.SearchQuery{
		IndexName:    indexName(),
		Query:        db.TagFilter(fieldSlug, slug),
		ReturnFields: []string{"$"},
		Limit:        1,
	})
	if err != nil {
		return domstore.Store{}, domain.Storage("search slug "+slug, err)
	}
	stores := decodeEntries(res)
	if len(stores) == 0 {
		return domstore.Store{}, domain.ErrNotFound
	}
	return stores[0], nil
}

// GetMany fetches stores in one JSON.MGET. Missing IDs are absent from the map.
func (r *Repo) GetMany(ctx context.Context, ids []string) (map[string]domstore.Store, error) {
	out := make(map[string]domstore.Store, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = storeKey(id)
	}
	raws, err := r.store.JSONMGet(ctx, keys, "$")
	if err != nil {
		return nil, domain.Storage("json.mget stores", err)
	}

	for _, raw := range raws {
		if raw == nil {
			continue
		}
		s, err := decodeStore(raw)
		if err != nil {
			continue
		}
		out[s.ID()] = s
	}
	return out, nil
}

// List returns a page of stores, newest first.
func (r *Repo) List(ctx context.Context, offset, limit int) ([]domstore.Store, error) {
	res, err := r.store.Search(ctx, &db.SearchQuery{
		IndexName:    indexName(),
		Query:        "*",
		ReturnFields: []string{"$"},
		SortBy:       &db.SortKey{Field: fieldCreated, Order: db.Desc},
		Offset:       offset,
		Limit:        limit,
	})
	if err != nil {
		return nil, domain.Storage("search stores", err)
	}
	return decodeEntries(res), nil
}

// Count returns the number of stores.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, indexName(), "*")
	if err != nil {
		return 0, domain.Storage("count stores", err)
	}
	return n, nil
}

// ListByTag returns every store carrying tag, oldest first.
// An empty tag selects every store that has at least one tag.
func (r *Repo) ListByTag(ctx context.Context, tag string) ([]domstore.Store, error) {
	query := "*"
	if tag != "" {
		query = db.TagFilter(fieldTags, tag)
	}

	var stores []domstore.Store
	err := r.scan(ctx, query, []string{"$"}, func(e db.SearchEntry) {
		s, err := decodeStore([]byte(e.Fields["$"]))
		if err != nil {
			return
		}
		if tag == "" && len(s.Tags()) == 0 {
			return
		}
		stores = append(stores, s)
	})
	if err != nil {
		return nil, domain.Storage("search stores by tag", err)
	}
	return stores, nil
}

// ListByIDs returns the stores for ids in the given order, skipping missing ones.
func (r *Repo) ListByIDs(ctx context.Context, ids []string) ([]domstore.Store, error) {
	found, err := r.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	stores := make([]domstore.Store, 0, len(found))
	for _, id := range ids {
		if s, ok := found[id]; ok {
			stores = append(stores, s)
		}
	}
	return stores, nil
}

// Search runs a TF-IDF scored text query over name and description.
// A store matches when it contains any of the terms; results come back
// highest score first.
func (r *Repo) Search(ctx context.Context, text string, limit int) ([]domstore.Store, error) {
	terms := db.TextTerms(text)
	if len(terms) == 0 {
		return nil, domain.Validationf("search query %q has no searchable terms", text)
	}
	res, err := r.store.Search(ctx, &db.SearchQuery{
		IndexName:    indexName(),
		Query:        db.TextFilter([]string{fieldName, fieldDescription}, terms),
		ReturnFields: []string{"$"},
		Limit:        limit,
		WithScores:   true,
		Scorer:       "TFIDF",
	})
	if err != nil {
		return nil, domain.Storage("text search stores", err)
	}
	return decodeEntries(res), nil
}

// Near returns up to limit stores within radius metres of origin, nearest first.
func (r *Repo) Near(ctx context.Context, origin geo.Point, radius float64, limit int) ([]domstore.Store, error) {
	lng, lat := origin.Lng(), origin.Lat()
	rows, err := r.store.Aggregate(ctx, &db.AggregateQuery{
		IndexName: indexName(),
		Query:     db.GeoFilter(fieldLocation, lng, lat, geo.RadiusKm(radius)),
		Load:      []string{"@__key", "@" + fieldLocation, "$"},
		Applies: []db.Apply{{
			Expr: fmt.Sprintf("geodistance(@%s,%g,%g)", fieldLocation, lng, lat),
			As:   "distance",
		}},
		SortBy: []db.SortKey{{Field: "@distance", Order: db.Asc}},
		Limit:  limit,
	})
	if err != nil {
		return nil, domain.Storage("geo search stores", err)
	}

	stores := make([]domstore.Store, 0, len(rows))
	for _, row := range rows {
		s, err := decodeStore([]byte(row["$"]))
		if err != nil {
			continue
		}
		stores = append(stores, s)
	}
	return stores, nil
}

// Slugs returns the slugs of stores whose name derives base, keyed by store ID.
// It matches the slug_base tag exactly, so the result is not capped by
// prefix expansion limits.
func (r *Repo) Slugs(ctx context.Context, base string) (map[string]string, error) {
	query := db.TagFilter(fieldSlugBase, base)

	out := make(map[string]string)
	err := r.scan(ctx, query, []string{fieldSlug}, func(e db.SearchEntry) {
		if v := e.Fields[fieldSlug]; v != "" {
			out[strings.TrimPrefix(e.Key, keyPrefix())] = v
		}
	})
	if err != nil {
		return nil, domain.Storage("search slugs "+base, err)
	}
	return out, nil
}

// AllTags returns the tag set of every store.
func (r *Repo) AllTags(ctx context.Context) ([][]string, error) {
	var sets [][]string
	err := r.scan(ctx, "*", []string{"$.tags"}, func(e db.SearchEntry) {
		raw := e.Fields["$.tags"]
		if raw == "" {
			return
		}
		var tags []string
		if err := json.Unmarshal([]byte(raw), &tags); err != nil {
			return
		}
		sets = append(sets, tags)
	})
	if err != nil {
		return nil, domain.Storage("search tags", err)
	}
	return sets, nil
}

// scan walks every match of query in created order, one batch at a time.
func (r *Repo) scan(ctx context.Context, query string, fields []string, fn func(db.SearchEntry)) error {
	for offset := 0; ; offset += r.scanBatch {
		res, err := r.store.Search(ctx, &db.SearchQuery{
			IndexName:    indexName(),
			Query:        query,
			ReturnFields: fields,
			SortBy:       &db.SortKey{Field: fieldCreated, Order: db.Asc},
			Offset:       offset,
			Limit:        r.scanBatch,
		})
		if err != nil {
			return err
		}
		if res == nil {
			return nil
		}
		for _, e := range res.Entries {
			fn(e)
		}
		if len(res.Entries) < r.scanBatch || offset+len(res.Entries) >= res.Total {
			return nil
		}
	}
}

// claimSlug takes the slug with SET NX. A held slug is a conflict.
func (r *Repo) claimSlug(ctx context.Context, slug, id string) error {
	if err := r.store.SetNX(ctx, slugKey(slug), []byte(id)); err != nil {
		if errors.Is(err, db.ErrKeyExists) {
			return fmt.Errorf("slug %q: %w", slug, domain.ErrConflict)
		}
		return domain.Storage("claim slug "+slug, err)
	}
	return nil
}

func decodeEntries(res *db.SearchResult) []domstore.Store {
	if res == nil {
		return nil
	}
	stores := make([]domstore.Store, 0, len(res.Entries))
	for _, e := range res.Entries {
		raw := e.Fields["$"]
		if raw == "" {
			continue
		}
		s, err := decodeStore([]byte(raw))
		if err != nil {
			continue
		}
		stores = append(stores, s)
	}
	return stores
}
