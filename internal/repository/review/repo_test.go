package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/kailas-cloud/venuedex/internal/db"
	"github.com/kailas-cloud/venuedex/internal/domain"
	domreview "github.com/kailas-cloud/venuedex/internal/domain/review"
)

func TestEnsureIndex_Definition(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.createIndexFn = func(_ context.Context, def *db.IndexDefinition) error {
		want := "FT.CREATE venuedex:review:idx ON JSON PREFIX 1 venuedex:review: SCHEMA " +
			"$.store AS store TAG $.author AS author TAG $.rating AS rating NUMERIC " +
			"$.created AS created NUMERIC SORTABLE"
		if got := def.String(); got != want {
			t.Errorf("index definition:\n got %s\nwant %s", got, want)
		}
		return db.ErrIndexExists
	}

	if err := repo.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreate(t *testing.T) {
	repo, ms := newTestRepo(t)
	rv := domreview.Reconstruct("r1", "s1", "u1", "great bagels", 5, 1700000000000)

	ms.jsonSetFn = func(_ context.Context, key, _ string, data []byte) error {
		if key != "venuedex:review:r1" {
			t.Errorf("unexpected key: %s", key)
		}
		var d reviewDoc
		if err := json.Unmarshal(data, &d); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if d.Store != "s1" || d.Rating != 5 {
			t.Errorf("unexpected doc: %+v", d)
		}
		return nil
	}

	if err := repo.Create(context.Background(), rv); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreate_StorageError(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.jsonSetFn = func(_ context.Context, _, _ string, _ []byte) error { return errors.New("oom") }

	err := repo.Create(context.Background(), domreview.Reconstruct("r1", "s1", "u1", "x", 3, 1))
	if !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
}

func TestListByStores_SingleQuery(t *testing.T) {
	repo, ms := newTestRepo(t)

	calls := 0
	ms.searchFn = func(_ context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
		calls++
		if q.Query != "@store:{s1 | s2 | s3}" {
			t.Errorf("unexpected query: %s", q.Query)
		}
		if q.SortBy == nil || q.SortBy.Order != db.Desc {
			t.Errorf("expected newest first, got %+v", q.SortBy)
		}
		return &db.SearchResult{Total: 2, Entries: []db.SearchEntry{
			{Key: "venuedex:review:r2", Fields: map[string]string{
				"$": `{"id":"r2","store":"s2","author":"u2","text":"ok","rating":3,"created":2}`,
			}},
			{Key: "venuedex:review:r1", Fields: map[string]string{
				"$": `{"id":"r1","store":"s1","author":"u1","text":"good","rating":4,"created":1}`,
			}},
		}}, nil
	}

	reviews, err := repo.ListByStores(context.Background(), []string{"s1", "s2", "s3"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected one query, got %d", calls)
	}
	if len(reviews) != 2 || reviews[0].ID() != "r2" {
		t.Fatalf("unexpected reviews: %+v", reviews)
	}
}

func TestListByStores_Empty(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchFn = func(_ context.Context, _ *db.SearchQuery) (*db.SearchResult, error) {
		t.Error("no query expected for an empty page")
		return nil, nil
	}

	reviews, err := repo.ListByStores(context.Background(), nil)
	if err != nil || reviews != nil {
		t.Fatalf("expected nil, nil; got %v, %v", reviews, err)
	}
}

func TestStats(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.aggregateFn = func(_ context.Context, q *db.AggregateQuery) ([]db.AggregateRow, error) {
		if len(q.GroupBy) != 1 || q.GroupBy[0] != "@store" {
			t.Errorf("unexpected group by: %v", q.GroupBy)
		}
		if len(q.Reducers) != 2 || q.Reducers[1].Args[0] != "@rating" {
			t.Errorf("unexpected reducers: %+v", q.Reducers)
		}
		if q.Filter != "@count>1" {
			t.Errorf("unexpected filter: %q", q.Filter)
		}
		if len(q.Applies) != 1 || q.Applies[0].Expr != "@sum/@count" || q.Applies[0].As != "avg" {
			t.Errorf("unexpected apply: %+v", q.Applies)
		}
		wantSort := []db.SortKey{
			{Field: "@avg", Order: db.Desc},
			{Field: "@count", Order: db.Desc},
			{Field: "@store", Order: db.Asc},
		}
		if len(q.SortBy) != len(wantSort) {
			t.Fatalf("unexpected sort: %+v", q.SortBy)
		}
		for i := range wantSort {
			if q.SortBy[i] != wantSort[i] {
				t.Errorf("sort key %d = %+v, want %+v", i, q.SortBy[i], wantSort[i])
			}
		}
		return []db.AggregateRow{
			{"store": "a", "count": "2", "sum": "9", "avg": "4.5"},
			{"store": "c", "count": "3", "sum": "12", "avg": "4"},
		}, nil
	}

	stats, err := repo.Stats(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stats) != 2 || stats[0].StoreID != "a" || stats[0].Count != 2 || stats[0].Sum != 9 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestStats_PagesEveryGroup(t *testing.T) {
	repo, ms := newTestRepo(t)
	repo.WithScanBatch(2)

	const groups = 5
	var offsets []int
	ms.aggregateFn = func(_ context.Context, q *db.AggregateQuery) ([]db.AggregateRow, error) {
		offsets = append(offsets, q.Offset)
		if q.Limit != 2 {
			t.Errorf("expected page size 2, got %d", q.Limit)
		}
		var rows []db.AggregateRow
		for i := q.Offset; i < groups && i < q.Offset+q.Limit; i++ {
			rows = append(rows, db.AggregateRow{"store": fmt.Sprintf("s%d", i), "count": "2", "sum": "8"})
		}
		return rows, nil
	}

	stats, err := repo.Stats(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stats) != groups {
		t.Fatalf("expected %d stats, got %d", groups, len(stats))
	}
	if len(offsets) != 3 || offsets[0] != 0 || offsets[1] != 2 || offsets[2] != 4 {
		t.Errorf("unexpected offsets: %v", offsets)
	}
}

func TestStats_BadRow(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.aggregateFn = func(_ context.Context, _ *db.AggregateQuery) ([]db.AggregateRow, error) {
		return []db.AggregateRow{{"store": "a", "count": "many", "sum": "9"}}, nil
	}

	if _, err := repo.Stats(context.Background(), 1); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestStats_StorageError(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.aggregateFn = func(_ context.Context, _ *db.AggregateQuery) ([]db.AggregateRow, error) {
		return nil, errors.New("timeout")
	}

	if _, err := repo.Stats(context.Background(), 1); !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
}
