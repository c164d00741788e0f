package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/venuedex/internal/db"
	"github.com/kailas-cloud/venuedex/internal/domain"
	"github.com/kailas-cloud/venuedex/internal/domain/ranking"
	domreview "github.com/kailas-cloud/venuedex/internal/domain/review"
)

// store is the consumer interface for reviews (ISP).
type store interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error)
	Aggregate(ctx context.Context, q *db.AggregateQuery) ([]db.AggregateRow, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
}

const defaultScanBatch = 500

// Repo implements the review repository.
type Repo struct {
	store     store
	scanBatch int
}

// New creates a review repository.
func New(s store) *Repo {
	return &Repo{store: s, scanBatch: defaultScanBatch}
}

// WithScanBatch sets the page size of ListByStores and Stats.
func (r *Repo) WithScanBatch(n int) *Repo {
	if n > 0 {
		r.scanBatch = n
	}
	return r
}

// EnsureIndex creates the review index unless it already exists.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	def, err := buildIndex()
	if err != nil {
		return fmt.Errorf("build review index: %w", err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return domain.Storage("create review index", err)
	}
	return nil
}

// Create stores a review.
func (r *Repo) Create(ctx context.Context, rv domreview.Review) error {
	data, err := json.Marshal(toDoc(rv))
	if err != nil {
		return fmt.Errorf("marshal review: %w", err)
	}
	if err := r.store.JSONSet(ctx, reviewKey(rv.ID()), "$", data); err != nil {
		return domain.Storage("json.set review "+rv.ID(), err)
	}
	return nil
}

// ListByStores returns the reviews of every given store in one query, newest first.
func (r *Repo) ListByStores(ctx context.Context, storeIDs []string) ([]domreview.Review, error) {
	if len(storeIDs) == 0 {
		return nil, nil
	}

	query := db.TagFilter(fieldStore, storeIDs...)
	var reviews []domreview.Review
	for offset := 0; ; offset += r.scanBatch {
		res, err := r.store.Search(ctx, &db.SearchQuery{
			IndexName:    indexName(),
			Query:        query,
			ReturnFields: []string{"$"},
			SortBy:       &db.SortKey{Field: fieldCreated, Order: db.Desc},
			Offset:       offset,
			Limit:        r.scanBatch,
		})
		if err != nil {
			return nil, domain.Storage("search reviews", err)
		}
		if res == nil {
			break
		}
		for _, e := range res.Entries {
			rv, err := decodeReview(e.Fields["$"])
			if err != nil {
				continue
			}
			reviews = append(reviews, rv)
		}
		if len(res.Entries) < r.scanBatch || offset+len(res.Entries) >= res.Total {
			break
		}
	}
	return reviews, nil
}

// Stats groups reviews by store and returns the stores with more than
// minReviews reviews, highest mean first, then most reviewed, then store ID.
// Filtering and ordering run inside FT.AGGREGATE; rows are paged with scanBatch
// so no group is dropped.
func (r *Repo) Stats(ctx context.Context, minReviews int) ([]ranking.ReviewStat, error) {
	var stats []ranking.ReviewStat
	for offset := 0; ; offset += r.scanBatch {
		rows, err := r.store.Aggregate(ctx, &db.AggregateQuery{
			IndexName: indexName(),
			GroupBy:   []string{"@" + fieldStore},
			Reducers: []db.Reducer{
				{Func: "COUNT", As: "count"},
				{Func: "SUM", Args: []string{"@" + fieldRating}, As: "sum"},
			},
			Applies: []db.Apply{{Expr: "@sum/@count", As: "avg"}},
			Filter:  "@count>" + strconv.Itoa(minReviews),
			SortBy: []db.SortKey{
				{Field: "@avg", Order: db.Desc},
				{Field: "@count", Order: db.Desc},
				{Field: "@" + fieldStore, Order: db.Asc},
			},
			Offset: offset,
			Limit:  r.scanBatch,
		})
		if err != nil {
			return nil, domain.Storage("aggregate review stats", err)
		}

		for _, row := range rows {
			st, ok, err := parseStat(row)
			if err != nil {
				return nil, err
			}
			if ok {
				stats = append(stats, st)
			}
		}
		if len(rows) < r.scanBatch {
			return stats, nil
		}
	}
}

func parseStat(row db.AggregateRow) (ranking.ReviewStat, bool, error) {
	id := row[fieldStore]
	if id == "" {
		return ranking.ReviewStat{}, false, nil
	}
	count, err := strconv.Atoi(row["count"])
	if err != nil {
		return ranking.ReviewStat{}, false, fmt.Errorf("parse review count for %s: %w", id, err)
	}
	sum, err := strconv.ParseFloat(row["sum"], 64)
	if err != nil {
		return ranking.ReviewStat{}, false, fmt.Errorf("parse rating sum for %s: %w", id, err)
	}
	return ranking.ReviewStat{StoreID: id, Count: count, Sum: sum}, true, nil
}
