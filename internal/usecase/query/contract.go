package query

import (
	"context"

	"github.com/kailas-cloud/venuedex/internal/domain/geo"
	"github.com/kailas-cloud/venuedex/internal/domain/ranking"
	domstore "github.com/kailas-cloud/venuedex/internal/domain/store"
)

// StoreReader is the read side of the store repository used by queries.
type StoreReader interface {
	Near(ctx context.Context, origin geo.Point, radius float64, limit int) ([]domstore.Store, error)
	Search(ctx context.Context, text string, limit int) ([]domstore.Store, error)
	GetMany(ctx context.Context, ids []string) (map[string]domstore.Store, error)
	AllTags(ctx context.Context) ([][]string, error)
}

// StatsReader returns review counts and rating sums of stores with more
// than minReviews reviews.
type StatsReader interface {
	Stats(ctx context.Context, minReviews int) ([]ranking.ReviewStat, error)
}

// Populator resolves store authors and reviews.
type Populator interface {
	Stores(ctx context.Context, stores []domstore.Store) ([]domstore.Populated, error)
}
