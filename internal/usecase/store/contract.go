package store

import (
	"context"

	"github.com/kailas-cloud/venuedex/internal/domain/ranking"
	domreview "github.com/kailas-cloud/venuedex/internal/domain/review"
	domstore "github.com/kailas-cloud/venuedex/internal/domain/store"
)

// Repository defines the storage contract for stores.
type Repository interface {
	Create(ctx context.Context, s domstore.Store) error
	Update(ctx context.Context, s domstore.Store, prevSlug string) error
	Get(ctx context.Context, id string) (domstore.Store, error)
	GetBySlug(ctx context.Context, slug string) (domstore.Store, error)
	List(ctx context.Context, offset, limit int) ([]domstore.Store, error)
	Count(ctx context.Context) (int, error)
	ListByTag(ctx context.Context, tag string) ([]domstore.Store, error)
	ListByIDs(ctx context.Context, ids []string) ([]domstore.Store, error)
	// Slugs returns the slugs of stores whose name slugifies to base, keyed by store ID.
	Slugs(ctx context.Context, base string) (map[string]string, error)
}

// ReviewWriter persists reviews.
type ReviewWriter interface {
	Create(ctx context.Context, r domreview.Review) error
}

// HeartStore keeps the per-user set of hearted stores.
type HeartStore interface {
	ToggleHeart(ctx context.Context, userID, storeID string) (hearted bool, err error)
	Hearts(ctx context.Context, userID string) ([]string, error)
}

// TagCounter lists tags with their store counts.
type TagCounter interface {
	Tags(ctx context.Context) ([]ranking.TagCount, error)
}

// Populator resolves author and review references.
type Populator interface {
	Stores(ctx context.Context, stores []domstore.Store) ([]domstore.Populated, error)
	Store(ctx context.Context, s domstore.Store) (domstore.Populated, error)
	Reviews(ctx context.Context, reviews []domreview.Review) ([]domreview.Populated, error)
}
