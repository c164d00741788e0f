package chi

import (
	"context"

	domreview "github.com/kailas-cloud/venuedex/internal/domain/review"
	domstore "github.com/kailas-cloud/venuedex/internal/domain/store"
	healthuc "github.com/kailas-cloud/venuedex/internal/usecase/health"
	storeuc "github.com/kailas-cloud/venuedex/internal/usecase/store"
)

// StoreService covers store writes and store-centric reads.
//
//nolint:interfacebloat // mirrors the store use case surface one-to-one
type StoreService interface {
	Create(ctx context.Context, in domstore.Input, authorID string) (domstore.Store, error)
	Update(ctx context.Context, id string, in domstore.Input, callerID string) (domstore.Store, error)
	Get(ctx context.Context, id string) (domstore.Populated, error)
	FindBySlug(ctx context.Context, slug string) (domstore.Populated, error)
	List(ctx context.Context, page, pageSize int) (storeuc.Page, error)
	ListByTag(ctx context.Context, tag string) (storeuc.TagPage, error)
	AddReview(ctx context.Context, storeID, authorID, text string, rating int) (domreview.Populated, error)
	ToggleHeart(ctx context.Context, userID, storeID string) (bool, error)
	Hearted(ctx context.Context, userID string, page, pageSize int) (storeuc.Page, error)
}

// QueryService covers proximity, relevance and rating queries.
type QueryService interface {
	Near(ctx context.Context, lng, lat float64) ([]domstore.Summary, error)
	Search(ctx context.Context, text string) ([]domstore.Populated, error)
	TopRated(ctx context.Context) ([]domstore.Rated, error)
}

// HealthService reports component health.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}
