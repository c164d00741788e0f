package populate

import (
	"context"

	domreview "github.com/kailas-cloud/venuedex/internal/domain/review"
	domuser "github.com/kailas-cloud/venuedex/internal/domain/user"
)

// ReviewLister loads the reviews of many stores in one query.
type ReviewLister interface {
	ListByStores(ctx context.Context, storeIDs []string) ([]domreview.Review, error)
}

// UserDirectory resolves many users in one lookup. Absent users are omitted.
type UserDirectory interface {
	GetMany(ctx context.Context, ids []string) (map[string]domuser.Author, error)
}
