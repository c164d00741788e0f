package review

import (
	"fmt"

	"github.com/kailas-cloud/venuedex/internal/db"
	"github.com/kailas-cloud/venuedex/internal/domain"
)

const (
	fieldStore   = "store"
	fieldAuthor  = "author"
	fieldRating  = "rating"
	fieldCreated = "created"
)

func buildIndex() (*db.IndexDefinition, error) {
	return db.NewIndex(indexName()).
		OnJSON().
		Prefix(keyPrefix()).
		Tag("$.store").As(fieldStore).
		Tag("$.author").As(fieldAuthor).
		Numeric("$.rating").As(fieldRating).
		Numeric("$.created").As(fieldCreated).Sortable().
		Build()
}

// Redis key patterns: venuedex:review:{id}, venuedex:review:idx

func keyPrefix() string {
	return fmt.Sprintf("%sreview:", domain.KeyPrefix)
}

func reviewKey(id string) string {
	return keyPrefix() + id
}

func indexName() string {
	return fmt.Sprintf("%sreview:idx", domain.KeyPrefix)
}
