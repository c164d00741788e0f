package store

import (
	"fmt"

	"github.com/kailas-cloud/venuedex/internal/db"
	"github.com/kailas-cloud/venuedex/internal/domain"
)

// Index field aliases used in query strings.
const (
	fieldName        = "name"
	fieldDescription = "description"
	fieldSlug        = "slug"
	fieldSlugBase    = "slug_base"
	fieldTags        = "tags"
	fieldLocation    = "location"
	fieldCreated     = "created"
	fieldAuthor      = "author"
)

// buildIndex describes the store search index. Name outweighs description
// in relevance scoring.
func buildIndex() (*db.IndexDefinition, error) {
	return db.NewIndex(indexName()).
		OnJSON().
		Prefix(keyPrefix()).
		Text("$.name").As(fieldName).Weight(5).
		Text("$.description").As(fieldDescription).
		Tag("$.slug").As(fieldSlug).
		Tag("$.slug_base").As(fieldSlugBase).
		TagWithOpts("$.tags[*]", ",", true).As(fieldTags).
		Geo("$.location.point").As(fieldLocation).
		Numeric("$.created").As(fieldCreated).Sortable().
		Tag("$.author").As(fieldAuthor).
		Build()
}

// Redis key patterns: venuedex:store:{id}, venuedex:store:idx, venuedex:slug:{slug}

func keyPrefix() string {
	return fmt.Sprintf("%sstore:", domain.KeyPrefix)
}

func storeKey(id string) string {
	return keyPrefix() + id
}

func indexName() string {
	return fmt.Sprintf("%sstore:idx", domain.KeyPrefix)
}

func slugKey(slug string) string {
	return fmt.Sprintf("%sslug:%s", domain.KeyPrefix, slug)
}
