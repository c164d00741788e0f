// Package review holds the Review entity.
package review

import (
	"strings"
	"time"

	"github.com/kailas-cloud/venuedex/internal/domain"
	"github.com/kailas-cloud/venuedex/internal/domain/user"
)

// Rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

// Review is a single rating of a store by a user.
type Review struct {
	id        string
	storeID   string
	authorID  string
	text      string
	rating    int
	createdAt int64
}

// New validates and creates a Review. createdAt is unix milliseconds.
func New(id, storeID, authorID, text string, rating int, createdAt int64) (Review, error) {
	text = strings.TrimSpace(text)
	switch {
	case id == "":
		return Review{}, domain.Validationf("review id is required")
	case storeID == "":
		return Review{}, domain.Validationf("you must supply a store")
	case authorID == "":
		return Review{}, domain.Validationf("you must supply an author")
	case text == "":
		return Review{}, domain.Validationf("your review must have text")
	case rating < MinRating || rating > MaxRating:
		return Review{}, domain.Validationf("rating must be between %d and %d, got %d", MinRating, MaxRating, rating)
	}
	return Review{
		id: id, storeID: storeID, authorID: authorID,
		text: text, rating: rating, createdAt: createdAt,
	}, nil
}

// Reconstruct creates a Review without validation (storage hydration).
func Reconstruct(id, storeID, authorID, text string, rating int, createdAt int64) Review {
	return Review{
		id: id, storeID: storeID, authorID: authorID,
		text: text, rating: rating, createdAt: createdAt,
	}
}

// ID returns the review identifier.
func (r *Review) ID() string { return r.id }

// StoreID returns the reviewed store.
func (r *Review) StoreID() string { return r.storeID }

// AuthorID returns the reviewing user.
func (r *Review) AuthorID() string { return r.authorID }

// Text returns the review body.
func (r *Review) Text() string { return r.text }

// Rating returns the 1-5 rating.
func (r *Review) Rating() int { return r.rating }

// CreatedAt returns the creation time in unix milliseconds.
func (r *Review) CreatedAt() int64 { return r.createdAt }

// CreatedTime returns CreatedAt as a time.Time.
func (r *Review) CreatedTime() time.Time { return time.UnixMilli(r.createdAt).UTC() }

// Populated is a Review with its author resolved.
type Populated struct {
	Review
	Author user.Author
}
