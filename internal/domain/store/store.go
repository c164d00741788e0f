// Package store holds the Store aggregate and its read projections.
package store

import (
	"strings"
	"time"

	"github.com/kailas-cloud/venuedex/internal/domain"
	"github.com/kailas-cloud/venuedex/internal/domain/geo"
	"github.com/kailas-cloud/venuedex/internal/domain/review"
	"github.com/kailas-cloud/venuedex/internal/domain/user"
)

// Location is a geographic point plus its human-readable address.
type Location struct {
	Point   geo.Point
	Address string
}

// Input carries the user-editable store fields for create and update.
// Lng and Lat are pointers so that an absent coordinate is distinguishable from 0.
type Input struct {
	Name        string
	Description string
	Tags        []string
	Lng         *float64
	Lat         *float64
	Address     string
	Photo       string
}

// Store is a venue. Slug is assigned by the store service, never by the caller.
type Store struct {
	id          string
	name        string
	slug        string
	description string
	tags        []string
	createdAt   int64
	location    Location
	photo       string
	authorID    string
}

// New validates input and creates a Store without a slug.
func New(id string, in Input, authorID string, createdAt int64) (Store, error) {
	if id == "" {
		return Store{}, domain.Validationf("store id is required")
	}
	if authorID == "" {
		return Store{}, domain.Validationf("you must supply an author")
	}
	s := Store{id: id, authorID: authorID, createdAt: createdAt}
	if err := s.apply(in); err != nil {
		return Store{}, err
	}
	return s, nil
}

// Reconstruct creates a Store without validation (storage hydration).
func Reconstruct(
	id, name, slug, description string, tags []string, createdAt int64,
	location Location, photo, authorID string,
) Store {
	return Store{
		id: id, name: name, slug: slug, description: description, tags: tags,
		createdAt: createdAt, location: location, photo: photo, authorID: authorID,
	}
}

// Update returns a copy with the editable fields replaced by in.
// ID, author, createdAt and slug are preserved; nameChanged tells the caller
// whether the slug has to be regenerated.
func (s *Store) Update(in Input) (updated Store, nameChanged bool, err error) {
	next := *s
	if err := next.apply(in); err != nil {
		return Store{}, false, err
	}
	return next, next.name != s.name, nil
}

func (s *Store) apply(in Input) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Validationf("please enter a store name")
	}
	if in.Lng == nil || in.Lat == nil {
		return domain.Validationf("you must supply coordinates")
	}
	point, err := geo.NewPoint(*in.Lng, *in.Lat)
	if err != nil {
		return err
	}
	address := strings.TrimSpace(in.Address)
	if address == "" {
		return domain.Validationf("you must supply an address")
	}

	s.name = name
	s.description = strings.TrimSpace(in.Description)
	s.tags = normalizeTags(in.Tags)
	s.location = Location{Point: point, Address: address}
	s.photo = strings.TrimSpace(in.Photo)
	return nil
}

// WithSlug returns a copy carrying slug.
func (s *Store) WithSlug(slug string) Store {
	next := *s
	next.slug = slug
	return next
}

// ID returns the store identifier.
func (s *Store) ID() string { return s.id }

// Name returns the display name.
func (s *Store) Name() string { return s.name }

// Slug returns the unique URL identifier.
func (s *Store) Slug() string { return s.slug }

// Description returns the optional description.
func (s *Store) Description() string { return s.description }

// Tags returns the tag labels in insertion order.
func (s *Store) Tags() []string { return s.tags }

// CreatedAt returns the creation time in unix milliseconds.
func (s *Store) CreatedAt() int64 { return s.createdAt }

// CreatedTime returns CreatedAt as a time.Time.
func (s *Store) CreatedTime() time.Time { return time.UnixMilli(s.createdAt).UTC() }

// Location returns the store location.
func (s *Store) Location() Location { return s.location }

// Photo returns the stored image filename, if any.
func (s *Store) Photo() string { return s.photo }

// AuthorID returns the creating user.
func (s *Store) AuthorID() string { return s.authorID }

// IsOwnedBy reports whether userID created the store.
func (s *Store) IsOwnedBy(userID string) bool { return userID != "" && s.authorID == userID }

// Summary is the display projection returned by proximity search.
type Summary struct {
	ID             string
	Slug           string
	Name           string
	Description    string
	Location       Location
	Photo          string
	DistanceMeters float64
}

// Summarize projects s relative to origin.
func (s *Store) Summarize(origin geo.Point) Summary {
	return Summary{
		ID:             s.id,
		Slug:           s.slug,
		Name:           s.name,
		Description:    s.description,
		Location:       s.location,
		Photo:          s.photo,
		DistanceMeters: origin.DistanceMeters(s.location.Point),
	}
}

// Populated is a Store with its author and reviews resolved.
type Populated struct {
	Store
	Author  user.Author
	Reviews []review.Populated
}

// Rated is a populated Store ranked by its mean review rating.
type Rated struct {
	Populated
	AverageRating float64
	ReviewCount   int
}

func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
