package store

import (
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/venuedex/internal/domain/geo"
	"github.com/kailas-cloud/venuedex/internal/domain/slug"
	domstore "github.com/kailas-cloud/venuedex/internal/domain/store"
)

// storeDoc is the JSON document stored at venuedex:store:{id}.
type storeDoc struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Slug        string      `json:"slug"`
	SlugBase    string      `json:"slug_base"`
	Description string      `json:"description"`
	Tags        []string    `json:"tags"`
	Created     int64       `json:"created"`
	Author      string      `json:"author"`
	Photo       string      `json:"photo,omitempty"`
	Location    locationDoc `json:"location"`
}

// locationDoc keeps the GeoJSON shape next to the "lng,lat" string
// the GEO index reads.
type locationDoc struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
	Address     string     `json:"address"`
	Point       string     `json:"point"`
}

func toDoc(s domstore.Store) storeDoc {
	loc := s.Location()
	tags := s.Tags()
	if tags == nil {
		tags = []string{}
	}
	return storeDoc{
		ID:          s.ID(),
		Name:        s.Name(),
		Slug:        s.Slug(),
		SlugBase:    slugBase(s),
		Description: s.Description(),
		Tags:        tags,
		Created:     s.CreatedAt(),
		Author:      s.AuthorID(),
		Photo:       s.Photo(),
		Location: locationDoc{
			Type:        "Point",
			Coordinates: loc.Point.Coordinates(),
			Address:     loc.Address,
			Point:       loc.Point.String(),
		},
	}
}

// slugBase is the undisambiguated slug of the store's name. A store renamed
// without changing its base keeps that base.
func slugBase(s domstore.Store) string {
	base, err := slug.Make(s.Name())
	if err != nil {
		return s.Slug()
	}
	return base
}

func fromDoc(d storeDoc) (domstore.Store, error) {
	pt, err := geo.NewPoint(d.Location.Coordinates[0], d.Location.Coordinates[1])
	if err != nil {
		return domstore.Store{}, fmt.Errorf("store %s location: %w", d.ID, err)
	}
	return domstore.Reconstruct(
		d.ID, d.Name, d.Slug, d.Description, d.Tags, d.Created,
		domstore.Location{Point: pt, Address: d.Location.Address},
		d.Photo, d.Author,
	), nil
}

// decodeStore parses either a bare document (FT.SEARCH RETURN $) or the
// one-element array JSON.GET and JSON.MGET return for the "$" path.
func decodeStore(raw []byte) (domstore.Store, error) {
	if len(raw) > 0 && raw[0] == '[' {
		var docs []storeDoc
		if err := json.Unmarshal(raw, &docs); err != nil {
			return domstore.Store{}, fmt.Errorf("unmarshal store: %w", err)
		}
		if len(docs) == 0 {
			return domstore.Store{}, errEmptyDocument
		}
		return fromDoc(docs[0])
	}
	var d storeDoc
	if err := json.Unmarshal(raw, &d); err != nil {
		return domstore.Store{}, fmt.Errorf("unmarshal store: %w", err)
	}
	return fromDoc(d)
}
