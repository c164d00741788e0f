package chi

import (
	"time"

	"github.com/kailas-cloud/venuedex/internal/domain/ranking"
	domreview "github.com/kailas-cloud/venuedex/internal/domain/review"
	domstore "github.com/kailas-cloud/venuedex/internal/domain/store"
	"github.com/kailas-cloud/venuedex/internal/domain/user"
	storeuc "github.com/kailas-cloud/venuedex/internal/usecase/store"
)

// StoreRequest is the body of POST /stores and PUT /stores/{id}.
type StoreRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
	Location    LocationRequest `json:"location"`
	Photo       string          `json:"photo,omitempty"`
}

// LocationRequest carries coordinates as pointers so that a missing one is detectable.
type LocationRequest struct {
	Lng     *float64 `json:"lng"`
	Lat     *float64 `json:"lat"`
	Address string   `json:"address"`
}

// ReviewRequest is the body of POST /stores/{id}/reviews.
type ReviewRequest struct {
	Text   string `json:"text"`
	Rating int    `json:"rating"`
}

// LocationResponse is a GeoJSON point plus its address.
type LocationResponse struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
	Address     string     `json:"address"`
}

// StoreResponse is a store, optionally with its author and reviews resolved.
type StoreResponse struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Slug        string           `json:"slug"`
	Description string           `json:"description,omitempty"`
	Tags        []string         `json:"tags"`
	Created     time.Time        `json:"created"`
	Author      user.Author      `json:"author"`
	Photo       string           `json:"photo,omitempty"`
	Location    LocationResponse `json:"location"`
	Reviews     []ReviewResponse `json:"reviews,omitempty"`
}

// RatedStoreResponse is a populated store with its rating aggregate.
type RatedStoreResponse struct {
	StoreResponse
	AverageRating float64 `json:"average_rating"`
	ReviewCount   int     `json:"review_count"`
}

// SummaryResponse is one proximity search hit.
type SummaryResponse struct {
	ID             string           `json:"id"`
	Slug           string           `json:"slug"`
	Name           string           `json:"name"`
	Description    string           `json:"description,omitempty"`
	Photo          string           `json:"photo,omitempty"`
	Location       LocationResponse `json:"location"`
	DistanceMeters float64          `json:"distance_meters"`
}

// ReviewResponse is a review with its author resolved.
type ReviewResponse struct {
	ID      string      `json:"id"`
	Store   string      `json:"store"`
	Author  user.Author `json:"author"`
	Text    string      `json:"text"`
	Rating  int         `json:"rating"`
	Created time.Time   `json:"created"`
}

// StorePageResponse is one page of stores.
type StorePageResponse struct {
	Items    []StoreResponse `json:"items"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
	Pages    int             `json:"pages"`
	Total    int             `json:"total"`
}

// TagCountResponse is a tag with the number of stores carrying it.
type TagCountResponse struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// TagPageResponse is the tag listing plus the stores of the selected tag.
type TagPageResponse struct {
	Tag    string             `json:"tag,omitempty"`
	Tags   []TagCountResponse `json:"tags"`
	Stores []StoreResponse    `json:"stores"`
}

// HeartResponse reports the heart state after a toggle.
type HeartResponse struct {
	StoreID string `json:"store_id"`
	Hearted bool   `json:"hearted"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func (req StoreRequest) toInput() domstore.Input {
	return domstore.Input{
		Name:        req.Name,
		Description: req.Description,
		Tags:        req.Tags,
		Lng:         req.Location.Lng,
		Lat:         req.Location.Lat,
		Address:     req.Location.Address,
		Photo:       req.Photo,
	}
}

func locationToResponse(l domstore.Location) LocationResponse {
	return LocationResponse{Type: "Point", Coordinates: l.Point.Coordinates(), Address: l.Address}
}

func storeToResponse(s *domstore.Store) StoreResponse {
	tags := s.Tags()
	if tags == nil {
		tags = []string{}
	}
	return StoreResponse{
		ID:          s.ID(),
		Name:        s.Name(),
		Slug:        s.Slug(),
		Description: s.Description(),
		Tags:        tags,
		Created:     s.CreatedTime(),
		Author:      user.Author{ID: s.AuthorID()},
		Photo:       s.Photo(),
		Location:    locationToResponse(s.Location()),
	}
}

func populatedToResponse(p *domstore.Populated) StoreResponse {
	resp := storeToResponse(&p.Store)
	resp.Author = p.Author
	resp.Reviews = make([]ReviewResponse, len(p.Reviews))
	for i := range p.Reviews {
		resp.Reviews[i] = reviewToResponse(&p.Reviews[i])
	}
	return resp
}

func populatedListToResponse(items []domstore.Populated) []StoreResponse {
	out := make([]StoreResponse, len(items))
	for i := range items {
		out[i] = populatedToResponse(&items[i])
	}
	return out
}

func ratedToResponse(r *domstore.Rated) RatedStoreResponse {
	return RatedStoreResponse{
		StoreResponse: populatedToResponse(&r.Populated),
		AverageRating: r.AverageRating,
		ReviewCount:   r.ReviewCount,
	}
}

func summaryToResponse(s *domstore.Summary) SummaryResponse {
	return SummaryResponse{
		ID:             s.ID,
		Slug:           s.Slug,
		Name:           s.Name,
		Description:    s.Description,
		Photo:          s.Photo,
		Location:       locationToResponse(s.Location),
		DistanceMeters: s.DistanceMeters,
	}
}

func reviewToResponse(r *domreview.Populated) ReviewResponse {
	return ReviewResponse{
		ID:      r.ID(),
		Store:   r.StoreID(),
		Author:  r.Author,
		Text:    r.Text(),
		Rating:  r.Rating(),
		Created: r.CreatedTime(),
	}
}

func pageToResponse(p storeuc.Page) StorePageResponse {
	return StorePageResponse{
		Items:    populatedListToResponse(p.Items),
		Page:     p.Page,
		PageSize: p.PageSize,
		Pages:    p.Pages,
		Total:    p.Total,
	}
}

func tagPageToResponse(p storeuc.TagPage) TagPageResponse {
	return TagPageResponse{
		Tag:    p.Tag,
		Tags:   tagCountsToResponse(p.Tags),
		Stores: populatedListToResponse(p.Stores),
	}
}

func tagCountsToResponse(tags []ranking.TagCount) []TagCountResponse {
	out := make([]TagCountResponse, len(tags))
	for i, t := range tags {
		out[i] = TagCountResponse{Tag: t.Tag, Count: t.Count}
	}
	return out
}
