// Package query implements proximity, relevance, top-rated and tag queries.
package query

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/venuedex/internal/domain"
	"github.com/kailas-cloud/venuedex/internal/domain/geo"
	"github.com/kailas-cloud/venuedex/internal/domain/ranking"
	domstore "github.com/kailas-cloud/venuedex/internal/domain/store"
	"github.com/kailas-cloud/venuedex/internal/logger"
	"github.com/kailas-cloud/venuedex/internal/metrics"
)

// minTopRatedReviews is exclusive: a store needs strictly more reviews than this.
const minTopRatedReviews = 1

// Limits bounds the result sizes of each query.
type Limits struct {
	NearRadiusMeters float64
	NearLimit        int
	SearchLimit      int
	TopLimit         int
}

// DefaultLimits are the production result bounds.
func DefaultLimits() Limits {
	return Limits{
		NearRadiusMeters: geo.DefaultRadiusMeters,
		NearLimit:        10,
		SearchLimit:      5,
		TopLimit:         10,
	}
}

// Service runs read-only store queries.
type Service struct {
	stores   StoreReader
	stats    StatsReader
	populate Populator
	limits   Limits
}

// New creates a query service with DefaultLimits.
func New(stores StoreReader, stats StatsReader, populate Populator) *Service {
	return &Service{stores: stores, stats: stats, populate: populate, limits: DefaultLimits()}
}

// WithLimits overrides result bounds. Zero fields keep their defaults.
func (s *Service) WithLimits(l Limits) *Service {
	if l.NearRadiusMeters > 0 {
		s.limits.NearRadiusMeters = l.NearRadiusMeters
	}
	if l.NearLimit > 0 {
		s.limits.NearLimit = l.NearLimit
	}
	if l.SearchLimit > 0 {
		s.limits.SearchLimit = l.SearchLimit
	}
	if l.TopLimit > 0 {
		s.limits.TopLimit = l.TopLimit
	}
	return s
}

// Near returns the stores within the configured radius of (lng, lat),
// nearest first, as display summaries.
func (s *Service) Near(ctx context.Context, lng, lat float64) (out []domstore.Summary, err error) {
	origin, err := geo.NewPoint(lng, lat)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() { metrics.ObserveQuery("near", start, len(out), err) }()

	stores, err := s.stores.Near(ctx, origin, s.limits.NearRadiusMeters, s.limits.NearLimit)
	if err != nil {
		return nil, fmt.Errorf("near %s: %w", origin, err)
	}

	out = make([]domstore.Summary, 0, len(stores))
	for i := range stores {
		if !origin.Within(stores[i].Location().Point, s.limits.NearRadiusMeters) {
			continue
		}
		out = append(out, stores[i].Summarize(origin))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DistanceMeters < out[j].DistanceMeters
	})
	out = ranking.Limit(out, s.limits.NearLimit)

	logger.FromContext(ctx).Debug("Proximity query completed",
		zap.String("origin", origin.String()),
		zap.Int("results", len(out)),
	)
	return out, nil
}

// Search runs a relevance-ranked text query and populates the hits.
func (s *Service) Search(ctx context.Context, text string) (out []domstore.Populated, err error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.Validationf("search query is required")
	}

	start := time.Now()
	defer func() { metrics.ObserveQuery("search", start, len(out), err) }()

	stores, err := s.stores.Search(ctx, text, s.limits.SearchLimit)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", text, err)
	}
	out, err = s.populate.Stores(ctx, ranking.Limit(stores, s.limits.SearchLimit))
	if err != nil {
		return nil, fmt.Errorf("populate search results: %w", err)
	}
	return out, nil
}

// TopRated ranks stores with more than one review by mean rating.
// Recomputed on every call.
func (s *Service) TopRated(ctx context.Context) (out []domstore.Rated, err error) {
	start := time.Now()
	defer func() { metrics.ObserveQuery("top_rated", start, len(out), err) }()

	stats, err := s.stats.Stats(ctx, minTopRatedReviews)
	if err != nil {
		return nil, fmt.Errorf("review stats: %w", err)
	}

	rated := ranking.Averages(ranking.MoreThan(stats, minTopRatedReviews))
	ranking.SortRated(rated)

	joined, err := s.join(ctx, rated)
	if err != nil {
		return nil, err
	}
	joined = ranking.Limit(joined, s.limits.TopLimit)

	stores := make([]domstore.Store, len(joined))
	for i := range joined {
		stores[i] = joined[i].Store
	}
	populated, err := s.populate.Stores(ctx, stores)
	if err != nil {
		return nil, fmt.Errorf("populate top rated: %w", err)
	}

	out = make([]domstore.Rated, len(joined))
	for i := range joined {
		out[i] = domstore.Rated{
			Populated:     populated[i],
			AverageRating: joined[i].AverageRating,
			ReviewCount:   joined[i].ReviewCount,
		}
	}
	return out, nil
}

// join fetches stores for ranked entries in windows of TopLimit until
// enough entries survive or candidates run out.
func (s *Service) join(ctx context.Context, rated []ranking.Rated) ([]ranking.Joined, error) {
	window := s.limits.TopLimit
	joined := make([]ranking.Joined, 0, window)
	for lo := 0; lo < len(rated) && len(joined) < window; lo += window {
		hi := min(lo+window, len(rated))
		chunk := rated[lo:hi]

		ids := make([]string, len(chunk))
		for i := range chunk {
			ids[i] = chunk[i].StoreID
		}
		found, err := s.stores.GetMany(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("load ranked stores: %w", err)
		}
		joined = append(joined, ranking.Join(chunk, found)...)
	}
	return joined, nil
}

// Tags counts stores per tag, most used first.
func (s *Service) Tags(ctx context.Context) (out []ranking.TagCount, err error) {
	start := time.Now()
	defer func() { metrics.ObserveQuery("tags", start, len(out), err) }()

	sets, err := s.stores.AllTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tags: %w", err)
	}
	out = ranking.TagList(sets)
	if out == nil {
		out = []ranking.TagCount{}
	}
	return out, nil
}
