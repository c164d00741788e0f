// Package ranking contains the pure aggregation stages behind top-rated
// ranking and tag listing. Every stage takes and returns plain values so it
// can be tested without a datastore.
package ranking

import (
	"sort"

	"github.com/kailas-cloud/venuedex/internal/domain/store"
)

// ReviewStat is the per-store result of the group stage.
type ReviewStat struct {
	StoreID string
	Count   int
	Sum     float64
}

// Rated is a ReviewStat with its mean rating computed.
type Rated struct {
	StoreID       string
	AverageRating float64
	ReviewCount   int
}

// MoreThan keeps stats with strictly more than minReviews reviews.
func MoreThan(stats []ReviewStat, minReviews int) []ReviewStat {
	out := make([]ReviewStat, 0, len(stats))
	for _, s := range stats {
		if s.Count > minReviews {
			out = append(out, s)
		}
	}
	return out
}

// Averages computes the arithmetic mean rating of every stat.
func Averages(stats []ReviewStat) []Rated {
	out := make([]Rated, 0, len(stats))
	for _, s := range stats {
		if s.Count <= 0 {
			continue
		}
		out = append(out, Rated{
			StoreID:       s.StoreID,
			AverageRating: s.Sum / float64(s.Count),
			ReviewCount:   s.Count,
		})
	}
	return out
}

// SortRated orders by average rating desc, then review count desc, then store ID asc.
func SortRated(rated []Rated) {
	sort.SliceStable(rated, func(i, j int) bool {
		a, b := rated[i], rated[j]
		if a.AverageRating != b.AverageRating {
			return a.AverageRating > b.AverageRating
		}
		if a.ReviewCount != b.ReviewCount {
			return a.ReviewCount > b.ReviewCount
		}
		return a.StoreID < b.StoreID
	})
}

// Joined pairs a ranked entry with its store.
type Joined struct {
	Rated
	Store store.Store
}

// Join attaches stores to ranked entries, dropping entries whose store is gone.
// Order of rated is preserved.
func Join(rated []Rated, stores map[string]store.Store) []Joined {
	out := make([]Joined, 0, len(rated))
	for _, r := range rated {
		s, ok := stores[r.StoreID]
		if !ok {
			continue
		}
		out = append(out, Joined{Rated: r, Store: s})
	}
	return out
}

// Limit truncates s to at most n entries.
func Limit[T any](s []T, n int) []T {
	if n < 0 || len(s) <= n {
		return s
	}
	return s[:n]
}
