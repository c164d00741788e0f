// Package importer seeds the store directory from Foursquare OS Places parquet dumps.
package importer

import (
	"strings"

	domstore "github.com/kailas-cloud/venuedex/internal/domain/store"
)

// Skip reasons, used as the "reason" metric label.
const (
	reasonClosed    = "closed"
	reasonNoCoords  = "no_coords"
	reasonNoAddress = "no_address"
	reasonNoName    = "no_name"
	reasonInvalid   = "invalid"
	reasonError     = "error"
)

// categorySeparator splits hierarchical FSQ labels: "Dining and Drinking > Cafe".
const categorySeparator = " > "

// Place is one raw row of the FSQ OS Places parquet.
type Place struct {
	FSQPlaceID     string   `parquet:"fsq_place_id"`
	Name           string   `parquet:"name"`
	Latitude       *float64 `parquet:"latitude"`
	Longitude      *float64 `parquet:"longitude"`
	Address        *string  `parquet:"address"`
	Locality       *string  `parquet:"locality"`
	Region         *string  `parquet:"region"`
	Country        *string  `parquet:"country"`
	CategoryLabels []string `parquet:"fsq_category_labels,list"`
	DateClosed     *string  `parquet:"date_closed"`
}

// ToInput maps a place to store input. It returns the skip reason when the
// place cannot become a store.
func (p *Place) ToInput() (domstore.Input, string, bool) {
	if p.DateClosed != nil && *p.DateClosed != "" {
		return domstore.Input{}, reasonClosed, false
	}
	if strings.TrimSpace(p.Name) == "" {
		return domstore.Input{}, reasonNoName, false
	}
	if p.Latitude == nil || p.Longitude == nil {
		return domstore.Input{}, reasonNoCoords, false
	}
	address := joinAddress(p.Address, p.Locality, p.Region, p.Country)
	if address == "" {
		return domstore.Input{}, reasonNoAddress, false
	}

	lng, lat := *p.Longitude, *p.Latitude
	return domstore.Input{
		Name:    p.Name,
		Tags:    leafCategories(p.CategoryLabels),
		Lng:     &lng,
		Lat:     &lat,
		Address: address,
	}, "", true
}

func joinAddress(parts ...*string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == nil {
			continue
		}
		if s := strings.TrimSpace(*p); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, ", ")
}

// leafCategories keeps the most specific segment of each label, deduplicated.
func leafCategories(labels []string) []string {
	if len(labels) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if i := strings.LastIndex(l, categorySeparator); i >= 0 {
			l = l[i+len(categorySeparator):]
		}
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}
