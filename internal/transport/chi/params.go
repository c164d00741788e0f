package chi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// pageParams are the optional ?page=&limit= query parameters.
type pageParams struct {
	Page  *int
	Limit *int
}

func bindPageParams(r *http.Request) (pageParams, error) {
	var p pageParams
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "page", q, &p.Page); err != nil {
		return pageParams{}, fmt.Errorf("invalid format for parameter page: %w", err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", q, &p.Limit); err != nil {
		return pageParams{}, fmt.Errorf("invalid format for parameter limit: %w", err)
	}
	return p, nil
}

// nearParams are the required ?lng=&lat= query parameters.
type nearParams struct {
	Lng float64
	Lat float64
}

func bindNearParams(r *http.Request) (nearParams, error) {
	var p nearParams
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, true, "lng", q, &p.Lng); err != nil {
		return nearParams{}, fmt.Errorf("invalid format for parameter lng: %w", err)
	}
	if err := runtime.BindQueryParameter("form", true, true, "lat", q, &p.Lat); err != nil {
		return nearParams{}, fmt.Errorf("invalid format for parameter lat: %w", err)
	}
	return p, nil
}

func bindSearchQuery(r *http.Request) (string, error) {
	var q string
	if err := runtime.BindQueryParameter("form", true, false, "q", r.URL.Query(), &q); err != nil {
		return "", fmt.Errorf("invalid format for parameter q: %w", err)
	}
	return q, nil
}

// bindPathParam binds a simple-style path segment registered on the chi route.
func bindPathParam(r *http.Request, name string) (string, error) {
	var v string
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &v,
		runtime.BindStyledParameterOptions{
			ParamLocation: runtime.ParamLocationPath,
			Explode:       false,
			Required:      true,
		})
	if err != nil {
		return "", fmt.Errorf("invalid format for parameter %s: %w", name, err)
	}
	return v, nil
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
