package chi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	healthuc "github.com/kailas-cloud/venuedex/internal/usecase/health"
)

// Server serves the venuedex HTTP API on a chi router.
type Server struct {
	stores        StoreService
	queries       QueryService
	health        HealthService
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(stores StoreService, queries QueryService, health HealthService, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		stores:        stores,
		queries:       queries,
		health:        health,
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
	}
}

// Routes registers every handler on r. Mutations and per-user reads sit behind RequireUser.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/stores", s.ListStores)
		r.Get("/stores/near", s.StoresNear)
		r.Get("/stores/top", s.TopRated)
		r.Get("/stores/{id}", s.GetStore)
		r.Get("/slugs/{slug}", s.FindBySlug)
		r.Get("/tags", s.ListStoresByTag)
		r.Get("/tags/{tag}", s.ListStoresByTag)
		r.Get("/search", s.SearchStores)

		r.Group(func(r chi.Router) {
			r.Use(RequireUser)
			r.Post("/stores", s.CreateStore)
			r.Put("/stores/{id}", s.UpdateStore)
			r.Post("/stores/{id}/reviews", s.AddReview)
			r.Post("/stores/{id}/heart", s.ToggleHeart)
			r.Get("/hearts", s.Hearted)
		})
	})
}

// CreateStore handles POST /stores.
func (s *Server) CreateStore(w http.ResponseWriter, r *http.Request) {
	var req StoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	st, err := s.stores.Create(r.Context(), req.toInput(), UserID(r.Context()))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/slugs/%s", st.Slug()))
	writeJSON(w, http.StatusCreated, storeToResponse(&st))
}

// UpdateStore handles PUT /stores/{id}.
func (s *Server) UpdateStore(w http.ResponseWriter, r *http.Request) {
	id, err := bindPathParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	var req StoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	st, err := s.stores.Update(r.Context(), id, req.toInput(), UserID(r.Context()))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, storeToResponse(&st))
}

// GetStore handles GET /stores/{id}.
func (s *Server) GetStore(w http.ResponseWriter, r *http.Request) {
	id, err := bindPathParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	p, err := s.stores.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, populatedToResponse(&p))
}

// FindBySlug handles GET /slugs/{slug}.
func (s *Server) FindBySlug(w http.ResponseWriter, r *http.Request) {
	slugValue, err := bindPathParam(r, "slug")
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	p, err := s.stores.FindBySlug(r.Context(), slugValue)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, populatedToResponse(&p))
}

// ListStores handles GET /stores.
func (s *Server) ListStores(w http.ResponseWriter, r *http.Request) {
	params, err := bindPageParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	page, err := s.stores.List(r.Context(), derefInt(params.Page), derefInt(params.Limit))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, pageToResponse(page))
}

// ListStoresByTag handles GET /tags and GET /tags/{tag}.
func (s *Server) ListStoresByTag(w http.ResponseWriter, r *http.Request) {
	var tag string
	if chi.URLParam(r, "tag") != "" {
		var err error
		if tag, err = bindPathParam(r, "tag"); err != nil {
			writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
			return
		}
	}

	page, err := s.stores.ListByTag(r.Context(), tag)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tagPageToResponse(page))
}

// SearchStores handles GET /search?q=.
func (s *Server) SearchStores(w http.ResponseWriter, r *http.Request) {
	q, err := bindSearchQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	items, err := s.queries.Search(r.Context(), q)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, populatedListToResponse(items))
}

// StoresNear handles GET /stores/near?lng=&lat=.
func (s *Server) StoresNear(w http.ResponseWriter, r *http.Request) {
	params, err := bindNearParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	hits, err := s.queries.Near(r.Context(), params.Lng, params.Lat)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	out := make([]SummaryResponse, len(hits))
	for i := range hits {
		out[i] = summaryToResponse(&hits[i])
	}
	writeJSON(w, http.StatusOK, out)
}

// TopRated handles GET /stores/top.
func (s *Server) TopRated(w http.ResponseWriter, r *http.Request) {
	rated, err := s.queries.TopRated(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	out := make([]RatedStoreResponse, len(rated))
	for i := range rated {
		out[i] = ratedToResponse(&rated[i])
	}
	writeJSON(w, http.StatusOK, out)
}

// AddReview handles POST /stores/{id}/reviews.
func (s *Server) AddReview(w http.ResponseWriter, r *http.Request) {
	id, err := bindPathParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	var req ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	rv, err := s.stores.AddReview(r.Context(), id, UserID(r.Context()), req.Text, req.Rating)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, reviewToResponse(&rv))
}

// ToggleHeart handles POST /stores/{id}/heart.
func (s *Server) ToggleHeart(w http.ResponseWriter, r *http.Request) {
	id, err := bindPathParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	hearted, err := s.stores.ToggleHeart(r.Context(), UserID(r.Context()), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, HeartResponse{StoreID: id, Hearted: hearted})
}

// Hearted handles GET /hearts.
func (s *Server) Hearted(w http.ResponseWriter, r *http.Request) {
	params, err := bindPageParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	page, err := s.stores.Hearted(r.Context(), UserID(r.Context()), derefInt(params.Page), derefInt(params.Limit))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, pageToResponse(page))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}
