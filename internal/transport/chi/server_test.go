package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/kailas-cloud/venuedex/internal/domain"
	"github.com/kailas-cloud/venuedex/internal/domain/geo"
	"github.com/kailas-cloud/venuedex/internal/domain/ranking"
	domreview "github.com/kailas-cloud/venuedex/internal/domain/review"
	domstore "github.com/kailas-cloud/venuedex/internal/domain/store"
	"github.com/kailas-cloud/venuedex/internal/domain/user"
	healthuc "github.com/kailas-cloud/venuedex/internal/usecase/health"
	storeuc "github.com/kailas-cloud/venuedex/internal/usecase/store"
)

type mockStores struct {
	createFn      func(ctx context.Context, in domstore.Input, authorID string) (domstore.Store, error)
	updateFn      func(ctx context.Context, id string, in domstore.Input, callerID string) (domstore.Store, error)
	getFn         func(ctx context.Context, id string) (domstore.Populated, error)
	findBySlugFn  func(ctx context.Context, slug string) (domstore.Populated, error)
	listFn        func(ctx context.Context, page, pageSize int) (storeuc.Page, error)
	listByTagFn   func(ctx context.Context, tag string) (storeuc.TagPage, error)
	addReviewFn   func(ctx context.Context, storeID, authorID, text string, rating int) (domreview.Populated, error)
	toggleHeartFn func(ctx context.Context, userID, storeID string) (bool, error)
	heartedFn     func(ctx context.Context, userID string, page, pageSize int) (storeuc.Page, error)
}

func (m *mockStores) Create(ctx context.Context, in domstore.Input, authorID string) (domstore.Store, error) {
	return m.createFn(ctx, in, authorID)
}

func (m *mockStores) Update(ctx context.Context, id string, in domstore.Input, callerID string) (domstore.Store, error) {
	return m.updateFn(ctx, id, in, callerID)
}

func (m *mockStores) Get(ctx context.Context, id string) (domstore.Populated, error) {
	return m.getFn(ctx, id)
}

func (m *mockStores) FindBySlug(ctx context.Context, slug string) (domstore.Populated, error) {
	return m.findBySlugFn(ctx, slug)
}

func (m *mockStores) List(ctx context.Context, page, pageSize int) (storeuc.Page, error) {
	return m.listFn(ctx, page, pageSize)
}

func (m *mockStores) ListByTag(ctx context.Context, tag string) (storeuc.TagPage, error) {
	return m.listByTagFn(ctx, tag)
}

func (m *mockStores) AddReview(
	ctx context.Context, storeID, authorID, text string, rating int,
) (domreview.Populated, error) {
	return m.addReviewFn(ctx, storeID, authorID, text, rating)
}

func (m *mockStores) ToggleHeart(ctx context.Context, userID, storeID string) (bool, error) {
	return m.toggleHeartFn(ctx, userID, storeID)
}

func (m *mockStores) Hearted(ctx context.Context, userID string, page, pageSize int) (storeuc.Page, error) {
	return m.heartedFn(ctx, userID, page, pageSize)
}

type mockQueries struct {
	nearFn     func(ctx context.Context, lng, lat float64) ([]domstore.Summary, error)
	searchFn   func(ctx context.Context, text string) ([]domstore.Populated, error)
	topRatedFn func(ctx context.Context) ([]domstore.Rated, error)
}

func (m *mockQueries) Near(ctx context.Context, lng, lat float64) ([]domstore.Summary, error) {
	return m.nearFn(ctx, lng, lat)
}

func (m *mockQueries) Search(ctx context.Context, text string) ([]domstore.Populated, error) {
	return m.searchFn(ctx, text)
}

func (m *mockQueries) TopRated(ctx context.Context) ([]domstore.Rated, error) {
	return m.topRatedFn(ctx)
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

func testStore(t *testing.T, id, name, slug string) domstore.Store {
	t.Helper()
	p, err := geo.NewPoint(-79.38, 43.65)
	if err != nil {
		t.Fatalf("point: %v", err)
	}
	return domstore.Reconstruct(id, name, slug, "coffee", []string{"wifi"}, 1_700_000_000_000,
		domstore.Location{Point: p, Address: "1 King St"}, "", "u-1")
}

func testPopulated(t *testing.T, id, name, slug string) domstore.Populated {
	t.Helper()
	return domstore.Populated{
		Store:  testStore(t, id, name, slug),
		Author: user.New("u-1", "Ada", "ada@example.com"),
	}
}

func newTestRouter(stores StoreService, queries QueryService, health HealthService) http.Handler {
	r := chi.NewRouter()
	NewServer(stores, queries, health, nil).Routes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return resp
}

var asUser = map[string]string{UserIDHeader: "u-1"}

func TestCreateStore_Created(t *testing.T) {
	var gotAuthor string
	var gotInput domstore.Input
	stores := &mockStores{
		createFn: func(_ context.Context, in domstore.Input, authorID string) (domstore.Store, error) {
			gotAuthor, gotInput = authorID, in
			return testStore(t, "s-1", in.Name, "joes"), nil
		},
	}
	h := newTestRouter(stores, &mockQueries{}, &mockHealth{})

	body := `{"name":"Joe's","tags":["wifi"],"location":{"lng":-79.38,"lat":43.65,"address":"1 King St"}}`
	rr := do(t, h, "POST", "/api/v1/stores", body, asUser)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d (%s)", rr.Code, http.StatusCreated, rr.Body.String())
	}
	if loc := rr.Header().Get("Location"); loc != "/api/v1/slugs/joes" {
		t.Errorf("Location: got %q", loc)
	}
	if gotAuthor != "u-1" {
		t.Errorf("author: got %q, want u-1", gotAuthor)
	}
	if gotInput.Lng == nil || *gotInput.Lng != -79.38 || gotInput.Address != "1 King St" {
		t.Errorf("unexpected input: %+v", gotInput)
	}

	var resp StoreResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Slug != "joes" || resp.Location.Type != "Point" || resp.Location.Coordinates != [2]float64{-79.38, 43.65} {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestCreateStore_RequiresUser(t *testing.T) {
	h := newTestRouter(&mockStores{}, &mockQueries{}, &mockHealth{})

	rr := do(t, h, "POST", "/api/v1/stores", `{"name":"x"}`, nil)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
	if resp := decodeError(t, rr); resp.Code != CodeUnauthorized {
		t.Errorf("code: got %s, want %s", resp.Code, CodeUnauthorized)
	}
}

func TestCreateStore_InvalidBody(t *testing.T) {
	h := newTestRouter(&mockStores{}, &mockQueries{}, &mockHealth{})

	rr := do(t, h, "POST", "/api/v1/stores", `{not json`, asUser)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
	if resp := decodeError(t, rr); resp.Code != CodeBadRequest {
		t.Errorf("code: got %s, want %s", resp.Code, CodeBadRequest)
	}
}

func TestDomainErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody ErrorCode
		wantMsg  string
	}{
		{"validation", domain.Validationf("please enter a store name"),
			http.StatusBadRequest, CodeValidationFailed, "please enter a store name"},
		{"not found", fmt.Errorf("get store: %w", domain.ErrNotFound),
			http.StatusNotFound, CodeNotFound, "not found"},
		{"conflict", fmt.Errorf("claim slug: %w", domain.ErrConflict),
			http.StatusConflict, CodeConflict, "conflict"},
		{"forbidden", domain.ErrForbidden,
			http.StatusForbidden, CodeForbidden, "forbidden"},
		{"storage", domain.Storage("json set", errors.New("dial tcp 10.0.0.1:6379: refused")),
			http.StatusInternalServerError, CodeInternalError, "internal error"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			stores := &mockStores{
				updateFn: func(context.Context, string, domstore.Input, string) (domstore.Store, error) {
					return domstore.Store{}, tc.err
				},
			}
			h := newTestRouter(stores, &mockQueries{}, &mockHealth{})

			rr := do(t, h, "PUT", "/api/v1/stores/s-1", `{"name":"x"}`, asUser)

			if rr.Code != tc.wantCode {
				t.Fatalf("status: got %d, want %d", rr.Code, tc.wantCode)
			}
			resp := decodeError(t, rr)
			if resp.Code != tc.wantBody {
				t.Errorf("code: got %s, want %s", resp.Code, tc.wantBody)
			}
			if resp.Message != tc.wantMsg {
				t.Errorf("message: got %q, want %q", resp.Message, tc.wantMsg)
			}
		})
	}
}

func TestUpdateStore_PassesCaller(t *testing.T) {
	var gotID, gotCaller string
	stores := &mockStores{
		updateFn: func(_ context.Context, id string, in domstore.Input, callerID string) (domstore.Store, error) {
			gotID, gotCaller = id, callerID
			return testStore(t, id, in.Name, "renamed"), nil
		},
	}
	h := newTestRouter(stores, &mockQueries{}, &mockHealth{})

	rr := do(t, h, "PUT", "/api/v1/stores/s-9", `{"name":"Renamed"}`, asUser)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	if gotID != "s-9" || gotCaller != "u-1" {
		t.Errorf("got id=%q caller=%q", gotID, gotCaller)
	}
}

func TestGetStore_And_FindBySlug(t *testing.T) {
	stores := &mockStores{
		getFn: func(_ context.Context, id string) (domstore.Populated, error) {
			return testPopulated(t, id, "Joe's", "joes"), nil
		},
		findBySlugFn: func(_ context.Context, slug string) (domstore.Populated, error) {
			if slug != "joes" {
				return domstore.Populated{}, domain.ErrNotFound
			}
			return testPopulated(t, "s-1", "Joe's", slug), nil
		},
	}
	h := newTestRouter(stores, &mockQueries{}, &mockHealth{})

	rr := do(t, h, "GET", "/api/v1/stores/s-1", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get: got %d", rr.Code)
	}
	var resp StoreResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Author.Name != "Ada" || resp.ID != "s-1" {
		t.Errorf("unexpected store: %+v", resp)
	}

	if rr := do(t, h, "GET", "/api/v1/slugs/joes", "", nil); rr.Code != http.StatusOK {
		t.Errorf("slug hit: got %d", rr.Code)
	}
	if rr := do(t, h, "GET", "/api/v1/slugs/nope", "", nil); rr.Code != http.StatusNotFound {
		t.Errorf("slug miss: got %d", rr.Code)
	}
}

func TestListStores_Pagination(t *testing.T) {
	var gotPage, gotSize int
	stores := &mockStores{
		listFn: func(_ context.Context, page, pageSize int) (storeuc.Page, error) {
			gotPage, gotSize = page, pageSize
			return storeuc.Page{
				Items: []domstore.Populated{testPopulated(t, "s-1", "A", "a")},
				Page:  page, PageSize: 6, Pages: 4, Total: 19,
			}, nil
		},
	}
	h := newTestRouter(stores, &mockQueries{}, &mockHealth{})

	rr := do(t, h, "GET", "/api/v1/stores?page=2", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	if gotPage != 2 || gotSize != 0 {
		t.Errorf("got page=%d size=%d, want 2 and 0", gotPage, gotSize)
	}
	var resp StorePageResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Pages != 4 || resp.Total != 19 || len(resp.Items) != 1 {
		t.Errorf("unexpected page: %+v", resp)
	}

	if rr := do(t, h, "GET", "/api/v1/stores?page=abc", "", nil); rr.Code != http.StatusBadRequest {
		t.Errorf("bad page: got %d, want 400", rr.Code)
	}
}

func TestStoresNear(t *testing.T) {
	var gotLng, gotLat float64
	queries := &mockQueries{
		nearFn: func(_ context.Context, lng, lat float64) ([]domstore.Summary, error) {
			gotLng, gotLat = lng, lat
			st := testStore(t, "s-1", "Joe's", "joes")
			origin, _ := geo.NewPoint(lng, lat)
			return []domstore.Summary{st.Summarize(origin)}, nil
		},
	}
	h := newTestRouter(&mockStores{}, queries, &mockHealth{})

	rr := do(t, h, "GET", "/api/v1/stores/near?lng=-79.4&lat=43.6", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d (%s)", rr.Code, rr.Body.String())
	}
	if gotLng != -79.4 || gotLat != 43.6 {
		t.Errorf("got lng=%v lat=%v", gotLng, gotLat)
	}
	var resp []SummaryResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp) != 1 || resp[0].DistanceMeters <= 0 {
		t.Errorf("unexpected hits: %+v", resp)
	}

	for _, target := range []string{"/api/v1/stores/near", "/api/v1/stores/near?lng=1", "/api/v1/stores/near?lng=x&lat=1"} {
		if rr := do(t, h, "GET", target, "", nil); rr.Code != http.StatusBadRequest {
			t.Errorf("%s: got %d, want 400", target, rr.Code)
		}
	}
}

func TestTopRated(t *testing.T) {
	queries := &mockQueries{
		topRatedFn: func(context.Context) ([]domstore.Rated, error) {
			return []domstore.Rated{{
				Populated:     testPopulated(t, "s-1", "Joe's", "joes"),
				AverageRating: 4.5,
				ReviewCount:   2,
			}}, nil
		},
	}
	h := newTestRouter(&mockStores{}, queries, &mockHealth{})

	rr := do(t, h, "GET", "/api/v1/stores/top", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	var resp []RatedStoreResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp) != 1 || resp[0].AverageRating != 4.5 || resp[0].ReviewCount != 2 || resp[0].Slug != "joes" {
		t.Errorf("unexpected top rated: %+v", resp)
	}
}

func TestSearchStores(t *testing.T) {
	var gotQuery string
	queries := &mockQueries{
		searchFn: func(_ context.Context, text string) ([]domstore.Populated, error) {
			gotQuery = text
			if strings.TrimSpace(text) == "" {
				return nil, domain.Validationf("search query is required")
			}
			return []domstore.Populated{testPopulated(t, "s-1", "Joe's", "joes")}, nil
		},
	}
	h := newTestRouter(&mockStores{}, queries, &mockHealth{})

	rr := do(t, h, "GET", "/api/v1/search?q=joe%27s+coffee", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	if gotQuery != "joe's coffee" {
		t.Errorf("query: got %q", gotQuery)
	}

	if rr := do(t, h, "GET", "/api/v1/search", "", nil); rr.Code != http.StatusBadRequest {
		t.Errorf("empty query: got %d, want 400", rr.Code)
	}
}

func TestListStoresByTag(t *testing.T) {
	var gotTag string
	stores := &mockStores{
		listByTagFn: func(_ context.Context, tag string) (storeuc.TagPage, error) {
			gotTag = tag
			return storeuc.TagPage{
				Tag:  tag,
				Tags: []ranking.TagCount{{Tag: "wifi", Count: 2}, {Tag: "patio", Count: 1}},
			}, nil
		},
	}
	h := newTestRouter(stores, &mockQueries{}, &mockHealth{})

	tests := []struct {
		target  string
		wantTag string
	}{
		{"/api/v1/tags", ""},
		{"/api/v1/tags/wifi", "wifi"},
		{"/api/v1/tags/late%20night", "late night"},
	}
	for _, tc := range tests {
		t.Run(tc.target, func(t *testing.T) {
			rr := do(t, h, "GET", tc.target, "", nil)
			if rr.Code != http.StatusOK {
				t.Fatalf("status: got %d", rr.Code)
			}
			if gotTag != tc.wantTag {
				t.Errorf("tag: got %q, want %q", gotTag, tc.wantTag)
			}
			var resp TagPageResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(resp.Tags) != 2 || resp.Tags[0].Tag != "wifi" || resp.Stores == nil {
				t.Errorf("unexpected tag page: %+v", resp)
			}
		})
	}
}

func TestAddReview(t *testing.T) {
	var gotStore, gotAuthor, gotText string
	var gotRating int
	stores := &mockStores{
		addReviewFn: func(_ context.Context, storeID, authorID, text string, rating int) (domreview.Populated, error) {
			gotStore, gotAuthor, gotText, gotRating = storeID, authorID, text, rating
			rv := domreview.Reconstruct("r-1", storeID, authorID, text, rating, 1_700_000_000_000)
			return domreview.Populated{Review: rv, Author: user.New(authorID, "Ada", "")}, nil
		},
	}
	h := newTestRouter(stores, &mockQueries{}, &mockHealth{})

	rr := do(t, h, "POST", "/api/v1/stores/s-1/reviews", `{"text":"great","rating":5}`, asUser)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d", rr.Code)
	}
	if gotStore != "s-1" || gotAuthor != "u-1" || gotText != "great" || gotRating != 5 {
		t.Errorf("got store=%q author=%q text=%q rating=%d", gotStore, gotAuthor, gotText, gotRating)
	}
	var resp ReviewResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ID != "r-1" || resp.Author.Name != "Ada" {
		t.Errorf("unexpected review: %+v", resp)
	}
}

func TestToggleHeart_And_Hearted(t *testing.T) {
	stores := &mockStores{
		toggleHeartFn: func(_ context.Context, userID, storeID string) (bool, error) {
			if userID != "u-1" || storeID != "s-1" {
				return false, fmt.Errorf("unexpected args %s/%s", userID, storeID)
			}
			return true, nil
		},
		heartedFn: func(_ context.Context, userID string, page, _ int) (storeuc.Page, error) {
			if userID != "u-1" {
				return storeuc.Page{}, domain.ErrForbidden
			}
			return storeuc.Page{Page: page, PageSize: 6}, nil
		},
	}
	h := newTestRouter(stores, &mockQueries{}, &mockHealth{})

	rr := do(t, h, "POST", "/api/v1/stores/s-1/heart", "", asUser)
	if rr.Code != http.StatusOK {
		t.Fatalf("toggle: got %d", rr.Code)
	}
	var heart HeartResponse
	if err := json.NewDecoder(rr.Body).Decode(&heart); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !heart.Hearted || heart.StoreID != "s-1" {
		t.Errorf("unexpected heart: %+v", heart)
	}

	rr = do(t, h, "GET", "/api/v1/hearts?page=1", "", asUser)
	if rr.Code != http.StatusOK {
		t.Fatalf("hearted: got %d", rr.Code)
	}
	var page StorePageResponse
	if err := json.NewDecoder(rr.Body).Decode(&page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.Items == nil || len(page.Items) != 0 {
		t.Errorf("expected empty non-null items, got %+v", page.Items)
	}

	if rr := do(t, h, "GET", "/api/v1/hearts", "", nil); rr.Code != http.StatusUnauthorized {
		t.Errorf("anonymous hearts: got %d, want 401", rr.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name     string
		report   healthuc.Report
		wantCode int
	}{
		{"healthy", healthuc.Report{
			Status: healthuc.Healthy,
			Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK},
		}, http.StatusOK},
		{"degraded", healthuc.Report{
			Status: healthuc.Degraded,
			Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckError},
		}, http.StatusServiceUnavailable},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestRouter(&mockStores{}, &mockQueries{}, &mockHealth{report: tc.report})

			rr := do(t, h, "GET", "/health", "", nil)
			if rr.Code != tc.wantCode {
				t.Fatalf("status: got %d, want %d", rr.Code, tc.wantCode)
			}
			var resp HealthResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != string(tc.report.Status) || resp.Checks["database"] != string(tc.report.Checks["database"]) {
				t.Errorf("unexpected health: %+v", resp)
			}
		})
	}
}

func TestSafeDomainMessage_HidesInternals(t *testing.T) {
	err := fmt.Errorf("list stores: %w", errors.New("READONLY You can't write against a read only replica"))
	if got := safeDomainMessage(err); got != "internal error" {
		t.Errorf("got %q, want internal error", got)
	}
}
