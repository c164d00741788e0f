// Package store implements the store directory operations: create, update,
// lookup, listing, reviews and hearts.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/venuedex/internal/domain"
	"github.com/kailas-cloud/venuedex/internal/domain/ranking"
	domreview "github.com/kailas-cloud/venuedex/internal/domain/review"
	"github.com/kailas-cloud/venuedex/internal/domain/slug"
	domstore "github.com/kailas-cloud/venuedex/internal/domain/store"
	"github.com/kailas-cloud/venuedex/internal/logger"
	"github.com/kailas-cloud/venuedex/internal/metrics"
)

// slugRetries is how many times a lost slug claim is retried with the next number.
const slugRetries = 1

// Page is one page of populated stores.
type Page struct {
	Items    []domstore.Populated
	Page     int
	PageSize int
	Pages    int
	Total    int
}

// TagPage is the tag listing plus the stores carrying the selected tag.
type TagPage struct {
	Tag    string
	Tags   []ranking.TagCount
	Stores []domstore.Populated
}

// Service handles store writes and store-centric reads.
type Service struct {
	repo            Repository
	reviews         ReviewWriter
	hearts          HeartStore
	tags            TagCounter
	populate        Populator
	now             func() time.Time
	newID           func() string
	defaultPageSize int
	maxPageSize     int
}

// New creates a store service.
func New(repo Repository, reviews ReviewWriter, hearts HeartStore, tags TagCounter, populate Populator) *Service {
	return &Service{
		repo:            repo,
		reviews:         reviews,
		hearts:          hearts,
		tags:            tags,
		populate:        populate,
		now:             time.Now,
		newID:           uuid.NewString,
		defaultPageSize: 6,
		maxPageSize:     100,
	}
}

// WithPagination configures page size limits.
func (s *Service) WithPagination(defaultPageSize, maxPageSize int) *Service {
	if defaultPageSize > 0 {
		s.defaultPageSize = defaultPageSize
	}
	if maxPageSize > 0 {
		s.maxPageSize = maxPageSize
	}
	return s
}

// WithClock overrides the creation timestamp source.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// WithIDGenerator overrides UUIDv4 identifiers.
func (s *Service) WithIDGenerator(newID func() string) *Service {
	if newID != nil {
		s.newID = newID
	}
	return s
}

// Create validates input, assigns a unique slug and stores the result.
func (s *Service) Create(ctx context.Context, in domstore.Input, authorID string) (domstore.Store, error) {
	st, err := domstore.New(s.newID(), in, authorID, s.now().UnixMilli())
	if err != nil {
		return domstore.Store{}, err
	}

	created, err := s.assignSlug(ctx, st, "", func(next domstore.Store) error {
		return s.repo.Create(ctx, next)
	})
	if err != nil {
		return domstore.Store{}, fmt.Errorf("create store: %w", err)
	}

	logger.FromContext(ctx).Info("Store created",
		zap.String("store_id", created.ID()),
		zap.String("slug", created.Slug()),
	)
	return created, nil
}

// Update replaces the editable fields of a store owned by callerID.
// The slug is regenerated only when the name changed.
func (s *Service) Update(ctx context.Context, id string, in domstore.Input, callerID string) (domstore.Store, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return domstore.Store{}, fmt.Errorf("get store: %w", err)
	}
	if !current.IsOwnedBy(callerID) {
		return domstore.Store{}, fmt.Errorf("store %s: you must own a store in order to edit it: %w", id, domain.ErrForbidden)
	}

	next, nameChanged, err := current.Update(in)
	if err != nil {
		return domstore.Store{}, err
	}

	if !nameChanged {
		if err := s.repo.Update(ctx, next, current.Slug()); err != nil {
			return domstore.Store{}, fmt.Errorf("update store: %w", err)
		}
		return next, nil
	}

	updated, err := s.assignSlug(ctx, next, current.Slug(), func(candidate domstore.Store) error {
		return s.repo.Update(ctx, candidate, current.Slug())
	})
	if err != nil {
		return domstore.Store{}, fmt.Errorf("update store: %w", err)
	}
	return updated, nil
}

// assignSlug derives the slug of st, counts colliding slugs held by other
// stores and writes with the resulting disambiguator. A lost claim is
// retried once with the next number. A rename that keeps the same base
// keeps prevSlug.
func (s *Service) assignSlug(
	ctx context.Context, st domstore.Store, prevSlug string, write func(domstore.Store) error,
) (domstore.Store, error) {
	base, err := slug.Make(st.Name())
	if err != nil {
		return domstore.Store{}, err
	}

	if prevSlug != "" && slug.Matches(base, prevSlug) {
		next := st.WithSlug(prevSlug)
		if err := write(next); err != nil {
			return domstore.Store{}, err
		}
		return next, nil
	}

	held, err := s.repo.Slugs(ctx, base)
	if err != nil {
		return domstore.Store{}, fmt.Errorf("list slugs: %w", err)
	}
	others := make([]string, 0, len(held))
	for id, v := range held {
		if id != st.ID() {
			others = append(others, v)
		}
	}
	k := slug.CountCollisions(base, others)

	log := logger.FromContext(ctx)
	for attempt := 0; ; attempt++ {
		next := st.WithSlug(slug.Disambiguate(base, k+attempt))
		err := write(next)
		if err == nil {
			return next, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return domstore.Store{}, err
		}
		if attempt >= slugRetries {
			metrics.SlugConflictsTotal.WithLabelValues("exhausted").Inc()
			log.Warn("Slug claim lost after retry", zap.String("slug", next.Slug()), zap.Error(err))
			return domstore.Store{}, err
		}
		metrics.SlugConflictsTotal.WithLabelValues("retried").Inc()
		log.Warn("Slug claim lost, retrying", zap.String("slug", next.Slug()))
	}
}

// Get returns a populated store by ID.
func (s *Service) Get(ctx context.Context, id string) (domstore.Populated, error) {
	st, err := s.repo.Get(ctx, id)
	if err != nil {
		return domstore.Populated{}, fmt.Errorf("get store: %w", err)
	}
	return s.populateOne(ctx, st)
}

// FindBySlug returns the populated store holding slug.
func (s *Service) FindBySlug(ctx context.Context, slugValue string) (domstore.Populated, error) {
	st, err := s.repo.GetBySlug(ctx, slugValue)
	if err != nil {
		return domstore.Populated{}, fmt.Errorf("find store by slug: %w", err)
	}
	return s.populateOne(ctx, st)
}

// List returns a page of stores, newest first. Items and the total count
// load concurrently. A page past the end yields no items but keeps Pages.
func (s *Service) List(ctx context.Context, page, pageSize int) (Page, error) {
	page, pageSize = s.clampPage(page, pageSize)

	var (
		stores []domstore.Store
		total  int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stores, err = s.repo.List(gctx, (page-1)*pageSize, pageSize)
		if err != nil {
			return fmt.Errorf("list stores: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		total, err = s.repo.Count(gctx)
		if err != nil {
			return fmt.Errorf("count stores: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Page{}, err //nolint:wrapcheck // already wrapped inside the group
	}

	items, err := s.populate.Stores(ctx, stores)
	if err != nil {
		return Page{}, fmt.Errorf("populate stores: %w", err)
	}
	return Page{Items: items, Page: page, PageSize: pageSize, Pages: pageCount(total, pageSize), Total: total}, nil
}

// ListByTag loads the tag counts and the stores carrying tag concurrently.
// An empty tag selects every tagged store.
func (s *Service) ListByTag(ctx context.Context, tag string) (TagPage, error) {
	var (
		tags   []ranking.TagCount
		stores []domstore.Store
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tags, err = s.tags.Tags(gctx)
		if err != nil {
			return fmt.Errorf("list tags: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		stores, err = s.repo.ListByTag(gctx, tag)
		if err != nil {
			return fmt.Errorf("list stores by tag: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return TagPage{}, err //nolint:wrapcheck // already wrapped inside the group
	}

	populated, err := s.populate.Stores(ctx, stores)
	if err != nil {
		return TagPage{}, fmt.Errorf("populate stores: %w", err)
	}
	return TagPage{Tag: tag, Tags: tags, Stores: populated}, nil
}

// AddReview stores a review of an existing store and returns it with its author.
func (s *Service) AddReview(
	ctx context.Context, storeID, authorID, text string, rating int,
) (domreview.Populated, error) {
	if _, err := s.repo.Get(ctx, storeID); err != nil {
		return domreview.Populated{}, fmt.Errorf("get store: %w", err)
	}

	rv, err := domreview.New(s.newID(), storeID, authorID, text, rating, s.now().UnixMilli())
	if err != nil {
		return domreview.Populated{}, err
	}
	if err := s.reviews.Create(ctx, rv); err != nil {
		return domreview.Populated{}, fmt.Errorf("create review: %w", err)
	}

	populated, err := s.populate.Reviews(ctx, []domreview.Review{rv})
	if err != nil {
		return domreview.Populated{}, fmt.Errorf("populate review: %w", err)
	}
	return populated[0], nil
}

// ToggleHeart flips whether userID hearts storeID. Returns the new state.
func (s *Service) ToggleHeart(ctx context.Context, userID, storeID string) (bool, error) {
	if userID == "" {
		return false, domain.Validationf("you must supply a user")
	}
	if _, err := s.repo.Get(ctx, storeID); err != nil {
		return false, fmt.Errorf("get store: %w", err)
	}
	hearted, err := s.hearts.ToggleHeart(ctx, userID, storeID)
	if err != nil {
		return false, fmt.Errorf("toggle heart: %w", err)
	}
	return hearted, nil
}

// Hearted returns a page of the stores userID has hearted, ordered by store ID.
func (s *Service) Hearted(ctx context.Context, userID string, page, pageSize int) (Page, error) {
	if userID == "" {
		return Page{}, domain.Validationf("you must supply a user")
	}
	page, pageSize = s.clampPage(page, pageSize)

	ids, err := s.hearts.Hearts(ctx, userID)
	if err != nil {
		return Page{}, fmt.Errorf("list hearts: %w", err)
	}
	sort.Strings(ids)

	total := len(ids)
	lo := min((page-1)*pageSize, total)
	hi := min(lo+pageSize, total)

	stores, err := s.repo.ListByIDs(ctx, ids[lo:hi])
	if err != nil {
		return Page{}, fmt.Errorf("load hearted stores: %w", err)
	}
	items, err := s.populate.Stores(ctx, stores)
	if err != nil {
		return Page{}, fmt.Errorf("populate stores: %w", err)
	}
	return Page{Items: items, Page: page, PageSize: pageSize, Pages: pageCount(total, pageSize), Total: total}, nil
}

func (s *Service) populateOne(ctx context.Context, st domstore.Store) (domstore.Populated, error) {
	p, err := s.populate.Store(ctx, st)
	if err != nil {
		return domstore.Populated{}, fmt.Errorf("populate store: %w", err)
	}
	return p, nil
}

func (s *Service) clampPage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = s.defaultPageSize
	}
	if pageSize > s.maxPageSize {
		pageSize = s.maxPageSize
	}
	return page, pageSize
}

func pageCount(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}
