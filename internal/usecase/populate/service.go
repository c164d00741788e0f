// Package populate resolves the author and review references of stores
// with a fixed number of lookups per call.
package populate

import (
	"context"
	"fmt"

	domreview "github.com/kailas-cloud/venuedex/internal/domain/review"
	domstore "github.com/kailas-cloud/venuedex/internal/domain/store"
	domuser "github.com/kailas-cloud/venuedex/internal/domain/user"
)

// Service populates stores and reviews.
type Service struct {
	reviews ReviewLister
	users   UserDirectory
}

// New creates a populator.
func New(reviews ReviewLister, users UserDirectory) *Service {
	return &Service{reviews: reviews, users: users}
}

// Stores attaches authors and reviews: one review query for the whole
// slice, one user lookup for every distinct author, then an in-memory merge.
// Input order is preserved.
func (s *Service) Stores(ctx context.Context, stores []domstore.Store) ([]domstore.Populated, error) {
	if len(stores) == 0 {
		return []domstore.Populated{}, nil
	}

	ids := make([]string, len(stores))
	for i := range stores {
		ids[i] = stores[i].ID()
	}

	reviews, err := s.reviews.ListByStores(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	authorIDs := newIDSet(len(stores) + len(reviews))
	for i := range stores {
		authorIDs.add(stores[i].AuthorID())
	}
	for i := range reviews {
		authorIDs.add(reviews[i].AuthorID())
	}

	authors, err := s.users.GetMany(ctx, authorIDs.list)
	if err != nil {
		return nil, fmt.Errorf("resolve authors: %w", err)
	}

	byStore := make(map[string][]domreview.Populated, len(stores))
	for _, rv := range reviews {
		byStore[rv.StoreID()] = append(byStore[rv.StoreID()], domreview.Populated{
			Review: rv,
			Author: domuser.Resolve(rv.AuthorID(), authors),
		})
	}

	out := make([]domstore.Populated, len(stores))
	for i, st := range stores {
		rs := byStore[st.ID()]
		if rs == nil {
			rs = []domreview.Populated{}
		}
		out[i] = domstore.Populated{
			Store:   st,
			Author:  domuser.Resolve(st.AuthorID(), authors),
			Reviews: rs,
		}
	}
	return out, nil
}

// Store populates a single store.
func (s *Service) Store(ctx context.Context, st domstore.Store) (domstore.Populated, error) {
	out, err := s.Stores(ctx, []domstore.Store{st})
	if err != nil {
		return domstore.Populated{}, err
	}
	return out[0], nil
}

// Reviews attaches authors to reviews with a single user lookup.
func (s *Service) Reviews(ctx context.Context, reviews []domreview.Review) ([]domreview.Populated, error) {
	if len(reviews) == 0 {
		return []domreview.Populated{}, nil
	}

	authorIDs := newIDSet(len(reviews))
	for i := range reviews {
		authorIDs.add(reviews[i].AuthorID())
	}
	authors, err := s.users.GetMany(ctx, authorIDs.list)
	if err != nil {
		return nil, fmt.Errorf("resolve authors: %w", err)
	}

	out := make([]domreview.Populated, len(reviews))
	for i, rv := range reviews {
		out[i] = domreview.Populated{Review: rv, Author: domuser.Resolve(rv.AuthorID(), authors)}
	}
	return out, nil
}

// idSet collects distinct non-empty IDs in first-seen order.
type idSet struct {
	seen map[string]struct{}
	list []string
}

func newIDSet(capacity int) *idSet {
	return &idSet{seen: make(map[string]struct{}, capacity), list: make([]string, 0, capacity)}
}

func (s *idSet) add(id string) {
	if id == "" {
		return
	}
	if _, ok := s.seen[id]; ok {
		return
	}
	s.seen[id] = struct{}{}
	s.list = append(s.list, id)
}
