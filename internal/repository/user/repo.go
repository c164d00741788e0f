package user

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/venuedex/internal/domain"
	domuser "github.com/kailas-cloud/venuedex/internal/domain/user"
)

// store is the consumer interface for users and hearts (ISP).
type store interface {
	JSONMGet(ctx context.Context, keys []string, path string) ([][]byte, error)
	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SIsMember(ctx context.Context, key, member string) (bool, error)
	SMembers(ctx context.Context, key string) ([]string, error)
}

// userDoc is written by the auth layer at venuedex:user:{id}.
type userDoc struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Repo implements the read-only user directory and the per-user hearts set.
type Repo struct {
	store store
}

// New creates a user repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// GetMany resolves users in one JSON.MGET. Absent users are missing from the map.
func (r *Repo) GetMany(ctx context.Context, ids []string) (map[string]domuser.Author, error) {
	out := make(map[string]domuser.Author, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = userKey(id)
	}
	raws, err := r.store.JSONMGet(ctx, keys, "$")
	if err != nil {
		return nil, domain.Storage("json.mget users", err)
	}

	for i, raw := range raws {
		if raw == nil || i >= len(ids) {
			continue
		}
		var docs []userDoc
		if err := json.Unmarshal(raw, &docs); err != nil || len(docs) == 0 {
			continue
		}
		d := docs[0]
		if d.ID == "" {
			d.ID = ids[i]
		}
		out[d.ID] = domuser.New(d.ID, d.Name, d.Email)
	}
	return out, nil
}

// ToggleHeart adds storeID to the user's hearts, or removes it when present.
// Returns whether the store is hearted afterwards.
func (r *Repo) ToggleHeart(ctx context.Context, userID, storeID string) (bool, error) {
	key := heartsKey(userID)
	present, err := r.store.SIsMember(ctx, key, storeID)
	if err != nil {
		return false, domain.Storage("sismember "+key, err)
	}
	if present {
		if err := r.store.SRem(ctx, key, storeID); err != nil {
			return false, domain.Storage("srem "+key, err)
		}
		return false, nil
	}
	if err := r.store.SAdd(ctx, key, storeID); err != nil {
		return false, domain.Storage("sadd "+key, err)
	}
	return true, nil
}

// Hearts returns the store IDs the user has hearted.
func (r *Repo) Hearts(ctx context.Context, userID string) ([]string, error) {
	key := heartsKey(userID)
	ids, err := r.store.SMembers(ctx, key)
	if err != nil {
		return nil, domain.Storage("smembers "+key, err)
	}
	return ids, nil
}

// Redis key patterns: venuedex:user:{id}, venuedex:user:{id}:hearts

func userKey(id string) string {
	return fmt.Sprintf("%suser:%s", domain.KeyPrefix, id)
}

func heartsKey(id string) string {
	return userKey(id) + ":hearts"
}
