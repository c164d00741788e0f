package review

import (
	"encoding/json"
	"fmt"

	domreview "github.com/kailas-cloud/venuedex/internal/domain/review"
)

// reviewDoc is the JSON document stored at venuedex:review:{id}.
type reviewDoc struct {
	ID      string `json:"id"`
	Store   string `json:"store"`
	Author  string `json:"author"`
	Text    string `json:"text"`
	Rating  int    `json:"rating"`
	Created int64  `json:"created"`
}

func toDoc(r domreview.Review) reviewDoc {
	return reviewDoc{
		ID:      r.ID(),
		Store:   r.StoreID(),
		Author:  r.AuthorID(),
		Text:    r.Text(),
		Rating:  r.Rating(),
		Created: r.CreatedAt(),
	}
}

func decodeReview(raw string) (domreview.Review, error) {
	var d reviewDoc
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return domreview.Review{}, fmt.Errorf("unmarshal review: %w", err)
	}
	return domreview.Reconstruct(d.ID, d.Store, d.Author, d.Text, d.Rating, d.Created), nil
}
