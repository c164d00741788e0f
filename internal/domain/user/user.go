// Package user describes the authors referenced by stores and reviews.
// Users themselves are owned by the external auth layer.
package user

// Author is a resolved user reference. When the referenced user no longer
// exists, Missing is true and only ID is set.
type Author struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Missing bool   `json:"missing,omitempty"`
}

// New creates a resolved Author.
func New(id, name, email string) Author {
	return Author{ID: id, Name: name, Email: email}
}

// MissingAuthor returns the marker for an unresolved author reference.
func MissingAuthor(id string) Author {
	return Author{ID: id, Missing: true}
}

// Resolve looks id up in the resolved set, falling back to the missing marker.
func Resolve(id string, resolved map[string]Author) Author {
	if a, ok := resolved[id]; ok {
		return a
	}
	return MissingAuthor(id)
}
