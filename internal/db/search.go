package db

// SortOrder is the direction of a SORTBY clause.
type SortOrder string

const (
	// Asc sorts ascending.
	Asc SortOrder = "ASC"
	// Desc sorts descending.
	Desc SortOrder = "DESC"
)

// SortKey is a single SORTBY property.
type SortKey struct {
	Field string
	Order SortOrder
}

// SearchQuery is the input for FT.SEARCH.
type SearchQuery struct {
	IndexName    string
	Query        string
	ReturnFields []string
	SortBy       *SortKey
	Offset       int
	Limit        int
	WithScores   bool
	Scorer       string // TFIDF, BM25STD, ...; empty keeps the server default
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}

// Reducer is a REDUCE clause inside GROUPBY.
type Reducer struct {
	Func string   // COUNT, SUM, AVG, ...
	Args []string // property references, e.g. "@rating"
	As   string
}

// Apply is an APPLY expression clause.
type Apply struct {
	Expr string
	As   string
}

// AggregateQuery is the input for FT.AGGREGATE.
// Clauses are emitted in the order LOAD, GROUPBY/REDUCE, APPLY, FILTER, SORTBY, LIMIT.
type AggregateQuery struct {
	IndexName string
	Query     string
	Load      []string
	GroupBy   []string
	Reducers  []Reducer
	Applies   []Apply
	Filter    string
	SortBy    []SortKey
	Offset    int
	Limit     int
}

// AggregateRow is one FT.AGGREGATE result row keyed by property name.
type AggregateRow map[string]string
