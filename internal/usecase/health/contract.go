package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// ComponentChecker checks one dependent component, e.g. a search index.
type ComponentChecker interface {
	HealthCheck(ctx context.Context) error
}
