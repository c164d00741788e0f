package health

import (
	"context"
	"sort"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	db         DBPinger
	components map[string]ComponentChecker
}

// New creates a Service that always checks the database.
func New(db DBPinger) *Service {
	return &Service{db: db, components: make(map[string]ComponentChecker)}
}

// WithComponent adds a named component check. nil checkers are ignored.
func (s *Service) WithComponent(name string, c ComponentChecker) *Service {
	if c != nil {
		s.components[name] = c
	}
	return s
}

// Check runs health checks against all components. Components are skipped
// while the database is unreachable.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, len(s.components)+1)

	if err := s.db.Ping(ctx); err != nil {
		checks["database"] = CheckError
		return Report{Status: Degraded, Checks: checks}
	}
	checks["database"] = CheckOK

	names := make([]string, 0, len(s.components))
	for name := range s.components {
		names = append(names, name)
	}
	sort.Strings(names)

	status := Healthy
	for _, name := range names {
		if err := s.components[name].HealthCheck(ctx); err != nil {
			checks[name] = CheckError
			status = Degraded
			continue
		}
		checks[name] = CheckOK
	}

	return Report{Status: status, Checks: checks}
}
