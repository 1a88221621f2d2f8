package services

import (
	"context"
	"fmt"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthService struct {
	checks map[string]Pinger
}

func NewHealthService() *HealthService {
	return &HealthService{checks: map[string]Pinger{}}
}

// AddCheck registers a dependency that must answer Ping for the service
// to report healthy.
func (s *HealthService) AddCheck(name string, p Pinger) *HealthService {
	s.checks[name] = p
	return s
}

func (s *HealthService) Health(ctx context.Context) error {
	for name, p := range s.checks {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
