package ports

import (
	"context"
	"time"

	"github.com/hive-corporation/responder/internal/core/domain"
)

// EndpointProvider talks to the endpoint-protection product.
type EndpointProvider interface {
	Name() string
	ListEvents(ctx context.Context, since time.Time) ([]domain.EndpointEvent, error)
	FindComputer(ctx context.Context, hostname string) (*domain.Computer, error)
	Isolate(ctx context.Context, computer domain.Computer, comment string) (*domain.IsolationResult, error)
}

// DNSActivityProvider reports DNS-layer security blocks.
type DNSActivityProvider interface {
	Name() string
	ListSecurityEvents(ctx context.Context, lookback time.Duration) ([]domain.DNSEvent, error)
}

// DomainInvestigator returns reputation and registration data for a domain.
type DomainInvestigator interface {
	Name() string
	Investigate(ctx context.Context, domainName string) (*domain.DomainReport, error)
}

type IPReputationProvider interface {
	Name() string
	Lookup(ctx context.Context, ip string) (*domain.IPReputation, error)
}
