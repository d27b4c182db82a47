package stats

import (
	"context"
	"time"

	"github.com/safisha/backend/core"
)

type (
	Repository interface {
		// GetDashboard computes every dashboard aggregate for the company as
		// of the given instant.
		GetDashboard(ctx context.Context, companyID string, now time.Time) (Dashboard, error)
	}

	ServiceInterface interface {
		Dashboard(ctx context.Context, companyID string) (Dashboard, error)
	}

	Service struct {
		repo   Repository
		logger core.Logger
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (svc *Service) Dashboard(ctx context.Context, companyID string) (Dashboard, error) {
	return svc.repo.GetDashboard(ctx, companyID, time.Now().UTC())
}
