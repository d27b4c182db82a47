package plan

import (
	"context"
	"errors"
	"time"

	"github.com/safisha/backend/core"
)

var (
	// errors
	ErrNotFound   = errors.New("plan not found")
	ErrNameExists = errors.New("a plan with this name already exists")
)

type (
	Repository interface {
		CheckNameUniqueness(ctx context.Context, companyID, name string, excludedPlans ...Plan) error
		CreatePlan(ctx context.Context, p Plan) (Plan, error)
		GetPlanByID(ctx context.Context, id string) (Plan, error)
		FilterPlans(ctx context.Context, companyID string, filter QueryFilter, orderings []core.DBOrdering) ([]Plan, error)
		UpdatePlan(ctx context.Context, p Plan) (Plan, error)
		DeletePlanByID(ctx context.Context, companyID, id string) error
	}

	ServiceInterface interface {
		CheckUniqueness(ctx context.Context, companyID, name string, excludedPlans ...Plan) error
		Create(ctx context.Context, companyID string, np NewPlan) (Plan, error)
		Query(ctx context.Context, companyID string, filter *QueryFilter, orderings []core.DBOrdering) ([]Plan, error)
		GetByID(ctx context.Context, id string) (Plan, error)
		Update(ctx context.Context, id string, up UpdatePlan) (Plan, error)
		Delete(ctx context.Context, companyID, id string) error
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

func (svc *Service) CheckUniqueness(ctx context.Context, companyID, name string, excludedPlans ...Plan) error {
	if err := svc.repo.CheckNameUniqueness(ctx, companyID, name, excludedPlans...); err != nil {
		if err == ErrNameExists {
			return core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, companyID string, np NewPlan) (Plan, error) {
	now := time.Now().UTC()
	p := Plan{
		CompanyID:        companyID,
		Name:             np.Name,
		Description:      np.Description,
		Tasks:            np.Tasks,
		BasePrice:        np.BasePrice,
		EstimatedMinutes: sumMinutes(np.Tasks),
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	return svc.repo.CreatePlan(ctx, p)
}

func (svc *Service) Query(ctx context.Context, companyID string, filter *QueryFilter, orderings []core.DBOrdering) ([]Plan, error) {
	return svc.repo.FilterPlans(ctx, companyID, *filter, orderings)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Plan, error) {
	return svc.repo.GetPlanByID(ctx, id)
}

func (svc *Service) Update(ctx context.Context, id string, up UpdatePlan) (Plan, error) {
	p, err := svc.repo.GetPlanByID(ctx, id)
	if err != nil {
		return Plan{}, err
	}

	p.Name = up.Name
	if up.Description != "" {
		p.Description = up.Description
	}
	if up.Tasks != nil {
		p.Tasks = up.Tasks
		p.EstimatedMinutes = sumMinutes(up.Tasks)
	}
	if up.BasePrice != nil {
		p.BasePrice = *up.BasePrice
	}
	if up.IsActive != nil {
		p.IsActive = *up.IsActive
	}
	p.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdatePlan(ctx, p)
}

func (svc *Service) Delete(ctx context.Context, companyID, id string) error {
	return svc.repo.DeletePlanByID(ctx, companyID, id)
}
