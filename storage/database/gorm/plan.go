package gormrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/safisha/backend/core"
	"github.com/safisha/backend/core/plan"
)

var planOrderColumns = map[string]string{
	"name":       "name",
	"base_rate":  "base_rate",
	"is_active":  "is_active",
	"created_at": "created_at",
}

type planRepository struct {
	db *gorm.DB
}

var _ plan.Repository = (*planRepository)(nil) // interface compliance check

func NewPlanRepository(db *gorm.DB) *planRepository {
	return &planRepository{db: db}
}

func (repo planRepository) trapNotFoundErr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return plan.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo planRepository) CheckNameUniqueness(ctx context.Context, companyID, name string, excludedPlans ...plan.Plan) error {
	q := repo.db.WithContext(ctx).Model(&plan.Plan{}).
		Where("company_id = ? AND LOWER(name) = LOWER(?)", companyID, name)
	if len(excludedPlans) > 0 {
		ids := make([]string, 0, len(excludedPlans))
		for _, p := range excludedPlans {
			ids = append(ids, p.ID)
		}
		q = q.Where("id NOT IN ?", ids)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return errors.Wrap(err, "checking plan uniqueness")
	}
	if count > 0 {
		return plan.ErrNameExists
	}
	return nil
}

func (repo planRepository) CreatePlan(ctx context.Context, p plan.Plan) (plan.Plan, error) {
	p.ID = uuid.New().String()
	if err := repo.db.WithContext(ctx).Create(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return plan.Plan{}, plan.ErrNameExists
		}
		return plan.Plan{}, errors.Wrap(err, "inserting plan")
	}
	return p, nil
}

func (repo planRepository) GetPlanByID(ctx context.Context, id string) (plan.Plan, error) {
	if !validUUID(id) {
		return plan.Plan{}, plan.ErrNotFound
	}
	var p plan.Plan
	if err := repo.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return plan.Plan{}, repo.trapNotFoundErr(err, "finding plan by ID")
	}
	return p, nil
}

func (repo planRepository) FilterPlans(ctx context.Context, companyID string, filter plan.QueryFilter, orderings []core.DBOrdering) ([]plan.Plan, error) {
	q := repo.db.WithContext(ctx).Where("company_id = ?", companyID)

	q = search(q, filter.Search, "name", "description")

	if filter.IsActive != nil {
		q = q.Where("is_active = ?", *filter.IsActive)
	}

	q = orderBy(q, orderings, planOrderColumns)

	var plans []plan.Plan
	if err := q.Find(&plans).Error; err != nil {
		return nil, errors.Wrap(err, "querying plans")
	}
	return plans, nil
}

func (repo planRepository) UpdatePlan(ctx context.Context, p plan.Plan) (plan.Plan, error) {
	if err := repo.db.WithContext(ctx).Save(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return plan.Plan{}, plan.ErrNameExists
		}
		return plan.Plan{}, errors.Wrap(err, "updating plan")
	}
	return p, nil
}

func (repo planRepository) DeletePlanByID(ctx context.Context, companyID, id string) error {
	err := repo.db.WithContext(ctx).
		Where("company_id = ? AND id = ?", companyID, id).
		Delete(&plan.Plan{}).Error
	return errors.Wrap(err, "deleting plan")
}
