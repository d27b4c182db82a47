package gormrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/safisha/backend/core"
	"github.com/safisha/backend/core/timeoff"
)

var timeoffOrderColumns = map[string]string{
	"start_date": "start_date",
	"end_date":   "end_date",
	"status":     "status",
	"created_at": "created_at",
}

type timeoffRepository struct {
	db *gorm.DB
}

var _ timeoff.Repository = (*timeoffRepository)(nil) // interface compliance check

func NewTimeoffRepository(db *gorm.DB) *timeoffRepository {
	return &timeoffRepository{db: db}
}

func (repo timeoffRepository) trapNotFoundErr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return timeoff.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo timeoffRepository) CreateRequest(ctx context.Context, r timeoff.Request) (timeoff.Request, error) {
	r.ID = uuid.New().String()
	if err := repo.db.WithContext(ctx).Create(&r).Error; err != nil {
		return timeoff.Request{}, errors.Wrap(err, "inserting time-off request")
	}
	return r, nil
}

func (repo timeoffRepository) GetRequestByID(ctx context.Context, id string) (timeoff.Request, error) {
	if !validUUID(id) {
		return timeoff.Request{}, timeoff.ErrNotFound
	}
	var r timeoff.Request
	if err := repo.db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		return timeoff.Request{}, repo.trapNotFoundErr(err, "finding time-off request by ID")
	}
	return r, nil
}

func (repo timeoffRepository) FilterRequests(ctx context.Context, companyID string, filter timeoff.QueryFilter, orderings []core.DBOrdering) ([]timeoff.Request, error) {
	q := repo.db.WithContext(ctx).Where("company_id = ?", companyID)

	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.EmployeeID != "" {
		q = q.Where("employee_id = ?", filter.EmployeeID)
	}
	// a request is in range when its window intersects [From, To]
	if !filter.From.IsZero() {
		q = q.Where("end_date >= ?", filter.From.UTC())
	}
	if !filter.To.IsZero() {
		q = q.Where("start_date <= ?", filter.To.UTC())
	}

	q = orderBy(q, orderings, timeoffOrderColumns)

	var requests []timeoff.Request
	if err := q.Find(&requests).Error; err != nil {
		return nil, errors.Wrap(err, "querying time-off requests")
	}
	return requests, nil
}

func (repo timeoffRepository) UpdateRequest(ctx context.Context, r timeoff.Request) (timeoff.Request, error) {
	if err := repo.db.WithContext(ctx).Save(&r).Error; err != nil {
		return timeoff.Request{}, errors.Wrap(err, "updating time-off request")
	}
	return r, nil
}

func (repo timeoffRepository) DeleteRequestByID(ctx context.Context, companyID, id string) error {
	err := repo.db.WithContext(ctx).
		Where("company_id = ? AND id = ?", companyID, id).
		Delete(&timeoff.Request{}).Error
	return errors.Wrap(err, "deleting time-off request")
}

func (repo timeoffRepository) HasOverlap(ctx context.Context, employeeID string, start, end time.Time) (bool, error) {
	var count int64
	err := repo.db.WithContext(ctx).Model(&timeoff.Request{}).
		Where("employee_id = ? AND status IN ? AND start_date <= ? AND end_date >= ?",
			employeeID, []string{timeoff.StatusPending, timeoff.StatusApproved}, end.UTC(), start.UTC()).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "checking time-off overlap")
	}
	return count > 0, nil
}
