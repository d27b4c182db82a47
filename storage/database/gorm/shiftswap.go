package gormrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/safisha/backend/core"
	"github.com/safisha/backend/core/job"
	"github.com/safisha/backend/core/shiftswap"
)

var swapOrderColumns = map[string]string{
	"status":     "status",
	"created_at": "created_at",
}

type shiftswapRepository struct {
	db *gorm.DB
}

var _ shiftswap.Repository = (*shiftswapRepository)(nil) // interface compliance check

func NewShiftswapRepository(db *gorm.DB) *shiftswapRepository {
	return &shiftswapRepository{db: db}
}

func (repo shiftswapRepository) trapNotFoundErr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shiftswap.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo shiftswapRepository) CreateSwap(ctx context.Context, s shiftswap.Swap) (shiftswap.Swap, error) {
	s.ID = uuid.New().String()
	if err := repo.db.WithContext(ctx).Create(&s).Error; err != nil {
		return shiftswap.Swap{}, errors.Wrap(err, "inserting shift swap")
	}
	return s, nil
}

func (repo shiftswapRepository) GetSwapByID(ctx context.Context, id string) (shiftswap.Swap, error) {
	if !validUUID(id) {
		return shiftswap.Swap{}, shiftswap.ErrNotFound
	}
	var s shiftswap.Swap
	if err := repo.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return shiftswap.Swap{}, repo.trapNotFoundErr(err, "finding shift swap by ID")
	}
	return s, nil
}

func (repo shiftswapRepository) FilterSwaps(ctx context.Context, companyID string, filter shiftswap.QueryFilter, orderings []core.DBOrdering) ([]shiftswap.Swap, error) {
	q := repo.db.WithContext(ctx).Where("company_id = ?", companyID)

	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.JobID != "" {
		q = q.Where("job_id = ?", filter.JobID)
	}
	// swaps the employee sent or received
	if filter.EmployeeID != "" {
		q = q.Where("(from_employee_id = ? OR to_employee_id = ?)", filter.EmployeeID, filter.EmployeeID)
	}

	q = orderBy(q, orderings, swapOrderColumns)

	var swaps []shiftswap.Swap
	if err := q.Find(&swaps).Error; err != nil {
		return nil, errors.Wrap(err, "querying shift swaps")
	}
	return swaps, nil
}

func (repo shiftswapRepository) UpdateSwap(ctx context.Context, s shiftswap.Swap) (shiftswap.Swap, error) {
	if err := repo.db.WithContext(ctx).Save(&s).Error; err != nil {
		return shiftswap.Swap{}, errors.Wrap(err, "updating shift swap")
	}
	return s, nil
}

func (repo shiftswapRepository) HasPendingSwap(ctx context.Context, jobID, fromEmployeeID string) (bool, error) {
	var count int64
	err := repo.db.WithContext(ctx).Model(&shiftswap.Swap{}).
		Where("job_id = ? AND from_employee_id = ? AND status = ?", jobID, fromEmployeeID, shiftswap.StatusPending).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "checking pending shift swaps")
	}
	return count > 0, nil
}

func (repo shiftswapRepository) AcceptSwap(ctx context.Context, s shiftswap.Swap) (shiftswap.Swap, error) {
	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&s).Error; err != nil {
			return errors.Wrap(err, "updating shift swap")
		}

		err := tx.Model(&job.Assignment{}).
			Where("job_id = ? AND employee_id = ?", s.JobID, s.FromEmployeeID).
			Update("employee_id", s.ToEmployeeID).Error
		if err != nil {
			return errors.Wrap(err, "reassigning job")
		}

		// the requester's other pending swaps for the job are now moot
		err = tx.Model(&shiftswap.Swap{}).
			Where("job_id = ? AND from_employee_id = ? AND status = ? AND id <> ?",
				s.JobID, s.FromEmployeeID, shiftswap.StatusPending, s.ID).
			Update("status", shiftswap.StatusCancelled).Error
		return errors.Wrap(err, "cancelling sibling swaps")
	})
	if err != nil {
		return shiftswap.Swap{}, err
	}
	return s, nil
}
