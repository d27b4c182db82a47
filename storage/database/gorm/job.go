package gormrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/safisha/backend/core"
	"github.com/safisha/backend/core/job"
	"github.com/safisha/backend/core/shiftswap"
)

var jobOrderColumns = map[string]string{
	"title":           "title",
	"status":          "status",
	"scheduled_start": "scheduled_start",
	"created_at":      "created_at",
}

type jobRepository struct {
	db *gorm.DB
}

var _ job.Repository = (*jobRepository)(nil) // interface compliance check

func NewJobRepository(db *gorm.DB) *jobRepository {
	return &jobRepository{db: db}
}

func (repo jobRepository) trapNotFoundErr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return job.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo jobRepository) CreateJob(ctx context.Context, j job.Job, assignments []job.Assignment) (job.Job, error) {
	j.ID = uuid.New().String()
	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&j).Error; err != nil {
			return errors.Wrap(err, "inserting job")
		}
		for i := range assignments {
			assignments[i].ID = uuid.New().String()
			assignments[i].JobID = j.ID
		}
		if len(assignments) > 0 {
			if err := tx.Create(&assignments).Error; err != nil {
				return errors.Wrap(err, "inserting job assignments")
			}
		}
		return nil
	})
	if err != nil {
		return job.Job{}, err
	}
	j.Assignments = assignments
	return j, nil
}

func (repo jobRepository) GetJobByID(ctx context.Context, id string) (job.Job, error) {
	if !validUUID(id) {
		return job.Job{}, job.ErrNotFound
	}
	var j job.Job
	err := repo.db.WithContext(ctx).
		Preload("Assignments").
		Preload("CheckEvents", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") }).
		First(&j, "id = ?", id).Error
	if err != nil {
		return job.Job{}, repo.trapNotFoundErr(err, "finding job by ID")
	}
	return j, nil
}

func (repo jobRepository) FilterJobs(ctx context.Context, companyID string, filter job.QueryFilter, orderings []core.DBOrdering) ([]job.Job, error) {
	q := repo.db.WithContext(ctx).Where("company_id = ?", companyID)

	q = search(q, filter.Search, "title", "address", "notes")

	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.CustomerID != "" {
		q = q.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.EmployeeID != "" {
		q = q.Where("id IN (SELECT job_id FROM assignments WHERE employee_id = ?)", filter.EmployeeID)
	}
	if !filter.From.IsZero() {
		q = q.Where("scheduled_start >= ?", filter.From.UTC())
	}
	if !filter.To.IsZero() {
		q = q.Where("scheduled_start <= ?", filter.To.UTC())
	}

	q = orderBy(q, orderings, jobOrderColumns)

	var jobs []job.Job
	if err := q.Preload("Assignments").Find(&jobs).Error; err != nil {
		return nil, errors.Wrap(err, "querying jobs")
	}
	return jobs, nil
}

func (repo jobRepository) UpdateJob(ctx context.Context, j job.Job) (job.Job, error) {
	if err := repo.db.WithContext(ctx).Omit(clause.Associations).Save(&j).Error; err != nil {
		return job.Job{}, errors.Wrap(err, "updating job")
	}
	return j, nil
}

func (repo jobRepository) UpdateJobWithAssignments(ctx context.Context, j job.Job, addEmployeeIDs, removeEmployeeIDs []string) (job.Job, error) {
	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(&j).Error; err != nil {
			return errors.Wrap(err, "updating job")
		}
		if len(removeEmployeeIDs) > 0 {
			err := tx.Where("job_id = ? AND employee_id IN ?", j.ID, removeEmployeeIDs).
				Delete(&job.Assignment{}).Error
			if err != nil {
				return errors.Wrap(err, "removing job assignments")
			}
		}
		if len(addEmployeeIDs) > 0 {
			assignments := make([]job.Assignment, 0, len(addEmployeeIDs))
			for _, employeeID := range addEmployeeIDs {
				assignments = append(assignments, job.Assignment{
					ID:         uuid.New().String(),
					JobID:      j.ID,
					EmployeeID: employeeID,
				})
			}
			if err := tx.Create(&assignments).Error; err != nil {
				return errors.Wrap(err, "adding job assignments")
			}
		}
		return nil
	})
	if err != nil {
		return job.Job{}, err
	}
	return repo.GetJobByID(ctx, j.ID)
}

func (repo jobRepository) DeleteJobByID(ctx context.Context, companyID, id string) error {
	return repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("job_id = ?", id).Delete(&job.CheckEvent{}).Error; err != nil {
			return errors.Wrap(err, "deleting job check events")
		}
		if err := tx.Where("job_id = ?", id).Delete(&job.Assignment{}).Error; err != nil {
			return errors.Wrap(err, "deleting job assignments")
		}
		if err := tx.Where("job_id = ?", id).Delete(&shiftswap.Swap{}).Error; err != nil {
			return errors.Wrap(err, "deleting job swap requests")
		}
		err := tx.Where("company_id = ? AND id = ?", companyID, id).Delete(&job.Job{}).Error
		return errors.Wrap(err, "deleting job")
	})
}

func (repo jobRepository) RecordCheckEvent(ctx context.Context, ev job.CheckEvent, j job.Job) (job.CheckEvent, error) {
	ev.ID = uuid.New().String()
	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&ev).Error; err != nil {
			return errors.Wrap(err, "inserting check event")
		}
		err := tx.Omit(clause.Associations).Save(&j).Error
		return errors.Wrap(err, "updating job")
	})
	if err != nil {
		return job.CheckEvent{}, err
	}
	return ev, nil
}
