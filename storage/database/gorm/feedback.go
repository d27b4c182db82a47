package gormrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/safisha/backend/core"
	"github.com/safisha/backend/core/feedback"
)

var feedbackOrderColumns = map[string]string{
	"rating":       "rating",
	"submitted_at": "submitted_at",
	"created_at":   "created_at",
}

type feedbackRepository struct {
	db *gorm.DB
}

var _ feedback.Repository = (*feedbackRepository)(nil) // interface compliance check

func NewFeedbackRepository(db *gorm.DB) *feedbackRepository {
	return &feedbackRepository{db: db}
}

func (repo feedbackRepository) trapNotFoundErr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return feedback.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo feedbackRepository) CreateFeedback(ctx context.Context, f feedback.Feedback) (feedback.Feedback, error) {
	f.ID = uuid.New().String()
	if err := repo.db.WithContext(ctx).Create(&f).Error; err != nil {
		return feedback.Feedback{}, errors.Wrap(err, "inserting feedback")
	}
	return f, nil
}

func (repo feedbackRepository) GetFeedbackByToken(ctx context.Context, token string) (feedback.Feedback, error) {
	if token == "" {
		return feedback.Feedback{}, feedback.ErrNotFound
	}
	var f feedback.Feedback
	if err := repo.db.WithContext(ctx).First(&f, "token = ?", token).Error; err != nil {
		return feedback.Feedback{}, repo.trapNotFoundErr(err, "finding feedback by token")
	}
	return f, nil
}

func (repo feedbackRepository) GetFeedbackByJobID(ctx context.Context, jobID string) (feedback.Feedback, error) {
	if !validUUID(jobID) {
		return feedback.Feedback{}, feedback.ErrNotFound
	}
	var f feedback.Feedback
	if err := repo.db.WithContext(ctx).First(&f, "job_id = ?", jobID).Error; err != nil {
		return feedback.Feedback{}, repo.trapNotFoundErr(err, "finding feedback by job")
	}
	return f, nil
}

func (repo feedbackRepository) FilterFeedback(ctx context.Context, companyID string, filter feedback.QueryFilter, orderings []core.DBOrdering) ([]feedback.Feedback, error) {
	q := repo.db.WithContext(ctx).Where("company_id = ?", companyID)

	if filter.Rating != nil {
		q = q.Where("rating = ?", *filter.Rating)
	}
	if filter.Submitted != nil {
		if *filter.Submitted {
			q = q.Where("submitted_at IS NOT NULL")
		} else {
			q = q.Where("submitted_at IS NULL")
		}
	}
	if filter.CustomerID != "" {
		q = q.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.JobID != "" {
		q = q.Where("job_id = ?", filter.JobID)
	}

	q = orderBy(q, orderings, feedbackOrderColumns)

	var items []feedback.Feedback
	if err := q.Find(&items).Error; err != nil {
		return nil, errors.Wrap(err, "querying feedback")
	}
	return items, nil
}

func (repo feedbackRepository) UpdateFeedback(ctx context.Context, f feedback.Feedback) (feedback.Feedback, error) {
	if err := repo.db.WithContext(ctx).Save(&f).Error; err != nil {
		return feedback.Feedback{}, errors.Wrap(err, "updating feedback")
	}
	return f, nil
}
