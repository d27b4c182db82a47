package gormrepos

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/safisha/backend/core"
	"github.com/safisha/backend/core/staff"
)

var employeeOrderColumns = map[string]string{
	"name":        "name",
	"email":       "email",
	"hourly_rate": "hourly_rate",
	"is_active":   "is_active",
	"last_login":  "last_login",
	"created_at":  "created_at",
}

type employeeRepository struct {
	db *gorm.DB
}

var _ staff.Repository = (*employeeRepository)(nil) // interface compliance check

func NewEmployeeRepository(db *gorm.DB) *employeeRepository {
	return &employeeRepository{db: db}
}

// trapNotFoundErr maps gorm's "record not found" to staff.ErrNotFound
func (repo employeeRepository) trapNotFoundErr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return staff.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo employeeRepository) CheckEmailUniqueness(ctx context.Context, companyID, email string, excludedEmployees ...staff.Employee) error {
	q := repo.db.WithContext(ctx).Model(&staff.Employee{}).
		Where("company_id = ? AND LOWER(email) = LOWER(?)", companyID, email)
	if len(excludedEmployees) > 0 {
		ids := make([]string, 0, len(excludedEmployees))
		for _, emp := range excludedEmployees {
			ids = append(ids, emp.ID)
		}
		q = q.Where("id NOT IN ?", ids)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return errors.Wrap(err, "checking employee uniqueness")
	}
	if count > 0 {
		return staff.ErrEmailExists
	}
	return nil
}

func (repo employeeRepository) CreateEmployee(ctx context.Context, emp staff.Employee) (staff.Employee, error) {
	emp.ID = uuid.New().String()
	if err := repo.db.WithContext(ctx).Create(&emp).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return staff.Employee{}, staff.ErrEmailExists
		}
		return staff.Employee{}, errors.Wrap(err, "inserting employee")
	}
	return emp, nil
}

func (repo employeeRepository) GetEmployeeByID(ctx context.Context, id string) (staff.Employee, error) {
	if !validUUID(id) {
		return staff.Employee{}, staff.ErrNotFound
	}
	var emp staff.Employee
	if err := repo.db.WithContext(ctx).First(&emp, "id = ?", id).Error; err != nil {
		return staff.Employee{}, repo.trapNotFoundErr(err, "finding employee by ID")
	}
	return emp, nil
}

func (repo employeeRepository) FindEmployeesByEmail(ctx context.Context, email string) ([]staff.Employee, error) {
	var employees []staff.Employee
	err := repo.db.WithContext(ctx).
		Where("LOWER(email) = LOWER(?)", email).
		Order("created_at").
		Find(&employees).Error
	if err != nil {
		return nil, errors.Wrap(err, "finding employees by email")
	}
	return employees, nil
}

func (repo employeeRepository) FilterEmployees(ctx context.Context, companyID string, filter staff.QueryFilter, orderings []core.DBOrdering) ([]staff.Employee, error) {
	q := repo.db.WithContext(ctx).Where("company_id = ?", companyID)

	// employees with Name or Email matching the search keyword
	q = search(q, filter.Search, "name", "email")

	// employees with any role that starts with any of the provided roles;
	// roles are stored as a JSON array so every element starts with a quote
	if len(filter.Roles) > 0 {
		conds := make([]string, 0, len(filter.Roles))
		args := make([]interface{}, 0, len(filter.Roles))
		for _, role := range filter.Roles {
			conds = append(conds, "roles LIKE ?")
			args = append(args, `%"`+role+`%`)
		}
		q = q.Where(strings.Join(conds, " OR "), args...)
	}

	if filter.IsActive != nil {
		q = q.Where("is_active = ?", *filter.IsActive)
	}
	if !filter.CreatedFrom.IsZero() {
		q = q.Where("created_at >= ?", filter.CreatedFrom.UTC())
	}
	if !filter.CreatedTo.IsZero() {
		q = q.Where("created_at <= ?", filter.CreatedTo.UTC())
	}

	q = orderBy(q, orderings, employeeOrderColumns)

	var employees []staff.Employee
	if err := q.Find(&employees).Error; err != nil {
		return nil, errors.Wrap(err, "querying employees")
	}
	return employees, nil
}

func (repo employeeRepository) UpdateEmployee(ctx context.Context, emp staff.Employee) (staff.Employee, error) {
	if err := repo.db.WithContext(ctx).Save(&emp).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return staff.Employee{}, staff.ErrEmailExists
		}
		return staff.Employee{}, errors.Wrap(err, "updating employee")
	}
	return emp, nil
}

func (repo employeeRepository) DeleteEmployeesByID(ctx context.Context, companyID string, ids ...string) error {
	err := repo.db.WithContext(ctx).
		Where("company_id = ? AND id IN ?", companyID, ids).
		Delete(&staff.Employee{}).Error
	return errors.Wrap(err, "deleting employees")
}
