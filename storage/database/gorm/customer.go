package gormrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/safisha/backend/core"
	"github.com/safisha/backend/core/billing"
	"github.com/safisha/backend/core/customer"
	"github.com/safisha/backend/core/job"
)

var customerOrderColumns = map[string]string{
	"name":       "name",
	"email":      "email",
	"city":       "city",
	"is_active":  "is_active",
	"created_at": "created_at",
}

type customerRepository struct {
	db *gorm.DB
}

var _ customer.Repository = (*customerRepository)(nil) // interface compliance check

func NewCustomerRepository(db *gorm.DB) *customerRepository {
	return &customerRepository{db: db}
}

// trapNotFoundErr maps gorm's "record not found" to customer.ErrNotFound
func (repo customerRepository) trapNotFoundErr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return customer.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo customerRepository) CheckEmailUniqueness(ctx context.Context, companyID, email string, excludedCustomers ...customer.Customer) error {
	q := repo.db.WithContext(ctx).Model(&customer.Customer{}).
		Where("company_id = ? AND LOWER(email) = LOWER(?)", companyID, email)
	if len(excludedCustomers) > 0 {
		ids := make([]string, 0, len(excludedCustomers))
		for _, cust := range excludedCustomers {
			ids = append(ids, cust.ID)
		}
		q = q.Where("id NOT IN ?", ids)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return errors.Wrap(err, "checking customer uniqueness")
	}
	if count > 0 {
		return customer.ErrEmailExists
	}
	return nil
}

func (repo customerRepository) CreateCustomer(ctx context.Context, cust customer.Customer) (customer.Customer, error) {
	cust.ID = uuid.New().String()
	if err := repo.db.WithContext(ctx).Create(&cust).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return customer.Customer{}, customer.ErrEmailExists
		}
		return customer.Customer{}, errors.Wrap(err, "inserting customer")
	}
	return cust, nil
}

func (repo customerRepository) GetCustomerByID(ctx context.Context, id string) (customer.Customer, error) {
	if !validUUID(id) {
		return customer.Customer{}, customer.ErrNotFound
	}
	var cust customer.Customer
	if err := repo.db.WithContext(ctx).First(&cust, "id = ?", id).Error; err != nil {
		return customer.Customer{}, repo.trapNotFoundErr(err, "finding customer by ID")
	}
	return cust, nil
}

func (repo customerRepository) GetCustomerByEmail(ctx context.Context, companyID, email string) (customer.Customer, error) {
	var cust customer.Customer
	err := repo.db.WithContext(ctx).
		First(&cust, "company_id = ? AND LOWER(email) = LOWER(?)", companyID, email).Error
	if err != nil {
		return customer.Customer{}, repo.trapNotFoundErr(err, "finding customer by email")
	}
	return cust, nil
}

func (repo customerRepository) FindCustomersByEmail(ctx context.Context, email string) ([]customer.Customer, error) {
	var customers []customer.Customer
	err := repo.db.WithContext(ctx).
		Where("LOWER(email) = LOWER(?) AND is_active = ?", email, true).
		Order("created_at").
		Find(&customers).Error
	if err != nil {
		return nil, errors.Wrap(err, "finding customers by email")
	}
	return customers, nil
}

func (repo customerRepository) FilterCustomers(ctx context.Context, companyID string, filter customer.QueryFilter, orderings []core.DBOrdering) ([]customer.Customer, error) {
	q := repo.db.WithContext(ctx).Where("company_id = ?", companyID)

	// customers with Name, Email or Phone matching the search keyword
	q = search(q, filter.Search, "name", "email", "phone")

	if filter.IsActive != nil {
		q = q.Where("is_active = ?", *filter.IsActive)
	}

	q = orderBy(q, orderings, customerOrderColumns)

	var customers []customer.Customer
	if err := q.Find(&customers).Error; err != nil {
		return nil, errors.Wrap(err, "querying customers")
	}
	return customers, nil
}

func (repo customerRepository) UpdateCustomer(ctx context.Context, cust customer.Customer) (customer.Customer, error) {
	if err := repo.db.WithContext(ctx).Save(&cust).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return customer.Customer{}, customer.ErrEmailExists
		}
		return customer.Customer{}, errors.Wrap(err, "updating customer")
	}
	return cust, nil
}

func (repo customerRepository) DeleteCustomerByID(ctx context.Context, companyID, id string) error {
	return repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// jobs and invoices keep their history; such customers are
		// deactivated instead of deleted
		var count int64
		if err := tx.Model(&job.Job{}).Where("customer_id = ?", id).Count(&count).Error; err != nil {
			return errors.Wrap(err, "checking customer jobs")
		}
		if count > 0 {
			return customer.ErrHasRecords
		}
		if err := tx.Model(&billing.Invoice{}).Where("customer_id = ?", id).Count(&count).Error; err != nil {
			return errors.Wrap(err, "checking customer invoices")
		}
		if count > 0 {
			return customer.ErrHasRecords
		}

		err := tx.Where("company_id = ? AND id = ?", companyID, id).Delete(&customer.Customer{}).Error
		return errors.Wrap(err, "deleting customer")
	})
}
