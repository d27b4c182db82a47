package gormrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/safisha/backend/core/company"
	"github.com/safisha/backend/core/staff"
)

type companyRepository struct {
	db *gorm.DB
}

var _ company.Repository = (*companyRepository)(nil) // interface compliance check

func NewCompanyRepository(db *gorm.DB) *companyRepository {
	return &companyRepository{db: db}
}

// trapNotFoundErr maps gorm's "record not found" to company.ErrNotFound
func (repo companyRepository) trapNotFoundErr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return company.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo companyRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedCompanies ...company.Company) error {
	q := repo.db.WithContext(ctx).Model(&company.Company{}).Where("LOWER(email) = LOWER(?)", email)
	if len(excludedCompanies) > 0 {
		ids := make([]string, 0, len(excludedCompanies))
		for _, comp := range excludedCompanies {
			ids = append(ids, comp.ID)
		}
		q = q.Where("id NOT IN ?", ids)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return errors.Wrap(err, "checking company uniqueness")
	}
	if count > 0 {
		return company.ErrEmailExists
	}
	return nil
}

func (repo companyRepository) CreateCompany(ctx context.Context, comp company.Company, owner staff.Employee) (company.Company, staff.Employee, error) {
	comp.ID = uuid.New().String()
	owner.ID = uuid.New().String()
	owner.CompanyID = comp.ID

	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&comp).Error; err != nil {
			return errors.Wrap(err, "inserting company")
		}
		if err := tx.Create(&owner).Error; err != nil {
			return errors.Wrap(err, "inserting owner")
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return company.Company{}, staff.Employee{}, company.ErrEmailExists
		}
		return company.Company{}, staff.Employee{}, err
	}
	return comp, owner, nil
}

func (repo companyRepository) GetCompanyByID(ctx context.Context, id string) (company.Company, error) {
	if !validUUID(id) {
		return company.Company{}, company.ErrNotFound
	}
	var comp company.Company
	if err := repo.db.WithContext(ctx).First(&comp, "id = ?", id).Error; err != nil {
		return company.Company{}, repo.trapNotFoundErr(err, "finding company by ID")
	}
	return comp, nil
}

func (repo companyRepository) GetCompanyByEmail(ctx context.Context, email string) (company.Company, error) {
	var comp company.Company
	if err := repo.db.WithContext(ctx).First(&comp, "LOWER(email) = LOWER(?)", email).Error; err != nil {
		return company.Company{}, repo.trapNotFoundErr(err, "finding company by email")
	}
	return comp, nil
}

func (repo companyRepository) UpdateCompany(ctx context.Context, comp company.Company) (company.Company, error) {
	if err := repo.db.WithContext(ctx).Save(&comp).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return company.Company{}, company.ErrEmailExists
		}
		return company.Company{}, errors.Wrap(err, "updating company")
	}
	return comp, nil
}
