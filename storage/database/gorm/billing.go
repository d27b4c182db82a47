package gormrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/safisha/backend/core"
	"github.com/safisha/backend/core/billing"
	"github.com/safisha/backend/core/company"
)

var invoiceOrderColumns = map[string]string{
	"number":     "number",
	"status":     "status",
	"issue_date": "issue_date",
	"due_date":   "due_date",
	"total":      "total",
	"created_at": "created_at",
}

var paymentOrderColumns = map[string]string{
	"amount":     "amount",
	"method":     "method",
	"paid_at":    "paid_at",
	"created_at": "created_at",
}

type billingRepository struct {
	db *gorm.DB
}

var _ billing.Repository = (*billingRepository)(nil) // interface compliance check

func NewBillingRepository(db *gorm.DB) *billingRepository {
	return &billingRepository{db: db}
}

func (repo billingRepository) trapNotFoundErr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return billing.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo billingRepository) CreateInvoice(ctx context.Context, inv billing.Invoice) (billing.Invoice, error) {
	inv.ID = uuid.New().String()
	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// serialize number allocation per company; sqlite transactions are
		// already exclusive writers
		if tx.Dialector.Name() == "postgres" {
			var comp company.Company
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&comp, "id = ?", inv.CompanyID).Error
			if err != nil {
				return errors.Wrap(err, "locking company for invoice numbering")
			}
		}

		var lastNumber int64
		err := tx.Model(&billing.Invoice{}).
			Where("company_id = ?", inv.CompanyID).
			Select("COALESCE(MAX(number), 0)").
			Scan(&lastNumber).Error
		if err != nil {
			return errors.Wrap(err, "allocating invoice number")
		}
		inv.Number = lastNumber + 1

		err = tx.Omit(clause.Associations).Create(&inv).Error
		return errors.Wrap(err, "inserting invoice")
	})
	if err != nil {
		return billing.Invoice{}, err
	}
	return inv, nil
}

func (repo billingRepository) GetInvoiceByID(ctx context.Context, id string) (billing.Invoice, error) {
	if !validUUID(id) {
		return billing.Invoice{}, billing.ErrNotFound
	}
	var inv billing.Invoice
	err := repo.db.WithContext(ctx).
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("paid_at") }).
		First(&inv, "id = ?", id).Error
	if err != nil {
		return billing.Invoice{}, repo.trapNotFoundErr(err, "finding invoice by ID")
	}
	return inv, nil
}

func (repo billingRepository) FilterInvoices(ctx context.Context, companyID string, filter billing.QueryFilter, orderings []core.DBOrdering) ([]billing.Invoice, error) {
	q := repo.db.WithContext(ctx).Where("company_id = ?", companyID)

	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.CustomerID != "" {
		q = q.Where("customer_id = ?", filter.CustomerID)
	}
	if !filter.IssueFrom.IsZero() {
		q = q.Where("issue_date >= ?", filter.IssueFrom.UTC())
	}
	if !filter.IssueTo.IsZero() {
		q = q.Where("issue_date <= ?", filter.IssueTo.UTC())
	}
	if filter.Overdue != nil {
		now := time.Now().UTC()
		cond := repo.db.Where("status = ? AND due_date IS NOT NULL AND due_date < ?", billing.StatusSent, now)
		if *filter.Overdue {
			q = q.Where(cond)
		} else {
			q = q.Not(cond)
		}
	}

	q = orderBy(q, orderings, invoiceOrderColumns)

	var invoices []billing.Invoice
	if err := q.Preload("Payments").Find(&invoices).Error; err != nil {
		return nil, errors.Wrap(err, "querying invoices")
	}
	return invoices, nil
}

func (repo billingRepository) UpdateInvoice(ctx context.Context, inv billing.Invoice) (billing.Invoice, error) {
	if err := repo.db.WithContext(ctx).Omit(clause.Associations).Save(&inv).Error; err != nil {
		return billing.Invoice{}, errors.Wrap(err, "updating invoice")
	}
	return inv, nil
}

func (repo billingRepository) DeleteInvoiceByID(ctx context.Context, companyID, id string) error {
	err := repo.db.WithContext(ctx).
		Where("company_id = ? AND id = ?", companyID, id).
		Delete(&billing.Invoice{}).Error
	return errors.Wrap(err, "deleting invoice")
}

func (repo billingRepository) CreatePayment(ctx context.Context, p billing.Payment, inv billing.Invoice) (billing.Payment, error) {
	p.ID = uuid.New().String()
	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&p).Error; err != nil {
			return errors.Wrap(err, "inserting payment")
		}
		err := tx.Omit(clause.Associations).Save(&inv).Error
		return errors.Wrap(err, "updating invoice")
	})
	if err != nil {
		return billing.Payment{}, err
	}
	return p, nil
}

func (repo billingRepository) GetPaymentByID(ctx context.Context, id string) (billing.Payment, error) {
	if !validUUID(id) {
		return billing.Payment{}, billing.ErrPaymentNotFound
	}
	var p billing.Payment
	if err := repo.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return billing.Payment{}, billing.ErrPaymentNotFound
		}
		return billing.Payment{}, errors.Wrap(err, "finding payment by ID")
	}
	return p, nil
}

func (repo billingRepository) FilterPayments(ctx context.Context, companyID string, filter billing.PaymentQueryFilter, orderings []core.DBOrdering) ([]billing.Payment, error) {
	q := repo.db.WithContext(ctx).Where("company_id = ?", companyID)

	if filter.InvoiceID != "" {
		q = q.Where("invoice_id = ?", filter.InvoiceID)
	}
	if filter.Method != "" {
		q = q.Where("method = ?", filter.Method)
	}
	if !filter.From.IsZero() {
		q = q.Where("paid_at >= ?", filter.From.UTC())
	}
	if !filter.To.IsZero() {
		q = q.Where("paid_at <= ?", filter.To.UTC())
	}

	q = orderBy(q, orderings, paymentOrderColumns)

	var payments []billing.Payment
	if err := q.Find(&payments).Error; err != nil {
		return nil, errors.Wrap(err, "querying payments")
	}
	return payments, nil
}

func (repo billingRepository) DeletePayment(ctx context.Context, p billing.Payment, inv billing.Invoice) error {
	return repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&billing.Payment{}, "id = ?", p.ID).Error; err != nil {
			return errors.Wrap(err, "deleting payment")
		}
		err := tx.Omit(clause.Associations).Save(&inv).Error
		return errors.Wrap(err, "updating invoice")
	})
}
