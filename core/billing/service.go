package billing

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/safisha/backend/core"
	"github.com/safisha/backend/core/company"
	"github.com/safisha/backend/core/customer"
	"github.com/safisha/backend/core/job"
)

var (
	// errors
	ErrNotFound        = errors.New("invoice not found")
	ErrPaymentNotFound = errors.New("payment not found")

	errNotEditable   = "paid or void invoices cannot be edited"
	errDraftOnlyEdit = "only draft invoices can have items, totals or issue date changed"
	errDraftDelete   = "only draft invoices can be deleted"
	errSendState     = "only draft or sent invoices can be sent"
	errVoidState     = "only draft or sent invoices can be voided"
	errPayState      = "payments can only be recorded on sent invoices"
	errOverpay       = "payment exceeds the invoice balance"
	errNegativeTotal = "discount may not exceed subtotal plus tax"
	errUnknownCust   = "unknown customer"
	errUnknownJob    = "unknown job"
	errJobMismatch   = "job does not belong to this customer"
)

type (
	Repository interface {
		// CreateInvoice allocates the next per-company invoice number and
		// inserts the invoice in one transaction.
		CreateInvoice(ctx context.Context, inv Invoice) (Invoice, error)
		// GetInvoiceByID loads the invoice with its payments.
		GetInvoiceByID(ctx context.Context, id string) (Invoice, error)
		FilterInvoices(ctx context.Context, companyID string, filter QueryFilter, orderings []core.DBOrdering) ([]Invoice, error)
		UpdateInvoice(ctx context.Context, inv Invoice) (Invoice, error)
		DeleteInvoiceByID(ctx context.Context, companyID, id string) error
		// CreatePayment inserts the payment and saves the invoice state that
		// comes with it in one transaction.
		CreatePayment(ctx context.Context, p Payment, inv Invoice) (Payment, error)
		GetPaymentByID(ctx context.Context, id string) (Payment, error)
		FilterPayments(ctx context.Context, companyID string, filter PaymentQueryFilter, orderings []core.DBOrdering) ([]Payment, error)
		// DeletePayment removes the payment and saves the invoice state that
		// comes with it in one transaction.
		DeletePayment(ctx context.Context, p Payment, inv Invoice) error
	}

	ServiceInterface interface {
		Create(ctx context.Context, companyID string, ni NewInvoice) (Invoice, error)
		Query(ctx context.Context, companyID string, filter *QueryFilter, orderings []core.DBOrdering) ([]Invoice, error)
		GetByID(ctx context.Context, id string) (Invoice, error)
		Update(ctx context.Context, id string, ui UpdateInvoice) (Invoice, error)
		Delete(ctx context.Context, companyID, id string) error
		Send(ctx context.Context, id string) (Invoice, error)
		Void(ctx context.Context, id string) (Invoice, error)
		RecordPayment(ctx context.Context, invoiceID string, np NewPayment) (Payment, error)
		QueryPayments(ctx context.Context, companyID string, filter *PaymentQueryFilter, orderings []core.DBOrdering) ([]Payment, error)
		DeletePayment(ctx context.Context, companyID, id string) error
	}

	Service struct {
		repo      Repository
		customers customer.Repository
		companies company.Repository
		jobs      job.Repository
		mailSvc   core.EmailService
		conf      *core.Config
		logger    core.Logger
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(
	repo Repository,
	customers customer.Repository,
	companies company.Repository,
	jobs job.Repository,
	mailSvc core.EmailService,
	conf *core.Config,
	logger core.Logger,
) *Service {
	return &Service{
		repo:      repo,
		customers: customers,
		companies: companies,
		jobs:      jobs,
		mailSvc:   mailSvc,
		conf:      conf,
		logger:    logger,
	}
}

func (svc *Service) Create(ctx context.Context, companyID string, ni NewInvoice) (Invoice, error) {
	cust, err := svc.customers.GetCustomerByID(ctx, ni.CustomerID)
	if err != nil || cust.CompanyID != companyID {
		return Invoice{}, core.NewValidationError(nil, core.FieldError{Field: "customer_id", Error: errUnknownCust})
	}

	now := time.Now().UTC()
	inv := Invoice{
		CompanyID:  companyID,
		CustomerID: cust.ID,
		Status:     StatusDraft,
		IssueDate:  now,
		Items:      newItems(ni.Items),
		Discount:   decimal.Zero,
		Notes:      ni.Notes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if ni.IssueDate != nil {
		inv.IssueDate = ni.IssueDate.UTC()
	}
	if ni.DueDate != nil {
		inv.DueDate = null.TimeFrom(ni.DueDate.UTC())
	}
	if ni.Discount != nil {
		inv.Discount = *ni.Discount
	}

	if ni.JobID != "" {
		j, err := svc.jobs.GetJobByID(ctx, ni.JobID)
		if err != nil || j.CompanyID != companyID {
			return Invoice{}, core.NewValidationError(nil, core.FieldError{Field: "job_id", Error: errUnknownJob})
		}
		if j.CustomerID != cust.ID {
			return Invoice{}, core.NewValidationError(nil, core.FieldError{Field: "job_id", Error: errJobMismatch})
		}
		inv.JobID = null.StringFrom(j.ID)
	}

	if ni.TaxRate != nil {
		inv.TaxRate = *ni.TaxRate
	} else {
		comp, err := svc.companies.GetCompanyByID(ctx, companyID)
		if err != nil {
			return Invoice{}, err
		}
		inv.TaxRate = comp.TaxRate
	}

	inv.recompute()
	if inv.Total.IsNegative() {
		return Invoice{}, core.NewValidationError(nil, core.FieldError{Field: "discount", Error: errNegativeTotal})
	}
	return svc.repo.CreateInvoice(ctx, inv)
}

func (svc *Service) Query(ctx context.Context, companyID string, filter *QueryFilter, orderings []core.DBOrdering) ([]Invoice, error) {
	return svc.repo.FilterInvoices(ctx, companyID, *filter, orderings)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Invoice, error) {
	return svc.repo.GetInvoiceByID(ctx, id)
}

// Update applies a partial edit. Items, tax rate, discount and issue date can
// only change while the invoice is a draft; notes and due date can change for
// any unpaid invoice.
func (svc *Service) Update(ctx context.Context, id string, ui UpdateInvoice) (Invoice, error) {
	inv, err := svc.repo.GetInvoiceByID(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	if inv.Status == StatusPaid || inv.Status == StatusVoid {
		return Invoice{}, core.NewValidationError(errors.New(errNotEditable))
	}

	moneyEdit := ui.Items != nil || ui.TaxRate != nil || ui.Discount != nil || ui.IssueDate != nil
	if moneyEdit && inv.Status != StatusDraft {
		return Invoice{}, core.NewValidationError(errors.New(errDraftOnlyEdit))
	}

	if ui.IssueDate != nil {
		inv.IssueDate = ui.IssueDate.UTC()
	}
	if ui.DueDate != nil {
		inv.DueDate = null.TimeFrom(ui.DueDate.UTC())
	}
	if ui.Notes != "" {
		inv.Notes = ui.Notes
	}
	if ui.Items != nil {
		inv.Items = newItems(ui.Items)
	}
	if ui.TaxRate != nil {
		inv.TaxRate = *ui.TaxRate
	}
	if ui.Discount != nil {
		inv.Discount = *ui.Discount
	}
	if moneyEdit {
		inv.recompute()
		if inv.Total.IsNegative() {
			return Invoice{}, core.NewValidationError(nil, core.FieldError{Field: "discount", Error: errNegativeTotal})
		}
	}
	inv.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateInvoice(ctx, inv)
}

func (svc *Service) Delete(ctx context.Context, companyID, id string) error {
	inv, err := svc.repo.GetInvoiceByID(ctx, id)
	if err != nil {
		return err
	}
	if inv.Status != StatusDraft {
		return core.NewValidationError(errors.New(errDraftDelete))
	}
	return svc.repo.DeleteInvoiceByID(ctx, companyID, id)
}

// Send marks a draft invoice sent and emails it to the customer. Sending an
// already sent invoice re-sends the email without touching its state.
func (svc *Service) Send(ctx context.Context, id string) (Invoice, error) {
	inv, err := svc.repo.GetInvoiceByID(ctx, id)
	if err != nil {
		return Invoice{}, err
	}

	now := time.Now().UTC()
	switch inv.Status {
	case StatusDraft:
		inv.Status = StatusSent
		inv.SentAt = null.TimeFrom(now)
		if !inv.DueDate.Valid {
			inv.DueDate = null.TimeFrom(now.AddDate(0, 0, defaultDueDays))
		}
		inv.UpdatedAt = now
		if inv, err = svc.repo.UpdateInvoice(ctx, inv); err != nil {
			return Invoice{}, err
		}
	case StatusSent: // re-send
	default:
		return Invoice{}, core.NewValidationError(errors.New(errSendState))
	}

	cust, comp, err := svc.emailParties(ctx, inv)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("sending invoice %s: %v", inv.ID, err), err)
		return inv, nil
	}
	svc.sendInvoiceMail(cust, comp, inv)
	return inv, nil
}

func (svc *Service) Void(ctx context.Context, id string) (Invoice, error) {
	inv, err := svc.repo.GetInvoiceByID(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	if inv.Status != StatusDraft && inv.Status != StatusSent {
		return Invoice{}, core.NewValidationError(errors.New(errVoidState))
	}
	inv.Status = StatusVoid
	inv.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateInvoice(ctx, inv)
}

// RecordPayment adds a payment to a sent invoice. Cumulative payments may not
// exceed the invoice total; reaching it flips the invoice to paid.
func (svc *Service) RecordPayment(ctx context.Context, invoiceID string, np NewPayment) (Payment, error) {
	inv, err := svc.repo.GetInvoiceByID(ctx, invoiceID)
	if err != nil {
		return Payment{}, err
	}
	if inv.Status != StatusSent {
		return Payment{}, core.NewValidationError(errors.New(errPayState))
	}

	paid := inv.AmountPaid().Add(np.Amount)
	if paid.GreaterThan(inv.Total) {
		return Payment{}, core.NewValidationError(nil, core.FieldError{Field: "amount", Error: errOverpay})
	}

	now := time.Now().UTC()
	p := Payment{
		CompanyID: inv.CompanyID,
		InvoiceID: inv.ID,
		Amount:    np.Amount,
		Method:    np.Method,
		Reference: np.Reference,
		Note:      np.Note,
		PaidAt:    now,
		CreatedAt: now,
	}
	if np.PaidAt != nil {
		p.PaidAt = np.PaidAt.UTC()
	}
	if paid.Equal(inv.Total) {
		inv.Status = StatusPaid
		inv.PaidAt = null.TimeFrom(now)
	}
	inv.UpdatedAt = now

	if p, err = svc.repo.CreatePayment(ctx, p, inv); err != nil {
		return Payment{}, err
	}

	cust, comp, err := svc.emailParties(ctx, inv)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("sending receipt for invoice %s: %v", inv.ID, err), err)
		return p, nil
	}
	svc.sendReceiptMail(cust, comp, inv, p)
	return p, nil
}

func (svc *Service) QueryPayments(ctx context.Context, companyID string, filter *PaymentQueryFilter, orderings []core.DBOrdering) ([]Payment, error) {
	return svc.repo.FilterPayments(ctx, companyID, *filter, orderings)
}

// DeletePayment removes a payment. When that reopens the balance of a paid
// invoice, the invoice reverts to sent.
func (svc *Service) DeletePayment(ctx context.Context, companyID, id string) error {
	p, err := svc.repo.GetPaymentByID(ctx, id)
	if err != nil {
		return err
	}
	if p.CompanyID != companyID {
		return ErrPaymentNotFound
	}
	inv, err := svc.repo.GetInvoiceByID(ctx, p.InvoiceID)
	if err != nil {
		return err
	}
	if inv.Status == StatusPaid && inv.AmountPaid().Sub(p.Amount).LessThan(inv.Total) {
		inv.Status = StatusSent
		inv.PaidAt = null.Time{}
	}
	inv.UpdatedAt = time.Now().UTC()
	return svc.repo.DeletePayment(ctx, p, inv)
}

func (svc *Service) emailParties(ctx context.Context, inv Invoice) (customer.Customer, company.Company, error) {
	cust, err := svc.customers.GetCustomerByID(ctx, inv.CustomerID)
	if err != nil {
		return customer.Customer{}, company.Company{}, err
	}
	comp, err := svc.companies.GetCompanyByID(ctx, inv.CompanyID)
	if err != nil {
		return customer.Customer{}, company.Company{}, err
	}
	return cust, comp, nil
}

func newItems(items []NewInvoiceItem) []InvoiceItem {
	out := make([]InvoiceItem, 0, len(items))
	for _, item := range items {
		out = append(out, InvoiceItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}
	return out
}

func (svc *Service) sendInvoiceMail(cust customer.Customer, comp company.Company, inv Invoice) {
	dueDate := ""
	if inv.DueDate.Valid {
		dueDate = inv.DueDate.Time.Format("Jan 2, 2006")
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: cust.Name, Address: cust.Email}},
		Subject:      fmt.Sprintf("Invoice #%d from %s", inv.Number, comp.Name),
		TemplateName: "invoice",
		TemplateData: struct {
			Name      string
			Company   string
			Number    int64
			Total     string
			Currency  string
			DueDate   string
			PortalURL string
		}{
			Name:      cust.Name,
			Company:   comp.Name,
			Number:    inv.Number,
			Total:     inv.Total.StringFixed(2),
			Currency:  comp.Currency,
			DueDate:   dueDate,
			PortalURL: fmt.Sprintf("%s/portal/invoices/%s", svc.conf.FrontendBaseURL, inv.ID),
		},
	})
}

func (svc *Service) sendReceiptMail(cust customer.Customer, comp company.Company, inv Invoice, p Payment) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: cust.Name, Address: cust.Email}},
		Subject:      fmt.Sprintf("Payment received for invoice #%d", inv.Number),
		TemplateName: "payment-receipt",
		TemplateData: struct {
			Name     string
			Company  string
			Number   int64
			Amount   string
			Currency string
			Balance  string
		}{
			Name:     cust.Name,
			Company:  comp.Name,
			Number:   inv.Number,
			Amount:   p.Amount.StringFixed(2),
			Currency: comp.Currency,
			Balance:  inv.Balance().Sub(p.Amount).StringFixed(2),
		},
	})
}
