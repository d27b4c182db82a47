package billing

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/safisha/backend/core"
)

const (
	StatusDraft = "draft"
	StatusSent  = "sent"
	StatusPaid  = "paid"
	StatusVoid  = "void"

	MethodCash     = "cash"
	MethodCheck    = "check"
	MethodCard     = "card"
	MethodTransfer = "transfer"

	// days until a sent invoice falls due when no due date was set
	defaultDueDays = 14
)

type (
	InvoiceItem struct {
		Description string          `json:"description"`
		Quantity    decimal.Decimal `json:"quantity"`
		UnitPrice   decimal.Decimal `json:"unit_price"`
		Amount      decimal.Decimal `json:"amount"`
	}

	Invoice struct {
		ID         string          `json:"id" gorm:"primaryKey;size:36"`
		CompanyID  string          `json:"company_id" gorm:"size:36;uniqueIndex:uix_invoices_company_number;not null"`
		CustomerID string          `json:"customer_id" gorm:"size:36;index;not null"`
		JobID      null.String     `json:"job_id" gorm:"size:36"`
		Number     int64           `json:"number" gorm:"uniqueIndex:uix_invoices_company_number;not null"`
		Status     string          `json:"status" gorm:"size:8;index"`
		IssueDate  time.Time       `json:"issue_date"`
		DueDate    null.Time       `json:"due_date"`
		Items      []InvoiceItem   `json:"items" gorm:"serializer:json"`
		Subtotal   decimal.Decimal `json:"subtotal" gorm:"type:numeric(12,2)"`
		TaxRate    decimal.Decimal `json:"tax_rate" gorm:"type:numeric(6,4)"`
		TaxAmount  decimal.Decimal `json:"tax_amount" gorm:"type:numeric(12,2)"`
		Discount   decimal.Decimal `json:"discount" gorm:"type:numeric(12,2)"`
		Total      decimal.Decimal `json:"total" gorm:"type:numeric(12,2)"`
		Notes      string          `json:"notes"`
		SentAt     null.Time       `json:"sent_at"`
		PaidAt     null.Time       `json:"paid_at"`
		CreatedAt  time.Time       `json:"created_at"`
		UpdatedAt  time.Time       `json:"updated_at"`

		Payments []Payment `json:"payments,omitempty" gorm:"foreignKey:InvoiceID"`
	}

	Payment struct {
		ID        string          `json:"id" gorm:"primaryKey;size:36"`
		CompanyID string          `json:"company_id" gorm:"size:36;index;not null"`
		InvoiceID string          `json:"invoice_id" gorm:"size:36;index;not null"`
		Amount    decimal.Decimal `json:"amount" gorm:"type:numeric(12,2)"`
		Method    string          `json:"method" gorm:"size:10"`
		Reference string          `json:"reference"`
		Note      string          `json:"note"`
		PaidAt    time.Time       `json:"paid_at"`
		CreatedAt time.Time       `json:"created_at"`
	}
)

// IsOverdue reports whether the invoice is sent and past its due date.
func (inv Invoice) IsOverdue() bool {
	return inv.Status == StatusSent && inv.DueDate.Valid && inv.DueDate.Time.Before(time.Now().UTC())
}

// AmountPaid sums the recorded payments. Payments must be loaded.
func (inv Invoice) AmountPaid() decimal.Decimal {
	paid := decimal.Zero
	for _, p := range inv.Payments {
		paid = paid.Add(p.Amount)
	}
	return paid
}

// Balance is what remains to be paid. Payments must be loaded.
func (inv Invoice) Balance() decimal.Decimal {
	return inv.Total.Sub(inv.AmountPaid())
}

func (inv Invoice) MarshalJSON() ([]byte, error) {
	type alias Invoice
	return json.Marshal(struct {
		alias
		Overdue bool `json:"overdue"`
	}{alias(inv), inv.IsOverdue()})
}

// recompute derives the per-item amounts and the invoice totals from the
// items, tax rate and discount. Money is rounded to 2 decimal places.
func (inv *Invoice) recompute() {
	subtotal := decimal.Zero
	for i := range inv.Items {
		amount := inv.Items[i].Quantity.Mul(inv.Items[i].UnitPrice).Round(2)
		inv.Items[i].Amount = amount
		subtotal = subtotal.Add(amount)
	}
	inv.Subtotal = subtotal
	inv.TaxAmount = subtotal.Mul(inv.TaxRate).Round(2)
	inv.Total = subtotal.Add(inv.TaxAmount).Sub(inv.Discount)
}

type (
	NewInvoiceItem struct {
		Description string          `json:"description" validate:"required"`
		Quantity    decimal.Decimal `json:"quantity"`
		UnitPrice   decimal.Decimal `json:"unit_price"`
	}

	NewInvoice struct {
		CustomerID string           `json:"customer_id" validate:"required"`
		JobID      string           `json:"job_id"`
		IssueDate  *time.Time       `json:"issue_date"`
		DueDate    *time.Time       `json:"due_date"`
		Items      []NewInvoiceItem `json:"items" validate:"required,min=1,dive"`
		TaxRate    *decimal.Decimal `json:"tax_rate"`
		Discount   *decimal.Decimal `json:"discount"`
		Notes      string           `json:"notes"`
	}

	UpdateInvoice struct {
		IssueDate *time.Time       `json:"issue_date"`
		DueDate   *time.Time       `json:"due_date"`
		Items     []NewInvoiceItem `json:"items" validate:"omitempty,min=1,dive"`
		TaxRate   *decimal.Decimal `json:"tax_rate"`
		Discount  *decimal.Decimal `json:"discount"`
		Notes     string           `json:"notes"`
	}

	NewPayment struct {
		Amount    decimal.Decimal `json:"amount"`
		Method    string          `json:"method" validate:"required,oneof=cash check card transfer"`
		Reference string          `json:"reference"`
		Note      string          `json:"note"`
		PaidAt    *time.Time      `json:"paid_at"`
	}

	QueryFilter struct {
		Status     string    `query:"status"`
		CustomerID string    `query:"customer_id"`
		Overdue    *bool     `query:"overdue"`
		IssueFrom  time.Time `query:"issue_from"`
		IssueTo    time.Time `query:"issue_to"`
	}

	PaymentQueryFilter struct {
		InvoiceID string    `query:"invoice_id"`
		Method    string    `query:"method"`
		From      time.Time `query:"from"`
		To        time.Time `query:"to"`
	}
)

func (ni *NewInvoice) Validate(ctx context.Context, validate *validator.Validate) error {
	ni.CustomerID = core.CleanString(ni.CustomerID)
	ni.JobID = core.CleanString(ni.JobID)
	ni.Notes = core.CleanString(ni.Notes)

	if err := validate.StructCtx(ctx, ni); err != nil {
		return err
	}
	if err := validateItems(ni.Items); err != nil {
		return err
	}
	if err := validateTaxRate(ni.TaxRate); err != nil {
		return err
	}
	return validateDiscount(ni.Discount)
}

func (ui *UpdateInvoice) Validate(ctx context.Context, validate *validator.Validate) error {
	ui.Notes = core.CleanString(ui.Notes)

	if err := validate.StructCtx(ctx, ui); err != nil {
		return err
	}
	if ui.Items != nil {
		if err := validateItems(ui.Items); err != nil {
			return err
		}
	}
	if err := validateTaxRate(ui.TaxRate); err != nil {
		return err
	}
	return validateDiscount(ui.Discount)
}

func (np *NewPayment) Validate(ctx context.Context, validate *validator.Validate) error {
	np.Method = core.CleanString(np.Method, true)
	np.Reference = core.CleanString(np.Reference)
	np.Note = core.CleanString(np.Note)

	if err := validate.StructCtx(ctx, np); err != nil {
		return err
	}
	if !np.Amount.IsPositive() {
		return core.NewValidationError(nil, core.FieldError{Field: "amount", Error: "amount must be greater than zero"})
	}
	return nil
}

func validateItems(items []NewInvoiceItem) error {
	for _, item := range items {
		if !item.Quantity.IsPositive() {
			return core.NewValidationError(nil, core.FieldError{Field: "items", Error: "item quantity must be greater than zero"})
		}
		if item.UnitPrice.IsNegative() {
			return core.NewValidationError(nil, core.FieldError{Field: "items", Error: "item unit price cannot be negative"})
		}
	}
	return nil
}

func validateTaxRate(rate *decimal.Decimal) error {
	if rate == nil {
		return nil
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return core.NewValidationError(nil, core.FieldError{Field: "tax_rate", Error: "tax rate must be between 0 and 1"})
	}
	return nil
}

func validateDiscount(discount *decimal.Decimal) error {
	if discount != nil && discount.IsNegative() {
		return core.NewValidationError(nil, core.FieldError{Field: "discount", Error: "discount cannot be negative"})
	}
	return nil
}

func (f *QueryFilter) IsEmpty() bool {
	return f.Status == "" && f.CustomerID == "" && f.Overdue == nil && f.IssueFrom.IsZero() && f.IssueTo.IsZero()
}

func (f *QueryFilter) Clean() {
	f.Status = core.CleanString(f.Status, true)
	f.CustomerID = core.CleanString(f.CustomerID)
}

func (f *PaymentQueryFilter) IsEmpty() bool {
	return f.InvoiceID == "" && f.Method == "" && f.From.IsZero() && f.To.IsZero()
}

func (f *PaymentQueryFilter) Clean() {
	f.InvoiceID = core.CleanString(f.InvoiceID)
	f.Method = core.CleanString(f.Method, true)
}
