package inventory

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
	StatusAvailable   = "available"
	StatusAssigned    = "assigned"
	StatusMaintenance = "maintenance"
	StatusRetired     = "retired"
)

type (
	Equipment struct {
		ID             string      `json:"id" gorm:"primaryKey;size:36"`
		CompanyID      string      `json:"company_id" gorm:"size:36;index;not null"`
		Name           string      `json:"name"`
		SerialNumber   string      `json:"serial_number"`
		Status         string      `json:"status" gorm:"size:12;index"`
		AssignedToID   null.String `json:"assigned_to_id" gorm:"size:36"`
		PurchasedAt    null.Time   `json:"purchased_at"`
		LastServicedAt null.Time   `json:"last_serviced_at"`
		Notes          string      `json:"notes"`
		CreatedAt      time.Time   `json:"created_at"`
		UpdatedAt      time.Time   `json:"updated_at"`
	}

	Supply struct {
		ID             string          `json:"id" gorm:"primaryKey;size:36"`
		CompanyID      string          `json:"company_id" gorm:"size:36;index;not null"`
		Name           string          `json:"name"`
		Unit           string          `json:"unit" gorm:"size:20"`
		QuantityOnHand int64           `json:"quantity_on_hand"`
		ReorderLevel   int64           `json:"reorder_level"`
		UnitCost       decimal.Decimal `json:"unit_cost" gorm:"type:numeric(12,2)"`
		CreatedAt      time.Time       `json:"created_at"`
		UpdatedAt      time.Time       `json:"updated_at"`
	}

	StockAdjustment struct {
		ID         string    `json:"id" gorm:"primaryKey;size:36"`
		CompanyID  string    `json:"company_id" gorm:"size:36;index;not null"`
		SupplyID   string    `json:"supply_id" gorm:"size:36;index;not null"`
		EmployeeID string    `json:"employee_id" gorm:"size:36"`
		Delta      int64     `json:"delta"`
		Note       string    `json:"note"`
		CreatedAt  time.Time `json:"created_at"`
	}
)

// IsLowStock reports whether the supply is at or below its reorder level.
func (s Supply) IsLowStock() bool {
	return s.QuantityOnHand <= s.ReorderLevel
}

func (s Supply) MarshalJSON() ([]byte, error) {
	type alias Supply
	return json.Marshal(struct {
		alias
		LowStock bool `json:"low_stock"`
	}{alias(s), s.IsLowStock()})
}

type (
	NewEquipment struct {
		Name         string     `json:"name" validate:"required"`
		SerialNumber string     `json:"serial_number"`
		Status       string     `json:"status" validate:"omitempty,oneof=available maintenance retired"`
		PurchasedAt  *time.Time `json:"purchased_at"`
		Notes        string     `json:"notes"`
	}

	UpdateEquipment struct {
		Name           string     `json:"name"`
		SerialNumber   string     `json:"serial_number"`
		Status         string     `json:"status" validate:"omitempty,oneof=available maintenance retired"`
		PurchasedAt    *time.Time `json:"purchased_at"`
		LastServicedAt *time.Time `json:"last_serviced_at"`
		Notes          string     `json:"notes"`
	}

	// AssignEquipment assigns a piece of equipment to an employee. An empty
	// EmployeeID returns it to the available pool.
	AssignEquipment struct {
		EmployeeID string `json:"employee_id"`
	}

	NewSupply struct {
		Name           string           `json:"name" validate:"required"`
		Unit           string           `json:"unit"`
		QuantityOnHand int64            `json:"quantity_on_hand" validate:"min=0"`
		ReorderLevel   int64            `json:"reorder_level" validate:"min=0"`
		UnitCost       *decimal.Decimal `json:"unit_cost"`
	}

	UpdateSupply struct {
		Name         string           `json:"name"`
		Unit         string           `json:"unit"`
		ReorderLevel *int64           `json:"reorder_level"`
		UnitCost     *decimal.Decimal `json:"unit_cost"`
	}

	AdjustSupply struct {
		Delta int64  `json:"delta"`
		Note  string `json:"note"`
	}

	EquipmentQueryFilter struct {
		Search       string `query:"search"`
		Status       string `query:"status"`
		AssignedToID string `query:"assigned_to"`
	}

	SupplyQueryFilter struct {
		Search   string `query:"search"`
		LowStock *bool  `query:"low_stock"`
	}
)

func (ne *NewEquipment) Validate(ctx context.Context, validate *validator.Validate) error {
	ne.Name = core.CleanString(ne.Name)
	ne.SerialNumber = core.CleanString(ne.SerialNumber)
	ne.Status = core.CleanString(ne.Status, true)
	ne.Notes = core.CleanString(ne.Notes)
	return validate.StructCtx(ctx, ne)
}

func (ue *UpdateEquipment) Validate(ctx context.Context, validate *validator.Validate) error {
	ue.Name = core.CleanString(ue.Name)
	ue.SerialNumber = core.CleanString(ue.SerialNumber)
	ue.Status = core.CleanString(ue.Status, true)
	ue.Notes = core.CleanString(ue.Notes)
	return validate.StructCtx(ctx, ue)
}

func (ae *AssignEquipment) Validate(ctx context.Context, validate *validator.Validate) error {
	ae.EmployeeID = core.CleanString(ae.EmployeeID)
	return validate.StructCtx(ctx, ae)
}

func (ns *NewSupply) Validate(ctx context.Context, validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Unit = core.CleanString(ns.Unit)

	if err := validate.StructCtx(ctx, ns); err != nil {
		return err
	}
	if ns.UnitCost != nil && ns.UnitCost.IsNegative() {
		return core.NewValidationError(nil, core.FieldError{Field: "unit_cost", Error: "unit cost cannot be negative"})
	}
	return nil
}

func (us *UpdateSupply) Validate(ctx context.Context, validate *validator.Validate) error {
	us.Name = core.CleanString(us.Name)
	us.Unit = core.CleanString(us.Unit)

	if err := validate.StructCtx(ctx, us); err != nil {
		return err
	}
	if us.ReorderLevel != nil && *us.ReorderLevel < 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "reorder_level", Error: "reorder level cannot be negative"})
	}
	if us.UnitCost != nil && us.UnitCost.IsNegative() {
		return core.NewValidationError(nil, core.FieldError{Field: "unit_cost", Error: "unit cost cannot be negative"})
	}
	return nil
}

func (as *AdjustSupply) Validate(ctx context.Context, validate *validator.Validate) error {
	as.Note = core.CleanString(as.Note)

	if err := validate.StructCtx(ctx, as); err != nil {
		return err
	}
	if as.Delta == 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "delta", Error: "delta cannot be zero"})
	}
	return nil
}

func (f *EquipmentQueryFilter) IsEmpty() bool {
	return f.Search == "" && f.Status == "" && f.AssignedToID == ""
}

func (f *EquipmentQueryFilter) Clean() {
	f.Search = core.CleanString(f.Search, true)
	f.Status = core.CleanString(f.Status, true)
	f.AssignedToID = core.CleanString(f.AssignedToID)
}

func (f *SupplyQueryFilter) IsEmpty() bool {
	return f.Search == "" && f.LowStock == nil
}

func (f *SupplyQueryFilter) Clean() {
	f.Search = core.CleanString(f.Search, true)
}
