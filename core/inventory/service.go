package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/safisha/backend/core"
	"github.com/safisha/backend/core/staff"
)

var (
	// errors
	ErrEquipmentNotFound = errors.New("equipment not found")
	ErrSupplyNotFound    = errors.New("supply not found")
	ErrInsufficientStock = errors.New("insufficient stock")

	errRetiredAssign  = "retired equipment cannot be assigned"
	errNotAvailable   = "only available equipment can be assigned"
	errAssignedStatus = "assigned equipment must be unassigned first"
	errAssignedDelete = "assigned equipment cannot be deleted"
	errUnknownStaff   = "unknown or inactive employee"
	errStockBelowZero = "stock cannot go negative"
)

type (
	Repository interface {
		CreateEquipment(ctx context.Context, e Equipment) (Equipment, error)
		GetEquipmentByID(ctx context.Context, id string) (Equipment, error)
		FilterEquipment(ctx context.Context, companyID string, filter EquipmentQueryFilter, orderings []core.DBOrdering) ([]Equipment, error)
		UpdateEquipment(ctx context.Context, e Equipment) (Equipment, error)
		DeleteEquipmentByID(ctx context.Context, companyID, id string) error

		CreateSupply(ctx context.Context, s Supply) (Supply, error)
		GetSupplyByID(ctx context.Context, id string) (Supply, error)
		FilterSupplies(ctx context.Context, companyID string, filter SupplyQueryFilter, orderings []core.DBOrdering) ([]Supply, error)
		UpdateSupply(ctx context.Context, s Supply) (Supply, error)
		DeleteSupplyByID(ctx context.Context, companyID, id string) error

		// AdjustSupplyStock applies the delta to the supply and records the
		// adjustment in one transaction. A delta that would take the stock
		// below zero fails with ErrInsufficientStock.
		AdjustSupplyStock(ctx context.Context, adj StockAdjustment) (Supply, error)
		ListStockAdjustments(ctx context.Context, supplyID string, orderings []core.DBOrdering) ([]StockAdjustment, error)
	}

	ServiceInterface interface {
		CreateEquipment(ctx context.Context, companyID string, ne NewEquipment) (Equipment, error)
		QueryEquipment(ctx context.Context, companyID string, filter *EquipmentQueryFilter, orderings []core.DBOrdering) ([]Equipment, error)
		GetEquipmentByID(ctx context.Context, id string) (Equipment, error)
		UpdateEquipment(ctx context.Context, id string, ue UpdateEquipment) (Equipment, error)
		AssignEquipment(ctx context.Context, companyID, id string, ae AssignEquipment) (Equipment, error)
		DeleteEquipment(ctx context.Context, companyID, id string) error

		CreateSupply(ctx context.Context, companyID string, ns NewSupply) (Supply, error)
		QuerySupplies(ctx context.Context, companyID string, filter *SupplyQueryFilter, orderings []core.DBOrdering) ([]Supply, error)
		GetSupplyByID(ctx context.Context, id string) (Supply, error)
		UpdateSupply(ctx context.Context, id string, us UpdateSupply) (Supply, error)
		AdjustSupply(ctx context.Context, companyID, id, employeeID string, as AdjustSupply) (Supply, error)
		SupplyAdjustments(ctx context.Context, companyID, id string, orderings []core.DBOrdering) ([]StockAdjustment, error)
		DeleteSupply(ctx context.Context, companyID, id string) error
	}

	Service struct {
		repo   Repository
		staff  staff.Repository
		logger core.Logger
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, staffRepo staff.Repository, logger core.Logger) *Service {
	return &Service{
		repo:   repo,
		staff:  staffRepo,
		logger: logger,
	}
}

func (svc *Service) CreateEquipment(ctx context.Context, companyID string, ne NewEquipment) (Equipment, error) {
	now := time.Now().UTC()
	e := Equipment{
		CompanyID:    companyID,
		Name:         ne.Name,
		SerialNumber: ne.SerialNumber,
		Status:       ne.Status,
		PurchasedAt:  null.TimeFromPtr(ne.PurchasedAt),
		Notes:        ne.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if e.Status == "" {
		e.Status = StatusAvailable
	}
	return svc.repo.CreateEquipment(ctx, e)
}

func (svc *Service) QueryEquipment(ctx context.Context, companyID string, filter *EquipmentQueryFilter, orderings []core.DBOrdering) ([]Equipment, error) {
	return svc.repo.FilterEquipment(ctx, companyID, *filter, orderings)
}

func (svc *Service) GetEquipmentByID(ctx context.Context, id string) (Equipment, error) {
	return svc.repo.GetEquipmentByID(ctx, id)
}

func (svc *Service) UpdateEquipment(ctx context.Context, id string, ue UpdateEquipment) (Equipment, error) {
	e, err := svc.repo.GetEquipmentByID(ctx, id)
	if err != nil {
		return Equipment{}, err
	}
	if ue.Status != "" && e.Status == StatusAssigned {
		return Equipment{}, core.NewValidationError(nil, core.FieldError{Field: "status", Error: errAssignedStatus})
	}

	if ue.Name != "" {
		e.Name = ue.Name
	}
	if ue.SerialNumber != "" {
		e.SerialNumber = ue.SerialNumber
	}
	if ue.Status != "" {
		e.Status = ue.Status
	}
	if ue.PurchasedAt != nil {
		e.PurchasedAt = null.TimeFrom(ue.PurchasedAt.UTC())
	}
	if ue.LastServicedAt != nil {
		e.LastServicedAt = null.TimeFrom(ue.LastServicedAt.UTC())
	}
	if ue.Notes != "" {
		e.Notes = ue.Notes
	}
	e.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateEquipment(ctx, e)
}

// AssignEquipment hands available equipment to an active employee of the
// company, or returns it to the pool when no employee is given.
func (svc *Service) AssignEquipment(ctx context.Context, companyID, id string, ae AssignEquipment) (Equipment, error) {
	e, err := svc.repo.GetEquipmentByID(ctx, id)
	if err != nil {
		return Equipment{}, err
	}
	if e.CompanyID != companyID {
		return Equipment{}, ErrEquipmentNotFound
	}

	if ae.EmployeeID == "" {
		if e.Status == StatusAssigned {
			e.Status = StatusAvailable
		}
		e.AssignedToID = null.String{}
	} else {
		if e.Status == StatusRetired {
			return Equipment{}, core.NewValidationError(nil, core.FieldError{Field: "employee_id", Error: errRetiredAssign})
		}
		if e.Status != StatusAvailable {
			return Equipment{}, core.NewValidationError(nil, core.FieldError{Field: "employee_id", Error: errNotAvailable})
		}
		emp, err := svc.staff.GetEmployeeByID(ctx, ae.EmployeeID)
		if err != nil || emp.CompanyID != companyID || !emp.IsActive {
			return Equipment{}, core.NewValidationError(nil, core.FieldError{Field: "employee_id", Error: errUnknownStaff})
		}
		e.Status = StatusAssigned
		e.AssignedToID = null.StringFrom(emp.ID)
	}
	e.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateEquipment(ctx, e)
}

func (svc *Service) DeleteEquipment(ctx context.Context, companyID, id string) error {
	e, err := svc.repo.GetEquipmentByID(ctx, id)
	if err != nil {
		return err
	}
	if e.Status == StatusAssigned {
		return core.NewValidationError(errors.New(errAssignedDelete))
	}
	return svc.repo.DeleteEquipmentByID(ctx, companyID, id)
}

func (svc *Service) CreateSupply(ctx context.Context, companyID string, ns NewSupply) (Supply, error) {
	now := time.Now().UTC()
	s := Supply{
		CompanyID:      companyID,
		Name:           ns.Name,
		Unit:           ns.Unit,
		QuantityOnHand: ns.QuantityOnHand,
		ReorderLevel:   ns.ReorderLevel,
		UnitCost:       decimal.Zero,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if ns.UnitCost != nil {
		s.UnitCost = *ns.UnitCost
	}
	return svc.repo.CreateSupply(ctx, s)
}

func (svc *Service) QuerySupplies(ctx context.Context, companyID string, filter *SupplyQueryFilter, orderings []core.DBOrdering) ([]Supply, error) {
	return svc.repo.FilterSupplies(ctx, companyID, *filter, orderings)
}

func (svc *Service) GetSupplyByID(ctx context.Context, id string) (Supply, error) {
	return svc.repo.GetSupplyByID(ctx, id)
}

func (svc *Service) UpdateSupply(ctx context.Context, id string, us UpdateSupply) (Supply, error) {
	s, err := svc.repo.GetSupplyByID(ctx, id)
	if err != nil {
		return Supply{}, err
	}
	if us.Name != "" {
		s.Name = us.Name
	}
	if us.Unit != "" {
		s.Unit = us.Unit
	}
	if us.ReorderLevel != nil {
		s.ReorderLevel = *us.ReorderLevel
	}
	if us.UnitCost != nil {
		s.UnitCost = *us.UnitCost
	}
	s.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateSupply(ctx, s)
}

// AdjustSupply applies a stock delta on behalf of an employee. Stock never
// goes negative; the adjustment and the new quantity land atomically.
func (svc *Service) AdjustSupply(ctx context.Context, companyID, id, employeeID string, as AdjustSupply) (Supply, error) {
	s, err := svc.repo.GetSupplyByID(ctx, id)
	if err != nil {
		return Supply{}, err
	}
	if s.CompanyID != companyID {
		return Supply{}, ErrSupplyNotFound
	}

	adj := StockAdjustment{
		CompanyID:  companyID,
		SupplyID:   s.ID,
		EmployeeID: employeeID,
		Delta:      as.Delta,
		Note:       as.Note,
		CreatedAt:  time.Now().UTC(),
	}
	s, err = svc.repo.AdjustSupplyStock(ctx, adj)
	if errors.Is(err, ErrInsufficientStock) {
		return Supply{}, core.NewValidationError(nil, core.FieldError{Field: "delta", Error: errStockBelowZero})
	}
	return s, err
}

func (svc *Service) SupplyAdjustments(ctx context.Context, companyID, id string, orderings []core.DBOrdering) ([]StockAdjustment, error) {
	s, err := svc.repo.GetSupplyByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.CompanyID != companyID {
		return nil, ErrSupplyNotFound
	}
	return svc.repo.ListStockAdjustments(ctx, s.ID, orderings)
}

func (svc *Service) DeleteSupply(ctx context.Context, companyID, id string) error {
	return svc.repo.DeleteSupplyByID(ctx, companyID, id)
}
