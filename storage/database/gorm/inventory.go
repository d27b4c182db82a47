package gormrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/safisha/backend/core"
	"github.com/safisha/backend/core/inventory"
)

var equipmentOrderColumns = map[string]string{
	"name":       "name",
	"status":     "status",
	"created_at": "created_at",
}

var supplyOrderColumns = map[string]string{
	"name":             "name",
	"quantity_on_hand": "quantity_on_hand",
	"reorder_level":    "reorder_level",
	"created_at":       "created_at",
}

var adjustmentOrderColumns = map[string]string{
	"created_at": "created_at",
}

type inventoryRepository struct {
	db *gorm.DB
}

var _ inventory.Repository = (*inventoryRepository)(nil) // interface compliance check

func NewInventoryRepository(db *gorm.DB) *inventoryRepository {
	return &inventoryRepository{db: db}
}

func (repo inventoryRepository) CreateEquipment(ctx context.Context, e inventory.Equipment) (inventory.Equipment, error) {
	e.ID = uuid.New().String()
	if err := repo.db.WithContext(ctx).Create(&e).Error; err != nil {
		return inventory.Equipment{}, errors.Wrap(err, "inserting equipment")
	}
	return e, nil
}

func (repo inventoryRepository) GetEquipmentByID(ctx context.Context, id string) (inventory.Equipment, error) {
	if !validUUID(id) {
		return inventory.Equipment{}, inventory.ErrEquipmentNotFound
	}
	var e inventory.Equipment
	if err := repo.db.WithContext(ctx).First(&e, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return inventory.Equipment{}, inventory.ErrEquipmentNotFound
		}
		return inventory.Equipment{}, errors.Wrap(err, "finding equipment by ID")
	}
	return e, nil
}

func (repo inventoryRepository) FilterEquipment(ctx context.Context, companyID string, filter inventory.EquipmentQueryFilter, orderings []core.DBOrdering) ([]inventory.Equipment, error) {
	q := repo.db.WithContext(ctx).Where("company_id = ?", companyID)

	q = search(q, filter.Search, "name", "serial_number")

	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.AssignedToID != "" {
		q = q.Where("assigned_to_id = ?", filter.AssignedToID)
	}

	q = orderBy(q, orderings, equipmentOrderColumns)

	var equipment []inventory.Equipment
	if err := q.Find(&equipment).Error; err != nil {
		return nil, errors.Wrap(err, "querying equipment")
	}
	return equipment, nil
}

func (repo inventoryRepository) UpdateEquipment(ctx context.Context, e inventory.Equipment) (inventory.Equipment, error) {
	if err := repo.db.WithContext(ctx).Save(&e).Error; err != nil {
		return inventory.Equipment{}, errors.Wrap(err, "updating equipment")
	}
	return e, nil
}

func (repo inventoryRepository) DeleteEquipmentByID(ctx context.Context, companyID, id string) error {
	err := repo.db.WithContext(ctx).
		Where("company_id = ? AND id = ?", companyID, id).
		Delete(&inventory.Equipment{}).Error
	return errors.Wrap(err, "deleting equipment")
}

func (repo inventoryRepository) CreateSupply(ctx context.Context, s inventory.Supply) (inventory.Supply, error) {
	s.ID = uuid.New().String()
	if err := repo.db.WithContext(ctx).Create(&s).Error; err != nil {
		return inventory.Supply{}, errors.Wrap(err, "inserting supply")
	}
	return s, nil
}

func (repo inventoryRepository) GetSupplyByID(ctx context.Context, id string) (inventory.Supply, error) {
	if !validUUID(id) {
		return inventory.Supply{}, inventory.ErrSupplyNotFound
	}
	var s inventory.Supply
	if err := repo.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return inventory.Supply{}, inventory.ErrSupplyNotFound
		}
		return inventory.Supply{}, errors.Wrap(err, "finding supply by ID")
	}
	return s, nil
}

func (repo inventoryRepository) FilterSupplies(ctx context.Context, companyID string, filter inventory.SupplyQueryFilter, orderings []core.DBOrdering) ([]inventory.Supply, error) {
	q := repo.db.WithContext(ctx).Where("company_id = ?", companyID)

	q = search(q, filter.Search, "name")

	if filter.LowStock != nil {
		if *filter.LowStock {
			q = q.Where("quantity_on_hand <= reorder_level")
		} else {
			q = q.Where("quantity_on_hand > reorder_level")
		}
	}

	q = orderBy(q, orderings, supplyOrderColumns)

	var supplies []inventory.Supply
	if err := q.Find(&supplies).Error; err != nil {
		return nil, errors.Wrap(err, "querying supplies")
	}
	return supplies, nil
}

func (repo inventoryRepository) UpdateSupply(ctx context.Context, s inventory.Supply) (inventory.Supply, error) {
	if err := repo.db.WithContext(ctx).Save(&s).Error; err != nil {
		return inventory.Supply{}, errors.Wrap(err, "updating supply")
	}
	return s, nil
}

func (repo inventoryRepository) DeleteSupplyByID(ctx context.Context, companyID, id string) error {
	return repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("supply_id = ?", id).Delete(&inventory.StockAdjustment{}).Error
		if err != nil {
			return errors.Wrap(err, "deleting supply adjustments")
		}
		err = tx.Where("company_id = ? AND id = ?", companyID, id).Delete(&inventory.Supply{}).Error
		return errors.Wrap(err, "deleting supply")
	})
}

func (repo inventoryRepository) AdjustSupplyStock(ctx context.Context, adj inventory.StockAdjustment) (inventory.Supply, error) {
	adj.ID = uuid.New().String()
	var s inventory.Supply
	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// conditional update keeps the stock from going negative under
		// concurrent adjustments
		res := tx.Model(&inventory.Supply{}).
			Where("id = ? AND quantity_on_hand + ? >= 0", adj.SupplyID, adj.Delta).
			Update("quantity_on_hand", gorm.Expr("quantity_on_hand + ?", adj.Delta))
		if res.Error != nil {
			return errors.Wrap(res.Error, "adjusting supply stock")
		}
		if res.RowsAffected == 0 {
			return inventory.ErrInsufficientStock
		}
		if err := tx.Create(&adj).Error; err != nil {
			return errors.Wrap(err, "inserting stock adjustment")
		}
		err := tx.First(&s, "id = ?", adj.SupplyID).Error
		return errors.Wrap(err, "reloading supply")
	})
	if err != nil {
		return inventory.Supply{}, err
	}
	return s, nil
}

func (repo inventoryRepository) ListStockAdjustments(ctx context.Context, supplyID string, orderings []core.DBOrdering) ([]inventory.StockAdjustment, error) {
	q := repo.db.WithContext(ctx).Where("supply_id = ?", supplyID)

	if len(orderings) == 0 {
		q = q.Order("created_at DESC")
	} else {
		q = orderBy(q, orderings, adjustmentOrderColumns)
	}

	var adjustments []inventory.StockAdjustment
	if err := q.Find(&adjustments).Error; err != nil {
		return nil, errors.Wrap(err, "querying stock adjustments")
	}
	return adjustments, nil
}
