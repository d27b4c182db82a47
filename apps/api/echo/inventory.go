package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/safisha/backend/core/inventory"
)

var (
	errEquipNotFoundInCtx  = errors.New("equipment object not found in echo.Context")
	errSupplyNotFoundInCtx = errors.New("supply object not found in echo.Context")
)

type inventoryApi struct {
	svc      inventory.ServiceInterface
	validate *validator.Validate
}

func registerInventoryAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc inventory.ServiceInterface, validate *validator.Validate) {
	api := inventoryApi{
		svc:      svc,
		validate: validate,
	}

	eg := g.Group("/equipment", jwt, adminMiddleware())
	eg.POST("", api.createEquipment)
	eg.GET("", api.queryEquipment)

	edg := eg.Group("/:id", equipmentObjectMiddleware(api.svc))
	edg.GET("", api.retrieveEquipment)
	edg.PUT("", api.updateEquipment)
	edg.DELETE("", api.destroyEquipment)
	edg.POST("/assign", api.assignEquipment)

	sg := g.Group("/supplies", jwt, adminMiddleware())
	sg.POST("", api.createSupply)
	sg.GET("", api.querySupplies)

	sdg := sg.Group("/:id", supplyObjectMiddleware(api.svc))
	sdg.GET("", api.retrieveSupply)
	sdg.PUT("", api.updateSupply)
	sdg.DELETE("", api.destroySupply)
	sdg.POST("/adjust", api.adjustSupply)
	sdg.GET("/adjustments", api.querySupplyAdjustments)
}

// Equipment handlers

func (api *inventoryApi) createEquipment(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data inventory.NewEquipment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEquipment")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate); err != nil {
		return err
	}

	eq, err := api.svc.CreateEquipment(ctx.Request().Context(), claims.CompanyID, data)
	if err != nil {
		return errors.Wrap(err, "creating equipment")
	}
	return ctx.JSON(http.StatusCreated, eq)
}

func (api *inventoryApi) queryEquipment(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	filter := new(inventory.EquipmentQueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []inventory.Equipment{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	equipment, err := api.svc.QueryEquipment(ctx.Request().Context(), claims.CompanyID, filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying equipment")
	}
	if equipment == nil {
		equipment = []inventory.Equipment{}
	}
	return ctx.JSON(http.StatusOK, equipment)
}

func (api *inventoryApi) retrieveEquipment(ctx echo.Context) error {
	eq, ok := ctx.Get("object").(inventory.Equipment)
	if !ok {
		return errors.Wrap(errEquipNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, eq)
}

func (api *inventoryApi) updateEquipment(ctx echo.Context) error {
	eq, ok := ctx.Get("object").(inventory.Equipment)
	if !ok {
		return errors.Wrap(errEquipNotFoundInCtx, "retrieving object from context")
	}

	var data inventory.UpdateEquipment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateEquipment")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate); err != nil {
		return err
	}

	eq, err := api.svc.UpdateEquipment(ctx.Request().Context(), eq.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating equipment")
	}
	return ctx.JSON(http.StatusOK, eq)
}

func (api *inventoryApi) assignEquipment(ctx echo.Context) error {
	eq, ok := ctx.Get("object").(inventory.Equipment)
	if !ok {
		return errors.Wrap(errEquipNotFoundInCtx, "retrieving object from context")
	}

	var data inventory.AssignEquipment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssignEquipment")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate); err != nil {
		return err
	}

	eq, err := api.svc.AssignEquipment(ctx.Request().Context(), eq.CompanyID, eq.ID, data)
	if err != nil {
		return errors.Wrap(err, "assigning equipment")
	}
	return ctx.JSON(http.StatusOK, eq)
}

func (api *inventoryApi) destroyEquipment(ctx echo.Context) error {
	eq, ok := ctx.Get("object").(inventory.Equipment)
	if !ok {
		return errors.Wrap(errEquipNotFoundInCtx, "retrieving object from context")
	}

	if err := api.svc.DeleteEquipment(ctx.Request().Context(), eq.CompanyID, eq.ID); err != nil {
		return errors.Wrap(err, "deleting equipment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Supply handlers

func (api *inventoryApi) createSupply(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data inventory.NewSupply
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSupply")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate); err != nil {
		return err
	}

	s, err := api.svc.CreateSupply(ctx.Request().Context(), claims.CompanyID, data)
	if err != nil {
		return errors.Wrap(err, "creating supply")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *inventoryApi) querySupplies(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	filter := new(inventory.SupplyQueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []inventory.Supply{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	supplies, err := api.svc.QuerySupplies(ctx.Request().Context(), claims.CompanyID, filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying supplies")
	}
	if supplies == nil {
		supplies = []inventory.Supply{}
	}
	return ctx.JSON(http.StatusOK, supplies)
}

func (api *inventoryApi) retrieveSupply(ctx echo.Context) error {
	s, ok := ctx.Get("object").(inventory.Supply)
	if !ok {
		return errors.Wrap(errSupplyNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *inventoryApi) updateSupply(ctx echo.Context) error {
	s, ok := ctx.Get("object").(inventory.Supply)
	if !ok {
		return errors.Wrap(errSupplyNotFoundInCtx, "retrieving object from context")
	}

	var data inventory.UpdateSupply
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSupply")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate); err != nil {
		return err
	}

	s, err := api.svc.UpdateSupply(ctx.Request().Context(), s.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating supply")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *inventoryApi) adjustSupply(ctx echo.Context) error {
	s, ok := ctx.Get("object").(inventory.Supply)
	if !ok {
		return errors.Wrap(errSupplyNotFoundInCtx, "retrieving object from context")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data inventory.AdjustSupply
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AdjustSupply")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate); err != nil {
		return err
	}

	s, err = api.svc.AdjustSupply(ctx.Request().Context(), s.CompanyID, s.ID, claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "adjusting supply stock")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *inventoryApi) querySupplyAdjustments(ctx echo.Context) error {
	s, ok := ctx.Get("object").(inventory.Supply)
	if !ok {
		return errors.Wrap(errSupplyNotFoundInCtx, "retrieving object from context")
	}

	ordering := new(Ordering)
	ordering.Bind(ctx)

	adjustments, err := api.svc.SupplyAdjustments(ctx.Request().Context(), s.CompanyID, s.ID, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying stock adjustments")
	}
	if adjustments == nil {
		adjustments = []inventory.StockAdjustment{}
	}
	return ctx.JSON(http.StatusOK, adjustments)
}

func (api *inventoryApi) destroySupply(ctx echo.Context) error {
	s, ok := ctx.Get("object").(inventory.Supply)
	if !ok {
		return errors.Wrap(errSupplyNotFoundInCtx, "retrieving object from context")
	}

	if err := api.svc.DeleteSupply(ctx.Request().Context(), s.CompanyID, s.ID); err != nil {
		return errors.Wrap(err, "deleting supply")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func equipmentObjectMiddleware(svc inventory.ServiceInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}

			eq, err := svc.GetEquipmentByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == inventory.ErrEquipmentNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding equipment by ID")
			}
			if eq.CompanyID != claims.CompanyID {
				return errHttpNotFound
			}
			ctx.Set("object", eq)
			return next(ctx)
		}
	}
}

func supplyObjectMiddleware(svc inventory.ServiceInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}

			s, err := svc.GetSupplyByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == inventory.ErrSupplyNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding supply by ID")
			}
			if s.CompanyID != claims.CompanyID {
				return errHttpNotFound
			}
			ctx.Set("object", s)
			return next(ctx)
		}
	}
}
