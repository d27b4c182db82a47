package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/safisha/backend/core/customer"
)

var errCustNotFoundInCtx = errors.New("customer object not found in echo.Context")

type customerApi struct {
	svc      customer.ServiceInterface
	validate *validator.Validate
}

func registerCustomerAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc customer.ServiceInterface, validate *validator.Validate) {
	api := customerApi{
		svc:      svc,
		validate: validate,
	}

	cg := g.Group("/customers", jwt, adminMiddleware())
	cg.POST("", api.create)
	cg.GET("", api.query)

	dg := cg.Group("/:id", customerObjectMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
}

// Handlers

func (api *customerApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data customer.NewCustomer
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCustomer")
	}
	if err := data.Validate(ctx.Request().Context(), claims.CompanyID, api.validate, api.svc); err != nil {
		return err
	}

	cust, err := api.svc.Create(ctx.Request().Context(), claims.CompanyID, data)
	if err != nil {
		return errors.Wrap(err, "creating customer")
	}
	return ctx.JSON(http.StatusCreated, cust)
}

func (api *customerApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	filter := new(customer.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []customer.Customer{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	customers, err := api.svc.Query(ctx.Request().Context(), claims.CompanyID, filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying customers")
	}
	if customers == nil {
		customers = []customer.Customer{}
	}
	return ctx.JSON(http.StatusOK, customers)
}

func (api *customerApi) retrieve(ctx echo.Context) error {
	cust, ok := ctx.Get("object").(customer.Customer)
	if !ok {
		return errors.Wrap(errCustNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, cust)
}

func (api *customerApi) update(ctx echo.Context) error {
	cust, ok := ctx.Get("object").(customer.Customer)
	if !ok {
		return errors.Wrap(errCustNotFoundInCtx, "retrieving object from context")
	}

	var data customer.UpdateCustomer
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCustomer")
	}
	if err := data.Validate(ctx.Request().Context(), cust, api.validate, api.svc); err != nil {
		return err
	}

	cust, err := api.svc.Update(ctx.Request().Context(), cust.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating customer")
	}
	return ctx.JSON(http.StatusOK, cust)
}

func (api *customerApi) destroy(ctx echo.Context) error {
	cust, ok := ctx.Get("object").(customer.Customer)
	if !ok {
		return errors.Wrap(errCustNotFoundInCtx, "retrieving object from context")
	}

	if err := api.svc.Delete(ctx.Request().Context(), cust.CompanyID, cust.ID); err != nil {
		return errors.Wrap(err, "deleting customer")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func customerObjectMiddleware(svc customer.ServiceInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}

			cust, err := svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == customer.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding customer by ID")
			}
			if cust.CompanyID != claims.CompanyID {
				return errHttpNotFound
			}
			ctx.Set("object", cust)
			return next(ctx)
		}
	}
}
