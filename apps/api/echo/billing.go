package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/safisha/backend/core/billing"
)

var errInvNotFoundInCtx = errors.New("invoice object not found in echo.Context")

type billingApi struct {
	svc      billing.ServiceInterface
	validate *validator.Validate
}

func registerBillingAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc billing.ServiceInterface, validate *validator.Validate) {
	api := billingApi{
		svc:      svc,
		validate: validate,
	}

	ig := g.Group("/invoices", jwt, adminMiddleware())
	ig.POST("", api.create)
	ig.GET("", api.query)

	dg := ig.Group("/:id", invoiceObjectMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
	dg.POST("/send", api.send)
	dg.POST("/void", api.void)
	dg.POST("/payments", api.recordPayment)
	dg.GET("/payments", api.retrievePayments)

	pg := g.Group("/payments", jwt, adminMiddleware())
	pg.GET("", api.queryPayments)
	pg.DELETE("/:id", api.destroyPayment)
}

// Handlers

func (api *billingApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data billing.NewInvoice
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewInvoice")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate); err != nil {
		return err
	}

	inv, err := api.svc.Create(ctx.Request().Context(), claims.CompanyID, data)
	if err != nil {
		return errors.Wrap(err, "creating invoice")
	}
	return ctx.JSON(http.StatusCreated, inv)
}

func (api *billingApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	filter := new(billing.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []billing.Invoice{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	invoices, err := api.svc.Query(ctx.Request().Context(), claims.CompanyID, filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying invoices")
	}
	if invoices == nil {
		invoices = []billing.Invoice{}
	}
	return ctx.JSON(http.StatusOK, invoices)
}

func (api *billingApi) retrieve(ctx echo.Context) error {
	inv, ok := ctx.Get("object").(billing.Invoice)
	if !ok {
		return errors.Wrap(errInvNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, inv)
}

func (api *billingApi) update(ctx echo.Context) error {
	inv, ok := ctx.Get("object").(billing.Invoice)
	if !ok {
		return errors.Wrap(errInvNotFoundInCtx, "retrieving object from context")
	}

	var data billing.UpdateInvoice
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateInvoice")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate); err != nil {
		return err
	}

	inv, err := api.svc.Update(ctx.Request().Context(), inv.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating invoice")
	}
	return ctx.JSON(http.StatusOK, inv)
}

func (api *billingApi) destroy(ctx echo.Context) error {
	inv, ok := ctx.Get("object").(billing.Invoice)
	if !ok {
		return errors.Wrap(errInvNotFoundInCtx, "retrieving object from context")
	}

	if err := api.svc.Delete(ctx.Request().Context(), inv.CompanyID, inv.ID); err != nil {
		return errors.Wrap(err, "deleting invoice")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *billingApi) send(ctx echo.Context) error {
	inv, ok := ctx.Get("object").(billing.Invoice)
	if !ok {
		return errors.Wrap(errInvNotFoundInCtx, "retrieving object from context")
	}

	inv, err := api.svc.Send(ctx.Request().Context(), inv.ID)
	if err != nil {
		return errors.Wrap(err, "sending invoice")
	}
	return ctx.JSON(http.StatusOK, inv)
}

func (api *billingApi) void(ctx echo.Context) error {
	inv, ok := ctx.Get("object").(billing.Invoice)
	if !ok {
		return errors.Wrap(errInvNotFoundInCtx, "retrieving object from context")
	}

	inv, err := api.svc.Void(ctx.Request().Context(), inv.ID)
	if err != nil {
		return errors.Wrap(err, "voiding invoice")
	}
	return ctx.JSON(http.StatusOK, inv)
}

func (api *billingApi) recordPayment(ctx echo.Context) error {
	inv, ok := ctx.Get("object").(billing.Invoice)
	if !ok {
		return errors.Wrap(errInvNotFoundInCtx, "retrieving object from context")
	}

	var data billing.NewPayment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPayment")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate); err != nil {
		return err
	}

	p, err := api.svc.RecordPayment(ctx.Request().Context(), inv.ID, data)
	if err != nil {
		return errors.Wrap(err, "recording payment")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *billingApi) retrievePayments(ctx echo.Context) error {
	inv, ok := ctx.Get("object").(billing.Invoice)
	if !ok {
		return errors.Wrap(errInvNotFoundInCtx, "retrieving object from context")
	}

	payments := inv.Payments
	if payments == nil {
		payments = []billing.Payment{}
	}
	return ctx.JSON(http.StatusOK, payments)
}

func (api *billingApi) queryPayments(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	filter := new(billing.PaymentQueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []billing.Payment{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	payments, err := api.svc.QueryPayments(ctx.Request().Context(), claims.CompanyID, filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}
	if payments == nil {
		payments = []billing.Payment{}
	}
	return ctx.JSON(http.StatusOK, payments)
}

func (api *billingApi) destroyPayment(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	if err := api.svc.DeletePayment(ctx.Request().Context(), claims.CompanyID, ctx.Param("id")); err != nil {
		if errors.Cause(err) == billing.ErrPaymentNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting payment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func invoiceObjectMiddleware(svc billing.ServiceInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}

			inv, err := svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == billing.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding invoice by ID")
			}
			if inv.CompanyID != claims.CompanyID {
				return errHttpNotFound
			}
			ctx.Set("object", inv)
			return next(ctx)
		}
	}
}
