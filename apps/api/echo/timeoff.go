package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/safisha/backend/core/staff"
	"github.com/safisha/backend/core/timeoff"
)

var errReqNotFoundInCtx = errors.New("time-off request object not found in echo.Context")

type timeoffApi struct {
	svc      timeoff.ServiceInterface
	staffSvc staff.ServiceInterface
	validate *validator.Validate
}

func registerTimeoffAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc timeoff.ServiceInterface,
	staffSvc staff.ServiceInterface,
	validate *validator.Validate,
) {
	api := timeoffApi{
		svc:      svc,
		staffSvc: staffSvc,
		validate: validate,
	}

	tg := g.Group("/time-off", jwt)
	tg.POST("", api.create)
	tg.GET("", api.query)

	dg := tg.Group("/:id", timeoffObjectMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.POST("/review", api.review, adminMiddleware())
	dg.DELETE("", api.destroy)
}

// Handlers

func (api *timeoffApi) create(ctx echo.Context) error {
	emp, err := getContextEmployee(ctx, api.staffSvc)
	if err != nil {
		return errors.Wrap(err, "getting context employee")
	}

	var data timeoff.NewRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRequest")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate); err != nil {
		return err
	}

	r, err := api.svc.Create(ctx.Request().Context(), emp, data)
	if err != nil {
		return errors.Wrap(err, "creating time-off request")
	}
	return ctx.JSON(http.StatusCreated, r)
}

func (api *timeoffApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	filter := new(timeoff.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []timeoff.Request{})
	}
	filter.Clean()
	if !claims.IsAdmin {
		// non-admins only ever see their own requests
		filter.EmployeeID = claims.Subject
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	requests, err := api.svc.Query(ctx.Request().Context(), claims.CompanyID, filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying time-off requests")
	}
	if requests == nil {
		requests = []timeoff.Request{}
	}
	return ctx.JSON(http.StatusOK, requests)
}

func (api *timeoffApi) retrieve(ctx echo.Context) error {
	r, ok := ctx.Get("object").(timeoff.Request)
	if !ok {
		return errors.Wrap(errReqNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *timeoffApi) review(ctx echo.Context) error {
	r, ok := ctx.Get("object").(timeoff.Request)
	if !ok {
		return errors.Wrap(errReqNotFoundInCtx, "retrieving object from context")
	}

	reviewer, err := getContextEmployee(ctx, api.staffSvc)
	if err != nil {
		return errors.Wrap(err, "getting context employee")
	}

	var data timeoff.ReviewRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReviewRequest")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate); err != nil {
		return err
	}

	r, err = api.svc.Review(ctx.Request().Context(), r.ID, reviewer, data)
	if err != nil {
		return errors.Wrap(err, "reviewing time-off request")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *timeoffApi) destroy(ctx echo.Context) error {
	r, ok := ctx.Get("object").(timeoff.Request)
	if !ok {
		return errors.Wrap(errReqNotFoundInCtx, "retrieving object from context")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	if err := api.svc.Delete(ctx.Request().Context(), r.ID, claims.Subject); err != nil {
		if errors.Cause(err) == timeoff.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting time-off request")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func timeoffObjectMiddleware(svc timeoff.ServiceInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}

			r, err := svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == timeoff.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding time-off request by ID")
			}
			if r.CompanyID != claims.CompanyID {
				return errHttpNotFound
			}
			if !(claims.IsAdmin || r.EmployeeID == claims.Subject) {
				return errHttpNotFound
			}
			ctx.Set("object", r)
			return next(ctx)
		}
	}
}
