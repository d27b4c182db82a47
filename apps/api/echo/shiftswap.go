package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/safisha/backend/core/shiftswap"
	"github.com/safisha/backend/core/staff"
)

var errSwapNotFoundInCtx = errors.New("shift swap object not found in echo.Context")

type shiftswapApi struct {
	svc      shiftswap.ServiceInterface
	staffSvc staff.ServiceInterface
	validate *validator.Validate
}

func registerShiftswapAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc shiftswap.ServiceInterface,
	staffSvc staff.ServiceInterface,
	validate *validator.Validate,
) {
	api := shiftswapApi{
		svc:      svc,
		staffSvc: staffSvc,
		validate: validate,
	}

	sg := g.Group("/shift-swaps", jwt)
	sg.POST("", api.create)
	sg.GET("", api.query)

	dg := sg.Group("/:id", swapObjectMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.POST("/respond", api.respond)
	dg.DELETE("", api.destroy)
}

// Handlers

func (api *shiftswapApi) create(ctx echo.Context) error {
	requester, err := getContextEmployee(ctx, api.staffSvc)
	if err != nil {
		return errors.Wrap(err, "getting context employee")
	}

	var data shiftswap.NewSwap
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSwap")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate); err != nil {
		return err
	}

	s, err := api.svc.Create(ctx.Request().Context(), requester, data)
	if err != nil {
		return errors.Wrap(err, "creating shift swap")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *shiftswapApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	filter := new(shiftswap.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []shiftswap.Swap{})
	}
	filter.Clean()
	if !claims.IsAdmin {
		// non-admins only ever see swaps they sent or received
		filter.EmployeeID = claims.Subject
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	swaps, err := api.svc.Query(ctx.Request().Context(), claims.CompanyID, filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying shift swaps")
	}
	if swaps == nil {
		swaps = []shiftswap.Swap{}
	}
	return ctx.JSON(http.StatusOK, swaps)
}

func (api *shiftswapApi) retrieve(ctx echo.Context) error {
	s, ok := ctx.Get("object").(shiftswap.Swap)
	if !ok {
		return errors.Wrap(errSwapNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *shiftswapApi) respond(ctx echo.Context) error {
	s, ok := ctx.Get("object").(shiftswap.Swap)
	if !ok {
		return errors.Wrap(errSwapNotFoundInCtx, "retrieving object from context")
	}

	responder, err := getContextEmployee(ctx, api.staffSvc)
	if err != nil {
		return errors.Wrap(err, "getting context employee")
	}

	var data shiftswap.RespondSwap
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RespondSwap")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate); err != nil {
		return err
	}

	s, err = api.svc.Respond(ctx.Request().Context(), s.ID, responder, data)
	if err != nil {
		return errors.Wrap(err, "responding to shift swap")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *shiftswapApi) destroy(ctx echo.Context) error {
	s, ok := ctx.Get("object").(shiftswap.Swap)
	if !ok {
		return errors.Wrap(errSwapNotFoundInCtx, "retrieving object from context")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	if err := api.svc.Cancel(ctx.Request().Context(), s.ID, claims.Subject); err != nil {
		if errors.Cause(err) == shiftswap.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "cancelling shift swap")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func swapObjectMiddleware(svc shiftswap.ServiceInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}

			s, err := svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == shiftswap.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding shift swap by ID")
			}
			if s.CompanyID != claims.CompanyID {
				return errHttpNotFound
			}
			if !(claims.IsAdmin || s.FromEmployeeID == claims.Subject || s.ToEmployeeID == claims.Subject) {
				return errHttpNotFound
			}
			ctx.Set("object", s)
			return next(ctx)
		}
	}
}
