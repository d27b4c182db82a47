package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/safisha/backend/core/plan"
)

var errPlanNotFoundInCtx = errors.New("plan object not found in echo.Context")

type planApi struct {
	svc      plan.ServiceInterface
	validate *validator.Validate
}

func registerPlanAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc plan.ServiceInterface, validate *validator.Validate) {
	api := planApi{
		svc:      svc,
		validate: validate,
	}

	pg := g.Group("/plans", jwt)
	pg.POST("", api.create, adminMiddleware())
	pg.GET("", api.query)

	dg := pg.Group("/:id", planObjectMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, adminMiddleware())
	dg.DELETE("", api.destroy, adminMiddleware())
}

// Handlers

func (api *planApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data plan.NewPlan
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPlan")
	}
	if err := data.Validate(ctx.Request().Context(), claims.CompanyID, api.validate, api.svc); err != nil {
		return err
	}

	p, err := api.svc.Create(ctx.Request().Context(), claims.CompanyID, data)
	if err != nil {
		return errors.Wrap(err, "creating plan")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *planApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	filter := new(plan.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []plan.Plan{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	plans, err := api.svc.Query(ctx.Request().Context(), claims.CompanyID, filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying plans")
	}
	if plans == nil {
		plans = []plan.Plan{}
	}
	return ctx.JSON(http.StatusOK, plans)
}

func (api *planApi) retrieve(ctx echo.Context) error {
	p, ok := ctx.Get("object").(plan.Plan)
	if !ok {
		return errors.Wrap(errPlanNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *planApi) update(ctx echo.Context) error {
	p, ok := ctx.Get("object").(plan.Plan)
	if !ok {
		return errors.Wrap(errPlanNotFoundInCtx, "retrieving object from context")
	}

	var data plan.UpdatePlan
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdatePlan")
	}
	if err := data.Validate(ctx.Request().Context(), p, api.validate, api.svc); err != nil {
		return err
	}

	p, err := api.svc.Update(ctx.Request().Context(), p.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating plan")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *planApi) destroy(ctx echo.Context) error {
	p, ok := ctx.Get("object").(plan.Plan)
	if !ok {
		return errors.Wrap(errPlanNotFoundInCtx, "retrieving object from context")
	}

	if err := api.svc.Delete(ctx.Request().Context(), p.CompanyID, p.ID); err != nil {
		return errors.Wrap(err, "deleting plan")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func planObjectMiddleware(svc plan.ServiceInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}

			p, err := svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == plan.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding plan by ID")
			}
			if p.CompanyID != claims.CompanyID {
				return errHttpNotFound
			}
			ctx.Set("object", p)
			return next(ctx)
		}
	}
}
