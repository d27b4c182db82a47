package echoapi

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/safisha/backend/core/job"
)

var errJobNotFoundInCtx = errors.New("job object not found in echo.Context")

type jobApi struct {
	svc      job.ServiceInterface
	validate *validator.Validate
}

func registerJobAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc job.ServiceInterface, validate *validator.Validate) {
	api := jobApi{
		svc:      svc,
		validate: validate,
	}

	jg := g.Group("/jobs", jwt)
	jg.POST("", api.create, adminMiddleware())
	jg.GET("", api.query)

	// detail endpoints; visible to admins and assignees only
	dg := jg.Group("/:id", jobObjectMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, adminMiddleware())
	dg.DELETE("", api.destroy, adminMiddleware())
	dg.POST("/cancel", api.cancel, adminMiddleware())
	dg.POST("/check-in", api.checkIn)
	dg.POST("/check-out", api.checkOut)
	dg.PUT("/tasks", api.updateTasks)
	dg.GET("/events", api.queryEvents)
}

// Handlers

func (api *jobApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data job.NewJob
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewJob")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate); err != nil {
		return err
	}

	j, err := api.svc.Create(ctx.Request().Context(), claims.CompanyID, data)
	if err != nil {
		return errors.Wrap(err, "creating job")
	}
	return ctx.JSON(http.StatusCreated, j)
}

func (api *jobApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	filter := new(job.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []job.Job{})
	}
	filter.Clean()
	if !claims.IsAdmin {
		// non-admins only ever see their own assignments
		filter.EmployeeID = claims.Subject
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	jobs, err := api.svc.Query(ctx.Request().Context(), claims.CompanyID, filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying jobs")
	}
	if jobs == nil {
		jobs = []job.Job{}
	}
	return ctx.JSON(http.StatusOK, jobs)
}

func (api *jobApi) retrieve(ctx echo.Context) error {
	j, ok := ctx.Get("object").(job.Job)
	if !ok {
		return errors.Wrap(errJobNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, j)
}

func (api *jobApi) update(ctx echo.Context) error {
	j, ok := ctx.Get("object").(job.Job)
	if !ok {
		return errors.Wrap(errJobNotFoundInCtx, "retrieving object from context")
	}

	var data job.UpdateJob
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateJob")
	}
	if err := data.Validate(ctx.Request().Context(), j, api.validate); err != nil {
		return err
	}

	j, err := api.svc.Update(ctx.Request().Context(), j.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating job")
	}
	return ctx.JSON(http.StatusOK, j)
}

func (api *jobApi) cancel(ctx echo.Context) error {
	j, ok := ctx.Get("object").(job.Job)
	if !ok {
		return errors.Wrap(errJobNotFoundInCtx, "retrieving object from context")
	}

	j, err := api.svc.Cancel(ctx.Request().Context(), j.ID)
	if err != nil {
		return errors.Wrap(err, "cancelling job")
	}
	return ctx.JSON(http.StatusOK, j)
}

func (api *jobApi) destroy(ctx echo.Context) error {
	j, ok := ctx.Get("object").(job.Job)
	if !ok {
		return errors.Wrap(errJobNotFoundInCtx, "retrieving object from context")
	}

	if err := api.svc.Delete(ctx.Request().Context(), j.CompanyID, j.ID); err != nil {
		return errors.Wrap(err, "deleting job")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *jobApi) checkIn(ctx echo.Context) error {
	return api.recordCheck(ctx, api.svc.CheckInEmployee)
}

func (api *jobApi) checkOut(ctx echo.Context) error {
	return api.recordCheck(ctx, api.svc.CheckOutEmployee)
}

func (api *jobApi) recordCheck(ctx echo.Context, check func(reqCtx context.Context, id, employeeID string, cr job.CheckRequest) (job.CheckEvent, error)) error {
	j, ok := ctx.Get("object").(job.Job)
	if !ok {
		return errors.Wrap(errJobNotFoundInCtx, "retrieving object from context")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data job.CheckRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CheckRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ev, err := check(ctx.Request().Context(), j.ID, claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "recording check event")
	}
	return ctx.JSON(http.StatusCreated, ev)
}

func (api *jobApi) updateTasks(ctx echo.Context) error {
	j, ok := ctx.Get("object").(job.Job)
	if !ok {
		return errors.Wrap(errJobNotFoundInCtx, "retrieving object from context")
	}

	var data job.UpdateTasks
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTasks")
	}
	if err := data.Validate(j, api.validate); err != nil {
		return err
	}

	j, err := api.svc.UpdateTasks(ctx.Request().Context(), j.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating job tasks")
	}
	return ctx.JSON(http.StatusOK, j)
}

func (api *jobApi) queryEvents(ctx echo.Context) error {
	j, ok := ctx.Get("object").(job.Job)
	if !ok {
		return errors.Wrap(errJobNotFoundInCtx, "retrieving object from context")
	}

	events := j.CheckEvents
	if events == nil {
		events = []job.CheckEvent{}
	}
	return ctx.JSON(http.StatusOK, events)
}

func jobObjectMiddleware(svc job.ServiceInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}

			j, err := svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == job.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding job by ID")
			}
			if j.CompanyID != claims.CompanyID {
				return errHttpNotFound
			}
			if !(claims.IsAdmin || j.IsAssignee(claims.Subject)) {
				return errHttpNotFound
			}
			ctx.Set("object", j)
			return next(ctx)
		}
	}
}
