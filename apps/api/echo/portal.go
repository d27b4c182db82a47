package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/safisha/backend/core"
	"github.com/safisha/backend/core/billing"
	"github.com/safisha/backend/core/customer"
	"github.com/safisha/backend/core/job"
	"github.com/safisha/backend/core/portal"
)

type portalApi struct {
	svc      portal.ServiceInterface
	conf     *core.Config
	validate *validator.Validate
}

func registerPortalAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	conf *core.Config,
	svc portal.ServiceInterface,
	validate *validator.Validate,
) {
	api := portalApi{
		svc:      svc,
		conf:     conf,
		validate: validate,
	}

	pg := g.Group("/portal")

	// un-authed endpoints
	pg.POST("/login-request", api.requestLogin)
	pg.POST("/login", api.login)

	// authed endpoints; everything is scoped to the token's customer
	ag := pg.Group("", jwt)
	ag.GET("/me", api.me)
	ag.PUT("/me", api.updateMe)
	ag.GET("/jobs", api.jobs)
	ag.GET("/jobs/:id", api.job)
	ag.GET("/invoices", api.invoices)
	ag.GET("/invoices/:id", api.invoice)
}

// Handlers

func (api *portalApi) requestLogin(ctx echo.Context) error {
	var data portal.LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate); err != nil {
		return err
	}

	if err := api.svc.RequestLogin(ctx.Request().Context(), data); err != nil {
		if errors.Cause(err) == portal.ErrThrottled {
			return errHttpThrottled
		}
		// do not return errors to attackers
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting portal login"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an account on this system, " +
			"an email will arrive in your inbox shortly with a login code.",
	})
}

func (api *portalApi) login(ctx echo.Context) error {
	var data portal.Login
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Login")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate); err != nil {
		return err
	}

	cust, err := api.svc.Login(ctx.Request().Context(), data)
	if err != nil {
		if errors.Cause(err) == portal.ErrLoginFailed {
			return core.NewValidationError(portal.ErrLoginFailed)
		}
		return errors.Wrap(err, "logging into portal")
	}

	token, err := GenerateToken(api.conf, GetCustomerClaims(api.conf, cust))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *portalApi) me(ctx echo.Context) error {
	cust, err := api.getContextCustomer(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cust)
}

func (api *portalApi) updateMe(ctx echo.Context) error {
	cust, err := api.getContextCustomer(ctx)
	if err != nil {
		return err
	}

	var data portal.UpdateProfile
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProfile")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate); err != nil {
		return err
	}

	cust, err = api.svc.UpdateMe(ctx.Request().Context(), cust.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating portal profile")
	}
	return ctx.JSON(http.StatusOK, cust)
}

func (api *portalApi) jobs(ctx echo.Context) error {
	cust, err := api.getContextCustomer(ctx)
	if err != nil {
		return err
	}

	ordering := new(Ordering)
	ordering.Bind(ctx)

	jobs, err := api.svc.Jobs(ctx.Request().Context(), cust, ctx.QueryParam("when"), ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying portal jobs")
	}
	if jobs == nil {
		jobs = []job.Job{}
	}
	return ctx.JSON(http.StatusOK, jobs)
}

func (api *portalApi) job(ctx echo.Context) error {
	cust, err := api.getContextCustomer(ctx)
	if err != nil {
		return err
	}

	j, err := api.svc.Job(ctx.Request().Context(), cust, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == job.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding portal job by ID")
	}
	return ctx.JSON(http.StatusOK, j)
}

func (api *portalApi) invoices(ctx echo.Context) error {
	cust, err := api.getContextCustomer(ctx)
	if err != nil {
		return err
	}

	ordering := new(Ordering)
	ordering.Bind(ctx)

	invoices, err := api.svc.Invoices(ctx.Request().Context(), cust, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying portal invoices")
	}
	if invoices == nil {
		invoices = []billing.Invoice{}
	}
	return ctx.JSON(http.StatusOK, invoices)
}

func (api *portalApi) invoice(ctx echo.Context) error {
	cust, err := api.getContextCustomer(ctx)
	if err != nil {
		return err
	}

	inv, err := api.svc.Invoice(ctx.Request().Context(), cust, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == billing.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding portal invoice by ID")
	}
	return ctx.JSON(http.StatusOK, inv)
}

func (api *portalApi) getContextCustomer(ctx echo.Context) (customer.Customer, error) {
	if cust, ok := ctx.Get(contextCustomerKey).(customer.Customer); ok {
		return cust, nil
	}

	claims, err := getContextPortalClaims(ctx)
	if err != nil {
		return customer.Customer{}, errors.Wrap(err, "getting context portal claims")
	}

	cust, err := api.svc.Me(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == customer.ErrNotFound {
			return customer.Customer{}, errUnauthorized
		}
		return customer.Customer{}, errors.Wrap(err, "finding customer by ID")
	}
	ctx.Set(contextCustomerKey, cust)
	return cust, nil
}
