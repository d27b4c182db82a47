package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/safisha/backend/core/company"
	"github.com/safisha/backend/core/staff"
)

type companyApi struct {
	svc      company.ServiceInterface
	validate *validator.Validate
}

func registerCompanyAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc company.ServiceInterface, validate *validator.Validate) {
	api := companyApi{
		svc:      svc,
		validate: validate,
	}

	// un-authed endpoints
	g.POST("/companies/register", api.register)

	// authed endpoints; the tenant is always the caller's own company
	cg := g.Group("/company", jwt)
	cg.GET("", api.retrieve)
	cg.PUT("", api.update, adminMiddleware())
}

// Handlers

func (api *companyApi) register(ctx echo.Context) error {
	var data company.NewCompany
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCompany")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	comp, owner, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering company")
	}

	return ctx.JSON(http.StatusCreated, RegisterCompanyResponse{Company: comp, Owner: owner})
}

func (api *companyApi) retrieve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	comp, err := api.svc.GetByID(ctx.Request().Context(), claims.CompanyID)
	if err != nil {
		if errors.Cause(err) == company.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding company by ID")
	}
	return ctx.JSON(http.StatusOK, comp)
}

func (api *companyApi) update(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	comp, err := api.svc.GetByID(ctx.Request().Context(), claims.CompanyID)
	if err != nil {
		if errors.Cause(err) == company.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding company by ID")
	}

	var data company.UpdateCompany
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCompany")
	}
	if err := data.Validate(ctx.Request().Context(), comp, api.validate, api.svc); err != nil {
		return err
	}

	comp, err = api.svc.Update(ctx.Request().Context(), comp.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating company")
	}
	return ctx.JSON(http.StatusOK, comp)
}

type RegisterCompanyResponse struct {
	Company company.Company `json:"company"`
	Owner   staff.Employee  `json:"owner"`
}
