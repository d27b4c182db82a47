package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/safisha/backend/core/stats"
)

type statsApi struct {
	svc stats.ServiceInterface
}

func registerStatsAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc stats.ServiceInterface) {
	api := statsApi{svc: svc}

	g.GET("/dashboard", api.dashboard, jwt, adminMiddleware())
}

func (api *statsApi) dashboard(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	dash, err := api.svc.Dashboard(ctx.Request().Context(), claims.CompanyID)
	if err != nil {
		return errors.Wrap(err, "computing dashboard")
	}
	return ctx.JSON(http.StatusOK, dash)
}
