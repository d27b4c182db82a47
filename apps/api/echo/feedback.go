package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/safisha/backend/core/feedback"
)

type feedbackApi struct {
	svc      feedback.ServiceInterface
	validate *validator.Validate
}

func registerFeedbackAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc feedback.ServiceInterface, validate *validator.Validate) {
	api := feedbackApi{
		svc:      svc,
		validate: validate,
	}

	// un-authed endpoints; the token is the only credential
	pg := g.Group("/public/feedback")
	pg.GET("/:token", api.retrievePublic)
	pg.POST("/:token", api.submit)

	fg := g.Group("/feedback", jwt, adminMiddleware())
	fg.GET("", api.query)
}

// Handlers

func (api *feedbackApi) retrievePublic(ctx echo.Context) error {
	pub, err := api.svc.GetPublicByToken(ctx.Request().Context(), ctx.Param("token"))
	if err != nil {
		if errors.Cause(err) == feedback.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding feedback by token")
	}
	return ctx.JSON(http.StatusOK, pub)
}

func (api *feedbackApi) submit(ctx echo.Context) error {
	var data feedback.SubmitFeedback
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubmitFeedback")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate); err != nil {
		return err
	}

	pub, err := api.svc.Submit(ctx.Request().Context(), ctx.Param("token"), data)
	if err != nil {
		if errors.Cause(err) == feedback.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "submitting feedback")
	}
	return ctx.JSON(http.StatusOK, pub)
}

func (api *feedbackApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	filter := new(feedback.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []feedback.Feedback{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	feedbacks, err := api.svc.Query(ctx.Request().Context(), claims.CompanyID, filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying feedback")
	}
	if feedbacks == nil {
		feedbacks = []feedback.Feedback{}
	}
	return ctx.JSON(http.StatusOK, feedbacks)
}
