package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/njia/core/timeline"
)

type timelineApi struct {
	svc *timeline.Service
}

func registerTimelineAPI(g *echo.Group, svc *timeline.Service) {
	api := timelineApi{svc: svc}

	tg := g.Group("/timeline")
	tg.GET("", api.query)
	tg.POST("", api.create)
	tg.GET("/:id", api.retrieve)
	tg.PUT("/:id", api.update)
	tg.DELETE("/:id", api.destroy)
	tg.POST("/:id/complete", api.complete)
}

type CompleteRequest struct {
	// nil marks the event as completed
	Completed *bool `json:"completed"`
}

func (api *timelineApi) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	completed, err := bindBool(ctx, "completed")
	if err != nil {
		return err
	}

	events, err := api.svc.List(ctx.Request().Context(), usr.ID, completed)
	if err != nil {
		return errors.Wrap(err, "listing timeline events")
	}
	if events == nil {
		events = []timeline.Event{}
	}
	return ctx.JSON(http.StatusOK, events)
}

func (api *timelineApi) create(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	var data timeline.NewEvent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEvent")
	}

	ev, err := api.svc.Create(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating timeline event")
	}
	return ctx.JSON(http.StatusCreated, ev)
}

func (api *timelineApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	ev, err := api.svc.Get(ctx.Request().Context(), usr.ID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting timeline event")
	}
	return ctx.JSON(http.StatusOK, ev)
}

func (api *timelineApi) update(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	var data timeline.NewEvent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEvent")
	}

	ev, err := api.svc.Update(ctx.Request().Context(), usr.ID, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating timeline event")
	}
	return ctx.JSON(http.StatusOK, ev)
}

func (api *timelineApi) complete(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	var data CompleteRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CompleteRequest")
	}
	completed := data.Completed == nil || *data.Completed

	ev, err := api.svc.SetCompleted(ctx.Request().Context(), usr.ID, ctx.Param("id"), completed)
	if err != nil {
		return errors.Wrap(err, "completing timeline event")
	}
	return ctx.JSON(http.StatusOK, ev)
}

func (api *timelineApi) destroy(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	if err := api.svc.Delete(ctx.Request().Context(), usr.ID, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting timeline event")
	}
	return ctx.NoContent(http.StatusNoContent)
}
