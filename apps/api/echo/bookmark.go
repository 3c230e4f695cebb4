package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/njia/core/bookmark"
)

type bookmarkApi struct {
	svc *bookmark.Service
}

func registerBookmarkAPI(g *echo.Group, svc *bookmark.Service) {
	api := bookmarkApi{svc: svc}

	bg := g.Group("/bookmarks")
	bg.GET("", api.query)
	bg.POST("", api.create)
	bg.DELETE("/:id", api.destroy)
}

func (api *bookmarkApi) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	bms, err := api.svc.List(ctx.Request().Context(), usr.ID, ctx.QueryParam("item_type"))
	if err != nil {
		return errors.Wrap(err, "listing bookmarks")
	}
	if bms == nil {
		bms = []bookmark.Bookmark{}
	}
	return ctx.JSON(http.StatusOK, bms)
}

func (api *bookmarkApi) create(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	var data bookmark.NewBookmark
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBookmark")
	}

	bm, err := api.svc.Create(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating bookmark")
	}
	return ctx.JSON(http.StatusCreated, bm)
}

func (api *bookmarkApi) destroy(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	if err := api.svc.Delete(ctx.Request().Context(), usr.ID, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting bookmark")
	}
	return ctx.NoContent(http.StatusNoContent)
}
