package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/njia/core/catalog"
)

type catalogApi struct {
	svc *catalog.Service
}

// registerCatalogAPI mounts the same endpoints for every kind: `/colleges`, `/courses`...
// Reads are open to any user, writes to admins.
func registerCatalogAPI(g *echo.Group, svc *catalog.Service) {
	api := catalogApi{svc: svc}

	for _, kind := range catalog.Kinds {
		kg := g.Group("/" + kind.Collection())
		kg.GET("", api.query(kind))
		kg.POST("", api.create(kind), adminMiddleware())
		kg.DELETE("", api.destroyMultiple(kind), adminMiddleware())
		kg.GET("/:id", api.retrieve(kind))
		kg.PUT("/:id", api.update(kind), adminMiddleware())
		kg.DELETE("/:id", api.destroy(kind), adminMiddleware())
	}
}

func (api *catalogApi) query(kind catalog.Kind) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		var filter catalog.Filter
		if err := ctx.Bind(&filter); err != nil {
			return errors.Wrap(err, "binding to Filter")
		}
		ordering := new(Ordering)
		ordering.Bind(ctx)

		items, err := api.svc.List(ctx.Request().Context(), kind, filter, ordering.Orderings)
		if err != nil {
			return errors.Wrapf(err, "listing %s", kind.Collection())
		}
		if items == nil {
			items = []catalog.Item{}
		}
		return ctx.JSON(http.StatusOK, items)
	}
}

func (api *catalogApi) create(kind catalog.Kind) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		item := catalog.NewItem(kind)
		if err := ctx.Bind(item); err != nil {
			return errors.Wrapf(err, "binding to %s", kind)
		}

		item, err := api.svc.Create(ctx.Request().Context(), item)
		if err != nil {
			return errors.Wrapf(err, "creating %s", kind)
		}
		return ctx.JSON(http.StatusCreated, item)
	}
}

func (api *catalogApi) retrieve(kind catalog.Kind) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		item, err := api.svc.Get(ctx.Request().Context(), kind, ctx.Param("id"))
		if err != nil {
			return errors.Wrapf(err, "getting %s", kind)
		}
		return ctx.JSON(http.StatusOK, item)
	}
}

func (api *catalogApi) update(kind catalog.Kind) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		item := catalog.NewItem(kind)
		if err := ctx.Bind(item); err != nil {
			return errors.Wrapf(err, "binding to %s", kind)
		}

		item, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), item)
		if err != nil {
			return errors.Wrapf(err, "updating %s", kind)
		}
		return ctx.JSON(http.StatusOK, item)
	}
}

func (api *catalogApi) destroy(kind catalog.Kind) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if err := api.svc.Delete(ctx.Request().Context(), kind, ctx.Param("id")); err != nil {
			return errors.Wrapf(err, "deleting %s", kind)
		}
		return ctx.NoContent(http.StatusNoContent)
	}
}

func (api *catalogApi) destroyMultiple(kind catalog.Kind) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		ids := ctx.QueryParams()["id"]
		if len(ids) == 0 {
			return ctx.NoContent(http.StatusNoContent)
		}
		if err := api.svc.Delete(ctx.Request().Context(), kind, ids...); err != nil {
			return errors.Wrapf(err, "deleting %s", kind.Collection())
		}
		return ctx.NoContent(http.StatusNoContent)
	}
}
