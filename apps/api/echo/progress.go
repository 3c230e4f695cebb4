package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/njia/core/progress"
)

func registerProgressAPI(g *echo.Group, svc *progress.Service) {
	g.GET("/progress", func(ctx echo.Context) error {
		usr, err := getContextUser(ctx)
		if err != nil {
			return err
		}

		sum, err := svc.Summary(ctx.Request().Context(), usr.ID)
		if err != nil {
			return errors.Wrap(err, "summarizing progress")
		}
		return ctx.JSON(http.StatusOK, sum)
	})
}
