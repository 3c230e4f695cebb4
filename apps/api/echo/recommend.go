package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/njia/core/catalog"
	"github.com/trezcool/njia/core/recommend"
)

func registerRecommendAPI(g *echo.Group, svc *recommend.Service) {
	g.GET("/recommendations/:kind", recommendations(svc))
}

// recommendations ranks the catalog items of a kind for the context user's profile.
func recommendations(svc *recommend.Service) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		usr, err := getContextUser(ctx)
		if err != nil {
			return err
		}
		kind, ok := catalog.ParseKind(ctx.Param("kind"))
		if !ok {
			return catalog.ErrInvalidKind
		}
		limit, err := bindLimit(ctx)
		if err != nil {
			return err
		}

		recs, err := svc.Recommend(ctx.Request().Context(), usr.Profile, kind, limit)
		if err != nil {
			return errors.Wrapf(err, "recommending %s", kind.Collection())
		}
		if recs == nil {
			recs = []recommend.Recommendation{}
		}
		return ctx.JSON(http.StatusOK, recs)
	}
}
