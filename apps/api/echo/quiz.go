package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/njia/core/quiz"
)

type quizApi struct {
	svc *quiz.Service
}

func registerQuizAPI(g *echo.Group, svc *quiz.Service) {
	api := quizApi{svc: svc}

	qg := g.Group("/quiz")
	qg.GET("", api.retrieveBank)
	qg.POST("/submissions", api.submit)
	qg.GET("/results", api.queryResults)
	qg.GET("/results/latest", api.retrieveLatest)
}

// retrieveBank returns the streams and the questions; option scores stay hidden.
func (api *quizApi) retrieveBank(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.svc.Bank())
}

func (api *quizApi) submit(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	var data quiz.Submission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Submission")
	}

	res, err := api.svc.Submit(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "submitting quiz")
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *quizApi) queryResults(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	results, err := api.svc.Results(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "querying quiz results")
	}
	if results == nil {
		results = []quiz.Result{}
	}
	return ctx.JSON(http.StatusOK, results)
}

func (api *quizApi) retrieveLatest(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	res, err := api.svc.Latest(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "getting latest quiz result")
	}
	return ctx.JSON(http.StatusOK, res)
}
