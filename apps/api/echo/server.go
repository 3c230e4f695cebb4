package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/njia/apps/shared"
	"github.com/trezcool/njia/core"
)

type (
	Options struct {
		Conf           *core.Config
		Logger         core.Logger
		Services       *shared.Services
		DisableReqLogs bool
		// SignalShutdown is called when a handler surfaces a shutdown error.
		SignalShutdown func()
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts: opts,
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Conf
	svcs := s.opts.Services

	s.app.HideBanner = true
	s.app.Server.ReadTimeout = conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = conf.Server.WriteTimeout

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(metricsMiddleware())
	ipExtractor, err := newIPExtractor(conf.Server.TrustedProxies)
	if err != nil {
		s.opts.Logger.Error("ignoring server.trustedProxies: forwarding headers are not trusted", err)
		ipExtractor = echo.ExtractIPDirect()
	}
	s.app.IPExtractor = ipExtractor
	if conf.Server.RateLimit > 0 {
		s.app.Use(rateLimitMiddleware(NewRateLimiter(conf.Server.RateLimit, conf.Server.RateBurst)))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, svcs.Translator, s.opts.SignalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home(conf))

	v1 := s.app.Group("/v1")
	v1.GET("/health", health(conf))

	// every other endpoint needs a valid token of an active user
	authed := v1.Group("", middleware.JWTWithConfig(jwtConfig(conf)), userMiddleware(svcs.User))

	registerUserAPI(authed, svcs)
	registerQuizAPI(authed, svcs.Quiz)
	registerCatalogAPI(authed, svcs.Catalog)
	registerRecommendAPI(authed, svcs.Recommend)
	registerBookmarkAPI(authed, svcs.Bookmark)
	registerApplicationAPI(authed, svcs.Application)
	registerTimelineAPI(authed, svcs.Timeline)
	registerProgressAPI(authed, svcs.Progress)
}

// Start blocks until the server stops; it returns http.ErrServerClosed after Stop.
func (s *server) Start() error {
	return s.app.Start(s.opts.Conf.Server.Host)
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(conf *core.Config) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		return ctx.String(http.StatusOK, "Welcome to "+conf.AppName+" API!")
	}
}

func health(conf *core.Config) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		return ctx.JSON(http.StatusOK, echo.Map{"status": "ok", "build": conf.Build})
	}
}
