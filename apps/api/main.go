package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	echoapi "github.com/trezcool/njia/apps/api/echo"
	"github.com/trezcool/njia/apps/shared"
	"github.com/trezcool/njia/core"
	"github.com/trezcool/njia/core/catalog"
	"github.com/trezcool/njia/core/quiz"
	emailsvc "github.com/trezcool/njia/services/email"
	logsvc "github.com/trezcool/njia/services/logger"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(nil, conf)
	logger.Enable(!conf.Debug)

	if err := run(conf, logger); err != nil {
		logger.Fatal(fmt.Sprintf("api: %v", err), err)
	}
}

func run(conf *core.Config, logger core.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// =========================================================================
	// Set up Dependencies

	store, err := shared.OpenStore(ctx, conf)
	if err != nil {
		return errors.Wrapf(err, "opening %s store", conf.Database.Engine)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("closing store", err)
		}
	}()

	bank, err := quiz.DefaultBank()
	if err != nil {
		return errors.Wrap(err, "loading quiz bank")
	}
	core.ParseEmailTemplates(logger, false /* strict */)

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	svcs := shared.NewServices(store, bank, conf, logger, mailSvc)

	// the in-memory store starts empty
	if conf.Database.Engine == shared.EngineMemory {
		items, err := catalog.DefaultSeed()
		if err != nil {
			return errors.Wrap(err, "loading catalog seed")
		}
		if _, err = svcs.Catalog.Import(ctx, items...); err != nil {
			return errors.Wrap(err, "seeding catalog")
		}
	}

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	// =========================================================================
	// Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.
	// /metrics - Prometheus collectors of the default registry.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	http.Handle("/metrics", promhttp.Handler())

	debugSrv := &http.Server{Addr: conf.Server.DebugHost, Handler: http.DefaultServeMux}

	// =========================================================================
	// API Service

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	server := echoapi.NewServer(&echoapi.Options{
		Conf:     conf,
		Logger:   logger,
		Services: svcs,
		SignalShutdown: func() {
			logger.Warn("shutdown requested by the API")
			cancel()
		},
	})

	sup := newSupervisor(logger, conf)
	sup.Add(newHTTPService("api", server.Start, server.Stop, conf.Server.ShutdownTimeout))
	sup.Add(newHTTPService("debug", debugSrv.ListenAndServe, debugSrv.Shutdown, conf.Server.ShutdownTimeout))
	sup.Add(svcs.Reminder)

	// =========================================================================
	// Shutdown

	// Serve returns once ctx is done: on a signal or a shutdown error.
	if err = sup.Serve(ctx); err != nil && ctx.Err() == nil {
		return errors.Wrap(err, "supervisor")
	}
	logger.Info("Services stopped")
	return nil
}
