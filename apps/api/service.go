package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/thejerf/suture/v4"

	"github.com/trezcool/njia/core"
)

// httpService runs a blocking server as a supervised service.
// Start is run in a goroutine; when the supervisor cancels the context, Stop is given shutdownTimeout to drain.
type httpService struct {
	name            string
	start           func() error
	stop            func(context.Context) error
	shutdownTimeout time.Duration
}

var _ suture.Service = (*httpService)(nil)

func newHTTPService(name string, start func() error, stop func(context.Context) error, shutdownTimeout time.Duration) *httpService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 5 * time.Second
	}
	return &httpService{
		name:            name,
		start:           start,
		stop:            stop,
		shutdownTimeout: shutdownTimeout,
	}
}

func (s *httpService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return errors.Wrapf(err, "%s failed", s.name)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.stop(shutdownCtx); err != nil {
			return errors.Wrapf(err, "stopping %s", s.name)
		}
		<-errCh
		return ctx.Err()
	}
}

func (s *httpService) String() string { return s.name }

// newSupervisor returns the root supervisor; its events are reported through logger.
func newSupervisor(logger core.Logger, conf *core.Config) *suture.Supervisor {
	return suture.New(conf.AppName, suture.Spec{
		EventHook: func(ev suture.Event) {
			msg := fmt.Sprintf("supervisor: %s", ev)
			switch ev.Type() {
			case suture.EventTypeServicePanic, suture.EventTypeServiceTerminate:
				logger.Error(msg, ev.Map())
			default:
				logger.Warn(msg, ev.Map())
			}
		},
		Timeout: conf.Server.ShutdownTimeout,
	})
}
