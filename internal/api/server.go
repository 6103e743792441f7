package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/looplab/fsm"
	"github.com/sirupsen/logrus"
)

// Lifecycle states of a Server
const (
	StateIdle     = "idle"
	StateServing  = "serving"
	StateDraining = "draining"
	StateStopped  = "stopped"
)

const (
	eventStart = "start"
	eventDrain = "drain"
	eventStop  = "stop"
)

// Server runs an http.Handler and tracks its lifecycle. A Server serves
// at most once.
type Server struct {
	name       string
	httpServer *http.Server
	lifecycle  *fsm.FSM
	logger     logrus.FieldLogger
}

// NewServer creates a server for handler. name only appears in logs.
func NewServer(name string, handler http.Handler, logger logrus.FieldLogger) *Server {
	s := &Server{
		name: name,
		httpServer: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger.WithField("server", name),
	}

	s.lifecycle = fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: eventStart, Src: []string{StateIdle}, Dst: StateServing},
			{Name: eventDrain, Src: []string{StateServing}, Dst: StateDraining},
			{Name: eventStop, Src: []string{StateIdle, StateDraining}, Dst: StateStopped},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				s.logger.WithFields(logrus.Fields{
					"from": e.Src,
					"to":   e.Dst,
				}).Debug("server state changed")
			},
		},
	)
	return s
}

// State returns the current lifecycle state
func (s *Server) State() string {
	return s.lifecycle.Current()
}

// Serve accepts connections on lis until Shutdown is called. Serving a
// stopped server closes lis and returns nil.
func (s *Server) Serve(lis net.Listener) error {
	if err := s.lifecycle.Event(context.Background(), eventStart); err != nil {
		lis.Close()
		if s.State() == StateStopped {
			return nil
		}
		return fmt.Errorf("%s server cannot start from state %s: %w", s.name, s.State(), err)
	}

	s.logger.WithField("addr", lis.Addr().String()).Info("listening")
	err := s.httpServer.Serve(lis)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	switch {
	case s.lifecycle.Can(eventDrain):
		if err := s.lifecycle.Event(ctx, eventDrain); err != nil {
			return err
		}
		err := s.httpServer.Shutdown(ctx)
		if stopErr := s.lifecycle.Event(ctx, eventStop); stopErr != nil && err == nil {
			err = stopErr
		}
		s.logger.Info("stopped")
		return err
	case s.lifecycle.Can(eventStop):
		return s.lifecycle.Event(ctx, eventStop)
	default:
		return nil
	}
}
