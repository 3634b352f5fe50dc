// README: API gateway; wires module services into the router and runs the HTTP server.
package http

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"busticket/internal/infra"
	"busticket/internal/modules/catalog"
	"busticket/internal/modules/fare"
	"busticket/internal/modules/report"
	"busticket/internal/modules/session"
	"busticket/internal/modules/ticket"
)

const shutdownTimeout = 10 * time.Second

type ServerDeps struct {
	Catalog  *catalog.Service
	Fare     *fare.Service
	Ticket   *ticket.Service
	Session  *session.Service
	Report   *report.Service
	Verifier infra.TokenVerifier
	// Location is the zone report dates are read in.
	Location *time.Location
}

type Server struct {
	deps ServerDeps
}

func NewServer(deps ServerDeps) *Server {
	return &Server{deps: deps}
}

func (s *Server) Routes() http.Handler {
	return NewRouter(s.deps)
}

// Run serves on addr until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("http: listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	log.Printf("http: shutting down")
	return srv.Shutdown(shutdownCtx)
}
