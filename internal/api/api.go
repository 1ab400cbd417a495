package api

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/taigaio/taiga/internal/api/authenticator"
	"github.com/taigaio/taiga/internal/config"
	"github.com/taigaio/taiga/internal/i18n"
	"github.com/taigaio/taiga/internal/services"
)

// Server is the HTTP edge of the access backend
type Server struct {
	srv      *fasthttp.Server
	addr     string
	services *services.Services
	auth     *authenticator.Authenticator
	i18n     *i18n.I18N

	allowedHeaders string
}

// New creates a server over svc. Migrations are expected to be applied already.
func New(conf *config.Config, svc *services.Services) (*Server, error) {
	auth, err := authenticator.New(conf)
	if err != nil {
		return nil, err
	}

	translations := i18n.New()
	translations.Initialize(conf.LANG)

	s := &Server{
		srv: &fasthttp.Server{
			Name:         "taiga",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		addr:           conf.SERVER_ADDR,
		services:       svc,
		auth:           auth,
		i18n:           translations,
		allowedHeaders: conf.ALLOWED_HEADERS,
	}

	s.srv.Handler = s.initRoutes()

	return s, nil
}

// Handler is the full request handler, middlewares included
func (s *Server) Handler() fasthttp.RequestHandler {
	return s.srv.Handler
}

// Start serves until an interrupt is received, then shuts down gracefully
func (s *Server) Start() {
	slog.Info("Starting REST server...", slog.String("addr", s.addr))
	go func() {
		if err := s.srv.ListenAndServe(s.addr); err != nil {
			slog.Error("Server shutdown", slog.Any("error", err))
		}
	}()
	slog.Info("REST server started!")

	// Listen for OS interrupts
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	// Block till we receive an interrupt
	<-c
	slog.Info("Received interrupt...")

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	s.shutdown(ctx)
}

func (s *Server) shutdown(ctx context.Context) {
	slog.Info("Gracefully shutting down REST server...")
	if err := s.srv.ShutdownWithContext(ctx); err != nil {
		slog.Error("Failed to shutdown the server", slog.Any("error", err))
	}
	slog.Info("REST server shutdown!")
}
