package http

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/collinlucke/baphomet-server/internal/cfg"
)

const (
	readHeaderTimeout = 5 * time.Second
	maxHeaderBytes    = 64 << 10
)

// Server - HTTP API сервиса изображений.
type Server struct {
	httpServer *http.Server
}

func NewServer(handler http.Handler, cfg *cfg.HTTPConfig) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           handler,
			ReadHeaderTimeout: min(readHeaderTimeout, cfg.ReadTimeout),
			ReadTimeout:       cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
			MaxHeaderBytes:    maxHeaderBytes,
		},
	}
}

func (s *Server) Run() error {
	return s.httpServer.ListenAndServe()
}

// Serve принимает соединения на уже открытом listener.
func (s *Server) Serve(lis net.Listener) error {
	return s.httpServer.Serve(lis)
}

// Stop дожидается завершения активных запросов, пока не истечёт ctx.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
