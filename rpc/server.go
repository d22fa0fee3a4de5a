// Package rpc exposes the broker, primary manager and read-only manager over HTTP with JSON
// bodies.
package rpc

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mohitkumar/mqueue/metrics"
	"go.uber.org/zap"
)

const welcome = "Welcome to the mqueue distributed queue API!"

func init() {
	gin.SetMode(gin.ReleaseMode)
}

// newEngine returns a gin engine with logging, recovery and the routes every role serves.
func newEngine(role string, logger *zap.Logger, m *metrics.Metrics) *gin.Engine {
	r := gin.New()
	// broker hosts in admin paths arrive path-escaped
	r.UseRawPath = true
	r.Use(recovery(logger), requestLogger(logger, m))
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, welcome)
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "success", "role": role})
	})
	r.GET("/metrics", gin.WrapH(m.Handler()))
	return r
}

// Server runs one role's HTTP handler.
type Server struct {
	Logger *zap.Logger
	srv    *http.Server
}

func NewServer(addr string, handler http.Handler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		Logger: logger,
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Serve accepts connections on ln until Shutdown is called.
func (s *Server) Serve(ln net.Listener) error {
	s.Logger.Info("http server listening", zap.String("addr", ln.Addr().String()))
	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
