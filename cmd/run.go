package cmd

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mohitkumar/mqueue/client"
	"github.com/mohitkumar/mqueue/config"
	"github.com/mohitkumar/mqueue/rpc"
	"github.com/mohitkumar/mqueue/store"
)

// MQUEUE_PRIMARY_READONLY_MANAGERS -> primary.readonly_managers
var envKeyReplacer = strings.NewReplacer(".", "_")

const shutdownTimeout = 10 * time.Second

func loadConfig() (config.Config, error) {
	return config.FromViper(viper.GetViper())
}

func newLogger(cfg config.LoggingConfig, role string) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zc.Level = level
	logger, err := zc.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("role", role)), nil
}

func openStore(cfg config.StoreConfig) (*store.DB, error) {
	return store.Open(cfg.Path)
}

func clientOptions(cfg config.ClientConfig, logger *zap.Logger) client.Options {
	return client.Options{
		Timeout:      cfg.Timeout,
		Retries:      cfg.Retries,
		RetryBackoff: cfg.RetryBackoff,
		Logger:       logger.Named("client"),
	}
}

func banner(role string) {
	fmt.Fprintln(os.Stderr, figure.NewFigure("mqueue", "", true).String())
	fmt.Fprintf(os.Stderr, "role: %s\n\n", role)
}

// serve runs handler on addr until SIGINT or SIGTERM. Each startup hook runs once the
// listener is open; a hook error stops the process.
func serve(addr string, handler http.Handler, logger *zap.Logger, hooks ...func(ctx context.Context) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	srv := rpc.NewServer(addr, handler, logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Serve(ln) })
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	for _, hook := range hooks {
		hook := hook
		g.Go(func() error { return hook(ctx) })
	}
	return g.Wait()
}
