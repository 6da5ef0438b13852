package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/janisto/greeter/internal/config"
	"github.com/janisto/greeter/internal/http/greeting"
	"github.com/janisto/greeter/internal/http/routes"
	applog "github.com/janisto/greeter/internal/platform/logging"
	"github.com/janisto/greeter/internal/platform/metrics"
	"github.com/janisto/greeter/internal/server"
)

// Version can be overridden at build time: -ldflags "-X main.Version=1.2.3"
var Version = "dev"

func main() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	os.Exit(run(stop))
}

// run serves until a value arrives on stop or the listener fails, and returns the process exit code.
func run(stop <-chan os.Signal, opts ...server.Option) int {
	ctx := context.Background()
	defer func() {
		if err := applog.Sync(); err != nil {
			applog.LogError(ctx, "logger sync error", err)
		}
	}()
	if err := applog.Err(); err != nil {
		applog.LogError(ctx, "logger init error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		applog.LogError(ctx, "invalid configuration", err)
		return 1
	}
	if err := applog.SetLevel(cfg.LogLevel); err != nil {
		applog.LogWarn(ctx, "ignoring LOG_LEVEL", zap.Error(err))
	}

	router := routes.NewRouter(routes.Options{
		Version: Version,
		Metrics: metrics.NewRecorder(),
	})
	srv := server.New(cfg, router, greeting.Banner, opts...)
	if err := srv.Start(ctx); err != nil {
		applog.LogError(ctx, "start failed", err, zap.String("backend", string(cfg.Backend)))
		return 1
	}
	applog.LogInfo(ctx, "server listening",
		zap.String("addr", srv.Addr()),
		zap.String("backend", string(cfg.Backend)),
		zap.String("version", Version),
	)

	code := 0
	select {
	case err := <-srv.Done():
		applog.LogError(ctx, "serve failed", err, zap.String("addr", srv.Addr()))
		code = 1
	case sig := <-stop:
		applog.LogInfo(ctx, "shutdown signal received", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		applog.LogError(shutdownCtx, "server shutdown error", err)
		code = 1
	}
	applog.LogInfo(ctx, "server exited")
	return code
}
