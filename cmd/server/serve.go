package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/leave-pass-service/internal/config"
	"github.com/iliyamo/leave-pass-service/internal/handler"
	"github.com/iliyamo/leave-pass-service/internal/middleware"
	"github.com/iliyamo/leave-pass-service/internal/queue"
	"github.com/iliyamo/leave-pass-service/internal/router"
	"github.com/iliyamo/leave-pass-service/internal/service"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the leave scheduler and the activity consumer",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.local != nil {
		go a.local.RunJanitor(ctx, time.Minute)
	}

	if a.cfg.AMQPURL != "" {
		consumer := &queue.ActivityConsumer{
			URL:     a.cfg.AMQPURL,
			Queue:   a.cfg.ActivityQueue,
			LogPath: a.cfg.ActivityLogPath,
			Log:     a.log,
		}
		go consumer.Run(ctx)
	}

	var scheduler *service.LeaveScheduler
	if a.cfg.AutoActivationEnabled {
		scheduler = service.NewLeaveScheduler(a.engine, a.cfg.AutoActivationInterval, a.log)
		scheduler.Start()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestLogger(a.log))
	router.RegisterRoutes(e, router.Handlers{
		DB:           a.db,
		Passes:       handler.NewPassHandler(a.svc),
		LeaveWindows: handler.NewLeaveWindowHandler(a.windows),
		Activation:   &handler.ActivationHandler{Engine: a.engine},
		Metrics:      a.metrics.Handler(),
	}, a.cfg.JWTSecret, middleware.NewTokenBucket(config.LoadRateLimitConfig(), a.rdb, a.log))

	addr := ":" + a.cfg.Port
	errCh := make(chan error, 1)
	go func() {
		a.log.Info("listening", zap.String("addr", addr), zap.String("env", a.cfg.Env), zap.String("db", a.cfg.DBDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err = <-errCh:
	}

	if scheduler != nil {
		scheduler.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if serr := e.Shutdown(shutdownCtx); serr != nil {
		a.log.Warn("http shutdown", zap.Error(serr))
	}
	a.log.Info("stopped")
	return err
}
