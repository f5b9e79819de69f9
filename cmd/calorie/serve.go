package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"calorie/internal/amqp"
	"calorie/internal/cli"
	apphttp "calorie/internal/http"
	applog "calorie/internal/log"
	"calorie/internal/services"
	"calorie/internal/store/memory"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web counter",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := cli.LoadConfig(flagConfig)
	if err != nil {
		return err
	}
	logger, err := cli.SetupLogger(cfg, nil)
	if err != nil {
		return err
	}

	var publisher services.BalancePublisher
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
			return fmt.Errorf("amqp: %w", err)
		}
		publisher = client
		logger.Info("Balance events enabled", "exchange", cfg.AMQPExchange, "routing_key", cfg.AMQPRoutingKey)
	} else {
		logger.Info("Balance events disabled - no AMQP_URL provided")
	}

	diary := services.NewDiaryService(memory.New(), publisher, logger.WithComponent(applog.ComponentDiary).Slog())
	defer func() {
		if err := diary.Close(); err != nil {
			logger.Warn("Failed to close publisher", applog.FieldError, err)
		}
	}()

	srv := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
		Logger:             logger,
	}, diary)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting calorie server", applog.FieldOperation, applog.OpStartup, "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received", applog.FieldOperation, applog.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", applog.FieldError, err)
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}
