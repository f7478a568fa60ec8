// Package classification Instance Manager DBaaS Service.
//
// DBaaS Service as part of the Instance Manager environment. Manages database clusters deployed to
// Kubernetes clusters through the DBaaS control plane.
//
// Terms Of Service:
//
// there are no TOS at this moment, use at your own risk we take no responsibility
//
//	Version: 0.1.0
//	Contact: <info@dhis2.org> https://github.com/dhis2-sre/im-dbaas
//
//	Consumes:
//	  - application/json
//	  - multipart/form-data
//
//	Produces:
//	  - application/json
//	  - text/event-stream
//
// swagger:meta
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dhis2-sre/im-dbaas/internal/handler"
	"github.com/dhis2-sre/im-dbaas/internal/log"
	"github.com/dhis2-sre/im-dbaas/internal/server"
	"github.com/dhis2-sre/im-dbaas/internal/tracing"
	"github.com/dhis2-sre/im-dbaas/pkg/cluster"
	"github.com/dhis2-sre/im-dbaas/pkg/config"
	"github.com/dhis2-sre/im-dbaas/pkg/controlplane"
	"github.com/dhis2-sre/im-dbaas/pkg/dbcluster"
	"github.com/dhis2-sre/im-dbaas/pkg/event"
	"github.com/dhis2-sre/im-dbaas/pkg/session"
	"k8s.io/utils/clock"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("Exiting", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.ProvideConfig()

	logger := slog.New(log.New(log.NewJSONHandler(os.Stdout, &log.JSONHandlerOptions{
		HandlerOptions: slog.HandlerOptions{Level: cfg.Log.Level},
		PrettyPrint:    cfg.Log.Pretty,
		Redact:         []string{"password", "token", "kubeconfig"},
	})))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(cfg.Tracing.ServiceName, cfg.Tracing.JaegerURL)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Error("Failed to shut down tracing", "error", err)
		}
	}()

	err = handler.RegisterValidation()
	if err != nil {
		return err
	}

	client, err := controlplane.NewClient(cfg.ControlPlane.URL, cfg.ControlPlane.Token, cfg.ControlPlane.Timeout)
	if err != nil {
		return err
	}
	var controlPlane controlplane.ControlPlane = client

	var source *cluster.ResourceSource
	if cfg.Kubeconfig != "" {
		kubeconfig, err := os.ReadFile(cfg.Kubeconfig)
		if err != nil {
			return fmt.Errorf("failed to read kubeconfig: %v", err)
		}
		source, err = cluster.NewResourceSource(logger, kubeconfig)
		if err != nil {
			return err
		}
		controlPlane = cluster.WithResourceSource(controlPlane, source)
		logger.Info("Reading resources from Kubernetes", "contexts", source.Contexts())
	}

	broker := event.NewEventBroker(logger)
	var notifier event.Notifier = broker
	if cfg.RabbitMqURL.Enabled() {
		publisher, conn, err := event.DialPublisher(logger, cfg.RabbitMqURL.GetUrl(), cfg.RabbitMqURL.Exchange)
		if err != nil {
			return err
		}
		defer conn.Close()
		notifier = event.Notifiers{broker, publisher}
	}

	realClock := clock.RealClock{}

	registry := session.NewRegistry(logger, controlPlane, realClock, session.Options{
		AllocatedInterval: cfg.Polling.AllocatedInterval,
		DebounceDelay:     cfg.Polling.DebounceDelay,
	}, cfg.Session.IdleTTL)
	go registry.Run(ctx, cfg.Session.ReapInterval)

	dbclusterService := dbcluster.NewService(controlPlane, realClock, cfg.Polling.SettleDelay)
	orchestrator := dbcluster.NewOrchestrator(logger, controlPlane, notifier, realClock)

	handlers := server.Handlers{
		Cluster:   cluster.NewHandler(cluster.NewService(controlPlane, source)),
		DBCluster: dbcluster.NewHandler(dbclusterService, orchestrator),
		Session:   session.NewHandler(registry),
		Event:     event.NewHandler(logger, broker),
	}
	r := server.GetEngine(logger, cfg.Tracing.ServiceName, cfg.BasePath, handlers)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Listening", "port", cfg.Port, "basePath", cfg.BasePath)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
