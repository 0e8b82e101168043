package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	rediscache "github.com/dreschagin/observability-core/internal/infrastructure/cache/redis"
	natspub "github.com/dreschagin/observability-core/internal/infrastructure/messaging/nats"
	wsInfra "github.com/dreschagin/observability-core/internal/infrastructure/notification/websocket"
	cwobs "github.com/dreschagin/observability-core/internal/infrastructure/observability/cloudwatch"
	s3storage "github.com/dreschagin/observability-core/internal/infrastructure/storage/s3"
	httpInterface "github.com/dreschagin/observability-core/internal/interfaces/http"
	"github.com/dreschagin/observability-core/internal/interfaces/http/handler"
	"github.com/dreschagin/observability-core/internal/interfaces/http/middleware"
	"github.com/dreschagin/observability-core/internal/logging"
	"github.com/dreschagin/observability-core/internal/observability"
	"github.com/dreschagin/observability-core/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	manager, err := observability.NewManager(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create observability manager: %v\n", err)
		os.Exit(1)
	}
	defer manager.Destroy()

	log := manager.CreateLogger(logging.Context{Component: "server"})
	log.Info("Starting observability core", logging.Context{}, map[string]interface{}{
		"environment": cfg.Metrics.Environment,
		"port":        cfg.Server.Port,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Optional CloudWatch shipping for logs and metrics.
	if cfg.CloudWatch.Enabled {
		logsPublisher, err := cwobs.NewLogsPublisher(ctx, cwobs.LogsPublisherConfig{
			LogGroupName:    cfg.CloudWatch.LogGroupName,
			LogStreamName:   cfg.CloudWatch.LogStreamName,
			Region:          cfg.CloudWatch.Region,
			Endpoint:        cfg.CloudWatch.Endpoint,
			AccessKeyID:     cfg.CloudWatch.AccessKeyID,
			SecretAccessKey: cfg.CloudWatch.SecretAccessKey,
			BufferSize:      cfg.CloudWatch.BufferSize,
			FlushInterval:   cfg.CloudWatch.FlushInterval,
			AutoCreate:      true,
		})
		if err != nil {
			log.Error("Failed to initialize CloudWatch logs publisher", logging.Context{}, nil, err)
			os.Exit(1)
		}
		defer logsPublisher.Close(context.Background())
		manager.Logger().SetRemoteSink(logsPublisher)

		metricsPublisher, err := cwobs.NewMetricsPublisher(ctx, cwobs.MetricsPublisherConfig{
			Namespace:       cfg.CloudWatch.Namespace,
			Region:          cfg.CloudWatch.Region,
			Endpoint:        cfg.CloudWatch.Endpoint,
			AccessKeyID:     cfg.CloudWatch.AccessKeyID,
			SecretAccessKey: cfg.CloudWatch.SecretAccessKey,
			DefaultDimensions: map[string]string{
				"Environment": cfg.Metrics.Environment,
			},
			BufferSize:    cfg.CloudWatch.BufferSize,
			FlushInterval: cfg.CloudWatch.FlushInterval,
		})
		if err != nil {
			log.Error("Failed to initialize CloudWatch metrics publisher", logging.Context{}, nil, err)
			os.Exit(1)
		}
		defer metricsPublisher.Close(context.Background())
		manager.Metrics().SetExporter(metricsPublisher)
	}

	// Optional S3 upload target for generated reports.
	if cfg.S3.Enabled {
		reportStorage, err := s3storage.NewReportStorage(ctx, s3storage.Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UsePathStyle:    cfg.S3.UsePathStyle,
			URLMode:         s3storage.URLMode(cfg.S3.URLMode),
			PresignedTTL:    cfg.S3.PresignedTTL,
		})
		if err != nil {
			log.Error("Failed to initialize report storage", logging.Context{}, nil, err)
			os.Exit(1)
		}
		manager.Reports().SetStorage(reportStorage, cfg.S3.KeyPrefix)
	}

	// Prometheus registry for the server's own instrumentation.
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := middleware.NewHTTPMetrics(registry)

	// WebSocket hub streams manager events to connected clients.
	hub := wsInfra.NewHub(manager.Logger())
	hub.SetClientsGauge(httpMetrics.WebsocketClients)
	go hub.Run()
	for _, eventType := range []observability.EventType{
		observability.EventLogEntry,
		observability.EventMetricRecorded,
		observability.EventHealthCheckCompleted,
		observability.EventReportGenerated,
		observability.EventConfigUpdated,
	} {
		manager.AddEventListener(eventType, hub.HandleEvent)
	}

	// Optional NATS relay for the same events.
	if cfg.Events.NATSEnabled {
		eventPublisher, err := natspub.NewEventPublisher(cfg.Events.NATSURL, cfg.Events.SubjectBase, manager.Logger())
		if err != nil {
			log.Error("Failed to connect to NATS", logging.Context{}, nil, err)
			os.Exit(1)
		}
		defer eventPublisher.Close()
		for _, eventType := range []observability.EventType{
			observability.EventHealthCheckCompleted,
			observability.EventReportGenerated,
			observability.EventConfigUpdated,
		} {
			manager.AddEventListener(eventType, eventPublisher.HandleEvent)
		}
	}

	manager.Start()

	// HTTP surface.
	apiHandler := handler.NewObservabilityHandler(manager, manager.Logger())

	if cfg.Cache.Enabled {
		summaryCache, err := rediscache.NewSummaryCache(cfg.Cache)
		if err != nil {
			log.Error("Failed to connect to Redis", logging.Context{}, nil, err)
			os.Exit(1)
		}
		defer summaryCache.Close()
		apiHandler.SetCache(summaryCache, func(kind string) string {
			return rediscache.SummaryKey(kind, cfg.Cache.TTL)
		})

		// Config changes alter what the summaries report; drop every cached
		// snapshot rather than waiting for the TTL.
		manager.AddEventListener(observability.EventConfigUpdated, func(observability.Event) {
			invCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := summaryCache.DeletePattern(invCtx, "observability:summary:*"); err != nil {
				log.Warn("Failed to invalidate summary cache", logging.Context{},
					map[string]interface{}{"error": err.Error()})
			}
		})
	}

	authConfig := middleware.AuthConfig{
		Enabled:     cfg.Security.AuthEnabled,
		BearerToken: cfg.Security.AuthToken,
	}
	websocketHandler := handler.NewWebSocketHandler(hub, cfg.Security.AllowedOrigins, authConfig, manager.Logger())

	router := httpInterface.NewRouter(
		apiHandler,
		websocketHandler,
		cfg.Security,
		registry,
		httpMetrics,
		manager.Logger(),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server starting", logging.Context{}, map[string]interface{}{
			"addr": server.Addr,
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server failed", logging.Context{}, nil, err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutdown signal received, starting graceful shutdown", logging.Context{}, nil)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", logging.Context{}, nil, err)
	}

	manager.Stop()
	log.Info("Server stopped gracefully", logging.Context{}, nil)
}
