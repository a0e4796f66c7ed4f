package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fatigue-detector/internal/config"
	"fatigue-detector/internal/database"
	"fatigue-detector/internal/handlers"
	"fatigue-detector/internal/services"
	"fatigue-detector/internal/sink"
	applog "fatigue-detector/pkg/log"
	"fatigue-detector/pkg/pb"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
)

func main() {
	httpPort := flag.String("http-port", "", "HTTP port (overrides HTTP_PORT)")
	grpcPort := flag.String("grpc-port", "", "gRPC port (overrides GRPC_PORT)")
	extractorURL := flag.String("extractor-url", "", "landmark extractor address (overrides EXTRACTOR_URL)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}
	if *httpPort != "" {
		cfg.HTTPPort = *httpPort
	}
	if *grpcPort != "" {
		cfg.GRPCPort = *grpcPort
	}
	if *extractorURL != "" {
		cfg.ExtractorURL = *extractorURL
	}

	logger := applog.NewLogger(applog.Options{
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
		NoColor: !cfg.IsDev(),
	})

	logger.Info("Starting fatigue detection server...")
	logger.WithFields(logrus.Fields{
		"grpc_port":   cfg.GRPCPort,
		"http_port":   cfg.HTTPPort,
		"extractor":   cfg.ExtractorURL,
		"backend":     cfg.BackendURL,
		"environment": cfg.Environment,
	}).Info("configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := services.NewMetrics()

	var source services.LandmarkSource
	if cfg.ExtractorURL != "" {
		client, err := services.NewLandmarkClient(cfg.ExtractorURL, cfg.MaxMessageSize(), logger)
		if err != nil {
			logger.WithError(err).Warn("landmark extractor unavailable, only inline landmarks will be accepted")
		} else {
			defer client.Close()
			source = client
		}
	}

	var (
		sinks  sink.Multi
		events handlers.EventLister
	)

	if cfg.DatabaseEnabled() {
		logger.Infof("Connecting to database: %s", cfg.DSNForLog())
		pool, err := database.Open(ctx, cfg.DSN(), logger)
		if err != nil {
			logger.Fatalf("database: %v", err)
		}
		defer closePool(pool, logger)
		repo := database.NewEventRepository(pool)
		sinks = append(sinks, sink.NewPostgresSink(repo))
		events = repo
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			logger.WithError(err).Error("Failed to connect to Redis")
		} else {
			logger.Infof("Publishing events to Redis channel %s", cfg.RedisChannel)
		}
		cancel()
		defer rdb.Close()
		sinks = append(sinks, sink.NewRedisSink(rdb, cfg.RedisChannel))
	}

	if cfg.BackendURL != "" {
		sinks = append(sinks, sink.NewHTTPSink(cfg.BackendURL, cfg.BackendAPIKey, logger))
	}

	var eventSink sink.Sink = sink.Discard{}
	var async *sink.Async
	if len(sinks) > 0 {
		async = sink.NewAsync(sinks, cfg.SinkBufferSize, logger,
			sink.WithDropHook(metrics.IncrementSinkDropped),
			sink.WithFailHook(func(error) { metrics.IncrementSinkFailed() }),
		)
		eventSink = async
	} else {
		logger.Warn("No event sink configured, alerts are only logged")
	}

	registry, err := services.NewSessionRegistry(cfg.Classifier())
	if err != nil {
		logger.Fatalf("classifier config: %v", err)
	}
	detection := services.NewDetectionService(registry, source, eventSink, metrics, logger)

	// gRPC
	grpcServer := grpc.NewServer(
		grpc.MaxRecvMsgSize(cfg.MaxMessageSize()),
		grpc.MaxSendMsgSize(cfg.MaxMessageSize()),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Second,
			PermitWithoutStream: true,
		}),
	)
	pb.RegisterFatigueDetectionServer(grpcServer, handlers.NewGRPCHandler(detection, logger))
	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(pb.FatigueDetection_ServiceDesc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	go startGRPCServer(grpcServer, cfg.GRPCPort, logger)

	// HTTP
	hub := handlers.NewHub(detection, int64(cfg.MaxMessageSize()), logger)
	mux := http.NewServeMux()
	handlers.NewAPI(detection, handlers.APIOptions{
		Events:      events,
		Hub:         hub,
		CORSOrigins: cfg.CORSOriginList(),
		MaxBody:     int64(cfg.MaxMessageSize()),
	}, logger).Register(mux)

	auth := handlers.NewAPIKeyAuth(cfg.APIKey, cfg.APIKeyHash, []string{"/api/health", "/metrics"}, logger)
	if !auth.Enabled() {
		logger.Warn("API key check disabled: set API_KEY or API_KEY_HASH")
	}
	var handler http.Handler = auth.Middleware(mux)
	var limiter *handlers.RateLimiter
	if cfg.RateLimitPerMin > 0 {
		limiter = handlers.NewRateLimiter(cfg.RateLimitPerMin, auth)
		handler = limiter.Middleware(handler)
	}
	handler = handlers.RequestLogger(logger, handler)

	httpServer := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go startHTTPServer(httpServer, logger)

	go sweep(ctx, detection, limiter, cfg.SessionIdleTTL, logger)

	<-ctx.Done()
	logger.Info("Shutting down...")

	stopped := make(chan struct{})
	go func() {
		healthServer.Shutdown()
		grpcServer.GracefulStop()
		close(stopped)
	}()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	select {
	case <-stopped:
		logger.Info("gRPC server stopped")
	case <-shutdownCtx.Done():
		logger.Warn("Forced gRPC shutdown")
		grpcServer.Stop()
	}

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Error shutting down HTTP server")
	}
	hub.CloseAll()

	if async != nil {
		if err := async.Close(shutdownCtx); err != nil {
			logger.WithError(err).Warn("event queue not fully drained")
		}
	}

	logger.Info("Goodbye!")
}

func startGRPCServer(srv *grpc.Server, port string, logger *logrus.Logger) {
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		logger.Fatalf("failed to listen on gRPC port %s: %v", port, err)
	}
	logger.Infof("gRPC server listening on port %s", port)
	if err := srv.Serve(lis); err != nil {
		logger.Fatalf("failed to serve gRPC: %v", err)
	}
}

func startHTTPServer(srv *http.Server, logger *logrus.Logger) {
	logger.Infof("HTTP server listening on %s", srv.Addr)
	logger.Infof("WebSocket:  ws://localhost%s/ws", srv.Addr)
	logger.Infof("REST API:   http://localhost%s/api/*", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("failed to serve HTTP: %v", err)
	}
}

// sweep evicts idle sessions and rate limiter entries until ctx ends.
func sweep(ctx context.Context, detection *services.DetectionService, limiter *handlers.RateLimiter, ttl time.Duration, logger *logrus.Logger) {
	if ttl <= 0 {
		return
	}
	interval := ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			detection.EvictIdle(ttl)
			if limiter != nil {
				if n := limiter.Sweep(ttl); n > 0 {
					logger.WithField("clients", n).Debug("rate limiter entries dropped")
				}
			}
		}
	}
}

func closePool(pool *pgxpool.Pool, logger *logrus.Logger) {
	pool.Close()
	logger.Info("Database pool closed")
}
