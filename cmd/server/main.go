package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/teresa-solution/lease-management-service/internal/config"
	"github.com/teresa-solution/lease-management-service/internal/crypto"
	"github.com/teresa-solution/lease-management-service/internal/lease"
	"github.com/teresa-solution/lease-management-service/internal/monitoring"
	"github.com/teresa-solution/lease-management-service/internal/notify"
	"github.com/teresa-solution/lease-management-service/internal/service"
	"github.com/teresa-solution/lease-management-service/internal/store"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

func openDocuments(cfg *config.Config) (store.DocumentStore, error) {
	if cfg.StoreBackend == config.BackendMemory {
		log.Warn().Msg("Using the in-memory document store, data is lost on exit")
		return store.NewMemoryStore(), nil
	}

	var cache store.RedisClient
	if cfg.RedisAddr != "" {
		cache = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	}
	return store.NewPostgresStore(cfg.DatabaseURL, cache)
}

func openEmailSender(cfg *config.Config) (notify.EmailSender, func() error, error) {
	if cfg.RabbitMQURL == "" {
		log.Warn().Msg("RABBITMQ_URL not set, emails will only be logged")
		return notify.LogSender{}, func() error { return nil }, nil
	}
	publisher, err := notify.DialEmailPublisher(cfg.RabbitMQURL, cfg.EmailQueue)
	if err != nil {
		return nil, nil, err
	}
	return publisher, publisher.Close, nil
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	zerolog.SetGlobalLevel(cfg.Level())

	docs, err := openDocuments(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	var cipher *crypto.Cipher
	if cfg.EncryptionKey != "" {
		cipher, err = crypto.NewCipher([]byte(cfg.EncryptionKey))
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize email encryption")
		}
	} else {
		log.Warn().Msg("ENCRYPTION_KEY not set, contact emails will not be stored")
	}
	st := store.New(docs, cipher)
	defer st.Close()

	sender, closeSender, err := openEmailSender(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to RabbitMQ")
	}
	defer closeSender()

	dispatcher := notify.NewDispatcher(st, sender, cfg.NotificationBuffer)
	leaseService := lease.NewService(st, dispatcher, cfg.FrontendURL)

	monitoring.InitMetrics()

	log.Info().Msgf("Starting Lease Management Service on port %d", cfg.GRPCPort)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to listen")
	}

	server := grpc.NewServer(grpc.UnaryInterceptor(service.LoggingInterceptor))
	service.Register(server, service.NewLeaseService(leaseService))
	healthServer := health.NewServer()
	healthServer.SetServingStatus(service.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, healthServer)
	reflection.Register(server)

	go func() {
		log.Info().Msgf("gRPC server listening at %v", lis.Addr())
		if err := server.Serve(lis); err != nil {
			log.Fatal().Err(err).Msg("Failed to start gRPC server")
		}
	}()

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	router.Handle("/metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: router,
	}
	go func() {
		log.Info().Msgf("HTTP server for health checks and metrics started on port %d", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	healthServer.Shutdown()
	server.GracefulStop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// Drain queued notifications before the store goes away.
	dispatcher.Close()
	log.Info().Msg("Server exiting")
}
