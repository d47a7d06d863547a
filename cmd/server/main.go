package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/ignite/campaign-dispatch/internal/config"
	"github.com/ignite/campaign-dispatch/internal/dispatch"
	"github.com/ignite/campaign-dispatch/internal/pkg/distlock"
	"github.com/ignite/campaign-dispatch/internal/pkg/httputil"
	"github.com/ignite/campaign-dispatch/internal/pkg/logger"
	"github.com/ignite/campaign-dispatch/internal/reconcile"
	"github.com/ignite/campaign-dispatch/internal/repository/postgres"
	"github.com/ignite/campaign-dispatch/internal/ses"
	"github.com/ignite/campaign-dispatch/internal/webhook"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}
	cfg, err := config.LoadFromEnv(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(25)
	if err := db.PingContext(ctx); err != nil {
		logger.Error("database unreachable", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	var locks dispatch.LockFactory
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, dispatch lock disabled", "error", err)
	} else {
		ttl := cfg.Dispatch.LockTTL()
		locks = func(key string) dispatch.Locker {
			return distlock.NewRedisLock(redisClient, key, ttl)
		}
	}

	provider, err := ses.NewClient(ctx, ses.Config{
		Region:           cfg.SES.Region,
		AccessKey:        cfg.SES.AccessKey,
		SecretKey:        cfg.SES.SecretKey,
		Endpoint:         cfg.SES.Endpoint,
		ConfigurationSet: cfg.SES.ConfigurationSet,
	})
	if err != nil {
		logger.Error("failed to create SES client", "error", err)
		os.Exit(1)
	}

	executor := dispatch.NewExecutor(provider, dispatch.ExecutorConfig{
		Cooldown:                cfg.Dispatch.ChunkCooldown(),
		SkipCooldownSingleChunk: !cfg.Dispatch.PaceSingleChunk,
	})
	coordinator := dispatch.NewCoordinator(postgres.NewDispatchRepo(db), executor, cfg.Dispatch.MaxBatchSize, locks)
	reconciler := reconcile.NewReconciler(postgres.NewReconcileRepo(db))
	hooks := webhook.NewHandler(reconciler)

	if cfg.Events.QueueURL != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.SES.Region),
			awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.SES.AccessKey, cfg.SES.SecretKey, ""),
			),
		)
		if err != nil {
			logger.Error("failed to load AWS config for SQS", "error", err)
			os.Exit(1)
		}
		consumer := webhook.NewConsumer(sqs.NewFromConfig(awsCfg), cfg.Events.QueueURL, reconciler)
		consumer.Start(ctx)
		defer consumer.Stop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
	}))
	r.Mount("/", hooks.Routes())
	r.Post("/internal/dispatch", dispatchHandler(coordinator))
	r.Post("/internal/resend", resendHandler(coordinator))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", "error", err)
	}
}

// dispatchHandler exposes the coordinator to the API layer. Authorization is
// enforced upstream; this endpoint is only reachable on the internal network.
func dispatchHandler(c *dispatch.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dispatch.DispatchRequest
		if !httputil.Decode(w, r, &req) {
			return
		}
		result, err := c.Dispatch(r.Context(), req)
		writeDispatchResult(w, result, err)
	}
}

func resendHandler(c *dispatch.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dispatch.DispatchRequest
		if !httputil.Decode(w, r, &req) {
			return
		}
		result, err := c.Resend(r.Context(), req)
		writeDispatchResult(w, result, err)
	}
}

func writeDispatchResult(w http.ResponseWriter, result *dispatch.DispatchResult, err error) {
	switch {
	case errors.Is(err, dispatch.ErrNoValidRecipients):
		httputil.JSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":  err.Error(),
			"result": result,
		})
	case errors.Is(err, dispatch.ErrDispatchInFlight),
		errors.Is(err, dispatch.ErrAlreadyDispatched),
		errors.Is(err, dispatch.ErrNotResendable):
		httputil.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, dispatch.ErrCampaignNotFound):
		httputil.Error(w, http.StatusNotFound, err.Error())
	case err != nil:
		httputil.InternalError(w, err)
	default:
		httputil.OK(w, result)
	}
}
