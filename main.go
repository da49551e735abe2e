package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/nosh-kitchen/nosh-backend/internal/config"
	"github.com/nosh-kitchen/nosh-backend/internal/database"
	"github.com/nosh-kitchen/nosh-backend/internal/dish/handler"
	"github.com/nosh-kitchen/nosh-backend/internal/dish/repository"
	"github.com/nosh-kitchen/nosh-backend/internal/dish/service"
	"github.com/nosh-kitchen/nosh-backend/internal/realtime"
	"github.com/nosh-kitchen/nosh-backend/internal/storage"
	"github.com/nosh-kitchen/nosh-backend/pkg/logger"
	"github.com/nosh-kitchen/nosh-backend/pkg/metrics"
	"github.com/nosh-kitchen/nosh-backend/pkg/middleware"
)

var startTime = time.Now()

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: mongo=%v redis=%v rate_limit=%v", cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.RateLimit.Enabled)

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(corsMiddleware(cfg.CORS))

	// Connect to Redis early so the rate limiter can use it when configured
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			redisClient = nil
		} else {
			logger.Infof("connected to Redis: %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		}
	}

	if cfg.RateLimit.Enabled {
		window := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
		if cfg.RateLimit.UseRedis && redisClient != nil {
			r.Use(middleware.RedisRateLimitMiddleware(redisClient, cfg.RateLimit.Max, window))
		} else {
			rps := float64(cfg.RateLimit.Max) / window.Seconds()
			r.Use(middleware.RateLimitMiddleware(rps, cfg.RateLimit.Max))
		}
	}

	// Dish store: Mongo when configured, in-memory fallback for local dev
	ctx := context.Background()
	var repo repository.Repository
	var mongoClient *mongo.Client
	if cfg.MongoDB.URI != "" {
		mongoClient = connectMongoWithRetry(ctx, cfg)
		if mongoClient != nil {
			defer func() { _ = mongoClient.Disconnect(ctx) }()
			col := mongoClient.Database(cfg.MongoDB.Database).Collection("dishes")
			mrepo, err := repository.NewMongoRepo(ctx, col)
			if err != nil {
				logger.Fatalf("failed to initialize dish collection: %v", err)
			}
			repo = mrepo
		}
	}
	if repo == nil {
		logger.Warnf("MongoDB unavailable; using in-memory dish store (data is not persisted)")
		repo = repository.NewMemoryRepo()
	}

	// The broadcaster is an explicit dependency of the dish service, wired
	// here and nowhere else.
	hub := realtime.NewHub()
	svc := service.New(repo, hub)

	handler.RegisterDishRoutes(r, svc)
	handler.RegisterMetaRoutes(r, cfg.Server.Environment, startTime)
	r.GET("/ws", hub.ServeWS)

	// Optional image uploads when MinIO is configured
	if mcfg := storage.LoadMinIOConfig(); mcfg.Endpoint != "" {
		store, err := storage.NewMinIOStorage(mcfg)
		if err != nil {
			logger.Warnf("image uploads disabled: %v", err)
		} else {
			storage.RegisterImageRoutes(r, store)
			logger.Infof("image uploads enabled (bucket %s)", mcfg.Bucket)
		}
	}

	r.GET("/ready", func(c *gin.Context) {
		deps := map[string]bool{
			"store": true, // memory fallback always works
			"mongo": mongoClient != nil,
			"redis": redisClient != nil || cfg.Redis.Host == "",
		}
		ready := deps["redis"]
		status := http.StatusOK
		body := gin.H{"status": "ready", "deps": deps, "uptime": time.Since(startTime).String()}
		if !ready {
			status = http.StatusServiceUnavailable
			body["status"] = "not_ready"
		}
		c.JSON(status, body)
	})

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Infof("dish API listening on %s (%s)", addr, cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()

	logger.Infof("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}

// connectMongoWithRetry tolerates startup races against the database
// container. Returns nil after exhausting attempts.
func connectMongoWithRetry(ctx context.Context, cfg *config.Config) *mongo.Client {
	const maxAttempts = 5
	backoff := time.Second
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		client, err := database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
		if err == nil {
			logger.Infof("connected to MongoDB: %s", cfg.MongoDB.Database)
			return client
		}
		logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, err)
		if attempt < maxAttempts {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	return nil
}

func corsMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	allowed := make(map[string]bool, len(cfg.Origins))
	for _, o := range cfg.Origins {
		allowed[o] = true
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && allowed[origin] {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", strconv.FormatBool(cfg.Credentials))
			c.Writer.Header().Set("Vary", "Origin")
		}
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
