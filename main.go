package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/codraft/codraft/handlers"
	"github.com/codraft/codraft/internal/collab"
	"github.com/codraft/codraft/internal/config"
	"github.com/codraft/codraft/internal/database"
	dochandler "github.com/codraft/codraft/internal/document/handler"
	docrepo "github.com/codraft/codraft/internal/document/repository"
	docservice "github.com/codraft/codraft/internal/document/service"
	"github.com/codraft/codraft/internal/oidc"
	"github.com/codraft/codraft/internal/sessions"
	"github.com/codraft/codraft/internal/storage"
	"github.com/codraft/codraft/internal/tokens"
	"github.com/codraft/codraft/internal/users"
	"github.com/codraft/codraft/pkg/logger"
	"github.com/codraft/codraft/pkg/metrics"
	"github.com/codraft/codraft/pkg/middleware"
)

var startTime = time.Now()

func main() {
	// initialize logging (can be controlled with LOG_LEVEL env: debug|info|warn|error|fatal)
	logger.Init(os.Getenv("LOG_LEVEL"))
	logger.Debugf("startup: LOG_LEVEL=%s", logger.LevelString())

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: mongo=%v redis=%v oidc=%v", cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.OIDC.IssuerURL != "")

	r := gin.New()

	// Lightweight CORS middleware for dev/test: set common headers and respond to OPTIONS.
	// (Keep this intentionally simple — production should use a stricter policy.)
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}
		c.Next()
	})

	r.Use(gin.Logger(), gin.Recovery())

	// shared runtime vars used by handlers/readiness
	var verifier middleware.Verifier
	var userSvc *users.Service
	var sessionsSvc *sessions.Service

	// Connect to Redis early so the rate-limiter and token blacklist can use it
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Host + ":" + cfg.Redis.Port, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := redisClient.Ping(context.Background()).Err(); err == nil {
			sessions.SetBlacklistClient(redisClient)
			logger.Infof("connected to Redis: %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		} else {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			redisClient = nil
		}
	}

	// Optional global rate limiter (per-user when authenticated, otherwise per-IP)
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && redisClient != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(redisClient, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// document service always comes up: memory-backed unless Mongo connects below
	docSvc := docservice.NewMemoryService()

	ctx := context.Background()

	// MongoDB-backed services with retry/backoff to tolerate startup races
	if cfg.MongoDB.URI != "" {
		const maxAttempts = 5
		backoff := time.Second
		var client *mongo.Client
		var errConn error
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			client, errConn = database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
			if errConn == nil {
				break
			}
			logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, errConn)
			if attempt < maxAttempts {
				time.Sleep(backoff)
				backoff *= 2
			}
		}
		if errConn != nil {
			logger.Warnf("could not connect to MongoDB after %d attempts, using memory stores: %v", maxAttempts, errConn)
		} else {
			defer func() { _ = client.Disconnect(ctx) }()
			db := client.Database(cfg.MongoDB.Database)

			docSvc = docservice.New(docrepo.NewMongoRepo(db.Collection("documents")))
			userSvc = users.NewService(users.NewMongoUserRepository(db.Collection("users")))
			if sessionsSvc == nil && redisClient == nil {
				sessionsSvc = sessions.NewService(sessions.NewMongoRepository(db.Collection("sessions")))
			}
			logger.Infof("using MongoDB storage: %s", cfg.MongoDB.Database)
		}
	}

	// Prefer Redis-based sessions when available (fast, self-expiring)
	if sessionsSvc == nil && redisClient != nil {
		sessionsSvc = sessions.NewService(sessions.NewRedisRepository(redisClient, "session:"))
		logger.Infof("using Redis for session storage")
	}

	// Token verifier: external OIDC issuer when configured, otherwise locally
	// issued HS256 tokens. ALLOW_INSECURE_TOKEN skips verification entirely and
	// must never be set outside integration tests.
	if cfg.OIDC.IssuerURL != "" && cfg.OIDC.ClientID != "" {
		ver, err := oidc.NewVerifier(ctx, cfg.OIDC.IssuerURL, cfg.OIDC.ClientID)
		if err != nil {
			logger.Warnf("failed to initialize OIDC verifier: %v", err)
		} else {
			verifier = ver
		}
	} else if cfg.JWT.Secret != "" {
		verifier = tokens.NewVerifier(cfg.JWT.Secret)
	}
	if verifier == nil && strings.EqualFold(strings.TrimSpace(os.Getenv("ALLOW_INSECURE_TOKEN")), "true") {
		logger.Warn("enabling insecure token verifier (integration mode)")
		verifier = oidc.NewInsecureVerifier()
	}

	// readiness endpoint — return 200 only when critical dependencies are available
	r.GET("/ready", func(c *gin.Context) {
		ready := true
		deps := map[string]bool{}

		deps["documents"] = docSvc != nil
		deps["users"] = userSvc != nil
		deps["sessions"] = sessionsSvc != nil

		if cfg.OIDC.IssuerURL != "" && verifier == nil {
			deps["oidc"] = false
			ready = false
		} else {
			deps["oidc"] = true
		}

		if cfg.Redis.Host != "" && cfg.RateLimit.UseRedis {
			deps["redis"] = redisClient != nil
			if !deps["redis"] {
				ready = false
			}
		} else {
			deps["redis"] = true
		}

		status := http.StatusOK
		state := "ready"
		if !ready {
			status = http.StatusServiceUnavailable
			state = "not_ready"
		}
		c.JSON(status, gin.H{"status": state, "deps": deps, "uptime": time.Since(startTime).String()})
	})

	api := r.Group("/api")

	// auth handlers need both user and session stores
	if userSvc != nil && sessionsSvc != nil {
		handlers.NewAuthHandler(cfg, userSvc, sessionsSvc).Register(api)
	} else {
		logger.Warnf("auth handlers not registered because user/sessions services are unavailable")
	}

	docGroup := api.Group("/document")
	if verifier != nil {
		docGroup.Use(middleware.AuthMiddleware(verifier))
	}
	dochandler.RegisterDocumentRoutes(docGroup, docSvc)

	handlers.RegisterSwagger(r)

	// realtime collaboration hub
	hub := collab.NewHub(cfg.Collab, docSvc)
	if mcfg := storage.LoadMinIOConfig(); mcfg.Endpoint != "" {
		if archive, err := storage.NewMinIOStorage(mcfg); err != nil {
			logger.Warnf("snapshot archiving disabled: %v", err)
		} else {
			hub.SetArchive(archive)
			logger.Infof("snapshot archiving enabled (bucket %s)", mcfg.Bucket)
		}
	}
	go hub.Run()
	r.GET("/ws", collab.ServeWS(hub, verifier))

	// Expose Prometheus metrics
	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.Debugf("services: documents=%v user=%v sessions=%v verifier=%v", docSvc != nil, userSvc != nil, sessionsSvc != nil, verifier != nil)
	logger.Infof("starting collaboration service on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}
