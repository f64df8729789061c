package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"dealmatch-service/internal/compat"
	"dealmatch-service/internal/config"
	"dealmatch-service/internal/db"
	"dealmatch-service/internal/handlers"
	"dealmatch-service/internal/logger"
	"dealmatch-service/internal/matching"
	"dealmatch-service/internal/middleware"
	"dealmatch-service/internal/observability"
	"dealmatch-service/internal/rabbitmq"
	"dealmatch-service/internal/repositories"
	"dealmatch-service/internal/telemetry"
	"dealmatch-service/internal/ws"
)

const serviceVersion = "1.0.0"

func main() {
	cfg := config.MustLoad()

	appLogger, err := logger.Setup(cfg.LogLevel, cfg.LogPretty)
	if err != nil {
		panic(err)
	}

	gin.SetMode(cfg.GinMode)

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to connect to db")
	}
	defer database.Close()

	if cfg.OTEL.Enabled {
		shutdown, err := observability.SetupOTel(context.Background(), cfg.OTEL, serviceVersion)
		if err != nil {
			appLogger.Fatal().Err(err).Msg("failed to set up tracing")
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(ctx); err != nil {
				log.Warn().Err(err).Msg("tracer shutdown failed")
			}
		}()
	}

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	appLogger.Info().Str("mode", rabbitmq.PublisherMode(publisher)).Msg("event publisher ready")

	if cfg.AMQPURL != "" {
		if wsPublisher, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange); err != nil {
			log.Warn().Err(err).Msg("ws event publisher unavailable")
		} else {
			observability.SetPublisher(wsPublisher)
			defer wsPublisher.Close()
		}
	}

	emitter := telemetry.NewAuditEmitter(publisher, cfg.AuditRoutingKey, "dealmatch-service", cfg.Environment)

	swipeRepo := repositories.NewSwipeRepo(database)
	matchRepo := repositories.NewMatchRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	profileRepo := repositories.NewProfileRepo(database)

	var checker compat.Checker = compat.NewDBChecker(database)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		checker = compat.NewCachedChecker(checker, compat.NewRedisCache(redisClient), cfg.CompatTTL)
		appLogger.Info().Str("addr", cfg.RedisAddr).Dur("ttl", cfg.CompatTTL).Msg("compatibility cache enabled")
	}

	resolver := matching.NewResolver(swipeRepo, matchRepo, checker, publisher, appLogger)

	hub := ws.NewHub()

	swipeHandler := handlers.NewSwipeHandler(swipeRepo, resolver, emitter, cfg.OpTimeout)
	matchHandler := handlers.NewMatchHandler(matchRepo, profileRepo, cfg.OpTimeout)
	chatHandler := handlers.NewChatHandler(matchRepo, messageRepo, hub, cfg.OpTimeout)
	chatWS := ws.NewChatWSHandler(hub, matchRepo, []byte(cfg.JWTSecret))

	limiterStore := middleware.NewLimiterStore(cfg.SwipesPerMinute, cfg.SwipeBurst, time.Minute)
	defer limiterStore.Stop()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(observability.HTTPMetricsMiddleware())
	router.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := middleware.Auth([]byte(cfg.JWTSecret))

	router.POST("/deals/:deal_id/swipes", auth, middleware.PerUserRateLimit(limiterStore), swipeHandler.PostSwipe)
	router.GET("/matches", auth, matchHandler.ListMatches)
	router.POST("/matches/notifications/consume", auth, matchHandler.ConsumeNotifications)
	router.GET("/matches/:match_id/messages", auth, chatHandler.ListMessages)
	router.POST("/matches/:match_id/messages", auth, chatHandler.PostMessage)

	router.GET("/ws/matches/:match_id", chatWS.Handle)

	handlers.RegisterDebugRoutes(router, emitter, cfg.DebugRoutes)

	appLogger.Info().Str("port", cfg.Port).Msg("dealmatch service listening")
	if err := router.Run(":" + cfg.Port); err != nil {
		appLogger.Fatal().Err(err).Msg("server error")
	}
}
