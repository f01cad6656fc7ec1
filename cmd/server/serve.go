package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-demo/chatcore/internal/config"
	"github.com/go-demo/chatcore/internal/dto/response"
	"github.com/go-demo/chatcore/internal/handler"
	"github.com/go-demo/chatcore/internal/middleware"
	"github.com/go-demo/chatcore/internal/pkg/cache"
	"github.com/go-demo/chatcore/internal/pkg/database"
	"github.com/go-demo/chatcore/internal/pkg/idgen"
	"github.com/go-demo/chatcore/internal/pkg/lock"
	"github.com/go-demo/chatcore/internal/pkg/utils"
	"github.com/go-demo/chatcore/internal/repository"
	"github.com/go-demo/chatcore/internal/service"
	"github.com/go-demo/chatcore/internal/worker"
	"github.com/go-demo/chatcore/internal/ws"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("Starting chat server",
		zap.String("version", version),
		zap.String("mode", cfg.Server.Mode),
		zap.Int("port", cfg.Server.Port),
	)

	gin.SetMode(cfg.Server.Mode)

	db, err := database.NewPostgres(cmd.Context(), &cfg.Database, logger)
	if err != nil {
		return err
	}
	defer database.Close(db, logger)
	prometheus.MustRegister(database.StatsCollector(db))

	redisClient, err := cache.NewRedis(&cfg.Redis, logger)
	if err != nil {
		return err
	}
	defer cache.Close(redisClient, logger)

	jwtManager := utils.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Issuer)
	ids := idgen.New()
	locker := lock.NewRedisLocker(redisClient, cfg.Chat.LockWait, cfg.Chat.LockLease, logger)

	// Repositories
	roomRepo := repository.NewRoomRepository(db)
	memberRepo := repository.NewMemberRepository(db)
	messageRepo := repository.NewMessageRepository(redisClient)
	pendingRepo := repository.NewPendingRoomRepository(redisClient)
	positionCache := repository.NewReadPositionCache(redisClient)
	positionRepo := repository.NewReadPositionRepository(db)

	// Room events go out through Redis so every instance's hub sees them
	broker := ws.NewBroker(redisClient, logger)

	var notifier service.Notifier
	if cfg.Push.Enabled {
		notifier = service.NewRedisNotifier(redisClient, cfg.Push, logger)
	}

	// Services
	positions := service.NewReadPositionService(positionCache, positionRepo, messageRepo, logger)
	roomService := service.NewRoomService(roomRepo, memberRepo, pendingRepo, positions, ids, broker, cfg.Chat.PendingRoomTTL, logger)
	memberService := service.NewMemberService(roomRepo, memberRepo, locker, broker, logger)
	messageService := service.NewMessageService(messageRepo, memberRepo, positions, ids, broker, notifier, cfg.Chat, logger)
	detailService := service.NewRoomDetailService(memberRepo, messageRepo, cfg.Chat.RecentMessageWindow, logger)

	hub := ws.NewHub(memberService, messageService, logger)
	hub.LimitSends(middleware.NewPerMinuteRateLimiter(cfg.Chat.MessagesPerMinute))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var background sync.WaitGroup
	background.Add(3)
	go func() {
		defer background.Done()
		hub.Run(ctx)
	}()
	go func() {
		defer background.Done()
		if err := broker.Run(ctx, hub); err != nil {
			logger.Error("Room event broker exited", zap.Error(err))
		}
	}()
	go func() {
		defer background.Done()
		worker.NewReadPositionSyncer(positionCache, positionRepo, cfg.Chat.ReadSyncInterval, logger).Run(ctx)
	}()

	router := setupRouter(cfg, logger, jwtManager, db, redisClient,
		handler.NewRoomHandler(roomService, detailService),
		handler.NewMemberHandler(memberService),
		handler.NewMessageHandler(messageService),
		ws.NewHandler(hub, cfg.Server.AllowOrigins, logger),
	)

	srv := &http.Server{
		Addr:         cfg.Server.GetAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Server is running", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			logger.Error("Failed to start server", zap.Error(err))
			stop()
			background.Wait()
			return err
		}
	}

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	stop()
	background.Wait()
	messageService.Wait()

	logger.Info("Server exited")
	return nil
}

func setupRouter(
	cfg *config.Config,
	logger *zap.Logger,
	jwtManager *utils.JWTManager,
	db *sqlx.DB,
	redisClient *redis.Client,
	roomHandler *handler.RoomHandler,
	memberHandler *handler.MemberHandler,
	messageHandler *handler.MessageHandler,
	wsHandler *ws.Handler,
) *gin.Engine {
	router := gin.New()
	started := time.Now()

	// Global middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Metrics())
	router.Use(middleware.CORS(cfg.Server.AllowOrigins...))

	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		services := map[string]string{"postgres": "up", "redis": "up"}
		status := "healthy"
		if err := db.PingContext(ctx); err != nil {
			services["postgres"] = "down"
			status = "degraded"
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			services["redis"] = "down"
			status = "degraded"
		}

		code := http.StatusOK
		if status != "healthy" {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, response.HealthResponse{
			Status:    status,
			Version:   version,
			Uptime:    time.Since(started).Round(time.Second).String(),
			Timestamp: time.Now().Format(time.RFC3339),
			Services:  services,
		})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// WebSocket endpoint; browsers pass the token as ?token=
	router.GET("/ws", middleware.Auth(jwtManager), wsHandler.ServeWS)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.Auth(jwtManager))
	v1.Use(middleware.APIRateLimit(redisClient))
	{
		handler.RegisterRoomRoutes(v1.Group("/rooms"),
			roomHandler,
			memberHandler,
			messageHandler,
			middleware.MessageRateLimit(redisClient, cfg.Chat.MessagesPerMinute),
		)

		wsStats := v1.Group("/ws")
		{
			wsStats.GET("/stats", wsHandler.GetStats)
			wsStats.GET("/online", wsHandler.IsUserOnline)
		}
	}

	return router
}
