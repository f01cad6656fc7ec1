package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-demo/chatcore/internal/config"
	"github.com/go-demo/chatcore/internal/pkg/cache"
	"github.com/go-demo/chatcore/internal/pkg/database"
	"github.com/go-demo/chatcore/internal/repository"
	"github.com/go-demo/chatcore/internal/worker"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// @title           Chat Core API
// @version         1.0
// @description     聊天室核心服務 API：聊天室、成員、訊息與已讀位置
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

const version = "1.0.0"

func main() {
	rootCmd := &cobra.Command{
		Use:          "chat-server",
		Short:        "聊天室核心服務",
		SilenceUsage: true,
		RunE:         runServe,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "啟動 HTTP 與 WebSocket 服務",
		RunE:  runServe,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "建立資料表",
		RunE:  runMigrate,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "sync-read-positions",
		Short: "將 Redis 中的已讀位置寫回資料庫一次",
		RunE:  runSyncOnce,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "顯示版本",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("chat-server v%s\n", version)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// bootstrap loads configuration and builds the logger every command shares.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := initLogger(&cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init logger: %w", err)
	}
	return cfg, logger, nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	// migrate explicitly below, whatever database.auto_migrate says
	cfg.Database.AutoMigrate = false
	db, err := database.NewPostgres(ctx, &cfg.Database, logger)
	if err != nil {
		return err
	}
	defer database.Close(db, logger)

	return database.Migrate(ctx, db, logger)
}

func runSyncOnce(cmd *cobra.Command, args []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync()

	db, err := database.NewPostgres(cmd.Context(), &cfg.Database, logger)
	if err != nil {
		return err
	}
	defer database.Close(db, logger)

	redisClient, err := cache.NewRedis(&cfg.Redis, logger)
	if err != nil {
		return err
	}
	defer cache.Close(redisClient, logger)

	syncer := worker.NewReadPositionSyncer(
		repository.NewReadPositionCache(redisClient),
		repository.NewReadPositionRepository(db),
		cfg.Chat.ReadSyncInterval,
		logger,
	)
	n, err := syncer.SyncOnce(cmd.Context())
	if err != nil {
		return err
	}
	logger.Info("Read positions synced", zap.Int("count", n))
	return nil
}

func initLogger(cfg *config.LogConfig) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	switch cfg.Level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
	}
	output := cfg.OutputPath
	if output == "" {
		output = "stdout"
	}

	zapCfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         encoding,
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{output},
		ErrorOutputPaths: []string{"stderr"},
	}

	zapCfg.EncoderConfig.TimeKey = "timestamp"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zapCfg.Build()
}
