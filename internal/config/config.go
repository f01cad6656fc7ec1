package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Log      LogConfig
	Chat     ChatConfig
	Push     PushConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	Mode         string // debug, release, test
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	AllowOrigins []string
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
	AutoMigrate     bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
}

// JWTConfig only verifies tokens; issuance happens upstream.
type JWTConfig struct {
	Secret string
	Issuer string
}

type LogConfig struct {
	Level      string // debug, info, warn, error
	Format     string // json, console
	OutputPath string
}

// ChatConfig tunes the chat core.
type ChatConfig struct {
	RecentMessageWindow int
	PendingRoomTTL      time.Duration
	LockWait            time.Duration
	LockLease           time.Duration
	ReadSyncInterval    time.Duration
	PageSizeDefault     int
	PageSizeMax         int
	MessagesPerMinute   int
}

type PushConfig struct {
	Enabled         bool
	Channel         string
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

func Load() (*Config, error) {
	return LoadFrom(viper.New())
}

// LoadFrom reads configuration through the given viper instance.
func LoadFrom(v *viper.Viper) (*Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// 環境變數前綴
	v.SetEnvPrefix("CHAT")
	v.AutomaticEnv()

	// 預設值
	setDefaults(v)

	// 嘗試讀取設定檔（可選）
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// 綁定環境變數
	bindEnvVariables(v)

	cfg := &Config{
		Server: ServerConfig{
			Host:         v.GetString("server.host"),
			Port:         v.GetInt("server.port"),
			Mode:         v.GetString("server.mode"),
			ReadTimeout:  v.GetDuration("server.read_timeout"),
			WriteTimeout: v.GetDuration("server.write_timeout"),
			AllowOrigins: v.GetStringSlice("server.allow_origins"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
			ConnectTimeout:  v.GetDuration("database.connect_timeout"),
			AutoMigrate:     v.GetBool("database.auto_migrate"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			PoolSize: v.GetInt("redis.pool_size"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("jwt.secret"),
			Issuer: v.GetString("jwt.issuer"),
		},
		Log: LogConfig{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			OutputPath: v.GetString("log.output_path"),
		},
		Chat: ChatConfig{
			RecentMessageWindow: v.GetInt("chat.recent_message_window"),
			PendingRoomTTL:      v.GetDuration("chat.pending_room_ttl"),
			LockWait:            v.GetDuration("chat.lock_wait"),
			LockLease:           v.GetDuration("chat.lock_lease"),
			ReadSyncInterval:    v.GetDuration("chat.read_sync_interval"),
			PageSizeDefault:     v.GetInt("chat.page_size_default"),
			PageSizeMax:         v.GetInt("chat.page_size_max"),
			MessagesPerMinute:   v.GetInt("chat.messages_per_minute"),
		},
		Push: PushConfig{
			Enabled:         v.GetBool("push.enabled"),
			Channel:         v.GetString("push.channel"),
			BreakerFailures: v.GetUint32("push.breaker_failures"),
			BreakerTimeout:  v.GetDuration("push.breaker_timeout"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects settings the chat core cannot run with.
func (c *Config) Validate() error {
	if c.Chat.RecentMessageWindow <= 0 {
		return fmt.Errorf("chat.recent_message_window must be positive, got %d", c.Chat.RecentMessageWindow)
	}
	if c.Chat.PageSizeDefault <= 0 || c.Chat.PageSizeDefault > c.Chat.PageSizeMax {
		return fmt.Errorf("chat.page_size_default must be within 1..%d, got %d", c.Chat.PageSizeMax, c.Chat.PageSizeDefault)
	}
	if c.Chat.LockLease <= 0 || c.Chat.LockWait <= 0 {
		return fmt.Errorf("chat.lock_wait and chat.lock_lease must be positive")
	}
	if c.Chat.PendingRoomTTL <= 0 {
		return fmt.Errorf("chat.pending_room_ttl must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.allow_origins", []string{"*"})

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "chat")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("database.connect_timeout", "5s")
	v.SetDefault("database.auto_migrate", false)

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)

	// JWT defaults
	v.SetDefault("jwt.secret", "your-secret-key-change-in-production")
	v.SetDefault("jwt.issuer", "chat-service")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_path", "stdout")

	// Chat defaults
	v.SetDefault("chat.recent_message_window", 15)
	v.SetDefault("chat.pending_room_ttl", "1h")
	v.SetDefault("chat.lock_wait", "10s")
	v.SetDefault("chat.lock_lease", "5s")
	v.SetDefault("chat.read_sync_interval", "1m")
	v.SetDefault("chat.page_size_default", 30)
	v.SetDefault("chat.page_size_max", 100)
	v.SetDefault("chat.messages_per_minute", 60)

	// Push defaults
	v.SetDefault("push.enabled", true)
	v.SetDefault("push.channel", "chat:push")
	v.SetDefault("push.breaker_failures", 5)
	v.SetDefault("push.breaker_timeout", "30s")
}

func bindEnvVariables(v *viper.Viper) {
	// Server
	_ = v.BindEnv("server.host", "SERVER_HOST")
	_ = v.BindEnv("server.port", "SERVER_PORT")
	_ = v.BindEnv("server.mode", "SERVER_MODE")

	// Database
	_ = v.BindEnv("database.host", "DB_HOST")
	_ = v.BindEnv("database.auto_migrate", "DB_AUTO_MIGRATE")
	_ = v.BindEnv("database.port", "DB_PORT")
	_ = v.BindEnv("database.user", "DB_USER")
	_ = v.BindEnv("database.password", "DB_PASSWORD")
	_ = v.BindEnv("database.dbname", "DB_NAME")
	_ = v.BindEnv("database.sslmode", "DB_SSLMODE")

	// Redis
	_ = v.BindEnv("redis.host", "REDIS_HOST")
	_ = v.BindEnv("redis.port", "REDIS_PORT")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")

	// JWT
	_ = v.BindEnv("jwt.secret", "JWT_SECRET")

	// Log
	_ = v.BindEnv("log.level", "LOG_LEVEL")

	// Chat
	_ = v.BindEnv("chat.pending_room_ttl", "CHAT_PENDING_ROOM_TTL")
	_ = v.BindEnv("chat.read_sync_interval", "CHAT_READ_SYNC_INTERVAL")
	_ = v.BindEnv("push.enabled", "PUSH_ENABLED")
}

// GetDSN returns PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// GetAddr returns Redis address
func (c *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetServerAddr returns server address
func (c *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
