package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadFrom_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadFrom(viper.New())
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Database.ConnectTimeout != 5*time.Second || cfg.Database.AutoMigrate {
		t.Errorf("Expected 5s connect timeout without auto migrate, got %v/%v", cfg.Database.ConnectTimeout, cfg.Database.AutoMigrate)
	}
	if cfg.Chat.RecentMessageWindow != 15 {
		t.Errorf("Expected recent window 15, got %d", cfg.Chat.RecentMessageWindow)
	}
	if cfg.Chat.LockWait != 10*time.Second {
		t.Errorf("Expected lock wait 10s, got %v", cfg.Chat.LockWait)
	}
	if cfg.Chat.LockLease != 5*time.Second {
		t.Errorf("Expected lock lease 5s, got %v", cfg.Chat.LockLease)
	}
	if cfg.Chat.PendingRoomTTL != time.Hour {
		t.Errorf("Expected pending TTL 1h, got %v", cfg.Chat.PendingRoomTTL)
	}
	if cfg.Push.Channel != "chat:push" {
		t.Errorf("Expected push channel 'chat:push', got '%s'", cfg.Push.Channel)
	}
	if cfg.Push.BreakerFailures != 5 {
		t.Errorf("Expected 5 breaker failures, got %d", cfg.Push.BreakerFailures)
	}
}

func TestLoadFrom_EnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("CHAT_PENDING_ROOM_TTL", "15m")

	cfg, err := LoadFrom(viper.New())
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Database.Host != "db.internal" {
		t.Errorf("Expected host 'db.internal', got '%s'", cfg.Database.Host)
	}
	if cfg.Chat.PendingRoomTTL != 15*time.Minute {
		t.Errorf("Expected pending TTL 15m, got %v", cfg.Chat.PendingRoomTTL)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{Chat: ChatConfig{
			RecentMessageWindow: 15,
			PendingRoomTTL:      time.Hour,
			LockWait:            10 * time.Second,
			LockLease:           5 * time.Second,
			PageSizeDefault:     30,
			PageSizeMax:         100,
		}}
	}

	if err := base().Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}

	cfg := base()
	cfg.Chat.RecentMessageWindow = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for zero window")
	}

	cfg = base()
	cfg.Chat.PageSizeDefault = 500
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for default page above max")
	}

	cfg = base()
	cfg.Chat.LockLease = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for zero lease")
	}
}

func TestGetDSN(t *testing.T) {
	cfg := &DatabaseConfig{
		Host: "localhost", Port: 5432, User: "u", Password: "p", DBName: "chat", SSLMode: "disable",
	}
	want := "host=localhost port=5432 user=u password=p dbname=chat sslmode=disable"
	if got := cfg.GetDSN(); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}
