package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-demo/chatcore/internal/config"
	"github.com/go-demo/chatcore/internal/model"
	"github.com/go-demo/chatcore/internal/pkg/database"
	"github.com/go-demo/chatcore/internal/pkg/idgen"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// 全域產生器確保測試資料的 ID 不會互相衝突
var testIDs = idgen.New()

// NextTestID returns an id that is unique across parallel tests.
func NextTestID() int64 {
	return testIDs.Generate()
}

// SetupIsolatedTestDB 建立隔離的測試資料庫連線
// 每個測試使用唯一的聊天室 ID，避免並行測試衝突
func SetupIsolatedTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Host:           "localhost",
		Port:           5432,
		User:           "postgres",
		Password:       "postgres",
		DBName:         "chat_test",
		SSLMode:        "disable",
		MaxOpenConns:   5,
		MaxIdleConns:   2,
		ConnectTimeout: 2 * time.Second,
	}
	db, err := database.NewPostgres(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Skipf("Skipping test, could not connect to test database: %v", err)
	}

	if err := database.Migrate(context.Background(), db, zap.NewNop()); err != nil {
		db.Close()
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

// CleanupTestRooms 清理特定聊天室的測試資料
func CleanupTestRooms(t *testing.T, db *sqlx.DB, roomIDs ...int64) {
	t.Helper()

	ctx := context.Background()
	for _, id := range roomIDs {
		_, _ = db.ExecContext(ctx, "DELETE FROM chat_read_positions WHERE room_id = $1", id)
		_, _ = db.ExecContext(ctx, "DELETE FROM chat_members WHERE room_id = $1", id)
		_, _ = db.ExecContext(ctx, "DELETE FROM chat_rooms WHERE id = $1", id)
	}
}

// CreateIsolatedTestRoom 建立隔離的測試聊天室與其管理員
func CreateIsolatedTestRoom(t *testing.T, db *sqlx.DB, adminUserID int64) (*model.Room, *model.Member) {
	t.Helper()

	room := &model.Room{ID: NextTestID(), Title: "test room"}
	admin := model.NewMember(room.ID, adminUserID, "admin", model.MemberRoleAdmin)

	if err := NewRoomRepository(db).CreateWithAdmin(context.Background(), room, admin); err != nil {
		t.Fatalf("Failed to create test room: %v", err)
	}
	t.Cleanup(func() { CleanupTestRooms(t, db, room.ID) })

	return room, admin
}

// AddTestMember 加入一般成員
func AddTestMember(t *testing.T, db *sqlx.DB, roomID, userID int64, name string) *model.Member {
	t.Helper()

	member := model.NewMember(roomID, userID, name, model.MemberRoleMember)
	if err := NewMemberRepository(db).Create(context.Background(), member); err != nil {
		t.Fatalf("Failed to add test member: %v", err)
	}
	return member
}

// SetupTestRedis starts an in-memory Redis server for the test.
func SetupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return client, mr
}
