package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-demo/chatcore/internal/config"
	"github.com/go-demo/chatcore/internal/pkg/cache"
	"github.com/go-demo/chatcore/internal/pkg/database"
	"github.com/go-demo/chatcore/internal/pkg/idgen"
	"github.com/go-demo/chatcore/internal/pkg/lock"
	"github.com/go-demo/chatcore/internal/repository"
	"github.com/go-demo/chatcore/internal/service"
	"go.uber.org/zap"
)

func main() {
	log.Println("Starting chat seed...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	logger := zap.NewNop()
	db, err := database.NewPostgres(ctx, &cfg.Database, logger)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(&cfg.Redis, logger)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	if err := database.Migrate(ctx, db, logger); err != nil {
		log.Fatalf("Failed to migrate: %v", err)
	}

	ids := idgen.New()
	roomRepo := repository.NewRoomRepository(db)
	memberRepo := repository.NewMemberRepository(db)
	messageRepo := repository.NewMessageRepository(redisClient)
	positions := service.NewReadPositionService(
		repository.NewReadPositionCache(redisClient),
		repository.NewReadPositionRepository(db),
		messageRepo,
		logger,
	)
	locker := lock.NewRedisLocker(redisClient, cfg.Chat.LockWait, cfg.Chat.LockLease, logger)

	// Seeding does not broadcast or push
	roomService := service.NewRoomService(roomRepo, memberRepo, repository.NewPendingRoomRepository(redisClient), positions, ids, nil, cfg.Chat.PendingRoomTTL, logger)
	memberService := service.NewMemberService(roomRepo, memberRepo, locker, nil, logger)
	messageService := service.NewMessageService(messageRepo, memberRepo, positions, ids, nil, nil, cfg.Chat, logger)
	defer messageService.Wait()

	users := []struct {
		id   int64
		name string
	}{
		{1001, "Alice Chen"},
		{1002, "Bob Wang"},
		{1003, "Charlie Lin"},
		{1004, "Diana Wu"},
		{1005, "Evan Lee"},
	}

	rooms := []struct {
		title       string
		description string
		password    string
		adminIndex  int
	}{
		{"General", "一般討論區", "", 0},
		{"Tech Talk", "技術討論區", "", 1},
		{"Team Alpha", "Alpha 團隊專用", "alpha123", 0},
	}

	log.Println("Creating rooms...")
	roomIDs := make([]int64, 0, len(rooms))
	roomTitles := make([]string, 0, len(rooms))
	for _, r := range rooms {
		admin := users[r.adminIndex]
		if _, err := roomService.Pend(ctx, admin.id, &service.PendRoomInput{
			Title:       r.title,
			Description: r.description,
			Password:    r.password,
		}); err != nil {
			log.Printf("Failed to pend room %s: %v", r.title, err)
			continue
		}

		room, err := roomService.Confirm(ctx, admin.id, &service.ConfirmRoomInput{Name: admin.name})
		if err != nil {
			log.Printf("Failed to confirm room %s: %v", r.title, err)
			continue
		}
		roomIDs = append(roomIDs, room.ID)
		roomTitles = append(roomTitles, r.title)
		log.Printf("Created room %s (%d), admin %s", r.title, room.ID, admin.name)

		for i, u := range users {
			if i == r.adminIndex {
				continue
			}
			if _, err := memberService.Join(ctx, &service.JoinInput{
				RoomID:   room.ID,
				UserID:   u.id,
				Name:     u.name,
				Password: r.password,
			}); err != nil {
				log.Printf("Failed to add %s to %s: %v", u.name, r.title, err)
			}
		}
	}

	log.Println("Creating messages...")
	messages := []struct {
		roomIndex int
		userIndex int
		content   string
	}{
		{0, 0, "大家好！歡迎來到聊天室！"},
		{0, 1, "Hello everyone!"},
		{0, 2, "很高興認識大家 👋"},
		{0, 3, "這個聊天室真不錯"},
		{1, 1, "有人最近在用什麼新技術嗎？"},
		{1, 0, "我最近在學 Go 語言"},
		{1, 2, "Go 語言的 goroutine 真的很強大"},
		{2, 4, "週末有什麼計劃嗎？"},
	}

	for _, m := range messages {
		if m.roomIndex >= len(roomIDs) {
			continue
		}

		msg, err := messageService.Send(ctx, &service.SendMessageInput{
			RoomID:   roomIDs[m.roomIndex],
			SenderID: users[m.userIndex].id,
			Content:  m.content,
		})
		if err != nil {
			log.Printf("Failed to send message: %v", err)
			continue
		}
		log.Printf("Created message %d in room %d", msg.ID, msg.RoomID)

		// Spread messages over distinct milliseconds
		time.Sleep(10 * time.Millisecond)
	}

	log.Println("Seed completed successfully!")
	fmt.Println("\n--- Seeded Rooms ---")
	for i, id := range roomIDs {
		fmt.Printf("Room: %s, ID: %d\n", roomTitles[i], id)
	}
}
