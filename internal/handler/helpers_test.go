package handler

import (
	"bytes"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-demo/chatcore/internal/config"
	"github.com/go-demo/chatcore/internal/middleware"
	"github.com/go-demo/chatcore/internal/pkg/idgen"
	"github.com/go-demo/chatcore/internal/pkg/lock"
	"github.com/go-demo/chatcore/internal/pkg/utils"
	"github.com/go-demo/chatcore/internal/repository"
	"github.com/go-demo/chatcore/internal/service"
	"github.com/go-demo/chatcore/internal/service/servicetest"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

type handlerEnv struct {
	router   *gin.Engine
	store    *servicetest.Store
	jwt      *utils.JWTManager
	messages *service.MessageService
}

func setupHandlerTest(t *testing.T, sendLimit gin.HandlerFunc) *handlerEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	client, _ := repository.SetupTestRedis(t)
	store := servicetest.NewStore()
	logger := zap.NewNop()
	ids := idgen.New()

	messageRepo := repository.NewMessageRepository(client)
	positions := service.NewReadPositionService(repository.NewReadPositionCache(client), store.ReadPositions(), messageRepo, logger)
	locker := lock.NewRedisLocker(client, time.Second, time.Second, logger)
	cfg := config.ChatConfig{RecentMessageWindow: 15, PageSizeDefault: 30, PageSizeMax: 100}

	roomService := service.NewRoomService(store.Rooms(), store.Members(), repository.NewPendingRoomRepository(client), positions, ids, nil, time.Hour, logger)
	memberService := service.NewMemberService(store.Rooms(), store.Members(), locker, nil, logger)
	messageService := service.NewMessageService(messageRepo, store.Members(), positions, ids, nil, nil, cfg, logger)
	detailService := service.NewRoomDetailService(store.Members(), messageRepo, cfg.RecentMessageWindow, logger)
	t.Cleanup(messageService.Wait)

	jwtManager := utils.NewJWTManager("test-secret", "test")

	router := gin.New()
	rooms := router.Group("/api/v1/rooms")
	rooms.Use(middleware.Auth(jwtManager))
	RegisterRoomRoutes(rooms,
		NewRoomHandler(roomService, detailService),
		NewMemberHandler(memberService),
		NewMessageHandler(messageService),
		sendLimit,
	)

	return &handlerEnv{
		router:   router,
		store:    store,
		jwt:      jwtManager,
		messages: messageService,
	}
}

// do sends an authenticated JSON request as userID. A userID of 0 sends no token.
func (e *handlerEnv) do(t *testing.T, method, path string, userID int64, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var raw []byte
	if body != nil {
		raw, _ = json.Marshal(body)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		token, _, err := e.jwt.GenerateAccessToken(userID, "tester", time.Minute)
		if err != nil {
			t.Fatalf("Failed to generate token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    int    `json:"code"`
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data interface{}) *envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("Failed to parse response JSON: %v (%s)", err, w.Body.String())
	}
	if data != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			t.Fatalf("Failed to parse data: %v", err)
		}
	}
	return &env
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("Expected status %d, got %d: %s", want, w.Code, w.Body.String())
	}
}

func roomPath(roomID int64, suffix string) string {
	return "/api/v1/rooms/" + strconv.FormatInt(roomID, 10) + suffix
}
