package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/JayPixl/ocmafia-old-sub000/internal/models"
	"github.com/JayPixl/ocmafia-old-sub000/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestRouter 创建基于内存数据库的完整路由器
func newTestRouter(t *testing.T) *Router {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.UserAuth{},
		&models.UserSession{},
		&models.Character{},
		&models.Game{},
		&models.GameHost{},
		&models.GameParticipant{},
		&models.GamePhase{},
		&models.PhaseEvent{},
		&models.ChatRoom{},
		&models.ChatMessage{},
	)
	require.NoError(t, err)

	cfg := service.DefaultConfig()
	cfg.UploadDir = t.TempDir()

	router := NewRouter(db, cfg, 50*time.Millisecond, zap.NewNop())
	t.Cleanup(router.Close)
	return router
}

// doJSON 发送JSON请求
func doJSON(router *Router, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.GetEngine().ServeHTTP(w, req)
	return w
}

// registerAndLogin 注册并返回访问令牌
func registerAndLogin(t *testing.T, router *Router, username string) string {
	w := doJSON(router, "POST", "/api/v1/auth/register", "", gin.H{
		"username":         username,
		"email":            username + "@example.com",
		"password":         "secret123",
		"confirm_password": "secret123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp service.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

// TestHealthCheck 健康检查
func TestHealthCheck(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(router, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
}

// TestAuthFlow 注册、登录、取资料
func TestAuthFlow(t *testing.T) {
	router := newTestRouter(t)

	token := registerAndLogin(t, router, "integration_user")

	// 重复注册冲突
	w := doJSON(router, "POST", "/api/v1/auth/register", "", gin.H{
		"username":         "integration_user",
		"email":            "other@example.com",
		"password":         "secret123",
		"confirm_password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// 带令牌取资料
	w = doJSON(router, "GET", "/api/v1/auth/profile", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// 无令牌401
	w = doJSON(router, "GET", "/api/v1/auth/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// TestGameLifecycleOverHTTP 建局、报名、开局、聊天的全流程
func TestGameLifecycleOverHTTP(t *testing.T) {
	router := newTestRouter(t)

	hostToken := registerAndLogin(t, router, "http_host")
	playerToken := registerAndLogin(t, router, "http_player")

	// 主持人建局
	w := doJSON(router, "POST", "/api/v1/games", hostToken, gin.H{
		"name":      "HTTP整合测试局",
		"role_list": []string{"村民", "狼人"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var game models.Game
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &game))
	assert.Equal(t, models.GameStatusEnlisting, game.Status)

	// 玩家创建角色卡
	w = doJSON(router, "POST", "/api/v1/characters", playerToken, gin.H{
		"name": "华生",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var character models.Character
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &character))

	// 报名
	w = doJSON(router, "POST", fmt.Sprintf("/api/v1/games/%d/join", game.ID), playerToken, gin.H{
		"character_id": character.ID,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// 匿名也能看游戏列表
	w = doJSON(router, "GET", "/api/v1/games", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// 匿名看聊天室：报名中只有公开房间可见
	w = doJSON(router, "GET", fmt.Sprintf("/api/v1/games/%d/chatrooms", game.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var roomList RoomListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &roomList))
	assert.Equal(t, service.ViewerSpectator, roomList.Viewer)

	// 开局
	w = doJSON(router, "POST", fmt.Sprintf("/api/v1/games/%d/start", game.ID), hostToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var started models.Game
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &started))
	require.NotNil(t, started.CurrentPhaseID)
	phaseID := *started.CurrentPhaseID

	// 非主持人不能开局也不能推进
	w = doJSON(router, "POST", fmt.Sprintf("/api/v1/games/%d/advance", game.ID), playerToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// 主持人写草稿战报
	w = doJSON(router, "POST", fmt.Sprintf("/api/v1/games/%d/phases/%d/events", game.ID, phaseID), hostToken, gin.H{
		"template": "{actor} 在夜里行动了",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var event models.PhaseEvent
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &event))
	assert.True(t, event.Draft)

	// 匿名看战报：草稿不可见
	w = doJSON(router, "GET", fmt.Sprintf("/api/v1/games/%d/phases/%d/report", game.ID, phaseID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var report service.PhaseReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Len(t, report.Events, 0)

	// 批量发布后可见
	w = doJSON(router, "POST", fmt.Sprintf("/api/v1/games/%d/phases/%d/publish", game.ID, phaseID), hostToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, "GET", fmt.Sprintf("/api/v1/games/%d/phases/%d/report", game.ID, phaseID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Len(t, report.Events, 1)
}

// TestChatAccessOverHTTP 聊天访问分类与跳转语义
func TestChatAccessOverHTTP(t *testing.T) {
	router := newTestRouter(t)

	hostToken := registerAndLogin(t, router, "chat_http_host")
	playerToken := registerAndLogin(t, router, "chat_http_player")

	w := doJSON(router, "POST", "/api/v1/games", hostToken, gin.H{
		"name": "聊天HTTP测试局",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var game models.Game
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &game))

	// 找赛前大厅和会议室
	w = doJSON(router, "GET", fmt.Sprintf("/api/v1/games/%d/chatrooms", game.ID), hostToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var roomList RoomListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &roomList))
	require.Len(t, roomList.Rooms, 3)

	var preGameID, meetingID uint
	for _, room := range roomList.Rooms {
		switch room.Type {
		case models.RoomTypePreGame:
			preGameID = room.ID
		case models.RoomTypeMeetingRoom:
			meetingID = room.ID
		}
	}
	require.NotZero(t, preGameID)
	require.NotZero(t, meetingID)

	// 报名期旁观者能在赛前大厅发言（以用户身份）
	w = doJSON(router, "POST", fmt.Sprintf("/api/v1/games/%d/chatrooms/%d/messages", game.ID, preGameID), playerToken, gin.H{
		"content": "大家好",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var message models.ChatMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &message))
	assert.Equal(t, models.SenderKindUser, message.SenderKind)

	// 匿名不能发言（写接口要求登录）
	w = doJSON(router, "POST", fmt.Sprintf("/api/v1/games/%d/chatrooms/%d/messages", game.ID, preGameID), "", gin.H{
		"content": "匿名发言",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// 主持人建私密房间
	w = doJSON(router, "POST", fmt.Sprintf("/api/v1/games/%d/chatrooms", game.ID), hostToken, gin.H{
		"type":       "PRIVATE",
		"name":       "狼人频道",
		"allow_list": []uint{},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var private models.ChatRoom
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &private))

	// 旁观者读私密房间：200 + 跳转，不是403
	w = doJSON(router, "GET", fmt.Sprintf("/api/v1/games/%d/chatrooms/%d/messages", game.ID, private.ID), playerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var redirect RedirectResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &redirect))
	assert.Equal(t, fmt.Sprintf("/games/%d", game.ID), redirect.Redirect)

	// 不存在的游戏跳转到列表
	w = doJSON(router, "GET", "/api/v1/games/99999/chatrooms", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &redirect))
	assert.Equal(t, "/games", redirect.Redirect)

	// 系统房间不可删
	w = doJSON(router, "DELETE", fmt.Sprintf("/api/v1/games/%d/chatrooms/%d", game.ID, preGameID), hostToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 主持人删消息
	w = doJSON(router, "DELETE", fmt.Sprintf("/api/v1/games/%d/chatrooms/%d/messages/%d", game.ID, preGameID, message.ID), hostToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// 非主持人删消息被拒
	w = doJSON(router, "DELETE", fmt.Sprintf("/api/v1/games/%d/chatrooms/%d/messages/%d", game.ID, preGameID, message.ID), playerToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
