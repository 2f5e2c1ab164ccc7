package api

import (
	"io"
	"net/http"

	"github.com/JayPixl/ocmafia-old-sub000/internal/middleware"
	"github.com/JayPixl/ocmafia-old-sub000/internal/notifier"
	"github.com/JayPixl/ocmafia-old-sub000/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SSEHandler 聊天室变更通知的SSE投递
// 与websocket共享同一个订阅注册表，连接断开即退订
type SSEHandler struct {
	chatService service.ChatService
	userService service.UserService
	notifier    *notifier.Notifier
	log         *zap.Logger
}

// NewSSEHandler 创建SSE处理器
func NewSSEHandler(chatService service.ChatService, userService service.UserService, n *notifier.Notifier, log *zap.Logger) *SSEHandler {
	return &SSEHandler{
		chatService: chatService,
		userService: userService,
		notifier:    n,
		log:         log,
	}
}

// Subscribe 订阅房间变更事件流
// @Summary 订阅聊天室变更（SSE）
// @Description 房间内容变化时推送refresh事件，客户端收到后重新拉取消息
// @Tags Chat
// @Produce text/event-stream
// @Success 200
// @Router /sse/chatroom/{id}/{roomID} [get]
func (h *SSEHandler) Subscribe(c *gin.Context) {
	gameID, ok := pathID(c, "id")
	if !ok {
		return
	}
	roomID, ok := pathID(c, "roomID")
	if !ok {
		return
	}

	// 订阅前做一次访问分类，没有读权限的不给事件流
	userID, _ := middleware.GetUserID(c)
	viewer, err := h.userService.BuildViewer(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	access, err := h.chatService.EnterRoom(c.Request.Context(), viewer, gameID, roomID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if access.Denied() {
		c.JSON(http.StatusOK, RedirectResponse{Redirect: access.Redirect})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	sub := h.notifier.Subscribe(roomID)
	defer h.notifier.Unsubscribe(sub)

	h.log.Debug("SSE订阅建立",
		zap.Uint("room_id", roomID),
		zap.Uint("user_id", userID))

	clientGone := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-clientGone:
			return false
		case _, open := <-sub.C:
			if !open {
				return false
			}
			c.SSEvent("refresh", gin.H{"room_id": roomID})
			return true
		}
	})
}
