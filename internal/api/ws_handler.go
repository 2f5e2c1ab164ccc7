package api

import (
	"net/http"

	"github.com/JayPixl/ocmafia-old-sub000/internal/middleware"
	"github.com/JayPixl/ocmafia-old-sub000/internal/notifier"
	"github.com/JayPixl/ocmafia-old-sub000/internal/service"
	"github.com/JayPixl/ocmafia-old-sub000/internal/ws"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WSHandler 聊天室变更通知的websocket投递
type WSHandler struct {
	chatService service.ChatService
	userService service.UserService
	notifier    *notifier.Notifier
	log         *zap.Logger
}

// NewWSHandler 创建websocket处理器
func NewWSHandler(chatService service.ChatService, userService service.UserService, n *notifier.Notifier, log *zap.Logger) *WSHandler {
	return &WSHandler{
		chatService: chatService,
		userService: userService,
		notifier:    n,
		log:         log,
	}
}

// Subscribe 订阅房间变更
// @Summary 订阅聊天室变更（WebSocket）
// @Description 升级为websocket连接，房间内容变化时推送refresh事件
// @Tags Chat
// @Success 101
// @Router /ws/chatroom/{id}/{roomID} [get]
func (h *WSHandler) Subscribe(c *gin.Context) {
	gameID, ok := pathID(c, "id")
	if !ok {
		return
	}
	roomID, ok := pathID(c, "roomID")
	if !ok {
		return
	}

	// 升级前做一次访问分类，没有读权限的不给连接
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

	if err := ws.Serve(c.Writer, c.Request, h.notifier, roomID, h.log); err != nil {
		h.log.Warn("WebSocket升级失败",
			zap.Uint("room_id", roomID),
			zap.Error(err))
	}
}
