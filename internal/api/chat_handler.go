package api

import (
	"net/http"

	"github.com/JayPixl/ocmafia-old-sub000/internal/middleware"
	"github.com/JayPixl/ocmafia-old-sub000/internal/models"
	"github.com/JayPixl/ocmafia-old-sub000/internal/service"
	"github.com/gin-gonic/gin"
)

// ChatHandler 聊天处理器
type ChatHandler struct {
	chatService service.ChatService
	userService service.UserService
}

// NewChatHandler 创建聊天处理器
func NewChatHandler(chatService service.ChatService, userService service.UserService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		userService: userService,
	}
}

// viewer 从请求上下文构建访问者身份，匿名时UserID为0
func (h *ChatHandler) viewer(c *gin.Context) (*service.Viewer, error) {
	userID, _ := middleware.GetUserID(c)
	return h.userService.BuildViewer(c.Request.Context(), userID)
}

// ListRooms 列出可见聊天室
// @Summary 列出访问者可见的聊天室
// @Description 按访问分类过滤：主持人看全部，参与者看会议室/演绎室/白名单私密房间，旁观者看公开房间
// @Tags Chat
// @Success 200 {object} RoomListResponse
// @Router /api/v1/games/{id}/chatrooms [get]
func (h *ChatHandler) ListRooms(c *gin.Context) {
	gameID, ok := pathID(c, "id")
	if !ok {
		return
	}

	viewer, err := h.viewer(c)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	access, err := h.chatService.ListRooms(c.Request.Context(), viewer, gameID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if access.Denied() {
		c.JSON(http.StatusOK, RedirectResponse{Redirect: access.Redirect})
		return
	}

	c.JSON(http.StatusOK, RoomListResponse{
		Viewer: access.Kind,
		Rooms:  access.Permitted,
	})
}

// EnterRoom 进入聊天室
// @Summary 进入聊天室并取访问分类
// @Description 返回访问者分类、发言身份和可见房间；无权访问时返回200和跳转路径
// @Tags Chat
// @Success 200 {object} EnterRoomResponse
// @Router /api/v1/games/{id}/chatrooms/{roomID} [get]
func (h *ChatHandler) EnterRoom(c *gin.Context) {
	gameID, ok := pathID(c, "id")
	if !ok {
		return
	}
	roomID, ok := pathID(c, "roomID")
	if !ok {
		return
	}

	viewer, err := h.viewer(c)
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

	c.JSON(http.StatusOK, EnterRoomResponse{
		Viewer:    access.Kind,
		Character: access.Character,
		Rooms:     access.Permitted,
	})
}

// CreateRoom 创建聊天室
// @Summary 创建聊天室（仅主持人，仅ROLEPLAY/PRIVATE类型）
// @Tags Chat
// @Security Bearer
// @Accept json
// @Param request body service.RoomRequest true "房间信息"
// @Success 200 {object} models.ChatRoom
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/games/{id}/chatrooms [post]
func (h *ChatHandler) CreateRoom(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	gameID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req service.RoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidRequest(c, err)
		return
	}

	room, err := h.chatService.CreateRoom(c.Request.Context(), userID, gameID, &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, room)
}

// DeleteRoom 删除聊天室
// @Summary 删除聊天室（仅主持人，系统房间不可删）
// @Tags Chat
// @Security Bearer
// @Success 200 {object} SuccessResponse
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/games/{id}/chatrooms/{roomID} [delete]
func (h *ChatHandler) DeleteRoom(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	gameID, ok := pathID(c, "id")
	if !ok {
		return
	}
	roomID, ok := pathID(c, "roomID")
	if !ok {
		return
	}

	if err := h.chatService.DeleteRoom(c.Request.Context(), userID, gameID, roomID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "房间已删除",
	})
}

// GetMessages 读取房间消息
// @Summary 读取房间消息
// @Description 访问被拒绝时返回200和跳转路径，不返回403
// @Tags Chat
// @Success 200 {object} MessageListResponse
// @Router /api/v1/games/{id}/chatrooms/{roomID}/messages [get]
func (h *ChatHandler) GetMessages(c *gin.Context) {
	gameID, ok := pathID(c, "id")
	if !ok {
		return
	}
	roomID, ok := pathID(c, "roomID")
	if !ok {
		return
	}

	viewer, err := h.viewer(c)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	messages, access, err := h.chatService.GetMessages(c.Request.Context(), viewer, gameID, roomID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if access.Denied() {
		c.JSON(http.StatusOK, RedirectResponse{Redirect: access.Redirect})
		return
	}

	c.JSON(http.StatusOK, MessageListResponse{
		Viewer:   access.Kind,
		Messages: messages,
	})
}

// SendMessage 发送消息
// @Summary 发送消息
// @Description 参与者以角色身份发言，主持人和窗口期旁观者以用户身份发言
// @Tags Chat
// @Security Bearer
// @Accept json
// @Param request body SendMessageRequest true "消息内容"
// @Success 200 {object} models.ChatMessage
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/games/{id}/chatrooms/{roomID}/messages [post]
func (h *ChatHandler) SendMessage(c *gin.Context) {
	gameID, ok := pathID(c, "id")
	if !ok {
		return
	}
	roomID, ok := pathID(c, "roomID")
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidRequest(c, err)
		return
	}

	viewer, err := h.viewer(c)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	message, err := h.chatService.SendMessage(c.Request.Context(), viewer, gameID, roomID, req.Content)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, message)
}

// DeleteMessage 删除消息
// @Summary 删除消息（仅主持人）
// @Tags Chat
// @Security Bearer
// @Success 200 {object} SuccessResponse
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/games/{id}/chatrooms/{roomID}/messages/{messageID} [delete]
func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	gameID, ok := pathID(c, "id")
	if !ok {
		return
	}
	roomID, ok := pathID(c, "roomID")
	if !ok {
		return
	}
	messageID, ok := pathID(c, "messageID")
	if !ok {
		return
	}

	if err := h.chatService.DeleteMessage(c.Request.Context(), userID, gameID, roomID, messageID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "消息已删除",
	})
}

// RoomListResponse 聊天室列表响应
type RoomListResponse struct {
	Viewer service.ViewerKind `json:"viewer"`
	Rooms  []*models.ChatRoom `json:"rooms"`
}

// EnterRoomResponse 进入房间响应
type EnterRoomResponse struct {
	Viewer    service.ViewerKind `json:"viewer"`
	Character *models.Character  `json:"character,omitempty"`
	Rooms     []*models.ChatRoom `json:"rooms"`
}

// MessageListResponse 消息列表响应
type MessageListResponse struct {
	Viewer   service.ViewerKind    `json:"viewer"`
	Messages []*models.ChatMessage `json:"messages"`
}

// SendMessageRequest 发送消息请求
type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}
