package api

import (
	"net/http"
	"strconv"

	"github.com/JayPixl/ocmafia-old-sub000/internal/middleware"
	"github.com/JayPixl/ocmafia-old-sub000/internal/models"
	"github.com/JayPixl/ocmafia-old-sub000/internal/service"
	"github.com/gin-gonic/gin"
)

// GameHandler 游戏处理器
type GameHandler struct {
	gameService service.GameService
}

// NewGameHandler 创建游戏处理器
func NewGameHandler(gameService service.GameService) *GameHandler {
	return &GameHandler{
		gameService: gameService,
	}
}

// ListGames 游戏列表
// @Summary 游戏列表
// @Description 分页列出游戏，可按状态过滤
// @Tags Game
// @Param status query string false "游戏状态" Enums(ENLISTING, ONGOING, COMPLETED)
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} GameListResponse
// @Router /api/v1/games [get]
func (h *GameHandler) ListGames(c *gin.Context) {
	status := models.GameStatus(c.Query("status"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	games, total, err := h.gameService.ListGames(c.Request.Context(), status, page, pageSize)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, GameListResponse{
		Games: games,
		Total: total,
		Page:  page,
	})
}

// CreateGame 创建游戏
// @Summary 创建游戏
// @Description 创建者自动成为主持人，系统房间随游戏创建
// @Tags Game
// @Security Bearer
// @Accept json
// @Produce json
// @Param request body service.CreateGameRequest true "游戏信息"
// @Success 200 {object} models.Game
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/games [post]
func (h *GameHandler) CreateGame(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req service.CreateGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidRequest(c, err)
		return
	}

	game, err := h.gameService.CreateGame(c.Request.Context(), userID, &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, game)
}

// GetGame 游戏详情
// @Summary 游戏详情
// @Description 按数字ID或slug查询
// @Tags Game
// @Success 200 {object} models.Game
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/games/{id} [get]
func (h *GameHandler) GetGame(c *gin.Context) {
	// 路径参数既接受数字ID也接受slug
	param := c.Param("id")
	if id, err := strconv.ParseUint(param, 10, 32); err == nil {
		game, err := h.gameService.GetGame(c.Request.Context(), uint(id))
		if err != nil {
			respondServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, game)
		return
	}

	game, err := h.gameService.GetGameBySlug(c.Request.Context(), param)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, game)
}

// AddHost 添加主持人
// @Summary 添加主持人（仅主持人）
// @Tags Game
// @Security Bearer
// @Accept json
// @Param request body HostRequest true "用户ID"
// @Success 200 {object} SuccessResponse
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/games/{id}/hosts [post]
func (h *GameHandler) AddHost(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	gameID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req HostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidRequest(c, err)
		return
	}

	if err := h.gameService.AddHost(c.Request.Context(), userID, gameID, req.UserID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "主持人已添加",
	})
}

// RemoveHost 移除主持人
// @Summary 移除主持人（仅主持人，至少保留一名）
// @Tags Game
// @Security Bearer
// @Success 200 {object} SuccessResponse
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/games/{id}/hosts/{userID} [delete]
func (h *GameHandler) RemoveHost(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	gameID, ok := pathID(c, "id")
	if !ok {
		return
	}
	targetID, ok := pathID(c, "userID")
	if !ok {
		return
	}

	if err := h.gameService.RemoveHost(c.Request.Context(), userID, gameID, targetID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "主持人已移除",
	})
}

// JoinGame 角色报名
// @Summary 角色报名（仅报名阶段）
// @Tags Game
// @Security Bearer
// @Accept json
// @Param request body EnlistRequest true "角色ID"
// @Success 200 {object} SuccessResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/games/{id}/join [post]
func (h *GameHandler) JoinGame(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	gameID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req EnlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidRequest(c, err)
		return
	}

	if err := h.gameService.JoinGame(c.Request.Context(), userID, gameID, req.CharacterID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "报名成功",
	})
}

// LeaveGame 取消报名
// @Summary 取消报名（仅报名阶段）
// @Tags Game
// @Security Bearer
// @Accept json
// @Param request body EnlistRequest true "角色ID"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/games/{id}/leave [post]
func (h *GameHandler) LeaveGame(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	gameID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req EnlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidRequest(c, err)
		return
	}

	if err := h.gameService.LeaveGame(c.Request.Context(), userID, gameID, req.CharacterID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "已取消报名",
	})
}

// StartGame 开始游戏
// @Summary 开始游戏（仅主持人）
// @Description 按身份列表洗牌分配身份，创建第一天白天阶段
// @Tags Game
// @Security Bearer
// @Success 200 {object} models.Game
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/games/{id}/start [post]
func (h *GameHandler) StartGame(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	gameID, ok := pathID(c, "id")
	if !ok {
		return
	}

	game, err := h.gameService.StartGame(c.Request.Context(), userID, gameID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, game)
}

// AdvancePhase 推进阶段
// @Summary 推进到下一阶段（仅主持人）
// @Description 白天→黑夜→次日白天，角色状态沿用上一阶段
// @Tags Game
// @Security Bearer
// @Success 200 {object} models.GamePhase
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/games/{id}/advance [post]
func (h *GameHandler) AdvancePhase(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	gameID, ok := pathID(c, "id")
	if !ok {
		return
	}

	phase, err := h.gameService.AdvancePhase(c.Request.Context(), userID, gameID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, phase)
}

// CompleteGame 结束游戏
// @Summary 结束游戏（仅主持人，幂等）
// @Tags Game
// @Security Bearer
// @Accept json
// @Param request body CompleteGameRequest true "获胜阵营"
// @Success 200 {object} models.Game
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/games/{id}/complete [post]
func (h *GameHandler) CompleteGame(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	gameID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req CompleteGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidRequest(c, err)
		return
	}

	game, err := h.gameService.CompleteGame(c.Request.Context(), userID, gameID, req.WinnerFaction)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, game)
}

// UpdateCharacterStatus 更新阶段内角色状态
// @Summary 更新角色状态（仅主持人）
// @Description 合并写入，未提及的角色状态保持不变
// @Tags Game
// @Security Bearer
// @Accept json
// @Param request body CharacterStatusRequest true "角色状态"
// @Success 200 {object} SuccessResponse
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/games/{id}/phases/{phaseID}/status [put]
func (h *GameHandler) UpdateCharacterStatus(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	gameID, ok := pathID(c, "id")
	if !ok {
		return
	}
	phaseID, ok := pathID(c, "phaseID")
	if !ok {
		return
	}

	var req CharacterStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidRequest(c, err)
		return
	}

	if err := h.gameService.UpdateCharacterStatus(c.Request.Context(), userID, gameID, phaseID, req.Status); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "角色状态已更新",
	})
}

// GameListResponse 游戏列表响应
type GameListResponse struct {
	Games []*models.Game `json:"games"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
}

// HostRequest 主持人管理请求
type HostRequest struct {
	UserID uint `json:"user_id" binding:"required"`
}

// EnlistRequest 报名/取消报名请求
type EnlistRequest struct {
	CharacterID uint `json:"character_id" binding:"required"`
}

// CompleteGameRequest 结束游戏请求
type CompleteGameRequest struct {
	WinnerFaction string `json:"winner_faction" binding:"required,max=50"`
}

// CharacterStatusRequest 角色状态更新请求
type CharacterStatusRequest struct {
	Status map[string]interface{} `json:"status" binding:"required"`
}
