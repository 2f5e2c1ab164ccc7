package api

import (
	"net/http"

	"github.com/JayPixl/ocmafia-old-sub000/internal/middleware"
	"github.com/JayPixl/ocmafia-old-sub000/internal/service"
	"github.com/gin-gonic/gin"
)

// ReportHandler 战报处理器
type ReportHandler struct {
	reportService service.ReportService
	userService   service.UserService
}

// NewReportHandler 创建战报处理器
func NewReportHandler(reportService service.ReportService, userService service.UserService) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
		userService:   userService,
	}
}

// GetPhaseReport 查看阶段战报
// @Summary 查看阶段战报
// @Description 主持人看到全部事件（含草稿），其他访问者只看到已发布的
// @Tags Report
// @Success 200 {object} service.PhaseReport
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/games/{id}/phases/{phaseID}/report [get]
func (h *ReportHandler) GetPhaseReport(c *gin.Context) {
	gameID, ok := pathID(c, "id")
	if !ok {
		return
	}
	phaseID, ok := pathID(c, "phaseID")
	if !ok {
		return
	}

	userID, _ := middleware.GetUserID(c)
	viewer, err := h.userService.BuildViewer(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	report, err := h.reportService.GetPhaseReport(c.Request.Context(), viewer, gameID, phaseID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// CreateEvent 创建草稿事件
// @Summary 创建草稿事件（仅主持人）
// @Tags Report
// @Security Bearer
// @Accept json
// @Param request body service.EventRequest true "事件内容"
// @Success 200 {object} models.PhaseEvent
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/games/{id}/phases/{phaseID}/events [post]
func (h *ReportHandler) CreateEvent(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	gameID, ok := pathID(c, "id")
	if !ok {
		return
	}
	phaseID, ok := pathID(c, "phaseID")
	if !ok {
		return
	}

	var req service.EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidRequest(c, err)
		return
	}

	event, err := h.reportService.CreateEvent(c.Request.Context(), userID, gameID, phaseID, &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, event)
}

// UpdateEvent 修改草稿事件
// @Summary 修改草稿事件（仅主持人，已发布不可改）
// @Tags Report
// @Security Bearer
// @Accept json
// @Param request body service.EventRequest true "事件内容"
// @Success 200 {object} models.PhaseEvent
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/games/{id}/events/{eventID} [put]
func (h *ReportHandler) UpdateEvent(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	gameID, ok := pathID(c, "id")
	if !ok {
		return
	}
	eventID, ok := pathID(c, "eventID")
	if !ok {
		return
	}

	var req service.EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidRequest(c, err)
		return
	}

	event, err := h.reportService.UpdateEvent(c.Request.Context(), userID, gameID, eventID, &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, event)
}

// DeleteEvent 删除草稿事件
// @Summary 删除草稿事件（仅主持人，已发布不可删）
// @Tags Report
// @Security Bearer
// @Success 200 {object} SuccessResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/games/{id}/events/{eventID} [delete]
func (h *ReportHandler) DeleteEvent(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	gameID, ok := pathID(c, "id")
	if !ok {
		return
	}
	eventID, ok := pathID(c, "eventID")
	if !ok {
		return
	}

	if err := h.reportService.DeleteEvent(c.Request.Context(), userID, gameID, eventID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "事件已删除",
	})
}

// PublishEvent 发布单个事件
// @Summary 发布事件（仅主持人，单向且幂等）
// @Tags Report
// @Security Bearer
// @Success 200 {object} models.PhaseEvent
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/games/{id}/events/{eventID}/publish [post]
func (h *ReportHandler) PublishEvent(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	gameID, ok := pathID(c, "id")
	if !ok {
		return
	}
	eventID, ok := pathID(c, "eventID")
	if !ok {
		return
	}

	event, err := h.reportService.PublishEvent(c.Request.Context(), userID, gameID, eventID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, event)
}

// PublishPhase 批量发布阶段战报
// @Summary 批量发布阶段内所有草稿（仅主持人，幂等）
// @Tags Report
// @Security Bearer
// @Success 200 {object} PublishPhaseResponse
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/games/{id}/phases/{phaseID}/publish [post]
func (h *ReportHandler) PublishPhase(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	gameID, ok := pathID(c, "id")
	if !ok {
		return
	}
	phaseID, ok := pathID(c, "phaseID")
	if !ok {
		return
	}

	published, err := h.reportService.PublishPhase(c.Request.Context(), userID, gameID, phaseID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, PublishPhaseResponse{
		Published: published,
	})
}

// PublishPhaseResponse 批量发布响应
type PublishPhaseResponse struct {
	Published int64 `json:"published"`
}
