package api

import (
	"net/http"

	"github.com/JayPixl/ocmafia-old-sub000/internal/middleware"
	"github.com/JayPixl/ocmafia-old-sub000/internal/service"
	"github.com/gin-gonic/gin"
)

// CharacterHandler 角色卡处理器
type CharacterHandler struct {
	characterService service.CharacterService
}

// NewCharacterHandler 创建角色卡处理器
func NewCharacterHandler(characterService service.CharacterService) *CharacterHandler {
	return &CharacterHandler{
		characterService: characterService,
	}
}

// ListCharacters 列出当前用户的角色卡
// @Summary 列出当前用户的角色卡
// @Tags Character
// @Security Bearer
// @Success 200 {array} models.Character
// @Router /api/v1/characters [get]
func (h *CharacterHandler) ListCharacters(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	characters, err := h.characterService.ListCharacters(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, characters)
}

// CreateCharacter 创建角色卡
// @Summary 创建角色卡
// @Tags Character
// @Security Bearer
// @Accept json
// @Produce json
// @Param request body service.CharacterRequest true "角色卡信息"
// @Success 200 {object} models.Character
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/characters [post]
func (h *CharacterHandler) CreateCharacter(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req service.CharacterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidRequest(c, err)
		return
	}

	character, err := h.characterService.CreateCharacter(c.Request.Context(), userID, &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, character)
}

// GetCharacter 查看角色卡
// @Summary 查看角色卡
// @Tags Character
// @Success 200 {object} models.Character
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/characters/{id} [get]
func (h *CharacterHandler) GetCharacter(c *gin.Context) {
	characterID, ok := pathID(c, "id")
	if !ok {
		return
	}

	character, err := h.characterService.GetCharacter(c.Request.Context(), characterID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, character)
}

// UpdateCharacter 更新角色卡
// @Summary 更新角色卡（仅所有者）
// @Tags Character
// @Security Bearer
// @Accept json
// @Produce json
// @Param request body service.CharacterRequest true "角色卡信息"
// @Success 200 {object} models.Character
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/characters/{id} [put]
func (h *CharacterHandler) UpdateCharacter(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	characterID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req service.CharacterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidRequest(c, err)
		return
	}

	character, err := h.characterService.UpdateCharacter(c.Request.Context(), userID, characterID, &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, character)
}

// DeleteCharacter 删除角色卡
// @Summary 删除角色卡（仅所有者）
// @Tags Character
// @Security Bearer
// @Success 200 {object} SuccessResponse
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/characters/{id} [delete]
func (h *CharacterHandler) DeleteCharacter(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	characterID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.characterService.DeleteCharacter(c.Request.Context(), userID, characterID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "删除成功",
	})
}

// UploadAvatar 上传角色头像
// @Summary 上传角色头像（仅所有者）
// @Tags Character
// @Security Bearer
// @Accept multipart/form-data
// @Param avatar formData file true "头像图片"
// @Success 200 {object} models.Character
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/characters/{id}/avatar [post]
func (h *CharacterHandler) UploadAvatar(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	characterID, ok := pathID(c, "id")
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "缺少avatar文件字段",
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "无法读取上传文件",
		})
		return
	}
	defer file.Close()

	character, err := h.characterService.UpdateAvatar(c.Request.Context(), userID, characterID, &service.Upload{
		Filename: fileHeader.Filename,
		Size:     fileHeader.Size,
		Reader:   file,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, character)
}
