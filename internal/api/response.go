package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/JayPixl/ocmafia-old-sub000/internal/service"
	"github.com/gin-gonic/gin"
)

// ErrorResponse 错误响应
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// SuccessResponse 成功响应
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// RedirectResponse 访问被拒绝时的跳转响应
// 始终是200：私密房间的存在本身就是敏感信息，不返回403
type RedirectResponse struct {
	Redirect string `json:"redirect"`
}

// respondInvalidRequest 参数绑定失败
func respondInvalidRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Code:    "INVALID_REQUEST",
		Message: "请求参数错误",
		Details: err.Error(),
	})
}

// respondServiceError 把服务层错误映射为HTTP状态码
func respondServiceError(c *gin.Context, err error) {
	status := http.StatusBadRequest
	code := "OPERATION_FAILED"

	switch {
	case errors.Is(err, service.ErrGameNotFound),
		errors.Is(err, service.ErrPhaseNotFound),
		errors.Is(err, service.ErrEventNotFound),
		errors.Is(err, service.ErrRoomNotFound),
		errors.Is(err, service.ErrCharacterNotFound),
		errors.Is(err, service.ErrUserNotFound):
		status = http.StatusNotFound
		code = "NOT_FOUND"

	case errors.Is(err, service.ErrNotHost),
		errors.Is(err, service.ErrNotCharacterOwner),
		errors.Is(err, service.ErrSendNotPermitted),
		errors.Is(err, service.ErrUserBanned):
		status = http.StatusForbidden
		code = "FORBIDDEN"

	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken):
		status = http.StatusUnauthorized
		code = "UNAUTHORIZED"

	case errors.Is(err, service.ErrUserExists),
		errors.Is(err, service.ErrCharacterEnlisted),
		errors.Is(err, service.ErrGameAlreadyOngoing),
		errors.Is(err, service.ErrEventAlreadyPublished):
		status = http.StatusConflict
		code = "CONFLICT"
	}

	c.JSON(status, ErrorResponse{
		Code:    code,
		Message: err.Error(),
	})
}

// pathID 解析路径中的数字ID，非法时返回false并已写入响应
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_ID",
			Message: "非法的ID参数",
		})
		return 0, false
	}
	return uint(id), true
}
