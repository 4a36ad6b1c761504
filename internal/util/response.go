package util

import (
	"errors"
	"net/http"

	"kidquest_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// PageResponse 分页响应结构
type PageResponse struct {
	List  interface{} `json:"list"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    http.StatusCreated,
		Message: "created",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func InternalServerError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "Internal server error")
}

func StatusOf(code ErrorCode) int {
	switch code {
	case CodeNotAuthenticated:
		return http.StatusUnauthorized
	case CodeUnauthorized:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeValidationFailed:
		return http.StatusBadRequest
	case CodeConflictIgnored:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// Fail writes err as a typed failure. Unexpected errors are logged and replaced by a
// generic message.
func Fail(c *gin.Context, err error) {
	var ae *AppError
	if !errors.As(err, &ae) || ae.Code == CodeUnexpected {
		logger.Log.Error("Internal server error",
			zap.String("path", c.FullPath()),
			zap.Uint("userId", GetIdentity(c).UserID),
			zap.Error(err))
		InternalServerError(c)
		return
	}
	msg := ae.Message
	if msg == "" {
		msg = string(ae.Code)
	}
	Error(c, StatusOf(ae.Code), msg)
}
