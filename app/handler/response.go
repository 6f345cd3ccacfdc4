package handler

import (
	"errors"
	"net/http"

	"mtglog/app/logger"
	"mtglog/app/service"

	"github.com/gin-gonic/gin"
)

// ErrorResponse 所有阶段统一的错误响应
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// respondError 把服务层错误转换为响应，非 StageError 按 500 处理
func respondError(c *gin.Context, log *logger.Logger, err error) {
	var se *service.StageError
	if !errors.As(err, &se) {
		log.Errorf("%s %s 未处理的错误: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}

	if se.Status >= http.StatusInternalServerError {
		log.Errorf("%s %s 失败: %v (%v)", c.Request.Method, c.Request.URL.Path, se, se.Err)
	} else {
		log.Warnf("%s %s 被拒绝: %v", c.Request.Method, c.Request.URL.Path, se)
	}
	c.JSON(se.Status, ErrorResponse{Error: se.Message, Details: se.Details})
}

// bindJSON 解析失败时直接返回 400
func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Details: err.Error()})
		return false
	}
	return true
}
