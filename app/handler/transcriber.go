package handler

import (
	"net/http"

	"mtglog/app/logger"
	"mtglog/app/service"

	"github.com/gin-gonic/gin"
)

// TranscriberHandler 转写 worker 的 HTTP 入口
type TranscriberHandler struct {
	log *logger.Logger
	svc *service.TranscriberService
}

func NewTranscriberHandler(log *logger.Logger, svc *service.TranscriberService) *TranscriberHandler {
	return &TranscriberHandler{log: log, svc: svc}
}

// Transcribe POST /transcribe，异步模式返回 202
func (h *TranscriberHandler) Transcribe(c *gin.Context) {
	var job service.TranscribeJob
	if !bindJSON(c, &job) {
		return
	}
	res, err := h.svc.Transcribe(c.Request.Context(), job)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	status := http.StatusOK
	if res.Accepted {
		status = http.StatusAccepted
	}
	c.JSON(status, res)
}

// Health GET /
func (h *TranscriberHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "transcriber service is running"})
}
