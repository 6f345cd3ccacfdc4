package handler

import (
	"encoding/json"
	"net/http"

	"mtglog/app/auth"
	"mtglog/app/logger"
	"mtglog/app/service"

	"github.com/gin-gonic/gin"
)

// SlackRetryHeader Slack 重试投递时携带的次数
const SlackRetryHeader = "X-Slack-Retry-Num"

// SlackEventHandler Slack Events API 入口
type SlackEventHandler struct {
	log      *logger.Logger
	verifier *auth.SlackVerifier
	events   *service.SlackEventService
}

func NewSlackEventHandler(log *logger.Logger, verifier *auth.SlackVerifier, events *service.SlackEventService) *SlackEventHandler {
	return &SlackEventHandler{log: log, verifier: verifier, events: events}
}

// Events 签名校验针对原始请求体，URL 验证握手不校验签名
func (h *SlackEventHandler) Events(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid body"})
		return
	}

	var env service.SlackEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid JSON"})
		return
	}

	if env.Type == "url_verification" {
		c.JSON(http.StatusOK, gin.H{"challenge": env.Challenge})
		return
	}

	err = h.verifier.Verify(c.GetHeader(auth.SlackTimestampHeader), c.GetHeader(auth.SlackSignatureHeader), raw)
	if err != nil {
		h.log.Warnf("Slack 签名校验失败: %v", err)
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid signature"})
		return
	}

	n := h.events.Handle(env, c.GetHeader(SlackRetryHeader))
	h.log.Debugf("Slack 事件 %s 已确认，转发 %d 个文件", env.EventID, n)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
