package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"mtglog/app/logger"
	"mtglog/app/service"

	"github.com/gin-gonic/gin"
)

const maxMultipartMemory = 32 << 20

// PipelineHandler 流水线各阶段的 HTTP 入口
type PipelineHandler struct {
	log                 *logger.Logger
	intake              *service.IntakeService
	uploadURL           *service.UploadURLService
	dispatch            *service.DispatchService
	transcriptionResult *service.TranscriptionResultService
	summarize           *service.SummarizeService
	notionSync          *service.NotionSyncService
}

// PipelineServices 构造 PipelineHandler 所需的服务
type PipelineServices struct {
	Intake              *service.IntakeService
	UploadURL           *service.UploadURLService
	Dispatch            *service.DispatchService
	TranscriptionResult *service.TranscriptionResultService
	Summarize           *service.SummarizeService
	NotionSync          *service.NotionSyncService
}

// NewPipelineHandler 创建处理器
func NewPipelineHandler(log *logger.Logger, s PipelineServices) *PipelineHandler {
	return &PipelineHandler{
		log:                 log,
		intake:              s.Intake,
		uploadURL:           s.UploadURL,
		dispatch:            s.Dispatch,
		transcriptionResult: s.TranscriptionResult,
		summarize:           s.Summarize,
		notionSync:          s.NotionSync,
	}
}

// Intake 接收 JSON 通知或 multipart 直传 (file + payload_json)
func (h *PipelineHandler) Intake(c *gin.Context) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		h.intakeMultipart(c)
		return
	}

	var req service.IntakeRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.intake.Intake(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *PipelineHandler) intakeMultipart(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(maxMultipartMemory); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid multipart body", Details: err.Error()})
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "file is required"})
		return
	}

	var req service.IntakeRequest
	if payload := c.PostForm("payload_json"); payload != "" {
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid payload_json", Details: err.Error()})
			return
		}
	}
	if req.OriginalFileName == "" {
		req.OriginalFileName = header.Filename
	}
	if req.Mimetype == "" {
		req.Mimetype = header.Header.Get("Content-Type")
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Failed to read file", Details: err.Error()})
		return
	}
	defer file.Close()

	res, err := h.intake.IntakeUpload(c.Request.Context(), req, file, header.Size)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// UploadURL 签发上传地址
func (h *PipelineHandler) UploadURL(c *gin.Context) {
	var req service.UploadURLRequest
	if !bindJSON(c, &req) {
		return
	}
	target, err := h.uploadURL.Create(req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, target)
}

// StartTask 派发转写
func (h *PipelineHandler) StartTask(c *gin.Context) {
	var req service.StartTaskRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.dispatch.StartTask(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// TranscriptionResult worker 回调
func (h *PipelineHandler) TranscriptionResult(c *gin.Context) {
	var req service.TranscriptionResult
	if !bindJSON(c, &req) {
		return
	}
	status, err := h.transcriptionResult.Record(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"taskId": req.TaskID, "status": status})
}

// SummarizeTask 生成摘要
func (h *PipelineHandler) SummarizeTask(c *gin.Context) {
	var req service.SummarizeRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.summarize.Summarize(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// NotionSync 同步到 Notion
func (h *PipelineHandler) NotionSync(c *gin.Context) {
	var req service.NotionSyncRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.notionSync.Sync(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
