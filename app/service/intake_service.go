package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"mtglog/app/config"
	"mtglog/app/logger"
	"mtglog/app/metadata"
	"mtglog/app/model"
	"mtglog/app/storage"
	"mtglog/app/store"
	"mtglog/app/utils/redact"
	"mtglog/app/utils/retry"
	"mtglog/app/utils/uploader"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// FlexInt 同时接受 JSON 数字和数字字符串
type FlexInt int

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("meetingCount 不是数字: %s", s)
	}
	*f = FlexInt(n)
	return nil
}

// IntakeMetadata 调用方随文件一起提交的元数据
type IntakeMetadata struct {
	ConsultantName       *string  `json:"consultantName,omitempty"`
	CompanyName          *string  `json:"companyName,omitempty"`
	CompanyType          *string  `json:"companyType,omitempty"`
	CompanyIssues        *string  `json:"companyIssues,omitempty"`
	CompanyPhase         *string  `json:"companyPhase,omitempty"`
	MeetingDate          *string  `json:"meetingDate,omitempty"`
	MeetingCount         *FlexInt `json:"meetingCount,omitempty"`
	MeetingType          *string  `json:"meetingType,omitempty"`
	SupportArea          *string  `json:"supportArea,omitempty"`
	InternalSharingItems *string  `json:"internalSharingItems,omitempty"`
}

func (m IntakeMetadata) toModel() model.TaskMetadata {
	out := model.TaskMetadata{
		ConsultantName:       m.ConsultantName,
		CompanyName:          m.CompanyName,
		CompanyType:          m.CompanyType,
		CompanyProblem:       m.CompanyIssues,
		CompanyPhase:         m.CompanyPhase,
		MeetingType:          m.MeetingType,
		SupportArea:          m.SupportArea,
		InternalSharingItems: m.InternalSharingItems,
	}
	if m.MeetingDate != nil {
		if d, ok := metadata.NormalizeDate(*m.MeetingDate); ok {
			out.MeetingDate = &d
		}
	}
	if m.MeetingCount != nil {
		n := int(*m.MeetingCount)
		out.MeetingCount = &n
	}
	return out
}

// IntakeRequest 文件上传通知。元数据可以放在 metadata 对象里，也可以放在顶层
type IntakeRequest struct {
	FileID           string `json:"file_id"`
	OriginalFileName string `json:"original_file_name"`
	Mimetype         string `json:"mimetype"`
	Filetype         string `json:"filetype"`
	SlackDownloadURL string `json:"slack_download_url"`
	SlackUserID      string `json:"slack_user_id"`
	SlackChannelID   string `json:"slack_channel_id"`
	SlackTeamID      string `json:"slack_team_id"`
	SlackEventTS     string `json:"slack_event_ts"`
	Text             string `json:"text"`

	IntakeMetadata
	Metadata IntakeMetadata `json:"metadata"`
}

// contentType mimetype 缺失时按 filetype 推断
func (r IntakeRequest) contentType() string {
	if r.Mimetype != "" {
		return r.Mimetype
	}
	if strings.EqualFold(r.Filetype, "mp4") {
		return storage.AcceptedContentType
	}
	return ""
}

func (r IntakeRequest) taskMetadata() model.TaskMetadata {
	m := metadata.Extract(r.Text)
	m = metadata.Merge(m, r.IntakeMetadata.toModel())
	return metadata.Merge(m, r.Metadata.toModel())
}

// IntakeResult 接收结果，status 为 uploaded 或 skipped
type IntakeResult struct {
	Status      string `json:"status"`
	TaskID      string `json:"taskId,omitempty"`
	StoragePath string `json:"storagePath,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

type opener func(ctx context.Context) (io.ReadCloser, int64, error)

// IntakeService 把上游文件转存到对象存储并创建任务
type IntakeService struct {
	cfg     *config.Config
	log     *logger.Logger
	store   *store.Store
	slack   SlackFiles
	storage VideoStorage
	stage   StagePoster
	bg      *Background
	http    *http.Client
}

// NewIntakeService 创建接收服务，videos 为 nil 表示存储未配置
func NewIntakeService(cfg *config.Config, log *logger.Logger, st *store.Store, slack SlackFiles, videos VideoStorage, stage StagePoster, bg *Background) *IntakeService {
	return &IntakeService{
		cfg:     cfg,
		log:     log,
		store:   st,
		slack:   slack,
		storage: videos,
		stage:   stage,
		bg:      bg,
		http:    &http.Client{},
	}
}

func (s *IntakeService) policy() retry.Policy {
	return retry.Policy{MaxAttempts: s.cfg.Retry.MaxAttempts, BaseDelay: s.cfg.Retry.BaseDelay}
}

func (s *IntakeService) notify(step string) func(error, time.Duration) {
	return func(err error, wait time.Duration) {
		s.log.Warnf("%s 失败，%v 后重试: %s", step, wait, detail(err))
	}
}

// Intake 处理 JSON 形式的通知：解析下载地址后以流的方式转存
func (s *IntakeService) Intake(ctx context.Context, req IntakeRequest) (*IntakeResult, error) {
	if req.OriginalFileName == "" {
		return nil, badRequest("Invalid request body", "original_file_name is required")
	}
	if req.FileID == "" && req.SlackDownloadURL == "" {
		return nil, badRequest("Invalid request body", "file_id or slack_download_url is required")
	}
	if !storage.Accepted(req.OriginalFileName, req.contentType()) {
		return s.skip(req), nil
	}
	if s.storage == nil {
		return nil, misconfigured("storage")
	}

	downloadURL, err := s.resolveDownloadURL(ctx, req)
	if err != nil {
		return nil, err
	}

	open := func(ctx context.Context) (io.ReadCloser, int64, error) {
		return s.slack.Open(ctx, downloadURL)
	}
	return s.ingest(ctx, req, downloadURL, open)
}

// IntakeUpload 处理直接上传的文件，file 需要可以 Seek 以便重试
func (s *IntakeService) IntakeUpload(ctx context.Context, req IntakeRequest, file io.ReadSeeker, size int64) (*IntakeResult, error) {
	if req.OriginalFileName == "" {
		return nil, badRequest("Invalid request body", "file name is required")
	}
	if !storage.Accepted(req.OriginalFileName, req.contentType()) {
		return s.skip(req), nil
	}
	if s.storage == nil {
		return nil, misconfigured("storage")
	}

	open := func(context.Context) (io.ReadCloser, int64, error) {
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			return nil, 0, retry.Permanent(err)
		}
		return io.NopCloser(file), size, nil
	}
	return s.ingest(ctx, req, "", open)
}

func (s *IntakeService) skip(req IntakeRequest) *IntakeResult {
	s.log.Infof("跳过不支持的文件: %s (%s)", req.OriginalFileName, req.contentType())
	return &IntakeResult{Status: "skipped", Reason: "unsupported file type"}
}

func (s *IntakeService) resolveDownloadURL(ctx context.Context, req IntakeRequest) (string, error) {
	if req.SlackDownloadURL != "" {
		return req.SlackDownloadURL, nil
	}
	if s.cfg.Auth.SlackBotToken == "" {
		return "", misconfigured("auth.slack_bot_token")
	}

	var url string
	err := s.policy().Do(ctx, func(ctx context.Context) error {
		f, err := s.slack.FileInfo(ctx, req.FileID)
		if err != nil {
			return err
		}
		url = f.URLPrivateDownload
		return nil
	}, s.notify("files.info"))
	if err != nil {
		return "", badGateway("Failed to resolve file download URL", err)
	}
	return url, nil
}

func (s *IntakeService) ingest(ctx context.Context, req IntakeRequest, downloadURL string, open opener) (*IntakeResult, error) {
	contentType := req.contentType()
	target, err := s.storage.CreateUploadTarget(req.OriginalFileName, contentType)
	if err != nil {
		return nil, internal("Failed to create upload URL", err)
	}

	taskID := uuid.NewString()
	meta := req.taskMetadata()
	tracker := s.newTracker(taskID, req, target.StoragePath, downloadURL, meta)
	tracker.save(ctx)

	mode := uploader.Mode(s.cfg.Transfer.Mode)
	var written int64
	err = s.policy().Do(ctx, func(ctx context.Context) error {
		body, size, err := open(ctx)
		if err != nil {
			return err
		}
		defer body.Close()

		tracker.start(ctx, size)
		written, err = uploader.Put(ctx, s.http, target.UploadURL, body, size, contentType, uploader.Options{
			Mode:           mode,
			MaxBufferBytes: s.cfg.Transfer.MaxBufferBytes,
			OnProgress:     uploader.EveryTenPercent(func(p int) { tracker.progress(ctx, p) }),
		})
		return err
	}, s.notify("上传 "+req.OriginalFileName))
	if err != nil {
		tracker.fail(ctx, err)
		if errors.Is(err, uploader.ErrPayloadTooLarge) {
			return nil, badRequest("File too large", fmt.Sprintf("buffered transfer limit is %d bytes", s.cfg.Transfer.MaxBufferBytes))
		}
		return nil, badGateway("Upload failed", err)
	}

	task := &model.Task{
		ID:               taskID,
		Status:           model.TaskStatusUploaded,
		OriginalFileName: req.OriginalFileName,
		ContentType:      contentType,
		SlackFileID:      req.FileID,
		SlackUserID:      req.SlackUserID,
		SlackChannelID:   req.SlackChannelID,
		SlackTeamID:      req.SlackTeamID,
		SlackEventTS:     req.SlackEventTS,
		TaskMetadata:     meta,
		StoragePath:      target.StoragePath,
	}
	if err := s.store.CreateTask(ctx, task); err != nil {
		tracker.fail(ctx, err)
		return nil, internal("Failed to create task", err)
	}
	tracker.done(ctx, written)
	s.log.Infof("任务 %s 已创建: %s (%d bytes)", taskID, target.StoragePath, written)

	s.startNext(taskID)

	return &IntakeResult{Status: string(model.TaskStatusUploaded), TaskID: taskID, StoragePath: target.StoragePath}, nil
}

// startNext 替代数据库触发器，异步调用 start-task
func (s *IntakeService) startNext(taskID string) {
	if !s.cfg.Pipeline.AutoStart {
		return
	}
	url := s.cfg.StageURL("/api/start-task")
	if url == "" {
		s.log.Warnf("pipeline.app_url 未配置，任务 %s 不会自动开始", taskID)
		return
	}
	s.bg.Go("start-task "+taskID, func(ctx context.Context) error {
		return s.stage.Post(ctx, url, map[string]string{"taskId": taskID}, nil)
	})
}

// uploadTracker 维护上传日志，写失败只记日志
type uploadTracker struct {
	mu    sync.Mutex
	store *store.Store
	log   *logger.Logger
	entry model.UploadLog
}

func (s *IntakeService) newTracker(taskID string, req IntakeRequest, storagePath, downloadURL string, meta model.TaskMetadata) *uploadTracker {
	raw, _ := json.Marshal(meta)
	return &uploadTracker{
		store: s.store,
		log:   s.log,
		entry: model.UploadLog{
			ID:               uuid.NewString(),
			TaskID:           taskID,
			FileName:         req.OriginalFileName,
			StoragePath:      storagePath,
			Status:           model.UploadStatusPreparing,
			ContentType:      req.contentType(),
			Metadata:         datatypes.JSON(raw),
			SlackFileID:      req.FileID,
			SlackDownloadURL: redact.URL(downloadURL),
		},
	}
}

func (t *uploadTracker) save(ctx context.Context) {
	entry := t.entry
	if err := t.store.SaveUploadLog(ctx, &entry); err != nil {
		t.log.Warnf("写入上传日志 %s 失败: %v", entry.ID, err)
	}
}

func (t *uploadTracker) start(ctx context.Context, size int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entry.Status = model.UploadStatusUploading
	t.entry.Progress = 0
	if size > 0 {
		t.entry.FileSize = size
	}
	t.save(ctx)
}

func (t *uploadTracker) progress(ctx context.Context, percent int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if percent <= t.entry.Progress && percent != 0 {
		return
	}
	t.entry.Progress = percent
	t.save(ctx)
}

func (t *uploadTracker) done(ctx context.Context, written int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entry.Status = model.UploadStatusUploaded
	t.entry.Progress = 100
	t.entry.FileSize = written
	t.save(ctx)
}

func (t *uploadTracker) fail(ctx context.Context, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entry.Status = model.UploadStatusFailed
	t.entry.ErrorMessage = detail(err)
	t.save(ctx)
}
