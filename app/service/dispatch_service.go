package service

import (
	"context"
	"errors"
	"time"

	"mtglog/app/config"
	"mtglog/app/logger"
	"mtglog/app/model"
	"mtglog/app/storage"
	"mtglog/app/store"
)

// StartTaskRequest 开始转写
type StartTaskRequest struct {
	TaskID string `json:"taskId"`
}

// StartTaskResult 派发结果
type StartTaskResult struct {
	Message string           `json:"message"`
	TaskID  string           `json:"taskId"`
	Status  model.TaskStatus `json:"status"`
}

// TranscribeJob 发给转写 worker 的请求体
type TranscribeJob struct {
	SignedURL   string `json:"signedUrl"`
	GCSBucket   string `json:"gcsBucket"`
	GCSDestPath string `json:"gcsDestPath"`
	TaskID      string `json:"taskId"`
}

// DispatchService 把已上传的任务派发给转写 worker
type DispatchService struct {
	cfg     *config.Config
	log     *logger.Logger
	store   *store.Store
	storage VideoStorage
	worker  StagePoster
	now     func() time.Time
}

// NewDispatchService 创建派发服务
func NewDispatchService(cfg *config.Config, log *logger.Logger, st *store.Store, videos VideoStorage, worker StagePoster) *DispatchService {
	return &DispatchService{cfg: cfg, log: log, store: st, storage: videos, worker: worker, now: time.Now}
}

// StartTask 重复调用只会重新签名并再次派发
func (s *DispatchService) StartTask(ctx context.Context, req StartTaskRequest) (*StartTaskResult, error) {
	if req.TaskID == "" {
		return nil, badRequest("taskId is required", "")
	}
	if s.cfg.Pipeline.TranscriberURL == "" {
		return nil, misconfigured("pipeline.transcriber_url")
	}
	if s.storage == nil {
		return nil, misconfigured("storage")
	}

	task, err := s.store.GetTask(ctx, req.TaskID)
	if err != nil {
		return nil, taskLookupError(err)
	}
	if task.StoragePath == "" {
		return nil, notActionable("storage_path is empty")
	}

	if err := s.store.Transition(ctx, task.ID, model.TaskStatusProcessing, map[string]any{"error_message": ""}); err != nil {
		return nil, transitionError(err, task.Status, model.TaskStatusProcessing)
	}

	signedURL, err := s.storage.SignedDownloadURL(task.StoragePath)
	if err != nil {
		s.markFailed(ctx, task.ID, "Failed to create signed URL: "+detail(err))
		return nil, internal("Failed to create signed URL", err)
	}

	job := TranscribeJob{
		SignedURL:   signedURL,
		GCSBucket:   s.cfg.Pipeline.AudioBucket,
		GCSDestPath: storage.AudioPath(task.ID, s.now()),
		TaskID:      task.ID,
	}

	dispatchCtx := ctx
	if s.cfg.Pipeline.DispatchTimeout > 0 {
		var cancel context.CancelFunc
		dispatchCtx, cancel = context.WithTimeout(ctx, s.cfg.Pipeline.DispatchTimeout)
		defer cancel()
	}
	if err := s.worker.Post(dispatchCtx, s.cfg.Pipeline.TranscriberURL, job, nil); err != nil {
		s.markFailed(ctx, task.ID, "Transcription dispatch failed: "+detail(err))
		return nil, badGateway("Transcription dispatch failed", err)
	}

	s.log.Infof("任务 %s 已派发: %s", task.ID, job.GCSDestPath)
	return &StartTaskResult{
		Message: "Transcription task started successfully",
		TaskID:  task.ID,
		Status:  model.TaskStatusProcessing,
	}, nil
}

func (s *DispatchService) markFailed(ctx context.Context, id, message string) {
	err := s.store.Transition(ctx, id, model.TaskStatusFailed, map[string]any{"error_message": message})
	if err != nil {
		s.log.Warnf("任务 %s 标记 failed 失败: %v", id, err)
	}
}

func taskLookupError(err error) error {
	if errors.Is(err, store.ErrTaskNotFound) {
		return notFound("Task not found")
	}
	return internal("Failed to load task", err)
}

func transitionError(err error, from, to model.TaskStatus) error {
	switch {
	case errors.Is(err, store.ErrTaskNotFound):
		return notFound("Task not found")
	case errors.Is(err, store.ErrTransitionRejected):
		return notActionable("status " + string(from) + " cannot move to " + string(to))
	}
	return internal("Failed to update task", err)
}
