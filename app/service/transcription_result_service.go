package service

import (
	"context"

	"mtglog/app/logger"
	"mtglog/app/model"
	"mtglog/app/store"
	"mtglog/app/utils/redact"
)

// TranscriptionResult worker 回报的转写结果，Transcript 与 Error 二选一
type TranscriptionResult struct {
	TaskID     string `json:"taskId"`
	Transcript string `json:"transcript"`
	Error      string `json:"error"`
}

// TranscriptionResultService 记录转写结果
type TranscriptionResultService struct {
	log   *logger.Logger
	store *store.Store
}

func NewTranscriptionResultService(log *logger.Logger, st *store.Store) *TranscriptionResultService {
	return &TranscriptionResultService{log: log, store: st}
}

// Record 成功时进入 transcribed，失败时进入 transcribe_failed
func (s *TranscriptionResultService) Record(ctx context.Context, req TranscriptionResult) (model.TaskStatus, error) {
	if req.TaskID == "" {
		return "", badRequest("taskId is required", "")
	}
	if req.Transcript == "" && req.Error == "" {
		return "", badRequest("transcript or error is required", "")
	}

	current, err := s.store.GetTask(ctx, req.TaskID)
	if err != nil {
		return "", taskLookupError(err)
	}

	to := model.TaskStatusTranscribed
	updates := map[string]any{"transcription_result": req.Transcript, "error_message": ""}
	if req.Error != "" {
		to = model.TaskStatusTranscribeFailed
		updates = map[string]any{"error_message": redact.Truncate(req.Error, maxErrorDetail)}
	}

	if err := s.store.Transition(ctx, req.TaskID, to, updates); err != nil {
		return "", transitionError(err, current.Status, to)
	}
	s.log.Infof("任务 %s 转写结果已记录: %s", req.TaskID, to)
	return to, nil
}
