package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"mtglog/app/config"
	"mtglog/app/logger"
	"mtglog/app/model"
	"mtglog/app/store"

	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
)

// SummarizeRequest 摘要请求
type SummarizeRequest struct {
	TaskID     string `json:"taskId"`
	Transcript string `json:"transcript"`
}

// SummarizeResult 摘要结果
type SummarizeResult struct {
	Message      string          `json:"message"`
	TaskID       string          `json:"taskId"`
	Phase1       json.RawMessage `json:"phase1"`
	Phase2       json.RawMessage `json:"phase2"`
	Phase3       json.RawMessage `json:"phase3"`
	FinalSummary string          `json:"finalSummary"`
}

// SummarizeService 三个阶段并行抽取，再汇总为 Markdown
type SummarizeService struct {
	cfg   *config.Config
	log   *logger.Logger
	store *store.Store
	llm   TextGenerator
	stage StagePoster
	bg    *Background
}

// NewSummarizeService llm 为 nil 表示未配置模型
func NewSummarizeService(cfg *config.Config, log *logger.Logger, st *store.Store, llm TextGenerator, stage StagePoster, bg *Background) *SummarizeService {
	return &SummarizeService{cfg: cfg, log: log, store: st, llm: llm, stage: stage, bg: bg}
}

// Summarize 任一阶段失败时任务进入 summarize_failed，不保存部分结果
func (s *SummarizeService) Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResult, error) {
	if req.TaskID == "" || req.Transcript == "" {
		return nil, badRequest("taskId and transcript are required", "")
	}
	if s.llm == nil {
		return nil, misconfigured("gemini.api_key")
	}

	task, err := s.store.GetTask(ctx, req.TaskID)
	if err != nil {
		return nil, taskLookupError(err)
	}
	err = s.store.Transition(ctx, task.ID, model.TaskStatusSummarizing, map[string]any{
		"transcription_result": req.Transcript,
		"error_message":        "",
	})
	if err != nil {
		return nil, transitionError(err, task.Status, model.TaskStatusSummarizing)
	}

	transcript := truncateTail(req.Transcript, s.cfg.Gemini.MaxTranscriptTokens)
	meta := metaPrompt(task.TaskMetadata)

	outputs, err := s.runPhases(ctx, meta, transcript)
	if err != nil {
		s.markFailed(ctx, task.ID, err)
		return nil, internal("Summarization failed", err)
	}

	raw, err := s.llm.Generate(ctx, consolidationPrompt(meta, outputs))
	if err != nil {
		s.markFailed(ctx, task.ID, err)
		return nil, internal("Final summary generation failed", err)
	}
	final := normalizeSummary(raw)

	err = s.store.Transition(ctx, task.ID, model.TaskStatusCompleted, map[string]any{
		"phase1_output": datatypes.JSON(outputs[0]),
		"phase2_output": datatypes.JSON(outputs[1]),
		"phase3_output": datatypes.JSON(outputs[2]),
		"final_summary": final,
	})
	if err != nil {
		if !errors.Is(err, store.ErrTransitionRejected) && !errors.Is(err, store.ErrTaskNotFound) {
			s.markFailed(ctx, task.ID, fmt.Errorf("保存摘要失败: %w", err))
		}
		return nil, transitionError(err, model.TaskStatusSummarizing, model.TaskStatusCompleted)
	}
	s.log.Infof("任务 %s 摘要完成 (%d 字)", task.ID, len([]rune(final)))

	s.triggerNotionSync(task.ID)

	return &SummarizeResult{
		Message:      "Summarization completed",
		TaskID:       task.ID,
		Phase1:       outputs[0],
		Phase2:       outputs[1],
		Phase3:       outputs[2],
		FinalSummary: final,
	}, nil
}

func (s *SummarizeService) runPhases(ctx context.Context, meta, transcript string) ([3][]byte, error) {
	var outputs [3][]byte
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range phases {
		g.Go(func() error {
			raw, err := s.llm.Generate(gctx, phasePrompt(p, meta, transcript))
			if err != nil {
				return fmt.Errorf("%s: %w", p.name, err)
			}
			out, err := p.decode(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", p.name, err)
			}
			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return outputs, err
	}
	return outputs, nil
}

func (s *SummarizeService) markFailed(ctx context.Context, id string, cause error) {
	err := s.store.Transition(ctx, id, model.TaskStatusSummarizeFailed, map[string]any{"error_message": detail(cause)})
	if err != nil {
		s.log.Warnf("任务 %s 标记 summarize_failed 失败: %v", id, err)
	}
}

// triggerNotionSync 在返回响应之前派发，不等待结果
func (s *SummarizeService) triggerNotionSync(taskID string) {
	url := s.cfg.StageURL("/api/notion-sync")
	if url == "" {
		s.log.Warnf("pipeline.app_url 未配置，任务 %s 不会同步到 Notion", taskID)
		return
	}
	s.bg.Go("notion-sync "+taskID, func(ctx context.Context) error {
		return s.stage.Post(ctx, url, map[string]string{"taskId": taskID}, nil)
	})
}
