package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mtglog/app/config"
	"mtglog/app/logger"
	"mtglog/app/model"
	"mtglog/app/store"

	"github.com/robfig/cron/v3"
)

// stuckStatuses 长时间停留说明下游回调丢失
var stuckStatuses = []model.TaskStatus{model.TaskStatusProcessing, model.TaskStatusSummarizing}

// MonitorService 定期输出任务统计与卡住的任务，只读
type MonitorService struct {
	cfg   config.MonitorConfig
	log   *logger.Logger
	store *store.Store
	cron  *cron.Cron
	now   func() time.Time
}

// NewMonitorService 创建监控服务
func NewMonitorService(cfg config.MonitorConfig, log *logger.Logger, st *store.Store) *MonitorService {
	return &MonitorService{cfg: cfg, log: log, store: st, now: time.Now}
}

// Start 按 cron 表达式注册检查任务
func (s *MonitorService) Start() error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.cfg.Spec, func() { s.Check(context.Background()) }); err != nil {
		return fmt.Errorf("无效的监控周期 %q: %w", s.cfg.Spec, err)
	}
	s.cron.Start()
	s.log.Infof("任务监控已启动: %s", s.cfg.Spec)
	return nil
}

// Stop 停止调度并等待正在执行的检查
func (s *MonitorService) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.log.Info("任务监控已停止")
}

// Check 执行一次检查，返回卡住的任务
func (s *MonitorService) Check(ctx context.Context) []model.Task {
	counts, err := s.store.CountByStatus(ctx)
	if err != nil {
		s.log.Errorf("统计任务失败: %v", err)
		return nil
	}
	parts := make([]string, 0, len(model.AllStatuses))
	for _, st := range model.AllStatuses {
		parts = append(parts, fmt.Sprintf("%s=%d", st, counts[st]))
	}
	s.log.Infof("任务统计: %s", strings.Join(parts, " "))

	if s.cfg.StaleAfter <= 0 {
		return nil
	}
	stale, err := s.store.ListStale(ctx, stuckStatuses, s.now().Add(-s.cfg.StaleAfter))
	if err != nil {
		s.log.Errorf("查询卡住的任务失败: %v", err)
		return nil
	}
	for _, t := range stale {
		s.log.Warnf("任务 %s 在 %s 状态停留超过 %v (更新于 %s)", t.ID, t.Status, s.cfg.StaleAfter, t.UpdatedAt.Format(time.RFC3339))
	}
	return stale
}
