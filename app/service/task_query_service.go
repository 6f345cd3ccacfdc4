package service

import (
	"context"

	"mtglog/app/model"
	"mtglog/app/store"
)

// TaskQueryService 任务只读查询
type TaskQueryService struct {
	store *store.Store
}

func NewTaskQueryService(st *store.Store) *TaskQueryService {
	return &TaskQueryService{store: st}
}

// Get 按 id 读取任务
func (s *TaskQueryService) Get(ctx context.Context, id string) (*model.Task, error) {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, taskLookupError(err)
	}
	return task, nil
}

// Stats 各状态任务数
func (s *TaskQueryService) Stats(ctx context.Context) (map[model.TaskStatus]int64, error) {
	counts, err := s.store.CountByStatus(ctx)
	if err != nil {
		return nil, internal("Failed to count tasks", err)
	}
	return counts, nil
}
