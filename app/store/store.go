package store

import (
	"context"
	"time"

	"mtglog/app/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrTaskNotFound       = errors.New("task not found")
	ErrTransitionRejected = errors.New("task status does not allow this transition")
	ErrMappingNotFound    = errors.New("mapping not found")
)

// Store 任务记录、上传日志与 Notion 映射的持久化
type Store struct {
	db *gorm.DB
}

// New 创建 Store
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB 返回底层连接
func (s *Store) DB() *gorm.DB {
	return s.db
}

// CreateTask 插入新任务
func (s *Store) CreateTask(ctx context.Context, task *model.Task) error {
	return errors.WithStack(s.db.WithContext(ctx).Create(task).Error)
}

// GetTask 按 id 读取任务
func (s *Store) GetTask(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed find task %s", id)
	}
	return &task, nil
}

// Transition 在当前状态允许时把任务移到 to，并写入 updates 中的字段。
// 条件更新以状态为前置条件，重复投递不会把任务带回更早的状态。
func (s *Store) Transition(ctx context.Context, id string, to model.TaskStatus, updates map[string]any) error {
	values := map[string]any{}
	for k, v := range updates {
		values[k] = v
	}
	values["status"] = to
	values["updated_at"] = time.Now()

	res := s.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ? AND status IN ?", id, model.AllowedFrom(to)).
		Updates(values)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "failed update task %s to %s", id, to)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	if _, err := s.GetTask(ctx, id); err != nil {
		return err
	}
	return ErrTransitionRejected
}

// UpdateFields 不改变状态，仅更新字段
func (s *Store) UpdateFields(ctx context.Context, id string, updates map[string]any) error {
	values := map[string]any{"updated_at": time.Now()}
	for k, v := range updates {
		values[k] = v
	}
	res := s.db.WithContext(ctx).Model(&model.Task{}).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "failed update task %s", id)
	}
	if res.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// SaveUploadLog 按 id 新增或覆盖上传日志
func (s *Store) SaveUploadLog(ctx context.Context, entry *model.UploadLog) error {
	return errors.WithStack(s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(entry).Error)
}

// GetUploadLog 读取上传日志
func (s *Store) GetUploadLog(ctx context.Context, id string) (*model.UploadLog, error) {
	var entry model.UploadLog
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&entry).Error; err != nil {
		return nil, errors.Wrapf(err, "failed find upload log %s", id)
	}
	return &entry, nil
}

// FindNotionDB 按 (kind, name) 查找映射
func (s *Store) FindNotionDB(ctx context.Context, kind model.NotionDBKind, name string) (*model.NotionDBMap, error) {
	var m model.NotionDBMap
	err := s.db.WithContext(ctx).Where("kind = ? AND name = ?", kind, name).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMappingNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed find notion db map %s/%s", kind, name)
	}
	return &m, nil
}

// SaveNotionDB 写入映射，供运维导入使用
func (s *Store) SaveNotionDB(ctx context.Context, m *model.NotionDBMap) error {
	return errors.WithStack(s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "kind"}, {Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"page_id", "db_id", "updated_at"}),
	}).Create(m).Error)
}

// CountByStatus 按状态统计任务数
func (s *Store) CountByStatus(ctx context.Context) (map[model.TaskStatus]int64, error) {
	var rows []struct {
		Status model.TaskStatus
		Count  int64
	}
	err := s.db.WithContext(ctx).Model(&model.Task{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed count tasks")
	}

	counts := make(map[model.TaskStatus]int64, len(model.AllStatuses))
	for _, st := range model.AllStatuses {
		counts[st] = 0
	}
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

// ListStale 列出处于 statuses 且 updated_at 早于 before 的任务
func (s *Store) ListStale(ctx context.Context, statuses []model.TaskStatus, before time.Time) ([]model.Task, error) {
	var tasks []model.Task
	err := s.db.WithContext(ctx).
		Select("id", "status", "original_file_name", "updated_at").
		Where("status IN ? AND updated_at < ?", statuses, before).
		Order("updated_at").
		Find(&tasks).Error
	return tasks, errors.Wrap(err, "failed list stale tasks")
}
