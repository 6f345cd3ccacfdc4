package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"mtglog/app/logger"
	"mtglog/app/model"
	"mtglog/app/store"
	"mtglog/app/utils/notionhelper"

	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
)

const (
	sentinelNone  = "なし"
	sentinelError = "エラー"
)

// NotionSyncRequest 同步请求
type NotionSyncRequest struct {
	TaskID string `json:"taskId"`
}

// NotionPageIDs 三个目标数据库中创建的页面
type NotionPageIDs struct {
	All        string `json:"all"`
	Consultant string `json:"consultant"`
	Company    string `json:"company"`
}

// NotionSyncResult 同步结果
type NotionSyncResult struct {
	Message string        `json:"message"`
	IDs     NotionPageIDs `json:"ids"`
}

// NotionSyncService 把最终摘要写入三个 Notion 数据库
type NotionSyncService struct {
	log    *logger.Logger
	store  *store.Store
	notion PageCreator
}

// NewNotionSyncService notion 为 nil 表示未配置
func NewNotionSyncService(log *logger.Logger, st *store.Store, notion PageCreator) *NotionSyncService {
	return &NotionSyncService{log: log, store: st, notion: notion}
}

type notionTarget struct {
	kind model.NotionDBKind
	name string
	dbID string
}

// Sync 映射缺失返回 400，页面创建失败返回 500，两者都会把任务标记为 notion_failed
func (s *NotionSyncService) Sync(ctx context.Context, req NotionSyncRequest) (*NotionSyncResult, error) {
	if req.TaskID == "" {
		return nil, badRequest("taskId is required", "")
	}
	if s.notion == nil {
		return nil, misconfigured("notion.api_key")
	}

	task, err := s.store.GetTask(ctx, req.TaskID)
	if err != nil {
		return nil, taskLookupError(err)
	}
	if strings.TrimSpace(task.FinalSummary) == "" {
		return nil, badRequest("final_summary is empty", "")
	}

	targets, missing, err := s.resolveTargets(ctx, task)
	if err != nil {
		return nil, internal("Failed to load Notion mapping", err)
	}
	if len(missing) > 0 {
		details := "Mapping not found: " + strings.Join(missing, ", ")
		s.markFailed(ctx, task.ID, details)
		return nil, badRequest("Mapping not found for some target DB", details)
	}

	page := buildPage(task)
	var ids [3]string
	g, gctx := errgroup.WithContext(ctx)
	for i, t := range targets {
		g.Go(func() error {
			id, err := s.notion.CreatePage(gctx, t.dbID, page)
			if err != nil {
				return fmt.Errorf("%s/%s: %w", t.kind, t.name, err)
			}
			ids[i] = id
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.markFailed(ctx, task.ID, "Notion page creation failed: "+detail(err))
		return nil, internal("Failed to create Notion pages", err)
	}

	result := NotionPageIDs{All: ids[0], Consultant: ids[1], Company: ids[2]}
	raw, _ := json.Marshal(result)
	if err := s.store.UpdateFields(ctx, task.ID, map[string]any{"notion_page_id": datatypes.JSON(raw)}); err != nil {
		// 页面已经创建，记录 id 以便人工补录
		s.log.Errorf("任务 %s 的 Notion 页面已创建但保存 id 失败: %s, %v", task.ID, raw, err)
		se := internal("Failed to save Notion page ids", err)
		se.Details = "created pages " + string(raw) + ": " + se.Details
		return nil, se
	}
	s.log.Infof("任务 %s 已同步到 Notion: %s", task.ID, raw)

	return &NotionSyncResult{Message: "Notion pages created", IDs: result}, nil
}

func (s *NotionSyncService) resolveTargets(ctx context.Context, task *model.Task) ([3]notionTarget, []string, error) {
	targets := [3]notionTarget{
		{kind: model.NotionDBKindAll, name: "all"},
		{kind: model.NotionDBKindConsultant, name: value(task.ConsultantName)},
		{kind: model.NotionDBKindCompany, name: value(task.CompanyName)},
	}
	var missing []string
	for i := range targets {
		t := &targets[i]
		if t.name == "" {
			missing = append(missing, string(t.kind)+"=<empty>")
			continue
		}
		m, err := s.store.FindNotionDB(ctx, t.kind, t.name)
		if errors.Is(err, store.ErrMappingNotFound) {
			missing = append(missing, string(t.kind)+"="+t.name)
			continue
		}
		if err != nil {
			return targets, nil, err
		}
		t.dbID = m.DBID
	}
	return targets, missing, nil
}

func (s *NotionSyncService) markFailed(ctx context.Context, id, message string) {
	err := s.store.Transition(ctx, id, model.TaskStatusNotionFailed, map[string]any{"error_message": message})
	if err != nil {
		s.log.Warnf("任务 %s 标记 notion_failed 失败: %v", id, err)
	}
}

func value(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

func orDefault(p *string, def string) string {
	if v := value(p); v != "" {
		return v
	}
	return def
}

// buildPage 固定的页面属性结构
func buildPage(task *model.Task) notionhelper.Page {
	m := task.TaskMetadata
	props := map[string]notionhelper.Property{}
	props["面談日"] = notionhelper.Title(orDefault(m.MeetingDate, sentinelNone))
	props["企業名"] = notionhelper.RichText(orDefault(m.CompanyName, sentinelNone))
	props["コンサルタント名"] = notionhelper.RichText(orDefault(m.ConsultantName, sentinelNone))
	props["企業タイプ"] = notionhelper.Status(orDefault(m.CompanyType, sentinelError))
	props["企業の課題"] = notionhelper.RichText(orDefault(m.CompanyProblem, sentinelNone))
	props["面談回数"] = notionhelper.Number(m.MeetingCount)
	props["支援領域"] = notionhelper.Status(orDefault(m.SupportArea, sentinelError))
	props["企業のフェーズ"] = notionhelper.RichText(orDefault(m.CompanyPhase, sentinelNone))
	props["社内共有が必要な事項"] = notionhelper.RichText(orDefault(m.InternalSharingItems, sentinelNone))
	return notionhelper.Page{Properties: props, Paragraph: task.FinalSummary}
}
