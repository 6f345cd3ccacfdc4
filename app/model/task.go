package model

import (
	"time"

	"gorm.io/datatypes"
)

// TaskStatus 任务状态
type TaskStatus string

const (
	TaskStatusUploaded         TaskStatus = "uploaded"
	TaskStatusProcessing       TaskStatus = "processing"
	TaskStatusTranscribed      TaskStatus = "transcribed"
	TaskStatusSummarizing      TaskStatus = "summarizing"
	TaskStatusCompleted        TaskStatus = "completed"
	TaskStatusTranscribeFailed TaskStatus = "transcribe_failed"
	TaskStatusSummarizeFailed  TaskStatus = "summarize_failed"
	TaskStatusNotionFailed     TaskStatus = "notion_failed"
	TaskStatusFailed           TaskStatus = "failed"
)

// AllStatuses 按流水线顺序列出全部状态
var AllStatuses = []TaskStatus{
	TaskStatusUploaded,
	TaskStatusProcessing,
	TaskStatusTranscribed,
	TaskStatusSummarizing,
	TaskStatusCompleted,
	TaskStatusTranscribeFailed,
	TaskStatusSummarizeFailed,
	TaskStatusNotionFailed,
	TaskStatusFailed,
}

// transitions 目标状态 -> 允许的来源状态
var transitions = map[TaskStatus][]TaskStatus{
	TaskStatusProcessing:       {TaskStatusUploaded, TaskStatusProcessing, TaskStatusFailed},
	TaskStatusTranscribed:      {TaskStatusProcessing},
	TaskStatusTranscribeFailed: {TaskStatusUploaded, TaskStatusProcessing},
	TaskStatusSummarizing:      {TaskStatusProcessing, TaskStatusTranscribed, TaskStatusSummarizing},
	TaskStatusCompleted:        {TaskStatusSummarizing},
	TaskStatusSummarizeFailed:  {TaskStatusSummarizing},
	TaskStatusNotionFailed:     {TaskStatusCompleted, TaskStatusNotionFailed},
	TaskStatusFailed:           {TaskStatusUploaded, TaskStatusProcessing},
}

// AllowedFrom 返回可以转移到 to 的来源状态
func AllowedFrom(to TaskStatus) []TaskStatus {
	return transitions[to]
}

// CanTransition 判断 from -> to 是否合法
func CanTransition(from, to TaskStatus) bool {
	for _, s := range transitions[to] {
		if s == from {
			return true
		}
	}
	return false
}

// IsTerminal 终态任务只允许 Notion 同步继续变更
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusTranscribeFailed, TaskStatusSummarizeFailed, TaskStatusFailed, TaskStatusNotionFailed:
		return true
	}
	return false
}

// TaskMetadata 会议元数据，未提供的字段为 nil
type TaskMetadata struct {
	ConsultantName       *string `gorm:"column:consultant_name" json:"consultant_name"`
	CompanyName          *string `gorm:"column:company_name" json:"company_name"`
	CompanyType          *string `gorm:"column:company_type" json:"company_type"`
	CompanyProblem       *string `gorm:"column:company_problem" json:"company_problem"`
	CompanyPhase         *string `gorm:"column:company_phase" json:"company_phase"`
	MeetingDate          *string `gorm:"column:meeting_date" json:"meeting_date"`
	MeetingCount         *int    `gorm:"column:meeting_count" json:"meeting_count"`
	MeetingType          *string `gorm:"column:meeting_type" json:"meeting_type"`
	SupportArea          *string `gorm:"column:support_area" json:"support_area"`
	InternalSharingItems *string `gorm:"column:internal_sharing_items" json:"internal_sharing_items"`
}

// Task 一次会议视频从上传到 Notion 发布的完整记录
type Task struct {
	ID               string     `gorm:"primaryKey;size:36" json:"id"`
	Status           TaskStatus `gorm:"size:32;not null;index" json:"status"`
	OriginalFileName string     `json:"original_file_name"`
	ContentType      string     `json:"content_type"`
	SlackFileID      string     `gorm:"index" json:"slack_file_id"`
	SlackUserID      string     `json:"slack_user_id"`
	SlackChannelID   string     `json:"slack_channel_id"`
	SlackTeamID      string     `json:"slack_team_id"`
	SlackEventTS     string     `json:"slack_event_ts"`

	TaskMetadata `gorm:"embedded"`

	StoragePath         string         `json:"storage_path"`
	// 转写与摘要不指定列类型，由方言选择不限长度的文本类型 (mysql 为 longtext)
	TranscriptionResult string         `json:"transcription_result,omitempty"`
	Phase1Output        datatypes.JSON `json:"phase1_output,omitempty"`
	Phase2Output        datatypes.JSON `json:"phase2_output,omitempty"`
	Phase3Output        datatypes.JSON `json:"phase3_output,omitempty"`
	FinalSummary        string         `json:"final_summary,omitempty"`
	NotionPageID        datatypes.JSON `json:"notion_page_id,omitempty"`
	ErrorMessage        string         `gorm:"type:text" json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Task) TableName() string {
	return "transcription_tasks"
}
