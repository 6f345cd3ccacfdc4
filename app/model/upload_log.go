package model

import (
	"time"

	"gorm.io/datatypes"
)

// UploadStatus 上传日志状态
type UploadStatus string

const (
	UploadStatusPreparing UploadStatus = "preparing"
	UploadStatusUploading UploadStatus = "uploading"
	UploadStatusUploaded  UploadStatus = "uploaded"
	UploadStatusFailed    UploadStatus = "failed"
)

// UploadLog 一次物理传输的观测记录，不参与流程控制
type UploadLog struct {
	ID               string         `gorm:"primaryKey;size:36" json:"id"`
	TaskID           string         `gorm:"size:36;index" json:"task_id"`
	FileName         string         `json:"file_name"`
	StoragePath      string         `json:"storage_path"`
	Status           UploadStatus   `gorm:"size:16" json:"status"`
	ContentType      string         `json:"content_type"`
	FileSize         int64          `json:"file_size"`
	Progress         int            `json:"progress"`
	ErrorMessage     string         `gorm:"type:text" json:"error_message,omitempty"`
	Metadata         datatypes.JSON `json:"metadata,omitempty"`
	SlackFileID      string         `json:"slack_file_id"`
	SlackDownloadURL string         `json:"slack_download_url"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// TableName 指定表名
func (UploadLog) TableName() string {
	return "upload_logs"
}
