package model

import "time"

// NotionDBKind 映射类型
type NotionDBKind string

const (
	NotionDBKindAll        NotionDBKind = "all"
	NotionDBKindConsultant NotionDBKind = "consultant"
	NotionDBKindCompany    NotionDBKind = "company"
)

// NotionDBMap (kind, name) 到 Notion 数据库的映射，由外部维护
type NotionDBMap struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	Kind      NotionDBKind `gorm:"size:16;uniqueIndex:idx_kind_name" json:"kind"`
	Name      string       `gorm:"size:191;uniqueIndex:idx_kind_name" json:"name"`
	PageID    string       `json:"page_id"`
	DBID      string       `gorm:"column:db_id" json:"db_id"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// TableName 指定表名
func (NotionDBMap) TableName() string {
	return "notion_db_map"
}
