package service

import (
	"context"
	"io"

	"mtglog/app/storage"
	"mtglog/app/utils/notionhelper"
	"mtglog/app/utils/slackhelper"
)

// SlackFiles 解析并打开 Slack 私有文件
type SlackFiles interface {
	FileInfo(ctx context.Context, fileID string) (*slackhelper.File, error)
	Open(ctx context.Context, url string) (io.ReadCloser, int64, error)
}

// VideoStorage 视频存储的签名地址
type VideoStorage interface {
	CreateUploadTarget(fileName, contentType string) (*storage.UploadTarget, error)
	SignedDownloadURL(storagePath string) (string, error)
}

// ObjectUploader 把本地文件写入对象存储
type ObjectUploader interface {
	Upload(ctx context.Context, bucket, key string, body io.Reader, contentType string) error
}

// TextGenerator 生成式文本模型
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// PageCreator Notion 页面创建
type PageCreator interface {
	CreatePage(ctx context.Context, databaseID string, page notionhelper.Page) (string, error)
}

// StagePoster 携带共享密钥调用其他阶段
type StagePoster interface {
	Post(ctx context.Context, url string, body, out any) error
}

// AudioExtractor 从视频抽取音频
type AudioExtractor interface {
	Extract(ctx context.Context, input, output string) error
}
