package storage

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
)

const (
	AcceptedExtension   = ".mp4"
	AcceptedContentType = "video/mp4"
	VideoPrefix         = "videos"
)

// Accepted 只接受 .mp4 且 video/mp4 的文件
func Accepted(fileName, contentType string) bool {
	ext := strings.ToLower(path.Ext(fileName))
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	return ext == AcceptedExtension && ct == AcceptedContentType
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// SanitizeFileName 把文件名中不安全的字符替换为下划线
func SanitizeFileName(name string) string {
	return unsafeChars.ReplaceAllString(path.Base(name), "_")
}

// VideoPath 生成 videos/{unix毫秒}_{文件名}
func VideoPath(fileName string, now time.Time) string {
	return fmt.Sprintf("%s/%d_%s", VideoPrefix, now.UnixMilli(), SanitizeFileName(fileName))
}

// AudioPath 生成 audio/{taskId}/{unix毫秒}.mp3
func AudioPath(taskID string, now time.Time) string {
	return fmt.Sprintf("audio/%s/%d.mp3", taskID, now.UnixMilli())
}
