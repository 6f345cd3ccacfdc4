package speechhelper

import (
	"context"
	"fmt"
	"strings"

	"mtglog/app/config"
)

// Audio 待识别的音频，本地路径与上传后的对象地址
type Audio struct {
	Path string // 本地文件
	URI  string // gs://bucket/key
}

// Recognizer 语音识别
type Recognizer interface {
	Recognize(ctx context.Context, audio Audio) (string, error)
}

// New 按 provider 创建识别器
func New(cfg config.SpeechConfig) (Recognizer, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "whisper":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("未配置 speech.openai_key")
		}
		return NewWhisper(cfg), nil
	case "google":
		if cfg.GoogleKey == "" {
			return nil, fmt.Errorf("未配置 speech.google_key")
		}
		return NewGoogle(cfg), nil
	}
	return nil, fmt.Errorf("不支持的语音识别服务: %s", cfg.Provider)
}

// whisper 与 google 都使用 ja-JP 之类的 BCP-47，whisper 只认语言部分
func languageCode(lang string) string {
	if i := strings.IndexByte(lang, '-'); i > 0 {
		return strings.ToLower(lang[:i])
	}
	return strings.ToLower(lang)
}
