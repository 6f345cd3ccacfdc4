package speechhelper

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"mtglog/app/config"
	"mtglog/app/utils/redact"

	"resty.dev/v3"
)

// Whisper OpenAI 兼容的 /v1/audio/transcriptions
type Whisper struct {
	apiKey   string
	model    string
	language string
	client   *resty.Client
}

// NewWhisper 创建 Whisper 客户端
func NewWhisper(cfg config.SpeechConfig) *Whisper {
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(cfg.OpenAIURL, "/"))
	client.SetTimeout(30 * time.Minute)
	client.SetHeader("Authorization", "Bearer "+cfg.OpenAIKey)

	model := cfg.WhisperModel
	if model == "" {
		model = "whisper-1"
	}
	return &Whisper{apiKey: cfg.OpenAIKey, model: model, language: languageCode(cfg.Language), client: client}
}

// Recognize 上传本地音频文件并返回文本
func (w *Whisper) Recognize(ctx context.Context, audio Audio) (string, error) {
	var result struct {
		Text string `json:"text"`
	}

	form := map[string]string{"model": w.model}
	if w.language != "" {
		form["language"] = w.language
	}
	resp, err := w.client.R().
		SetContext(ctx).
		SetFile("file", audio.Path).
		SetFormData(form).
		SetResult(&result).
		Post("/v1/audio/transcriptions")
	if err != nil {
		return "", fmt.Errorf("请求 Whisper 失败: %s", redact.Error(err, w.apiKey))
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("Whisper 返回状态码 %d: %s", resp.StatusCode(), redact.Truncate(redact.Text(resp.String(), w.apiKey), 500))
	}
	return strings.TrimSpace(result.Text), nil
}
