package speechhelper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"mtglog/app/config"
	"mtglog/app/utils/redact"

	"resty.dev/v3"
)

var ErrRecognitionTimeout = errors.New("语音识别超时")

type recognitionConfig struct {
	Encoding        string `json:"encoding"`
	SampleRateHertz int    `json:"sampleRateHertz"`
	LanguageCode    string `json:"languageCode"`
}

type operation struct {
	Name  string `json:"name"`
	Done  bool   `json:"done"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Response struct {
		Results []struct {
			Alternatives []struct {
				Transcript string `json:"transcript"`
			} `json:"alternatives"`
		} `json:"results"`
	} `json:"response"`
}

// Google Speech-to-Text 长时识别，提交后轮询操作结果
type Google struct {
	apiKey       string
	language     string
	pollInterval time.Duration
	pollTimeout  time.Duration
	client       *resty.Client
}

// NewGoogle 创建 Google 识别客户端
func NewGoogle(cfg config.SpeechConfig) *Google {
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(cfg.GoogleURL, "/"))
	client.SetTimeout(time.Minute)
	client.SetQueryParam("key", cfg.GoogleKey)

	g := &Google{
		apiKey:       cfg.GoogleKey,
		language:     cfg.Language,
		pollInterval: cfg.PollInterval,
		pollTimeout:  cfg.PollTimeout,
		client:       client,
	}
	if g.pollInterval <= 0 {
		g.pollInterval = 5 * time.Second
	}
	if g.pollTimeout <= 0 {
		g.pollTimeout = 30 * time.Minute
	}
	return g
}

// Recognize 识别 gs:// 地址上的 MP3，结果按行拼接
func (g *Google) Recognize(ctx context.Context, audio Audio) (string, error) {
	if audio.URI == "" {
		return "", fmt.Errorf("缺少音频地址")
	}

	var op operation
	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"config": recognitionConfig{Encoding: "MP3", SampleRateHertz: 16000, LanguageCode: g.language},
			"audio":  map[string]string{"uri": audio.URI},
		}).
		SetResult(&op).
		Post("/v1p1beta1/speech:longrunningrecognize")
	if err != nil {
		return "", fmt.Errorf("提交识别任务失败: %s", redact.Error(err, g.apiKey))
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("提交识别任务返回状态码 %d: %s", resp.StatusCode(), redact.Truncate(redact.Text(resp.String(), g.apiKey), 500))
	}

	ctx, cancel := context.WithTimeout(ctx, g.pollTimeout)
	defer cancel()

	ticker := time.NewTicker(g.pollInterval)
	defer ticker.Stop()

	for !op.Done {
		select {
		case <-ctx.Done():
			return "", ErrRecognitionTimeout
		case <-ticker.C:
		}

		name := op.Name
		op = operation{}
		resp, err := g.client.R().
			SetContext(ctx).
			SetResult(&op).
			Get("/v1p1beta1/operations/" + name)
		if err != nil {
			return "", fmt.Errorf("查询识别任务失败: %s", redact.Error(err, g.apiKey))
		}
		if resp.StatusCode() != http.StatusOK {
			return "", fmt.Errorf("查询识别任务返回状态码 %d: %s", resp.StatusCode(), redact.Truncate(redact.Text(resp.String(), g.apiKey), 500))
		}
		if op.Name == "" {
			op.Name = name
		}
	}

	if op.Error != nil {
		return "", fmt.Errorf("识别失败 (%d): %s", op.Error.Code, op.Error.Message)
	}

	lines := make([]string, 0, len(op.Response.Results))
	for _, r := range op.Response.Results {
		if len(r.Alternatives) > 0 {
			lines = append(lines, r.Alternatives[0].Transcript)
		}
	}
	return strings.Join(lines, "\n"), nil
}
