package llmhelper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"mtglog/app/config"
	"mtglog/app/utils/redact"
	"mtglog/app/utils/retry"

	"resty.dev/v3"
)

var ErrEmptyCompletion = errors.New("模型没有返回文本")

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// GeminiClient generateContent 接口客户端
type GeminiClient struct {
	apiKey string
	model  string
	client *resty.Client
	policy retry.Policy
}

// NewGemini 创建客户端
func NewGemini(cfg config.GeminiConfig) *GeminiClient {
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(cfg.BaseURL, "/"))
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	} else {
		client.SetTimeout(2 * time.Minute)
	}
	return &GeminiClient{
		apiKey: cfg.APIKey,
		model:  cfg.Model,
		client: client,
	}
}

// WithRetry 设置重试策略。生成请求没有副作用，5xx、429 和网络错误可以安全重试
func (g *GeminiClient) WithRetry(p retry.Policy) *GeminiClient {
	g.policy = p
	return g
}

// Close 释放连接
func (g *GeminiClient) Close() error {
	return g.client.Close()
}

// Generate 发送单轮提示词并返回拼接后的文本
func (g *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	var text string
	err := g.policy.Do(ctx, func(ctx context.Context) error {
		out, err := g.generate(ctx, prompt)
		if err != nil {
			return err
		}
		text = out
		return nil
	}, nil)
	return text, err
}

func (g *GeminiClient) generate(ctx context.Context, prompt string) (string, error) {
	var result generateResponse

	resp, err := g.client.R().
		SetContext(ctx).
		SetQueryParam("key", g.apiKey).
		SetBody(generateRequest{Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}}}).
		SetResult(&result).
		Post(fmt.Sprintf("/v1beta/models/%s:generateContent", g.model))
	if err != nil {
		return "", fmt.Errorf("请求生成模型失败: %s", redact.Error(err, g.apiKey))
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("生成模型失败: %w", &retry.HTTPStatusError{
			StatusCode: resp.StatusCode(),
			Body:       redact.Truncate(redact.Text(resp.String(), g.apiKey), 500),
		})
	}

	if result.PromptFeedback.BlockReason != "" {
		return "", retry.Permanent(fmt.Errorf("提示词被拒绝: %s", result.PromptFeedback.BlockReason))
	}
	if len(result.Candidates) == 0 {
		return "", retry.Permanent(ErrEmptyCompletion)
	}

	var b strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", retry.Permanent(ErrEmptyCompletion)
	}
	return b.String(), nil
}
