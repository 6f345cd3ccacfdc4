package pipelinehelper

import (
	"context"
	"fmt"
	"time"

	"mtglog/app/utils/redact"
	"mtglog/app/utils/retry"

	"resty.dev/v3"
)

// Client 携带共享密钥调用其他阶段
type Client struct {
	secret string
	client *resty.Client
}

// New 创建阶段调用客户端
func New(secret string, timeout time.Duration) *Client {
	client := resty.New()
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	client.SetHeader("Content-Type", "application/json")
	if secret != "" {
		client.SetHeader("Authorization", "Bearer "+secret)
	}
	return &Client{secret: secret, client: client}
}

// Close 释放连接
func (c *Client) Close() error {
	return c.client.Close()
}

// Post 发送 JSON。非 2xx 返回 *retry.HTTPStatusError，out 可为 nil
func (c *Client) Post(ctx context.Context, url string, body, out any) error {
	if url == "" {
		return fmt.Errorf("目标地址未配置")
	}

	req := c.client.R().SetContext(ctx).SetBody(body)
	if out != nil {
		req.SetResult(out)
	}
	resp, err := req.Post(url)
	if err != nil {
		return fmt.Errorf("请求 %s 失败: %s", redact.URL(url), redact.Error(err, c.secret))
	}
	if !resp.IsSuccess() {
		return &retry.HTTPStatusError{StatusCode: resp.StatusCode(), Body: redact.Truncate(redact.Text(resp.String(), c.secret), 500)}
	}
	return nil
}
