package notionhelper

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

// MaxTextRunes Notion rich_text 单段上限
const MaxTextRunes = 2000

// Property Notion 页面属性，值直接按 API 结构序列化
type Property map[string]any

// Page 创建页面所需的属性与正文
type Page struct {
	Properties map[string]Property
	Paragraph  string
}

// Client Notion API 客户端
type Client struct {
	client *resty.Client
}

// New 创建客户端
func New(cfg config.NotionConfig) *Client {
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(cfg.BaseURL, "/"))
	client.SetTimeout(30 * time.Second)
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Notion-Version", cfg.Version)
	return &Client{client: client}
}

// Close 释放连接
func (c *Client) Close() error {
	return c.client.Close()
}

// CreatePage 在数据库中创建页面并返回页面 id。创建不是幂等的，失败不重试
func (c *Client) CreatePage(ctx context.Context, databaseID string, page Page) (string, error) {
	body := map[string]any{
		"parent":     map[string]string{"database_id": databaseID},
		"properties": page.Properties,
		"children": []any{
			map[string]any{
				"object":    "block",
				"type":      "paragraph",
				"paragraph": map[string]any{"rich_text": richText(page.Paragraph)},
			},
		},
	}

	var result struct {
		ID string `json:"id"`
	}
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		Post("/v1/pages")
	if err != nil {
		return "", fmt.Errorf("请求 Notion 失败: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("创建 Notion 页面失败，状态码: %d, 响应: %s", resp.StatusCode(), redact.Truncate(resp.String(), 500))
	}
	if result.ID == "" {
		return "", fmt.Errorf("Notion 响应中没有页面 id")
	}
	return result.ID, nil
}

func richText(s string) []any {
	return []any{map[string]any{
		"type": "text",
		"text": map[string]string{"content": redact.Truncate(s, MaxTextRunes)},
	}}
}

// Title 标题属性
func Title(s string) Property {
	return Property{"title": richText(s)}
}

// RichText 文本属性
func RichText(s string) Property {
	return Property{"rich_text": richText(s)}
}

// Status 状态属性
func Status(name string) Property {
	return Property{"status": map[string]string{"name": name}}
}

// Number 数字属性，nil 时写入空值
func Number(n *int) Property {
	if n == nil {
		return Property{"number": nil}
	}
	return Property{"number": *n}
}
