package slackhelper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"mtglog/app/utils/retry"

	"resty.dev/v3"
)

const DefaultBaseURL = "https://slack.com/api"

// File files.info 返回的文件信息
type File struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Mimetype           string `json:"mimetype"`
	Filetype           string `json:"filetype"`
	Size               int64  `json:"size"`
	URLPrivateDownload string `json:"url_private_download"`
}

type fileInfoResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	File  File   `json:"file"`
}

// Client Slack Web API 客户端
type Client struct {
	token  string
	client *resty.Client
	http   *http.Client
}

// New 创建客户端，baseURL 为空时使用官方地址
func New(token, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(15 * time.Second)
	client.SetHeader("Authorization", "Bearer "+token)

	return &Client{
		token:  token,
		client: client,
		http:   &http.Client{},
	}
}

// Close 释放连接
func (c *Client) Close() error {
	return c.client.Close()
}

// FileInfo 查询文件的下载地址
func (c *Client) FileInfo(ctx context.Context, fileID string) (*File, error) {
	var result fileInfoResponse

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("file", fileID).
		SetResult(&result).
		Get("/files.info")
	if err != nil {
		return nil, fmt.Errorf("请求 files.info 失败: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &retry.HTTPStatusError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	// Slack 用 200 + ok=false 表示业务错误，不应重试
	if !result.OK {
		return nil, retry.Permanent(fmt.Errorf("files.info 返回错误: %s", result.Error))
	}
	if result.File.URLPrivateDownload == "" {
		return nil, retry.Permanent(fmt.Errorf("文件 %s 没有下载地址", fileID))
	}
	return &result.File, nil
}

// Open 以流的方式打开私有下载地址，调用方负责关闭 body
func (c *Client) Open(ctx context.Context, url string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, retry.Permanent(fmt.Errorf("创建下载请求失败: %w", err))
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept-Encoding", "identity")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("下载请求失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		resp.Body.Close()
		return nil, 0, &retry.HTTPStatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return resp.Body, resp.ContentLength, nil
}
