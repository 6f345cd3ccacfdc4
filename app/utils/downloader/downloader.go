package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"mtglog/app/utils/redact"
)

// Config 下载配置
type Config struct {
	Timeout  time.Duration // 超时时间
	UseTemp  bool          // 是否先写入 .tmp 再重命名
	MaxBytes int64         // 大于 0 时限制下载大小
}

// DefaultConfig 默认下载配置
func DefaultConfig() *Config {
	return &Config{
		Timeout: time.Hour,
		UseTemp: true,
	}
}

// Result 下载结果
type Result struct {
	Size     int64         // 下载的文件大小
	Duration time.Duration // 下载耗时
	Path     string        // 保存的文件路径
}

// Download 把签名地址指向的文件保存到 savePath。错误信息中不会包含 URL 的查询串
func Download(ctx context.Context, url, savePath string, cfg *Config) (*Result, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("创建下载请求失败: %s", redact.URL(url))
	}
	// 禁用压缩，避免 Content-Length 不匹配
	req.Header.Set("Accept-Encoding", "identity")

	client := &http.Client{Timeout: cfg.Timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("下载 %s 失败: %s", redact.URL(url), redact.Error(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("下载失败，状态码: %d, 响应: %s", resp.StatusCode, redact.Truncate(string(body), 200))
	}
	contentLength := resp.ContentLength
	if cfg.MaxBytes > 0 && contentLength > cfg.MaxBytes {
		return nil, fmt.Errorf("文件过大: %d bytes", contentLength)
	}

	if err := os.MkdirAll(filepath.Dir(savePath), 0755); err != nil {
		return nil, fmt.Errorf("创建保存目录失败: %w", err)
	}

	targetPath := savePath
	if cfg.UseTemp {
		targetPath = savePath + ".tmp"
	}

	file, err := os.Create(targetPath)
	if err != nil {
		return nil, fmt.Errorf("创建文件失败: %w", err)
	}
	ok := false
	defer func() {
		file.Close()
		if !ok {
			os.Remove(targetPath)
		}
	}()

	startTime := time.Now()

	var src io.Reader = resp.Body
	if cfg.MaxBytes > 0 {
		src = io.LimitReader(resp.Body, cfg.MaxBytes+1)
	}
	written, err := io.Copy(file, src)
	if err != nil {
		return nil, fmt.Errorf("写入文件内容失败: %s", redact.Error(err))
	}
	if cfg.MaxBytes > 0 && written > cfg.MaxBytes {
		return nil, fmt.Errorf("文件过大: 超过 %d bytes", cfg.MaxBytes)
	}
	if contentLength > 0 && written != contentLength {
		return nil, fmt.Errorf("下载不完整: 期望 %d bytes, 实际 %d bytes", contentLength, written)
	}

	if err := file.Sync(); err != nil {
		return nil, fmt.Errorf("刷新文件到磁盘失败: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("关闭文件失败: %w", err)
	}

	if cfg.UseTemp {
		if err := os.Rename(targetPath, savePath); err != nil {
			return nil, fmt.Errorf("重命名文件失败: %w", err)
		}
	}
	ok = true

	return &Result{
		Size:     written,
		Duration: time.Since(startTime),
		Path:     savePath,
	}, nil
}
