package uploader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"mtglog/app/utils/retry"
)

// Mode 传输方式
type Mode string

const (
	ModeStream Mode = "stream" // 源响应体直接作为 PUT 请求体
	ModeBuffer Mode = "buffer" // 整体读入内存后再 PUT，受 MaxBufferBytes 限制
)

var ErrPayloadTooLarge = errors.New("文件超过内存缓冲上限")

// Options 传输选项
type Options struct {
	Mode           Mode
	MaxBufferBytes int64
	OnProgress     func(written, total int64)
}

// Put 把 body 上传到签名 PUT 地址，返回写出的字节数。size 未知时传 -1
func Put(ctx context.Context, client *http.Client, url string, body io.Reader, size int64, contentType string, opts Options) (int64, error) {
	if client == nil {
		client = http.DefaultClient
	}

	var (
		payload io.Reader
		length  = size
	)
	switch opts.Mode {
	case ModeBuffer:
		data, err := readBounded(body, opts.MaxBufferBytes)
		if err != nil {
			return 0, err
		}
		length = int64(len(data))
		payload = bytes.NewReader(data)
	default:
		payload = body
	}

	counter := &progressReader{r: payload, total: length, fn: opts.OnProgress}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, counter)
	if err != nil {
		return 0, retry.Permanent(fmt.Errorf("创建上传请求失败: %w", err))
	}
	if length > 0 {
		req.ContentLength = length
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := client.Do(req)
	if err != nil {
		return counter.n, fmt.Errorf("上传请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return counter.n, &retry.HTTPStatusError{StatusCode: resp.StatusCode, Body: string(msg)}
	}
	return counter.n, nil
}

func readBounded(r io.Reader, max int64) ([]byte, error) {
	if max <= 0 {
		return nil, retry.Permanent(ErrPayloadTooLarge)
	}
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, fmt.Errorf("读取源文件失败: %w", err)
	}
	if int64(len(data)) > max {
		return nil, retry.Permanent(ErrPayloadTooLarge)
	}
	return data, nil
}

type progressReader struct {
	r     io.Reader
	n     int64
	total int64
	fn    func(written, total int64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.n += int64(n)
		if p.fn != nil {
			p.fn(p.n, p.total)
		}
	}
	return n, err
}

// EveryTenPercent 把逐次的字节进度收敛为每跨过 10% 调用一次 fn
func EveryTenPercent(fn func(percent int)) func(written, total int64) {
	last := -1
	return func(written, total int64) {
		if total <= 0 {
			return
		}
		pct := int(written * 100 / total)
		if pct > 100 {
			pct = 100
		}
		step := pct / 10 * 10
		if step > last {
			last = step
			fn(step)
		}
	}
}
