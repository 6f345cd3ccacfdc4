package audiohelper

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Runner 执行外部命令，测试时可替换
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.Bytes(), err
}

// Extractor 用 ffmpeg 从视频中抽取单声道 16kHz 64k MP3
type Extractor struct {
	binary string
	run    Runner
}

// New 创建抽取器，binary 为空时使用 PATH 中的 ffmpeg
func New(binary string) *Extractor {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Extractor{binary: binary, run: execRunner}
}

// WithRunner 替换命令执行方式
func (e *Extractor) WithRunner(r Runner) *Extractor {
	e.run = r
	return e
}

// Args 返回 ffmpeg 命令行参数
func Args(input, output string) []string {
	return ffmpeg.Input(input).
		Output(output, ffmpeg.KwArgs{
			"vn":     "",
			"acodec": "libmp3lame",
			"ar":     16000,
			"ac":     1,
			"b:a":    "64k",
		}).
		OverWriteOutput().
		GetArgs()
}

// Extract 把 input 转成 output 指定的 mp3
func (e *Extractor) Extract(ctx context.Context, input, output string) error {
	stderr, err := e.run(ctx, e.binary, Args(input, output)...)
	if err != nil {
		return fmt.Errorf("ffmpeg 执行失败: %w: %s", err, tail(string(stderr), 500))
	}
	return nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
