package logger

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"mtglog/app/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const dateLayout = "2006-01-02"

var levels = map[string]zapcore.Level{
	"debug": zapcore.DebugLevel,
	"info":  zapcore.InfoLevel,
	"warn":  zapcore.WarnLevel,
	"error": zapcore.ErrorLevel,
	"fatal": zapcore.FatalLevel,
}

// Logger 包装 zap.Logger，按天切换日志文件
type Logger struct {
	*zap.Logger
	sugar *zap.SugaredLogger
	rot   *dailyFile
}

// New 使用给定配置创建日志记录器
func New(cfg config.LogConfig) *Logger {
	level, ok := levels[cfg.Level]
	if !ok {
		level = zapcore.InfoLevel
	}
	encoder := newEncoder(cfg.Format == "json", false)

	var core zapcore.Core
	var rot *dailyFile
	if cfg.Output == "file" {
		dir := cfg.Dir
		if dir == "" {
			dir = "data/logs"
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			panic("创建日志目录失败: " + err.Error())
		}
		rot = newDailyFile(dir, cfg)
		core = zapcore.NewCore(encoder, zapcore.AddSync(rot.writer), level)

		// debug 级别同时输出到终端
		if level == zapcore.DebugLevel {
			console := zapcore.NewCore(newEncoder(false, true), zapcore.AddSync(os.Stdout), level)
			core = zapcore.NewTee(core, console)
		}
	} else {
		core = zapcore.NewCore(newEncoder(cfg.Format == "json", cfg.Format != "json"), zapcore.AddSync(os.Stdout), level)
	}

	l := wrap(zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)))
	l.rot = rot
	return l
}

// NewNop 返回不输出任何内容的日志记录器，供测试使用
func NewNop() *Logger {
	return wrap(zap.NewNop())
}

func wrap(z *zap.Logger) *Logger {
	return &Logger{Logger: z, sugar: z.Sugar()}
}

func newEncoder(json, color bool) zapcore.Encoder {
	ec := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05"),
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if json {
		return zapcore.NewJSONEncoder(ec)
	}
	if color {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return zapcore.NewConsoleEncoder(ec)
}

// Named 返回带组件名的日志记录器，共享底层 core
func (l *Logger) Named(name string) *Logger {
	named := wrap(l.Logger.Named(name))
	named.rot = l.rot
	return named
}

// ForTask 返回带 task_id 字段的日志记录器
func (l *Logger) ForTask(taskID string) *Logger {
	return l.WithField("task_id", taskID)
}

// WithField 返回附加了字段的日志记录器
func (l *Logger) WithField(key string, value interface{}) *Logger {
	child := wrap(l.Logger.With(zap.Any(key, value)))
	child.rot = l.rot
	return child
}

// Close 停止日志文件切换并刷新缓冲区
func (l *Logger) Close() error {
	l.rot.stop()
	return l.Logger.Sync()
}

func (l *Logger) Debugf(template string, args ...interface{}) {
	l.sugar.Debugf(template, args...)
}

func (l *Logger) Infof(template string, args ...interface{}) {
	l.sugar.Infof(template, args...)
}

func (l *Logger) Warnf(template string, args ...interface{}) {
	l.sugar.Warnf(template, args...)
}

func (l *Logger) Errorf(template string, args ...interface{}) {
	l.sugar.Errorf(template, args...)
}

func (l *Logger) Fatalf(template string, args ...interface{}) {
	l.sugar.Fatalf(template, args...)
}

// dailyFile 每天零点把 lumberjack 切到新的日期文件
type dailyFile struct {
	dir    string
	writer *lumberjack.Logger
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newDailyFile(dir string, cfg config.LogConfig) *dailyFile {
	ctx, cancel := context.WithCancel(context.Background())
	d := &dailyFile{
		dir: dir,
		writer: &lumberjack.Logger{
			Filename:   fileFor(dir, time.Now()),
			MaxSize:    cfg.MaxSize, // 兆字节
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge, // 天数
			Compress:   cfg.Compress,
		},
		cancel: cancel,
	}
	d.wg.Add(1)
	go d.loop(ctx)
	return d
}

func fileFor(dir string, day time.Time) string {
	return filepath.Join(dir, day.Format(dateLayout)+".log")
}

func (d *dailyFile) loop(ctx context.Context) {
	defer d.wg.Done()
	for {
		now := time.Now()
		next := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())

		select {
		case <-ctx.Done():
			return
		case <-time.After(next.Sub(now) + time.Second):
			d.writer.Filename = fileFor(d.dir, next)
			// 关闭当前文件，下次写入时打开新文件
			_ = d.writer.Close()
		}
	}
}

func (d *dailyFile) stop() {
	if d == nil {
		return
	}
	d.cancel()
	d.wg.Wait()
	_ = d.writer.Close()
}
