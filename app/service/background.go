package service

import (
	"context"
	"sync"
	"time"

	"mtglog/app/logger"
)

// Background 执行不等待结果的后续阶段调用。
// 任务与请求的 context 分离，有独立超时，失败只记日志。
type Background struct {
	log     *logger.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewBackground 创建后台执行器，timeout <= 0 时不设超时
func NewBackground(log *logger.Logger, timeout time.Duration) *Background {
	return &Background{log: log, timeout: timeout}
}

// Go 启动一次后台调用
func (b *Background) Go(name string, fn func(ctx context.Context) error) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				b.log.Errorf("后台任务 %s panic: %v", name, r)
			}
		}()

		ctx := context.Background()
		if b.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, b.timeout)
			defer cancel()
		}

		if err := fn(ctx); err != nil {
			b.log.Warnf("后台任务 %s 失败: %s", name, detail(err))
			return
		}
		b.log.Debugf("后台任务 %s 完成", name)
	}()
}

// Wait 等待所有后台调用结束
func (b *Background) Wait() {
	b.wg.Wait()
}
