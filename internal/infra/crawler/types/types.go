package types

import (
	"context"
	"math/rand/v2"
	"time"
)

// Pacing 页面操作之间的等待时间
// 与原先的 standard_sleep + random_delay 一样, 实际等待为 基础时间 + 随机抖动
type Pacing struct {
	StandardSleep     time.Duration
	RandomDelay       time.Duration
	Settle            time.Duration
	PageSettle        time.Duration
	InitialLoad       time.Duration
	DetailTimeout     time.Duration
	NextButtonTimeout time.Duration
	ControlTimeout    time.Duration
}

// Jitter 返回 StandardSleep + [0, RandomDelay) 的随机时长
func (p Pacing) Jitter() time.Duration {
	if p.RandomDelay <= 0 {
		return p.StandardSleep
	}
	return p.StandardSleep + time.Duration(rand.Int64N(int64(p.RandomDelay)))
}

// Pause 等待 d, ctx 结束时提前返回
func Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
