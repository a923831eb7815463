// Package domain 行情领域模型：分钟线序列及其提供方接口。
package domain

import (
	"context"
	"errors"
	"time"
)

// ErrDataGap 行情窗口无法覆盖执行区间
var ErrDataGap = errors.New("market data gap: bar window incomplete")

// Bar 一根分钟 K 线
type Bar struct {
	Sid       string
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Timestamp time.Time
}

// Provider 行情提供方：返回按时间戳单调递增、会话对齐的分钟线序列。
// 实现必须遵守 ctx 截止时间，无法在限期内凑齐窗口时返回 ErrDataGap 而不是阻塞。
type Provider interface {
	Bars(ctx context.Context, sid string, from, to time.Time) ([]Bar, error)
}

// Monotonic 校验时间戳严格递增
func Monotonic(bars []Bar) bool {
	for i := 1; i < len(bars); i++ {
		if !bars[i].Timestamp.After(bars[i-1].Timestamp) {
			return false
		}
	}
	return true
}
