package domain

import (
	assetdomain "github.com/wyfcoding/equitysim/internal/asset/domain"
	mktdomain "github.com/wyfcoding/equitysim/internal/marketdata/domain"
)

// RestrictionFilter 判定委托窗口是否可交易。
// 缺少停牌数据时，用日内振幅接近于零作为涨跌停封板或停牌的代理信号。
type RestrictionFilter struct {
	// Epsilon 振幅阈值，默认 0.005
	Epsilon float64
}

// NewRestrictionFilter 创建限制过滤器
func NewRestrictionFilter(epsilon float64) *RestrictionFilter {
	return &RestrictionFilter{Epsilon: epsilon}
}

// Restricted 返回 true 表示窗口不可交易：已退市，或振幅 (maxHigh-minLow)/minLow <= epsilon
func (f *RestrictionFilter) Restricted(bars []mktdomain.Bar, asset *assetdomain.Asset, dt int) bool {
	if asset != nil && asset.Delisted(dt) {
		return true
	}
	if len(bars) == 0 {
		return true
	}

	low := bars[0].Low
	high := bars[0].High
	for _, bar := range bars[1:] {
		if bar.Low < low {
			low = bar.Low
		}
		if bar.High > high {
			high = bar.High
		}
	}

	if low <= 0 {
		return true
	}
	return (high-low)/low <= f.Epsilon
}
