// Package domain 账本领域模型：T+1 持仓、持仓跟踪与组合估值。
package domain

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnsupportedOperation 不支持的持仓操作：反向开仓 / 卖空 / 超出可用量的卖出。
// 该笔成交被整体拒绝，持仓状态保持不变，交由调用方人工对账。
var ErrUnsupportedOperation = errors.New("unsupported position operation")

// Position 单个标的的持仓。
// Size 为已结算持仓，Available 为当日可卖量（T+1 约束下两者分离），
// Opened/Closed 为上次结算以来的累计开平计数，只在日终同步折算进 Size。
// 不变式：Available >= 0；CostBasis 仅在加仓或公司行动时变动，减仓不变。
type Position struct {
	Sid           string
	Size          float64
	Available     float64
	CostBasis     float64
	Opened        float64
	Closed        float64
	LastSyncPrice float64
	LastSyncDate  int
}

// NewPosition 创建空持仓
func NewPosition(sid string) *Position {
	return &Position{Sid: sid}
}

// exposure 当前总敞口：已结算持仓加上未结算的开平净额
func (p *Position) exposure() float64 {
	return p.Size + p.Opened - p.Closed
}

// Buy 买入成交：只累计 Opened，可卖量在日终同步前不变。
// 成本价按总敞口加权平均重算。
func (p *Position) Buy(volume, price float64) error {
	if volume <= 0 || price <= 0 {
		return fmt.Errorf("%w: non-positive fill", ErrUnsupportedOperation)
	}

	total := p.exposure()
	if total <= 0 {
		p.CostBasis = price
	} else {
		p.CostBasis = (p.CostBasis*total + price*volume) / (total + volume)
	}
	p.Opened += volume
	return nil
}

// Sell 卖出成交：只消耗 Available，超出可卖量视为隐性卖空，整笔拒绝。
// 减仓不改变剩余持仓的成本价。
func (p *Position) Sell(volume, price float64) error {
	if volume <= 0 || price <= 0 {
		return fmt.Errorf("%w: non-positive fill", ErrUnsupportedOperation)
	}
	if volume > p.Available {
		return fmt.Errorf("%w: sell %v exceeds available %v for %s",
			ErrUnsupportedOperation, volume, p.Available, p.Sid)
	}

	p.Available -= volume
	p.Closed += volume
	return nil
}

// EndOfSession 日终同步：折算开平计数、恢复可卖量、记录收盘价。
// 这是当日买入变为可卖的唯一时点。
func (p *Position) EndOfSession(closePrice float64, sessionID int) {
	p.Size += p.Opened - p.Closed
	p.Opened = 0
	p.Closed = 0
	p.Available = p.Size
	if closePrice > 0 {
		p.LastSyncPrice = closePrice
	}
	p.LastSyncDate = sessionID
}

// ApplySplit 送转股除权：持仓乘以 sizeRatio，成本价反向缩减，
// 返回按 bonusRatio 折算为现金的零股价值。
func (p *Position) ApplySplit(sizeRatio, bonusRatio float64) float64 {
	if sizeRatio <= 0 {
		sizeRatio = 1
	}

	oldSize := p.Size
	p.Size = oldSize * sizeRatio
	p.Available *= sizeRatio
	p.Opened *= sizeRatio
	p.Closed *= sizeRatio
	if sizeRatio != 1 {
		p.CostBasis = math.Round(p.CostBasis/sizeRatio*100) / 100
	}
	return oldSize * bonusRatio
}

// Flat 持仓是否归零（日终折算后判定，触发归档）
func (p *Position) Flat() bool {
	return p.Size == 0 && p.Opened == 0 && p.Closed == 0
}

// MarketValue 按最近同步价计算市值
func (p *Position) MarketValue() float64 {
	return p.LastSyncPrice * p.Size
}

// PnL 相对成本价的收益率
func (p *Position) PnL() float64 {
	if p.CostBasis == 0 {
		return 0
	}
	return p.LastSyncPrice/p.CostBasis - 1
}

// Clone 返回持仓快照副本
func (p *Position) Clone() *Position {
	cp := *p
	return &cp
}
