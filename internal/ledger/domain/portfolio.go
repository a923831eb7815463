package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Portfolio 组合账户：现金头寸、逐日净值序列与逐日分标的盈亏序列。
// 现金用 decimal 精确记账，估值口径沿用持仓的浮点市值。
type Portfolio struct {
	cash    decimal.Decimal
	initial decimal.Decimal
	values  []SessionValue
	pnl     []SessionPnL
}

// SessionValue 单个交易日的组合净值
type SessionValue struct {
	SessionID int     `json:"session_id"`
	Cash      string  `json:"cash"`
	Holdings  float64 `json:"holdings"`
	Total     float64 `json:"total"`
}

// SessionPnL 单个交易日的分标的盈亏
type SessionPnL struct {
	SessionID int                `json:"session_id"`
	PnL       map[string]float64 `json:"pnl"`
}

// NewPortfolio 以初始资金创建组合
func NewPortfolio(initialBalance decimal.Decimal) *Portfolio {
	return &Portfolio{cash: initialBalance, initial: initialBalance}
}

// Cash 当前现金
func (pf *Portfolio) Cash() decimal.Decimal {
	return pf.cash
}

// Debit 买入扣款：成交额加费用
func (pf *Portfolio) Debit(notional, cost float64) {
	pf.cash = pf.cash.Sub(decimal.NewFromFloat(notional)).Sub(decimal.NewFromFloat(cost))
}

// Credit 卖出回款：成交额减费用
func (pf *Portfolio) Credit(notional, cost float64) {
	pf.cash = pf.cash.Add(decimal.NewFromFloat(notional)).Sub(decimal.NewFromFloat(cost))
}

// CreditCash 公司行动现金入账（红利、零股折算）
func (pf *Portfolio) CreditCash(amount float64) {
	if amount == 0 {
		return
	}
	pf.cash = pf.cash.Add(decimal.NewFromFloat(amount))
}

// CloseSession 日终估值：记录当日净值并返回账户与度量快照
func (pf *Portfolio) CloseSession(sessionID int, positions []*Position) (*AccountSnapshot, *MetricsSnapshot) {
	var holdings float64
	snaps := make([]PositionSnapshot, 0, len(positions))
	for _, pos := range positions {
		mv := pos.MarketValue()
		holdings += mv
		snaps = append(snaps, PositionSnapshot{
			Sid:           pos.Sid,
			Size:          pos.Size,
			Available:     pos.Available,
			Opened:        pos.Opened,
			CostBasis:     pos.CostBasis,
			LastSyncPrice: pos.LastSyncPrice,
			MarketValue:   mv,
			PnL:           pos.PnL(),
		})
	}

	cashF, _ := pf.cash.Float64()
	total := cashF + holdings
	pf.values = append(pf.values, SessionValue{
		SessionID: sessionID,
		Cash:      pf.cash.StringFixed(2),
		Holdings:  holdings,
		Total:     total,
	})

	now := time.Now()
	account := &AccountSnapshot{
		SessionID:  sessionID,
		Cash:       pf.cash.StringFixed(2),
		Positions:  snaps,
		TotalValue: total,
		CreatedAt:  now,
	}

	weights := make(map[string]float64, len(snaps))
	pnl := make(map[string]float64, len(snaps))
	if holdings > 0 {
		for _, s := range snaps {
			weights[s.Sid] = s.MarketValue / holdings
			pnl[s.Sid] = s.PnL
		}
	}
	pf.pnl = append(pf.pnl, SessionPnL{SessionID: sessionID, PnL: pnl})

	var usage float64
	if total > 0 {
		usage = holdings / total
	}
	metrics := &MetricsSnapshot{
		SessionID: sessionID,
		Usage:     usage,
		Weights:   weights,
		PnL:       pnl,
		CreatedAt: now,
	}
	return account, metrics
}

// Values 返回逐日净值序列
func (pf *Portfolio) Values() []SessionValue {
	return pf.values
}

// PnLHistory 返回逐日分标的盈亏序列
func (pf *Portfolio) PnLHistory() []SessionPnL {
	return pf.pnl
}
