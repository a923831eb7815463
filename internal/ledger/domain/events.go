package domain

import "time"

// CorporateActionType 公司行动类型
type CorporateActionType string

const (
	// ActionSplit 送转股
	ActionSplit CorporateActionType = "split"
	// ActionDividend 现金分红（当前回溯价序列已前复权，账本侧不做现金调整）
	ActionDividend CorporateActionType = "dividend"
	// ActionRights 配股（未实现，忽略）
	ActionRights CorporateActionType = "rights"
)

// CorporateActionEvent 公司行动事件。
// SidBonus/SidTransfer/Bonus 均为每 10 股的送股 / 转增 / 派现数，
// 与交易所公告口径一致。
type CorporateActionEvent struct {
	EventID     string              `json:"event_id"`
	Sid         string              `json:"sid"`
	Type        CorporateActionType `json:"type"`
	SidBonus    float64             `json:"sid_bonus"`
	SidTransfer float64             `json:"sid_transfer"`
	Bonus       float64             `json:"bonus"`
	ExDate      int                 `json:"ex_date"`
}

// Ratios 折算为每股比例：持仓放大倍数与每股现金红利
func (e *CorporateActionEvent) Ratios() (sizeRatio, bonusRatio float64) {
	return 1 + (e.SidBonus+e.SidTransfer)/10, e.Bonus / 10
}

// PositionSnapshot 单标的持仓快照，随账户快照一起落盘与发布
type PositionSnapshot struct {
	Sid           string  `json:"sid"`
	Size          float64 `json:"size"`
	Available     float64 `json:"available"`
	Opened        float64 `json:"opened"`
	CostBasis     float64 `json:"cost_basis"`
	LastSyncPrice float64 `json:"last_sync_price"`
	MarketValue   float64 `json:"market_value"`
	PnL           float64 `json:"pnl"`
}

// AccountSnapshot 日终账户快照
type AccountSnapshot struct {
	SessionID  int                `json:"session_id"`
	Cash       string             `json:"cash"`
	Positions  []PositionSnapshot `json:"positions"`
	TotalValue float64            `json:"total_value"`
	CreatedAt  time.Time          `json:"created_at"`
}

// MetricsSnapshot 日终组合度量快照
type MetricsSnapshot struct {
	SessionID int                `json:"session_id"`
	Usage     float64            `json:"usage"`
	Weights   map[string]float64 `json:"weights"`
	PnL       map[string]float64 `json:"pnl"`
	CreatedAt time.Time          `json:"created_at"`
}
