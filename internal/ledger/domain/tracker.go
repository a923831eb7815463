package domain

import (
	"sort"

	"github.com/google/uuid"

	execution "github.com/wyfcoding/equitysim/internal/execution/domain"
)

// ArchivedPosition 已平仓归档记录：持仓归零后从活跃集合移出，按日期留痕
type ArchivedPosition struct {
	SessionID int
	Position  *Position
}

// Tracker 持仓跟踪器。维护活跃持仓集合，转发成交与公司行动，
// 日终同步时归档已归零的持仓。非并发安全，由上层账本串行驱动。
type Tracker struct {
	positions map[string]*Position
	archive   []ArchivedPosition
}

// NewTracker 创建空跟踪器
func NewTracker() *Tracker {
	return &Tracker{positions: make(map[string]*Position)}
}

// Get 返回指定标的的活跃持仓，不存在时返回 nil
func (t *Tracker) Get(sid string) *Position {
	return t.positions[sid]
}

// RecordFill 将一笔成交记入对应持仓。
// 卖出前检查持仓存在性，缺仓视为卖空并拒绝。
func (t *Tracker) RecordFill(txn *execution.Transaction) error {
	pos, ok := t.positions[txn.Sid]
	if !ok {
		if txn.Direction == execution.DirectionSell {
			return ErrUnsupportedOperation
		}
		pos = NewPosition(txn.Sid)
		t.positions[txn.Sid] = pos
	}

	if txn.Direction == execution.DirectionBuy {
		return pos.Buy(txn.Volume, txn.Price)
	}
	return pos.Sell(txn.Volume, txn.Price)
}

// ApplyCorporateAction 应用公司行动，返回应记入现金的红利或零股折算金额。
// 无持仓的标的直接忽略。
func (t *Tracker) ApplyCorporateAction(evt *CorporateActionEvent) float64 {
	pos, ok := t.positions[evt.Sid]
	if !ok {
		return 0
	}

	switch evt.Type {
	case ActionSplit:
		sizeRatio, bonusRatio := evt.Ratios()
		return pos.ApplySplit(sizeRatio, bonusRatio)
	case ActionDividend, ActionRights:
		// 价格序列前复权，分红配股不再做账
		return 0
	default:
		return 0
	}
}

// Synchronize 日终同步：逐仓折算开平计数并刷新收盘价，
// 归零持仓移入归档。closes 缺失的标的沿用上一同步价。
func (t *Tracker) Synchronize(sessionID int, closes map[string]float64) {
	for sid, pos := range t.positions {
		pos.EndOfSession(closes[sid], sessionID)
		if pos.Flat() {
			t.archive = append(t.archive, ArchivedPosition{SessionID: sessionID, Position: pos})
			delete(t.positions, sid)
		}
	}
}

// Active 按标的排序返回活跃持仓快照
func (t *Tracker) Active() []*Position {
	sids := make([]string, 0, len(t.positions))
	for sid := range t.positions {
		sids = append(sids, sid)
	}
	sort.Strings(sids)

	out := make([]*Position, 0, len(sids))
	for _, sid := range sids {
		out = append(out, t.positions[sid].Clone())
	}
	return out
}

// Archived 返回归档持仓记录
func (t *Tracker) Archived() []ArchivedPosition {
	return t.archive
}

// NewEventID 生成公司行动事件标识
func NewEventID() string {
	return uuid.NewString()
}
