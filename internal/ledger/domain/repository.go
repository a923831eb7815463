package domain

import (
	"context"

	execution "github.com/wyfcoding/equitysim/internal/execution/domain"
)

// LedgerRepository 账本仓储接口 (写模型)
type LedgerRepository interface {
	// SaveOrder 保存原始订单
	SaveOrder(ctx context.Context, order *execution.Order) error
	// SaveTransaction 保存成交回报
	SaveTransaction(ctx context.Context, txn *execution.Transaction) error
	// SaveAccountSnapshot 保存日终账户快照
	SaveAccountSnapshot(ctx context.Context, snapshot *AccountSnapshot) error
	// SaveMetricsSnapshot 保存日终度量快照
	SaveMetricsSnapshot(ctx context.Context, snapshot *MetricsSnapshot) error
	// ArchivePosition 归档已清仓持仓
	ArchivePosition(ctx context.Context, sessionID int, position *Position) error
}

// EventPublisher 账本事件发布者接口
type EventPublisher interface {
	// PublishFill 发布成交事件
	PublishFill(ctx context.Context, txn *execution.Transaction) error
	// PublishSnapshot 发布日终快照事件
	PublishSnapshot(ctx context.Context, account *AccountSnapshot, metrics *MetricsSnapshot) error
}
