// Package mysql 提供账本审计落盘的 MySQL GORM 实现。
package mysql

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	execution "github.com/wyfcoding/equitysim/internal/execution/domain"
	"github.com/wyfcoding/equitysim/internal/ledger/domain"
)

// OrderModel 订单数据库模型
type OrderModel struct {
	gorm.Model
	OrderID   string    `gorm:"column:order_id;type:varchar(64);uniqueIndex;not null"`
	Sid       string    `gorm:"column:sid;type:varchar(16);index;not null"`
	Direction int       `gorm:"column:direction;not null"`
	OrderType string    `gorm:"column:order_type;type:varchar(8);not null"`
	Price     float64   `gorm:"column:price"`
	Amount    float64   `gorm:"column:amount"`
	Volume    float64   `gorm:"column:volume"`
	PlacedAt  time.Time `gorm:"column:placed_at;index;not null"`
}

// TableName 指定表名
func (OrderModel) TableName() string {
	return "ledger_orders"
}

// TransactionModel 成交数据库模型
type TransactionModel struct {
	gorm.Model
	TransactionID string    `gorm:"column:transaction_id;type:varchar(64);uniqueIndex;not null"`
	Sid           string    `gorm:"column:sid;type:varchar(16);index;not null"`
	Direction     int       `gorm:"column:direction;not null"`
	Price         float64   `gorm:"column:price;not null"`
	Volume        float64   `gorm:"column:volume;not null"`
	Cost          float64   `gorm:"column:cost;not null"`
	FilledAt      time.Time `gorm:"column:filled_at;index;not null"`
}

// TableName 指定表名
func (TransactionModel) TableName() string {
	return "ledger_transactions"
}

// SnapshotModel 日终快照模型，账户与度量共用，按类型区分
type SnapshotModel struct {
	gorm.Model
	SessionID int    `gorm:"column:session_id;index:idx_session_kind;not null"`
	Kind      string `gorm:"column:kind;type:varchar(16);index:idx_session_kind;not null"`
	Payload   []byte `gorm:"column:payload;type:json;not null"`
}

// TableName 指定表名
func (SnapshotModel) TableName() string {
	return "ledger_snapshots"
}

// ArchivedPositionModel 清仓归档模型
type ArchivedPositionModel struct {
	gorm.Model
	SessionID int     `gorm:"column:session_id;index;not null"`
	Sid       string  `gorm:"column:sid;type:varchar(16);index;not null"`
	CostBasis float64 `gorm:"column:cost_basis;not null"`
	LastPrice float64 `gorm:"column:last_price;not null"`
}

// TableName 指定表名
func (ArchivedPositionModel) TableName() string {
	return "ledger_archived_positions"
}

const (
	snapshotKindAccount = "account"
	snapshotKindMetrics = "metrics"
)

type ledgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository 创建账本仓储实例
func NewLedgerRepository(db *gorm.DB) domain.LedgerRepository {
	return &ledgerRepository{db: db}
}

// SaveOrder 保存原始订单
func (r *ledgerRepository) SaveOrder(ctx context.Context, order *execution.Order) error {
	model := &OrderModel{
		OrderID:   order.OrderID,
		Sid:       order.Sid,
		Direction: int(order.Direction),
		OrderType: string(order.OrderType),
		Price:     order.Price,
		Amount:    order.Amount,
		Volume:    order.Volume,
		PlacedAt:  order.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}
	return nil
}

// SaveTransaction 保存成交回报
func (r *ledgerRepository) SaveTransaction(ctx context.Context, txn *execution.Transaction) error {
	model := &TransactionModel{
		TransactionID: txn.TransactionID,
		Sid:           txn.Sid,
		Direction:     int(txn.Direction),
		Price:         txn.Price,
		Volume:        txn.Volume,
		Cost:          txn.Cost,
		FilledAt:      txn.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to save transaction: %w", err)
	}
	return nil
}

// SaveAccountSnapshot 保存日终账户快照
func (r *ledgerRepository) SaveAccountSnapshot(ctx context.Context, snapshot *domain.AccountSnapshot) error {
	return r.saveSnapshot(ctx, snapshot.SessionID, snapshotKindAccount, snapshot)
}

// SaveMetricsSnapshot 保存日终度量快照
func (r *ledgerRepository) SaveMetricsSnapshot(ctx context.Context, snapshot *domain.MetricsSnapshot) error {
	return r.saveSnapshot(ctx, snapshot.SessionID, snapshotKindMetrics, snapshot)
}

func (r *ledgerRepository) saveSnapshot(ctx context.Context, sessionID int, kind string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s snapshot: %w", kind, err)
	}
	model := &SnapshotModel{SessionID: sessionID, Kind: kind, Payload: data}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to save %s snapshot: %w", kind, err)
	}
	return nil
}

// ArchivePosition 归档已清仓持仓
func (r *ledgerRepository) ArchivePosition(ctx context.Context, sessionID int, position *domain.Position) error {
	model := &ArchivedPositionModel{
		SessionID: sessionID,
		Sid:       position.Sid,
		CostBasis: position.CostBasis,
		LastPrice: position.LastSyncPrice,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to archive position: %w", err)
	}
	return nil
}
