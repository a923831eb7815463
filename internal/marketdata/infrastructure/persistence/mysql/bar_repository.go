// Package mysql 提供行情提供方接口的 MySQL GORM 实现。
package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/wyfcoding/equitysim/internal/marketdata/domain"
	"github.com/wyfcoding/equitysim/pkg/logger"
)

// BarModel 分钟线数据库模型
type BarModel struct {
	ID        uint      `gorm:"primaryKey"`
	Sid       string    `gorm:"column:sid;type:varchar(16);index:idx_sid_ts,priority:1;not null"`
	Open      float64   `gorm:"column:open;type:decimal(20,4);not null"`
	High      float64   `gorm:"column:high;type:decimal(20,4);not null"`
	Low       float64   `gorm:"column:low;type:decimal(20,4);not null"`
	Close     float64   `gorm:"column:close;type:decimal(20,4);not null"`
	Volume    float64   `gorm:"column:volume;type:decimal(20,2);not null"`
	Timestamp time.Time `gorm:"column:ts;index:idx_sid_ts,priority:2;not null"`
}

// TableName 指定表名
func (BarModel) TableName() string {
	return "minute_bars"
}

type barRepository struct {
	db *gorm.DB
}

// NewBarRepository 创建行情仓储实例
func NewBarRepository(db *gorm.DB) domain.Provider {
	return &barRepository{db: db}
}

// Bars 查询分钟线窗口，窗口为空或时间戳乱序时返回 ErrDataGap
func (r *barRepository) Bars(ctx context.Context, sid string, from, to time.Time) ([]domain.Bar, error) {
	var models []BarModel
	err := r.db.WithContext(ctx).
		Where("sid = ? AND ts >= ? AND ts <= ?", sid, from, to).
		Order("ts asc").
		Find(&models).Error
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, domain.ErrDataGap
		}
		logger.Error(ctx, "bar_repository.Bars failed", "sid", sid, "error", err)
		return nil, fmt.Errorf("failed to load bars: %w", err)
	}

	if len(models) == 0 {
		return nil, domain.ErrDataGap
	}

	bars := make([]domain.Bar, len(models))
	for i, m := range models {
		bars[i] = domain.Bar{
			Sid:       m.Sid,
			Open:      m.Open,
			High:      m.High,
			Low:       m.Low,
			Close:     m.Close,
			Volume:    m.Volume,
			Timestamp: m.Timestamp,
		}
	}

	if !domain.Monotonic(bars) {
		return nil, domain.ErrDataGap
	}
	return bars, nil
}
