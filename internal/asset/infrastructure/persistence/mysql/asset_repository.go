// Package mysql 提供资产目录的 MySQL GORM 实现。
package mysql

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/wyfcoding/equitysim/internal/asset/domain"
	"github.com/wyfcoding/equitysim/pkg/logger"
)

// AssetModel 资产数据库模型
type AssetModel struct {
	gorm.Model
	Sid          string `gorm:"column:sid;type:varchar(16);uniqueIndex;not null"`
	FirstTrading int    `gorm:"column:first_trading;not null"`
	Delist       int    `gorm:"column:delist;not null;default:0"`
}

// TableName 指定表名
func (AssetModel) TableName() string {
	return "assets"
}

type assetRepository struct {
	db *gorm.DB
}

// NewAssetRepository 创建资产目录仓储实例
func NewAssetRepository(db *gorm.DB) domain.Directory {
	return &assetRepository{db: db}
}

// Get 按标的代码查询资产
func (r *assetRepository) Get(ctx context.Context, sid string) (*domain.Asset, error) {
	var model AssetModel
	if err := r.db.WithContext(ctx).Where("sid = ?", sid).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAssetNotFound
		}
		logger.Error(ctx, "asset_repository.Get failed", "sid", sid, "error", err)
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}

	return &domain.Asset{
		Sid:          model.Sid,
		FirstTrading: model.FirstTrading,
		Delist:       model.Delist,
	}, nil
}
