// Package domain 资产目录领域模型：标的代码映射到板块规则（手数、涨跌幅、退市状态）。
package domain

import (
	"context"
	"errors"
	"strings"
)

// ErrAssetNotFound 标的不存在
var ErrAssetNotFound = errors.New("asset not found")

// Board 市场板块，由标的代码前缀推断
type Board string

const (
	BoardSTAR         Board = "STAR"     // 科创板，688 开头
	BoardChiNext      Board = "CHINEXT"  // 创业板，3 开头
	BoardShanghaiMain Board = "SH_MAIN"  // 上海主板，6 开头
	BoardShenzhenMain Board = "SZ_MAIN"  // 深圳主板及其他
)

// 创业板涨跌幅改革日：2020-08-24 起 20%
const chiNextReformDate = 20200824

// Asset 标的资产，日期使用 YYYYMMDD 整数，delist 为 0 表示未退市
type Asset struct {
	Sid          string
	FirstTrading int
	Delist       int
}

// Board 按前缀识别板块
func (a *Asset) Board() Board {
	switch {
	case strings.HasPrefix(a.Sid, "688"):
		return BoardSTAR
	case strings.HasPrefix(a.Sid, "3"):
		return BoardChiNext
	case strings.HasPrefix(a.Sid, "6"):
		return BoardShanghaiMain
	default:
		return BoardShenzhenMain
	}
}

// LotSize 申报单位：科创板最小 200 股，其余 100 股
func (a *Asset) LotSize() int {
	if a.Board() == BoardSTAR {
		return 200
	}
	return 100
}

// PriceLimit 涨跌幅限制：科创板 20%；创业板 2020-08-24 起 20%，之前 10%；主板 10%
func (a *Asset) PriceLimit(dt int) float64 {
	switch a.Board() {
	case BoardSTAR:
		return 0.2
	case BoardChiNext:
		if dt >= chiNextReformDate {
			return 0.2
		}
		return 0.1
	default:
		return 0.1
	}
}

// Delisted 判断给定交易日是否已退市
func (a *Asset) Delisted(dt int) bool {
	return a.Delist != 0 && a.Delist <= dt
}

// ShanghaiListed 上海交易所上市（过户费仅沪市收取）
func (a *Asset) ShanghaiListed() bool {
	return strings.HasPrefix(a.Sid, "6")
}

// Directory 资产目录，按标的代码解析板块与退市信息
type Directory interface {
	Get(ctx context.Context, sid string) (*Asset, error)
}
