package domain

import (
	"math"
	"time"

	"github.com/google/uuid"

	assetdomain "github.com/wyfcoding/equitysim/internal/asset/domain"
	mktdomain "github.com/wyfcoding/equitysim/internal/marketdata/domain"
)

// NoFillReason 未成交原因，成交时为空
type NoFillReason string

const (
	ReasonRestricted NoFillReason = "restricted"  // 窗口封板或已退市
	ReasonNoCross    NoFillReason = "no_cross"    // 价格优先委托未触及限价
	ReasonDataGap    NoFillReason = "data_gap"    // 合成路径不足以覆盖锚点
	ReasonZeroPrice  NoFillReason = "zero_price"  // 采样价格非正
	ReasonLiquidity  NoFillReason = "liquidity"   // 冲击上限或预算截断后成交量为零
)

// Config 撮合参数
type Config struct {
	// Delay 成交延迟（tick 数）
	Delay int
	// ImpactFactor 市场冲击上限：成交量占合成 tick 量的比例
	ImpactFactor float64
	// SlippageFactor 滑点乘数
	SlippageFactor float64
	// Epsilon 振幅阈值
	Epsilon float64
	// TickGranularity tick 颗粒度（秒）
	TickGranularity int
	// SamplesPerBar 每根分钟线的采样数
	SamplesPerBar int
}

// DefaultConfig 与交易所默认参数一致的配置
func DefaultConfig() Config {
	return Config{
		Delay:           2,
		ImpactFactor:    0.2,
		SlippageFactor:  0.01,
		Epsilon:         0.005,
		TickGranularity: 3,
		SamplesPerBar:   20,
	}
}

// Engine 执行模拟引擎。(order, bars) 的纯函数，不持有可变状态，
// 可以对相互独立的委托并行调用。
type Engine struct {
	cfg        Config
	synth      *Synthesizer
	filter     *RestrictionFilter
	commission Commission
}

// NewEngine 组装引擎
func NewEngine(cfg Config, dist Distribution, commission Commission) *Engine {
	return &Engine{
		cfg:        cfg,
		synth:      NewSynthesizer(dist, cfg.SamplesPerBar),
		filter:     NewRestrictionFilter(cfg.Epsilon),
		commission: commission,
	}
}

// Execute 对一笔委托在给定行情窗口内模拟撮合，至多产生一笔成交。
// 未成交返回 (nil, reason, nil)；只有订单本身非法才返回 error。
func (e *Engine) Execute(order *Order, asset *assetdomain.Asset, bars []mktdomain.Bar) (*Transaction, NoFillReason, error) {
	if err := order.Validate(); err != nil {
		return nil, "", err
	}

	dt := yyyymmdd(order.CreatedAt)
	if e.filter.Restricted(bars, asset, dt) {
		return nil, ReasonRestricted, nil
	}

	prices, vols := e.synth.Path(bars)

	anchor, reason := e.anchor(order, bars, prices)
	if reason != "" {
		return nil, reason, nil
	}

	idx := anchor + e.cfg.Delay
	if idx >= len(prices) {
		return nil, ReasonDataGap, nil
	}

	fillPrice := prices[idx] * (1 + e.cfg.SlippageFactor)
	if fillPrice <= 0 {
		return nil, ReasonZeroPrice, nil
	}

	desired := e.desiredVolume(order, asset, fillPrice)
	tolerated := vols[idx] * e.cfg.ImpactFactor
	filled := math.Min(desired, tolerated)
	if filled <= 0 {
		return nil, ReasonLiquidity, nil
	}

	rate := e.commission.Rate(order.Direction, asset, order.CreatedAt)
	cost := rate * filled * fillPrice

	txn := &Transaction{
		TransactionID: uuid.NewString(),
		Sid:           order.Sid,
		Direction:     order.Direction,
		Price:         fillPrice,
		Volume:        filled,
		Cost:          cost,
		CreatedAt:     order.CreatedAt.Add(time.Duration(e.cfg.Delay*e.cfg.TickGranularity) * time.Second),
	}
	return txn, "", nil
}

// anchor 定位撮合锚点在合成路径上的下标
func (e *Engine) anchor(order *Order, bars []mktdomain.Bar, prices []float64) (int, NoFillReason) {
	if order.OrderType == OrderTypeTime {
		elapsed := order.CreatedAt.Sub(bars[0].Timestamp).Seconds()
		if elapsed < 0 {
			elapsed = 0
		}
		pos := int(math.Ceil(elapsed / float64(e.cfg.TickGranularity)))
		if pos >= len(prices) {
			return 0, ReasonDataGap
		}
		return pos, ""
	}

	// 价格优先：买单找首个 <= 限价的 tick，卖单找首个 >= 限价的 tick
	for i, p := range prices {
		if order.Direction == DirectionBuy && p <= order.Price {
			return i, ""
		}
		if order.Direction == DirectionSell && p >= order.Price {
			return i, ""
		}
	}
	return 0, ReasonNoCross
}

// desiredVolume 目标成交量：买单由预算推导并向下取整到申报单位，卖单为委托数量
func (e *Engine) desiredVolume(order *Order, asset *assetdomain.Asset, fillPrice float64) float64 {
	if order.Direction == DirectionSell {
		return order.Volume
	}

	lot := 100
	if asset != nil {
		lot = asset.LotSize()
	}
	perLot := fillPrice * float64(lot)
	if perLot <= 0 || perLot > order.Amount {
		return 0
	}
	lots := math.Floor(order.Amount / perLot)
	return lots * float64(lot)
}

// yyyymmdd 转为整数交易日
func yyyymmdd(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}
