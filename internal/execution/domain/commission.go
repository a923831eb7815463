package domain

import (
	"fmt"
	"time"

	assetdomain "github.com/wyfcoding/equitysim/internal/asset/domain"
)

// 交易所费率常量
const (
	// 印花税 1‰，仅卖出收取
	stampRate = 1e-3
	// 过户费 0.02‰，仅沪市收取
	transferRate = 2e-5
	// 佣金基准：2015-06-09 前 1‰，之后万分之一
	benchmarkOld = 1e-3
	benchmarkNew = 1e-4
)

// 佣金基准切换日
var benchmarkSwitch = time.Date(2015, 6, 9, 0, 0, 0, 0, time.UTC)

// Commission 佣金模型：返回作用在成交金额上的费率
type Commission interface {
	Name() string
	Rate(direction Direction, asset *assetdomain.Asset, tradeDate time.Time) float64
}

// CommissionFactory 按名称构造佣金模型
type CommissionFactory func(multiplier float64) Commission

var commissionFactory = map[string]CommissionFactory{
	"exchange": func(multiplier float64) Commission { return &ExchangeCommission{Multiplier: multiplier} },
	"none":     func(multiplier float64) Commission { return &NoCommission{} },
}

// NewCommission 按注册名创建佣金模型
func NewCommission(name string, multiplier float64) (Commission, error) {
	factory, ok := commissionFactory[name]
	if !ok {
		return nil, fmt.Errorf("unknown commission scheme: %q", name)
	}
	return factory(multiplier), nil
}

// ExchangeCommission A 股交易所费率：印花税 + 过户费 + 券商佣金
type ExchangeCommission struct {
	Multiplier float64
}

func (c *ExchangeCommission) Name() string { return "exchange" }

// Rate 计算总费率
func (c *ExchangeCommission) Rate(direction Direction, asset *assetdomain.Asset, tradeDate time.Time) float64 {
	var stamp float64
	if direction == DirectionSell {
		stamp = stampRate
	}

	var transfer float64
	if asset != nil && asset.ShanghaiListed() {
		transfer = transferRate
	}

	benchmark := benchmarkNew
	if tradeDate.Before(benchmarkSwitch) {
		benchmark = benchmarkOld
	}

	return stamp + transfer + benchmark*c.Multiplier
}

// NoCommission 零费率变体
type NoCommission struct{}

func (c *NoCommission) Name() string { return "none" }

func (c *NoCommission) Rate(Direction, *assetdomain.Asset, time.Time) float64 {
	return 0
}
