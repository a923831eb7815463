package domain

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	assetdomain "github.com/wyfcoding/equitysim/internal/asset/domain"
	mktdomain "github.com/wyfcoding/equitysim/internal/marketdata/domain"
)

var windowStart = time.Date(2024, 3, 15, 9, 31, 0, 0, time.UTC)

// tradableBars 单根分钟线：open 10.0, high 10.5, low 9.5, close 10.2, vol 60000
func tradableBars() []mktdomain.Bar {
	return []mktdomain.Bar{{
		Sid:       "600519",
		Open:      10.0,
		High:      10.5,
		Low:       9.5,
		Close:     10.2,
		Volume:    60000,
		Timestamp: windowStart,
	}}
}

func newTestEngine(t *testing.T, scheme string) *Engine {
	t.Helper()
	commission, err := NewCommission(scheme, 5)
	require.NoError(t, err)
	return NewEngine(DefaultConfig(), &Linear{}, commission)
}

func TestExecuteRestrictedWindowUnfilled(t *testing.T) {
	engine := newTestEngine(t, "none")
	asset := &assetdomain.Asset{Sid: "600519"}

	locked := []mktdomain.Bar{{
		Sid: "600519", Open: 10.0, High: 10.02, Low: 10.0, Close: 10.01,
		Volume: 60000, Timestamp: windowStart,
	}}

	order := NewOrder("600519", DirectionBuy, OrderTypeTime, 0, 100000, 0, windowStart)
	txn, reason, err := engine.Execute(order, asset, locked)
	require.NoError(t, err)
	assert.Nil(t, txn)
	assert.Equal(t, ReasonRestricted, reason)
}

func TestExecuteTimePriorityBuy(t *testing.T) {
	engine := newTestEngine(t, "none")
	asset := &assetdomain.Asset{Sid: "600519"}

	order := NewOrder("600519", DirectionBuy, OrderTypeTime, 0, 100000, 0, windowStart)
	txn, reason, err := engine.Execute(order, asset, tradableBars())
	require.NoError(t, err)
	require.NotNil(t, txn, "reason=%s", reason)

	// 线性分布下锚点 0 + 延迟 2：tick 价 9.5+0.15 = 9.65，滑点 1%
	assert.InDelta(t, 9.65*1.01, txn.Price, 1e-9)

	// 冲击上限：tick 量 60000*0.15/10.5，系数 0.2
	tolerated := 60000 * 0.15 / 10.5 * 0.2
	assert.LessOrEqual(t, txn.Volume, tolerated+1e-9)
	assert.Positive(t, txn.Volume)

	// 零费率方案成本为零
	assert.Zero(t, txn.Cost)

	// 成交时间 = 下单时间 + 延迟 tick 数 × 颗粒度
	assert.Equal(t, windowStart.Add(6*time.Second), txn.CreatedAt)
}

func TestExecuteSellCommissionOnCostLine(t *testing.T) {
	engine := newTestEngine(t, "exchange")
	asset := &assetdomain.Asset{Sid: "600519"}

	order := NewOrder("600519", DirectionSell, OrderTypeTime, 0, 0, 100, windowStart)
	txn, reason, err := engine.Execute(order, asset, tradableBars())
	require.NoError(t, err)
	require.NotNil(t, txn, "reason=%s", reason)

	// 佣金只进成本行，价格仅含滑点
	assert.InDelta(t, 9.65*1.01, txn.Price, 1e-9)
	rate := 1e-3 + 2e-5 + 1e-4*5
	assert.InDelta(t, rate*txn.Volume*txn.Price, txn.Cost, 1e-9)
	assert.Positive(t, txn.Cost)
}

func TestExecutePricePriorityNoCross(t *testing.T) {
	engine := newTestEngine(t, "none")
	asset := &assetdomain.Asset{Sid: "600519"}

	// 买入限价低于窗口最低价，始终无法触及
	order := NewOrder("600519", DirectionBuy, OrderTypePrice, 9.0, 100000, 0, windowStart)
	txn, reason, err := engine.Execute(order, asset, tradableBars())
	require.NoError(t, err)
	assert.Nil(t, txn)
	assert.Equal(t, ReasonNoCross, reason)
}

func TestExecutePricePriorityCross(t *testing.T) {
	engine := newTestEngine(t, "none")
	asset := &assetdomain.Asset{Sid: "600519"}

	// 卖出限价 9.6：线性路径在低位即触及
	order := NewOrder("600519", DirectionSell, OrderTypePrice, 9.6, 0, 100, windowStart)
	txn, reason, err := engine.Execute(order, asset, tradableBars())
	require.NoError(t, err)
	require.NotNil(t, txn, "reason=%s", reason)
}

func TestExecuteAnchorBeyondWindow(t *testing.T) {
	engine := newTestEngine(t, "none")
	asset := &assetdomain.Asset{Sid: "600519"}

	// 下单时间晚于窗口两分钟，锚点超出合成路径
	late := windowStart.Add(2 * time.Minute)
	order := NewOrder("600519", DirectionBuy, OrderTypeTime, 0, 100000, 0, late)
	txn, reason, err := engine.Execute(order, asset, tradableBars())
	require.NoError(t, err)
	assert.Nil(t, txn)
	assert.Equal(t, ReasonDataGap, reason)
}

func TestExecuteBudgetBelowOneLot(t *testing.T) {
	engine := newTestEngine(t, "none")
	asset := &assetdomain.Asset{Sid: "600519"}

	// 预算不足一手
	order := NewOrder("600519", DirectionBuy, OrderTypeTime, 0, 500, 0, windowStart)
	txn, reason, err := engine.Execute(order, asset, tradableBars())
	require.NoError(t, err)
	assert.Nil(t, txn)
	assert.Equal(t, ReasonLiquidity, reason)
}

func TestExecuteParallelOrdersSharedEngine(t *testing.T) {
	dist, err := NewDistribution("beta", rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	commission, err := NewCommission("exchange", 5)
	require.NoError(t, err)
	engine := NewEngine(DefaultConfig(), dist, commission)
	asset := &assetdomain.Asset{Sid: "600519"}

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for g := range errs {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				order := NewOrder("600519", DirectionBuy, OrderTypeTime, 0, 100000, 0, windowStart)
				txn, reason, err := engine.Execute(order, asset, tradableBars())
				if err != nil {
					errs[g] = err
					return
				}
				if txn == nil && reason == "" {
					errs[g] = fmt.Errorf("unfilled without reason")
					return
				}
			}
		}(g)
	}
	wg.Wait()

	// 同一引擎实例并行处理相互独立的委托
	for g, err := range errs {
		assert.NoError(t, err, "goroutine %d", g)
	}
}

func TestExecuteValidation(t *testing.T) {
	engine := newTestEngine(t, "none")
	asset := &assetdomain.Asset{Sid: "600519"}

	order := NewOrder("600519", Direction(0), OrderTypeTime, 0, 100000, 0, windowStart)
	_, _, err := engine.Execute(order, asset, tradableBars())
	require.Error(t, err)

	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestOrderValidate(t *testing.T) {
	base := func() *Order {
		return NewOrder("600519", DirectionBuy, OrderTypeTime, 0, 10000, 0, windowStart)
	}

	assert.NoError(t, base().Validate())

	o := base()
	o.Sid = ""
	assert.Error(t, o.Validate())

	o = base()
	o.Amount = 0
	assert.Error(t, o.Validate())

	o = base()
	o.OrderType = OrderTypePrice
	o.Price = 0
	assert.Error(t, o.Validate())

	sell := NewOrder("600519", DirectionSell, OrderTypeTime, 0, 0, 0, windowStart)
	assert.Error(t, sell.Validate())
}
