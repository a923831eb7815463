package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	assetdomain "github.com/wyfcoding/equitysim/internal/asset/domain"
)

func TestExchangeCommissionShanghaiSell(t *testing.T) {
	c, err := NewCommission("exchange", 5)
	require.NoError(t, err)

	shanghai := &assetdomain.Asset{Sid: "600519"}

	// 2015-06-09 之前：印花税 1e-3 + 过户费 2e-5 + 1e-3*multiplier
	before := time.Date(2015, 6, 8, 10, 0, 0, 0, time.UTC)
	assert.InDelta(t, 1e-3+2e-5+1e-3*5, c.Rate(DirectionSell, shanghai, before), 1e-12)

	// 当日及之后：基准降为 1e-4
	after := time.Date(2015, 6, 9, 10, 0, 0, 0, time.UTC)
	assert.InDelta(t, 1e-3+2e-5+1e-4*5, c.Rate(DirectionSell, shanghai, after), 1e-12)
}

func TestExchangeCommissionShenzhenBuy(t *testing.T) {
	c, err := NewCommission("exchange", 5)
	require.NoError(t, err)

	shenzhen := &assetdomain.Asset{Sid: "000001"}
	dt := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	// 买入无印花税，深市无过户费，仅剩佣金
	assert.InDelta(t, 1e-4*5, c.Rate(DirectionBuy, shenzhen, dt), 1e-12)
}

func TestNoCommission(t *testing.T) {
	c, err := NewCommission("none", 5)
	require.NoError(t, err)

	shanghai := &assetdomain.Asset{Sid: "600519"}
	assert.Zero(t, c.Rate(DirectionSell, shanghai, time.Now()))
	assert.Zero(t, c.Rate(DirectionBuy, shanghai, time.Now()))
}

func TestUnknownCommissionScheme(t *testing.T) {
	_, err := NewCommission("vip", 1)
	assert.Error(t, err)
}
