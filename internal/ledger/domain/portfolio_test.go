package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPortfolioDebitCredit(t *testing.T) {
	pf := NewPortfolio(decimal.NewFromInt(100000))

	pf.Debit(10000, 15)
	assert.Equal(t, "89985", pf.Cash().String())

	pf.Credit(5000, 10)
	assert.Equal(t, "94975", pf.Cash().String())

	pf.CreditCash(500)
	assert.Equal(t, "95475", pf.Cash().String())
}

func TestPortfolioCloseSessionSnapshots(t *testing.T) {
	pf := NewPortfolio(decimal.NewFromInt(100000))
	pf.Debit(10000, 0)

	pos := NewPosition("600000")
	require.NoError(t, pos.Buy(1000, 10))
	pos.EndOfSession(11, 20240315)

	account, metrics := pf.CloseSession(20240315, []*Position{pos})

	assert.Equal(t, "90000.00", account.Cash)
	require.Len(t, account.Positions, 1)
	assert.Equal(t, 11000.0, account.Positions[0].MarketValue)
	assert.InDelta(t, 101000.0, account.TotalValue, 1e-6)

	assert.InDelta(t, 11000.0/101000.0, metrics.Usage, 1e-9)
	assert.InDelta(t, 1.0, metrics.Weights["600000"], 1e-9)
	assert.InDelta(t, 0.1, metrics.PnL["600000"], 1e-9)

	values := pf.Values()
	require.Len(t, values, 1)
	assert.Equal(t, 20240315, values[0].SessionID)
}

func TestPortfolioPnLHistoryAccumulates(t *testing.T) {
	pf := NewPortfolio(decimal.NewFromInt(100000))
	pf.Debit(10000, 0)

	pos := NewPosition("600000")
	require.NoError(t, pos.Buy(1000, 10))

	pos.EndOfSession(11, 20240315)
	pf.CloseSession(20240315, []*Position{pos})

	pos.EndOfSession(9, 20240318)
	pf.CloseSession(20240318, []*Position{pos})

	history := pf.PnLHistory()
	require.Len(t, history, 2)
	assert.Equal(t, 20240315, history[0].SessionID)
	assert.InDelta(t, 0.1, history[0].PnL["600000"], 1e-9)
	assert.Equal(t, 20240318, history[1].SessionID)
	assert.InDelta(t, -0.1, history[1].PnL["600000"], 1e-9)
}

func TestPortfolioCloseSessionEmptyHoldings(t *testing.T) {
	pf := NewPortfolio(decimal.NewFromInt(50000))

	account, metrics := pf.CloseSession(20240315, nil)
	assert.Equal(t, "50000.00", account.Cash)
	assert.Equal(t, 50000.0, account.TotalValue)
	assert.Empty(t, metrics.Weights)
	assert.Equal(t, 0.0, metrics.Usage)
}
