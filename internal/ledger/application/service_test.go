package application

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	assetdomain "github.com/wyfcoding/equitysim/internal/asset/domain"
	execution "github.com/wyfcoding/equitysim/internal/execution/domain"
	"github.com/wyfcoding/equitysim/internal/ledger/domain"
	mktdomain "github.com/wyfcoding/equitysim/internal/marketdata/domain"
	"github.com/wyfcoding/equitysim/pkg/metrics"

	"github.com/shopspring/decimal"
)

type fakeDirectory struct{}

func (fakeDirectory) Get(_ context.Context, sid string) (*assetdomain.Asset, error) {
	return &assetdomain.Asset{Sid: sid, FirstTrading: 20100101, Delist: 20991231}, nil
}

type fakeProvider struct {
	bars []mktdomain.Bar
	err  error
}

// Bars 把样本窗口平移到请求起点，模拟任意交易日的行情。
func (p *fakeProvider) Bars(_ context.Context, _ string, from, _ time.Time) ([]mktdomain.Bar, error) {
	if p.err != nil {
		return nil, p.err
	}
	out := make([]mktdomain.Bar, len(p.bars))
	for i, b := range p.bars {
		b.Timestamp = from.Add(time.Duration(i) * time.Minute)
		out[i] = b
	}
	return out, nil
}

type fakeRepo struct {
	orders    int
	txns      int
	accounts  int
	snapshots int
	archived  int
}

func (r *fakeRepo) SaveOrder(context.Context, *execution.Order) error { r.orders++; return nil }
func (r *fakeRepo) SaveTransaction(context.Context, *execution.Transaction) error {
	r.txns++
	return nil
}
func (r *fakeRepo) SaveAccountSnapshot(context.Context, *domain.AccountSnapshot) error {
	r.accounts++
	return nil
}
func (r *fakeRepo) SaveMetricsSnapshot(context.Context, *domain.MetricsSnapshot) error {
	r.snapshots++
	return nil
}
func (r *fakeRepo) ArchivePosition(context.Context, int, *domain.Position) error {
	r.archived++
	return nil
}

type fakePublisher struct {
	fills     int
	snapshots int
}

func (p *fakePublisher) PublishFill(context.Context, *execution.Transaction) error {
	p.fills++
	return nil
}
func (p *fakePublisher) PublishSnapshot(context.Context, *domain.AccountSnapshot, *domain.MetricsSnapshot) error {
	p.snapshots++
	return nil
}

var testWindowStart = time.Date(2024, 3, 15, 9, 31, 0, 0, time.UTC)

func testBars() []mktdomain.Bar {
	return []mktdomain.Bar{{
		Sid:       "600000",
		Open:      10.0,
		High:      10.5,
		Low:       9.5,
		Close:     10.2,
		Volume:    60000,
		Timestamp: testWindowStart,
	}}
}

func newTestEngine(t *testing.T) *execution.Engine {
	t.Helper()
	dist, err := execution.NewDistribution("linear", rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	comm, err := execution.NewCommission("none", 1)
	require.NoError(t, err)
	return execution.NewEngine(execution.DefaultConfig(), dist, comm)
}

func startService(t *testing.T, provider mktdomain.Provider, repo domain.LedgerRepository, pub domain.EventPublisher) *LedgerService {
	t.Helper()
	svc := NewLedgerService(
		newTestEngine(t),
		domain.NewTracker(),
		domain.NewPortfolio(decimal.NewFromInt(1000000)),
		fakeDirectory{},
		provider,
		repo,
		pub,
		metrics.New("test"),
		time.Second,
		16,
	)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = svc.Run(ctx) }()
	return svc
}

func TestLedgerServiceTradeBuyFills(t *testing.T) {
	repo := &fakeRepo{}
	pub := &fakePublisher{}
	svc := startService(t, &fakeProvider{bars: testBars()}, repo, pub)

	order := execution.NewOrder("600000", execution.DirectionBuy, execution.OrderTypeTime, 0, 100000, 0, testWindowStart)

	result, err := svc.Trade(context.Background(), order)
	require.NoError(t, err)
	require.NotNil(t, result.Transaction)

	// 冲击上限截断：60000 * (0.15/10.5) * 0.2
	assert.InDelta(t, 9.65*1.01, result.Transaction.Price, 1e-9)
	assert.InDelta(t, 171.4285714, result.Transaction.Volume, 1e-6)

	assert.Equal(t, 1, repo.orders)
	assert.Equal(t, 1, repo.txns)
	assert.Equal(t, 1, pub.fills)

	// 现金减少成交额（无佣金方案下无费用）
	view, err := svc.Account(context.Background())
	require.NoError(t, err)
	require.Len(t, view.Positions, 1)
	assert.InDelta(t, 171.4285714, view.Positions[0].Opened, 1e-6, "当日买入计入未结算敞口")
	assert.Equal(t, 0.0, view.Positions[0].Available, "T+1 当日不可卖")
	assert.InDelta(t, 9.65*1.01, view.Positions[0].CostBasis, 1e-9)
}

func TestLedgerServiceTradeDataGap(t *testing.T) {
	repo := &fakeRepo{}
	svc := startService(t, &fakeProvider{err: mktdomain.ErrDataGap}, repo, &fakePublisher{})

	order := execution.NewOrder("600000", execution.DirectionBuy, execution.OrderTypeTime, 0, 100000, 0, testWindowStart)

	result, err := svc.Trade(context.Background(), order)
	require.NoError(t, err, "数据缺口是未成交而不是错误")
	assert.Nil(t, result.Transaction)
	assert.Equal(t, execution.ReasonDataGap, result.Reason)
	assert.Equal(t, 1, repo.orders, "未成交的委托同样落库")
}

func TestLedgerServiceSellWithoutPositionRejected(t *testing.T) {
	repo := &fakeRepo{}
	svc := startService(t, &fakeProvider{bars: testBars()}, repo, &fakePublisher{})

	order := execution.NewOrder("600000", execution.DirectionSell, execution.OrderTypeTime, 0, 0, 100, testWindowStart)

	_, err := svc.Trade(context.Background(), order)
	require.ErrorIs(t, err, domain.ErrUnsupportedOperation)

	view, aerr := svc.Account(context.Background())
	require.NoError(t, aerr)
	assert.Equal(t, "1000000.00", view.Cash, "拒绝的操作不动账")
	assert.Empty(t, view.Positions)
}

func TestLedgerServiceCorporateActionCreditsCash(t *testing.T) {
	svc := startService(t, &fakeProvider{bars: testBars()}, &fakeRepo{}, &fakePublisher{})

	order := execution.NewOrder("600000", execution.DirectionBuy, execution.OrderTypeTime, 0, 100000, 0, testWindowStart)
	_, err := svc.Trade(context.Background(), order)
	require.NoError(t, err)

	_, _, err = svc.CloseSession(context.Background(), 20240315)
	require.NoError(t, err)

	before, err := svc.Account(context.Background())
	require.NoError(t, err)

	// 每 10 股派 1 元
	err = svc.ApplyCorporateAction(context.Background(), &domain.CorporateActionEvent{
		EventID: domain.NewEventID(),
		Sid:     "600000",
		Type:    domain.ActionSplit,
		Bonus:   1,
	})
	require.NoError(t, err)

	after, err := svc.Account(context.Background())
	require.NoError(t, err)

	beforeCash, _ := decimal.NewFromString(before.Cash)
	afterCash, _ := decimal.NewFromString(after.Cash)
	size := after.Positions[0].Size
	assert.InDelta(t, size*0.1, afterCash.Sub(beforeCash).InexactFloat64(), 1e-6)
}

func TestLedgerServiceCloseSessionSnapshotsAndArchives(t *testing.T) {
	repo := &fakeRepo{}
	pub := &fakePublisher{}
	svc := startService(t, &fakeProvider{bars: testBars()}, repo, pub)

	order := execution.NewOrder("600000", execution.DirectionBuy, execution.OrderTypeTime, 0, 100000, 0, testWindowStart)
	result, err := svc.Trade(context.Background(), order)
	require.NoError(t, err)
	bought := result.Transaction.Volume

	account, msnap, err := svc.CloseSession(context.Background(), 20240315)
	require.NoError(t, err)
	require.Len(t, account.Positions, 1)
	assert.Equal(t, 10.2, account.Positions[0].LastSyncPrice, "收盘价同步")
	assert.Equal(t, bought, account.Positions[0].Available, "T+1 日终后可卖")
	assert.InDelta(t, 1.0, msnap.Weights["600000"], 1e-9)
	assert.Equal(t, 1, repo.accounts)
	assert.Equal(t, 1, repo.snapshots)
	assert.Equal(t, 1, pub.snapshots)

	// 次日全部卖出并结算，持仓归档
	sellAt := testWindowStart.Add(24 * time.Hour)
	sell := execution.NewOrder("600000", execution.DirectionSell, execution.OrderTypeTime, 0, 0, bought, sellAt)
	sres, err := svc.Trade(context.Background(), sell)
	require.NoError(t, err)
	require.NotNil(t, sres.Transaction)
	assert.Equal(t, bought, sres.Transaction.Volume)

	_, _, err = svc.CloseSession(context.Background(), 20240316)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.archived)

	view, err := svc.Account(context.Background())
	require.NoError(t, err)
	assert.Empty(t, view.Positions)
	require.Len(t, view.PnL, 2, "逐日分标的盈亏随结算累积")
	assert.Equal(t, 20240315, view.PnL[0].SessionID)
	assert.Contains(t, view.PnL[0].PnL, "600000")
	assert.Equal(t, 20240316, view.PnL[1].SessionID)
}
