// Package application 账本应用服务：串行驱动撮合引擎与持仓账本。
package application

import (
	"context"
	"errors"
	"time"

	assetdomain "github.com/wyfcoding/equitysim/internal/asset/domain"
	execution "github.com/wyfcoding/equitysim/internal/execution/domain"
	"github.com/wyfcoding/equitysim/internal/ledger/domain"
	mktdomain "github.com/wyfcoding/equitysim/internal/marketdata/domain"
	"github.com/wyfcoding/equitysim/pkg/logger"
	"github.com/wyfcoding/equitysim/pkg/metrics"
)

// ErrServiceClosed 账本已停止，不再接受新请求
var ErrServiceClosed = errors.New("ledger service closed")

// TradeResult 单笔委托的处理结果。
// Transaction 为 nil 时 Reason 给出未成交原因。
type TradeResult struct {
	Transaction *execution.Transaction `json:"transaction,omitempty"`
	Reason      execution.NoFillReason `json:"reason,omitempty"`
}

// AccountView 账户当前状态（按最近同步价估值）
type AccountView struct {
	Cash      string                    `json:"cash"`
	Positions []domain.PositionSnapshot `json:"positions"`
	Values    []domain.SessionValue     `json:"values"`
	PnL       []domain.SessionPnL       `json:"pnl"`
}

// LedgerService 账本服务。所有状态变更经由单一命令通道串行执行，
// 持仓、组合与归档在 Run 协程内独占访问，外部方法只做入队与等待。
type LedgerService struct {
	engine    *execution.Engine
	tracker   *domain.Tracker
	portfolio *domain.Portfolio
	directory assetdomain.Directory
	provider  mktdomain.Provider
	repo      domain.LedgerRepository
	publisher domain.EventPublisher
	metrics   *metrics.Metrics

	dataWait time.Duration
	cmds     chan func()
	done     chan struct{}
}

// NewLedgerService 组装账本服务
func NewLedgerService(
	engine *execution.Engine,
	tracker *domain.Tracker,
	portfolio *domain.Portfolio,
	directory assetdomain.Directory,
	provider mktdomain.Provider,
	repo domain.LedgerRepository,
	publisher domain.EventPublisher,
	m *metrics.Metrics,
	dataWait time.Duration,
	queueSize int,
) *LedgerService {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &LedgerService{
		engine:    engine,
		tracker:   tracker,
		portfolio: portfolio,
		directory: directory,
		provider:  provider,
		repo:      repo,
		publisher: publisher,
		metrics:   m,
		dataWait:  dataWait,
		cmds:      make(chan func(), queueSize),
		done:      make(chan struct{}),
	}
}

// Run 命令循环，独占账本状态。ctx 取消后排空已入队的命令再退出。
func (s *LedgerService) Run(ctx context.Context) error {
	defer close(s.done)
	for {
		select {
		case cmd := <-s.cmds:
			cmd()
			s.metrics.LedgerQueueDepth.Set(float64(len(s.cmds)))
		case <-ctx.Done():
			for {
				select {
				case cmd := <-s.cmds:
					cmd()
				default:
					return ctx.Err()
				}
			}
		}
	}
}

// submit 入队一条命令并等待其被执行
func (s *LedgerService) submit(ctx context.Context, cmd func()) error {
	executed := make(chan struct{})
	wrapped := func() {
		cmd()
		close(executed)
	}

	select {
	case s.cmds <- wrapped:
	case <-s.done:
		return ErrServiceClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-executed:
		return nil
	case <-s.done:
		return ErrServiceClosed
	}
}

// Trade 处理一笔委托：撮合、记仓、记账、落盘并发布成交事件。
// 未成交不是错误；只有订单非法或账本约束被破坏才返回 error。
func (s *LedgerService) Trade(ctx context.Context, order *execution.Order) (*TradeResult, error) {
	var (
		result *TradeResult
		outErr error
	)
	err := s.submit(ctx, func() {
		result, outErr = s.handleTrade(ctx, order)
	})
	if err != nil {
		return nil, err
	}
	return result, outErr
}

func (s *LedgerService) handleTrade(ctx context.Context, order *execution.Order) (*TradeResult, error) {
	s.metrics.OrdersTotal.Inc()
	started := time.Now()
	defer func() {
		s.metrics.ExecutionDuration.Observe(time.Since(started).Seconds())
	}()

	ast, err := s.directory.Get(ctx, order.Sid)
	if err != nil {
		return nil, err
	}

	// 无论最终是否成交，委托本身先落库
	if err := s.repo.SaveOrder(ctx, order); err != nil {
		logger.Warn(ctx, "保存订单失败", "order_id", order.OrderID, "error", err)
	}

	bars, err := s.fetchWindow(ctx, order)
	if err != nil {
		if errors.Is(err, mktdomain.ErrDataGap) {
			s.metrics.UnfilledTotal.WithLabelValues(string(execution.ReasonDataGap)).Inc()
			return &TradeResult{Reason: execution.ReasonDataGap}, nil
		}
		return nil, err
	}

	txn, reason, err := s.engine.Execute(order, ast, bars)
	if err != nil {
		return nil, err
	}
	if txn == nil {
		s.metrics.UnfilledTotal.WithLabelValues(string(reason)).Inc()
		return &TradeResult{Reason: reason}, nil
	}

	if err := s.tracker.RecordFill(txn); err != nil {
		s.metrics.RejectedOpsTotal.Inc()
		return nil, err
	}

	notional := txn.Price * txn.Volume
	if txn.Direction == execution.DirectionBuy {
		s.portfolio.Debit(notional, txn.Cost)
	} else {
		s.portfolio.Credit(notional, txn.Cost)
	}

	if err := s.repo.SaveTransaction(ctx, txn); err != nil {
		logger.Warn(ctx, "保存成交失败", "transaction_id", txn.TransactionID, "error", err)
	}
	if err := s.publisher.PublishFill(ctx, txn); err != nil {
		logger.Warn(ctx, "发布成交事件失败", "transaction_id", txn.TransactionID, "error", err)
	}

	s.metrics.FillsTotal.Inc()
	logger.Info(ctx, "成交",
		"sid", txn.Sid, "direction", txn.Direction,
		"price", txn.Price, "volume", txn.Volume, "cost", txn.Cost)
	return &TradeResult{Transaction: txn}, nil
}

// fetchWindow 拉取从委托时刻到当日收盘的分钟线窗口
func (s *LedgerService) fetchWindow(ctx context.Context, order *execution.Order) ([]mktdomain.Bar, error) {
	from := order.CreatedAt.Truncate(time.Minute)
	to := sessionClose(order.CreatedAt)

	wctx := ctx
	if s.dataWait > 0 {
		var cancel context.CancelFunc
		wctx, cancel = context.WithTimeout(ctx, s.dataWait)
		defer cancel()
	}
	return s.provider.Bars(wctx, order.Sid, from, to)
}

// ApplyCorporateAction 应用公司行动，现金红利与零股折算记入组合现金
func (s *LedgerService) ApplyCorporateAction(ctx context.Context, evt *domain.CorporateActionEvent) error {
	return s.submit(ctx, func() {
		cash := s.tracker.ApplyCorporateAction(evt)
		s.portfolio.CreditCash(cash)
		logger.Info(ctx, "公司行动入账",
			"event_id", evt.EventID, "sid", evt.Sid, "type", evt.Type, "cash", cash)
	})
}

// CloseSession 日终结算：同步持仓、归档清仓标的、估值并落盘快照
func (s *LedgerService) CloseSession(ctx context.Context, sessionID int) (*domain.AccountSnapshot, *domain.MetricsSnapshot, error) {
	var (
		account *domain.AccountSnapshot
		msnap   *domain.MetricsSnapshot
	)
	err := s.submit(ctx, func() {
		account, msnap = s.handleCloseSession(ctx, sessionID)
	})
	if err != nil {
		return nil, nil, err
	}
	return account, msnap, nil
}

func (s *LedgerService) handleCloseSession(ctx context.Context, sessionID int) (*domain.AccountSnapshot, *domain.MetricsSnapshot) {
	closes := s.closingPrices(ctx, sessionID)

	before := len(s.tracker.Archived())
	s.tracker.Synchronize(sessionID, closes)
	for _, arch := range s.tracker.Archived()[before:] {
		if err := s.repo.ArchivePosition(ctx, arch.SessionID, arch.Position); err != nil {
			logger.Warn(ctx, "归档持仓失败", "sid", arch.Position.Sid, "error", err)
		}
	}

	active := s.tracker.Active()
	s.metrics.PositionsActive.Set(float64(len(active)))

	account, msnap := s.portfolio.CloseSession(sessionID, active)
	if err := s.repo.SaveAccountSnapshot(ctx, account); err != nil {
		logger.Warn(ctx, "保存账户快照失败", "session_id", sessionID, "error", err)
	}
	if err := s.repo.SaveMetricsSnapshot(ctx, msnap); err != nil {
		logger.Warn(ctx, "保存度量快照失败", "session_id", sessionID, "error", err)
	}
	if err := s.publisher.PublishSnapshot(ctx, account, msnap); err != nil {
		logger.Warn(ctx, "发布日终快照失败", "session_id", sessionID, "error", err)
	}

	logger.Info(ctx, "日终结算完成",
		"session_id", sessionID, "cash", account.Cash, "total_value", account.TotalValue)
	return account, msnap
}

// closingPrices 取各活跃标的当日最后一根分钟线的收盘价。
// 拉取失败的标的沿用上一同步价。
func (s *LedgerService) closingPrices(ctx context.Context, sessionID int) map[string]float64 {
	from := sessionOpenDate(sessionID)
	to := from.Add(15 * time.Hour)

	fetch := func(sid string) ([]mktdomain.Bar, error) {
		wctx := ctx
		if s.dataWait > 0 {
			var cancel context.CancelFunc
			wctx, cancel = context.WithTimeout(ctx, s.dataWait)
			defer cancel()
		}
		return s.provider.Bars(wctx, sid, from, to)
	}

	closes := make(map[string]float64)
	for _, pos := range s.tracker.Active() {
		bars, err := fetch(pos.Sid)
		if err != nil || len(bars) == 0 {
			logger.Warn(ctx, "收盘价缺失，沿用上一同步价", "sid", pos.Sid, "error", err)
			continue
		}
		closes[pos.Sid] = bars[len(bars)-1].Close
	}
	return closes
}

// Account 返回账户当前状态快照
func (s *LedgerService) Account(ctx context.Context) (*AccountView, error) {
	var view *AccountView
	err := s.submit(ctx, func() {
		positions := s.tracker.Active()
		snaps := make([]domain.PositionSnapshot, 0, len(positions))
		for _, pos := range positions {
			snaps = append(snaps, domain.PositionSnapshot{
				Sid:           pos.Sid,
				Size:          pos.Size,
				Available:     pos.Available,
				Opened:        pos.Opened,
				CostBasis:     pos.CostBasis,
				LastSyncPrice: pos.LastSyncPrice,
				MarketValue:   pos.MarketValue(),
				PnL:           pos.PnL(),
			})
		}
		view = &AccountView{
			Cash:      s.portfolio.Cash().StringFixed(2),
			Positions: snaps,
			Values:    s.portfolio.Values(),
			PnL:       s.portfolio.PnLHistory(),
		}
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// sessionClose 当日 15:00 收盘时刻
func sessionClose(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 15, 0, 0, 0, t.Location())
}

// sessionOpenDate 整数交易日对应的零点
func sessionOpenDate(sessionID int) time.Time {
	return time.Date(sessionID/10000, time.Month(sessionID/100%100), sessionID%100, 0, 0, 0, 0, time.UTC)
}
