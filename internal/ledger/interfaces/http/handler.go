// Package http 账本服务的 HTTP 接入层。
package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	assetdomain "github.com/wyfcoding/equitysim/internal/asset/domain"
	execution "github.com/wyfcoding/equitysim/internal/execution/domain"
	"github.com/wyfcoding/equitysim/internal/ledger/application"
	"github.com/wyfcoding/equitysim/internal/ledger/domain"
	"github.com/wyfcoding/equitysim/pkg/metrics"
	"github.com/wyfcoding/equitysim/pkg/response"
)

// LedgerHandler 账本 HTTP 处理器
type LedgerHandler struct {
	service *application.LedgerService
}

// NewLedgerHandler 创建账本处理器
func NewLedgerHandler(service *application.LedgerService) *LedgerHandler {
	return &LedgerHandler{service: service}
}

// RegisterRoutes 注册路由
func (h *LedgerHandler) RegisterRoutes(r *gin.RouterGroup) {
	v1 := r.Group("/v1/ledger")
	{
		v1.POST("/orders", h.PlaceOrder)
		v1.POST("/actions", h.ApplyCorporateAction)
		v1.POST("/sessions/close", h.CloseSession)
		v1.GET("/account", h.GetAccount)
	}
}

// PlaceOrderRequest 下单请求
type PlaceOrderRequest struct {
	Sid       string  `json:"sid" binding:"required"`
	Direction string  `json:"direction" binding:"required,oneof=buy sell"`
	OrderType string  `json:"order_type" binding:"required,oneof=time price"`
	Price     float64 `json:"price"`
	Amount    float64 `json:"amount"`
	Volume    float64 `json:"volume"`
	CreatedAt string  `json:"created_at" binding:"required"`
}

// PlaceOrder 提交一笔委托并同步返回撮合结果
func (h *LedgerHandler) PlaceOrder(c *gin.Context) {
	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	createdAt, err := time.Parse(time.RFC3339, req.CreatedAt)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid created_at", err.Error())
		return
	}

	direction := execution.DirectionBuy
	if req.Direction == "sell" {
		direction = execution.DirectionSell
	}

	order := execution.NewOrder(req.Sid, direction, execution.OrderType(req.OrderType),
		req.Price, req.Amount, req.Volume, createdAt)

	result, err := h.service.Trade(c.Request.Context(), order)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, result)
}

// ApplyCorporateActionRequest 公司行动请求，数值均为每 10 股口径
type ApplyCorporateActionRequest struct {
	Sid         string  `json:"sid" binding:"required"`
	Type        string  `json:"type" binding:"required,oneof=split dividend rights"`
	SidBonus    float64 `json:"sid_bonus"`
	SidTransfer float64 `json:"sid_transfer"`
	Bonus       float64 `json:"bonus"`
	ExDate      int     `json:"ex_date"`
}

// ApplyCorporateAction 应用公司行动
func (h *LedgerHandler) ApplyCorporateAction(c *gin.Context) {
	var req ApplyCorporateActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	evt := &domain.CorporateActionEvent{
		EventID:     domain.NewEventID(),
		Sid:         req.Sid,
		Type:        domain.CorporateActionType(req.Type),
		SidBonus:    req.SidBonus,
		SidTransfer: req.SidTransfer,
		Bonus:       req.Bonus,
		ExDate:      req.ExDate,
	}
	if err := h.service.ApplyCorporateAction(c.Request.Context(), evt); err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, gin.H{"event_id": evt.EventID})
}

// CloseSessionRequest 日终结算请求
type CloseSessionRequest struct {
	SessionID int `json:"session_id" binding:"required"`
}

// CloseSession 触发日终结算并返回快照
func (h *LedgerHandler) CloseSession(c *gin.Context) {
	var req CloseSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	account, msnap, err := h.service.CloseSession(c.Request.Context(), req.SessionID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, gin.H{"account": account, "metrics": msnap})
}

// GetAccount 查询账户当前状态
func (h *LedgerHandler) GetAccount(c *gin.Context) {
	view, err := h.service.Account(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, view)
}

// writeError 把领域错误映射到 HTTP 状态码
func (h *LedgerHandler) writeError(c *gin.Context, err error) {
	var verr *execution.ValidationError
	switch {
	case errors.As(err, &verr):
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid order", err.Error())
	case errors.Is(err, assetdomain.ErrAssetNotFound):
		response.ErrorWithStatus(c, http.StatusNotFound, "asset not found", err.Error())
	case errors.Is(err, domain.ErrUnsupportedOperation):
		response.ErrorWithStatus(c, http.StatusUnprocessableEntity, "unsupported operation", err.Error())
	case errors.Is(err, application.ErrServiceClosed):
		response.ErrorWithStatus(c, http.StatusServiceUnavailable, "service closed", err.Error())
	default:
		response.ErrorWithStatus(c, http.StatusInternalServerError, "internal error", err.Error())
	}
}

// MetricsMiddleware 记录 HTTP 请求计数与时延
func MetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		m.HTTPRequestsTotal.WithLabelValues(path, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.Observe(time.Since(started).Seconds())
	}
}
