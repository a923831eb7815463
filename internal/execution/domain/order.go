// Package domain 执行模拟引擎：合成 tick、交易限制、佣金与撮合。
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Direction 买卖方向
type Direction int

const (
	DirectionBuy  Direction = 1
	DirectionSell Direction = -1
)

// OrderType 委托类型
type OrderType string

const (
	// OrderTypeTime 时间优先：按下单时刻对应的 tick 位置成交
	OrderTypeTime OrderType = "time"
	// OrderTypePrice 价格优先：首个触及限价的 tick 位置成交
	OrderTypePrice OrderType = "price"
)

// ValidationError 订单校验失败，下单前拒绝，不产生任何状态变化
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid order: %s %s", e.Field, e.Reason)
}

// Order 委托单，校验通过后视为不可变
type Order struct {
	OrderID   string
	Sid       string
	Direction Direction
	OrderType OrderType
	// Price 限价，价格优先委托必填
	Price float64
	// Amount 买入现金预算
	Amount float64
	// Volume 卖出股数
	Volume float64
	CreatedAt time.Time
}

// NewOrder 创建带 ID 的委托单
func NewOrder(sid string, direction Direction, orderType OrderType, price, amount, volume float64, createdAt time.Time) *Order {
	return &Order{
		OrderID:   uuid.NewString(),
		Sid:       sid,
		Direction: direction,
		OrderType: orderType,
		Price:     price,
		Amount:    amount,
		Volume:    volume,
		CreatedAt: createdAt,
	}
}

// Validate 校验委托合法性
func (o *Order) Validate() error {
	if o.Sid == "" {
		return &ValidationError{Field: "sid", Reason: "is required"}
	}
	if o.Direction != DirectionBuy && o.Direction != DirectionSell {
		return &ValidationError{Field: "direction", Reason: "must be buy or sell"}
	}
	if o.OrderType != OrderTypeTime && o.OrderType != OrderTypePrice {
		return &ValidationError{Field: "order_type", Reason: "must be time or price"}
	}
	if o.OrderType == OrderTypePrice && o.Price <= 0 {
		return &ValidationError{Field: "price", Reason: "must be positive for price-priority orders"}
	}
	if o.Direction == DirectionBuy && o.Amount <= 0 {
		return &ValidationError{Field: "amount", Reason: "must be positive for buy orders"}
	}
	if o.Direction == DirectionSell && o.Volume <= 0 {
		return &ValidationError{Field: "volume", Reason: "must be positive for sell orders"}
	}
	return nil
}

// Transaction 成交记录，创建后不可变。
// 佣金只体现在 Cost 字段，成交价仅含滑点。
type Transaction struct {
	TransactionID string
	Sid           string
	Direction     Direction
	Price         float64
	Volume        float64
	Cost          float64
	CreatedAt     time.Time
}
