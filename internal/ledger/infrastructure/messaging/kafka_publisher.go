// Package messaging 提供账本事件的 Kafka 发布实现。
package messaging

import (
	"context"
	"fmt"

	execution "github.com/wyfcoding/equitysim/internal/execution/domain"
	"github.com/wyfcoding/equitysim/internal/ledger/domain"
	"github.com/wyfcoding/equitysim/pkg/mq"
)

// fillEvent 成交事件载荷
type fillEvent struct {
	TransactionID string  `json:"transaction_id"`
	Sid           string  `json:"sid"`
	Direction     int     `json:"direction"`
	Price         float64 `json:"price"`
	Volume        float64 `json:"volume"`
	Cost          float64 `json:"cost"`
	FilledAt      string  `json:"filled_at"`
}

// snapshotEvent 日终快照事件载荷
type snapshotEvent struct {
	Account *domain.AccountSnapshot `json:"account"`
	Metrics *domain.MetricsSnapshot `json:"metrics"`
}

type kafkaEventPublisher struct {
	producer      *mq.KafkaProducer
	fillTopic     string
	snapshotTopic string
}

// NewKafkaEventPublisher 创建 Kafka 事件发布者
func NewKafkaEventPublisher(producer *mq.KafkaProducer, fillTopic, snapshotTopic string) domain.EventPublisher {
	return &kafkaEventPublisher{
		producer:      producer,
		fillTopic:     fillTopic,
		snapshotTopic: snapshotTopic,
	}
}

// PublishFill 发布成交事件，以标的代码为分区键保证同标的有序
func (p *kafkaEventPublisher) PublishFill(ctx context.Context, txn *execution.Transaction) error {
	evt := fillEvent{
		TransactionID: txn.TransactionID,
		Sid:           txn.Sid,
		Direction:     int(txn.Direction),
		Price:         txn.Price,
		Volume:        txn.Volume,
		Cost:          txn.Cost,
		FilledAt:      txn.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if err := p.producer.SendMessage(ctx, p.fillTopic, txn.Sid, evt); err != nil {
		return fmt.Errorf("failed to publish fill event: %w", err)
	}
	return nil
}

// PublishSnapshot 发布日终快照事件，以交易日为分区键
func (p *kafkaEventPublisher) PublishSnapshot(ctx context.Context, account *domain.AccountSnapshot, metrics *domain.MetricsSnapshot) error {
	evt := snapshotEvent{Account: account, Metrics: metrics}
	key := fmt.Sprintf("%d", account.SessionID)
	if err := p.producer.SendMessage(ctx, p.snapshotTopic, key, evt); err != nil {
		return fmt.Errorf("failed to publish snapshot event: %w", err)
	}
	return nil
}

// NoopEventPublisher 事件发布空实现，Kafka 未配置时的降级方案
type NoopEventPublisher struct{}

// PublishFill 空实现
func (NoopEventPublisher) PublishFill(context.Context, *execution.Transaction) error { return nil }

// PublishSnapshot 空实现
func (NoopEventPublisher) PublishSnapshot(context.Context, *domain.AccountSnapshot, *domain.MetricsSnapshot) error {
	return nil
}
