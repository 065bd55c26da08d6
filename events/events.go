// Package events 发布预算相关的领域事件，供报表、通知等下游服务订阅
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// 事件类型，同时作为 AMQP routing key
const (
	AllocationSaved    = "allocation.saved"
	TransactionAdded   = "transaction.added"
	TransactionDeleted = "transaction.deleted"
)

// Event 领域事件
type Event struct {
	Type       string      `json:"type"`
	AccountID  uint        `json:"accountId"`
	OccurredAt time.Time   `json:"occurredAt"`
	Payload    interface{} `json:"payload"`
}

// New 创建事件，发生时间取当前时间
func New(eventType string, accountID uint, payload interface{}) Event {
	return Event{
		Type:       eventType,
		AccountID:  accountID,
		OccurredAt: time.Now(),
		Payload:    payload,
	}
}

// ToJSON 序列化
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher 事件发布接口
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// NopPublisher 未启用事件时使用
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }

// Recorder 在内存中记录事件，用于测试
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Publish 记录事件
func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events 返回已记录事件的副本
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types 返回已记录事件的类型序列
func (r *Recorder) Types() []string {
	var types []string
	for _, e := range r.Events() {
		types = append(types, e.Type)
	}
	return types
}
