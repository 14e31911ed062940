package gateway

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// EventHandler 处理来自网关的客户端事件（由 API 层注入，转交编排器）。
// 返回 error 表示处理失败，网关记录后继续运行。
type EventHandler func(ctx context.Context, sessionID string, msg *ClientMessage) error

// EventQueue 为单个会话提供串行事件处理。
// 解决两件事：
// 1. 防止同一会话的上下文被并发 dispatch 竞态修改；
// 2. 保证事件处理顺序与到达顺序一致。
type EventQueue struct {
	sessionID    string
	eventHandler EventHandler
	eventChan    chan *queuedEvent
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	logger       *log.Logger

	mu              sync.Mutex
	totalEvents     int64
	processedEvents int64
	droppedEvents   int64
}

type queuedEvent struct {
	msg       *ClientMessage
	timestamp time.Time
}

const (
	// 队列容量：超出的事件直接丢弃（背压控制）。
	defaultQueueCapacity = 64
	// 单个事件的处理超时。
	defaultEventTimeout = 10 * time.Second
)

// NewEventQueue 创建事件队列并启动单线程处理器。
func NewEventQueue(sessionID string, handler EventHandler, logger *log.Logger) *EventQueue {
	if logger == nil {
		logger = log.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	eq := &EventQueue{
		sessionID:    sessionID,
		eventHandler: handler,
		eventChan:    make(chan *queuedEvent, defaultQueueCapacity),
		ctx:          ctx,
		cancel:       cancel,
		logger:       logger,
	}
	eq.wg.Add(1)
	go eq.processLoop()
	return eq
}

// Enqueue 入队一个事件（异步非阻塞）。队列满时丢弃并返回错误。
func (eq *EventQueue) Enqueue(msg *ClientMessage) error {
	eq.mu.Lock()
	eq.totalEvents++
	eq.mu.Unlock()

	select {
	case eq.eventChan <- &queuedEvent{msg: msg, timestamp: time.Now()}:
		return nil
	default:
		eq.mu.Lock()
		eq.droppedEvents++
		dropped := eq.droppedEvents
		eq.mu.Unlock()
		eq.logger.Printf("[EventQueue] queue full for session %s, dropped=%d", eq.sessionID, dropped)
		return fmt.Errorf("event queue full for session %s", eq.sessionID)
	}
}

func (eq *EventQueue) processLoop() {
	defer eq.wg.Done()
	for {
		select {
		case <-eq.ctx.Done():
			return
		case evt := <-eq.eventChan:
			eq.handleOne(evt)
		}
	}
}

func (eq *EventQueue) handleOne(evt *queuedEvent) {
	ctx, cancel := context.WithTimeout(eq.ctx, defaultEventTimeout)
	defer cancel()

	if err := eq.eventHandler(ctx, eq.sessionID, evt.msg); err != nil {
		eq.logger.Printf("[EventQueue] handle %s for session %s: %v", evt.msg.Type, eq.sessionID, err)
	}
	eq.mu.Lock()
	eq.processedEvents++
	eq.mu.Unlock()
}

// Close 停止处理并等待在途事件处理完。
func (eq *EventQueue) Close() {
	eq.cancel()
	eq.wg.Wait()
}

// Stats 返回 (total, processed, dropped) 统计。
func (eq *EventQueue) Stats() (int64, int64, int64) {
	eq.mu.Lock()
	defer eq.mu.Unlock()
	return eq.totalEvents, eq.processedEvents, eq.droppedEvents
}
