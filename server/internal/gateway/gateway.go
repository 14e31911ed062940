package gateway

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Gateway 单条客户端 WebSocket 连接的网关。
//
// 职责：
// 1. 维护客户端连接的读写循环与心跳；
// 2. 入站事件经 EventQueue 串行交给编排器；
// 3. 出站推送（typing 揭示、自动完成）带单调 seq，方便客户端去重排序。
type Gateway struct {
	sessionID string

	clientConn     *websocket.Conn
	clientConnLock sync.Mutex

	queue *EventQueue

	closeOnce sync.Once
	closeChan chan struct{}

	seqCounter int64
	seqLock    sync.Mutex

	config Config

	logger *log.Logger
}

// Config 网关配置。
type Config struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PingInterval time.Duration
}

func (c *Config) applyDefaults() {
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 60 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 20 * time.Second
	}
}

// NewGateway 创建网关。handler 为空时入站事件只记日志。
func NewGateway(sessionID string, conn *websocket.Conn, cfg Config, handler EventHandler, logger *log.Logger) *Gateway {
	cfg.applyDefaults()
	if logger == nil {
		logger = log.Default()
	}
	if handler == nil {
		handler = func(_ context.Context, sessionID string, msg *ClientMessage) error {
			logger.Printf("[Gateway] unhandled client event: session=%s type=%s", sessionID, msg.Type)
			return nil
		}
	}
	g := &Gateway{
		sessionID:  sessionID,
		clientConn: conn,
		closeChan:  make(chan struct{}),
		config:     cfg,
		logger:     logger,
	}
	g.queue = NewEventQueue(sessionID, handler, logger)
	return g
}

// Start 启动读循环与心跳。读循环退出即关闭网关。
func (g *Gateway) Start() {
	go g.readLoop()
	go g.pingLoop()
}

// Done 连接关闭时被 close。
func (g *Gateway) Done() <-chan struct{} { return g.closeChan }

// Send 向客户端推送一条消息，自动补齐 seq 与服务端时间戳。
func (g *Gateway) Send(msg ServerMessage) error {
	msg.Seq = g.nextSeq()
	msg.ServerTS = time.Now()

	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	g.clientConnLock.Lock()
	defer g.clientConnLock.Unlock()
	_ = g.clientConn.SetWriteDeadline(time.Now().Add(g.config.WriteTimeout))
	return g.clientConn.WriteMessage(websocket.TextMessage, payload)
}

// Close 关闭连接与事件队列。可重复调用。
func (g *Gateway) Close() {
	g.closeOnce.Do(func() {
		close(g.closeChan)
		g.queue.Close()
		_ = g.clientConn.Close()
	})
}

func (g *Gateway) readLoop() {
	defer g.Close()

	g.clientConn.SetPongHandler(func(string) error {
		return g.clientConn.SetReadDeadline(time.Now().Add(g.config.ReadTimeout))
	})
	_ = g.clientConn.SetReadDeadline(time.Now().Add(g.config.ReadTimeout))

	for {
		_, payload, err := g.clientConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				g.logger.Printf("[Gateway] read error for session %s: %v", g.sessionID, err)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			g.logger.Printf("[Gateway] bad client payload for session %s: %v", g.sessionID, err)
			_ = g.Send(ServerMessage{Type: EventTypeError, Error: "invalid json"})
			continue
		}
		if err := g.queue.Enqueue(&msg); err != nil {
			_ = g.Send(ServerMessage{Type: EventTypeError, Error: "server busy"})
		}
	}
}

func (g *Gateway) pingLoop() {
	ticker := time.NewTicker(g.config.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-g.closeChan:
			return
		case <-ticker.C:
			g.clientConnLock.Lock()
			_ = g.clientConn.SetWriteDeadline(time.Now().Add(g.config.WriteTimeout))
			err := g.clientConn.WriteMessage(websocket.PingMessage, nil)
			g.clientConnLock.Unlock()
			if err != nil {
				g.Close()
				return
			}
		}
	}
}

func (g *Gateway) nextSeq() int64 {
	g.seqLock.Lock()
	defer g.seqLock.Unlock()
	g.seqCounter++
	return g.seqCounter
}
