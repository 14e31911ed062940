package gateway

import (
	"log"
	"sync"
)

// Hub 活跃网关注册表：同一会话可以有多条连接（多标签页），
// 推送时对该会话的全部连接扇出。
type Hub struct {
	mu       sync.RWMutex
	gateways map[string]map[*Gateway]struct{}
	logger   *log.Logger
}

func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		gateways: make(map[string]map[*Gateway]struct{}),
		logger:   logger,
	}
}

// Register 注册一条连接。
func (h *Hub) Register(g *Gateway) {
	h.mu.Lock()
	if h.gateways[g.sessionID] == nil {
		h.gateways[g.sessionID] = make(map[*Gateway]struct{})
	}
	h.gateways[g.sessionID][g] = struct{}{}
	total := len(h.gateways[g.sessionID])
	h.mu.Unlock()
	h.logger.Printf("[Hub] gateway registered: session=%s conns=%d", g.sessionID, total)
}

// Unregister 注销一条连接。
func (h *Hub) Unregister(g *Gateway) {
	h.mu.Lock()
	if conns, ok := h.gateways[g.sessionID]; ok {
		delete(conns, g)
		if len(conns) == 0 {
			delete(h.gateways, g.sessionID)
		}
	}
	h.mu.Unlock()
}

// Publish 向某个会话的全部连接推送。没有连接时静默返回。
func (h *Hub) Publish(sessionID string, msg ServerMessage) {
	h.mu.RLock()
	conns := make([]*Gateway, 0, len(h.gateways[sessionID]))
	for g := range h.gateways[sessionID] {
		conns = append(conns, g)
	}
	h.mu.RUnlock()

	for _, g := range conns {
		if err := g.Send(msg); err != nil {
			h.logger.Printf("[Hub] push to session %s failed: %v", sessionID, err)
			g.Close()
		}
	}
}
