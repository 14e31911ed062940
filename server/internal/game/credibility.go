package game

import "sync"

// DefaultCredibility 初始可信度。
const DefaultCredibility = 80

// Credibility 可信度/积分存储：纯标量持有者。
// 钳制策略（max(0, …)、封顶）归调用方：观察到的调用点在答错时
// 写入 max(0, credibility-5)，答对时不动可信度、只加积分。
// 显式构造、按依赖注入传递，不做包级单例，避免测试间状态串扰。
type Credibility struct {
	mu          sync.RWMutex
	credibility int
	points      int
}

// NewCredibility 创建存储，初始可信度 80、积分 0。
func NewCredibility() *Credibility {
	return &Credibility{credibility: DefaultCredibility}
}

// RestoreCredibility 从持久化值恢复。
func RestoreCredibility(credibility, points int) *Credibility {
	return &Credibility{credibility: credibility, points: points}
}

// Credibility 当前可信度。
func (c *Credibility) Credibility() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.credibility
}

// SetCredibility 覆写可信度。不做任何钳制。
func (c *Credibility) SetCredibility(v int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.credibility = v
}

// Points 当前积分。
func (c *Credibility) Points() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.points
}

// SetPoints 覆写积分。
func (c *Credibility) SetPoints(v int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.points = v
}
