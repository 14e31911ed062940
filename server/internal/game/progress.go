package game

import (
	"sync"

	"prebunk/server/internal/model"
)

// Progress 顺序答题的进度存储。
//
// 不变量：
// - 答案 write-once：某个 id 一旦有答案，后续写入全部 no-op。
// - CurrentQuestionIndex 单调不减，每次成功前进恰好 +1，
//   永不超过最后一题的下标。
// - 只有当前题可交互；已答过的历史题保持“已解决”而不是锁死。
// 题目列表在构造时固定，会话中途不重新配置。
type Progress struct {
	mu           sync.RWMutex
	answers      map[string]model.Answer
	currentIndex int
	questions    []string
}

// NewProgress 用固定有序的题目 id 列表创建进度存储。
func NewProgress(questions []string) *Progress {
	ids := make([]string, len(questions))
	copy(ids, questions)
	return &Progress{
		answers:   make(map[string]model.Answer),
		questions: ids,
	}
}

// RestoreProgress 从持久化快照恢复进度。
// 快照里越界的下标会被截回合法范围。
func RestoreProgress(questions []string, snap model.GameSnapshot) *Progress {
	p := NewProgress(questions)
	for id, answer := range snap.Answers {
		if answer.Valid() {
			p.answers[id] = answer
		}
	}
	if snap.CurrentQuestionIndex > 0 {
		p.currentIndex = snap.CurrentQuestionIndex
		if last := len(p.questions) - 1; last >= 0 && p.currentIndex > last {
			p.currentIndex = last
		}
	}
	return p
}

// SetAnswer 记录答案，仅当该题还没有答案时生效（第一次作答永久生效）。
// 返回本次写入是否生效：写一次的裁决在锁内完成，并发重复提交时
// 恰好一个调用方拿到 true，结算（扣分/加分）必须以它为准。
func (p *Progress) SetAnswer(id string, answer model.Answer) bool {
	if !answer.Valid() {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.answers[id]; exists {
		return false
	}
	p.answers[id] = answer
	return true
}

// GetAnswer 返回某题的答案，未作答返回空串。
func (p *Progress) GetAnswer(id string) model.Answer {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.answers[id]
}

// IsAnswered 某题是否已作答。
func (p *Progress) IsAnswered(id string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.answers[id]
	return ok
}

// IsCurrentQuestionAnswered 当前题是否已作答。
func (p *Progress) IsCurrentQuestionAnswered() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	id, ok := p.currentQuestionLocked()
	if !ok {
		return false
	}
	_, answered := p.answers[id]
	return answered
}

// IsPostDisabled 某条帖子是否禁止交互。
// 规则：恰好是当前题、或已经答过的题，可交互；其余禁用。
// 这是“一次只答一题”的门禁，同时让历史题保持可见的已解决态。
func (p *Progress) IsPostDisabled(id string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if current, ok := p.currentQuestionLocked(); ok && current == id {
		return false
	}
	_, answered := p.answers[id]
	return !answered
}

// MoveToNextQuestion 前进到下一题。
// 仅当当前题已作答、且不会越过最后一题时 +1，否则 no-op。
func (p *Progress) MoveToNextQuestion() {
	p.mu.Lock()
	defer p.mu.Unlock()

	id, ok := p.currentQuestionLocked()
	if !ok {
		return
	}
	if _, answered := p.answers[id]; !answered {
		return
	}
	if p.currentIndex+1 < len(p.questions) {
		p.currentIndex++
	}
}

// CurrentQuestionIndex 当前题下标。
func (p *Progress) CurrentQuestionIndex() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.currentIndex
}

// CurrentQuestionID 当前题的 id。题目列表为空时返回 ("", false)。
func (p *Progress) CurrentQuestionID() (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.currentQuestionLocked()
}

// Reset 清空答案并回到第一题。
func (p *Progress) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.answers = make(map[string]model.Answer)
	p.currentIndex = 0
}

// Snapshot 进度的持久化视图（答案表是副本）。
func (p *Progress) Snapshot() model.GameSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	answers := make(map[string]model.Answer, len(p.answers))
	for id, answer := range p.answers {
		answers[id] = answer
	}
	return model.GameSnapshot{
		Answers:              answers,
		CurrentQuestionIndex: p.currentIndex,
	}
}

func (p *Progress) currentQuestionLocked() (string, bool) {
	if p.currentIndex < 0 || p.currentIndex >= len(p.questions) {
		return "", false
	}
	return p.questions[p.currentIndex], true
}
