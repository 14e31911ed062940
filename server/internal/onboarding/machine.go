package onboarding

import (
	"sync"
	"time"

	"prebunk/server/internal/model"
)

const (
	// DefaultTypingDelay typing 占位被真实消息替换前的固定延迟。
	DefaultTypingDelay = 1000 * time.Millisecond
	// DefaultAutoCompleteDelay example 消息揭示后到自动完成的延迟。
	DefaultAutoCompleteDelay = 2000 * time.Millisecond
)

// UpdateKind 机器对外通知的更新类别。
type UpdateKind string

const (
	UpdateDispatch     UpdateKind = "dispatch"      // 用户选项已被接受
	UpdateReveal       UpdateKind = "reveal"        // typing 占位被替换为引导消息
	UpdateAutoComplete UpdateKind = "auto_complete" // example 自动走向 completed
)

// Update 机器状态变化的通知。Context 是副本，接收方可安全持有。
type Update struct {
	Kind       UpdateKind
	State      State
	Context    model.OnboardingContext
	Event      *OptionEvent // Kind == UpdateDispatch 时有效
	MessageKey string       // Kind == UpdateReveal 时有效
}

// UpdateHandler 由集成层注入：持久化快照、写时间线、向网关推送。
// 在机器锁外调用，实现里可以安全回读机器。
type UpdateHandler func(Update)

// Config 机器的可注入依赖。零值字段取默认。
type Config struct {
	TypingDelay       time.Duration
	AutoCompleteDelay time.Duration
	// ExamplePost step2 揭示时嵌入的示例帖子。
	ExamplePost model.Post
	Scheduler   Scheduler
	Now         func() time.Time
	OnUpdate    UpdateHandler
}

func (c *Config) applyDefaults() {
	if c.TypingDelay <= 0 {
		c.TypingDelay = DefaultTypingDelay
	}
	if c.AutoCompleteDelay <= 0 {
		c.AutoCompleteDelay = DefaultAutoCompleteDelay
	}
	if c.Scheduler == nil {
		c.Scheduler = NewTimerScheduler()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Machine 引导对话的有限状态机。
//
// 契约：
// - Dispatch 同步完成所有上下文变更：追加用户消息、记录选项、
//   追加 typing 占位、转移状态；引导消息的揭示只“调度”，不同步执行。
// - 非法/过期事件（当前状态转移表没有的事件）静默吸收，不抛错。
// - 进入新状态前取消上一个状态挂起的全部定时器，防止过期回调
//   打在已经前进了的上下文上。
// - 消息日志 append-only，唯一的替换是末尾 typing → 真实消息。
type Machine struct {
	mu    sync.Mutex
	state State
	ctx   model.OnboardingContext

	cfg Config

	// gen 状态进入代次。定时回调捕获调度时的代次，触发时不相符
	// 就直接丢弃，兜住“已触发但还没抢到锁”的窗口。
	gen     uint64
	cancels []CancelFunc
	closed  bool
}

// New 创建一个全新的会话机器：种子上下文 + initial 状态，
// 并立刻调度 step1.greeting 的揭示。
func New(cfg Config) *Machine {
	cfg.applyDefaults()
	m := &Machine{
		state: StateInitial,
		ctx:   NewContext(cfg.Now()),
		cfg:   cfg,
	}
	m.mu.Lock()
	m.scheduleEntryLocked()
	m.mu.Unlock()
	return m
}

// Restore 从持久化快照恢复机器。
// 恢复语义：如果快照末尾还挂着 typing 占位，重新调度该状态的揭示；
// 如果停在 example 且消息已揭示，只重挂 auto-complete 定时器。
// 定时链从头重启而不是跳到 completed，保证剧本消息不会丢。
func Restore(cfg Config, ctx model.OnboardingContext, state State) *Machine {
	cfg.applyDefaults()
	if _, known := reveals[state]; !known && state != StateCompleted {
		state = StateInitial
		ctx = NewContext(cfg.Now())
	}
	m := &Machine{
		state: state,
		ctx:   copyContext(ctx),
		cfg:   cfg,
	}
	m.mu.Lock()
	m.scheduleEntryLocked()
	m.mu.Unlock()
	return m
}

// Dispatch 处理一个用户选项事件。
// 副作用（同步）：追加 user 文本消息（内容为 OptionText）、把选项 id
// 记入 SelectedOptions、追加 Paula 的 typing 占位（目标状态有剧本时）、
// 转移状态；随后调度目标状态的揭示。
// 当前状态不接受该事件时整体 no-op。
func (m *Machine) Dispatch(evt OptionEvent) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	next, ok := transitions[m.state][evt.Type]
	if !ok || evt.Type == eventAutoComplete {
		// auto-complete 只能由内部定时器派发。
		m.mu.Unlock()
		return
	}

	m.cancelPendingLocked()
	now := m.cfg.Now()
	if m.trailingTypingLocked() {
		// 揭示被取消后占位不能留在日志里，否则它永远不会被替换。
		m.ctx.Messages = m.ctx.Messages[:len(m.ctx.Messages)-1]
	}
	m.ctx.Messages = append(m.ctx.Messages, model.NewTextMessage(model.SenderUser, evt.OptionText, now))
	m.ctx.SelectedOptions = append(m.ctx.SelectedOptions, string(evt.Type))
	m.state = next

	if _, scripted := reveals[next]; scripted {
		m.ctx.Messages = append(m.ctx.Messages, model.NewTypingMessage(model.SenderPaula, now))
		m.ctx.Typing = true
	} else {
		// completed：对话结束，没有人在“输入中”。
		m.ctx.Typing = false
	}
	m.scheduleEntryLocked()

	update := Update{
		Kind:    UpdateDispatch,
		State:   m.state,
		Context: copyContext(m.ctx),
		Event:   &evt,
	}
	m.mu.Unlock()
	m.notify(update)
}

// scheduleEntryLocked 进入当前状态时挂接定时效果。
// 进入 completed 或末尾不是 typing 占位时什么都不挂
// （恢复场景里消息可能已经揭示过）。
func (m *Machine) scheduleEntryLocked() {
	m.gen++
	script, ok := reveals[m.state]
	if !ok {
		return
	}

	if m.trailingTypingLocked() {
		gen := m.gen
		cancel := m.cfg.Scheduler.Schedule(m.cfg.TypingDelay, func() { m.reveal(gen) })
		m.cancels = append(m.cancels, cancel)
		return
	}

	// 快照恢复：example 已揭示但还没自动完成。
	if script.autoComplete {
		m.scheduleAutoCompleteLocked()
	}
}

func (m *Machine) scheduleAutoCompleteLocked() {
	gen := m.gen
	cancel := m.cfg.Scheduler.Schedule(m.cfg.AutoCompleteDelay, func() { m.autoComplete(gen) })
	m.cancels = append(m.cancels, cancel)
}

// reveal 定时回调：把末尾 typing 占位替换为当前状态的剧本消息。
// 始终对最新上下文做函数式更新，代次不符直接丢弃。
func (m *Machine) reveal(gen uint64) {
	m.mu.Lock()
	if m.closed || gen != m.gen || !m.trailingTypingLocked() {
		m.mu.Unlock()
		return
	}
	script, ok := reveals[m.state]
	if !ok {
		m.mu.Unlock()
		return
	}

	now := m.cfg.Now()
	trimmed := m.ctx.Messages[:len(m.ctx.Messages)-1]
	trimmed = append(trimmed, model.NewTextMessage(model.SenderPaula, script.messageKey, now))
	if script.withExamplePost {
		trimmed = append(trimmed, model.NewPostMessage(model.SenderEcho, m.cfg.ExamplePost, now))
	}
	m.ctx.Messages = trimmed
	m.ctx.Typing = false

	if script.autoComplete {
		m.scheduleAutoCompleteLocked()
	}

	update := Update{
		Kind:       UpdateReveal,
		State:      m.state,
		Context:    copyContext(m.ctx),
		MessageKey: script.messageKey,
	}
	m.mu.Unlock()
	m.notify(update)
}

// autoComplete 二级定时回调：example → completed，无需用户事件。
func (m *Machine) autoComplete(gen uint64) {
	m.mu.Lock()
	if m.closed || gen != m.gen || m.state != StateExample {
		m.mu.Unlock()
		return
	}
	m.cancelPendingLocked()
	m.state = StateCompleted
	m.ctx.Typing = false
	m.gen++

	update := Update{
		Kind:    UpdateAutoComplete,
		State:   m.state,
		Context: copyContext(m.ctx),
	}
	m.mu.Unlock()
	m.notify(update)
}

// Close 取消全部挂起的定时器（组件卸载/会话丢弃时调用）。
func (m *Machine) Close() {
	m.mu.Lock()
	m.closed = true
	m.cancelPendingLocked()
	m.mu.Unlock()
}

// State 当前状态。
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Context 当前上下文的副本。
func (m *Machine) Context() model.OnboardingContext {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyContext(m.ctx)
}

// CurrentOptions 当前状态的选项菜单。example/completed 返回空。
func (m *Machine) CurrentOptions() []model.OnboardingOption {
	m.mu.Lock()
	defer m.mu.Unlock()
	return OptionsFor(m.state)
}

// IsCompleted 是否已到终态。
func (m *Machine) IsCompleted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateCompleted
}

// HasSelectedOption 某个选项 id 是否已被选择过（跨状态的扁平历史）。
// 渲染层用它禁用已点过的按钮。
func (m *Machine) HasSelectedOption(optionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ctx.HasSelectedOption(optionID)
}

// Snapshot 供持久化的 {context, state} 对。
func (m *Machine) Snapshot() model.ConversationSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return model.ConversationSnapshot{
		Context: copyContext(m.ctx),
		State:   string(m.state),
	}
}

func (m *Machine) cancelPendingLocked() {
	for _, cancel := range m.cancels {
		cancel()
	}
	m.cancels = m.cancels[:0]
}

func (m *Machine) trailingTypingLocked() bool {
	n := len(m.ctx.Messages)
	return n > 0 && m.ctx.Messages[n-1].Kind == model.MessageTyping
}

func (m *Machine) notify(u Update) {
	if m.cfg.OnUpdate != nil {
		m.cfg.OnUpdate(u)
	}
}

func copyContext(ctx model.OnboardingContext) model.OnboardingContext {
	out := model.OnboardingContext{
		Messages:        make([]model.Message, len(ctx.Messages)),
		SelectedOptions: make([]string, len(ctx.SelectedOptions)),
		Typing:          ctx.Typing,
	}
	copy(out.Messages, ctx.Messages)
	copy(out.SelectedOptions, ctx.SelectedOptions)
	return out
}
