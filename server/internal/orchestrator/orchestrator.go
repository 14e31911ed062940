package orchestrator

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"prebunk/server/internal/content"
	"prebunk/server/internal/game"
	"prebunk/server/internal/model"
	"prebunk/server/internal/onboarding"
	"prebunk/server/internal/session"
	"prebunk/server/internal/timeline"
)

// ConversationView 对外暴露的对话只读派生状态。
type ConversationView struct {
	SessionID      string                   `json:"session_id"`
	State          string                   `json:"state"`
	Messages       []model.Message          `json:"messages"`
	Typing         bool                     `json:"typing"`
	CurrentOptions []model.OnboardingOption `json:"current_options"`
	IsCompleted    bool                     `json:"is_completed"`
	Selected       []string                 `json:"selected_options"`
}

// GameView 对外暴露的游戏只读派生状态。
type GameView struct {
	SessionID            string                  `json:"session_id"`
	Answers              map[string]model.Answer `json:"answers"`
	CurrentQuestionIndex int                     `json:"current_question_index"`
	CurrentQuestionID    string                  `json:"current_question_id,omitempty"`
	Credibility          int                     `json:"credibility"`
	Points               int                     `json:"points"`
	Disabled             map[string]bool         `json:"disabled"`
}

// AnswerResult 一次作答的结果。
// Accepted 为 false 表示服务端按门禁/写一次不变量拒绝了这次写入
// （非当前题、或已答过），对状态没有任何影响。
type AnswerResult struct {
	Accepted      bool         `json:"accepted"`
	Correct       bool         `json:"correct"`
	Answer        model.Answer `json:"answer"`
	CorrectAnswer model.Answer `json:"correct_answer"`
	WhyKey        string       `json:"why_key"`
	Credibility   int          `json:"credibility"`
	Points        int          `json:"points"`
}

// UpdatePublisher 向已连接的客户端推送对话更新（由网关实现）。
type UpdatePublisher func(sessionID string, u onboarding.Update)

// 答错扣 5 点可信度、答对加 100 积分。
const (
	credibilityPenalty = 5
	pointsPerCorrect   = 100
)

// Orchestrator 负责把引导对话机、游戏进度、可信度、时间线与
// 快照存储编排在一起。
//
// 职责与契约：
// - append-first：接受的输入先写 Timeline，再保存快照，保证可回放。
// - 对话快照每次 dispatch/reveal 后写回，完成后清除（对齐前端把
//   localStorage entry 删掉的行为）。
// - 定时揭示产生的异步更新通过 UpdatePublisher 推给网关。
type Orchestrator struct {
	store    session.Store
	timeline timeline.Store
	library  *content.Library
	sched    onboarding.Scheduler
	now      func() time.Time

	typingDelay       time.Duration
	autoCompleteDelay time.Duration

	mu       sync.Mutex
	machines map[string]*onboarding.Machine
	games    map[string]*gameRuntime

	publish UpdatePublisher
}

type gameRuntime struct {
	progress    *game.Progress
	credibility *game.Credibility
}

func New(store session.Store, tl timeline.Store, library *content.Library, sched onboarding.Scheduler, now func() time.Time) *Orchestrator {
	if sched == nil {
		sched = onboarding.NewTimerScheduler()
	}
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		store:    store,
		timeline: tl,
		library:  library,
		sched:    sched,
		now:      now,
		machines: make(map[string]*onboarding.Machine),
		games:    make(map[string]*gameRuntime),
	}
}

// SetPublisher 注入网关推送回调。必须在开始接收请求之前设置。
func (o *Orchestrator) SetPublisher(p UpdatePublisher) { o.publish = p }

// SetPacing 覆盖对话节奏。零值保留引擎默认（打字 1s、示例自动完成 2s）。
func (o *Orchestrator) SetPacing(typingDelay, autoCompleteDelay time.Duration) {
	o.typingDelay = typingDelay
	o.autoCompleteDelay = autoCompleteDelay
}

// ---- 引导对话 ----

// CreateConversation 创建新的引导会话。
// requestedID 非空且存在持久化快照时恢复该会话（页面刷新场景），
// 否则开新会话。
func (o *Orchestrator) CreateConversation(ctx context.Context, requestedID string) (ConversationView, error) {
	if requestedID != "" {
		if view, err := o.GetConversation(ctx, requestedID); err == nil {
			return view, nil
		}
	}

	id := requestedID
	if id == "" {
		id = "C_" + uuid.NewString()
	}

	m := o.newMachine(id, nil)
	o.mu.Lock()
	o.machines[id] = m
	o.mu.Unlock()

	evt := model.Event{Type: model.EventSessionCreated, ServerTS: o.now()}
	if _, err := o.timeline.Append(ctx, id, &evt); err != nil {
		return ConversationView{}, fmt.Errorf("append session_created: %w", err)
	}
	if err := o.saveConversation(ctx, id, m); err != nil {
		return ConversationView{}, err
	}
	return o.viewConversation(id, m), nil
}

// GetConversation 返回会话的派生状态。活跃机器优先，其次从快照恢复。
func (o *Orchestrator) GetConversation(ctx context.Context, id string) (ConversationView, error) {
	m, err := o.machine(ctx, id)
	if err != nil {
		return ConversationView{}, err
	}
	return o.viewConversation(id, m), nil
}

// DispatchOption 把用户的选项事件派发进状态机。
// 机器对非法事件静默吸收，此时返回的视图与调用前一致。
func (o *Orchestrator) DispatchOption(ctx context.Context, id string, evt onboarding.OptionEvent) (ConversationView, error) {
	m, err := o.machine(ctx, id)
	if err != nil {
		return ConversationView{}, err
	}
	m.Dispatch(evt)
	return o.viewConversation(id, m), nil
}

// Timeline 返回会话的事件日志。
func (o *Orchestrator) Timeline(ctx context.Context, id string) ([]model.Event, error) {
	return o.timeline.List(ctx, id)
}

// machine 取活跃机器，没有就从快照恢复并重新挂接定时链。
func (o *Orchestrator) machine(ctx context.Context, id string) (*onboarding.Machine, error) {
	o.mu.Lock()
	if m, ok := o.machines[id]; ok {
		o.mu.Unlock()
		return m, nil
	}
	o.mu.Unlock()

	snap, err := o.store.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if m, ok := o.machines[id]; ok {
		return m, nil
	}
	m := o.newMachine(id, snap)
	o.machines[id] = m
	return m, nil
}

func (o *Orchestrator) newMachine(id string, snap *model.ConversationSnapshot) *onboarding.Machine {
	cfg := onboarding.Config{
		TypingDelay:       o.typingDelay,
		AutoCompleteDelay: o.autoCompleteDelay,
		ExamplePost:       o.library.ExamplePost(),
		Scheduler:         o.sched,
		Now:               o.now,
		OnUpdate:          func(u onboarding.Update) { o.onConversationUpdate(id, u) },
	}
	if snap == nil {
		return onboarding.New(cfg)
	}
	return onboarding.Restore(cfg, snap.Context, onboarding.State(snap.State))
}

// onConversationUpdate 机器的更新钩子：写时间线、维护快照、推给网关。
// 定时回调里没有请求上下文，统一用 Background。
func (o *Orchestrator) onConversationUpdate(id string, u onboarding.Update) {
	ctx := context.Background()
	now := o.now()

	evt := model.Event{State: string(u.State), ServerTS: now}
	switch u.Kind {
	case onboarding.UpdateDispatch:
		evt.Type = model.EventOptionSelected
		if u.Event != nil {
			evt.Option = string(u.Event.Type)
			evt.OptionText = u.Event.OptionText
		}
	case onboarding.UpdateReveal:
		evt.Type = model.EventReveal
		evt.MessageKey = u.MessageKey
	case onboarding.UpdateAutoComplete:
		evt.Type = model.EventAutoComplete
	}
	if _, err := o.timeline.Append(ctx, id, &evt); err != nil {
		log.Printf("[Orchestrator] append %s for %s: %v", evt.Type, id, err)
	}

	if u.State == onboarding.StateCompleted {
		// 完成即清除持久化条目，下次进入引导重新开始。
		if err := o.store.DeleteConversation(ctx, id); err != nil {
			log.Printf("[Orchestrator] delete conversation %s: %v", id, err)
		}
		o.mu.Lock()
		if m, ok := o.machines[id]; ok {
			m.Close()
			delete(o.machines, id)
		}
		o.mu.Unlock()
	} else {
		snap := model.ConversationSnapshot{SessionID: id, Context: u.Context, State: string(u.State)}
		if err := o.store.SaveConversation(ctx, &snap); err != nil {
			log.Printf("[Orchestrator] save conversation %s: %v", id, err)
		}
	}

	if o.publish != nil {
		o.publish(id, u)
	}
}

func (o *Orchestrator) saveConversation(ctx context.Context, id string, m *onboarding.Machine) error {
	if m.IsCompleted() {
		return o.store.DeleteConversation(ctx, id)
	}
	snap := m.Snapshot()
	snap.SessionID = id
	if err := o.store.SaveConversation(ctx, &snap); err != nil {
		return fmt.Errorf("save conversation %s: %w", id, err)
	}
	return nil
}

func (o *Orchestrator) viewConversation(id string, m *onboarding.Machine) ConversationView {
	ctx := m.Context()
	return ConversationView{
		SessionID:      id,
		State:          string(m.State()),
		Messages:       ctx.Messages,
		Typing:         ctx.Typing,
		CurrentOptions: m.CurrentOptions(),
		IsCompleted:    m.IsCompleted(),
		Selected:       ctx.SelectedOptions,
	}
}

// ---- 游戏进度 ----

// CreateGame 创建一局新游戏：全量题目按内容库顺序。
func (o *Orchestrator) CreateGame(ctx context.Context) (GameView, error) {
	id := "G_" + uuid.NewString()
	rt := &gameRuntime{
		progress:    game.NewProgress(o.library.QuestionIDs()),
		credibility: game.NewCredibility(),
	}
	o.mu.Lock()
	o.games[id] = rt
	o.mu.Unlock()

	evt := model.Event{Type: model.EventSessionCreated, ServerTS: o.now()}
	if _, err := o.timeline.Append(ctx, id, &evt); err != nil {
		return GameView{}, fmt.Errorf("append session_created: %w", err)
	}
	if err := o.saveGame(ctx, id, rt); err != nil {
		return GameView{}, err
	}
	return o.viewGame(id, rt), nil
}

// GetGame 返回一局游戏的派生状态。
func (o *Orchestrator) GetGame(ctx context.Context, id string) (GameView, error) {
	rt, err := o.game(ctx, id)
	if err != nil {
		return GameView{}, err
	}
	return o.viewGame(id, rt), nil
}

// SubmitAnswer 记录一次作答并按规则结算：
// 答错 credibility = max(0, credibility-5)；答对积分 +100，可信度不动。
// 写一次不变量与顺序门禁在这里强制：已答过或非当前题都拒绝。
func (o *Orchestrator) SubmitAnswer(ctx context.Context, id, questionID string, answer model.Answer) (AnswerResult, error) {
	rt, err := o.game(ctx, id)
	if err != nil {
		return AnswerResult{}, err
	}
	question, ok := o.library.Question(questionID)
	if !ok {
		return AnswerResult{}, fmt.Errorf("question %q: %w", questionID, session.ErrNotFound)
	}

	result := AnswerResult{
		Answer:        answer,
		CorrectAnswer: question.CorrectAnswer,
		Credibility:   rt.credibility.Credibility(),
		Points:        rt.credibility.Points(),
	}
	if !answer.Valid() || rt.progress.IsPostDisabled(questionID) {
		return result, nil
	}
	// 写一次的裁决必须落在 SetAnswer 的锁内：并发重复提交时只有
	// 第一个写入者结算，其余按已答拒绝，分数与时间线都只动一次。
	if !rt.progress.SetAnswer(questionID, answer) {
		return result, nil
	}
	result.Accepted = true
	result.Correct = answer == question.CorrectAnswer
	if result.Correct {
		result.WhyKey = question.WhyCorrectAnswer
		rt.credibility.SetPoints(rt.credibility.Points() + pointsPerCorrect)
	} else {
		result.WhyKey = question.WhyIncorrectAnswer
		next := rt.credibility.Credibility() - credibilityPenalty
		if next < 0 {
			next = 0
		}
		rt.credibility.SetCredibility(next)
	}
	result.Credibility = rt.credibility.Credibility()
	result.Points = rt.credibility.Points()

	evt := model.Event{
		Type:       model.EventAnswerSubmitted,
		QuestionID: questionID,
		Answer:     answer,
		Correct:    result.Correct,
		ServerTS:   o.now(),
	}
	if _, err := o.timeline.Append(ctx, id, &evt); err != nil {
		return result, fmt.Errorf("append answer_submitted: %w", err)
	}
	if err := o.saveGame(ctx, id, rt); err != nil {
		return result, err
	}
	return result, nil
}

// AdvanceQuestion 当前题已答时前进到下一题，否则 no-op。
func (o *Orchestrator) AdvanceQuestion(ctx context.Context, id string) (GameView, error) {
	rt, err := o.game(ctx, id)
	if err != nil {
		return GameView{}, err
	}

	before := rt.progress.CurrentQuestionIndex()
	rt.progress.MoveToNextQuestion()
	after := rt.progress.CurrentQuestionIndex()

	if after != before {
		evt := model.Event{Type: model.EventQuestionAdvanced, ServerTS: o.now()}
		if _, err := o.timeline.Append(ctx, id, &evt); err != nil {
			return GameView{}, fmt.Errorf("append question_advanced: %w", err)
		}
		if err := o.saveGame(ctx, id, rt); err != nil {
			return GameView{}, err
		}
	}
	return o.viewGame(id, rt), nil
}

// ResetGame 把一局游戏打回初始局面：清空答案、回到第一题、
// 可信度与积分恢复默认（原版 resetGame 的“再来一局”语义）。
func (o *Orchestrator) ResetGame(ctx context.Context, id string) (GameView, error) {
	rt, err := o.game(ctx, id)
	if err != nil {
		return GameView{}, err
	}

	rt.progress.Reset()
	rt.credibility.SetCredibility(game.DefaultCredibility)
	rt.credibility.SetPoints(0)

	evt := model.Event{Type: model.EventGameReset, ServerTS: o.now()}
	if _, err := o.timeline.Append(ctx, id, &evt); err != nil {
		return GameView{}, fmt.Errorf("append game_reset: %w", err)
	}
	if err := o.saveGame(ctx, id, rt); err != nil {
		return GameView{}, err
	}
	return o.viewGame(id, rt), nil
}

// DeleteGame 丢弃一局游戏：移除活跃运行时并清除持久化快照。
// 会话本就不存在时同样按 ErrNotFound 返回。
func (o *Orchestrator) DeleteGame(ctx context.Context, id string) error {
	if _, err := o.game(ctx, id); err != nil {
		return err
	}
	o.mu.Lock()
	delete(o.games, id)
	o.mu.Unlock()
	return o.store.DeleteGame(ctx, id)
}

func (o *Orchestrator) game(ctx context.Context, id string) (*gameRuntime, error) {
	o.mu.Lock()
	if rt, ok := o.games[id]; ok {
		o.mu.Unlock()
		return rt, nil
	}
	o.mu.Unlock()

	snap, err := o.store.GetGame(ctx, id)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if rt, ok := o.games[id]; ok {
		return rt, nil
	}
	rt := &gameRuntime{
		progress:    game.RestoreProgress(o.library.QuestionIDs(), *snap),
		credibility: game.RestoreCredibility(snap.Credibility, snap.Points),
	}
	o.games[id] = rt
	return rt, nil
}

func (o *Orchestrator) saveGame(ctx context.Context, id string, rt *gameRuntime) error {
	snap := rt.progress.Snapshot()
	snap.SessionID = id
	snap.Credibility = rt.credibility.Credibility()
	snap.Points = rt.credibility.Points()
	if err := o.store.SaveGame(ctx, &snap); err != nil {
		return fmt.Errorf("save game %s: %w", id, err)
	}
	return nil
}

func (o *Orchestrator) viewGame(id string, rt *gameRuntime) GameView {
	snap := rt.progress.Snapshot()
	disabled := make(map[string]bool, o.library.Len())
	for _, qid := range o.library.QuestionIDs() {
		disabled[qid] = rt.progress.IsPostDisabled(qid)
	}
	currentID, _ := rt.progress.CurrentQuestionID()
	return GameView{
		SessionID:            id,
		Answers:              snap.Answers,
		CurrentQuestionIndex: snap.CurrentQuestionIndex,
		CurrentQuestionID:    currentID,
		Credibility:          rt.credibility.Credibility(),
		Points:               rt.credibility.Points(),
		Disabled:             disabled,
	}
}
