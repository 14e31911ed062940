package onboarding

import (
	"time"

	"prebunk/server/internal/model"
)

// State 引导对话状态。completed 是终态，没有出边。
type State string

const (
	StateInitial   State = "initial"
	StateStep2     State = "step2"
	StateStep3     State = "step3"
	StateExample   State = "example"
	StateCompleted State = "completed"
)

// EventType 事件类型：合法取值是各状态的选项 id，外加内部的 auto-complete。
type EventType string

const (
	Option1Step1 EventType = "option1-step1"
	Option2Step1 EventType = "option2-step1"
	Option3Step1 EventType = "option3-step1"
	Option1Step2 EventType = "option1-step2"
	Option2Step2 EventType = "option2-step2"
	Option3Step2 EventType = "option3-step2"
	Option1Step3 EventType = "option1-step3"
	Option2Step3 EventType = "option2-step3"

	// eventAutoComplete 只由 example 状态的二级定时器内部派发，
	// 从外部进来时按非法事件静默吸收。
	eventAutoComplete EventType = "AUTO_COMPLETE"
)

// OptionEvent 用户选择选项产生的事件。
// OptionText 是用户消息的翻译 key，不是展示文案。
type OptionEvent struct {
	Type       EventType `json:"type"`
	OptionText string    `json:"option_text"`
}

// transitions 状态转移表。任何不在表里的 (state, event) 组合都是 no-op。
var transitions = map[State]map[EventType]State{
	StateInitial: {
		Option1Step1: StateCompleted,
		Option2Step1: StateStep2,
		Option3Step1: StateExample,
	},
	StateStep2: {
		Option1Step2: StateCompleted,
		Option2Step2: StateStep3,
		Option3Step2: StateExample,
	},
	StateStep3: {
		Option1Step3: StateCompleted,
		Option2Step3: StateExample,
	},
	StateExample: {
		eventAutoComplete: StateCompleted,
	},
}

// revealScript 每个状态进入后定时揭示的引导消息剧本。
type revealScript struct {
	messageKey string
	// withExamplePost 揭示时是否在引导消息后追加嵌入的示例帖子。
	withExamplePost bool
	// autoComplete 揭示后是否再挂一个定时器自动走向 completed。
	autoComplete bool
}

var reveals = map[State]revealScript{
	StateInitial: {messageKey: "step1.greeting"},
	StateStep2:   {messageKey: "step2.explanation", withExamplePost: true},
	StateStep3:   {messageKey: "step3.tips"},
	StateExample: {messageKey: "example.message", autoComplete: true},
}

// optionMenus 每个状态的静态选项菜单。example/completed 没有选项。
var optionMenus = map[State][]model.OnboardingOption{
	StateInitial: {
		{ID: string(Option1Step1), TranslationKey: "step1.option1"},
		{ID: string(Option2Step1), TranslationKey: "step1.option2"},
		{ID: string(Option3Step1), TranslationKey: "step1.option3"},
	},
	StateStep2: {
		{ID: string(Option1Step2), TranslationKey: "step2.option1"},
		{ID: string(Option2Step2), TranslationKey: "step2.option2"},
		{ID: string(Option3Step2), TranslationKey: "step2.option3"},
	},
	StateStep3: {
		{ID: string(Option1Step3), TranslationKey: "step3.option1"},
		{ID: string(Option2Step3), TranslationKey: "step3.option2"},
	},
}

// OptionsFor 返回某个状态的选项菜单（副本，调用方可随意修改）。
func OptionsFor(state State) []model.OnboardingOption {
	menu := optionMenus[state]
	out := make([]model.OnboardingOption, len(menu))
	copy(out, menu)
	return out
}

// NewContext 新会话的种子上下文：Paula 的 typing 占位已经挂在日志里，
// 等 initial 状态的定时器把它替换成 step1.greeting。
func NewContext(now time.Time) model.OnboardingContext {
	return model.OnboardingContext{
		Messages: []model.Message{model.NewTypingMessage(model.SenderPaula, now)},
		Typing:   true,
	}
}
