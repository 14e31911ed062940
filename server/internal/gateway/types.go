package gateway

import (
	"time"

	"prebunk/server/internal/model"
)

// EventType 网关处理的事件类型。
type EventType string

const (
	// 客户端入站事件。
	EventTypeOptionSelect EventType = "option_select" // 用户点选一个引导选项

	// 服务端出站事件。
	EventTypeConversation EventType = "conversation"  // 对话状态推送（dispatch/reveal/auto_complete）
	EventTypeAnswerResult EventType = "answer_result" // 作答结算推送
	EventTypeError        EventType = "error"
)

// ClientMessage 客户端发给网关的消息（WebSocket 文本帧）。
type ClientMessage struct {
	Type       EventType `json:"type"`
	EventID    string    `json:"event_id,omitempty"` // 幂等去重
	Option     string    `json:"option,omitempty"`   // 选项 id
	OptionText string    `json:"option_text,omitempty"`
	ClientTS   time.Time `json:"client_ts,omitempty"`
}

// ServerMessage 网关推给客户端的消息。
// Kind 标注这次推送由什么引起：dispatch / reveal / auto_complete。
type ServerMessage struct {
	Type        EventType                `json:"type"`
	Kind        string                   `json:"kind,omitempty"`
	Seq         int64                    `json:"seq,omitempty"`
	State       string                   `json:"state,omitempty"`
	Messages    []model.Message          `json:"messages,omitempty"`
	Typing      bool                     `json:"typing"`
	Options     []model.OnboardingOption `json:"options,omitempty"`
	IsCompleted bool                     `json:"is_completed"`
	Answer      *AnswerResult            `json:"answer,omitempty"` // Type == answer_result
	ServerTS    time.Time                `json:"server_ts"`
	Error       string                   `json:"error,omitempty"`
}

// AnswerResult 作答结算的推送载荷。
type AnswerResult struct {
	QuestionID  string       `json:"question_id"`
	Accepted    bool         `json:"accepted"`
	Correct     bool         `json:"correct"`
	Answer      model.Answer `json:"answer"`
	Credibility int          `json:"credibility"`
	Points      int          `json:"points"`
}
