package model

import "time"

// 时间线事件类型。
const (
	EventSessionCreated   = "session_created"
	EventOptionSelected   = "option_selected"
	EventReveal           = "reveal"
	EventAutoComplete     = "auto_complete"
	EventAnswerSubmitted  = "answer_submitted"
	EventQuestionAdvanced = "question_advanced"
	EventGameReset        = "game_reset"
)

// Event 时间线中的一个事件。
// 约定：append-first —— 任何输入先写时间线再改快照，保证可回放。
type Event struct {
	// Seq 由存储分配的单调序号，用于回放与幂等。
	Seq int64 `json:"seq,omitempty"`
	// SessionID 由编排器补齐，客户端可不传。
	SessionID string `json:"session_id,omitempty"`
	// EventID 用于去重与重试幂等，客户端可传 UUID。
	EventID string `json:"event_id,omitempty"`

	Type string `json:"type"`

	// 引导对话相关字段。
	Option     string `json:"option,omitempty"`      // 被选中的选项 id
	OptionText string `json:"option_text,omitempty"` // 用户消息的翻译 key
	State      string `json:"state,omitempty"`       // 事件发生后的机器状态
	MessageKey string `json:"message_key,omitempty"` // reveal 出的引导消息 key

	// 答题相关字段。
	QuestionID string `json:"question_id,omitempty"`
	Answer     Answer `json:"answer,omitempty"`
	Correct    bool   `json:"correct,omitempty"`

	ClientTS time.Time `json:"client_ts,omitempty"`
	ServerTS time.Time `json:"server_ts,omitempty"`
}
