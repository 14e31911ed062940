package model

import (
	"time"

	"github.com/google/uuid"
)

// MessageSender 消息发送者。
type MessageSender string

const (
	SenderPaula MessageSender = "paula" // 引导员（虚拟角色 Paula）
	SenderEcho  MessageSender = "echo"  // 示例帖子的发布者
	SenderUser  MessageSender = "user"
)

// MessageKind 消息变体标签。
// Message 是一个闭合和类型：Kind 决定哪个变体字段有效，
// 消费侧必须对三个变体做穷尽匹配。
type MessageKind string

const (
	MessageText   MessageKind = "text"   // Text 字段有效，内容是翻译 key
	MessagePost   MessageKind = "post"   // Post 字段有效
	MessageTyping MessageKind = "typing" // 占位消息，正在“输入中”
)

// Post 嵌入对话的社交帖子。
// ContentKey 是翻译 key，正文由渲染层按 locale 解析。
type Post struct {
	Name       string `json:"name" yaml:"name"`
	Handle     string `json:"handle" yaml:"handle"`
	ContentKey string `json:"content_key" yaml:"content_key"`
	MediaURL   string `json:"media_url,omitempty" yaml:"media_url,omitempty"`
	MediaType  string `json:"media_type,omitempty" yaml:"media_type,omitempty"`
}

// Message 对话消息。
// 约定：消息日志 append-only，唯一允许的“修改”是把末尾的 typing
// 占位整体替换为一条真实消息（slice 掉最后一个再 append）。
// Text 里永远只存翻译 key，不存任何展示文案。
type Message struct {
	ID        string        `json:"id"`
	Sender    MessageSender `json:"sender"`
	Kind      MessageKind   `json:"kind"`
	Timestamp time.Time     `json:"timestamp"`

	Text string `json:"text,omitempty"` // Kind == MessageText
	Post *Post  `json:"post,omitempty"` // Kind == MessagePost
}

// NewTextMessage 创建一条文本消息，text 是翻译 key。
func NewTextMessage(sender MessageSender, text string, now time.Time) Message {
	return Message{
		ID:        newMessageID(),
		Sender:    sender,
		Kind:      MessageText,
		Text:      text,
		Timestamp: now,
	}
}

// NewPostMessage 创建一条帖子消息。
func NewPostMessage(sender MessageSender, post Post, now time.Time) Message {
	return Message{
		ID:        newMessageID(),
		Sender:    sender,
		Kind:      MessagePost,
		Post:      &post,
		Timestamp: now,
	}
}

// NewTypingMessage 创建一条 typing 占位消息。
func NewTypingMessage(sender MessageSender, now time.Time) Message {
	return Message{
		ID:        newMessageID(),
		Sender:    sender,
		Kind:      MessageTyping,
		Timestamp: now,
	}
}

func newMessageID() string {
	return "msg_" + uuid.NewString()
}

// OnboardingContext 引导对话的上下文快照。
// SelectedOptions 按选择顺序累积用户点过的全部选项 id，永不清理：
// 它既是审计轨迹，也是“选项是否已选过”的判定输入。
// Typing 镜像“末尾消息是否为 typing 占位”。
type OnboardingContext struct {
	Messages        []Message `json:"messages"`
	SelectedOptions []string  `json:"selected_options"`
	Typing          bool      `json:"typing"`
}

// HasSelectedOption 判断某个选项 id 是否已被选择过。
// 注意：历史是跨状态的扁平列表，不按状态分组。当前数据里选项 id
// 形如 optionN-stepM 天然不冲突，判定因此等价于按状态判定。
func (c *OnboardingContext) HasSelectedOption(optionID string) bool {
	for _, id := range c.SelectedOptions {
		if id == optionID {
			return true
		}
	}
	return false
}

// OnboardingOption 当前状态下可供用户选择的一个选项。
// 选项菜单完全由状态派生，不存进上下文。
type OnboardingOption struct {
	ID             string `json:"id"`
	TranslationKey string `json:"translation_key"`
}

// ConversationSnapshot 持久化的 {context, state} 对。
// 集成层在每次 dispatch 之后写回，完成后清除。
type ConversationSnapshot struct {
	SessionID string            `json:"session_id"`
	Context   OnboardingContext `json:"context"`
	State     string            `json:"state"`
}
