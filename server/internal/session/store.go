package session

import (
	"context"
	"errors"

	"prebunk/server/internal/model"
)

var ErrNotFound = errors.New("session not found")

// Store 会话快照存储。
// 对话快照在每次 dispatch 后写回、完成后清除；游戏快照在每次
// 作答/前进后写回。两类快照各自独立的 key 空间。
type Store interface {
	GetConversation(ctx context.Context, id string) (*model.ConversationSnapshot, error)
	SaveConversation(ctx context.Context, snap *model.ConversationSnapshot) error
	DeleteConversation(ctx context.Context, id string) error

	GetGame(ctx context.Context, id string) (*model.GameSnapshot, error)
	SaveGame(ctx context.Context, snap *model.GameSnapshot) error
	DeleteGame(ctx context.Context, id string) error
}
