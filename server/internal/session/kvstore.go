package session

import (
	"context"
	"fmt"

	"prebunk/server/internal/kv"
	"prebunk/server/internal/model"
)

// 持久化 key 前缀，与前端 localStorage 的 key 约定保持同族。
const (
	keyOnboardingState = "chat_onboarding_state:"
	keyGameState       = "game_state:"
)

// KVStore 架在键值适配器上的会话存储。
// 适配器选内存实现就是单机内存 store，选 SQLite/Redis 就有了持久化，
// 上层代码完全不感知。
type KVStore struct {
	kv kv.Store
}

func NewKVStore(store kv.Store) *KVStore {
	return &KVStore{kv: store}
}

func (s *KVStore) GetConversation(ctx context.Context, id string) (*model.ConversationSnapshot, error) {
	var snap model.ConversationSnapshot
	found, err := s.kv.GetItem(ctx, keyOnboardingState+id, &snap)
	if err != nil {
		return nil, fmt.Errorf("get conversation %s: %w", id, err)
	}
	if !found {
		return nil, ErrNotFound
	}
	return &snap, nil
}

func (s *KVStore) SaveConversation(ctx context.Context, snap *model.ConversationSnapshot) error {
	return s.kv.SetItem(ctx, keyOnboardingState+snap.SessionID, snap)
}

func (s *KVStore) DeleteConversation(ctx context.Context, id string) error {
	return s.kv.RemoveItem(ctx, keyOnboardingState+id)
}

func (s *KVStore) GetGame(ctx context.Context, id string) (*model.GameSnapshot, error) {
	var snap model.GameSnapshot
	found, err := s.kv.GetItem(ctx, keyGameState+id, &snap)
	if err != nil {
		return nil, fmt.Errorf("get game %s: %w", id, err)
	}
	if !found {
		return nil, ErrNotFound
	}
	return &snap, nil
}

func (s *KVStore) SaveGame(ctx context.Context, snap *model.GameSnapshot) error {
	return s.kv.SetItem(ctx, keyGameState+snap.SessionID, snap)
}

func (s *KVStore) DeleteGame(ctx context.Context, id string) error {
	return s.kv.RemoveItem(ctx, keyGameState+id)
}
