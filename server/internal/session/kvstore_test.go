package session

import (
	"context"
	"errors"
	"testing"

	"prebunk/server/internal/kv"
	"prebunk/server/internal/model"
)

// TestKVStoreConversationLifecycle 验证会话快照的存取删。
// 场景：保存后按 id 取回同样的 {context, state}，删除后返回 ErrNotFound。
func TestKVStoreConversationLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewKVStore(kv.NewMemoryStore())

	if _, err := store.GetConversation(ctx, "C_1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	snap := model.ConversationSnapshot{
		SessionID: "C_1",
		State:     "step2",
		Context: model.OnboardingContext{
			SelectedOptions: []string{"option2-step1"},
			Typing:          true,
		},
	}
	if err := store.SaveConversation(ctx, &snap); err != nil {
		t.Fatalf("save conversation: %v", err)
	}

	got, err := store.GetConversation(ctx, "C_1")
	if err != nil {
		t.Fatalf("get conversation: %v", err)
	}
	if got.State != "step2" || !got.Context.Typing || len(got.Context.SelectedOptions) != 1 {
		t.Fatalf("snapshot mismatch: %+v", got)
	}

	if err := store.DeleteConversation(ctx, "C_1"); err != nil {
		t.Fatalf("delete conversation: %v", err)
	}
	if _, err := store.GetConversation(ctx, "C_1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

// TestKVStoreGameLifecycle 验证游戏快照的存取删。
// 场景：答案表、下标、可信度、积分全部原样还原。
func TestKVStoreGameLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewKVStore(kv.NewMemoryStore())

	snap := model.GameSnapshot{
		SessionID:            "G_1",
		Answers:              map[string]model.Answer{"1": model.AnswerLike},
		CurrentQuestionIndex: 1,
		Credibility:          75,
		Points:               100,
	}
	if err := store.SaveGame(ctx, &snap); err != nil {
		t.Fatalf("save game: %v", err)
	}

	got, err := store.GetGame(ctx, "G_1")
	if err != nil {
		t.Fatalf("get game: %v", err)
	}
	if got.CurrentQuestionIndex != 1 || got.Credibility != 75 || got.Points != 100 {
		t.Fatalf("snapshot mismatch: %+v", got)
	}
	if got.Answers["1"] != model.AnswerLike {
		t.Fatalf("answers not restored: %+v", got.Answers)
	}

	if err := store.DeleteGame(ctx, "G_1"); err != nil {
		t.Fatalf("delete game: %v", err)
	}
	if _, err := store.GetGame(ctx, "G_1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

// TestKVStoreKeysAreNamespaced 验证两类快照互不串台。
// 场景：同一个 id 的会话快照与游戏快照各存各取。
func TestKVStoreKeysAreNamespaced(t *testing.T) {
	ctx := context.Background()
	store := NewKVStore(kv.NewMemoryStore())

	_ = store.SaveConversation(ctx, &model.ConversationSnapshot{SessionID: "S_1", State: "initial"})
	if _, err := store.GetGame(ctx, "S_1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("conversation snapshot leaked into game namespace: %v", err)
	}
}
