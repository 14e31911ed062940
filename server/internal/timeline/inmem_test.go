package timeline

import (
	"context"
	"testing"

	"prebunk/server/internal/model"
)

// TestAppendAssignsMonotonicSeq 验证 seq 按 session 单调递增。
// 场景：同一 session 连续追加，seq 从 1 开始逐一递增；另一个 session
// 的 seq 独立计数。
func TestAppendAssignsMonotonicSeq(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	for i := 1; i <= 3; i++ {
		evt := model.Event{Type: model.EventOptionSelected}
		seq, err := store.Append(ctx, "C_1", &evt)
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		if seq != int64(i) || evt.Seq != int64(i) {
			t.Fatalf("expected seq %d, got %d (backfilled %d)", i, seq, evt.Seq)
		}
	}

	other := model.Event{Type: model.EventSessionCreated}
	if seq, _ := store.Append(ctx, "C_2", &other); seq != 1 {
		t.Fatalf("expected independent seq per session, got %d", seq)
	}
}

// TestAppendIsIdempotentByEventID 验证按 EventID 的幂等去重。
// 场景：相同 EventID 的第二次追加返回第一次的 seq，日志里只有一条。
func TestAppendIsIdempotentByEventID(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	first := model.Event{Type: model.EventOptionSelected, EventID: "evt-1"}
	seq1, _ := store.Append(ctx, "C_1", &first)

	dup := model.Event{Type: model.EventOptionSelected, EventID: "evt-1"}
	seq2, err := store.Append(ctx, "C_1", &dup)
	if err != nil {
		t.Fatalf("duplicate append: %v", err)
	}
	if seq2 != seq1 {
		t.Fatalf("expected duplicate to reuse seq %d, got %d", seq1, seq2)
	}

	events, _ := store.List(ctx, "C_1")
	if len(events) != 1 {
		t.Fatalf("expected single stored event, got %d", len(events))
	}
}

// TestListReturnsCopy 验证 List 返回副本。
// 场景：修改 List 的返回值不影响存储内部的事件。
func TestListReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	evt := model.Event{Type: model.EventReveal, MessageKey: "step1.greeting"}
	_, _ = store.Append(ctx, "C_1", &evt)

	events, _ := store.List(ctx, "C_1")
	events[0].MessageKey = "tampered"

	again, _ := store.List(ctx, "C_1")
	if again[0].MessageKey != "step1.greeting" {
		t.Fatalf("list result is not a copy: %+v", again[0])
	}
}
