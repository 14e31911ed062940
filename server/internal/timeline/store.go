package timeline

import (
	"context"

	"prebunk/server/internal/model"
)

// Store 每个会话的 append-only 事件日志。
// 选项点击、消息揭示、自动完成、作答都先落在这里再改快照，
// 保证整局游戏可回放。
type Store interface {
	// Append 以 append-first 的契约写入，返回本次写入的 seq。
	// 约定：同一 session 的 seq 单调递增；相同 EventID 幂等返回同一 seq。
	Append(ctx context.Context, sessionID string, evt *model.Event) (int64, error)
	// List 返回该 session 的全量事件（按 seq 顺序），用于回放与验收。
	List(ctx context.Context, sessionID string) ([]model.Event, error)
}
