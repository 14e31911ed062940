// Package kv 提供持久化适配器端口：按 key 读写 JSON 值。
// 会话快照（对话 {context, state}、游戏进度）都走这套契约，
// 与前端 localStorage 的语义对齐：getItem/setItem/removeItem。
package kv

import "context"

// Store 键值持久化端口。值以 JSON 编码存取。
type Store interface {
	// GetItem 读取 key 并解码到 out（指针）。key 不存在返回 (false, nil)。
	GetItem(ctx context.Context, key string, out any) (bool, error)
	// SetItem 以 JSON 编码写入 value，覆盖旧值。
	SetItem(ctx context.Context, key string, value any) error
	// RemoveItem 删除 key。key 不存在不算错误。
	RemoveItem(ctx context.Context, key string) error
	// Close 释放底层资源。内存实现为 no-op。
	Close() error
}
