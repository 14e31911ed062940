package onboarding

import "time"

// CancelFunc 取消一个尚未触发的定时任务。对已触发/已取消的任务调用无害。
type CancelFunc func()

// Scheduler 单线程协作式的延迟任务端口。
// 引导对话里所有的异步都来自这里：typing 占位在固定延迟后被替换、
// example 状态的二级 auto-complete 定时器。把定时抽成端口后，
// “进入状态 X 调度效果 Y、离开时取消”就变成机器内部的一对钩子，
// 测试里可以注入虚拟时钟逐步推进。
type Scheduler interface {
	Schedule(d time.Duration, fn func()) CancelFunc
}

// TimerScheduler 基于 time.AfterFunc 的默认实现。
type TimerScheduler struct{}

func NewTimerScheduler() TimerScheduler { return TimerScheduler{} }

func (TimerScheduler) Schedule(d time.Duration, fn func()) CancelFunc {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}
