package pipeline

import (
	"sync"

	"github.com/iabetor/haberbot/internal/logger"
)

// State 表示一次运行所处的阶段。
type State int

const (
	// StateStart 尚未开始。
	StateStart State = iota
	// StateFetching 正在抓取订阅源。
	StateFetching
	// StateSelecting 合并并挑选最新条目。
	StateSelecting
	// StateEnriching 为当前条目生成摘要和配图。
	StateEnriching
	// StateWriting 写入当前条目。
	StateWriting
	// StateFallbackCheck 检查是否需要占位文章。
	StateFallbackCheck
	// StateDone 正常结束。
	StateDone
	// StateFailed 遇到无法恢复的错误。
	StateFailed
)

var stateNames = [...]string{
	"Start",
	"Fetching",
	"Selecting",
	"Enriching",
	"Writing",
	"FallbackCheck",
	"Done",
	"Failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "Unknown"
}

// Terminal 表示状态是否为终态。
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// StateMachine 管理线程安全的状态转换。
type StateMachine struct {
	mu      sync.RWMutex
	current State
}

// NewStateMachine 创建一个初始状态为 Start 的状态机。
func NewStateMachine() *StateMachine {
	return &StateMachine{current: StateStart}
}

// Current 返回当前状态。
func (sm *StateMachine) Current() State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.current
}

// Transition 尝试切换状态。只有合法的转换才会生效：
//
//	Start         → Fetching
//	Fetching      → Selecting
//	Selecting     → Enriching | FallbackCheck
//	Enriching     → Writing
//	Writing       → Enriching | FallbackCheck
//	FallbackCheck → Done
//
// 任何非终态都可以转换到 Failed。
func (sm *StateMachine) Transition(to State) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !validTransition(sm.current, to) {
		logger.Warnf("[state] 非法转换 %s → %s", sm.current, to)
		return false
	}

	from := sm.current
	sm.current = to
	logger.Debugf("[state] %s → %s", from, to)
	return true
}

// validTransition 检查状态转换是否合法。
func validTransition(from, to State) bool {
	if from.Terminal() {
		return false
	}
	if to == StateFailed {
		return true
	}
	switch from {
	case StateStart:
		return to == StateFetching
	case StateFetching:
		return to == StateSelecting
	case StateSelecting:
		return to == StateEnriching || to == StateFallbackCheck
	case StateEnriching:
		return to == StateWriting
	case StateWriting:
		return to == StateEnriching || to == StateFallbackCheck
	case StateFallbackCheck:
		return to == StateDone
	}
	return false
}
