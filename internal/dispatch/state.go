// Package dispatch 前台分发生命周期：随宿主前后台切换启用/关闭标签检测
package dispatch

// Event 宿主生命周期事件
type Event int

const (
	EventLoad Event = iota
	EventResume
	EventPause
)

func (e Event) String() string {
	switch e {
	case EventLoad:
		return "load"
	case EventResume:
		return "resume"
	case EventPause:
		return "pause"
	}
	return "unknown"
}

// ParseEvent 解析事件名（resume/pause/load）
func ParseEvent(s string) (Event, bool) {
	switch s {
	case "load":
		return EventLoad, true
	case "resume":
		return EventResume, true
	case "pause":
		return EventPause, true
	}
	return 0, false
}

// State 分发状态
type State int

const (
	StateDisarmed State = iota
	StateArmed
)

func (s State) String() string {
	if s == StateArmed {
		return "armed"
	}
	return "disarmed"
}

// Availability 标签子系统可用性
type Availability int

const (
	Available Availability = iota
	Unavailable
	Disabled
)

func (a Availability) String() string {
	switch a {
	case Available:
		return "available"
	case Unavailable:
		return "unavailable"
	case Disabled:
		return "disabled"
	}
	return "unknown"
}

// Action 状态转移产生的副作用
type Action int

const (
	ActionNone Action = iota
	ActionArm
	ActionDisarm
	ActionNotifyUnavailable
	ActionPromptEnable
)

// Transition 纯状态转移函数
//
//	load:   不改变状态，无硬件提示不可用，已关闭提示去设置开启
//	resume: 已启用时幂等；可用才启用，不可用时转为 disarmed
//	pause:  无条件转为 disarmed
func Transition(s State, e Event, a Availability) (State, Action) {
	switch e {
	case EventLoad:
		switch a {
		case Unavailable:
			return s, ActionNotifyUnavailable
		case Disabled:
			return s, ActionPromptEnable
		}
		return s, ActionNone
	case EventResume:
		if a != Available {
			// 射频关闭时平台已撤销分发，待用户开启后再次 resume 重新启用
			return StateDisarmed, ActionNone
		}
		if s == StateArmed {
			return s, ActionNone
		}
		return StateArmed, ActionArm
	case EventPause:
		return StateDisarmed, ActionDisarm
	}
	return s, ActionNone
}
