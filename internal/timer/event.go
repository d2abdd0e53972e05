package timer

// EventType identifies what happened to a timer.
type EventType int

const (
	EventCreated EventType = iota + 1
	EventStarted
	EventPaused
	EventReset
	EventLapped
	EventDeleted
	EventHiddenToggled
	EventExpired
	EventRestored
)

func (e EventType) String() string {
	switch e {
	case EventCreated:
		return "created"
	case EventStarted:
		return "started"
	case EventPaused:
		return "paused"
	case EventReset:
		return "reset"
	case EventLapped:
		return "lapped"
	case EventDeleted:
		return "deleted"
	case EventHiddenToggled:
		return "hidden_toggled"
	case EventExpired:
		return "expired"
	case EventRestored:
		return "restored"
	default:
		return "unknown"
	}
}

// Event carries a copy of the timer as it was right after the change.
type Event struct {
	Type  EventType
	Timer Timer
}

// IsClick reports whether the event came from a user action that gives
// click feedback.
func (e Event) IsClick() bool {
	return e.Type == EventStarted || e.Type == EventPaused || e.Type == EventLapped
}
