package cdc

// State is the consumer's position in its connection lifecycle.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
	Subscribed
	Consuming
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Subscribed:
		return "subscribed"
	case Consuming:
		return "consuming"
	default:
		return "unknown"
	}
}
