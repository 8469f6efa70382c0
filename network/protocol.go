package network

// Message ids carried in the first two bytes of every frame.
const (
	MsgTypeHeartbeat    = 1
	MsgTypeSubscribe    = 101
	MsgTypeUnsubscribe  = 102
	MsgTypeNotification = 301
	MsgTypeNavigate     = 302
	MsgTypeViewState    = 303
)

// MsgName is used in logs and by the CLI listener.
func MsgName(msgID uint16) string {
	switch msgID {
	case MsgTypeHeartbeat:
		return "heartbeat"
	case MsgTypeSubscribe:
		return "subscribe"
	case MsgTypeUnsubscribe:
		return "unsubscribe"
	case MsgTypeNotification:
		return "notification"
	case MsgTypeNavigate:
		return "navigate"
	case MsgTypeViewState:
		return "view_state"
	default:
		return "unknown"
	}
}
