package services

import "strconv"

// Realtime events published to conversation and user rooms.
const (
	EventReceiveMessage = "receive_message"
	EventAgentJoined    = "agent_joined"
	EventSupportEnded   = "support_ended"
)

// Broadcaster is the room-scoped publish side of the realtime layer.
// Delivery is best-effort to currently connected subscribers; durability
// comes from the persisted message log.
type Broadcaster interface {
	Publish(room string, event string, payload any)
}

// ConversationRoom names the room every participant of a conversation joins.
func ConversationRoom(conversationID int64) string {
	return strconv.FormatInt(conversationID, 10)
}

// UserRoom names the per-user room used for out-of-band notifications.
// Every connection is subscribed to its own user room automatically.
func UserRoom(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10)
}
