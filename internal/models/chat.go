package models

import "time"

// Conversation statuses. A flagged conversation has been escalated to a
// human operator; the bot stays silent until support ends.
const (
	StatusActive  = "active"
	StatusFlagged = "flagged"

	PriorityLow  = "low"
	PriorityHigh = "high"
)

// Message senders.
const (
	SenderUser  = "user"
	SenderBot   = "bot"
	SenderAdmin = "admin"
)

type Conversation struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	Title      string     `json:"title"`
	Status     string     `json:"status"`
	Priority   string     `json:"priority"`
	AssignedTo *int64     `json:"assigned_to"`
	AssignedAt *time.Time `json:"assigned_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Assigned reports whether an admin currently holds the conversation lock.
func (c *Conversation) Assigned() bool {
	return c.AssignedTo != nil
}

type ChatMessage struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	Sender         string    `json:"sender"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"created_at"`
}

// ConversationSummary is the list-view shape: the conversation plus the
// display names the admin dashboard joins in.
type ConversationSummary struct {
	Conversation
	OwnerName    string  `json:"owner_name"`
	AssignedName *string `json:"assigned_name,omitempty"`
}
