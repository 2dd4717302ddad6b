package repository

import (
	"context"

	"github.com/peddireddyrohith/ChatbotForEgovernence/internal/models"
)

type MessageRepository struct {
	db DBTX
}

func NewMessageRepository(db DBTX) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(
	ctx context.Context,
	conversationID int64,
	sender string,
	text string,
) (*models.ChatMessage, error) {
	query := `
		INSERT INTO messages (conversation_id, sender, text)
		VALUES ($1, $2, $3)
		RETURNING id, conversation_id, sender, text, created_at
	`

	var message models.ChatMessage
	err := r.db.QueryRow(ctx, query, conversationID, sender, text).Scan(
		&message.ID,
		&message.ConversationID,
		&message.Sender,
		&message.Text,
		&message.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &message, nil
}

// ListByConversation returns the full transcript in chronological order.
func (r *MessageRepository) ListByConversation(
	ctx context.Context,
	conversationID int64,
) ([]models.ChatMessage, error) {
	query := `
		SELECT id, conversation_id, sender, text, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, id ASC
	`
	return r.list(ctx, query, conversationID)
}

// ListRecent returns the newest messages first, up to limit. Callers that
// need chronological order reverse the slice themselves.
func (r *MessageRepository) ListRecent(
	ctx context.Context,
	conversationID int64,
	limit int,
) ([]models.ChatMessage, error) {
	query := `
		SELECT id, conversation_id, sender, text, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	return r.list(ctx, query, conversationID, limit)
}

func (r *MessageRepository) list(
	ctx context.Context,
	query string,
	args ...any,
) ([]models.ChatMessage, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]models.ChatMessage, 0)
	for rows.Next() {
		var message models.ChatMessage
		if err := rows.Scan(
			&message.ID,
			&message.ConversationID,
			&message.Sender,
			&message.Text,
			&message.CreatedAt,
		); err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}
