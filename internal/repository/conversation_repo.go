package repository

import (
	"context"
	"time"

	"github.com/peddireddyrohith/ChatbotForEgovernence/internal/models"
)

const conversationColumns = `id, user_id, title, status, priority, assigned_to, assigned_at, created_at, updated_at`

type ConversationRepository struct {
	db DBTX
}

func NewConversationRepository(db DBTX) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func scanConversation(row interface{ Scan(dest ...any) error }) (*models.Conversation, error) {
	var conversation models.Conversation
	err := row.Scan(
		&conversation.ID,
		&conversation.UserID,
		&conversation.Title,
		&conversation.Status,
		&conversation.Priority,
		&conversation.AssignedTo,
		&conversation.AssignedAt,
		&conversation.CreatedAt,
		&conversation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

func (r *ConversationRepository) Create(
	ctx context.Context,
	userID int64,
	title string,
) (*models.Conversation, error) {
	query := `
		INSERT INTO conversations (user_id, title)
		VALUES ($1, $2)
		RETURNING ` + conversationColumns

	return scanConversation(r.db.QueryRow(ctx, query, userID, title))
}

func (r *ConversationRepository) GetByID(ctx context.Context, conversationID int64) (*models.Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE id = $1
	`
	return scanConversation(r.db.QueryRow(ctx, query, conversationID))
}

// ListAll returns every conversation for the admin dashboard: flagged/high
// priority first ("high" sorts before "low"), most recently touched next.
func (r *ConversationRepository) ListAll(ctx context.Context) ([]models.ConversationSummary, error) {
	query := `
		SELECT c.id, c.user_id, c.title, c.status, c.priority, c.assigned_to, c.assigned_at,
		       c.created_at, c.updated_at, u.name, a.name
		FROM conversations c
		JOIN users u ON u.id = c.user_id
		LEFT JOIN users a ON a.id = c.assigned_to
		ORDER BY c.priority ASC, c.updated_at DESC
	`
	return r.listSummaries(ctx, query)
}

func (r *ConversationRepository) ListByOwner(ctx context.Context, ownerID int64) ([]models.ConversationSummary, error) {
	query := `
		SELECT c.id, c.user_id, c.title, c.status, c.priority, c.assigned_to, c.assigned_at,
		       c.created_at, c.updated_at, u.name, a.name
		FROM conversations c
		JOIN users u ON u.id = c.user_id
		LEFT JOIN users a ON a.id = c.assigned_to
		WHERE c.user_id = $1
		ORDER BY c.updated_at DESC
	`
	return r.listSummaries(ctx, query, ownerID)
}

func (r *ConversationRepository) listSummaries(
	ctx context.Context,
	query string,
	args ...any,
) ([]models.ConversationSummary, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]models.ConversationSummary, 0)
	for rows.Next() {
		var summary models.ConversationSummary
		if err := rows.Scan(
			&summary.ID,
			&summary.UserID,
			&summary.Title,
			&summary.Status,
			&summary.Priority,
			&summary.AssignedTo,
			&summary.AssignedAt,
			&summary.CreatedAt,
			&summary.UpdatedAt,
			&summary.OwnerName,
			&summary.AssignedName,
		); err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return summaries, nil
}

// Flag escalates the conversation to human handling. Idempotent: flagging
// an already-flagged conversation rewrites the same values. The updated_at
// bump is what orders the support queue.
func (r *ConversationRepository) Flag(ctx context.Context, conversationID int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE conversations
		SET status = 'flagged', priority = 'high', updated_at = NOW()
		WHERE id = $1
	`, conversationID)
	return err
}

// Assign claims the conversation for adminID. The WHERE clause is the
// compare-and-set: it only matches when the lock is free or already held by
// the same admin, so two racing admins cannot both win. Returns
// pgx.ErrNoRows when the row did not match (absent or locked by another).
// Claiming also flags the conversation, keeping the assigned-implies-flagged
// invariant even when an admin takes over an active chat.
func (r *ConversationRepository) Assign(
	ctx context.Context,
	conversationID int64,
	adminID int64,
) (*models.Conversation, error) {
	query := `
		UPDATE conversations
		SET assigned_to = $2, assigned_at = NOW(), status = 'flagged', priority = 'high', updated_at = NOW()
		WHERE id = $1 AND (assigned_to IS NULL OR assigned_to = $2)
		RETURNING ` + conversationColumns

	return scanConversation(r.db.QueryRow(ctx, query, conversationID, adminID))
}

// Release clears the lock unconditionally.
func (r *ConversationRepository) Release(ctx context.Context, conversationID int64) (*models.Conversation, error) {
	query := `
		UPDATE conversations
		SET assigned_to = NULL, assigned_at = NULL, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + conversationColumns

	return scanConversation(r.db.QueryRow(ctx, query, conversationID))
}

// Reset returns the conversation to automated handling and drops any lock.
func (r *ConversationRepository) Reset(ctx context.Context, conversationID int64) (*models.Conversation, error) {
	query := `
		UPDATE conversations
		SET status = 'active', priority = 'low', assigned_to = NULL, assigned_at = NULL, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + conversationColumns

	return scanConversation(r.db.QueryRow(ctx, query, conversationID))
}

func (r *ConversationRepository) Touch(ctx context.Context, conversationID int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE conversations
		SET updated_at = NOW()
		WHERE id = $1
	`, conversationID)
	return err
}

// Delete removes the conversation; messages go with it via ON DELETE CASCADE.
func (r *ConversationRepository) Delete(ctx context.Context, conversationID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM conversations WHERE id = $1`, conversationID)
	return err
}

// CountWaitingBefore counts flagged, unassigned conversations escalated
// before the given updated_at. Queue position is this count plus one.
func (r *ConversationRepository) CountWaitingBefore(ctx context.Context, updatedAt time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM conversations
		WHERE status = 'flagged'
		  AND assigned_to IS NULL
		  AND updated_at < $1
	`, updatedAt).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
