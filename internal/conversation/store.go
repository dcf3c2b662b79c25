package conversation

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MessageStore persists conversation turns to PostgreSQL for long-term
// history. A nil store is a valid no-op, so history persistence can be
// switched off without touching call sites.
type MessageStore struct {
	db *sql.DB
}

func NewMessageStore(db *sql.DB) *MessageStore {
	if db == nil {
		return nil
	}
	return &MessageStore{db: db}
}

// StoredMessage is one persisted turn.
type StoredMessage struct {
	ID        uuid.UUID
	OrgID     string
	SessionID string
	Role      string
	Content   string
	Mode      string
	CreatedAt time.Time
}

// Append writes one message. Empty content is skipped.
func (s *MessageStore) Append(ctx context.Context, orgID, sessionID, role, content, mode string) error {
	if s == nil || s.db == nil {
		return nil
	}
	if strings.TrimSpace(content) == "" {
		return nil
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversation_messages (id, org_id, session_id, role, content, mode, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		uuid.New(), orgID, sessionID, role, content, mode,
	)
	if err != nil {
		return fmt.Errorf("conversation: appending message: %w", err)
	}
	return nil
}

// Recent returns up to limit messages for the session in chronological
// order, oldest first.
func (s *MessageStore) Recent(ctx context.Context, orgID, sessionID string, limit int) ([]StoredMessage, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, org_id, session_id, role, content, mode, created_at
		FROM (
			SELECT id, org_id, session_id, role, content, mode, created_at
			FROM conversation_messages
			WHERE org_id = $1 AND session_id = $2
			ORDER BY created_at DESC
			LIMIT $3
		) recent
		ORDER BY created_at ASC`,
		orgID, sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("conversation: loading recent messages: %w", err)
	}
	defer rows.Close()

	var messages []StoredMessage
	for rows.Next() {
		var m StoredMessage
		if err := rows.Scan(&m.ID, &m.OrgID, &m.SessionID, &m.Role, &m.Content, &m.Mode, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("conversation: scanning message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("conversation: iterating messages: %w", err)
	}
	return messages, nil
}

// CountUserMessages returns the visitor-side message count over the whole
// session, independent of the bounded context window.
func (s *MessageStore) CountUserMessages(ctx context.Context, orgID, sessionID string) (int, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM conversation_messages
		WHERE org_id = $1 AND session_id = $2 AND role = $3`,
		orgID, sessionID, ChatRoleUser,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("conversation: counting user messages: %w", err)
	}
	return count, nil
}

// History converts stored messages into chat turns for prompt assembly.
func History(messages []StoredMessage) []ChatMessage {
	out := make([]ChatMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, ChatMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

// AssistantTexts extracts the assistant-side contents, oldest first.
func AssistantTexts(messages []StoredMessage) []string {
	var out []string
	for _, m := range messages {
		if m.Role == ChatRoleAssistant {
			out = append(out, m.Content)
		}
	}
	return out
}

// UserTexts extracts the visitor-side contents, oldest first.
func UserTexts(messages []StoredMessage) []string {
	var out []string
	for _, m := range messages {
		if m.Role == ChatRoleUser {
			out = append(out, m.Content)
		}
	}
	return out
}
