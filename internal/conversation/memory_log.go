package conversation

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MessageLog is the conversation history store the orchestrator writes every
// turn through. MessageStore is the durable implementation; MemoryLog backs
// development and tests.
// CountUserMessages exists because the contact policy's turn bounds apply to
// the whole session, not to the bounded context window Recent returns.
type MessageLog interface {
	Append(ctx context.Context, orgID, sessionID, role, content, mode string) error
	Recent(ctx context.Context, orgID, sessionID string, limit int) ([]StoredMessage, error)
	CountUserMessages(ctx context.Context, orgID, sessionID string) (int, error)
}

// MemoryLog keeps history in process memory.
type MemoryLog struct {
	mu       sync.RWMutex
	messages map[string][]StoredMessage
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{messages: make(map[string][]StoredMessage)}
}

func logKey(orgID, sessionID string) string {
	return orgID + "/" + sessionID
}

func (l *MemoryLog) Append(ctx context.Context, orgID, sessionID, role, content, mode string) error {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	key := logKey(orgID, sessionID)
	l.messages[key] = append(l.messages[key], StoredMessage{
		ID:        uuid.New(),
		OrgID:     orgID,
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Mode:      mode,
		CreatedAt: time.Now(),
	})
	return nil
}

func (l *MemoryLog) Recent(ctx context.Context, orgID, sessionID string, limit int) ([]StoredMessage, error) {
	if limit <= 0 {
		limit = 10
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	all := l.messages[logKey(orgID, sessionID)]
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	out := make([]StoredMessage, len(all))
	copy(out, all)
	return out, nil
}

func (l *MemoryLog) CountUserMessages(ctx context.Context, orgID, sessionID string) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	count := 0
	for _, m := range l.messages[logKey(orgID, sessionID)] {
		if m.Role == ChatRoleUser {
			count++
		}
	}
	return count, nil
}

var _ MessageLog = (*MemoryLog)(nil)
var _ MessageLog = (*MessageStore)(nil)
