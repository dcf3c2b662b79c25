package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mpeters88/chatdesk/pkg/logging"
)

// Takeover flags live in redis so every API instance sees a takeover the
// moment a human agent claims the session.
const modeKeyPrefix = "agent_mode:"

// DefaultTakeoverTTL matches the session cache window; an agent who walks
// away hands the session back to the bot.
const DefaultTakeoverTTL = 30 * time.Minute

// ModeStore tracks which sessions a human agent has taken over.
type ModeStore struct {
	client *redis.Client
	logger *logging.Logger
	ttl    time.Duration
}

func NewModeStore(client *redis.Client, logger *logging.Logger) *ModeStore {
	if logger == nil {
		logger = logging.Default()
	}
	return &ModeStore{client: client, logger: logger, ttl: DefaultTakeoverTTL}
}

func modeKey(orgID, sessionID string) string {
	return modeKeyPrefix + orgID + ":" + sessionID
}

// Enable marks the session as agent-controlled.
func (s *ModeStore) Enable(ctx context.Context, orgID, sessionID string) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("agent: mode store is not configured")
	}
	if err := s.client.Set(ctx, modeKey(orgID, sessionID), "1", s.ttl).Err(); err != nil {
		return fmt.Errorf("agent: enabling takeover: %w", err)
	}
	return nil
}

// Disable hands the session back to the bot.
func (s *ModeStore) Disable(ctx context.Context, orgID, sessionID string) error {
	if s == nil || s.client == nil {
		return nil
	}
	if err := s.client.Del(ctx, modeKey(orgID, sessionID)).Err(); err != nil {
		return fmt.Errorf("agent: disabling takeover: %w", err)
	}
	return nil
}

// Active reports whether a human agent controls the session. Backend errors
// degrade to false so a redis outage never silences the bot.
func (s *ModeStore) Active(ctx context.Context, orgID, sessionID string) bool {
	if s == nil || s.client == nil {
		return false
	}
	n, err := s.client.Exists(ctx, modeKey(orgID, sessionID)).Result()
	if err != nil {
		s.logger.Warn("agent mode lookup failed", "org_id", orgID, "session_id", sessionID, "error", err)
		return false
	}
	return n > 0
}
