package cache

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Class identifies a content class with its own TTL policy. Volatility of the
// underlying source dominates: appointment data changes on every booking, so
// it expires fastest of the content classes.
type Class string

const (
	ClassKnowledge    Class = "knowledge"
	ClassSession      Class = "session"
	ClassConversation Class = "conversation"
	ClassAdmin        Class = "admin"
	ClassAppointment  Class = "appointment"
	ClassRealtime     Class = "realtime"
)

const (
	knowledgeTTL    = time.Hour
	sessionTTL      = 30 * time.Minute
	conversationTTL = 15 * time.Minute
	adminTTL        = 10 * time.Minute
	appointmentTTL  = 5 * time.Minute
	realtimeTTL     = time.Minute
)

// TTLForClass returns the retention for a content class.
func TTLForClass(class Class) time.Duration {
	switch class {
	case ClassKnowledge:
		return knowledgeTTL
	case ClassSession:
		return sessionTTL
	case ClassConversation:
		return conversationTTL
	case ClassAdmin:
		return adminTTL
	case ClassAppointment:
		return appointmentTTL
	case ClassRealtime:
		return realtimeTTL
	default:
		return realtimeTTL
	}
}

// TTLFor resolves a key's TTL from its class prefix. Unknown prefixes get the
// shortest retention rather than the longest.
func TTLFor(key string) time.Duration {
	prefix, _, _ := strings.Cut(key, ":")
	switch prefix {
	case "knowledge", "faq", "chatbot":
		return knowledgeTTL
	case "session", "preferences":
		return sessionTTL
	case "conversation":
		return conversationTTL
	case "admin", "dashboard":
		return adminTTL
	case "appointment", "calendar":
		return appointmentTTL
	default:
		return realtimeTTL
	}
}

// ResponseKey builds the response-cache key for a query. The query is
// normalized and hashed so paraphrase-equivalent questions hit the same entry;
// the context hash scopes the entry to tenant, mode and profile completeness
// so entries never leak across organizations. Raw free text never appears in
// a key.
func ResponseKey(orgID, mode string, profileComplete bool, query string) string {
	qHash := md5Hex(NormalizeQuery(query))[:12]
	ctxHash := md5Hex(fmt.Sprintf("%s|%s|%t", orgID, mode, profileComplete))[:8]
	return fmt.Sprintf("chatbot:response:%s:%s", ctxHash, qHash)
}

// SessionKey caches the visitor profile snapshot for a session.
func SessionKey(orgID, sessionID string) string {
	return fmt.Sprintf("session:%s:%s", orgID, sessionID)
}

// ConversationKey caches the recent context window for a session.
func ConversationKey(orgID, sessionID string) string {
	return fmt.Sprintf("conversation:%s:%s", orgID, sessionID)
}

// AppointmentSlotsKey caches the formatted availability listing for an org.
func AppointmentSlotsKey(orgID string) string {
	return fmt.Sprintf("appointment:slots:%s", orgID)
}

// ResponsePrefix returns the pattern covering all cached responses for an
// org+mode+completeness context, for targeted invalidation.
func ResponsePrefix(orgID, mode string, profileComplete bool) string {
	ctxHash := md5Hex(fmt.Sprintf("%s|%s|%t", orgID, mode, profileComplete))[:8]
	return fmt.Sprintf("chatbot:response:%s:*", ctxHash)
}

// NormalizeQuery lowercases, strips punctuation and collapses whitespace so
// trivially different phrasings map to the same cache entry.
func NormalizeQuery(query string) string {
	query = strings.ToLower(strings.TrimSpace(query))
	var b strings.Builder
	b.Grow(len(query))
	lastSpace := false
	for _, r := range query {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace && b.Len() > 0 {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
