package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	// ConversationIDPrefix prefix of generated conversation ids
	ConversationIDPrefix = "conversation"
	// MessageIDPrefix prefix of generated message ids
	MessageIDPrefix = "message"

	idTimestampLayout = "20060102150405"
)

// GenerateID returns "{prefix}-{UTC YYYYMMDDHHMMSS}-{first 8 hex chars of a uuid v4}".
// Ids created within the same second are not ordered relative to each other;
// ordering always goes through created_at.
func GenerateID(prefix string) string {
	timestamp := time.Now().UTC().Format(idTimestampLayout)
	return fmt.Sprintf("%s-%s-%s", prefix, timestamp, uuid.New().String()[:8])
}

// GenerateConversationID generates a conversation id
func GenerateConversationID() string {
	return GenerateID(ConversationIDPrefix)
}

// GenerateMessageID generates a message id
func GenerateMessageID() string {
	return GenerateID(MessageIDPrefix)
}

// Now returns the current UTC time at microsecond precision, which every
// backend stores without loss.
func Now() time.Time {
	return NormalizeTime(time.Now())
}

// NormalizeTime converts t to UTC and truncates it to microseconds
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
