// Package sqlite embedded file backend on modernc.org/sqlite
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gogf/gf/v2/frame/g"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/NikGor/archie-backend/core/errors"
	"github.com/NikGor/archie-backend/internal/model/entity"
)

// BackendName name reported by Store.Name
const BackendName = "sqlite"

// timestamps are stored as fixed-width UTC text so that ORDER BY on the column is chronological
const timeLayout = "2006-01-02T15:04:05.000000Z"

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	conversation_id     TEXT PRIMARY KEY,
	title               TEXT NOT NULL DEFAULT 'New Conversation',
	created_at          TEXT NOT NULL,
	updated_at          TEXT NOT NULL,
	total_input_tokens  INTEGER NOT NULL DEFAULT 0,
	total_output_tokens INTEGER NOT NULL DEFAULT 0,
	total_tokens        INTEGER NOT NULL DEFAULT 0,
	total_cost          TEXT NOT NULL DEFAULT '0.000000'
);
CREATE TABLE IF NOT EXISTS messages (
	message_id          TEXT PRIMARY KEY,
	conversation_id     TEXT NOT NULL REFERENCES conversations(conversation_id),
	role                TEXT NOT NULL CHECK (role IN ('user', 'assistant', 'system')),
	text                TEXT NOT NULL,
	text_format         TEXT NOT NULL DEFAULT 'plain' CHECK (text_format IN ('plain', 'markdown', 'html', 'voice')),
	metadata            TEXT,
	created_at          TEXT NOT NULL,
	previous_message_id TEXT,
	model               TEXT,
	llm_trace           TEXT
);
CREATE INDEX IF NOT EXISTS idx_messages_conversation_id ON messages(conversation_id);
CREATE INDEX IF NOT EXISTS idx_messages_created_at ON messages(created_at);
CREATE INDEX IF NOT EXISTS idx_conversations_created_at ON conversations(created_at);
`

const conversationColumns = `conversation_id, title, created_at, updated_at,
	total_input_tokens, total_output_tokens, total_tokens, total_cost`

const messageColumns = `message_id, conversation_id, role, text, text_format, metadata,
	created_at, previous_message_id, model, llm_trace`

// Store sqlite implementation of storage.Backend
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database file at path and creates the schema
func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// one connection serializes writers and keeps :memory: databases shared
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err = db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if _, err = db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite db: %w", err)
	}

	g.Log().Infof(ctx, "sqlite store opened at %s", path)
	return &Store{db: db}, nil
}

// Name implements storage.Backend
func (s *Store) Name() string {
	return BackendName
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateConversation inserts a new conversation, failing when the id exists
func (s *Store) CreateConversation(ctx context.Context, conv *entity.Conversation) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (`+conversationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (conversation_id) DO NOTHING`,
		conversationArgs(conv)...,
	)
	if err != nil {
		g.Log().Errorf(ctx, "failed to create conversation %s: %v", conv.ConversationID, err)
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.Newf(errors.ErrAlreadyExists, "conversation %s already exists", conv.ConversationID)
	}
	return nil
}

// GetConversation loads one conversation row, (nil, nil) when absent
func (s *Store) GetConversation(ctx context.Context, convID string) (*entity.Conversation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE conversation_id = ?`, convID)
	conv, err := scanConversation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		g.Log().Errorf(ctx, "failed to query conversation %s: %v", convID, err)
		return nil, err
	}
	return conv, nil
}

// ListConversations newest first by created_at
func (s *Store) ListConversations(ctx context.Context, limit int) ([]*entity.Conversation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+conversationColumns+` FROM conversations ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		g.Log().Errorf(ctx, "failed to list conversations: %v", err)
		return nil, err
	}
	defer rows.Close()

	conversations := make([]*entity.Conversation, 0)
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, conv)
	}
	return conversations, rows.Err()
}

// ListConversationIDs newest first by created_at
func (s *Store) ListConversationIDs(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT conversation_id FROM conversations ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		g.Log().Errorf(ctx, "failed to list conversation ids: %v", err)
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SaveMessage upserts the message, creating the parent conversation if needed,
// and bumps the parent's updated_at in the same transaction
func (s *Store) SaveMessage(ctx context.Context, msg *entity.Message) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		now := entity.Now()
		_, err := tx.ExecContext(ctx,
			`INSERT INTO conversations (conversation_id, title, created_at, updated_at) VALUES (?, ?, ?, ?)
			ON CONFLICT (conversation_id) DO NOTHING`,
			msg.ConversationID, entity.DefaultConversationTitle, formatTime(now), formatTime(now),
		)
		if err != nil {
			g.Log().Errorf(ctx, "failed to ensure conversation %s: %v", msg.ConversationID, err)
			return err
		}
		if err = upsertMessage(ctx, tx, msg); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE conversations SET updated_at = ? WHERE conversation_id = ?`,
			formatTime(now), msg.ConversationID,
		)
		if err != nil {
			g.Log().Errorf(ctx, "failed to touch conversation %s: %v", msg.ConversationID, err)
		}
		return err
	})
}

// SaveConversation upserts the conversation row and all of its messages atomically
func (s *Store) SaveConversation(ctx context.Context, conv *entity.Conversation) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO conversations (`+conversationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (conversation_id) DO UPDATE SET
				title = excluded.title,
				created_at = excluded.created_at,
				updated_at = excluded.updated_at,
				total_input_tokens = excluded.total_input_tokens,
				total_output_tokens = excluded.total_output_tokens,
				total_tokens = excluded.total_tokens,
				total_cost = excluded.total_cost`,
			conversationArgs(conv)...,
		)
		if err != nil {
			g.Log().Errorf(ctx, "failed to upsert conversation %s: %v", conv.ConversationID, err)
			return err
		}
		for _, msg := range conv.Messages {
			if err = upsertMessage(ctx, tx, msg); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListMessages orders by created_at, ties broken by insertion order (rowid).
// An upsert keeps the original rowid.
func (s *Store) ListMessages(ctx context.Context, convID string, orderDesc bool) ([]*entity.Message, error) {
	order := "created_at ASC, rowid ASC"
	if orderDesc {
		order = "created_at DESC, rowid DESC"
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE conversation_id = ? ORDER BY `+order, convID)
	if err != nil {
		g.Log().Errorf(ctx, "failed to list messages of %s: %v", convID, err)
		return nil, err
	}
	defer rows.Close()

	messages := make([]*entity.Message, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			g.Log().Errorf(ctx, "failed to read message of %s: %v", convID, err)
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// DeleteConversation removes messages, then the conversation
func (s *Store) DeleteConversation(ctx context.Context, convID string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, convID); err != nil {
			g.Log().Errorf(ctx, "failed to delete messages of %s: %v", convID, err)
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM conversations WHERE conversation_id = ?`, convID); err != nil {
			g.Log().Errorf(ctx, "failed to delete conversation %s: %v", convID, err)
			return err
		}
		return nil
	})
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func upsertMessage(ctx context.Context, tx *sql.Tx, msg *entity.Message) error {
	trace, err := entity.EncodeUsageTrace(msg.LLMTrace)
	if err != nil {
		return fmt.Errorf("encode llm_trace: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages (`+messageColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (message_id) DO UPDATE SET
			conversation_id = excluded.conversation_id,
			role = excluded.role,
			text = excluded.text,
			text_format = excluded.text_format,
			metadata = excluded.metadata,
			created_at = excluded.created_at,
			previous_message_id = excluded.previous_message_id,
			model = excluded.model,
			llm_trace = excluded.llm_trace`,
		msg.MessageID,
		msg.ConversationID,
		string(msg.Role),
		msg.Text,
		string(msg.TextFormat),
		nullableBytes(msg.Metadata, msg.HasMetadata()),
		formatTime(msg.CreatedAt),
		nullableString(msg.PreviousMessageID),
		nullableString(msg.Model),
		nullableBytes(trace, trace != nil),
	)
	if err != nil {
		g.Log().Errorf(ctx, "failed to upsert message %s: %v", msg.MessageID, err)
	}
	return err
}

func conversationArgs(conv *entity.Conversation) []any {
	return []any{
		conv.ConversationID,
		conv.Title,
		formatTime(conv.CreatedAt),
		formatTime(conv.UpdatedAt),
		conv.TotalInputTokens,
		conv.TotalOutputTokens,
		conv.TotalTokens,
		conv.TotalCost.StringFixed(entity.CostPrecision),
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConversation(row scanner) (*entity.Conversation, error) {
	var (
		conv                 entity.Conversation
		createdAt, updatedAt string
		cost                 string
	)
	err := row.Scan(&conv.ConversationID, &conv.Title, &createdAt, &updatedAt,
		&conv.TotalInputTokens, &conv.TotalOutputTokens, &conv.TotalTokens, &cost)
	if err != nil {
		return nil, err
	}
	if conv.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if conv.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if conv.TotalCost, err = decimal.NewFromString(cost); err != nil {
		return nil, fmt.Errorf("parse total_cost %q: %w", cost, err)
	}
	conv.Messages = []*entity.Message{}
	return &conv, nil
}

func scanMessage(row scanner) (*entity.Message, error) {
	var (
		msg                 entity.Message
		role, format        string
		createdAt           string
		metadata, trace     sql.NullString
		previousID, modelID sql.NullString
	)
	err := row.Scan(&msg.MessageID, &msg.ConversationID, &role, &msg.Text, &format, &metadata,
		&createdAt, &previousID, &modelID, &trace)
	if err != nil {
		return nil, err
	}
	msg.Role = entity.Role(role)
	msg.TextFormat = entity.TextFormat(format)
	if metadata.Valid {
		msg.Metadata = []byte(metadata.String)
	}
	if msg.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	msg.PreviousMessageID = previousID.String
	msg.Model = modelID.String
	if trace.Valid {
		if msg.LLMTrace, err = entity.DecodeUsageTrace([]byte(trace.String)); err != nil {
			return nil, fmt.Errorf("decode llm_trace of %s: %w", msg.MessageID, err)
		}
	}
	return &msg, nil
}

func formatTime(t time.Time) string {
	return entity.NormalizeTime(t).Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableBytes(b []byte, ok bool) any {
	if !ok {
		return nil
	}
	return string(b)
}
