// Package bolt embedded key/value backend on go.etcd.io/bbolt.
//
// Layout:
//
//	conversations          conversation_id -> conversationRecord (JSON)
//	messages               message_id      -> messageRecord (JSON)
//	conversation_messages  conversation_id -> sub-bucket: seq (big endian) -> message_id
//
// The sequence numbers come from the parent bucket and record insertion
// order, which breaks created_at ties.
package bolt

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gogf/gf/v2/frame/g"
	"github.com/shopspring/decimal"
	"go.etcd.io/bbolt"

	"github.com/NikGor/archie-backend/core/errors"
	"github.com/NikGor/archie-backend/internal/model/entity"
)

// BackendName name reported by Store.Name
const BackendName = "bolt"

var (
	bucketConversations = []byte("conversations")
	bucketMessages      = []byte("messages")
	bucketIndex         = []byte("conversation_messages")
)

type conversationRecord struct {
	Seq               uint64          `json:"seq"`
	ConversationID    string          `json:"conversation_id"`
	Title             string          `json:"title"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	TotalInputTokens  int64           `json:"total_input_tokens"`
	TotalOutputTokens int64           `json:"total_output_tokens"`
	TotalTokens       int64           `json:"total_tokens"`
	TotalCost         decimal.Decimal `json:"total_cost"`
}

type messageRecord struct {
	Seq     uint64          `json:"seq"`
	Message *entity.Message `json:"message"`
}

// Store bbolt implementation of storage.Backend. bbolt allows a single writer
// per file, so every write transaction is serialized.
type Store struct {
	db *bbolt.DB
}

// Open opens (or creates) the bolt file at path
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketConversations, bucketMessages, bucketIndex} {
			if _, errCreate := tx.CreateBucketIfNotExists(name); errCreate != nil {
				return errCreate
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bolt buckets: %w", err)
	}

	g.Log().Infof(ctx, "bolt store opened at %s", path)
	return &Store{db: db}, nil
}

// Name implements storage.Backend
func (s *Store) Name() string {
	return BackendName
}

// Close closes the bolt file
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateConversation stores a new conversation, failing when the id exists
func (s *Store) CreateConversation(ctx context.Context, conv *entity.Conversation) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketConversations)
		if b.Get([]byte(conv.ConversationID)) != nil {
			return errors.Newf(errors.ErrAlreadyExists, "conversation %s already exists", conv.ConversationID)
		}
		return putConversation(b, conv, 0)
	})
	if err != nil && !errors.HasCode(err, errors.ErrAlreadyExists) {
		g.Log().Errorf(ctx, "failed to create conversation %s: %v", conv.ConversationID, err)
	}
	return err
}

// GetConversation loads one conversation, (nil, nil) when absent
func (s *Store) GetConversation(ctx context.Context, convID string) (*entity.Conversation, error) {
	var rec *conversationRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		rec, err = getConversation(tx.Bucket(bucketConversations), convID)
		return err
	})
	if err != nil {
		g.Log().Errorf(ctx, "failed to read conversation %s: %v", convID, err)
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	return rec.toEntity(), nil
}

// ListConversations newest first by created_at, ties by reverse insertion order
func (s *Store) ListConversations(ctx context.Context, limit int) ([]*entity.Conversation, error) {
	records, err := s.listConversations(limit)
	if err != nil {
		g.Log().Errorf(ctx, "failed to list conversations: %v", err)
		return nil, err
	}
	conversations := make([]*entity.Conversation, 0, len(records))
	for _, rec := range records {
		conversations = append(conversations, rec.toEntity())
	}
	return conversations, nil
}

// ListConversationIDs newest first by created_at
func (s *Store) ListConversationIDs(ctx context.Context, limit int) ([]string, error) {
	records, err := s.listConversations(limit)
	if err != nil {
		g.Log().Errorf(ctx, "failed to list conversation ids: %v", err)
		return nil, err
	}
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.ConversationID)
	}
	return ids, nil
}

func (s *Store) listConversations(limit int) ([]*conversationRecord, error) {
	records := make([]*conversationRecord, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketConversations).ForEach(func(_, v []byte) error {
			var rec conversationRecord
			if err := sonic.Unmarshal(v, &rec); err != nil {
				return err
			}
			records = append(records, &rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].Seq > records[j].Seq
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// SaveMessage upserts the message, creating the parent conversation if needed,
// and bumps the parent's updated_at in the same transaction
func (s *Store) SaveMessage(ctx context.Context, msg *entity.Message) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		now := entity.Now()
		convs := tx.Bucket(bucketConversations)
		rec, err := getConversation(convs, msg.ConversationID)
		if err != nil {
			return err
		}
		if rec == nil {
			rec = &conversationRecord{
				ConversationID: msg.ConversationID,
				Title:          entity.DefaultConversationTitle,
				CreatedAt:      now,
				TotalCost:      decimal.Zero,
			}
		}
		rec.UpdatedAt = now
		if err = putRecord(convs, rec); err != nil {
			return err
		}
		return upsertMessage(tx, msg)
	})
	if err != nil {
		g.Log().Errorf(ctx, "failed to save message %s: %v", msg.MessageID, err)
	}
	return err
}

// SaveConversation upserts the conversation and all of its messages atomically
func (s *Store) SaveConversation(ctx context.Context, conv *entity.Conversation) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		convs := tx.Bucket(bucketConversations)
		existing, err := getConversation(convs, conv.ConversationID)
		if err != nil {
			return err
		}
		var seq uint64
		if existing != nil {
			seq = existing.Seq
		}
		if err = putConversation(convs, conv, seq); err != nil {
			return err
		}
		for _, msg := range conv.Messages {
			if err = upsertMessage(tx, msg); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		g.Log().Errorf(ctx, "failed to save conversation %s: %v", conv.ConversationID, err)
	}
	return err
}

// ListMessages orders by created_at, ties broken by insertion order
func (s *Store) ListMessages(ctx context.Context, convID string, orderDesc bool) ([]*entity.Message, error) {
	records := make([]*messageRecord, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		idx := tx.Bucket(bucketIndex).Bucket([]byte(convID))
		if idx == nil {
			return nil
		}
		msgs := tx.Bucket(bucketMessages)
		return idx.ForEach(func(_, msgID []byte) error {
			rec, err := getMessage(msgs, msgID)
			if err != nil {
				return err
			}
			if rec != nil {
				records = append(records, rec)
			}
			return nil
		})
	})
	if err != nil {
		g.Log().Errorf(ctx, "failed to list messages of %s: %v", convID, err)
		return nil, err
	}

	// the index iterates in sequence order already; the stable sort keeps it for equal timestamps
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Message.CreatedAt.Before(records[j].Message.CreatedAt)
	})
	messages := make([]*entity.Message, len(records))
	for i, rec := range records {
		if orderDesc {
			messages[len(records)-1-i] = rec.Message
		} else {
			messages[i] = rec.Message
		}
	}
	return messages, nil
}

// DeleteConversation removes messages, then the conversation
func (s *Store) DeleteConversation(ctx context.Context, convID string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		index := tx.Bucket(bucketIndex)
		if idx := index.Bucket([]byte(convID)); idx != nil {
			msgs := tx.Bucket(bucketMessages)
			if err := idx.ForEach(func(_, msgID []byte) error {
				return msgs.Delete(msgID)
			}); err != nil {
				return err
			}
			if err := index.DeleteBucket([]byte(convID)); err != nil {
				return err
			}
		}
		return tx.Bucket(bucketConversations).Delete([]byte(convID))
	})
	if err != nil {
		g.Log().Errorf(ctx, "failed to delete conversation %s: %v", convID, err)
	}
	return err
}

// upsertMessage writes the record and keeps the per-conversation index in step.
// A message that already exists keeps its sequence, even when it moves to
// another conversation.
func upsertMessage(tx *bbolt.Tx, msg *entity.Message) error {
	// same constraints the SQL schemas check
	if err := msg.Role.Validate(); err != nil {
		return err
	}
	if err := msg.TextFormat.Validate(); err != nil {
		return err
	}
	msgs := tx.Bucket(bucketMessages)
	index := tx.Bucket(bucketIndex)
	key := []byte(msg.MessageID)

	existing, err := getMessage(msgs, key)
	if err != nil {
		return err
	}

	var seq uint64
	if existing != nil {
		seq = existing.Seq
		if existing.Message.ConversationID != msg.ConversationID {
			if old := index.Bucket([]byte(existing.Message.ConversationID)); old != nil {
				if err = old.Delete(seqKey(seq)); err != nil {
					return err
				}
			}
		}
	} else {
		if seq, err = msgs.NextSequence(); err != nil {
			return err
		}
	}

	idx, err := index.CreateBucketIfNotExists([]byte(msg.ConversationID))
	if err != nil {
		return err
	}
	if err = idx.Put(seqKey(seq), key); err != nil {
		return err
	}

	data, err := sonic.Marshal(&messageRecord{Seq: seq, Message: msg})
	if err != nil {
		return err
	}
	return msgs.Put(key, data)
}

func putConversation(b *bbolt.Bucket, conv *entity.Conversation, seq uint64) error {
	if seq == 0 {
		var err error
		if seq, err = b.NextSequence(); err != nil {
			return err
		}
	}
	return putRecord(b, &conversationRecord{
		Seq:               seq,
		ConversationID:    conv.ConversationID,
		Title:             conv.Title,
		CreatedAt:         conv.CreatedAt,
		UpdatedAt:         conv.UpdatedAt,
		TotalInputTokens:  conv.TotalInputTokens,
		TotalOutputTokens: conv.TotalOutputTokens,
		TotalTokens:       conv.TotalTokens,
		TotalCost:         conv.TotalCost,
	})
}

func putRecord(b *bbolt.Bucket, rec *conversationRecord) error {
	if rec.Seq == 0 {
		var err error
		if rec.Seq, err = b.NextSequence(); err != nil {
			return err
		}
	}
	data, err := sonic.Marshal(rec)
	if err != nil {
		return err
	}
	return b.Put([]byte(rec.ConversationID), data)
}

func getConversation(b *bbolt.Bucket, convID string) (*conversationRecord, error) {
	v := b.Get([]byte(convID))
	if v == nil {
		return nil, nil
	}
	var rec conversationRecord
	if err := sonic.Unmarshal(v, &rec); err != nil {
		return nil, fmt.Errorf("decode conversation %s: %w", convID, err)
	}
	return &rec, nil
}

func getMessage(b *bbolt.Bucket, msgID []byte) (*messageRecord, error) {
	v := b.Get(msgID)
	if v == nil {
		return nil, nil
	}
	var rec messageRecord
	if err := sonic.Unmarshal(v, &rec); err != nil {
		return nil, fmt.Errorf("decode message %s: %w", msgID, err)
	}
	if rec.Message == nil {
		return nil, fmt.Errorf("decode message %s: empty record", msgID)
	}
	rec.Message.CreatedAt = entity.NormalizeTime(rec.Message.CreatedAt)
	return &rec, nil
}

func (r *conversationRecord) toEntity() *entity.Conversation {
	return &entity.Conversation{
		ConversationID:    r.ConversationID,
		Title:             r.Title,
		CreatedAt:         entity.NormalizeTime(r.CreatedAt),
		UpdatedAt:         entity.NormalizeTime(r.UpdatedAt),
		TotalInputTokens:  r.TotalInputTokens,
		TotalOutputTokens: r.TotalOutputTokens,
		TotalTokens:       r.TotalTokens,
		TotalCost:         r.TotalCost,
		Messages:          []*entity.Message{},
	}
}

func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
