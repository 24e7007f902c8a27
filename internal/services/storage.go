package services

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	. "aktis-pm-agent/internal/common"
	. "aktis-pm-agent/internal/interfaces"
	"aktis-pm-agent/internal/models"

	bolt "go.etcd.io/bbolt"
)

const (
	sessionsBucket = "sessions"
)

// boltHistory keeps one nested bucket per chat session; keys are big-endian
// sequence numbers so a cursor walks turns in append order.
type boltHistory struct {
	db *bolt.DB
}

// NewHistory opens the transcript store at path, or an in-memory one when
// path is empty.
func NewHistory(path string) (ChatHistory, error) {
	if path == "" {
		return NewMemoryHistory(), nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, WrapError(err, ErrorTypeStorage, "mkdir", "failed to create history directory")
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, WrapError(err, ErrorTypeStorage, "open", fmt.Sprintf("failed to open history database %s", path))
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(sessionsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, WrapError(err, ErrorTypeStorage, "buckets", "failed to create buckets")
	}

	return &boltHistory{db: db}, nil
}

func (h *boltHistory) Append(session, sender, message string) (*models.ChatTurn, error) {
	turn := &models.ChatTurn{
		Session: session,
		Sender:  sender,
		Message: message,
		Time:    time.Now().UTC(),
	}

	err := h.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.Bucket([]byte(sessionsBucket)).CreateBucketIfNotExists([]byte(session))
		if err != nil {
			return err
		}

		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		turn.Seq = seq

		data, err := json.Marshal(turn)
		if err != nil {
			return fmt.Errorf("failed to marshal turn: %w", err)
		}

		return bucket.Put(seqKey(seq), data)
	})
	if err != nil {
		return nil, WrapError(err, ErrorTypeStorage, "append", "failed to save chat turn")
	}

	return turn, nil
}

func (h *boltHistory) Load(session string) ([]models.ChatTurn, error) {
	turns := []models.ChatTurn{}

	err := h.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(sessionsBucket)).Bucket([]byte(session))
		if bucket == nil {
			return nil
		}

		c := bucket.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var turn models.ChatTurn
			if err := json.Unmarshal(v, &turn); err != nil {
				continue
			}
			turns = append(turns, turn)
		}
		return nil
	})
	if err != nil {
		return nil, WrapError(err, ErrorTypeStorage, "load", "failed to load chat history")
	}

	return turns, nil
}

func (h *boltHistory) Sessions() ([]string, error) {
	var sessions []string

	err := h.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(sessionsBucket)).ForEach(func(k, v []byte) error {
			if v == nil {
				sessions = append(sessions, string(k))
			}
			return nil
		})
	})
	if err != nil {
		return nil, WrapError(err, ErrorTypeStorage, "sessions", "failed to list sessions")
	}

	return sessions, nil
}

func (h *boltHistory) Clear(session string) error {
	err := h.db.Update(func(tx *bolt.Tx) error {
		err := tx.Bucket([]byte(sessionsBucket)).DeleteBucket([]byte(session))
		if err == bolt.ErrBucketNotFound {
			return nil
		}
		return err
	})
	if err != nil {
		return WrapError(err, ErrorTypeStorage, "clear", "failed to clear chat history")
	}
	return nil
}

func (h *boltHistory) Close() error {
	if h.db != nil {
		return h.db.Close()
	}
	return nil
}

func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}

// memoryHistory is the default transcript: gone when the process exits.
type memoryHistory struct {
	mu       sync.Mutex
	sessions map[string][]models.ChatTurn
}

func NewMemoryHistory() ChatHistory {
	return &memoryHistory{sessions: make(map[string][]models.ChatTurn)}
}

func (h *memoryHistory) Append(session, sender, message string) (*models.ChatTurn, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	turn := models.ChatTurn{
		Session: session,
		Seq:     uint64(len(h.sessions[session]) + 1),
		Sender:  sender,
		Message: message,
		Time:    time.Now().UTC(),
	}
	h.sessions[session] = append(h.sessions[session], turn)
	return &turn, nil
}

func (h *memoryHistory) Load(session string) ([]models.ChatTurn, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	turns := make([]models.ChatTurn, len(h.sessions[session]))
	copy(turns, h.sessions[session])
	return turns, nil
}

func (h *memoryHistory) Sessions() ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sessions := make([]string, 0, len(h.sessions))
	for s := range h.sessions {
		sessions = append(sessions, s)
	}
	sort.Strings(sessions)
	return sessions, nil
}

func (h *memoryHistory) Clear(session string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.sessions, session)
	return nil
}

func (h *memoryHistory) Close() error {
	return nil
}
