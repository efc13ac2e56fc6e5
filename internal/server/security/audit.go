package security

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"
)

var bucketEvents = []byte("events")

// AuditStore is an append-only BoltDB store for security events
type AuditStore struct {
	db *bbolt.DB
}

// NewAuditStore opens the BoltDB audit database.
// dbPath is the path to the BoltDB database file
func NewAuditStore(dbPath string) (*AuditStore, error) {
	// Открываем BoltDB
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	store := &AuditStore{db: db}

	// Инициализируем bucket
	if err := store.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return store, nil
}

// Close closes the database connection
func (s *AuditStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *AuditStore) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketEvents); err != nil {
			return fmt.Errorf("failed to create events bucket: %w", err)
		}
		return nil
	})
}

// Append stores the event under a monotonically increasing key
func (s *AuditStore) Append(_ context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketEvents)
		if bucket == nil {
			return fmt.Errorf("events bucket not found")
		}

		// NextSequence монотонен в пределах bucket'а, ключи
		// сохраняют порядок записи
		seq, err := bucket.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to get next sequence: %w", err)
		}

		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)

		if err := bucket.Put(key, data); err != nil {
			return fmt.Errorf("failed to put event: %w", err)
		}

		return nil
	})
}

// List returns up to limit most recent events, newest first.
// limit <= 0 returns all events
func (s *AuditStore) List(_ context.Context, limit int) ([]Event, error) {
	var events []Event

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketEvents)
		if bucket == nil {
			return fmt.Errorf("events bucket not found")
		}

		cursor := bucket.Cursor()
		for k, v := cursor.Last(); k != nil; k, v = cursor.Prev() {
			if limit > 0 && len(events) >= limit {
				break
			}

			var event Event
			if err := json.Unmarshal(v, &event); err != nil {
				return fmt.Errorf("failed to unmarshal event: %w", err)
			}
			events = append(events, event)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return events, nil
}
