// Package repository persists ledger snapshots and the notice journal
// in a local BoltDB file.
//
// The `ledger` bucket holds the latest snapshot under a single key; the
// `journal` bucket holds notices keyed by a big-endian write sequence.
// The journal is an audit trail: it is appended and listed, never read
// back into ledger state.
package repository

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/okian/vouch/internal/domain/ledger"
	"github.com/okian/vouch/internal/domain/model"
	"github.com/okian/vouch/pkg/logger"
	"github.com/okian/vouch/pkg/metrics"
)

const (
	ledgerBucket  = "ledger"
	journalBucket = "journal"
	stateKey      = "state"
)

// Archive provides durable storage for ledger snapshots and notices.
type Archive interface {
	// SaveState overwrites the archived ledger snapshot.
	SaveState(ctx context.Context, snap ledger.Snapshot) error

	// LoadState returns the archived ledger snapshot.
	// Returns ErrNoState if nothing has been archived yet.
	LoadState(ctx context.Context) (ledger.Snapshot, error)

	// AppendNotice adds a notice to the journal.
	AppendNotice(ctx context.Context, n model.Notice) error

	// Recent returns up to n journaled notices, newest first.
	Recent(ctx context.Context, n int) ([]model.Notice, error)

	// Close releases the underlying database.
	Close() error
}

// Store provides a BoltDB-backed archive.
type Store struct {
	db  *bbolt.DB
	log logger.Logger
}

// Open opens a BoltDB-backed archive at the provided path.
func Open(path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("archive path is required")
	}

	cleanPath := filepath.Clean(path)
	db, err := bbolt.Open(cleanPath, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open archive db: %w", err)
	}

	store := &Store{
		db:  db,
		log: logger.Get().Named("archive"),
	}

	for _, opt := range opts {
		opt(store)
	}

	if err := store.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying BoltDB database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveState overwrites the archived ledger snapshot.
func (s *Store) SaveState(ctx context.Context, snap ledger.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("archive is not configured")
	}

	start := time.Now()

	payload, err := json.Marshal(snap)
	if err != nil {
		metrics.RecordArchiveError()
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(ledgerBucket))
		if bucket == nil {
			return fmt.Errorf("ledger bucket is missing")
		}
		return bucket.Put([]byte(stateKey), payload)
	})
	if err != nil {
		metrics.RecordArchiveError()
		return fmt.Errorf("save snapshot: %w", err)
	}

	metrics.RecordArchiveSnapshot(float64(time.Since(start).Milliseconds()))
	s.log.Debug(ctx, "snapshot archived",
		logger.Int("profiles", len(snap.Profiles)),
		logger.Int("bytes", len(payload)),
	)
	return nil
}

// LoadState returns the archived ledger snapshot.
func (s *Store) LoadState(ctx context.Context) (ledger.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Snapshot{}, err
	}
	if s == nil || s.db == nil {
		return ledger.Snapshot{}, fmt.Errorf("archive is not configured")
	}

	var snap ledger.Snapshot
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(ledgerBucket))
		if bucket == nil {
			return fmt.Errorf("ledger bucket is missing")
		}
		payload := bucket.Get([]byte(stateKey))
		if payload == nil {
			return ErrNoState
		}
		if err := json.Unmarshal(payload, &snap); err != nil {
			return fmt.Errorf("unmarshal snapshot: %w", err)
		}
		return nil
	})
	if err != nil {
		return ledger.Snapshot{}, err
	}

	return snap, nil
}

// AppendNotice adds a notice to the journal.
func (s *Store) AppendNotice(ctx context.Context, n model.Notice) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("archive is not configured")
	}

	payload, err := json.Marshal(n)
	if err != nil {
		metrics.RecordArchiveError()
		return fmt.Errorf("marshal notice: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(journalBucket))
		if bucket == nil {
			return fmt.Errorf("journal bucket is missing")
		}
		seq, err := bucket.NextSequence()
		if err != nil {
			return fmt.Errorf("next journal sequence: %w", err)
		}
		return bucket.Put(journalKey(seq), payload)
	})
	if err != nil {
		metrics.RecordArchiveError()
		return fmt.Errorf("append notice: %w", err)
	}

	metrics.RecordJournalAppend()
	return nil
}

// Recent returns up to n journaled notices, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]model.Notice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("archive is not configured")
	}
	if n <= 0 {
		return nil, ErrInvalidLimit
	}

	out := make([]model.Notice, 0, n)
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(journalBucket))
		if bucket == nil {
			return fmt.Errorf("journal bucket is missing")
		}
		c := bucket.Cursor()
		for k, v := c.Last(); k != nil && len(out) < n; k, v = c.Prev() {
			var notice model.Notice
			if err := json.Unmarshal(v, &notice); err != nil {
				return fmt.Errorf("unmarshal notice: %w", err)
			}
			out = append(out, notice)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (s *Store) ensureBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{ledgerBucket, journalBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create %s bucket: %w", name, err)
			}
		}
		return nil
	})
}

func journalKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
