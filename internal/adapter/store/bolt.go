package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"
	"repolens/internal/domain"
	"repolens/internal/port"
)

var (
	bucketRepos = []byte("repos")
	bucketMeta  = []byte("meta")
)

// BoltStore persists index entries in a bbolt file. Every repository is a
// nested bucket under "repos", so Clear is a single bucket deletion.
type BoltStore struct {
	db *bbolt.DB
}

type storedEntry struct {
	Seq      uint64               `json:"s"`
	Vector   []float64            `json:"v"`
	Content  string               `json:"c"`
	Metadata domain.ChunkMetadata `json:"m"`
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketRepos, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) DB() *bbolt.DB {
	return s.db
}

func (s *BoltStore) Save(_ context.Context, repoID string, entry domain.IndexEntry) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.Bucket(bucketRepos).CreateBucketIfNotExists([]byte(repoID))
		if err != nil {
			return fmt.Errorf("failed to create repository bucket: %w", err)
		}

		key := []byte(entry.ChunkID)
		stored := storedEntry{
			Vector:   entry.Vector,
			Content:  entry.Content,
			Metadata: entry.Metadata,
		}

		// keep the position of an overwritten entry
		if prev := b.Get(key); prev != nil {
			var old storedEntry
			if err := json.Unmarshal(prev, &old); err == nil {
				stored.Seq = old.Seq
			}
		}
		if stored.Seq == 0 {
			seq, err := b.NextSequence()
			if err != nil {
				return err
			}
			stored.Seq = seq
		}

		data, err := json.Marshal(stored)
		if err != nil {
			return err
		}
		return b.Put(key, data)
	})
}

func (s *BoltStore) Get(_ context.Context, repoID string) ([]domain.IndexEntry, error) {
	type seqEntry struct {
		seq   uint64
		entry domain.IndexEntry
	}
	var loaded []seqEntry

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketRepos).Bucket([]byte(repoID))
		if b == nil {
			return nil
		}

		return b.ForEach(func(k, v []byte) error {
			var stored storedEntry
			if err := json.Unmarshal(v, &stored); err != nil {
				return fmt.Errorf("corrupted entry %s: %w", k, err)
			}
			loaded = append(loaded, seqEntry{
				seq: stored.Seq,
				entry: domain.IndexEntry{
					ChunkID:  string(k),
					Vector:   stored.Vector,
					Content:  stored.Content,
					Metadata: stored.Metadata,
				},
			})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(loaded, func(i, j int) bool {
		return loaded[i].seq < loaded[j].seq
	})

	entries := make([]domain.IndexEntry, len(loaded))
	for i, l := range loaded {
		entries[i] = l.entry
	}
	return entries, nil
}

func (s *BoltStore) Clear(_ context.Context, repoID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		err := tx.Bucket(bucketRepos).DeleteBucket([]byte(repoID))
		if errors.Is(err, bbolt.ErrBucketNotFound) {
			return nil
		}
		return err
	})
}

func (s *BoltStore) Count(_ context.Context, repoID string) (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketRepos).Bucket([]byte(repoID))
		if b == nil {
			return nil
		}
		n = b.Stats().KeyN
		return nil
	})
	return n, err
}

// Repos lists the ids of every stored repository.
func (s *BoltStore) Repos() ([]string, error) {
	var ids []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRepos).ForEach(func(k, v []byte) error {
			if v == nil {
				ids = append(ids, string(k))
			}
			return nil
		})
	})
	return ids, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

var _ port.VectorStore = (*BoltStore)(nil)
