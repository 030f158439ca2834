package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"dalgoctl/internal/types"
)

var (
	bucketConsoleState = []byte("console_state")
	bucketNodes        = []byte("nodes")
	keyConsoleState    = []byte("state")
)

type bboltRepository struct {
	db      *bolt.DB
	console ConsoleStateStore
	nodes   NodeStore
}

func NewBboltRepository(path string) (Repository, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("repository db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := initBboltSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &bboltRepository{
		db:      db,
		console: &bboltConsoleStateStore{db: db},
		nodes:   &bboltNodeStore{db: db, now: nowUTC},
	}, nil
}

func (r *bboltRepository) ConsoleState() ConsoleStateStore {
	return r.console
}

func (r *bboltRepository) Nodes() NodeStore {
	return r.nodes
}

func (r *bboltRepository) Backend() string {
	return RepositoryBackendBbolt
}

func (r *bboltRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func initBboltSchema(db *bolt.DB) error {
	return db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketConsoleState, bucketNodes} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
}

type bboltConsoleStateStore struct {
	db *bolt.DB
}

func (s *bboltConsoleStateStore) Load(ctx context.Context) (*types.ConsoleState, error) {
	state := &types.ConsoleState{}
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketConsoleState)
		if b == nil {
			return nil
		}
		raw := b.Get(keyConsoleState)
		if len(raw) == 0 {
			return nil
		}
		return json.Unmarshal(raw, state)
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

func (s *bboltConsoleStateStore) Save(ctx context.Context, state *types.ConsoleState) error {
	if state == nil {
		return errors.New("state is required")
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketConsoleState)
		if b == nil {
			return errors.New("console state bucket missing")
		}
		return b.Put(keyConsoleState, raw)
	})
}

type bboltNodeStore struct {
	db  *bolt.DB
	mu  sync.Mutex
	now func() time.Time
}

func (s *bboltNodeStore) List(ctx context.Context) ([]*types.NodeRecord, error) {
	out := make([]*types.NodeRecord, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			var record types.NodeRecord
			if err := json.Unmarshal(v, &record); err != nil {
				return err
			}
			out = append(out, cloneNodeRecord(&record))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sortNodeRecords(out)
	return out, nil
}

func (s *bboltNodeStore) Get(ctx context.Context, id string) (*types.NodeRecord, bool, error) {
	var (
		out *types.NodeRecord
		ok  bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		if b == nil {
			return nil
		}
		raw := b.Get([]byte(strings.TrimSpace(id)))
		if len(raw) == 0 {
			return nil
		}
		var record types.NodeRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			return err
		}
		out = cloneNodeRecord(&record)
		ok = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, ok, nil
}

func (s *bboltNodeStore) Upsert(ctx context.Context, node types.Node) (*types.NodeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := newNodeRecord(node, s.now())
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(cloneNodeRecord(record))
	if err != nil {
		return nil, err
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		if b == nil {
			return errors.New("nodes bucket missing")
		}
		return b.Put([]byte(record.Node.ID), raw)
	})
	if err != nil {
		return nil, err
	}
	return cloneNodeRecord(record), nil
}

func (s *bboltNodeStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := []byte(strings.TrimSpace(id))
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		if b == nil {
			return errors.New("nodes bucket missing")
		}
		if b.Get(key) == nil {
			return ErrNodeNotFound
		}
		return b.Delete(key)
	})
}
