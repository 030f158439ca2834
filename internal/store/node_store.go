package store

import (
	"context"
	"errors"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"dalgoctl/internal/types"
)

var ErrNodeNotFound = errors.New("node not found")

// NodeStore remembers graph nodes the console has opened or created.
type NodeStore interface {
	List(ctx context.Context) ([]*types.NodeRecord, error)
	Get(ctx context.Context, id string) (*types.NodeRecord, bool, error)
	Upsert(ctx context.Context, node types.Node) (*types.NodeRecord, error)
	Delete(ctx context.Context, id string) error
}

type FileNodeStore struct {
	path string
	mu   *sync.Mutex
	now  func() time.Time
}

func NewFileNodeStore(path string) *FileNodeStore {
	return &FileNodeStore{path: path, mu: &sync.Mutex{}, now: nowUTC}
}

func (s *FileNodeStore) List(ctx context.Context) ([]*types.NodeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]*types.NodeRecord, 0, len(file.Nodes))
	for _, record := range file.Nodes {
		out = append(out, cloneNodeRecord(record))
	}
	sortNodeRecords(out)
	return out, nil
}

func (s *FileNodeStore) Get(ctx context.Context, id string) (*types.NodeRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		return nil, false, err
	}
	record, ok := file.Nodes[strings.TrimSpace(id)]
	if !ok {
		return nil, false, nil
	}
	return cloneNodeRecord(record), true, nil
}

func (s *FileNodeStore) Upsert(ctx context.Context, node types.Node) (*types.NodeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := newNodeRecord(node, s.now())
	if err != nil {
		return nil, err
	}
	file, err := s.load()
	if err != nil {
		return nil, err
	}
	file.Nodes[record.Node.ID] = record
	if err := writeJSONAtomic(s.path, file); err != nil {
		return nil, err
	}
	return cloneNodeRecord(record), nil
}

func (s *FileNodeStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if _, ok := file.Nodes[id]; !ok {
		return ErrNodeNotFound
	}
	delete(file.Nodes, id)
	return writeJSONAtomic(s.path, file)
}

func (s *FileNodeStore) load() (*stateFile, error) {
	file := newStateFile()
	if err := readJSON(s.path, file); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return file, nil
		}
		return nil, err
	}
	if file.Nodes == nil {
		file.Nodes = map[string]*types.NodeRecord{}
	}
	return file, nil
}

func newNodeRecord(node types.Node, now time.Time) (*types.NodeRecord, error) {
	node.ID = strings.TrimSpace(node.ID)
	if node.ID == "" {
		return nil, errors.New("node id is required")
	}
	if node.IsDummy {
		return nil, errors.New("dummy nodes are not stored")
	}
	return &types.NodeRecord{Node: node, UpdatedAt: now.UTC()}, nil
}

func cloneNodeRecord(record *types.NodeRecord) *types.NodeRecord {
	if record == nil {
		return nil
	}
	out := *record
	out.Node.OutputCols = append([]string(nil), record.Node.OutputCols...)
	out.Node.ParentNode = nil
	return &out
}

// Most recently touched first.
func sortNodeRecords(records []*types.NodeRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].UpdatedAt.Equal(records[j].UpdatedAt) {
			return records[i].UpdatedAt.After(records[j].UpdatedAt)
		}
		return records[i].Node.ID < records[j].Node.ID
	})
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
