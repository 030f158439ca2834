package store

import (
	"context"
	"errors"
	"strings"
	"sync"

	"dalgoctl/internal/config"
	"dalgoctl/internal/types"
)

const (
	RepositoryBackendFile  = config.StorageBackendFile
	RepositoryBackendBbolt = config.StorageBackendBbolt
)

type Repository interface {
	ConsoleState() ConsoleStateStore
	Nodes() NodeStore
	Backend() string
	Close() error
}

type RepositoryPaths struct {
	StatePath string
	DBPath    string
}

// DefaultRepositoryPaths points at the data dir files.
func DefaultRepositoryPaths() (RepositoryPaths, error) {
	statePath, err := config.StatePath()
	if err != nil {
		return RepositoryPaths{}, err
	}
	dbPath, err := config.StateDBPath()
	if err != nil {
		return RepositoryPaths{}, err
	}
	return RepositoryPaths{StatePath: statePath, DBPath: dbPath}, nil
}

type fileRepository struct {
	console ConsoleStateStore
	nodes   NodeStore
}

func NewFileRepository(paths RepositoryPaths) Repository {
	mu := &sync.Mutex{}
	return &fileRepository{
		console: &FileConsoleStateStore{path: paths.StatePath, mu: mu},
		nodes:   &FileNodeStore{path: paths.StatePath, mu: mu, now: nowUTC},
	}
}

func (r *fileRepository) ConsoleState() ConsoleStateStore {
	return r.console
}

func (r *fileRepository) Nodes() NodeStore {
	return r.nodes
}

func (r *fileRepository) Backend() string {
	return RepositoryBackendFile
}

func (r *fileRepository) Close() error {
	return nil
}

func OpenRepository(paths RepositoryPaths, backend string) (Repository, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case RepositoryBackendBbolt:
		if strings.TrimSpace(paths.DBPath) == "" {
			return nil, errors.New("db path is required for bbolt repository")
		}
		return NewBboltRepository(paths.DBPath)
	case "", RepositoryBackendFile:
		if strings.TrimSpace(paths.StatePath) == "" {
			return nil, errors.New("state path is required for file repository")
		}
		return NewFileRepository(paths), nil
	default:
		return nil, errors.New("unsupported repository backend: " + backend)
	}
}

// SeedRepositoryFromFiles copies file-backed state into dst when dst is
// empty, so switching the backend to bbolt keeps the saved location and nodes.
func SeedRepositoryFromFiles(ctx context.Context, dst Repository, paths RepositoryPaths) error {
	if dst == nil || dst.Backend() == RepositoryBackendFile {
		return nil
	}
	src := NewFileRepository(paths)
	defer src.Close()

	if err := seedConsoleState(ctx, dst.ConsoleState(), src.ConsoleState()); err != nil {
		return err
	}
	return seedNodes(ctx, dst.Nodes(), src.Nodes())
}

func seedConsoleState(ctx context.Context, dst ConsoleStateStore, src ConsoleStateStore) error {
	current, err := dst.Load(ctx)
	if err != nil {
		return err
	}
	if !isZeroConsoleState(current) {
		return nil
	}
	legacy, err := src.Load(ctx)
	if err != nil {
		return err
	}
	if isZeroConsoleState(legacy) {
		return nil
	}
	return dst.Save(ctx, legacy)
}

func seedNodes(ctx context.Context, dst NodeStore, src NodeStore) error {
	current, err := dst.List(ctx)
	if err != nil {
		return err
	}
	if len(current) > 0 {
		return nil
	}
	legacy, err := src.List(ctx)
	if err != nil {
		return err
	}
	// Oldest first.
	for i := len(legacy) - 1; i >= 0; i-- {
		if _, err := dst.Upsert(ctx, legacy[i].Node); err != nil {
			return err
		}
	}
	return nil
}

func isZeroConsoleState(state *types.ConsoleState) bool {
	if state == nil {
		return true
	}
	return strings.TrimSpace(string(state.ActiveView)) == "" &&
		strings.TrimSpace(state.LastNodeID) == "" &&
		len(state.Query) == 0
}
