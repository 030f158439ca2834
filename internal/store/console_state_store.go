package store

import (
	"context"
	"errors"
	"os"
	"sync"

	"dalgoctl/internal/types"
)

type ConsoleStateStore interface {
	Load(ctx context.Context) (*types.ConsoleState, error)
	Save(ctx context.Context, state *types.ConsoleState) error
}

type FileConsoleStateStore struct {
	path string
	mu   *sync.Mutex
}

func NewFileConsoleStateStore(path string) *FileConsoleStateStore {
	return &FileConsoleStateStore{path: path, mu: &sync.Mutex{}}
}

func (s *FileConsoleStateStore) Load(ctx context.Context) (*types.ConsoleState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file := newStateFile()
	if err := readJSON(s.path, file); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &types.ConsoleState{}, nil
		}
		return nil, err
	}
	return types.CloneConsoleState(file.Console), nil
}

func (s *FileConsoleStateStore) Save(ctx context.Context, state *types.ConsoleState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if state == nil {
		return errors.New("state is required")
	}
	file := newStateFile()
	if err := readJSON(s.path, file); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	file.Console = types.CloneConsoleState(state)
	return writeJSONAtomic(s.path, file)
}
