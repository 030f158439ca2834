package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"dalgoctl/internal/types"
)

// stateFile is the on-disk layout of the file backend: one JSON document
// shared by the console state and node stores.
type stateFile struct {
	Console *types.ConsoleState          `json:"console,omitempty"`
	Nodes   map[string]*types.NodeRecord `json:"nodes,omitempty"`
}

func newStateFile() *stateFile {
	return &stateFile{Nodes: map[string]*types.NodeRecord{}}
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return errors.New("empty file")
	}
	return json.Unmarshal(data, v)
}

func writeJSONAtomic(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	file, err := os.CreateTemp(dir, ".tmp-*.json")
	if err != nil {
		return err
	}
	defer func() {
		_ = os.Remove(file.Name())
	}()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	return os.Rename(file.Name(), path)
}
