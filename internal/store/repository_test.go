package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"dalgoctl/internal/types"
)

func testPaths(t *testing.T) RepositoryPaths {
	t.Helper()
	dir := t.TempDir()
	return RepositoryPaths{
		StatePath: filepath.Join(dir, "state.json"),
		DBPath:    filepath.Join(dir, "state.db"),
	}
}

func openBoth(t *testing.T) map[string]Repository {
	t.Helper()
	paths := testPaths(t)
	fileRepo, err := OpenRepository(paths, RepositoryBackendFile)
	if err != nil {
		t.Fatalf("open file repository: %v", err)
	}
	boltRepo, err := OpenRepository(paths, RepositoryBackendBbolt)
	if err != nil {
		t.Fatalf("open bbolt repository: %v", err)
	}
	t.Cleanup(func() {
		_ = fileRepo.Close()
		_ = boltRepo.Close()
	})
	return map[string]Repository{
		RepositoryBackendFile:  fileRepo,
		RepositoryBackendBbolt: boltRepo,
	}
}

func TestConsoleStateRoundTrip(t *testing.T) {
	for backend, repo := range openBoth(t) {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			empty, err := repo.ConsoleState().Load(ctx)
			if err != nil {
				t.Fatalf("load empty: %v", err)
			}
			if !isZeroConsoleState(empty) {
				t.Fatalf("expected zero state, got %#v", empty)
			}

			state := &types.ConsoleState{
				ActiveView: types.ConsoleViewNotifications,
				LastNodeID: "op-1",
				Query:      map[string]string{"tab": "unread"},
			}
			if err := repo.ConsoleState().Save(ctx, state); err != nil {
				t.Fatalf("save: %v", err)
			}
			loaded, err := repo.ConsoleState().Load(ctx)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if loaded.ActiveView != types.ConsoleViewNotifications || loaded.LastNodeID != "op-1" || loaded.Query["tab"] != "unread" {
				t.Fatalf("unexpected state: %#v", loaded)
			}
			if repo.Backend() != backend {
				t.Fatalf("unexpected backend %q", repo.Backend())
			}
		})
	}
}

func TestNodeStoreCRUD(t *testing.T) {
	for backend, repo := range openBoth(t) {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			nodes := repo.Nodes()
			src := types.Node{ID: "src-1", Type: types.NodeTypeSourceModel, Schema: "staging", InputName: "orders"}
			if _, err := nodes.Upsert(ctx, src); err != nil {
				t.Fatalf("upsert src: %v", err)
			}
			op := types.Node{ID: "op-1", Type: types.NodeTypeOperation, OutputCols: []string{"a"}}
			if _, err := nodes.Upsert(ctx, op); err != nil {
				t.Fatalf("upsert op: %v", err)
			}

			got, ok, err := nodes.Get(ctx, "src-1")
			if err != nil || !ok {
				t.Fatalf("get: ok=%v err=%v", ok, err)
			}
			if got.Node.Label() != "staging.orders" || got.UpdatedAt.IsZero() {
				t.Fatalf("unexpected record: %#v", got)
			}
			if _, ok, _ := nodes.Get(ctx, "missing"); ok {
				t.Fatalf("expected missing node")
			}

			list, err := nodes.List(ctx)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(list) != 2 {
				t.Fatalf("expected two nodes, got %d", len(list))
			}

			if err := nodes.Delete(ctx, "op-1"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if err := nodes.Delete(ctx, "op-1"); !errors.Is(err, ErrNodeNotFound) {
				t.Fatalf("expected ErrNodeNotFound, got %v", err)
			}
		})
	}
}

func TestNodeStoreRejectsDummyAndBlankNodes(t *testing.T) {
	for backend, repo := range openBoth(t) {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			if _, err := repo.Nodes().Upsert(ctx, types.Node{ID: " "}); err == nil {
				t.Fatalf("expected error for blank id")
			}
			if _, err := repo.Nodes().Upsert(ctx, types.Node{ID: "d", IsDummy: true}); err == nil {
				t.Fatalf("expected error for dummy node")
			}
		})
	}
}

func TestFileNodeStoreOrdersByRecency(t *testing.T) {
	paths := testPaths(t)
	store := NewFileNodeStore(paths.StatePath)
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tick := 0
	store.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		if _, err := store.Upsert(ctx, types.Node{ID: id, Type: types.NodeTypeOperation}); err != nil {
			t.Fatalf("upsert %s: %v", id, err)
		}
	}
	if _, err := store.Upsert(ctx, types.Node{ID: "a", Type: types.NodeTypeOperation}); err != nil {
		t.Fatalf("re-upsert a: %v", err)
	}
	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	got := []string{list[0].Node.ID, list[1].Node.ID, list[2].Node.ID}
	if got[0] != "a" || got[1] != "c" || got[2] != "b" {
		t.Fatalf("unexpected order: %v", got)
	}
}

func TestFileStoresShareOneDocument(t *testing.T) {
	paths := testPaths(t)
	repo := NewFileRepository(paths)
	ctx := context.Background()
	if _, err := repo.Nodes().Upsert(ctx, types.Node{ID: "op-1", Type: types.NodeTypeOperation}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := repo.ConsoleState().Save(ctx, &types.ConsoleState{ActiveView: types.ConsoleViewOperation}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, ok, err := repo.Nodes().Get(ctx, "op-1"); err != nil || !ok {
		t.Fatalf("node lost after state save: ok=%v err=%v", ok, err)
	}
}

func TestSeedRepositoryFromFiles(t *testing.T) {
	paths := testPaths(t)
	ctx := context.Background()
	src := NewFileRepository(paths)
	if err := src.ConsoleState().Save(ctx, &types.ConsoleState{Query: map[string]string{"tab": "read"}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := src.Nodes().Upsert(ctx, types.Node{ID: "op-1", Type: types.NodeTypeOperation}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	dst, err := NewBboltRepository(paths.DBPath)
	if err != nil {
		t.Fatalf("NewBboltRepository: %v", err)
	}
	defer dst.Close()
	if err := SeedRepositoryFromFiles(ctx, dst, paths); err != nil {
		t.Fatalf("seed: %v", err)
	}
	state, err := dst.ConsoleState().Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if state.Query["tab"] != "read" {
		t.Fatalf("expected seeded tab, got %#v", state)
	}
	if _, ok, _ := dst.Nodes().Get(ctx, "op-1"); !ok {
		t.Fatalf("expected seeded node")
	}

	if err := dst.ConsoleState().Save(ctx, &types.ConsoleState{Query: map[string]string{"tab": "unread"}}); err != nil {
		t.Fatalf("save dst: %v", err)
	}
	if err := SeedRepositoryFromFiles(ctx, dst, paths); err != nil {
		t.Fatalf("reseed: %v", err)
	}
	state, _ = dst.ConsoleState().Load(ctx)
	if state.Query["tab"] != "unread" {
		t.Fatalf("seed must not overwrite existing state, got %#v", state)
	}
}

func TestOpenRepositoryRejectsUnknownBackend(t *testing.T) {
	if _, err := OpenRepository(testPaths(t), "postgres"); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}
