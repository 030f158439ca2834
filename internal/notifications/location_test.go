package notifications

import (
	"context"
	"errors"
	"testing"

	"dalgoctl/internal/types"
)

type memoryStateStore struct {
	state   *types.ConsoleState
	saveErr error
	saves   int
}

func (m *memoryStateStore) Load(context.Context) (*types.ConsoleState, error) {
	return types.CloneConsoleState(m.state), nil
}

func (m *memoryStateStore) Save(_ context.Context, state *types.ConsoleState) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.state = types.CloneConsoleState(state)
	return nil
}

func TestURLLocationKeepsOtherQueryParams(t *testing.T) {
	loc, err := ParseURLLocation("/notifications?page=2")
	if err != nil {
		t.Fatalf("ParseURLLocation: %v", err)
	}
	if loc.Tab() != types.NotificationTabAll {
		t.Fatalf("expected default tab")
	}
	if err := loc.SetTab(context.Background(), types.NotificationTabRead); err != nil {
		t.Fatalf("SetTab: %v", err)
	}
	if loc.String() != "/notifications?page=2&tab=read" {
		t.Fatalf("unexpected url %q", loc.String())
	}
}

func TestStoredLocationPersistsTab(t *testing.T) {
	store := &memoryStateStore{state: &types.ConsoleState{LastNodeID: "op-1"}}
	ctx := context.Background()
	loc, err := NewStoredLocation(ctx, store)
	if err != nil {
		t.Fatalf("NewStoredLocation: %v", err)
	}
	if err := loc.SetTab(ctx, types.NotificationTabUnread); err != nil {
		t.Fatalf("SetTab: %v", err)
	}
	if store.state.Query[TabParam] != "unread" || store.state.LastNodeID != "op-1" {
		t.Fatalf("unexpected stored state: %#v", store.state)
	}

	reloaded, err := NewStoredLocation(ctx, store)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Tab() != types.NotificationTabUnread {
		t.Fatalf("expected tab to survive reload, got %s", reloaded.Tab())
	}
}

func TestSwitchTabFailsWhenLocationCannotSave(t *testing.T) {
	store := &memoryStateStore{state: &types.ConsoleState{}}
	loc, err := NewStoredLocation(context.Background(), store)
	if err != nil {
		t.Fatalf("NewStoredLocation: %v", err)
	}
	store.saveErr = errors.New("disk full")
	c := New(Options{Backend: newFakeBackend(), Location: loc})
	if _, err := c.SwitchTab(context.Background(), types.NotificationTabRead); err == nil {
		t.Fatalf("expected error from location")
	}
	if c.Tab() != types.NotificationTabAll || loc.Tab() != types.NotificationTabAll {
		t.Fatalf("tab must not change when the location cannot be saved")
	}
}

func TestStoredLocationKeepsConcurrentWrites(t *testing.T) {
	store := &memoryStateStore{state: &types.ConsoleState{}}
	ctx := context.Background()
	loc, err := NewStoredLocation(ctx, store)
	if err != nil {
		t.Fatalf("NewStoredLocation: %v", err)
	}
	store.state.LastNodeID = "op-9"
	if err := loc.SetTab(ctx, types.NotificationTabRead); err != nil {
		t.Fatalf("SetTab: %v", err)
	}
	if store.state.LastNodeID != "op-9" {
		t.Fatalf("expected last node to survive, got %#v", store.state)
	}
}
