package notifications

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"dalgoctl/internal/types"
)

// TabParam is the query parameter holding the active tab.
const TabParam = "tab"

// DefaultPath is where the notifications view lives.
const DefaultPath = "/notifications"

// Location is the navigable place the active tab is kept in, so a reload
// lands on the same tab.
type Location interface {
	Tab() types.NotificationTab
	SetTab(ctx context.Context, tab types.NotificationTab) error
}

// URLLocation keeps the tab in a URL query, e.g. /notifications?tab=unread.
type URLLocation struct {
	u *url.URL
}

func ParseURLLocation(raw string) (*URLLocation, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = DefaultPath
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &URLLocation{u: u}, nil
}

func (l *URLLocation) Tab() types.NotificationTab {
	return types.ParseNotificationTab(l.u.Query().Get(TabParam))
}

func (l *URLLocation) SetTab(_ context.Context, tab types.NotificationTab) error {
	query := l.u.Query()
	query.Set(TabParam, string(types.ParseNotificationTab(string(tab))))
	l.u.RawQuery = query.Encode()
	return nil
}

func (l *URLLocation) String() string {
	return l.u.String()
}

// StateStore persists the console state.
type StateStore interface {
	Load(ctx context.Context) (*types.ConsoleState, error)
	Save(ctx context.Context, state *types.ConsoleState) error
}

// StoredLocation keeps the tab in the persisted console state.
type StoredLocation struct {
	store StateStore
	state *types.ConsoleState
}

func NewStoredLocation(ctx context.Context, store StateStore) (*StoredLocation, error) {
	if store == nil {
		return nil, errors.New("state store is required")
	}
	state, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return &StoredLocation{store: store, state: types.CloneConsoleState(state)}, nil
}

func (l *StoredLocation) Tab() types.NotificationTab {
	return types.ParseNotificationTab(l.state.Query[TabParam])
}

// SetTab re-reads the stored state first so fields other writers own, such
// as the last node, survive the save.
func (l *StoredLocation) SetTab(ctx context.Context, tab types.NotificationTab) error {
	current, err := l.store.Load(ctx)
	if err != nil {
		return err
	}
	next := types.CloneConsoleState(current)
	if next.Query == nil {
		next.Query = map[string]string{}
	}
	next.ActiveView = types.ConsoleViewNotifications
	next.Query[TabParam] = string(types.ParseNotificationTab(string(tab)))
	if err := l.store.Save(ctx, next); err != nil {
		return err
	}
	l.state = next
	return nil
}
