package notifications

import (
	"context"
	"errors"
	"sort"

	"dalgoctl/internal/client"
	"dalgoctl/internal/logging"
	"dalgoctl/internal/types"
)

var (
	ErrBusy           = errors.New("a notifications action is already running")
	ErrEmptySelection = errors.New("no notifications selected")
)

const (
	MarkAllSuccessMessage   = "All notifications marked as read"
	PreferencesSavedMessage = "Preferences updated"
	defaultPageSize         = 10
)

type Backend interface {
	UnreadCount(ctx context.Context) (int, error)
	ListNotifications(ctx context.Context, tab types.NotificationTab, page, limit int) (*types.NotificationPage, error)
	MarkNotifications(ctx context.Context, ids []int, readStatus bool) error
	MarkAllAsRead(ctx context.Context) error
	GetPreferences(ctx context.Context) (*types.UserPreferences, error)
	UpdatePreferences(ctx context.Context, prefs types.UserPreferences) (*types.UserPreferences, error)
}

// Notifier shows transient messages to the user.
type Notifier interface {
	Success(message string)
	Error(message string)
}

type Options struct {
	Backend  Backend
	Notifier Notifier
	Logger   logging.Logger
	Location Location
	PageSize int
}

type Action int

const (
	ActionMarkRead Action = iota
	ActionMarkUnread
	ActionMarkAll
)

type nopNotifier struct{}

func (nopNotifier) Success(string) {}
func (nopNotifier) Error(string)   {}

type tabList struct {
	items      []types.Notification
	page       int
	totalPages int
	loaded     bool
	stale      bool
}

// Controller holds the notification center state. Like the operation form it
// is owned by one goroutine; I/O runs in the functions the Begin/Load methods
// return and results come back through the Apply/Finish methods.
type Controller struct {
	backend  Backend
	notifier Notifier
	logger   logging.Logger
	location Location
	pageSize int

	tab        types.NotificationTab
	lists      map[types.NotificationTab]*tabList
	selected   map[int]struct{}
	unread     int
	submitting bool

	prefsOpen   bool
	prefs       *types.UserPreferences
	prefsSaving bool
}

func New(opts Options) *Controller {
	if opts.Notifier == nil {
		opts.Notifier = nopNotifier{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	if opts.Location == nil {
		opts.Location, _ = ParseURLLocation(DefaultPath)
	}
	c := &Controller{
		backend:  opts.Backend,
		notifier: opts.Notifier,
		logger:   opts.Logger.With(logging.F("component", "notifications")),
		location: opts.Location,
		pageSize: opts.PageSize,
		tab:      opts.Location.Tab(),
		lists:    map[types.NotificationTab]*tabList{},
		selected: map[int]struct{}{},
	}
	for _, tab := range types.NotificationTabs {
		c.lists[tab] = &tabList{page: 1}
	}
	return c
}

func (c *Controller) Tab() types.NotificationTab { return c.tab }
func (c *Controller) TabIndex() int              { return c.tab.Index() }
func (c *Controller) UnreadCount() int           { return c.unread }
func (c *Controller) Submitting() bool           { return c.submitting }
func (c *Controller) Location() Location         { return c.location }

func (c *Controller) Items() []types.Notification {
	return append([]types.Notification{}, c.lists[c.tab].items...)
}

func (c *Controller) Page() int       { return c.lists[c.tab].page }
func (c *Controller) TotalPages() int { return c.lists[c.tab].totalPages }

// Loaded reports whether tab has a list that does not need refetching.
func (c *Controller) Loaded(tab types.NotificationTab) bool {
	list := c.lists[types.ParseNotificationTab(string(tab))]
	return list.loaded && !list.stale
}

// SwitchTab activates tab, records it in the location and clears the
// selection. It reports whether the tab's list must be fetched.
func (c *Controller) SwitchTab(ctx context.Context, tab types.NotificationTab) (bool, error) {
	tab = types.ParseNotificationTab(string(tab))
	if err := c.location.SetTab(ctx, tab); err != nil {
		return false, err
	}
	if tab != c.tab {
		c.ClearSelection()
	}
	c.tab = tab
	return !c.Loaded(tab), nil
}

// SetPage moves the active tab to page and reports whether it changed.
func (c *Controller) SetPage(page int) bool {
	list := c.lists[c.tab]
	if page < 1 || (list.totalPages > 0 && page > list.totalPages) || page == list.page {
		return false
	}
	list.page = page
	list.stale = true
	c.ClearSelection()
	return true
}

type ListResult struct {
	Tab  types.NotificationTab
	Page int
	Data *types.NotificationPage
	Err  error
}

// LoadList returns the fetch for the active tab's current page.
func (c *Controller) LoadList() func(context.Context) ListResult {
	backend, tab, page, limit := c.backend, c.tab, c.lists[c.tab].page, c.pageSize
	return func(ctx context.Context) ListResult {
		data, err := backend.ListNotifications(ctx, tab, page, limit)
		return ListResult{Tab: tab, Page: page, Data: data, Err: err}
	}
}

func (c *Controller) ApplyList(res ListResult) {
	if res.Err != nil {
		c.logger.Warn("notifications fetch failed",
			logging.F("tab", string(res.Tab)),
			logging.F("page", res.Page),
			logging.F("error", res.Err.Error()),
		)
		return
	}
	list := c.lists[types.ParseNotificationTab(string(res.Tab))]
	if res.Page != list.page {
		return
	}
	list.loaded = true
	list.stale = false
	list.items = nil
	list.totalPages = 0
	if res.Data != nil {
		list.items = append([]types.Notification{}, res.Data.Notifications...)
		list.totalPages = res.Data.TotalPages
	}
	if res.Tab == c.tab {
		c.dropMissingSelection()
	}
}

type CountResult struct {
	Count int
	Err   error
}

func (c *Controller) LoadCount() func(context.Context) CountResult {
	backend := c.backend
	return func(ctx context.Context) CountResult {
		count, err := backend.UnreadCount(ctx)
		return CountResult{Count: count, Err: err}
	}
}

func (c *Controller) ApplyCount(res CountResult) {
	if res.Err != nil {
		c.logger.Warn("unread count fetch failed", logging.F("error", res.Err.Error()))
		return
	}
	c.unread = res.Count
}

// Refresh fetches the active list and the unread count.
func (c *Controller) Refresh(ctx context.Context) {
	c.ApplyList(c.LoadList()(ctx))
	c.ApplyCount(c.LoadCount()(ctx))
}

// Show switches to tab and fetches its list only if it is not cached.
func (c *Controller) Show(ctx context.Context, tab types.NotificationTab) error {
	needsLoad, err := c.SwitchTab(ctx, tab)
	if err != nil {
		return err
	}
	if needsLoad {
		c.ApplyList(c.LoadList()(ctx))
	}
	return nil
}

func (c *Controller) Toggle(id int) {
	if _, ok := c.selected[id]; ok {
		delete(c.selected, id)
		return
	}
	c.selected[id] = struct{}{}
}

func (c *Controller) IsSelected(id int) bool {
	_, ok := c.selected[id]
	return ok
}

// SelectAll selects every row of the active list, or clears the selection
// when all rows already are selected.
func (c *Controller) SelectAll() {
	items := c.lists[c.tab].items
	if len(items) > 0 && len(c.selected) == len(items) {
		c.ClearSelection()
		return
	}
	for _, item := range items {
		c.selected[item.ID] = struct{}{}
	}
}

// SelectIDs replaces the selection with ids.
func (c *Controller) SelectIDs(ids []int) {
	c.ClearSelection()
	for _, id := range ids {
		c.selected[id] = struct{}{}
	}
}

func (c *Controller) ClearSelection() {
	c.selected = map[int]struct{}{}
}

func (c *Controller) Selected() []int {
	out := make([]int, 0, len(c.selected))
	for id := range c.selected {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

func (c *Controller) dropMissingSelection() {
	visible := make(map[int]struct{}, len(c.lists[c.tab].items))
	for _, item := range c.lists[c.tab].items {
		visible[item.ID] = struct{}{}
	}
	for id := range c.selected {
		if _, ok := visible[id]; !ok {
			delete(c.selected, id)
		}
	}
}

// CanMarkAll, CanMarkRead and CanMarkUnread mirror which actions the view
// offers on the active tab.
func (c *Controller) CanMarkAll() bool {
	return !c.submitting && c.tab != types.NotificationTabRead && c.unread != 0
}

func (c *Controller) CanMarkRead() bool {
	return !c.submitting && c.tab != types.NotificationTabRead && len(c.selected) > 0
}

func (c *Controller) CanMarkUnread() bool {
	return !c.submitting && c.tab != types.NotificationTabUnread && len(c.selected) > 0
}

type MutationResult struct {
	Action Action
	Err    error
}

// BeginMark sends the selection with the wanted read state as one batch.
func (c *Controller) BeginMark(read bool) (func(context.Context) MutationResult, error) {
	if c.submitting {
		return nil, ErrBusy
	}
	ids := c.Selected()
	if len(ids) == 0 {
		return nil, ErrEmptySelection
	}
	action := ActionMarkUnread
	if read {
		action = ActionMarkRead
	}
	c.submitting = true
	backend := c.backend
	return func(ctx context.Context) MutationResult {
		return MutationResult{Action: action, Err: backend.MarkNotifications(ctx, ids, read)}
	}, nil
}

func (c *Controller) BeginMarkAll() (func(context.Context) MutationResult, error) {
	if c.submitting {
		return nil, ErrBusy
	}
	c.submitting = true
	backend := c.backend
	return func(ctx context.Context) MutationResult {
		return MutationResult{Action: ActionMarkAll, Err: backend.MarkAllAsRead(ctx)}
	}, nil
}

// FinishMutation returns the controller to idle. Whatever the outcome the
// selection is cleared and every cached list goes stale; the caller then
// refetches the active list and the unread count.
func (c *Controller) FinishMutation(res MutationResult) error {
	c.submitting = false
	c.ClearSelection()
	for _, list := range c.lists {
		list.stale = true
	}
	if res.Err != nil {
		c.logger.Warn("notifications update failed", logging.F("error", res.Err.Error()))
		c.notifier.Error(client.UserMessage(res.Err))
		return res.Err
	}
	if res.Action == ActionMarkAll {
		c.notifier.Success(MarkAllSuccessMessage)
	}
	return nil
}

func (c *Controller) MarkSelected(ctx context.Context, read bool) error {
	fn, err := c.BeginMark(read)
	if err != nil {
		return err
	}
	err = c.FinishMutation(fn(ctx))
	c.Refresh(ctx)
	return err
}

func (c *Controller) MarkAll(ctx context.Context) error {
	fn, err := c.BeginMarkAll()
	if err != nil {
		return err
	}
	err = c.FinishMutation(fn(ctx))
	c.Refresh(ctx)
	return err
}
