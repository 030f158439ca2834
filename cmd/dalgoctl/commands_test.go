package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"dalgoctl/internal/app"
	"dalgoctl/internal/config"
	"dalgoctl/internal/logging"
	"dalgoctl/internal/notifications"
	"dalgoctl/internal/store"
	"dalgoctl/internal/types"
)

const (
	sourceModelID = "1f3a9c1e-5b1d-4c4e-9a51-6f7f0d2b8a10"
	targetModelID = "8c0e4b6a-2f7d-4e13-bb0a-3c5d9e7f1a22"
	savedOpID     = "5e9d1c7b-3a2f-4d6e-a8b4-7c0f2e1d9b44"
)

type testEnv struct {
	deps   commandDeps
	stdin  *bytes.Buffer
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	repo   store.Repository
}

func newTestEnv(t *testing.T, fake *fakeCommandClient) *testEnv {
	t.Helper()
	env := &testEnv{
		stdin:  &bytes.Buffer{},
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
		repo:   store.NewFileRepository(store.RepositoryPaths{StatePath: filepath.Join(t.TempDir(), "state.json")}),
	}
	env.deps = commandDeps{
		stdin:  env.stdin,
		stdout: env.stdout,
		stderr: env.stderr,
		loadConfig: func() (config.CoreConfig, error) {
			return config.DefaultCoreConfig(), nil
		},
		newClient: fixedFactory(fake),
		openRepository: func(context.Context, config.CoreConfig) (store.Repository, error) {
			return env.repo, nil
		},
	}
	return env
}

func (e *testEnv) state(t *testing.T) *types.ConsoleState {
	t.Helper()
	state, err := e.repo.ConsoleState().Load(context.Background())
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	return state
}

func TestListCommandPersistsTab(t *testing.T) {
	fake := newFakeCommandClient()
	env := newTestEnv(t, fake)

	if err := NewListCommand(env.deps).Run([]string{"--tab", "unread"}); err != nil {
		t.Fatalf("expected list to succeed, got err=%v", err)
	}
	out := env.stdout.String()
	if !strings.Contains(out, "alice") || strings.Contains(out, "bob") {
		t.Fatalf("expected only unread rows:\n%s", out)
	}
	if !strings.Contains(out, "tab unread · page 1/1 · 2 unread") {
		t.Fatalf("expected footer:\n%s", out)
	}
	if got := env.state(t).Query[notifications.TabParam]; got != "unread" {
		t.Fatalf("expected tab persisted, got %q", got)
	}

	env.stdout.Reset()
	if err := NewListCommand(env.deps).Run(nil); err != nil {
		t.Fatalf("expected list to succeed, got err=%v", err)
	}
	if last := fake.lists[len(fake.lists)-1]; last != types.NotificationTabUnread {
		t.Fatalf("expected the stored tab to be used, got %s", last)
	}
}

func TestListCommandWritesJSON(t *testing.T) {
	env := newTestEnv(t, newFakeCommandClient())

	if err := NewListCommand(env.deps).Run([]string{"--tab", "read", "--json"}); err != nil {
		t.Fatalf("expected list to succeed, got err=%v", err)
	}
	var out notificationListOutput
	if err := json.Unmarshal(env.stdout.Bytes(), &out); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if out.Tab != types.NotificationTabRead || out.Unread != 2 || len(out.Notifications) != 1 {
		t.Fatalf("unexpected output %#v", out)
	}
}

func TestListCommandRejectsUnknownTab(t *testing.T) {
	env := newTestEnv(t, newFakeCommandClient())
	if err := NewListCommand(env.deps).Run([]string{"--tab", "archived"}); err == nil {
		t.Fatalf("expected an error for an unknown tab")
	}
}

func TestMarkReadCommandSendsOneBatch(t *testing.T) {
	fake := newFakeCommandClient()
	env := newTestEnv(t, fake)

	if err := NewMarkCommand(env.deps, "mark-read", true).Run([]string{"3", "1,2"}); err != nil {
		t.Fatalf("expected mark-read to succeed, got err=%v", err)
	}
	if len(fake.markCalls) != 1 {
		t.Fatalf("expected one batch call, got %d", len(fake.markCalls))
	}
	if call := fake.markCalls[0]; !reflect.DeepEqual(call.ids, []int{1, 2, 3}) || !call.read {
		t.Fatalf("unexpected mark call %#v", call)
	}
	if !strings.Contains(env.stdout.String(), "marked 3 notification(s) as read · 0 unread") {
		t.Fatalf("unexpected output %q", env.stdout.String())
	}
}

func TestMarkCommandRequiresIDs(t *testing.T) {
	env := newTestEnv(t, newFakeCommandClient())
	err := NewMarkCommand(env.deps, "mark-unread", false).Run(nil)
	if !errors.Is(err, notifications.ErrEmptySelection) {
		t.Fatalf("expected empty selection error, got %v", err)
	}
	if err := NewMarkCommand(env.deps, "mark-unread", false).Run([]string{"x"}); err == nil {
		t.Fatalf("expected an error for a non-numeric id")
	}
}

func TestMarkAllCommandAsksFirst(t *testing.T) {
	fake := newFakeCommandClient()
	env := newTestEnv(t, fake)

	env.stdin.WriteString("n\n")
	if err := NewMarkAllCommand(env.deps).Run(nil); err != nil {
		t.Fatalf("expected cancel to succeed, got err=%v", err)
	}
	if fake.markAll != 0 || !strings.Contains(env.stdout.String(), "Cancelled.") {
		t.Fatalf("expected no call after declining, got %d", fake.markAll)
	}

	env.stdout.Reset()
	env.stdin.WriteString("y\n")
	if err := NewMarkAllCommand(env.deps).Run(nil); err != nil {
		t.Fatalf("expected mark-all to succeed, got err=%v", err)
	}
	if fake.markAll != 1 {
		t.Fatalf("expected one mark-all call, got %d", fake.markAll)
	}
	if !strings.Contains(env.stdout.String(), notifications.MarkAllSuccessMessage) {
		t.Fatalf("expected success message, got %q", env.stdout.String())
	}

	env.stdout.Reset()
	if err := NewMarkAllCommand(env.deps).Run([]string{"--yes"}); err != nil {
		t.Fatalf("expected mark-all to succeed, got err=%v", err)
	}
	if fake.markAll != 1 || !strings.Contains(env.stdout.String(), "No unread notifications.") {
		t.Fatalf("expected nothing to do once all are read")
	}
}

func TestMarkAllCommandReportsFailure(t *testing.T) {
	fake := newFakeCommandClient()
	fake.markErr = errors.New("backend down")
	env := newTestEnv(t, fake)

	err := NewMarkAllCommand(env.deps).Run([]string{"--yes"})
	if err == nil || err.Error() != "backend down" {
		t.Fatalf("expected backend error, got %v", err)
	}
	if strings.Contains(env.stdout.String(), notifications.MarkAllSuccessMessage) {
		t.Fatalf("failure must not print the success message")
	}
}

func TestPrefsCommandChangesOnlyGivenFields(t *testing.T) {
	fake := newFakeCommandClient()
	fake.prefs = types.UserPreferences{DiscordWebhook: "https://hooks.example.org/a"}
	env := newTestEnv(t, fake)

	if err := NewPrefsCommand(env.deps).Run(nil); err != nil {
		t.Fatalf("expected prefs to succeed, got err=%v", err)
	}
	if len(fake.saved) != 0 {
		t.Fatalf("showing preferences must not save")
	}

	if err := NewPrefsCommand(env.deps).Run([]string{"--email"}); err != nil {
		t.Fatalf("expected prefs to succeed, got err=%v", err)
	}
	want := types.UserPreferences{EnableEmailNotifications: true, DiscordWebhook: "https://hooks.example.org/a"}
	if len(fake.saved) != 1 || fake.saved[0] != want {
		t.Fatalf("unexpected saved prefs %#v", fake.saved)
	}
	out := env.stdout.String()
	if !strings.Contains(out, notifications.PreferencesSavedMessage) || !strings.Contains(out, "email notifications: on") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestRenameCommandCreatesAndRemembersNode(t *testing.T) {
	fake := newFakeCommandClient()
	fake.columns = []types.ColumnData{{Name: "id"}, {Name: "name"}}
	fake.savedNode = &types.OperationNode{ID: savedOpID, OutputCols: []string{"order_id", "name"}, TargetModelID: targetModelID}
	env := newTestEnv(t, fake)

	err := NewRenameCommand(env.deps).Run([]string{
		"--schema", "staging",
		"--table", "orders",
		"--id", sourceModelID,
		"--target", targetModelID,
		"--pair", "id=order_id",
	})
	if err != nil {
		t.Fatalf("expected rename to succeed, got err=%v", err)
	}
	if len(fake.creates) != 1 {
		t.Fatalf("expected one create call, got %d", len(fake.creates))
	}
	payload := fake.creates[0]
	if payload.InputUUID != sourceModelID || !reflect.DeepEqual(payload.Config.Columns, map[string]string{"id": "order_id"}) {
		t.Fatalf("unexpected payload %#v", payload)
	}
	out := env.stdout.String()
	for _, want := range []string{"staging.orders → Rename columns (create)", "saved " + savedOpID, "output columns: order_id, name"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if env.state(t).LastNodeID != savedOpID {
		t.Fatalf("expected last node persisted")
	}
	if _, ok, err := env.repo.Nodes().Get(context.Background(), savedOpID); err != nil || !ok {
		t.Fatalf("expected saved node remembered: ok=%v err=%v", ok, err)
	}

	env.stdout.Reset()
	if err := NewRenameCommand(env.deps).Run([]string{"--pair", "order_id=oid", "--dry-run"}); err != nil {
		t.Fatalf("expected chained dry run to succeed, got err=%v", err)
	}
	_, body, _ := strings.Cut(env.stdout.String(), "\n")
	var chained types.OperationPayload
	if err := json.Unmarshal([]byte(body), &chained); err != nil {
		t.Fatalf("decode payload: %v\n%s", err, env.stdout.String())
	}
	if !reflect.DeepEqual(chained.SourceColumns, []string{"order_id", "name"}) || chained.InputUUID != "" {
		t.Fatalf("expected the chain to continue from the saved node, got %#v", chained)
	}
	if len(fake.creates) != 1 {
		t.Fatalf("dry run must not save")
	}
}

func TestRenameCommandRejectsUnknownColumn(t *testing.T) {
	fake := newFakeCommandClient()
	fake.columns = []types.ColumnData{{Name: "id"}}
	env := newTestEnv(t, fake)

	err := NewRenameCommand(env.deps).Run([]string{"--table", "orders", "--id", sourceModelID, "--pair", "missing=x"})
	if err == nil || !strings.Contains(err.Error(), `column "missing" is not a source column`) {
		t.Fatalf("expected a validation error, got %v", err)
	}
	if len(fake.creates) != 0 {
		t.Fatalf("invalid rows must not be sent")
	}
}

func TestRenameCommandViewPrintsMapping(t *testing.T) {
	fake := newFakeCommandClient()
	fake.config = &types.OperationNodeData{
		ID: savedOpID,
		Config: types.OperationConfigEnvelope{
			Config: types.RenameConfig{
				Columns:       map[string]string{"id": "order_id"},
				SourceColumns: []string{"id", "name"},
			},
		},
	}
	env := newTestEnv(t, fake)
	if _, err := env.repo.Nodes().Upsert(context.Background(), types.Node{ID: savedOpID, Type: types.NodeTypeOperation}); err != nil {
		t.Fatalf("seed node: %v", err)
	}

	if err := NewRenameCommand(env.deps).Run([]string{"--node", savedOpID, "--mode", "view", "--pair", "id=x"}); err != nil {
		t.Fatalf("expected view to succeed, got err=%v", err)
	}
	out := env.stdout.String()
	if !strings.Contains(out, "source columns: id, name") || !strings.Contains(out, "id: order_id") {
		t.Fatalf("unexpected view output:\n%s", out)
	}
	if len(fake.creates)+len(fake.updates) != 0 {
		t.Fatalf("view mode must not save")
	}
}

func TestRenameCommandEditMergesOverSavedRenames(t *testing.T) {
	fake := newFakeCommandClient()
	fake.config = &types.OperationNodeData{
		ID: savedOpID,
		Config: types.OperationConfigEnvelope{
			Config: types.RenameConfig{
				Columns:       map[string]string{"id": "order_id"},
				SourceColumns: []string{"id", "name", "total"},
			},
		},
	}
	fake.savedNode = &types.OperationNode{ID: savedOpID, OutputCols: []string{"order_id", "customer", "total"}}
	env := newTestEnv(t, fake)
	if _, err := env.repo.Nodes().Upsert(context.Background(), types.Node{ID: savedOpID, Type: types.NodeTypeOperation}); err != nil {
		t.Fatalf("seed node: %v", err)
	}

	if err := NewRenameCommand(env.deps).Run([]string{"--node", savedOpID, "--mode", "edit", "--pair", "name=customer"}); err != nil {
		t.Fatalf("expected edit to succeed, got err=%v", err)
	}
	if !reflect.DeepEqual(fake.updates, []string{savedOpID}) {
		t.Fatalf("expected one update of %s, got %v", savedOpID, fake.updates)
	}
	want := map[string]string{"id": "order_id", "name": "customer"}
	if got := fake.updated[0].Config.Columns; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected saved renames kept, got %v", got)
	}

	if err := NewRenameCommand(env.deps).Run([]string{"--node", savedOpID, "--mode", "edit", "--pair", "id=oid"}); err != nil {
		t.Fatalf("expected second edit to succeed, got err=%v", err)
	}
	if got := fake.updated[1].Config.Columns; !reflect.DeepEqual(got, map[string]string{"id": "oid"}) {
		t.Fatalf("expected the pair to override the saved name, got %v", got)
	}

	if err := NewRenameCommand(env.deps).Run([]string{"--node", savedOpID, "--mode", "edit", "--replace", "--pair", "total=amount"}); err != nil {
		t.Fatalf("expected replacing edit to succeed, got err=%v", err)
	}
	if got := fake.updated[2].Config.Columns; !reflect.DeepEqual(got, map[string]string{"total": "amount"}) {
		t.Fatalf("expected --replace to send only the given pair, got %v", got)
	}
}

func TestNodesCommandListsAndForgets(t *testing.T) {
	env := newTestEnv(t, newFakeCommandClient())
	node := types.Node{ID: sourceModelID, Type: types.NodeTypeSourceModel, Schema: "staging", InputName: "orders"}
	if _, err := env.repo.Nodes().Upsert(context.Background(), node); err != nil {
		t.Fatalf("seed node: %v", err)
	}

	if err := NewNodesCommand(env.deps).Run(nil); err != nil {
		t.Fatalf("expected nodes to succeed, got err=%v", err)
	}
	if !strings.Contains(env.stdout.String(), "staging.orders") {
		t.Fatalf("expected node label in output:\n%s", env.stdout.String())
	}
	if err := NewNodesCommand(env.deps).Run([]string{"--forget", sourceModelID}); err != nil {
		t.Fatalf("expected forget to succeed, got err=%v", err)
	}
	if _, ok, _ := env.repo.Nodes().Get(context.Background(), sourceModelID); ok {
		t.Fatalf("expected node forgotten")
	}
	if err := NewNodesCommand(env.deps).Run([]string{"--forget", sourceModelID}); !errors.Is(err, store.ErrNodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUICommandResumesLastNode(t *testing.T) {
	fake := newFakeCommandClient()
	env := newTestEnv(t, fake)
	ctx := context.Background()
	if _, err := env.repo.Nodes().Upsert(ctx, types.Node{ID: savedOpID, Type: types.NodeTypeOperation}); err != nil {
		t.Fatalf("seed node: %v", err)
	}
	if err := env.repo.ConsoleState().Save(ctx, &types.ConsoleState{ActiveView: types.ConsoleViewOperation, LastNodeID: savedOpID}); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	var got app.Options
	runs := 0
	cmd := NewUICommand(
		env.deps,
		func() (config.UIConfig, error) { return config.DefaultUIConfig(), nil },
		func(string) (logging.Logger, func()) { return logging.Nop(), func() {} },
		func(opts app.Options) error {
			runs++
			got = opts
			return nil
		},
		"test",
	)
	if err := cmd.Run(nil); err != nil {
		t.Fatalf("expected ui to succeed, got err=%v", err)
	}
	if runs != 1 {
		t.Fatalf("expected the console to run once, got %d", runs)
	}
	if got.View != types.ConsoleViewOperation || got.Node == nil || got.Node.ID != savedOpID {
		t.Fatalf("expected to resume on the last node, got view=%s node=%#v", got.View, got.Node)
	}
	if got.Mode != types.OperationActionCreate || got.PageSize != config.DefaultCoreConfig().PageSize() {
		t.Fatalf("unexpected options %#v", got)
	}

	if err := cmd.Run([]string{"--node", "unknown"}); err == nil {
		t.Fatalf("expected an error for an unknown node")
	}
}

func TestConfigCommandPrintsDefaultUIConfigAsTOML(t *testing.T) {
	t.Setenv(config.DataDirEnv, t.TempDir())
	stdout := &bytes.Buffer{}
	if err := NewConfigCommand(stdout, &bytes.Buffer{}).Run([]string{"--default", "--scope", "ui", "--format", "toml"}); err != nil {
		t.Fatalf("expected config to succeed, got err=%v", err)
	}
	out := stdout.String()
	if !strings.Contains(out, "[toast]") || !strings.Contains(out, "seconds = 4") {
		t.Fatalf("unexpected config output:\n%s", out)
	}
}

func TestConfigCommandRejectsUnknownScope(t *testing.T) {
	if err := NewConfigCommand(&bytes.Buffer{}, &bytes.Buffer{}).Run([]string{"--scope", "keys"}); err == nil {
		t.Fatalf("expected an error for an unknown scope")
	}
}

type markCall struct {
	ids  []int
	read bool
}

type fakeCommandClient struct {
	items     []types.Notification
	lists     []types.NotificationTab
	markErr   error
	markCalls []markCall
	markAll   int
	prefs     types.UserPreferences
	saved     []types.UserPreferences

	columns   []types.ColumnData
	config    *types.OperationNodeData
	savedNode *types.OperationNode
	creates   []types.OperationPayload
	updates   []string
	updated   []types.OperationPayload
}

func newFakeCommandClient() *fakeCommandClient {
	return &fakeCommandClient{
		items: []types.Notification{
			{ID: 1, Author: "alice", Message: "Pipeline orders failed", Urgent: true},
			{ID: 2, Author: "bob", Message: "Sync finished", ReadStatus: true},
			{ID: 3, Author: "carol", Message: "New source connected"},
		},
	}
}

func (f *fakeCommandClient) UnreadCount(context.Context) (int, error) {
	count := 0
	for _, item := range f.items {
		if !item.ReadStatus {
			count++
		}
	}
	return count, nil
}

func (f *fakeCommandClient) ListNotifications(_ context.Context, tab types.NotificationTab, page, limit int) (*types.NotificationPage, error) {
	f.lists = append(f.lists, tab)
	var out []types.Notification
	for _, item := range f.items {
		switch {
		case tab == types.NotificationTabRead && !item.ReadStatus:
		case tab == types.NotificationTabUnread && item.ReadStatus:
		default:
			out = append(out, item)
		}
	}
	return &types.NotificationPage{Notifications: out, Page: page, Limit: limit, TotalPages: 1}, nil
}

func (f *fakeCommandClient) MarkNotifications(_ context.Context, ids []int, read bool) error {
	f.markCalls = append(f.markCalls, markCall{ids: append([]int{}, ids...), read: read})
	if f.markErr != nil {
		return f.markErr
	}
	for _, id := range ids {
		for i := range f.items {
			if f.items[i].ID == id {
				f.items[i].ReadStatus = read
			}
		}
	}
	return nil
}

func (f *fakeCommandClient) MarkAllAsRead(context.Context) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.markAll++
	for i := range f.items {
		f.items[i].ReadStatus = true
	}
	return nil
}

func (f *fakeCommandClient) GetPreferences(context.Context) (*types.UserPreferences, error) {
	prefs := f.prefs
	return &prefs, nil
}

func (f *fakeCommandClient) UpdatePreferences(_ context.Context, prefs types.UserPreferences) (*types.UserPreferences, error) {
	f.saved = append(f.saved, prefs)
	f.prefs = prefs
	return &prefs, nil
}

func (f *fakeCommandClient) GetTableColumns(context.Context, string, string) ([]types.ColumnData, error) {
	return f.columns, nil
}

func (f *fakeCommandClient) GetOperation(context.Context, string) (*types.OperationNodeData, error) {
	if f.config == nil {
		return nil, errors.New("operation not found")
	}
	return f.config, nil
}

func (f *fakeCommandClient) CreateOperation(_ context.Context, payload types.OperationPayload) (*types.OperationNode, error) {
	f.creates = append(f.creates, payload)
	return f.savedNode, nil
}

func (f *fakeCommandClient) UpdateOperation(_ context.Context, nodeID string, payload types.OperationPayload) (*types.OperationNode, error) {
	f.updates = append(f.updates, nodeID)
	f.updated = append(f.updated, payload)
	return f.savedNode, nil
}

func fixedFactory(client commandClient) clientFactory {
	return func(config.CoreConfig, logging.Logger) (commandClient, error) {
		return client, nil
	}
}
