package types

import "testing"

func TestParseNotificationTab(t *testing.T) {
	cases := map[string]NotificationTab{
		"all":      NotificationTabAll,
		"read":     NotificationTabRead,
		" UNREAD ": NotificationTabUnread,
		"":         NotificationTabAll,
		"archived": NotificationTabAll,
	}
	for raw, want := range cases {
		if got := ParseNotificationTab(raw); got != want {
			t.Fatalf("ParseNotificationTab(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestNotificationTabIndexRoundTrip(t *testing.T) {
	for i, want := range []NotificationTab{NotificationTabAll, NotificationTabRead, NotificationTabUnread} {
		if want.Index() != i {
			t.Fatalf("expected %q at index %d, got %d", want, i, want.Index())
		}
		if got := NotificationTabAt(i); got != want {
			t.Fatalf("NotificationTabAt(%d) = %q, want %q", i, got, want)
		}
	}
	if got := NotificationTabAt(7); got != NotificationTabAll {
		t.Fatalf("expected out-of-range index to default to all, got %q", got)
	}
	if NotificationTab("bogus").Index() != 0 {
		t.Fatalf("expected unknown tab index 0")
	}
}

func TestReadStatusFilter(t *testing.T) {
	if _, ok := NotificationTabAll.ReadStatusFilter(); ok {
		t.Fatalf("expected all tab to be unfiltered")
	}
	if v, ok := NotificationTabRead.ReadStatusFilter(); !ok || v != "1" {
		t.Fatalf("unexpected read filter %q %v", v, ok)
	}
	if v, ok := NotificationTabUnread.ReadStatusFilter(); !ok || v != "0" {
		t.Fatalf("unexpected unread filter %q %v", v, ok)
	}
}

func TestCloneConsoleStateCopiesQuery(t *testing.T) {
	in := &ConsoleState{ActiveView: ConsoleViewOperation, Query: map[string]string{"tab": "read"}}
	out := CloneConsoleState(in)
	out.Query["tab"] = "unread"
	if in.Query["tab"] != "read" {
		t.Fatalf("expected clone to not alias query map")
	}
	if CloneConsoleState(nil) == nil {
		t.Fatalf("expected empty state for nil input")
	}
}

func TestNodeLabel(t *testing.T) {
	src := &Node{ID: "n1", Type: NodeTypeSourceModel, Schema: "staging", InputName: "orders"}
	if src.Label() != "staging.orders" {
		t.Fatalf("unexpected label %q", src.Label())
	}
	op := &Node{ID: "op-1", Type: NodeTypeOperation}
	if op.Label() != "op-1" {
		t.Fatalf("unexpected label %q", op.Label())
	}
	if typ, ok := NormalizeNodeType("Source"); !ok || typ != NodeTypeSourceModel {
		t.Fatalf("unexpected node type %q %v", typ, ok)
	}
}
