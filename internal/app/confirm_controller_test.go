package app

import (
	"fmt"
	"strings"
	"testing"

	xansi "github.com/charmbracelet/x/ansi"
)

func TestConfirmDialogViewWrapsLongMessageWithinMaxWidth(t *testing.T) {
	c := NewConfirmController()
	c.Open(confirmActionMarkAll, "Mark all as read", fmt.Sprintf("Mark %s as read?", strings.Repeat("every-notification-", 8)), "Mark all", "Cancel")

	plain := xansi.Strip(c.View(200))
	lines := strings.Split(plain, "\n")
	if len(lines) <= 4 {
		t.Fatalf("expected wrapped dialog lines, got %d lines: %q", len(lines), plain)
	}
	for _, line := range lines {
		if w := xansi.StringWidth(line); w > confirmMaxWidth {
			t.Fatalf("line wider than %d: %d", confirmMaxWidth, w)
		}
	}
}

func TestConfirmDialogKeys(t *testing.T) {
	c := NewConfirmController()
	c.Open(confirmActionResetForm, "Reset", "Discard rows?", "", "")
	if c.Action() != confirmActionResetForm {
		t.Fatalf("unexpected action %v", c.Action())
	}

	if handled, choice := c.HandleKey("right"); !handled || choice != confirmChoiceNone {
		t.Fatalf("expected right to move selection only")
	}
	if _, choice := c.HandleKey("enter"); choice != confirmChoiceCancel {
		t.Fatalf("expected enter on the cancel button to cancel, got %v", choice)
	}
	c.HandleKey("tab")
	if _, choice := c.HandleKey("enter"); choice != confirmChoiceConfirm {
		t.Fatalf("expected enter on the confirm button to confirm, got %v", choice)
	}
	if _, choice := c.HandleKey("q"); choice != confirmChoiceCancel {
		t.Fatalf("expected q to cancel")
	}

	c.Close()
	if c.IsOpen() || c.Action() != confirmActionNone {
		t.Fatalf("expected closed dialog")
	}
	if handled, _ := c.HandleKey("y"); handled {
		t.Fatalf("closed dialog must not consume keys")
	}
}
