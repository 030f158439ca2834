package app

import (
	"context"
	"time"

	tea "charm.land/bubbletea/v2"

	"dalgoctl/internal/notifications"
	"dalgoctl/internal/opform"
	"dalgoctl/internal/store"
	"dalgoctl/internal/types"
)

const defaultRequestTimeout = 4 * time.Second

// timedCmd runs fn off the update loop with a bounded context and wraps the
// result into a message.
func timedCmd[T any](timeout time.Duration, fn func(context.Context) T, wrap func(T) tea.Msg) tea.Cmd {
	if fn == nil {
		return nil
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return wrap(fn(ctx))
	}
}

func loadListCmd(fn func(context.Context) notifications.ListResult, timeout time.Duration) tea.Cmd {
	return timedCmd(timeout, fn, func(res notifications.ListResult) tea.Msg {
		return notificationsListMsg{result: res}
	})
}

func loadCountCmd(fn func(context.Context) notifications.CountResult, timeout time.Duration) tea.Cmd {
	return timedCmd(timeout, fn, func(res notifications.CountResult) tea.Msg {
		return unreadCountMsg{result: res}
	})
}

func mutationCmd(fn func(context.Context) notifications.MutationResult, timeout time.Duration) tea.Cmd {
	return timedCmd(timeout, fn, func(res notifications.MutationResult) tea.Msg {
		return mutationMsg{result: res}
	})
}

func preferencesCmd(fn func(context.Context) notifications.PreferencesResult, timeout time.Duration) tea.Cmd {
	return timedCmd(timeout, fn, func(res notifications.PreferencesResult) tea.Msg {
		return preferencesMsg{result: res}
	})
}

func formInitCmd(gen int, fn func(context.Context) opform.InitResult, timeout time.Duration) tea.Cmd {
	return timedCmd(timeout, fn, func(res opform.InitResult) tea.Msg {
		return formInitMsg{gen: gen, result: res}
	})
}

func formSubmitCmd(gen int, fn func(context.Context) opform.SubmitResult, timeout time.Duration) tea.Cmd {
	return timedCmd(timeout, fn, func(res opform.SubmitResult) tea.Msg {
		return formSubmitMsg{gen: gen, result: res}
	})
}

func rememberNodeCmd(nodes store.NodeStore, node types.Node, timeout time.Duration) tea.Cmd {
	if nodes == nil {
		return nil
	}
	return timedCmd(timeout, func(ctx context.Context) nodeRememberedMsg {
		record, err := nodes.Upsert(ctx, node)
		return nodeRememberedMsg{record: record, err: err}
	}, func(msg nodeRememberedMsg) tea.Msg { return msg })
}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
