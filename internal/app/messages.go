package app

import (
	"time"

	"dalgoctl/internal/notifications"
	"dalgoctl/internal/opform"
	"dalgoctl/internal/types"
)

type tickMsg time.Time

type notificationsListMsg struct {
	result notifications.ListResult
}

type unreadCountMsg struct {
	result notifications.CountResult
}

type mutationMsg struct {
	result notifications.MutationResult
}

type preferencesMsg struct {
	result notifications.PreferencesResult
}

// formInitMsg and formSubmitMsg carry the form generation they were issued
// for; results for a replaced form are dropped.
type formInitMsg struct {
	gen    int
	result opform.InitResult
}

type formSubmitMsg struct {
	gen    int
	result opform.SubmitResult
}

type nodeRememberedMsg struct {
	record *types.NodeRecord
	err    error
}
