package types

import (
	"strings"
	"time"
)

type NotificationTab string

const (
	NotificationTabAll    NotificationTab = "all"
	NotificationTabRead   NotificationTab = "read"
	NotificationTabUnread NotificationTab = "unread"
)

// NotificationTabs is the tab order; a tab's position is its index.
var NotificationTabs = []NotificationTab{
	NotificationTabAll,
	NotificationTabRead,
	NotificationTabUnread,
}

// ParseNotificationTab maps a query value to a tab. Missing or unknown
// values fall back to all.
func ParseNotificationTab(raw string) NotificationTab {
	switch NotificationTab(strings.ToLower(strings.TrimSpace(raw))) {
	case NotificationTabRead:
		return NotificationTabRead
	case NotificationTabUnread:
		return NotificationTabUnread
	default:
		return NotificationTabAll
	}
}

func NotificationTabAt(index int) NotificationTab {
	if index < 0 || index >= len(NotificationTabs) {
		return NotificationTabAll
	}
	return NotificationTabs[index]
}

func (t NotificationTab) Index() int {
	for i, tab := range NotificationTabs {
		if tab == t {
			return i
		}
	}
	return 0
}

// ReadStatusFilter returns the read_status query value for the tab, or
// false when the tab does not filter.
func (t NotificationTab) ReadStatusFilter() (string, bool) {
	switch t {
	case NotificationTabRead:
		return "1", true
	case NotificationTabUnread:
		return "0", true
	default:
		return "", false
	}
}

type Notification struct {
	ID         int       `json:"id"`
	Author     string    `json:"author"`
	Message    string    `json:"message"`
	Urgent     bool      `json:"urgent"`
	ReadStatus bool      `json:"read_status"`
	Timestamp  time.Time `json:"timestamp"`
}

type NotificationPage struct {
	Notifications []Notification `json:"res"`
	Page          int            `json:"page,omitempty"`
	Limit         int            `json:"limit,omitempty"`
	TotalPages    int            `json:"total_pages,omitempty"`
}

type UnreadCount struct {
	Count int `json:"res"`
}

type MarkNotificationsRequest struct {
	NotificationIDs []int `json:"notification_ids"`
	ReadStatus      bool  `json:"read_status"`
}

type UserPreferences struct {
	EnableEmailNotifications bool   `json:"enable_email_notifications"`
	DiscordWebhook           string `json:"discord_webhook,omitempty"`
}

type UserPreferencesEnvelope struct {
	Preferences UserPreferences `json:"res"`
}
