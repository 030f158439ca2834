package types

type ConsoleView string

const (
	ConsoleViewNotifications ConsoleView = "notifications"
	ConsoleViewOperation     ConsoleView = "operation"
)

// ConsoleState is the local "location" of the console: the open view and its
// query parameters, so a restarted console lands in the same place.
type ConsoleState struct {
	ActiveView ConsoleView       `json:"active_view,omitempty"`
	LastNodeID string            `json:"last_node_id,omitempty"`
	Query      map[string]string `json:"query,omitempty"`
}

func CloneConsoleState(in *ConsoleState) *ConsoleState {
	if in == nil {
		return &ConsoleState{}
	}
	out := *in
	if in.Query != nil {
		out.Query = make(map[string]string, len(in.Query))
		for k, v := range in.Query {
			out.Query[k] = v
		}
	}
	return &out
}

func NormalizeConsoleView(raw string) ConsoleView {
	switch ConsoleView(raw) {
	case ConsoleViewOperation:
		return ConsoleViewOperation
	default:
		return ConsoleViewNotifications
	}
}
