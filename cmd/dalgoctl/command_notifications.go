package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"dalgoctl/internal/notifications"
	"dalgoctl/internal/types"
)

type ListCommand struct {
	deps commandDeps
}

func NewListCommand(deps commandDeps) *ListCommand {
	return &ListCommand{deps: deps}
}

type notificationListOutput struct {
	Tab           types.NotificationTab `json:"tab"`
	Page          int                   `json:"page"`
	TotalPages    int                   `json:"total_pages"`
	Unread        int                   `json:"unread"`
	Notifications []types.Notification  `json:"notifications"`
}

func (c *ListCommand) Run(args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(c.deps.stderr)
	tabFlag := fs.String("tab", "", "tab to show: all|read|unread (default: last used)")
	page := fs.Int("page", 1, "page to show")
	limit := fs.Int("limit", 0, "page size (default from config)")
	asJSON := fs.Bool("json", false, "print the page as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *page < 1 {
		return errors.New("page must be at least 1")
	}

	ctx := context.Background()
	session, err := c.deps.openSession(ctx, true)
	if err != nil {
		return err
	}
	defer session.Close()
	if *limit > 0 {
		session.cfg.Notifications.PageSize = *limit
	}
	center, err := session.notificationCenter(ctx, c.deps.stdout)
	if err != nil {
		return err
	}
	if strings.TrimSpace(*tabFlag) != "" {
		tab, err := parseTabFlag(*tabFlag)
		if err != nil {
			return err
		}
		if _, err := center.SwitchTab(ctx, tab); err != nil {
			return err
		}
	}
	center.SetPage(*page)

	list := center.LoadList()(ctx)
	if list.Err != nil {
		return list.Err
	}
	center.ApplyList(list)
	center.ApplyCount(center.LoadCount()(ctx))

	if *asJSON {
		encoder := json.NewEncoder(c.deps.stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(notificationListOutput{
			Tab:           center.Tab(),
			Page:          center.Page(),
			TotalPages:    center.TotalPages(),
			Unread:        center.UnreadCount(),
			Notifications: center.Items(),
		})
	}
	items := center.Items()
	if len(items) == 0 {
		fmt.Fprintln(c.deps.stdout, "No notifications.")
	} else {
		printNotifications(c.deps.stdout, items)
	}
	fmt.Fprintf(c.deps.stdout, "\ntab %s · page %d/%d · %d unread\n",
		center.Tab(), center.Page(), max(1, center.TotalPages()), center.UnreadCount())
	return nil
}

func parseTabFlag(raw string) (types.NotificationTab, error) {
	value := types.NotificationTab(strings.ToLower(strings.TrimSpace(raw)))
	for _, tab := range types.NotificationTabs {
		if tab == value {
			return tab, nil
		}
	}
	return "", fmt.Errorf("invalid tab %q: must be all, read or unread", raw)
}

type UnreadCommand struct {
	deps commandDeps
}

func NewUnreadCommand(deps commandDeps) *UnreadCommand {
	return &UnreadCommand{deps: deps}
}

func (c *UnreadCommand) Run(args []string) error {
	fs := flag.NewFlagSet("unread", flag.ContinueOnError)
	fs.SetOutput(c.deps.stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	session, err := c.deps.openSession(ctx, false)
	if err != nil {
		return err
	}
	defer session.Close()
	center, err := session.notificationCenter(ctx, c.deps.stdout)
	if err != nil {
		return err
	}
	res := center.LoadCount()(ctx)
	if res.Err != nil {
		return res.Err
	}
	center.ApplyCount(res)
	fmt.Fprintln(c.deps.stdout, center.UnreadCount())
	return nil
}

type MarkCommand struct {
	deps commandDeps
	name string
	read bool
}

func NewMarkCommand(deps commandDeps, name string, read bool) *MarkCommand {
	return &MarkCommand{deps: deps, name: name, read: read}
}

func (c *MarkCommand) Run(args []string) error {
	fs := flag.NewFlagSet(c.name, flag.ContinueOnError)
	fs.SetOutput(c.deps.stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	ids, err := parseIDs(fs.Args())
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return notifications.ErrEmptySelection
	}

	ctx := context.Background()
	session, err := c.deps.openSession(ctx, false)
	if err != nil {
		return err
	}
	defer session.Close()
	center, err := session.notificationCenter(ctx, c.deps.stdout)
	if err != nil {
		return err
	}
	center.SelectIDs(ids)
	if err := center.MarkSelected(ctx, c.read); err != nil {
		return err
	}
	state := "unread"
	if c.read {
		state = "read"
	}
	fmt.Fprintf(c.deps.stdout, "marked %d notification(s) as %s · %d unread\n", len(ids), state, center.UnreadCount())
	return nil
}

type MarkAllCommand struct {
	deps commandDeps
}

func NewMarkAllCommand(deps commandDeps) *MarkAllCommand {
	return &MarkAllCommand{deps: deps}
}

func (c *MarkAllCommand) Run(args []string) error {
	fs := flag.NewFlagSet("mark-all-read", flag.ContinueOnError)
	fs.SetOutput(c.deps.stderr)
	yes := fs.Bool("yes", false, "skip the confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	session, err := c.deps.openSession(ctx, false)
	if err != nil {
		return err
	}
	defer session.Close()
	center, err := session.notificationCenter(ctx, c.deps.stdout)
	if err != nil {
		return err
	}
	count := center.LoadCount()(ctx)
	if count.Err != nil {
		return count.Err
	}
	center.ApplyCount(count)
	if !center.CanMarkAll() {
		fmt.Fprintln(c.deps.stdout, "No unread notifications.")
		return nil
	}
	if !*yes {
		question := fmt.Sprintf("Mark all %d unread notifications as read?", center.UnreadCount())
		ok, err := confirm(c.deps.stdin, c.deps.stderr, question)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(c.deps.stdout, "Cancelled.")
			return nil
		}
	}
	return center.MarkAll(ctx)
}

func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	if in == nil {
		return false, errors.New("no input to confirm from; pass --yes")
	}
	fmt.Fprintf(out, "%s [y/N] ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

type PrefsCommand struct {
	deps commandDeps
}

func NewPrefsCommand(deps commandDeps) *PrefsCommand {
	return &PrefsCommand{deps: deps}
}

func (c *PrefsCommand) Run(args []string) error {
	fs := flag.NewFlagSet("prefs", flag.ContinueOnError)
	fs.SetOutput(c.deps.stderr)
	email := fs.Bool("email", false, "enable or disable email notifications")
	webhook := fs.String("webhook", "", "discord webhook URL (empty clears it)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	ctx := context.Background()
	session, err := c.deps.openSession(ctx, false)
	if err != nil {
		return err
	}
	defer session.Close()
	center, err := session.notificationCenter(ctx, c.deps.stdout)
	if err != nil {
		return err
	}
	prefs, err := center.LoadPreferences(ctx)
	if err != nil {
		return err
	}
	if len(set) > 0 {
		next := *prefs
		if set["email"] {
			next.EnableEmailNotifications = *email
		}
		if set["webhook"] {
			next.DiscordWebhook = strings.TrimSpace(*webhook)
		}
		prefs, err = center.SavePreferences(ctx, next)
		if err != nil {
			return err
		}
	}
	printPreferences(c.deps.stdout, *prefs)
	return nil
}

func printPreferences(out io.Writer, prefs types.UserPreferences) {
	email := "off"
	if prefs.EnableEmailNotifications {
		email = "on"
	}
	webhook := prefs.DiscordWebhook
	if webhook == "" {
		webhook = "-"
	}
	fmt.Fprintf(out, "email notifications: %s\ndiscord webhook:     %s\n", email, webhook)
}
