package main

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mattn/go-runewidth"

	"dalgoctl/internal/client"
	"dalgoctl/internal/sanitizer"
	"dalgoctl/internal/types"
)

const version = "dev"

const (
	messageColumnWidth = 60
	timestampLayout    = "2006-01-02 15:04"
)

func printNotifications(output io.Writer, items []types.Notification) {
	writer := tabwriter.NewWriter(output, 0, 8, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tSTATUS\tAUTHOR\tTIME\tMESSAGE")
	for _, item := range items {
		status := "read"
		if !item.ReadStatus {
			status = "unread"
		}
		if item.Urgent {
			status += "!"
		}
		when := "-"
		if !item.Timestamp.IsZero() {
			when = item.Timestamp.Local().Format(timestampLayout)
		}
		message, _, _ := strings.Cut(item.Message, "\n")
		message = runewidth.Truncate(sanitizer.Line(message), messageColumnWidth, "…")
		fmt.Fprintf(writer, "%d\t%s\t%s\t%s\t%s\n", item.ID, status, sanitizer.Line(item.Author), when, message)
	}
	_ = writer.Flush()
}

func printNodes(output io.Writer, records []*types.NodeRecord) {
	writer := tabwriter.NewWriter(output, 0, 8, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tTYPE\tLABEL\tUPDATED")
	for _, record := range records {
		node := record.Node
		label := node.Label()
		if label == node.ID {
			label = "-"
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n", node.ID, node.Type, label, record.UpdatedAt.Local().Format(time.RFC3339))
	}
	_ = writer.Flush()
}

func parseIDs(args []string) ([]int, error) {
	ids := make([]int, 0, len(args))
	for _, raw := range args {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.Atoi(part)
			if err != nil || id <= 0 {
				return nil, fmt.Errorf("invalid notification id %q", part)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ",")
}

func (s *stringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}

func exitOnErr(label string, err error, stderr io.Writer) {
	if err == nil {
		return
	}
	fmt.Fprintf(stderr, "%s error: %s\n", label, client.UserMessage(err))
	os.Exit(1)
}

type VersionCommand struct {
	stdout  io.Writer
	version string
}

func NewVersionCommand(stdout io.Writer, version string) *VersionCommand {
	return &VersionCommand{stdout: stdout, version: version}
}

func (c *VersionCommand) Run([]string) error {
	_, err := fmt.Fprintln(c.stdout, c.version)
	return err
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		var revision string
		var modified string
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				revision = setting.Value
			case "vcs.modified":
				modified = setting.Value
			}
		}
		if revision != "" {
			if modified == "true" {
				return revision + "-dirty"
			}
			return revision
		}
	}

	exe, err := os.Executable()
	if err == nil {
		file, err := os.Open(exe)
		if err == nil {
			defer file.Close()
			hasher := sha256.New()
			if _, err := io.Copy(hasher, file); err == nil {
				sum := hasher.Sum(nil)
				return fmt.Sprintf("bin-%x", sum[:6])
			}
		}
	}

	return version
}
