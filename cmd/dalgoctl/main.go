package main

import (
	"fmt"
	"os"
)

const usageText = `dalgoctl drives the notification center and the rename-columns operation
of a Dalgo workspace from the terminal.

Usage:
  dalgoctl <command> [flags]

Commands:
  list            list notifications on a tab
  unread          print the unread notification count
  mark-read       mark notifications as read
  mark-unread     mark notifications as unread
  mark-all-read   mark every notification as read
  prefs           show or change notification preferences
  rename          create, edit or view a rename-columns operation
  nodes           list or forget remembered graph nodes
  ui              run the terminal console
  config          print configuration (effective or defaults)
  version         print the build version
  help            show help

List flags:
  --tab all|read|unread   tab to show (default: the last tab used)
  --page N                page to show
  --json                  print the page as JSON

Rename flags:
  --node ID               remembered node to start from
  --node-file PATH        node JSON to start from
  --schema, --table, --id, --target
                          describe a source model node inline
  --mode create|edit|view form mode (default create)
  --map PATH              YAML or JSON mapping of old to new names
  --pair OLD=NEW          one mapping entry (repeatable)
  --dry-run               print the request body instead of saving

Examples:
  dalgoctl list --tab unread
  dalgoctl mark-read 12 14
  dalgoctl rename --schema staging --table orders --id <uuid> --target <uuid> --pair id=order_id
  dalgoctl rename --node <operation-id> --mode edit --pair name=customer   (merges over saved renames; --replace sends only these)
  dalgoctl rename --node <operation-id> --mode view
  dalgoctl ui
`

func printUsage() {
	fmt.Fprint(os.Stderr, usageText)
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		return
	}

	wiring := defaultCommandWiring(os.Stdout, os.Stderr)
	commands := buildCommands(wiring)

	switch args[0] {
	case "-h", "--help", "help":
		printUsage()
		return
	}

	runner, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
	exitOnErr(args[0], runner.Run(args[1:]), wiring.stderr)
}
