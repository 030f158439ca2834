package main

import (
	"io"
	"os"

	"dalgoctl/internal/app"
	"dalgoctl/internal/config"
)

type commandRunner interface {
	Run(args []string) error
}

type commandWiring struct {
	stdin              io.Reader
	stdout             io.Writer
	stderr             io.Writer
	loadConfig         configLoader
	newClient          clientFactory
	openRepository     repositoryFactory
	loadUIConfig       func() (config.UIConfig, error)
	configureUILogging uiLoggingConfigurer
	runUI              func(app.Options) error
	version            string
}

func defaultCommandWiring(stdout, stderr io.Writer) commandWiring {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return commandWiring{
		stdin:              os.Stdin,
		stdout:             stdout,
		stderr:             stderr,
		loadConfig:         config.LoadCoreConfig,
		newClient:          newAPIClient,
		openRepository:     openConfiguredRepository,
		loadUIConfig:       config.LoadUIConfig,
		configureUILogging: configureUILogging,
		runUI:              app.Run,
		version:            buildVersion(),
	}
}

func (w commandWiring) deps() commandDeps {
	return commandDeps{
		stdin:          w.stdin,
		stdout:         w.stdout,
		stderr:         w.stderr,
		loadConfig:     w.loadConfig,
		newClient:      w.newClient,
		openRepository: w.openRepository,
	}
}

func buildCommands(wiring commandWiring) map[string]commandRunner {
	deps := wiring.deps()
	return map[string]commandRunner{
		"list":          NewListCommand(deps),
		"unread":        NewUnreadCommand(deps),
		"mark-read":     NewMarkCommand(deps, "mark-read", true),
		"mark-unread":   NewMarkCommand(deps, "mark-unread", false),
		"mark-all-read": NewMarkAllCommand(deps),
		"prefs":         NewPrefsCommand(deps),
		"rename":        NewRenameCommand(deps),
		"nodes":         NewNodesCommand(deps),
		"ui":            NewUICommand(deps, wiring.loadUIConfig, wiring.configureUILogging, wiring.runUI, wiring.version),
		"config":        NewConfigCommand(wiring.stdout, wiring.stderr),
		"version":       NewVersionCommand(wiring.stdout, wiring.version),
	}
}
