package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"dalgoctl/internal/app"
	"dalgoctl/internal/config"
	"dalgoctl/internal/logging"
	"dalgoctl/internal/notifications"
	"dalgoctl/internal/types"
)

type uiLoggingConfigurer func(level string) (logging.Logger, func())

type UICommand struct {
	deps               commandDeps
	loadUIConfig       func() (config.UIConfig, error)
	configureUILogging uiLoggingConfigurer
	runUI              func(app.Options) error
	version            string
}

func NewUICommand(deps commandDeps, loadUIConfig func() (config.UIConfig, error), configureUILogging uiLoggingConfigurer, runUI func(app.Options) error, version string) *UICommand {
	return &UICommand{
		deps:               deps,
		loadUIConfig:       loadUIConfig,
		configureUILogging: configureUILogging,
		runUI:              runUI,
		version:            version,
	}
}

func (c *UICommand) Run(args []string) error {
	fs := flag.NewFlagSet("ui", flag.ContinueOnError)
	fs.SetOutput(c.deps.stderr)
	nodeID := fs.String("node", "", "remembered node to open the operation form on (default: last node)")
	modeFlag := fs.String("mode", string(types.OperationActionCreate), "operation form mode: create|edit|view")
	viewFlag := fs.String("view", "", "view to open: notifications|operation (default: last view)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	mode := types.OperationAction(strings.ToLower(strings.TrimSpace(*modeFlag)))
	if !mode.Valid() {
		return fmt.Errorf("invalid mode %q: must be create, edit or view", *modeFlag)
	}

	cfg, err := c.deps.loadConfig()
	if err != nil {
		return err
	}
	uiCfg, err := c.loadUIConfig()
	if err != nil {
		return err
	}
	logger, closeLog := logging.Nop(), func() {}
	if c.configureUILogging != nil {
		logger, closeLog = c.configureUILogging(cfg.LogLevel())
	}
	defer closeLog()
	logger.Info("console starting", logging.F("version", c.version))

	ctx := context.Background()
	apiClient, err := c.deps.newClient(cfg, logger)
	if err != nil {
		return err
	}
	repo, err := c.deps.openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	location, err := notifications.NewStoredLocation(ctx, repo.ConsoleState())
	if err != nil {
		return err
	}
	state, err := repo.ConsoleState().Load(ctx)
	if err != nil {
		return err
	}

	view := state.ActiveView
	if strings.TrimSpace(*viewFlag) != "" {
		view = types.NormalizeConsoleView(strings.ToLower(strings.TrimSpace(*viewFlag)))
	}
	id := strings.TrimSpace(*nodeID)
	explicit := id != ""
	if !explicit {
		id = strings.TrimSpace(state.LastNodeID)
	}
	var node *types.Node
	if id != "" {
		record, ok, err := repo.Nodes().Get(ctx, id)
		switch {
		case err != nil:
			return err
		case ok:
			node = &record.Node
		case explicit:
			return fmt.Errorf("node %s is not remembered; save an operation with rename first", id)
		default:
			logger.Warn("last node is no longer remembered", logging.F("node_id", id))
		}
	}
	if explicit {
		view = types.ConsoleViewOperation
	}

	return c.runUI(app.Options{
		Notifications: apiClient,
		Operations:    apiClient,
		Location:      location,
		State:         repo.ConsoleState(),
		Nodes:         repo.Nodes(),
		Logger:        logger,
		UI:            uiCfg,
		PageSize:      cfg.PageSize(),
		Timeout:       cfg.HTTPTimeout(),
		View:          types.NormalizeConsoleView(string(view)),
		Node:          node,
		Mode:          mode,
	})
}

// configureUILogging sends both the structured logger and the standard log
// package to ui.log, since the console owns the terminal.
func configureUILogging(level string) (logging.Logger, func()) {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logPath, err := config.UILogPath()
	if err != nil {
		return logging.Nop(), func() {}
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err != nil {
		return logging.Nop(), func() {}
	}
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return logging.Nop(), func() {}
	}
	log.SetOutput(file)
	return logging.New(file, logging.ParseLevel(level)), func() {
		log.SetOutput(os.Stderr)
		if err := file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			fmt.Fprintf(os.Stderr, "close ui log: %v\n", err)
		}
	}
}
