package main

import (
	"context"
	"fmt"
	"io"

	"dalgoctl/internal/client"
	"dalgoctl/internal/config"
	"dalgoctl/internal/logging"
	"dalgoctl/internal/notifications"
	"dalgoctl/internal/opform"
	"dalgoctl/internal/store"
)

type configLoader func() (config.CoreConfig, error)

type clientFactory func(cfg config.CoreConfig, logger logging.Logger) (commandClient, error)

type repositoryFactory func(ctx context.Context, cfg config.CoreConfig) (store.Repository, error)

// commandClient is everything the commands call on the Dalgo API.
type commandClient interface {
	notifications.Backend
	opform.Backend
}

func newAPIClient(cfg config.CoreConfig, logger logging.Logger) (commandClient, error) {
	apiClient, err := client.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	return apiClient, nil
}

// openConfiguredRepository opens the storage backend the config names. A
// fresh bbolt database is seeded from the JSON state file.
func openConfiguredRepository(ctx context.Context, cfg config.CoreConfig) (store.Repository, error) {
	paths, err := store.DefaultRepositoryPaths()
	if err != nil {
		return nil, err
	}
	repo, err := store.OpenRepository(paths, cfg.StorageBackend())
	if err != nil {
		return nil, err
	}
	if err := store.SeedRepositoryFromFiles(ctx, repo, paths); err != nil {
		_ = repo.Close()
		return nil, err
	}
	return repo, nil
}

type commandDeps struct {
	stdin          io.Reader
	stdout         io.Writer
	stderr         io.Writer
	loadConfig     configLoader
	newClient      clientFactory
	openRepository repositoryFactory
}

type commandSession struct {
	cfg    config.CoreConfig
	logger logging.Logger
	client commandClient
	repo   store.Repository
}

func (d commandDeps) openSession(ctx context.Context, withRepo bool) (*commandSession, error) {
	cfg, err := d.loadConfig()
	if err != nil {
		return nil, err
	}
	logger := logging.New(d.stderr, logging.ParseLevel(cfg.LogLevel()))
	apiClient, err := d.newClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	session := &commandSession{cfg: cfg, logger: logger, client: apiClient}
	if withRepo {
		repo, err := d.openRepository(ctx, cfg)
		if err != nil {
			return nil, err
		}
		session.repo = repo
	}
	return session, nil
}

func (s *commandSession) Close() error {
	if s == nil || s.repo == nil {
		return nil
	}
	return s.repo.Close()
}

// notificationCenter builds a controller whose tab lives in the stored
// console state when a repository is open.
func (s *commandSession) notificationCenter(ctx context.Context, out io.Writer) (*notifications.Controller, error) {
	opts := notifications.Options{
		Backend:  s.client,
		Notifier: cliNotifier{out: out},
		Logger:   s.logger,
		PageSize: s.cfg.PageSize(),
	}
	if s.repo != nil {
		location, err := notifications.NewStoredLocation(ctx, s.repo.ConsoleState())
		if err != nil {
			return nil, err
		}
		opts.Location = location
	}
	return notifications.New(opts), nil
}

// cliNotifier prints success messages. Failures come back as errors and are
// reported once by exitOnErr.
type cliNotifier struct {
	out io.Writer
}

func (n cliNotifier) Success(message string) {
	fmt.Fprintln(n.out, message)
}

func (cliNotifier) Error(string) {}
