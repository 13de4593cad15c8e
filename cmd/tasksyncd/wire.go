package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"tasksync/internal/config"
	"tasksync/internal/connectivity"
	"tasksync/internal/credentials"
	"tasksync/internal/facade"
	"tasksync/internal/localstore"
	"tasksync/internal/queue"
	"tasksync/internal/remotestore"
	"tasksync/internal/remotestore/transport"
	"tasksync/internal/syncengine"
)

// system is the fully wired set of components a CLI command needs. Built
// once per invocation from the loaded config, mirroring the teacher's
// main.go composition-root style (backend construction inlined in main)
// but generalized into a single constructor shared by every subcommand.
type system struct {
	cfg       *config.Config
	local     *localstore.Store
	remote    *remotestore.Store
	transport *transport.Client
	engine    *syncengine.Engine
	facade    *facade.Facade
	queue     *queue.Queue
	monitor   *connectivity.Monitor
}

func buildSystem(cfg *config.Config) (*system, error) {
	local := localstore.New(cfg.Local.Path)

	token, err := credentials.NewResolver().Resolve(cfg.Remote.TokenEnvVar, "")
	if err != nil {
		return nil, fmt.Errorf("resolving remote token: %w", err)
	}

	tc := transport.New(transport.Config{
		BaseURL:       cfg.Remote.BaseURL,
		Token:         token.Value,
		RatePerSecond: cfg.Remote.RatePerSecond,
		Burst:         cfg.Remote.Burst,
	})
	remote := remotestore.New(tc, cfg.RemoteStoreConfig())

	engine := syncengine.New(local, remote, cfg.Strategy())

	q, err := queue.Open(queuePath(cfg), queue.Options{MaxRetries: cfg.Persistence.RetryAttempts})
	if err != nil {
		return nil, fmt.Errorf("opening offline queue: %w", err)
	}

	fc := facade.New(local, remote, engine, q, cfg.FacadeConfig())

	return &system{cfg: cfg, local: local, remote: remote, transport: tc, engine: engine, facade: fc, queue: q}, nil
}

func queuePath(cfg *config.Config) string {
	return filepath.Join(filepath.Dir(cfg.Local.Path), "offline_queue.db")
}

// withConnectivity attaches a connectivity monitor that pings the remote
// board endpoint, firing onTransition on every online/offline edge so
// callers (the status TUI, primarily) can render live connectivity state.
func (s *system) withConnectivity(onTransition func(online bool)) {
	endpoint := fmt.Sprintf("/boards/%s", s.cfg.Remote.BoardID)
	s.monitor = connectivity.New(func(ctx context.Context) error {
		return s.transport.Ping(ctx, endpoint)
	}, 30*time.Second, onTransition)
	s.monitor.Start()
}

func (s *system) close() {
	if s.monitor != nil {
		s.monitor.Stop()
	}
	if s.queue != nil {
		s.queue.Close()
	}
}
