package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/updrive/updrive/internal/client/config"
	"github.com/updrive/updrive/internal/client/sync"
	"github.com/updrive/updrive/internal/client/workspace"
	"github.com/updrive/updrive/internal/drivesdk"
	"github.com/updrive/updrive/internal/netcheck"
)

const (
	statusCleanupInterval = 10 * time.Minute
	statusRetention       = time.Hour
)

// Client is the long-running sync daemon for one watch dir.
type Client struct {
	config *config.Config
	ws     *workspace.Workspace
	remote drivesdk.Remote
	gate   *netcheck.Gate
	sync   *sync.SyncManager
}

func New(cfg *config.Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	ws, err := workspace.NewWorkspace(cfg.WatchDir, cfg.StateDir())
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	remote, err := drivesdk.New(&drivesdk.RemoteConfig{
		Backend:   cfg.Backend,
		ServerURL: cfg.ServerURL,
		Token:     cfg.Token,
		S3:        cfg.S3,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create remote: %w", err)
	}

	gate := netcheck.NewGate(cfg.Sync.ProbeAddr, cfg.Sync.ProbeTimeout())

	mgr, err := sync.NewManager(ws, remote, gate, sync.ManagerOptions{
		RemoteFolder:   cfg.RemoteFolder,
		DebounceWindow: cfg.Sync.DebounceWindow(),
		SingleShotMax:  cfg.Sync.SingleShotMax,
		ChunkSize:      cfg.Sync.ChunkSize,
		ContentHash:    cfg.Sync.ContentHash,
		Include:        cfg.Sync.Include,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create sync manager: %w", err)
	}

	return &Client{
		config: cfg,
		ws:     ws,
		remote: remote,
		gate:   gate,
		sync:   mgr,
	}, nil
}

func (c *Client) Workspace() *workspace.Workspace {
	return c.ws
}

func (c *Client) Sync() *sync.SyncManager {
	return c.sync
}

// Start runs the daemon until the context is cancelled.
func (c *Client) Start(ctx context.Context) error {
	slog.Info("updrive client start",
		"watch", c.ws.WatchDir,
		"state", c.ws.StateDir,
		"backend", c.config.Backend,
		"probe", c.gate.Addr())

	if err := c.ws.Setup(); err != nil {
		return fmt.Errorf("failed to set up workspace: %w", err)
	}
	defer func() {
		if err := c.ws.Unlock(); err != nil {
			slog.Error("failed to unlock workspace", "error", err)
		}
	}()

	if err := c.sync.Start(ctx); err != nil {
		return fmt.Errorf("failed to start sync manager: %w", err)
	}

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		ticker := time.NewTicker(statusCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-egCtx.Done():
				return nil
			case <-ticker.C:
				c.sync.Status().Cleanup(statusRetention)
			}
		}
	})

	eg.Go(func() error {
		<-egCtx.Done()
		slog.Info("received interrupt signal, stopping client")
		return c.sync.Stop()
	})

	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("client failure", "error", err)
		return err
	}

	slog.Info("updrive client stopped")
	return nil
}
