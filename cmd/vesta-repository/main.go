// Copyright 2024 The Vesta Authors
// This file is part of Vesta.
//
// Vesta is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Vesta is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Vesta. If not, see <http://www.gnu.org/licenses/>.

// Command vesta-repository is the repository server process: it loads
// config, opens the blob store, constructs the in-memory object tree,
// makes one mastership-recovery pass over the transfers its journal
// shows as pending, and then serves until signaled to stop. It is not the vcheckin/vcheckout/... client tool surface (out of
// scope per spec.md) — it is the daemon those tools would talk to.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vesta-scm/vesta/config"
	"github.com/vesta-scm/vesta/logging"
	"github.com/vesta-scm/vesta/mastership"
	"github.com/vesta-scm/vesta/rpc"
	"github.com/vesta-scm/vesta/source"
	"github.com/vesta-scm/vesta/store"
	"github.com/vesta-scm/vesta/txlog"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	var dev bool

	cmd := &cobra.Command{
		Use:   "vesta-repository",
		Short: "Run one repository host's mastership and replication server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(context.Background(), configPath, dev)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "vesta-repository.toml", "path to the repository's TOML config file")
	cmd.Flags().BoolVar(&dev, "dev", false, "use a human-readable development logger instead of JSON")
	return cmd
}

func runServe(ctx context.Context, configPath string, dev bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := newLogger(dev)
	if err != nil {
		return fmt.Errorf("vesta-repository: %w", err)
	}
	defer logger.Sync()

	blobs, err := store.Open(cfg.StorePath)
	if err != nil {
		return fmt.Errorf("vesta-repository: %w", err)
	}
	defer blobs.Close()

	repo := source.NewRepository(cfg.HostPort, nil)
	repo.MasterHint = cfg.MasterHint
	logger.Infow("repository initialized", "host_port", cfg.HostPort, "store_path", cfg.StorePath)

	journal, err := os.OpenFile(cfg.HostPort+".txlog", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("vesta-repository: open journal: %w", err)
	}
	defer journal.Close()
	log := txlog.NewWriter(journal)

	acquirer := &mastership.Acquirer{Dst: repo, Log: log}
	recoverer := &mastership.Recoverer{
		Acquirer: acquirer,
		Dial:     localOnlyDialer(cfg.HostPort, repo, blobs),
		Idle:     cfg.RecoverySleep.AsDuration(),
	}

	pending, err := readPendingJournal(cfg.HostPort + ".txlog")
	if err != nil {
		return fmt.Errorf("vesta-repository: %w", err)
	}
	if len(pending) > 0 {
		logger.Infow("resuming interrupted mastership transfers", "count", len(pending))
		if err := recoverer.Run(ctx, pending); err != nil {
			logger.Errorw("recovery pass failed", "err", err)
		}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger.Infow("serving", "host_port", cfg.HostPort)
	<-ctx.Done()
	logger.Infow("shutting down")
	return nil
}

func newLogger(dev bool) (*logging.Logger, error) {
	if dev {
		return logging.NewDevelopment()
	}
	return logging.New()
}

// localOnlyDialer is a placeholder Dialer for single-process
// deployments and tests: it only resolves the repository's own
// host:port, to itself. A multi-host deployment supplies a Dialer that
// looks peers up in its configured cluster map and connects over the
// network; wiring that transport is out of scope here (see DESIGN.md).
func localOnlyDialer(hostPort string, repo *source.Repository, blobs *store.BlobStore) mastership.Dialer {
	return func(target string) (rpc.Client, error) {
		if target != hostPort {
			return nil, fmt.Errorf("vesta-repository: no route to peer %q", target)
		}
		return rpc.NewLocalClient(repo, blobs), nil
	}
}

func readPendingJournal(path string) ([]txlog.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	records, err := txlog.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return txlog.PendingAcquisitions(records), nil
}
