// Copyright 2025 UMH Systems GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/united-manufacturing-hub/htapp/pkg/client"
	"github.com/united-manufacturing-hub/htapp/pkg/config"
	"github.com/united-manufacturing-hub/htapp/pkg/constants"
	"github.com/united-manufacturing-hub/htapp/pkg/credentials"
	"github.com/united-manufacturing-hub/htapp/pkg/gateway"
	"github.com/united-manufacturing-hub/htapp/pkg/ipc"
	"github.com/united-manufacturing-hub/htapp/pkg/ipc/httpbridge"
	"github.com/united-manufacturing-hub/htapp/pkg/logger"
	"github.com/united-manufacturing-hub/htapp/pkg/school"
)

func main() {
	logger.Initialize()
	defer logger.Sync()

	log := logger.For(logger.ComponentCore)

	backupPath := flag.String("backup", "", "write a compressed snapshot of the database to this file and exit")
	restorePath := flag.String("restore", "", "replace the database with a snapshot made by -backup and exit")
	writeConfig := flag.Bool("write-config", false, "persist the effective configuration to the data directory and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Errorf("Failed to load config: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *writeConfig:
		err = config.Write(cfg)
	case *restorePath != "":
		err = restore(cfg, *restorePath)
	case *backupPath != "":
		err = backup(ctx, cfg, *backupPath)
	default:
		err = run(ctx, cfg, log)
	}

	if err != nil {
		log.Errorf("%s failed: %v", constants.AppName, err)
		logger.Sync()
		os.Exit(1)
	}

	log.Infof("%s completed", constants.AppName)
}

func gatewayOptions(cfg config.FullConfig) gateway.Options {
	return gateway.Options{
		DatabasePath: cfg.DatabasePath(),
		StoragePath:  cfg.StoragePath(),
	}
}

// run serves boundary requests until ctx is cancelled.
func run(ctx context.Context, cfg config.FullConfig, log *zap.SugaredLogger) error {
	log.Infof("Starting %s (data dir %s)", constants.AppName, cfg.DataDir)

	svc, err := gateway.Open(ctx, gatewayOptions(cfg))
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			log.Errorf("Failed to close gateway: %v", err)
		}
	}()

	server := ipc.NewServer(svc, cfg.IPC.Workers)

	var bridge *httpbridge.Server
	if cfg.Bridge.ListenAddr != "" {
		if bridge, err = httpbridge.NewServer(server.Transport(), cfg.Bridge.ListenAddr); err != nil {
			return err
		}
	} else {
		log.Info("HTTP bridge disabled via configuration")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return server.Serve(groupCtx) })

	if bridge != nil {
		if err := bridge.Start(); err != nil {
			cancel()
			_ = group.Wait()

			return err
		}

		group.Go(func() error {
			<-groupCtx.Done()

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer shutdownCancel()

			return bridge.Shutdown(shutdownCtx)
		})
	}

	if err := announce(groupCtx, cfg, server.Transport(), log); err != nil {
		log.Warnf("Startup check failed: %v", err)
	}

	err = group.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}

// announce runs a first request through the boundary and logs the classes
// the UI will offer.
func announce(ctx context.Context, cfg config.FullConfig, transport ipc.Transport, log *zap.SugaredLogger) error {
	comparator, err := credentials.For(cfg.Credentials.Scheme)
	if err != nil {
		return err
	}

	db, err := client.New(transport)
	if err != nil {
		return err
	}

	classes, err := school.New(db, comparator).ActiveClassNames(ctx)
	if err != nil {
		return err
	}

	log.Infof("Ready: %d active classes, credentials scheme %s", len(classes), cfg.Credentials.Scheme)

	return nil
}

func backup(ctx context.Context, cfg config.FullConfig, path string) error {
	svc, err := gateway.Open(ctx, gatewayOptions(cfg))
	if err != nil {
		return err
	}
	defer svc.Close()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}

	if err := svc.Backup(ctx, f); err != nil {
		_ = f.Close()
		_ = os.Remove(path)

		return err
	}

	return f.Close()
}

func restore(cfg config.FullConfig, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open backup file: %w", err)
	}
	defer f.Close()

	if err := os.MkdirAll(cfg.DataDir, constants.StorageDirPerm); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	return gateway.Restore(f, cfg.DatabasePath())
}
