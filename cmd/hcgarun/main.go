package main

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/custodia-labs/hcgarun/internal/adapters/driven/config/file"
	"github.com/custodia-labs/hcgarun/internal/adapters/driven/process"
	"github.com/custodia-labs/hcgarun/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/hcgarun/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/hcgarun/internal/adapters/driven/watch"
	"github.com/custodia-labs/hcgarun/internal/adapters/driving/cli"
	"github.com/custodia-labs/hcgarun/internal/core/ports/driven"
	"github.com/custodia-labs/hcgarun/internal/core/services"
	"github.com/custodia-labs/hcgarun/internal/logger"
)

func main() {
	os.Exit(cli.Execute(wire))
}

// wire builds the production adapters. Run history falls back to memory
// when the database cannot be opened, so a broken history never blocks a run.
func wire(configDir string) (*cli.Services, error) {
	configStore, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, err
	}
	settings := services.NewSettingsService(configStore)

	var (
		runs    driven.RunStore
		closers []func() error
	)
	store, err := sqlite.NewStore(dataDir(configDir))
	if err != nil {
		logger.Warn("run history unavailable, using memory: %v", err)
		runs = memory.NewRunStore()
	} else {
		runs = store.RunStore()
		closers = append(closers, store.Close)
	}

	return &cli.Services{
		Settings: settings,
		History:  services.NewHistoryService(runs),
		Runner:   process.NewRunner(),
		Runs:     runs,
		Watcher:  watch.NewWatcher(watch.DefaultSettle),
		Close: func() error {
			var errs []error
			for _, c := range closers {
				errs = append(errs, c())
			}
			return errors.Join(errs...)
		},
	}, nil
}

// dataDir keeps the database next to a custom config directory.
// Empty selects the store's default.
func dataDir(configDir string) string {
	if configDir == "" {
		return ""
	}
	return filepath.Join(configDir, "data")
}
