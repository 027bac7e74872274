// Command todoapi serves the todo HTTP API and manages its data.
package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"todo-service/internal/config"
	"todo-service/internal/repository"
	"todo-service/internal/service"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var configPath string

var rootCmd = &cobra.Command{
	Use:           "todoapi",
	Short:         "Personal todo list service",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "TOML config file (default $TODO_CONFIG)")
}

// app bundles the configured store and the services built on it.
type app struct {
	cfg        config.Config
	store      *repository.Store
	todos      *service.TodoService
	categories *service.CategoryService
	stats      *service.StatsService
	transfer   *service.TransferService
	digest     *service.DigestService
}

func openApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	store, err := repository.Open(cfg.StoreDriver, cfg.DatabaseURL, cfg.DataDir, log.New(os.Stderr, "store: ", log.LstdFlags))
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:        cfg,
		store:      store,
		todos:      service.NewTodoService(store),
		categories: service.NewCategoryService(store),
		stats:      service.NewStatsService(store),
		transfer:   service.NewTransferService(store, log.New(os.Stderr, "transfer: ", log.LstdFlags)),
		digest:     service.NewDigestService(store),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		log.Printf("[warn] close store: %v", err)
	}
}
