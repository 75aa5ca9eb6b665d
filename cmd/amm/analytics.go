package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"domainSwap/internal/amm"
	"domainSwap/internal/config"
	"domainSwap/internal/settlement"
	"domainSwap/internal/storage/postgres"
)

func runAnalytics(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.PGDSN == "" {
		return fmt.Errorf("pg dsn is required")
	}
	poolID, _ := cmd.Flags().GetString("pool")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	engine, err := amm.New(cfg.Engine(), amm.Deps{
		Store:   store,
		Settler: settlement.NewMemorySettler(),
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	if err := engine.Hydrate(ctx); err != nil {
		return err
	}

	logger.Info("analytics start", zap.String("pg_dsn", redactDSN(cfg.PGDSN)), zap.String("pool", poolID))

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")

	if poolID != "" {
		analytics, err := engine.PoolAnalytics(ctx, poolID)
		if err != nil {
			return err
		}
		return encoder.Encode(analytics)
	}

	pools, err := store.ListPools(ctx)
	if err != nil {
		return fmt.Errorf("list pools: %w", err)
	}
	for _, pool := range pools {
		analytics, err := engine.PoolAnalytics(ctx, pool.PoolID)
		if err != nil {
			return err
		}
		if err := encoder.Encode(analytics); err != nil {
			return err
		}
	}
	return nil
}
