package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "amm",
		Short:        "Constant-product AMM engine for tokenized domain assets",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Apply a JSONL stream of operations through the engine",
		RunE:  runReplay,
	}

	replayCmd.Flags().String("in", "", "input operations JSONL")
	replayCmd.Flags().String("journal", "./data/trades.jsonl", "output transaction journal JSONL")
	replayCmd.Flags().String("pg-dsn", "", "Postgres DSN (memory store when empty)")
	replayCmd.Flags().String("rpc", "", "Ethereum RPC URL (memory settler when empty)")
	replayCmd.Flags().Float64("fee-rate", 0.003, "default pool fee rate")
	replayCmd.Flags().Float64("slippage-tolerance", 0.02, "default slippage tolerance")
	replayCmd.Flags().Float64("minimum-liquidity", 1000, "minimum base amount for pool creation")
	replayCmd.Flags().Float64("price-impact-threshold", 0.05, "maximum price impact for execution")
	replayCmd.Flags().Duration("quote-ttl", 5*time.Minute, "quote validity window")
	replayCmd.Flags().Bool("strict-revalidation", true, "re-price quotes against current reserves at execution")
	replayCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(replayCmd)

	analyticsCmd := &cobra.Command{
		Use:   "analytics",
		Short: "Print pool analytics from the durable store",
		RunE:  runAnalytics,
	}

	analyticsCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	analyticsCmd.Flags().String("pool", "", "pool id (all pools when empty)")
	analyticsCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(analyticsCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
