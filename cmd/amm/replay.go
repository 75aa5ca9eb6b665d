package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"domainSwap/internal/amm"
	"domainSwap/internal/config"
	"domainSwap/internal/model"
	"domainSwap/internal/settlement"
	"domainSwap/internal/storage"
	"domainSwap/internal/storage/postgres"
)

// opRecord is one replayed operation. Amounts travel as strings to keep
// decimal precision through JSON.
type opRecord struct {
	Op           string `json:"op"`
	PoolID       string `json:"pool_id,omitempty"`
	DomainAsset  string `json:"domain_asset,omitempty"`
	BaseToken    string `json:"base_token,omitempty"`
	Actor        string `json:"actor"`
	DomainAmount string `json:"domain_amount,omitempty"`
	BaseAmount   string `json:"base_amount,omitempty"`
	Shares       string `json:"shares,omitempty"`
	InputToken   string `json:"input_token,omitempty"`
	InputAmount  string `json:"input_amount,omitempty"`
	Slippage     string `json:"slippage,omitempty"`
	FeeRate      string `json:"fee_rate,omitempty"`
}

func runReplay(cmd *cobra.Command, _ []string) error {
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

	if cfg.Input == "" {
		return fmt.Errorf("input path is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store storage.Store = storage.NewMemoryStore()
	if cfg.PGDSN != "" {
		pgStore, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pgStore.Close()
		store = pgStore
	}

	var settler settlement.Settler = settlement.NewMemorySettler()
	if cfg.RPCURL != "" {
		ethSettler, err := settlement.NewEthSettler(ctx, cfg.RPCURL, registryDirectory())
		if err != nil {
			return fmt.Errorf("connect rpc: %w", err)
		}
		defer ethSettler.Close()
		settler = ethSettler
	}

	engine, err := amm.New(cfg.Engine(), amm.Deps{
		Store:   store,
		Journal: storage.NewJsonlJournal(cfg.Journal),
		Settler: settler,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	if err := engine.Hydrate(ctx); err != nil {
		return err
	}

	logger.Info("replay start",
		zap.String("in", cfg.Input),
		zap.String("journal", cfg.Journal),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Bool("strict_revalidation", cfg.StrictRevalidation),
	)

	return replayFile(ctx, engine, cfg.Input, logger)
}

func replayFile(ctx context.Context, engine *amm.Engine, inputPath string, logger *zap.Logger) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	// Pool ids assigned at creation are referenced by later lines via
	// the pair key, so track them as we go.
	poolByPair := make(map[string]string)

	var total, applied, failed int
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		total++

		var op opRecord
		if err := json.Unmarshal(line, &op); err != nil {
			failed++
			logger.Warn("decode operation", zap.Error(err))
			continue
		}

		if err := applyOp(ctx, engine, op, poolByPair); err != nil {
			failed++
			logger.Warn("apply operation", zap.String("op", op.Op), zap.Error(err))
			continue
		}
		applied++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	logger.Info("replay complete", zap.Int("total", total), zap.Int("applied", applied), zap.Int("failed", failed))
	return nil
}

func applyOp(ctx context.Context, engine *amm.Engine, op opRecord, poolByPair map[string]string) error {
	poolID := op.PoolID
	if poolID == "" && op.DomainAsset != "" {
		poolID = poolByPair[model.PairKey(op.DomainAsset, op.BaseToken)]
	}

	switch op.Op {
	case model.OpCreatePool:
		domainAmount, err := parseAmount(op.DomainAmount)
		if err != nil {
			return err
		}
		baseAmount, err := parseAmount(op.BaseAmount)
		if err != nil {
			return err
		}
		feeRate, err := parseOptional(op.FeeRate)
		if err != nil {
			return err
		}
		pool, _, err := engine.CreatePool(ctx, op.DomainAsset, op.BaseToken, domainAmount, baseAmount, feeRate, op.Actor)
		if err != nil {
			return err
		}
		poolByPair[pool.Pair()] = pool.PoolID
		return nil

	case model.OpAddLiquidity:
		domainAmount, err := parseAmount(op.DomainAmount)
		if err != nil {
			return err
		}
		baseAmount, err := parseAmount(op.BaseAmount)
		if err != nil {
			return err
		}
		_, err = engine.AddLiquidity(ctx, poolID, op.Actor, domainAmount, baseAmount)
		return err

	case model.OpRemoveLiquidity:
		shares, err := parseAmount(op.Shares)
		if err != nil {
			return err
		}
		_, err = engine.RemoveLiquidity(ctx, poolID, op.Actor, shares)
		return err

	case model.OpSwap:
		inputAmount, err := parseAmount(op.InputAmount)
		if err != nil {
			return err
		}
		slippage, err := parseOptional(op.Slippage)
		if err != nil {
			return err
		}
		quote, err := engine.Quote(poolID, op.InputToken, inputAmount, slippage)
		if err != nil {
			return err
		}
		_, err = engine.Execute(ctx, poolID, quote, op.Actor)
		return err

	default:
		return fmt.Errorf("unknown op %q", op.Op)
	}
}

func parseAmount(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, fmt.Errorf("missing amount")
	}
	return decimal.NewFromString(raw)
}

func parseOptional(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}

func registryDirectory() *settlement.StaticDirectory {
	tokens := make(map[string]settlement.TokenEntry)
	registry := model.DefaultBaseTokens()
	for _, symbol := range registry.Symbols() {
		token, _ := registry.Lookup(symbol)
		tokens[symbol] = settlement.TokenEntry{
			Address:  common.HexToAddress(token.ContractAddress),
			Decimals: token.Decimals,
		}
	}
	return &settlement.StaticDirectory{Tokens: tokens}
}
