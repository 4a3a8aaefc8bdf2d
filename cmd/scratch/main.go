package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	rgs "github.com/Ashenafi-pixel/gamecrafter-scratch-engine"
	"github.com/Ashenafi-pixel/gamecrafter-scratch-engine/config"
	"github.com/Ashenafi-pixel/gamecrafter-scratch-engine/gamemath"
	"github.com/Ashenafi-pixel/gamecrafter-scratch-engine/games"
	"github.com/Ashenafi-pixel/gamecrafter-scratch-engine/games/scratch"
)

var errNoDefinitionSource = errors.New("one of --config or --model is required")

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")
	cfg := config.Load()

	flag.StringVar(&cfg.ConfigPath, "config", cfg.ConfigPath, "Path to the game definition (.json, .yaml)")
	flag.Int64Var(&cfg.BetAmount, "betting-amount", cfg.BetAmount, "Bet amount, a positive integer")
	flag.StringVar(&cfg.ModelID, "model", cfg.ModelID, "Stored model_id to play when --config is not given")
	flag.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "Definition store directory")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	seed := flag.Uint64("seed", cfg.Seed, "Seed for a reproducible round")
	flag.Parse()
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			cfg.Seed, cfg.HasSeed = *seed, true
		}
	})

	logger, err := cfg.Logger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(context.Background(), cfg, logger, os.Stdout); err != nil {
		logger.Error("play failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, w io.Writer) error {
	def, err := resolveDefinition(ctx, cfg, logger)
	if err != nil {
		return err
	}

	roundID := uuid.NewString()
	roundLog := logger.With(zap.String("round_id", roundID), zap.String("model_id", def.ModelID))
	opts := []scratch.Option{scratch.WithLogger(roundLog)}
	if cfg.HasSeed {
		opts = append(opts, scratch.WithSource(scratch.NewSeededSource(cfg.Seed)))
	}
	engine, err := scratch.NewEngine(def, cfg.BetAmount, opts...)
	if err != nil {
		return err
	}
	out, err := engine.Start()
	if err != nil {
		return err
	}

	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode outcome: %w", err)
	}
	if _, err := fmt.Fprintln(w, string(data)); err != nil {
		return err
	}
	roundLog.Info("round played",
		zap.Int64("bet", engine.Bet()),
		zap.Int64("reward", out.Reward),
		zap.String("bonus_symbol", out.AppliedBonusSymbol),
	)
	return nil
}

// resolveDefinition prefers --config, then the file store, then the database registry.
func resolveDefinition(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*gamemath.Definition, error) {
	if cfg.ConfigPath != "" {
		return gamemath.LoadFile(cfg.ConfigPath)
	}
	if cfg.ModelID == "" {
		return nil, errNoDefinitionSource
	}
	if def := gamemath.NewStore(cfg.DataDir).Get(cfg.ModelID); def != nil {
		return def, nil
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("%w: %s", games.ErrNoDefinition, cfg.ModelID)
	}
	db, err := rgs.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	defer db.Close()
	registry := games.NewRegistry(logger)
	if _, err := registry.Load(ctx, db); err != nil {
		return nil, fmt.Errorf("load definitions: %w", err)
	}
	return registry.Get(cfg.ModelID)
}
