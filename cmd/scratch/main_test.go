package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	rgs "github.com/Ashenafi-pixel/gamecrafter-scratch-engine"
	"github.com/Ashenafi-pixel/gamecrafter-scratch-engine/config"
	"github.com/Ashenafi-pixel/gamecrafter-scratch-engine/gamemath"
	"github.com/Ashenafi-pixel/gamecrafter-scratch-engine/games"
	"github.com/Ashenafi-pixel/gamecrafter-scratch-engine/games/scratch"
)

var sampleConfig = filepath.Join("..", "..", "configs", "config.json")

func TestRun_ConfigFile(t *testing.T) {
	cfg := &config.Config{ConfigPath: sampleConfig, BetAmount: 100, Seed: 5, HasSeed: true}
	var buf bytes.Buffer
	if err := run(context.Background(), cfg, zap.NewNop(), &buf); err != nil {
		t.Fatal(err)
	}
	var out scratch.Outcome
	if err := jsoniter.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("%v\n%s", err, buf.String())
	}
	if len(out.Matrix) != 3 || out.AppliedBonusSymbol == "" || out.AppliedWinningCombinations == nil {
		t.Errorf("outcome %+v", out)
	}

	var again bytes.Buffer
	if err := run(context.Background(), cfg, zap.NewNop(), &again); err != nil {
		t.Fatal(err)
	}
	if buf.String() != again.String() {
		t.Error("same seed should print the same outcome")
	}
}

func TestRun_Errors(t *testing.T) {
	ctx := context.Background()
	if err := run(ctx, &config.Config{BetAmount: 10}, zap.NewNop(), &bytes.Buffer{}); !errors.Is(err, errNoDefinitionSource) {
		t.Errorf("expected errNoDefinitionSource, got %v", err)
	}
	if err := run(ctx, &config.Config{ConfigPath: sampleConfig}, zap.NewNop(), &bytes.Buffer{}); !errors.Is(err, scratch.ErrInvalidBetAmount) {
		t.Errorf("expected ErrInvalidBetAmount, got %v", err)
	}
	cfg := &config.Config{ModelID: "missing", BetAmount: 10, DataDir: t.TempDir()}
	if err := run(ctx, cfg, zap.NewNop(), &bytes.Buffer{}); !errors.Is(err, games.ErrNoDefinition) {
		t.Errorf("expected ErrNoDefinition, got %v", err)
	}
}

func TestRun_StoredModel(t *testing.T) {
	def, err := gamemath.LoadFile(sampleConfig)
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	if err := gamemath.NewStore(dir).Register(def); err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{ModelID: def.ModelID, BetAmount: 10, DataDir: dir}
	var buf bytes.Buffer
	if err := run(context.Background(), cfg, zap.NewNop(), &buf); err != nil {
		t.Fatal(err)
	}
	if buf.Len() == 0 {
		t.Error("no outcome printed")
	}
}

func TestRun_DatabaseModel(t *testing.T) {
	ctx := context.Background()
	dsn := "sqlite:" + filepath.Join(t.TempDir(), "games.db")
	db, err := rgs.Open(dsn)
	if err != nil {
		t.Fatal(err)
	}
	def, err := gamemath.LoadFile(sampleConfig)
	if err != nil {
		t.Fatal(err)
	}
	def.ModelID = "db_model"
	if err := games.EnsureSchema(ctx, db); err != nil {
		t.Fatal(err)
	}
	if err := games.Upsert(ctx, db, def); err != nil {
		t.Fatal(err)
	}
	db.Close()

	cfg := &config.Config{ModelID: "db_model", BetAmount: 10, DataDir: t.TempDir(), DatabaseURL: dsn}
	var buf bytes.Buffer
	if err := run(ctx, cfg, zap.NewNop(), &buf); err != nil {
		t.Fatal(err)
	}
	if buf.Len() == 0 {
		t.Error("no outcome printed")
	}
}
