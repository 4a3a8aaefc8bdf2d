package config

import (
	"os"
	"strconv"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	ConfigPath  string // definition file to play
	ModelID     string // stored definition to play when no file is given
	BetAmount   int64
	DataDir     string // file store root
	DatabaseURL string // postgres URL or sqlite:<path>
	LogLevel    string
	Seed        uint64
	HasSeed     bool // play with a reproducible source
}

func Load() *Config {
	var bet int64
	if v, err := strconv.ParseInt(os.Getenv("SCRATCH_BET"), 10, 64); err == nil {
		bet = v
	}
	dataDir := os.Getenv("SCRATCH_DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}
	logLevel := os.Getenv("SCRATCH_LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	var seed uint64
	hasSeed := false
	if s := os.Getenv("SCRATCH_SEED"); s != "" {
		if v, err := strconv.ParseUint(s, 10, 64); err == nil {
			seed, hasSeed = v, true
		}
	}
	return &Config{
		ConfigPath:  os.Getenv("SCRATCH_CONFIG"),
		ModelID:     os.Getenv("SCRATCH_MODEL"),
		BetAmount:   bet,
		DataDir:     dataDir,
		DatabaseURL: os.Getenv("DATABASE_URL"),
		LogLevel:    logLevel,
		Seed:        seed,
		HasSeed:     hasSeed,
	}
}

// Logger builds a JSON logger writing to stderr at LogLevel.
// An unknown level falls back to info.
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}
