package main

import (
	"archive/zip"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/joho/godotenv"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	rgs "github.com/Ashenafi-pixel/gamecrafter-scratch-engine"
	"github.com/Ashenafi-pixel/gamecrafter-scratch-engine/config"
	"github.com/Ashenafi-pixel/gamecrafter-scratch-engine/gamemath"
	"github.com/Ashenafi-pixel/gamecrafter-scratch-engine/games"
)

// manifest is the manifest.json of a game bundle ZIP.
// Example:
//
//	{
//	  "game_id": "scratch_3x3",
//	  "name": "Scratch 3x3",
//	  "version": "1.0.0",
//	  "math_path": "math/definition.yaml"
//	}
type manifest struct {
	GameID   string `json:"game_id"`
	Name     string `json:"name"`
	Version  string `json:"version"`
	MathPath string `json:"math_path"`
}

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")
	cfg := config.Load()

	file := flag.String("file", "", "Path to a game definition (.json, .yaml)")
	zipPath := flag.String("zip", "", "Path to a game bundle ZIP with manifest.json")
	modelID := flag.String("model", "", "model_id to import under (defaults to the definition's model_id, or the bundle's game_id)")
	dataDir := flag.String("data-dir", cfg.DataDir, "Definition store directory; empty skips the file store")
	enable := flag.String("enable", "", "model_id to re-enable in the database")
	disable := flag.String("disable", "", "model_id to disable in the database")
	flag.Parse()

	toggleID, enabled := *enable, true
	if *disable != "" {
		toggleID, enabled = *disable, false
	}
	sources := 0
	for _, v := range []string{*file, *zipPath, *enable, *disable} {
		if v != "" {
			sources++
		}
	}
	if sources != 1 {
		fmt.Fprintln(os.Stderr, "exactly one of -file, -zip, -enable or -disable is required")
		os.Exit(1)
	}

	logger, err := cfg.Logger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if toggleID != "" {
		if err := setEnabled(context.Background(), logger, toggleID, enabled); err != nil {
			fmt.Fprintf(os.Stderr, "update failed: %v\n", err)
			os.Exit(1)
		}
		return
	}
	if err := run(context.Background(), logger, *file, *zipPath, *modelID, *dataDir); err != nil {
		fmt.Fprintf(os.Stderr, "import failed: %v\n", err)
		os.Exit(1)
	}
}

// setEnabled flips the enabled flag of a stored definition in DATABASE_URL.
func setEnabled(ctx context.Context, logger *zap.Logger, modelID string, enabled bool) error {
	db, err := rgs.GetDB()
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	if db == nil {
		return fmt.Errorf("DATABASE_URL is not set")
	}
	if err := games.SetEnabled(ctx, db, modelID, enabled); err != nil {
		return err
	}
	logger.Info("definition updated", zap.String("model_id", modelID), zap.Bool("enabled", enabled))
	fmt.Printf("Game definition %q enabled=%t\n", modelID, enabled)
	return nil
}

func run(ctx context.Context, logger *zap.Logger, file, zipPath, modelID, dataDir string) error {
	var (
		def *gamemath.Definition
		err error
	)
	if zipPath != "" {
		def, err = readBundle(zipPath)
	} else {
		def, err = gamemath.LoadFile(file)
	}
	if err != nil {
		return err
	}
	if modelID != "" {
		def.ModelID = modelID
	}
	if def.ModelID == "" {
		return fmt.Errorf("definition has no model_id; pass -model")
	}

	imported := false
	if dataDir != "" {
		if err := gamemath.NewStore(dataDir).Register(def); err != nil {
			return fmt.Errorf("store definition: %w", err)
		}
		logger.Info("definition stored", zap.String("model_id", def.ModelID), zap.String("data_dir", dataDir))
		imported = true
	}

	db, err := rgs.GetDB()
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	if db != nil {
		if err := games.EnsureSchema(ctx, db); err != nil {
			return err
		}
		if err := games.Upsert(ctx, db, def); err != nil {
			return fmt.Errorf("upsert definition: %w", err)
		}
		logger.Info("definition upserted", zap.String("model_id", def.ModelID))
		imported = true
	}
	if !imported {
		return fmt.Errorf("DATABASE_URL is not set and -data-dir is empty; nothing to import into")
	}

	fmt.Printf("Imported game definition %q\n", def.ModelID)
	return nil
}

// readBundle reads manifest.json from the ZIP, then the definition at its math_path.
// The manifest game_id becomes the model_id.
// The manifest may sit at the root or one directory down; math_path is relative to it.
func readBundle(zipPath string) (*gamemath.Definition, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	defer r.Close()

	var manifestFile *zip.File
	for _, f := range r.File {
		if path.Base(f.Name) == "manifest.json" && strings.Count(strings.Trim(f.Name, "/"), "/") <= 1 {
			manifestFile = f
			break
		}
	}
	if manifestFile == nil {
		return nil, fmt.Errorf("manifest.json not found in zip")
	}

	raw, err := readZipFile(manifestFile)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m manifest
	if err := jsoniter.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if m.GameID == "" || m.MathPath == "" {
		return nil, fmt.Errorf("manifest must include game_id and math_path")
	}

	mathName := sanitizeZipPath(path.Join(path.Dir(manifestFile.Name), m.MathPath))
	if mathName == "" {
		return nil, fmt.Errorf("math_path %q escapes the bundle", m.MathPath)
	}
	for _, f := range r.File {
		if sanitizeZipPath(f.Name) != mathName {
			continue
		}
		data, err := readZipFile(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		def, err := gamemath.Parse(data, gamemath.FormatFromPath(mathName))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", mathName, err)
		}
		def.ModelID = m.GameID
		return def, nil
	}
	return nil, fmt.Errorf("math_path %q not found in zip", m.MathPath)
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// sanitizeZipPath normalizes a zip entry path to a safe, relative path.
func sanitizeZipPath(name string) string {
	clean := path.Clean(strings.TrimLeft(name, "/\\"))
	// Prevent directory traversal.
	if clean == "." || strings.HasPrefix(clean, "..") {
		return ""
	}
	return clean
}
