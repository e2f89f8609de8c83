package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/viper"

	"github.com/Veraticus/studyflow/internal/common"
	"github.com/Veraticus/studyflow/internal/config"
	"github.com/Veraticus/studyflow/internal/model"
	"github.com/Veraticus/studyflow/internal/rules"
	"github.com/Veraticus/studyflow/internal/storage"
)

// initStorage opens the configured database and brings its schema up to date.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath, err := config.ExpandPath(viper.GetString(config.KeyDatabasePath))
	if err != nil {
		return nil, common.NewUserError("Invalid database path", err)
	}
	return openStorage(ctx, dbPath)
}

func openStorage(ctx context.Context, dbPath string) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, common.NewUserError(fmt.Sprintf("Could not open database %s", dbPath), err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// loadRules reads the rules file at path. When the file does not exist and optional is
// set, a nil rule set is returned and only the built-in keyword tables apply.
func loadRules(path string, optional bool) (*model.RuleSet, error) {
	rs, err := rules.LoadFile(path)
	if err == nil {
		slog.Debug("Loaded rules", "path", path, "version", rs.Version, "rules", rs.RuleCount())
		return rs, nil
	}
	if optional && errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Rules file not found, using built-in keywords only", "path", path)
		return nil, nil
	}
	if errors.Is(err, model.ErrInvalidRuleSet) {
		return nil, common.NewUserError(fmt.Sprintf("Rules file %s is invalid", path), err)
	}
	return nil, fmt.Errorf("failed to load rules: %w", err)
}

func rulesPath() (string, error) {
	path, err := config.ExpandPath(viper.GetString(config.KeyRulesPath))
	if err != nil {
		return "", common.NewUserError("Invalid rules path", err)
	}
	return path, nil
}

func fileSize(f *os.File) int64 {
	info, err := f.Stat()
	if err != nil {
		return -1
	}
	return info.Size()
}
