package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/glide-recovery/internal/storage"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	store, err := openStore(ctx, config)
	if err != nil {
		return err
	}
	defer store.Close()

	if config.InputFile != "" {
		if err = importFile(ctx, store, config.InputFile, logger); err != nil {
			return err
		}
	}

	if config.List {
		return listLocations(ctx, store, logger)
	}
	return nil
}

func openStore(ctx context.Context, config *Config) (storage.Store, error) {
	if config.PostgresDSN == "" {
		return storage.NewSqliteStore(config.DBPath), nil
	}

	store, err := storage.OpenPostgresStore(ctx, storage.PostgresConfig{DSN: config.PostgresDSN})
	if err != nil {
		return nil, err
	}
	if err = store.InitSchema(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("initialising schema: %w", err)
	}
	return store, nil
}

func importFile(ctx context.Context, store storage.Store, path string, logger *slog.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening input file: %w", err)
	}
	defer f.Close()

	locations, err := ReadLocations(f)
	if err != nil {
		return fmt.Errorf("parsing '%s': %w", path, err)
	}

	logger.Info("importing recovery locations", slog.String("source", path), slog.String("count", humanize.Comma(int64(len(locations)))))

	n, err := store.InsertRecoveryLocations(ctx, locations)
	if err != nil {
		return fmt.Errorf("importing recovery locations: %w", err)
	}

	logger.Info("import finished", slog.String("inserted", humanize.Comma(int64(n))))
	return nil
}

func listLocations(ctx context.Context, store storage.Store, logger *slog.Logger) error {
	locations, err := store.RecoveryLocations(ctx)
	if err != nil {
		return err
	}

	for _, loc := range locations {
		logger.Info(loc.Ident,
			slog.Int64("id", loc.ID),
			slog.String("position", loc.Position.String()),
			slog.String("elevation", humanize.Ftoa(loc.Elevation)+" ft"))
	}
	logger.Info("stored recovery locations", slog.String("count", humanize.Comma(int64(len(locations)))))
	return nil
}
