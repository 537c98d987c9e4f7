package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/glide-recovery/internal/storage"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	if _, err := os.Stat(config.DBPath); err != nil && os.IsNotExist(err) {
		return fmt.Errorf("database file '%s' does not exist: %w", config.DBPath, err)
	}

	store := storage.NewSqliteStore(config.DBPath)
	defer store.Close()

	track, err := readTrack(ctx, store, config, logger)
	if err != nil {
		return err
	}

	return renderTrack(track, config, logger)
}

func readTrack(ctx context.Context, store *storage.SqliteStore, config *Config, logger *slog.Logger) (*TrackData, error) {
	var opts []storage.ReaderOption
	var filters []any
	switch {
	case config.StartTime != nil && config.EndTime != nil:
		opts = append(opts, storage.WithTimeRange(*config.StartTime, *config.EndTime))

		filters = append(filters,
			slog.String("startTime", config.StartTime.UTC().Format(time.DateTime)),
			slog.String("endTime", config.EndTime.UTC().Format(time.DateTime)))

	case config.StartTime != nil:
		opts = append(opts, storage.WithStartTime(*config.StartTime))
		filters = append(filters, slog.String("startTime", config.StartTime.UTC().Format(time.DateTime)))

	case config.EndTime != nil:
		opts = append(opts, storage.WithEndTime(*config.EndTime))
		filters = append(filters, slog.String("endTime", config.EndTime.UTC().Format(time.DateTime)))
	}

	logger.Info("iterator configuration", append(filters, slog.Int64("session", config.SessionID))...)

	iter, err := store.ReadSession(ctx, config.SessionID, opts...)
	if errors.Is(err, storage.ErrNoData) {
		return nil, fmt.Errorf("session %d has no records in the requested time range", config.SessionID)
	}
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	track := NewTrackData(iter.Session())
	for iter.Next(ctx) {
		leg := iter.Current()
		track.Update(leg)

		if config.Verbose {
			logger.Info("leg",
				slog.String("mode", leg.Mode.String()),
				slog.String("start", leg.Start.In(config.TimeZone).Format(time.DateTime)),
				slog.Duration("duration", leg.Duration()),
				slog.Int("records", len(leg.Records)))
		}
	}
	if err = iter.Error(); err != nil {
		return nil, err
	}
	if track.Empty() {
		return nil, fmt.Errorf("session %d has no records in the requested time range", config.SessionID)
	}

	locations, err := store.RecoveryLocations(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading recovery locations: %w", err)
	}
	sites := track.AddSites(locations, config.SiteMargin)

	logger.Info("finished reading records",
		slog.Group("stats",
			slog.String("startTime", track.TimestampStart.In(config.TimeZone).Format(time.DateTime)),
			slog.String("endTime", track.TimestampEnd.In(config.TimeZone).Format(time.DateTime)),
			slog.String("legs", humanize.Comma(int64(len(track.Legs)))),
			slog.String("records", humanize.Comma(int64(track.Records))),
			slog.String("distance", formatDistance(track.Distance)),
			slog.String("maxAltitude", humanize.Comma(int64(track.MaxAltitude))+" ft"),
			slog.String("minAltitude", humanize.Comma(int64(track.MinAltitude))+" ft"),
			slog.Int("recoveryLocations", sites),
		))

	return track, nil
}

func renderTrack(track *TrackData, config *Config, logger *slog.Logger) error {
	renderer, err := NewTrackRenderer(RenderConfig{
		Location:      config.TimeZone,
		Size:          config.Size,
		NoAnnotations: config.NoAnnotations,
	})
	if err != nil {
		return fmt.Errorf("creating track renderer: %w", err)
	}

	img, err := renderer.Render(track)
	if err != nil {
		return fmt.Errorf("rendering track: %w", err)
	}

	logger.Info("rendering track",
		slog.Group("image",
			slog.String("destination", config.OutputFile),
			slog.String("format", string(config.Format)),
			slog.Int("width", img.Bounds().Dx()),
			slog.Int("height", img.Bounds().Dy()),
		))

	out, err := os.Create(config.OutputFile)
	if err != nil {
		return err
	}

	if err = encodeImage(out, img, config.Format); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func encodeImage(w io.Writer, img image.Image, format ImageFormat) error {
	switch format {
	case ImagePNG:
		return png.Encode(w, img)
	case ImageJPEG:
		return jpeg.Encode(w, img, &jpeg.Options{
			Quality: 98,
		})
	default:
		return fmt.Errorf("unsupported image format: %s", format)
	}
}
