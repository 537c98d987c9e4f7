package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/glide-recovery/internal/director"
	"github.com/roman-kulish/glide-recovery/internal/flight"
	"github.com/roman-kulish/glide-recovery/internal/geo"
	"github.com/roman-kulish/glide-recovery/internal/glider"
	"github.com/roman-kulish/glide-recovery/internal/recovery"
	"github.com/roman-kulish/glide-recovery/internal/storage"
	"github.com/roman-kulish/glide-recovery/internal/tick"
)

// sessionConfig is stored with the recorded session.
type sessionConfig struct {
	Glider   glider.Config   `json:"glider"`
	Director director.Config `json:"director"`
}

// Summary describes the outcome of a simulated flight.
type Summary struct {
	Steps       int
	FlightTime  time.Duration
	Landed      bool
	Position    geo.Position
	Altitude    float64
	Mode        director.Mode
	Transitions int
	ModeTime    map[director.Mode]time.Duration

	Recovery         *recovery.Location
	RecoveryDistance float64 // nm from the final position
	ClosestApproach  float64 // nm, to the final recovery location

	SessionID int64
	Records   int
}

// Log writes the summary to the logger.
func (s *Summary) Log(logger *slog.Logger) {
	attrs := []any{
		slog.String("steps", humanize.Comma(int64(s.Steps))),
		slog.Duration("flightTime", s.FlightTime.Round(time.Second)),
		slog.Bool("landed", s.Landed),
		slog.String("position", s.Position.String()),
		slog.String("altitude", humanize.Comma(int64(math.Round(s.Altitude)))+" ft"),
		slog.String("mode", s.Mode.String()),
		slog.Int("transitions", s.Transitions),
		slog.Group("modeTime",
			slog.Duration(director.ModeSeek.String(), s.ModeTime[director.ModeSeek]),
			slog.Duration(director.ModeTrack.String(), s.ModeTime[director.ModeTrack]),
			slog.Duration(director.ModeCircle.String(), s.ModeTime[director.ModeCircle]),
		),
	}

	if s.Recovery != nil {
		attrs = append(attrs, slog.Group("recovery",
			slog.String("ident", s.Recovery.Ident),
			slog.String("distance", humanize.FtoaWithDigits(s.RecoveryDistance, 2)+" nm"),
			slog.String("closestApproach", humanize.FtoaWithDigits(s.ClosestApproach, 2)+" nm"),
		))
	}
	if s.SessionID > 0 {
		attrs = append(attrs, slog.Group("recorder",
			slog.Int64("session", s.SessionID),
			slog.String("records", humanize.Comma(int64(s.Records))),
		))
	}

	logger.Info("simulation finished", attrs...)
}

// Run flies the simulated glider under director control until it lands, the
// configured duration elapses or ctx is cancelled.
func Run(ctx context.Context, config *Config, logger *slog.Logger) (*Summary, error) {
	lookup, closeLookup, err := createLookup(config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create recovery lookup: %w", err)
	}
	defer closeLookup()

	start := time.Now().UTC()
	if config.Simulation.StartTime != nil {
		start = config.Simulation.StartTime.UTC()
	}

	g, err := glider.New(config.Glider, start)
	if err != nil {
		return nil, fmt.Errorf("failed to create glider: %w", err)
	}

	d, err := director.New(g, g, lookup, director.WithLogger(logger), director.WithConfig(config.Director))
	if err != nil {
		return nil, fmt.Errorf("failed to create director: %w", err)
	}
	if config.Simulation.Armed {
		d.Enable()
	}

	ticker, err := tick.NewFixed(config.Simulation.Step.Std(), config.Simulation.Steps())
	if err != nil {
		return nil, fmt.Errorf("failed to create tick source: %w", err)
	}

	var rec *recorder
	if config.Recorder.Path != "" {
		store := storage.NewSqliteStore(config.Recorder.Path)
		defer store.Close()

		sessionID, err := store.CreateSession(ctx, "glidesim", sessionConfig{Glider: config.Glider, Director: config.Director})
		if err != nil {
			return nil, fmt.Errorf("failed to create recording session: %w", err)
		}
		rec = &recorder{store: store, sessionID: sessionID, batchSize: config.Recorder.BatchSize}
		logger.Info("recording flight", slog.String("path", config.Recorder.Path), slog.Int64("session", sessionID))
	}

	logger.Info("simulation started",
		slog.String("start", config.Glider.Start.String()),
		slog.String("altitude", humanize.Comma(int64(config.Glider.Altitude))+" ft"),
		slog.Duration("step", config.Simulation.Step.Std()),
		slog.Duration("duration", config.Simulation.Duration.Std()))

	simCtx, stop := context.WithCancel(ctx)
	defer stop()

	summary := &Summary{
		ModeTime:        make(map[director.Mode]time.Duration, 3),
		ClosestApproach: math.Inf(1),
	}
	lastMode := director.ModeSeek
	var recordErr error

	err = ticker.Run(simCtx, func(ctx context.Context, elapsedMs uint32) {
		dt := time.Duration(elapsedMs) * time.Millisecond
		g.Step(dt)
		d.Refresh(ctx, elapsedMs)
		summary.Steps++

		st := d.Status()
		summary.ModeTime[st.Mode] += dt
		if st.Mode != lastMode {
			summary.Transitions++
			lastMode = st.Mode
		}
		if st.Recovery != nil {
			dist, _ := geo.DistanceAndBearing(st.Position, st.Recovery.Position)
			if summary.Recovery == nil || summary.Recovery.ID != st.Recovery.ID {
				summary.ClosestApproach = dist
			}
			summary.ClosestApproach = math.Min(summary.ClosestApproach, dist)
			summary.Recovery = st.Recovery
		}

		if rec != nil && st.Initialized {
			if recordErr = rec.record(ctx, flight.NewRecord(st)); recordErr != nil {
				stop()
				return
			}
		}

		if g.Landed() {
			summary.Landed = true
			stop()
		}
	})

	if recordErr != nil {
		return nil, fmt.Errorf("recording flight: %w", recordErr)
	}
	if err != nil && !(errors.Is(err, context.Canceled) && ctx.Err() == nil) {
		return nil, err
	}

	if rec != nil {
		if err = rec.flush(context.WithoutCancel(ctx)); err != nil {
			return nil, fmt.Errorf("recording flight: %w", err)
		}
		summary.SessionID = rec.sessionID
		summary.Records = rec.stored
	}

	st := d.Status()
	summary.FlightTime = g.Elapsed()
	summary.Position = g.Position()
	summary.Altitude = g.Altitude()
	summary.Mode = st.Mode
	if summary.Recovery != nil {
		summary.RecoveryDistance, _ = geo.DistanceAndBearing(summary.Position, summary.Recovery.Position)
	} else {
		summary.ClosestApproach = 0
	}

	return summary, nil
}

func createLookup(config *Config, logger *slog.Logger) (recovery.Lookup, func(), error) {
	if config.Recovery.Path != "" {
		store := storage.NewSqliteStore(config.Recovery.Path)
		return store, func() { _ = store.Close() }, nil
	}

	locations, err := recovery.ParseLocations(config.Recovery.Locations)
	if err != nil {
		return nil, nil, err
	}
	static, err := recovery.NewStaticLookup(locations)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("using static recovery locations", slog.Int("count", static.Len()))
	return static, func() {}, nil
}

// recorder batches records into the flight store.
type recorder struct {
	store     storage.FlightStore
	sessionID int64
	batchSize int
	batch     []flight.Record
	last      time.Time
	stored    int
}

func (r *recorder) record(ctx context.Context, rec flight.Record) error {
	if !rec.Timestamp.After(r.last) {
		return nil
	}
	r.last = rec.Timestamp

	r.batch = append(r.batch, rec)
	if len(r.batch) < r.batchSize {
		return nil
	}
	return r.flush(ctx)
}

func (r *recorder) flush(ctx context.Context) error {
	if len(r.batch) == 0 {
		return nil
	}
	if err := r.store.StoreRecords(ctx, r.sessionID, r.batch); err != nil {
		return err
	}
	r.stored += len(r.batch)
	r.batch = r.batch[:0]
	return nil
}
