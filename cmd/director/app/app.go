package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/roman-kulish/glide-recovery/internal/director"
	"github.com/roman-kulish/glide-recovery/internal/flight"
	"github.com/roman-kulish/glide-recovery/internal/metrics"
	"github.com/roman-kulish/glide-recovery/internal/recovery"
	"github.com/roman-kulish/glide-recovery/internal/storage"
	"github.com/roman-kulish/glide-recovery/internal/telemetry"
	"github.com/roman-kulish/glide-recovery/internal/tick"
	"github.com/roman-kulish/glide-recovery/internal/transport"
)

// navigationSource is a navigation provider driven by a background loop.
type navigationSource interface {
	telemetry.Provider
	run(ctx context.Context) error
}

// Run wires the director to its collaborators and flies until ctx is cancelled.
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	lookup, closeLookup, err := createLookup(ctx, &config.Recovery, logger)
	if err != nil {
		return fmt.Errorf("failed to create recovery lookup: %w", err)
	}
	defer closeLookup()

	nav, err := createNavigation(&config.Navigation, logger)
	if err != nil {
		return fmt.Errorf("failed to create navigation source: %w", err)
	}

	sink, err := transport.DialUDP(config.Actuator.Address, transport.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create rudder actuator: %w", err)
	}
	defer sink.Close()

	d, err := director.New(sink, nav, lookup, director.WithLogger(logger), director.WithConfig(config.Director))
	if err != nil {
		return fmt.Errorf("failed to create director: %w", err)
	}

	ticker, err := tick.NewInterval(config.Tick.Period.Std())
	if err != nil {
		return fmt.Errorf("failed to create tick source: %w", err)
	}

	var recorder *Recorder
	if config.Recorder.Enabled {
		store := storage.NewSqliteStore(config.Recorder.Path)
		defer store.Close()

		sessionID, err := store.CreateSession(ctx, string(config.Navigation.Type), config.Director)
		if err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
		logger.Info("recording flight", slog.Int64("session", sessionID), slog.String("path", config.Recorder.Path))

		recorder = NewRecorder(store, sessionID, logger,
			WithMaxBatchSize(config.Recorder.MaxBatchSize),
			WithFlushInterval(config.Recorder.FlushEvery.Std()),
		)
	}

	m := metrics.New()
	var status atomic.Pointer[director.Status]

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return nav.run(ctx)
	})

	if recorder != nil {
		g.Go(func() error {
			return recorder.Run(ctx)
		})
	}

	if config.Metrics.Listen != "" {
		srv := &statusServer{status: &status, control: d, metrics: m, logger: logger}
		g.Go(func() error {
			return srv.serve(ctx, config.Metrics.Listen)
		})
	}

	if config.Actuator.Armed {
		d.Enable()
	}

	g.Go(func() error {
		defer d.Disable()

		var lastRecorded time.Time
		var dropping bool

		return ticker.Run(ctx, func(ctx context.Context, elapsedMs uint32) {
			d.Refresh(ctx, elapsedMs)

			st := d.Status()
			status.Store(&st)
			m.Observe(st)

			if recorder == nil || !st.Initialized || !st.Timestamp.After(lastRecorded) {
				return
			}
			lastRecorded = st.Timestamp

			ok := recorder.Record(flight.NewRecord(st))
			if !ok && !dropping {
				logger.Warn("recorder backlog full, dropping records")
			}
			dropping = !ok
		})
	})

	if err = g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func createLookup(ctx context.Context, config *RecoveryConfig, logger *slog.Logger) (recovery.Lookup, func(), error) {
	var lookup recovery.Lookup
	closeFn := func() {}

	switch config.Type {
	case RecoverySqlite:
		if _, err := os.Stat(config.Path); err != nil {
			return nil, nil, fmt.Errorf("recovery database '%s': %w", config.Path, err)
		}
		store := storage.NewSqliteStore(config.Path)
		lookup, closeFn = store, func() { _ = store.Close() }

	case RecoveryPostgres:
		store, err := storage.OpenPostgresStore(ctx, config.Postgres)
		if err != nil {
			return nil, nil, err
		}
		lookup, closeFn = store, func() { _ = store.Close() }

	case RecoveryStatic:
		locations, err := config.StaticLocations()
		if err != nil {
			return nil, nil, err
		}
		static, err := recovery.NewStaticLookup(locations)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using static recovery locations", slog.Int("count", static.Len()))
		lookup = static

	default:
		return nil, nil, fmt.Errorf("unknown recovery type '%s'", config.Type)
	}

	if config.Retry != nil {
		lookup = recovery.WithRetry(lookup, *config.Retry)
	}
	if config.RateLimit > 0 {
		lookup = recovery.Throttled(lookup, rate.NewLimiter(rate.Limit(config.RateLimit), 1))
	}

	return lookup, closeFn, nil
}

func createNavigation(config *NavigationConfig, logger *slog.Logger) (navigationSource, error) {
	maxAge := config.MaxAge.Std()

	switch config.Type {
	case NavigationUDP:
		src, err := transport.ListenUDP(config.Listen, transport.WithLogger(logger), transport.WithMaxAge(maxAge))
		if err != nil {
			return nil, err
		}
		return &udpNavigation{src}, nil

	case NavigationNMEA:
		src := telemetry.NewStreamSource(telemetry.WithLogger(logger), telemetry.WithMaxAge(maxAge))
		return &deviceNavigation{StreamSource: src, device: config.Device}, nil

	case NavigationProcess:
		src, err := telemetry.NewProcessSource(config.Command, config.Args,
			telemetry.WithProcessLogger(logger),
			telemetry.WithStreamOptions(telemetry.WithMaxAge(maxAge)),
		)
		if err != nil {
			return nil, err
		}
		return &processNavigation{src}, nil

	default:
		return nil, fmt.Errorf("unknown navigation type '%s'", config.Type)
	}
}

type udpNavigation struct {
	*transport.UDPSource
}

func (n *udpNavigation) run(ctx context.Context) error {
	return n.Run(ctx)
}

type deviceNavigation struct {
	*telemetry.StreamSource
	device string
}

func (n *deviceNavigation) run(ctx context.Context) (err error) {
	f, err := os.Open(n.device)
	if err != nil {
		return fmt.Errorf("opening navigation device: %w", err)
	}

	// Closing the device unblocks a pending read on cancellation.
	stop := context.AfterFunc(ctx, func() { _ = f.Close() })
	defer func() {
		if stop() {
			_ = f.Close()
		}
	}()

	err = n.Consume(ctx, f)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return err
	}
	return errors.New("navigation device closed")
}

type processNavigation struct {
	*telemetry.ProcessSource
}

func (n *processNavigation) run(ctx context.Context) error {
	stopped, err := n.Start(ctx)
	if err != nil {
		return err
	}

	select {
	case err = <-stopped:
	case <-ctx.Done():
		n.Stop()
		return ctx.Err()
	}
	if err != nil {
		return err
	}
	return errors.New("navigation process exited")
}
