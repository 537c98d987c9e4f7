package telemetry

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
)

// FindRuntime resolves an executable name against PATH.
func FindRuntime(runtime string) (string, error) {
	binPath, err := exec.LookPath(runtime)
	if err != nil {
		return "", fmt.Errorf("failed to find binary '%s': %w", runtime, err)
	}

	return binPath, nil
}

// WithProcessLogger sets the logger for the process source
func WithProcessLogger(logger *slog.Logger) func(p *ProcessSource) {
	return func(p *ProcessSource) {
		p.logger = logger.With(slog.String("process", p.name))
		p.StreamSource.logger = p.logger
	}
}

// WithStreamOptions configures the underlying stream source
func WithStreamOptions(options ...func(s *StreamSource)) func(p *ProcessSource) {
	return func(p *ProcessSource) {
		for _, option := range options {
			option(p.StreamSource)
		}
	}
}

// ProcessSource runs an external command (for example gpspipe or a serial
// port reader) whose stdout is an NMEA stream. Stderr lines are logged.
type ProcessSource struct {
	*StreamSource

	name    string
	binPath string
	args    []string

	isRunning atomic.Bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	logger *slog.Logger
}

// NewProcessSource creates a new ProcessSource for the given command with a discard logger
func NewProcessSource(runtime string, args []string, options ...func(p *ProcessSource)) (*ProcessSource, error) {
	binPath, err := FindRuntime(runtime)
	if err != nil {
		return nil, fmt.Errorf("error finding runtime: %w", err)
	}

	p := ProcessSource{
		StreamSource: NewStreamSource(),
		name:         runtime,
		binPath:      binPath,
		args:         args,
	}
	p.logger = p.StreamSource.logger

	for _, option := range options {
		option(&p)
	}

	return &p, nil
}

// Start launches the command and begins consuming its output. The returned
// channel is closed when the process stops and receives the joined error if
// it stopped because of a failure.
func (p *ProcessSource) Start(ctx context.Context) (<-chan error, error) {
	if !p.isRunning.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("process is already running")
	}

	ctx, p.cancel = context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, p.binPath, p.args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		p.isRunning.Store(false) // Reset running state on error
		return nil, fmt.Errorf("error creating stdout pipe: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		p.isRunning.Store(false) // Reset running state on error
		return nil, fmt.Errorf("error creating stderr pipe: %w", err)
	}

	if err = cmd.Start(); err != nil {
		p.isRunning.Store(false) // Reset running state on error
		return nil, fmt.Errorf("error starting command: %w", err)
	}

	stopped := make(chan error, 1)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer close(stopped)

		p.logger.Info("starting navigation feed...")

		done := make(chan error, 3) // expects three results from three goroutines

		// cmd.Wait closes the pipes, so it must not run until both are drained.
		var pipes sync.WaitGroup
		pipes.Add(2)

		go func() {
			defer pipes.Done()

			if err := p.Consume(ctx, stdout); err != nil && !errors.Is(err, context.Canceled) {
				done <- err
				return
			}
			done <- nil
		}()
		go func() {
			defer pipes.Done()
			p.handleStderr(stderr, done)
		}()
		go func() {
			pipes.Wait()
			p.handleCmdWait(ctx, cmd, done)
		}()

		var errs []error
		for i := 0; i < cap(done); i++ {
			if err := <-done; err != nil {
				p.cancel() // cancel context on error
				p.logger.Error(err.Error())

				errs = append(errs, err)
			}
		}

		p.logger.Info("navigation feed stopped")
		p.isRunning.Store(false)

		if len(errs) > 0 {
			stopped <- errors.Join(errs...)
		}
	}()

	return stopped, nil
}

// Stop terminates the command and waits for the feed goroutines to finish.
func (p *ProcessSource) Stop() {
	if !p.isRunning.Load() {
		return // already stopped
	}

	p.cancel()
	p.wg.Wait()
}

// IsRunning returns true if the process is running
func (p *ProcessSource) IsRunning() bool {
	return p.isRunning.Load()
}

// handleStderr reads from stderr and logs its lines.
func (p *ProcessSource) handleStderr(stderr io.Reader, done chan<- error) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		p.logger.Warn(fmt.Sprintf("%s >> %s", p.name, line))
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, fs.ErrClosed) {
		done <- fmt.Errorf("%w: error reading stderr: %w", ErrBrokenPipe, err)
		return
	}

	done <- nil
}

// handleCmdWait waits for the command to exit. An exit caused by Stop is not an error.
func (p *ProcessSource) handleCmdWait(ctx context.Context, cmd *exec.Cmd, done chan<- error) {
	if err := cmd.Wait(); err != nil && ctx.Err() == nil {
		done <- fmt.Errorf("command exited with error: %w", err)
		return
	}

	done <- nil
}
