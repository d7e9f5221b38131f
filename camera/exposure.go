package camera

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff"
	"golang.org/x/time/rate"
)

// DefaultMargin is the readout overhead added to the exposure time when
// deciding how long to wait for a frame.  It is firmware specific; observed
// behavior puts it near 2.5 seconds.
const DefaultMargin = 2500 * time.Millisecond

// State is a step of the exposure state machine
type State int

const (
	// StateIdle is before the trigger
	StateIdle State = iota

	// StateTriggered is after the driver accepted the trigger
	StateTriggered

	// StateWaiting is while the sensor integrates and reads out
	StateWaiting

	// StateFrameReady is after the buffer was filled
	StateFrameReady

	// StateFailed is terminal; the buffer contents are undefined
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateTriggered:
		return "Triggered"
	case StateWaiting:
		return "Waiting"
	case StateFrameReady:
		return "FrameReady"
	case StateFailed:
		return "Failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Status is an exposure status reported by a driver that supports polling
type Status int

const (
	// StatusIdle means no exposure is running
	StatusIdle Status = iota

	// StatusWorking means the exposure is still running
	StatusWorking

	// StatusSuccess means a frame is ready for readout
	StatusSuccess

	// StatusFailed means the exposure failed
	StatusFailed
)

// Exposer is the part of a backend the exposure engine drives
type Exposer interface {
	// ExposureTime reads back the committed exposure duration
	ExposureTime() (time.Duration, error)

	// StartExposure triggers a single exposure.  It fails with
	// ExposureInProgress if one is already in flight.
	StartExposure() error

	// ReadFrame reads a completed exposure into the owned buffer
	ReadFrame() (Frame, error)

	// AbortExposure stops an exposure in flight
	AbortExposure() error
}

// Waiter blocks until an exposure of the given duration has completed
type Waiter interface {
	Wait(ctx context.Context, exposure time.Duration) error
}

var errStillExposing = errors.New("exposure still in progress")

// PollWaiter waits by polling the driver's exposure status with exponential
// backoff.  The total wait is bounded by the exposure time plus Margin.
type PollWaiter struct {
	// Status queries the driver
	Status func() (Status, error)

	// Margin is added to the exposure time to form the wait budget
	Margin time.Duration

	// InitialInterval is the first delay between polls, default 10ms
	InitialInterval time.Duration

	// MaxInterval caps the delay between polls, default 1s
	MaxInterval time.Duration
}

// Wait implements Waiter
func (w PollWaiter) Wait(ctx context.Context, exposure time.Duration) error {
	budget := exposure + w.Margin
	if budget <= 0 {
		// a zero MaxElapsedTime would never stop
		budget = time.Millisecond
	}
	initial := w.InitialInterval
	if initial <= 0 {
		initial = 10 * time.Millisecond
	}
	max := w.MaxInterval
	if max <= 0 {
		max = time.Second
	}
	op := func() error {
		st, err := w.Status()
		if err != nil {
			return backoff.Permanent(err)
		}
		switch st {
		case StatusSuccess:
			return nil
		case StatusWorking:
			return errStillExposing
		case StatusFailed:
			return backoff.Permanent(Errorf(GeneralError, "driver reported a failed exposure"))
		default:
			return backoff.Permanent(Errorf(InvalidSequence, "no exposure in progress"))
		}
	}
	b := &backoff.ExponentialBackOff{
		InitialInterval:     initial,
		RandomizationFactor: 0.,
		Multiplier:          2.,
		MaxInterval:         max,
		MaxElapsedTime:      budget,
		Clock:               backoff.SystemClock}
	err := backoff.Retry(op, backoff.WithContext(b, ctx))
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	if err == errStillExposing {
		return Errorf(Timeout, "exposure still running after %v", budget)
	}
	return err
}

// SleepWaiter waits a fixed exposure time plus Margin, for drivers with no
// reliable status query.  The sleep proceeds in ticks so it can report
// progress and be cancelled.
type SleepWaiter struct {
	// Margin is added to the exposure time
	Margin time.Duration

	// Tick is the interval between progress reports, default 500ms
	Tick time.Duration

	// OnTick, if not nil, is called each tick with the time remaining
	OnTick func(remaining time.Duration)
}

// Wait implements Waiter
func (w SleepWaiter) Wait(ctx context.Context, exposure time.Duration) error {
	tick := w.Tick
	if tick <= 0 {
		tick = 500 * time.Millisecond
	}
	deadline := time.Now().Add(exposure + w.Margin)
	lim := rate.NewLimiter(rate.Every(tick), 1)
	for {
		if err := lim.Wait(ctx); err != nil {
			// the limiter refuses waits that would outlive ctx
			<-ctx.Done()
			return ctx.Err()
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil
		}
		if w.OnTick != nil {
			w.OnTick(remaining)
		}
		if remaining < tick {
			return sleepCtx(ctx, remaining)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Engine drives a single exposure from trigger to readout
type Engine struct {
	// Waiter decides how to wait for the exposure to finish
	Waiter Waiter

	// Logger receives state transitions; slog.Default() if nil
	Logger *slog.Logger

	// OnState, if not nil, is called at every state transition
	OnState func(State)
}

func (en Engine) enter(log *slog.Logger, s State, args ...any) {
	log.Debug("exposure state", append([]any{"state", s.String()}, args...)...)
	if en.OnState != nil {
		en.OnState(s)
	}
}

// Expose runs Idle -> Triggered -> Waiting -> FrameReady|Failed against e.
//
// The exposure time is read back from e rather than passed in, so the wait
// always reflects the last committed setting.  If ctx ends while waiting the
// exposure is aborted in the driver and ctx.Err() is returned.  No step is
// retried.
func (en Engine) Expose(ctx context.Context, e Exposer) (Frame, error) {
	log := en.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "exposure")
	en.enter(log, StateIdle)

	texp, err := e.ExposureTime()
	if err != nil {
		en.enter(log, StateFailed, "error", err)
		return Frame{}, fmt.Errorf("reading exposure time: %w", err)
	}
	if err := e.StartExposure(); err != nil {
		en.enter(log, StateFailed, "error", err)
		return Frame{}, err
	}
	start := time.Now()
	en.enter(log, StateTriggered, "exposure", texp)

	en.enter(log, StateWaiting)
	if err := en.Waiter.Wait(ctx, texp); err != nil {
		if ctx.Err() != nil {
			if aerr := e.AbortExposure(); aerr != nil {
				log.Warn("abort after cancellation failed", "error", aerr)
			}
		}
		en.enter(log, StateFailed, "error", err)
		return Frame{}, err
	}

	f, err := e.ReadFrame()
	if err != nil {
		en.enter(log, StateFailed, "error", err)
		return Frame{}, err
	}
	en.enter(log, StateFrameReady, "elapsed", time.Since(start))
	log.Info("frame ready",
		"exposure", texp,
		"elapsed", time.Since(start).Round(time.Millisecond),
		"width", f.Width,
		"height", f.Height,
		"format", f.Format().String())
	return f, nil
}
