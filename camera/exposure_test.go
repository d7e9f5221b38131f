package camera

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type fakeExposer struct {
	texp     time.Duration
	started  int
	aborted  int
	inFlight bool
	frame    Frame
	readErr  error
}

func (f *fakeExposer) ExposureTime() (time.Duration, error) { return f.texp, nil }

func (f *fakeExposer) StartExposure() error {
	if f.inFlight {
		return Errorf(ExposureInProgress, "already exposing")
	}
	f.inFlight = true
	f.started++
	return nil
}

func (f *fakeExposer) ReadFrame() (Frame, error) {
	f.inFlight = false
	return f.frame, f.readErr
}

func (f *fakeExposer) AbortExposure() error {
	f.inFlight = false
	f.aborted++
	return nil
}

type waitFunc func(ctx context.Context, texp time.Duration) error

func (w waitFunc) Wait(ctx context.Context, texp time.Duration) error { return w(ctx, texp) }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExposeHappyPath(t *testing.T) {
	e := &fakeExposer{texp: 5 * time.Millisecond, frame: Frame{Width: 8, Height: 8, BitDepth: 8, Channels: 1, Pix: make([]byte, 64)}}
	var states []State
	var waited time.Duration
	en := Engine{
		Waiter: waitFunc(func(ctx context.Context, texp time.Duration) error {
			waited = texp
			return nil
		}),
		Logger:  quietLogger(),
		OnState: func(s State) { states = append(states, s) },
	}
	f, err := en.Expose(context.Background(), e)
	if err != nil {
		t.Fatal(err)
	}
	if f.Width != 8 || len(f.Pix) != 64 {
		t.Errorf("unexpected frame %+v", f)
	}
	if waited != e.texp {
		t.Errorf("waiter got %v, expected the read back exposure %v", waited, e.texp)
	}
	want := []State{StateIdle, StateTriggered, StateWaiting, StateFrameReady}
	if diff := cmp.Diff(want, states); diff != "" {
		t.Errorf("state sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestExposeSecondTriggerRejected(t *testing.T) {
	e := &fakeExposer{inFlight: true}
	en := Engine{Waiter: SleepWaiter{}, Logger: quietLogger()}
	_, err := en.Expose(context.Background(), e)
	if !errors.Is(err, ExposureInProgress) {
		t.Errorf("expected ExposureInProgress, got %v", err)
	}
}

func TestExposeCancelAborts(t *testing.T) {
	e := &fakeExposer{texp: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var last State
	en := Engine{
		Waiter:  SleepWaiter{Tick: time.Millisecond},
		Logger:  quietLogger(),
		OnState: func(s State) { last = s },
	}
	_, err := en.Expose(ctx, e)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if e.aborted != 1 {
		t.Errorf("expected one abort, got %d", e.aborted)
	}
	if last != StateFailed {
		t.Errorf("expected final state Failed, got %s", last)
	}
}

func TestExposeTimeoutDoesNotAbort(t *testing.T) {
	e := &fakeExposer{}
	en := Engine{
		Waiter: PollWaiter{
			Status:          func() (Status, error) { return StatusWorking, nil },
			Margin:          20 * time.Millisecond,
			InitialInterval: time.Millisecond,
			MaxInterval:     5 * time.Millisecond,
		},
		Logger: quietLogger(),
	}
	_, err := en.Expose(context.Background(), e)
	if !errors.Is(err, Timeout) {
		t.Errorf("expected Timeout, got %v", err)
	}
	if e.aborted != 0 {
		t.Error("a timed out exposure should be left for the caller to abort")
	}
	if !e.inFlight {
		t.Error("a timed out exposure should remain in flight")
	}
}

func TestPollWaiterOutcomes(t *testing.T) {
	cases := []struct {
		name string
		seq  []Status
		want error
	}{
		{"success after working", []Status{StatusWorking, StatusWorking, StatusSuccess}, nil},
		{"failed", []Status{StatusWorking, StatusFailed}, GeneralError},
		{"idle", []Status{StatusIdle}, InvalidSequence},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			i := 0
			w := PollWaiter{
				Status: func() (Status, error) {
					s := c.seq[i]
					if i < len(c.seq)-1 {
						i++
					}
					return s, nil
				},
				Margin:          time.Second,
				InitialInterval: time.Millisecond,
				MaxInterval:     2 * time.Millisecond,
			}
			err := w.Wait(context.Background(), 0)
			if c.want == nil {
				if err != nil {
					t.Errorf("expected success, got %v", err)
				}
				return
			}
			if !errors.Is(err, c.want) {
				t.Errorf("expected %v, got %v", c.want, err)
			}
		})
	}
}

func TestPollWaiterStatusError(t *testing.T) {
	boom := errors.New("usb gone")
	w := PollWaiter{
		Status:          func() (Status, error) { return StatusIdle, boom },
		Margin:          time.Second,
		InitialInterval: time.Millisecond,
	}
	if err := w.Wait(context.Background(), 0); !errors.Is(err, boom) {
		t.Errorf("expected the status error, got %v", err)
	}
}

func TestSleepWaiterWaitsAndTicks(t *testing.T) {
	ticks := 0
	w := SleepWaiter{
		Margin: 10 * time.Millisecond,
		Tick:   5 * time.Millisecond,
		OnTick: func(time.Duration) { ticks++ },
	}
	start := time.Now()
	if err := w.Wait(context.Background(), 20*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if el := time.Since(start); el < 30*time.Millisecond {
		t.Errorf("waited %v, expected at least 30ms", el)
	}
	if ticks < 2 {
		t.Errorf("expected several ticks, got %d", ticks)
	}
}

func TestSleepWaiterCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	w := SleepWaiter{Tick: 5 * time.Millisecond}
	start := time.Now()
	err := w.Wait(ctx, time.Hour)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
	if el := time.Since(start); el > time.Second {
		t.Errorf("cancellation took %v", el)
	}
}

func TestStateString(t *testing.T) {
	if StateFrameReady.String() != "FrameReady" {
		t.Errorf("unexpected name %q", StateFrameReady.String())
	}
}
