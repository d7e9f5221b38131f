package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/astrogo/fitsio"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/obslab/camlab/camera"
	"github.com/obslab/camlab/imgrec"
	"github.com/obslab/camlab/metrics"
)

// stubCamera satisfies camera.Camera with canned frames
type stubCamera struct {
	roi      camera.ROI
	controls map[string]float64
	texp     time.Duration
	captures int
	fail     error
}

func (s *stubCamera) Control(name string) (float64, error) { return s.controls[name], nil }
func (s *stubCamera) SetControl(name string, v float64) error {
	s.controls[name] = v
	return nil
}
func (s *stubCamera) Configure(settings map[string]float64) error {
	for k, v := range settings {
		s.controls[k] = v
	}
	return nil
}
func (s *stubCamera) SetExposureTime(t time.Duration) error { s.texp = t; return nil }
func (s *stubCamera) ExposureTime() (time.Duration, error)  { return s.texp, nil }
func (s *stubCamera) SetROI(r camera.ROI) error {
	r, err := r.Aligned()
	s.roi = r
	return err
}
func (s *stubCamera) ROI() camera.ROI                { return s.roi }
func (s *stubCamera) SensorSize() (int, int)         { return 1000, 777 }
func (s *stubCamera) Close() error                   { return nil }
func (s *stubCamera) Temperature() (float64, error) { return -10, nil }

func (s *stubCamera) Capture(ctx context.Context) (camera.Frame, error) {
	if s.fail != nil {
		return camera.Frame{}, s.fail
	}
	s.captures++
	return camera.Frame{
		Width:    s.roi.Width,
		Height:   s.roi.Height,
		BitDepth: s.roi.Format.BitDepth,
		Channels: s.roi.Format.Channels,
		Pix:      make([]byte, s.roi.Bytes())}, nil
}

func (s *stubCamera) CollectHeaderMetadata() []fitsio.Card {
	return []fitsio.Card{{Name: "EXPTIME", Value: s.texp.Seconds()}}
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSetupFullSensorBinned(t *testing.T) {
	cam := &stubCamera{controls: map[string]float64{}}
	cfg := config{
		ROI:      roi{Bin: 2, Format: "Mono16"},
		Controls: map[string]float64{"Gain": 120},
	}
	if err := setup(cam, cfg, 45*time.Second); err != nil {
		t.Fatal(err)
	}
	want := camera.ROI{Width: 496, Height: 384, Bin: 2, Format: camera.Mono16}
	if diff := cmp.Diff(want, cam.roi); diff != "" {
		t.Errorf("ROI mismatch (-want +got):\n%s", diff)
	}
	if cam.controls["Gain"] != 120 || cam.texp != 45*time.Second {
		t.Errorf("controls %v exposure %v", cam.controls, cam.texp)
	}
}

func TestSetupUnknownFormat(t *testing.T) {
	cam := &stubCamera{controls: map[string]float64{}}
	err := setup(cam, config{ROI: roi{Format: "yuv"}}, time.Second)
	if !errors.Is(err, camera.InvalidImageType) {
		t.Errorf("got %v, wanted InvalidImageType", err)
	}
}

func TestSessionRecordsFrames(t *testing.T) {
	cam := &stubCamera{controls: map[string]float64{}, texp: 20 * time.Millisecond}
	cam.SetROI(camera.ROI{Width: 16, Height: 8, Bin: 1, Format: camera.Mono8})
	root := t.TempDir()
	var msgs []string
	s := session{
		cam:     cam,
		backend: "asi",
		rec:     &imgrec.Recorder{Root: root, Prefix: "dark_"},
		met:     metrics.New(),
		log:     discard(),
		progress: func(m string) {
			msgs = append(msgs, m)
		},
	}
	if err := s.run(context.Background(), 3, cam.texp); err != nil {
		t.Fatal(err)
	}
	if cam.captures != 3 || len(msgs) != 3 {
		t.Errorf("%d captures and %d progress messages, wanted 3 each", cam.captures, len(msgs))
	}
	files, _ := filepath.Glob(filepath.Join(root, "*", "dark_*_20ms.fits"))
	if len(files) != 3 {
		t.Fatalf("found %v, wanted 3 frames", files)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(files[0]), "dark_000002_20ms.fits")); err != nil {
		t.Error(err)
	}
	n, err := testutil.GatherAndCount(s.met.Registry(), "camlab_frames_written_total")
	if err != nil || n != 1 {
		t.Errorf("%d frames_written series (err %v), wanted 1", n, err)
	}
}

func TestSessionStopsOnCaptureError(t *testing.T) {
	cam := &stubCamera{controls: map[string]float64{}, fail: camera.Errorf(camera.Timeout, "no frame")}
	s := session{
		cam:     cam,
		backend: "qhy",
		rec:     &imgrec.Recorder{Root: t.TempDir()},
		met:     metrics.New(),
		log:     discard(),
	}
	err := s.run(context.Background(), 5, time.Second)
	if !errors.Is(err, camera.Timeout) {
		t.Errorf("got %v, wanted Timeout", err)
	}
}
