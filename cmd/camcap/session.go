package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/astrogo/fitsio"

	"github.com/obslab/camlab/asi"
	"github.com/obslab/camlab/asi/asisdk"
	"github.com/obslab/camlab/camera"
	"github.com/obslab/camlab/imgrec"
	"github.com/obslab/camlab/metrics"
	"github.com/obslab/camlab/qhy"
	"github.com/obslab/camlab/qhy/qhysdk"
)

var formats = map[string]camera.PixelFormat{
	"mono8":  camera.Mono8,
	"mono16": camera.Mono16,
	"rgb24":  camera.RGB24,
	"rgb48":  camera.RGB48,
}

func parseFormat(s string) (camera.PixelFormat, error) {
	f, ok := formats[strings.ToLower(s)]
	if !ok {
		return f, camera.Errorf(camera.InvalidImageType, "unknown pixel format %q", s)
	}
	return f, nil
}

// open acquires the configured camera.  The returned func releases it and
// whatever driver resources it needed.
func open(cfg config, margin time.Duration, logger *slog.Logger) (camera.Camera, func(), error) {
	switch strings.ToLower(cfg.Backend) {
	case "asi":
		c, err := asi.Acquire(asisdk.SDK{}, cfg.Index, asi.Options{Margin: margin, Logger: logger})
		if err != nil {
			return nil, nil, err
		}
		return c, func() { c.Close() }, nil
	case "qhy":
		x, err := qhy.NewContext(qhysdk.SDK{}, logger)
		if err != nil {
			return nil, nil, err
		}
		c, err := x.Acquire(cfg.Index, qhy.Options{Margin: margin, Logger: logger})
		if err != nil {
			x.Close()
			return nil, nil, err
		}
		return c, func() {
			c.Close()
			x.Close()
		}, nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q, wanted asi or qhy", cfg.Backend)
}

// setup applies the region of interest, the controls, and the exposure time
func setup(cam camera.Camera, cfg config, texp time.Duration) error {
	format, err := parseFormat(cfg.ROI.Format)
	if err != nil {
		return err
	}
	w, h := cfg.ROI.Width, cfg.ROI.Height
	sw, sh := cam.SensorSize()
	if w == 0 {
		w = sw
	}
	if h == 0 {
		h = sh
	}
	bin := cfg.ROI.Bin
	if bin == 0 {
		bin = 1
	}
	if err = cam.SetROI(camera.ROI{Width: w / bin, Height: h / bin, Bin: bin, Format: format}); err != nil {
		return err
	}
	if err = cam.Configure(cfg.Controls); err != nil {
		return err
	}
	return cam.SetExposureTime(texp)
}

// session takes a run of exposures and records them
type session struct {
	cam     camera.Camera
	backend string
	rec     *imgrec.Recorder
	met     *metrics.Metrics
	log     *slog.Logger

	// progress, if not nil, is told which frame is being taken
	progress func(string)
}

type thermometer interface {
	Temperature() (float64, error)
}

func (s session) run(ctx context.Context, frames int, texp time.Duration) error {
	tag := fmt.Sprintf("_%dms", texp.Milliseconds())
	for i := 0; i < frames; i++ {
		if s.progress != nil {
			s.progress(fmt.Sprintf("frame %d/%d, %v exposure", i+1, frames, texp))
		}
		start := time.Now()
		f, err := s.cam.Capture(ctx)
		s.met.ObserveExposure(s.backend, time.Since(start), err)
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		var cards []fitsio.Card
		if mm, ok := s.cam.(camera.MetadataMaker); ok {
			cards = mm.CollectHeaderMetadata()
		}
		path, err := s.rec.Record(f, tag, cards...)
		if err != nil {
			return err
		}
		s.met.FrameWritten(strings.TrimPrefix(filepath.Ext(path), "."))
		if th, ok := s.cam.(thermometer); ok {
			if t, err := th.Temperature(); err == nil {
				s.met.SetTemperature(s.backend, t)
			}
		}
		s.log.Info("frame written", "path", path, "width", f.Width, "height", f.Height)
	}
	return nil
}
