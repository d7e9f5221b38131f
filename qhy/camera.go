package qhy

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/obslab/camlab/camera"
	"github.com/obslab/camlab/util"
)

// whiteBalance is the neutral per-channel white balance applied at open
const whiteBalance = 20

// Options configure an acquired camera
type Options struct {
	// Margin is added to the exposure time to cover readout.  Zero means
	// camera.DefaultMargin.
	Margin time.Duration

	// Tick is the interval between progress reports while exposing
	Tick time.Duration

	// Logger receives diagnostics.  Nil means the Context's logger.
	Logger *slog.Logger
}

// Camera is an open QHYCCD camera session
type Camera struct {
	drv   Driver
	h     Handle
	id    string
	model string
	chip  ChipInfo
	bayer Bayer

	roi camera.ROI

	// stale means the buffer must be resized from MemLength before readout
	buf   *camera.Buffer
	stale bool

	inFlight bool

	// readDelay is extra wait the driver asked for on the last trigger
	readDelay time.Duration

	closed bool
	opts   Options
	log    *slog.Logger
}

func (c *Camera) init() error {
	if err := Error("SetQHYCCDStreamMode", c.drv.SetStreamMode(c.h, 0)); err != nil {
		return err
	}
	if err := Error("InitQHYCCD", c.drv.Init(c.h)); err != nil {
		return err
	}
	if err := Error("CancelQHYCCDExposingAndReadout", c.drv.CancelExposingAndReadout(c.h)); err != nil {
		return err
	}
	if model, r := c.drv.Model(c.id); r == Success {
		c.model = model
	}
	chip, r := c.drv.ChipInfo(c.h)
	if err := Error("GetQHYCCDChipInfo", r); err != nil {
		return err
	}
	c.chip = chip
	return c.setDefaults()
}

func (c *Camera) setDefaults() error {
	r := c.drv.IsControlAvailable(c.h, Color)
	if r >= 1 && r <= 4 {
		c.bayer = Bayer(r)
		if err := Error("SetQHYCCDDebayerOnOff", c.drv.SetDebayer(c.h, true)); err != nil {
			return err
		}
		for _, wb := range []Control{WBR, WBG, WBB} {
			if !c.Available(wb) {
				continue
			}
			if err := c.SetParam(wb, whiteBalance); err != nil {
				return err
			}
		}
	}
	// without TransferBit the depth is whatever the sensor delivers
	bits := 8
	if c.chip.BPP > 8 || c.Available(TransferBit) {
		bits = 16
	}
	c.buf = camera.NewBuffer(0)
	c.roi.Format = camera.PixelFormat{Channels: c.channels(), BitDepth: bits}
	if err := c.SetROIFormat(c.chip.ImageWidth, c.chip.ImageHeight, 1, bits); err != nil {
		return err
	}
	return c.resizeBuffer()
}

func (c *Camera) channels() int {
	if c.bayer != Mono {
		return 3
	}
	return 1
}

// ID returns the driver id string the camera was opened with
func (c *Camera) ID() string {
	return c.id
}

// Model returns the camera model, if the driver reported one
func (c *Camera) Model() string {
	return c.model
}

// Bayer returns the colour filter pattern, Mono for monochrome sensors
func (c *Camera) Bayer() Bayer {
	return c.bayer
}

// Available asks the device whether it supports control
func (c *Camera) Available(ctl Control) bool {
	if c.closed {
		return false
	}
	r := c.drv.IsControlAvailable(c.h, ctl)
	switch {
	case r == Success:
		return true
	case r == Failure:
		return false
	case ctl == Color && r >= 1 && r <= 4:
		return true
	}
	panic(fmt.Sprintf("qhy: IsQHYCCDControlAvailable(%s) returned unexpected result %s", ctl, r))
}

// AvailableControls filters the control table down to what the device supports
func (c *Camera) AvailableControls() []Control {
	var out []Control
	for _, ctl := range Controls() {
		if c.Available(ctl) {
			out = append(out, ctl)
		}
	}
	return out
}

// SetParam writes a control.  Controls the device does not support fail
// with InvalidControl before any write is attempted.
func (c *Camera) SetParam(ctl Control, v float64) error {
	if c.closed {
		return camera.Errorf(camera.DeviceClosed, "qhy: set %s", ctl)
	}
	if !c.Available(ctl) {
		return camera.Errorf(camera.InvalidControl, "qhy: camera has no %s control", ctl)
	}
	return Error("SetQHYCCDParam", c.drv.SetParam(c.h, ctl, v))
}

// GetParam reads a control
func (c *Camera) GetParam(ctl Control) (float64, error) {
	if c.closed {
		return 0, camera.Errorf(camera.DeviceClosed, "qhy: get %s", ctl)
	}
	if !c.Available(ctl) {
		return 0, camera.Errorf(camera.InvalidControl, "qhy: camera has no %s control", ctl)
	}
	v := c.drv.GetParam(c.h, ctl)
	if v == paramError {
		return 0, &camera.DriverError{Backend: "qhy", Op: "GetQHYCCDParam", Code: int64(Failure), Name: ErrCodes[Failure], Kind: camera.GeneralError}
	}
	return v, nil
}

// SetExposureTime sets the exposure time, which the SDK holds in microseconds
func (c *Camera) SetExposureTime(t time.Duration) error {
	return c.SetParam(Exposure, float64(t.Microseconds()))
}

// ExposureTime reads the exposure time back from the device
func (c *Camera) ExposureTime() (time.Duration, error) {
	us, err := c.GetParam(Exposure)
	if err != nil {
		return 0, err
	}
	return util.SecsToDuration(us / 1e6), nil
}

// SetTargetTemp sets the cooler setpoint in Celsius
func (c *Camera) SetTargetTemp(t float64) error {
	if c.closed {
		return camera.Errorf(camera.DeviceClosed, "qhy: set target temperature")
	}
	return Error("ControlQHYCCDTemp", c.drv.ControlTemp(c.h, t))
}

// Temperature returns the sensor temperature in Celsius
func (c *Camera) Temperature() (float64, error) {
	return c.GetParam(CurTemp)
}

// SetBinMode sets symmetric binning.  The device must advertise the
// matching BinNxNMode control.
func (c *Camera) SetBinMode(bin int) error {
	if c.closed {
		return camera.Errorf(camera.DeviceClosed, "qhy: set bin mode")
	}
	ctl, ok := binModes[bin]
	if !ok || !c.Available(ctl) {
		return camera.Errorf(camera.InvalidControl, "qhy: camera has no %dx%d bin mode", bin, bin)
	}
	return Error("SetQHYCCDBinMode", c.drv.SetBinMode(c.h, bin, bin))
}

// SetROIFormat sets the binning, the ROI anchored at the origin, and the
// transfer bit depth.  Width and height are rounded down to multiples of 8
// and count binned pixels, which is what SetQHYCCDResolution takes once the
// bin mode is set.  If the resolution or depth is rejected the previous bin
// mode is restored.  The buffer is resized from the driver's memory length
// before the next trigger.
func (c *Camera) SetROIFormat(width, height, bin, bits int) error {
	if c.closed {
		return camera.Errorf(camera.DeviceClosed, "qhy: set ROI")
	}
	if bits != 8 && bits != 16 {
		return camera.Errorf(camera.InvalidImageType, "qhy: %d bit transfer", bits)
	}
	hasBits := c.Available(TransferBit)
	if !hasBits && bits != c.roi.Format.BitDepth {
		return camera.Errorf(camera.InvalidImageType, "qhy: camera is fixed at %d bit transfer", c.roi.Format.BitDepth)
	}
	roi, err := camera.ROI{
		Width:  width,
		Height: height,
		Bin:    bin,
		Format: camera.PixelFormat{Channels: c.channels(), BitDepth: bits}}.Aligned()
	if err != nil {
		return err
	}
	if err := c.SetBinMode(bin); err != nil {
		return err
	}
	restore := func(err error) error {
		if prev := c.roi.Bin; prev != 0 && prev != bin {
			if rerr := Error("SetQHYCCDBinMode", c.drv.SetBinMode(c.h, prev, prev)); rerr != nil {
				c.log.Warn("restoring bin mode failed", "bin", prev, "error", rerr)
			}
		}
		return err
	}
	if err := Error("SetQHYCCDResolution", c.drv.SetResolution(c.h, 0, 0, roi.Width, roi.Height)); err != nil {
		return restore(err)
	}
	if hasBits {
		if err := Error("SetQHYCCDBitsMode", c.drv.SetBitsMode(c.h, bits)); err != nil {
			return restore(err)
		}
	}
	c.roi = roi
	c.stale = true
	return nil
}

// resizeBuffer sizes the buffer from the driver's memory length, never below
// what the current ROI needs
func (c *Camera) resizeBuffer() error {
	n := c.drv.MemLength(c.h)
	if n <= 0 {
		return &camera.DriverError{Backend: "qhy", Op: "GetQHYCCDMemLength", Code: int64(n), Name: "no length", Kind: camera.GeneralError}
	}
	if need := c.roi.Bytes(); n < need {
		c.log.Warn("driver memory length is short of the ROI", "memLength", n, "roiBytes", need)
		n = need
	}
	if err := c.buf.Resize(n); err != nil {
		return err
	}
	c.stale = false
	c.log.Debug("buffer sized", "bytes", n)
	return nil
}

// ChipInfo returns the sensor geometry read at open
func (c *Camera) ChipInfo() ChipInfo {
	return c.chip
}

// EffectiveArea returns the light sensitive region of the sensor
func (c *Camera) EffectiveArea() (Area, error) {
	if c.closed {
		return Area{}, camera.Errorf(camera.DeviceClosed, "qhy: effective area")
	}
	a, r := c.drv.EffectiveArea(c.h)
	return a, Error("GetQHYCCDEffectiveArea", r)
}

// OverscanArea returns the overscan region of the sensor
func (c *Camera) OverscanArea() (Area, error) {
	if c.closed {
		return Area{}, camera.Errorf(camera.DeviceClosed, "qhy: overscan area")
	}
	a, r := c.drv.OverscanArea(c.h)
	return a, Error("GetQHYCCDOverScanArea", r)
}

// StartExposure triggers a single frame.  A stale buffer is resized from
// the driver's memory length before the trigger.
func (c *Camera) StartExposure() error {
	if c.closed {
		return camera.Errorf(camera.DeviceClosed, "qhy: start exposure")
	}
	if c.inFlight {
		return camera.Errorf(camera.ExposureInProgress, "qhy: start exposure")
	}
	if c.stale {
		if err := c.resizeBuffer(); err != nil {
			return err
		}
	}
	c.readDelay = 0
	switch r := c.drv.ExpSingleFrame(c.h); r {
	case Success, ReadDirectly:
	case Delay200ms:
		c.readDelay = 200 * time.Millisecond
	default:
		return Error("ExpQHYCCDSingleFrame", r)
	}
	c.inFlight = true
	return nil
}

// AbortExposure cancels the exposure and any readout
func (c *Camera) AbortExposure() error {
	if c.closed {
		return camera.Errorf(camera.DeviceClosed, "qhy: cancel exposure")
	}
	c.inFlight = false
	return Error("CancelQHYCCDExposingAndReadout", c.drv.CancelExposingAndReadout(c.h))
}

// ReadFrame reads the completed frame into the camera's buffer.  The
// geometry the driver reports is checked against the buffer before the
// pixels are handed out.
func (c *Camera) ReadFrame() (camera.Frame, error) {
	buf, err := c.buf.Bytes()
	if err != nil {
		return camera.Frame{}, err
	}
	// the driver writes without a capacity check
	if need := c.roi.Bytes(); c.stale || len(buf) < need {
		return camera.Frame{}, camera.Errorf(camera.BufferTooSmall, "qhy: ROI needs %d bytes, buffer holds %d", need, len(buf))
	}
	c.inFlight = false
	w, h, bpp, ch, r := c.drv.SingleFrame(c.h, buf)
	if err := Error("GetQHYCCDSingleFrame", r); err != nil {
		return camera.Frame{}, err
	}
	f := camera.Frame{Width: w, Height: h, BitDepth: bpp, Channels: ch}
	n := f.Bytes()
	if n > len(buf) {
		return camera.Frame{}, camera.Errorf(camera.BufferTooSmall, "qhy: %dx%d %dch %dbit frame needs %d bytes, buffer holds %d", w, h, ch, bpp, n, len(buf))
	}
	f.Pix = buf[:n]
	return f, nil
}

func (c *Camera) reportProgress(remaining time.Duration) {
	attrs := []any{
		"remaining", remaining.Round(time.Millisecond),
		"driverRemaining", c.drv.ExposureRemaining(c.h)}
	if t, err := c.Temperature(); err == nil {
		attrs = append(attrs, "temperature", t)
	}
	c.log.Info("exposing", attrs...)
}

// Capture runs one exposure and returns the frame.  The driver has no
// usable status query, so the exposure time plus the margin is waited out
// in ticks that report the time remaining and the sensor temperature.
func (c *Camera) Capture(ctx context.Context) (camera.Frame, error) {
	if c.closed {
		return camera.Frame{}, camera.Errorf(camera.DeviceClosed, "qhy: capture")
	}
	w := &delayWaiter{c: c, inner: camera.SleepWaiter{
		Margin: c.opts.Margin,
		Tick:   c.opts.Tick,
		OnTick: c.reportProgress}}
	en := camera.Engine{Waiter: w, Logger: c.log}
	return en.Expose(ctx, c)
}

// delayWaiter adds any readout delay the driver asked for at trigger time
type delayWaiter struct {
	c     *Camera
	inner camera.SleepWaiter
}

func (w *delayWaiter) Wait(ctx context.Context, texp time.Duration) error {
	return w.inner.Wait(ctx, texp+w.c.readDelay)
}

// Control implements camera.Camera
func (c *Camera) Control(name string) (float64, error) {
	ctl, ok := ParseControl(name)
	if !ok {
		return 0, camera.Errorf(camera.InvalidControl, "qhy: unknown control %q", name)
	}
	return c.GetParam(ctl)
}

// SetControl implements camera.Camera
func (c *Camera) SetControl(name string, v float64) error {
	ctl, ok := ParseControl(name)
	if !ok {
		return camera.Errorf(camera.InvalidControl, "qhy: unknown control %q", name)
	}
	return c.SetParam(ctl, v)
}

// Configure sets many controls at once, in name order.  Every setting is
// attempted; the failures are merged.
func (c *Camera) Configure(settings map[string]float64) error {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var errs []error
	for _, k := range keys {
		errs = append(errs, c.SetControl(k, settings[k]))
	}
	return util.MergeErrors(errs)
}

// SetROI implements camera.Camera.  The channel count is fixed by the sensor.
func (c *Camera) SetROI(r camera.ROI) error {
	if r.Format.Channels != c.channels() {
		return camera.Errorf(camera.InvalidImageType, "qhy: sensor delivers %d channels, not %d", c.channels(), r.Format.Channels)
	}
	return c.SetROIFormat(r.Width, r.Height, r.Bin, r.Format.BitDepth)
}

// ROI returns the effective region of interest
func (c *Camera) ROI() camera.ROI {
	return c.roi
}

// SensorSize returns the full resolution
func (c *Camera) SensorSize() (int, int) {
	return c.chip.ImageWidth, c.chip.ImageHeight
}

// Close cancels any exposure, closes the device, and frees the buffer
func (c *Camera) Close() error {
	if c.closed {
		return camera.Errorf(camera.DeviceClosed, "qhy: close")
	}
	if c.inFlight {
		c.drv.CancelExposingAndReadout(c.h)
		c.inFlight = false
	}
	c.closed = true
	c.buf.Release()
	c.log.Info("camera closed")
	return Error("CloseQHYCCD", c.drv.Close(c.h))
}
