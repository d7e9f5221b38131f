/*Package asi exposes control of ZWO ASI cameras in Go via the ASICamera2 SDK

The package is split the same way the SDK is: a Driver interface that
mirrors the C calls one for one, and a Camera that holds everything the SDK
does not remember for us.  That is the control catalog discovered at open,
the current ROI, the pixel buffer the frame is read into, and whether an
exposure is in flight.

The cgo binding lives in the asisdk subpackage so that this package (and its
tests) build without the vendor library present.

*/
package asi

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/obslab/camlab/camera"
	"github.com/obslab/camlab/mathx"
	"github.com/obslab/camlab/util"
)

// Options configure an acquired camera
type Options struct {
	// Margin is the readout overhead added to the exposure time when bounding
	// the wait for a frame.  Zero means camera.DefaultMargin.
	Margin time.Duration

	// PollInitial is the first delay between exposure status polls
	PollInitial time.Duration

	// PollMax caps the delay between exposure status polls
	PollMax time.Duration

	// Logger receives diagnostics.  Nil means slog.Default().
	Logger *slog.Logger
}

// Camera is an open ASI camera session
type Camera struct {
	drv  Driver
	info Info
	id   int

	controls map[ControlType]ControlCaps

	// roi holds the effective dimensions, binning, and pixel format
	roi     camera.ROI
	imgType ImageType

	// hwBin tracks the HardwareBin control so dims move only on a transition
	hwBin bool

	buf      *camera.Buffer
	inFlight bool
	closed   bool

	opts Options
	log  *slog.Logger
}

// List returns the properties of every connected camera, in index order
func List(drv Driver) ([]Info, error) {
	n := drv.NumConnected()
	out := make([]Info, 0, n)
	for i := 0; i < n; i++ {
		info, code := drv.CameraProperty(i)
		if err := Error("ASIGetCameraProperty", code); err != nil {
			return out, err
		}
		out = append(out, info)
	}
	return out, nil
}

// Acquire opens the camera at index, discovers its controls, and sets the ROI
// to the full sensor at bin 1 in RGB24.  An index that is not connected
// yields a nil Camera and an InvalidIndex error.
func Acquire(drv Driver, index int, opts Options) (*Camera, error) {
	if opts.Margin == 0 {
		opts.Margin = camera.DefaultMargin
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "asi", "index", index)

	n := drv.NumConnected()
	if index < 0 || index >= n {
		return nil, camera.Errorf(camera.InvalidIndex, "asi: camera index %d requested, %d connected", index, n)
	}
	info, code := drv.CameraProperty(index)
	if err := Error("ASIGetCameraProperty", code); err != nil {
		return nil, err
	}
	log.Debug("got properties", "name", info.Name, "id", info.CameraID,
		"width", info.MaxWidth, "height", info.MaxHeight)

	id := info.CameraID
	if err := Error("ASIOpenCamera", drv.Open(id)); err != nil {
		return nil, err
	}
	c := &Camera{
		drv:      drv,
		info:     info,
		id:       id,
		controls: make(map[ControlType]ControlCaps),
		opts:     opts,
		log:      log.With("id", id)}

	if err := c.init(); err != nil {
		drv.Close(id)
		return nil, err
	}
	log.Info("camera acquired", "name", info.Name, "controls", len(c.controls))
	return c, nil
}

func (c *Camera) init() error {
	if err := Error("ASIInitCamera", c.drv.Init(c.id)); err != nil {
		return err
	}
	n, code := c.drv.NumControls(c.id)
	if err := Error("ASIGetNumOfControls", code); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		caps, code := c.drv.ControlCaps(c.id, i)
		if err := Error("ASIGetControlCaps", code); err != nil {
			return err
		}
		c.controls[caps.ControlType] = caps
		c.log.Debug("got control", "control", caps.ControlType.String(),
			"min", caps.Min, "max", caps.Max, "writable", caps.IsWritable)
	}
	if caps, ok := c.controls[HardwareBin]; ok {
		v, _, code := c.drv.GetControlValue(c.id, HardwareBin)
		if err := Error("ASIGetControlValue", code); err != nil {
			return err
		}
		// the initial ROI is the full sensor, which needs hardware binning off
		if v == 1 && caps.IsWritable {
			if err := Error("ASISetControlValue", c.drv.SetControlValue(c.id, HardwareBin, 0, false)); err != nil {
				return err
			}
			c.log.Debug("hardware bin was on at open, turned off")
			v = 0
		}
		c.hwBin = v == 1
	}
	c.buf = camera.NewBuffer(0)
	return c.SetROIFormat(c.info.MaxWidth, c.info.MaxHeight, 1, RGB24)
}

// Info returns the property block read at open
func (c *Camera) Info() Info {
	return c.info
}

// Controls returns the control catalog, ordered by control code
func (c *Camera) Controls() []ControlCaps {
	out := make([]ControlCaps, 0, len(c.controls))
	for _, v := range c.controls {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ControlType < out[j].ControlType })
	return out
}

// GetControlValue reads a control from the device
func (c *Camera) GetControlValue(ct ControlType) (int64, error) {
	if c.closed {
		return 0, camera.Errorf(camera.DeviceClosed, "asi: get %s", ct)
	}
	v, _, code := c.drv.GetControlValue(c.id, ct)
	return v, Error("ASIGetControlValue", code)
}

// SetControlValue writes a control with auto mode off
func (c *Camera) SetControlValue(ct ControlType, v int64) error {
	return c.setControl(ct, v, false)
}

// SetControlAuto hands a control to the driver's auto mode, with v as the
// starting value
func (c *Camera) SetControlAuto(ct ControlType, v int64) error {
	return c.setControl(ct, v, true)
}

func (c *Camera) setControl(ct ControlType, v int64, auto bool) error {
	if c.closed {
		return camera.Errorf(camera.DeviceClosed, "asi: set %s", ct)
	}
	caps, ok := c.controls[ct]
	if !ok {
		return camera.Errorf(camera.InvalidControl, "asi: camera has no %s control", ct)
	}
	if !caps.IsWritable {
		return camera.Errorf(camera.InvalidControl, "asi: %s is read only", ct)
	}
	if auto && !caps.IsAutoSupported {
		return camera.Errorf(camera.InvalidControl, "asi: %s has no auto mode", ct)
	}
	if !auto && (v < caps.Min || v > caps.Max) {
		return camera.Errorf(camera.OutOfBoundary, "asi: %s=%d outside [%d, %d]", ct, v, caps.Min, caps.Max)
	}
	if ct == HardwareBin && v != 0 && v != 1 {
		panic("asi: HardwareBin accepts only 0 or 1")
	}
	if err := Error("ASISetControlValue", c.drv.SetControlValue(c.id, ct, v, auto)); err != nil {
		return err
	}
	if ct == HardwareBin {
		return c.toggleHardwareBin(v == 1)
	}
	return nil
}

func (c *Camera) toggleHardwareBin(on bool) error {
	if on == c.hwBin {
		return nil
	}
	c.hwBin = on
	if on {
		c.roi.Width /= 2
		c.roi.Height /= 2
	} else {
		c.roi.Width *= 2
		c.roi.Height *= 2
	}
	c.log.Debug("hardware bin changed dimensions", "on", on, "width", c.roi.Width, "height", c.roi.Height)
	return c.buf.Resize(c.roi.Bytes())
}

// SetExposureTime sets the exposure time, which the SDK holds in microseconds
func (c *Camera) SetExposureTime(t time.Duration) error {
	return c.SetControlValue(Exposure, t.Microseconds())
}

// ExposureTime reads the exposure time back from the device
func (c *Camera) ExposureTime() (time.Duration, error) {
	us, err := c.GetControlValue(Exposure)
	if err != nil {
		return 0, err
	}
	return time.Duration(us) * time.Microsecond, nil
}

// Temperature returns the sensor temperature in Celsius
func (c *Camera) Temperature() (float64, error) {
	v, err := c.GetControlValue(Temperature)
	if err != nil {
		return 0, err
	}
	return mathx.Round(float64(v)/10, 0.1), nil
}

func formatOf(t ImageType) (camera.PixelFormat, error) {
	switch t {
	case RAW8, Y8:
		return camera.Mono8, nil
	case RAW16:
		return camera.Mono16, nil
	case RGB24:
		return camera.RGB24, nil
	}
	return camera.PixelFormat{}, camera.Errorf(camera.InvalidImageType, "asi: image type %s", t)
}

func imageTypeOf(f camera.PixelFormat) (ImageType, error) {
	switch f {
	case camera.Mono8:
		return RAW8, nil
	case camera.Mono16:
		return RAW16, nil
	case camera.RGB24:
		return RGB24, nil
	}
	return ImgEnd, camera.Errorf(camera.InvalidImageType, "asi: no image type carries %s", f)
}

// SetROIFormat sets the ROI anchored at the sensor origin.  Width and height
// are rounded down to multiples of 8 before they reach the driver.  The
// pixel buffer is reallocated to match.
func (c *Camera) SetROIFormat(width, height, bin int, t ImageType) error {
	if c.closed {
		return camera.Errorf(camera.DeviceClosed, "asi: set ROI")
	}
	f, err := formatOf(t)
	if err != nil {
		return err
	}
	roi, err := camera.ROI{Width: width, Height: height, Bin: bin, Format: f}.Aligned()
	if err != nil {
		return err
	}
	code := c.drv.SetROIFormat(c.id, roi.Width, roi.Height, roi.Bin, t)
	if err := Error("ASISetROIFormat", code); err != nil {
		return err
	}
	c.roi = roi
	c.imgType = t
	return c.buf.Resize(roi.Bytes())
}

// ImageType returns the current readout format
func (c *Camera) ImageType() ImageType {
	return c.imgType
}

// StartExposure triggers a single light frame
func (c *Camera) StartExposure() error {
	if c.closed {
		return camera.Errorf(camera.DeviceClosed, "asi: start exposure")
	}
	if c.inFlight {
		return camera.Errorf(camera.ExposureInProgress, "asi: start exposure")
	}
	if err := Error("ASIStartExposure", c.drv.StartExposure(c.id, false)); err != nil {
		return err
	}
	c.inFlight = true
	return nil
}

// AbortExposure stops an exposure in flight
func (c *Camera) AbortExposure() error {
	if c.closed {
		return camera.Errorf(camera.DeviceClosed, "asi: stop exposure")
	}
	c.inFlight = false
	return Error("ASIStopExposure", c.drv.StopExposure(c.id))
}

// ExposureStatus queries the driver for the state of the exposure
func (c *Camera) ExposureStatus() (camera.Status, error) {
	if c.closed {
		return camera.StatusIdle, camera.Errorf(camera.DeviceClosed, "asi: exposure status")
	}
	st, code := c.drv.ExpStatus(c.id)
	if err := Error("ASIGetExpStatus", code); err != nil {
		return camera.StatusIdle, err
	}
	switch st {
	case ExpWorking:
		return camera.StatusWorking, nil
	case ExpSuccess:
		return camera.StatusSuccess, nil
	case ExpFailed:
		// the driver is ready for a new trigger
		c.inFlight = false
		return camera.StatusFailed, nil
	}
	c.inFlight = false
	return camera.StatusIdle, nil
}

// ReadFrame reads the completed exposure into the camera's buffer
func (c *Camera) ReadFrame() (camera.Frame, error) {
	buf, err := c.buf.Bytes()
	if err != nil {
		return camera.Frame{}, err
	}
	need := c.roi.Bytes()
	if len(buf) < need {
		return camera.Frame{}, camera.Errorf(camera.BufferTooSmall, "asi: frame needs %d bytes, buffer holds %d", need, len(buf))
	}
	buf = buf[:need]
	c.inFlight = false
	if err := Error("ASIGetDataAfterExp", c.drv.DataAfterExp(c.id, buf)); err != nil {
		return camera.Frame{}, err
	}
	return camera.Frame{
		Width:    c.roi.Width,
		Height:   c.roi.Height,
		BitDepth: c.roi.Format.BitDepth,
		Channels: c.roi.Format.Channels,
		Pix:      buf}, nil
}

// Capture runs one exposure and returns the frame.  Completion is polled;
// the wait is bounded by the exposure time plus the configured margin.
func (c *Camera) Capture(ctx context.Context) (camera.Frame, error) {
	if c.closed {
		return camera.Frame{}, camera.Errorf(camera.DeviceClosed, "asi: capture")
	}
	en := camera.Engine{
		Waiter: camera.PollWaiter{
			Status:          c.ExposureStatus,
			Margin:          c.opts.Margin,
			InitialInterval: c.opts.PollInitial,
			MaxInterval:     c.opts.PollMax},
		Logger: c.log}
	return en.Expose(ctx, c)
}

// Control implements camera.Camera
func (c *Camera) Control(name string) (float64, error) {
	ct, ok := ParseControlType(name)
	if !ok {
		return 0, camera.Errorf(camera.InvalidControl, "asi: unknown control %q", name)
	}
	v, err := c.GetControlValue(ct)
	return float64(v), err
}

// SetControl implements camera.Camera.  Values are rounded to the nearest
// integer, the SDK's native type.
func (c *Camera) SetControl(name string, v float64) error {
	ct, ok := ParseControlType(name)
	if !ok {
		return camera.Errorf(camera.InvalidControl, "asi: unknown control %q", name)
	}
	return c.SetControlValue(ct, int64(mathx.Round(v, 1)))
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

// SetROI implements camera.Camera
func (c *Camera) SetROI(r camera.ROI) error {
	t, err := imageTypeOf(r.Format)
	if err != nil {
		return err
	}
	return c.SetROIFormat(r.Width, r.Height, r.Bin, t)
}

// ROI returns the effective region of interest
func (c *Camera) ROI() camera.ROI {
	return c.roi
}

// SensorSize returns the full sensor dimensions
func (c *Camera) SensorSize() (int, int) {
	return c.info.MaxWidth, c.info.MaxHeight
}

// Close stops any exposure, closes the device, and frees the buffer
func (c *Camera) Close() error {
	if c.closed {
		return camera.Errorf(camera.DeviceClosed, "asi: close")
	}
	if c.inFlight {
		c.drv.StopExposure(c.id)
		c.inFlight = false
	}
	c.closed = true
	c.buf.Release()
	c.log.Info("camera closed")
	return Error("ASICloseCamera", c.drv.Close(c.id))
}
