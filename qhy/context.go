/*Package qhy exposes control of QHYCCD cameras in Go via libqhyccd

libqhyccd keeps process-wide state behind InitQHYCCDResource.  Rather than
hide that behind a package variable, the resource is an explicit Context:
create one, acquire cameras from it, close it when done.  Cameras acquired
from a Context must be closed before the Context is.

The driver has no usable control metadata, so the control vocabulary is a
fixed table and validation stops at asking the device whether it supports a
control.  It also has no reliable exposure status, so Capture waits out the
exposure time plus a margin.

The cgo binding lives in the qhysdk subpackage.

*/
package qhy

import (
	"log/slog"

	"github.com/obslab/camlab/camera"
)

// Context is an initialized libqhyccd resource
type Context struct {
	drv    Driver
	log    *slog.Logger
	closed bool
}

// NewContext initializes the SDK resource.  logger may be nil.
func NewContext(drv Driver, logger *slog.Logger) (*Context, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "qhy")
	if err := Error("InitQHYCCDResource", drv.InitResource()); err != nil {
		return nil, err
	}
	logger.Debug("SDK resource initialized")
	return &Context{drv: drv, log: logger}, nil
}

// Close releases the SDK resource
func (x *Context) Close() error {
	if x.closed {
		return camera.Errorf(camera.DeviceClosed, "qhy: context already released")
	}
	x.closed = true
	return Error("ReleaseQHYCCDResource", x.drv.ReleaseResource())
}

// Scan counts the connected cameras
func (x *Context) Scan() (int, error) {
	if x.closed {
		return 0, camera.Errorf(camera.DeviceClosed, "qhy: scan on released context")
	}
	n := x.drv.Scan()
	x.log.Debug("scanned", "cameras", n)
	return n, nil
}

// IDs returns the id string of every connected camera
func (x *Context) IDs() ([]string, error) {
	n, err := x.Scan()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id, r := x.drv.ID(i)
		if err := Error("GetQHYCCDId", r); err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Acquire opens the camera at index and applies the defaults: debayering
// for colour sensors, neutral white balance, full resolution, 1x1 binning,
// and 16-bit transfer where the camera offers it.  An index that is not
// connected yields a nil Camera and an InvalidIndex error.
func (x *Context) Acquire(index int, opts Options) (*Camera, error) {
	n, err := x.Scan()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= n {
		return nil, camera.Errorf(camera.InvalidIndex, "qhy: camera index %d requested, %d connected", index, n)
	}
	id, r := x.drv.ID(index)
	if err := Error("GetQHYCCDId", r); err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = x.log
	} else {
		log = log.With("component", "qhy")
	}
	log = log.With("id", id)

	h := x.drv.Open(id)
	if h == nil {
		return nil, &camera.DriverError{Backend: "qhy", Op: "OpenQHYCCD", Code: int64(Failure), Name: "null handle", Kind: camera.GeneralError}
	}
	if opts.Margin == 0 {
		opts.Margin = camera.DefaultMargin
	}
	c := &Camera{
		drv:  x.drv,
		h:    h,
		id:   id,
		opts: opts,
		log:  log}
	if err := c.init(); err != nil {
		x.drv.Close(h)
		return nil, err
	}
	log.Info("camera acquired", "model", c.model, "width", c.chip.ImageWidth, "height", c.chip.ImageHeight, "bayer", c.bayer.String())
	return c, nil
}
