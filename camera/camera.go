/*Package camera describes the backend-agnostic core shared by the camera drivers

The Camera type contains the capability set every backend implements, while
the rest of the package holds the pieces the backends build on: the error
taxonomy that vendor result codes collapse onto, region of interest and pixel
format bookkeeping, the owned pixel buffer, and the exposure engine.

Backends keep their own control vocabularies.  The name-based methods here
accept exactly the names a backend's control enumeration prints, nothing else.

*/
package camera

import (
	"context"
	"time"

	"github.com/astrogo/fitsio"
)

// Camera describes one open device session.
type Camera interface {
	// Control reads the current value of the named control.
	Control(name string) (float64, error)

	// SetControl writes the named control.  Backends validate what they know
	// about the control locally and forward everything else to the driver.
	SetControl(name string, value float64) error

	// Configure sets many controls at once
	Configure(settings map[string]float64) error

	// SetExposureTime sets the exposure duration
	SetExposureTime(time.Duration) error

	// ExposureTime reads the exposure duration back from the device
	ExposureTime() (time.Duration, error)

	// SetROI changes the region of interest, binning, and pixel format.
	// Width and Height are readout dimensions after binning, for every
	// backend: a full sensor at bin 2 is SensorSize()/2.  The effective
	// dimensions may be smaller than requested.
	SetROI(ROI) error

	// ROI returns the current effective region of interest
	ROI() ROI

	// SensorSize returns the full sensor (W, H) in pixels
	SensorSize() (int, int)

	// Capture runs one exposure to completion and returns the frame.  The
	// frame's pixels belong to the camera and are only valid until the next
	// Capture, SetROI, or Close.
	Capture(ctx context.Context) (Frame, error)

	// Close ends the session and frees the pixel buffer.  Every call made
	// after Close fails with DeviceClosed.
	Close() error
}

// MetadataMaker can produce an array of FITS cards describing the state the
// camera was in when a frame was taken
type MetadataMaker interface {
	// CollectHeaderMetadata produces an array of FITS cards
	CollectHeaderMetadata() []fitsio.Card
}

// Frame is a filled pixel buffer and the geometry needed to interpret it.
// Multi-byte samples are little endian, as delivered by the drivers.
type Frame struct {
	// Width is the width in pixels
	Width int

	// Height is the height in pixels
	Height int

	// BitDepth is the number of bits per channel sample, 8 or 16
	BitDepth int

	// Channels is the number of interleaved samples per pixel
	Channels int

	// Pix is the raw pixel data, row major
	Pix []byte
}

// Format returns the pixel format of the frame
func (f Frame) Format() PixelFormat {
	return PixelFormat{Channels: f.Channels, BitDepth: f.BitDepth}
}

// Bytes is the number of bytes the frame geometry calls for
func (f Frame) Bytes() int {
	return f.Width * f.Height * f.Format().BytesPerPixel()
}
