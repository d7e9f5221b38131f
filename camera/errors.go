package camera

import "fmt"

// Kind is a failure kind shared by every backend.  Backends map their native
// result codes onto these so callers can use errors.Is regardless of driver.
type Kind int

const (
	// InvalidIndex means a device index is outside the enumerated range
	InvalidIndex Kind = iota + 1

	// InvalidID means a device id is not known to the driver
	InvalidID

	// InvalidControl means a control is unknown, unsupported, or read only
	InvalidControl

	// DeviceClosed means the session has been closed
	DeviceClosed

	// DeviceRemoved means the device was unplugged
	DeviceRemoved

	// InvalidPath means a file path could not be used
	InvalidPath

	// InvalidFileFormat means a file format is not supported
	InvalidFileFormat

	// InvalidSize means a size or resolution was rejected
	InvalidSize

	// InvalidImageType means a pixel format was rejected
	InvalidImageType

	// OutOfBoundary means a value is outside a control's bounds
	OutOfBoundary

	// Timeout means the driver did not finish in time
	Timeout

	// InvalidSequence means an operation was attempted in the wrong state
	InvalidSequence

	// BufferTooSmall means a frame does not fit the pixel buffer
	BufferTooSmall

	// ModeConflict means streaming and single frame modes collided
	ModeConflict

	// ExposureInProgress means an exposure is already in flight
	ExposureInProgress

	// GeneralError is an unspecified driver failure
	GeneralError

	// InvalidMode means a camera mode was rejected
	InvalidMode
)

var kindNames = map[Kind]string{
	InvalidIndex:       "invalid index",
	InvalidID:          "invalid id",
	InvalidControl:     "invalid control",
	DeviceClosed:       "device closed",
	DeviceRemoved:      "device removed",
	InvalidPath:        "invalid path",
	InvalidFileFormat:  "invalid file format",
	InvalidSize:        "invalid size",
	InvalidImageType:   "invalid image type",
	OutOfBoundary:      "value out of boundary",
	Timeout:            "timeout",
	InvalidSequence:    "invalid sequence",
	BufferTooSmall:     "buffer too small",
	ModeConflict:       "mode conflict",
	ExposureInProgress: "exposure in progress",
	GeneralError:       "general driver error",
	InvalidMode:        "invalid mode",
}

func (k Kind) Error() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("camera error kind %d", int(k))
}

// DriverError is a mapped native result code with the call that produced it
type DriverError struct {
	// Backend names the driver family, "asi" or "qhy"
	Backend string

	// Op is the driver call that failed
	Op string

	// Code is the native result code
	Code int64

	// Name is the driver's name for Code
	Name string

	// Kind is the shared failure kind Code maps to
	Kind Kind
}

func (e *DriverError) Error() string {
	return fmt.Sprintf("%s: %s: %s (%d - %s)", e.Backend, e.Op, e.Kind.Error(), e.Code, e.Name)
}

// Unwrap exposes the failure kind to errors.Is
func (e *DriverError) Unwrap() error {
	return e.Kind
}

// Errorf returns an error of kind k with a formatted context message
func Errorf(k Kind, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), k)
}
