package qhy

import "unsafe"

// Result is the status word every libqhyccd call returns
type Result uint32

const (
	// Success is QHYCCD_SUCCESS
	Success Result = 0

	// Delay200ms is QHYCCD_DELAY_200MS, success with a readout delay
	Delay200ms Result = 0x2000

	// ReadDirectly is QHYCCD_READ_DIRECTLY, success with the frame ready
	ReadDirectly Result = 0x2001

	// Failure is QHYCCD_ERROR, the only failure code the SDK has
	Failure Result = 0xFFFFFFFF
)

// paramError is what GetQHYCCDParam returns in place of a value on failure
const paramError = 4294967295.0

// Handle is an open device, as returned by OpenQHYCCD
type Handle unsafe.Pointer

// ChipInfo is the sensor geometry reported by the driver
type ChipInfo struct {
	// ChipWidth and ChipHeight are the sensor size, mm
	ChipWidth, ChipHeight float64

	// ImageWidth and ImageHeight are the full resolution, px
	ImageWidth, ImageHeight int

	// PixelWidth and PixelHeight are the pixel pitch, um
	PixelWidth, PixelHeight float64

	// BPP is the native bit depth
	BPP int
}

// Area is a rectangle on the sensor
type Area struct {
	StartX, StartY int
	SizeX, SizeY   int
}

// Driver is the libqhyccd call boundary.  Results come back raw; the qhy
// package maps them.
type Driver interface {
	InitResource() Result
	ReleaseResource() Result
	Scan() int
	ID(index int) (string, Result)
	Model(id string) (string, Result)
	Open(id string) Handle
	Close(h Handle) Result
	SetStreamMode(h Handle, mode int) Result
	Init(h Handle) Result
	CancelExposingAndReadout(h Handle) Result

	// IsControlAvailable answers Success or Failure, except for Color,
	// where a colour sensor answers its Bayer pattern (1-4)
	IsControlAvailable(h Handle, c Control) Result
	SetParam(h Handle, c Control, v float64) Result
	GetParam(h Handle, c Control) float64

	SetDebayer(h Handle, on bool) Result
	SetResolution(h Handle, x, y, width, height int) Result
	SetBinMode(h Handle, wbin, hbin int) Result
	SetBitsMode(h Handle, bits int) Result
	ChipInfo(h Handle) (ChipInfo, Result)
	EffectiveArea(h Handle) (Area, Result)
	OverscanArea(h Handle) (Area, Result)
	ControlTemp(h Handle, target float64) Result

	ExpSingleFrame(h Handle) Result
	ExposureRemaining(h Handle) int
	MemLength(h Handle) int
	SingleFrame(h Handle, buf []byte) (width, height, bpp, channels int, r Result)
}
