package asi

import "fmt"

// ErrorCode is a result code returned by every ASICamera2 call
type ErrorCode int

const (
	Success ErrorCode = iota
	ErrInvalidIndex
	ErrInvalidID
	ErrInvalidControlType
	ErrCameraClosed
	ErrCameraRemoved
	ErrInvalidPath
	ErrInvalidFileFormat
	ErrInvalidSize
	ErrInvalidImgType
	ErrOutOfBoundary
	ErrTimeout
	ErrInvalidSequence
	ErrBufferTooSmall
	ErrVideoModeActive
	ErrExposureInProgress
	ErrGeneralError
	ErrInvalidMode

	// ErrEnd terminates the enumeration and is never a valid result
	ErrEnd
)

// ControlType is the code for a camera control, the stable external name
// callers use to address it
type ControlType int

const (
	Gain ControlType = iota
	Exposure
	Gamma
	WBR
	WBB
	Offset
	BandwidthOverload
	Overclock
	Temperature
	Flip
	AutoMaxGain
	AutoMaxExp
	AutoTargetBrightness
	HardwareBin
	HighSpeedMode
	CoolerPowerPerc
	TargetTemp
	CoolerOn
	MonoBin
	FanOn
	PatternAdjust
	AntiDewHeater
)

var controlNames = []string{
	"Gain",
	"Exposure",
	"Gamma",
	"WB_R",
	"WB_B",
	"Offset",
	"BandwidthOverload",
	"Overclock",
	"Temperature",
	"Flip",
	"AutoMaxGain",
	"AutoMaxExp",
	"AutoTargetBrightness",
	"HardwareBin",
	"HighSpeedMode",
	"CoolerPowerPerc",
	"TargetTemp",
	"CoolerOn",
	"MonoBin",
	"FanOn",
	"PatternAdjust",
	"AntiDewHeater",
}

func (c ControlType) String() string {
	if c >= 0 && int(c) < len(controlNames) {
		return controlNames[c]
	}
	return fmt.Sprintf("ControlType(%d)", int(c))
}

// ParseControlType returns the control with the given name
func ParseControlType(name string) (ControlType, bool) {
	for i, n := range controlNames {
		if n == name {
			return ControlType(i), true
		}
	}
	return 0, false
}

// ImageType is the pixel format of the readout
type ImageType int

const (
	RAW8 ImageType = iota
	RGB24
	RAW16
	Y8

	// ImgEnd terminates the supported format list in Info
	ImgEnd ImageType = -1
)

var imageTypeNames = map[ImageType]string{
	RAW8:  "RAW8",
	RGB24: "RGB24",
	RAW16: "RAW16",
	Y8:    "Y8",
}

func (t ImageType) String() string {
	if s, ok := imageTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("ImageType(%d)", int(t))
}

// ParseImageType returns the image type with the given name
func ParseImageType(name string) (ImageType, bool) {
	for k, v := range imageTypeNames {
		if v == name {
			return k, true
		}
	}
	return ImgEnd, false
}

// ExposureStatus is the state of the exposure as reported by the driver
type ExposureStatus int

const (
	ExpIdle ExposureStatus = iota
	ExpWorking
	ExpSuccess
	ExpFailed
)

// BayerPattern is the colour filter arrangement of a colour sensor
type BayerPattern int

const (
	BayerRG BayerPattern = iota
	BayerBG
	BayerGR
	BayerGB
)

// Info is the property block the driver reports for one camera
type Info struct {
	Name             string
	CameraID         int
	MaxWidth         int
	MaxHeight        int
	IsColor          bool
	BayerPattern     BayerPattern
	SupportedBins    []int
	SupportedFormats []ImageType
	PixelSize        float64
	IsCooler         bool
	IsUSB3           bool
	ElecPerADU       float64
	BitDepth         int
}

// ControlCaps describes one control a camera supports
type ControlCaps struct {
	Name            string
	Description     string
	Max             int64
	Min             int64
	Default         int64
	IsAutoSupported bool
	IsWritable      bool
	ControlType     ControlType
}

// Driver is the ASICamera2 call boundary.  Every call returns the raw
// result code; nothing above this interface sees a code unmapped.
//
// Cameras are addressed by the CameraID from their Info.
type Driver interface {
	NumConnected() int
	CameraProperty(index int) (Info, ErrorCode)
	Open(id int) ErrorCode
	Init(id int) ErrorCode
	Close(id int) ErrorCode
	NumControls(id int) (int, ErrorCode)
	ControlCaps(id, index int) (ControlCaps, ErrorCode)
	GetControlValue(id int, c ControlType) (value int64, auto bool, code ErrorCode)
	SetControlValue(id int, c ControlType, value int64, auto bool) ErrorCode
	SetROIFormat(id, width, height, bin int, t ImageType) ErrorCode
	StartExposure(id int, dark bool) ErrorCode
	StopExposure(id int) ErrorCode
	ExpStatus(id int) (ExposureStatus, ErrorCode)
	DataAfterExp(id int, buf []byte) ErrorCode
	SDKVersion() string
}
