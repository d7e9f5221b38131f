package qhy

import "fmt"

// Control is a libqhyccd CONTROL_ID.  The set is fixed at compile time; the
// driver can only say whether a given device supports one.
type Control int

const (
	Brightness Control = iota
	Contrast
	WBR
	WBB
	WBG
	Gamma
	Gain
	Offset
	Exposure
	Speed
	TransferBit
	Channels
	USBTraffic
	RowNoiseRe
	CurTemp
	CurPWM
	ManualPWM
	CFWPort
	Cooler
	ST4Port
	Color
	Bin1x1Mode
	Bin2x2Mode
	Bin3x3Mode
	Bin4x4Mode
	MechanicalShutter
	TriggerInterface
	TECOverProtect
	SignalClamp
	FineTone
	ShutterMotorHeating
	CalibrateFPN
	ChipTemperatureSensor
	USBReadoutSlowest
	Cam8Bits
	Cam16Bits
	GPS
	IgnoreOverscan
	AutoBalance3A
	AutoExposure3A
	AutoFocus3A
	AMPV
	VCAM
	ViewMode
	CFWSlotsNum
	IsExposingDone
	ScreenStretchB
	ScreenStretchW
	DDR
	LightPerformanceMode
	QHY5IIGuideMode
	DDRBufferCapacity
	DDRBufferReadThreshold
	DefaultOffset
	OutputDataActualBits
	OutputDataAlignment
)

var controlNames = [...]string{
	"Brightness",
	"Contrast",
	"WBR",
	"WBB",
	"WBG",
	"Gamma",
	"Gain",
	"Offset",
	"Exposure",
	"Speed",
	"TransferBit",
	"Channels",
	"USBTraffic",
	"RowNoiseRe",
	"CurTemp",
	"CurPWM",
	"ManualPWM",
	"CFWPort",
	"Cooler",
	"ST4Port",
	"Color",
	"Bin1x1Mode",
	"Bin2x2Mode",
	"Bin3x3Mode",
	"Bin4x4Mode",
	"MechanicalShutter",
	"TriggerInterface",
	"TECOverProtect",
	"SignalClamp",
	"FineTone",
	"ShutterMotorHeating",
	"CalibrateFPN",
	"ChipTemperatureSensor",
	"USBReadoutSlowest",
	"Cam8Bits",
	"Cam16Bits",
	"GPS",
	"IgnoreOverscan",
	"AutoBalance3A",
	"AutoExposure3A",
	"AutoFocus3A",
	"AMPV",
	"VCAM",
	"ViewMode",
	"CFWSlotsNum",
	"IsExposingDone",
	"ScreenStretchB",
	"ScreenStretchW",
	"DDR",
	"LightPerformanceMode",
	"QHY5IIGuideMode",
	"DDRBufferCapacity",
	"DDRBufferReadThreshold",
	"DefaultOffset",
	"OutputDataActualBits",
	"OutputDataAlignment",
}

func (c Control) String() string {
	if c >= 0 && int(c) < len(controlNames) {
		return controlNames[c]
	}
	return fmt.Sprintf("Control(%d)", int(c))
}

// ParseControl returns the control with the given name
func ParseControl(name string) (Control, bool) {
	for i, n := range controlNames {
		if n == name {
			return Control(i), true
		}
	}
	return 0, false
}

// Controls returns the full compiled control table, in code order
func Controls() []Control {
	out := make([]Control, len(controlNames))
	for i := range out {
		out[i] = Control(i)
	}
	return out
}

// binModes maps a bin factor to the control that advertises it
var binModes = map[int]Control{
	1: Bin1x1Mode,
	2: Bin2x2Mode,
	3: Bin3x3Mode,
	4: Bin4x4Mode,
}

// Bayer is the colour filter arrangement reported for the Color control
type Bayer int

const (
	// Mono is a sensor with no colour filter array
	Mono Bayer = iota
	BayerGB
	BayerGR
	BayerBG
	BayerRG
)

func (b Bayer) String() string {
	switch b {
	case BayerGB:
		return "GBRG"
	case BayerGR:
		return "GRBG"
	case BayerBG:
		return "BGGR"
	case BayerRG:
		return "RGGB"
	}
	return "mono"
}
