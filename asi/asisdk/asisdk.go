/*Package asisdk binds the ZWO ASICamera2 shared library

SDK satisfies asi.Driver.  It is a thin translation of Go types to C and
back; result codes are handed up untouched for the asi package to map.

*/
package asisdk

/*
#cgo CFLAGS: -I/usr/local/include
#cgo LDFLAGS: -L/usr/local/lib -lASICamera2
#include <stdlib.h>
#include <ASICamera2.h>
*/
import "C"
import (
	"unsafe"

	"github.com/obslab/camlab/asi"
)

// SDK is the ASICamera2 library.  The zero value is ready to use.
type SDK struct{}

func code(c C.ASI_ERROR_CODE) asi.ErrorCode {
	return asi.ErrorCode(c)
}

func asiBool(b bool) C.ASI_BOOL {
	if b {
		return C.ASI_TRUE
	}
	return C.ASI_FALSE
}

// NumConnected returns the number of connected cameras
func (SDK) NumConnected() int {
	return int(C.ASIGetNumOfConnectedCameras())
}

// CameraProperty returns the property block of the camera at index
func (SDK) CameraProperty(index int) (asi.Info, asi.ErrorCode) {
	var ci C.ASI_CAMERA_INFO
	ret := C.ASIGetCameraProperty(&ci, C.int(index))
	if ret != C.ASI_SUCCESS {
		return asi.Info{}, code(ret)
	}
	info := asi.Info{
		Name:         C.GoString(&ci.Name[0]),
		CameraID:     int(ci.CameraID),
		MaxWidth:     int(ci.MaxWidth),
		MaxHeight:    int(ci.MaxHeight),
		IsColor:      ci.IsColorCam == C.ASI_TRUE,
		BayerPattern: asi.BayerPattern(ci.BayerPattern),
		PixelSize:    float64(ci.PixelSize),
		IsCooler:     ci.IsCoolerCam == C.ASI_TRUE,
		IsUSB3:       ci.IsUSB3Camera == C.ASI_TRUE,
		ElecPerADU:   float64(ci.ElecPerADU),
		BitDepth:     int(ci.BitDepth),
	}
	// both lists are terminated, by 0 and ASI_IMG_END respectively
	for i := 0; i < len(ci.SupportedBins) && ci.SupportedBins[i] != 0; i++ {
		info.SupportedBins = append(info.SupportedBins, int(ci.SupportedBins[i]))
	}
	for i := 0; i < len(ci.SupportedVideoFormat) && ci.SupportedVideoFormat[i] != C.ASI_IMG_END; i++ {
		info.SupportedFormats = append(info.SupportedFormats, asi.ImageType(ci.SupportedVideoFormat[i]))
	}
	return info, asi.Success
}

// Open opens the camera with the given id
func (SDK) Open(id int) asi.ErrorCode {
	return code(C.ASIOpenCamera(C.int(id)))
}

// Init initializes an open camera
func (SDK) Init(id int) asi.ErrorCode {
	return code(C.ASIInitCamera(C.int(id)))
}

// Close closes the camera
func (SDK) Close(id int) asi.ErrorCode {
	return code(C.ASICloseCamera(C.int(id)))
}

// NumControls returns the number of controls the camera has
func (SDK) NumControls(id int) (int, asi.ErrorCode) {
	var n C.int
	ret := C.ASIGetNumOfControls(C.int(id), &n)
	return int(n), code(ret)
}

// ControlCaps describes the index-th control of the camera
func (SDK) ControlCaps(id, index int) (asi.ControlCaps, asi.ErrorCode) {
	var cc C.ASI_CONTROL_CAPS
	ret := C.ASIGetControlCaps(C.int(id), C.int(index), &cc)
	if ret != C.ASI_SUCCESS {
		return asi.ControlCaps{}, code(ret)
	}
	return asi.ControlCaps{
		Name:            C.GoString(&cc.Name[0]),
		Description:     C.GoString(&cc.Description[0]),
		Max:             int64(cc.MaxValue),
		Min:             int64(cc.MinValue),
		Default:         int64(cc.DefaultValue),
		IsAutoSupported: cc.IsAutoSupported == C.ASI_TRUE,
		IsWritable:      cc.IsWritable == C.ASI_TRUE,
		ControlType:     asi.ControlType(cc.ControlType),
	}, asi.Success
}

// GetControlValue reads a control
func (SDK) GetControlValue(id int, c asi.ControlType) (int64, bool, asi.ErrorCode) {
	var (
		v    C.long
		auto C.ASI_BOOL
	)
	ret := C.ASIGetControlValue(C.int(id), C.ASI_CONTROL_TYPE(c), &v, &auto)
	return int64(v), auto == C.ASI_TRUE, code(ret)
}

// SetControlValue writes a control
func (SDK) SetControlValue(id int, c asi.ControlType, value int64, auto bool) asi.ErrorCode {
	return code(C.ASISetControlValue(C.int(id), C.ASI_CONTROL_TYPE(c), C.long(value), asiBool(auto)))
}

// SetROIFormat sets the ROI size, binning, and image type
func (SDK) SetROIFormat(id, width, height, bin int, t asi.ImageType) asi.ErrorCode {
	return code(C.ASISetROIFormat(C.int(id), C.int(width), C.int(height), C.int(bin), C.ASI_IMG_TYPE(t)))
}

// StartExposure starts a single exposure
func (SDK) StartExposure(id int, dark bool) asi.ErrorCode {
	return code(C.ASIStartExposure(C.int(id), asiBool(dark)))
}

// StopExposure aborts the exposure
func (SDK) StopExposure(id int) asi.ErrorCode {
	return code(C.ASIStopExposure(C.int(id)))
}

// ExpStatus returns the exposure status
func (SDK) ExpStatus(id int) (asi.ExposureStatus, asi.ErrorCode) {
	var st C.ASI_EXPOSURE_STATUS
	ret := C.ASIGetExpStatus(C.int(id), &st)
	return asi.ExposureStatus(st), code(ret)
}

// DataAfterExp copies the completed frame into buf
func (SDK) DataAfterExp(id int, buf []byte) asi.ErrorCode {
	if len(buf) == 0 {
		return asi.ErrBufferTooSmall
	}
	ptr := (*C.uchar)(unsafe.Pointer(&buf[0]))
	return code(C.ASIGetDataAfterExp(C.int(id), ptr, C.long(len(buf))))
}

// SDKVersion returns the library version string
func (SDK) SDKVersion() string {
	return C.GoString(C.ASIGetSDKVersion())
}

var _ asi.Driver = SDK{}
