/*Package qhysdk binds libqhyccd

SDK satisfies qhy.Driver.  Result words are handed up unmapped.

*/
package qhysdk

/*
#cgo CFLAGS: -I/usr/local/include
#cgo LDFLAGS: -L/usr/local/lib -lqhyccd
#include <stdlib.h>
#include <stdbool.h>
#include <qhyccd.h>
*/
import "C"
import (
	"unsafe"

	"github.com/obslab/camlab/qhy"
)

// idLen is the size of the id and model strings libqhyccd fills in
const idLen = 64

// SDK is libqhyccd.  The zero value is ready to use.
type SDK struct{}

func handle(h qhy.Handle) *C.qhyccd_handle {
	return (*C.qhyccd_handle)(unsafe.Pointer(h))
}

func result(r C.uint32_t) qhy.Result {
	return qhy.Result(r)
}

// InitResource initializes the library
func (SDK) InitResource() qhy.Result {
	return result(C.InitQHYCCDResource())
}

// ReleaseResource releases the library
func (SDK) ReleaseResource() qhy.Result {
	return result(C.ReleaseQHYCCDResource())
}

// Scan returns the number of connected cameras
func (SDK) Scan() int {
	return int(C.ScanQHYCCD())
}

// ID returns the id string of the camera at index
func (SDK) ID(index int) (string, qhy.Result) {
	buf := (*C.char)(C.calloc(idLen, 1))
	defer C.free(unsafe.Pointer(buf))
	r := C.GetQHYCCDId(C.uint32_t(index), buf)
	return C.GoString(buf), result(r)
}

// Model returns the model of the camera with the given id
func (SDK) Model(id string) (string, qhy.Result) {
	cid := C.CString(id)
	defer C.free(unsafe.Pointer(cid))
	buf := (*C.char)(C.calloc(idLen, 1))
	defer C.free(unsafe.Pointer(buf))
	r := C.GetQHYCCDModel(cid, buf)
	return C.GoString(buf), result(r)
}

// Open opens the camera with the given id.  It returns nil on failure.
func (SDK) Open(id string) qhy.Handle {
	cid := C.CString(id)
	defer C.free(unsafe.Pointer(cid))
	return qhy.Handle(unsafe.Pointer(C.OpenQHYCCD(cid)))
}

// Close closes the camera
func (SDK) Close(h qhy.Handle) qhy.Result {
	return result(C.CloseQHYCCD(handle(h)))
}

// SetStreamMode selects single frame (0) or live (1) mode
func (SDK) SetStreamMode(h qhy.Handle, mode int) qhy.Result {
	return result(C.SetQHYCCDStreamMode(handle(h), C.uint8_t(mode)))
}

// Init initializes an open camera
func (SDK) Init(h qhy.Handle) qhy.Result {
	return result(C.InitQHYCCD(handle(h)))
}

// CancelExposingAndReadout stops any exposure and readout
func (SDK) CancelExposingAndReadout(h qhy.Handle) qhy.Result {
	return result(C.CancelQHYCCDExposingAndReadout(handle(h)))
}

// IsControlAvailable reports control support
func (SDK) IsControlAvailable(h qhy.Handle, c qhy.Control) qhy.Result {
	return result(C.IsQHYCCDControlAvailable(handle(h), C.CONTROL_ID(c)))
}

// SetParam writes a control
func (SDK) SetParam(h qhy.Handle, c qhy.Control, v float64) qhy.Result {
	return result(C.SetQHYCCDParam(handle(h), C.CONTROL_ID(c), C.double(v)))
}

// GetParam reads a control
func (SDK) GetParam(h qhy.Handle, c qhy.Control) float64 {
	return float64(C.GetQHYCCDParam(handle(h), C.CONTROL_ID(c)))
}

// SetDebayer turns the driver's debayering on or off
func (SDK) SetDebayer(h qhy.Handle, on bool) qhy.Result {
	return result(C.SetQHYCCDDebayerOnOff(handle(h), C.bool(on)))
}

// SetResolution sets the readout window
func (SDK) SetResolution(h qhy.Handle, x, y, width, height int) qhy.Result {
	return result(C.SetQHYCCDResolution(handle(h), C.uint32_t(x), C.uint32_t(y), C.uint32_t(width), C.uint32_t(height)))
}

// SetBinMode sets the binning
func (SDK) SetBinMode(h qhy.Handle, wbin, hbin int) qhy.Result {
	return result(C.SetQHYCCDBinMode(handle(h), C.uint32_t(wbin), C.uint32_t(hbin)))
}

// SetBitsMode sets the transfer bit depth
func (SDK) SetBitsMode(h qhy.Handle, bits int) qhy.Result {
	return result(C.SetQHYCCDBitsMode(handle(h), C.uint32_t(bits)))
}

// ChipInfo returns the sensor geometry
func (SDK) ChipInfo(h qhy.Handle) (qhy.ChipInfo, qhy.Result) {
	var (
		chipw, chiph, pixw, pixh C.double
		imw, imh, bpp            C.uint32_t
	)
	r := C.GetQHYCCDChipInfo(handle(h), &chipw, &chiph, &imw, &imh, &pixw, &pixh, &bpp)
	return qhy.ChipInfo{
		ChipWidth:   float64(chipw),
		ChipHeight:  float64(chiph),
		ImageWidth:  int(imw),
		ImageHeight: int(imh),
		PixelWidth:  float64(pixw),
		PixelHeight: float64(pixh),
		BPP:         int(bpp),
	}, result(r)
}

func area(f func(*C.uint32_t, *C.uint32_t, *C.uint32_t, *C.uint32_t) C.uint32_t) (qhy.Area, qhy.Result) {
	var x, y, w, h C.uint32_t
	r := f(&x, &y, &w, &h)
	return qhy.Area{StartX: int(x), StartY: int(y), SizeX: int(w), SizeY: int(h)}, result(r)
}

// EffectiveArea returns the light sensitive region
func (SDK) EffectiveArea(h qhy.Handle) (qhy.Area, qhy.Result) {
	return area(func(x, y, w, hh *C.uint32_t) C.uint32_t {
		return C.GetQHYCCDEffectiveArea(handle(h), x, y, w, hh)
	})
}

// OverscanArea returns the overscan region
func (SDK) OverscanArea(h qhy.Handle) (qhy.Area, qhy.Result) {
	return area(func(x, y, w, hh *C.uint32_t) C.uint32_t {
		return C.GetQHYCCDOverScanArea(handle(h), x, y, w, hh)
	})
}

// ControlTemp drives the cooler toward target, Celsius
func (SDK) ControlTemp(h qhy.Handle, target float64) qhy.Result {
	return result(C.ControlQHYCCDTemp(handle(h), C.double(target)))
}

// ExpSingleFrame starts a single exposure
func (SDK) ExpSingleFrame(h qhy.Handle) qhy.Result {
	return result(C.ExpQHYCCDSingleFrame(handle(h)))
}

// ExposureRemaining returns what the driver reports as left of the exposure
func (SDK) ExposureRemaining(h qhy.Handle) int {
	return int(C.GetQHYCCDExposureRemaining(handle(h)))
}

// MemLength returns the buffer size a frame needs at the current settings
func (SDK) MemLength(h qhy.Handle) int {
	return int(C.GetQHYCCDMemLength(handle(h)))
}

// SingleFrame reads the completed frame into buf
func (SDK) SingleFrame(h qhy.Handle, buf []byte) (int, int, int, int, qhy.Result) {
	if len(buf) == 0 {
		return 0, 0, 0, 0, qhy.Failure
	}
	var w, hh, bpp, ch C.uint32_t
	r := C.GetQHYCCDSingleFrame(handle(h), &w, &hh, &bpp, &ch, (*C.uint8_t)(unsafe.Pointer(&buf[0])))
	return int(w), int(hh), int(bpp), int(ch), result(r)
}

var _ qhy.Driver = SDK{}
