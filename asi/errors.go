package asi

import (
	"fmt"

	"github.com/obslab/camlab/camera"
)

// ErrCodes maps ASICamera2 result codes to their names
var ErrCodes = map[ErrorCode]string{
	Success:               "ASI_SUCCESS",
	ErrInvalidIndex:       "ASI_ERROR_INVALID_INDEX",
	ErrInvalidID:          "ASI_ERROR_INVALID_ID",
	ErrInvalidControlType: "ASI_ERROR_INVALID_CONTROL_TYPE",
	ErrCameraClosed:       "ASI_ERROR_CAMERA_CLOSED",
	ErrCameraRemoved:      "ASI_ERROR_CAMERA_REMOVED",
	ErrInvalidPath:        "ASI_ERROR_INVALID_PATH",
	ErrInvalidFileFormat:  "ASI_ERROR_INVALID_FILEFORMAT",
	ErrInvalidSize:        "ASI_ERROR_INVALID_SIZE",
	ErrInvalidImgType:     "ASI_ERROR_INVALID_IMGTYPE",
	ErrOutOfBoundary:      "ASI_ERROR_OUTOF_BOUNDARY",
	ErrTimeout:            "ASI_ERROR_TIMEOUT",
	ErrInvalidSequence:    "ASI_ERROR_INVALID_SEQUENCE",
	ErrBufferTooSmall:     "ASI_ERROR_BUFFER_TOO_SMALL",
	ErrVideoModeActive:    "ASI_ERROR_VIDEO_MODE_ACTIVE",
	ErrExposureInProgress: "ASI_ERROR_EXPOSURE_IN_PROGRESS",
	ErrGeneralError:       "ASI_ERROR_GENERAL_ERROR",
	ErrInvalidMode:        "ASI_ERROR_INVALID_MODE",
}

var kinds = map[ErrorCode]camera.Kind{
	ErrInvalidIndex:       camera.InvalidIndex,
	ErrInvalidID:          camera.InvalidID,
	ErrInvalidControlType: camera.InvalidControl,
	ErrCameraClosed:       camera.DeviceClosed,
	ErrCameraRemoved:      camera.DeviceRemoved,
	ErrInvalidPath:        camera.InvalidPath,
	ErrInvalidFileFormat:  camera.InvalidFileFormat,
	ErrInvalidSize:        camera.InvalidSize,
	ErrInvalidImgType:     camera.InvalidImageType,
	ErrOutOfBoundary:      camera.OutOfBoundary,
	ErrTimeout:            camera.Timeout,
	ErrInvalidSequence:    camera.InvalidSequence,
	ErrBufferTooSmall:     camera.BufferTooSmall,
	ErrVideoModeActive:    camera.ModeConflict,
	ErrExposureInProgress: camera.ExposureInProgress,
	ErrGeneralError:       camera.GeneralError,
	ErrInvalidMode:        camera.InvalidMode,
}

func (e ErrorCode) String() string {
	if s, ok := ErrCodes[e]; ok {
		return s
	}
	return fmt.Sprintf("ErrorCode(%d)", int(e))
}

// Error converts a result code from the call op into an error.  It returns
// nil on success.  A code outside the documented set means the driver broke
// its contract and panics.
func Error(op string, code ErrorCode) error {
	if code == Success {
		return nil
	}
	k, ok := kinds[code]
	if !ok {
		panic(fmt.Sprintf("asi: %s returned undocumented result code %d", op, int(code)))
	}
	return &camera.DriverError{Backend: "asi", Op: op, Code: int64(code), Name: ErrCodes[code], Kind: k}
}
