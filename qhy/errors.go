package qhy

import (
	"fmt"

	"github.com/obslab/camlab/camera"
)

// ErrCodes maps libqhyccd result codes to their names
var ErrCodes = map[Result]string{
	Success:      "QHYCCD_SUCCESS",
	Delay200ms:   "QHYCCD_DELAY_200MS",
	ReadDirectly: "QHYCCD_READ_DIRECTLY",
	Failure:      "QHYCCD_ERROR",
}

func (r Result) String() string {
	if s, ok := ErrCodes[r]; ok {
		return s
	}
	return fmt.Sprintf("Result(%#x)", uint32(r))
}

// Error converts the result of op into an error.  Success is nil and
// Failure is a GeneralError, the SDK gives no finer detail.  The two
// informational codes are only legal where Capture expects them, so here
// they panic along with any undocumented value.
func Error(op string, r Result) error {
	switch r {
	case Success:
		return nil
	case Failure:
		return &camera.DriverError{Backend: "qhy", Op: op, Code: int64(r), Name: ErrCodes[r], Kind: camera.GeneralError}
	}
	panic(fmt.Sprintf("qhy: %s returned unexpected result %s", op, r))
}
