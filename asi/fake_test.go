package asi

// fakeDriver is an in-memory ASICamera2 with one or more cameras
type fakeDriver struct {
	cams     []Info
	caps     []ControlCaps
	values   map[ControlType]int64
	open     map[int]bool
	roi      [4]int
	imgType  ImageType
	exposing bool

	// statuses are returned in order by ExpStatus; the last one repeats
	statuses []ExposureStatus

	// fill is written to every byte of a frame on readout
	fill byte

	// capsID records the id each ControlCaps call was made with
	capsID []int

	setCalls   int
	stopCalls  int
	startCode  ErrorCode
	readCode   ErrorCode
	initCode   ErrorCode
	closeCalls int
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		cams: []Info{{
			Name:          "ZWO ASI294MC Pro",
			CameraID:      3,
			MaxWidth:      4144,
			MaxHeight:     2822,
			IsColor:       true,
			SupportedBins: []int{1, 2, 3, 4},
			PixelSize:     4.63,
			BitDepth:      14,
		}},
		caps: []ControlCaps{
			{Name: "Gain", ControlType: Gain, Min: 0, Max: 570, Default: 200, IsWritable: true, IsAutoSupported: true},
			{Name: "Exposure", ControlType: Exposure, Min: 32, Max: 2000000000, Default: 10000, IsWritable: true, IsAutoSupported: true},
			{Name: "Offset", ControlType: Offset, Min: 0, Max: 80, Default: 8, IsWritable: true},
			{Name: "Temperature", ControlType: Temperature, Min: -500, Max: 1000, IsWritable: false},
			{Name: "HardwareBin", ControlType: HardwareBin, Min: 0, Max: 1, IsWritable: true},
			{Name: "TargetTemp", ControlType: TargetTemp, Min: -40, Max: 30, IsWritable: true},
		},
		values:   map[ControlType]int64{Gain: 200, Exposure: 10000, Temperature: 215},
		open:     map[int]bool{},
		statuses: []ExposureStatus{ExpSuccess},
		fill:     0x7F,
	}
}

func (f *fakeDriver) NumConnected() int { return len(f.cams) }

func (f *fakeDriver) CameraProperty(index int) (Info, ErrorCode) {
	if index < 0 || index >= len(f.cams) {
		return Info{}, ErrInvalidIndex
	}
	return f.cams[index], Success
}

func (f *fakeDriver) known(id int) bool {
	for _, c := range f.cams {
		if c.CameraID == id {
			return true
		}
	}
	return false
}

func (f *fakeDriver) Open(id int) ErrorCode {
	if !f.known(id) {
		return ErrInvalidID
	}
	f.open[id] = true
	return Success
}

func (f *fakeDriver) Init(id int) ErrorCode {
	if !f.open[id] {
		return ErrCameraClosed
	}
	return f.initCode
}

func (f *fakeDriver) Close(id int) ErrorCode {
	f.closeCalls++
	if !f.open[id] {
		return ErrCameraClosed
	}
	f.open[id] = false
	return Success
}

func (f *fakeDriver) NumControls(id int) (int, ErrorCode) {
	if !f.open[id] {
		return 0, ErrCameraClosed
	}
	return len(f.caps), Success
}

func (f *fakeDriver) ControlCaps(id, index int) (ControlCaps, ErrorCode) {
	f.capsID = append(f.capsID, id)
	if !f.known(id) {
		return ControlCaps{}, ErrInvalidID
	}
	if index < 0 || index >= len(f.caps) {
		return ControlCaps{}, ErrInvalidIndex
	}
	return f.caps[index], Success
}

func (f *fakeDriver) GetControlValue(id int, c ControlType) (int64, bool, ErrorCode) {
	if !f.open[id] {
		return 0, false, ErrCameraClosed
	}
	return f.values[c], false, Success
}

func (f *fakeDriver) SetControlValue(id int, c ControlType, value int64, auto bool) ErrorCode {
	f.setCalls++
	if !f.open[id] {
		return ErrCameraClosed
	}
	f.values[c] = value
	return Success
}

func (f *fakeDriver) SetROIFormat(id, width, height, bin int, t ImageType) ErrorCode {
	if !f.open[id] {
		return ErrCameraClosed
	}
	if width > f.cams[0].MaxWidth || height > f.cams[0].MaxHeight {
		return ErrInvalidSize
	}
	f.roi = [4]int{width, height, bin, int(t)}
	f.imgType = t
	return Success
}

func (f *fakeDriver) StartExposure(id int, dark bool) ErrorCode {
	if f.startCode != Success {
		return f.startCode
	}
	if f.exposing {
		return ErrExposureInProgress
	}
	f.exposing = true
	return Success
}

func (f *fakeDriver) StopExposure(id int) ErrorCode {
	f.stopCalls++
	f.exposing = false
	return Success
}

func (f *fakeDriver) ExpStatus(id int) (ExposureStatus, ErrorCode) {
	st := f.statuses[0]
	if len(f.statuses) > 1 {
		f.statuses = f.statuses[1:]
	}
	if st == ExpFailed || st == ExpIdle {
		f.exposing = false
	}
	return st, Success
}

func (f *fakeDriver) DataAfterExp(id int, buf []byte) ErrorCode {
	if f.readCode != Success {
		return f.readCode
	}
	for i := range buf {
		buf[i] = f.fill
	}
	f.exposing = false
	return Success
}

func (f *fakeDriver) SDKVersion() string { return "1, 31, 0, 0" }
