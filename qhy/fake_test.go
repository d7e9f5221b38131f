package qhy

import "unsafe"

// fakeDriver is an in-memory libqhyccd with a single camera
type fakeDriver struct {
	ids       []string
	inits     int
	releases  int
	openNil   bool
	handle    Handle
	open      bool
	streamSet int
	cancels   int

	// avail lists supported controls; Color maps to bayer
	avail map[Control]bool
	bayer Result

	params  map[Control]float64
	debayer bool
	res     [4]int
	bin     int
	bits    int
	chip    ChipInfo
	target  float64

	expResult Result
	exposing  bool
	fill      byte

	// reportW etc override the geometry SingleFrame reports
	reportW, reportH int

	// memLength, if set, rewrites what MemLength reports
	memLength func(n int) int

	// handed records the length of every buffer given to SingleFrame;
	// overrun is set if a frame would not have fit
	handed  []int
	overrun bool
}

func newFakeDriver() *fakeDriver {
	x := 1
	return &fakeDriver{
		ids:    []string{"QHY367C-1a2b3c"},
		handle: Handle(unsafe.Pointer(&x)),
		avail: map[Control]bool{
			WBR: true, WBG: true, WBB: true,
			Gain: true, Offset: true, Exposure: true, TransferBit: true,
			USBTraffic: true, CurTemp: true, Cooler: true,
			Bin1x1Mode: true, Bin2x2Mode: true,
		},
		bayer:  Result(4),
		params: map[Control]float64{Exposure: 1000, CurTemp: -5.2, Gain: 10},
		chip: ChipInfo{
			ChipWidth: 36, ChipHeight: 24,
			ImageWidth: 736, ImageHeight: 493,
			PixelWidth: 4.88, PixelHeight: 4.88,
			BPP: 14,
		},
		bits: 16,
		fill: 0x42,
	}
}

func (f *fakeDriver) InitResource() Result    { f.inits++; return Success }
func (f *fakeDriver) ReleaseResource() Result { f.releases++; return Success }
func (f *fakeDriver) Scan() int               { return len(f.ids) }

func (f *fakeDriver) ID(index int) (string, Result) {
	if index < 0 || index >= len(f.ids) {
		return "", Failure
	}
	return f.ids[index], Success
}

func (f *fakeDriver) Model(id string) (string, Result) { return "QHY367C", Success }

func (f *fakeDriver) Open(id string) Handle {
	if f.openNil {
		return nil
	}
	f.open = true
	return f.handle
}

func (f *fakeDriver) Close(h Handle) Result {
	if !f.open {
		return Failure
	}
	f.open = false
	return Success
}

func (f *fakeDriver) SetStreamMode(h Handle, mode int) Result { f.streamSet++; return Success }
func (f *fakeDriver) Init(h Handle) Result                    { return Success }

func (f *fakeDriver) CancelExposingAndReadout(h Handle) Result {
	f.cancels++
	f.exposing = false
	return Success
}

func (f *fakeDriver) IsControlAvailable(h Handle, c Control) Result {
	if c == Color {
		return f.bayer
	}
	if f.avail[c] {
		return Success
	}
	return Failure
}

func (f *fakeDriver) SetParam(h Handle, c Control, v float64) Result {
	f.params[c] = v
	return Success
}

func (f *fakeDriver) GetParam(h Handle, c Control) float64 {
	v, ok := f.params[c]
	if !ok {
		return paramError
	}
	return v
}

func (f *fakeDriver) SetDebayer(h Handle, on bool) Result { f.debayer = on; return Success }

func (f *fakeDriver) SetResolution(h Handle, x, y, width, height int) Result {
	if width > f.chip.ImageWidth || height > f.chip.ImageHeight {
		return Failure
	}
	f.res = [4]int{x, y, width, height}
	return Success
}

func (f *fakeDriver) SetBinMode(h Handle, wbin, hbin int) Result { f.bin = wbin; return Success }
func (f *fakeDriver) SetBitsMode(h Handle, bits int) Result      { f.bits = bits; return Success }
func (f *fakeDriver) ChipInfo(h Handle) (ChipInfo, Result)        { return f.chip, Success }

func (f *fakeDriver) EffectiveArea(h Handle) (Area, Result) {
	return Area{StartX: 12, StartY: 8, SizeX: 720, SizeY: 480}, Success
}

func (f *fakeDriver) OverscanArea(h Handle) (Area, Result) {
	return Area{StartX: 0, StartY: 0, SizeX: 12, SizeY: 493}, Success
}

func (f *fakeDriver) ControlTemp(h Handle, target float64) Result {
	f.target = target
	return Success
}

func (f *fakeDriver) ExpSingleFrame(h Handle) Result {
	if f.expResult == Failure {
		return Failure
	}
	f.exposing = true
	return f.expResult
}

func (f *fakeDriver) ExposureRemaining(h Handle) int { return 0 }

func (f *fakeDriver) channels() int {
	if f.debayer {
		return 3
	}
	return 1
}

func (f *fakeDriver) MemLength(h Handle) int {
	n := f.res[2] * f.res[3] * f.channels() * (f.bits / 8)
	if f.memLength != nil {
		return f.memLength(n)
	}
	return n
}

func (f *fakeDriver) SingleFrame(h Handle, buf []byte) (int, int, int, int, Result) {
	w, hgt := f.res[2], f.res[3]
	if f.reportW != 0 {
		w, hgt = f.reportW, f.reportH
	}
	n := w * hgt * f.channels() * (f.bits / 8)
	f.handed = append(f.handed, len(buf))
	if n > len(buf) {
		// libqhyccd would write past the end here
		f.overrun = true
	} else {
		for i := 0; i < n; i++ {
			buf[i] = f.fill
		}
	}
	f.exposing = false
	return w, hgt, f.bits, f.channels(), Success
}
