package imgfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/astrogo/fitsio"
	"golang.org/x/image/tiff"

	"github.com/obslab/camlab/camera"
)

// ramp makes a frame whose samples count up, 16-bit samples little endian
func ramp(w, h, bitDepth, channels int) camera.Frame {
	f := camera.Frame{Width: w, Height: h, BitDepth: bitDepth, Channels: channels}
	n := w * h * channels
	f.Pix = make([]byte, n*bitDepth/8)
	for i := 0; i < n; i++ {
		if bitDepth == 8 {
			f.Pix[i] = uint8(i * 7)
		} else {
			binary.LittleEndian.PutUint16(f.Pix[2*i:], uint16(i*997))
		}
	}
	return f
}

// sample returns channel ch of pixel (x,y) of f as a 16-bit value
func sample(f camera.Frame, x, y, ch int) uint16 {
	i := (y*f.Width+x)*f.Channels + ch
	if f.BitDepth == 8 {
		v := uint16(f.Pix[i])
		return v<<8 | v
	}
	return binary.LittleEndian.Uint16(f.Pix[2*i:])
}

func compareImage(t *testing.T, f camera.Frame, im image.Image) {
	t.Helper()
	if b := im.Bounds(); b.Dx() != f.Width || b.Dy() != f.Height {
		t.Fatalf("decoded %v, wanted %dx%d", b, f.Width, f.Height)
	}
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			c := im.At(x, y)
			if f.Channels == 1 {
				g := color.Gray16Model.Convert(c).(color.Gray16)
				if want := sample(f, x, y, 0); g.Y != want {
					t.Fatalf("pixel (%d,%d) = %d, wanted %d", x, y, g.Y, want)
				}
				continue
			}
			n := color.NRGBA64Model.Convert(c).(color.NRGBA64)
			got := [3]uint16{n.R, n.G, n.B}
			want := [3]uint16{sample(f, x, y, 0), sample(f, x, y, 1), sample(f, x, y, 2)}
			if got != want {
				t.Fatalf("pixel (%d,%d) = %v, wanted %v", x, y, got, want)
			}
		}
	}
}

var shapes = []struct {
	name              string
	bitDepth, channel int
}{
	{"mono8", 8, 1},
	{"mono16", 16, 1},
	{"rgb24", 8, 3},
	{"rgb48", 16, 3},
}

func TestWritePNGRoundTrip(t *testing.T) {
	dir := t.TempDir()
	for _, s := range shapes {
		t.Run(s.name, func(t *testing.T) {
			f := ramp(13, 7, s.bitDepth, s.channel)
			path := filepath.Join(dir, s.name+".png")
			if err := Write(path, f); err != nil {
				t.Fatal(err)
			}
			fid, err := os.Open(path)
			if err != nil {
				t.Fatal(err)
			}
			defer fid.Close()
			im, err := png.Decode(fid)
			if err != nil {
				t.Fatal(err)
			}
			compareImage(t, f, im)
		})
	}
}

func TestWriteTIFFRoundTrip(t *testing.T) {
	dir := t.TempDir()
	for _, s := range shapes {
		t.Run(s.name, func(t *testing.T) {
			f := ramp(9, 5, s.bitDepth, s.channel)
			path := filepath.Join(dir, s.name+".TIFF")
			if err := Write(path, f); err != nil {
				t.Fatal(err)
			}
			fid, err := os.Open(path)
			if err != nil {
				t.Fatal(err)
			}
			defer fid.Close()
			im, err := tiff.Decode(fid)
			if err != nil {
				t.Fatal(err)
			}
			compareImage(t, f, im)
		})
	}
}

func readFITS(t *testing.T, b []byte) fitsio.Image {
	t.Helper()
	fits, err := fitsio.Open(bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { fits.Close() })
	im, ok := fits.HDU(0).(fitsio.Image)
	if !ok {
		t.Fatalf("primary HDU is %T, not an image", fits.HDU(0))
	}
	return im
}

func TestWriteFITS16BitUsesBZERO(t *testing.T) {
	f := ramp(6, 4, 16, 1)
	var buf bytes.Buffer
	err := WriteFITS(&buf, f, fitsio.Card{Name: "EXPTIME", Value: 1.5, Comment: "exposure time, seconds"})
	if err != nil {
		t.Fatal(err)
	}
	im := readFITS(t, buf.Bytes())
	hdr := im.Header()
	if hdr.Bitpix() != 16 {
		t.Errorf("BITPIX %d, wanted 16", hdr.Bitpix())
	}
	if axes := hdr.Axes(); len(axes) != 2 || axes[0] != 6 || axes[1] != 4 {
		t.Errorf("NAXIS %v, wanted [6 4]", axes)
	}
	if c := hdr.Get("BZERO"); c == nil {
		t.Error("no BZERO card")
	}
	if c := hdr.Get("EXPTIME"); c == nil || c.Value != 1.5 {
		t.Errorf("EXPTIME card %v", c)
	}
	raw := im.Raw()
	for i := 0; i < 6*4; i++ {
		got := uint16(int16(binary.BigEndian.Uint16(raw[2*i:]))) + 32768
		want := binary.LittleEndian.Uint16(f.Pix[2*i:])
		if got != want {
			t.Fatalf("sample %d = %d, wanted %d", i, got, want)
		}
	}
}

func TestWriteFITSColourPlanes(t *testing.T) {
	f := ramp(4, 3, 8, 3)
	var buf bytes.Buffer
	if err := WriteFITS(&buf, f); err != nil {
		t.Fatal(err)
	}
	im := readFITS(t, buf.Bytes())
	if axes := im.Header().Axes(); len(axes) != 3 || axes[2] != 3 {
		t.Fatalf("NAXIS %v, wanted a 3 plane cube", axes)
	}
	raw := im.Raw()
	n := 4 * 3
	for i := 0; i < n; i++ {
		for ch := 0; ch < 3; ch++ {
			if raw[ch*n+i] != f.Pix[3*i+ch] {
				t.Fatalf("plane %d sample %d = %d, wanted %d", ch, i, raw[ch*n+i], f.Pix[3*i+ch])
			}
		}
	}
}

func TestWriteUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.jpg")
	err := Write(path, ramp(2, 2, 8, 1))
	if !errors.Is(err, camera.InvalidFileFormat) {
		t.Errorf("got %v, wanted InvalidFileFormat", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("a file was created for an unknown format")
	}
}

func TestWriteBadPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "frame.png")
	err := Write(path, ramp(2, 2, 8, 1))
	if !errors.Is(err, camera.InvalidPath) {
		t.Errorf("got %v, wanted InvalidPath", err)
	}
}

func TestWriteShortFrame(t *testing.T) {
	f := ramp(4, 4, 16, 1)
	f.Pix = f.Pix[:10]
	err := Write(filepath.Join(t.TempDir(), "frame.fits"), f)
	if !errors.Is(err, camera.InvalidSize) {
		t.Errorf("got %v, wanted InvalidSize", err)
	}
}

func TestImageRejectsOddChannels(t *testing.T) {
	f := ramp(2, 2, 8, 1)
	f.Channels = 2
	if _, err := Image(f); !errors.Is(err, camera.InvalidImageType) {
		t.Errorf("got %v, wanted InvalidImageType", err)
	}
}
