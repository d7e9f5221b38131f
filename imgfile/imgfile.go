// Package imgfile writes camera frames to disk as PNG, TIFF, or FITS
package imgfile

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/astrogo/fitsio"
	"golang.org/x/image/tiff"

	"github.com/obslab/camlab/camera"
)

// Extensions lists the file extensions Write understands
var Extensions = []string{".png", ".tif", ".tiff", ".fits", ".fit"}

func check(f camera.Frame) error {
	if f.Channels != 1 && f.Channels != 3 {
		return camera.Errorf(camera.InvalidImageType, "imgfile: %d channel frames are not supported", f.Channels)
	}
	if f.BitDepth != 8 && f.BitDepth != 16 {
		return camera.Errorf(camera.InvalidImageType, "imgfile: %d bit samples are not supported", f.BitDepth)
	}
	if f.Width <= 0 || f.Height <= 0 {
		return camera.Errorf(camera.InvalidSize, "imgfile: %dx%d frame", f.Width, f.Height)
	}
	if len(f.Pix) < f.Bytes() {
		return camera.Errorf(camera.InvalidSize, "imgfile: %dx%d frame needs %d bytes, has %d", f.Width, f.Height, f.Bytes(), len(f.Pix))
	}
	return nil
}

// Image converts a frame to an image.Image.  16-bit samples are decoded from
// little endian.  Channels keep the order the driver delivered them in.
func Image(f camera.Frame) (image.Image, error) {
	if err := check(f); err != nil {
		return nil, err
	}
	rect := image.Rect(0, 0, f.Width, f.Height)
	n := f.Width * f.Height
	switch {
	case f.Channels == 1 && f.BitDepth == 8:
		im := image.NewGray(rect)
		copy(im.Pix, f.Pix[:n])
		return im, nil
	case f.Channels == 1 && f.BitDepth == 16:
		im := image.NewGray16(rect)
		for i := 0; i < n; i++ {
			v := binary.LittleEndian.Uint16(f.Pix[2*i:])
			im.Pix[2*i] = uint8(v >> 8)
			im.Pix[2*i+1] = uint8(v)
		}
		return im, nil
	case f.Channels == 3 && f.BitDepth == 8:
		im := image.NewNRGBA(rect)
		for i := 0; i < n; i++ {
			im.Pix[4*i] = f.Pix[3*i]
			im.Pix[4*i+1] = f.Pix[3*i+1]
			im.Pix[4*i+2] = f.Pix[3*i+2]
			im.Pix[4*i+3] = 0xFF
		}
		return im, nil
	}
	im := image.NewNRGBA64(rect)
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			o := 6 * (y*f.Width + x)
			im.SetNRGBA64(x, y, color.NRGBA64{
				R: binary.LittleEndian.Uint16(f.Pix[o:]),
				G: binary.LittleEndian.Uint16(f.Pix[o+2:]),
				B: binary.LittleEndian.Uint16(f.Pix[o+4:]),
				A: 0xFFFF})
		}
	}
	return im, nil
}

// Write encodes f to path, choosing the format from the extension.  cards
// are added to the header of FITS files and ignored otherwise.
func Write(path string, f camera.Frame, cards ...fitsio.Card) error {
	ext := strings.ToLower(filepath.Ext(path))
	var enc func(io.Writer) error
	switch ext {
	case ".png":
		enc = func(w io.Writer) error { return encodePNG(w, f) }
	case ".tif", ".tiff":
		enc = func(w io.Writer) error { return encodeTIFF(w, f) }
	case ".fits", ".fit":
		enc = func(w io.Writer) error { return WriteFITS(w, f, cards...) }
	default:
		return camera.Errorf(camera.InvalidFileFormat, "imgfile: no encoder for %q", ext)
	}
	if err := check(f); err != nil {
		return err
	}
	fid, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("imgfile: %w: %w", camera.InvalidPath, err)
	}
	bw := bufio.NewWriter(fid)
	err = enc(bw)
	if err == nil {
		err = bw.Flush()
	}
	cerr := fid.Close()
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("imgfile: encoding %s: %w: %w", path, camera.InvalidFileFormat, err)
	}
	if cerr != nil {
		return fmt.Errorf("imgfile: %w: %w", camera.InvalidPath, cerr)
	}
	return nil
}

func encodePNG(w io.Writer, f camera.Frame) error {
	im, err := Image(f)
	if err != nil {
		return err
	}
	return png.Encode(w, im)
}

func encodeTIFF(w io.Writer, f camera.Frame) error {
	im, err := Image(f)
	if err != nil {
		return err
	}
	return tiff.Encode(w, im, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
}

// WriteFITS streams f to w as a FITS primary image.  Colour frames become a
// cube with one plane per channel.  16-bit data is stored as int16 with
// BZERO 32768, the FITS convention for unsigned shorts.
func WriteFITS(w io.Writer, f camera.Frame, cards ...fitsio.Card) error {
	if err := check(f); err != nil {
		return err
	}
	fits, err := fitsio.Create(w)
	if err != nil {
		return err
	}
	defer fits.Close()
	dims := []int{f.Width, f.Height}
	if f.Channels > 1 {
		dims = append(dims, f.Channels)
	}
	im := fitsio.NewImage(f.BitDepth, dims)
	defer im.Close()
	if f.BitDepth == 16 {
		cards = append([]fitsio.Card{
			{Name: "BZERO", Value: 32768, Comment: "offset data range to that of uint16"},
			{Name: "BSCALE", Value: 1, Comment: "default scaling factor"}}, cards...)
	}
	if err = im.Header().Append(cards...); err != nil {
		return err
	}

	n := f.Width * f.Height
	if f.BitDepth == 8 {
		planes := make([]byte, n*f.Channels)
		for i := 0; i < n; i++ {
			for ch := 0; ch < f.Channels; ch++ {
				planes[ch*n+i] = f.Pix[i*f.Channels+ch]
			}
		}
		err = im.Write(planes)
	} else {
		planes := make([]int16, n*f.Channels)
		for i := 0; i < n; i++ {
			for ch := 0; ch < f.Channels; ch++ {
				v := binary.LittleEndian.Uint16(f.Pix[2*(i*f.Channels+ch):])
				planes[ch*n+i] = int16(v - 32768)
			}
		}
		err = im.Write(planes)
	}
	if err != nil {
		return err
	}
	return fits.Write(im)
}
