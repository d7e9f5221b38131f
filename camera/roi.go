package camera

import "fmt"

// Alignment is the multiple that ROI width and height are rounded down to
const Alignment = 8

// PixelFormat is the layout of one pixel in the readout buffer
type PixelFormat struct {
	// Channels is the number of samples per pixel
	Channels int `json:"channels"`

	// BitDepth is the number of bits per sample, 8 or 16
	BitDepth int `json:"bitDepth"`
}

// BytesPerPixel is Channels times the bytes needed for one sample
func (p PixelFormat) BytesPerPixel() int {
	return p.Channels * ((p.BitDepth + 7) / 8)
}

func (p PixelFormat) String() string {
	return fmt.Sprintf("%dx%dbit", p.Channels, p.BitDepth)
}

var (
	// Mono8 is one 8-bit channel
	Mono8 = PixelFormat{Channels: 1, BitDepth: 8}

	// Mono16 is one 16-bit channel
	Mono16 = PixelFormat{Channels: 1, BitDepth: 16}

	// RGB24 is three interleaved 8-bit channels
	RGB24 = PixelFormat{Channels: 3, BitDepth: 8}

	// RGB48 is three interleaved 16-bit channels
	RGB48 = PixelFormat{Channels: 3, BitDepth: 16}
)

// ROI is a region of interest anchored at the sensor origin
type ROI struct {
	// Width is the width in pixels
	Width int `json:"width"`

	// Height is the height in pixels
	Height int `json:"height"`

	// Bin is the binning factor, the same in both axes
	Bin int `json:"bin"`

	// Format is the pixel layout of the readout
	Format PixelFormat `json:"format"`
}

// Bytes is the number of bytes one frame of this ROI occupies
func (r ROI) Bytes() int {
	return r.Width * r.Height * r.Format.BytesPerPixel()
}

// HxV formats the binning as "BxB"
func (r ROI) HxV() string {
	return fmt.Sprintf("%dx%d", r.Bin, r.Bin)
}

// AlignDown rounds v down to a multiple of n
func AlignDown(v, n int) int {
	if n <= 0 {
		return v
	}
	return v - v%n
}

// Aligned returns a copy of r with its dimensions rounded down to Alignment.
// It fails with InvalidSize if either dimension rounds to zero.
func (r ROI) Aligned() (ROI, error) {
	r.Width = AlignDown(r.Width, Alignment)
	r.Height = AlignDown(r.Height, Alignment)
	if r.Width <= 0 || r.Height <= 0 {
		return r, Errorf(InvalidSize, "ROI %dx%d is smaller than %d pixels", r.Width, r.Height, Alignment)
	}
	return r, nil
}
