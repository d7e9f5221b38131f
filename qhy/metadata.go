package qhy

import (
	"time"

	"github.com/astrogo/fitsio"
)

// CollectHeaderMetadata describes the camera state as FITS cards
func (c *Camera) CollectHeaderMetadata() []fitsio.Card {
	var metaerr string
	cards := []fitsio.Card{
		{Name: "CAMMODL", Value: c.model, Comment: "camera model"},
		{Name: "CAMID", Value: c.id, Comment: "driver camera id"},
		{Name: "BAYER", Value: c.bayer.String(), Comment: "colour filter pattern"},
		{Name: "BITDEPTH", Value: c.chip.BPP, Comment: "native bit depth"},
		{Name: "PIXSIZE", Value: c.chip.PixelWidth, Comment: "pixel pitch, um"},
		{Name: "DATE", Value: time.Now().UTC().Format(time.RFC3339)},
	}
	params := []struct {
		ctl     Control
		name    string
		comment string
	}{
		{Gain, "GAIN", "gain setting"},
		{Offset, "OFFSET", "offset setting"},
		{USBTraffic, "USBTRAFF", "USB traffic setting"},
		{CurTemp, "TEMPER", "sensor temperature (Celsius)"},
	}
	texp, err := c.ExposureTime()
	if err == nil {
		cards = append(cards, fitsio.Card{Name: "EXPTIME", Value: texp.Seconds(), Comment: "exposure time, seconds"})
	} else {
		metaerr = err.Error()
	}
	for _, p := range params {
		if !c.Available(p.ctl) {
			continue
		}
		v, err := c.GetParam(p.ctl)
		if err != nil {
			if metaerr == "" {
				metaerr = err.Error()
			}
			continue
		}
		cards = append(cards, fitsio.Card{Name: p.name, Value: v, Comment: p.comment})
	}
	if a, err := c.EffectiveArea(); err == nil {
		cards = append(cards,
			fitsio.Card{Name: "EFFX", Value: a.StartX, Comment: "effective area start x, px"},
			fitsio.Card{Name: "EFFY", Value: a.StartY, Comment: "effective area start y, px"},
			fitsio.Card{Name: "EFFW", Value: a.SizeX, Comment: "effective area width, px"},
			fitsio.Card{Name: "EFFH", Value: a.SizeY, Comment: "effective area height, px"})
	}
	cards = append(cards,
		fitsio.Card{Name: "AOIW", Value: c.roi.Width, Comment: "AOI width, px"},
		fitsio.Card{Name: "AOIH", Value: c.roi.Height, Comment: "AOI height, px"},
		fitsio.Card{Name: "AOIB", Value: c.roi.HxV(), Comment: "AOI Binning, HxV"},
		fitsio.Card{Name: "METAERR", Value: metaerr, Comment: "error encountered gathering metadata"})
	return cards
}
