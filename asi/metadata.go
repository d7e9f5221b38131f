package asi

import (
	"time"

	"github.com/astrogo/fitsio"

	"github.com/obslab/camlab/util"
)

// CollectHeaderMetadata describes the camera state as FITS cards.  Values
// that cannot be read are omitted and the first failure is noted in METAERR.
func (c *Camera) CollectHeaderMetadata() []fitsio.Card {
	var metaerr string
	note := func(err error) {
		if err != nil && metaerr == "" {
			metaerr = err.Error()
		}
	}
	cards := []fitsio.Card{
		{Name: "CAMMODL", Value: c.info.Name, Comment: "camera model"},
		{Name: "CAMID", Value: c.id, Comment: "driver camera id"},
		{Name: "SDKVER", Value: c.drv.SDKVersion(), Comment: "ASICamera2 SDK version"},
		{Name: "BITDEPTH", Value: c.info.BitDepth, Comment: "ADC bit depth"},
		{Name: "PIXSIZE", Value: c.info.PixelSize, Comment: "pixel pitch, um"},
		{Name: "EGAIN", Value: c.info.ElecPerADU, Comment: "e-/ADU at lowest gain"},
		{Name: "BINS", Value: util.IntSliceToCSV(c.info.SupportedBins), Comment: "supported bin factors"},
		{Name: "DATE", Value: time.Now().UTC().Format(time.RFC3339)},
	}
	texp, err := c.ExposureTime()
	note(err)
	if err == nil {
		cards = append(cards, fitsio.Card{Name: "EXPTIME", Value: texp.Seconds(), Comment: "exposure time, seconds"})
	}
	for _, k := range []struct {
		ct      ControlType
		name    string
		comment string
	}{
		{Gain, "GAIN", "gain setting"},
		{Offset, "OFFSET", "offset setting"},
		{TargetTemp, "TEMPSETP", "temperature setpoint (Celsius)"},
		{CoolerOn, "COOLER", "cooler on (1) or off"},
	} {
		if _, ok := c.controls[k.ct]; !ok {
			continue
		}
		v, err := c.GetControlValue(k.ct)
		note(err)
		if err == nil {
			cards = append(cards, fitsio.Card{Name: k.name, Value: int(v), Comment: k.comment})
		}
	}
	if _, ok := c.controls[Temperature]; ok {
		t, err := c.Temperature()
		note(err)
		if err == nil {
			cards = append(cards, fitsio.Card{Name: "TEMPER", Value: t, Comment: "sensor temperature (Celsius)"})
		}
	}
	cards = append(cards,
		fitsio.Card{Name: "AOIW", Value: c.roi.Width, Comment: "AOI width, px"},
		fitsio.Card{Name: "AOIH", Value: c.roi.Height, Comment: "AOI height, px"},
		fitsio.Card{Name: "AOIB", Value: c.roi.HxV(), Comment: "AOI Binning, HxV"},
		fitsio.Card{Name: "IMGTYPE", Value: c.imgType.String(), Comment: "readout format"},
		fitsio.Card{Name: "METAERR", Value: metaerr, Comment: "error encountered gathering metadata"})
	return cards
}
