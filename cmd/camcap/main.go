package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/theckman/yacspin"

	"github.com/obslab/camlab/asi"
	"github.com/obslab/camlab/asi/asisdk"
	"github.com/obslab/camlab/camera"
	"github.com/obslab/camlab/fxload"
	"github.com/obslab/camlab/imgrec"
	"github.com/obslab/camlab/metrics"
	"github.com/obslab/camlab/qhy"
	"github.com/obslab/camlab/qhy/qhysdk"

	yml "gopkg.in/yaml.v2"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "camcap.yml"

	// EnvPrefix marks environment variables that override the config file
	EnvPrefix = "CAMCAP_"
	k         = koanf.New(".")
)

type recorder struct {
	// Root is the root folder to write to
	Root string `yaml:"root" koanf:"root"`

	// Prefix is the filename prefix to use
	Prefix string `yaml:"prefix" koanf:"prefix"`

	// Ext is the file extension, which picks the format
	Ext string `yaml:"ext" koanf:"ext"`
}

type roi struct {
	// Width and Height are sensor pixels before binning; zero means the full sensor
	Width  int    `yaml:"width" koanf:"width"`
	Height int    `yaml:"height" koanf:"height"`
	Bin    int    `yaml:"bin" koanf:"bin"`
	Format string `yaml:"format" koanf:"format"`
}

type firmware struct {
	// Device is the vendor:product pair of the cold camera
	Device string `yaml:"device" koanf:"device"`

	// Image is the firmware file; empty skips loading
	Image string `yaml:"image" koanf:"image"`
	Tool  string `yaml:"tool" koanf:"tool"`
}

type config struct {
	Backend     string             `yaml:"backend" koanf:"backend"`
	Index       int                `yaml:"index" koanf:"index"`
	Exposure    string             `yaml:"exposure" koanf:"exposure"`
	Frames      int                `yaml:"frames" koanf:"frames"`
	Margin      string             `yaml:"margin" koanf:"margin"`
	ROI         roi                `yaml:"roi" koanf:"roi"`
	Controls    map[string]float64 `yaml:"controls" koanf:"controls"`
	Recorder    recorder           `yaml:"recorder" koanf:"recorder"`
	Firmware    firmware           `yaml:"firmware" koanf:"firmware"`
	MetricsFile string             `yaml:"metricsfile" koanf:"metricsfile"`
	LogLevel    string             `yaml:"loglevel" koanf:"loglevel"`
}

func setupconfig() {
	k.Load(structs.Provider(config{
		Backend:  "asi",
		Index:    0,
		Exposure: "1s",
		Frames:   1,
		Margin:   camera.DefaultMargin.String(),
		ROI:      roi{Bin: 1, Format: "rgb24"},
		Controls: map[string]float64{
			"Gain":   0,
			"Offset": 10,
		},
		Recorder: recorder{Root: ".", Prefix: "img_", Ext: ".fits"},
		Firmware: firmware{Device: fxload.QHY367Cold, Tool: "fxload"},
		LogLevel: "info"}, "koanf"), nil)
	if err := k.Load(file.Provider(ConfigFileName), yaml.Parser()); err != nil {
		errtxt := err.Error()
		if !strings.Contains(errtxt, "no such") { // file missing, who cares
			log.Fatalf("error loading config: %v", err)
		}
	}
	k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".", -1)
	}), nil)
}

func root() {
	str := `camcap takes exposures with ZWO ASI and QHYCCD cameras and writes them to disk

Usage:
	camcap <command>

Commands:
	run
	list
	firmware
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `camcap is amenable to configuration via its .yml file.  For a primer on YAML, see
https://yaml.org/start.html

When no configuration is provided, the defaults are used.
The command mkconf generates the configuration file with the default values.
Any scalar key may be overridden from the environment with the CAMCAP_ prefix,
nested keys joined by underscores, e.g. CAMCAP_RECORDER_ROOT=/data.

backend is asi or qhy.  Controls are set by the names the driver uses, e.g. Gain,
Offset, WB_R, TargetTemp for asi or Gain, Offset, USBTraffic for qhy, in the
driver's native units.  The exposure time is set from exposure, not a control.

roi.format is one of mono8, mono16, rgb24, rgb48.  Width and height are rounded
down to a multiple of 8; zero means the full sensor.

The recorder writes root/yyyy-mm-dd/<prefix><NNNNNN>_<exposure>ms<ext> and picks
up numbering where the folder left off.  ext is .fits, .png, or .tif.

QHY cameras that enumerate as firmware.device need firmware.image pushed to them
with fxload before they can be used.  run does so when firmware.image is set;
firmware does only that.`
	fmt.Println(str)
}

func mkconf() {
	c := config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		log.Fatal(err)
	}
	f, err := os.Create(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	err = yml.NewEncoder(f).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func printconf() {
	c := config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		log.Fatal(err)
	}
	err = yml.NewEncoder(os.Stdout).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func pversion() {
	fmt.Printf("camcap version %v\n", Version)
}

func loadconfig() (config, *slog.Logger) {
	cfg := config{}
	if err := k.Unmarshal("", &cfg); err != nil {
		log.Fatal(err)
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		log.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	return cfg, logger.With("component", "camcap")
}

func loadFirmware(ctx context.Context, cfg config, logger *slog.Logger) {
	id, err := fxload.ParseID(cfg.Firmware.Device)
	if err != nil {
		log.Fatal(err)
	}
	l := fxload.Loader{Tool: cfg.Firmware.Tool, Image: cfg.Firmware.Image, Logger: logger}
	loaded, err := l.Load(ctx, id)
	if err != nil {
		log.Fatal(err)
	}
	if loaded {
		// the camera re-enumerates with its real product id
		time.Sleep(3 * time.Second)
	}
}

func firmwareCmd() {
	cfg, logger := loadconfig()
	if cfg.Firmware.Image == "" {
		log.Fatal("firmware.image is not set")
	}
	loadFirmware(context.Background(), cfg, logger)
}

func list() {
	cfg, logger := loadconfig()
	switch strings.ToLower(cfg.Backend) {
	case "asi":
		infos, err := asi.List(asisdk.SDK{})
		if err != nil {
			log.Fatal(err)
		}
		for i, info := range infos {
			fmt.Printf("%d\t%s\t%dx%d\tcolor=%v\n", i, info.Name, info.MaxWidth, info.MaxHeight, info.IsColor)
		}
	case "qhy":
		x, err := qhy.NewContext(qhysdk.SDK{}, logger)
		if err != nil {
			log.Fatal(err)
		}
		defer x.Close()
		ids, err := x.IDs()
		if err != nil {
			log.Fatal(err)
		}
		for i, id := range ids {
			fmt.Printf("%d\t%s\n", i, id)
		}
	default:
		log.Fatalf("unknown backend %q", cfg.Backend)
	}
}

func run() {
	cfg, logger := loadconfig()
	texp, err := time.ParseDuration(cfg.Exposure)
	if err != nil {
		log.Fatal(err)
	}
	margin, err := time.ParseDuration(cfg.Margin)
	if err != nil {
		log.Fatal(err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if strings.ToLower(cfg.Backend) == "qhy" && cfg.Firmware.Image != "" {
		loadFirmware(ctx, cfg, logger)
	}
	cam, closer, err := open(cfg, margin, logger)
	if err != nil {
		log.Fatal(err)
	}
	// log.Fatal skips deferred calls
	fatal := func(err error) {
		closer()
		log.Fatal(err)
	}
	defer closer()

	if err = setup(cam, cfg, texp); err != nil {
		fatal(err)
	}
	r := cfg.ROI
	logger.Info("camera ready", "roi", fmt.Sprintf("%dx%d", cam.ROI().Width, cam.ROI().Height),
		"bin", r.Bin, "format", cam.ROI().Format.String(), "exposure", texp)

	rec := &imgrec.Recorder{Root: cfg.Recorder.Root, Prefix: cfg.Recorder.Prefix, Ext: cfg.Recorder.Ext}
	if err = rec.Incr(); err != nil {
		fatal(err)
	}
	met := metrics.New()
	spinner, err := yacspin.New(yacspin.Config{
		Frequency:         100 * time.Millisecond,
		CharSet:           yacspin.CharSets[14],
		Suffix:            " ",
		StopCharacter:     "done",
		StopFailCharacter: "failed",
	})
	if err != nil {
		fatal(err)
	}
	s := session{
		cam:      cam,
		backend:  strings.ToLower(cfg.Backend),
		rec:      rec,
		met:      met,
		log:      logger,
		progress: func(m string) { spinner.Message(m) },
	}
	spinner.Start()
	err = s.run(ctx, cfg.Frames, texp)
	if err != nil {
		spinner.StopFailMessage(err.Error())
		spinner.StopFail()
	} else {
		spinner.Stop()
	}
	if cfg.MetricsFile != "" {
		if merr := met.WriteTextfile(cfg.MetricsFile); merr != nil {
			logger.Error("writing metrics", "err", merr)
		}
	}
	if err != nil {
		fatal(err)
	}
}

func main() {
	var cmd string
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}
	setupconfig()
	cmd = args[1]
	cmd = strings.ToLower(cmd)
	switch cmd {
	case "help":
		help()
		return
	case "mkconf":
		mkconf()
		return
	case "conf":
		printconf()
		return
	case "run":
		run()
		return
	case "list":
		list()
		return
	case "firmware":
		firmwareCmd()
		return
	case "version":
		pversion()
		return
	default:
		log.Fatal("unknown command")
	}
}
