/*Package fxload loads firmware onto cold Cypress FX3 based cameras

Some cameras enumerate with a bootloader product id until firmware is
pushed to them.  Loader finds such a device with libusb and hands it to the
fxload tool.  A device that is not present is not an error: its firmware
has most likely been loaded already and it has re-enumerated.
*/
package fxload

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/google/gousb"
)

// QHY367Cold is the vendor:product pair of a QHY367 awaiting firmware
const QHY367Cold = "1618:c367"

// ID is a USB vendor and product pair
type ID struct {
	Vendor, Product gousb.ID
}

// ParseID parses a lsusb style "vvvv:pppp" pair of hex numbers
func ParseID(s string) (ID, error) {
	if len(s) != 9 || s[4] != ':' {
		return ID{}, fmt.Errorf("fxload: invalid device id %q, expected a string like aaaa:bbbb", s)
	}
	v, err := strconv.ParseUint(s[:4], 16, 16)
	if err != nil {
		return ID{}, fmt.Errorf("fxload: invalid vendor in %q: %w", s, err)
	}
	p, err := strconv.ParseUint(s[5:], 16, 16)
	if err != nil {
		return ID{}, fmt.Errorf("fxload: invalid product in %q: %w", s, err)
	}
	return ID{Vendor: gousb.ID(v), Product: gousb.ID(p)}, nil
}

func (id ID) String() string {
	return id.Vendor.String() + ":" + id.Product.String()
}

// Device is the location of a device on the bus
type Device struct {
	Bus, Address int
}

// Path is the usbfs node of the device
func (d Device) Path() string {
	return fmt.Sprintf("/dev/bus/usb/%03d/%03d", d.Bus, d.Address)
}

// Find looks for the first device matching id.  ok is false if there is none.
func Find(id ID) (dev Device, ok bool, err error) {
	ctx := gousb.NewContext()
	defer ctx.Close()
	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if !ok && desc.Vendor == id.Vendor && desc.Product == id.Product {
			dev = Device{Bus: desc.Bus, Address: desc.Address}
			ok = true
		}
		return false
	})
	for _, d := range devs {
		d.Close()
	}
	return dev, ok, err
}

// Loader pushes a firmware image to a device
type Loader struct {
	// Tool is the fxload executable, "fxload" if empty
	Tool string

	// Type is the fxload device type, "fx3" if empty
	Type string

	// Image is the firmware image file
	Image string

	Logger *slog.Logger

	// find and run replace the USB lookup and process launch in tests
	find func(ID) (Device, bool, error)
	run  func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// Args returns the fxload arguments that load the image onto the device at path
func (l Loader) Args(path string) []string {
	typ := l.Type
	if typ == "" {
		typ = "fx3"
	}
	return []string{"-t", typ, "-I", l.Image, "-D", path}
}

func runCmd(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Load finds the device with the given id and loads firmware onto it.
// loaded reports whether fxload ran.
func (l Loader) Load(ctx context.Context, id ID) (loaded bool, err error) {
	log := l.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "fxload")
	find, run := l.find, l.run
	if find == nil {
		find = Find
	}
	if run == nil {
		run = runCmd
	}
	tool := l.Tool
	if tool == "" {
		tool = "fxload"
	}

	dev, ok, err := find(id)
	if err != nil {
		return false, fmt.Errorf("fxload: searching for %s: %w", id, err)
	}
	if !ok {
		log.Info("device not found, firmware may have been loaded already", "id", id.String())
		return false, nil
	}
	path := dev.Path()
	log.Info("found device", "id", id.String(), "path", path)
	if uid, ok := owner(path); ok && uid != os.Getuid() {
		log.Warn("device node is owned by another user, fxload may fail", "path", path, "owner", uid)
	}

	args := l.Args(path)
	log.Debug("running", "cmd", tool+" "+strings.Join(args, " "))
	out, err := run(ctx, tool, args...)
	if len(out) > 0 {
		log.Info("fxload output", "output", strings.TrimSpace(string(out)))
	}
	if err != nil {
		return false, fmt.Errorf("fxload: loading %s onto %s: %w", l.Image, path, err)
	}
	return true, nil
}
