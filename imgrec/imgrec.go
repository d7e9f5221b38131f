// Package imgrec contains an image recorder used to automatically save images to disk.
package imgrec

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/astrogo/fitsio"

	"github.com/obslab/camlab/camera"
	"github.com/obslab/camlab/imgfile"
)

// Recorder records image sequences with incrementing filenames in yyyy-mm-dd subfolders.  It is not thread safe.
type Recorder struct {
	// counter is the internally incrementing counter
	counter int

	// Root is the root path
	Root string

	// Prefix is the prefix for the filenames
	Prefix string

	// Ext is the file extension, including the dot.  It selects the encoder.
	Ext string

	// Now is the clock used to pick the day folder.  nil means time.Now.
	Now func() time.Time

	// timeFldr is the subfolder with yyyy-mm-dd format.
	timeFldr string
}

// updateFolder checks the current time and updates the folder as needed
func (r *Recorder) updateFolder() {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	t := now()
	fldr := fmt.Sprintf("%04d-%02d-%02d", t.Year(), t.Month(), t.Day())
	if fldr != r.timeFldr {
		r.timeFldr = fldr
		r.counter = 0
	}
}

// mkDir makes the folder and returns it
func (r *Recorder) mkDir() (string, error) {
	fldr := filepath.Join(r.Root, r.timeFldr)
	err := os.MkdirAll(fldr, 0777)
	return fldr, err
}

func (r *Recorder) ext() string {
	if r.Ext == "" {
		return ".fits"
	}
	if !strings.HasPrefix(r.Ext, ".") {
		return "." + r.Ext
	}
	return r.Ext
}

// Next returns the path for the next image and advances the counter.  tag,
// when not empty, is appended to the counter, for example "_45000ms".
// The day folder is created if needed.
func (r *Recorder) Next(tag string) (string, error) {
	r.updateFolder()
	fldr, err := r.mkDir()
	if err != nil {
		return "", fmt.Errorf("imgrec: %w: %w", camera.InvalidPath, err)
	}
	fn := fmt.Sprintf("%s%06d%s%s", r.Prefix, r.counter, tag, r.ext())
	r.counter++
	return filepath.Join(fldr, fn), nil
}

// Record writes f to the next path and returns it
func (r *Recorder) Record(f camera.Frame, tag string, cards ...fitsio.Card) (string, error) {
	path, err := r.Next(tag)
	if err != nil {
		return "", err
	}
	return path, imgfile.Write(path, f, cards...)
}

// Incr updates the filename counter; it scans the folder to do so.  If there is an error, the counter is not changed
func (r *Recorder) Incr() error {
	r.updateFolder()
	dn, err := r.mkDir()
	if err != nil {
		return err
	}
	files, err := os.ReadDir(dn)
	if err != nil {
		return err
	}
	count := -1
	ext := r.ext()
	for _, file := range files {
		// skip directories, other formats, and wrong prefix
		if file.IsDir() {
			continue
		}
		fn := file.Name()
		if !strings.HasSuffix(fn, ext) || !strings.HasPrefix(fn, r.Prefix) {
			continue
		}
		digits := strings.TrimPrefix(fn, r.Prefix)
		end := 0
		for end < len(digits) && digits[end] >= '0' && digits[end] <= '9' {
			end++
		}
		n, err := strconv.Atoi(digits[:end])
		if err != nil {
			continue
		}
		if count < n {
			count = n
		}
	}
	r.counter = count + 1
	return nil
}

// Counter returns the number the next image will carry
func (r *Recorder) Counter() int {
	return r.counter
}
