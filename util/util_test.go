package util_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/obslab/camlab/util"
)

func ExampleIntSliceToCSV() {
	fmt.Println(util.IntSliceToCSV([]int{1, 2, 4}))
	// Output: 1,2,4
}

func TestIntSliceToCSV(t *testing.T) {
	inp := []int{1, 2, 3}
	expected := "1,2,3"
	out := util.IntSliceToCSV(inp)
	if expected != out {
		t.Errorf("expected %s got %s", expected, out)
	}
}

func TestMergeErrorsAllNil(t *testing.T) {
	if err := util.MergeErrors([]error{nil, nil}); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestMergeErrorsKeepsEach(t *testing.T) {
	a := errors.New("a")
	b := errors.New("b")
	err := util.MergeErrors([]error{nil, a, nil, b})
	if !errors.Is(err, a) || !errors.Is(err, b) {
		t.Errorf("merged error %v lost one of its parts", err)
	}
}

func TestMergeErrorsSingle(t *testing.T) {
	a := errors.New("a")
	if err := util.MergeErrors([]error{nil, a}); err != a {
		t.Errorf("expected the lone error back unchanged, got %v", err)
	}
}

func TestSecsToDuration(t *testing.T) {
	var dur time.Duration = 123456789
	secs := dur.Seconds()
	out := util.SecsToDuration(secs)
	if out != dur {
		t.Errorf("expected SecsToDuration to round trip, output %v != expected %v", out, dur)
	}
}
