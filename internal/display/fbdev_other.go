//go:build !linux

package display

import (
	"fmt"
	"image"
)

// FBDev is unavailable off Linux; nested or memory backends still work.
type FBDev struct{}

// OpenFBDev reports that raw framebuffer output is unsupported here.
func OpenFBDev(path string) (*FBDev, error) {
	return nil, fmt.Errorf("framebuffer device %s: unsupported on this platform", path)
}

func (d *FBDev) Size() (int, int) { return 0, 0 }

func (d *FBDev) Front() *image.RGBA { return nil }

func (d *FBDev) Flush(rects []image.Rectangle) error { return nil }

func (d *FBDev) Close() error { return nil }
