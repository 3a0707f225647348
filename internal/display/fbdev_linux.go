package display

import (
	"fmt"
	"image"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"

	"aster/internal/gfx"
)

const fbioGetVScreenInfo = 0x4600

// fbVarScreenInfo mirrors the head of the kernel's fb_var_screeninfo; only
// the resolution and depth fields are consulted.
type fbVarScreenInfo struct {
	XRes         uint32
	YRes         uint32
	XResVirtual  uint32
	YResVirtual  uint32
	XOffset      uint32
	YOffset      uint32
	BitsPerPixel uint32
	Grayscale    uint32
	_            [148]byte
}

// FBDev is a framebuffer-device backend: the front surface is the mapped
// video memory itself.
type FBDev struct {
	f     *os.File
	data  []byte
	front *image.RGBA
}

// OpenFBDev opens and maps a framebuffer device.
func OpenFBDev(path string) (*FBDev, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open framebuffer: %w", err)
	}

	var info fbVarScreenInfo
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), fbioGetVScreenInfo, uintptr(unsafe.Pointer(&info)))
	if errno != 0 {
		f.Close()
		return nil, fmt.Errorf("query framebuffer geometry: %w", errno)
	}
	if info.BitsPerPixel != 32 {
		f.Close()
		return nil, fmt.Errorf("framebuffer depth %d unsupported (need 32)", info.BitsPerPixel)
	}

	w, h := int(info.XRes), int(info.YRes)
	size := w * h * 4
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("map framebuffer: %w", err)
	}

	front := gfx.Surface(data, w, h)
	if front == nil {
		unix.Munmap(data)
		f.Close()
		return nil, fmt.Errorf("framebuffer mapping too small")
	}
	return &FBDev{f: f, data: data, front: front}, nil
}

func (d *FBDev) Size() (int, int) { return d.front.Rect.Dx(), d.front.Rect.Dy() }

func (d *FBDev) Front() *image.RGBA { return d.front }

// Flush is a no-op: writes land directly in video memory.
func (d *FBDev) Flush(rects []image.Rectangle) error { return nil }

func (d *FBDev) Close() error {
	unix.Munmap(d.data)
	return d.f.Close()
}
