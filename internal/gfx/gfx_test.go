package gfx

import (
	"image"
	"image/color"
	"testing"
)

func TestSurfaceRejectsShortBuffers(t *testing.T) {
	if got := Surface(nil, 10, 10); got != nil {
		t.Error("nil data should yield nil surface")
	}
	if got := Surface(make([]byte, 10), 10, 10); got != nil {
		t.Error("short data should yield nil surface")
	}
	if got := Surface(make([]byte, 400), 10, 10); got == nil {
		t.Error("exact-size data should yield a surface")
	}
}

func TestDeviceWindowRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		rotation int
	}{
		{"unrotated", 0},
		{"quarter", 90},
		{"odd", 37},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const winX, winY, w, h = 40, 60, 200, 100
			lx, ly := 57, 23
			dx, dy := WindowToDevice(lx, ly, winX, winY, w, h, tt.rotation)
			bx, by := DeviceToWindow(dx, dy, winX, winY, w, h, tt.rotation)
			// Integer truncation allows a couple pixels of slack.
			if abs(bx-lx) > 2 || abs(by-ly) > 2 {
				t.Errorf("round trip (%d,%d) -> (%d,%d) -> (%d,%d)", lx, ly, dx, dy, bx, by)
			}
		})
	}
}

func TestDeviceToWindowTranslation(t *testing.T) {
	lx, ly := DeviceToWindow(150, 130, 100, 100, 300, 200, 0)
	if lx != 50 || ly != 30 {
		t.Errorf("got (%d,%d), want (50,30)", lx, ly)
	}
}

func TestRotatedBoundsUnrotated(t *testing.T) {
	got := RotatedBounds(10, 20, 100, 50, 0, image.Rect(0, 0, 100, 50))
	want := image.Rect(10, 20, 110, 70)
	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestRotatedBoundsCoversRotation(t *testing.T) {
	// A 100x50 window rotated 90° spans 50x100 about its centre.
	got := RotatedBounds(0, 0, 100, 50, 90, image.Rect(0, 0, 100, 50))
	if got.Dx() < 50-2 || got.Dx() > 50+2 || got.Dy() < 100-2 || got.Dy() > 100+2 {
		t.Errorf("bounds %v, want roughly 50x100", got)
	}
}

func TestBlitIdentityClipped(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 100, 100))
	src := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			src.SetRGBA(x, y, color.RGBA{R: 255, A: 255})
		}
	}

	m := WindowAffine(20, 30, 10, 10, 0, 1.0)
	Blit(dst, src, m, []image.Rectangle{image.Rect(20, 30, 25, 35)}, 1.0)

	if got := dst.RGBAAt(22, 32); got.R != 255 || got.A != 255 {
		t.Errorf("inside clip: got %v", got)
	}
	if got := dst.RGBAAt(27, 37); got.R != 0 {
		t.Errorf("outside clip was painted: %v", got)
	}
}

func TestBlitAlphaScalesOpacity(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 20, 20))
	src := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			src.SetRGBA(x, y, color.RGBA{R: 200, A: 255})
		}
	}

	m := WindowAffine(0, 0, 10, 10, 0, 1.0)
	Blit(dst, src, m, []image.Rectangle{dst.Bounds()}, 0.5)

	got := dst.RGBAAt(5, 5)
	if got.R < 80 || got.R > 120 {
		t.Errorf("half-alpha red = %d, want ~100", got.R)
	}
}

func TestBlitRotatedLandsInBounds(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 200, 200))
	src := image.NewRGBA(image.Rect(0, 0, 40, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			src.SetRGBA(x, y, color.RGBA{G: 255, A: 255})
		}
	}

	m := WindowAffine(80, 80, 40, 40, 45, 1.0)
	Blit(dst, src, m, []image.Rectangle{dst.Bounds()}, 1.0)

	// The centre survives any rotation about it.
	if got := dst.RGBAAt(100, 100); got.G == 0 {
		t.Errorf("rotated blit missing at centre: %v", got)
	}
}

func TestSpritesHaveInk(t *testing.T) {
	sprites := NewSprites()
	for name, img := range map[string]*image.RGBA{
		"arrow": sprites.Arrow, "drag": sprites.Drag,
		"resizeV": sprites.ResizeV, "resizeH": sprites.ResizeH,
		"diagA": sprites.DiagA, "diagB": sprites.DiagB,
	} {
		opaque := 0
		for i := 3; i < len(img.Pix); i += 4 {
			if img.Pix[i] != 0 {
				opaque++
			}
		}
		if opaque < 20 {
			t.Errorf("sprite %s has %d opaque pixels", name, opaque)
		}
	}
}
