// Package gfx holds the compositor's pixel plumbing: surface views over
// shared buffers, the window transform math, and the clipped blit path.
//
// Pixels are 32-bit BGRA, row-major, tightly packed. The same byte order is
// used end to end (window buffers, back buffer, display), so surfaces are
// handled as *image.RGBA throughout; compositing math is channel-order
// blind and the alpha byte sits in the same position either way.
package gfx

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Surface wraps a raw pixel buffer as an image of the given dimensions.
// Returns nil when the buffer is missing or too small; callers treat a nil
// surface as fully transparent.
func Surface(data []byte, w, h int) *image.RGBA {
	if data == nil || w <= 0 || h <= 0 || len(data) < w*h*4 {
		return nil
	}
	return &image.RGBA{
		Pix:    data[: w*h*4 : w*h*4],
		Stride: w * 4,
		Rect:   image.Rect(0, 0, w, h),
	}
}

// WindowAffine builds the source→screen transform for a window: uniform
// scale and rotation about the window centre, then translation to the
// window's screen position.
func WindowAffine(x, y, w, h, rotation int, scale float64) f64.Aff3 {
	cx, cy := float64(w)/2, float64(h)/2
	rad := math.Pi * float64(rotation) / 180
	sin, cos := math.Sincos(rad)

	a := scale * cos
	b := -scale * sin
	d := scale * sin
	e := scale * cos
	return f64.Aff3{
		a, b, float64(x) + cx - (a*cx + b*cy),
		d, e, float64(y) + cy - (d*cx + e*cy),
	}
}

// DeviceToWindow translates a screen coordinate into window-local space,
// undoing the window's rotation about its centre.
func DeviceToWindow(x, y, winX, winY, w, h, rotation int) (int, int) {
	lx := x - winX
	ly := y - winY
	if rotation == 0 {
		return lx, ly
	}

	tx := float64(lx) - float64(w)/2
	ty := float64(ly) - float64(h)/2

	sin, cos := math.Sincos(-math.Pi * float64(rotation) / 180)

	nx := tx*cos - ty*sin
	ny := tx*sin + ty*cos

	return int(nx) + w/2, int(ny) + h/2
}

// WindowToDevice translates a window-local coordinate into screen space,
// applying the window's rotation about its centre.
func WindowToDevice(x, y, winX, winY, w, h, rotation int) (int, int) {
	if rotation == 0 {
		return winX + x, winY + y
	}

	tx := float64(x) - float64(w)/2
	ty := float64(y) - float64(h)/2

	sin, cos := math.Sincos(math.Pi * float64(rotation) / 180)

	nx := tx*cos - ty*sin
	ny := tx*sin + ty*cos

	return int(nx) + w/2 + winX, int(ny) + h/2 + winY
}

// RotatedBounds returns the axis-aligned screen bounding box of a
// window-relative rectangle, accounting for the window's rotation.
func RotatedBounds(winX, winY, w, h, rotation int, rel image.Rectangle) image.Rectangle {
	if rotation == 0 {
		return rel.Add(image.Pt(winX, winY))
	}

	corners := [4][2]int{
		{rel.Min.X, rel.Min.Y},
		{rel.Max.X, rel.Min.Y},
		{rel.Min.X, rel.Max.Y},
		{rel.Max.X, rel.Max.Y},
	}
	minX, minY := math.MaxInt, math.MaxInt
	maxX, maxY := math.MinInt, math.MinInt
	for _, c := range corners {
		dx, dy := WindowToDevice(c[0], c[1], winX, winY, w, h, rotation)
		minX = min(minX, dx)
		minY = min(minY, dy)
		maxX = max(maxX, dx)
		maxY = max(maxY, dy)
	}
	return image.Rect(minX, minY, maxX, maxY)
}

// Blit composites src into dst through the given transform, restricted to
// the clip rectangles. Alpha in [0,1] scales the whole surface (used by the
// fade animations). An identity placement takes the fast path.
func Blit(dst *image.RGBA, src *image.RGBA, m f64.Aff3, clips []image.Rectangle, alpha float64) {
	if src == nil || alpha <= 0 {
		return
	}

	identity := m[0] == 1 && m[1] == 0 && m[3] == 0 && m[4] == 1 &&
		m[2] == math.Trunc(m[2]) && m[5] == math.Trunc(m[5])

	var opts *xdraw.Options
	if alpha < 1 {
		a := uint8(alpha*255 + 0.5)
		opts = &xdraw.Options{SrcMask: image.NewUniform(color.Alpha{A: a})}
	}

	for _, clip := range clips {
		clip = clip.Intersect(dst.Bounds())
		if clip.Empty() {
			continue
		}
		sub, ok := dst.SubImage(clip).(*image.RGBA)
		if !ok {
			continue
		}
		if identity && opts == nil {
			at := image.Pt(int(m[2]), int(m[5]))
			target := src.Bounds().Add(at).Intersect(clip)
			if target.Empty() {
				continue
			}
			draw.Draw(sub, target, src, target.Min.Sub(at), draw.Over)
			continue
		}
		xdraw.ApproxBiLinear.Transform(sub, m, src, src.Bounds(), xdraw.Over, opts)
	}
}
