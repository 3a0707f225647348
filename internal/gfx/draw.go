package gfx

import (
	"image"
	"image/color"
	"image/draw"
)

// DrawSprite composites a sprite at the given screen position, restricted
// to the clip rectangles.
func DrawSprite(dst *image.RGBA, sprite *image.RGBA, at image.Point, clips []image.Rectangle) {
	if sprite == nil {
		return
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
		target := sprite.Bounds().Add(at).Intersect(clip)
		if target.Empty() {
			continue
		}
		draw.Draw(sub, target, sprite, target.Min.Sub(at), draw.Over)
	}
}

// blendPx draws a single pixel with source-over blending.
func blendPx(dst *image.RGBA, x, y int, c color.RGBA) {
	if !image.Pt(x, y).In(dst.Bounds()) {
		return
	}
	if c.A == 0xFF {
		dst.SetRGBA(x, y, c)
		return
	}
	old := dst.RGBAAt(x, y)
	a := uint32(c.A)
	inv := 255 - a
	dst.SetRGBA(x, y, color.RGBA{
		R: uint8((uint32(c.R)*a + uint32(old.R)*inv) / 255),
		G: uint8((uint32(c.G)*a + uint32(old.G)*inv) / 255),
		B: uint8((uint32(c.B)*a + uint32(old.B)*inv) / 255),
		A: uint8(a + uint32(old.A)*inv/255),
	})
}

// strokeLine draws a straight line of the given thickness.
func strokeLine(dst *image.RGBA, x0, y0, x1, y1, thick int, c color.RGBA, clips []image.Rectangle) {
	dx := abs(x1 - x0)
	dy := abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx - dy
	x, y := x0, y0
	for {
		for tx := 0; tx < thick; tx++ {
			for ty := 0; ty < thick; ty++ {
				px, py := x+tx, y+ty
				if inClips(px, py, clips) {
					blendPx(dst, px, py, c)
				}
			}
		}
		if x == x1 && y == y1 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x += sx
		}
		if e2 < dx {
			err += dx
			y += sy
		}
	}
}

// FillQuad scanline-fills a convex quadrilateral, restricted to the clips.
func FillQuad(dst *image.RGBA, pts [4]image.Point, c color.RGBA, clips []image.Rectangle) {
	minY, maxY := pts[0].Y, pts[0].Y
	for _, p := range pts[1:] {
		minY = min(minY, p.Y)
		maxY = max(maxY, p.Y)
	}
	minY = max(minY, dst.Bounds().Min.Y)
	maxY = min(maxY, dst.Bounds().Max.Y-1)

	edges := [4][2]image.Point{
		{pts[0], pts[1]},
		{pts[1], pts[2]},
		{pts[2], pts[3]},
		{pts[3], pts[0]},
	}
	for y := minY; y <= maxY; y++ {
		minX, maxX := 1<<30, -(1 << 30)
		for _, e := range edges {
			p0, p1 := e[0], e[1]
			if p0.Y == p1.Y {
				if p0.Y == y {
					minX = min(minX, min(p0.X, p1.X))
					maxX = max(maxX, max(p0.X, p1.X))
				}
				continue
			}
			lo, hi := p0, p1
			if lo.Y > hi.Y {
				lo, hi = hi, lo
			}
			if y < lo.Y || y > hi.Y {
				continue
			}
			x := lo.X + (hi.X-lo.X)*(y-lo.Y)/(hi.Y-lo.Y)
			minX = min(minX, x)
			maxX = max(maxX, x)
		}
		if minX > maxX {
			continue
		}
		for x := minX; x <= maxX; x++ {
			if inClips(x, y, clips) {
				blendPx(dst, x, y, c)
			}
		}
	}
}

// StrokeQuad outlines a quadrilateral, restricted to the clips.
func StrokeQuad(dst *image.RGBA, pts [4]image.Point, thick int, c color.RGBA, clips []image.Rectangle) {
	for i := range pts {
		p0 := pts[i]
		p1 := pts[(i+1)%4]
		strokeLine(dst, p0.X, p0.Y, p1.X, p1.Y, thick, c, clips)
	}
}

func inClips(x, y int, clips []image.Rectangle) bool {
	p := image.Pt(x, y)
	for _, r := range clips {
		if p.In(r) {
			return true
		}
	}
	return false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
