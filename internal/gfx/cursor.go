package gfx

import (
	"image"
	"image/color"
)

// Cursor sprites are drawn procedurally on a fixed-size canvas. The hotspot
// sits at (HotspotX, HotspotY) within the canvas, so damage tracking can use
// one rectangle size for every sprite.
const (
	CursorWidth  = 64
	CursorHeight = 64
	HotspotX     = 26
	HotspotY     = 26
)

var (
	cursorWhite   = color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}
	cursorOutline = color.RGBA{0x10, 0x10, 0x10, 0xFF}
)

// Sprites holds the compositor's cursor images.
type Sprites struct {
	Arrow   *image.RGBA
	Drag    *image.RGBA
	ResizeV *image.RGBA // up-down
	ResizeH *image.RGBA // left-right
	DiagA   *image.RGBA // up-left / down-right
	DiagB   *image.RGBA // up-right / down-left
}

// NewSprites builds the cursor sprite set.
func NewSprites() *Sprites {
	return &Sprites{
		Arrow:   arrowSprite(),
		Drag:    crossSprite(),
		ResizeV: doubleArrowSprite(0, 1),
		ResizeH: doubleArrowSprite(1, 0),
		DiagA:   doubleArrowSprite(1, 1),
		DiagB:   doubleArrowSprite(1, -1),
	}
}

func newCanvas() *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, CursorWidth, CursorHeight))
}

// arrowSprite draws the classic pointer: a left-edged triangle with a tail.
func arrowSprite() *image.RGBA {
	img := newCanvas()
	const h = 19
	for dy := 0; dy < h; dy++ {
		span := dy * 2 / 3
		for dx := 0; dx <= span; dx++ {
			c := cursorWhite
			if dx == 0 || dx == span || dy == h-1 {
				c = cursorOutline
			}
			img.SetRGBA(HotspotX+dx, HotspotY+dy, c)
		}
	}
	// Tail below the triangle.
	for dy := h - 1; dy < h+5; dy++ {
		for dx := 3; dx <= 5; dx++ {
			c := cursorWhite
			if dx == 3 || dx == 5 || dy == h+4 {
				c = cursorOutline
			}
			img.SetRGBA(HotspotX+dx, HotspotY+dy, c)
		}
	}
	return img
}

// crossSprite draws the four-directional move cursor.
func crossSprite() *image.RGBA {
	img := newCanvas()
	drawShaft(img, -14, 0, 14, 0)
	drawShaft(img, 0, -14, 0, 14)
	drawHead(img, 14, 0, 1, 0)
	drawHead(img, -14, 0, -1, 0)
	drawHead(img, 0, 14, 0, 1)
	drawHead(img, 0, -14, 0, -1)
	return img
}

// doubleArrowSprite draws a two-headed resize cursor along (dirX, dirY).
func doubleArrowSprite(dirX, dirY int) *image.RGBA {
	img := newCanvas()
	drawShaft(img, -12*dirX, -12*dirY, 12*dirX, 12*dirY)
	drawHead(img, 12*dirX, 12*dirY, dirX, dirY)
	drawHead(img, -12*dirX, -12*dirY, -dirX, -dirY)
	return img
}

// drawShaft draws a 3px-thick line between hotspot-relative endpoints.
func drawShaft(img *image.RGBA, x0, y0, x1, y1 int) {
	steps := max(abs(x1-x0), abs(y1-y0))
	if steps == 0 {
		return
	}
	for i := 0; i <= steps; i++ {
		x := HotspotX + x0 + (x1-x0)*i/steps
		y := HotspotY + y0 + (y1-y0)*i/steps
		for ox := -1; ox <= 1; ox++ {
			for oy := -1; oy <= 1; oy++ {
				c := cursorWhite
				if abs(ox) == 1 && abs(oy) == 1 {
					c = cursorOutline
				}
				img.SetRGBA(x+ox, y+oy, c)
			}
		}
	}
}

// drawHead draws an arrowhead at a hotspot-relative tip pointing along
// (dirX, dirY); either component may be zero for axis-aligned heads.
func drawHead(img *image.RGBA, tipX, tipY, dirX, dirY int) {
	// Perpendicular to the direction, for the head's width.
	px, py := -dirY, dirX
	for depth := 0; depth < 6; depth++ {
		for w := -depth; w <= depth; w++ {
			x := HotspotX + tipX - dirX*depth + px*w
			y := HotspotY + tipY - dirY*depth + py*w
			c := cursorWhite
			if w == -depth || w == depth {
				c = cursorOutline
			}
			img.SetRGBA(x, y, c)
		}
	}
}
