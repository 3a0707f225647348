// Package display abstracts the surface the compositor presents frames on:
// the raw framebuffer device, a window of a host compositor (nested mode),
// or plain memory for tests.
package display

import "image"

// Backend is the driver-visible front surface. The compositor composes into
// its own back buffer and copies damaged regions into Front; Flush presents
// those regions on backends that need an explicit push.
type Backend interface {
	Size() (width, height int)
	Front() *image.RGBA
	Flush(rects []image.Rectangle) error
	Close() error
}

// Memory is an in-process backend used by tests and headless runs.
type Memory struct {
	front *image.RGBA
}

// NewMemory returns a memory backend of the given dimensions.
func NewMemory(width, height int) *Memory {
	return &Memory{front: image.NewRGBA(image.Rect(0, 0, width, height))}
}

func (m *Memory) Size() (int, int) { return m.front.Rect.Dx(), m.front.Rect.Dy() }

func (m *Memory) Front() *image.RGBA { return m.front }

func (m *Memory) Flush(rects []image.Rectangle) error { return nil }

func (m *Memory) Close() error { return nil }
