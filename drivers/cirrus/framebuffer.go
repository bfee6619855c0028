package cirrus

import "image/color"

// Framebuffer is a linear BGRA8888 pixel buffer implementing
// drivers.Displayer.
type Framebuffer struct {
	w, h int16
	pix  []byte
}

// NewFramebuffer wraps pix, which must hold at least w*h*4 bytes. A nil pix
// allocates one.
func NewFramebuffer(w, h int16, pix []byte) *Framebuffer {
	n := int(w) * int(h) * 4
	if pix == nil {
		pix = make([]byte, n)
	}
	return &Framebuffer{w: w, h: h, pix: pix[:n]}
}

func (f *Framebuffer) Size() (x, y int16) { return f.w, f.h }

func (f *Framebuffer) SetPixel(x, y int16, c color.RGBA) {
	if x < 0 || y < 0 || x >= f.w || y >= f.h {
		return
	}
	off := (int(y)*int(f.w) + int(x)) * 4
	f.pix[off+0] = c.B
	f.pix[off+1] = c.G
	f.pix[off+2] = c.R
	f.pix[off+3] = c.A
}

// Pixel reads back the pixel at (x, y).
func (f *Framebuffer) Pixel(x, y int16) color.RGBA {
	if x < 0 || y < 0 || x >= f.w || y >= f.h {
		return color.RGBA{}
	}
	off := (int(y)*int(f.w) + int(x)) * 4
	return color.RGBA{B: f.pix[off], G: f.pix[off+1], R: f.pix[off+2], A: f.pix[off+3]}
}

// Display is a no-op: the buffer is the scanout memory.
func (f *Framebuffer) Display() error { return nil }

// Bytes exposes the raw scanout memory.
func (f *Framebuffer) Bytes() []byte { return f.pix }
