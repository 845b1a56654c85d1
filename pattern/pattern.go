// Package pattern provides procedural fills for background buffers.
package pattern

import (
	"image/color"
	"image/draw"
)

// Func returns the colour of the pixel at (x, y) of a w by h image. It
// must be pure, returning the same colour for the same arguments.
type Func func(x, y, w, h int) color.NRGBA

// Gradient is a dark diagonal gradient that brightens towards the
// right and the bottom.
func Gradient(x, y, w, h int) color.NRGBA {
	fx := float32(x) / float32(w)
	fy := float32(y) / float32(h)
	return color.NRGBA{
		R: uint8(fx*40 + 10),
		G: uint8(fy*30 + 10),
		B: uint8(fx*60 + 40),
		A: 255,
	}
}

// Solid returns a Func that fills everything with c.
func Solid(c color.Color) Func {
	nc := color.NRGBAModel.Convert(c).(color.NRGBA)
	return func(x, y, w, h int) color.NRGBA {
		return nc
	}
}

// Fill paints f over every pixel of img. f is called with coordinates
// relative to the top-left corner of img's bounds. The image's color
// model takes care of encoding and premultiplication.
func Fill(img draw.Image, f Func) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(b.Min.X+x, b.Min.Y+y, f(x, y, w, h))
		}
	}
}
