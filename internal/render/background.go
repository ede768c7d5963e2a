package render

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
)

var (
	accentColor = color.RGBA{0x21, 0xc0, 0x63, 0xff}
	blackColor  = color.RGBA{0, 0, 0, 0xff}
)

// Background gradient geometry on a 512 x 512 reference canvas stretched
// over the viewport: an inner point at (256, 200) growing into a circle of
// radius 420 centred on (256, 256).
const (
	gradientCanvas = 512.0
	gradientInnerX = 256.0
	gradientInnerY = 200.0
	gradientOuterX = 256.0
	gradientOuterY = 256.0
	gradientRadius = 420.0
	gradientMidT   = 0.4
)

// paintBackground fills dst with the solid colour or its radial gradient.
func paintBackground(dst *image.RGBA, base color.RGBA, gradient bool) {
	if !gradient {
		draw.Draw(dst, dst.Bounds(), image.NewUniform(base), image.Point{}, draw.Src)
		return
	}

	lighter := lerpColor(base, accentColor, 0.06)
	darker := lerpColor(base, blackColor, 0.4)
	b := dst.Bounds()
	sx := gradientCanvas / float64(b.Dx())
	sy := gradientCanvas / float64(b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			t := gradientT((float64(x-b.Min.X)+0.5)*sx, (float64(y-b.Min.Y)+0.5)*sy)
			var c color.RGBA
			if t <= gradientMidT {
				c = lerpColor(lighter, base, t/gradientMidT)
			} else {
				c = lerpColor(base, darker, (t-gradientMidT)/(1-gradientMidT))
			}
			dst.SetRGBA(x, y, c)
		}
	}
}

// gradientT solves for the circle of the two-point radial gradient passing
// through (px, py) and returns its parameter clamped to [0, 1].
func gradientT(px, py float64) float64 {
	dcx, dcy := gradientOuterX-gradientInnerX, gradientOuterY-gradientInnerY
	ox, oy := px-gradientInnerX, py-gradientInnerY

	a := dcx*dcx + dcy*dcy - gradientRadius*gradientRadius
	b := -2 * (ox*dcx + oy*dcy)
	c := ox*ox + oy*oy
	disc := b*b - 4*a*c
	if disc < 0 {
		return 1
	}
	t := (-b - math.Sqrt(disc)) / (2 * a)
	return math.Min(1, math.Max(0, t))
}

func lerpColor(a, b color.RGBA, t float64) color.RGBA {
	t = math.Min(1, math.Max(0, t))
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return color.RGBA{mix(a.R, b.R), mix(a.G, b.G), mix(a.B, b.B), mix(a.A, b.A)}
}

func shadeColor(c color.RGBA, f float64) color.RGBA {
	return lerpColor(blackColor, c, f)
}
