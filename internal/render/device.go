package render

import (
	"image/color"
	"math"
)

// Scale applied to every device model inside its slot.
const DeviceScale = 0.35

// TextureWidth is the width of cover-fitted screen textures.
const TextureWidth = 1080

var (
	bezelColor       = color.RGBA{0x0a, 0x0a, 0x0a, 0xff}
	emptyScreenColor = color.RGBA{0x11, 0x11, 0x22, 0xff}
)

// Device describes a phone body and its screen in model units.
type Device struct {
	Name   string
	Width  float64
	Height float64
	Depth  float64
	Corner float64
	Inset  float64
	Frame  color.RGBA
	Island bool // pill cut-out, otherwise a punch hole
}

var (
	IPhone = Device{
		Name:   "iphone",
		Width:  2.4,
		Height: 2.4 * 19.5 / 9,
		Depth:  0.2,
		Corner: 0.42,
		Inset:  0.045,
		Frame:  color.RGBA{0x8a, 0x80, 0x78, 0xff},
		Island: true,
	}
	Android = Device{
		Name:   "android",
		Width:  2.3,
		Height: 2.3 * 19.5 / 9,
		Depth:  0.18,
		Corner: 0.30,
		Inset:  0.05,
		Frame:  color.RGBA{0x2a, 0x2a, 0x2a, 0xff},
	}
)

// DeviceByName returns IPhone for anything that is not "android".
func DeviceByName(name string) Device {
	if name == Android.Name {
		return Android
	}
	return IPhone
}

func (d Device) ScreenSize() (float64, float64) {
	return d.Width - d.Inset*2, d.Height - d.Inset*2
}

func (d Device) ScreenAspect() float64 {
	w, h := d.ScreenSize()
	return w / h
}

// TextureSize is the pixel size screen contents are cover-fitted to.
func (d Device) TextureSize() (int, int) {
	return TextureWidth, int(math.Round(TextureWidth / d.ScreenAspect()))
}

func (d Device) screenCorner() float64 {
	return math.Max(0.08, d.Corner-d.Inset-0.01)
}

func (d Device) frontZ() float64 {
	return d.Depth/2 + 0.023
}
