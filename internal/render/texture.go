package render

import (
	"image"
	"math"

	"golang.org/x/image/draw"

	"github.com/ivlev/mockupreel/internal/session"
)

// evictAfter is how many frames an unused texture stays cached.
const evictAfter = 120

// CoverFit scales src to fill a w x h image, cropping the excess evenly.
func CoverFit(src image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	b := src.Bounds()
	if b.Empty() || w <= 0 || h <= 0 {
		return dst
	}

	crop := b
	srcAspect := float64(b.Dx()) / float64(b.Dy())
	dstAspect := float64(w) / float64(h)
	if srcAspect > dstAspect {
		sw := int(math.Round(float64(b.Dy()) * dstAspect))
		x := b.Min.X + (b.Dx()-sw)/2
		crop = image.Rect(x, b.Min.Y, x+sw, b.Max.Y)
	} else {
		sh := int(math.Round(float64(b.Dx()) / dstAspect))
		y := b.Min.Y + (b.Dy()-sh)/2
		crop = image.Rect(b.Min.X, y, b.Max.X, y+sh)
	}
	draw.BiLinear.Scale(dst, dst.Bounds(), src, crop, draw.Src, nil)
	return dst
}

type texture struct {
	img      *image.RGBA
	video    bool
	hasFrame bool
	lastUsed uint64
}

type textureCache struct {
	entries map[string]*texture
}

func newTextureCache() *textureCache {
	return &textureCache{entries: make(map[string]*texture)}
}

// lookup returns the texture for a view on a device, or nil when there is
// nothing to show yet.
func (c *textureCache) lookup(view *session.ScreenView, dev Device, frame uint64) *image.RGBA {
	if view == nil {
		return nil
	}
	key := view.Screen.ID + "/" + dev.Name
	tex := c.entries[key]

	if view.Video != nil {
		w, h := view.Video.FrameSize()
		if tex == nil || !tex.video || tex.img.Rect.Dx() != w || tex.img.Rect.Dy() != h {
			tex = &texture{img: image.NewRGBA(image.Rect(0, 0, w, h)), video: true}
			c.entries[key] = tex
		}
		tex.lastUsed = frame
		if view.Video.CopyFrame(tex.img) > 0 {
			tex.hasFrame = true
		}
		if tex.hasFrame {
			return tex.img
		}
		return c.still(key+"/still", view, dev, frame)
	}
	return c.still(key, view, dev, frame)
}

func (c *textureCache) still(key string, view *session.ScreenView, dev Device, frame uint64) *image.RGBA {
	if view.Screen.Still == nil {
		return nil
	}
	tex := c.entries[key]
	if tex == nil {
		w, h := dev.TextureSize()
		tex = &texture{img: CoverFit(view.Screen.Still, w, h), hasFrame: true}
		c.entries[key] = tex
	}
	tex.lastUsed = frame
	return tex.img
}

func (c *textureCache) evict(frame uint64) {
	for key, tex := range c.entries {
		if frame-tex.lastUsed > evictAfter {
			delete(c.entries, key)
		}
	}
}

func (c *textureCache) len() int { return len(c.entries) }

// sample reads img at normalised (u, v) with bilinear filtering.
func sample(img *image.RGBA, u, v float64) (r, g, b, a float64) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	fx := math.Min(math.Max(u*float64(w)-0.5, 0), float64(w-1))
	fy := math.Min(math.Max(v*float64(h)-0.5, 0), float64(h-1))
	x0, y0 := int(fx), int(fy)
	x1, y1 := min(x0+1, w-1), min(y0+1, h-1)
	tx, ty := fx-float64(x0), fy-float64(y0)

	p00 := img.PixOffset(img.Rect.Min.X+x0, img.Rect.Min.Y+y0)
	p10 := img.PixOffset(img.Rect.Min.X+x1, img.Rect.Min.Y+y0)
	p01 := img.PixOffset(img.Rect.Min.X+x0, img.Rect.Min.Y+y1)
	p11 := img.PixOffset(img.Rect.Min.X+x1, img.Rect.Min.Y+y1)
	ch := func(i int) float64 {
		top := float64(img.Pix[p00+i])*(1-tx) + float64(img.Pix[p10+i])*tx
		bot := float64(img.Pix[p01+i])*(1-tx) + float64(img.Pix[p11+i])*tx
		return top*(1-ty) + bot*ty
	}
	return ch(0), ch(1), ch(2), ch(3)
}
