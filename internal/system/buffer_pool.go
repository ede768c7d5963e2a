package system

import (
	"image"
	"sync"
)

// ImagePool раздает кадры RGBA под размер поверхности захвата и превью.
// Пул на каждый размер создается при первом запросе.
type ImagePool struct {
	pools sync.Map // image.Rectangle -> *sync.Pool
}

func NewImagePool() *ImagePool {
	return &ImagePool{}
}

var globalPool = NewImagePool()

// GetImage возвращает очищенный кадр из общего пула.
func GetImage(rect image.Rectangle) *image.RGBA {
	return globalPool.Get(rect)
}

// PutImage возвращает кадр в общий пул.
func PutImage(img *image.RGBA) {
	globalPool.Put(img)
}

// Get возвращает кадр размера rect. Переиспользованный кадр обнуляется,
// чтобы неудачный снимок не показал прошлую запись.
func (p *ImagePool) Get(rect image.Rectangle) *image.RGBA {
	v, _ := p.pools.LoadOrStore(rect, &sync.Pool{})
	if img, ok := v.(*sync.Pool).Get().(*image.RGBA); ok {
		clear(img.Pix)
		return img
	}
	return image.NewRGBA(rect)
}

// Put принимает только целые кадры, выданные Get. SubImage и чужие буферы
// другого шага строки отбрасываются.
func (p *ImagePool) Put(img *image.RGBA) {
	if img == nil || !wholeFrame(img) {
		return
	}
	if v, ok := p.pools.Load(img.Rect); ok {
		v.(*sync.Pool).Put(img)
	}
}

func wholeFrame(img *image.RGBA) bool {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	return img.Stride == 4*w && len(img.Pix) == 4*w*h
}
