// Package render is a software compositor for the device mockup. It draws
// the background, the device bodies and their screen contents with a
// pinhole camera, and doubles as the capture surface for recordings.
//
// The screen plane is mapped with an exact perspective homography; bodies
// are flat silhouettes with a single facing-ratio shade.
package render

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"
	"sync"

	"golang.org/x/image/vector"

	"github.com/ivlev/mockupreel/internal/session"
	"github.com/ivlev/mockupreel/internal/system"
)

type Options struct {
	Width      int
	Height     int
	Background color.RGBA
	Gradient   bool
}

type Compositor struct {
	width  int
	height int

	// Render-side state, owned by the frame loop.
	back     *image.RGBA
	bg       *image.RGBA
	bgColor  color.RGBA
	gradient bool
	raster   *vector.Rasterizer
	mask     *image.Alpha
	textures *textureCache

	mu     sync.Mutex
	front  *image.RGBA
	frames uint64
}

func NewCompositor(opts Options) (*Compositor, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("invalid canvas size %dx%d", opts.Width, opts.Height)
	}
	rect := image.Rect(0, 0, opts.Width, opts.Height)
	c := &Compositor{
		width:    opts.Width,
		height:   opts.Height,
		back:     image.NewRGBA(rect),
		front:    image.NewRGBA(rect),
		bg:       image.NewRGBA(rect),
		bgColor:  opts.Background,
		gradient: opts.Gradient,
		raster:   vector.NewRasterizer(opts.Width, opts.Height),
		mask:     image.NewAlpha(rect),
		textures: newTextureCache(),
	}
	paintBackground(c.bg, c.bgColor, c.gradient)
	copy(c.front.Pix, c.bg.Pix)
	return c, nil
}

func (c *Compositor) Bounds() image.Rectangle {
	return image.Rect(0, 0, c.width, c.height)
}

// Snapshot copies the last completed frame into dst.
func (c *Compositor) Snapshot(dst *image.RGBA) error {
	if dst.Rect != c.Bounds() {
		return fmt.Errorf("snapshot buffer is %v, canvas is %v", dst.Rect, c.Bounds())
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	copy(dst.Pix, c.front.Pix)
	return nil
}

// Frames returns how many frames were rendered.
func (c *Compositor) Frames() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames
}

type slotDraw struct {
	device Device
	view   *session.ScreenView
	model  model
	depth  float64
}

// Render draws one frame and publishes it for Snapshot. It must not be
// called concurrently with itself.
func (c *Compositor) Render(f session.RenderFrame) error {
	frame := c.frames + 1
	if f.Background != c.bgColor || f.Gradient != c.gradient {
		c.bgColor, c.gradient = f.Background, f.Gradient
		paintBackground(c.bg, c.bgColor, c.gradient)
	}
	copy(c.back.Pix, c.bg.Pix)

	cam := newCamera(f.Camera, c.width, c.height)
	var slots []slotDraw
	if f.Pose.Primary != nil {
		m := model{group: f.Pose.Group, slot: *f.Pose.Primary}
		slots = append(slots, slotDraw{IPhone, f.Primary, m, cam.depth(m.world(vec3{}))})
	}
	if f.Pose.Secondary != nil {
		m := model{group: f.Pose.Group, slot: *f.Pose.Secondary}
		slots = append(slots, slotDraw{Android, f.Secondary, m, cam.depth(m.world(vec3{}))})
	}
	// Far to near.
	sort.SliceStable(slots, func(i, j int) bool { return slots[i].depth > slots[j].depth })

	for _, s := range slots {
		c.drawDevice(cam, s, frame)
	}
	c.textures.evict(frame)

	c.mu.Lock()
	c.back, c.front = c.front, c.back
	c.frames = frame
	c.mu.Unlock()
	return nil
}

func (c *Compositor) projectOutline(cam camera, m model, pts []point, z float64) ([]point, bool) {
	out := make([]point, len(pts))
	for i, p := range pts {
		sp, ok := cam.project(m.world(vec3{p.x, p.y, z}))
		if !ok {
			return nil, false
		}
		out[i] = sp
	}
	return out, true
}

func (c *Compositor) drawDevice(cam camera, s slotDraw, frame uint64) {
	dev, m := s.device, s.model
	body, ok := c.projectOutline(cam, m, roundedRect(0, 0, dev.Width, dev.Height, dev.Corner), 0)
	if !ok {
		return
	}

	center := m.world(vec3{})
	normal := m.world(vec3{0, 0, 1}).sub(center).normalize()
	facing := math.Abs(normal.dot(cam.eye.sub(center).normalize()))
	c.fill(c.back, body, shadeColor(dev.Frame, 0.55+0.45*facing))

	if signedArea(body) <= 0 {
		return
	}

	sw, sh := dev.ScreenSize()
	front := dev.frontZ()
	if bezel, ok := c.projectOutline(cam, m, roundedRect(0, 0, sw+0.02, sh+0.02, math.Max(0.08, dev.Corner-dev.Inset+0.005)), front-0.002); ok {
		c.fill(c.back, bezel, bezelColor)
	}

	outline, ok := c.projectOutline(cam, m, roundedRect(0, 0, sw, sh, dev.screenCorner()), front)
	if !ok {
		return
	}
	quad, quadOK := c.projectOutline(cam, m, []point{
		{-sw / 2, sh / 2}, {sw / 2, sh / 2}, {sw / 2, -sh / 2}, {-sw / 2, -sh / 2},
	}, front)

	tex := c.textures.lookup(s.view, dev, frame)
	if tex == nil || !quadOK || !c.mapTexture(outline, [4]point(quad), tex) {
		c.fill(c.back, outline, emptyScreenColor)
	}

	var cutout []point
	if dev.Island {
		cutout = roundedRect(0, sh/2-0.18, 0.5, 0.14, 0.07)
	} else {
		cutout = roundedRect(0, sh/2-0.15, 0.1, 0.1, 0.05)
	}
	if pts, ok := c.projectOutline(cam, m, cutout, front+0.001); ok {
		c.fill(c.back, pts, blackColor)
	}
}

func (c *Compositor) rasterize(pts []point) {
	c.raster.Reset(c.width, c.height)
	c.raster.MoveTo(float32(pts[0].x), float32(pts[0].y))
	for _, p := range pts[1:] {
		c.raster.LineTo(float32(p.x), float32(p.y))
	}
	c.raster.ClosePath()
}

func (c *Compositor) fill(dst *image.RGBA, pts []point, col color.RGBA) {
	if len(pts) < 3 {
		return
	}
	c.rasterize(pts)
	c.raster.Draw(dst, dst.Bounds(), image.NewUniform(col), image.Point{})
}

// mapTexture draws tex through the perspective quad, clipped to outline.
func (c *Compositor) mapTexture(outline []point, quad [4]point, tex *image.RGBA) bool {
	h, ok := squareToQuad(quad)
	if !ok {
		return false
	}
	inv, ok := h.invert()
	if !ok {
		return false
	}

	box := bounds(outline).Intersect(c.Bounds())
	if box.Empty() {
		return true
	}
	for y := box.Min.Y; y < box.Max.Y; y++ {
		i := c.mask.PixOffset(box.Min.X, y)
		clear(c.mask.Pix[i : i+box.Dx()])
	}
	c.rasterize(outline)
	c.raster.Draw(c.mask, box, image.Opaque, box.Min)

	dst := c.back
	for y := box.Min.Y; y < box.Max.Y; y++ {
		for x := box.Min.X; x < box.Max.X; x++ {
			cover := c.mask.Pix[c.mask.PixOffset(x, y)]
			if cover == 0 {
				continue
			}
			u, v, ok := inv.apply(float64(x)+0.5, float64(y)+0.5)
			if !ok {
				continue
			}
			r, g, b, _ := sample(tex, math.Min(1, math.Max(0, u)), math.Min(1, math.Max(0, v)))
			a := float64(cover) / 255
			o := dst.PixOffset(x, y)
			px := dst.Pix[o : o+4 : o+4]
			px[0] = uint8(float64(px[0])*(1-a) + r*a + 0.5)
			px[1] = uint8(float64(px[1])*(1-a) + g*a + 0.5)
			px[2] = uint8(float64(px[2])*(1-a) + b*a + 0.5)
			px[3] = 0xff
		}
	}
	return true
}

func bounds(pts []point) image.Rectangle {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		minX, maxX = math.Min(minX, p.x), math.Max(maxX, p.x)
		minY, maxY = math.Min(minY, p.y), math.Max(maxY, p.y)
	}
	return image.Rect(int(math.Floor(minX)), int(math.Floor(minY)), int(math.Ceil(maxX)), int(math.Ceil(maxY)))
}

var _ session.Renderer = (*Compositor)(nil)

// NewFrame returns a pooled buffer sized for Snapshot.
func (c *Compositor) NewFrame() *image.RGBA {
	return system.GetImage(c.Bounds())
}

// ReleaseFrame returns a frame obtained from NewFrame.
func (c *Compositor) ReleaseFrame(img *image.RGBA) {
	system.PutImage(img)
}
