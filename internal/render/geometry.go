package render

import (
	"math"

	"github.com/ivlev/mockupreel/internal/animation"
)

type vec3 struct{ x, y, z float64 }

func fromVec(v animation.Vec3) vec3 { return vec3{v.X, v.Y, v.Z} }

func (a vec3) add(b vec3) vec3 { return vec3{a.x + b.x, a.y + b.y, a.z + b.z} }
func (a vec3) sub(b vec3) vec3 { return vec3{a.x - b.x, a.y - b.y, a.z - b.z} }
func (a vec3) mul(s float64) vec3 { return vec3{a.x * s, a.y * s, a.z * s} }
func (a vec3) dot(b vec3) float64 { return a.x*b.x + a.y*b.y + a.z*b.z }
func (a vec3) cross(b vec3) vec3 {
	return vec3{a.y*b.z - a.z*b.y, a.z*b.x - a.x*b.z, a.x*b.y - a.y*b.x}
}

func (a vec3) normalize() vec3 {
	l := math.Sqrt(a.dot(a))
	if l == 0 {
		return a
	}
	return a.mul(1 / l)
}

// rotateXYZ applies Euler angles in XYZ order: v' = Rx * Ry * Rz * v.
func rotateXYZ(v vec3, r animation.Vec3) vec3 {
	sz, cz := math.Sincos(r.Z)
	v = vec3{v.x*cz - v.y*sz, v.x*sz + v.y*cz, v.z}
	sy, cy := math.Sincos(r.Y)
	v = vec3{v.x*cy + v.z*sy, v.y, -v.x*sy + v.z*cy}
	sx, cx := math.Sincos(r.X)
	return vec3{v.x, v.y*cx - v.z*sx, v.y*sx + v.z*cx}
}

func apply(t animation.Transform, v vec3) vec3 {
	v = vec3{v.x * t.Scale.X, v.y * t.Scale.Y, v.z * t.Scale.Z}
	return rotateXYZ(v, t.Rotation).add(fromVec(t.Position))
}

// model maps device-local points into world space.
type model struct {
	group animation.Transform
	slot  animation.Transform
}

func (m model) world(v vec3) vec3 {
	return apply(m.group, apply(m.slot, v.mul(DeviceScale)))
}

type point struct{ x, y float64 }

// camera is a pinhole projection onto a width x height viewport.
type camera struct {
	eye                   vec3
	right, up, forward    vec3
	focal                 float64
	halfWidth, halfHeight float64
}

const nearPlane = 0.05

func newCamera(pose animation.CameraPose, width, height int) camera {
	eye := fromVec(pose.Position)
	forward := fromVec(pose.LookAt).sub(eye).normalize()
	right := forward.cross(vec3{0, 1, 0}).normalize()
	up := right.cross(forward)
	fov := pose.FOV
	if fov <= 0 {
		fov = animation.CameraFOV
	}
	half := float64(height) / 2
	return camera{
		eye:        eye,
		right:      right,
		up:         up,
		forward:    forward,
		focal:      half / math.Tan(fov*math.Pi/360),
		halfWidth:  float64(width) / 2,
		halfHeight: half,
	}
}

// depth is the distance along the view direction.
func (c camera) depth(p vec3) float64 {
	return p.sub(c.eye).dot(c.forward)
}

func (c camera) project(p vec3) (point, bool) {
	d := p.sub(c.eye)
	z := d.dot(c.forward)
	if z < nearPlane {
		return point{}, false
	}
	return point{
		x: c.halfWidth + d.dot(c.right)*c.focal/z,
		y: c.halfHeight - d.dot(c.up)*c.focal/z,
	}, true
}

// roundedRect samples the outline of a w x h rectangle with corner radius r
// centred on (cx, cy), clockwise as seen from the front, starting at the
// top edge.
func roundedRect(cx, cy, w, h, r float64) []point {
	const steps = 6
	r = math.Min(r, math.Min(w, h)/2)
	x0, x1 := cx-w/2, cx+w/2
	y0, y1 := cy-h/2, cy+h/2
	corners := []struct {
		x, y, from float64
	}{
		{x1 - r, y1 - r, 0},                // top right
		{x1 - r, y0 + r, -math.Pi / 2},     // bottom right
		{x0 + r, y0 + r, -math.Pi},         // bottom left
		{x0 + r, y1 - r, -3 * math.Pi / 2}, // top left
	}
	out := make([]point, 0, 4*(steps+1))
	for _, c := range corners {
		for i := 0; i <= steps; i++ {
			a := c.from + math.Pi/2 - float64(i)*math.Pi/2/steps
			out = append(out, point{c.x + r*math.Cos(a), c.y + r*math.Sin(a)})
		}
	}
	return out
}

// homography maps the unit square onto a quad given in the order
// (0,0) (1,0) (1,1) (0,1).
type homography [9]float64

func squareToQuad(q [4]point) (homography, bool) {
	x0, y0 := q[0].x, q[0].y
	x1, y1 := q[1].x, q[1].y
	x2, y2 := q[2].x, q[2].y
	x3, y3 := q[3].x, q[3].y

	sx := x0 - x1 + x2 - x3
	sy := y0 - y1 + y2 - y3
	var g, h float64
	if sx != 0 || sy != 0 {
		dx1, dx2 := x1-x2, x3-x2
		dy1, dy2 := y1-y2, y3-y2
		det := dx1*dy2 - dx2*dy1
		if det == 0 {
			return homography{}, false
		}
		g = (sx*dy2 - dx2*sy) / det
		h = (dx1*sy - sx*dy1) / det
	}
	return homography{
		x1 - x0 + g*x1, x3 - x0 + h*x3, x0,
		y1 - y0 + g*y1, y3 - y0 + h*y3, y0,
		g, h, 1,
	}, true
}

func (m homography) invert() (homography, bool) {
	a, b, c := m[0], m[1], m[2]
	d, e, f := m[3], m[4], m[5]
	g, h, i := m[6], m[7], m[8]
	A := e*i - f*h
	B := -(d*i - f*g)
	C := d*h - e*g
	det := a*A + b*B + c*C
	if math.Abs(det) < 1e-12 {
		return homography{}, false
	}
	inv := 1 / det
	return homography{
		A * inv, -(b*i - c*h) * inv, (b*f - c*e) * inv,
		B * inv, (a*i - c*g) * inv, -(a*f - c*d) * inv,
		C * inv, -(a*h - b*g) * inv, (a*e - b*d) * inv,
	}, true
}

func (m homography) apply(x, y float64) (float64, float64, bool) {
	w := m[6]*x + m[7]*y + m[8]
	if w == 0 {
		return 0, 0, false
	}
	return (m[0]*x + m[1]*y + m[2]) / w, (m[3]*x + m[4]*y + m[5]) / w, true
}

// signedArea is positive for outlines that run clockwise on screen.
func signedArea(pts []point) float64 {
	sum := 0.0
	for i := range pts {
		j := (i + 1) % len(pts)
		sum += pts[i].x*pts[j].y - pts[j].x*pts[i].y
	}
	return sum / 2
}
