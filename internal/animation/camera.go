package animation

import "math"

const (
	CameraDistance = 2.5
	CameraFOV      = 50.0

	cameraEase        = 0.05
	singleCameraIntro = 2.5
)

// CameraPose is the camera position and the point it looks at.
type CameraPose struct {
	Position Vec3    `json:"position"`
	LookAt   Vec3    `json:"look_at"`
	FOV      float64 `json:"fov"`
}

func DefaultCameraPose() CameraPose {
	return CameraPose{Position: Vec3{Z: CameraDistance}, FOV: CameraFOV}
}

// Camera moves the viewpoint for the presets that animate it. Other presets
// ease the camera back to its rest position.
type Camera struct {
	active  PresetID
	started bool
	elapsed float64
	pose    CameraPose
}

func NewCamera() *Camera {
	return &Camera{pose: DefaultCameraPose()}
}

// Step returns the camera pose for this frame. A preset change snaps the
// camera to rest and restarts its clock. While paused the camera holds.
func (c *Camera) Step(id PresetID, dt float64, playing bool) CameraPose {
	if !c.started || id != c.active {
		c.active = id
		c.started = true
		c.elapsed = 0
		c.pose = DefaultCameraPose()
	}
	if !playing {
		return c.pose
	}
	if dt > 0 {
		c.elapsed += dt
	}
	t := c.elapsed

	switch id {
	case Scroll:
		c.pose.Position = Vec3{
			X: SmoothSin(t, 0.12, 0.1),
			Y: SmoothSin(t, 0.15, 0.2),
			Z: CameraDistance + SmoothSin(t, 0.2, 0.25),
		}
		c.pose.LookAt = Vec3{Y: SmoothSin(t, 0.15, 0.08)}
	case Single:
		radius := CameraDistance - EaseOutCubic(math.Min(1, t/singleCameraIntro))*0.4
		angle := t * 0.25
		c.pose.Position = Vec3{
			X: math.Sin(angle) * radius * 0.1,
			Y: SmoothSin(t, 0.2, 0.1),
			Z: radius + SmoothSin(t, 0.15, 0.1),
		}
		c.pose.LookAt = Vec3{Y: SmoothSin(t, 0.12, 0.05)}
	default:
		rest := DefaultCameraPose().Position
		c.pose.Position = Vec3{
			X: Lerp(c.pose.Position.X, rest.X, cameraEase),
			Y: Lerp(c.pose.Position.Y, rest.Y, cameraEase),
			Z: Lerp(c.pose.Position.Z, rest.Z, cameraEase),
		}
		c.pose.LookAt = Vec3{}
	}
	return c.pose
}
