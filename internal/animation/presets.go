package animation

import "math"

type PresetID string

const (
	Showcase         PresetID = "showcase"
	Orbit            PresetID = "orbit"
	Flip             PresetID = "flip"
	Scroll           PresetID = "scroll"
	SideBySide       PresetID = "sideBySide"
	Single           PresetID = "single"
	SlideLeft        PresetID = "slideLeft"
	SlideRight       PresetID = "slideRight"
	SlideDown        PresetID = "slideDown"
	SlideUp          PresetID = "slideUp"
	SlideRightRotate PresetID = "slideRightRotate"
	SlideLeftRotate  PresetID = "slideLeftRotate"
)

// Catalog lists the built-in presets in display order.
var Catalog = []PresetID{
	Showcase, Orbit, Flip, Scroll, SideBySide, Single,
	SlideLeft, SlideRight, SlideDown, SlideUp, SlideRightRotate, SlideLeftRotate,
}

// Preset maps the time since activation to a pose. Implementations must be
// pure: the same inputs always give the same pose.
type Preset interface {
	Pose(t float64, slots SlotContext) Pose
}

// PresetFunc adapts a plain function to Preset.
type PresetFunc func(t float64, slots SlotContext) Pose

func (f PresetFunc) Pose(t float64, slots SlotContext) Pose {
	return f(t, slots)
}

func showcase(t float64, slots SlotContext) Pose {
	p := restPose(slots)
	both := slots.Both()
	p.Group.Rotation.Y = SmoothSin(t, 0.25, 0.35)
	p.Group.Rotation.X = SmoothSin(t, 0.18, 0.05)
	p.Group.Position.Y = SmoothSin(t, 0.35, 0.1)

	if s := p.Primary; s != nil {
		s.Rotation.Y = pick(both, 0.2) + SmoothSin(t, 0.3, 0.04)
		s.Position.Y = SmoothSin(t+0.5, 0.4, 0.03)
	}
	if s := p.Secondary; s != nil {
		s.Rotation.Y = pick(both, -0.2) + SmoothSin(t+1, 0.28, 0.04)
		s.Position.Y = SmoothSin(t+1.0, 0.4, 0.03)
	}
	return p
}

func orbit(t float64, slots SlotContext) Pose {
	p := restPose(slots)
	both := slots.Both()
	p.Group.Rotation.Y = t * 0.4
	p.Group.Position.Y = SmoothSin(t, 0.5, 0.06)
	p.Group.Rotation.X = SmoothSin(t, 0.3, 0.03)

	if s := p.Primary; s != nil {
		s.Rotation.Y = pick(both, 0.2)
	}
	if s := p.Secondary; s != nil {
		s.Rotation.Y = pick(both, -0.2)
	}
	return p
}

const (
	flipIntro   = 2.2
	flipStagger = 0.4
)

func flip(t float64, slots SlotContext) Pose {
	p := restPose(slots)
	both := slots.Both()
	px, sx := slots.BaseX()

	if t < flipIntro+flipStagger {
		progress := EaseOutBack(t / flipIntro)
		settle := EaseOutCubic(t / flipIntro)
		p.Group.Rotation.Y = (1 - progress) * math.Pi * 1.2
		p.Group.Position.Y = (1 - settle) * 1.2
		p.Group.Rotation.X = (1 - settle) * 0.3

		if s := p.Primary; s != nil && both {
			sp := EaseOutBack(math.Max(0, t) / flipIntro)
			s.Position.X = px - (1-sp)*2
			s.Rotation.Y = 0.2 + (1-sp)*0.4
		}
		if s := p.Secondary; s != nil && both {
			sp := EaseOutBack(math.Max(0, t-flipStagger) / flipIntro)
			s.Position.X = sx + (1-sp)*2
			s.Rotation.Y = -0.2 - (1-sp)*0.4
		}
		return p
	}

	post := t - flipIntro - flipStagger
	p.Group.Rotation.Y = SmoothSin(post, 0.22, 0.3)
	p.Group.Rotation.X = SmoothSin(post, 0.15, 0.04)
	p.Group.Position.Y = SmoothSin(post, 0.3, 0.08)

	if s := p.Primary; s != nil {
		s.Position.X = px
		s.Rotation.Y = pick(both, 0.2) + SmoothSin(post, 0.25, 0.03)
	}
	if s := p.Secondary; s != nil {
		s.Position.X = sx
		s.Rotation.Y = pick(both, -0.2) + SmoothSin(post+0.5, 0.25, 0.03)
	}
	return p
}

func scroll(t float64, slots SlotContext) Pose {
	p := restPose(slots)
	both := slots.Both()
	p.Group.Rotation.Y = SmoothSin(t, 0.18, 0.2)
	p.Group.Rotation.X = SmoothSin(t, 0.12, 0.06)
	p.Group.Position.Y = SmoothSin(t, 0.2, 0.15)

	if s := p.Primary; s != nil {
		s.Rotation.Y = pick(both, 0.15) + SmoothSin(t, 0.2, 0.03)
		s.Position.Y = SmoothSin(t+0.3, 0.25, 0.04)
	}
	if s := p.Secondary; s != nil {
		s.Rotation.Y = pick(both, -0.15) + SmoothSin(t+0.5, 0.2, 0.03)
		s.Position.Y = SmoothSin(t+0.8, 0.25, 0.04)
	}
	return p
}

const sideBySideIntro = 1.8

func sideBySide(t float64, slots SlotContext) Pose {
	p := restPose(slots)
	both := slots.Both()
	px, sx := slots.BaseX()
	eased := EaseOutQuart(math.Min(1, t/sideBySideIntro))

	p.Group.Rotation.Y = SmoothSin(t, 0.2, 0.2)
	p.Group.Rotation.X = SmoothSin(t, 0.14, 0.04)
	p.Group.Position.Y = SmoothSin(t, 0.3, 0.06)

	if s := p.Primary; s != nil && both {
		spread := -1.2 - SmoothSin(t, 0.15, 0.1)
		s.Position.X = px + (spread-px)*eased
		s.Rotation.Y = 0.3*eased + SmoothSin(t, 0.25, 0.05)
		s.Rotation.Z = SmoothSin(t+0.3, 0.2, 0.02)
		s.Position.Y = SmoothSin(t, 0.35, 0.04)
	}
	if s := p.Secondary; s != nil && both {
		spread := 1.2 + SmoothSin(t, 0.15, 0.1)
		s.Position.X = sx + (spread-sx)*eased
		s.Rotation.Y = -0.3*eased + SmoothSin(t+1, 0.25, 0.05)
		s.Rotation.Z = SmoothSin(t+0.8, 0.2, -0.02)
		s.Position.Y = SmoothSin(t+0.5, 0.35, 0.04)
	}
	return p
}

func single(t float64, slots SlotContext) Pose {
	p := restPose(slots)
	both := slots.Both()
	p.Group.Rotation.Y = SmoothSin(t, 0.15, 0.4)
	p.Group.Rotation.X = SmoothSin(t, 0.1, 0.06)
	p.Group.Position.Y = SmoothSin(t, 0.2, 0.1)

	scale := 1.0 + SmoothSin(t, 0.2, 0.03)
	p.Group.Scale = Vec3{scale, scale, scale}

	if s := p.Primary; s != nil {
		s.Rotation.Y = pick(both, 0.15) + SmoothSin(t, 0.18, 0.03)
	}
	if s := p.Secondary; s != nil {
		s.Rotation.Y = pick(both, -0.15) + SmoothSin(t+0.5, 0.18, 0.03)
	}
	return p
}

const (
	slideDistance      = 4.0
	slideIntro         = 1.8
	slideRotateIntro   = 2.0
	slideRotationAngle = math.Pi * 0.5
)

// slide builds one of the slide-in presets. dirX/dirY give the off-screen
// start direction; rotate adds the quarter-turn around Y for the rotate
// variants. Ambient wobble is always added so it blends in during the intro.
func slide(dirX, dirY float64, rotate bool) PresetFunc {
	intro := slideIntro
	if rotate {
		intro = slideRotateIntro
	}
	return func(t float64, slots SlotContext) Pose {
		p := restPose(slots)
		remaining := 1 - EaseOutCubic(math.Min(1, t/intro))

		p.Group.Position.X = dirX * slideDistance * remaining
		p.Group.Position.Y = dirY*slideDistance*remaining + SmoothSin(t, 0.3, 0.06)

		switch {
		case rotate:
			p.Group.Rotation.Y = dirX*slideRotationAngle*remaining + SmoothSin(t, 0.2, 0.08)
		case dirX != 0:
			p.Group.Rotation.Y = SmoothSin(t, 0.2, 0.08)
		default:
			p.Group.Rotation.X = SmoothSin(t, 0.2, 0.04)
		}
		return p
	}
}

// idle is used for identifiers missing from the registry.
func idle(t float64, slots SlotContext) Pose {
	p := restPose(slots)
	p.Group.Rotation.Y = SmoothSin(t, 0.3, 0.3)
	p.Group.Position.Y = SmoothSin(t, 0.4, 0.08)
	return p
}

func pick(cond bool, v float64) float64 {
	if cond {
		return v
	}
	return 0
}
