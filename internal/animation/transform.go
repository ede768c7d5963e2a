// Package animation turns a preset identifier and the time since it became
// active into rigid transforms for the device group and its device slots.
package animation

type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Transform is a position / Euler rotation (XYZ order, radians) / scale triple.
type Transform struct {
	Position Vec3 `json:"position"`
	Rotation Vec3 `json:"rotation"`
	Scale    Vec3 `json:"scale"`
}

func Identity() Transform {
	return Transform{Scale: Vec3{1, 1, 1}}
}

// Layout selects which device slots are shown.
type Layout string

const (
	LayoutPrimary   Layout = "iphone"
	LayoutSecondary Layout = "android"
	LayoutBoth      Layout = "both"
)

func ParseLayout(s string) (Layout, bool) {
	switch Layout(s) {
	case LayoutPrimary, LayoutSecondary, LayoutBoth:
		return Layout(s), true
	}
	return "", false
}

const slotSpread = 0.8

// SlotContext describes the device slots a preset animates.
type SlotContext struct {
	ShowPrimary   bool
	ShowSecondary bool
}

func (l Layout) Slots() SlotContext {
	return SlotContext{
		ShowPrimary:   l == LayoutPrimary || l == LayoutBoth,
		ShowSecondary: l == LayoutSecondary || l == LayoutBoth,
	}
}

func (s SlotContext) Both() bool {
	return s.ShowPrimary && s.ShowSecondary
}

// BaseX returns the resting X offsets of the primary and secondary slot.
func (s SlotContext) BaseX() (float64, float64) {
	if s.Both() {
		return -slotSpread, slotSpread
	}
	return 0, 0
}

// Pose is the output of one preset evaluation. Slot transforms are nil when
// the slot is hidden.
type Pose struct {
	Group     Transform  `json:"group"`
	Primary   *Transform `json:"primary,omitempty"`
	Secondary *Transform `json:"secondary,omitempty"`
}

// restPose resets every transform to identity with slots at their base X.
func restPose(slots SlotContext) Pose {
	p := Pose{Group: Identity()}
	px, sx := slots.BaseX()
	if slots.ShowPrimary {
		t := Identity()
		t.Position.X = px
		p.Primary = &t
	}
	if slots.ShowSecondary {
		t := Identity()
		t.Position.X = sx
		p.Secondary = &t
	}
	return p
}
