package animation

import (
	"math"
	"testing"
)

const eps = 1e-9

func near(a, b float64) bool {
	return math.Abs(a-b) < eps
}

func TestEasingEndpoints(t *testing.T) {
	curves := map[string]func(float64) float64{
		"EaseOutCubic":   EaseOutCubic,
		"EaseOutQuart":   EaseOutQuart,
		"EaseInOutCubic": EaseInOutCubic,
		"EaseOutBack":    EaseOutBack,
	}
	for name, f := range curves {
		if got := f(0); !near(got, 0) {
			t.Errorf("%s(0) = %f, want 0", name, got)
		}
		if got := f(1); !near(got, 1) {
			t.Errorf("%s(1) = %f, want 1", name, got)
		}
		if got := f(-3); !near(got, 0) {
			t.Errorf("%s(-3) = %f, want clamp to 0", name, got)
		}
		if got := f(7); !near(got, 1) {
			t.Errorf("%s(7) = %f, want clamp to 1", name, got)
		}
	}
}

func TestEaseOutBackOvershoots(t *testing.T) {
	peak := 0.0
	for i := 0; i <= 100; i++ {
		peak = math.Max(peak, EaseOutBack(float64(i)/100))
	}
	if peak <= 1 {
		t.Errorf("EaseOutBack peak = %f, want > 1", peak)
	}
}

func TestPresetsAreDeterministic(t *testing.T) {
	r := DefaultRegistry()
	for _, id := range Catalog {
		for _, layout := range []Layout{LayoutPrimary, LayoutSecondary, LayoutBoth} {
			for _, at := range []float64{0, 0.37, 1.8, 2.6, 9.5} {
				a := r.Evaluate(id, at, layout.Slots())
				b := r.Evaluate(id, at, layout.Slots())
				if a.Group != b.Group {
					t.Fatalf("%s at %f: group differs between calls", id, at)
				}
				if (a.Primary == nil) != (b.Primary == nil) || (a.Primary != nil && *a.Primary != *b.Primary) {
					t.Fatalf("%s at %f: primary slot differs between calls", id, at)
				}
			}
		}
	}
}

func TestCatalogRegistered(t *testing.T) {
	r := DefaultRegistry()
	for _, id := range Catalog {
		if !r.Has(id) {
			t.Errorf("preset %s not registered", id)
		}
	}
	if r.Has("nope") {
		t.Error("unknown preset reported as registered")
	}
}

func TestUnknownPresetFallsBackToIdle(t *testing.T) {
	r := DefaultRegistry()
	p := r.Evaluate("nope", 2, LayoutPrimary.Slots())
	if !near(p.Group.Rotation.Y, SmoothSin(2, 0.3, 0.3)) {
		t.Errorf("rotY = %f, want idle sway", p.Group.Rotation.Y)
	}
	if !near(p.Group.Position.Y, SmoothSin(2, 0.4, 0.08)) {
		t.Errorf("posY = %f, want idle bob", p.Group.Position.Y)
	}
}

func TestSlotsFollowLayout(t *testing.T) {
	r := DefaultRegistry()
	tests := []struct {
		layout          Layout
		primary, second bool
		baseX           float64
	}{
		{LayoutPrimary, true, false, 0},
		{LayoutSecondary, false, true, 0},
		{LayoutBoth, true, true, -0.8},
	}
	for _, tc := range tests {
		p := r.Evaluate(Orbit, 1, tc.layout.Slots())
		if (p.Primary != nil) != tc.primary || (p.Secondary != nil) != tc.second {
			t.Errorf("%s: slots = %v/%v, want %v/%v", tc.layout, p.Primary != nil, p.Secondary != nil, tc.primary, tc.second)
			continue
		}
		if p.Primary != nil && !near(p.Primary.Position.X, tc.baseX) {
			t.Errorf("%s: primary x = %f, want %f", tc.layout, p.Primary.Position.X, tc.baseX)
		}
	}
}

func TestSlidePresets(t *testing.T) {
	r := DefaultRegistry()
	slots := LayoutPrimary.Slots()

	tests := []struct {
		id        PresetID
		startX    float64
		startY    float64
		startRotY float64
		introLen  float64
	}{
		{SlideLeft, -4, 0, 0, 1.8},
		{SlideRight, 4, 0, 0, 1.8},
		{SlideDown, 0, 4, 0, 1.8},
		{SlideUp, 0, -4, 0, 1.8},
		{SlideRightRotate, 4, 0, math.Pi / 2, 2.0},
		{SlideLeftRotate, -4, 0, -math.Pi / 2, 2.0},
	}
	for _, tc := range tests {
		t.Run(string(tc.id), func(t *testing.T) {
			p := r.Evaluate(tc.id, 0, slots)
			if !near(p.Group.Position.X, tc.startX) || !near(p.Group.Position.Y, tc.startY) {
				t.Errorf("start position = (%f, %f), want (%f, %f)", p.Group.Position.X, p.Group.Position.Y, tc.startX, tc.startY)
			}
			if !near(p.Group.Rotation.Y, tc.startRotY) {
				t.Errorf("start rotY = %f, want %f", p.Group.Rotation.Y, tc.startRotY)
			}

			// After the intro only the ambient wobble remains.
			end := tc.introLen + 0.5
			p = r.Evaluate(tc.id, end, slots)
			if !near(p.Group.Position.X, 0) {
				t.Errorf("x after intro = %f, want 0", p.Group.Position.X)
			}
			if !near(p.Group.Position.Y, SmoothSin(end, 0.3, 0.06)) {
				t.Errorf("y after intro = %f, want wobble only", p.Group.Position.Y)
			}
		})
	}
}

func TestFlipIntroStartsRotated(t *testing.T) {
	r := DefaultRegistry()
	p := r.Evaluate(Flip, 0, LayoutBoth.Slots())
	if !near(p.Group.Rotation.Y, math.Pi*1.2) {
		t.Errorf("rotY at 0 = %f, want 1.2π", p.Group.Rotation.Y)
	}
	if !near(p.Group.Position.Y, 1.2) {
		t.Errorf("posY at 0 = %f, want 1.2", p.Group.Position.Y)
	}
	if !near(p.Primary.Position.X, -2.8) || !near(p.Secondary.Position.X, 2.8) {
		t.Errorf("slots at 0 = %f / %f, want -2.8 / 2.8", p.Primary.Position.X, p.Secondary.Position.X)
	}

	// Past the intro the slots sit at their base offsets.
	p = r.Evaluate(Flip, 3, LayoutBoth.Slots())
	if !near(p.Primary.Position.X, -0.8) || !near(p.Secondary.Position.X, 0.8) {
		t.Errorf("slots after intro = %f / %f", p.Primary.Position.X, p.Secondary.Position.X)
	}
}

func TestSideBySideSpreadsOnlyWithBothSlots(t *testing.T) {
	r := DefaultRegistry()
	p := r.Evaluate(SideBySide, 5, LayoutBoth.Slots())
	want := -1.2 - SmoothSin(5, 0.15, 0.1)
	if !near(p.Primary.Position.X, want) {
		t.Errorf("primary x = %f, want %f", p.Primary.Position.X, want)
	}

	p = r.Evaluate(SideBySide, 5, LayoutPrimary.Slots())
	if !near(p.Primary.Position.X, 0) || p.Primary.Rotation.Y != 0 {
		t.Errorf("single slot moved: %+v", *p.Primary)
	}
}

func TestEngineResetsClockOnPresetChange(t *testing.T) {
	e := NewEngine(nil)
	slots := LayoutPrimary.Slots()

	e.Step(Showcase, 0.5, true, slots, 1)
	e.Step(Showcase, 0.5, true, slots, 1)
	if !near(e.Elapsed(), 1) {
		t.Fatalf("Elapsed() = %f, want 1", e.Elapsed())
	}

	e.Step(Orbit, 0.25, true, slots, 1)
	if !near(e.Elapsed(), 0.25) {
		t.Errorf("Elapsed() after preset change = %f, want 0.25", e.Elapsed())
	}

	e.Step(Orbit, 1, false, slots, 1)
	if !near(e.Elapsed(), 0.25) {
		t.Errorf("Elapsed() advanced while paused: %f", e.Elapsed())
	}
}

func TestEngineZoomSmoothing(t *testing.T) {
	e := NewEngine(nil)
	slots := LayoutPrimary.Slots()

	p := e.Step(SlideLeft, 0, false, slots, 2)
	if !near(e.Zoom(), 1.08) {
		t.Fatalf("Zoom() = %f, want 1.08", e.Zoom())
	}
	if !near(p.Group.Scale.X, 1.08) {
		t.Errorf("group scale = %f, want 1.08", p.Group.Scale.X)
	}

	for i := 0; i < 300; i++ {
		e.Step(SlideLeft, 0, false, slots, 2)
	}
	if math.Abs(e.Zoom()-2) > 1e-6 {
		t.Errorf("Zoom() after settling = %f, want 2", e.Zoom())
	}

	// The single preset breathes its own scale; zoom multiplies it.
	e = NewEngine(nil)
	p = e.Step(Single, 1, true, slots, 1)
	if !near(p.Group.Scale.Y, 1+SmoothSin(1, 0.2, 0.03)) {
		t.Errorf("single scale = %f", p.Group.Scale.Y)
	}
}

func TestCamera(t *testing.T) {
	c := NewCamera()

	pose := c.Step(Scroll, 1, true)
	if !near(pose.Position.Z, CameraDistance+SmoothSin(1, 0.2, 0.25)) {
		t.Errorf("scroll camera z = %f", pose.Position.Z)
	}

	held := c.Step(Scroll, 1, false)
	if held != pose {
		t.Errorf("camera moved while paused: %+v -> %+v", pose, held)
	}

	pose = c.Step(Single, 10, true)
	radius := CameraDistance - 0.4
	if !near(pose.Position.X, math.Sin(2.5)*radius*0.1) {
		t.Errorf("single camera x = %f", pose.Position.X)
	}

	// Other presets ease back to rest.
	c = NewCamera()
	c.Step(Scroll, 3, true)
	pose = c.Step(Orbit, 0.016, true)
	if pose.Position != DefaultCameraPose().Position {
		t.Errorf("preset change did not snap camera to rest: %+v", pose.Position)
	}
}
