package animation

import "sync"

// Registry maps preset identifiers to implementations. It is safe for
// concurrent use.
type Registry struct {
	mu       sync.RWMutex
	presets  map[PresetID]Preset
	fallback Preset
}

func NewRegistry() *Registry {
	return &Registry{
		presets:  make(map[PresetID]Preset),
		fallback: PresetFunc(idle),
	}
}

// DefaultRegistry returns a registry holding the built-in catalog.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(Showcase, PresetFunc(showcase))
	r.Register(Orbit, PresetFunc(orbit))
	r.Register(Flip, PresetFunc(flip))
	r.Register(Scroll, PresetFunc(scroll))
	r.Register(SideBySide, PresetFunc(sideBySide))
	r.Register(Single, PresetFunc(single))
	r.Register(SlideLeft, slide(-1, 0, false))
	r.Register(SlideRight, slide(1, 0, false))
	r.Register(SlideDown, slide(0, 1, false))
	r.Register(SlideUp, slide(0, -1, false))
	r.Register(SlideRightRotate, slide(1, 0, true))
	r.Register(SlideLeftRotate, slide(-1, 0, true))
	return r
}

func (r *Registry) Register(id PresetID, p Preset) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.presets[id] = p
}

// Lookup returns the preset for id. The second result is false when id is
// unknown; the returned preset is then the idle fallback.
func (r *Registry) Lookup(id PresetID) (Preset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.presets[id]; ok {
		return p, true
	}
	return r.fallback, false
}

func (r *Registry) Has(id PresetID) bool {
	_, ok := r.Lookup(id)
	return ok
}

// Evaluate is a shorthand for Lookup(id) followed by Pose.
func (r *Registry) Evaluate(id PresetID, t float64, slots SlotContext) Pose {
	p, _ := r.Lookup(id)
	return p.Pose(t, slots)
}
