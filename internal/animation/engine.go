package animation

// ZoomSmoothing is the fraction of the remaining distance to the target zoom
// covered on every frame.
const ZoomSmoothing = 0.08

// Engine carries the state a preset needs between frames: the time since
// the active preset was selected and the smoothed zoom factor.
type Engine struct {
	registry *Registry
	active   PresetID
	started  bool
	elapsed  float64
	zoom     float64
}

func NewEngine(registry *Registry) *Engine {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Engine{registry: registry, zoom: 1}
}

// Step advances the engine by dt seconds and returns the pose for this frame.
// Selecting a different preset restarts its clock so intros replay. The clock
// only moves while playing; the zoom eases toward targetZoom every frame.
func (e *Engine) Step(id PresetID, dt float64, playing bool, slots SlotContext, targetZoom float64) Pose {
	if !e.started || id != e.active {
		e.active = id
		e.elapsed = 0
		e.started = true
	}
	if playing && dt > 0 {
		e.elapsed += dt
	}

	pose := e.registry.Evaluate(id, e.elapsed, slots)

	if targetZoom <= 0 {
		targetZoom = 1
	}
	e.zoom += (targetZoom - e.zoom) * ZoomSmoothing
	pose.Group.Scale = Vec3{
		X: pose.Group.Scale.X * e.zoom,
		Y: pose.Group.Scale.Y * e.zoom,
		Z: pose.Group.Scale.Z * e.zoom,
	}
	return pose
}

func (e *Engine) Active() PresetID { return e.active }

func (e *Engine) Elapsed() float64 { return e.elapsed }

func (e *Engine) Zoom() float64 { return e.zoom }

func (e *Engine) Registry() *Registry { return e.registry }
