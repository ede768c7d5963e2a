// Package project reads and writes mockup projects: the list of screens
// with per-clip overrides, zoom effects and the look of the recording.
package project

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/mockupreel/internal/animation"
	"github.com/ivlev/mockupreel/internal/assets"
	"github.com/ivlev/mockupreel/internal/config"
	"github.com/ivlev/mockupreel/internal/session"
	"github.com/ivlev/mockupreel/internal/timeline"
)

const Version = "1"

// Project is the YAML document.
type Project struct {
	Version    string  `yaml:"version"`
	Preset     string  `yaml:"preset,omitempty"`
	Layout     string  `yaml:"layout,omitempty"`
	Quality    string  `yaml:"quality,omitempty"`
	Background string  `yaml:"background,omitempty"`
	Gradient   bool    `yaml:"gradient,omitempty"`
	Screens    []Entry `yaml:"screens"`
	Zooms      []Zoom  `yaml:"zooms,omitempty"`

	dir string
}

// Entry is one input. A PDF input expands into one clip per page unless
// Page selects a single one.
type Entry struct {
	Input     string  `yaml:"input,omitempty"`
	QR        string  `yaml:"qr,omitempty"`
	Page      int     `yaml:"page,omitempty"`     // 1-based
	Duration  float64 `yaml:"duration,omitempty"` // seconds on the timeline
	TrimStart float64 `yaml:"trim_start,omitempty"`
	Animation string  `yaml:"animation,omitempty"`
}

type Zoom struct {
	Start float64 `yaml:"start"`
	End   float64 `yaml:"end"`
	Level float64 `yaml:"level,omitempty"`
}

// Importer is what Apply needs to turn entries into screens.
type Importer interface {
	Import(ctx context.Context, paths []string) ([]assets.Imported, error)
	ImportQR(text string, size int) (assets.Imported, error)
}

// Write writes a project to a YAML file.
func Write(p *Project, path string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Read reads a project from a YAML file. Relative inputs are resolved
// against the file's directory.
func Read(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var p Project
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	p.dir = filepath.Dir(path)
	return &p, nil
}

func (p *Project) Validate() error {
	if p.Version != "" && p.Version != Version {
		return fmt.Errorf("unsupported project version %q", p.Version)
	}
	if p.Preset != "" && !animation.DefaultRegistry().Has(animation.PresetID(p.Preset)) {
		return fmt.Errorf("unknown preset %q", p.Preset)
	}
	if p.Layout != "" {
		if _, ok := animation.ParseLayout(p.Layout); !ok {
			return fmt.Errorf("unknown layout %q", p.Layout)
		}
	}
	if p.Quality != "" {
		if _, err := config.ParseQuality(p.Quality); err != nil {
			return err
		}
	}
	if p.Background != "" {
		if _, err := config.ParseHexColor(p.Background); err != nil {
			return err
		}
	}
	for i, e := range p.Screens {
		if (e.Input == "") == (e.QR == "") {
			return fmt.Errorf("screen %d: exactly one of input and qr is required", i+1)
		}
		if !finite(e.Duration) || !finite(e.TrimStart) {
			return fmt.Errorf("screen %d: duration and trim must be finite", i+1)
		}
		if e.Duration < 0 || e.TrimStart < 0 || e.Page < 0 {
			return fmt.Errorf("screen %d: negative duration, trim or page", i+1)
		}
	}
	for i, z := range p.Zooms {
		if !finite(z.Start) || !finite(z.End) || !finite(z.Level) {
			return fmt.Errorf("zoom %d: start, end and level must be finite", i+1)
		}
		if z.Start < 0 || z.Level < 0 {
			return fmt.Errorf("zoom %d: negative start or level", i+1)
		}
		if z.Start > z.End {
			return fmt.Errorf("zoom %d: start %.2f is after end %.2f", i+1, z.Start, z.End)
		}
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func (p *Project) resolve(input string) string {
	if p.dir == "" || filepath.IsAbs(input) {
		return input
	}
	return filepath.Join(p.dir, input)
}

// Apply loads the project into s: look first, then screens in order, then
// per-clip overrides once video durations are known, then zoom effects.
func (p *Project) Apply(ctx context.Context, s *session.EditorSession, im Importer) error {
	if p.Preset != "" {
		if err := s.SetPreset(animation.PresetID(p.Preset)); err != nil {
			return err
		}
	}
	if p.Layout != "" {
		if err := s.SetLayout(animation.Layout(p.Layout)); err != nil {
			return err
		}
	}
	if p.Background != "" {
		c, err := config.ParseHexColor(p.Background)
		if err != nil {
			return err
		}
		s.SetBackground(c, p.Gradient)
	}

	owner := make(map[string]int)
	for i, e := range p.Screens {
		items, err := p.importEntry(ctx, e, im)
		if err != nil {
			return fmt.Errorf("screen %d: %w", i+1, err)
		}
		added, err := s.AddImported(items)
		if err != nil {
			return fmt.Errorf("screen %d: %w", i+1, err)
		}
		for _, sc := range added {
			owner[sc.ID] = i
		}
	}
	if err := s.WaitProbes(ctx); err != nil {
		return err
	}

	for _, c := range s.Snapshot().Clips {
		i, ok := owner[c.ScreenID]
		if !ok {
			continue
		}
		patch, ok := p.Screens[i].patch(c)
		if !ok {
			continue
		}
		if _, err := s.UpdateClip(c.ID, patch); err != nil {
			return fmt.Errorf("screen %d: %w", i+1, err)
		}
	}

	for i, z := range p.Zooms {
		if _, err := s.AddZoomEffect(z.Start, z.End, z.Level); err != nil {
			return fmt.Errorf("zoom %d: %w", i+1, err)
		}
	}
	return nil
}

func (p *Project) importEntry(ctx context.Context, e Entry, im Importer) ([]assets.Imported, error) {
	if e.QR != "" {
		item, err := im.ImportQR(e.QR, 0)
		if err != nil {
			return nil, err
		}
		return []assets.Imported{item}, nil
	}

	items, err := im.Import(ctx, []string{p.resolve(e.Input)})
	if err != nil {
		return nil, err
	}
	if e.Page == 0 {
		return items, nil
	}
	suffix := fmt.Sprintf("#page=%d", e.Page)
	var kept []assets.Imported
	for _, it := range items {
		if strings.HasSuffix(it.Screen.URL, suffix) {
			kept = append(kept, it)
		} else if it.Release != nil {
			it.Release()
		}
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("%s has no page %d", e.Input, e.Page)
	}
	return kept, nil
}

// patch turns the entry overrides into a clip update for c.
func (e Entry) patch(c timeline.Clip) (timeline.ClipPatch, bool) {
	var patch timeline.ClipPatch
	changed := false
	if e.TrimStart > 0 {
		ts := e.TrimStart
		patch.TrimStart = &ts
		if e.Duration == 0 {
			d := c.TrimEnd - ts
			patch.Duration = &d
		}
		changed = true
	}
	if e.Duration > 0 {
		d := e.Duration
		end := e.TrimStart + d
		patch.Duration = &d
		patch.TrimEnd = &end
		changed = true
	}
	if e.Animation != "" {
		a := e.Animation
		patch.Animation = &a
		changed = true
	}
	return patch, changed
}

// FromState describes the session as a project. QR screens are not
// included since their text is not kept.
func FromState(st session.State, quality config.Quality) (*Project, error) {
	p := &Project{
		Version:    Version,
		Preset:     string(st.Preset),
		Layout:     string(st.Layout),
		Quality:    string(quality),
		Background: st.Background,
		Gradient:   st.Gradient,
	}
	screens := make(map[string]assets.Screen, len(st.Screens))
	for _, sc := range st.Screens {
		screens[sc.ID] = sc
	}
	for _, c := range st.Clips {
		sc, ok := screens[c.ScreenID]
		if !ok || strings.HasPrefix(sc.Name, "QR ") {
			continue
		}
		p.Screens = append(p.Screens, Entry{
			Input:     sc.Path,
			Page:      pageOf(sc.URL),
			Duration:  c.Duration,
			TrimStart: c.TrimStart,
			Animation: c.Animation,
		})
	}
	for _, z := range st.Zooms {
		p.Zooms = append(p.Zooms, Zoom{Start: z.StartTime, End: z.EndTime, Level: z.ZoomLevel})
	}
	if len(p.Screens) == 0 {
		return nil, errors.New("nothing to save: no file-backed clips")
	}
	return p, nil
}

func pageOf(url string) int {
	i := strings.LastIndex(url, "#page=")
	if i < 0 {
		return 0
	}
	var n int
	if _, err := fmt.Sscanf(url[i:], "#page=%d", &n); err != nil {
		return 0
	}
	return n
}

// Marshal returns the YAML form of p.
func Marshal(p *Project) ([]byte, error) {
	return yaml.Marshal(p)
}
