// Package assets keeps the user's imported screens: screenshots, PDF pages
// and video recordings that the timeline clips point at.
package assets

import (
	"errors"
	"fmt"
	"image"
)

var (
	ErrScreenNotFound  = errors.New("screen not found")
	ErrIndexOutOfRange = errors.New("index out of range")
)

// Screen is one importable media item. It is immutable once registered.
type Screen struct {
	ID      string      `json:"id"`
	Path    string      `json:"path"`
	URL     string      `json:"url"`
	Name    string      `json:"name"`
	IsVideo bool        `json:"is_video"`
	Width   int         `json:"width,omitempty"`
	Height  int         `json:"height,omitempty"`
	Still   image.Image `json:"-"`
}

type entry struct {
	screen   Screen
	releases []func()
}

// Registry owns screen lifetimes. Removing a screen runs its release hooks.
// Not safe for concurrent use.
type Registry struct {
	entries []*entry
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers s at the end of the list with optional release hooks.
func (r *Registry) Add(s Screen, release ...func()) {
	r.entries = append(r.entries, &entry{screen: s, releases: release})
}

// OnRelease attaches another release hook to a registered screen.
func (r *Registry) OnRelease(id string, fn func()) error {
	i := r.indexOf(id)
	if i < 0 {
		return fmt.Errorf("screen %s: %w", id, ErrScreenNotFound)
	}
	r.entries[i].releases = append(r.entries[i].releases, fn)
	return nil
}

func (r *Registry) Get(id string) (Screen, bool) {
	i := r.indexOf(id)
	if i < 0 {
		return Screen{}, false
	}
	return r.entries[i].screen, true
}

// At returns the screen at position i.
func (r *Registry) At(i int) (Screen, bool) {
	if i < 0 || i >= len(r.entries) {
		return Screen{}, false
	}
	return r.entries[i].screen, true
}

func (r *Registry) List() []Screen {
	out := make([]Screen, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.screen
	}
	return out
}

func (r *Registry) Len() int {
	return len(r.entries)
}

// Remove unregisters the screen and runs its release hooks in reverse
// registration order.
func (r *Registry) Remove(id string) error {
	i := r.indexOf(id)
	if i < 0 {
		return fmt.Errorf("remove screen %s: %w", id, ErrScreenNotFound)
	}
	e := r.entries[i]
	r.entries = append(r.entries[:i:i], r.entries[i+1:]...)
	e.release()
	return nil
}

func (r *Registry) Reorder(from, to int) error {
	n := len(r.entries)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("reorder screens %d -> %d of %d: %w", from, to, n, ErrIndexOutOfRange)
	}
	moved := r.entries[from]
	next := append(r.entries[:from:from], r.entries[from+1:]...)
	next = append(next[:to:to], append([]*entry{moved}, next[to:]...)...)
	r.entries = next
	return nil
}

// Close releases every screen.
func (r *Registry) Close() {
	for i := len(r.entries) - 1; i >= 0; i-- {
		r.entries[i].release()
	}
	r.entries = nil
}

func (r *Registry) indexOf(id string) int {
	for i, e := range r.entries {
		if e.screen.ID == id {
			return i
		}
	}
	return -1
}

func (e *entry) release() {
	for i := len(e.releases) - 1; i >= 0; i-- {
		if fn := e.releases[i]; fn != nil {
			fn()
		}
	}
	e.releases = nil
}
