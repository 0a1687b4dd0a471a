// Package compare implements the before/after split position used by the
// comparison view.
package compare

import (
	"math"
	"sync"

	"media-filter/internal/filter"
)

const (
	// MinPosition and MaxPosition bound the split, in percent of frame width.
	MinPosition = 0.0
	MaxPosition = 100.0

	// DefaultPosition shows half processed, half original.
	DefaultPosition = 50.0
)

// Slider owns the split position. It is safe for concurrent use; updates are
// visible to the next reader immediately.
type Slider struct {
	mu       sync.RWMutex
	position float64
}

// NewSlider returns a slider at DefaultPosition.
func NewSlider() *Slider {
	return &Slider{position: DefaultPosition}
}

// Clamp bounds raw to [MinPosition, MaxPosition].
func Clamp(raw float64) float64 {
	return math.Max(MinPosition, math.Min(MaxPosition, raw))
}

// OnDrag sets the position from a pointer or drag event and returns the
// accepted value. NaN leaves the position unchanged.
func (s *Slider) OnDrag(raw float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !math.IsNaN(raw) {
		s.position = Clamp(raw)
	}
	return s.position
}

// SetFromInput applies a raw range-control value.
func (s *Slider) SetFromInput(raw string) (float64, error) {
	v, err := filter.ParseValue(raw)
	if err != nil {
		return s.Position(), err
	}
	return s.OnDrag(v), nil
}

// Position returns the current split in percent.
func (s *Slider) Position() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.position
}

// Boundary returns the pixel column of the split for a frame of the given width.
// Columns [0, Boundary) show the processed view.
func (s *Slider) Boundary(width int) int {
	return BoundaryAt(width, s.Position())
}

// BoundaryAt is Boundary for an explicit position.
func BoundaryAt(width int, position float64) int {
	if width <= 0 {
		return 0
	}
	return int(math.Round(float64(width) * Clamp(position) / 100))
}
