package session

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"media-filter/internal/compare"
	"media-filter/internal/filter"
	"media-filter/internal/logging"
)

// ErrClosed is returned by mutations on a closed session.
var ErrClosed = errors.New("session closed")

// ErrStaleResult is returned when a processed result belongs to an asset the
// session no longer holds.
var ErrStaleResult = errors.New("processed result belongs to a replaced asset")

// Processed is a server-produced result for the session's asset.
type Processed struct {
	JobID       string            `json:"jobId"`
	AssetID     string            `json:"assetId"`
	Path        string            `json:"-"`
	URL         string            `json:"url"`
	Params      filter.Parameters `json:"params"`
	CompletedAt time.Time         `json:"completedAt"`
}

// Session is one editing session.
type Session struct {
	ID string

	registry *Registry
	profile  filter.Profile
	slider   *compare.Slider

	mu        sync.RWMutex
	asset     Asset
	handle    Handle
	params    filter.Parameters
	processed *Processed
	lastUsed  time.Time
	closed    bool
}

func newSession(id string, registry *Registry, profile filter.Profile, asset Asset) *Session {
	return &Session{
		ID:       id,
		registry: registry,
		profile:  profile,
		slider:   compare.NewSlider(),
		asset:    asset,
		handle:   registry.Acquire(asset),
		params:   profile.Defaults(),
		lastUsed: time.Now(),
	}
}

// Asset returns the current asset.
func (s *Session) Asset() Asset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.asset
}

// Handle returns the live handle of the current asset.
func (s *Session) Handle() Handle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handle
}

// Profile returns the parameter domains of this session.
func (s *Session) Profile() filter.Profile {
	return s.profile
}

// Replace swaps in a new asset. The previous handle is released, its file is
// removed, the processed result is dropped and parameters return to their
// defaults. The split position is kept.
func (s *Session) Replace(asset Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	s.releaseLocked()
	s.asset = asset
	s.handle = s.registry.Acquire(asset)
	s.params = s.profile.Defaults()
	s.processed = nil
	s.lastUsed = time.Now()
	return nil
}

// Close releases the handle and removes the uploaded file. It is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.releaseLocked()
	s.processed = nil
	s.closed = true
}

func (s *Session) releaseLocked() {
	s.registry.Release(s.handle.Token)
	if s.asset.Path != "" {
		if err := os.Remove(s.asset.Path); err != nil && !os.IsNotExist(err) {
			logging.Warn("failed to remove session asset %s: %v", s.asset.Path, err)
		}
	}
}

// Params returns the current filter parameters.
func (s *Session) Params() filter.Parameters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.params
}

// SetParameters clamps p to the session profile and stores it. The split
// position is not touched.
func (s *Session) SetParameters(p filter.Parameters) (filter.Parameters, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return s.params, ErrClosed
	}
	s.params = s.profile.Clamp(p)
	s.lastUsed = time.Now()
	return s.params, nil
}

// Effect recomputes the effect from the current parameters.
func (s *Session) Effect() filter.Effect {
	return filter.ComputeEffect(s.Params())
}

// Drag moves the split and returns the accepted position.
func (s *Session) Drag(raw float64) float64 {
	s.touch()
	return s.slider.OnDrag(raw)
}

// Slider exposes the comparison slider.
func (s *Session) Slider() *compare.Slider {
	return s.slider
}

// Split returns the current split position.
func (s *Session) Split() float64 {
	return s.slider.Position()
}

// SetProcessed records a server result. A result produced for an asset that
// has since been replaced is rejected with ErrStaleResult.
func (s *Session) SetProcessed(p Processed) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if p.AssetID != s.asset.ID {
		return fmt.Errorf("%w: result for %q, session holds %q", ErrStaleResult, p.AssetID, s.asset.ID)
	}
	s.processed = &p
	s.lastUsed = time.Now()
	return nil
}

// Processed returns the server result when it was produced for the current
// asset with the current parameters. A stale result is not returned.
func (s *Session) Processed() (Processed, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.processed == nil || s.processed.AssetID != s.asset.ID || s.processed.Params != s.params {
		return Processed{}, false
	}
	return *s.processed, true
}

// Closed reports whether the session was closed.
func (s *Session) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastUsed = time.Now()
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return now.Sub(s.lastUsed)
}

// View is the JSON representation of a session.
type View struct {
	ID        string            `json:"id"`
	Asset     Asset             `json:"asset"`
	HandleURL string            `json:"handleUrl"`
	Profile   filter.Profile    `json:"profile"`
	Params    filter.Parameters `json:"params"`
	Split     float64           `json:"split"`
	Effect    filter.Effect     `json:"effect"`
	CSS       string            `json:"css"`
	CSSExact  bool              `json:"cssExact"`
	Processed *Processed        `json:"processed,omitempty"`
}

// View snapshots the session.
func (s *Session) View() View {
	s.mu.RLock()
	asset, handle, params := s.asset, s.handle, s.params
	s.mu.RUnlock()

	effect := filter.ComputeEffect(params)
	v := View{
		ID:        s.ID,
		Asset:     asset,
		HandleURL: handle.URL,
		Profile:   s.profile,
		Params:    params,
		Split:     s.slider.Position(),
		Effect:    effect,
		CSS:       effect.CSS(),
		CSSExact:  effect.CSSExact(),
	}
	if p, ok := s.Processed(); ok {
		v.Processed = &p
	}
	return v
}
