package session

import (
	"sync"

	"media-filter/internal/metrics"

	"github.com/google/uuid"
)

// Handle is a transient reference to an asset's raw bytes.
type Handle struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}

// Registry hands out handles for raw asset bytes.
type Registry struct {
	baseURL string
	mu      sync.RWMutex
	handles map[string]Asset
}

// NewRegistry returns a registry whose handle URLs are baseURL + token.
func NewRegistry(baseURL string) *Registry {
	return &Registry{
		baseURL: baseURL,
		handles: make(map[string]Asset),
	}
}

// Acquire creates a new handle for asset. The caller must Release it.
func (r *Registry) Acquire(asset Asset) Handle {
	token := uuid.NewString()

	r.mu.Lock()
	r.handles[token] = asset
	r.mu.Unlock()

	metrics.ActiveHandles.Inc()
	return Handle{Token: token, URL: r.baseURL + token}
}

// Lookup resolves a live handle token.
func (r *Registry) Lookup(token string) (Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.handles[token]
	return a, ok
}

// Release invalidates token. It reports whether the token was live.
func (r *Registry) Release(token string) bool {
	r.mu.Lock()
	_, ok := r.handles[token]
	delete(r.handles, token)
	r.mu.Unlock()

	if ok {
		metrics.ActiveHandles.Dec()
	}
	return ok
}

// WithHandle acquires a handle for the duration of fn and always releases it.
func (r *Registry) WithHandle(asset Asset, fn func(Handle) error) error {
	h := r.Acquire(asset)
	defer r.Release(h.Token)
	return fn(h)
}

// Len returns the number of live handles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}
